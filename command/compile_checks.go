package command

import (
	"github.com/goliatone/go-bankid/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[InitAuthMessage] = (*InitAuthCommand)(nil)
	_ gocmd.Commander[InitSignMessage] = (*InitSignCommand)(nil)
	_ gocmd.Commander[CheckMessage]    = (*CheckCommand)(nil)
	_ gocmd.Commander[CancelMessage]   = (*CancelCommand)(nil)

	_ LifecycleService = (*core.Engine)(nil)
)
