package query

import (
	"github.com/goliatone/go-bankid/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[LookupTransactionMessage, TransactionView] = (*LookupTransactionQuery)(nil)
	_ gocmd.Querier[CurrentQRCodeMessage, string]              = (*CurrentQRCodeQuery)(nil)

	_ TransactionReader = (*core.Engine)(nil)
)
