package command

import (
	"context"

	"github.com/goliatone/go-bankid/core"
	gocmd "github.com/goliatone/go-command"
)

// LifecycleService is the mutating surface of *core.Engine.
type LifecycleService interface {
	InitAuth(ctx context.Context, actionName string, req core.OrderRequest) (core.Order, error)
	InitSign(ctx context.Context, actionName string, req core.OrderRequest) (core.Order, error)
	Check(ctx context.Context, id core.TransactionID, request any) (core.CheckResult, error)
	Cancel(ctx context.Context, id core.TransactionID) error
}

type InitAuthCommand struct {
	service LifecycleService
}

func NewInitAuthCommand(service LifecycleService) *InitAuthCommand {
	return &InitAuthCommand{service: service}
}

func (c *InitAuthCommand) Execute(ctx context.Context, msg InitAuthMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: init auth service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	order, err := c.service.InitAuth(ctx, msg.ActionName, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, order)
	return nil
}

type InitSignCommand struct {
	service LifecycleService
}

func NewInitSignCommand(service LifecycleService) *InitSignCommand {
	return &InitSignCommand{service: service}
}

func (c *InitSignCommand) Execute(ctx context.Context, msg InitSignMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: init sign service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	order, err := c.service.InitSign(ctx, msg.ActionName, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, order)
	return nil
}

type CheckCommand struct {
	service LifecycleService
}

func NewCheckCommand(service LifecycleService) *CheckCommand {
	return &CheckCommand{service: service}
}

// Execute stores the check result whenever a collect response was obtained,
// including when finalization failed afterwards.
func (c *CheckCommand) Execute(ctx context.Context, msg CheckMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: check service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	result, err := c.service.Check(ctx, msg.TransactionID, msg.Request)
	if result.Collect != nil {
		storeResult(ctx, result)
	}
	return err
}

type CancelCommand struct {
	service LifecycleService
}

func NewCancelCommand(service LifecycleService) *CancelCommand {
	return &CancelCommand{service: service}
}

func (c *CancelCommand) Execute(ctx context.Context, msg CancelMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: cancel service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.Cancel(ctx, msg.TransactionID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
