package gocommand

import (
	"context"
	"errors"
	"testing"

	bankidcommand "github.com/goliatone/go-bankid/command"
	"github.com/goliatone/go-bankid/core"
	"github.com/goliatone/go-bankid/query"
	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

type okMessage struct{}

func (okMessage) Type() string { return "bankid.test.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "bankid.test.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "bankid.test.test" }

type queueMessage struct{}

func (queueMessage) Type() string { return "bankid.test.queue" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := command.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("bankid.test.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

type stubService struct {
	initAuthCalls int
	lastAction    string
	txn           core.Transaction
}

func (s *stubService) InitAuth(_ context.Context, actionName string, _ core.OrderRequest) (core.Order, error) {
	s.initAuthCalls++
	s.lastAction = actionName
	return core.Order{TransactionID: "txn-1", AutoStartToken: "auto-1"}, nil
}

func (s *stubService) InitSign(context.Context, string, core.OrderRequest) (core.Order, error) {
	return core.Order{TransactionID: "txn-sign"}, nil
}

func (s *stubService) Check(context.Context, core.TransactionID, any) (core.CheckResult, error) {
	return core.CheckResult{}, nil
}

func (s *stubService) Cancel(context.Context, core.TransactionID) error { return nil }

func (s *stubService) Lookup(context.Context, core.TransactionID) (core.Transaction, error) {
	return s.txn, nil
}

func TestRegisterServiceDispatchesCommandsAndQueries(t *testing.T) {
	service := &stubService{txn: core.Transaction{
		OrderResponse: core.OrderResponse{OrderRef: "order-1"},
		Operation:     core.OperationAuth,
		ActionName:    "login",
	}}
	subscriptions, err := RegisterService(NewRegistryAdapter(command.NewRegistry()), service)
	if err != nil {
		t.Fatalf("register service: %v", err)
	}
	t.Cleanup(func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	})
	if len(subscriptions) != 6 {
		t.Fatalf("expected 6 subscriptions, got %d", len(subscriptions))
	}

	err = Dispatch(context.Background(), bankidcommand.InitAuthMessage{
		ActionName: "login",
		Request:    core.OrderRequest{EndUserIP: "127.0.0.1"},
	})
	if err != nil {
		t.Fatalf("dispatch init auth: %v", err)
	}
	if service.initAuthCalls != 1 || service.lastAction != "login" {
		t.Fatalf("expected init auth dispatch, got %d %q", service.initAuthCalls, service.lastAction)
	}

	view, err := Query[query.LookupTransactionMessage, query.TransactionView](context.Background(), query.LookupTransactionMessage{TransactionID: "txn-1"})
	if err != nil {
		t.Fatalf("query lookup: %v", err)
	}
	if view.OrderRef != "order-1" || view.ActionName != "login" {
		t.Fatalf("unexpected view: %#v", view)
	}
}

func TestRegisterServiceRequiresService(t *testing.T) {
	if _, err := RegisterService(NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected missing service to fail")
	}
}
