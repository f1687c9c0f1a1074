package query

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-bankid/core"
	goerrors "github.com/goliatone/go-errors"
)

type stubTransactionReader struct {
	txn    core.Transaction
	err    error
	lookup core.TransactionID
}

func (s *stubTransactionReader) Lookup(_ context.Context, id core.TransactionID) (core.Transaction, error) {
	s.lookup = id
	return s.txn, s.err
}

func sampleTransaction(start time.Time) core.Transaction {
	return core.Transaction{
		OrderResponse: core.OrderResponse{
			OrderRef:       "order-1",
			AutoStartToken: "auto-1",
			QRStartToken:   "qr-token",
			QRStartSecret:  "qr-secret",
			StartTime:      start,
		},
		Operation:  core.OperationAuth,
		ActionName: "login",
		Context:    map[string]any{"next": "/profile"},
	}
}

func TestLookupTransactionQuery_ProjectsTransaction(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reader := &stubTransactionReader{txn: sampleTransaction(start)}

	view, err := NewLookupTransactionQuery(reader).Query(context.Background(), LookupTransactionMessage{TransactionID: "txn-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if reader.lookup != "txn-1" {
		t.Fatalf("expected lookup of txn-1, got %q", reader.lookup)
	}
	if view.TransactionID != "txn-1" || view.OrderRef != "order-1" || view.Operation != core.OperationAuth {
		t.Fatalf("unexpected view: %#v", view)
	}
	if view.AutoStartToken != "auto-1" || !view.StartTime.Equal(start) || view.ActionName != "login" {
		t.Fatalf("unexpected view: %#v", view)
	}

	view.Context["next"] = "/elsewhere"
	if reader.txn.Context["next"] != "/profile" {
		t.Fatalf("expected view context to be a copy")
	}
}

func TestLookupTransactionQuery_PropagatesExpired(t *testing.T) {
	reader := &stubTransactionReader{err: core.ErrTransactionExpired}
	_, err := NewLookupTransactionQuery(reader).Query(context.Background(), LookupTransactionMessage{TransactionID: "gone"})
	if !errors.Is(err, core.ErrTransactionExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestCurrentQRCodeQuery_UsesClock(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	txn := sampleTransaction(start)
	reader := &stubTransactionReader{txn: txn}
	now := start.Add(7 * time.Second)

	code, err := NewCurrentQRCodeQuery(reader).
		WithClock(func() time.Time { return now }).
		Query(context.Background(), CurrentQRCodeMessage{TransactionID: "txn-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if want := core.GenerateQRCode(txn.OrderResponse, now); code != want {
		t.Fatalf("expected %q, got %q", want, code)
	}
	if !strings.HasPrefix(code, "bankid.qr-token.7.") {
		t.Fatalf("unexpected qr code %q", code)
	}
}

func TestQueryValidation_ReturnsRichError(t *testing.T) {
	_, err := NewLookupTransactionQuery(&stubTransactionReader{}).Query(context.Background(), LookupTransactionMessage{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation || rich.Code != http.StatusBadRequest {
		t.Fatalf("unexpected envelope: %q %d", rich.Category, rich.Code)
	}
	if rich.TextCode != core.ErrorInvalidInput {
		t.Fatalf("expected %q, got %q", core.ErrorInvalidInput, rich.TextCode)
	}
	validation := rich.AllValidationErrors()
	if len(validation) == 0 || validation[0].Field != "transaction_id" {
		t.Fatalf("expected transaction_id validation field, got %#v", validation)
	}
}

func TestQuery_NilReaderReturnsRichError(t *testing.T) {
	var q *CurrentQRCodeQuery
	_, err := q.Query(context.Background(), CurrentQRCodeMessage{TransactionID: "txn-1"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal || rich.TextCode != core.ErrorInternal {
		t.Fatalf("unexpected envelope: %q %q", rich.Category, rich.TextCode)
	}
}
