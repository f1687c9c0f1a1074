package query

import (
	"context"
	"time"

	"github.com/goliatone/go-bankid/core"
)

// TransactionReader reads stored transactions without touching the provider.
type TransactionReader interface {
	Lookup(ctx context.Context, id core.TransactionID) (core.Transaction, error)
}

// TransactionView is the caller-safe projection of a stored transaction. The
// QR start secret never leaves the engine.
type TransactionView struct {
	TransactionID  core.TransactionID
	OrderRef       string
	Operation      core.Operation
	ActionName     string
	AutoStartToken string
	StartTime      time.Time
	Context        map[string]any
}

type LookupTransactionQuery struct {
	reader TransactionReader
}

func NewLookupTransactionQuery(reader TransactionReader) *LookupTransactionQuery {
	return &LookupTransactionQuery{reader: reader}
}

func (q *LookupTransactionQuery) Query(ctx context.Context, msg LookupTransactionMessage) (TransactionView, error) {
	if q == nil || q.reader == nil {
		return TransactionView{}, queryDependencyError("query: transaction reader is required")
	}
	if err := msg.Validate(); err != nil {
		return TransactionView{}, err
	}
	txn, err := q.reader.Lookup(ctx, msg.TransactionID)
	if err != nil {
		return TransactionView{}, err
	}
	txContext := make(map[string]any, len(txn.Context))
	for key, value := range txn.Context {
		txContext[key] = value
	}
	return TransactionView{
		TransactionID:  msg.TransactionID,
		OrderRef:       txn.OrderResponse.OrderRef,
		Operation:      txn.Operation,
		ActionName:     txn.ActionName,
		AutoStartToken: txn.OrderResponse.AutoStartToken,
		StartTime:      txn.OrderResponse.StartTime,
		Context:        txContext,
	}, nil
}

// CurrentQRCodeQuery renders the animated QR payload for a stored
// transaction at the current time. Clients can refresh it every second
// between collect polls.
type CurrentQRCodeQuery struct {
	reader TransactionReader
	clock  func() time.Time
}

func NewCurrentQRCodeQuery(reader TransactionReader) *CurrentQRCodeQuery {
	return &CurrentQRCodeQuery{reader: reader, clock: time.Now}
}

// WithClock overrides the time source used for the QR elapsed seconds.
func (q *CurrentQRCodeQuery) WithClock(clock func() time.Time) *CurrentQRCodeQuery {
	if q != nil && clock != nil {
		q.clock = clock
	}
	return q
}

func (q *CurrentQRCodeQuery) Query(ctx context.Context, msg CurrentQRCodeMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: transaction reader is required")
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	txn, err := q.reader.Lookup(ctx, msg.TransactionID)
	if err != nil {
		return "", err
	}
	clock := q.clock
	if clock == nil {
		clock = time.Now
	}
	return core.GenerateQRCode(txn.OrderResponse, clock()), nil
}
