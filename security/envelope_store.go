package security

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-bankid/core"
)

const defaultEnvelopeMaxAge = 5 * time.Minute

// EnvelopeStore hands callers signed, timestamped transaction ids instead of
// the raw ids of the wrapped store. Tampered or stale ids behave like absent
// transactions.
type EnvelopeStore struct {
	base   core.TransactionStore
	signer *TimestampSigner
	maxAge time.Duration
}

type EnvelopeStoreOption func(*EnvelopeStore)

// WithMaxAge bounds how long after Save an id is honored.
func WithMaxAge(maxAge time.Duration) EnvelopeStoreOption {
	return func(s *EnvelopeStore) {
		if maxAge > 0 {
			s.maxAge = maxAge
		}
	}
}

func NewEnvelopeStore(base core.TransactionStore, signer *TimestampSigner, opts ...EnvelopeStoreOption) (*EnvelopeStore, error) {
	if base == nil {
		return nil, fmt.Errorf("security: base transaction store is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("security: signer is required")
	}
	store := &EnvelopeStore{base: base, signer: signer, maxAge: defaultEnvelopeMaxAge}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *EnvelopeStore) Save(ctx context.Context, txn core.Transaction) (core.TransactionID, error) {
	id, err := s.base.Save(ctx, txn)
	if err != nil {
		return "", err
	}
	return core.TransactionID(s.signer.Sign(string(id))), nil
}

func (s *EnvelopeStore) Load(ctx context.Context, id core.TransactionID) (core.Transaction, error) {
	raw, ok := s.open(id)
	if !ok {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return s.base.Load(ctx, raw)
}

func (s *EnvelopeStore) Delete(ctx context.Context, id core.TransactionID) error {
	raw, ok := s.open(id)
	if !ok {
		return nil
	}
	return s.base.Delete(ctx, raw)
}

func (s *EnvelopeStore) Consume(ctx context.Context, id core.TransactionID) (core.Transaction, error) {
	raw, ok := s.open(id)
	if !ok {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if consumer, ok := s.base.(core.TransactionConsumer); ok {
		return consumer.Consume(ctx, raw)
	}
	txn, err := s.base.Load(ctx, raw)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.base.Delete(ctx, raw); err != nil {
		return core.Transaction{}, err
	}
	return txn, nil
}

func (s *EnvelopeStore) open(id core.TransactionID) (core.TransactionID, bool) {
	raw, err := s.signer.Unsign(string(id), s.maxAge)
	if err != nil || raw == "" {
		return "", false
	}
	return core.TransactionID(raw), true
}

var (
	_ core.TransactionStore    = (*EnvelopeStore)(nil)
	_ core.TransactionConsumer = (*EnvelopeStore)(nil)
)
