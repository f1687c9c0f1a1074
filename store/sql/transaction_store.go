package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-bankid/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultTransactionTTL = 15 * time.Minute

// TransactionStore keeps transactions in the bankid_transactions table.
// Rows past their expiry are reported as absent and removed by Prune.
type TransactionStore struct {
	db      *bun.DB
	repo    repository.Repository[*transactionRecord]
	secrets core.SecretProvider
	ttl     time.Duration
	now     func() time.Time
}

type StoreOption func(*TransactionStore)

// WithSecretProvider encrypts stored payloads. The QR secret and the action
// context are otherwise kept as plain JSON.
func WithSecretProvider(provider core.SecretProvider) StoreOption {
	return func(s *TransactionStore) {
		s.secrets = provider
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *TransactionStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *TransactionStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTransactionStore(db *bun.DB, opts ...StoreOption) (*TransactionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*transactionRecord](db, transactionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid transaction repository wiring: %w", err)
		}
	}
	store := &TransactionStore{
		db:   db,
		repo: repo,
		ttl:  defaultTransactionTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store, nil
}

func (s *TransactionStore) Save(ctx context.Context, txn core.Transaction) (core.TransactionID, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("sqlstore: transaction store is not configured")
	}
	if strings.TrimSpace(txn.OrderResponse.OrderRef) == "" {
		return "", fmt.Errorf("sqlstore: transaction order ref is required")
	}
	payload, format, err := s.encode(ctx, txn)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	record := &transactionRecord{
		ID:            uuid.NewString(),
		OrderRef:      txn.OrderResponse.OrderRef,
		Operation:     string(txn.Operation),
		ActionName:    txn.ActionName,
		Payload:       payload,
		PayloadFormat: format,
		ExpiresAt:     now.Add(s.ttl),
		CreatedAt:     now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return "", err
	}
	return core.TransactionID(created.ID), nil
}

func (s *TransactionStore) Load(ctx context.Context, id core.TransactionID) (core.Transaction, error) {
	if s == nil || s.db == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	record, err := findTransaction(ctx, s.db, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if s.expired(record) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return s.decode(ctx, record)
}

func (s *TransactionStore) Delete(ctx context.Context, id core.TransactionID) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: transaction store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*transactionRecord)(nil)).
		Where("id = ?", strings.TrimSpace(string(id))).
		Exec(ctx)
	return err
}

// Consume loads and deletes the row in one transaction. Only the caller whose
// delete removed the row gets the transaction back.
func (s *TransactionStore) Consume(ctx context.Context, id core.TransactionID) (core.Transaction, error) {
	if s == nil || s.db == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	var record *transactionRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := findTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*transactionRecord)(nil)).
			Where("id = ?", found.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return core.ErrTransactionNotFound
		}
		record = found
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	if s.expired(record) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return s.decode(ctx, record)
}

// Prune deletes expired rows and reports how many were removed.
func (s *TransactionStore) Prune(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: transaction store is not configured")
	}
	res, err := s.db.NewDelete().
		Model((*transactionRecord)(nil)).
		Where("expires_at <= ?", s.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TransactionStore) expired(record *transactionRecord) bool {
	return record == nil || !s.now().UTC().Before(record.ExpiresAt.UTC())
}

func (s *TransactionStore) encode(ctx context.Context, txn core.Transaction) ([]byte, string, error) {
	payload, err := core.MarshalTransaction(txn)
	if err != nil {
		return nil, "", err
	}
	if s.secrets == nil {
		return payload, payloadFormatJSON, nil
	}
	encrypted, err := s.secrets.Encrypt(ctx, payload)
	if err != nil {
		return nil, "", fmt.Errorf("sqlstore: encrypt transaction payload: %w", err)
	}
	return encrypted, payloadFormatEncrypted, nil
}

func (s *TransactionStore) decode(ctx context.Context, record *transactionRecord) (core.Transaction, error) {
	payload := record.Payload
	switch record.PayloadFormat {
	case payloadFormatJSON:
	case payloadFormatEncrypted:
		if s.secrets == nil {
			return core.Transaction{}, fmt.Errorf("sqlstore: transaction %s is encrypted but no secret provider is configured", record.ID)
		}
		decrypted, err := s.secrets.Decrypt(ctx, payload)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("sqlstore: decrypt transaction payload: %w", err)
		}
		payload = decrypted
	default:
		return core.Transaction{}, fmt.Errorf("sqlstore: unsupported payload format %q", record.PayloadFormat)
	}
	return core.UnmarshalTransaction(payload)
}

func findTransaction(ctx context.Context, db bun.IDB, id core.TransactionID) (*transactionRecord, error) {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return nil, core.ErrTransactionNotFound
	}
	record := &transactionRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", trimmed).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrTransactionNotFound
		}
		return nil, err
	}
	return record, nil
}
