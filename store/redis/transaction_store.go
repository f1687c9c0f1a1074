package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-bankid/core"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix      = "bankid:transaction:"
	defaultTransactionTTL = 15 * time.Minute
)

// TransactionStore keeps each transaction as a JSON string with a TTL, so
// expiry is enforced by Redis itself.
type TransactionStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

type Option func(*TransactionStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *TransactionStore) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.prefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *TransactionStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewTransactionStore(client redis.Cmdable, opts ...Option) (*TransactionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redisstore: redis client is required")
	}
	store := &TransactionStore{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    defaultTransactionTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// NewClient builds a go-redis client for addr.
func NewClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *TransactionStore) Key(id core.TransactionID) string {
	if s == nil {
		return ""
	}
	return s.prefix + strings.TrimSpace(string(id))
}

func (s *TransactionStore) Save(ctx context.Context, txn core.Transaction) (core.TransactionID, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("redisstore: transaction store is not configured")
	}
	if strings.TrimSpace(txn.OrderResponse.OrderRef) == "" {
		return "", fmt.Errorf("redisstore: transaction order ref is required")
	}
	payload, err := core.MarshalTransaction(txn)
	if err != nil {
		return "", err
	}
	id := core.TransactionID(uuid.NewString())
	if err := s.client.Set(ctx, s.Key(id), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redisstore: save transaction: %w", err)
	}
	return id, nil
}

func (s *TransactionStore) Load(ctx context.Context, id core.TransactionID) (core.Transaction, error) {
	if s == nil || s.client == nil {
		return core.Transaction{}, fmt.Errorf("redisstore: transaction store is not configured")
	}
	if strings.TrimSpace(string(id)) == "" {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	payload, err := s.client.Get(ctx, s.Key(id)).Bytes()
	return decode(payload, err)
}

func (s *TransactionStore) Delete(ctx context.Context, id core.TransactionID) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redisstore: transaction store is not configured")
	}
	if strings.TrimSpace(string(id)) == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.Key(id)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete transaction: %w", err)
	}
	return nil
}

// Consume uses GETDEL, so of several concurrent callers only one receives the
// transaction.
func (s *TransactionStore) Consume(ctx context.Context, id core.TransactionID) (core.Transaction, error) {
	if s == nil || s.client == nil {
		return core.Transaction{}, fmt.Errorf("redisstore: transaction store is not configured")
	}
	if strings.TrimSpace(string(id)) == "" {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	payload, err := s.client.GetDel(ctx, s.Key(id)).Bytes()
	return decode(payload, err)
}

func decode(payload []byte, err error) (core.Transaction, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Transaction{}, core.ErrTransactionNotFound
		}
		return core.Transaction{}, fmt.Errorf("redisstore: load transaction: %w", err)
	}
	return core.UnmarshalTransaction(payload)
}

var (
	_ core.TransactionStore    = (*TransactionStore)(nil)
	_ core.TransactionConsumer = (*TransactionStore)(nil)
)
