package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-bankid/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const transactionCacheKeyPrefix = "go-bankid::transaction::v1"

// CachedTransactionStore serves Load from a read-through cache and evicts on
// Delete and Consume. The cache TTL should not exceed the transaction TTL of
// the base store, since cached entries are not re-checked for expiry.
type CachedTransactionStore struct {
	base  core.TransactionStore
	cache repositorycache.CacheService
}

func NewCachedTransactionStore(
	base core.TransactionStore,
	cacheService repositorycache.CacheService,
) (*CachedTransactionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base transaction store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: transaction cache service is required")
	}
	return &CachedTransactionStore{base: base, cache: cacheService}, nil
}

// TransactionCacheKey returns go-bankid::transaction::v1::<id> with the id
// URL-path escaped.
func TransactionCacheKey(id core.TransactionID) (string, error) {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: transaction id is required")
	}
	return transactionCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedTransactionStore) Save(ctx context.Context, txn core.Transaction) (core.TransactionID, error) {
	if s == nil || s.base == nil {
		return "", fmt.Errorf("sqlstore: cached transaction store is not configured")
	}
	return s.base.Save(ctx, txn)
}

func (s *CachedTransactionStore) Load(ctx context.Context, id core.TransactionID) (core.Transaction, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: cached transaction store is not configured")
	}
	cacheKey, err := TransactionCacheKey(id)
	if err != nil {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	txn, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Transaction, error) {
		return s.base.Load(ctx, id)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return cloneTransaction(txn), nil
}

func (s *CachedTransactionStore) Delete(ctx context.Context, id core.TransactionID) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached transaction store is not configured")
	}
	if err := s.base.Delete(ctx, id); err != nil {
		return err
	}
	return s.evict(ctx, id)
}

// Consume delegates to the base store when it is a TransactionConsumer and
// falls back to Load followed by Delete otherwise.
func (s *CachedTransactionStore) Consume(ctx context.Context, id core.TransactionID) (core.Transaction, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Transaction{}, fmt.Errorf("sqlstore: cached transaction store is not configured")
	}
	var (
		txn core.Transaction
		err error
	)
	if consumer, ok := s.base.(core.TransactionConsumer); ok {
		txn, err = consumer.Consume(ctx, id)
	} else {
		txn, err = s.base.Load(ctx, id)
		if err == nil {
			err = s.base.Delete(ctx, id)
		}
	}
	if evictErr := s.evict(ctx, id); evictErr != nil && err == nil {
		err = evictErr
	}
	if err != nil {
		return core.Transaction{}, err
	}
	return txn, nil
}

func (s *CachedTransactionStore) evict(ctx context.Context, id core.TransactionID) error {
	cacheKey, err := TransactionCacheKey(id)
	if err != nil {
		return nil
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneTransaction(txn core.Transaction) core.Transaction {
	cloned := txn
	if txn.Context != nil {
		cloned.Context = make(map[string]any, len(txn.Context))
		for key, value := range txn.Context {
			cloned.Context[key] = value
		}
	}
	return cloned
}
