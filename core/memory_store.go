package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryTransaction struct {
	txn       Transaction
	expiresAt time.Time
}

// MemoryTransactionStore keeps transactions in process memory with a TTL.
// It is safe for concurrent use and implements TransactionConsumer, but
// gives no guarantees across processes.
type MemoryTransactionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[TransactionID]memoryTransaction
}

func NewMemoryTransactionStore(ttl time.Duration) *MemoryTransactionStore {
	if ttl <= 0 {
		ttl = defaultTransactionTTL
	}
	return &MemoryTransactionStore{
		ttl:     ttl,
		now:     time.Now,
		entries: map[TransactionID]memoryTransaction{},
	}
}

func (s *MemoryTransactionStore) Save(_ context.Context, txn Transaction) (TransactionID, error) {
	if s == nil {
		return "", fmt.Errorf("core: transaction store is not configured")
	}
	if strings.TrimSpace(txn.OrderResponse.OrderRef) == "" {
		return "", fmt.Errorf("core: transaction order ref is required")
	}
	id := TransactionID(uuid.NewString())

	s.mu.Lock()
	s.entries[id] = memoryTransaction{
		txn:       cloneTransaction(txn),
		expiresAt: s.now().UTC().Add(s.ttl),
	}
	s.mu.Unlock()

	return id, nil
}

func (s *MemoryTransactionStore) Load(_ context.Context, id TransactionID) (Transaction, error) {
	if s == nil {
		return Transaction{}, fmt.Errorf("core: transaction store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	if s.now().UTC().After(entry.expiresAt) {
		delete(s.entries, id)
		return Transaction{}, ErrTransactionNotFound
	}
	return cloneTransaction(entry.txn), nil
}

func (s *MemoryTransactionStore) Delete(_ context.Context, id TransactionID) error {
	if s == nil {
		return fmt.Errorf("core: transaction store is not configured")
	}
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryTransactionStore) Consume(_ context.Context, id TransactionID) (Transaction, error) {
	if s == nil {
		return Transaction{}, fmt.Errorf("core: transaction store is not configured")
	}
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if !ok || s.now().UTC().After(entry.expiresAt) {
		return Transaction{}, ErrTransactionNotFound
	}
	return cloneTransaction(entry.txn), nil
}

func (s *MemoryTransactionStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
