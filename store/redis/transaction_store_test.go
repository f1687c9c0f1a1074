package redisstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-bankid/core"
	"github.com/google/uuid"
)

// newIntegrationStore requires a running Redis and skips otherwise.
// BANKID_TEST_REDIS_ADDR overrides the default localhost:6379.
func newIntegrationStore(t *testing.T, opts ...Option) *TransactionStore {
	t.Helper()
	addr := os.Getenv("BANKID_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := NewClient(addr, "", 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		t.Skip("Skipping Redis integration test: redis not available")
	}
	t.Cleanup(func() { _ = client.Close() })

	opts = append([]Option{WithKeyPrefix("bankid-test:" + uuid.NewString() + ":")}, opts...)
	store, err := NewTransactionStore(client, opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func sampleTransaction() core.Transaction {
	return core.Transaction{
		OrderResponse: core.OrderResponse{
			OrderRef:       "order-1",
			AutoStartToken: "auto-1",
			QRStartToken:   "qr-token",
			QRStartSecret:  "qr-secret",
			StartTime:      time.Now().UTC(),
		},
		Operation:  core.OperationSign,
		ActionName: "contract",
		Context:    map[string]any{"document": "contract-1"},
	}
}

func TestNewTransactionStore_RequiresClient(t *testing.T) {
	if _, err := NewTransactionStore(nil); err == nil {
		t.Fatalf("expected missing client error")
	}
}

func TestTransactionStore_KeyUsesPrefix(t *testing.T) {
	store, err := NewTransactionStore(NewClient("localhost:0", "", 0), WithKeyPrefix("app:txn:"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if got := store.Key(" abc "); got != "app:txn:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestTransactionStore_EmptyIDIsAbsent(t *testing.T) {
	store, err := NewTransactionStore(NewClient("localhost:0", "", 0))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Load(context.Background(), ""); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected not found for empty id, got %v", err)
	}
	if _, err := store.Consume(context.Background(), " "); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected not found for empty id, got %v", err)
	}
}

func TestTransactionStore_Integration_RoundTripAndDelete(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	txn := sampleTransaction()
	id, err := store.Save(ctx, txn)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.OrderResponse.OrderRef != txn.OrderResponse.OrderRef || loaded.Context["document"] != "contract-1" {
		t.Fatalf("unexpected round trip %#v", loaded)
	}
	if !loaded.OrderResponse.StartTime.Equal(txn.OrderResponse.StartTime) {
		t.Fatalf("start time mismatch")
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := store.Load(ctx, id); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestTransactionStore_Integration_ConsumeIsExclusive(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	id, err := store.Save(ctx, sampleTransaction())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, id); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected one consumer to win, got %d", winners)
	}
}

func TestTransactionStore_Integration_TTLExpires(t *testing.T) {
	store := newIntegrationStore(t, WithTTL(time.Second))
	ctx := context.Background()
	id, err := store.Save(ctx, sampleTransaction())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(1500 * time.Millisecond)
	if _, err := store.Load(ctx, id); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected expired transaction to be absent, got %v", err)
	}
}
