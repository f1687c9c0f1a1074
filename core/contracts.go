package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// ProviderClient issues the four BankID RP operations. Non-2xx responses are
// returned as-is for the codec to map; a transport fault must be returned as
// an error, preferably a *TransportError.
type ProviderClient interface {
	Auth(ctx context.Context, req AuthRequest) (TransportResponse, error)
	Sign(ctx context.Context, req SignRequest) (TransportResponse, error)
	Collect(ctx context.Context, orderRef string) (TransportResponse, error)
	Cancel(ctx context.Context, orderRef string) (TransportResponse, error)
}

// TransactionStore persists in-flight transactions. Save mints the id, Load
// returns ErrTransactionNotFound when absent and Delete is idempotent.
type TransactionStore interface {
	Save(ctx context.Context, txn Transaction) (TransactionID, error)
	Load(ctx context.Context, id TransactionID) (Transaction, error)
	Delete(ctx context.Context, id TransactionID) error
}

// TransactionConsumer is implemented by stores that can load and delete in
// one atomic step. When present, the engine uses it for terminal results so
// only one concurrent check can finalize a transaction.
type TransactionConsumer interface {
	Consume(ctx context.Context, id TransactionID) (Transaction, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
