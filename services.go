package bankid

import (
	"github.com/goliatone/go-bankid/core"
	"github.com/goliatone/go-bankid/transport"
)

type Config = core.Config
type TLSConfig = core.TLSConfig

type Option = core.Option

type Engine = core.Engine

type Transaction = core.Transaction
type TransactionID = core.TransactionID
type TransactionStore = core.TransactionStore
type OrderRequest = core.OrderRequest
type Order = core.Order
type CheckResult = core.CheckResult
type Requirement = core.Requirement

type Action = core.Action
type AuthAction = core.AuthAction
type SignAction = core.SignAction
type AuthActionFuncs = core.AuthActionFuncs
type SignActionFuncs = core.SignActionFuncs
type UserAuthData = core.UserAuthData
type UserSignData = core.UserSignData

type CollectResponse = core.CollectResponse
type PendingCollect = core.PendingCollect
type CompleteCollect = core.CompleteCollect
type FailedCollect = core.FailedCollect
type CompletionData = core.CompletionData

type InitFailed = core.InitFailed
type FinalizeFailed = core.FinalizeFailed

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithProviderClient   = core.WithProviderClient
	WithTransactionStore = core.WithTransactionStore
	WithActionRegistry   = core.WithActionRegistry
	WithActions          = core.WithActions
	WithClock            = core.WithClock
)

var (
	ErrTransactionExpired = core.ErrTransactionExpired
	ErrAlreadyInProgress  = core.ErrAlreadyInProgress
	ErrServiceUnavailable = core.ErrServiceUnavailable

	NewInitFailed     = core.NewInitFailed
	NewFinalizeFailed = core.NewFinalizeFailed
	MapError          = core.MapError
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewEngine builds an engine from explicit collaborators. Provider client,
// transaction store and at least one action are required.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	return core.NewEngine(cfg, opts...)
}

// Setup builds an engine with the REST client and an in-memory store derived
// from cfg. Options passed by the caller override both.
func Setup(cfg Config, opts ...Option) (*Engine, error) {
	resolved, err := core.GoOptionsResolver{}.Resolve(core.DefaultConfig(), Config{}, cfg)
	if err != nil {
		return nil, err
	}
	client, err := transport.NewClientFromConfig(resolved)
	if err != nil {
		return nil, err
	}
	defaults := []Option{
		core.WithProviderClient(client),
		core.WithTransactionStore(core.NewMemoryTransactionStore(resolved.TransactionTTL)),
	}
	return core.NewEngine(cfg, append(defaults, opts...)...)
}
