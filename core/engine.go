package core

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Engine drives BankID orders from init through collect to finalize or
// cancel. It keeps no state between calls besides its collaborators and does
// no locking of its own; exactly-once finalization depends on the store
// implementing TransactionConsumer.
type Engine struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	client          ProviderClient
	store           TransactionStore
	registry        *ActionRegistry
	clock           func() time.Time
}

func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	builder := defaultEngineBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("bankid", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("bankid"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = time.Now
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, err
	}
	if builder.errorMapper == nil {
		builder.errorMapper = NewErrorMapper(finalConfig.DefaultRetryAfter)
	}

	if builder.client == nil {
		return nil, &ConfigurationError{Field: "provider_client"}
	}
	if builder.store == nil {
		return nil, &ConfigurationError{Field: "transaction_store"}
	}
	if builder.registry == nil {
		if len(builder.actions) == 0 {
			return nil, &ConfigurationError{Field: "actions"}
		}
		registry, regErr := NewActionRegistry(builder.actions...)
		if regErr != nil {
			return nil, &ConfigurationError{Field: "actions", Message: regErr.Error()}
		}
		builder.registry = registry
	}

	return &Engine{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		client:          builder.client,
		store:           builder.store,
		registry:        builder.registry,
		clock:           builder.clock,
	}, nil
}

func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

func (e *Engine) Registry() *ActionRegistry {
	if e == nil {
		return nil
	}
	return e.registry
}

// MapError renders err with the engine's error mapper.
func (e *Engine) MapError(err error) *goerrors.Error {
	return e.mapError(err)
}

func (e *Engine) mapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if e == nil || e.errorMapper == nil {
		return MapError(err)
	}
	return e.errorMapper(err)
}

func (e *Engine) ready() error {
	if e == nil {
		return &ConfigurationError{Field: "engine"}
	}
	if e.client == nil {
		return &ConfigurationError{Field: "provider_client"}
	}
	if e.store == nil {
		return &ConfigurationError{Field: "transaction_store"}
	}
	return nil
}

// InitAuth starts an auth order for the named auth action.
func (e *Engine) InitAuth(ctx context.Context, actionName string, req OrderRequest) (order Order, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"operation_kind": string(OperationAuth), "action_name": actionName}
	defer func() { e.observeOperation(ctx, startedAt, "init_auth", err, fields) }()

	if err = e.ready(); err != nil {
		return Order{}, err
	}
	action, ok := e.registry.Auth(actionName)
	if !ok {
		return Order{}, &ActionNotFoundError{Operation: OperationAuth, Name: actionName}
	}

	userData, txContext, err := action.InitializeAuth(ctx, req.Request, copyAnyMap(req.Context))
	if err != nil {
		return Order{}, err
	}
	returnURL := ""
	if builder, ok := action.(ReturnURLBuilder); ok {
		returnURL, err = builder.BuildReturnURL(ctx, req.Request)
		if err != nil {
			return Order{}, err
		}
	}
	body, err := BuildAuthRequest(req.EndUserIP, req.Requirement, userData, returnURL)
	if err != nil {
		return Order{}, err
	}

	res, err := e.client.Auth(ctx, body)
	if err != nil {
		return Order{}, asTransportError("auth", err)
	}
	return e.persistOrder(ctx, OperationAuth, action.Name(), res, txContext)
}

// InitSign starts a sign order for the named sign action.
func (e *Engine) InitSign(ctx context.Context, actionName string, req OrderRequest) (order Order, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"operation_kind": string(OperationSign), "action_name": actionName}
	defer func() { e.observeOperation(ctx, startedAt, "init_sign", err, fields) }()

	if err = e.ready(); err != nil {
		return Order{}, err
	}
	action, ok := e.registry.Sign(actionName)
	if !ok {
		return Order{}, &ActionNotFoundError{Operation: OperationSign, Name: actionName}
	}

	userData, txContext, err := action.InitializeSign(ctx, req.Request, copyAnyMap(req.Context))
	if err != nil {
		return Order{}, err
	}
	body, err := BuildSignRequest(req.EndUserIP, req.Requirement, userData)
	if err != nil {
		return Order{}, err
	}

	res, err := e.client.Sign(ctx, body)
	if err != nil {
		return Order{}, asTransportError("sign", err)
	}
	return e.persistOrder(ctx, OperationSign, action.Name(), res, txContext)
}

func (e *Engine) persistOrder(
	ctx context.Context,
	operation Operation,
	actionName string,
	res TransportResponse,
	txContext map[string]any,
) (Order, error) {
	orderResponse, err := DecodeOrder(res, e.clock())
	if err != nil {
		return Order{}, err
	}
	id, err := e.store.Save(ctx, Transaction{
		OrderResponse: orderResponse,
		Operation:     operation,
		ActionName:    strings.TrimSpace(actionName),
		Context:       txContext,
	})
	if err != nil {
		return Order{}, err
	}
	return Order{TransactionID: id, AutoStartToken: orderResponse.AutoStartToken}, nil
}

// Check polls the order behind id once. An absent transaction, whether it
// never existed or already finished, yields ErrTransactionExpired without
// contacting the provider. Terminal results remove the transaction before
// the action is finalized, so a finalize failure is not retried by polling
// again. On ActionNotFoundError and finalize failures the returned result
// still carries the collect response.
func (e *Engine) Check(ctx context.Context, id TransactionID, request any) (result CheckResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() { e.observeOperation(ctx, startedAt, "check", err, fields) }()

	if err = e.ready(); err != nil {
		return CheckResult{}, err
	}
	txn, err := e.load(ctx, id)
	if err != nil {
		return CheckResult{}, err
	}
	fields["operation_kind"] = string(txn.Operation)
	fields["action_name"] = txn.ActionName

	res, err := e.client.Collect(ctx, txn.OrderResponse.OrderRef)
	if err != nil {
		return CheckResult{}, asTransportError("collect", err)
	}
	collect, err := DecodeCollect(res)
	if err != nil {
		return CheckResult{}, err
	}
	result.Collect = collect
	fields["collect_status"] = string(collect.Status())

	if IsTerminal(collect) {
		if err = e.release(ctx, id); err != nil {
			return CheckResult{}, err
		}
	}

	switch current := collect.(type) {
	case PendingCollect:
		fields["hint_code"] = string(current.HintCode)
		if current.HintCode.ExpectsQRCode() {
			result.QRCode = GenerateQRCode(txn.OrderResponse, e.clock())
		}
	case FailedCollect:
		fields["hint_code"] = string(current.HintCode)
	case CompleteCollect:
		action, ok := e.registry.Get(txn.Operation, txn.ActionName)
		if !ok {
			err = &ActionNotFoundError{Operation: txn.Operation, Name: txn.ActionName}
			e.logError(ctx, "completed order references an unregistered action", map[string]any{
				"operation_kind": string(txn.Operation),
				"action_name":    txn.ActionName,
				"order_ref":      current.OrderRef,
			})
			return result, err
		}
		finalized, finalizeErr := action.Finalize(ctx, current, request, copyAnyMap(txn.Context))
		if finalizeErr != nil {
			err = finalizeErr
			return result, err
		}
		result.FinalizeResult = finalized
	}
	return result, nil
}

// Cancel cancels the order behind id. An absent transaction is a no-op so
// repeated cancels are harmless.
func (e *Engine) Cancel(ctx context.Context, id TransactionID) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() { e.observeOperation(ctx, startedAt, "cancel", err, fields) }()

	if err = e.ready(); err != nil {
		return err
	}
	txn, err := e.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			fields["noop"] = true
			return nil
		}
		return err
	}
	fields["operation_kind"] = string(txn.Operation)
	fields["action_name"] = txn.ActionName

	res, err := e.client.Cancel(ctx, txn.OrderResponse.OrderRef)
	if err != nil {
		return asTransportError("cancel", err)
	}
	if !res.Success() {
		return MapProviderError(res)
	}
	return e.store.Delete(ctx, id)
}

// Lookup returns the stored transaction for id without contacting the
// provider.
func (e *Engine) Lookup(ctx context.Context, id TransactionID) (Transaction, error) {
	if err := e.ready(); err != nil {
		return Transaction{}, err
	}
	return e.load(ctx, id)
}

func (e *Engine) load(ctx context.Context, id TransactionID) (Transaction, error) {
	if strings.TrimSpace(string(id)) == "" {
		return Transaction{}, ErrTransactionExpired
	}
	txn, err := e.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return Transaction{}, ErrTransactionExpired
		}
		return Transaction{}, err
	}
	return txn, nil
}

// release removes a transaction that reached a terminal state. With an
// atomic consumer, losing the race to a concurrent check means another
// caller owns finalization.
func (e *Engine) release(ctx context.Context, id TransactionID) error {
	if consumer, ok := e.store.(TransactionConsumer); ok {
		if _, err := consumer.Consume(ctx, id); err != nil {
			if errors.Is(err, ErrTransactionNotFound) {
				e.logWarn(ctx, "transaction consumed by a concurrent check", map[string]any{"transaction_id": string(id)})
				return ErrTransactionExpired
			}
			return err
		}
		return nil
	}
	return e.store.Delete(ctx, id)
}

func asTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return err
	}
	// Clients that classify their own failures (bad base url, encode errors,
	// oversized bodies) report them as envelopes; only unclassified errors
	// are treated as the provider being unreachable.
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	var configErr *ConfigurationError
	if errors.As(err, &configErr) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
