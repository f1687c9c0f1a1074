package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorInvalidInput        = "BANKID_INVALID_INPUT"
	ErrorInitFailed          = "BANKID_INIT_FAILED"
	ErrorFinalizeFailed      = "BANKID_FINALIZE_FAILED"
	ErrorAlreadyInProgress   = "BANKID_ALREADY_IN_PROGRESS"
	ErrorProviderUnavailable = "BANKID_PROVIDER_UNAVAILABLE"
	ErrorProviderUnreachable = "BANKID_PROVIDER_UNREACHABLE"
	ErrorTransactionExpired  = "BANKID_TRANSACTION_EXPIRED"
	ErrorActionNotFound      = "BANKID_ACTION_NOT_FOUND"
	ErrorProtocol            = "BANKID_PROTOCOL_ERROR"
	ErrorConfiguration       = "BANKID_CONFIGURATION_ERROR"
	ErrorInternal            = "BANKID_INTERNAL_ERROR"
)

const (
	defaultInitFailedDetail     = "Initialisation failed"
	defaultFinalizeFailedDetail = "Completion failed"
	defaultRetryAfter           = time.Second
)

var (
	ErrInvalidInput        = errors.New("core: invalid input")
	ErrTransactionExpired  = errors.New("core: transaction expired")
	ErrTransactionNotFound = errors.New("core: transaction not found")
	ErrProvider            = errors.New("core: provider error")
)

type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	if e == nil {
		return ErrInvalidInput.Error()
	}
	if e.Field == "" {
		return "core: invalid input: " + e.Message
	}
	return fmt.Sprintf("core: invalid %s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InitFailed is returned by an action's Initialize to abort an order before
// the provider is contacted. Status is an optional HTTP status hint.
type InitFailed struct {
	Detail string
	Status int
}

func NewInitFailed(detail string, status int) *InitFailed {
	return &InitFailed{Detail: detail, Status: status}
}

func (e *InitFailed) Error() string {
	if e == nil || strings.TrimSpace(e.Detail) == "" {
		return defaultInitFailedDetail
	}
	return e.Detail
}

// FinalizeFailed is returned by an action's Finalize. The transaction has
// already been removed when it surfaces; the work is not resumable.
type FinalizeFailed struct {
	Detail string
	Status int
}

func NewFinalizeFailed(detail string, status int) *FinalizeFailed {
	return &FinalizeFailed{Detail: detail, Status: status}
}

func (e *FinalizeFailed) Error() string {
	if e == nil || strings.TrimSpace(e.Detail) == "" {
		return defaultFinalizeFailedDetail
	}
	return e.Detail
}

type ProviderErrorKind string

const (
	ProviderAlreadyInProgress    ProviderErrorKind = "alreadyInProgress"
	ProviderInvalidParameters    ProviderErrorKind = "invalidParameters"
	ProviderUnauthorized         ProviderErrorKind = "unauthorized"
	ProviderNotFound             ProviderErrorKind = "notFound"
	ProviderMethodNotAllowed     ProviderErrorKind = "methodNotAllowed"
	ProviderRequestTimeout       ProviderErrorKind = "requestTimeout"
	ProviderUnsupportedMediaType ProviderErrorKind = "unsupportedMediaType"
	ProviderInternalServerError  ProviderErrorKind = "internalError"
	ProviderServiceUnavailable   ProviderErrorKind = "maintenance"
	ProviderUnknownError         ProviderErrorKind = "unknownError"
)

var (
	ErrAlreadyInProgress    = errors.New("core: order already in progress")
	ErrInvalidParameters    = errors.New("core: invalid parameters")
	ErrUnauthorized         = errors.New("core: unauthorized")
	ErrNotFound             = errors.New("core: not found")
	ErrMethodNotAllowed     = errors.New("core: method not allowed")
	ErrRequestTimeout       = errors.New("core: request timeout")
	ErrUnsupportedMediaType = errors.New("core: unsupported media type")
	ErrInternalServerError  = errors.New("core: provider internal error")
	ErrServiceUnavailable   = errors.New("core: provider under maintenance")
	ErrUnknownError         = errors.New("core: unknown provider error")
)

var providerKindErrors = map[ProviderErrorKind]error{
	ProviderAlreadyInProgress:    ErrAlreadyInProgress,
	ProviderInvalidParameters:    ErrInvalidParameters,
	ProviderUnauthorized:         ErrUnauthorized,
	ProviderNotFound:             ErrNotFound,
	ProviderMethodNotAllowed:     ErrMethodNotAllowed,
	ProviderRequestTimeout:       ErrRequestTimeout,
	ProviderUnsupportedMediaType: ErrUnsupportedMediaType,
	ProviderInternalServerError:  ErrInternalServerError,
	ProviderServiceUnavailable:   ErrServiceUnavailable,
	ProviderUnknownError:         ErrUnknownError,
}

type providerErrorKey struct {
	status int
	code   string
}

var providerErrorTable = map[providerErrorKey]ProviderErrorKind{
	{http.StatusBadRequest, "alreadyInProgress"}:              ProviderAlreadyInProgress,
	{http.StatusBadRequest, "invalidParameters"}:              ProviderInvalidParameters,
	{http.StatusUnauthorized, "unauthorized"}:                 ProviderUnauthorized,
	{http.StatusForbidden, "unauthorized"}:                    ProviderUnauthorized,
	{http.StatusNotFound, "notFound"}:                         ProviderNotFound,
	{http.StatusMethodNotAllowed, "methodNotAllowed"}:         ProviderMethodNotAllowed,
	{http.StatusRequestTimeout, "requestTimeout"}:             ProviderRequestTimeout,
	{http.StatusUnsupportedMediaType, "unsupportedMediaType"}: ProviderUnsupportedMediaType,
	{http.StatusInternalServerError, "internalError"}:         ProviderInternalServerError,
	{http.StatusServiceUnavailable, "maintenance"}:            ProviderServiceUnavailable,
}

// ProviderError is a non-2xx response from the provider. Details holds the
// decoded error payload and is nil when the body could not be parsed.
type ProviderError struct {
	Kind       ProviderErrorKind
	StatusCode int
	ErrorCode  string
	Details    map[string]any
	Body       []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ErrProvider.Error()
	}
	return fmt.Sprintf("core: provider error %s (status %d, error code %q)", e.Kind, e.StatusCode, e.ErrorCode)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	if kindErr, ok := providerKindErrors[e.Kind]; ok {
		return kindErr
	}
	return ErrUnknownError
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// ClassifyProviderError resolves the kind for an exact (status, errorCode)
// pair. A known code under an unexpected status is ProviderUnknownError.
func ClassifyProviderError(status int, errorCode string) ProviderErrorKind {
	if kind, ok := providerErrorTable[providerErrorKey{status: status, code: errorCode}]; ok {
		return kind
	}
	return ProviderUnknownError
}

// TransportError reports that the provider could not be reached, so there is
// no response to inspect.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "core: transport error"
	}
	if e.Err == nil {
		return fmt.Sprintf("core: transport error during %s", e.Op)
	}
	return fmt.Sprintf("core: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type ActionNotFoundError struct {
	Operation Operation
	Name      string
}

func (e *ActionNotFoundError) Error() string {
	if e == nil {
		return "core: action not found"
	}
	return fmt.Sprintf("core: no %s action registered under the name %q", e.Operation, e.Name)
}

// DecodeError signals protocol drift with the provider and is not recoverable.
type DecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "core: decode error"
	}
	msg := "core: decode " + e.Field + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "core: configuration error"
	}
	if e.Message == "" {
		return fmt.Sprintf("core: %s is not configured", e.Field)
	}
	return fmt.Sprintf("core: %s: %s", e.Field, e.Message)
}

// NewErrorMapper returns an ErrorMapper that renders engine errors as
// go-errors envelopes. Provider and transport faults carry retryAfter in the
// retry_after_seconds metadata.
func NewErrorMapper(retryAfter time.Duration) ErrorMapper {
	if retryAfter < 0 {
		retryAfter = defaultRetryAfter
	}
	return func(err error) *goerrors.Error {
		return mapEngineError(err, retryAfter)
	}
}

// MapError maps err with the default one second retry hint.
func MapError(err error) *goerrors.Error {
	return mapEngineError(err, defaultRetryAfter)
}

func mapEngineError(err error, retryAfter time.Duration) *goerrors.Error {
	if err == nil {
		return nil
	}

	retryMetadata := map[string]any{"retry_after_seconds": int(retryAfter / time.Second)}

	var (
		invalidErr   *InvalidInputError
		initErr      *InitFailed
		finalizeErr  *FinalizeFailed
		providerErr  *ProviderError
		transportErr *TransportError
		actionErr    *ActionNotFoundError
		decodeErr    *DecodeError
		configErr    *ConfigurationError
	)
	switch {
	case errors.As(err, &invalidErr):
		return goerrors.NewValidation(invalidErr.Error(), goerrors.FieldError{
			Field:   invalidErr.Field,
			Message: invalidErr.Message,
		}).WithCode(http.StatusBadRequest).WithTextCode(ErrorInvalidInput)
	case errors.As(err, &initErr):
		return newEngineError(initErr.Error(), goerrors.CategoryOperation, statusOr(initErr.Status, http.StatusBadRequest), ErrorInitFailed, nil)
	case errors.As(err, &finalizeErr):
		return newEngineError(finalizeErr.Error(), goerrors.CategoryOperation, statusOr(finalizeErr.Status, http.StatusBadRequest), ErrorFinalizeFailed, nil)
	case errors.As(err, &providerErr):
		metadata := map[string]any{
			"status_code": providerErr.StatusCode,
			"error_code":  providerErr.ErrorCode,
		}
		if providerErr.Kind == ProviderAlreadyInProgress {
			return newEngineError(err.Error(), goerrors.CategoryConflict, http.StatusConflict, ErrorAlreadyInProgress, metadata)
		}
		for key, value := range retryMetadata {
			metadata[key] = value
		}
		return newEngineError("Service unavailable", goerrors.CategoryExternal, http.StatusServiceUnavailable, ErrorProviderUnavailable, metadata)
	case errors.As(err, &transportErr):
		return newEngineError("Service unavailable", goerrors.CategoryExternal, http.StatusServiceUnavailable, ErrorProviderUnreachable, retryMetadata)
	case errors.Is(err, ErrTransactionExpired), errors.Is(err, ErrTransactionNotFound):
		return newEngineError("Transaction expired", goerrors.CategoryNotFound, http.StatusUnprocessableEntity, ErrorTransactionExpired, nil)
	case errors.As(err, &actionErr):
		return newEngineError(err.Error(), goerrors.CategoryInternal, http.StatusInternalServerError, ErrorActionNotFound, map[string]any{
			"operation":   string(actionErr.Operation),
			"action_name": actionErr.Name,
		})
	case errors.As(err, &decodeErr):
		return newEngineError(err.Error(), goerrors.CategoryExternal, http.StatusBadGateway, ErrorProtocol, nil)
	case errors.As(err, &configErr):
		return newEngineError(err.Error(), goerrors.CategoryInternal, http.StatusInternalServerError, ErrorConfiguration, map[string]any{"field": configErr.Field})
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newEngineError(message string, category goerrors.Category, code int, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = categoryHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorInvalidInput
	case goerrors.CategoryNotFound:
		return ErrorTransactionExpired
	case goerrors.CategoryConflict:
		return ErrorAlreadyInProgress
	case goerrors.CategoryExternal:
		return ErrorProviderUnavailable
	default:
		return ErrorInternal
	}
}

func categoryHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func statusOr(status, fallback int) int {
	if status > 0 {
		return status
	}
	return fallback
}
