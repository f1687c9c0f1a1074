package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-bankid/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// networkError marks err as a fault reaching the provider so the engine can
// tell it apart from a provider rejection.
func networkError(op string, source error, message string, metadata map[string]any) error {
	return &core.TransportError{
		Op:  op,
		Err: transportWrapError(source, goerrors.CategoryExternal, message, http.StatusBadGateway, metadata),
	}
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorInvalidInput
	case goerrors.CategoryExternal:
		return core.ErrorProviderUnreachable
	default:
		return core.ErrorInternal
	}
}
