package core

import "context"

// Action is the part shared by auth and sign actions. Name is the key the
// action is registered under and must stay stable while transactions for it
// are in flight.
type Action interface {
	Name() string
	Finalize(ctx context.Context, result CompleteCollect, request any, txContext map[string]any) (any, error)
}

// AuthAction produces the prompt shown to the end user for an auth order.
// The returned context is persisted with the transaction and handed back to
// Finalize.
type AuthAction interface {
	Action
	InitializeAuth(ctx context.Context, request any, orderContext map[string]any) (UserAuthData, map[string]any, error)
}

type SignAction interface {
	Action
	InitializeSign(ctx context.Context, request any, orderContext map[string]any) (UserSignData, map[string]any, error)
}

// ReturnURLBuilder is implemented by auth actions that redirect the end user
// back after the BankID app has been launched.
type ReturnURLBuilder interface {
	BuildReturnURL(ctx context.Context, request any) (string, error)
}

// AuthActionFuncs adapts plain functions to AuthAction.
type AuthActionFuncs struct {
	ActionName string
	Initialize func(ctx context.Context, request any, orderContext map[string]any) (UserAuthData, map[string]any, error)
	Complete   func(ctx context.Context, result CompleteCollect, request any, txContext map[string]any) (any, error)
}

func (a AuthActionFuncs) Name() string { return a.ActionName }

func (a AuthActionFuncs) InitializeAuth(ctx context.Context, request any, orderContext map[string]any) (UserAuthData, map[string]any, error) {
	if a.Initialize == nil {
		return UserAuthData{}, orderContext, nil
	}
	return a.Initialize(ctx, request, orderContext)
}

func (a AuthActionFuncs) Finalize(ctx context.Context, result CompleteCollect, request any, txContext map[string]any) (any, error) {
	if a.Complete == nil {
		return nil, nil
	}
	return a.Complete(ctx, result, request, txContext)
}

// SignActionFuncs adapts plain functions to SignAction. Initialize is
// required since sign orders need visible data.
type SignActionFuncs struct {
	ActionName string
	Initialize func(ctx context.Context, request any, orderContext map[string]any) (UserSignData, map[string]any, error)
	Complete   func(ctx context.Context, result CompleteCollect, request any, txContext map[string]any) (any, error)
}

func (a SignActionFuncs) Name() string { return a.ActionName }

func (a SignActionFuncs) InitializeSign(ctx context.Context, request any, orderContext map[string]any) (UserSignData, map[string]any, error) {
	if a.Initialize == nil {
		return UserSignData{}, nil, NewInitFailed("", 0)
	}
	return a.Initialize(ctx, request, orderContext)
}

func (a SignActionFuncs) Finalize(ctx context.Context, result CompleteCollect, request any, txContext map[string]any) (any, error) {
	if a.Complete == nil {
		return nil, nil
	}
	return a.Complete(ctx, result, request, txContext)
}
