package core

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"
)

type stubProviderClient struct {
	mu          sync.Mutex
	authBodies  []AuthRequest
	signBodies  []SignRequest
	collectRefs []string
	cancelRefs  []string

	authFn    func(context.Context, AuthRequest) (TransportResponse, error)
	signFn    func(context.Context, SignRequest) (TransportResponse, error)
	collectFn func(context.Context, string) (TransportResponse, error)
	cancelFn  func(context.Context, string) (TransportResponse, error)
}

func (c *stubProviderClient) Auth(ctx context.Context, req AuthRequest) (TransportResponse, error) {
	c.mu.Lock()
	c.authBodies = append(c.authBodies, req)
	c.mu.Unlock()
	if c.authFn != nil {
		return c.authFn(ctx, req)
	}
	return jsonResponse(http.StatusOK, orderBody("order-1")), nil
}

func (c *stubProviderClient) Sign(ctx context.Context, req SignRequest) (TransportResponse, error) {
	c.mu.Lock()
	c.signBodies = append(c.signBodies, req)
	c.mu.Unlock()
	if c.signFn != nil {
		return c.signFn(ctx, req)
	}
	return jsonResponse(http.StatusOK, orderBody("order-sign")), nil
}

func (c *stubProviderClient) Collect(ctx context.Context, orderRef string) (TransportResponse, error) {
	c.mu.Lock()
	c.collectRefs = append(c.collectRefs, orderRef)
	c.mu.Unlock()
	if c.collectFn != nil {
		return c.collectFn(ctx, orderRef)
	}
	return jsonResponse(http.StatusOK, pendingBody(orderRef, "outstandingTransaction")), nil
}

func (c *stubProviderClient) Cancel(ctx context.Context, orderRef string) (TransportResponse, error) {
	c.mu.Lock()
	c.cancelRefs = append(c.cancelRefs, orderRef)
	c.mu.Unlock()
	if c.cancelFn != nil {
		return c.cancelFn(ctx, orderRef)
	}
	return jsonResponse(http.StatusOK, map[string]any{}), nil
}

func (c *stubProviderClient) collectCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.collectRefs)
}

func (c *stubProviderClient) cancelCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cancelRefs)
}

type recordingAction struct {
	name         string
	userData     UserAuthData
	txContext    map[string]any
	initErr      error
	finalizeErr  error
	finalizeOut  any
	returnURL    string
	mu           sync.Mutex
	finalizeHits int
	lastComplete CompleteCollect
	lastContext  map[string]any
}

func (a *recordingAction) Name() string { return a.name }

func (a *recordingAction) InitializeAuth(_ context.Context, _ any, orderContext map[string]any) (UserAuthData, map[string]any, error) {
	if a.initErr != nil {
		return UserAuthData{}, nil, a.initErr
	}
	if a.txContext != nil {
		return a.userData, a.txContext, nil
	}
	return a.userData, orderContext, nil
}

func (a *recordingAction) Finalize(_ context.Context, result CompleteCollect, _ any, txContext map[string]any) (any, error) {
	a.mu.Lock()
	a.finalizeHits++
	a.lastComplete = result
	a.lastContext = txContext
	a.mu.Unlock()
	if a.finalizeErr != nil {
		return nil, a.finalizeErr
	}
	return a.finalizeOut, nil
}

func (a *recordingAction) hits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finalizeHits
}

type redirectAction struct {
	recordingAction
}

func (a *redirectAction) BuildReturnURL(context.Context, any) (string, error) {
	return a.returnURL, nil
}

type signingAction struct {
	name string
	data UserSignData
}

func (a signingAction) Name() string { return a.name }

func (a signingAction) InitializeSign(context.Context, any, map[string]any) (UserSignData, map[string]any, error) {
	return a.data, map[string]any{"document": "contract-1"}, nil
}

func (a signingAction) Finalize(context.Context, CompleteCollect, any, map[string]any) (any, error) {
	return "signed", nil
}

type dualAction struct {
	recordingAction
}

func (a *dualAction) InitializeSign(context.Context, any, map[string]any) (UserSignData, map[string]any, error) {
	return UserSignData{Visible: "sign me"}, nil, nil
}

func jsonResponse(status int, payload any) TransportResponse {
	body, _ := json.Marshal(payload)
	return TransportResponse{StatusCode: status, Headers: map[string]string{"Content-Type": "application/json"}, Body: body}
}

func orderBody(orderRef string) map[string]any {
	return map[string]any{
		"orderRef":       orderRef,
		"autoStartToken": "auto-" + orderRef,
		"qrStartToken":   "qr-token-" + orderRef,
		"qrStartSecret":  "qr-secret-" + orderRef,
	}
}

func pendingBody(orderRef, hint string) map[string]any {
	return map[string]any{"orderRef": orderRef, "status": "pending", "hintCode": hint}
}

func failedBody(orderRef, hint string) map[string]any {
	return map[string]any{"orderRef": orderRef, "status": "failed", "hintCode": hint}
}

func completeBody(orderRef string) map[string]any {
	return map[string]any{
		"orderRef": orderRef,
		"status":   "complete",
		"completionData": map[string]any{
			"user": map[string]any{
				"personalNumber": "190000000000",
				"name":           "Karl Karlsson",
				"givenName":      "Karl",
				"surname":        "Karlsson",
			},
			"device": map[string]any{
				"ipAddress": "192.168.0.1",
				"uhi":       "OZvYM9VvyiAmG7NA5jU5zqGcVpo=",
			},
			"bankIdIssueDate": "2020-02-01",
			"stepUp":          map[string]any{"mrtd": true},
			"signature":       "<base64-encoded data>",
			"ocspResponse":    "<base64-encoded data>",
		},
	}
}

func newTestEngine(t *testing.T, client ProviderClient, store TransactionStore, actions ...Action) *Engine {
	t.Helper()
	engine, err := NewEngine(Config{PollInterval: time.Millisecond},
		WithProviderClient(client),
		WithTransactionStore(store),
		WithActions(actions...),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func seedTransaction(t *testing.T, store TransactionStore, operation Operation, actionName string) TransactionID {
	t.Helper()
	id, err := store.Save(context.Background(), Transaction{
		OrderResponse: OrderResponse{
			OrderRef:       "order-1",
			AutoStartToken: "auto-order-1",
			QRStartToken:   "qr-token",
			QRStartSecret:  "qr-secret",
			StartTime:      time.Now().UTC(),
		},
		Operation:  operation,
		ActionName: actionName,
		Context:    map[string]any{"next": "/profile"},
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return id
}
