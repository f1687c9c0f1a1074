package sqlstore_test

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-bankid/core"
)

type scriptedClient struct {
	collectStatus string
}

func (c *scriptedClient) Auth(context.Context, core.AuthRequest) (core.TransportResponse, error) {
	return respond(map[string]any{
		"orderRef":       "order-1",
		"autoStartToken": "auto-1",
		"qrStartToken":   "qr-token",
		"qrStartSecret":  "qr-secret",
	}), nil
}

func (c *scriptedClient) Sign(ctx context.Context, _ core.SignRequest) (core.TransportResponse, error) {
	return c.Auth(ctx, core.AuthRequest{})
}

func (c *scriptedClient) Collect(_ context.Context, orderRef string) (core.TransportResponse, error) {
	if c.collectStatus != "complete" {
		return respond(map[string]any{"orderRef": orderRef, "status": "pending", "hintCode": "outstandingTransaction"}), nil
	}
	return respond(map[string]any{
		"orderRef": orderRef,
		"status":   "complete",
		"completionData": map[string]any{
			"user":         map[string]any{"personalNumber": "190000000000", "name": "Karl Karlsson"},
			"device":       map[string]any{"ipAddress": "192.168.0.1"},
			"signature":    "sig",
			"ocspResponse": "ocsp",
		},
	}), nil
}

func (c *scriptedClient) Cancel(context.Context, string) (core.TransportResponse, error) {
	return respond(map[string]any{}), nil
}

func respond(payload map[string]any) core.TransportResponse {
	body, _ := json.Marshal(payload)
	return core.TransportResponse{StatusCode: http.StatusOK, Body: body}
}
