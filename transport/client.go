package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-bankid/core"
)

const (
	PathPrefix = "/rp/v6.0/"

	OperationAuth    = "auth"
	OperationSign    = "sign"
	OperationCollect = "collect"
	OperationCancel  = "cancel"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 1 << 20 // 1 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client speaks the BankID RP API v6.0. Non-2xx responses are returned to
// the caller untouched; only failures to reach the provider become errors.
type Client struct {
	BaseURL              string
	HTTP                 HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewClient(baseURL string, client HTTPDoer) *Client {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{
		BaseURL:              strings.TrimSpace(baseURL),
		HTTP:                 client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

// NewClientFromConfig builds a client for cfg.APIBaseURL, authenticating
// with the configured client certificate when one is set.
func NewClientFromConfig(cfg core.Config) (*Client, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	var httpClient HTTPDoer = &http.Client{Timeout: timeout}
	if cfg.TLS.Enabled() {
		mtls, err := NewMTLSHTTPClient(cfg.TLS, timeout)
		if err != nil {
			return nil, err
		}
		httpClient = mtls
	}
	return NewClient(cfg.APIBaseURL, httpClient), nil
}

func (c *Client) Auth(ctx context.Context, req core.AuthRequest) (core.TransportResponse, error) {
	return c.post(ctx, OperationAuth, req)
}

func (c *Client) Sign(ctx context.Context, req core.SignRequest) (core.TransportResponse, error) {
	return c.post(ctx, OperationSign, req)
}

func (c *Client) Collect(ctx context.Context, orderRef string) (core.TransportResponse, error) {
	return c.post(ctx, OperationCollect, orderRefBody{OrderRef: orderRef})
}

func (c *Client) Cancel(ctx context.Context, orderRef string) (core.TransportResponse, error) {
	return c.post(ctx, OperationCancel, orderRefBody{OrderRef: orderRef})
}

type orderRefBody struct {
	OrderRef string `json:"orderRef"`
}

func (c *Client) endpoint(operation string) (string, error) {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return "", transportError(
			"transport: base url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"operation": operation},
		)
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid base url",
			http.StatusBadRequest,
			map[string]any{"operation": operation, "url": base},
		)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + PathPrefix + operation
	return parsed.String(), nil
}

func (c *Client) post(ctx context.Context, operation string, payload any) (core.TransportResponse, error) {
	if c == nil || c.HTTP == nil {
		return core.TransportResponse{}, transportError(
			"transport: client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"operation": operation},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint, err := c.endpoint(operation)
	if err != nil {
		return core.TransportResponse{}, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: encode request body",
			http.StatusBadRequest,
			map[string]any{"operation": operation},
		)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"operation": operation, "url": endpoint},
		)
	}
	for key, value := range c.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	httpRes, err := c.HTTP.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, networkError(operation, err, "transport: execute http request",
			map[string]any{"operation": operation, "url": endpoint})
	}
	defer httpRes.Body.Close()

	maxBodyBytes := c.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultResponseBodyLimit
	}
	resBody, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.TransportResponse{}, networkError(operation, err, "transport: read response body",
			map[string]any{"operation": operation, "status_code": httpRes.StatusCode})
	}
	if int64(len(resBody)) > maxBodyBytes {
		return core.TransportResponse{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"operation":        operation,
				"status_code":      httpRes.StatusCode,
				"response_limit_b": maxBodyBytes,
			},
		)
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       resBody,
	}, nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.ProviderClient = (*Client)(nil)
