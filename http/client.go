// Package http implements the paylink backend client over its JSON REST
// surface. The backend is an external collaborator: this package only
// shapes requests and maps responses, it holds no payment logic.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	paylink "github.com/paylink-dev/paylink-go"
	"github.com/paylink-dev/paylink-go/logger"
	"github.com/paylink-dev/paylink-go/metrics"
	"github.com/paylink-dev/paylink-go/retry"
	"github.com/paylink-dev/paylink-go/validation"
)

// Client is the REST implementation of paylink.BackendClient.
type Client struct {
	baseURL   string
	projectID string
	client    *http.Client
	timeout   time.Duration
	retryCfg  retry.Config
	log       logger.Logger
	rec       metrics.Recorder
}

var _ paylink.BackendClient = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.client = httpClient
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetryConfig overrides the retry policy for idempotent requests.
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics sets the metrics recorder for request latencies.
func WithMetrics(r metrics.Recorder) ClientOption {
	return func(c *Client) {
		c.rec = r
	}
}

// NewClient creates a backend client for the given base URL and project.
func NewClient(baseURL, projectID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   baseURL,
		projectID: projectID,
		client:    &http.Client{},
		timeout:   15 * time.Second,
		retryCfg:  retry.DefaultConfig,
		log:       logger.NoopLogger{},
		rec:       metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTool implements paylink.BackendClient. Transient failures are
// retried; the lookup is idempotent.
func (c *Client) FetchTool(ctx context.Context, toolID string) (*paylink.ToolMetadata, error) {
	return retry.WithRetry(ctx, c.retryCfg, fetchRetryable, func() (*paylink.ToolMetadata, error) {
		var tool paylink.ToolMetadata
		err := c.do(ctx, http.MethodGet, "/payment-tools/public/"+toolID, nil, nil, &tool, "fetch tool")
		if err != nil {
			return nil, err
		}
		if err := validation.ValidateTool(&tool); err != nil {
			return nil, &paylink.FetchError{Op: "fetch tool", Err: err}
		}
		return &tool, nil
	})
}

// CreateIntent implements paylink.BackendClient. Intent creation is not
// idempotent and is never retried.
func (c *Client) CreateIntent(ctx context.Context, toolID, token string) (*paylink.PaymentIntent, error) {
	body := map[string]string{"selectedToken": token}
	var intent paylink.PaymentIntent
	err := c.do(ctx, http.MethodPost, "/payment-tools/public/"+toolID+"/create-intent", nil, body, &intent, "create intent")
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateIntent(&intent); err != nil {
		return nil, &paylink.FetchError{Op: "create intent", Err: err}
	}
	return &intent, nil
}

// SubmitPayment implements paylink.BackendClient. The request carries a
// client-generated X-Request-Id so the backend can deduplicate a
// double-submitted broadcast.
func (c *Client) SubmitPayment(ctx context.Context, payment paylink.SubmittedPayment) (*paylink.SubmitResult, error) {
	headers := map[string]string{
		"X-Tool-Id":    payment.ToolID,
		"X-Request-Id": uuid.NewString(),
	}
	var result paylink.SubmitResult
	err := c.do(ctx, http.MethodPost, "/payments", headers, payment, &result, "submit payment")
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// PaymentStatus implements paylink.BackendClient. Status lookups are
// idempotent and retried on transient failures.
func (c *Client) PaymentStatus(ctx context.Context, toolID, paymentID string) (*paylink.PaymentStatusRecord, error) {
	headers := map[string]string{"X-Tool-Id": toolID}
	return retry.WithRetry(ctx, c.retryCfg, fetchRetryable, func() (*paylink.PaymentStatusRecord, error) {
		var record paylink.PaymentStatusRecord
		err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, headers, nil, &record, "fetch payment status")
		if err != nil {
			return nil, err
		}
		return &record, nil
	})
}

func fetchRetryable(err error) bool {
	var fe *paylink.FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}

// errorBody is the backend's error response shape.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, in, out any, op string) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.projectID != "" {
		req.Header.Set("X-Project-Id", c.projectID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", map[string]any{"op": op, "error": err.Error()})
		return &paylink.FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.rec.ObserveLatency("backend_request", time.Since(started), nil)
	c.log.Debug("backend request", map[string]any{
		"op":       op,
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &eb)
		msg := eb.Error
		if msg == "" {
			msg = eb.Message
		}
		return &paylink.FetchError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &paylink.FetchError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
