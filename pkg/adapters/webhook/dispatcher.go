// Package webhook implements the outbound HTTP dispatcher for webhook nodes.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/ports"
)

// maxResponseBytes bounds how much of a webhook response is retained for
// interpolation and logging.
const maxResponseBytes = 64 * 1024

// Dispatcher implements ports.WebhookDispatcher over net/http.
type Dispatcher struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher. Per-call timeouts come from the request;
// the client itself carries no timeout.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: &http.Client{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ ports.WebhookDispatcher = (*Dispatcher)(nil)

// Call performs the outbound request. Timeouts and transport failures are
// reported as a failed result, not an error, so flows can route them; only a
// malformed request is an error.
func (d *Dispatcher) Call(ctx context.Context, req ports.WebhookRequest) (ports.WebhookResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = ports.DefaultWebhookTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return ports.WebhookResult{}, err
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
			d.logger.Warn("webhook timed out", "url", req.URL, "timeout", timeout)
			return ports.WebhookResult{OK: false, Status: http.StatusRequestTimeout}, nil
		}
		d.logger.Warn("webhook transport failure", "url", req.URL, "err", err)
		return ports.WebhookResult{OK: false}, nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		data = nil
	}

	return ports.WebhookResult{
		OK:       resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:   resp.StatusCode,
		Response: string(data),
	}, nil
}

// backoff ladder for Retry.
var retryDelays = []time.Duration{0, 500 * time.Millisecond, 2 * time.Second}

// CallWithRetry retries transport-level failures (no status at all) up to the
// ladder above. HTTP error statuses are not retried; the flow routes those.
func (d *Dispatcher) CallWithRetry(ctx context.Context, req ports.WebhookRequest) (ports.WebhookResult, error) {
	var result ports.WebhookResult
	var err error
	for attempt, delay := range retryDelays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
		result, err = d.Call(ctx, req)
		if err != nil {
			return result, err
		}
		if result.Status != 0 {
			return result, nil
		}
		d.logger.Warn("webhook retrying", "url", req.URL, "attempt", attempt+1)
	}
	return result, nil
}
