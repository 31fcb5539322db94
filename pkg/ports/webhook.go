package ports

import (
	"context"
	"time"
)

// DefaultWebhookTimeout applies when a webhook node does not configure one.
const DefaultWebhookTimeout = 10 * time.Second

// WebhookRequest is one outbound HTTP call requested by a webhook_out node.
// URL, headers and body arrive fully interpolated.
type WebhookRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// WebhookResult reports the call result. A timeout is reported as OK == false
// with Status 408 rather than an error, so nodes can route it like any other
// failure.
type WebhookResult struct {
	OK       bool
	Status   int
	Response string
}

// WebhookDispatcher performs outbound HTTP calls for webhook nodes.
type WebhookDispatcher interface {
	Call(ctx context.Context, req WebhookRequest) (WebhookResult, error)
}
