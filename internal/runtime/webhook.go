package runtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// execWebhook issues one outbound HTTP call through the dispatcher
// collaborator and routes on the result. URL, headers and body are
// interpolated against the session variables first.
func (x *Executor) execWebhook(ctx context.Context, node *domain.Node, sess *domain.Session) *domain.Outcome {
	var cfg webhookConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid webhook config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	successTarget := cfg.SuccessTarget
	if successTarget == "" {
		successTarget = node.DefaultChild()
	}
	errorTarget := cfg.ErrorTarget
	if errorTarget == "" {
		errorTarget = successTarget
	}

	if cfg.URL == "" {
		out := domain.Advance(errorTarget)
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"webhook node has no url configured", map[string]any{"node_id": node.ID}))
	}

	if x.webhooks == nil {
		x.logger.Warn("webhook dispatcher not configured, skipping call", "node_id", node.ID)
		out := domain.Advance(successTarget)
		return out.Emit(domain.SystemDirective(domain.LevelWarn,
			"webhook dispatcher not configured, call skipped", map[string]any{"node_id": node.ID, "url": cfg.URL}))
	}

	cache := entityCache{}
	req := ports.WebhookRequest{
		URL:     x.interpolate(ctx, cfg.URL, sess, cache),
		Method:  strings.ToUpper(cfg.Method),
		Timeout: ports.DefaultWebhookTimeout,
	}
	if req.Method == "" {
		req.Method = "POST"
	}
	if cfg.TimeoutMs > 0 {
		req.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	if len(cfg.Headers) > 0 {
		req.Headers = make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			req.Headers[k] = x.interpolate(ctx, v, sess, cache)
		}
	}
	req.Body = x.webhookBody(ctx, cfg.Body, sess, cache)

	result, err := x.webhooks.Call(ctx, req)
	if err != nil {
		x.logger.Warn("webhook call failed", "node_id", node.ID, "url", req.URL, "err", err)
		out := domain.Advance(errorTarget)
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"webhook call failed: "+err.Error(), map[string]any{"node_id": node.ID, "url": req.URL}))
	}

	meta := map[string]any{"node_id": node.ID, "url": req.URL, "status": result.Status, "response": result.Response}
	if !result.OK {
		out := domain.Advance(errorTarget)
		return out.Emit(domain.SystemDirective(domain.LevelError, "webhook returned non-success status", meta))
	}
	out := domain.Advance(successTarget)
	return out.Emit(domain.SystemDirective(domain.LevelInfo, "webhook ok", meta))
}

// webhookBody renders the configured string-or-JSON body with interpolation.
func (x *Executor) webhookBody(ctx context.Context, body any, sess *domain.Session, cache entityCache) []byte {
	switch b := body.(type) {
	case nil:
		return nil
	case string:
		if b == "" {
			return nil
		}
		return []byte(x.interpolate(ctx, b, sess, cache))
	default:
		rendered := x.interpolateValue(ctx, b, sess, cache)
		data, err := json.Marshal(rendered)
		if err != nil {
			x.logger.Warn("webhook body marshal failed", "err", err)
			return nil
		}
		return data
	}
}
