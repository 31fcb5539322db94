package runtime

import (
	"context"
	"encoding/json"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// aiHistoryWindow caps the rolling completion history kept in the session.
const aiHistoryWindow = 10

// execCompletion drives ia_rag and ia_agent nodes. Both keep a rolling
// conversation window in a reserved session variable and stay on the node
// between turns; agent completions may additionally decide to end or transfer
// the conversation themselves.
func (x *Executor) execCompletion(ctx context.Context, node *domain.Node, sess *domain.Session, ev *domain.InboundEvent) *domain.Outcome {
	var cfg completionConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid completion config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	if x.completer == nil {
		x.logger.Warn("completion service not configured, skipping node", "node_id", node.ID)
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelWarn,
			"completion service not configured", map[string]any{"node_id": node.ID}))
	}

	if ev == nil || ev.IsResume() {
		out := domain.Stay(node.ID)
		if cfg.Greeting != "" {
			out.Emit(domain.TextDirective(x.interpolate(ctx, cfg.Greeting, sess, entityCache{})))
		}
		return out
	}

	input := ev.DisplayText()
	history := loadHistory(sess)

	req := ports.CompletionRequest{
		System:  x.interpolate(ctx, cfg.System, sess, entityCache{}),
		Input:   input,
		History: history,
		Agent:   node.Action.Kind == domain.ActionAIAgent,
	}
	if ev.Raw != nil {
		req.Metadata = ev.Raw
	}

	res, err := x.completer.Complete(ctx, req)
	if err != nil {
		x.logger.Warn("completion failed", "node_id", node.ID, "err", err)
		target := cfg.ErrorTarget
		if target == "" {
			target = node.DefaultChild()
		}
		out := domain.Advance(target)
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"completion failed: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	history = append(history,
		ports.CompletionTurn{Role: "user", Content: input},
		ports.CompletionTurn{Role: "assistant", Content: res.Text},
	)
	if overflow := len(history) - aiHistoryWindow; overflow > 0 {
		history = history[overflow:]
	}

	out := &domain.Outcome{}
	if res.Text != "" {
		out.Emit(domain.TextDirective(res.Text))
	}
	if data, err := json.Marshal(history); err == nil {
		out.SetVariable(VarAIHistory, string(data))
	}

	switch {
	case res.Transfer != nil:
		out.Transfer = &domain.TransferSignal{
			Queue:   res.Transfer.Queue,
			Advisor: res.Transfer.Advisor,
			FlowID:  res.Transfer.FlowID,
		}
		out.NextNodeID = node.DefaultChild()
		out.Emit(domain.SystemDirective(domain.LevelInfo, "agent requested transfer",
			map[string]any{"node_id": node.ID, "queue": res.Transfer.Queue}))
	case res.End:
		out.Ended = true
		out.Emit(domain.SystemDirective(domain.LevelInfo, "agent ended conversation",
			map[string]any{"node_id": node.ID}))
	default:
		// Multi-turn: stay on the node for the next reply.
		out.NextNodeID = node.ID
		out.AwaitingInput = true
	}
	return out
}

func loadHistory(sess *domain.Session) []ports.CompletionTurn {
	raw, ok := sess.Variable(VarAIHistory)
	if !ok || raw == "" {
		return nil
	}
	var history []ports.CompletionTurn
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil
	}
	return history
}
