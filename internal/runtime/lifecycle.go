package runtime

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// execTransfer hands the conversation to a human. The transfer variant keeps
// the conversation open (ended = false) while the human responds; the legacy
// handoff variant terminates it. The two must not be unified: ending a
// transferred conversation would discard its state while a reply is still
// expected.
func (x *Executor) execTransfer(ctx context.Context, node *domain.Node, sess *domain.Session, terminal bool) *domain.Outcome {
	var cfg transferConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid transfer config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	out := &domain.Outcome{
		NextNodeID: node.DefaultChild(),
		Ended:      terminal,
		Transfer: &domain.TransferSignal{
			Queue:   cfg.Queue,
			Advisor: cfg.Advisor,
			FlowID:  cfg.FlowID,
		},
	}
	if cfg.Text != "" {
		out.Emit(domain.TextDirective(x.interpolate(ctx, cfg.Text, sess, entityCache{})))
	}
	out.Emit(domain.SystemDirective(domain.LevelInfo, "conversation transferred", map[string]any{
		"node_id": node.ID,
		"queue":   cfg.Queue,
		"advisor": cfg.Advisor,
		"flow_id": cfg.FlowID,
	}))
	return out
}

// execEnd terminates the conversation with an optional goodbye.
func (x *Executor) execEnd(ctx context.Context, node *domain.Node, sess *domain.Session) *domain.Outcome {
	var cfg endConfig
	_ = decodeConfig(node.Action.Data, &cfg)

	out := &domain.Outcome{Ended: true}
	if cfg.Text != "" {
		out.Emit(domain.TextDirective(x.interpolate(ctx, cfg.Text, sess, entityCache{})))
	}
	out.Emit(domain.SystemDirective(domain.LevelInfo, "conversation ended", map[string]any{"node_id": node.ID}))
	return out
}
