package runtime

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/schedule"
)

// execScheduler routes on the attention schedule. It is always silent:
// downstream nodes own any user-visible messaging. In "bitrix" mode the node
// passes through without branching (the external system decides).
func (x *Executor) execScheduler(ctx context.Context, node *domain.Node) *domain.Outcome {
	var cfg schedulerConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid scheduler config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	if cfg.Mode == "bitrix" {
		return domain.Advance(node.DefaultChild())
	}

	if cfg.Schedule.Timezone == "" || len(cfg.Schedule.Windows) == 0 {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"scheduler node has no schedule configured", map[string]any{"node_id": node.ID}))
	}

	target := cfg.OutWindowTarget
	if schedule.InWindow(x.now(), cfg.Schedule) {
		target = cfg.InWindowTarget
	}
	if target == "" {
		target = node.DefaultChild()
	}
	return domain.Advance(target)
}
