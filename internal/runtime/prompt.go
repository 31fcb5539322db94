package runtime

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

const defaultInvalidText = "Sorry, that is not a valid option. Please try again."
const defaultRetryText = "Sorry, I did not understand that. Please try again."

// execMessage emits the configured text and advances. Never suspends.
func (x *Executor) execMessage(ctx context.Context, node *domain.Node, sess *domain.Session) *domain.Outcome {
	var cfg messageConfig
	out := domain.Advance(node.DefaultChild())
	if err := decodeConfig(node.Action.Data, &cfg); err != nil || cfg.Text == "" {
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"message node has no text configured", map[string]any{"node_id": node.ID}))
	}
	text := x.interpolate(ctx, cfg.Text, sess, entityCache{})
	return out.Emit(domain.TextDirective(text))
}

// execMenu drives menu and buttons nodes. With no inbound event it emits the
// prompt and stays on the same node awaiting input; this is what keeps the
// engine from advancing past a prompt before the contact has answered.
func (x *Executor) execMenu(ctx context.Context, node *domain.Node, sess *domain.Session, ev *domain.InboundEvent, buttons bool) *domain.Outcome {
	var cfg menuConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid menu config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	if ev == nil {
		out := domain.Stay(node.ID)
		text := x.interpolate(ctx, cfg.Text, sess, entityCache{})
		if buttons {
			return out.Emit(domain.ButtonsDirective(text, node.Options, cfg.OverflowTarget))
		}
		return out.Emit(domain.MenuDirective(text, node.Options, cfg.Interactive))
	}

	option, ok := MatchOption(ev, node.Options)
	if !ok {
		invalid := cfg.InvalidText
		if invalid == "" {
			invalid = defaultInvalidText
		}
		return domain.Stay(node.ID).Emit(domain.TextDirective(invalid))
	}

	target := option.Target
	if target == "" {
		target = node.DefaultChild()
	}
	// A successful match routes silently.
	return domain.Advance(target)
}

// execAsk drives ask/question nodes: prompt, validate the reply, capture it
// into a session variable.
func (x *Executor) execAsk(ctx context.Context, node *domain.Node, sess *domain.Session, ev *domain.InboundEvent) *domain.Outcome {
	var cfg askConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid ask config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	if ev == nil {
		out := domain.Stay(node.ID)
		if cfg.Text != "" {
			out.Emit(domain.TextDirective(x.interpolate(ctx, cfg.Text, sess, entityCache{})))
		}
		return out
	}

	answer := strings.TrimSpace(ev.DisplayText())
	if !x.answerValid(node, cfg, answer) {
		retry := cfg.InvalidText
		if retry == "" {
			retry = defaultRetryText
		}
		if cfg.InvalidTarget != "" {
			return domain.Advance(cfg.InvalidTarget).Emit(domain.TextDirective(retry))
		}
		return domain.Stay(node.ID).Emit(domain.TextDirective(retry))
	}

	target := cfg.AnswerTarget
	if target == "" {
		target = node.DefaultChild()
	}
	out := domain.Advance(target)
	if cfg.Variable == "" {
		x.logger.Warn("ask node has no variable configured, answer discarded", "node_id", node.ID)
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"ask node has no variable configured", map[string]any{"node_id": node.ID}))
	}
	out.SetVariable(cfg.Variable, answer)
	return out
}

// answerValid applies the configured answer type check.
func (x *Executor) answerValid(node *domain.Node, cfg askConfig, answer string) bool {
	switch cfg.Type {
	case "", "text":
		if cfg.Pattern != "" {
			return matchPattern(cfg.Pattern, answer)
		}
		if len(cfg.Options) > 0 {
			return containsFold(cfg.Options, answer)
		}
		return true
	case "number":
		_, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
		return err == nil
	case "option":
		return containsFold(cfg.Options, answer)
	case "regex":
		return matchPattern(cfg.Pattern, answer)
	default:
		x.logger.Warn("unknown answer type, accepting as text", "node_id", node.ID, "type", cfg.Type)
		return true
	}
}

func containsFold(options []string, answer string) bool {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(answer)) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, answer string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(answer)
}
