package runtime

import (
	"context"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// execDelay suspends the session for a configured number of seconds.
//
// First visit: the next node id is stored in a reserved session variable and a
// timer is scheduled through the facility; the session suspends on the delay
// node itself so it stays alive without being deleted. Resumption arrives as
// the reserved resume sentinel, at which point the stored next node is read
// back, the reservation cleared, and traversal continues silently.
func (x *Executor) execDelay(ctx context.Context, node *domain.Node, sess *domain.Session, ev *domain.InboundEvent) *domain.Outcome {
	if ev.IsResume() {
		next, _ := sess.Variable(VarDelayNextNode)
		delete(sess.Variables, VarDelayNextNode)
		delete(sess.Variables, VarDelayTimerID)
		if next == "" {
			next = node.DefaultChild()
		}
		return domain.Advance(next)
	}

	// A contact message arriving mid-delay does not restart the countdown;
	// the reservation already names the pending timer and its target.
	if pending, _ := sess.Variable(VarDelayNextNode); pending != "" {
		return domain.Stay(node.ID)
	}

	var cfg delayConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil || cfg.Seconds <= 0 {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"delay node requires a positive delay in seconds", map[string]any{"node_id": node.ID}))
	}

	out := &domain.Outcome{}
	seconds := cfg.Seconds
	if seconds > MaxDelaySeconds {
		out.Emit(domain.SystemDirective(domain.LevelWarn,
			"delay exceeds the four-day bound, clamped", map[string]any{"node_id": node.ID, "seconds": cfg.Seconds}))
		seconds = MaxDelaySeconds
	}

	if x.timers == nil {
		x.logger.Warn("timer facility not configured, delay skipped", "node_id", node.ID)
		out.NextNodeID = node.DefaultChild()
		return out.Emit(domain.SystemDirective(domain.LevelWarn,
			"timer facility not configured, delay skipped", map[string]any{"node_id": node.ID}))
	}

	next := node.DefaultChild()
	timerID, err := x.timers.ScheduleTimer(ctx, ports.Timer{
		SessionID:    sess.ID,
		FlowID:       sess.FlowID,
		ContactID:    sess.ContactID,
		Channel:      sess.Channel,
		NextNodeID:   next,
		OriginNodeID: node.ID,
		Delay:        time.Duration(seconds) * time.Second,
	})
	if err != nil {
		x.logger.Warn("timer scheduling failed, continuing without delay", "node_id", node.ID, "err", err)
		out.NextNodeID = next
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"timer scheduling failed: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	out.NextNodeID = node.ID
	out.AwaitingInput = true
	out.SetVariable(VarDelayNextNode, next)
	out.SetVariable(VarDelayTimerID, timerID)
	return out
}
