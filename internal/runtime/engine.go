package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// defaultMaxSteps bounds the automatic-node loop of one invocation. Cyclic
// graphs are legal (prompt nodes point at themselves while awaiting), so the
// guard only trips on runaway automatic chains.
const defaultMaxSteps = 100

// Request is one inbound event to process for a session.
type Request struct {
	SessionID string
	FlowID    string
	Channel   string
	ContactID string
	Message   *domain.InboundEvent
	Metadata  map[string]any

	// Now overrides the engine clock for this invocation (optional).
	Now time.Time
}

// Result is the terminal outcome of one invocation.
type Result struct {
	Responses      []domain.Directive
	Session        *domain.Session
	Ended          bool
	ShouldTransfer bool
	TransferQueue  string
}

// Engine orchestrates one inbound event through a session: it resumes an
// awaiting node if present, runs the chain of automatic nodes, persists the
// resulting session state and reports the terminal outcome. One call runs to
// completion before returning; per-session serialization is the caller's job
// (see pkg/session).
type Engine struct {
	flows    ports.FlowProvider
	store    ports.SessionStore
	executor *Executor
	logger   *slog.Logger
	now      func() time.Time
	maxSteps int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets a structured logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithEngineClock overrides the time source.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithMaxSteps overrides the automatic-node loop bound.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewEngine creates the runtime engine.
func NewEngine(flows ports.FlowProvider, store ports.SessionStore, executor *Executor, opts ...EngineOption) *Engine {
	e := &Engine{
		flows:    flows,
		store:    store,
		executor: executor,
		logger:   logging.NewNop(),
		now:      time.Now,
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetFlow resolves a flow through the configured provider.
func (e *Engine) GetFlow(ctx context.Context, flowID string) (*domain.Flow, error) {
	return e.flows.GetFlow(ctx, flowID)
}

// ProcessMessage runs one inbound event through the session's flow.
func (e *Engine) ProcessMessage(ctx context.Context, req Request) (*Result, error) {
	now := req.Now
	if now.IsZero() {
		now = e.now()
	}

	flow, err := e.flows.GetFlow(ctx, req.FlowID)
	if err != nil || flow == nil || flow.RootID == "" {
		// Flow-not-found is terminal: no session is created or continued.
		if derr := e.store.Delete(ctx, req.SessionID); derr != nil {
			e.logger.Warn("failed to delete session for missing flow", "session_id", req.SessionID, "err", derr)
		}
		return &Result{
			Responses: []domain.Directive{domain.SystemDirective(domain.LevelError,
				"flow not found: "+req.FlowID, map[string]any{"flow_id": req.FlowID})},
			Ended: true,
		}, nil
	}

	sess, err := e.store.Load(ctx, req.SessionID)
	created := false
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		sess = domain.NewSession(req.SessionID, req.FlowID, req.Channel, req.ContactID, flow.RootID, now)
		created = true
	case err != nil:
		return nil, fmt.Errorf("load session %s: %w", req.SessionID, err)
	}

	ev := req.Message
	if ev != nil {
		if ev.Raw == nil && req.Metadata != nil {
			ev.Raw = req.Metadata
		}
		if !ev.IsResume() {
			sess.LastInboundAt = now
			if text := ev.DisplayText(); text != "" {
				sess.LastText = text
			}
			sess.Record(domain.Interaction{At: now, Direction: "in", Summary: ev.DisplayText()})
		}
	}

	// The resume sentinel only means something to a session suspended at a
	// delay node. Anything else is a stale timer or a forged event; dropping
	// it keeps the suspension intact and never restarts a finished flow.
	if ev.IsResume() {
		awaiting := flow.Node(sess.AwaitingNodeID)
		if created || awaiting == nil || awaiting.Action.Kind != domain.ActionDelay {
			e.logger.Warn("resume sentinel without a suspended delay, ignored",
				"session_id", sess.ID, "timer_id", ev.TimerID, "awaiting_node_id", sess.AwaitingNodeID)
			result := &Result{Responses: []domain.Directive{}}
			if !created {
				result.Session = sess
			}
			return result, nil
		}
	}

	run := &traversal{engine: e, flow: flow, sess: sess, now: now}

	// Resume the awaiting node first, consuming the event.
	if sess.AwaitingNodeID != "" {
		node := flow.Node(sess.AwaitingNodeID)
		sess.AwaitingNodeID = ""
		if node == nil {
			// The graph changed underneath the session; restart from where it sits.
			e.logger.Warn("awaiting node no longer exists, resuming from current position",
				"session_id", sess.ID, "node_id", sess.CurrentNodeID)
		} else {
			run.step(ctx, node, ev)
			ev = nil
		}
	}

	// Chain of automatic nodes. Prompt nodes executed here see no event, so
	// they suspend instead of consuming the message that woke the flow.
	for !run.stopped {
		if run.steps >= e.maxSteps {
			run.responses = append(run.responses, domain.SystemDirective(domain.LevelWarn,
				"traversal step limit reached", map[string]any{"session_id": sess.ID, "node_id": sess.CurrentNodeID}))
			break
		}
		node := flow.Node(sess.CurrentNodeID)
		if node == nil {
			if sess.CurrentNodeID == flow.RootID {
				break
			}
			sess.CurrentNodeID = flow.RootID
			continue
		}
		run.step(ctx, node, nil)
	}

	result := &Result{
		Responses: run.responses,
		Ended:     run.ended,
	}
	if run.transfer != nil {
		result.ShouldTransfer = true
		result.TransferQueue = run.transfer.Queue
	}

	// A terminated conversation with no outstanding human transfer is gone.
	if run.ended && run.transfer == nil {
		if err := e.store.Delete(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("delete session %s: %w", sess.ID, err)
		}
		return result, nil
	}

	sess.UpdatedAt = now
	if err := e.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	result.Session = sess
	return result, nil
}

// traversal accumulates the state of one ProcessMessage invocation.
type traversal struct {
	engine    *Engine
	flow      *domain.Flow
	sess      *domain.Session
	now       time.Time
	responses []domain.Directive
	steps     int
	stopped   bool
	ended     bool
	transfer  *domain.TransferSignal
}

// step executes one node and applies its outcome to the session. Later nodes
// see earlier nodes' variable deltas because merges happen per step.
func (t *traversal) step(ctx context.Context, node *domain.Node, ev *domain.InboundEvent) {
	t.steps++
	out := t.engine.executor.Execute(ctx, t.flow, node, t.sess, ev)

	t.responses = append(t.responses, out.Directives...)
	t.sess.MergeVariables(out.Variables)
	for _, d := range out.Directives {
		if d.IsUserVisible() {
			t.sess.Record(domain.Interaction{At: t.now, Direction: "out", NodeID: node.ID, Summary: d.Text})
		}
	}

	if out.Transfer != nil {
		t.transfer = out.Transfer
	}
	if out.Ended {
		t.ended = true
	}

	if out.AwaitingInput {
		stayAt := out.NextNodeID
		if stayAt == "" {
			stayAt = node.ID
		}
		t.sess.CurrentNodeID = stayAt
		t.sess.AwaitingNodeID = stayAt
		t.stopped = true
		return
	}

	next := out.NextNodeID
	if next == "" && !out.Ended {
		next = node.DefaultChild()
	}
	// Unresolvable targets fall through to the default successor.
	if next != "" && t.flow.Node(next) == nil {
		fallback := node.DefaultChild()
		if fallback == next || t.flow.Node(fallback) == nil {
			fallback = ""
		}
		next = fallback
	}

	if next != "" {
		t.sess.CurrentNodeID = next
	}
	if out.Ended || out.Transfer != nil || next == "" {
		t.stopped = true
	}
}
