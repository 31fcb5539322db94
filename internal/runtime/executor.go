package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// Reserved session variable keys. The double-underscore prefix keeps them out
// of the namespace flows use for captured answers.
const (
	// VarDelayNextNode stores the node a suspended delay resumes into.
	VarDelayNextNode = "__delay_next_node"
	// VarDelayTimerID stores the id of the pending timer.
	VarDelayTimerID = "__delay_timer_id"
	// VarAIHistory stores the rolling completion history as JSON.
	VarAIHistory = "__ai_history"
	// VarCRMIDPrefix + entity type caches the id of a created/found entity.
	VarCRMIDPrefix = "__crm_id_"
	// VarSearchCount stores the result count of the last CRM search.
	VarSearchCount = "crm_search_count"
)

// MaxDelaySeconds bounds delay nodes at four days.
const MaxDelaySeconds = 345600

// Executor evaluates exactly one node per call. All collaborators are
// optional: a missing one degrades to a warn directive and a best-effort
// route, never a crash.
type Executor struct {
	logger    *slog.Logger
	webhooks  ports.WebhookDispatcher
	timers    ports.TimerFacility
	crm       ports.CRMClient
	completer ports.Completer
	sink      ports.EventSink
	now       func() time.Time
}

// ExecutorOption configures the Executor.
type ExecutorOption func(*Executor)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(x *Executor) { x.logger = logger }
}

// WithWebhookDispatcher wires the outbound HTTP collaborator.
func WithWebhookDispatcher(d ports.WebhookDispatcher) ExecutorOption {
	return func(x *Executor) { x.webhooks = d }
}

// WithTimerFacility wires the durable delay scheduler.
func WithTimerFacility(t ports.TimerFacility) ExecutorOption {
	return func(x *Executor) { x.timers = t }
}

// WithCRMClient wires the external CRM collaborator.
func WithCRMClient(c ports.CRMClient) ExecutorOption {
	return func(x *Executor) { x.crm = c }
}

// WithCompleter wires the AI completion collaborator.
func WithCompleter(c ports.Completer) ExecutorOption {
	return func(x *Executor) { x.completer = c }
}

// WithEventSink wires execution telemetry.
func WithEventSink(s ports.EventSink) ExecutorOption {
	return func(x *Executor) { x.sink = s }
}

// WithClock overrides the time source (tests, scheduler nodes).
func WithClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) { x.now = now }
}

// NewExecutor creates an executor with the given collaborators.
func NewExecutor(opts ...ExecutorOption) *Executor {
	x := &Executor{
		logger: logging.NewNop(),
		sink:   ports.NopSink{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.logger == nil {
		x.logger = logging.NewNop()
	}
	if x.sink == nil {
		x.sink = ports.NopSink{}
	}
	return x
}

// Execute evaluates one node against the session and an optional inbound
// event, returning the execution outcome. The outcome always names a defined
// next step, even if that step is "stay here".
func (x *Executor) Execute(ctx context.Context, flow *domain.Flow, node *domain.Node, sess *domain.Session, ev *domain.InboundEvent) *domain.Outcome {
	start := x.now()
	out := x.dispatch(ctx, flow, node, sess, ev)
	if out == nil {
		out = domain.Advance(node.DefaultChild())
	}

	x.sink.NodeExecuted(ports.NodeExecution{
		FlowID:     flow.ID,
		SessionID:  sess.ID,
		NodeID:     node.ID,
		ActionKind: node.Action.Kind,
		Awaiting:   out.AwaitingInput,
		Ended:      out.Ended,
		Duration:   x.now().Sub(start),
	})
	return out
}

func (x *Executor) dispatch(ctx context.Context, flow *domain.Flow, node *domain.Node, sess *domain.Session, ev *domain.InboundEvent) *domain.Outcome {
	// Menu-type nodes behave as menus regardless of the configured kind.
	if node.Type == domain.NodeTypeMenu {
		return x.execMenu(ctx, node, sess, ev, false)
	}

	switch node.Action.Kind {
	case domain.ActionStart, "":
		return domain.Advance(node.DefaultChild())
	case domain.ActionMessage:
		return x.execMessage(ctx, node, sess)
	case domain.ActionMenu:
		return x.execMenu(ctx, node, sess, ev, false)
	case domain.ActionButtons:
		return x.execMenu(ctx, node, sess, ev, true)
	case domain.ActionAsk, domain.ActionQuestion:
		return x.execAsk(ctx, node, sess, ev)
	case domain.ActionCondition:
		return x.execCondition(ctx, node, sess, ev)
	case domain.ActionValidation:
		return x.execValidation(ctx, node, sess, ev, false)
	case domain.ActionValidationCRM:
		return x.execValidation(ctx, node, sess, ev, true)
	case domain.ActionScheduler:
		return x.execScheduler(ctx, node)
	case domain.ActionWebhookOut:
		return x.execWebhook(ctx, node, sess)
	case domain.ActionDelay:
		return x.execDelay(ctx, node, sess, ev)
	case domain.ActionTransfer:
		return x.execTransfer(ctx, node, sess, false)
	case domain.ActionHandoff:
		return x.execTransfer(ctx, node, sess, true)
	case domain.ActionCRM:
		return x.execCRM(ctx, node, sess)
	case domain.ActionAIRag, domain.ActionAIAgent:
		return x.execCompletion(ctx, node, sess, ev)
	case domain.ActionEnd:
		return x.execEnd(ctx, node, sess)
	default:
		x.logger.Warn("unknown action kind, skipping forward",
			"node_id", node.ID, "kind", node.Action.Kind)
		out := domain.Advance(node.DefaultChild())
		out.Emit(domain.SystemDirective(domain.LevelWarn,
			"unknown action kind "+node.Action.Kind, map[string]any{"node_id": node.ID}))
		return out
	}
}
