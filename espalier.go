package espalier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/espalier/internal/runtime"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/session"
)

// Message is one inbound event for a session. SessionID and FlowID are
// required; Event may be nil to start or poke a flow without user input.
type Message struct {
	SessionID string
	FlowID    string
	Channel   string
	ContactID string
	Event     *domain.InboundEvent
	Metadata  map[string]any
}

// Reply is the outcome of processing one Message.
type Reply struct {
	Directives     []domain.Directive
	Session        *domain.Session
	Ended          bool
	ShouldTransfer bool
	TransferQueue  string
}

// Engine is the high-level entry point for the Espalier library. It wraps
// the internal runtime with per-session locking and exposes a simplified
// API for hosts (HTTP intake, timer callbacks, CLIs).
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager
	flows    ports.FlowProvider
	logger   *slog.Logger

	store        ports.SessionStore
	locker       ports.DistributedLocker
	lockTTL      time.Duration
	dispatcher   ports.WebhookDispatcher
	timers       ports.TimerFacility
	crm          ports.CRMClient
	completer    ports.Completer
	sink         ports.EventSink
	now          func() time.Time
	maxSteps     int
	executorOpts []runtime.ExecutorOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSessionStore injects a session store (default: in-memory).
func WithSessionStore(store ports.SessionStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithDistributedLocker adds cross-process session locking.
func WithDistributedLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// WithLockTTL sets the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.lockTTL = ttl }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithWebhookDispatcher enables webhook nodes.
func WithWebhookDispatcher(d ports.WebhookDispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithTimerFacility enables delay nodes.
func WithTimerFacility(t ports.TimerFacility) Option {
	return func(e *Engine) { e.timers = t }
}

// WithCRMClient enables CRM nodes and entity interpolation.
func WithCRMClient(c ports.CRMClient) Option {
	return func(e *Engine) { e.crm = c }
}

// WithCompleter enables completion (AI) nodes.
func WithCompleter(c ports.Completer) Option {
	return func(e *Engine) { e.completer = c }
}

// WithEventSink registers a per-node-execution observer.
func WithEventSink(s ports.EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithClock overrides the time source, for schedules and delays.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMaxSteps bounds the automatic-node chain of one invocation.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// New initializes an Espalier Engine over the given flow provider.
func New(flows ports.FlowProvider, opts ...Option) (*Engine, error) {
	if flows == nil {
		return nil, fmt.Errorf("flow provider is required")
	}
	eng := &Engine{flows: flows}
	for _, opt := range opts {
		opt(eng)
	}

	// If no store was injected, fall back to the in-memory adapter. Fine for
	// single-process hosts and tests; production deployments inject redis.
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.logger == nil {
		eng.logger = slog.Default()
	}

	execOpts := []runtime.ExecutorOption{runtime.WithLogger(eng.logger)}
	if eng.dispatcher != nil {
		execOpts = append(execOpts, runtime.WithWebhookDispatcher(eng.dispatcher))
	}
	if eng.timers != nil {
		execOpts = append(execOpts, runtime.WithTimerFacility(eng.timers))
	}
	if eng.crm != nil {
		execOpts = append(execOpts, runtime.WithCRMClient(eng.crm))
	}
	if eng.completer != nil {
		execOpts = append(execOpts, runtime.WithCompleter(eng.completer))
	}
	if eng.sink != nil {
		execOpts = append(execOpts, runtime.WithEventSink(eng.sink))
	}
	if eng.now != nil {
		execOpts = append(execOpts, runtime.WithClock(eng.now))
	}
	executor := runtime.NewExecutor(execOpts...)

	engOpts := []runtime.EngineOption{runtime.WithEngineLogger(eng.logger)}
	if eng.now != nil {
		engOpts = append(engOpts, runtime.WithEngineClock(eng.now))
	}
	if eng.maxSteps > 0 {
		engOpts = append(engOpts, runtime.WithMaxSteps(eng.maxSteps))
	}
	eng.runtime = runtime.NewEngine(eng.flows, eng.store, executor, engOpts...)

	mgrOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(eng.locker))
	}
	if eng.lockTTL > 0 {
		mgrOpts = append(mgrOpts, session.WithLockTTL(eng.lockTTL))
	}
	eng.sessions = session.NewManager(eng.store, mgrOpts...)

	return eng, nil
}

// ProcessMessage runs one inbound event through the session's flow.
// Invocations for the same session are serialized; distinct sessions run
// concurrently.
func (e *Engine) ProcessMessage(ctx context.Context, msg Message) (*Reply, error) {
	if msg.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if msg.FlowID == "" {
		return nil, fmt.Errorf("flow id is required")
	}

	var reply *Reply
	err := e.sessions.WithLock(ctx, msg.SessionID, func(ctx context.Context) error {
		res, err := e.runtime.ProcessMessage(ctx, runtime.Request{
			SessionID: msg.SessionID,
			FlowID:    msg.FlowID,
			Channel:   msg.Channel,
			ContactID: msg.ContactID,
			Message:   msg.Event,
			Metadata:  msg.Metadata,
		})
		if err != nil {
			return err
		}
		reply = &Reply{
			Directives:     res.Responses,
			Session:        res.Session,
			Ended:          res.Ended,
			ShouldTransfer: res.ShouldTransfer,
			TransferQueue:  res.TransferQueue,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Resume delivers a fired timer back into its suspended session. Hosts wire
// this as the timer facility's handler.
func (e *Engine) Resume(ctx context.Context, sessionID, flowID, timerID string) (*Reply, error) {
	return e.ProcessMessage(ctx, Message{
		SessionID: sessionID,
		FlowID:    flowID,
		Event:     domain.ResumeEvent(timerID),
	})
}

// Flow returns a flow definition by id.
func (e *Engine) Flow(ctx context.Context, flowID string) (*domain.Flow, error) {
	return e.flows.GetFlow(ctx, flowID)
}

// Flows lists the ids of all known flows. Returns an error if the provider
// cannot enumerate.
func (e *Engine) Flows(ctx context.Context) ([]string, error) {
	if l, ok := e.flows.(ports.FlowLister); ok {
		return l.ListFlows(ctx)
	}
	return nil, fmt.Errorf("flow provider does not support listing")
}

// Session loads a session snapshot by id.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Sessions lists the ids of all live sessions.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// EndSession discards a session's state. Deleting an unknown session is not
// an error.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// SessionManager exposes the underlying manager for hosts that need direct
// store access.
func (e *Engine) SessionManager() *session.Manager {
	return e.sessions
}
