package ports

import "time"

// NodeExecution is one telemetry record emitted after every node evaluation.
type NodeExecution struct {
	FlowID     string
	SessionID  string
	NodeID     string
	ActionKind string
	Awaiting   bool
	Ended      bool
	Duration   time.Duration
	Err        error
}

// EventSink receives execution telemetry. It is injected into the executor
// explicitly; there is no process-wide registration. Implementations must be
// safe for concurrent use and must not block.
type EventSink interface {
	NodeExecuted(ev NodeExecution)
}

// NopSink discards all events.
type NopSink struct{}

// NodeExecuted implements EventSink.
func (NopSink) NodeExecuted(NodeExecution) {}
