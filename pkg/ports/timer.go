package ports

import (
	"context"
	"time"
)

// Timer describes one scheduled resumption. The facility must re-invoke the
// engine with a resume sentinel event for the session at or after Delay,
// durably, even across a process restart of the host.
type Timer struct {
	SessionID    string
	FlowID       string
	ContactID    string
	Channel      string
	NextNodeID   string
	OriginNodeID string
	Delay        time.Duration
}

// TimerFacility schedules delayed resumptions for delay nodes. Its own
// persistence is external to the engine; the engine only relies on the
// contract above.
type TimerFacility interface {
	// ScheduleTimer registers the timer and returns its id.
	ScheduleTimer(ctx context.Context, t Timer) (string, error)
}
