// Package sqlite implements the durable timer facility on a SQLite database.
// Timers survive process restarts: pending rows are re-discovered by the
// polling loop on the next Run.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/ports"
)

// FiredTimer is one elapsed timer handed to the handler.
type FiredTimer struct {
	ID           string
	SessionID    string
	FlowID       string
	ContactID    string
	Channel      string
	NextNodeID   string
	OriginNodeID string
}

// Handler is invoked for each elapsed timer, typically to feed the resume
// sentinel back into the engine.
type Handler func(ctx context.Context, t FiredTimer) error

// Facility implements ports.TimerFacility over a timers table poll loop,
// FIFO by fire time.
type Facility struct {
	db           *sql.DB
	handler      Handler
	pollInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures the Facility.
type Option func(*Facility)

// WithPollInterval overrides how often due timers are checked for.
func WithPollInterval(d time.Duration) Option {
	return func(f *Facility) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facility) { f.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Facility) { f.now = now }
}

// NewFacility initializes the timers table in the given DB and returns the
// facility. The handler fires on Run's goroutine, one timer at a time.
func NewFacility(db *sql.DB, handler Handler, opts ...Option) (*Facility, error) {
	f := &Facility{
		db:           db,
		handler:      handler,
		pollInterval: time.Second,
		logger:       logging.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.initSchema(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Facility) initSchema() error {
	_, err := f.db.Exec(`
		CREATE TABLE IF NOT EXISTS timers (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			flow_id TEXT NOT NULL,
			contact_id TEXT,
			channel TEXT,
			next_node_id TEXT,
			origin_node_id TEXT,
			fire_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("init timers schema: %w", err)
	}
	_, err = f.db.Exec(`CREATE INDEX IF NOT EXISTS idx_timers_fire_at ON timers (fire_at)`)
	if err != nil {
		return fmt.Errorf("init timers index: %w", err)
	}
	return nil
}

var _ ports.TimerFacility = (*Facility)(nil)

// ScheduleTimer registers one timer and returns its id.
func (f *Facility) ScheduleTimer(ctx context.Context, t ports.Timer) (string, error) {
	id := uuid.NewString()
	now := f.now()

	_, err := f.db.ExecContext(ctx, `
		INSERT INTO timers (id, session_id, flow_id, contact_id, channel, next_node_id, origin_node_id, fire_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		t.SessionID,
		t.FlowID,
		t.ContactID,
		t.Channel,
		t.NextNodeID,
		t.OriginNodeID,
		now.Add(t.Delay).UnixNano(),
		now.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("schedule timer: %w", err)
	}
	return id, nil
}

// Cancel removes a pending timer. Canceling an elapsed or unknown timer is a
// no-op.
func (f *Facility) Cancel(ctx context.Context, timerID string) error {
	_, err := f.db.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, timerID)
	return err
}

// Pending reports how many timers have not fired yet.
func (f *Facility) Pending(ctx context.Context) (int, error) {
	var n int
	err := f.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timers`).Scan(&n)
	return n, err
}

// Run polls for due timers until the context is canceled. Each due timer is
// claimed (deleted) transactionally before the handler fires, so two Run
// loops on the same database never double-fire one timer.
func (f *Facility) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for {
			fired, ok, err := f.claimNext(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				f.logger.Error("timer claim failed", "err", err)
				break
			}
			if !ok {
				break
			}
			if err := f.handler(ctx, fired); err != nil {
				f.logger.Error("timer handler failed",
					"timer_id", fired.ID, "session_id", fired.SessionID, "err", err)
			}
		}
	}
}

// claimNext transactionally removes the earliest due timer, if any.
func (f *Facility) claimNext(ctx context.Context) (FiredTimer, bool, error) {
	now := f.now().UnixNano()

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return FiredTimer{}, false, err
	}

	var t FiredTimer
	row := tx.QueryRowContext(ctx, `
		SELECT id, session_id, flow_id, contact_id, channel, next_node_id, origin_node_id
		FROM timers
		WHERE fire_at <= ?
		ORDER BY fire_at, id
		LIMIT 1`, now)
	err = row.Scan(&t.ID, &t.SessionID, &t.FlowID, &t.ContactID, &t.Channel, &t.NextNodeID, &t.OriginNodeID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return FiredTimer{}, false, nil
		}
		return FiredTimer{}, false, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, t.ID); err != nil {
		_ = tx.Rollback()
		return FiredTimer{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return FiredTimer{}, false, err
	}
	return t, true, nil
}
