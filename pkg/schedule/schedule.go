// Package schedule implements the timezone-aware time-window evaluator used by
// scheduler nodes: "is now inside an open window?" and "when does the next
// window open?". Everything here is a pure function over a Schedule value.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is one weekly attention window: a weekday set plus "HH:mm" bounds.
// A window whose end is numerically before its start spans midnight; the
// Overnight flag makes that explicit at authoring time.
type Window struct {
	Days      []time.Weekday `json:"days" yaml:"days"`
	Start     string         `json:"start" yaml:"start"`
	End       string         `json:"end" yaml:"end"`
	Overnight bool           `json:"overnight,omitempty" yaml:"overnight,omitempty"`
}

// Exception overrides one calendar date: either fully closed, or open with
// replacement bounds for that date only.
type Exception struct {
	Date   string `json:"date" yaml:"date"` // "2006-01-02"
	Closed bool   `json:"closed,omitempty" yaml:"closed,omitempty"`
	Start  string `json:"start,omitempty" yaml:"start,omitempty"`
	End    string `json:"end,omitempty" yaml:"end,omitempty"`
}

// Schedule is a weekly attention schedule with date exceptions.
type Schedule struct {
	Timezone   string      `json:"timezone" yaml:"timezone"`
	Windows    []Window    `json:"windows" yaml:"windows"`
	Exceptions []Exception `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
}

// DateLayout is the calendar-date format used by exceptions and NextOpening.
const DateLayout = "2006-01-02"

// parseMinutes converts "HH:mm" to minutes-of-day.
func parseMinutes(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:mm", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// spansMidnight reports whether the window crosses midnight, either flagged
// explicitly or auto-detected from its bounds.
func (w Window) spansMidnight() bool {
	if w.Overnight {
		return true
	}
	start, err1 := parseMinutes(w.Start)
	end, err2 := parseMinutes(w.End)
	if err1 != nil || err2 != nil {
		return false
	}
	return end < start
}

func (w Window) appliesOn(day time.Weekday) bool {
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

// location resolves the schedule timezone, falling back to UTC at runtime.
// Validate rejects unknown timezones at authoring time.
func (s Schedule) location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// windowsFor resolves the effective windows for one local calendar date:
// a closed exception yields (nil, true); an override exception replaces the
// day's weekly windows; otherwise all windows containing the weekday apply.
func (s Schedule) windowsFor(date time.Time) ([]Window, bool) {
	dateStr := date.Format(DateLayout)
	for _, ex := range s.Exceptions {
		if ex.Date != dateStr {
			continue
		}
		if ex.Closed {
			return nil, true
		}
		if ex.Start != "" && ex.End != "" {
			return []Window{{Days: []time.Weekday{date.Weekday()}, Start: ex.Start, End: ex.End}}, false
		}
	}

	var out []Window
	for _, w := range s.Windows {
		if w.appliesOn(date.Weekday()) {
			out = append(out, w)
		}
	}
	return out, false
}
