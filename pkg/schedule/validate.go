package schedule

import (
	"fmt"
	"time"
)

// Validate checks a schedule for authoring-time errors. The evaluator itself
// is lenient at runtime (malformed windows simply never match); validation is
// meant for the flow validator and CLI.
func Validate(s Schedule) error {
	if s.Timezone == "" {
		return fmt.Errorf("schedule: timezone is required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("schedule: unknown timezone %q", s.Timezone)
	}
	if len(s.Windows) == 0 {
		return fmt.Errorf("schedule: at least one window is required")
	}

	for i, w := range s.Windows {
		start, err := parseMinutes(w.Start)
		if err != nil {
			return fmt.Errorf("schedule: window %d: %w", i, err)
		}
		end, err := parseMinutes(w.End)
		if err != nil {
			return fmt.Errorf("schedule: window %d: %w", i, err)
		}
		if end <= start && !w.Overnight {
			return fmt.Errorf("schedule: window %d: start %q must be before end %q (or flag it overnight)", i, w.Start, w.End)
		}
		if len(w.Days) == 0 {
			return fmt.Errorf("schedule: window %d: at least one weekday is required", i)
		}
		for _, d := range w.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("schedule: window %d: invalid weekday %d", i, d)
			}
		}
	}

	for i, ex := range s.Exceptions {
		if _, err := time.Parse(DateLayout, ex.Date); err != nil {
			return fmt.Errorf("schedule: exception %d: invalid date %q", i, ex.Date)
		}
		if ex.Closed {
			continue
		}
		if ex.Start == "" || ex.End == "" {
			return fmt.Errorf("schedule: exception %d: needs closed or explicit start/end", i)
		}
		if _, err := parseMinutes(ex.Start); err != nil {
			return fmt.Errorf("schedule: exception %d: %w", i, err)
		}
		if _, err := parseMinutes(ex.End); err != nil {
			return fmt.Errorf("schedule: exception %d: %w", i, err)
		}
	}
	return nil
}
