package schedule

import (
	"sort"
	"time"
)

// scanHorizonDays bounds the forward scan of NextOpening.
const scanHorizonDays = 30

// InWindow reports whether now falls inside an open window of the schedule.
//
// Overnight windows are checked twice: a window {22:00, 06:00} on weekday W
// matches from 22:00 until midnight on day W, and from midnight until 06:00 on
// day W+1 via the previous day's window resolution.
func InWindow(now time.Time, s Schedule) bool {
	local := now.In(s.location())
	minute := local.Hour()*60 + local.Minute()

	windows, closed := s.windowsFor(local)
	if closed {
		return false
	}
	for _, w := range windows {
		start, err1 := parseMinutes(w.Start)
		end, err2 := parseMinutes(w.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if w.spansMidnight() {
			if minute >= start {
				return true
			}
		} else if minute >= start && minute < end {
			return true
		}
	}

	// The tail of yesterday's overnight window reaches into today.
	prev := local.AddDate(0, 0, -1)
	prevWindows, prevClosed := s.windowsFor(prev)
	if prevClosed {
		return false
	}
	for _, w := range prevWindows {
		if !w.spansMidnight() {
			continue
		}
		end, err := parseMinutes(w.End)
		if err != nil {
			continue
		}
		if minute < end {
			return true
		}
	}
	return false
}

// Opening describes the next time a window opens.
type Opening struct {
	Date    string       `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	Start   string       `json:"start"`
	End     string       `json:"end"`
}

// NextOpening scans forward day by day (bounded at 30 days) and returns the
// first upcoming window start, or nil when none opens inside the horizon.
// Windows on the current date whose start has already passed are skipped.
func NextOpening(now time.Time, s Schedule) *Opening {
	local := now.In(s.location())
	minute := local.Hour()*60 + local.Minute()

	for day := 0; day <= scanHorizonDays; day++ {
		date := local.AddDate(0, 0, day)
		windows, closed := s.windowsFor(date)
		if closed {
			continue
		}

		type candidate struct {
			start int
			w     Window
		}
		var candidates []candidate
		for _, w := range windows {
			start, err := parseMinutes(w.Start)
			if err != nil {
				continue
			}
			if day == 0 && start <= minute {
				continue
			}
			candidates = append(candidates, candidate{start: start, w: w})
		}
		if len(candidates) == 0 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].start < candidates[j].start })

		first := candidates[0].w
		return &Opening{
			Date:    date.Format(DateLayout),
			Weekday: date.Weekday(),
			Start:   first.Start,
			End:     first.End,
		}
	}
	return nil
}
