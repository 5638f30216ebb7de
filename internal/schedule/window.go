// Package schedule implements the medication administration scheduling
// engine: tolerance windows around scheduled dose times, current-moment
// availability classification, and reconciliation of administration records
// against scheduled slots for MAR charts.
//
// Everything in this package is a pure function of its inputs plus an
// explicit reference time; no clocks, no storage.
package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Hard-coded fallback thresholds (minutes) applied when no administration
// settings record is configured at all. The absence of settings is the
// documented default, not a failure.
const (
	DefaultThresholdBefore = 30
	DefaultThresholdAfter  = 30
)

// Window is the tolerance interval around one scheduled administration time
// on a concrete date. Both bounds are inclusive: a timestamp equal to Start
// or End counts as inside the window. Windows are derived values; they are
// never stored.
type Window struct {
	ScheduledTime string    `json:"scheduled_time"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Start         time.Time `json:"window_start"`
	End           time.Time `json:"window_end"`
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ComputeWindows derives the administration windows for the given wall-clock
// times ("HH:MM") on the given calendar date, interpreted in loc. Each window
// spans [scheduled-before, scheduled+after] minutes. The result is ordered by
// scheduled time ascending. An empty or nil times list yields an empty result,
// which callers must treat as "no schedule configured", not an error.
//
// Windows for adjacent times may overlap when thresholds are large relative
// to their spacing; no merging or validation is performed. Malformed time
// strings are skipped.
func ComputeWindows(times []string, date time.Time, loc *time.Location, beforeMinutes, afterMinutes int) []Window {
	if len(times) == 0 {
		return nil
	}

	year, month, day := date.In(loc).Date()

	windows := make([]Window, 0, len(times))
	for _, ts := range times {
		hour, minute, err := parseWallClock(ts)
		if err != nil {
			continue
		}

		scheduled := time.Date(year, month, day, hour, minute, 0, 0, loc)
		windows = append(windows, Window{
			ScheduledTime: fmt.Sprintf("%02d:%02d", hour, minute),
			ScheduledAt:   scheduled,
			Start:         scheduled.Add(-time.Duration(beforeMinutes) * time.Minute),
			End:           scheduled.Add(time.Duration(afterMinutes) * time.Minute),
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].ScheduledAt.Before(windows[j].ScheduledAt)
	})

	return windows
}

// parseWallClock parses a "HH:MM" string into hour and minute components.
func parseWallClock(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("malformed time %q, want HH:MM", s)
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("malformed time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q out of range", s)
	}
	return hour, minute, nil
}

// endOfDay returns the exclusive upper bound of the calendar day containing t.
func endOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

// slotEnd returns the exclusive end of the slot owned by windows[i]: the next
// window's start, or the end of the day for the last slot. Records falling in
// [windows[i].Start, slotEnd) belong to slot i.
func slotEnd(windows []Window, i int) time.Time {
	if i+1 < len(windows) {
		return windows[i+1].Start
	}
	return endOfDay(windows[i].ScheduledAt)
}
