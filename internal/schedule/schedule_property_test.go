package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/caredose/medadmin-backend/pkg/model"
)

// genWallClockTimes generates a list of distinct valid "HH:MM" strings.
func genWallClockTimes() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 24*60-1)).
		SuchThat(func(minutes []int) bool { return len(minutes) > 0 && len(minutes) <= 8 }).
		Map(func(minutes []int) []string {
			seen := make(map[int]bool)
			var times []string
			for _, m := range minutes {
				if seen[m] {
					continue
				}
				seen[m] = true
				times = append(times, fmt.Sprintf("%02d:%02d", m/60, m%60))
			}
			return times
		})
}

// Property: for administration times T and thresholds (b, a), ComputeWindows
// returns |T| windows, each spanning exactly b+a minutes.
func TestProperty_WindowCountAndWidth(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	properties := gopter.NewProperties(nil)

	properties.Property("one window per time, each b+a minutes wide", prop.ForAll(
		func(times []string, before, after int) bool {
			windows := ComputeWindows(times, date, time.UTC, before, after)
			if len(windows) != len(times) {
				return false
			}

			width := time.Duration(before+after) * time.Minute
			for _, w := range windows {
				if w.End.Sub(w.Start) != width {
					return false
				}
				if !w.Contains(w.ScheduledAt) {
					return false
				}
			}
			return true
		},
		genWallClockTimes(),
		gen.IntRange(0, 180),
		gen.IntRange(0, 180),
	))

	properties.Property("windows are ordered by scheduled time", prop.ForAll(
		func(times []string) bool {
			windows := ComputeWindows(times, date, time.UTC, 30, 30)
			for i := 0; i < len(windows)-1; i++ {
				if windows[i].ScheduledAt.After(windows[i+1].ScheduledAt) {
					return false
				}
			}
			return true
		},
		genWallClockTimes(),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties.TestingRun(t, params)
}

// Property: once now is past all of the day's windows and every slot has a
// matching record, the classifier never reports the medication as available.
func TestProperty_FullyServedNeverAvailable(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	properties := gopter.NewProperties(nil)

	properties.Property("served day past its last window is never available", prop.ForAll(
		func(times []string, afterMinutes int) bool {
			windows := ComputeWindows(times, date, time.UTC, 30, 30)
			if len(windows) == 0 {
				return true
			}

			// Serve every slot at its scheduled time
			records := make([]model.AdministrationRecord, 0, len(windows))
			for i, w := range windows {
				records = append(records, model.AdministrationRecord{
					ID:        fmt.Sprintf("rec-%d", i),
					Quantity:  1,
					Outcome:   model.OutcomeAdministered,
					Timestamp: w.ScheduledAt,
				})
			}

			now := windows[len(windows)-1].End.Add(time.Duration(afterMinutes) * time.Minute)
			result := Classify(now, windows, records)
			return result.Availability != AvailabilityAvailable
		},
		genWallClockTimes(),
		gen.IntRange(1, 6*60),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties.TestingRun(t, params)
}

// Property: a reference time strictly inside exactly one window with no
// records classifies as available with that window current.
func TestProperty_OpenUnservedWindowIsAvailable(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	properties := gopter.NewProperties(nil)

	properties.Property("now inside an unserved window is available", prop.ForAll(
		func(scheduledMinute, offset int) bool {
			ts := fmt.Sprintf("%02d:%02d", scheduledMinute/60, scheduledMinute%60)
			windows := ComputeWindows([]string{ts}, date, time.UTC, 30, 30)
			if len(windows) != 1 {
				return false
			}

			now := windows[0].ScheduledAt.Add(time.Duration(offset-30) * time.Minute)
			if !windows[0].Contains(now) {
				return true // offset walked outside the window, nothing to assert
			}

			result := Classify(now, windows, nil)
			return result.Availability == AvailabilityAvailable &&
				result.CurrentWindow != nil &&
				result.CurrentWindow.ScheduledTime == windows[0].ScheduledTime
		},
		gen.IntRange(0, 24*60-1),
		gen.IntRange(0, 60),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties.TestingRun(t, params)
}
