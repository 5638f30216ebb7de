package schedule

import (
	"time"

	"github.com/caredose/medadmin-backend/pkg/model"
)

// Availability is the current-moment dosing state of a medication
type Availability string

const (
	// AvailabilityAvailable: now is inside a window whose slot has no
	// administration record yet.
	AvailabilityAvailable Availability = "available"
	// AvailabilityUpcoming: no open window and no missed dose, but a window
	// starts later today.
	AvailabilityUpcoming Availability = "upcoming"
	// AvailabilityUnavailable: a past window's slot went unserved, or only
	// past windows remain. This also covers a fully served day; the source
	// system does not distinguish "missed" from "done for the day".
	AvailabilityUnavailable Availability = "unavailable"
	// AvailabilityNoSchedule: the medication has no administration times
	// configured.
	AvailabilityNoSchedule Availability = "no-schedule"
)

// Classification is the result of classifying a medication's dosing state at
// a reference time.
type Classification struct {
	Availability  Availability `json:"availability"`
	CurrentWindow *Window      `json:"current_window,omitempty"`
	NextWindow    *Window      `json:"next_window,omitempty"`
	LastWindow    *Window      `json:"last_window,omitempty"`
}

// Classify determines the dosing state at now, given the day's windows and the
// administration records recorded for the medication on that day.
//
// Windows containing now take priority: the first such window (earliest
// scheduled time wins on overlap) whose slot has no matching record makes the
// medication available. A missed dose dominates what remains: any past window
// whose slot went unserved reports unavailable with that window, even when a
// later window is still ahead. Otherwise the earliest future window makes it
// upcoming, and a day with only served or expired windows is unavailable with
// the latest window reported.
func Classify(now time.Time, windows []Window, records []model.AdministrationRecord) Classification {
	if len(windows) == 0 {
		return Classification{Availability: AvailabilityNoSchedule}
	}

	matched := MatchRecords(windows, records)

	// Windows are ordered by scheduled time, so the first open unserved
	// window is the earliest one.
	for i := range windows {
		if windows[i].Contains(now) && matched[i] == nil {
			w := windows[i]
			return Classification{
				Availability:  AvailabilityAvailable,
				CurrentWindow: &w,
			}
		}
	}

	// Latest past window whose slot has no record: the dose was missed
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].End.Before(now) && matched[i] == nil {
			w := windows[i]
			return Classification{
				Availability: AvailabilityUnavailable,
				LastWindow:   &w,
			}
		}
	}

	for i := range windows {
		if windows[i].Start.After(now) {
			w := windows[i]
			return Classification{
				Availability: AvailabilityUpcoming,
				NextWindow:   &w,
			}
		}
	}

	last := windows[len(windows)-1]
	return Classification{
		Availability: AvailabilityUnavailable,
		LastWindow:   &last,
	}
}
