package schedule

import (
	"sort"
	"time"

	"github.com/caredose/medadmin-backend/pkg/model"
)

// SlotStatus labels the reconciliation outcome of one scheduled slot
type SlotStatus string

const (
	StatusOnTime  SlotStatus = "on-time"
	StatusLate    SlotStatus = "late"
	StatusMissed  SlotStatus = "missed"
	StatusPending SlotStatus = "pending"
)

// SlotResult pairs a window with the administration record matched to its
// slot, if any, and the resulting status.
type SlotResult struct {
	Window Window                      `json:"window"`
	Record *model.AdministrationRecord `json:"record,omitempty"`
	Status SlotStatus                  `json:"status"`
}

// MatchRecords assigns administration records to scheduled slots. Slot i owns
// the range [windows[i].Start, windows[i+1].Start), with the last slot running
// to the end of the day. Each slot takes the earliest unmatched record whose
// timestamp falls inside its range; each record matches at most one slot.
// The returned slice is indexed like windows; unmatched slots hold nil.
//
// Windows must be ordered by scheduled time ascending, as ComputeWindows
// returns them.
func MatchRecords(windows []Window, records []model.AdministrationRecord) []*model.AdministrationRecord {
	matched := make([]*model.AdministrationRecord, len(windows))
	if len(windows) == 0 || len(records) == 0 {
		return matched
	}

	sorted := make([]model.AdministrationRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	used := make([]bool, len(sorted))
	for i := range windows {
		end := slotEnd(windows, i)
		for j := range sorted {
			if used[j] {
				continue
			}
			ts := sorted[j].Timestamp
			if ts.Before(windows[i].Start) || !ts.Before(end) {
				continue
			}
			rec := sorted[j]
			matched[i] = &rec
			used[j] = true
			break
		}
	}

	return matched
}

// Reconcile matches records against windows and labels every slot. A matched
// record inside its window is on-time; a matched record after the window end
// is late. An unmatched slot whose window has closed before now is missed;
// one still open (or in the future) is pending.
func Reconcile(windows []Window, records []model.AdministrationRecord, now time.Time) []SlotResult {
	matched := MatchRecords(windows, records)

	results := make([]SlotResult, len(windows))
	for i, w := range windows {
		result := SlotResult{Window: w}
		switch {
		case matched[i] != nil && !matched[i].Timestamp.After(w.End):
			result.Record = matched[i]
			result.Status = StatusOnTime
		case matched[i] != nil:
			result.Record = matched[i]
			result.Status = StatusLate
		case w.End.Before(now):
			result.Status = StatusMissed
		default:
			result.Status = StatusPending
		}
		results[i] = result
	}

	return results
}
