package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredose/medadmin-backend/pkg/model"
)

func TestReconcile_OnTimeLateAndMissed(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "14:00", "20:00"}, 30, 30)
	records := []model.AdministrationRecord{
		recordAt(t, time.Date(2026, 3, 10, 8, 10, 0, 0, time.UTC)),  // inside morning window
		recordAt(t, time.Date(2026, 3, 10, 15, 20, 0, 0, time.UTC)), // after 14:00 window closed
	}

	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	results := Reconcile(windows, records, now)

	require.Len(t, results, 3)
	assert.Equal(t, StatusOnTime, results[0].Status)
	require.NotNil(t, results[0].Record)
	assert.Equal(t, StatusLate, results[1].Status)
	require.NotNil(t, results[1].Record)
	assert.Equal(t, StatusMissed, results[2].Status)
	assert.Nil(t, results[2].Record)
}

func TestReconcile_FutureWindowIsPending(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "20:00"}, 30, 30)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	results := Reconcile(windows, nil, now)

	require.Len(t, results, 2)
	assert.Equal(t, StatusMissed, results[0].Status)
	assert.Equal(t, StatusPending, results[1].Status)
}

func TestReconcile_WindowStillOpenIsPending(t *testing.T) {
	windows := dayWindows(t, []string{"08:00"}, 30, 30)

	now := time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC)
	results := Reconcile(windows, nil, now)

	require.Len(t, results, 1)
	assert.Equal(t, StatusPending, results[0].Status)
}

func TestMatchRecords_SlotRangeRunsToNextWindowStart(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "20:00"}, 30, 30)

	// 12:00 is well past the morning window end (08:30) but before the
	// evening slot begins (19:30): it belongs to the morning slot.
	records := []model.AdministrationRecord{
		recordAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)),
	}

	matched := MatchRecords(windows, records)
	require.Len(t, matched, 2)
	assert.NotNil(t, matched[0])
	assert.Nil(t, matched[1])
}

func TestMatchRecords_EarliestUnmatchedRecordWins(t *testing.T) {
	windows := dayWindows(t, []string{"08:00"}, 30, 30)

	first := recordAt(t, time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC))
	second := recordAt(t, time.Date(2026, 3, 10, 8, 25, 0, 0, time.UTC))
	matched := MatchRecords(windows, []model.AdministrationRecord{second, first})

	require.Len(t, matched, 1)
	require.NotNil(t, matched[0])
	assert.Equal(t, first.ID, matched[0].ID)
}

func TestMatchRecords_EachRecordMatchesOneSlot(t *testing.T) {
	windows := dayWindows(t, []string{"08:00", "09:00"}, 90, 90)

	rec := recordAt(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	matched := MatchRecords(windows, []model.AdministrationRecord{rec})

	require.Len(t, matched, 2)
	assert.NotNil(t, matched[0])
	assert.Nil(t, matched[1], "a record must not be assigned to two slots")
}

func TestMatchRecords_RecordBeforeAnySlotUnmatched(t *testing.T) {
	windows := dayWindows(t, []string{"08:00"}, 30, 30)

	rec := recordAt(t, time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC))
	matched := MatchRecords(windows, []model.AdministrationRecord{rec})

	require.Len(t, matched, 1)
	assert.Nil(t, matched[0])
}
