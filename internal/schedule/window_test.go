package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeWindows_BasicSchedule(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	windows := ComputeWindows([]string{"08:00", "20:00"}, date, loc, 30, 30)

	require.Len(t, windows, 2)
	assert.Equal(t, "08:00", windows[0].ScheduledTime)
	assert.Equal(t, time.Date(2026, 3, 10, 7, 30, 0, 0, loc), windows[0].Start)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 30, 0, 0, loc), windows[0].End)
	assert.Equal(t, "20:00", windows[1].ScheduledTime)
	assert.Equal(t, time.Date(2026, 3, 10, 19, 30, 0, 0, loc), windows[1].Start)
	assert.Equal(t, time.Date(2026, 3, 10, 20, 30, 0, 0, loc), windows[1].End)
}

func TestComputeWindows_EmptySchedule(t *testing.T) {
	windows := ComputeWindows(nil, time.Now(), time.UTC, 30, 30)
	assert.Empty(t, windows)

	windows = ComputeWindows([]string{}, time.Now(), time.UTC, 30, 30)
	assert.Empty(t, windows)
}

func TestComputeWindows_SortsByScheduledTime(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	windows := ComputeWindows([]string{"20:00", "08:00", "12:30"}, date, time.UTC, 15, 15)

	require.Len(t, windows, 3)
	assert.Equal(t, "08:00", windows[0].ScheduledTime)
	assert.Equal(t, "12:30", windows[1].ScheduledTime)
	assert.Equal(t, "20:00", windows[2].ScheduledTime)
}

func TestComputeWindows_SkipsMalformedTimes(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	windows := ComputeWindows([]string{"08:00", "25:00", "8am", "", "12:75", "20:00"}, date, time.UTC, 30, 30)

	require.Len(t, windows, 2)
	assert.Equal(t, "08:00", windows[0].ScheduledTime)
	assert.Equal(t, "20:00", windows[1].ScheduledTime)
}

func TestComputeWindows_OverlappingWindowsNotMerged(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// 90 minute tolerances against 60 minute spacing: windows overlap
	windows := ComputeWindows([]string{"08:00", "09:00"}, date, time.UTC, 90, 90)

	require.Len(t, windows, 2)
	assert.True(t, windows[1].Start.Before(windows[0].End), "windows should overlap")
}

func TestComputeWindows_InterpretsInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	date := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)
	windows := ComputeWindows([]string{"08:00"}, date, loc, 30, 30)

	require.Len(t, windows, 1)
	assert.Equal(t, loc, windows[0].ScheduledAt.Location())
	assert.Equal(t, 8, windows[0].ScheduledAt.Hour())
}

func TestWindow_ContainsBoundsInclusive(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	windows := ComputeWindows([]string{"08:00"}, date, time.UTC, 30, 30)
	require.Len(t, windows, 1)

	w := windows[0]
	assert.True(t, w.Contains(w.Start), "window start is inside")
	assert.True(t, w.Contains(w.End), "window end is inside")
	assert.False(t, w.Contains(w.Start.Add(-time.Second)))
	assert.False(t, w.Contains(w.End.Add(time.Second)))
}
