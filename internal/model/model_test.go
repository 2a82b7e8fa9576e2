package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeEntry_Duration(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	active := TimeEntry{StartTime: start}
	_, ok := active.Duration()
	require.False(t, ok)
	require.True(t, active.Active())

	end := start.Add(60 * time.Second)
	stopped := TimeEntry{StartTime: start, EndTime: &end}
	d, ok := stopped.Duration()
	require.True(t, ok)
	require.Equal(t, int64(60), d)
	require.False(t, stopped.Active())

	// sub-second remainders are floored
	frac := start.Add(90*time.Second + 999*time.Millisecond)
	d, _ = TimeEntry{StartTime: start, EndTime: &frac}.Duration()
	require.Equal(t, int64(90), d)

	same := start
	d, _ = TimeEntry{StartTime: start, EndTime: &same}.Duration()
	require.Equal(t, int64(0), d)
}

func TestEntryPatch_Empty(t *testing.T) {
	t.Parallel()

	require.True(t, EntryPatch{}.Empty())
	s := ""
	require.False(t, EntryPatch{Description: &s}.Empty())
}
