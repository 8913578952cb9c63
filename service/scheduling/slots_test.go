package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSlotsForDay_TwoHourWindow(t *testing.T) {
	slots, err := SlotsForDay(day(2024, time.January, 1), "09:00", "11:00", 60)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	require.Equal(t, time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC), slots[0].Start)
	require.Equal(t, time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC), slots[0].End)
	require.Equal(t, time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC), slots[1].Start)
	require.Equal(t, time.Date(2024, time.January, 1, 11, 0, 0, 0, time.UTC), slots[1].End)
}

func TestSlotsForDay_PartialTrailingSlotDropped(t *testing.T) {
	slots, err := SlotsForDay(day(2024, time.January, 1), "09:00", "10:30", 60)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC), slots[0].Start)
	require.Equal(t, time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC), slots[0].End)
}

func TestSlotsForDay_SlotCountFormula(t *testing.T) {
	cases := []struct {
		start, end string
		duration   int
		want       int
	}{
		{"09:00", "17:00", 60, 8},
		{"09:00", "17:00", 30, 16},
		{"09:00", "17:00", 90, 5},
		{"09:00", "17:00", 120, 4},
		{"09:00", "17:00", 45, 10},
		{"10:15", "11:00", 15, 3},
		{"09:00", "09:30", 60, 0},
		{"00:00", "23:59", 7, 205},
	}

	for _, tc := range cases {
		slots, err := SlotsForDay(day(2024, time.June, 3), tc.start, tc.end, tc.duration)
		require.NoError(t, err)
		require.Len(t, slots, tc.want, "window %s-%s duration %d", tc.start, tc.end, tc.duration)

		// Slots are contiguous, non-overlapping and exactly duration long.
		for i, slot := range slots {
			require.Equal(t, time.Duration(tc.duration)*time.Minute, slot.End.Sub(slot.Start))
			if i > 0 {
				require.Equal(t, slots[i-1].End, slot.Start)
			}
		}
	}
}

func TestSlotsForDay_RejectsBadInput(t *testing.T) {
	_, err := SlotsForDay(day(2024, time.January, 1), "09:00", "17:00", 0)
	require.Error(t, err)

	_, err = SlotsForDay(day(2024, time.January, 1), "09:00", "17:00", -30)
	require.Error(t, err)

	_, err = SlotsForDay(day(2024, time.January, 1), "17:00", "09:00", 60)
	require.Error(t, err)

	_, err = SlotsForDay(day(2024, time.January, 1), "9am", "17:00", 60)
	require.Error(t, err)
}

func TestSlotsForDay_AcceptsNonPresetDuration(t *testing.T) {
	slots, err := SlotsForDay(day(2024, time.January, 1), "09:00", "10:00", 25)
	require.NoError(t, err)
	require.Len(t, slots, 2)
}

func TestSplitRange_SingleSpanningSlot(t *testing.T) {
	start := time.Date(2024, time.March, 5, 13, 0, 0, 0, time.UTC)
	end := start.Add(150 * time.Minute)

	slots, err := SplitRange(start, end, 60, false)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, start, slots[0].Start)
	require.Equal(t, end, slots[0].End)
}

func TestSplitRange_SplitsWithCursor(t *testing.T) {
	start := time.Date(2024, time.March, 5, 13, 0, 0, 0, time.UTC)
	end := start.Add(150 * time.Minute)

	slots, err := SplitRange(start, end, 60, true)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, start, slots[0].Start)
	require.Equal(t, start.Add(2*time.Hour), slots[1].End)
}

func TestSplitRange_RejectsInvertedRange(t *testing.T) {
	start := time.Date(2024, time.March, 5, 13, 0, 0, 0, time.UTC)
	_, err := SplitRange(start, start, 60, false)
	require.Error(t, err)
}

func TestRecurringDates_AnchoredOnOrAfterBase(t *testing.T) {
	// 2024-01-01 is a Monday.
	base := day(2024, time.January, 1)

	dates := RecurringDates(base, []time.Weekday{time.Monday}, 4)
	require.Len(t, dates, 4)
	require.Equal(t, base, dates[0], "base date itself is the first occurrence")
	require.Equal(t, day(2024, time.January, 22), dates[3])

	// A weekday earlier in the week than the base lands in the same week of
	// the following occurrence, never before the base date.
	dates = RecurringDates(base, []time.Weekday{time.Sunday}, 2)
	require.Len(t, dates, 2)
	require.Equal(t, day(2024, time.January, 7), dates[0])
	require.Equal(t, day(2024, time.January, 14), dates[1])
	for _, d := range dates {
		require.False(t, d.Before(base))
	}
}

func TestRecurringDates_MultipleWeekdays(t *testing.T) {
	base := day(2024, time.January, 1)
	dates := RecurringDates(base, []time.Weekday{time.Monday, time.Wednesday}, 3)
	require.Len(t, dates, 6)
	for _, d := range dates {
		wd := d.Weekday()
		require.True(t, wd == time.Monday || wd == time.Wednesday)
	}
}
