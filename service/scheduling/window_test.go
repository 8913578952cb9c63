package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithinCallWindow_Boundaries(t *testing.T) {
	scheduled := time.Date(2024, time.April, 10, 14, 0, 0, 0, time.UTC)
	duration := 60

	// Inclusive boundaries: exactly 15 minutes before and exactly
	// duration+30 minutes after are both allowed.
	require.True(t, WithinCallWindow(scheduled.Add(-15*time.Minute), scheduled, duration))
	require.True(t, WithinCallWindow(scheduled.Add(90*time.Minute), scheduled, duration))

	// One minute outside either boundary is denied.
	require.False(t, WithinCallWindow(scheduled.Add(-16*time.Minute), scheduled, duration))
	require.False(t, WithinCallWindow(scheduled.Add(91*time.Minute), scheduled, duration))

	require.True(t, WithinCallWindow(scheduled, scheduled, duration))
	require.True(t, WithinCallWindow(scheduled.Add(30*time.Minute), scheduled, duration))
}

func TestWithinCallWindow_DurationShiftsClose(t *testing.T) {
	scheduled := time.Date(2024, time.April, 10, 9, 0, 0, 0, time.UTC)

	require.True(t, WithinCallWindow(scheduled.Add(60*time.Minute), scheduled, 30))
	require.False(t, WithinCallWindow(scheduled.Add(61*time.Minute), scheduled, 30))
	require.True(t, WithinCallWindow(scheduled.Add(150*time.Minute), scheduled, 120))
}

func TestMeetingRoomDerivation_Idempotent(t *testing.T) {
	require.Equal(t, "appointment-42", MeetingRoomName(42))
	require.Equal(t, MeetingRoomName(42), MeetingRoomName(42))
	require.Equal(t, "/call/appointment-42?appointmentId=42", MeetingURL(42))
	require.Equal(t, MeetingURL(42), MeetingURL(42))
}

func TestAppointmentIDFromRoom(t *testing.T) {
	id, ok := AppointmentIDFromRoom("appointment-42")
	require.True(t, ok)
	require.Equal(t, uint(42), id)

	id, ok = AppointmentIDFromRoom(MeetingRoomName(7))
	require.True(t, ok)
	require.Equal(t, uint(7), id)

	_, ok = AppointmentIDFromRoom("expert-3-1700000000")
	require.False(t, ok)

	_, ok = AppointmentIDFromRoom("appointment-")
	require.False(t, ok)

	_, ok = AppointmentIDFromRoom("appointment-abc")
	require.False(t, ok)
}
