package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Join window around an appointment's scheduled time. The same values gate
// the token endpoint, the access-check endpoint and any client affordance so
// the surfaces can never disagree.
const (
	JoinEarly = 15 * time.Minute
	JoinLate  = 30 * time.Minute
)

// WithinCallWindow reports whether now falls inside
// [scheduledAt - JoinEarly, scheduledAt + duration + JoinLate]. Both
// boundaries are inclusive.
func WithinCallWindow(now, scheduledAt time.Time, durationMinutes int) bool {
	opens := scheduledAt.Add(-JoinEarly)
	closes := scheduledAt.Add(time.Duration(durationMinutes)*time.Minute + JoinLate)
	return !now.Before(opens) && !now.After(closes)
}

const appointmentRoomPrefix = "appointment-"

// MeetingRoomName derives the video room name for an appointment. The
// derivation is a pure function of the appointment ID so recomputing it for
// an already-approved appointment always yields the same room.
func MeetingRoomName(appointmentID uint) string {
	return fmt.Sprintf("%s%d", appointmentRoomPrefix, appointmentID)
}

// MeetingURL derives the call page URL for an appointment.
func MeetingURL(appointmentID uint) string {
	return fmt.Sprintf("/call/%s?appointmentId=%d", MeetingRoomName(appointmentID), appointmentID)
}

// AppointmentIDFromRoom extracts the appointment ID from an
// "appointment-{id}" room name. ok is false for any other room.
func AppointmentIDFromRoom(roomName string) (uint, bool) {
	if !strings.HasPrefix(roomName, appointmentRoomPrefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(roomName, appointmentRoomPrefix), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
