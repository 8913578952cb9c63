package scheduling

import (
	"fmt"

	"github.com/Arnack/wisely-2/cmd/models"
)

// legalTransitions is the whole appointment lifecycle. Statuses missing from
// the map are terminal.
var legalTransitions = map[string][]string{
	models.AppointmentPending:  {models.AppointmentApproved, models.AppointmentDeclined},
	models.AppointmentApproved: {models.AppointmentCompleted, models.AppointmentCancelled},
}

// CanTransition reports whether an appointment may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition rejects illegal status changes. Every status-changing
// write goes through this check rather than trusting the caller to only offer
// legal actions.
func ValidateTransition(from, to string) error {
	if IsTerminal(from) {
		return fmt.Errorf("appointment is already %s", from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("cannot change appointment from %s to %s", from, to)
	}
	return nil
}

// IsTerminal reports whether a status admits no further transition.
func IsTerminal(status string) bool {
	return len(legalTransitions[status]) == 0
}
