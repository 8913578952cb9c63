package scheduling

import (
	"testing"

	"github.com/Arnack/wisely-2/cmd/models"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition_Lifecycle(t *testing.T) {
	require.NoError(t, ValidateTransition(models.AppointmentPending, models.AppointmentApproved))
	require.NoError(t, ValidateTransition(models.AppointmentPending, models.AppointmentDeclined))
	require.NoError(t, ValidateTransition(models.AppointmentApproved, models.AppointmentCompleted))
	require.NoError(t, ValidateTransition(models.AppointmentApproved, models.AppointmentCancelled))
}

func TestValidateTransition_IllegalMoves(t *testing.T) {
	require.Error(t, ValidateTransition(models.AppointmentPending, models.AppointmentCompleted))
	require.Error(t, ValidateTransition(models.AppointmentPending, models.AppointmentCancelled))
	require.Error(t, ValidateTransition(models.AppointmentApproved, models.AppointmentDeclined))
	require.Error(t, ValidateTransition(models.AppointmentApproved, models.AppointmentPending))
	require.Error(t, ValidateTransition(models.AppointmentDeclined, models.AppointmentApproved))
}

func TestValidateTransition_TerminalStates(t *testing.T) {
	for _, terminal := range []string{
		models.AppointmentDeclined,
		models.AppointmentCompleted,
		models.AppointmentCancelled,
	} {
		require.True(t, IsTerminal(terminal))
		for _, to := range []string{
			models.AppointmentPending,
			models.AppointmentApproved,
			models.AppointmentDeclined,
			models.AppointmentCompleted,
			models.AppointmentCancelled,
		} {
			require.Error(t, ValidateTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}

	require.False(t, IsTerminal(models.AppointmentPending))
	require.False(t, IsTerminal(models.AppointmentApproved))
}
