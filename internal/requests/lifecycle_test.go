package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []string{
	StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled,
}

func TestTerminalStatesAcceptNoTransitions(t *testing.T) {
	for _, terminal := range []string{StatusCompleted, StatusCancelled} {
		for _, to := range allStatuses {
			assert.False(t, CanTransition(terminal, to),
				"terminal %s must not transition to %s", terminal, to)
		}
	}
}

func TestLegalTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusInProgress))
	assert.True(t, CanTransition(StatusPending, StatusAccepted))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusAccepted, StatusInProgress))
	assert.True(t, CanTransition(StatusAccepted, StatusCancelled))
	assert.True(t, CanTransition(StatusInProgress, StatusCompleted))
	assert.True(t, CanTransition(StatusInProgress, StatusCancelled))

	assert.False(t, CanTransition(StatusInProgress, StatusPending))
	assert.False(t, CanTransition(StatusPending, StatusCompleted))
	assert.False(t, CanTransition("bogus", StatusPending))
}

func TestRequesterStepIsTotalAndDeterministic(t *testing.T) {
	expected := map[string]int{
		StatusPending:    1,
		StatusAccepted:   3,
		StatusInProgress: 4,
		StatusCompleted:  4,
		StatusCancelled:  0,
	}
	for status, step := range expected {
		assert.Equal(t, step, RequesterStep(status), "status %s", status)
		assert.Equal(t, RequesterStep(status), RequesterStep(status))
	}
	// Unknown statuses default to the first step.
	assert.Equal(t, 1, RequesterStep("unknown"))
	assert.Equal(t, 1, RequesterStep(""))
}

func TestMechanicStepIsTotalAndDeterministic(t *testing.T) {
	expected := map[string]int{
		StatusPending:    0,
		StatusAccepted:   1,
		StatusInProgress: 2,
		StatusCompleted:  3,
		StatusCancelled:  0,
	}
	for status, step := range expected {
		assert.Equal(t, step, MechanicStep(status), "status %s", status)
	}
	assert.Equal(t, 0, MechanicStep("unknown"))
	assert.Equal(t, 0, MechanicStep(""))
}

func TestIsOpen(t *testing.T) {
	assert.True(t, IsOpen(StatusPending))
	assert.True(t, IsOpen(StatusAccepted))
	assert.True(t, IsOpen(StatusInProgress))
	assert.False(t, IsOpen(StatusCompleted))
	assert.False(t, IsOpen(StatusCancelled))
	assert.False(t, IsOpen("unknown"))
}
