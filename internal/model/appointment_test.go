package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
		AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
		AppointmentStatusCompleted: {},
		AppointmentStatusCancelled: {},
	}

	all := []AppointmentStatus{
		AppointmentStatusPending,
		AppointmentStatusConfirmed,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	}

	for from, targets := range allowed {
		ok := make(map[AppointmentStatus]bool)
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			assert.Equal(t, ok[to], from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, AppointmentStatusPending.Terminal())
	assert.False(t, AppointmentStatusConfirmed.Terminal())
	assert.True(t, AppointmentStatusCompleted.Terminal())
	assert.True(t, AppointmentStatusCancelled.Terminal())
}
