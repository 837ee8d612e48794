package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(CheckoutStatusInitiated, CheckoutStatusPaymentPending))
	assert.True(t, CanTransitionTo(CheckoutStatusInitiated, CheckoutStatusPaymentCompleted))
	assert.True(t, CanTransitionTo(CheckoutStatusPaymentPending, CheckoutStatusPaymentCompleted))
	assert.True(t, CanTransitionTo(CheckoutStatusPaymentCompleted, CheckoutStatusCompleted))
	assert.True(t, CanTransitionTo(CheckoutStatusPaymentCompleted, CheckoutStatusFailed))

	// no skipping forward, no leaving terminal states
	assert.False(t, CanTransitionTo(CheckoutStatusInitiated, CheckoutStatusCompleted))
	assert.False(t, CanTransitionTo(CheckoutStatusCompleted, CheckoutStatusFailed))
	assert.False(t, CanTransitionTo(CheckoutStatusFailed, CheckoutStatusInitiated))
	assert.False(t, CanTransitionTo(CheckoutStatusPaymentPending, CheckoutStatusInitiated))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, CheckoutStatusCompleted.IsTerminal())
	assert.True(t, CheckoutStatusFailed.IsTerminal())
	assert.False(t, CheckoutStatusInitiated.IsTerminal())
	assert.False(t, CheckoutStatusPaymentPending.IsTerminal())
	assert.False(t, CheckoutStatusPaymentCompleted.IsTerminal())
}
