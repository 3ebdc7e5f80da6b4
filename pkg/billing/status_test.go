package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatforge/entitlement/pkg/billing"
)

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := []billing.Status{
		billing.StatusCanceled,
		billing.StatusIncompleteExpired,
		billing.StatusUnpaid,
		billing.StatusPastDue,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "status %s", s)
	}

	nonTerminal := []billing.Status{
		billing.StatusActive,
		billing.StatusTrialing,
		billing.StatusPaused,
		billing.StatusIncomplete,
		billing.StatusUnknown,
	}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "status %s must not trigger a revert", s)
	}
}

func TestStatusPaying(t *testing.T) {
	t.Parallel()

	assert.True(t, billing.StatusActive.Paying())
	assert.True(t, billing.StatusTrialing.Paying())
	assert.False(t, billing.StatusPaused.Paying())
	assert.False(t, billing.StatusCanceled.Paying())
	assert.False(t, billing.StatusUnknown.Paying())
}
