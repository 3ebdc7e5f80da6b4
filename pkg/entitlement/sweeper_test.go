package entitlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/entitlement/pkg/entitlement"
	"github.com/chatforge/entitlement/pkg/plan"
)

func TestSweeper_Start(t *testing.T) {
	t.Parallel()

	t.Run("first pass runs immediately and stops on cancel", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		stale := seedUser(t, store, plan.Pro, 10,
			testNow.AddDate(0, -1, 0), testNow.Add(-time.Hour))

		svc := newService(store)
		sweeper := entitlement.NewSweeper(svc, entitlement.SweeperConfig{Interval: time.Hour}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- sweeper.Start(ctx) }()

		// The immediate pass removes the stale row without waiting a full
		// interval.
		require.Eventually(t, func() bool {
			_, err := store.GetSubscription(context.Background(), stale)
			return err != nil
		}, time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop after cancel")
		}
	})

	t.Run("panics on nil service", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			entitlement.NewSweeper(nil, entitlement.SweeperConfig{}, nil)
		})
	})
}
