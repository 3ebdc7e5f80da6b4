package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/entitlement/pkg/plan"
)

func TestQuota(t *testing.T) {
	t.Parallel()

	t.Run("known plans", func(t *testing.T) {
		t.Parallel()

		cases := map[plan.Plan]int64{
			plan.Free:     0,
			plan.Pro:      500,
			plan.UltraPro: 2000,
		}

		for p, want := range cases {
			got, err := plan.Quota(p)
			require.NoError(t, err)
			assert.Equal(t, want, got, "plan %s", p)
		}
	})

	t.Run("unknown plan yields zero quota", func(t *testing.T) {
		t.Parallel()

		got, err := plan.Quota("enterprise")
		require.ErrorIs(t, err, plan.ErrInvalidPlan)
		assert.Zero(t, got, "unknown plans must never be granted quota")
	})

	t.Run("empty plan yields zero quota", func(t *testing.T) {
		t.Parallel()

		got, err := plan.Quota("")
		require.ErrorIs(t, err, plan.ErrInvalidPlan)
		assert.Zero(t, got)
	})
}

func TestPlanValid(t *testing.T) {
	t.Parallel()

	assert.True(t, plan.Free.Valid())
	assert.True(t, plan.Pro.Valid())
	assert.True(t, plan.UltraPro.Valid())
	assert.False(t, plan.Plan("ultra").Valid())
	assert.False(t, plan.Plan("").Valid())
}
