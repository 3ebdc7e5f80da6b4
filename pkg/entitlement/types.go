package entitlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/entitlement/pkg/plan"
)

// Status is the locally persisted subscription status. It mirrors the billing
// provider's vocabulary but only distinguishes the states the reconciler acts
// on; anything other than active is treated as "no paid entitlement".
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusUnpaid   Status = "unpaid"
	StatusPastDue  Status = "past_due"
	StatusNone     Status = "none"
)

// Subscription is the persisted entitlement record. Each user has at most one
// row; the absence of a row is the steady-state representation of the free
// plan, no placeholder rows are kept.
type Subscription struct {
	UserID      uuid.UUID // primary key - one subscription per user
	Plan        plan.Plan
	Status      Status
	BillingRef  string // provider's subscription ID (empty for local-only records)
	PeriodStart time.Time
	PeriodEnd   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive returns true if the subscription grants paid entitlement.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// ExpiredAt reports whether the entitlement window has ended at the given
// time. The boundary itself counts as expired: a request landing exactly on
// PeriodEnd triggers renewal rather than consuming from the old window.
func (s *Subscription) ExpiredAt(now time.Time) bool {
	return !now.Before(s.PeriodEnd)
}

// Usage is the persisted per-window counter of quota-consuming actions.
// Its window fields are kept in lock-step with the paired Subscription row.
type Usage struct {
	UserID      uuid.UUID // primary key - one counter per user
	Used        int64
	Limit       int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	UpdatedAt   time.Time
}

// Remaining returns the number of actions left in the current window.
func (u *Usage) Remaining() int64 {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// UsageLimits is the reconciled view of a user's entitlement window returned
// by every read path.
type UsageLimits struct {
	CanConsume bool
	Used       int64
	Limit      int64
	PeriodEnd  *time.Time // nil for free users with no window
}

// Remaining returns the number of actions left in the window.
func (l UsageLimits) Remaining() int64 {
	if l.Used >= l.Limit {
		return 0
	}
	return l.Limit - l.Used
}

// SyncOutcome describes the result of a provider synchronization pass.
type SyncOutcome string

const (
	OutcomeNoSubscription SyncOutcome = "no_subscription"
	OutcomeSynced         SyncOutcome = "synced"
	OutcomeRevertedToFree SyncOutcome = "reverted_to_free"
)
