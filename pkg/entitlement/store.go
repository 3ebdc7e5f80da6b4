package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the persistence contract for entitlement records. All
// operations are keyed by user ID and must provide read-your-writes
// consistency for a single caller.
//
// Deletes are idempotent: removing an absent row is not an error. This keeps
// partial sweeps and concurrent reverts safe without coordination.
type Store interface {
	// GetSubscription retrieves a subscription by user ID.
	// Returns ErrSubscriptionNotFound if no row exists.
	GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// UpsertSubscription creates or replaces the subscription row.
	UpsertSubscription(ctx context.Context, sub *Subscription) error

	// DeleteSubscription removes the subscription row if present.
	DeleteSubscription(ctx context.Context, userID uuid.UUID) error

	// GetUsage retrieves a usage counter by user ID.
	// Returns ErrUsageNotFound if no row exists.
	GetUsage(ctx context.Context, userID uuid.UUID) (*Usage, error)

	// UpsertUsage creates or replaces the usage counter row.
	UpsertUsage(ctx context.Context, usage *Usage) error

	// DeleteUsage removes the usage counter row if present.
	DeleteUsage(ctx context.Context, userID uuid.UUID) error

	// IncrementUsage atomically consumes one action from the current window.
	// The check and the increment are a single conditional write: the counter
	// advances only while used < limit and the window is still open at now.
	// Returns false without error when the guard rejects the increment, so
	// two racing requests at the quota boundary can never both succeed.
	IncrementUsage(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)

	// ListExpiredActive returns user IDs of active subscriptions whose window
	// ended before cutoff and whose last write is also older than cutoff.
	// Both conditions must hold: a freshly renewed row is never a candidate
	// even if a stale reader still sees the old period.
	ListExpiredActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}
