package billing

import (
	"context"
	"time"
)

// Provider defines the minimal read/cancel surface the entitlement core needs
// from a payment provider. The provider remains the authoritative source of
// subscription status; local records are a mirror that may drift (e.g. after
// a missed webhook) and is corrected through this interface.
//
// Implementations should use official provider SDKs and normalize
// provider-specific status vocabularies into the Status set defined here.
type Provider interface {
	// GetSubscription fetches the provider's current view of a subscription.
	// Returns ErrSubscriptionNotFound when the provider no longer knows the
	// reference. Transport or API failures are returned wrapped with
	// ErrProviderUnavailable and must never be treated as "not found".
	GetSubscription(ctx context.Context, billingRef string) (*Sub, error)

	// CancelSubscription requests cancellation of the referenced subscription.
	CancelSubscription(ctx context.Context, billingRef string) error
}

// Sub is the normalized provider-side subscription snapshot.
type Sub struct {
	ID               string
	Status           Status
	CurrentPeriodEnd time.Time // zero when the provider does not report one
}

// Status is the normalized provider subscription status.
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPaused            Status = "paused"
	StatusIncomplete        Status = "incomplete"
	StatusCanceled          Status = "canceled"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
	StatusPastDue           Status = "past_due"
	StatusUnknown           Status = "unknown"
)

// Terminal reports whether the status means the customer is no longer paying
// and local entitlement records should be dropped. Anything ambiguous
// (including unknown statuses) is non-terminal: reverting a user to free
// requires an explicit signal, not the absence of one.
func (s Status) Terminal() bool {
	switch s {
	case StatusCanceled, StatusIncompleteExpired, StatusUnpaid, StatusPastDue:
		return true
	}
	return false
}

// Paying reports whether the status entitles the customer to paid quota.
func (s Status) Paying() bool {
	return s == StatusActive || s == StatusTrialing
}
