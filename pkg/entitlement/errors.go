package entitlement

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("entitlement: subscription not found")
	ErrUsageNotFound        = errors.New("entitlement: usage counter not found")
	ErrNoActiveSubscription = errors.New("entitlement: no active subscription")
	ErrStoreUnavailable     = errors.New("entitlement: store operation failed")
	ErrSyncCooldown         = errors.New("entitlement: provider sync attempted too soon")
)
