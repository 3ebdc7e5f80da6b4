package billing

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("billing: subscription not found at provider")
	ErrProviderUnavailable  = errors.New("billing: provider request failed")
	ErrMissingAPIKey        = errors.New("billing: provider API key is required")
	ErrMissingBillingRef    = errors.New("billing: subscription reference is required")
)
