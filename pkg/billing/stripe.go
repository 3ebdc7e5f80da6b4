package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeConfig holds configuration for the Stripe billing provider.
type StripeConfig struct {
	SecretKey string `env:"STRIPE_SECRET_KEY,required"`
}

// StripeProvider implements Provider for Stripe.
type StripeProvider struct {
	client *client.API
}

// NewStripeProvider creates a Stripe-backed billing provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}

	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)

	return &StripeProvider{client: sc}, nil
}

// GetSubscription retrieves a subscription from Stripe and normalizes it.
// A 404 from Stripe maps to ErrSubscriptionNotFound; every other failure is
// wrapped with ErrProviderUnavailable so callers never confuse an outage with
// a confirmed deletion.
func (p *StripeProvider) GetSubscription(ctx context.Context, billingRef string) (*Sub, error) {
	if billingRef == "" {
		return nil, ErrMissingBillingRef
	}

	params := &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}}
	s, err := p.client.Subscriptions.Get(billingRef, params)
	if err != nil {
		if isStripeNotFound(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, errors.Join(ErrProviderUnavailable, fmt.Errorf("get subscription %s: %w", billingRef, err))
	}

	return &Sub{
		ID:               s.ID,
		Status:           mapStripeStatus(string(s.Status)),
		CurrentPeriodEnd: stripePeriodEnd(s),
	}, nil
}

// CancelSubscription cancels the referenced subscription immediately.
func (p *StripeProvider) CancelSubscription(ctx context.Context, billingRef string) error {
	if billingRef == "" {
		return ErrMissingBillingRef
	}

	params := &stripe.SubscriptionCancelParams{Params: stripe.Params{Context: ctx}}
	if _, err := p.client.Subscriptions.Cancel(billingRef, params); err != nil {
		if isStripeNotFound(err) {
			// Already gone at the provider, which is the desired end state.
			return nil
		}
		return errors.Join(ErrProviderUnavailable, fmt.Errorf("cancel subscription %s: %w", billingRef, err))
	}
	return nil
}

func isStripeNotFound(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode == http.StatusNotFound ||
		stripeErr.Code == stripe.ErrorCodeResourceMissing
}

func mapStripeStatus(status string) Status {
	switch status {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "paused":
		return StatusPaused
	case "incomplete":
		return StatusIncomplete
	case "canceled":
		return StatusCanceled
	case "incomplete_expired":
		return StatusIncompleteExpired
	case "unpaid":
		return StatusUnpaid
	case "past_due":
		return StatusPastDue
	}
	return StatusUnknown
}

// stripePeriodEnd extracts the current billing period end. Stripe reports the
// period on subscription items; a multi-item subscription uses the latest end.
func stripePeriodEnd(s *stripe.Subscription) time.Time {
	var end int64
	if s.Items != nil {
		for _, item := range s.Items.Data {
			if item != nil && item.CurrentPeriodEnd > end {
				end = item.CurrentPeriodEnd
			}
		}
	}
	if end == 0 {
		return time.Time{}
	}
	return time.Unix(end, 0).UTC()
}
