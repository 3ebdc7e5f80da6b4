package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey      string `env:"PADDLE_API_KEY,required"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle.
//
// Paddle never deletes subscription objects; a subscription that stopped
// paying is reported with a terminal status instead of a 404, so the
// not-found path of the Provider contract does not occur in practice here.
type PaddleProvider struct {
	client *paddle.SDK
}

// NewPaddleProvider creates a Paddle-backed billing provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var sdk *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		sdk, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		sdk, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{client: sdk}, nil
}

// GetSubscription retrieves a subscription from Paddle and normalizes it.
func (p *PaddleProvider) GetSubscription(ctx context.Context, billingRef string) (*Sub, error) {
	if billingRef == "" {
		return nil, ErrMissingBillingRef
	}

	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: billingRef,
	})
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, fmt.Errorf("get subscription %s: %w", billingRef, err))
	}

	return &Sub{
		ID:               sub.ID,
		Status:           mapPaddleStatus(string(sub.Status)),
		CurrentPeriodEnd: paddlePeriodEnd(sub),
	}, nil
}

// CancelSubscription cancels the referenced subscription immediately.
func (p *PaddleProvider) CancelSubscription(ctx context.Context, billingRef string) error {
	if billingRef == "" {
		return ErrMissingBillingRef
	}

	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: billingRef,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromImmediately),
	})
	if err != nil {
		return errors.Join(ErrProviderUnavailable, fmt.Errorf("cancel subscription %s: %w", billingRef, err))
	}
	return nil
}

func mapPaddleStatus(status string) Status {
	switch status {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "paused":
		return StatusPaused
	case "canceled":
		return StatusCanceled
	case "past_due":
		return StatusPastDue
	}
	return StatusUnknown
}

func paddlePeriodEnd(sub *paddle.Subscription) time.Time {
	if sub.CurrentBillingPeriod == nil {
		return time.Time{}
	}
	end, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt)
	if err != nil {
		return time.Time{}
	}
	return end.UTC()
}
