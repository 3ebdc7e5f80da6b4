package entitlement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/entitlement/pkg/email"
	"github.com/chatforge/entitlement/pkg/entitlement"
)

type captureSender struct {
	sent []email.SendEmailParams
	err  error
}

func (c *captureSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, params)
	return nil
}

func TestEmailNotifier_SubscriptionEnded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sends to the resolved address", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := entitlement.NewEmailNotifier(sender,
			func(ctx context.Context, userID uuid.UUID) (string, error) {
				return "user@example.com", nil
			})

		require.NoError(t, notifier.SubscriptionEnded(ctx, uuid.New()))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "user@example.com", sender.sent[0].SendTo)
		assert.Equal(t, "subscription-ended", sender.sent[0].Tag)
		assert.NotEmpty(t, sender.sent[0].Subject)
	})

	t.Run("resolver failure is surfaced", func(t *testing.T) {
		t.Parallel()

		resolveErr := errors.New("user not found")
		notifier := entitlement.NewEmailNotifier(&captureSender{},
			func(ctx context.Context, userID uuid.UUID) (string, error) {
				return "", resolveErr
			})

		err := notifier.SubscriptionEnded(ctx, uuid.New())
		assert.ErrorIs(t, err, resolveErr)
	})

	t.Run("panics on nil dependencies", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { entitlement.NewEmailNotifier(nil, nil) })
	})
}
