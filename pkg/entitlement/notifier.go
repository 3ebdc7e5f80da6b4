package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chatforge/entitlement/pkg/email"
)

// Notifier receives entitlement lifecycle events. Implementations must treat
// delivery as best-effort: the reconciler never waits on or retries them.
type Notifier interface {
	SubscriptionEnded(ctx context.Context, userID uuid.UUID) error
}

// EmailResolver maps a user ID to a deliverable address. Identity data lives
// outside this subsystem, so the mapping is injected.
type EmailResolver func(ctx context.Context, userID uuid.UUID) (string, error)

// EmailNotifier sends revert-to-free notices through an EmailSender.
type EmailNotifier struct {
	sender  email.EmailSender
	resolve EmailResolver
}

// NewEmailNotifier creates an email-backed notifier.
// Panics on nil dependencies to fail fast during initialization.
func NewEmailNotifier(sender email.EmailSender, resolve EmailResolver) *EmailNotifier {
	if sender == nil {
		panic("entitlement: email sender is required")
	}
	if resolve == nil {
		panic("entitlement: email resolver is required")
	}
	return &EmailNotifier{sender: sender, resolve: resolve}
}

func (n *EmailNotifier) SubscriptionEnded(ctx context.Context, userID uuid.UUID) error {
	addr, err := n.resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve email for user %s: %w", userID, err)
	}

	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:  addr,
		Subject: "Your subscription has ended",
		BodyHTML: "<p>Your paid subscription has ended and your account is back on the free plan. " +
			"You can resubscribe at any time from your account settings.</p>",
		Tag: "subscription-ended",
	})
}
