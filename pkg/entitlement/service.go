package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/entitlement/pkg/billing"
	"github.com/chatforge/entitlement/pkg/logger"
	"github.com/chatforge/entitlement/pkg/plan"
)

// DefaultSweepGrace is how long past its period end an active subscription
// must sit untouched before the cleanup sweep may delete it. The delay exists
// to avoid racing a webhook or lazy reconciliation that is concurrently
// renewing the same window.
const DefaultSweepGrace = 5 * time.Minute

// Service is the entitlement reconciler: the single authoritative definition
// of "expired" shared by the lazy usage gate, the manual reset path, the
// provider sync path, and the cleanup sweep. All coordination happens through
// the Store's single-row conditional writes; the service itself is stateless
// and safe for concurrent use.
type Service struct {
	store    Store
	provider billing.Provider
	now      func() time.Time
	grace    time.Duration
	cooldown Cooldown
	notifier Notifier
	log      *slog.Logger
}

// NewService creates the entitlement service.
// Panics if store or provider is nil to fail fast during initialization.
func NewService(store Store, provider billing.Provider, opts ...ServiceOption) *Service {
	if store == nil {
		panic("entitlement: Store is required")
	}
	if provider == nil {
		panic("entitlement: billing.Provider is required")
	}

	s := &Service{
		store:    store,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
		grace:    DefaultSweepGrace,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Reconcile brings a user's stored entitlement window up to date and returns
// the resulting limits. It is idempotent: two consecutive calls with no
// intervening consumption yield the same used/limit/period values.
//
// The decision sequence:
//  1. no subscription row -> free plan, zero quota
//  2. non-active status   -> drop both rows, free plan
//  3. window still open   -> correct a drifted limit in place, return as-is
//  4. window expired      -> renew anchored to now, reset the counter
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID) (UsageLimits, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return freeLimits(), nil
		}
		return freeLimits(), err
	}

	if !sub.IsActive() {
		// Cancellation already reflected locally; finish the revert.
		if err := s.dropRecords(ctx, userID); err != nil {
			return freeLimits(), err
		}
		return freeLimits(), nil
	}

	now := s.now()
	if sub.ExpiredAt(now) {
		return s.renew(ctx, sub, now)
	}

	limit := s.quotaFor(ctx, sub.Plan)

	usage, err := s.store.GetUsage(ctx, userID)
	switch {
	case errors.Is(err, ErrUsageNotFound):
		// Counter row lost or never written; recreate it in lock-step with
		// the subscription window without granting a fresh period.
		usage = &Usage{
			UserID:      userID,
			Used:        0,
			Limit:       limit,
			PeriodStart: sub.PeriodStart,
			PeriodEnd:   sub.PeriodEnd,
			UpdatedAt:   now,
		}
		if err := s.store.UpsertUsage(ctx, usage); err != nil {
			return freeLimits(), err
		}
	case err != nil:
		return freeLimits(), err
	case usage.Limit != limit:
		// Plan changed mid-window: correct the limit, keep used as-is.
		usage.Limit = limit
		usage.UpdatedAt = now
		if err := s.store.UpsertUsage(ctx, usage); err != nil {
			return freeLimits(), err
		}
	}

	periodEnd := sub.PeriodEnd
	return UsageLimits{
		CanConsume: usage.Used < usage.Limit,
		Used:       usage.Used,
		Limit:      usage.Limit,
		PeriodEnd:  &periodEnd,
	}, nil
}

// CheckLimit returns the up-to-date entitlement window without consuming.
func (s *Service) CheckLimit(ctx context.Context, userID uuid.UUID) (UsageLimits, error) {
	return s.Reconcile(ctx, userID)
}

// ConsumeOne reconciles the window and then consumes a single action. The
// increment is a conditional store write, so two racing calls at the quota
// boundary can never both succeed. Returns whether the action was consumed.
func (s *Service) ConsumeOne(ctx context.Context, userID uuid.UUID) (bool, error) {
	limits, err := s.Reconcile(ctx, userID)
	if err != nil {
		return false, err
	}
	if !limits.CanConsume {
		return false, nil
	}

	return s.store.IncrementUsage(ctx, userID, s.now())
}

// ResetManually forces a fresh window starting now, independent of the
// natural expiry check. Requires an active subscription; free accounts have
// nothing to reset.
func (s *Service) ResetManually(ctx context.Context, userID uuid.UUID) (UsageLimits, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return freeLimits(), ErrNoActiveSubscription
		}
		return freeLimits(), err
	}
	if !sub.IsActive() {
		return freeLimits(), ErrNoActiveSubscription
	}

	return s.renew(ctx, sub, s.now())
}

// SyncWithProvider reconciles local records against the billing provider's
// authoritative subscription object. Used when local state may have drifted,
// e.g. after a missed webhook. A provider outage surfaces as an error and
// leaves local state untouched: only an explicit terminal status or a missing
// provider record triggers a revert.
func (s *Service) SyncWithProvider(ctx context.Context, userID uuid.UUID) (SyncOutcome, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return OutcomeNoSubscription, nil
		}
		return OutcomeNoSubscription, err
	}
	if sub.BillingRef == "" {
		// Local-only record with nothing to compare against.
		return OutcomeNoSubscription, nil
	}

	if s.cooldown != nil {
		ok, err := s.cooldown.Acquire(ctx, userID)
		if err != nil {
			// A broken cooldown backend must not block the corrective path.
			s.log.WarnContext(ctx, "sync cooldown unavailable, proceeding",
				logger.UserID(userID), logger.Error(err))
		} else if !ok {
			return OutcomeSynced, ErrSyncCooldown
		}
	}

	remote, err := s.provider.GetSubscription(ctx, sub.BillingRef)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			// The provider no longer knows this subscription at all.
			return s.revertToFree(ctx, userID)
		}
		return OutcomeSynced, err
	}

	if remote.Status.Terminal() {
		return s.revertToFree(ctx, userID)
	}

	return OutcomeSynced, nil
}

// Sweep deletes entitlement records whose window expired longer than the
// grace period ago. Each row's deletion is independent and idempotent, so an
// interrupted sweep is safe to rerun. The sweep never renews a window;
// renewal only happens through the lazy Reconcile path.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)

	expired, err := s.store.ListExpiredActive(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, userID := range expired {
		if err := s.dropRecords(ctx, userID); err != nil {
			s.log.ErrorContext(ctx, "sweep failed to delete entitlement records",
				logger.UserID(userID), logger.Error(err))
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		s.log.InfoContext(ctx, "cleanup sweep finished",
			slog.Int("cleaned", cleaned), slog.Time("cutoff", cutoff))
	}
	return cleaned, nil
}

// renew writes a fresh window anchored to now for both records and returns
// the refreshed limits. Shared by expiry-triggered renewal and manual reset.
func (s *Service) renew(ctx context.Context, sub *Subscription, now time.Time) (UsageLimits, error) {
	limit := s.quotaFor(ctx, sub.Plan)
	periodEnd := now.AddDate(0, 1, 0)

	sub.PeriodStart = now
	sub.PeriodEnd = periodEnd
	sub.UpdatedAt = now
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return freeLimits(), err
	}

	usage := &Usage{
		UserID:      sub.UserID,
		Used:        0,
		Limit:       limit,
		PeriodStart: now,
		PeriodEnd:   periodEnd,
		UpdatedAt:   now,
	}
	if err := s.store.UpsertUsage(ctx, usage); err != nil {
		return freeLimits(), err
	}

	return UsageLimits{
		CanConsume: limit > 0,
		Used:       0,
		Limit:      limit,
		PeriodEnd:  &periodEnd,
	}, nil
}

func (s *Service) revertToFree(ctx context.Context, userID uuid.UUID) (SyncOutcome, error) {
	if err := s.dropRecords(ctx, userID); err != nil {
		return OutcomeSynced, err
	}
	s.notifyReverted(ctx, userID)
	return OutcomeRevertedToFree, nil
}

// dropRecords deletes both entitlement rows. The usage counter goes first so
// a partial failure leaves the subscription row in place to be retried; the
// reconciler recreates a missing counter but never resurrects a subscription.
func (s *Service) dropRecords(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.DeleteUsage(ctx, userID); err != nil {
		return err
	}
	return s.store.DeleteSubscription(ctx, userID)
}

// quotaFor resolves the plan quota, degrading unknown plans to zero quota.
func (s *Service) quotaFor(ctx context.Context, p plan.Plan) int64 {
	quota, err := plan.Quota(p)
	if err != nil {
		s.log.ErrorContext(ctx, "unknown plan in subscription record, treating as zero quota",
			slog.String("plan", p.String()), logger.Error(err))
		return 0
	}
	return quota
}

// notifyReverted dispatches the revert notification without blocking the
// reconciliation path. Delivery failures are logged and otherwise ignored.
func (s *Service) notifyReverted(ctx context.Context, userID uuid.UUID) {
	if s.notifier == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.SubscriptionEnded(ctx, userID); err != nil {
			s.log.WarnContext(ctx, "failed to send subscription-ended notification",
				logger.UserID(userID), logger.Error(err))
		}
	}()
}

func freeLimits() UsageLimits {
	return UsageLimits{CanConsume: false, Used: 0, Limit: 0, PeriodEnd: nil}
}
