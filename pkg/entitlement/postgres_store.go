package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatforge/entitlement/pkg/pg"
	"github.com/chatforge/entitlement/pkg/plan"
)

// PostgresStore implements Store on a pgx connection pool. Single-row
// conditional updates give the concurrency guarantees the reconciler relies
// on; no explicit transactions are needed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed entitlement store.
// Panics on a nil pool to fail fast during initialization.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("entitlement: pgx pool is required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	const query = `
		SELECT user_id, plan, status, COALESCE(billing_ref, ''), period_start, period_end, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1`

	var sub Subscription
	var planID, status string
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&sub.UserID, &planID, &status,
		&sub.BillingRef, &sub.PeriodStart, &sub.PeriodEnd,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	sub.Plan = plan.Plan(planID)
	sub.Status = Status(status)
	return &sub, nil
}

func (s *PostgresStore) UpsertSubscription(ctx context.Context, sub *Subscription) error {
	const query = `
		INSERT INTO subscriptions (user_id, plan, status, billing_ref, period_start, period_end, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			billing_ref = EXCLUDED.billing_ref,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		sub.UserID, string(sub.Plan), string(sub.Status),
		sub.BillingRef, sub.PeriodStart, sub.PeriodEnd,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) DeleteSubscription(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE user_id = $1`, userID); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetUsage(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	const query = `
		SELECT user_id, used, usage_limit, period_start, period_end, updated_at
		FROM usage_counters
		WHERE user_id = $1`

	var usage Usage
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&usage.UserID, &usage.Used, &usage.Limit,
		&usage.PeriodStart, &usage.PeriodEnd, &usage.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUsageNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return &usage, nil
}

func (s *PostgresStore) UpsertUsage(ctx context.Context, usage *Usage) error {
	const query = `
		INSERT INTO usage_counters (user_id, used, usage_limit, period_start, period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			used = EXCLUDED.used,
			usage_limit = EXCLUDED.usage_limit,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		usage.UserID, usage.Used, usage.Limit,
		usage.PeriodStart, usage.PeriodEnd, usage.UpdatedAt,
	)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) DeleteUsage(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM usage_counters WHERE user_id = $1`, userID); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// IncrementUsage relies on a conditional UPDATE so the quota check and the
// increment happen in one round trip. RowsAffected distinguishes "consumed"
// from "guard rejected" without a second read.
func (s *PostgresStore) IncrementUsage(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	const query = `
		UPDATE usage_counters
		SET used = used + 1, updated_at = $2
		WHERE user_id = $1 AND used < usage_limit AND period_end > $2`

	tag, err := s.pool.Exec(ctx, query, userID, now)
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ListExpiredActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	const query = `
		SELECT user_id
		FROM subscriptions
		WHERE status = $1 AND period_end < $2 AND updated_at < $2`

	rows, err := s.pool.Query(ctx, query, string(StatusActive), cutoff)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var expired []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
		expired = append(expired, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return expired, nil
}
