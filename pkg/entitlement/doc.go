// Package entitlement keeps a per-user entitlement window (plan, quota,
// period boundaries) consistent across three independently updated sources of
// truth: the billing provider's subscription object, the persisted
// subscription record, and the persisted usage counter.
//
// # Architecture
//
// The package centers on a single Service whose Reconcile method is the one
// authoritative transition function for entitlement state. Every caller
// shares it:
//
//   - CheckLimit / ConsumeOne: the lazy request-time usage gate
//   - ResetManually: the administrative window reset
//   - SyncWithProvider: the on-demand authoritative-source override
//   - Sweep: the scheduled bulk cleanup of long-expired windows
//
// State lives exclusively in the Store; handlers are stateless and short
// lived, and concurrent invocations coordinate only through the store's
// single-row conditional writes. Two implementations are provided: a
// Postgres store on pgx and an in-memory store for tests.
//
// # Consistency rules
//
// A missing subscription row is the canonical representation of the free
// plan. Renewal is always anchored to the current time at expiry, the
// period-end boundary counts as expired, and the usage counter resets exactly
// once per window transition. Reverting a user to free requires an explicit
// signal - a terminal provider status, a provider-confirmed deletion, or a
// local expiry older than the sweep grace period. Store or provider outages
// surface as errors and never degrade into a revert.
//
// # Usage
//
//	store := entitlement.NewPostgresStore(pool)
//	svc := entitlement.NewService(store, provider,
//		entitlement.WithSyncCooldown(entitlement.NewRedisCooldown(rdb, 10*time.Minute)),
//	)
//
//	limits, err := svc.CheckLimit(ctx, userID)
//	ok, err := svc.ConsumeOne(ctx, userID)
package entitlement
