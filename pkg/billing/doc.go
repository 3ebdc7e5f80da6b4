// Package billing abstracts the payment provider behind a minimal read/cancel
// interface used by the entitlement reconciler.
//
// The provider owns the subscription lifecycle; this package only mirrors it.
// Two adapters are included: Stripe (the default) and Paddle. Both normalize
// provider status vocabularies into a single Status set with an explicit
// Terminal predicate, so the reconciler never has to know which provider is
// behind a billing reference.
//
// Failure semantics matter more than features here: a transport or API
// failure is wrapped with ErrProviderUnavailable and is never reported as
// ErrSubscriptionNotFound. Absence of information must not look like a
// confirmed cancellation.
package billing
