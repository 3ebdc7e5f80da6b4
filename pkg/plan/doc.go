// Package plan defines the closed set of subscription tiers and the quota
// policy mapping each tier to its monthly allowance of quota-consuming
// actions.
//
// The policy is a pure function with no side effects. It is the single
// business rule of the entitlement subsystem: everything else is state
// reconciliation around the numbers returned here.
//
//	quota, err := plan.Quota(plan.Pro) // 500, nil
//	quota, err = plan.Quota("legacy")  // 0, plan.ErrInvalidPlan
//
// Unknown plan values yield zero quota together with ErrInvalidPlan. Callers
// are expected to log the error and proceed with zero quota; an unknown plan
// must never be interpreted as unlimited access.
package plan
