package entitlement

import (
	"log/slog"
	"time"
)

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source. Tests use this to pin window
// boundaries; production code should not.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepGrace overrides the grace period applied by Sweep. Values at or
// below zero are ignored: a sweep without grace can race a concurrent renewal.
func WithSweepGrace(grace time.Duration) ServiceOption {
	return func(s *Service) {
		if grace > 0 {
			s.grace = grace
		}
	}
}

// WithSyncCooldown throttles SyncWithProvider per user, keeping the provider
// path low-frequency. Nil disables throttling.
func WithSyncCooldown(c Cooldown) ServiceOption {
	return func(s *Service) { s.cooldown = c }
}

// WithNotifier enables fire-and-forget user notifications when a revert to
// free is applied. Nil disables notifications.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the structured logger. Nil loggers are ignored.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
