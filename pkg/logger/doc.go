// Package logger is a thin factory around log/slog with environment-driven
// configuration and a few shared attribute helpers, keeping log field names
// consistent across the service.
package logger
