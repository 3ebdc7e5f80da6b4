// Package pg provides PostgreSQL connection management on pgx: pooled
// connects with startup retries, a readiness probe, goose migrations, and a
// couple of error classification helpers shared by store implementations.
package pg
