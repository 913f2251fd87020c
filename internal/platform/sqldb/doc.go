// Package sqldb provides SQL-backed persistence for generated blogs.
//
// Postgres (via the pgx stdlib driver) and SQLite (via the pure-Go modernc
// driver) are supported. Queries are written in the subset of SQL both
// dialects share: numbered placeholders bound in ascending order, TEXT
// columns for identifiers and JSON, and timestamps as Unix milliseconds.
// The schema is managed with embedded goose migrations applied by Open.
package sqldb
