// Package store defines persistence interfaces for generated blogs together
// with the errors every implementation reports. The in-memory implementation
// lives here; SQL-backed implementations live under platform/sqldb.
package store
