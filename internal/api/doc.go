// Package api implements the HTTP handlers for batch submission, task
// tracking, generated blogs, the Word export, brand ad lookups and domain
// metrics with their CSV export.
//
// Handlers depend on small interfaces over the service layer. Errors are
// mapped to status codes by MapErrorToStatusCode and reported with messages
// from GetSafeErrorMessage so internal details stay in the logs.
package api
