// Package events carries task lifecycle notifications from the task registry
// to its observers.
//
// The registry emits a TaskEvent for every insert, status change, and removal.
// Observers such as the metrics collector and the CLI progress display register
// an EventHandler with an EventEmitter and never touch registry internals.
package events
