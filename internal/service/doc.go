// Package service coordinates batch submission, task bookkeeping and blog
// storage on top of the task runner.
//
// BatchService is the entry point used by the HTTP API and the CLI. It
// validates requests, hands the valid ones to the runner, remembers each
// task's request so it can be retried, and ties task removal to the stored
// artifact. BlogSink connects the runner's results to a store.BlogStore.
package service
