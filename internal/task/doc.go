// Package task runs batches of blog generation requests with bounded
// concurrency and tracks the lifecycle of every request.
//
// A Registry keeps one GenerationTask per request and publishes every change
// as an events.TaskEvent. A Runner turns an ordered list of requests into
// tasks, then drains them with a fixed number of workers that claim indices
// from a shared cursor. Each claimed task moves from queued to generating
// and then to completed or failed. A failing request never affects its
// siblings.
package task
