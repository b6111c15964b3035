// Package task runs the fixed task set of the device. A Roster collects
// task specs (name, priority, core affinity, stack budget and entry
// function), rejects the whole set if any spec is invalid, and otherwise
// starts each task as its own goroutine carrying its Info in the context.
//
// Priority and affinity are kept as task metadata. They order start-up
// and tag log lines; the Go scheduler still decides where goroutines run.
package task
