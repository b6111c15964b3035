// Package app is the composition root. New builds the readiness group, the
// queues, the mutexes and the shared counter once, hands them to the task
// bodies, and registers the firmware roster, the primitives model roster
// or both, as selected in config.
package app
