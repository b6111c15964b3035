// Package coord holds the outcome type shared by the coordination
// primitives: a Result[T] that is a success, a timeout or a failure, each
// stamped with an id and a creation time. Blocking operations in the
// readiness, queue and guard packages return it instead of (T, bool, error)
// triples.
//
// Timeouts follow the embedded convention: a positive duration bounds the
// wait, 0 polls without blocking and Forever waits without a deadline.
package coord
