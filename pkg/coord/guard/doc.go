// Package guard holds the mutual-exclusion side of the coordination
// layer: an owned, timed Mutex, the shared Counter it protects and a
// binary signalling semaphore.
//
// The Counter deliberately has no locking of its own. Guarded wraps every
// read and every read-delay-write in a critical section; Unchecked reads
// straight from memory and is kept as the unsafe contrast to it.
package guard
