// Package dispatch is the consumer side of the data queue. Locomotive pulls
// messages one at a time and hands each to the Dispatcher, which switches
// on the message kind. Unknown kinds are a warning, never fatal.
package dispatch
