// Package queue provides a fixed-capacity blocking FIFO for passing
// values between producer and consumer tasks. Items are copied in and
// removed atomically on receive, so each accepted item reaches exactly one
// receiver. Overflow is never buffered elsewhere: a send that times out
// loses its item.
package queue
