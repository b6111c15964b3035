// Package message defines the typed messages exchanged over the data
// queue. A Message is a tagged variant: the payload type is the tag, and
// each payload carries only its own fields.
package message
