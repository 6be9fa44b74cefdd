// Package eventq holds non-blocking channel helpers used to hand state from
// the poll loop to the renderer without ever stalling the loop.
package eventq

import "context"

// Offer performs a non-blocking send.
// It returns true when the value was sent and false when the channel is full
// or closed.
func Offer[T any](ch chan<- T, value T) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case ch <- value:
		return true
	default:
		return false
	}
}

// Replace delivers value on a buffered channel, discarding the oldest queued
// value when the buffer is full. Use it for whole-state snapshots where only
// the newest matters. It returns false if ctx is done or the value still
// could not be queued.
func Replace[T any](ctx context.Context, ch chan T, value T) bool {
	for attempt := 0; attempt < 2; attempt++ {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if Offer(ch, value) {
			return true
		}
		select {
		case <-ch:
		default:
		}
	}
	return false
}
