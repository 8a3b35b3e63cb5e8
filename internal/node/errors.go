package node

import "errors"

// Protocol invariant violations. These mean an upstream node broke the wire
// contract, not that the network misbehaved; the offending packet is
// rejected and the violation surfaces as an explicit error at the dispatch
// site. The node itself keeps running.
var (
	// ErrHeaderExhausted: an Ack or Nack arrived whose routing header was
	// already fully consumed before dispatch.
	ErrHeaderExhausted = errors.New("routing header exhausted before dispatch")

	// ErrEmptyPathTrace: a FloodRequest arrived with an empty path trace, so
	// the predecessor cannot be determined.
	ErrEmptyPathTrace = errors.New("flood request carries an empty path trace")
)
