package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeader_CurrentHopAndAdvance(t *testing.T) {
	h := NewHeader([]NodeID{1, 2, 3, 4})

	hop, ok := h.CurrentHop()
	assert.True(t, ok)
	assert.Equal(t, NodeID(2), hop)
	assert.False(t, h.Exhausted())

	h.Advance()
	hop, ok = h.CurrentHop()
	assert.True(t, ok)
	assert.Equal(t, NodeID(3), hop)

	h.Advance()
	h.Advance()
	assert.True(t, h.Exhausted())
	_, ok = h.CurrentHop()
	assert.False(t, ok)
}

// A NACK traveling back toward the origin is reversed at the node that holds
// the cached fragment; the resend must continue toward the original
// destination. Route src=1 -> A=2 -> B=3 -> C=4 -> dst=5, drop at C: the
// NACK header is [4 3 2 1]. Node 3 receives it (cursor 1), advances, and
// reverses; the rebuilt fragment must be addressed to node 4.
func TestHeader_ReverseRepositionsCursor(t *testing.T) {
	nack := SourceRoutingHeader{Hops: []NodeID{4, 3, 2, 1}, HopIndex: 1}
	nack.Advance()

	resend := nack.Reversed()
	assert.Equal(t, []NodeID{1, 2, 3, 4}, resend.Hops)
	assert.Equal(t, 3, resend.HopIndex)

	hop, ok := resend.CurrentHop()
	assert.True(t, ok)
	assert.Equal(t, NodeID(4), hop)
}

// Reversing an exhausted header addresses the second-to-last node of the
// original route, the one the packet arrived from.
func TestHeader_ReverseExhausted(t *testing.T) {
	h := SourceRoutingHeader{Hops: []NodeID{1, 2, 3}, HopIndex: 3}

	rev := h.Reversed()
	assert.Equal(t, []NodeID{3, 2, 1}, rev.Hops)
	assert.Equal(t, 1, rev.HopIndex)

	hop, ok := rev.CurrentHop()
	assert.True(t, ok)
	assert.Equal(t, NodeID(2), hop)
}

// Reversing twice after symmetric advances must come back to an equivalent
// position: the cursor points at the hop that would have been next anyway.
func TestHeader_ReverseRoundTrip(t *testing.T) {
	h := SourceRoutingHeader{Hops: []NodeID{1, 2, 3, 4, 5}, HopIndex: 3}

	back := h.Reversed()
	assert.Equal(t, 3, back.HopIndex)
	again := back.Reversed()
	assert.Equal(t, h.Hops, again.Hops)
	assert.Equal(t, h.HopIndex, again.HopIndex)
}

func TestHeader_String(t *testing.T) {
	h := SourceRoutingHeader{Hops: []NodeID{1, 2, 3}, HopIndex: 1}
	assert.Equal(t, "[1 -> (2) -> 3]", h.String())
}

func TestTraceHops(t *testing.T) {
	trace := []TraceEntry{{ID: 7, Kind: KindClient}, {ID: 3, Kind: KindDrone}, {ID: 9, Kind: KindDrone}}
	assert.Equal(t, []NodeID{7, 3, 9}, TraceHops(trace))
	assert.Empty(t, TraceHops(nil))
}
