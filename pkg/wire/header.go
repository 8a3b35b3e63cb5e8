package wire

import (
	"fmt"
	"strings"
)

// SourceRoutingHeader is a sender-computed hop list plus a cursor marking
// progress along it. While a packet is in flight, Hops[HopIndex] names the
// node the packet is currently addressed to; HopIndex == len(Hops) means the
// final hop has consumed the packet.
type SourceRoutingHeader struct {
	Hops     []NodeID
	HopIndex int
}

// NewHeader builds a header with the cursor at position 1, i.e. addressed to
// the second entry of hops, the first node after the originator.
func NewHeader(hops []NodeID) SourceRoutingHeader {
	return SourceRoutingHeader{Hops: hops, HopIndex: 1}
}

// CurrentHop returns the node the packet is currently addressed to.
// The second return is false once the header is exhausted.
func (h SourceRoutingHeader) CurrentHop() (NodeID, bool) {
	if h.HopIndex < 0 || h.HopIndex >= len(h.Hops) {
		return 0, false
	}
	return h.Hops[h.HopIndex], true
}

// Advance moves the cursor one hop forward. It records that the node at the
// current position has taken the packet and the next entry is now the
// addressee.
func (h *SourceRoutingHeader) Advance() {
	h.HopIndex++
}

// Exhausted reports whether the cursor has moved past the last hop.
func (h SourceRoutingHeader) Exhausted() bool {
	return h.HopIndex >= len(h.Hops)
}

// Reversed returns a header for traveling the route in the opposite
// direction. The hop sequence is reversed and the cursor is repositioned to
// the first hop not yet visited in the new direction.
//
// The operation is defined on headers whose cursor has been advanced past
// the local node, so Hops[HopIndex-1] is the position the packet currently
// sits at; callers advance before reversing. HopIndex must be at least 1.
func (h SourceRoutingHeader) Reversed() SourceRoutingHeader {
	n := len(h.Hops)
	hops := make([]NodeID, n)
	for i, id := range h.Hops {
		hops[n-1-i] = id
	}
	return SourceRoutingHeader{Hops: hops, HopIndex: n - h.HopIndex + 1}
}

func (h SourceRoutingHeader) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range h.Hops {
		if i > 0 {
			b.WriteString(" -> ")
		}
		if i == h.HopIndex {
			fmt.Fprintf(&b, "(%d)", id)
		} else {
			fmt.Fprintf(&b, "%d", id)
		}
	}
	b.WriteByte(']')
	return b.String()
}
