package node

import (
	"sort"

	"aetheric.io/dronegrid/pkg/wire"
)

// LinkTable maps neighbor identifiers to their outbound packet channels.
// Only controller commands mutate it, always from the owning reactor, so no
// locking is needed.
type LinkTable struct {
	out map[wire.NodeID]chan<- wire.Packet
}

// NewLinkTable builds a table from the initial link set. The map is copied;
// the caller's map is not retained.
func NewLinkTable(links map[wire.NodeID]chan<- wire.Packet) *LinkTable {
	out := make(map[wire.NodeID]chan<- wire.Packet, len(links))
	for id, ch := range links {
		out[id] = ch
	}
	return &LinkTable{out: out}
}

// Get returns the outbound channel for a neighbor.
func (t *LinkTable) Get(id wire.NodeID) (chan<- wire.Packet, bool) {
	ch, ok := t.out[id]
	return ch, ok
}

// Has reports whether a link to the neighbor exists.
func (t *LinkTable) Has(id wire.NodeID) bool {
	_, ok := t.out[id]
	return ok
}

// Add installs a link. Returns false without overwriting if the neighbor is
// already present: first writer wins.
func (t *LinkTable) Add(id wire.NodeID, ch chan<- wire.Packet) bool {
	if _, ok := t.out[id]; ok {
		return false
	}
	t.out[id] = ch
	return true
}

// Remove tears down a link. Returns false if it was absent.
func (t *LinkTable) Remove(id wire.NodeID) bool {
	if _, ok := t.out[id]; !ok {
		return false
	}
	delete(t.out, id)
	return true
}

// Len returns the number of links.
func (t *LinkTable) Len() int {
	return len(t.out)
}

// Neighbors returns the linked node identifiers in ascending order.
func (t *LinkTable) Neighbors() []wire.NodeID {
	ids := make([]wire.NodeID, 0, len(t.out))
	for id := range t.out {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
