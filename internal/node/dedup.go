package node

import "aetheric.io/dronegrid/pkg/wire"

type floodKey struct {
	floodID   uint64
	initiator wire.NodeID
}

// DedupSet records the (flood_id, initiator_id) pairs this node has already
// processed, suppressing infinite flood propagation. It never evicts: flood
// identifiers are scoped to discovery runs, not sustained traffic, so the
// set stays small for the lifetime of a node.
type DedupSet struct {
	seen map[floodKey]struct{}
}

// NewDedupSet returns an empty set.
func NewDedupSet() *DedupSet {
	return &DedupSet{seen: make(map[floodKey]struct{})}
}

// Seen reports whether the pair has been marked.
func (s *DedupSet) Seen(floodID uint64, initiator wire.NodeID) bool {
	_, ok := s.seen[floodKey{floodID: floodID, initiator: initiator}]
	return ok
}

// Mark records the pair.
func (s *DedupSet) Mark(floodID uint64, initiator wire.NodeID) {
	s.seen[floodKey{floodID: floodID, initiator: initiator}] = struct{}{}
}

// Len returns the number of marked pairs.
func (s *DedupSet) Len() int {
	return len(s.seen)
}
