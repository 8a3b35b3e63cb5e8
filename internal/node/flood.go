package node

import (
	"aetheric.io/dronegrid/internal/metrics"
	"aetheric.io/dronegrid/pkg/wire"
)

// handleFloodRequest propagates a topology discovery flood. The predecessor
// is the last entry of the path trace; after appending itself the node
// either answers with a FloodResponse (duplicate flood, or dead end with no
// onward link) or fans the request out to every neighbor except the
// predecessor.
//
// The first copy of a flood to arrive is always propagated: the dedup set
// is populated by the dispatcher only after this handler returns, so a
// second copy arriving over a cycle terminates with a response carrying the
// partial path as discovered topology evidence.
func (d *Drone) handleFloodRequest(p wire.Packet, fr wire.FloodRequest) error {
	if len(fr.PathTrace) == 0 {
		return ErrEmptyPathTrace
	}
	prev := fr.PathTrace[len(fr.PathTrace)-1].ID

	// The trace fans out to several neighbors below; each copy needs its
	// own backing array.
	trace := make([]wire.TraceEntry, 0, len(fr.PathTrace)+1)
	trace = append(trace, fr.PathTrace...)
	trace = append(trace, wire.TraceEntry{ID: d.id, Kind: wire.KindDrone})

	duplicate := d.seen.Seen(fr.FloodID, fr.InitiatorID)
	deadEnd := d.links.Len() == 1

	if duplicate || deadEnd {
		outcome := metrics.FloodOutcomeDuplicate
		if !duplicate {
			outcome = metrics.FloodOutcomeDeadEnd
			d.log.Debugf("dead end for flood %d, answering node %d", fr.FloodID, prev)
		} else {
			d.log.Debugf("duplicate flood %d from initiator %d, answering node %d", fr.FloodID, fr.InitiatorID, prev)
		}
		metrics.FloodsHandledTotal.WithLabelValues(d.idLabel, outcome).Inc()
		d.sendFloodResponse(prev, fr.FloodID, trace, p.SessionID)
		return nil
	}

	fwd := wire.Packet{
		SessionID:     p.SessionID,
		RoutingHeader: p.RoutingHeader,
		Payload: wire.FloodRequest{
			FloodID:     fr.FloodID,
			InitiatorID: fr.InitiatorID,
			PathTrace:   trace,
		},
	}
	metrics.FloodsHandledTotal.WithLabelValues(d.idLabel, metrics.FloodOutcomeForwarded).Inc()
	for _, neighbor := range d.links.Neighbors() {
		if neighbor == prev {
			continue
		}
		d.log.Debugf("forwarding flood %d to node %d", fr.FloodID, neighbor)
		d.sendTo(neighbor, fwd)
	}
	return nil
}

// sendFloodResponse folds the accumulated trace into a route back to the
// flood's origin: the trace is reversed into a hop sequence with the cursor
// at position 1, addressing the predecessor.
func (d *Drone) sendFloodResponse(prev wire.NodeID, floodID uint64, trace []wire.TraceEntry, sessionID uint64) {
	hops := wire.TraceHops(trace)
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}
	resp := wire.Packet{
		SessionID:     sessionID,
		RoutingHeader: wire.SourceRoutingHeader{Hops: hops, HopIndex: 1},
		Payload:       wire.FloodResponse{FloodID: floodID, PathTrace: trace},
	}
	d.sendTo(prev, resp)
}

// handleFloodResponse forwards a response along its header, store-and-forward
// with no path shortening. The dispatcher has already advanced the cursor
// and verified the next hop; a failed send escalates to the controller
// inside sendTo.
func (d *Drone) handleFloodResponse(p wire.Packet) {
	next, _ := p.RoutingHeader.CurrentHop()
	d.sendTo(next, p)
}
