package node

import (
	"aetheric.io/dronegrid/internal/metrics"
	"aetheric.io/dronegrid/pkg/wire"
)

// handleFragment forwards a data fragment, subject to the configured drop
// rate. A dropped fragment is answered with Nack(Dropped) toward the
// sender; a forwarded one is recorded in the cache first so a later NACK
// can trigger a hop-local resend.
func (d *Drone) handleFragment(p wire.Packet, frag wire.Fragment) {
	if d.shouldDrop() {
		d.log.Infof("dropping fragment %d of session %d (drop rate %.2f)", frag.FragmentIndex, p.SessionID, d.dropRate)
		d.sendNack(p, wire.Nack{FragmentIndex: frag.FragmentIndex, Kind: wire.NackDropped})
		return
	}

	if evicted := d.cache.Put(p.SessionID, frag.FragmentIndex, frag); evicted {
		metrics.CacheEvictionsTotal.WithLabelValues(d.idLabel).Inc()
	}
	next, _ := p.RoutingHeader.CurrentHop()
	d.sendTo(next, p)
}

// handleAck forwards an acknowledgment unchanged along its route.
func (d *Drone) handleAck(p wire.Packet) error {
	if p.RoutingHeader.Exhausted() {
		return ErrHeaderExhausted
	}
	next, _ := p.RoutingHeader.CurrentHop()
	d.sendTo(next, p)
	return nil
}

// handleNack resends the referenced fragment if this node still caches it;
// otherwise the NACK continues unchanged toward whichever node does, or
// ultimately the origin. The NACK was traveling toward the original sender,
// so the resend travels the reversed route, back the way the fragment came.
func (d *Drone) handleNack(p wire.Packet, nack wire.Nack) error {
	if p.RoutingHeader.Exhausted() {
		return ErrHeaderExhausted
	}

	frag, ok := d.cache.Take(p.SessionID, nack.FragmentIndex)
	if !ok {
		next, _ := p.RoutingHeader.CurrentHop()
		d.sendTo(next, p)
		return nil
	}

	d.log.Infof("resending cached fragment %d of session %d", nack.FragmentIndex, p.SessionID)
	resend := wire.Packet{
		SessionID:     p.SessionID,
		RoutingHeader: p.RoutingHeader.Reversed(),
		Payload:       frag,
	}
	next, _ := resend.RoutingHeader.CurrentHop()
	d.sendTo(next, resend)
	return nil
}

// shouldDrop draws against the packet drop rate. Rate 0 never drops, rate 1
// always does: Float32 yields values in [0, 1).
func (d *Drone) shouldDrop() bool {
	return d.rng.Float32() < d.dropRate
}
