// Package node implements the dronegrid packet-forwarding node: a
// single-threaded reactor that services controller commands and neighbor
// packets, forwards traffic along source-specified routes, participates in
// flood-based topology discovery, and backs hop-local retransmission with a
// bounded fragment cache.
package node

import (
	"math/rand"
	"strconv"
	"time"

	"aetheric.io/dronegrid/internal/log"
	"aetheric.io/dronegrid/internal/metrics"
	"aetheric.io/dronegrid/pkg/wire"
)

// Config carries everything a drone needs at startup. Commands and Packets
// are the two inbound channels of the reactor; Events is the outbound
// channel to the controller; Links holds the initial outbound channels to
// neighbors.
type Config struct {
	ID       wire.NodeID
	DropRate float32

	Commands <-chan wire.Command
	Packets  <-chan wire.Packet
	Events   chan<- wire.Event
	Links    map[wire.NodeID]chan<- wire.Packet

	// CacheSize overrides the fragment cache capacity; 0 means default.
	CacheSize int
	// Logger overrides the process logger; nil means the global one.
	Logger log.Logger
	// Rand overrides the drop-decision source; nil means time-seeded.
	// Tests inject a fixed seed here.
	Rand *rand.Rand
}

// Drone is a single node of the overlay. All fields are owned by the
// reactor goroutine; nothing is shared, nothing is locked.
type Drone struct {
	id       wire.NodeID
	idLabel  string
	dropRate float32

	commands <-chan wire.Command
	packets  <-chan wire.Packet
	events   chan<- wire.Event

	links *LinkTable
	cache *FIFOCache[wire.Fragment]
	seen  *DedupSet

	rng *rand.Rand
	log log.Logger
}

// New builds a drone from config. The drone does nothing until Run is
// called.
func New(cfg Config) *Drone {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Drone{
		id:       cfg.ID,
		idLabel:  strconv.Itoa(int(cfg.ID)),
		dropRate: cfg.DropRate,
		commands: cfg.Commands,
		packets:  cfg.Packets,
		events:   cfg.Events,
		links:    NewLinkTable(cfg.Links),
		cache:    NewFIFOCacheSize[wire.Fragment](size),
		seen:     NewDedupSet(),
		rng:      rng,
		log:      logger.WithField("node", cfg.ID),
	}
}

// ID returns the drone's identifier.
func (d *Drone) ID() wire.NodeID {
	return d.id
}

// Run drives the reactor until a Crash command arrives or both inbound
// channels close. Commands are strictly prioritized: the command channel is
// drained non-blockingly before each packet receive, so the controller can
// always reconfigure or terminate the node even under full packet load.
// Each message is handled to completion before the next is considered.
func (d *Drone) Run() {
	d.log.Info("drone started")
	for {
		select {
		case cmd, ok := <-d.commands:
			if !ok {
				d.commands = nil
				break
			}
			if d.handleCommand(cmd) {
				return
			}
			continue
		default:
		}

		if d.commands == nil && d.packets == nil {
			d.log.Warn("all inbound channels closed, stopping")
			return
		}

		select {
		case cmd, ok := <-d.commands:
			if !ok {
				d.commands = nil
				break
			}
			if d.handleCommand(cmd) {
				return
			}
		case p, ok := <-d.packets:
			if !ok {
				d.packets = nil
				break
			}
			d.HandlePacket(p)
		}
	}
}

// HandlePacket classifies one inbound packet and runs it through the
// matching handler. Exported so tests and the harness can drive a drone
// synchronously; Run is the only caller in normal operation.
func (d *Drone) HandlePacket(p wire.Packet) {
	d.log.Debugf("received %s session=%d header=%s", p.Payload, p.SessionID, p.RoutingHeader)

	// Flood requests bypass every header check: they are propagated by
	// neighbor fan-out, not by the routing header.
	if fr, ok := p.Payload.(wire.FloodRequest); ok {
		if err := d.handleFloodRequest(p, fr); err != nil {
			d.log.WithError(err).Errorf("rejecting flood request %d from initiator %d", fr.FloodID, fr.InitiatorID)
		}
		d.seen.Mark(fr.FloodID, fr.InitiatorID)
		return
	}

	// The packet must actually be addressed to this node.
	hop, ok := p.RoutingHeader.CurrentHop()
	if !ok || hop != d.id {
		d.log.Warnf("unexpected recipient: header %s does not address node %d", p.RoutingHeader, d.id)
		// Reversal expects the cursor past the packet's position, and the
		// mismatched position is where the packet physically is.
		p.RoutingHeader.Advance()
		d.sendNack(p, wire.Nack{FragmentIndex: fragmentIndex(p.Payload), Kind: wire.NackUnexpectedRecipient, Node: d.id})
		return
	}

	p.RoutingHeader.Advance()

	// A route that terminates here terminates at a drone, which is never a
	// valid endpoint for fragment traffic.
	if p.RoutingHeader.Exhausted() {
		d.log.Warnf("route of session %d terminates at a drone", p.SessionID)
		d.sendNack(p, wire.Nack{FragmentIndex: fragmentIndex(p.Payload), Kind: wire.NackDestinationIsDrone})
		return
	}

	next, _ := p.RoutingHeader.CurrentHop()
	if !d.links.Has(next) {
		d.log.Warnf("next hop %d is not a neighbor of node %d", next, d.id)
		d.sendNack(p, wire.Nack{FragmentIndex: fragmentIndex(p.Payload), Kind: wire.NackErrorInRouting, Node: d.id})
		return
	}

	var err error
	switch pl := p.Payload.(type) {
	case wire.Fragment:
		d.handleFragment(p, pl)
	case wire.Ack:
		err = d.handleAck(p)
	case wire.Nack:
		err = d.handleNack(p, pl)
	case wire.FloodResponse:
		d.handleFloodResponse(p)
	}
	if err != nil {
		// An upstream node broke the wire contract; the packet is
		// rejected, the reactor keeps running.
		d.log.WithError(err).Errorf("rejecting %s of session %d", p.Payload, p.SessionID)
	}
}

// sendTo is the shared send primitive: look up the outbound channel for
// nextHop and attempt a non-blocking send. On a missing link or a full
// channel the packet is reported to the controller as dropped and false is
// returned. Send failures never stop the node.
func (d *Drone) sendTo(nextHop wire.NodeID, p wire.Packet) bool {
	ch, ok := d.links.Get(nextHop)
	if !ok {
		d.log.Warnf("no link to node %d, escalating %s to controller", nextHop, p.Payload)
		d.reportDropped(p)
		return false
	}
	select {
	case ch <- p:
		metrics.PacketsForwardedTotal.WithLabelValues(d.idLabel, payloadLabel(p.Payload)).Inc()
		d.log.Debugf("sent %s to node %d", p.Payload, nextHop)
		return true
	default:
		d.log.Warnf("link to node %d refused the send, escalating %s to controller", nextHop, p.Payload)
		d.reportDropped(p)
		return false
	}
}

// sendNack reverses the packet's route and sends a NACK toward the node the
// packet arrived from. The header must be in post-advance form:
// Hops[HopIndex-1] is the position the packet sits at.
func (d *Drone) sendNack(p wire.Packet, nack wire.Nack) {
	rev := p.RoutingHeader.Reversed()
	prev, ok := rev.CurrentHop()
	if !ok {
		d.log.Errorf("cannot NACK a single-hop route %s", p.RoutingHeader)
		return
	}
	out := wire.Packet{SessionID: p.SessionID, RoutingHeader: rev, Payload: nack}
	metrics.NacksEmittedTotal.WithLabelValues(d.idLabel, nack.Kind.String()).Inc()
	d.sendTo(prev, out)
}

// reportDropped escalates an undeliverable packet to the controller. The
// event send is non-blocking as well: a saturated controller loses
// observability, never liveness.
func (d *Drone) reportDropped(p wire.Packet) {
	metrics.PacketsDroppedTotal.WithLabelValues(d.idLabel).Inc()
	select {
	case d.events <- wire.PacketDropped{Packet: p}:
	default:
		d.log.Error("controller event channel unavailable, PacketDropped event lost")
	}
}

func fragmentIndex(p wire.Payload) uint64 {
	switch pl := p.(type) {
	case wire.Fragment:
		return pl.FragmentIndex
	case wire.Ack:
		return pl.FragmentIndex
	case wire.Nack:
		return pl.FragmentIndex
	default:
		return 0
	}
}

func payloadLabel(p wire.Payload) string {
	switch p.(type) {
	case wire.Fragment:
		return "fragment"
	case wire.Ack:
		return "ack"
	case wire.Nack:
		return "nack"
	case wire.FloodRequest:
		return "flood_request"
	case wire.FloodResponse:
		return "flood_response"
	default:
		return "unknown"
	}
}
