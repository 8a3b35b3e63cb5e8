// Package sim wires a configured topology into a running overlay: every
// drone is built from the shared node engine and run as its own goroutine,
// while client and server nodes become passive endpoints the harness can
// inject traffic through and read delivered packets from.
package sim

import (
	"fmt"
	"sync"
	"sync/atomic"

	"aetheric.io/dronegrid/internal/config"
	"aetheric.io/dronegrid/internal/log"
	"aetheric.io/dronegrid/internal/node"
	"aetheric.io/dronegrid/pkg/wire"
)

// Endpoint is a client or server node of the overlay. Endpoints do not
// forward: they originate traffic and absorb whatever the drones deliver.
type Endpoint struct {
	ID      wire.NodeID
	Kind    wire.NodeKind
	Inbound <-chan wire.Packet
	links   map[wire.NodeID]chan<- wire.Packet
	linkIDs []wire.NodeID
}

// Network owns every channel and goroutine of a simulated overlay.
type Network struct {
	drones    map[wire.NodeID]*node.Drone
	commands  map[wire.NodeID]chan wire.Command
	inbound   map[wire.NodeID]chan wire.Packet
	endpoints map[wire.NodeID]*Endpoint

	events  chan wire.Event
	log     log.Logger
	wg      sync.WaitGroup
	started bool

	floodSeq   atomic.Uint64
	sessionSeq atomic.Uint64
}

// Build constructs the overlay described by cfg. Nothing runs until Start.
// The config is assumed validated; Build still fails on conditions it can
// only see while wiring.
func Build(cfg *config.GlobalConfig, logger log.Logger) (*Network, error) {
	if logger == nil {
		logger = log.GetLogger()
	}
	n := &Network{
		drones:    make(map[wire.NodeID]*node.Drone),
		commands:  make(map[wire.NodeID]chan wire.Command),
		inbound:   make(map[wire.NodeID]chan wire.Packet),
		endpoints: make(map[wire.NodeID]*Endpoint),
		events:    make(chan wire.Event, cfg.Network.ChannelCapacity),
		log:       logger,
	}

	for _, nc := range cfg.Network.Nodes {
		n.inbound[nc.ID] = make(chan wire.Packet, cfg.Network.ChannelCapacity)
	}

	for _, nc := range cfg.Network.Nodes {
		links := make(map[wire.NodeID]chan<- wire.Packet, len(nc.Links))
		for _, peer := range nc.Links {
			ch, ok := n.inbound[peer]
			if !ok {
				return nil, fmt.Errorf("node %d links to unknown node %d", nc.ID, peer)
			}
			links[peer] = ch
		}

		if nc.NodeKind() == wire.KindDrone {
			commands := make(chan wire.Command, cfg.Network.ChannelCapacity)
			n.commands[nc.ID] = commands
			n.drones[nc.ID] = node.New(node.Config{
				ID:        nc.ID,
				DropRate:  nc.DropRate,
				Commands:  commands,
				Packets:   n.inbound[nc.ID],
				Events:    n.events,
				Links:     links,
				CacheSize: cfg.Network.CacheSize,
				Logger:    logger,
			})
			continue
		}

		linkIDs := make([]wire.NodeID, len(nc.Links))
		copy(linkIDs, nc.Links)
		n.endpoints[nc.ID] = &Endpoint{
			ID:      nc.ID,
			Kind:    nc.NodeKind(),
			Inbound: n.inbound[nc.ID],
			links:   links,
			linkIDs: linkIDs,
		}
	}

	return n, nil
}

// Start runs every drone as its own goroutine.
func (n *Network) Start() {
	if n.started {
		return
	}
	n.started = true
	for id, d := range n.drones {
		n.log.Infof("starting drone %d", id)
		n.wg.Add(1)
		go func(d *node.Drone) {
			defer n.wg.Done()
			d.Run()
		}(d)
	}
}

// Stop crashes every running drone and waits for the reactors to exit.
func (n *Network) Stop() {
	for id := range n.drones {
		n.sendCommand(id, wire.Crash{})
	}
	n.wg.Wait()
	n.started = false
}

// Events is the aggregated controller event stream of all drones.
func (n *Network) Events() <-chan wire.Event {
	return n.events
}

// Endpoint returns the client/server node with the given id.
func (n *Network) Endpoint(id wire.NodeID) (*Endpoint, bool) {
	ep, ok := n.endpoints[id]
	return ep, ok
}

// SetDropRate retunes one drone at runtime.
func (n *Network) SetDropRate(id wire.NodeID, rate float32) error {
	return n.sendCommand(id, wire.SetDropRate{Rate: rate})
}

// CrashNode terminates one drone's reactor.
func (n *Network) CrashNode(id wire.NodeID) error {
	return n.sendCommand(id, wire.Crash{})
}

// AddLink installs a new undirected link between two drones.
func (n *Network) AddLink(a, b wire.NodeID) error {
	chA, okA := n.inbound[a]
	chB, okB := n.inbound[b]
	if !okA || !okB {
		return fmt.Errorf("add link %d-%d: unknown node", a, b)
	}
	if err := n.sendCommand(a, wire.AddLink{Node: b, Ch: chB}); err != nil {
		return err
	}
	return n.sendCommand(b, wire.AddLink{Node: a, Ch: chA})
}

// RemoveLink tears an undirected link down on both ends.
func (n *Network) RemoveLink(a, b wire.NodeID) error {
	if err := n.sendCommand(a, wire.RemoveLink{Node: b}); err != nil {
		return err
	}
	return n.sendCommand(b, wire.RemoveLink{Node: a})
}

func (n *Network) sendCommand(id wire.NodeID, cmd wire.Command) error {
	ch, ok := n.commands[id]
	if !ok {
		return fmt.Errorf("node %d is not a drone", id)
	}
	ch <- cmd
	return nil
}

// StartFlood originates a topology discovery flood at an endpoint, sending
// a fresh FloodRequest to every attached drone. Returns the flood id.
func (n *Network) StartFlood(initiator wire.NodeID) (uint64, error) {
	ep, ok := n.endpoints[initiator]
	if !ok {
		return 0, fmt.Errorf("node %d is not an endpoint", initiator)
	}
	floodID := n.floodSeq.Add(1)
	for _, peer := range ep.linkIDs {
		p := wire.Packet{
			SessionID: floodID,
			Payload: wire.FloodRequest{
				FloodID:     floodID,
				InitiatorID: ep.ID,
				PathTrace:   []wire.TraceEntry{{ID: ep.ID, Kind: ep.Kind}},
			},
		}
		select {
		case ep.links[peer] <- p:
		default:
			n.log.Warnf("flood %d not delivered to node %d, channel full", floodID, peer)
		}
	}
	n.log.Infof("flood %d started at node %d", floodID, initiator)
	return floodID, nil
}

// Send fragments a message at an endpoint and injects it along an explicit
// route. The route starts at the sender and ends at the destination; the
// first hop after the sender must be one of the endpoint's links. Returns
// the session id.
func (n *Network) Send(from wire.NodeID, route []wire.NodeID, data []byte) (uint64, error) {
	ep, ok := n.endpoints[from]
	if !ok {
		return 0, fmt.Errorf("node %d is not an endpoint", from)
	}
	if len(route) < 2 || route[0] != from {
		return 0, fmt.Errorf("route must start at sender %d and name at least one hop", from)
	}
	first := route[1]
	ch, ok := ep.links[first]
	if !ok {
		return 0, fmt.Errorf("node %d has no link to first hop %d", from, first)
	}

	session := n.sessionSeq.Add(1)
	for _, frag := range Fragment(data) {
		p := wire.Packet{
			SessionID:     session,
			RoutingHeader: wire.NewHeader(route),
			Payload:       frag,
		}
		select {
		case ch <- p:
		default:
			n.log.Warnf("fragment %d of session %d not injected, channel full", frag.FragmentIndex, session)
		}
	}
	return session, nil
}

// Fragment splits a message into wire fragments of at most FragmentSize
// bytes. An empty message still produces one empty fragment.
func Fragment(data []byte) []wire.Fragment {
	total := (len(data) + wire.FragmentSize - 1) / wire.FragmentSize
	if total == 0 {
		total = 1
	}
	frags := make([]wire.Fragment, 0, total)
	for i := 0; i < total; i++ {
		chunk := data[i*wire.FragmentSize:]
		if len(chunk) > wire.FragmentSize {
			chunk = chunk[:wire.FragmentSize]
		}
		f := wire.Fragment{
			FragmentIndex:  uint64(i),
			TotalFragments: uint64(total),
			Length:         uint8(len(chunk)),
		}
		copy(f.Data[:], chunk)
		frags = append(frags, f)
	}
	return frags
}

// Reassemble stitches fragments of one session back into the original
// message. Fragments may arrive in any order; the set must be complete.
func Reassemble(frags []wire.Fragment) ([]byte, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("no fragments")
	}
	total := frags[0].TotalFragments
	if uint64(len(frags)) != total {
		return nil, fmt.Errorf("have %d fragments, want %d", len(frags), total)
	}
	byIndex := make(map[uint64]wire.Fragment, len(frags))
	for _, f := range frags {
		if f.TotalFragments != total {
			return nil, fmt.Errorf("fragment %d disagrees on total count", f.FragmentIndex)
		}
		byIndex[f.FragmentIndex] = f
	}
	var out []byte
	for i := uint64(0); i < total; i++ {
		f, ok := byIndex[i]
		if !ok {
			return nil, fmt.Errorf("fragment %d missing", i)
		}
		out = append(out, f.Data[:f.Length]...)
	}
	return out, nil
}
