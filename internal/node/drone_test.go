package node

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aetheric.io/dronegrid/internal/log"
	"aetheric.io/dronegrid/pkg/wire"
)

// testDrone bundles a drone with the receiving ends of its outbound links
// and its controller event channel.
type testDrone struct {
	drone  *Drone
	out    map[wire.NodeID]chan wire.Packet
	events chan wire.Event
}

func newTestDrone(id wire.NodeID, dropRate float32, neighbors ...wire.NodeID) *testDrone {
	links := make(map[wire.NodeID]chan<- wire.Packet, len(neighbors))
	out := make(map[wire.NodeID]chan wire.Packet, len(neighbors))
	for _, n := range neighbors {
		ch := make(chan wire.Packet, 1024)
		out[n] = ch
		links[n] = ch
	}
	events := make(chan wire.Event, 1024)
	d := New(Config{
		ID:       id,
		DropRate: dropRate,
		Events:   events,
		Links:    links,
		Logger:   log.Discard(),
		Rand:     rand.New(rand.NewSource(7)),
	})
	return &testDrone{drone: d, out: out, events: events}
}

// receivedBy pops the single packet sent to a neighbor, failing the test if
// none or more than one arrived.
func (td *testDrone) receivedBy(t *testing.T, neighbor wire.NodeID) wire.Packet {
	t.Helper()
	ch, ok := td.out[neighbor]
	require.True(t, ok, "no outbound channel registered for node %d", neighbor)
	select {
	case p := <-ch:
		select {
		case extra := <-ch:
			t.Fatalf("node %d received more than one packet, second was %v", neighbor, extra)
		default:
		}
		return p
	default:
		t.Fatalf("node %d received nothing", neighbor)
		return wire.Packet{}
	}
}

func (td *testDrone) assertSilent(t *testing.T, neighbor wire.NodeID) {
	t.Helper()
	select {
	case p := <-td.out[neighbor]:
		t.Fatalf("node %d unexpectedly received %v", neighbor, p)
	default:
	}
}

func fragmentPacket(sessionID uint64, index uint64, hops []wire.NodeID, hopIndex int) wire.Packet {
	return wire.Packet{
		SessionID:     sessionID,
		RoutingHeader: wire.SourceRoutingHeader{Hops: hops, HopIndex: hopIndex},
		Payload:       testFragment(index),
	}
}

// A packet whose header does not address this node must never advance and
// must be answered with Nack(UnexpectedRecipient) toward its sender.
func TestDispatch_UnexpectedRecipient(t *testing.T) {
	td := newTestDrone(2, 0, 1, 3)

	// Route 1 -> 3 -> 4 delivered to node 2 by mistake.
	td.drone.HandlePacket(fragmentPacket(9, 0, []wire.NodeID{1, 3, 4}, 1))

	p := td.receivedBy(t, 1)
	nack, ok := p.Payload.(wire.Nack)
	require.True(t, ok, "expected a NACK, got %v", p.Payload)
	assert.Equal(t, wire.NackUnexpectedRecipient, nack.Kind)
	assert.Equal(t, wire.NodeID(2), nack.Node)
	td.assertSilent(t, 3)
}

// A route that ends at this drone is invalid for fragment traffic.
func TestDispatch_DestinationIsDrone(t *testing.T) {
	td := newTestDrone(2, 0, 1)

	td.drone.HandlePacket(fragmentPacket(9, 0, []wire.NodeID{1, 2}, 1))

	p := td.receivedBy(t, 1)
	nack, ok := p.Payload.(wire.Nack)
	require.True(t, ok)
	assert.Equal(t, wire.NackDestinationIsDrone, nack.Kind)
	// The NACK travels the reversed route back to the origin.
	assert.Equal(t, []wire.NodeID{2, 1}, p.RoutingHeader.Hops)
	assert.Equal(t, 1, p.RoutingHeader.HopIndex)
}

// An unknown next hop is answered with Nack(ErrorInRouting(self)).
func TestDispatch_ErrorInRouting(t *testing.T) {
	td := newTestDrone(2, 0, 1)

	// Node 5 is not a neighbor of node 2.
	td.drone.HandlePacket(fragmentPacket(9, 4, []wire.NodeID{1, 2, 5}, 1))

	p := td.receivedBy(t, 1)
	nack, ok := p.Payload.(wire.Nack)
	require.True(t, ok)
	assert.Equal(t, wire.NackErrorInRouting, nack.Kind)
	assert.Equal(t, wire.NodeID(2), nack.Node)
	assert.Equal(t, uint64(4), nack.FragmentIndex)
}

// A send toward a vanished predecessor cannot NACK; it escalates to the
// controller instead.
func TestDispatch_NackWithoutPredecessorLink(t *testing.T) {
	td := newTestDrone(2, 0, 3)

	// Sender is node 1 but only node 3 is linked; next hop 5 is unknown, so
	// the ErrorInRouting NACK toward node 1 cannot be delivered either.
	td.drone.HandlePacket(fragmentPacket(9, 0, []wire.NodeID{1, 2, 5}, 1))

	td.assertSilent(t, 3)
	select {
	case ev := <-td.events:
		dropped, ok := ev.(wire.PacketDropped)
		require.True(t, ok)
		_, isNack := dropped.Packet.Payload.(wire.Nack)
		assert.True(t, isNack, "the escalated packet should be the undeliverable NACK")
	default:
		t.Fatal("expected a PacketDropped event")
	}
}

// Commands are serviced before packets: a Crash queued behind a saturated
// packet channel must still stop the node before any packet is handled.
func TestRun_CommandPriority(t *testing.T) {
	td := newTestDrone(2, 0, 1, 3)
	commands := make(chan wire.Command, 1)
	packets := make(chan wire.Packet, 128)
	td.drone.commands = commands
	td.drone.packets = packets

	for i := 0; i < 100; i++ {
		packets <- fragmentPacket(1, uint64(i), []wire.NodeID{1, 2, 3}, 1)
	}
	commands <- wire.Crash{}

	done := make(chan struct{})
	go func() {
		td.drone.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drone did not honor Crash")
	}
	td.assertSilent(t, 3)
}

func TestRun_StopsWhenChannelsClose(t *testing.T) {
	td := newTestDrone(2, 0)
	commands := make(chan wire.Command)
	packets := make(chan wire.Packet)
	td.drone.commands = commands
	td.drone.packets = packets

	done := make(chan struct{})
	go func() {
		td.drone.Run()
		close(done)
	}()
	close(commands)
	close(packets)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drone did not stop after both inbound channels closed")
	}
}

// A full outbound channel is an immediate failure, not a stall: the packet
// escalates to the controller and the node keeps going.
func TestSendTo_FullChannelEscalates(t *testing.T) {
	full := make(chan wire.Packet) // unbuffered, nobody reads
	events := make(chan wire.Event, 1)
	d := New(Config{
		ID:     2,
		Events: events,
		Links:  map[wire.NodeID]chan<- wire.Packet{3: full},
		Logger: log.Discard(),
	})

	ok := d.sendTo(3, fragmentPacket(9, 0, []wire.NodeID{1, 2, 3}, 2))
	assert.False(t, ok)
	select {
	case ev := <-events:
		_, isDrop := ev.(wire.PacketDropped)
		assert.True(t, isDrop)
	default:
		t.Fatal("expected a PacketDropped event")
	}
}
