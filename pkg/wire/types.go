// Package wire defines the shared packet contract of the dronegrid overlay:
// node identifiers, source routing headers, packets and their payloads, and
// the controller-facing command/event types. Every component of the network
// (drones, clients, servers, the simulation controller) exchanges exactly
// these types; the package carries no protocol logic of its own.
package wire

import "fmt"

// NodeID uniquely identifies a node in the overlay network.
type NodeID = uint8

// NodeKind distinguishes the roles a node can take in a flood path trace.
type NodeKind uint8

const (
	KindDrone NodeKind = iota
	KindClient
	KindServer
)

func (k NodeKind) String() string {
	switch k {
	case KindDrone:
		return "drone"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// TraceEntry is one step of a flood path trace.
type TraceEntry struct {
	ID   NodeID
	Kind NodeKind
}
