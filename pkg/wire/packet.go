package wire

import "fmt"

// FragmentSize is the fixed size of a fragment's data block.
const FragmentSize = 128

// Packet is the unit of traffic exchanged between nodes. Session identifiers
// are assigned by the originating endpoint and are not validated for
// uniqueness anywhere in the overlay.
type Packet struct {
	SessionID     uint64
	RoutingHeader SourceRoutingHeader
	Payload       Payload
}

// Payload is one of FloodRequest, FloodResponse, Fragment, Ack or Nack.
type Payload interface {
	isPayload()
	fmt.Stringer
}

// FloodRequest propagates a topology discovery flood. PathTrace grows by
// append only as the request travels; it is never shortened.
type FloodRequest struct {
	FloodID     uint64
	InitiatorID NodeID
	PathTrace   []TraceEntry
}

// FloodResponse carries the accumulated path back to the flood initiator,
// walked backward along the reversed trace.
type FloodResponse struct {
	FloodID   uint64
	PathTrace []TraceEntry
}

// Fragment is one block of an endpoint-level message. Length gives the
// number of meaningful bytes in Data.
type Fragment struct {
	FragmentIndex  uint64
	TotalFragments uint64
	Length         uint8
	Data           [FragmentSize]byte
}

// Ack acknowledges receipt of a fragment end to end.
type Ack struct {
	FragmentIndex uint64
}

// NackKind classifies why a fragment could not be delivered.
type NackKind uint8

const (
	// NackErrorInRouting: the reporting node has no link to the next hop.
	NackErrorInRouting NackKind = iota
	// NackDestinationIsDrone: the route terminates at a drone, which is
	// never a valid endpoint for fragment traffic.
	NackDestinationIsDrone
	// NackDropped: the fragment fell inside the node's configured drop rate.
	NackDropped
	// NackUnexpectedRecipient: the packet arrived at a node other than the
	// one its header currently addresses.
	NackUnexpectedRecipient
)

func (k NackKind) String() string {
	switch k {
	case NackErrorInRouting:
		return "error_in_routing"
	case NackDestinationIsDrone:
		return "destination_is_drone"
	case NackDropped:
		return "dropped"
	case NackUnexpectedRecipient:
		return "unexpected_recipient"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Nack reports a delivery failure for a fragment. Node carries the
// identifier of the reporting node for the ErrorInRouting and
// UnexpectedRecipient kinds; it is zero otherwise.
type Nack struct {
	FragmentIndex uint64
	Kind          NackKind
	Node          NodeID
}

func (FloodRequest) isPayload()  {}
func (FloodResponse) isPayload() {}
func (Fragment) isPayload()      {}
func (Ack) isPayload()           {}
func (Nack) isPayload()          {}

func (f FloodRequest) String() string {
	return fmt.Sprintf("flood_request(id=%d initiator=%d trace=%d)", f.FloodID, f.InitiatorID, len(f.PathTrace))
}

func (f FloodResponse) String() string {
	return fmt.Sprintf("flood_response(id=%d trace=%d)", f.FloodID, len(f.PathTrace))
}

func (f Fragment) String() string {
	return fmt.Sprintf("fragment(%d/%d len=%d)", f.FragmentIndex, f.TotalFragments, f.Length)
}

func (a Ack) String() string {
	return fmt.Sprintf("ack(%d)", a.FragmentIndex)
}

func (n Nack) String() string {
	switch n.Kind {
	case NackErrorInRouting, NackUnexpectedRecipient:
		return fmt.Sprintf("nack(%d %s node=%d)", n.FragmentIndex, n.Kind, n.Node)
	default:
		return fmt.Sprintf("nack(%d %s)", n.FragmentIndex, n.Kind)
	}
}

// TraceHops projects a path trace onto its node identifiers, in order.
func TraceHops(trace []TraceEntry) []NodeID {
	hops := make([]NodeID, len(trace))
	for i, e := range trace {
		hops[i] = e.ID
	}
	return hops
}
