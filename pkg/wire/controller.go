package wire

// Command is a controller-issued directive to a running node: one of
// AddLink, RemoveLink, SetDropRate or Crash.
type Command interface {
	isCommand()
}

// AddLink installs an outbound channel to a new neighbor. If a link to the
// node already exists the command is a no-op; the first registered channel
// stays installed.
type AddLink struct {
	Node NodeID
	Ch   chan<- Packet
}

// RemoveLink tears down the outbound link to a neighbor.
type RemoveLink struct {
	Node NodeID
}

// SetDropRate reconfigures the node's packet drop rate. Values outside
// [0, 1] are rejected and the previous rate is kept.
type SetDropRate struct {
	Rate float32
}

// Crash terminates the node's reactor at the next iteration boundary.
// Cached fragments are discarded, not drained.
type Crash struct{}

func (AddLink) isCommand()     {}
func (RemoveLink) isCommand()  {}
func (SetDropRate) isCommand() {}
func (Crash) isCommand()       {}

// Event is a node-emitted notification to the controller.
type Event interface {
	isEvent()
}

// PacketDropped reports a packet the node could not forward: the outbound
// link was missing at send time or the channel send failed. The controller
// is responsible for any recovery above the node level.
type PacketDropped struct {
	Packet Packet
}

func (PacketDropped) isEvent() {}
