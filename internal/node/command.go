package node

import "aetheric.io/dronegrid/pkg/wire"

// handleCommand applies one controller directive. Returns true when the
// reactor must stop.
func (d *Drone) handleCommand(cmd wire.Command) (stop bool) {
	switch c := cmd.(type) {
	case wire.AddLink:
		if d.links.Add(c.Node, c.Ch) {
			d.log.Infof("link to node %d added", c.Node)
		} else {
			d.log.Warnf("already linked to node %d, keeping the existing channel", c.Node)
		}
	case wire.RemoveLink:
		if d.links.Remove(c.Node) {
			d.log.Infof("link to node %d removed", c.Node)
		} else {
			d.log.Warnf("no link to node %d, nothing removed", c.Node)
		}
	case wire.SetDropRate:
		if c.Rate < 0 || c.Rate > 1 {
			d.log.Errorf("drop rate %v outside [0, 1], keeping %v", c.Rate, d.dropRate)
		} else {
			d.log.Infof("drop rate set to %v", c.Rate)
			d.dropRate = c.Rate
		}
	case wire.Crash:
		// Cached fragments are discarded, not drained.
		d.log.Warn("crash command received, stopping reactor")
		return true
	default:
		d.log.Errorf("unknown command %T ignored", cmd)
	}
	return false
}
