package sim

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aetheric.io/dronegrid/internal/config"
	"aetheric.io/dronegrid/internal/log"
	"aetheric.io/dronegrid/pkg/wire"
)

// lineConfig is client 10 - drone 1 - drone 2 - server 20.
func lineConfig() *config.GlobalConfig {
	return &config.GlobalConfig{
		Network: config.NetworkConfig{
			ChannelCapacity: 64,
			CacheSize:       16,
			Nodes: []config.NodeConfig{
				{ID: 10, Kind: "client", Links: []wire.NodeID{1}},
				{ID: 1, Links: []wire.NodeID{10, 2}},
				{ID: 2, Links: []wire.NodeID{1, 20}},
				{ID: 20, Kind: "server", Links: []wire.NodeID{2}},
			},
		},
	}
}

func buildRunning(t *testing.T, cfg *config.GlobalConfig) *Network {
	t.Helper()
	net, err := Build(cfg, log.Discard())
	require.NoError(t, err)
	net.Start()
	t.Cleanup(net.Stop)
	return net
}

// collect reads packets from an endpoint until n have arrived or the
// deadline passes.
func collect(t *testing.T, ep *Endpoint, n int, timeout time.Duration) []wire.Packet {
	t.Helper()
	var got []wire.Packet
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case p := <-ep.Inbound:
			got = append(got, p)
		case <-deadline:
			t.Fatalf("got %d of %d packets before the deadline", len(got), n)
		}
	}
	return got
}

func TestNetwork_EndToEndDelivery(t *testing.T) {
	net := buildRunning(t, lineConfig())
	server, ok := net.Endpoint(20)
	require.True(t, ok)

	msg := bytes.Repeat([]byte("dronegrid "), 30) // 300 bytes, 3 fragments
	session, err := net.Send(10, []wire.NodeID{10, 1, 2, 20}, msg)
	require.NoError(t, err)

	packets := collect(t, server, 3, 3*time.Second)
	frags := make([]wire.Fragment, 0, len(packets))
	for _, p := range packets {
		assert.Equal(t, session, p.SessionID)
		frag, ok := p.Payload.(wire.Fragment)
		require.True(t, ok, "server should only see fragments, got %v", p.Payload)
		frags = append(frags, frag)
	}

	rebuilt, err := Reassemble(frags)
	require.NoError(t, err)
	assert.Equal(t, msg, rebuilt)
}

func TestNetwork_DropSurfacesAsNack(t *testing.T) {
	cfg := lineConfig()
	cfg.Network.Nodes[2].DropRate = 1.0 // drone 2 drops everything
	net := buildRunning(t, cfg)
	client, ok := net.Endpoint(10)
	require.True(t, ok)

	_, err := net.Send(10, []wire.NodeID{10, 1, 2, 20}, []byte("hi"))
	require.NoError(t, err)

	packets := collect(t, client, 1, 3*time.Second)
	nack, ok := packets[0].Payload.(wire.Nack)
	require.True(t, ok, "client should get the NACK, got %v", packets[0].Payload)
	assert.Equal(t, wire.NackDropped, nack.Kind)
}

func TestNetwork_FloodReachesInitiator(t *testing.T) {
	net := buildRunning(t, lineConfig())
	client, ok := net.Endpoint(10)
	require.True(t, ok)

	floodID, err := net.StartFlood(10)
	require.NoError(t, err)

	packets := collect(t, client, 1, 3*time.Second)
	resp, ok := packets[0].Payload.(wire.FloodResponse)
	require.True(t, ok, "expected a flood response, got %v", packets[0].Payload)
	assert.Equal(t, floodID, resp.FloodID)
	require.NotEmpty(t, resp.PathTrace)
	assert.Equal(t, wire.TraceEntry{ID: 10, Kind: wire.KindClient}, resp.PathTrace[0])
}

func TestNetwork_SendValidation(t *testing.T) {
	net := buildRunning(t, lineConfig())

	_, err := net.Send(1, []wire.NodeID{1, 2}, nil)
	assert.Error(t, err, "drones cannot originate traffic")

	_, err = net.Send(10, []wire.NodeID{10}, nil)
	assert.Error(t, err, "route needs at least one hop")

	_, err = net.Send(10, []wire.NodeID{10, 2, 20}, nil)
	assert.Error(t, err, "first hop must be a link of the sender")
}

func TestFragmentRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		size  int
		total int
	}{
		{"empty", 0, 1},
		{"single byte", 1, 1},
		{"exactly one fragment", wire.FragmentSize, 1},
		{"one byte over", wire.FragmentSize + 1, 2},
		{"several fragments", 300, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xAB}, tc.size)
			frags := Fragment(data)
			require.Len(t, frags, tc.total)
			for i, f := range frags {
				assert.Equal(t, uint64(i), f.FragmentIndex)
				assert.Equal(t, uint64(tc.total), f.TotalFragments)
			}

			rebuilt, err := Reassemble(frags)
			require.NoError(t, err)
			if tc.size == 0 {
				assert.Empty(t, rebuilt)
			} else {
				assert.Equal(t, data, rebuilt)
			}
		})
	}
}

func TestReassembleRejectsGaps(t *testing.T) {
	frags := Fragment(bytes.Repeat([]byte{1}, 300))

	_, err := Reassemble(frags[:2])
	assert.Error(t, err)

	// Out of order is fine.
	shuffled := []wire.Fragment{frags[2], frags[0], frags[1]}
	rebuilt, err := Reassemble(shuffled)
	require.NoError(t, err)
	assert.Len(t, rebuilt, 300)
}
