package node

import (
	"testing"

	"aetheric.io/dronegrid/pkg/wire"
)

func TestLinkTable_FirstWriterWins(t *testing.T) {
	first := make(chan wire.Packet, 1)
	second := make(chan wire.Packet, 1)
	tbl := NewLinkTable(nil)

	if !tbl.Add(5, first) {
		t.Fatal("first Add should succeed")
	}
	if tbl.Add(5, second) {
		t.Error("second Add for the same node should be a no-op")
	}

	ch, ok := tbl.Get(5)
	if !ok {
		t.Fatal("link should exist")
	}
	ch <- wire.Packet{SessionID: 42}
	select {
	case p := <-first:
		if p.SessionID != 42 {
			t.Errorf("unexpected packet %v", p)
		}
	default:
		t.Error("first-registered channel should have stayed installed")
	}
}

func TestLinkTable_RemoveAbsent(t *testing.T) {
	tbl := NewLinkTable(map[wire.NodeID]chan<- wire.Packet{3: make(chan wire.Packet)})

	if tbl.Remove(9) {
		t.Error("removing an absent link should report false")
	}
	if tbl.Len() != 1 {
		t.Errorf("link set should be unchanged, got %d links", tbl.Len())
	}
	if !tbl.Remove(3) {
		t.Error("removing an existing link should report true")
	}
	if tbl.Has(3) {
		t.Error("removed link should be gone")
	}
}

func TestLinkTable_NeighborsSorted(t *testing.T) {
	tbl := NewLinkTable(nil)
	for _, id := range []wire.NodeID{9, 2, 7, 4} {
		tbl.Add(id, make(chan wire.Packet))
	}
	got := tbl.Neighbors()
	want := []wire.NodeID{2, 4, 7, 9}
	if len(got) != len(want) {
		t.Fatalf("Neighbors: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Neighbors: got %v, want %v", got, want)
		}
	}
}
