package node

import "testing"

func TestDedupSet(t *testing.T) {
	s := NewDedupSet()

	if s.Seen(1, 10) {
		t.Error("empty set should not have seen anything")
	}
	s.Mark(1, 10)
	if !s.Seen(1, 10) {
		t.Error("marked pair should be seen")
	}
	if s.Seen(1, 11) {
		t.Error("same flood id from a different initiator is a distinct pair")
	}
	if s.Seen(2, 10) {
		t.Error("different flood id from the same initiator is a distinct pair")
	}

	s.Mark(1, 10)
	if s.Len() != 1 {
		t.Errorf("Len: got %d, want 1", s.Len())
	}
}
