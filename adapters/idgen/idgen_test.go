package idgen

import "testing"

func TestUUID_New(t *testing.T) {
	g := UUID{}

	a := g.New()
	b := g.New()
	if a == b {
		t.Error("consecutive UUIDs should differ")
	}
	if len(a) != 36 {
		t.Errorf("len = %d, want 36", len(a))
	}
}

func TestSequential(t *testing.T) {
	g := NewSequential("req_")

	if got := g.New(); got != "req_1" {
		t.Errorf("New() = %q, want req_1", got)
	}
	if got := g.New(); got != "req_2" {
		t.Errorf("New() = %q, want req_2", got)
	}

	g.Reset()
	if got := g.New(); got != "req_1" {
		t.Errorf("after Reset: New() = %q, want req_1", got)
	}
}
