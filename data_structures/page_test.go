package data_structures

import (
	"testing"
)

func TestPageFloorCeil(t *testing.T) {
	specs := []struct {
		addr     uint64
		expFloor uint64
		expCeil  uint64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{4095, 0, 1},
		{4096, 1, 1},
		{4097, 1, 2},
		{0x2fff, 2, 3},
		{0x3000, 3, 3},
	}

	for specIndex, spec := range specs {
		if got := PageFloor(spec.addr); got != spec.expFloor {
			t.Errorf("[spec %d] expected PageFloor(%#x) to return %d; got %d", specIndex, spec.addr, spec.expFloor, got)
		}
		if got := PageCeil(spec.addr); got != spec.expCeil {
			t.Errorf("[spec %d] expected PageCeil(%#x) to return %d; got %d", specIndex, spec.addr, spec.expCeil, got)
		}
	}
}

func TestPageBase(t *testing.T) {
	if got := PageBase(3); got != 0x3000 {
		t.Errorf("expected PageBase(3) to return 0x3000; got %#x", got)
	}
}

func TestPermString(t *testing.T) {
	specs := []struct {
		perm Perm
		exp  string
	}{
		{0, "----"},
		{R, "r---"},
		{R | W, "rw--"},
		{R | X, "r-x-"},
		{R | W | U, "rw-u"},
		{R | W | X | U, "rwxu"},
	}

	for specIndex, spec := range specs {
		if got := spec.perm.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestPermHas(t *testing.T) {
	p := R | W | U
	if !p.Has(R | W) {
		t.Error("expected R|W|U to contain R|W")
	}
	if p.Has(X) {
		t.Error("expected R|W|U not to contain X")
	}
}

func TestVPNRange(t *testing.T) {
	r := NewVPNRange(2, 5)
	if r.Length() != 3 {
		t.Errorf("expected length 3; got %d", r.Length())
	}
	if r.IsEmpty() {
		t.Error("expected range to be non-empty")
	}
	if !r.Contains(2) || !r.Contains(4) || r.Contains(5) {
		t.Error("expected [2, 5) to contain 2 and 4 but not 5")
	}

	// reversed bounds are swapped, not rejected
	swapped := NewVPNRange(5, 2)
	if swapped.From != 2 || swapped.To != 5 {
		t.Errorf("expected swapped range [2, 5); got [%d, %d)", swapped.From, swapped.To)
	}

	empty := NewVPNRange(7, 7)
	if !empty.IsEmpty() || empty.Length() != 0 {
		t.Error("expected [7, 7) to be empty")
	}
}
