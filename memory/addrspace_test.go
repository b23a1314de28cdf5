package memory

import (
	"testing"

	"github.com/ranmrdrakono/memspace/arch"
	ds "github.com/ranmrdrakono/memspace/data_structures"
	"github.com/ranmrdrakono/memspace/paging"
)

func newSpace(t *testing.T) *AddressSpace {
	t.Helper()
	space, err := NewBare()
	if err != nil {
		t.Fatalf("creating address space: %v", err)
	}
	return space
}

func TestInsertFramedMapsRange(t *testing.T) {
	withPool(t, 16)
	space := newSpace(t)

	if err := space.InsertFramed(0x1000, 0x3000, ds.R|ds.W|ds.U); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if space.AreaCount() != 1 {
		t.Fatalf("expected 1 area; got %d", space.AreaCount())
	}
	for vpn := uint64(1); vpn < 3; vpn++ {
		entry, ok := space.Translate(vpn)
		if !ok {
			t.Fatalf("expected vpn %d to be mapped", vpn)
		}
		if !entry.UserAccessible() || !entry.Writable() {
			t.Errorf("vpn %d: unexpected flags %b", vpn, entry.Flags())
		}
	}
}

func TestRemoveAreaWithStart(t *testing.T) {
	pool := withPool(t, 16)
	space := newSpace(t)

	if err := space.InsertFramed(0x1000, 0x3000, ds.R|ds.W); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// a miss leaves the space untouched
	areas, frames := space.AreaCount(), space.OwnedFrames()
	allocated := pool.AllocatedFrames()
	if space.RemoveAreaWithStart(9) {
		t.Fatal("expected removal of unknown start page to report not found")
	}
	if space.AreaCount() != areas || space.OwnedFrames() != frames || pool.AllocatedFrames() != allocated {
		t.Error("expected a removal miss to leave the space unchanged")
	}

	if !space.RemoveAreaWithStart(1) {
		t.Fatal("expected removal of area starting at vpn 1")
	}
	if space.AreaCount() != 0 {
		t.Errorf("expected no areas left; got %d", space.AreaCount())
	}
	for vpn := uint64(1); vpn < 3; vpn++ {
		if _, ok := space.Translate(vpn); ok {
			t.Errorf("expected vpn %d to be unmapped after removal", vpn)
		}
	}
}

func TestRecycleDataPagesKeepsTrampoline(t *testing.T) {
	pool := withPool(t, 32)
	space := newSpace(t)

	space.MapTrampoline(0x7fff, paging.Frame(0x200))
	if err := space.InsertFramed(0x1000, 0x3000, ds.R|ds.W); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := space.InsertFramed(0x5000, 0x6000, ds.R); err != nil {
		t.Fatalf("insert: %v", err)
	}

	space.RecycleDataPages()
	if space.AreaCount() != 0 || space.OwnedFrames() != 0 {
		t.Error("expected all areas dropped")
	}
	// only the page-table root remains allocated
	if pool.AllocatedFrames() != 1 {
		t.Errorf("expected only the root frame allocated; got %d", pool.AllocatedFrames())
	}
	if _, ok := space.Translate(0x7fff); !ok {
		t.Error("expected the trampoline mapping to survive recycling")
	}

	space.Release()
	if pool.AllocatedFrames() != 0 {
		t.Errorf("expected full teardown to release the root frame; %d allocated", pool.AllocatedFrames())
	}
}

func TestShrinkAppendByStart(t *testing.T) {
	withPool(t, 16)
	space := newSpace(t)

	if err := space.InsertFramed(0x1000, 0x2000, ds.R|ds.W|ds.U); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := space.Append(0x1000, 0x4000)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !ok {
		t.Fatal("expected append to find the area")
	}
	for vpn := uint64(1); vpn < 4; vpn++ {
		if _, mapped := space.Translate(vpn); !mapped {
			t.Errorf("expected vpn %d mapped after append", vpn)
		}
	}

	if !space.Shrink(0x1000, 0x2000) {
		t.Fatal("expected shrink to find the area")
	}
	for vpn := uint64(2); vpn < 4; vpn++ {
		if _, mapped := space.Translate(vpn); mapped {
			t.Errorf("expected vpn %d unmapped after shrink", vpn)
		}
	}

	// lookup misses are reported, not fatal
	if space.Shrink(0x9000, 0xa000) {
		t.Error("expected shrink miss for unknown start address")
	}
	if ok, err := space.Append(0x9000, 0xa000); ok || err != nil {
		t.Error("expected append miss for unknown start address")
	}
}

func TestActivateInstallsToken(t *testing.T) {
	withPool(t, 8)
	space := newSpace(t)

	space.Activate()
	if arch.ActiveRoot() != space.Token() {
		t.Errorf("expected active root %#x; got %#x", space.Token(), arch.ActiveRoot())
	}
	if space.Token()>>60 != 8 {
		t.Errorf("expected Sv39 mode bits in token; got %#x", space.Token())
	}
}

func TestCloneIsolation(t *testing.T) {
	withPool(t, 64)
	src := newSpace(t)
	src.MapTrampoline(0x7fff, paging.Frame(0x200))

	data := make([]byte, 2*ds.PageSize)
	for i := range data {
		data[i] = byte(i)
	}
	if err := src.Push(NewArea(0x1000, 0x3000, ds.Framed, ds.R|ds.W|ds.U), data); err != nil {
		t.Fatalf("push: %v", err)
	}

	clone, err := CloneFrom(src)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	// mapping-isomorphic: same vpns, same flags, disjoint frames
	for vpn := uint64(1); vpn < 3; vpn++ {
		srcEntry, srcOK := src.Translate(vpn)
		cloneEntry, cloneOK := clone.Translate(vpn)
		if !srcOK || !cloneOK {
			t.Fatalf("expected vpn %d mapped in both spaces", vpn)
		}
		if srcEntry.Flags() != cloneEntry.Flags() {
			t.Errorf("vpn %d: flag mismatch %b vs %b", vpn, srcEntry.Flags(), cloneEntry.Flags())
		}
		if srcEntry.PPN() == cloneEntry.PPN() {
			t.Errorf("vpn %d: clone shares frame %#x with source", vpn, uint64(srcEntry.PPN()))
		}

		srcBytes := srcEntry.PPN().Bytes()
		cloneBytes := cloneEntry.PPN().Bytes()
		for i := range srcBytes {
			if srcBytes[i] != cloneBytes[i] {
				t.Fatalf("vpn %d byte %d: content mismatch after clone", vpn, i)
			}
		}
	}

	// trampoline re-installed at the recorded location, same frame
	trampoline, ok := clone.Translate(0x7fff)
	if !ok {
		t.Fatal("expected trampoline mapping in clone")
	}
	if trampoline.PPN() != 0x200 {
		t.Errorf("expected trampoline frame 0x200; got %#x", uint64(trampoline.PPN()))
	}

	// mutating one space's frame must not affect the other
	srcEntry, _ := src.Translate(1)
	cloneEntry, _ := clone.Translate(1)
	cloneEntry.PPN().Bytes()[17] = 0xee
	if srcEntry.PPN().Bytes()[17] == 0xee {
		t.Error("expected source frame to be unaffected by clone write")
	}
	srcEntry.PPN().Bytes()[23] = 0xdd
	if cloneEntry.PPN().Bytes()[23] == 0xdd {
		t.Error("expected clone frame to be unaffected by source write")
	}
}
