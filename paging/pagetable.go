package paging

import (
	"github.com/go-errors/errors"

	ds "github.com/ranmrdrakono/memspace/data_structures"
)

// EntryFlags are the permission bits of a page-table entry, laid out
// Sv39-style.
type EntryFlags uint64

const (
	FlagValid EntryFlags = 1 << 0
	FlagRead  EntryFlags = 1 << 1
	FlagWrite EntryFlags = 1 << 2
	FlagExec  EntryFlags = 1 << 3
	FlagUser  EntryFlags = 1 << 4

	FlagAccessed EntryFlags = 1 << 6
	FlagDirty    EntryFlags = 1 << 7
)

const entryFlagMask = uint64(0x3ff)

// FlagsFor translates an area permission set into entry flags. The valid
// bit is always set; this is the single point where abstract permissions
// meet the hardware encoding.
func FlagsFor(perm ds.Perm) EntryFlags {
	flags := FlagValid
	if perm.Has(ds.R) {
		flags |= FlagRead
	}
	if perm.Has(ds.W) {
		flags |= FlagWrite
	}
	if perm.Has(ds.X) {
		flags |= FlagExec
	}
	if perm.Has(ds.U) {
		flags |= FlagUser
	}
	return flags
}

// Entry is one page-table entry: the physical page number shifted left
// by 10 with the flag bits below it.
type Entry uint64

func NewEntry(ppn Frame, flags EntryFlags) Entry {
	return Entry(uint64(ppn)<<10 | uint64(flags))
}

// PPN returns the physical page number the entry points at.
func (e Entry) PPN() Frame {
	return Frame(uint64(e) >> 10)
}

func (e Entry) Flags() EntryFlags {
	return EntryFlags(uint64(e) & entryFlagMask)
}

// HasFlags returns true if this entry has all the input flags set.
func (e Entry) HasFlags(flags EntryFlags) bool {
	return e.Flags()&flags == flags
}

func (e Entry) Valid() bool {
	return e.HasFlags(FlagValid)
}

func (e Entry) Readable() bool {
	return e.HasFlags(FlagRead)
}

func (e Entry) Writable() bool {
	return e.HasFlags(FlagWrite)
}

func (e Entry) Executable() bool {
	return e.HasFlags(FlagExec)
}

func (e Entry) UserAccessible() bool {
	return e.HasFlags(FlagUser)
}

// satp mode field selecting 39-bit virtual addressing.
const satpSv39 = uint64(8) << 60

// PageTable realizes one address space's vpn to ppn mapping. It owns a
// root frame so its token names real physical memory; the entries live
// in a flat map since multi-level walk layout is outside this core.
type PageTable struct {
	root    Frame
	entries map[uint64]Entry
}

func NewPageTable() (*PageTable, *errors.Error) {
	root, err := AllocFrame()
	if err != nil {
		return nil, err
	}
	return &PageTable{root: root, entries: make(map[uint64]Entry)}, nil
}

// Map installs vpn -> ppn with the given flags. Mapping a vpn that is
// already mapped is a programming error.
func (pt *PageTable) Map(vpn uint64, ppn Frame, flags EntryFlags) {
	if _, ok := pt.entries[vpn]; ok {
		panic("paging: remap")
	}
	pt.entries[vpn] = NewEntry(ppn, flags)
}

// Unmap removes the entry for vpn. Unmapping a vpn that is not mapped is
// a programming error.
func (pt *PageTable) Unmap(vpn uint64) {
	if _, ok := pt.entries[vpn]; !ok {
		panic("paging: unmap of unmapped page")
	}
	delete(pt.entries, vpn)
}

// Translate returns the entry backing vpn, if any.
func (pt *PageTable) Translate(vpn uint64) (Entry, bool) {
	e, ok := pt.entries[vpn]
	return e, ok
}

// Token returns the opaque activation value for this table, in satp
// layout: mode bits over the root physical page number.
func (pt *PageTable) Token() uint64 {
	return satpSv39 | uint64(pt.root)
}

// Release frees the root frame. Callers tearing a space down entirely
// call this after dropping its areas; the table must not be used
// afterwards.
func (pt *PageTable) Release() {
	if pt.root.Valid() {
		FreeFrame(pt.root)
		pt.root = InvalidFrame
	}
}
