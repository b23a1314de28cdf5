// Package memory implements the task address-space abstraction: memory
// areas, the address space holding them, and the staged builder used
// when launching a program image.
package memory

import (
	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"

	ds "github.com/ranmrdrakono/memspace/data_structures"
	"github.com/ranmrdrakono/memspace/paging"
)

// Area is a contiguous run of virtual pages sharing one mapping policy
// and one permission set. A Framed area exclusively owns the physical
// frames backing its pages: no two areas ever reference the same frame,
// and each frame is released exactly once, on unmap, shrink or teardown.
type Area struct {
	rng    ds.VPNRange
	kind   ds.AreaKind
	perm   ds.Perm
	frames map[uint64]paging.Frame
}

// NewArea builds an empty area covering the pages from the floor of
// start to the ceiling of end. start must not exceed end.
func NewArea(start, end uint64, kind ds.AreaKind, perm ds.Perm) *Area {
	if start > end {
		log.WithFields(log.Fields{"start": start, "end": end}).Panic("area bounds out of order")
	}
	return &Area{
		rng:    ds.VPNRange{From: ds.PageFloor(start), To: ds.PageCeil(end)},
		kind:   kind,
		perm:   perm,
		frames: make(map[uint64]paging.Frame),
	}
}

// CloneShape returns an empty area with the same range, kind and
// permission as other but none of its frames. The caller re-populates
// content after mapping it.
func CloneShape(other *Area) *Area {
	return &Area{
		rng:    other.rng,
		kind:   other.kind,
		perm:   other.perm,
		frames: make(map[uint64]paging.Frame),
	}
}

func (a *Area) Range() ds.VPNRange {
	return a.rng
}

func (a *Area) Kind() ds.AreaKind {
	return a.kind
}

func (a *Area) Perm() ds.Perm {
	return a.perm
}

// OwnedFrames reports how many physical frames the area currently owns.
func (a *Area) OwnedFrames() int {
	return len(a.frames)
}

// MapOne installs the mapping for a single page. Identical areas reuse
// the vpn as the ppn; Framed areas allocate a fresh zeroed frame and
// take ownership of it.
func (a *Area) MapOne(pt *paging.PageTable, vpn uint64) *errors.Error {
	var ppn paging.Frame
	switch a.kind {
	case ds.Identical:
		ppn = paging.Frame(vpn)
	case ds.Framed:
		frame, err := paging.AllocFrame()
		if err != nil {
			return err
		}
		a.frames[vpn] = frame
		ppn = frame
	}
	pt.Map(vpn, ppn, paging.FlagsFor(a.perm))
	return nil
}

// UnmapOne releases vpn's frame if the area owns one and removes the
// page-table entry.
func (a *Area) UnmapOne(pt *paging.PageTable, vpn uint64) {
	if a.kind == ds.Framed {
		if frame, ok := a.frames[vpn]; ok {
			paging.FreeFrame(frame)
			delete(a.frames, vpn)
		}
	}
	pt.Unmap(vpn)
}

// Map installs every page in the area's range. On allocation failure the
// pages mapped so far stay mapped; rollback belongs to the caller.
func (a *Area) Map(pt *paging.PageTable) *errors.Error {
	for vpn := a.rng.From; vpn < a.rng.To; vpn++ {
		if err := a.MapOne(pt, vpn); err != nil {
			return err
		}
	}
	return nil
}

// Unmap removes every page in the area's range, releasing owned frames.
func (a *Area) Unmap(pt *paging.PageTable) {
	for vpn := a.rng.From; vpn < a.rng.To; vpn++ {
		a.UnmapOne(pt, vpn)
	}
}

// ShrinkTo unmaps [newEnd, end), releasing the trailing frames, then
// narrows the range. newEnd must lie within [start, end].
func (a *Area) ShrinkTo(pt *paging.PageTable, newEnd uint64) {
	if newEnd > a.rng.To || newEnd < a.rng.From {
		log.WithFields(log.Fields{"newEnd": newEnd, "range": a.rng}).Panic("shrink boundary out of order")
	}
	for vpn := newEnd; vpn < a.rng.To; vpn++ {
		a.UnmapOne(pt, vpn)
	}
	a.rng.To = newEnd
}

// ExtendTo maps [end, newEnd) as fresh pages under the area's policy and
// permission, then widens the range. newEnd must not precede the current
// end. The range grows page by page so a mid-extension allocation
// failure leaves every mapped page accounted for.
func (a *Area) ExtendTo(pt *paging.PageTable, newEnd uint64) *errors.Error {
	if newEnd < a.rng.To {
		log.WithFields(log.Fields{"newEnd": newEnd, "range": a.rng}).Panic("extend boundary out of order")
	}
	for vpn := a.rng.To; vpn < newEnd; vpn++ {
		if err := a.MapOne(pt, vpn); err != nil {
			return err
		}
		a.rng.To = vpn + 1
	}
	return nil
}

// CopyInitialData copies data into the area's already-mapped pages, one
// page-worth at a time from the area's first page. Frames come zeroed
// from the allocator, so the tail of the final partial page needs no
// explicit padding. Only Framed areas carry initial data, and the data
// must fit in the mapped range.
func (a *Area) CopyInitialData(pt *paging.PageTable, data []byte) {
	if a.kind != ds.Framed {
		log.WithFields(log.Fields{"kind": a.kind}).Panic("initial data on a non-framed area")
	}
	if uint64(len(data)) > a.rng.Length()*ds.PageSize {
		log.WithFields(log.Fields{"len": len(data), "pages": a.rng.Length()}).Panic("initial data exceeds mapped capacity")
	}
	vpn := a.rng.From
	for start := 0; start < len(data); start += ds.PageSize {
		end := start + ds.PageSize
		if end > len(data) {
			end = len(data)
		}
		entry, ok := pt.Translate(vpn)
		if !ok {
			log.WithFields(log.Fields{"vpn": vpn}).Panic("initial data copy into unmapped page")
		}
		copy(entry.PPN().Bytes(), data[start:end])
		vpn++
	}
}
