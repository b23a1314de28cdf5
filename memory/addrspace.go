package memory

import (
	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ranmrdrakono/memspace/arch"
	ds "github.com/ranmrdrakono/memspace/data_structures"
	"github.com/ranmrdrakono/memspace/paging"
)

// AddressSpace is the unit of process isolation: an ordered list of
// areas realized by one page table. Every page-table mapping traces back
// either to an area or to the trampoline singleton installed outside the
// area mechanism.
type AddressSpace struct {
	pt    *paging.PageTable
	areas []*Area

	trampolineVPN uint64
	trampolinePPN paging.Frame
	hasTrampoline bool
}

// NewBare returns an empty space with a fresh page table and no areas.
func NewBare() (*AddressSpace, *errors.Error) {
	pt, err := paging.NewPageTable()
	if err != nil {
		return nil, err
	}
	return &AddressSpace{pt: pt}, nil
}

// Token returns the opaque root value used to activate this space.
func (s *AddressSpace) Token() uint64 {
	return s.pt.Token()
}

// Translate returns the page-table entry backing vpn, if any.
func (s *AddressSpace) Translate(vpn uint64) (paging.Entry, bool) {
	return s.pt.Translate(vpn)
}

// AreaCount reports how many areas are currently installed.
func (s *AddressSpace) AreaCount() int {
	return len(s.areas)
}

// OwnedFrames reports the total number of frames owned across all areas.
func (s *AddressSpace) OwnedFrames() int {
	total := 0
	for _, area := range s.areas {
		total += area.OwnedFrames()
	}
	return total
}

// Push maps area into the space's page table, copies in optional initial
// data and appends it to the area list. Every area becomes live through
// this path. Area start pages must be unique within one space.
func (s *AddressSpace) Push(area *Area, data []byte) *errors.Error {
	if err := area.Map(s.pt); err != nil {
		return err
	}
	if data != nil {
		area.CopyInitialData(s.pt, data)
	}
	s.areas = append(s.areas, area)
	return nil
}

// InsertFramed builds a framed area over the rounded [start, end) range
// and installs it with no initial content.
func (s *AddressSpace) InsertFramed(start, end uint64, perm ds.Perm) *errors.Error {
	return s.Push(NewArea(start, end, ds.Framed, perm), nil)
}

// RemoveAreaWithStart retires the area whose range begins at startVPN,
// releasing its frames. It reports whether such an area existed.
func (s *AddressSpace) RemoveAreaWithStart(startVPN uint64) bool {
	for i, area := range s.areas {
		if area.rng.From == startVPN {
			area.Unmap(s.pt)
			s.areas = append(s.areas[:i], s.areas[i+1:]...)
			return true
		}
	}
	return false
}

// RecycleDataPages unmaps every area, releasing all owned frames, and
// empties the area list. Mappings installed outside the area mechanism
// (the trampoline) stay; a full teardown also calls Release.
func (s *AddressSpace) RecycleDataPages() {
	for _, area := range s.areas {
		area.Unmap(s.pt)
	}
	s.areas = nil
}

// Release drops every area and frees the page table's root frame. The
// space must not be used afterwards.
func (s *AddressSpace) Release() {
	s.RecycleDataPages()
	s.pt.Release()
}

// Shrink narrows the area starting at start's page so it ends at the
// ceiling of newEnd, releasing the pages beyond it. It reports whether
// an area starts exactly there.
func (s *AddressSpace) Shrink(start, newEnd uint64) bool {
	area := s.areaWithStart(ds.PageFloor(start))
	if area == nil {
		return false
	}
	area.ShrinkTo(s.pt, ds.PageCeil(newEnd))
	return true
}

// Append widens the area starting at start's page so it ends at the
// ceiling of newEnd. The bool reports whether an area starts exactly
// there; the error reports frame exhaustion while mapping new pages.
func (s *AddressSpace) Append(start, newEnd uint64) (bool, *errors.Error) {
	area := s.areaWithStart(ds.PageFloor(start))
	if area == nil {
		return false, nil
	}
	return true, area.ExtendTo(s.pt, ds.PageCeil(newEnd))
}

func (s *AddressSpace) areaWithStart(vpn uint64) *Area {
	for _, area := range s.areas {
		if area.rng.From == vpn {
			return area
		}
	}
	return nil
}

// MapTrampoline installs the shared trampoline page directly into the
// page table, outside the area mechanism: the frame belongs to the
// system, is identical in every address space, and must never be
// released by area bookkeeping. Mapped read+execute, kernel only.
func (s *AddressSpace) MapTrampoline(vpn uint64, ppn paging.Frame) {
	s.pt.Map(vpn, ppn, paging.FlagValid|paging.FlagRead|paging.FlagExec)
	s.trampolineVPN, s.trampolinePPN = vpn, ppn
	s.hasTrampoline = true
}

// Activate installs this space's root token on the executing core and
// flushes stale translations. Call only when about to enter this
// space's code.
func (s *AddressSpace) Activate() {
	arch.ActivateRoot(s.pt.Token())
}

// CloneFrom deep-duplicates src: same area shapes at the same addresses,
// the trampoline re-installed at its recorded location, and every mapped
// page's bytes copied into freshly allocated frames. The two spaces are
// mapping-isomorphic but share no frame afterwards.
func CloneFrom(src *AddressSpace) (*AddressSpace, *errors.Error) {
	clone, err := NewBare()
	if err != nil {
		return nil, err
	}
	if src.hasTrampoline {
		clone.MapTrampoline(src.trampolineVPN, src.trampolinePPN)
	}
	for _, area := range src.areas {
		if err := clone.Push(CloneShape(area), nil); err != nil {
			return nil, err
		}
		if area.kind != ds.Framed {
			continue
		}
		for vpn := area.rng.From; vpn < area.rng.To; vpn++ {
			srcEntry, ok := src.Translate(vpn)
			if !ok {
				log.WithFields(log.Fields{"vpn": vpn}).Panic("source area page not mapped")
			}
			dstEntry, ok := clone.Translate(vpn)
			if !ok {
				log.WithFields(log.Fields{"vpn": vpn}).Panic("clone area page not mapped")
			}
			copy(dstEntry.PPN().Bytes(), srcEntry.PPN().Bytes())
		}
	}
	return clone, nil
}
