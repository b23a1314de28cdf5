// Package paging provides the physical-frame and page-table primitives
// underneath the memory package: frame allocation, page-table-entry
// encoding and the per-space translation table.
package paging

import (
	"math"
	"sync"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"

	ds "github.com/ranmrdrakono/memspace/data_structures"
)

// Frame is the number of one physical page.
type Frame uint64

// InvalidFrame is returned by allocators that fail to reserve a frame.
const InvalidFrame = Frame(math.MaxUint64)

func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the first physical address of the frame.
func (f Frame) Address() uint64 {
	return uint64(f) << ds.PageShift
}

// Bytes returns the frame's page-sized backing buffer from the current
// allocator.
func (f Frame) Bytes() []byte {
	return allocator.Bytes(f)
}

// FrameAllocator hands out zeroed physical page frames and takes them
// back. Implementations must be safe for concurrent Alloc/Free calls
// from different tasks' threads of control.
type FrameAllocator interface {
	Alloc() (Frame, *errors.Error)
	Free(f Frame)
	Bytes(f Frame) []byte
	FreeFrames() int
	AllocatedFrames() int
}

const (
	// DefaultPoolBase is the first frame past the kernel image.
	DefaultPoolBase = Frame(0x80400)
	// DefaultPoolFrames caps the default pool at 16 MiB of frames.
	DefaultPoolFrames = 4096
)

var allocator FrameAllocator = NewPoolAllocator(DefaultPoolBase, DefaultPoolFrames)

// SetAllocator replaces the package allocator and returns the previous
// one. Intended for system bring-up and tests; must not race with
// in-flight allocations.
func SetAllocator(a FrameAllocator) FrameAllocator {
	prev := allocator
	allocator = a
	return prev
}

func Allocator() FrameAllocator {
	return allocator
}

// AllocFrame reserves one zeroed frame from the package allocator.
// Exhaustion is fatal to the failing mapping; no reclamation is
// attempted here.
func AllocFrame() (Frame, *errors.Error) {
	return allocator.Alloc()
}

// FreeFrame returns a frame to the package allocator.
func FreeFrame(f Frame) {
	allocator.Free(f)
}

// PoolAllocator manages a fixed pool of page frames backed by one slab.
// Freed frames are reused LIFO; every frame handed out is zeroed.
type PoolAllocator struct {
	mu   sync.Mutex
	base Frame
	slab []byte
	free []Frame
	used map[Frame]bool
}

func NewPoolAllocator(base Frame, frames int) *PoolAllocator {
	p := &PoolAllocator{
		base: base,
		slab: make([]byte, frames*ds.PageSize),
		free: make([]Frame, 0, frames),
		used: make(map[Frame]bool),
	}
	for i := frames - 1; i >= 0; i-- {
		p.free = append(p.free, base+Frame(i))
	}
	return p
}

func (p *PoolAllocator) Alloc() (Frame, *errors.Error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return InvalidFrame, errors.Errorf("physical memory exhausted: %d frames in use", len(p.used))
	}
	f := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.used[f] = true
	b := p.bytesLocked(f)
	for i := range b {
		b[i] = 0
	}
	return f, nil
}

func (p *PoolAllocator) Free(f Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.used[f] {
		log.WithFields(log.Fields{"frame": f}).Panic("free of frame not owned by pool")
	}
	delete(p.used, f)
	p.free = append(p.free, f)
}

func (p *PoolAllocator) Bytes(f Frame) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytesLocked(f)
}

func (p *PoolAllocator) bytesLocked(f Frame) []byte {
	if f < p.base || f >= p.base+Frame(len(p.slab)>>ds.PageShift) {
		log.WithFields(log.Fields{"frame": f}).Panic("frame outside pool")
	}
	off := uint64(f-p.base) << ds.PageShift
	return p.slab[off : off+ds.PageSize : off+ds.PageSize]
}

func (p *PoolAllocator) FreeFrames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

func (p *PoolAllocator) AllocatedFrames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.used)
}
