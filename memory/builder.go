package memory

import (
	"github.com/go-errors/errors"

	ds "github.com/ranmrdrakono/memspace/data_structures"
	"github.com/ranmrdrakono/memspace/paging"
)

// Builder stages the construction of an AddressSpace from an ordered
// sequence of regions without exposing the partially-built space. Push
// calls chain; Build is terminal and the builder must not be reused
// afterwards. The first staging error is deferred and reported by Build.
type Builder struct {
	space *AddressSpace
	err   *errors.Error
}

// NewBuilder returns a builder wrapping a fresh bare space.
func NewBuilder() (*Builder, *errors.Error) {
	space, err := NewBare()
	if err != nil {
		return nil, err
	}
	return &Builder{space: space}, nil
}

func (b *Builder) push(area *Area, data []byte) *Builder {
	if b.space == nil {
		panic("memory: builder used after Build")
	}
	if b.err == nil {
		b.err = b.space.Push(area, data)
	}
	return b
}

// PushIdentical stages an identically-mapped region.
func (b *Builder) PushIdentical(start, end uint64, perm ds.Perm) *Builder {
	return b.push(NewArea(start, end, ds.Identical, perm), nil)
}

// PushFramed stages a framed region with no initial content.
func (b *Builder) PushFramed(start, end uint64, perm ds.Perm) *Builder {
	return b.push(NewArea(start, end, ds.Framed, perm), nil)
}

// PushFramedWithData stages a framed region seeded with data.
func (b *Builder) PushFramedWithData(start, end uint64, perm ds.Perm, data []byte) *Builder {
	return b.push(NewArea(start, end, ds.Framed, perm), data)
}

// MapTrampoline stages the shared trampoline mapping at va -> pa.
func (b *Builder) MapTrampoline(va, pa uint64) *Builder {
	if b.space == nil {
		panic("memory: builder used after Build")
	}
	if b.err == nil {
		b.space.MapTrampoline(ds.PageFloor(va), paging.Frame(ds.PageFloor(pa)))
	}
	return b
}

// Build yields the finished space, or the first error deferred during
// staging. The builder is consumed.
func (b *Builder) Build() (*AddressSpace, *errors.Error) {
	if b.space == nil {
		panic("memory: builder used after Build")
	}
	space, err := b.space, b.err
	b.space = nil
	return space, err
}
