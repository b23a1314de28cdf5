// Package elf turns an executable image into a runnable address space:
// each loadable segment becomes a framed area with segment-derived
// permissions and copied file content, followed by the guard page, the
// user stack, a zero-length growth anchor and the trap-context page.
package elf

import (
	"bytes"
	"debug/elf"

	"github.com/OneOfOne/xxhash"
	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"

	ds "github.com/ranmrdrakono/memspace/data_structures"
	"github.com/ranmrdrakono/memspace/memory"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

func segPerm(in elf.ProgFlag) ds.Perm {
	res := ds.U
	if in&elf.PF_R != 0 {
		res |= ds.R
	}
	if in&elf.PF_W != 0 {
		res |= ds.W
	}
	if in&elf.PF_X != 0 {
		res |= ds.X
	}
	return res
}

type segment struct {
	start, end uint64
	perm       ds.Perm
	data       []byte
}

// LoadProgram builds the address space for image. The trampoline page is
// installed at trampolineVA over trampolinePA, the trap-context page
// fills [trapCtxVA, trampolineVA), and the user stack of stackSize bytes
// sits one permanently-unmapped guard page above the highest segment.
// It returns the finished space, the initial user stack pointer and the
// image's entry point. A malformed image fails before any mapping is
// installed.
func LoadProgram(image []byte, trampolineVA, trampolinePA, trapCtxVA, stackSize uint64) (*memory.AddressSpace, uint64, uint64, *errors.Error) {
	if len(image) < len(elfMagic) || !bytes.Equal(image[:len(elfMagic)], elfMagic) {
		return nil, 0, 0, errors.Errorf("bad image magic")
	}
	file, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, 0)
	}

	var segs []segment
	maxEndVPN := uint64(0)
	for _, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Off+prog.Filesz > uint64(len(image)) {
			return nil, 0, 0, errors.Errorf("segment data out of image bounds: off=%#x filesz=%#x", prog.Off, prog.Filesz)
		}
		seg := segment{
			start: prog.Vaddr,
			end:   prog.Vaddr + prog.Memsz,
			perm:  segPerm(prog.Flags),
			data:  image[prog.Off : prog.Off+prog.Filesz],
		}
		if endVPN := ds.PageCeil(seg.end); endVPN > maxEndVPN {
			maxEndVPN = endVPN
		}
		segs = append(segs, seg)
	}

	log.WithFields(log.Fields{
		"entry":    file.Entry,
		"segments": len(segs),
		"digest":   xxhash.Checksum64(image),
	}).Debug("loading program image")

	builder, berr := memory.NewBuilder()
	if berr != nil {
		return nil, 0, 0, berr
	}
	builder = builder.MapTrampoline(trampolineVA, trampolinePA)
	for _, seg := range segs {
		log.WithFields(log.Fields{
			"start":  seg.start,
			"end":    seg.end,
			"filesz": len(seg.data),
			"perm":   seg.perm,
		}).Debug("mapping load segment")
		builder = builder.PushFramedWithData(seg.start, seg.end, seg.perm, seg.data)
	}

	// The page below the stack stays unmapped: a stack overflow faults
	// instead of silently corrupting the highest segment.
	stackBottom := ds.PageBase(maxEndVPN) + ds.PageSize
	stackTop := stackBottom + stackSize

	rwu := ds.R | ds.W | ds.U
	space, lerr := builder.
		PushFramed(stackBottom, stackTop, rwu).
		PushFramed(stackTop, stackTop, rwu).
		PushFramed(trapCtxVA, trampolineVA, ds.R|ds.W).
		Build()
	if lerr != nil {
		return nil, 0, 0, lerr
	}
	return space, stackTop, file.Entry, nil
}
