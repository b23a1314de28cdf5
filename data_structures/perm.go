package data_structures

// Perm describes the access capabilities of a virtual memory region.
// U marks the region accessible from unprivileged execution; regions
// reserved for the kernel (trap-context storage, trampoline) never
// carry it.
type Perm uint

const (
	R Perm = 1 << 0
	W Perm = 1 << 1
	X Perm = 1 << 2
	U Perm = 1 << 3
)

// Has returns true if every capability in other is present in p.
func (p Perm) Has(other Perm) bool {
	return p&other == other
}

func (p Perm) String() string {
	buf := []byte("----")
	if p.Has(R) {
		buf[0] = 'r'
	}
	if p.Has(W) {
		buf[1] = 'w'
	}
	if p.Has(X) {
		buf[2] = 'x'
	}
	if p.Has(U) {
		buf[3] = 'u'
	}
	return string(buf)
}
