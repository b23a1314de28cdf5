package data_structures

const (
	PageShift = 12
	PageSize  = 1 << PageShift
)

// PageFloor returns the number of the page containing addr.
func PageFloor(addr uint64) uint64 {
	return addr >> PageShift
}

// PageCeil returns the number of the first page at or above addr.
func PageCeil(addr uint64) uint64 {
	return (addr + PageSize - 1) >> PageShift
}

// PageBase returns the first address of page vpn.
func PageBase(vpn uint64) uint64 {
	return vpn << PageShift
}
