package data_structures

// AreaKind selects how an area backs its virtual pages.
type AreaKind uint

const (
	// Identical reuses each virtual page number directly as the
	// physical page number. No frames are owned; used for
	// kernel-identity regions only.
	Identical AreaKind = 1
	// Framed backs every mapped virtual page with a freshly
	// allocated physical frame owned by the area.
	Framed AreaKind = 2
)

func (k AreaKind) String() string {
	switch k {
	case Identical:
		return "identical"
	case Framed:
		return "framed"
	}
	return "unknown"
}
