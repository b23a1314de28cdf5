package data_structures

import (
	log "github.com/sirupsen/logrus"
)

// VPNRange is a half-open run [From, To) of virtual page numbers.
type VPNRange struct {
	From, To uint64
}

func NewVPNRange(from, to uint64) VPNRange {
	if from > to {
		log.WithFields(log.Fields{"from": from, "to": to}).Warning("Range with swaped bounds")
		from, to = to, from
	}
	return VPNRange{From: from, To: to}
}

func (r VPNRange) Length() uint64 {
	return r.To - r.From
}

func (r VPNRange) IsEmpty() bool {
	return r.To <= r.From
}

func (r VPNRange) Contains(vpn uint64) bool {
	return r.From <= vpn && vpn < r.To
}
