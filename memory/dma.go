package memory

import "github.com/kallendev/dmgcore/parcel"

// oamDMA implements the OAM DMA engine triggered by a write to FF46: a
// 160-byte copy from source<<8 into OAM, metered at one byte per 4
// T-cycles (one M-cycle) rather than happening instantaneously. While
// active, the real chip locks the CPU off the bus it isn't using for the
// transfer itself; Source/Active are exposed so the MMU can apply that
// bus-conflict behavior to CPU-issued reads.
type oamDMA struct {
	active bool
	source uint16
	offset uint16 // 0-159, next byte to copy
}

func (d *oamDMA) start(sourcePage uint8) {
	d.active = true
	d.source = uint16(sourcePage) << 8
	d.offset = 0
}

// step copies one byte if a full M-cycle (4 T-cycles) has elapsed. read is
// the MMU's raw memory read (bypassing the DMA bus-conflict check, to
// avoid infinite recursion), and write stores directly into OAM.
func (d *oamDMA) step(tcycles int, read func(uint16) uint8, writeOAM func(uint16, uint8)) {
	if !d.active {
		return
	}
	mcycles := tcycles / 4
	for i := 0; i < mcycles && d.active; i++ {
		writeOAM(0xFE00+d.offset, read(d.source+d.offset))
		d.offset++
		if d.offset >= 160 {
			d.active = false
		}
	}
}

func (d *oamDMA) SaveState(w *parcel.Writer) {
	w.WriteBool(d.active)
	w.WriteU16(d.source)
	w.WriteU16(d.offset)
}

func (d *oamDMA) LoadState(r *parcel.Reader) error {
	d.active = r.ReadBool()
	d.source = r.ReadU16()
	d.offset = r.ReadU16()
	return r.Err()
}
