package memory

import "github.com/kallendev/dmgcore/parcel"

// hdma implements the CGB general-purpose and HBlank DMA engines that
// copy cartridge/WRAM data into VRAM via HDMA1-5. General-purpose DMA
// (HDMA5 bit 7 = 0 on write) blocks the CPU and completes the whole
// transfer at once; HBlank DMA (bit 7 = 1) instead copies one 0x10-byte
// block per HBlank period and can be cancelled mid-transfer by writing
// HDMA5 with bit 7 clear while active.
type hdma struct {
	srcHi, srcLo uint8
	dstHi, dstLo uint8

	active    bool
	hblankMode bool
	length     uint16 // remaining bytes
}

func (h *hdma) writeReg(offset uint16, value uint8) {
	switch offset {
	case 0:
		h.srcHi = value
	case 1:
		h.srcLo = value & 0xF0
	case 2:
		h.dstHi = value & 0x1F
	case 3:
		h.dstLo = value & 0xF0
	}
}

func (h *hdma) source() uint16 {
	return uint16(h.srcHi)<<8 | uint16(h.srcLo)
}

func (h *hdma) dest() uint16 {
	return 0x8000 + uint16(h.dstHi)<<8 + uint16(h.dstLo)
}

// writeHDMA5 starts a transfer (general-purpose or HBlank) or cancels an
// active HBlank transfer, and reports how many T-cycles a general-purpose
// transfer consumed (0 for HBlank mode, since that is metered per scanline
// by tickHBlank instead).
func (h *hdma) writeHDMA5(value uint8, copyBlock func(src, dst uint16, n int)) int {
	if h.active && h.hblankMode && value&0x80 == 0 {
		h.active = false
		return 0
	}

	length := (uint16(value&0x7F) + 1) * 0x10
	h.length = length
	h.hblankMode = value&0x80 != 0
	h.active = true

	if !h.hblankMode {
		copyBlock(h.source(), h.dest(), int(length))
		h.active = false
		return int(length) / 2 * 8 // 8 T-cycles per 2 bytes copied (DMG single-speed)
	}
	return 0
}

// tickHBlank copies one 0x10-byte block, called once per HBlank entry
// while an HBlank-mode transfer is active.
func (h *hdma) tickHBlank(copyBlock func(src, dst uint16, n int)) {
	if !h.active || !h.hblankMode {
		return
	}
	n := 0x10
	if int(h.length) < n {
		n = int(h.length)
	}
	copyBlock(h.source(), h.dest(), n)
	h.srcLo += uint8(n)
	if h.srcLo == 0 {
		h.srcHi++
	}
	h.dstLo += uint8(n)
	if h.dstLo == 0 {
		h.dstHi++
	}
	h.length -= uint16(n)
	if h.length == 0 {
		h.active = false
	}
}

// readHDMA5 reports remaining length and active state in the format a CPU
// read of HDMA5 expects: while a transfer is active, bit 7 is clear and
// bits 0-6 are (remaining/0x10)-1; with no transfer active (finished or
// cancelled) it reads 0xFF.
func (h *hdma) readHDMA5() uint8 {
	if !h.active {
		return 0xFF
	}
	remaining := uint8(h.length/0x10) - 1
	return remaining & 0x7F
}

func (h *hdma) SaveState(w *parcel.Writer) {
	w.WriteU8(h.srcHi)
	w.WriteU8(h.srcLo)
	w.WriteU8(h.dstHi)
	w.WriteU8(h.dstLo)
	w.WriteBool(h.active)
	w.WriteBool(h.hblankMode)
	w.WriteU16(h.length)
}

func (h *hdma) LoadState(r *parcel.Reader) error {
	h.srcHi = r.ReadU8()
	h.srcLo = r.ReadU8()
	h.dstHi = r.ReadU8()
	h.dstLo = r.ReadU8()
	h.active = r.ReadBool()
	h.hblankMode = r.ReadBool()
	h.length = r.ReadU16()
	return r.Err()
}
