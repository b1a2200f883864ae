package memory

import (
	"testing"

	"github.com/kallendev/dmgcore/parcel"
)

func TestHDMAGeneralPurposeTransferCompletesImmediately(t *testing.T) {
	var h hdma
	h.writeReg(0, 0xC0) // source high
	h.writeReg(1, 0x00) // source low
	h.writeReg(2, 0x80) // dest high (masked into 0x8000-0x9FFF range)
	h.writeReg(3, 0x00) // dest low

	var copied []struct{ src, dst uint16 }
	copyBlock := func(src, dst uint16, n int) {
		copied = append(copied, struct{ src, dst uint16 }{src, dst})
	}

	cycles := h.writeHDMA5(0x00, copyBlock) // length byte 0 -> 0x10 bytes, GP mode
	if h.active {
		t.Errorf("general-purpose transfer left active after writeHDMA5")
	}
	if len(copied) != 1 || copied[0].src != 0xC000 {
		t.Fatalf("copyBlock called with unexpected args: %+v", copied)
	}
	if cycles <= 0 {
		t.Errorf("general-purpose transfer reported 0 cycles consumed")
	}
}

func TestHDMAHBlankTransferCopiesOneBlockPerTick(t *testing.T) {
	var h hdma
	h.writeReg(0, 0xC0)
	h.writeReg(1, 0x00)
	h.writeReg(2, 0x80)
	h.writeReg(3, 0x00)

	blocks := 0
	copyBlock := func(src, dst uint16, n int) { blocks++ }

	cycles := h.writeHDMA5(0x81, copyBlock) // 2 blocks (0x20 bytes), HBlank mode
	if cycles != 0 {
		t.Errorf("HBlank-mode start reported %d cycles; want 0 (metered per scanline)", cycles)
	}
	if !h.active || !h.hblankMode {
		t.Fatalf("HBlank transfer not marked active")
	}

	h.tickHBlank(copyBlock)
	if blocks != 1 {
		t.Fatalf("blocks copied = %d; want 1 after first tick", blocks)
	}
	if !h.active {
		t.Fatalf("transfer ended after only one of two blocks")
	}

	h.tickHBlank(copyBlock)
	if blocks != 2 {
		t.Errorf("blocks copied = %d; want 2 after second tick", blocks)
	}
	if h.active {
		t.Errorf("transfer still active after all blocks copied")
	}
}

func TestHDMACancelMidTransfer(t *testing.T) {
	var h hdma
	h.writeReg(0, 0xC0)
	h.writeReg(2, 0x80)
	copyBlock := func(src, dst uint16, n int) {}

	h.writeHDMA5(0xFF, copyBlock) // 128 blocks, HBlank mode
	h.writeHDMA5(0x00, copyBlock) // bit 7 clear while active cancels it

	if h.active {
		t.Errorf("transfer still active after cancellation")
	}
}

func TestHDMAReadHDMA5ReportsRemainingLength(t *testing.T) {
	var h hdma
	h.writeReg(0, 0xC0)
	h.writeReg(2, 0x80)
	copyBlock := func(src, dst uint16, n int) {}

	h.writeHDMA5(0x81, copyBlock) // 2 blocks

	if got := h.readHDMA5(); got != 0x01 {
		t.Errorf("readHDMA5() = 0x%02X; want 0x01 (2 blocks remaining, stored as count-1)", got)
	}
}

func TestHDMASaveLoadStateRoundTrips(t *testing.T) {
	var h hdma
	h.writeReg(0, 0xC0)
	h.writeReg(2, 0x80)
	copyBlock := func(src, dst uint16, n int) {}
	h.writeHDMA5(0x83, copyBlock)

	w := parcel.NewWriter()
	h.SaveState(w)

	r, err := parcel.NewReader(w.Bytes())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var h2 hdma
	if err := h2.LoadState(r); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if h2.active != h.active || h2.length != h.length || h2.hblankMode != h.hblankMode {
		t.Errorf("restored HDMA state does not match saved state")
	}
}
