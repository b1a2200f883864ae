package memory

import (
	"testing"

	"github.com/kallendev/dmgcore/addr"
	"github.com/kallendev/dmgcore/parcel"
)

func newTestMMU(t *testing.T, cgb bool) *MMU {
	t.Helper()
	rom := validHeaderROM(0x8000)
	cart, err := NewCartridgeFromROM(rom)
	if err != nil {
		t.Fatalf("NewCartridgeFromROM: %v", err)
	}
	m := New(cgb)
	m.LoadCartridge(cart)
	return m
}

func TestMMUVRAMReadWriteRoundTrips(t *testing.T) {
	m := newTestMMU(t, false)
	m.Write(0x8000, 0x42)
	if got := m.Read(0x8000); got != 0x42 {
		t.Errorf("Read(0x8000) = 0x%02X; want 0x42", got)
	}
}

func TestMMUWRAMEchoRegion(t *testing.T) {
	m := newTestMMU(t, false)
	m.Write(0xC010, 0x7A)
	if got := m.Read(0xE010); got != 0x7A {
		t.Errorf("Read(0xE010) = 0x%02X; want 0x7A (echo of 0xC010)", got)
	}
}

func TestMMUUnusedOAMRegionReadsFF(t *testing.T) {
	m := newTestMMU(t, false)
	if got := m.Read(0xFEA0); got != 0xFF {
		t.Errorf("Read(0xFEA0) = 0x%02X; want 0xFF", got)
	}
}

func TestMMUIFReadForcesUpperBitsHigh(t *testing.T) {
	m := newTestMMU(t, false)
	m.RequestInterrupt(addr.VBlankInterrupt)
	got := m.Read(addr.IF)
	if got&0xE0 != 0xE0 {
		t.Errorf("IF read = 0x%02X; want upper 3 bits set", got)
	}
}

func TestMMUDMATriggersCopyOverTicks(t *testing.T) {
	m := newTestMMU(t, false)
	m.Write(0xC000, 0x11)
	m.Write(0xC001, 0x22)

	m.Write(addr.DMA, 0xC0) // source page 0xC0 -> 0xC000

	m.Tick(4) // one M-cycle, one byte copied
	if got := m.OAMByte(0); got != 0x11 {
		t.Errorf("OAMByte(0) = 0x%02X; want 0x11 after first DMA step", got)
	}
}

func TestMMUDMABlocksCPUFromNonHRAMReads(t *testing.T) {
	m := newTestMMU(t, false)
	m.Write(0xC000, 0xAB)
	m.Write(0xC500, 0x99)

	m.Write(addr.DMA, 0xC0)
	// while active, any non-HRAM read redirects to the DMA's current source byte
	got := m.Read(0xC500)
	if got != 0xAB {
		t.Errorf("Read(0xC500) during DMA = 0x%02X; want 0xAB (redirected to DMA source)", got)
	}
}

func TestMMUDMABlocksCPUWritesBelowHRAM(t *testing.T) {
	m := newTestMMU(t, false)
	m.Write(0xC000, 0x11)
	m.Write(addr.DMA, 0xC0)

	m.Write(0xC100, 0x55) // should be silently dropped while DMA is active
	if got := m.rawRead(0xC100); got != 0 {
		t.Errorf("write during DMA lockout was not dropped: 0xC100 = 0x%02X", got)
	}
}

func TestMMUDMALeavesHRAMReachable(t *testing.T) {
	m := newTestMMU(t, false)
	m.Write(addr.DMA, 0xC0)
	m.Write(0xFF80, 0x5A)
	if got := m.Read(0xFF80); got != 0x5A {
		t.Errorf("HRAM unreachable during DMA: Read(0xFF80) = 0x%02X; want 0x5A", got)
	}
}

func TestMMUDMGModeIgnoresVBKAndSVBKWrites(t *testing.T) {
	m := newTestMMU(t, false)
	m.Write(addr.VBK, 0x01)
	if m.vbk != 0 {
		t.Errorf("vbk = %d; want 0 (DMG mode ignores VBK writes)", m.vbk)
	}
	m.Write(addr.SVBK, 0x03)
	if m.svbk != 0 {
		t.Errorf("svbk = %d; want 0 (DMG mode ignores SVBK writes)", m.svbk)
	}
}

func TestMMUCGBVRAMBankSwitch(t *testing.T) {
	m := newTestMMU(t, true)
	m.Write(0x8000, 0x11) // bank 0
	m.Write(addr.VBK, 0x01)
	m.Write(0x8000, 0x22) // bank 1

	if got := m.ReadVRAMBank(0, 0x8000); got != 0x11 {
		t.Errorf("bank 0 at 0x8000 = 0x%02X; want 0x11", got)
	}
	if got := m.ReadVRAMBank(1, 0x8000); got != 0x22 {
		t.Errorf("bank 1 at 0x8000 = 0x%02X; want 0x22", got)
	}
}

func TestMMUCGBWRAMBankSwitch(t *testing.T) {
	m := newTestMMU(t, true)
	m.Write(addr.SVBK, 0x02)
	m.Write(0xD000, 0x33)
	m.Write(addr.SVBK, 0x03)
	m.Write(0xD000, 0x44)

	m.Write(addr.SVBK, 0x02)
	if got := m.Read(0xD000); got != 0x33 {
		t.Errorf("WRAM bank 2 at 0xD000 = 0x%02X; want 0x33", got)
	}
}

func TestMMUCGBSVBKBankZeroForcedToOne(t *testing.T) {
	m := newTestMMU(t, true)
	m.Write(addr.SVBK, 0x00)
	if m.wramBank() != 1 {
		t.Errorf("wramBank() = %d; want 1 (bank 0 forced to 1)", m.wramBank())
	}
}

func TestMMUCGBPaletteWriteAutoIncrements(t *testing.T) {
	m := newTestMMU(t, true)
	m.Write(addr.BCPS, 0x80) // auto-increment, index 0
	m.Write(addr.BCPD, 0xAA)
	m.Write(addr.BCPD, 0xBB)

	if got := m.BGPaletteColor(0, 0); got != 0xAA|0xBB<<8 {
		t.Errorf("BGPaletteColor(0,0) = 0x%04X; want 0x%04X", got, uint16(0xAA)|uint16(0xBB)<<8)
	}
}

func TestMMUHDMAGeneralPurposeWiresIntoVRAM(t *testing.T) {
	m := newTestMMU(t, true)
	m.Write(0xC000, 0x99)

	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA2, 0x00)
	m.Write(addr.HDMA3, 0x00) // dest high -> 0x8000
	m.Write(addr.HDMA4, 0x00)
	m.Write(addr.HDMA5, 0x00) // length byte 0 -> 0x10 bytes, general-purpose

	if got := m.Read(0x8000); got != 0x99 {
		t.Errorf("VRAM after HDMA GP transfer = 0x%02X; want 0x99", got)
	}
}

func TestMMUNotifyHBlankDrivesHDMA(t *testing.T) {
	m := newTestMMU(t, true)
	m.Write(0xC000, 0x77)

	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA2, 0x00)
	m.Write(addr.HDMA3, 0x00)
	m.Write(addr.HDMA4, 0x00)
	m.Write(addr.HDMA5, 0x81) // HBlank mode, 2 blocks

	m.NotifyHBlank()
	if got := m.Read(0x8000); got != 0x77 {
		t.Errorf("VRAM after one HBlank tick = 0x%02X; want 0x77", got)
	}
}

func TestMMUTickRTCReachesMBC3(t *testing.T) {
	rom := validHeaderROM(0x8000)
	rom[cartridgeTypeAddress] = 0x0F // MBC3+TIMER+BATTERY
	cart, err := NewCartridgeFromROM(rom)
	if err != nil {
		t.Fatalf("NewCartridgeFromROM: %v", err)
	}
	m := New(false)
	m.LoadCartridge(cart)

	m.TickRTC(61)

	m.mbc.Write(0x0000, 0x0A) // enable RAM/RTC access
	m.mbc.Write(0x4000, 0x08) // select seconds
	m.mbc.Write(0x6000, 0x00)
	m.mbc.Write(0x6000, 0x01) // latch
	if got := m.mbc.Read(0xA000); got != 1 {
		t.Errorf("latched RTC seconds after TickRTC(61) = %d; want 1", got)
	}
}

func TestMMUTickRTCNoopWithoutRTCCapableMBC(t *testing.T) {
	m := newTestMMU(t, false) // ROM-only cartridge, no MBC3
	m.TickRTC(100)            // must not panic on the type assertion
}

func TestMMUSaveLoadStateRoundTrips(t *testing.T) {
	m := newTestMMU(t, true)
	m.Write(0x8000, 0x11)
	m.Write(0xC000, 0x22)
	m.Write(addr.SVBK, 0x03)
	m.HandleKeyPress(JoypadA)

	w := parcel.NewWriter()
	m.SaveState(w)

	m2 := newTestMMU(t, true)
	r, err := parcel.NewReader(w.Bytes())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if err := m2.LoadState(r); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if m2.ReadVRAMBank(0, 0x8000) != 0x11 {
		t.Errorf("restored VRAM mismatch")
	}
	if m2.svbk != 0x03 {
		t.Errorf("restored svbk = %d; want 3", m2.svbk)
	}
}

func TestMMUSaveLoadStatePreservesMBCBankingAndRTC(t *testing.T) {
	rom := validHeaderROM(0x80000)
	rom[cartridgeTypeAddress] = 0x10 // MBC3+RAM+BATTERY+TIMER
	rom[0x148] = 0x04                // ROM size -> 32 banks (0x80000 bytes)
	rom[0x149] = 0x03                // RAM size -> 4 banks
	cart, err := NewCartridgeFromROM(rom)
	if err != nil {
		t.Fatalf("NewCartridgeFromROM: %v", err)
	}
	m := New(false)
	m.LoadCartridge(cart)

	m.mbc.Write(0x0000, 0x0A) // RAM enable
	m.mbc.Write(0x2000, 0x05) // ROM bank 5
	m.mbc.Write(0x4000, 0x02) // RAM bank 2
	m.TickRTC(61)

	w := parcel.NewWriter()
	m.SaveState(w)

	m2 := New(false)
	m2.LoadCartridge(cart)
	r, err := parcel.NewReader(w.Bytes())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if err := m2.LoadState(r); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	if got := m2.mbc.Read(0x4000); got != rom[5*0x4000] {
		t.Errorf("restored ROM bank mismatch: bank select was not preserved")
	}

	m2.mbc.Write(0x4000, 0x08) // select seconds register
	m2.mbc.Write(0x6000, 0x00)
	m2.mbc.Write(0x6000, 0x01) // latch
	if got := m2.mbc.Read(0xA000); got != 1 {
		t.Errorf("restored RTC seconds = %d; want 1", got)
	}
}
