// Package memory implements the address bus: region decoding, cartridge
// MBC dispatch, CGB VRAM/WRAM banking, the boot ROM overlay, OAM/HBlank
// DMA, and the timer/joypad/serial peripherals hung off the I/O page.
package memory

import (
	"fmt"
	"log/slog"

	"github.com/kallendev/dmgcore/addr"
	"github.com/kallendev/dmgcore/bit"
	"github.com/kallendev/dmgcore/parcel"
)

// SpeedSwitchArmer is implemented by the CPU; the MMU calls it when KEY1
// bit 0 is written so the next STOP performs a double-speed switch
// instead of actually stopping.
type SpeedSwitchArmer interface {
	ArmSpeedSwitch()
}

// SerialEndpoint is the pluggable far end of the SB/SC link cable.
type SerialEndpoint interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// MMU is the Game Boy address bus: it owns VRAM, WRAM, OAM, HRAM and the
// I/O register page directly, and delegates the ROM/external-RAM regions
// to whichever MBC the loaded cartridge selected.
type MMU struct {
	cart *Cartridge
	mbc  MBC

	vram [2][0x2000]uint8 // bank 0, bank 1 (CGB only)
	vbk  uint8

	wram [8][0x1000]uint8 // bank 0 fixed, 1-7 switchable via SVBK (CGB)
	svbk uint8

	oam  [160]uint8
	hram [0x80]uint8
	io   [0x80]uint8 // FF00-FF7F, except the addresses intercepted below

	bootROM    []byte
	bootMapped bool

	timer  *Timer
	joypad *Joypad
	serial SerialEndpoint
	dma    oamDMA
	hdma   hdma

	cgb         bool
	doubleSpeed bool
	speedArmer  SpeedSwitchArmer

	bgCRAM  [64]uint8 // CGB background palette RAM, 8 palettes x 4 colors x 2 bytes
	objCRAM [64]uint8
	bgcps   uint8
	ocps    uint8
}

// New creates an MMU with no cartridge loaded; reads from the ROM/external
// RAM regions return 0xFF until LoadCartridge is called.
func New(cgb bool) *MMU {
	m := &MMU{
		cart:   NewCartridge(),
		cgb:    cgb,
		timer:  NewTimer(),
		joypad: NewJoypad(),
	}
	m.timer.InterruptHandler = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.joypad.InterruptHandler = func() { m.RequestInterrupt(addr.JoypadInterrupt) }
	m.serial = newLogSinkSerial(func() { m.RequestInterrupt(addr.SerialInterrupt) })
	return m
}

// LoadCartridge attaches a parsed cartridge and constructs its MBC.
func (m *MMU) LoadCartridge(cart *Cartridge) {
	m.cart = cart
	m.mbc = cart.newMBC()
}

// LoadBootROM maps a boot ROM image at 0x0000, overlaying the cartridge
// until BOOT is written.
func (m *MMU) LoadBootROM(data []byte) error {
	if len(data) != addr.BootROMSizeDMG && len(data) != addr.BootROMSizeCGB {
		return fmt.Errorf("memory: unexpected boot rom size %d", len(data))
	}
	m.bootROM = data
	m.bootMapped = true
	return nil
}

// AttachCPU wires the MMU to the CPU's speed-switch arming hook, called
// when KEY1 bit 0 is written.
func (m *MMU) AttachCPU(c SpeedSwitchArmer) { m.speedArmer = c }

// AttachSerial replaces the serial endpoint (the default, installed by
// New, reads back 0xFF after each 4096 T-cycle transfer and logs nothing).
func (m *MMU) AttachSerial(e SerialEndpoint) { m.serial = e }

// Tick advances every ticking peripheral by the given number of T-cycles:
// the timer, the serial shifter, and (if active) the OAM DMA engine.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	m.dma.step(cycles, m.rawRead, m.writeOAMByte)
}

func (m *MMU) DoubleSpeed() bool { return m.doubleSpeed }

func (m *MMU) RequestInterrupt(i addr.Interrupt) {
	flags := m.io[addr.IF-0xFF00]
	m.io[addr.IF-0xFF00] = flags | byte(i)
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	m.Write(address, bit.SetTo(index, m.Read(address), set))
}

func (m *MMU) HandleKeyPress(key JoypadKey)   { m.joypad.Press(key) }
func (m *MMU) HandleKeyRelease(key JoypadKey) { m.joypad.Release(key) }

// Read dispatches a CPU-visible read. While OAM DMA is active only HRAM
// (0xFF80 and up) stays reachable to the CPU; every other address reads
// back the source byte the DMA engine copies next.
func (m *MMU) Read(address uint16) uint8 {
	if m.dma.active && address < 0xFF80 {
		return m.rawRead(m.dma.source + m.dma.offset)
	}
	return m.rawRead(address)
}

func (m *MMU) rawRead(address uint16) uint8 {
	switch {
	case address <= 0x00FF && m.bootMapped:
		return m.bootROM[address]
	case address >= 0x0200 && address <= 0x08FF && m.bootMapped && m.cgb && len(m.bootROM) == addr.BootROMSizeCGB:
		return m.bootROM[address-0x0200+0x100]
	case address <= 0x7FFF:
		return m.readCartOrBoot(address)
	case address <= 0x9FFF:
		bank := m.vbk & 0x01
		return m.vram[bank][address-0x8000]
	case address <= 0xBFFF:
		if m.mbc == nil {
			return 0xFF
		}
		return m.mbc.Read(address)
	case address <= 0xCFFF:
		return m.wram[0][address-0xC000]
	case address <= 0xDFFF:
		return m.wram[m.wramBank()][address-0xD000]
	case address <= 0xEFFF:
		return m.wram[0][address-0xE000]
	case address <= 0xFDFF:
		return m.wram[m.wramBank()][address-0xF000]
	case address <= 0xFE9F:
		return m.oam[address-0xFE00]
	case address <= 0xFEFF:
		return 0xFF
	case address <= 0xFF7F:
		return m.readIO(address)
	default:
		return m.hram[address-0xFF80]
	}
}

func (m *MMU) readCartOrBoot(address uint16) uint8 {
	if m.mbc == nil {
		return 0xFF
	}
	return m.mbc.Read(address)
}

func (m *MMU) wramBank() int {
	bank := int(m.svbk & 0x07)
	if bank == 0 {
		bank = 1
	}
	return bank
}

func (m *MMU) readIO(address uint16) uint8 {
	switch address {
	case addr.P1:
		return m.joypad.Read()
	case addr.SB, addr.SC:
		return m.serial.Read(address)
	case addr.DIV, addr.TIMA, addr.TMA, addr.TAC:
		return m.timer.Read(address)
	case addr.IF:
		return m.io[address-0xFF00] | 0xE0
	case addr.KEY1:
		speed := uint8(0)
		if m.doubleSpeed {
			speed = 1 << 7
		}
		return speed | m.io[address-0xFF00]&0x01 | 0x7E
	case addr.VBK:
		return m.vbk | 0xFE
	case addr.BOOT:
		if m.bootMapped {
			return 0
		}
		return 1
	case addr.HDMA5:
		return m.hdma.readHDMA5()
	case addr.BCPS:
		return m.bgcps | 0x40
	case addr.BCPD:
		return m.bgCRAM[m.bgcps&0x3F]
	case addr.OCPS:
		return m.ocps | 0x40
	case addr.OCPD:
		return m.objCRAM[m.ocps&0x3F]
	case addr.SVBK:
		return m.svbk | 0xF8
	default:
		return m.io[address-0xFF00]
	}
}

// Write dispatches a CPU-visible write, applying the same OAM DMA bus
// lockout as Read.
func (m *MMU) Write(address uint16, value uint8) {
	if m.dma.active && address < 0xFF80 {
		return
	}
	m.rawWrite(address, value)
}

func (m *MMU) rawWrite(address uint16, value uint8) {
	switch {
	case address <= 0x7FFF:
		if m.mbc != nil {
			m.mbc.Write(address, value)
		} else {
			slog.Warn("write to rom with no cartridge loaded", "addr", fmt.Sprintf("0x%04X", address))
		}
	case address <= 0x9FFF:
		bank := m.vbk & 0x01
		m.vram[bank][address-0x8000] = value
	case address <= 0xBFFF:
		if m.mbc != nil {
			m.mbc.Write(address, value)
		}
	case address <= 0xCFFF:
		m.wram[0][address-0xC000] = value
	case address <= 0xDFFF:
		m.wram[m.wramBank()][address-0xD000] = value
	case address <= 0xEFFF:
		m.wram[0][address-0xE000] = value
	case address <= 0xFDFF:
		m.wram[m.wramBank()][address-0xF000] = value
	case address <= 0xFE9F:
		m.oam[address-0xFE00] = value
	case address <= 0xFEFF:
		// unused region, writes discarded
	case address <= 0xFF7F:
		m.writeIO(address, value)
	default:
		m.hram[address-0xFF80] = value
	}
}

func (m *MMU) writeOAMByte(address uint16, value uint8) {
	if address >= 0xFE00 && address <= 0xFE9F {
		m.oam[address-0xFE00] = value
	}
}

func (m *MMU) writeIO(address uint16, value uint8) {
	switch address {
	case addr.P1:
		m.joypad.Write(value)
	case addr.SB, addr.SC:
		m.serial.Write(address, value)
	case addr.DIV, addr.TIMA, addr.TMA, addr.TAC:
		m.timer.Write(address, value)
	case addr.IF:
		m.io[address-0xFF00] = value & 0x1F
	case addr.DMA:
		m.dma.start(value)
		m.io[address-0xFF00] = value
	case addr.KEY1:
		m.io[address-0xFF00] = value & 0x01
		if m.cgb && value&0x01 != 0 && m.speedArmer != nil {
			m.speedArmer.ArmSpeedSwitch()
		}
	case addr.VBK:
		if m.cgb {
			m.vbk = value & 0x01
		}
	case addr.BOOT:
		if value != 0 {
			m.bootMapped = false
		}
	case addr.HDMA1, addr.HDMA2, addr.HDMA3, addr.HDMA4:
		m.hdma.writeReg(address-addr.HDMA1, value)
	case addr.HDMA5:
		if m.cgb {
			m.hdma.writeHDMA5(value, m.copyVRAMBlock)
		}
	case addr.BCPS:
		if m.cgb {
			m.bgcps = value & 0xBF
		}
	case addr.BCPD:
		if m.cgb {
			m.bgCRAM[m.bgcps&0x3F] = value
			if m.bgcps&0x80 != 0 {
				m.bgcps = (m.bgcps & 0x80) | ((m.bgcps + 1) & 0x3F)
			}
		}
	case addr.OCPS:
		if m.cgb {
			m.ocps = value & 0xBF
		}
	case addr.OCPD:
		if m.cgb {
			m.objCRAM[m.ocps&0x3F] = value
			if m.ocps&0x80 != 0 {
				m.ocps = (m.ocps & 0x80) | ((m.ocps + 1) & 0x3F)
			}
		}
	case addr.SVBK:
		if m.cgb {
			m.svbk = value & 0x07
		}
	default:
		m.io[address-0xFF00] = value
	}
}

// copyVRAMBlock implements the raw byte mover HDMA uses: source can be
// ROM, WRAM, or (invalidly, but not rejected by hardware) VRAM itself.
func (m *MMU) copyVRAMBlock(src, dst uint16, n int) {
	for i := 0; i < n; i++ {
		m.rawWrite(dst+uint16(i), m.rawRead(src+uint16(i)))
	}
}

// NotifyHBlank is called by the GPU each time it enters HBlank, driving
// the HBlank-mode HDMA engine one 0x10-byte block per call.
func (m *MMU) NotifyHBlank() {
	m.hdma.tickHBlank(m.copyVRAMBlock)
}

// ReadVRAMBank reads a byte from a specific VRAM bank regardless of the
// current VBK selection, used by the GPU to fetch CGB tile attributes
// (stored in bank 1 at the same offsets as the tile maps in bank 0).
func (m *MMU) ReadVRAMBank(bank uint8, address uint16) uint8 {
	return m.vram[bank&0x01][address-0x8000]
}

// OAMByte reads a byte of sprite attribute memory directly, used by the
// GPU's sprite scan instead of going through Read (which would apply the
// OAM DMA bus lockout unnecessarily; the GPU and DMA already never run on
// the same cycle in this core's ticking model).
func (m *MMU) OAMByte(index int) uint8 { return m.oam[index] }

// CGBMode reports whether this MMU was constructed in CGB mode.
func (m *MMU) CGBMode() bool { return m.cgb }

// BGPaletteColor returns one of the 4 RGB555 colors (packed into the low
// 15 bits of a uint16) of a CGB background palette.
func (m *MMU) BGPaletteColor(palette, color uint8) uint16 {
	return cramColor(m.bgCRAM[:], palette, color)
}

// OBJPaletteColor is BGPaletteColor for the object (sprite) palette bank.
func (m *MMU) OBJPaletteColor(palette, color uint8) uint16 {
	return cramColor(m.objCRAM[:], palette, color)
}

func cramColor(cram []uint8, palette, color uint8) uint16 {
	offset := int(palette)*8 + int(color)*2
	return uint16(cram[offset]) | uint16(cram[offset+1])<<8
}

// RTCTicker is implemented by MBC3 cartridges that carry a real-time
// clock. The core has no wall-clock access of its own, so a host advances
// the RTC explicitly with the elapsed real time.
type RTCTicker interface {
	TickRTC(seconds int)
}

// TickRTC advances the loaded cartridge's real-time clock, if it has one.
func (m *MMU) TickRTC(seconds int) {
	if t, ok := m.mbc.(RTCTicker); ok {
		t.TickRTC(seconds)
	}
}

// SaveCartridgeRAM returns a copy of the cartridge's battery-backed RAM,
// or nil if it has none.
func (m *MMU) SaveCartridgeRAM() []byte {
	if m.mbc == nil {
		return nil
	}
	ram := m.mbc.RAM()
	if ram == nil {
		return nil
	}
	out := make([]byte, len(ram))
	copy(out, ram)
	return out
}

// LoadCartridgeRAM restores battery-backed RAM from a prior
// SaveCartridgeRAM dump. It is a no-op if the cartridge has no RAM, and
// copies only up to the shorter of the two lengths otherwise.
func (m *MMU) LoadCartridgeRAM(data []byte) error {
	if m.mbc == nil {
		return nil
	}
	ram := m.mbc.RAM()
	if ram == nil {
		return nil
	}
	copy(ram, data)
	return nil
}

func (m *MMU) SaveState(w *parcel.Writer) {
	w.WriteBytes(m.vram[0][:])
	w.WriteBytes(m.vram[1][:])
	w.WriteU8(m.vbk)
	for i := range m.wram {
		w.WriteBytes(m.wram[i][:])
	}
	w.WriteU8(m.svbk)
	w.WriteBytes(m.oam[:])
	w.WriteBytes(m.hram[:])
	w.WriteBytes(m.io[:])
	w.WriteBool(m.bootMapped)
	w.WriteBool(m.doubleSpeed)
	w.WriteBytes(m.bgCRAM[:])
	w.WriteBytes(m.objCRAM[:])
	w.WriteU8(m.bgcps)
	w.WriteU8(m.ocps)
	m.timer.SaveState(w)
	m.dma.SaveState(w)
	m.hdma.SaveState(w)
	m.joypad.SaveState(w)
	m.mbc.SaveState(w)
	if ram := m.mbc.RAM(); ram != nil {
		w.WriteBytes(ram)
	} else {
		w.WriteBytes(nil)
	}
}

func (m *MMU) LoadState(r *parcel.Reader) error {
	copy(m.vram[0][:], r.ReadBytes())
	copy(m.vram[1][:], r.ReadBytes())
	m.vbk = r.ReadU8()
	for i := range m.wram {
		copy(m.wram[i][:], r.ReadBytes())
	}
	m.svbk = r.ReadU8()
	copy(m.oam[:], r.ReadBytes())
	copy(m.hram[:], r.ReadBytes())
	copy(m.io[:], r.ReadBytes())
	m.bootMapped = r.ReadBool()
	m.doubleSpeed = r.ReadBool()
	copy(m.bgCRAM[:], r.ReadBytes())
	copy(m.objCRAM[:], r.ReadBytes())
	m.bgcps = r.ReadU8()
	m.ocps = r.ReadU8()
	if err := m.timer.LoadState(r); err != nil {
		return err
	}
	if err := m.dma.LoadState(r); err != nil {
		return err
	}
	if err := m.hdma.LoadState(r); err != nil {
		return err
	}
	if err := m.joypad.LoadState(r); err != nil {
		return err
	}
	if m.mbc != nil {
		if err := m.mbc.LoadState(r); err != nil {
			return err
		}
	}
	if ram := r.ReadBytes(); m.mbc != nil && m.mbc.RAM() != nil {
		copy(m.mbc.RAM(), ram)
	}
	return r.Err()
}
