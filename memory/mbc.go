package memory

import "github.com/kallendev/dmgcore/parcel"

// MBC represents a Memory Bank Controller: the chip on a cartridge board
// that intercepts ROM/RAM-region reads and writes to implement banking.
type MBC interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	// RAM returns the controller's persistent external RAM, or nil if the
	// cartridge has none. Used for battery save/load.
	RAM() []byte
	// SaveState/LoadState persist the controller's banking latches (and,
	// for MBC3, its RTC) so load_state(save_state(S)) resumes with the
	// same bank mapped in, not just the same RAM contents.
	SaveState(w *parcel.Writer)
	LoadState(r *parcel.Reader) error
}

// noMBC represents cartridges with no memory banking capability: the ROM
// fits entirely in 0x0000-0x7FFF and cannot be banked, and there is no
// external RAM.
type noMBC struct {
	rom []uint8
}

func newNoMBC(romData []uint8) *noMBC { return &noMBC{rom: romData} }

func (m *noMBC) Read(addr uint16) uint8 {
	if int(addr) >= len(m.rom) {
		return 0xFF
	}
	return m.rom[addr]
}

func (m *noMBC) Write(addr uint16, value uint8)   {}
func (m *noMBC) RAM() []byte                      { return nil }
func (m *noMBC) SaveState(w *parcel.Writer)       {}
func (m *noMBC) LoadState(r *parcel.Reader) error { return nil }

// mbc1 is the most common controller: up to 125 switchable 16KB ROM banks
// and up to 4 switchable 8KB RAM banks, with a mode bit that decides
// whether the two extra bank-select bits widen the ROM bank number or
// select the RAM bank.
type mbc1 struct {
	rom []uint8
	ram []uint8

	ramEnabled  bool
	romBank     uint8 // 5 bits, never 0
	bankSetHigh uint8 // 2 bits, meaning depends on mode
	mode        uint8 // 0 = ROM banking, 1 = RAM banking
}

func newMBC1(romData []uint8, ramBanks int) *mbc1 {
	return &mbc1{rom: romData, ram: make([]uint8, ramBanks*0x2000), romBank: 1}
}

func (m *mbc1) effectiveROMBank() int {
	bank := int(m.romBank)
	if m.mode == 0 {
		bank |= int(m.bankSetHigh) << 5
	}
	return bank
}

func (m *mbc1) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		bank := 0
		if m.mode == 1 {
			bank = int(m.bankSetHigh) << 5
		}
		return m.romAt(bank, addr)
	case addr <= 0x7FFF:
		return m.romAt(m.effectiveROMBank(), addr-0x4000)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		bank := 0
		if m.mode == 1 {
			bank = int(m.bankSetHigh)
		}
		return m.ramAt(bank, addr-0xA000)
	default:
		return 0xFF
	}
}

func (m *mbc1) romAt(bank int, offset uint16) uint8 {
	idx := bank*0x4000 + int(offset)
	if idx >= len(m.rom) {
		idx %= len(m.rom)
	}
	return m.rom[idx]
}

func (m *mbc1) ramAt(bank int, offset uint16) uint8 {
	idx := bank*0x2000 + int(offset)
	if idx >= len(m.ram) {
		idx %= len(m.ram)
	}
	return m.ram[idx]
}

func (m *mbc1) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr <= 0x3FFF:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr <= 0x5FFF:
		m.bankSetHigh = value & 0x03
	case addr <= 0x7FFF:
		m.mode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		bank := 0
		if m.mode == 1 {
			bank = int(m.bankSetHigh)
		}
		idx := bank*0x2000 + int(addr-0xA000)
		if idx >= len(m.ram) {
			idx %= len(m.ram)
		}
		m.ram[idx] = value
	}
}

func (m *mbc1) RAM() []byte { return m.ram }

func (m *mbc1) SaveState(w *parcel.Writer) {
	w.WriteBool(m.ramEnabled)
	w.WriteU8(m.romBank)
	w.WriteU8(m.bankSetHigh)
	w.WriteU8(m.mode)
}

func (m *mbc1) LoadState(r *parcel.Reader) error {
	m.ramEnabled = r.ReadBool()
	m.romBank = r.ReadU8()
	m.bankSetHigh = r.ReadU8()
	m.mode = r.ReadU8()
	return r.Err()
}

// mbc2 has a built-in 512x4-bit RAM array (no external RAM chip) and a
// single ROM bank register. Bit 8 of the address during a 0x0000-0x3FFF
// write selects RAM-enable vs. ROM-bank-select.
type mbc2 struct {
	rom        []uint8
	ram        [512]uint8
	ramEnabled bool
	romBank    uint8
}

func newMBC2(romData []uint8) *mbc2 {
	return &mbc2{rom: romData, romBank: 1}
}

func (m *mbc2) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.romAt(0, addr)
	case addr <= 0x7FFF:
		return m.romAt(int(m.romBank), addr-0x4000)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ram[addr&0x1FF] | 0xF0
	default:
		return 0xFF
	}
}

func (m *mbc2) romAt(bank int, offset uint16) uint8 {
	idx := bank*0x4000 + int(offset)
	if idx >= len(m.rom) {
		idx %= len(m.rom)
	}
	return m.rom[idx]
}

func (m *mbc2) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x3FFF:
		if addr&0x100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled {
			m.ram[addr&0x1FF] = value & 0x0F
		}
	}
}

func (m *mbc2) RAM() []byte { return m.ram[:] }

func (m *mbc2) SaveState(w *parcel.Writer) {
	w.WriteBool(m.ramEnabled)
	w.WriteU8(m.romBank)
}

func (m *mbc2) LoadState(r *parcel.Reader) error {
	m.ramEnabled = r.ReadBool()
	m.romBank = r.ReadU8()
	return r.Err()
}

// rtcRegisterIndex names one of the five latched MBC3 RTC registers.
type rtcRegisterIndex uint8

const (
	rtcSeconds rtcRegisterIndex = iota
	rtcMinutes
	rtcHours
	rtcDaysLow
	rtcDaysHigh
)

// mbc3 adds a real-time clock alongside MBC1-style ROM/RAM banking. The
// core does no wall-clock I/O itself: the RTC only advances when TickRTC is
// called by the host with an elapsed-seconds count, so headless use (fast
// replay, deterministic tests) never touches the OS clock.
type mbc3 struct {
	rom []uint8
	ram []uint8

	ramEnabled bool
	romBank    uint8
	ramBank    uint8 // 0-3 selects RAM, 0x08-0x0C selects an RTC register

	hasRTC    bool
	rtc       [5]uint8
	rtcLatch  [5]uint8
	latchArm  bool
	haltedRTC bool
}

func newMBC3(romData []uint8, ramBanks int, hasRTC bool) *mbc3 {
	return &mbc3{rom: romData, ram: make([]uint8, ramBanks*0x2000), romBank: 1, hasRTC: hasRTC}
}

func (m *mbc3) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.romAt(0, addr)
	case addr <= 0x7FFF:
		return m.romAt(int(m.romBank), addr-0x4000)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.ramBank <= 0x03 {
			idx := int(m.ramBank)*0x2000 + int(addr-0xA000)
			if len(m.ram) == 0 {
				return 0xFF
			}
			if idx >= len(m.ram) {
				idx %= len(m.ram)
			}
			return m.ram[idx]
		}
		if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			return m.rtcLatch[m.ramBank-0x08]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *mbc3) romAt(bank int, offset uint16) uint8 {
	idx := bank*0x4000 + int(offset)
	if idx >= len(m.rom) {
		idx %= len(m.rom)
	}
	return m.rom[idx]
}

func (m *mbc3) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr <= 0x5FFF:
		m.ramBank = value
	case addr <= 0x7FFF:
		if m.hasRTC {
			if value == 0x00 {
				m.latchArm = true
			} else if value == 0x01 && m.latchArm {
				m.rtcLatch = m.rtc
				m.latchArm = false
			}
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.ramBank <= 0x03 {
			if len(m.ram) == 0 {
				return
			}
			idx := int(m.ramBank)*0x2000 + int(addr-0xA000)
			if idx >= len(m.ram) {
				idx %= len(m.ram)
			}
			m.ram[idx] = value
		} else if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			m.writeRTC(rtcRegisterIndex(m.ramBank-0x08), value)
		}
	}
}

func (m *mbc3) writeRTC(reg rtcRegisterIndex, value uint8) {
	switch reg {
	case rtcSeconds:
		m.rtc[rtcSeconds] = value & 0x3F
	case rtcMinutes:
		m.rtc[rtcMinutes] = value & 0x3F
	case rtcHours:
		m.rtc[rtcHours] = value & 0x1F
	case rtcDaysLow:
		m.rtc[rtcDaysLow] = value
	case rtcDaysHigh:
		m.haltedRTC = value&0x40 != 0
		m.rtc[rtcDaysHigh] = value & 0xC1
	}
}

// TickRTC advances the real-time clock by the given number of whole
// seconds, called by the host (not the CPU loop) since real time is not
// something the core can observe on its own.
func (m *mbc3) TickRTC(seconds int) {
	if !m.hasRTC || m.haltedRTC || seconds <= 0 {
		return
	}
	for i := 0; i < seconds; i++ {
		m.rtc[rtcSeconds]++
		if m.rtc[rtcSeconds] < 60 {
			continue
		}
		m.rtc[rtcSeconds] = 0
		m.rtc[rtcMinutes]++
		if m.rtc[rtcMinutes] < 60 {
			continue
		}
		m.rtc[rtcMinutes] = 0
		m.rtc[rtcHours]++
		if m.rtc[rtcHours] < 24 {
			continue
		}
		m.rtc[rtcHours] = 0
		days := uint16(m.rtc[rtcDaysLow]) | uint16(m.rtc[rtcDaysHigh]&0x01)<<8
		days++
		if days > 0x1FF {
			m.rtc[rtcDaysHigh] |= 0x80 // day counter carry flag
			days = 0
		}
		m.rtc[rtcDaysLow] = uint8(days)
		m.rtc[rtcDaysHigh] = (m.rtc[rtcDaysHigh] &^ 0x01) | uint8(days>>8)
	}
}

func (m *mbc3) RAM() []byte { return m.ram }

func (m *mbc3) SaveState(w *parcel.Writer) {
	w.WriteBool(m.ramEnabled)
	w.WriteU8(m.romBank)
	w.WriteU8(m.ramBank)
	w.WriteBytes(m.rtc[:])
	w.WriteBytes(m.rtcLatch[:])
	w.WriteBool(m.latchArm)
	w.WriteBool(m.haltedRTC)
}

func (m *mbc3) LoadState(r *parcel.Reader) error {
	m.ramEnabled = r.ReadBool()
	m.romBank = r.ReadU8()
	m.ramBank = r.ReadU8()
	copy(m.rtc[:], r.ReadBytes())
	copy(m.rtcLatch[:], r.ReadBytes())
	m.latchArm = r.ReadBool()
	m.haltedRTC = r.ReadBool()
	return r.Err()
}

// mbc5 is the simplest of the banked controllers: a full 9-bit ROM bank
// number and a 4-bit RAM bank number, no quirks or modes.
type mbc5 struct {
	rom []uint8
	ram []uint8

	ramEnabled bool
	romBank    uint16 // 9 bits
	ramBank    uint8  // 4 bits
}

func newMBC5(romData []uint8, ramBanks int) *mbc5 {
	return &mbc5{rom: romData, ram: make([]uint8, ramBanks*0x2000), romBank: 1}
}

func (m *mbc5) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.romAt(0, addr)
	case addr <= 0x7FFF:
		return m.romAt(int(m.romBank), addr-0x4000)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		idx := int(m.ramBank)*0x2000 + int(addr-0xA000)
		if idx >= len(m.ram) {
			idx %= len(m.ram)
		}
		return m.ram[idx]
	default:
		return 0xFF
	}
}

func (m *mbc5) romAt(bank int, offset uint16) uint8 {
	idx := bank*0x4000 + int(offset)
	if idx >= len(m.rom) {
		idx %= len(m.rom)
	}
	return m.rom[idx]
}

func (m *mbc5) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr <= 0x2FFF:
		m.romBank = m.romBank&0x100 | uint16(value)
	case addr <= 0x3FFF:
		m.romBank = m.romBank&0xFF | uint16(value&0x01)<<8
	case addr <= 0x5FFF:
		m.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		idx := int(m.ramBank)*0x2000 + int(addr-0xA000)
		if idx >= len(m.ram) {
			idx %= len(m.ram)
		}
		m.ram[idx] = value
	}
}

func (m *mbc5) RAM() []byte { return m.ram }

func (m *mbc5) SaveState(w *parcel.Writer) {
	w.WriteBool(m.ramEnabled)
	w.WriteU16(m.romBank)
	w.WriteU8(m.ramBank)
}

func (m *mbc5) LoadState(r *parcel.Reader) error {
	m.ramEnabled = r.ReadBool()
	m.romBank = r.ReadU16()
	m.ramBank = r.ReadU8()
	return r.Err()
}
