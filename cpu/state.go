package cpu

import "github.com/kallendev/dmgcore/parcel"

// SaveState writes the register file and the CPU's internal scheduling
// state (IME, the EI-pending latch, halt/stop mode, the HALT-bug latch,
// and CGB double-speed state) so a resumed core starts mid-instruction
// boundary exactly where it left off.
func (c *CPU) SaveState(w *parcel.Writer) {
	w.WriteU8(c.A)
	w.WriteU8(c.F)
	w.WriteU8(c.B)
	w.WriteU8(c.C)
	w.WriteU8(c.D)
	w.WriteU8(c.E)
	w.WriteU8(c.H)
	w.WriteU8(c.L)
	w.WriteU16(c.SP)
	w.WriteU16(c.PC)

	w.WriteU8(uint8(c.ime))
	w.WriteBool(c.eiPending)
	w.WriteU8(uint8(c.halt))
	w.WriteBool(c.haltBugArmed)

	w.WriteBool(c.cgb)
	w.WriteBool(c.doubleSpeed)
	w.WriteBool(c.speedSwitch)
}

// LoadState restores everything SaveState wrote. The opcode tables are
// left untouched since they depend only on cgb, which callers already
// fixed at New time.
func (c *CPU) LoadState(r *parcel.Reader) error {
	c.A = r.ReadU8()
	c.F = r.ReadU8()
	c.B = r.ReadU8()
	c.C = r.ReadU8()
	c.D = r.ReadU8()
	c.E = r.ReadU8()
	c.H = r.ReadU8()
	c.L = r.ReadU8()
	c.SP = r.ReadU16()
	c.PC = r.ReadU16()

	c.ime = imeState(r.ReadU8())
	c.eiPending = r.ReadBool()
	c.halt = haltMode(r.ReadU8())
	c.haltBugArmed = r.ReadBool()

	c.cgb = r.ReadBool()
	c.doubleSpeed = r.ReadBool()
	c.speedSwitch = r.ReadBool()

	return r.Err()
}
