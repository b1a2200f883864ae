package cpu

import "github.com/kallendev/dmgcore/addr"

// imeState models the interrupt master enable flag. Its effective
// tri-state behavior (Disabled, Requested-next-instruction, Enabled) is
// split across this two-value enum and CPU.eiPending: EI sets eiPending
// rather than imeEnabled directly, so the enable only takes effect after
// the instruction immediately following EI has run.
type imeState uint8

const (
	imeDisabled imeState = iota
	imeEnabled
)

// pendingInterrupts returns IE & IF & 0x1F, i.e. the set of interrupts
// that are both enabled and flagged.
func (c *CPU) pendingInterrupts() uint8 {
	ie := c.memory.Read(addr.IE)
	iflags := c.memory.Read(addr.IF)
	return ie & iflags & 0x1F
}

// lowestSetBit returns the bit index (0-4) of the lowest set bit in v,
// matching the fixed interrupt priority order VBlank < STAT < Timer <
// Serial < Joypad.
func lowestSetBit(v uint8) uint8 {
	for i := uint8(0); i < 5; i++ {
		if v&(1<<i) != 0 {
			return i
		}
	}
	return 5
}

// serviceInterruptIfPending implements the 5 M-cycle ISR micro-sequence:
// PC decrement, SP decrement, push PC high, push PC low and pick a
// vector, then disable IME and jump. It only runs when IME is enabled (interrupts
// latched while halted are handled by the halt/stop wake-up path in
// Step, which simply clears halt and falls through to this check on the
// next Step call). Returns (cyclesConsumed, true) if an ISR ran.
func (c *CPU) serviceInterruptIfPending() (int, bool) {
	if c.ime != imeEnabled {
		return 0, false
	}

	pending := c.pendingInterrupts()
	if pending == 0 {
		return 0, false
	}

	// ISR0: PC--  (conceptually cancelable up to this point)
	// ISR1: SP--
	// ISR2: push(PC.hi)
	// ISR3: push(PC.lo); pick target from the lowest set bit of (IE&IF)
	//       as it stands *now*; clear that IF bit. If nothing is pending
	//       anymore (both IE and IF changed out from under us, which
	//       cannot happen synchronously here but is modeled for
	//       save-state fidelity), target becomes 0x0000 ("cancel").
	// ISR4: IME = Disabled; resume fetch at target.
	c.ime = imeDisabled
	c.halt = notHalted

	bitIdx := lowestSetBit(pending)
	var target uint16
	if bitIdx < 5 {
		iflags := c.memory.Read(addr.IF)
		c.memory.Write(addr.IF, iflags&^(1<<bitIdx))
		target = addr.InterruptVector(addr.Interrupt(1 << bitIdx))
	} else {
		target = 0x0000
	}

	c.pushStack(c.PC)
	c.PC = target

	return 20, true
}

// ei is the EI opcode handler: IME becomes Enabled only after the
// instruction immediately following EI has executed.
func (c *CPU) ei() {
	c.eiPending = true
}

// di is the DI opcode handler: interrupts are disabled immediately.
func (c *CPU) di() {
	c.ime = imeDisabled
	c.eiPending = false
}

// haltInstr is the HALT opcode handler (0x76). Implements the HALT bug:
// when IME is Disabled and an interrupt is already pending, the CPU does
// not actually halt; instead the opcode at PC is executed twice because
// the following fetch re-reads the same byte without advancing PC.
func (c *CPU) haltInstr() {
	if c.ime == imeDisabled && c.pendingInterrupts() != 0 {
		c.haltBugArmed = true
		return
	}
	c.halt = halted
}

// stopInstr is the STOP opcode handler (0x10, a 2-byte instruction: the
// second byte is a padding 0x00 already consumed by fetch8 in the
// caller). Implements the 4-way table: whether a selected joypad row has
// a button currently held down, crossed with
// whether an interrupt is already pending, determines whether the CPU
// actually stops, merely behaves like a HALT, or (on CGB, with KEY1
// armed) performs a double-speed switch instead of stopping at all.
func (c *CPU) stopInstr(buttonHeld bool) {
	if c.cgb && c.speedSwitch {
		c.doubleSpeed = !c.doubleSpeed
		c.speedSwitch = false
		return
	}

	pending := c.pendingInterrupts() != 0

	switch {
	case buttonHeld && !pending:
		// Glitch mode: CPU does not stop, STOP behaves as a 1-cycle NOP.
	case buttonHeld && pending:
		// Glitch mode with pending interrupt: HALT-like, but does not
		// actually latch halted state; next Step proceeds normally.
	case !buttonHeld:
		// Normal STOP: clocks off, DIV resets, wait for a button press.
		// Any DIV write resets the divider regardless of the value
		// written, so this reuses the same path a CPU-visible DIV write
		// takes rather than needing a dedicated timer handle.
		c.memory.Write(addr.DIV, 0)
		c.halt = stopped
	}
}

// ArmSpeedSwitch is called by the memory package when KEY1 bit 0 is
// written, priming the next STOP to perform a CGB double-speed switch
// instead of stopping the clock.
func (c *CPU) ArmSpeedSwitch() {
	if c.cgb {
		c.speedSwitch = true
	}
}
