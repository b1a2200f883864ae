// Package cpu implements the SM83 (Game Boy CPU) register file, ALU, and
// the opcode-table-driven instruction engine, including interrupt
// acceptance, the HALT bug, and the STOP 4-way table.
package cpu

import (
	"fmt"

	"github.com/kallendev/dmgcore/addr"
)

// Bus is the minimal memory interface the CPU needs. It is satisfied by
// *memory.MMU; kept as an interface here so the cpu package never imports
// memory (nor does memory import cpu: it declares its own SpeedSwitchArmer
// interface for the one CPU hook it needs).
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// haltMode distinguishes HALT from STOP, since both suspend fetch/execute
// but resume and reset differently.
type haltMode uint8

const (
	notHalted haltMode = iota
	halted
	stopped
)

// CPU is the SM83 instruction engine. It owns no memory itself; all
// reads/writes go through the Bus.
type CPU struct {
	Registers

	memory Bus

	ime          imeState
	eiPending    bool // EI takes effect after the *next* instruction
	halt         haltMode
	haltBugArmed bool // next fetch reads PC without incrementing it

	cgb         bool
	doubleSpeed bool
	speedSwitch bool // KEY1 bit 0 armed, switch on next STOP

	currentOpcode uint16 // last fetched opcode, 0xCBxx for CB-prefixed

	// StrictIllegalOpcodes, when true, makes the illegal opcodes set
	// invalidOpcodeHit instead of locking the CPU into an infinite refetch.
	StrictIllegalOpcodes bool
	invalidOpcodeHit     bool

	mainTable [256]opcodeFn
	cbTable   [256]opcodeFn
}

// opcodeFn executes one instruction and returns its cost in T-cycles.
type opcodeFn func(c *CPU) int

// New creates a CPU wired to the given bus. cgb selects the CGB register
// reset values and enables the double-speed switch.
func New(bus Bus, cgb bool) *CPU {
	c := &CPU{memory: bus, cgb: cgb}
	c.mainTable = buildMainTable()
	c.cbTable = buildCBTable()
	return c
}

// Reset sets the register file and CPU-internal state to the documented
// post-boot condition. If fromBootROM is true, registers are left zeroed
// instead (the boot ROM itself establishes them as it runs).
func (c *CPU) Reset(fromBootROM bool) {
	if fromBootROM {
		c.Registers.ResetToBootROM()
	} else {
		c.Registers.Reset(c.cgb)
	}
	c.ime = imeDisabled
	c.eiPending = false
	c.halt = notHalted
	c.haltBugArmed = false
	c.doubleSpeed = false
	c.speedSwitch = false
}

// PC/SP accessors used by the host and by tests.
func (c *CPU) GetPC() uint16 { return c.PC }
func (c *CPU) GetSP() uint16 { return c.SP }
func (c *CPU) IsHalted() bool { return c.halt == halted }
func (c *CPU) IsStopped() bool { return c.halt == stopped }
func (c *CPU) DoubleSpeed() bool { return c.doubleSpeed }

// InvalidOpcodeHit reports whether an illegal opcode was fetched while
// StrictIllegalOpcodes is set. It stays true until explicitly cleared by
// the caller (ClearInvalidOpcodeHit), so a host driving multiple Step
// calls per frame does not miss it.
func (c *CPU) InvalidOpcodeHit() bool { return c.invalidOpcodeHit }

// ClearInvalidOpcodeHit resets the latch set by InvalidOpcodeHit.
func (c *CPU) ClearInvalidOpcodeHit() { c.invalidOpcodeHit = false }

// Step executes exactly one instruction (or one HALT/STOP "tick" while
// suspended, or one ISR micro-sequence) and returns the number of
// T-cycles it consumed. This is the unit of execution the Machine drives;
// instruction granularity is used here rather than a literal four-phase
// T-cycle scheduler, matching how the register file and opcode tables
// above are already structured.
func (c *CPU) Step() int {
	if cycles, serviced := c.serviceInterruptIfPending(); serviced {
		return cycles
	}

	if c.eiPending {
		c.ime = imeEnabled
		c.eiPending = false
	}

	switch c.halt {
	case halted:
		if c.pendingInterrupts() != 0 {
			c.halt = notHalted
		}
		return 4
	case stopped:
		if c.pendingInterrupts() != 0 {
			c.halt = notHalted
		}
		return 4
	}

	opcodePC := c.PC
	opcode := c.fetch8()
	if c.haltBugArmed {
		// HALT bug: the instruction at PC is executed twice because the
		// fetch that follows HALT does not advance PC.
		c.PC = opcodePC
		c.haltBugArmed = false
	}

	if opcode == 0xCB {
		cb := c.fetch8()
		c.currentOpcode = 0xCB00 | uint16(cb)
		return c.cbTable[cb](c)
	}

	c.currentOpcode = uint16(opcode)
	return c.mainTable[opcode](c)
}

func (c *CPU) fetch8() uint8 {
	v := c.memory.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) requestInterrupt(i addr.Interrupt) {
	flags := c.memory.Read(addr.IF)
	c.memory.Write(addr.IF, flags|byte(i))
}

func unimplemented(c *CPU) int {
	panic(fmt.Sprintf("unimplemented opcode 0x%X at PC=0x%04X", c.currentOpcode, c.PC))
}
