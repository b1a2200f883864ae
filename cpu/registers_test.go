package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterPairs(t *testing.T) {
	var r Registers
	r.setBC(0x1234)
	assert.Equal(t, uint16(0x1234), r.getBC())
	assert.Equal(t, uint8(0x12), r.B)
	assert.Equal(t, uint8(0x34), r.C)

	r.setAF(0xABCD)
	assert.Equal(t, uint8(0xAB), r.A)
	assert.Equal(t, uint8(0xC0), r.F, "low nibble of F is always masked to zero")
}

func TestFlags(t *testing.T) {
	var r Registers
	r.setFlag(flagZ)
	assert.True(t, r.isSetFlag(flagZ))
	assert.False(t, r.isSetFlag(flagN))

	r.resetFlag(flagZ)
	assert.False(t, r.isSetFlag(flagZ))

	r.setFlagToCondition(flagC, true)
	assert.Equal(t, uint8(1), r.flagToBit(flagC))
	r.setFlagToCondition(flagC, false)
	assert.Equal(t, uint8(0), r.flagToBit(flagC))
}

func TestResetPostBootValues(t *testing.T) {
	var r Registers
	r.Reset(false)
	assert.Equal(t, uint16(0x01B0), r.getAF())
	assert.Equal(t, uint16(0x0100), r.PC)
	assert.Equal(t, uint16(0xFFFE), r.SP)

	r.Reset(true)
	assert.Equal(t, uint16(0x1180), r.getAF())
	assert.Equal(t, uint16(0xFF56), r.getDE())
}

func TestResetToBootROM(t *testing.T) {
	var r Registers
	r.Reset(false)
	r.ResetToBootROM()
	assert.Equal(t, uint16(0), r.getAF())
	assert.Equal(t, uint16(0), r.PC)
	assert.Equal(t, uint16(0), r.SP)
}

func TestGet8Set8IndirectHL(t *testing.T) {
	bus := newFakeBus()
	c := New(bus, false)
	c.setHL(0xC000)

	c.set8(regHLInd, 0x42)
	assert.Equal(t, uint8(0x42), bus.Read(0xC000))
	assert.Equal(t, uint8(0x42), c.get8(regHLInd))

	c.set8(regA, 0x99)
	assert.Equal(t, uint8(0x99), c.A)
}
