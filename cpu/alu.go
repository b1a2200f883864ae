package cpu

import "github.com/kallendev/dmgcore/bit"

// The flag-setting helpers below are written so the opcode tables
// (opcodes.go / opcodes_cb.go) can apply them through a regIndex
// accessor, letting one function body cover all 8 operand slots instead
// of 8 (or 256) near-duplicate ones.

func (c *CPU) pushStack(v uint16) {
	c.SP--
	c.memory.Write(c.SP, bit.High(v))
	c.SP--
	c.memory.Write(c.SP, bit.Low(v))
}

func (c *CPU) popStack() uint16 {
	lo := c.memory.Read(c.SP)
	c.SP++
	hi := c.memory.Read(c.SP)
	c.SP++
	return bit.Combine(hi, lo)
}

func (c *CPU) inc8(i regIndex) {
	v := c.get8(i)
	result := v + 1
	c.setFlagToCondition(flagZ, result == 0)
	c.setFlagToCondition(flagH, (v&0xF)+1 > 0xF)
	c.resetFlag(flagN)
	c.set8(i, result)
}

func (c *CPU) dec8(i regIndex) {
	v := c.get8(i)
	result := v - 1
	c.setFlagToCondition(flagZ, result == 0)
	c.setFlagToCondition(flagH, v&0xF == 0)
	c.setFlag(flagN)
	c.set8(i, result)
}

func (c *CPU) rlc(i regIndex) { c.set8(i, c.rlcVal(c.get8(i), true)) }
func (c *CPU) rrc(i regIndex) { c.set8(i, c.rrcVal(c.get8(i), true)) }
func (c *CPU) rl(i regIndex)  { c.set8(i, c.rlVal(c.get8(i), true)) }
func (c *CPU) rr(i regIndex)  { c.set8(i, c.rrVal(c.get8(i), true)) }
func (c *CPU) sla(i regIndex) { c.set8(i, c.slaVal(c.get8(i))) }
func (c *CPU) sra(i regIndex) { c.set8(i, c.sraVal(c.get8(i))) }
func (c *CPU) swap(i regIndex) {
	v := c.get8(i)
	v = (v << 4) | (v >> 4)
	c.setFlagToCondition(flagZ, v == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.resetFlag(flagC)
	c.set8(i, v)
}
func (c *CPU) srl(i regIndex) { c.set8(i, c.srlVal(c.get8(i))) }

func (c *CPU) rlcVal(v uint8, affectZ bool) uint8 {
	carry := v>>7 == 1
	result := (v << 1) | bit.GetBitValue(7, v)
	c.setFlagToCondition(flagZ, affectZ && result == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, carry)
	return result
}

func (c *CPU) rrcVal(v uint8, affectZ bool) uint8 {
	carry := v&1 == 1
	result := (v >> 1) | (v&1)<<7
	c.setFlagToCondition(flagZ, affectZ && result == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, carry)
	return result
}

func (c *CPU) rlVal(v uint8, affectZ bool) uint8 {
	oldCarry := c.flagToBit(flagC)
	carry := v>>7 == 1
	result := (v << 1) | oldCarry
	c.setFlagToCondition(flagZ, affectZ && result == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, carry)
	return result
}

func (c *CPU) rrVal(v uint8, affectZ bool) uint8 {
	oldCarry := c.flagToBit(flagC)
	carry := v&1 == 1
	result := (v >> 1) | oldCarry<<7
	c.setFlagToCondition(flagZ, affectZ && result == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, carry)
	return result
}

func (c *CPU) slaVal(v uint8) uint8 {
	carry := v>>7 == 1
	result := v << 1
	c.setFlagToCondition(flagZ, result == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, carry)
	return result
}

func (c *CPU) sraVal(v uint8) uint8 {
	carry := v&1 == 1
	result := (v >> 1) | (v & 0x80)
	c.setFlagToCondition(flagZ, result == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, carry)
	return result
}

func (c *CPU) srlVal(v uint8) uint8 {
	carry := v&1 == 1
	result := v >> 1
	c.setFlagToCondition(flagZ, result == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, carry)
	return result
}

func (c *CPU) bitTest(bitIdx uint8, i regIndex) {
	v := c.get8(i)
	c.setFlagToCondition(flagZ, !bit.IsSet(bitIdx, v))
	c.resetFlag(flagN)
	c.setFlag(flagH)
}

func (c *CPU) resBit(bitIdx uint8, i regIndex) { c.set8(i, bit.Reset(bitIdx, c.get8(i))) }
func (c *CPU) setBit(bitIdx uint8, i regIndex)  { c.set8(i, bit.Set(bitIdx, c.get8(i))) }

// addToA adds value (+ optional carry-in, for ADC) to A, setting flags.
func (c *CPU) addToA(value uint8, withCarry bool) {
	carryIn := uint16(0)
	if withCarry && c.isSetFlag(flagC) {
		carryIn = 1
	}
	a := c.A
	result := uint16(a) + uint16(value) + carryIn

	c.setFlagToCondition(flagZ, uint8(result) == 0)
	c.resetFlag(flagN)
	c.setFlagToCondition(flagH, (a&0xF)+(value&0xF)+uint8(carryIn) > 0xF)
	c.setFlagToCondition(flagC, result > 0xFF)

	c.A = uint8(result)
}

// addToHL adds a 16-bit value to HL, setting N/H/C (Z is untouched).
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := uint32(hl) + uint32(value)

	c.resetFlag(flagN)
	c.setFlagToCondition(flagH, (hl&0xFFF)+(value&0xFFF) > 0xFFF)
	c.setFlagToCondition(flagC, result > 0xFFFF)

	c.setHL(uint16(result))
}

// addToSP computes SP + signed 8-bit displacement, setting flags the way
// ADD SP,e8 / LD HL,SP+e8 both do (Z and N are always cleared; H/C are
// computed on the *unsigned low byte* addition, matching hardware).
func (c *CPU) addToSP(offset int8) uint16 {
	sp := c.SP
	o := uint16(uint8(offset))
	result := sp + o

	c.resetFlag(flagZ)
	c.resetFlag(flagN)
	c.setFlagToCondition(flagH, (sp&0xF)+(o&0xF) > 0xF)
	c.setFlagToCondition(flagC, (sp&0xFF)+(o&0xFF) > 0xFF)

	return result
}

func (c *CPU) sub(value uint8, withCarry bool) {
	carryIn := uint16(0)
	if withCarry && c.isSetFlag(flagC) {
		carryIn = 1
	}
	a := c.A
	result := int32(a) - int32(value) - int32(carryIn)

	c.setFlagToCondition(flagZ, uint8(result) == 0)
	c.setFlag(flagN)
	c.setFlagToCondition(flagH, (int32(a&0xF) - int32(value&0xF) - int32(carryIn)) < 0)
	c.setFlagToCondition(flagC, result < 0)

	c.A = uint8(result)
}

func (c *CPU) cp(value uint8) {
	a := c.A
	c.sub(value, false)
	c.A = a // CP does not store the result
}

func (c *CPU) and(value uint8) {
	c.A &= value
	c.setFlagToCondition(flagZ, c.A == 0)
	c.resetFlag(flagN)
	c.setFlag(flagH)
	c.resetFlag(flagC)
}

func (c *CPU) or(value uint8) {
	c.A |= value
	c.setFlagToCondition(flagZ, c.A == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.resetFlag(flagC)
}

func (c *CPU) xor(value uint8) {
	c.A ^= value
	c.setFlagToCondition(flagZ, c.A == 0)
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.resetFlag(flagC)
}

// daa implements decimal-adjust-after-add/sub, correcting A into packed
// BCD using the N/H/C flags left by the preceding ADD/ADC/SUB/SBC.
func (c *CPU) daa() {
	a := c.A
	adjust := uint8(0)
	carry := false

	if c.isSetFlag(flagH) || (!c.isSetFlag(flagN) && a&0xF > 9) {
		adjust |= 0x06
	}
	if c.isSetFlag(flagC) || (!c.isSetFlag(flagN) && a > 0x99) {
		adjust |= 0x60
		carry = true
	}

	if c.isSetFlag(flagN) {
		a -= adjust
	} else {
		a += adjust
	}

	c.setFlagToCondition(flagZ, a == 0)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, carry)
	c.A = a
}

func (c *CPU) cpl() {
	c.A = ^c.A
	c.setFlag(flagN)
	c.setFlag(flagH)
}

func (c *CPU) scf() {
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlag(flagC)
}

func (c *CPU) ccf() {
	c.resetFlag(flagN)
	c.resetFlag(flagH)
	c.setFlagToCondition(flagC, !c.isSetFlag(flagC))
}
