package cpu

import "github.com/kallendev/dmgcore/bit"

// buildMainTable constructs the 256-entry main opcode table. The regular
// blocks (0x40-0x7F LD r,r' and 0x80-0xBF ALU A,r) are generated by
// looping over regIndex the same way opcodes_cb.go does; everything else
// is one function per opcode, since those instructions do not share a
// uniform operand pattern.
func buildMainTable() [256]opcodeFn {
	var t [256]opcodeFn
	for i := range t {
		t[i] = unimplemented
	}

	buildLoadBlock(&t)
	buildALUBlock(&t)
	buildMiscOpcodes(&t)
	buildIllegalOpcodes(&t)

	return t
}

// buildLoadBlock fills 0x40-0x7F: LD r,r' for every pair of the 8
// regIndex operand slots, except 0x76 which is HALT.
func buildLoadBlock(t *[256]opcodeFn) {
	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			opcode := uint8(0x40) | uint8(dst)<<3 | uint8(src)
			if regIndex(dst) == regHLInd && regIndex(src) == regHLInd {
				continue // 0x76 is HALT, assigned in buildMiscOpcodes
			}
			d, s := regIndex(dst), regIndex(src)
			cycles := 4
			if d == regHLInd || s == regHLInd {
				cycles = 8
			}
			t[opcode] = func(c *CPU) int {
				c.set8(d, c.get8(s))
				return cycles
			}
		}
	}
}

// buildALUBlock fills 0x80-0xBF: ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,r for
// every one of the 8 regIndex operand slots.
func buildALUBlock(t *[256]opcodeFn) {
	ops := []func(c *CPU, v uint8){
		func(c *CPU, v uint8) { c.addToA(v, false) },
		func(c *CPU, v uint8) { c.addToA(v, true) },
		func(c *CPU, v uint8) { c.sub(v, false) },
		func(c *CPU, v uint8) { c.sub(v, true) },
		func(c *CPU, v uint8) { c.and(v) },
		func(c *CPU, v uint8) { c.xor(v) },
		func(c *CPU, v uint8) { c.or(v) },
		func(c *CPU, v uint8) { c.cp(v) },
	}
	for group := 0; group < 8; group++ {
		op := ops[group]
		for reg := 0; reg < 8; reg++ {
			opcode := uint8(0x80) | uint8(group)<<3 | uint8(reg)
			idx := regIndex(reg)
			cycles := 4
			if idx == regHLInd {
				cycles = 8
			}
			t[opcode] = func(c *CPU) int {
				op(c, c.get8(idx))
				return cycles
			}
		}
	}
}

// pair16 names the 16-bit register-pair operand used by LD rr,d16 /
// INC rr / DEC rr / ADD HL,rr.
type pair16 uint8

const (
	pairBC pair16 = iota
	pairDE
	pairHL
	pairSP
)

func (c *CPU) getPair(p pair16) uint16 {
	switch p {
	case pairBC:
		return c.getBC()
	case pairDE:
		return c.getDE()
	case pairHL:
		return c.getHL()
	default:
		return c.SP
	}
}

func (c *CPU) setPair(p pair16, v uint16) {
	switch p {
	case pairBC:
		c.setBC(v)
	case pairDE:
		c.setDE(v)
	case pairHL:
		c.setHL(v)
	default:
		c.SP = v
	}
}

// stackPair16 names the 16-bit register-pair operand used by PUSH/POP,
// which uses AF instead of SP in the fourth slot.
type stackPair16 uint8

const (
	stackBC stackPair16 = iota
	stackDE
	stackHL
	stackAF
)

func (c *CPU) getStackPair(p stackPair16) uint16 {
	switch p {
	case stackBC:
		return c.getBC()
	case stackDE:
		return c.getDE()
	case stackHL:
		return c.getHL()
	default:
		return c.getAF()
	}
}

func (c *CPU) setStackPair(p stackPair16, v uint16) {
	switch p {
	case stackBC:
		c.setBC(v)
	case stackDE:
		c.setDE(v)
	case stackHL:
		c.setHL(v)
	default:
		c.setAF(v)
	}
}

func (c *CPU) jrIf(cond bool) int {
	offset := int8(c.fetch8())
	if !cond {
		return 8
	}
	c.PC = uint16(int32(c.PC) + int32(offset))
	return 12
}

func (c *CPU) jpIf(cond bool) int {
	target := c.fetch16()
	if !cond {
		return 12
	}
	c.PC = target
	return 16
}

func (c *CPU) callIf(cond bool) int {
	target := c.fetch16()
	if !cond {
		return 12
	}
	c.pushStack(c.PC)
	c.PC = target
	return 24
}

func (c *CPU) retIf(cond bool) int {
	if !cond {
		return 8
	}
	c.PC = c.popStack()
	return 20
}

func (c *CPU) rst(target uint16) int {
	c.pushStack(c.PC)
	c.PC = target
	return 16
}

// buildMiscOpcodes assigns every opcode outside the two generated blocks
// and the 11 illegal ones (0x00-0x3F, 0x76, 0xC0-0xFF minus illegals).
func buildMiscOpcodes(t *[256]opcodeFn) {
	t[0x00] = func(c *CPU) int { return 4 } // NOP

	t[0x10] = func(c *CPU) int {
		c.fetch8() // STOP's padding second byte
		p1 := c.memory.Read(0xFF00)
		buttonHeld := p1&0x0F != 0x0F
		c.stopInstr(buttonHeld)
		return 4
	}

	t[0x76] = func(c *CPU) int { c.haltInstr(); return 4 }
	t[0xF3] = func(c *CPU) int { c.di(); return 4 }
	t[0xFB] = func(c *CPU) int { c.ei(); return 4 }

	// 16-bit loads/arithmetic/jr, one block of 8 per nibble-aligned
	// pair-index, covering 0x00-0x3F's non-NOP/STOP opcodes.
	for p := pair16(0); p < 4; p++ {
		pp := p
		base := uint8(p) << 4

		t[base+0x01] = func(c *CPU) int { c.setPair(pp, c.fetch16()); return 12 } // LD rr,d16
		t[base+0x03] = func(c *CPU) int { c.setPair(pp, c.getPair(pp)+1); return 8 } // INC rr
		t[base+0x0B] = func(c *CPU) int { c.setPair(pp, c.getPair(pp)-1); return 8 } // DEC rr
		t[base+0x09] = func(c *CPU) int { c.addToHL(c.getPair(pp)); return 8 }       // ADD HL,rr
	}

	t[0x02] = func(c *CPU) int { c.memory.Write(c.getBC(), c.A); return 8 }   // LD (BC),A
	t[0x12] = func(c *CPU) int { c.memory.Write(c.getDE(), c.A); return 8 }   // LD (DE),A
	t[0x22] = func(c *CPU) int { c.memory.Write(c.getHL(), c.A); c.setHL(c.getHL() + 1); return 8 } // LD (HL+),A
	t[0x32] = func(c *CPU) int { c.memory.Write(c.getHL(), c.A); c.setHL(c.getHL() - 1); return 8 } // LD (HL-),A

	t[0x0A] = func(c *CPU) int { c.A = c.memory.Read(c.getBC()); return 8 } // LD A,(BC)
	t[0x1A] = func(c *CPU) int { c.A = c.memory.Read(c.getDE()); return 8 } // LD A,(DE)
	t[0x2A] = func(c *CPU) int { c.A = c.memory.Read(c.getHL()); c.setHL(c.getHL() + 1); return 8 } // LD A,(HL+)
	t[0x3A] = func(c *CPU) int { c.A = c.memory.Read(c.getHL()); c.setHL(c.getHL() - 1); return 8 } // LD A,(HL-)

	t[0x08] = func(c *CPU) int { // LD (nn),SP
		addr := c.fetch16()
		c.memory.Write(addr, bit.Low(c.SP))
		c.memory.Write(addr+1, bit.High(c.SP))
		return 20
	}

	t[0xE8] = func(c *CPU) int { c.SP = c.addToSP(int8(c.fetch8())); return 16 }   // ADD SP,e8
	t[0xF8] = func(c *CPU) int { c.setHL(c.addToSP(int8(c.fetch8()))); return 12 } // LD HL,SP+e8
	t[0xF9] = func(c *CPU) int { c.SP = c.getHL(); return 8 }                     // LD SP,HL

	// INC r / DEC r / LD r,d8 for each of the 8 regIndex slots, at their
	// standard 0x04+8k / 0x05+8k / 0x06+8k positions.
	for reg := 0; reg < 8; reg++ {
		idx := regIndex(reg)
		base := uint8(reg) << 3
		incCycles, decCycles, ldCycles := 4, 4, 8
		if idx == regHLInd {
			incCycles, decCycles, ldCycles = 12, 12, 12
		}
		t[base+0x04] = func(c *CPU) int { c.inc8(idx); return incCycles }
		t[base+0x05] = func(c *CPU) int { c.dec8(idx); return decCycles }
		t[base+0x06] = func(c *CPU) int { c.set8(idx, c.fetch8()); return ldCycles }
	}

	t[0x07] = func(c *CPU) int { c.A = c.rlcVal(c.A, false); return 4 } // RLCA
	t[0x0F] = func(c *CPU) int { c.A = c.rrcVal(c.A, false); return 4 } // RRCA
	t[0x17] = func(c *CPU) int { c.A = c.rlVal(c.A, false); return 4 }  // RLA
	t[0x1F] = func(c *CPU) int { c.A = c.rrVal(c.A, false); return 4 }  // RRA

	t[0x18] = func(c *CPU) int { return c.jrIf(true) }                          // JR e8
	t[0x20] = func(c *CPU) int { return c.jrIf(!c.isSetFlag(flagZ)) }           // JR NZ,e8
	t[0x28] = func(c *CPU) int { return c.jrIf(c.isSetFlag(flagZ)) }            // JR Z,e8
	t[0x30] = func(c *CPU) int { return c.jrIf(!c.isSetFlag(flagC)) }           // JR NC,e8
	t[0x38] = func(c *CPU) int { return c.jrIf(c.isSetFlag(flagC)) }            // JR C,e8

	t[0x27] = func(c *CPU) int { c.daa(); return 4 }  // DAA
	t[0x2F] = func(c *CPU) int { c.cpl(); return 4 }  // CPL
	t[0x37] = func(c *CPU) int { c.scf(); return 4 }  // SCF
	t[0x3F] = func(c *CPU) int { c.ccf(); return 4 }  // CCF

	// ALU A,d8 (0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE).
	immOps := []func(c *CPU, v uint8){
		func(c *CPU, v uint8) { c.addToA(v, false) },
		func(c *CPU, v uint8) { c.addToA(v, true) },
		func(c *CPU, v uint8) { c.sub(v, false) },
		func(c *CPU, v uint8) { c.sub(v, true) },
		func(c *CPU, v uint8) { c.and(v) },
		func(c *CPU, v uint8) { c.xor(v) },
		func(c *CPU, v uint8) { c.or(v) },
		func(c *CPU, v uint8) { c.cp(v) },
	}
	for group := 0; group < 8; group++ {
		op := immOps[group]
		opcode := uint8(0xC6) | uint8(group)<<3
		t[opcode] = func(c *CPU) int { op(c, c.fetch8()); return 8 }
	}

	t[0xC3] = func(c *CPU) int { return c.jpIf(true) }                 // JP nn
	t[0xC2] = func(c *CPU) int { return c.jpIf(!c.isSetFlag(flagZ)) }  // JP NZ,nn
	t[0xCA] = func(c *CPU) int { return c.jpIf(c.isSetFlag(flagZ)) }   // JP Z,nn
	t[0xD2] = func(c *CPU) int { return c.jpIf(!c.isSetFlag(flagC)) }  // JP NC,nn
	t[0xDA] = func(c *CPU) int { return c.jpIf(c.isSetFlag(flagC)) }   // JP C,nn
	t[0xE9] = func(c *CPU) int { c.PC = c.getHL(); return 4 }          // JP HL

	t[0xCD] = func(c *CPU) int { return c.callIf(true) }                  // CALL nn
	t[0xC4] = func(c *CPU) int { return c.callIf(!c.isSetFlag(flagZ)) }   // CALL NZ,nn
	t[0xCC] = func(c *CPU) int { return c.callIf(c.isSetFlag(flagZ)) }    // CALL Z,nn
	t[0xD4] = func(c *CPU) int { return c.callIf(!c.isSetFlag(flagC)) }   // CALL NC,nn
	t[0xDC] = func(c *CPU) int { return c.callIf(c.isSetFlag(flagC)) }    // CALL C,nn

	t[0xC9] = func(c *CPU) int { c.PC = c.popStack(); return 16 }       // RET
	t[0xC0] = func(c *CPU) int { return c.retIf(!c.isSetFlag(flagZ)) } // RET NZ
	t[0xC8] = func(c *CPU) int { return c.retIf(c.isSetFlag(flagZ)) }  // RET Z
	t[0xD0] = func(c *CPU) int { return c.retIf(!c.isSetFlag(flagC)) } // RET NC
	t[0xD8] = func(c *CPU) int { return c.retIf(c.isSetFlag(flagC)) }  // RET C
	t[0xD9] = func(c *CPU) int { c.PC = c.popStack(); c.ime = imeEnabled; return 16 } // RETI

	for i, target := range []uint16{0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38} {
		target := target
		t[0xC7+uint8(i)*8] = func(c *CPU) int { return c.rst(target) }
	}

	for p := stackPair16(0); p < 4; p++ {
		pp := p
		base := uint8(p) << 4
		t[base+0xC1] = func(c *CPU) int { c.setStackPair(pp, c.popStack()); return 12 }
		t[base+0xC5] = func(c *CPU) int { c.pushStack(c.getStackPair(pp)); return 16 }
	}

	t[0xE0] = func(c *CPU) int { c.memory.Write(0xFF00+uint16(c.fetch8()), c.A); return 12 } // LDH (a8),A
	t[0xF0] = func(c *CPU) int { c.A = c.memory.Read(0xFF00 + uint16(c.fetch8())); return 12 } // LDH A,(a8)
	t[0xE2] = func(c *CPU) int { c.memory.Write(0xFF00+uint16(c.C), c.A); return 8 }          // LD (C),A
	t[0xF2] = func(c *CPU) int { c.A = c.memory.Read(0xFF00 + uint16(c.C)); return 8 }        // LD A,(C)
	t[0xEA] = func(c *CPU) int { c.memory.Write(c.fetch16(), c.A); return 16 }                // LD (nn),A
	t[0xFA] = func(c *CPU) int { c.A = c.memory.Read(c.fetch16()); return 16 }                // LD A,(nn)
}

func buildIllegalOpcodes(t *[256]opcodeFn) {
	illegal := []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD}
	for _, op := range illegal {
		t[op] = lockOpcode
	}
}

// lockOpcode implements the illegal-opcode lock: PC is rewound so the
// same illegal byte is refetched forever, unless StrictIllegalOpcodes
// asks for a hard stop instead (see CPU.InvalidOpcodeHit).
func lockOpcode(c *CPU) int {
	if c.StrictIllegalOpcodes {
		c.invalidOpcodeHit = true
		return 4
	}
	c.PC--
	return 4
}
