// Package cpu implements the Sharp SM83 instruction set: register file,
// flag unit, ALU primitives and the fetch/decode/execute engine over the
// primary and 0xCB-prefixed opcode tables.
package cpu

import "github.com/kestrelcore/dmgcore/internal/bus"

// Flag bits within F. The low nibble of F is always zero; every path that
// writes F either goes through setZNHC (which only ever sets these four
// bits) or masks explicitly (setAF, POP AF).
const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

// Fault records the last opcode the decoder had no handler for. PC still
// advances past it; the core does not stop.
type Fault struct {
	PC     uint16
	Opcode byte
}

// CPU is the SM83 register file plus decode/execute state, bound to a Bus.
type CPU struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	IME       bool
	Halted    bool
	eiPending bool

	// LastFault is non-nil after Step() dispatches an opcode with no
	// handler. It is not cleared automatically; callers that want
	// per-step visibility should check and reset it themselves.
	LastFault *Fault

	// Cycles is the running T-cycle tally, per §3's monotonic counter.
	Cycles uint64

	bus *bus.Bus
}

// New creates a CPU bound to b. All registers start zeroed; callers wanting
// the DMG post-boot state should call ApplyBootState (see boot.go).
func New(b *bus.Bus) *CPU {
	return &CPU{bus: b}
}

// Bus exposes the underlying bus for tests and tooling.
func (c *CPU) Bus() *bus.Bus { return c.bus }

func (c *CPU) setZNHC(z, n, h, cy bool) {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	if cy {
		f |= flagC
	}
	c.F = f
}

// ALU primitives. Each returns the result plus the four flags per §4.4;
// callers store the result and pass the flags to setZNHC.

func add8(a, b byte) (res byte, z, n, h, cy bool) {
	r := uint16(a) + uint16(b)
	res = byte(r)
	return res, res == 0, false, (a&0x0F)+(b&0x0F) > 0x0F, r > 0xFF
}

func adc8(a, b byte, cin bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if cin {
		ci = 1
	}
	r := uint16(a) + uint16(b) + uint16(ci)
	res = byte(r)
	return res, res == 0, false, (a&0x0F)+(b&0x0F)+ci > 0x0F, r > 0xFF
}

func sub8(a, b byte) (res byte, z, n, h, cy bool) {
	r := int16(a) - int16(b)
	res = byte(r)
	return res, res == 0, true, (a & 0x0F) < (b & 0x0F), a < b
}

func sbc8(a, b byte, cin bool) (res byte, z, n, h, cy bool) {
	ci := byte(0)
	if cin {
		ci = 1
	}
	r := int16(a) - int16(b) - int16(ci)
	res = byte(r)
	// widen to a type that holds up to 0x1E per the Half-carry design note.
	borrowIn := int16(b&0x0F) + int16(ci)
	full := int16(a) < int16(b)+int16(ci)
	return res, res == 0, true, int16(a&0x0F) < borrowIn, full
}

func and8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a & b
	return res, res == 0, false, true, false
}

func xor8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a ^ b
	return res, res == 0, false, false, false
}

func or8(a, b byte) (res byte, z, n, h, cy bool) {
	res = a | b
	return res, res == 0, false, false, false
}

func cp8(a, b byte) (z, n, h, cy bool) {
	_, z, n, h, cy = sub8(a, b)
	return
}

func (c *CPU) read8(addr uint16) byte     { return c.bus.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.bus.Write(addr, v) }

func (c *CPU) fetch8() byte {
	v := c.read8(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU) read16(addr uint16) uint16  { return c.bus.ReadWord(addr) }
func (c *CPU) write16(addr uint16, v uint16) { c.bus.WriteWord(addr, v) }

func (c *CPU) getAF() uint16  { return uint16(c.A)<<8 | uint16(c.F&0xF0) }
func (c *CPU) setAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) & 0xF0 }
func (c *CPU) getBC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) getDE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) getHL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.write16(c.SP, v)
}

func (c *CPU) pop16() uint16 {
	v := c.read16(c.SP)
	c.SP += 2
	return v
}

// reg8 returns a register value by the SM83's 3-bit encoding
// {0:B,1:C,2:D,3:E,4:H,5:L,6:(HL),7:A}, the "DDD"/"SSS" fields the primary
// and CB tables share.
func (c *CPU) reg8(idx byte) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.getHL())
	default:
		return c.A
	}
}

func (c *CPU) setReg8(idx byte, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.getHL(), v)
	default:
		c.A = v
	}
}

// Step executes exactly one instruction (or, if HALT is set, adds 4 cycles
// and performs no fetch) and returns the T-cycles consumed. IME is toggled
// by EI/DI/RETI but no interrupt is ever actually delivered here — nothing
// clears HALT and nothing services a vector.
func (c *CPU) Step() int {
	// An EI takes effect only once the instruction after it has run; a DI in
	// between cancels it.
	pending := c.eiPending
	cycles := c.step()
	c.Cycles += uint64(cycles)
	if pending && c.eiPending {
		c.IME = true
		c.eiPending = false
	}
	return cycles
}

func (c *CPU) step() int {
	if c.Halted {
		return 4
	}

	pc := c.PC
	op := c.fetch8()
	switch op {
	case 0x00: // NOP
		return 4

	case 0x76: // HALT
		c.Halted = true
		return 4

	case 0x10: // STOP: treated as NOP for this core
		c.fetch8() // STOP is followed by a padding byte
		return 4

	// LD r,d8
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x3E:
		d := (op >> 3) & 7
		c.setReg8(d, c.fetch8())
		if d == 6 {
			return 12
		}
		return 8

	// LD r,r' / LD (HL),r / LD r,(HL) — the whole 01 DDD SSS matrix except
	// 0x76 (HALT), handled above.
	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47,
		0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F,
		0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57,
		0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F,
		0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67,
		0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F,
		0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x77,
		0x78, 0x79, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F:
		d := (op >> 3) & 7
		s := op & 7
		c.setReg8(d, c.reg8(s))
		if d == 6 || s == 6 {
			return 8
		}
		return 4

	// 16-bit immediate loads
	case 0x01:
		c.setBC(c.fetch16())
		return 12
	case 0x11:
		c.setDE(c.fetch16())
		return 12
	case 0x21:
		c.setHL(c.fetch16())
		return 12
	case 0x31:
		c.SP = c.fetch16()
		return 12
	case 0x08: // LD (a16),SP
		addr := c.fetch16()
		c.write16(addr, c.SP)
		return 20

	case 0x36: // LD (HL),d8
		c.write8(c.getHL(), c.fetch8())
		return 12

	case 0x02: // LD (BC),A
		c.write8(c.getBC(), c.A)
		return 8
	case 0x12: // LD (DE),A
		c.write8(c.getDE(), c.A)
		return 8
	case 0x0A: // LD A,(BC)
		c.A = c.read8(c.getBC())
		return 8
	case 0x1A: // LD A,(DE)
		c.A = c.read8(c.getDE())
		return 8

	case 0x22: // LD (HL+),A
		hl := c.getHL()
		c.write8(hl, c.A)
		c.setHL(hl + 1)
		return 8
	case 0x2A: // LD A,(HL+)
		hl := c.getHL()
		c.A = c.read8(hl)
		c.setHL(hl + 1)
		return 8
	case 0x32: // LD (HL-),A
		hl := c.getHL()
		c.write8(hl, c.A)
		c.setHL(hl - 1)
		return 8
	case 0x3A: // LD A,(HL-)
		hl := c.getHL()
		c.A = c.read8(hl)
		c.setHL(hl - 1)
		return 8

	case 0xE0: // LDH (FF00+n),A
		n := uint16(c.fetch8())
		c.write8(0xFF00+n, c.A)
		return 12
	case 0xF0: // LDH A,(FF00+n)
		n := uint16(c.fetch8())
		c.A = c.read8(0xFF00 + n)
		return 12
	case 0xE2: // LD (FF00+C),A
		c.write8(0xFF00+uint16(c.C), c.A)
		return 8
	case 0xF2: // LD A,(FF00+C)
		c.A = c.read8(0xFF00 + uint16(c.C))
		return 8

	case 0xEA: // LD (a16),A
		c.write8(c.fetch16(), c.A)
		return 16
	case 0xFA: // LD A,(a16)
		c.A = c.read8(c.fetch16())
		return 16

	case 0x07: // RLCA
		cv := (c.A >> 7) & 1
		c.A = c.A<<1 | cv
		c.setZNHC(false, false, false, cv == 1)
		return 4
	case 0x0F: // RRCA
		cv := c.A & 1
		c.A = c.A>>1 | cv<<7
		c.setZNHC(false, false, false, cv == 1)
		return 4
	case 0x17: // RLA
		cv := (c.A >> 7) & 1
		cin := byte(0)
		if c.F&flagC != 0 {
			cin = 1
		}
		c.A = c.A<<1 | cin
		c.setZNHC(false, false, false, cv == 1)
		return 4
	case 0x1F: // RRA
		cv := c.A & 1
		cin := byte(0)
		if c.F&flagC != 0 {
			cin = 1
		}
		c.A = c.A>>1 | cin<<7
		c.setZNHC(false, false, false, cv == 1)
		return 4

	case 0x27: // DAA — canonical SM83 algorithm; see §9 of the design notes.
		a := int16(c.A)
		cf := c.F&flagC != 0
		hf := c.F&flagH != 0
		nf := c.F&flagN != 0
		var adjust int16
		if !nf {
			if cf || a > 0x99 {
				adjust += 0x60
				cf = true
			}
			if hf || a&0x0F > 0x09 {
				adjust += 0x06
			}
			a += adjust
		} else {
			if cf {
				adjust -= 0x60
			}
			if hf {
				adjust -= 0x06
			}
			a += adjust
		}
		c.A = byte(a)
		c.setZNHC(c.A == 0, nf, false, cf)
		return 4
	case 0x2F: // CPL
		c.A = ^c.A
		c.F = (c.F & (flagZ | flagC)) | flagN | flagH
		return 4
	case 0x37: // SCF
		c.F = (c.F & flagZ) | flagC
		return 4
	case 0x3F: // CCF
		cy := c.F&flagC == 0
		c.F = (c.F & flagZ)
		if cy {
			c.F |= flagC
		}
		return 4

	// INC/DEC r
	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x3C:
		d := (op >> 3) & 7
		old := c.reg8(d)
		v := old + 1
		c.setReg8(d, v)
		c.setZNHC(v == 0, false, old&0x0F == 0x0F, c.F&flagC != 0)
		return 4
	case 0x34: // INC (HL)
		addr := c.getHL()
		old := c.read8(addr)
		v := old + 1
		c.write8(addr, v)
		c.setZNHC(v == 0, false, old&0x0F == 0x0F, c.F&flagC != 0)
		return 12
	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x3D:
		d := (op >> 3) & 7
		old := c.reg8(d)
		v := old - 1
		c.setReg8(d, v)
		c.setZNHC(v == 0, true, old&0x0F == 0x00, c.F&flagC != 0)
		return 4
	case 0x35: // DEC (HL)
		addr := c.getHL()
		old := c.read8(addr)
		v := old - 1
		c.write8(addr, v)
		c.setZNHC(v == 0, true, old&0x0F == 0x00, c.F&flagC != 0)
		return 12

	// 8-bit ALU: A op r, for r in {B,C,D,E,H,L,A} (0x80-0xBF minus the
	// (HL) column, handled below).
	case 0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x87,
		0x88, 0x89, 0x8A, 0x8B, 0x8C, 0x8D, 0x8F,
		0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x97,
		0x98, 0x99, 0x9A, 0x9B, 0x9C, 0x9D, 0x9F,
		0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA7,
		0xA8, 0xA9, 0xAA, 0xAB, 0xAC, 0xAD, 0xAF,
		0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB7,
		0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBF:
		c.aluA((op>>3)&7, c.reg8(op&7))
		return 4

	case 0x86, 0x8E, 0x96, 0x9E, 0xA6, 0xAE, 0xB6, 0xBE: // ALU with (HL)
		c.aluA((op>>3)&7, c.read8(c.getHL()))
		return 8

	case 0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE: // ALU immediate
		c.aluA((op>>3)&7, c.fetch8())
		return 8

	case 0xC3: // JP a16
		c.PC = c.fetch16()
		return 16
	case 0xE9: // JP (HL)
		c.PC = c.getHL()
		return 4
	case 0x18: // JR e
		off := int8(c.fetch8())
		c.PC = uint16(int32(c.PC) + int32(off))
		return 12
	case 0x20, 0x28, 0x30, 0x38: // JR cc,e
		off := int8(c.fetch8())
		if c.condTaken(op) {
			c.PC = uint16(int32(c.PC) + int32(off))
			return 12
		}
		return 8

	case 0xCD: // CALL a16
		addr := c.fetch16()
		c.push16(c.PC)
		c.PC = addr
		return 24
	case 0xC4, 0xCC, 0xD4, 0xDC: // CALL cc,a16
		addr := c.fetch16()
		if c.condTaken(op) {
			c.push16(c.PC)
			c.PC = addr
			return 24
		}
		return 12

	case 0xC9: // RET
		c.PC = c.pop16()
		return 16
	case 0xD9: // RETI
		c.PC = c.pop16()
		c.IME = true
		return 16
	case 0xC0, 0xC8, 0xD0, 0xD8: // RET cc
		if c.condTaken(op) {
			c.PC = c.pop16()
			return 20
		}
		return 8

	case 0xC2, 0xCA, 0xD2, 0xDA: // JP cc,a16
		addr := c.fetch16()
		if c.condTaken(op) {
			c.PC = addr
			return 16
		}
		return 12

	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF: // RST t
		c.push16(c.PC)
		c.PC = uint16(op & 0x38)
		return 16

	case 0x03: // INC BC
		c.setBC(c.getBC() + 1)
		return 8
	case 0x13: // INC DE
		c.setDE(c.getDE() + 1)
		return 8
	case 0x23: // INC HL
		c.setHL(c.getHL() + 1)
		return 8
	case 0x33: // INC SP
		c.SP++
		return 8
	case 0x0B:
		c.setBC(c.getBC() - 1)
		return 8
	case 0x1B:
		c.setDE(c.getDE() - 1)
		return 8
	case 0x2B:
		c.setHL(c.getHL() - 1)
		return 8
	case 0x3B:
		c.SP--
		return 8

	case 0x09, 0x19, 0x29, 0x39: // ADD HL,rr
		hl := c.getHL()
		var rr uint16
		switch op {
		case 0x09:
			rr = c.getBC()
		case 0x19:
			rr = c.getDE()
		case 0x29:
			rr = hl
		case 0x39:
			rr = c.SP
		}
		r := uint32(hl) + uint32(rr)
		h := (hl&0x0FFF)+(rr&0x0FFF) > 0x0FFF
		c.setHL(uint16(r))
		c.setZNHC(c.F&flagZ != 0, false, h, r > 0xFFFF)
		return 8

	case 0xF8: // LD HL,SP+e
		off := int8(c.fetch8())
		res := uint16(int32(int16(c.SP)) + int32(off))
		_, _, _, h, cy := add8(byte(c.SP), byte(off))
		c.setHL(res)
		c.setZNHC(false, false, h, cy)
		return 12
	case 0xF9: // LD SP,HL
		c.SP = c.getHL()
		return 8
	case 0xE8: // ADD SP,e
		off := int8(c.fetch8())
		_, _, _, h, cy := add8(byte(c.SP), byte(off))
		c.SP = uint16(int32(int16(c.SP)) + int32(off))
		c.setZNHC(false, false, h, cy)
		return 16

	case 0xF3: // DI
		c.IME = false
		c.eiPending = false
		return 4
	case 0xFB: // EI
		c.eiPending = true
		return 4

	case 0xF5: // PUSH AF
		c.push16(c.getAF())
		return 16
	case 0xC5:
		c.push16(c.getBC())
		return 16
	case 0xD5:
		c.push16(c.getDE())
		return 16
	case 0xE5:
		c.push16(c.getHL())
		return 16
	case 0xF1: // POP AF — low nibble of F always zeroed
		c.setAF(c.pop16())
		return 12
	case 0xC1:
		c.setBC(c.pop16())
		return 12
	case 0xD1:
		c.setDE(c.pop16())
		return 12
	case 0xE1:
		c.setHL(c.pop16())
		return 12

	case 0xCB:
		return c.stepCB()

	default:
		c.LastFault = &Fault{PC: pc, Opcode: op}
		return 4
	}
}

// condTaken evaluates the two-bit cc field shared by JR/JP/CALL/RET cc,
// where bits 4-3 of the opcode select NZ/Z/NC/C.
func (c *CPU) condTaken(op byte) bool {
	switch (op >> 3) & 3 {
	case 0:
		return c.F&flagZ == 0
	case 1:
		return c.F&flagZ != 0
	case 2:
		return c.F&flagC == 0
	default:
		return c.F&flagC != 0
	}
}

// aluA applies the 8-bit ALU operation selected by the "OOO" field (the
// second operand of the 10 OOO SSS matrix) to A and src.
func (c *CPU) aluA(op byte, src byte) {
	switch op {
	case 0: // ADD
		r, z, n, h, cy := add8(c.A, src)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 1: // ADC
		r, z, n, h, cy := adc8(c.A, src, c.F&flagC != 0)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 2: // SUB
		r, z, n, h, cy := sub8(c.A, src)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 3: // SBC
		r, z, n, h, cy := sbc8(c.A, src, c.F&flagC != 0)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 4: // AND
		r, z, n, h, cy := and8(c.A, src)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 5: // XOR
		r, z, n, h, cy := xor8(c.A, src)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 6: // OR
		r, z, n, h, cy := or8(c.A, src)
		c.A = r
		c.setZNHC(z, n, h, cy)
	case 7: // CP
		z, n, h, cy := cp8(c.A, src)
		c.setZNHC(z, n, h, cy)
	}
}

// stepCB dispatches the second byte of a 0xCB-prefixed instruction. Cycle
// costs: register operand 8; (HL) operand 16, except BIT b,(HL) which is 12
// (§4.5 and the CB-timing design note both call this out explicitly).
func (c *CPU) stepCB() int {
	cb := c.fetch8()
	reg := cb & 7
	group := (cb >> 6) & 3
	y := (cb >> 3) & 7

	cycles := 8
	if reg == 6 {
		cycles = 16
		if group == 1 { // BIT b,(HL)
			cycles = 12
		}
	}

	switch group {
	case 0: // rotate/shift/swap
		v := c.reg8(reg)
		var cflag byte
		switch y {
		case 0: // RLC
			cflag = (v >> 7) & 1
			v = v<<1 | cflag
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 1: // RRC
			cflag = v & 1
			v = v>>1 | cflag<<7
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 2: // RL
			cflag = (v >> 7) & 1
			cin := byte(0)
			if c.F&flagC != 0 {
				cin = 1
			}
			v = v<<1 | cin
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 3: // RR
			cflag = v & 1
			cin := byte(0)
			if c.F&flagC != 0 {
				cin = 1
			}
			v = v>>1 | cin<<7
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 4: // SLA
			cflag = (v >> 7) & 1
			v <<= 1
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 5: // SRA
			cflag = v & 1
			v = v>>1 | v&0x80
			c.setZNHC(v == 0, false, false, cflag == 1)
		case 6: // SWAP
			v = v<<4 | v>>4
			c.setZNHC(v == 0, false, false, false)
		case 7: // SRL
			cflag = v & 1
			v >>= 1
			c.setZNHC(v == 0, false, false, cflag == 1)
		}
		c.setReg8(reg, v)
	case 1: // BIT y,r — Z per tested bit, N=0, H=1, C unchanged
		v := c.reg8(reg)
		bit := (v >> y) & 1
		c.F = (c.F & flagC) | flagH
		if bit == 0 {
			c.F |= flagZ
		}
	case 2: // RES y,r
		v := c.reg8(reg)
		c.setReg8(reg, v&^(1<<y))
	case 3: // SET y,r
		v := c.reg8(reg)
		c.setReg8(reg, v|(1<<y))
	}
	return cycles
}
