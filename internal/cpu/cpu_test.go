package cpu

import (
	"testing"

	"github.com/kestrelcore/dmgcore/internal/bus"
)

func newCPUWithROM(code []byte) *CPU {
	b := bus.New()
	rom := make([]byte, 0x8000)
	copy(rom[0x0100:], code)
	b.LoadROM(rom)
	c := New(b)
	c.SP = 0xFFFE
	c.PC = 0x0100
	return c
}

func newCPUWithROMAt(addr uint16, code []byte) *CPU {
	b := bus.New()
	rom := make([]byte, 0x8000)
	copy(rom[addr:], code)
	b.LoadROM(rom)
	c := New(b)
	c.SP = 0xFFFE
	c.PC = addr
	return c
}

// --- literal end-to-end scenarios (spec.md §8) ---

func TestScenarioA_LDImmediates(t *testing.T) {
	c := newCPUWithROMAt(0x0100, []byte{0x3E, 0x42, 0x06, 0x13})
	var cycles int
	cycles += c.Step()
	cycles += c.Step()
	if c.A != 0x42 || c.B != 0x13 || c.PC != 0x0104 || cycles != 16 {
		t.Fatalf("A=%02X B=%02X PC=%04X cycles=%d, want A=42 B=13 PC=0104 cycles=16", c.A, c.B, c.PC, cycles)
	}
}

func TestScenarioB_XorA(t *testing.T) {
	c := newCPUWithROMAt(0x0100, []byte{0xAF})
	c.Step()
	if c.A != 0x00 || c.F != 0x80 || c.PC != 0x0101 {
		t.Fatalf("A=%02X F=%02X PC=%04X, want A=00 F=80 PC=0101", c.A, c.F, c.PC)
	}
}

func TestScenarioC_AddOverflow(t *testing.T) {
	c := newCPUWithROMAt(0x0100, []byte{0xC6, 0xFF})
	c.A = 0x3C
	c.F = 0x00
	c.Step()
	if c.A != 0x3B {
		t.Fatalf("A=%02X, want 3B", c.A)
	}
	if c.F&flagZ != 0 || c.F&flagN != 0 || c.F&flagH == 0 || c.F&flagC == 0 {
		t.Fatalf("F=%02X, want Z=0 N=0 H=1 C=1", c.F)
	}
	if c.PC != 0x0102 {
		t.Fatalf("PC=%04X, want 0102", c.PC)
	}
}

func TestScenarioD_PushPopAF(t *testing.T) {
	c := newCPUWithROMAt(0x0100, []byte{0xF5, 0xF1})
	c.SP = 0xFFFE
	c.A = 0x11
	c.F = 0x20
	c.Step() // PUSH AF
	c.Step() // POP AF
	if c.A != 0x11 || c.F != 0x20 || c.SP != 0xFFFE {
		t.Fatalf("A=%02X F=%02X SP=%04X, want A=11 F=20 SP=FFFE", c.A, c.F, c.SP)
	}
}

func TestScenarioE_JRSelfLoop(t *testing.T) {
	c := newCPUWithROMAt(0x0100, []byte{0x18, 0xFE})
	cycles := c.Step()
	if c.PC != 0x0100 || cycles != 12 {
		t.Fatalf("PC=%04X cycles=%d, want PC=0100 cycles=12", c.PC, cycles)
	}
}

// --- property-based invariants (spec.md §8) ---

func TestAddFlagsExhaustive(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			res, z, n, h, cy := add8(byte(a), byte(b))
			wantRes := byte((a + b) % 256)
			if res != wantRes {
				t.Fatalf("ADD %02X+%02X = %02X, want %02X", a, b, res, wantRes)
			}
			if z != (res == 0) {
				t.Fatalf("ADD %02X+%02X: Z=%v, want %v", a, b, z, res == 0)
			}
			if n {
				t.Fatalf("ADD %02X+%02X: N set, want clear", a, b)
			}
			wantH := (a&0x0F)+(b&0x0F) > 0x0F
			if h != wantH {
				t.Fatalf("ADD %02X+%02X: H=%v, want %v", a, b, h, wantH)
			}
			wantC := a+b > 0xFF
			if cy != wantC {
				t.Fatalf("ADD %02X+%02X: C=%v, want %v", a, b, cy, wantC)
			}
		}
	}
}

func TestAdcFlagsWithCarryIn(t *testing.T) {
	for a := 0; a < 256; a += 7 { // sampled, not exhaustive, to keep this test fast
		for b := 0; b < 256; b += 11 {
			for _, cin := range []bool{false, true} {
				res, z, _, h, cy := adc8(byte(a), byte(b), cin)
				ci := 0
				if cin {
					ci = 1
				}
				wantRes := byte((a + b + ci) % 256)
				if res != wantRes {
					t.Fatalf("ADC %02X+%02X+%d = %02X, want %02X", a, b, ci, res, wantRes)
				}
				if z != (res == 0) {
					t.Fatalf("ADC: Z mismatch")
				}
				wantH := (a&0x0F)+(b&0x0F)+ci > 0x0F
				if h != wantH {
					t.Fatalf("ADC %02X+%02X+%d: H=%v, want %v", a, b, ci, h, wantH)
				}
				wantC := a+b+ci > 0xFF
				if cy != wantC {
					t.Fatalf("ADC %02X+%02X+%d: C=%v, want %v", a, b, ci, cy, wantC)
				}
			}
		}
	}
}

func TestRotateRoundTrip(t *testing.T) {
	c := newCPUWithROM([]byte{0xCB, 0x00, 0xCB, 0x08}) // RLC B; RRC B
	for n := 0; n < 256; n++ {
		c.PC = 0x0100
		c.B = byte(n)
		c.Step() // RLC B
		c.Step() // RRC B
		if c.B != byte(n) {
			t.Fatalf("RLC/RRC round trip: got %02X, want %02X", c.B, n)
		}
	}
}

func TestSwapSelfInverse(t *testing.T) {
	c := newCPUWithROM([]byte{0xCB, 0x37, 0xCB, 0x37}) // SWAP A; SWAP A
	for n := 0; n < 256; n++ {
		c.PC = 0x0100
		c.A = byte(n)
		c.Step()
		c.Step()
		if c.A != byte(n) {
			t.Fatalf("SWAP is not self-inverse for %02X: got %02X", n, c.A)
		}
	}
}

func TestReadWriteWordRoundTripAcrossFullSpace(t *testing.T) {
	b := bus.New()
	for _, addr := range []uint16{0, 1, 0x7FFF, 0x8000, 0xFFFE, 0xFFFF} {
		for _, v := range []uint16{0, 0x00FF, 0xFF00, 0xFFFF, 0x1234} {
			b.WriteWord(addr, v)
			if got := b.ReadWord(addr); got != v {
				t.Fatalf("addr %04X: got %04X, want %04X", addr, got, v)
			}
		}
	}
}

func TestPushPopLeavesSPUnchanged(t *testing.T) {
	c := newCPUWithROM(nil)
	for _, v := range []uint16{0x0000, 0x1234, 0xFFFF, 0xBEEF} {
		sp := c.SP
		c.push16(v)
		got := c.pop16()
		if got != v {
			t.Fatalf("push/pop %04X: got %04X", v, got)
		}
		if c.SP != sp {
			t.Fatalf("push/pop %04X: SP changed from %04X to %04X", v, sp, c.SP)
		}
	}
}

func TestConditionalBranchCycleCosts(t *testing.T) {
	cases := []struct {
		name      string
		code      []byte
		setup     func(c *CPU)
		wantTaken int
		wantSkip  int
	}{
		{"JR NZ", []byte{0x20, 0x02}, func(c *CPU) { c.F = 0 }, 12, 8},
		{"JP NZ", []byte{0xC2, 0x00, 0x02}, func(c *CPU) { c.F = 0 }, 16, 12},
		{"CALL NZ", []byte{0xC4, 0x00, 0x02}, func(c *CPU) { c.F = 0 }, 24, 12},
	}
	for _, tc := range cases {
		notTaken := newCPUWithROM(tc.code)
		notTaken.F = flagZ
		if got := notTaken.Step(); got != tc.wantSkip {
			t.Fatalf("%s not-taken: cycles=%d, want %d", tc.name, got, tc.wantSkip)
		}
		taken := newCPUWithROM(tc.code)
		tc.setup(taken)
		if got := taken.Step(); got != tc.wantTaken {
			t.Fatalf("%s taken: cycles=%d, want %d", tc.name, got, tc.wantTaken)
		}
	}

	retNotTaken := newCPUWithROM([]byte{0xC0})
	retNotTaken.F = flagZ
	if got := retNotTaken.Step(); got != 8 {
		t.Fatalf("RET NZ not-taken: cycles=%d, want 8", got)
	}
	retTaken := newCPUWithROM([]byte{0xC0})
	retTaken.F = 0
	retTaken.push16(0x1234)
	if got := retTaken.Step(); got != 20 {
		t.Fatalf("RET NZ taken: cycles=%d, want 20", got)
	}
	if retTaken.PC != 0x1234 {
		t.Fatalf("RET NZ taken: PC=%04X, want 1234", retTaken.PC)
	}
}

func TestPopAFAlwaysMasksLowNibble(t *testing.T) {
	for lo := 0; lo < 16; lo++ {
		c := newCPUWithROM([]byte{0xF1})
		c.push16(0x1200 | uint16(lo))
		c.Step()
		if c.F&0x0F != 0 {
			t.Fatalf("POP AF with stack low nibble %X left F=%02X", lo, c.F)
		}
	}
}

// --- opcode-level behavior, in the vein of a hand-written trace suite ---

func TestLDMemoryHLWritesMemoryNotRegister(t *testing.T) {
	c := newCPUWithROM([]byte{0x70}) // LD (HL),B
	c.setHL(0xC000)
	c.B = 0x99
	c.Step()
	if got := c.read8(0xC000); got != 0x99 {
		t.Fatalf("LD (HL),B: mem[C000]=%02X, want 99", got)
	}
	if c.getHL() != 0xC000 {
		t.Fatalf("LD (HL),B must not alter HL, got %04X", c.getHL())
	}
}

func TestLDAbsoluteSPWritesLowThenHigh(t *testing.T) {
	c := newCPUWithROM([]byte{0x08, 0x00, 0xC0}) // LD (C000),SP
	c.SP = 0xBEEF
	c.Step()
	if got := c.read8(0xC000); got != 0xEF {
		t.Fatalf("low byte at C000 = %02X, want EF", got)
	}
	if got := c.read8(0xC001); got != 0xBE {
		t.Fatalf("high byte at C001 = %02X, want BE", got)
	}
}

func TestDAAAfterBCDAdd(t *testing.T) {
	c := newCPUWithROM([]byte{0x27})
	c.A = 0x09 + 0x08 // simulate 09 + 08 = 0x11 pre-DAA, half-carry set
	c.F = flagH
	c.Step()
	if c.A != 0x17 {
		t.Fatalf("DAA after 09+08: A=%02X, want 17", c.A)
	}
}

func TestEIDelaysOneInstruction(t *testing.T) {
	c := newCPUWithROM([]byte{0xFB, 0x00}) // EI; NOP
	c.Step()
	if c.IME {
		t.Fatalf("IME set immediately after EI, want delayed by one instruction")
	}
	c.Step()
	if !c.IME {
		t.Fatalf("IME not set after the instruction following EI")
	}
}

func TestUnimplementedOpcodeRecordsFaultAndAdvances(t *testing.T) {
	c := newCPUWithROM([]byte{0xD3, 0x00}) // 0xD3 is unassigned on SM83
	pc := c.PC
	c.Step()
	if c.LastFault == nil {
		t.Fatalf("expected LastFault to be recorded for opcode D3")
	}
	if c.LastFault.Opcode != 0xD3 || c.LastFault.PC != pc {
		t.Fatalf("LastFault = %+v, want Opcode=D3 PC=%04X", c.LastFault, pc)
	}
	if c.PC != pc+1 {
		t.Fatalf("PC after unimplemented opcode = %04X, want %04X", c.PC, pc+1)
	}
}

func TestHaltAddsFourCyclesWithoutFetch(t *testing.T) {
	c := newCPUWithROM([]byte{0x76, 0x3E, 0x42}) // HALT; LD A,42 (never reached)
	c.Step()                                     // executes HALT
	pc := c.PC
	for i := 0; i < 3; i++ {
		if got := c.Step(); got != 4 {
			t.Fatalf("halted Step() = %d cycles, want 4", got)
		}
	}
	if c.PC != pc {
		t.Fatalf("PC advanced while halted: %04X -> %04X", pc, c.PC)
	}
	if c.A == 0x42 {
		t.Fatalf("HALT did not block the fetch of the following instruction")
	}
}

func TestCBBitOnHLCosts12(t *testing.T) {
	c := newCPUWithROM([]byte{0xCB, 0x46}) // BIT 0,(HL)
	c.setHL(0xC000)
	if got := c.Step(); got != 12 {
		t.Fatalf("BIT 0,(HL) cycles=%d, want 12", got)
	}
}

func TestCBRotateOnHLCosts16(t *testing.T) {
	c := newCPUWithROM([]byte{0xCB, 0x06}) // RLC (HL)
	c.setHL(0xC000)
	if got := c.Step(); got != 16 {
		t.Fatalf("RLC (HL) cycles=%d, want 16", got)
	}
}

func TestCBSetResOnHLCosts16(t *testing.T) {
	c := newCPUWithROM([]byte{0xCB, 0xC6}) // SET 0,(HL)
	c.setHL(0xC000)
	if got := c.Step(); got != 16 {
		t.Fatalf("SET 0,(HL) cycles=%d, want 16", got)
	}
}

func TestBootStateMatchesSpec(t *testing.T) {
	c := New(bus.New())
	c.ApplyBootState()
	if c.PC != 0x0100 || c.SP != 0xFFFE {
		t.Fatalf("PC=%04X SP=%04X, want PC=0100 SP=FFFE", c.PC, c.SP)
	}
	if c.A != 0x01 || c.F != 0xB0 || c.B != 0x00 || c.C != 0x13 ||
		c.D != 0x00 || c.E != 0xD8 || c.H != 0x01 || c.L != 0x4D {
		t.Fatalf("register file after boot = A%02X F%02X B%02X C%02X D%02X E%02X H%02X L%02X",
			c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L)
	}
	if got := c.read8(0xFF40); got != 0x91 {
		t.Fatalf("LCDC=%02X, want 91", got)
	}
	if got := c.read8(0xFF47); got != 0xE4 {
		t.Fatalf("BGP=%02X, want E4", got)
	}
}

func TestADCHalfCarryWithCarryInCrossesNibble(t *testing.T) {
	// A=0x0F, v=0x00, Cin=1: low nibble sum is 0x10, must set H.
	_, _, _, h, _ := adc8(0x0F, 0x00, true)
	if !h {
		t.Fatalf("ADC 0F+00+1: H not set, want set")
	}
}

func TestSBCHalfCarryBorrowIn(t *testing.T) {
	// A=0x00, v=0x00, Cin=1: needs a borrow from the low nibble.
	_, _, _, h, cy := sbc8(0x00, 0x00, true)
	if !h || !cy {
		t.Fatalf("SBC 00-00-1: H=%v C=%v, want both true", h, cy)
	}
}
