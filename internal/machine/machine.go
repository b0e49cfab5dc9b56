// Package machine wires the bus, CPU and background renderer into the
// top-level per-frame loop the host backend drives: pump the CPU for a
// batch of cycles, resolve the pixel buffer, hand it off.
package machine

import (
	"fmt"
	"log"

	"github.com/kestrelcore/dmgcore/internal/bus"
	"github.com/kestrelcore/dmgcore/internal/cart"
	"github.com/kestrelcore/dmgcore/internal/cpu"
	"github.com/kestrelcore/dmgcore/internal/video"
)

// CyclesPerFrame is the T-cycle budget of one 59.7 Hz DMG frame
// (154 scanlines × 456 dots).
const CyclesPerFrame = 70224

// Buttons is the joypad state an extended host may map key events onto.
// The core itself never reads 0xFF00 to affect emulation — mapping input is
// the optional "extended implementation" §6 allows, not a requirement.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

// Machine owns the Bus and CPU for one loaded ROM.
type Machine struct {
	cfg Config
	bus *bus.Bus
	cpu *cpu.CPU
}

// New creates a Machine with a fresh, zeroed Bus and CPU.
func New(cfg Config) *Machine {
	b := bus.New()
	return &Machine{cfg: cfg, bus: b, cpu: cpu.New(b)}
}

// LoadROM validates and copies rom into memory at offset 0, then puts the
// CPU into the DMG post-boot state at PC=0x0100 (§4.7). It does not run a
// boot ROM; use LoadROMWithBoot for that.
func (m *Machine) LoadROM(rom []byte) error {
	body, err := cart.Load(rom)
	if err != nil {
		return &Error{Kind: InvalidROMSize, Msg: "loading ROM", Err: err}
	}
	if h, err := cart.ParseHeader(body); err == nil {
		log.Print(h)
	}
	m.bus.LoadROM(body)
	m.cpu.ApplyBootState()
	return nil
}

// LoadROMWithBoot copies rom at offset 0 and additionally copies boot over
// the very front of the address space, then starts execution at PC=0x0000
// the way real hardware does before the boot ROM disables itself. This core
// does not implement the boot ROM's own self-disable (0xFF50); it is only
// useful for stepping through a boot ROM image under test.
func (m *Machine) LoadROMWithBoot(rom, boot []byte) error {
	body, err := cart.Load(rom)
	if err != nil {
		return &Error{Kind: InvalidROMSize, Msg: "loading ROM", Err: err}
	}
	m.bus.LoadROM(body)
	m.bus.LoadROM(boot)
	m.cpu.PC = 0x0000
	m.cpu.SP = 0xFFFE
	return nil
}

// CPU exposes the underlying CPU for tools that need direct register access
// (the interactive monitor, the disassembler).
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Bus exposes the underlying bus, e.g. to install a serial tap.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// SetButtons writes a JOYP-shaped byte to 0xFF00 reflecting which of the
// pressed buttons match whichever selection bits (P14/P15) currently sit in
// 0xFF00's upper nibble. Both bits are treated as active-low, matching real
// hardware; if neither is selected, the lower nibble reads all 1s (nothing
// pressed).
func (m *Machine) SetButtons(btn Buttons) {
	sel := m.bus.Read(0xFF00)
	var lower byte = 0x0F
	if sel&0x10 == 0 { // direction keys selected
		if btn.Right {
			lower &^= 0x01
		}
		if btn.Left {
			lower &^= 0x02
		}
		if btn.Up {
			lower &^= 0x04
		}
		if btn.Down {
			lower &^= 0x08
		}
	}
	if sel&0x20 == 0 { // button keys selected
		if btn.A {
			lower &^= 0x01
		}
		if btn.B {
			lower &^= 0x02
		}
		if btn.Select {
			lower &^= 0x04
		}
		if btn.Start {
			lower &^= 0x08
		}
	}
	m.bus.Write(0xFF00, (sel&0xF0)|lower)
}

// Step runs exactly one CPU instruction, optionally tracing it, and returns
// the T-cycles consumed. A fault the CPU could not dispatch is surfaced as a
// logged UnimplementedOpcode error, but does not stop execution — PC has
// already advanced past it by the time Step returns.
func (m *Machine) Step() int {
	pc := m.cpu.PC
	cycles := m.cpu.Step()
	if m.cfg.Trace {
		log.Printf("PC=%04X cyc=%d A=%02X F=%02X BC=%04X DE=%04X HL=%04X SP=%04X",
			pc, cycles, m.cpu.A, m.cpu.F, uint16(m.cpu.B)<<8|uint16(m.cpu.C),
			uint16(m.cpu.D)<<8|uint16(m.cpu.E), uint16(m.cpu.H)<<8|uint16(m.cpu.L), m.cpu.SP)
	}
	if f := m.cpu.LastFault; f != nil && f.PC == pc {
		log.Print(&Error{Kind: UnimplementedOpcode, Msg: fmt.Sprintf("opcode %02X at PC=%04X", f.Opcode, f.PC)})
	}
	return cycles
}

// StepFrame runs CPU steps until at least CyclesPerFrame T-cycles have
// elapsed, then resolves the background layer into an RGBA buffer.
func (m *Machine) StepFrame() []byte {
	var cycles int
	for cycles < CyclesPerFrame {
		cycles += m.Step()
	}
	return video.Frame(m.bus)
}

// Framebuffer resolves the current background layer without advancing the
// CPU — useful for tests that set up memory directly and want the frame it
// implies right now.
func (m *Machine) Framebuffer() []byte {
	return video.Frame(m.bus)
}
