// Package monitor implements an optional interactive single-step monitor: a
// raw terminal that reads keypresses and prints register/flag state between
// steps, in the spirit of a `-trace` flag but driven interactively instead
// of dumping every instruction to a log.
package monitor

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/term"

	"github.com/kestrelcore/dmgcore/internal/machine"
)

// Keys recognized while the monitor is running.
const (
	keyStep     = ' '
	keyContinue = 'c'
	keyQuit     = 'q'
)

// pollInterval bounds how long a blocked Read waits before Run gets a chance
// to advance a free-running machine again. stepsPerPoll is how many
// instructions run between polls, so 'c' behaves like a free-run rather than
// stepping once per pollInterval.
const (
	pollInterval = 20 * time.Millisecond
	stepsPerPoll = 20000
)

// Run puts the terminal into raw mode and drives m from the keyboard until
// the user quits: space steps one instruction, 'c' free-runs until the next
// keypress, 'q' exits.
func Run(m *machine.Machine, out io.Writer) error {
	t, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return fmt.Errorf("monitor: open terminal: %w", err)
	}
	defer t.Restore()
	defer t.Close()
	if err := t.SetReadTimeout(pollInterval); err != nil {
		return fmt.Errorf("monitor: set read timeout: %w", err)
	}

	fmt.Fprintln(out, "monitor: space=step  c=continue  q=quit")
	printState(out, m)

	buf := make([]byte, 1)
	running := false
	for {
		n, err := t.Read(buf)
		if err != nil {
			return err
		}
		if n > 0 {
			switch buf[0] {
			case keyQuit:
				return nil
			case keyContinue:
				running = true
				continue
			case keyStep:
				running = false
				m.Step()
				printState(out, m)
				continue
			}
		}

		if running {
			for i := 0; i < stepsPerPoll; i++ {
				m.Step()
			}
			printState(out, m)
		}
	}
}

func printState(out io.Writer, m *machine.Machine) {
	c := m.CPU()
	fmt.Fprintf(out, "PC=%04X SP=%04X A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X IME=%t cyc=%d\n",
		c.PC, c.SP, c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.IME, c.Cycles)
}
