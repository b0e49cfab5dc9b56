package main

import (
	"fmt"
	"os"

	"github.com/kestrelcore/dmgcore/internal/machine"
)

// loadROM reads romPath and starts m from it. When bootPath is non-empty,
// the named boot ROM image is copied to the front of the address space and
// execution starts at 0x0000, the way real hardware runs a boot ROM before
// it disables itself; otherwise m starts at the post-boot state.
func loadROM(m *machine.Machine, romPath, bootPath string) error {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM: %w", err)
	}

	if bootPath == "" {
		return m.LoadROM(rom)
	}

	boot, err := os.ReadFile(bootPath)
	if err != nil {
		return fmt.Errorf("reading boot ROM: %w", err)
	}
	return m.LoadROMWithBoot(rom, boot)
}
