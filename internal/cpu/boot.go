package cpu

// ApplyBootState installs the DMG post-boot-ROM values from §4.7: register
// file, SP, PC, and the two I/O shadow bytes the background renderer reads.
// Everything else in memory is left at whatever the bus already holds (the
// bus starts zeroed, so a fresh CPU+Bus pair matches "all other memory and
// counters zero" without this function touching them itself).
func (c *CPU) ApplyBootState() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.IME = false
	c.Halted = false
	c.eiPending = false
	c.LastFault = nil
	c.Cycles = 0

	c.write8(0xFF40, 0x91) // LCDC
	c.write8(0xFF47, 0xE4) // BGP
}
