// Package video implements the stateless background-layer pixel resolver:
// getPixel(x, y) reads LCDC and BGP straight out of memory and walks the
// tile map the same way the PPU's background fetcher would, without any of
// the scanline timing, sprite compositing or window layer a real PPU needs.
package video

// Memory is the read-only view the renderer needs. *bus.Bus satisfies this
// without the package importing bus directly, so it stays usable against
// anything that looks like memory (a test double, a snapshot buffer, etc).
type Memory interface {
	Read(addr uint16) byte
}

// Palette shades, indexed by the 2-bit BGP-mapped color.
const (
	White     = 0xFFFFFF
	LightGray = 0xAAAAAA
	DarkGray  = 0x555555
	Black     = 0x000000
)

var shades = [4]uint32{White, LightGray, DarkGray, Black}

// GetPixel returns the 0x00RRGGBB color of the background pixel at (x, y),
// x∈[0,160), y∈[0,144), per §4.6. It is a pure function of memory: nothing
// here is cached or memoized, so calling it twice with unmodified memory
// call by call is guaranteed identical.
func GetPixel(mem Memory, x, y int) uint32 {
	lcdc := mem.Read(0xFF40)
	bgp := mem.Read(0xFF47)

	tileMapBase := uint16(0x9800)
	if lcdc&0x08 != 0 {
		tileMapBase = 0x9C00
	}
	tileIndexAddr := tileMapBase + uint16(y/8)*32 + uint16(x/8)
	tileIndex := mem.Read(tileIndexAddr)

	var tileAddr uint16
	if lcdc&0x10 != 0 {
		tileAddr = 0x8000 + uint16(tileIndex)*16
	} else {
		tileAddr = uint16(int32(0x9000) + int32(int8(tileIndex))*16)
	}

	row := (y % 8) * 2
	lo := mem.Read(tileAddr + uint16(row))
	hi := mem.Read(tileAddr + uint16(row) + 1)

	bit := 7 - (x % 8)
	loBit := (lo >> bit) & 1
	hiBit := (hi >> bit) & 1
	colorID := hiBit<<1 | loBit

	shade := (bgp >> (colorID * 2)) & 0b11
	return shades[shade]
}

// Frame renders the full 160×144 background layer into an RGBA byte slice
// suitable for handing to a host texture (4 bytes per pixel, row-major,
// alpha fixed at 0xFF). This is the "resolve the pixel buffer" step of the
// top-level loop; it does not know or care what happens to the bytes next.
func Frame(mem Memory) []byte {
	const w, h = 160, 144
	buf := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := GetPixel(mem, x, y)
			i := (y*w + x) * 4
			buf[i+0] = byte(c >> 16)
			buf[i+1] = byte(c >> 8)
			buf[i+2] = byte(c)
			buf[i+3] = 0xFF
		}
	}
	return buf
}
