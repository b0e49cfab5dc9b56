// Package cart parses the cartridge header embedded in a ROM image and
// copies the flat image into place. Nothing here banks memory: loader.go's
// Load hands cartridge bytes to the bus verbatim, so a header claiming an
// MBC1/MBC3/MBC5 cartridge type still gets mapped as if it were ROM ONLY.
// ParseHeader exists to make that gap observable rather than silent — the
// same "surface it, don't hide it" approach machine.Machine takes for a CPU
// opcode it cannot dispatch.
package cart

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// headerStart and headerEnd bound the fixed cartridge header region every
// DMG ROM carries at a known offset, regardless of mapper.
const (
	headerStart = 0x0100
	headerEnd   = 0x014F
)

// nintendoLogo is the 48-byte bitmap the original boot ROM compares against
// before it will run a cartridge. This core never runs that check itself —
// LoadROM starts straight from the post-boot state — but ParseHeader still
// looks for it, purely as a hint logged alongside the rest of the header.
var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header is the decoded 0x0100-0x014F cartridge header. Fields keep the raw
// byte/code values from the ROM; ROMSizeBytes, ROMBanks, RAMSizeBytes and
// CartTypeStr are ParseHeader's decoded convenience form of those codes.
type Header struct {
	Title          string // trimmed ASCII, 0x0134-0x0143
	CGBFlag        byte   // 0x0143
	NewLicensee    string // 0x0144-0x0145, only meaningful when OldLicensee == 0x33
	SGBFlag        byte   // 0x0146
	CartType       byte   // 0x0147 — mapper family; see CartTypeStr
	ROMSizeCode    byte   // 0x0148
	RAMSizeCode    byte   // 0x0149
	Destination    byte   // 0x014A
	OldLicensee    byte   // 0x014B
	ROMVersion     byte   // 0x014C
	HeaderChecksum byte   // 0x014D
	GlobalChecksum uint16 // 0x014E-0x014F

	ROMSizeBytes int
	ROMBanks     int
	RAMSizeBytes int
	CartTypeStr  string

	logoMatch bool
}

// ParseHeader decodes the header embedded in rom. It never fails on a
// mismatched Nintendo logo or an unrecognized CartType — those are exactly
// the conditions RequiresBanking and String are for — it only errors when
// rom is too short to contain the fixed header region at all.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd+1 {
		return nil, errors.New("ROM too small to contain header")
	}

	rawTitle := rom[0x0134:0x0144]
	h := &Header{
		Title:          strings.TrimRight(string(rawTitle), "\x00"),
		CGBFlag:        rom[0x0143],
		NewLicensee:    string(rom[0x0144:0x0146]),
		SGBFlag:        rom[0x0146],
		CartType:       rom[0x0147],
		ROMSizeCode:    rom[0x0148],
		RAMSizeCode:    rom[0x0149],
		Destination:    rom[0x014A],
		OldLicensee:    rom[0x014B],
		ROMVersion:     rom[0x014C],
		HeaderChecksum: rom[0x014D],
		GlobalChecksum: binary.BigEndian.Uint16(rom[0x014E:0x0150]),
		logoMatch:      bytes0104MatchesLogo(rom),
	}

	h.ROMSizeBytes, h.ROMBanks = sizeFromROMCode(h.ROMSizeCode)
	h.RAMSizeBytes = sizeFromRAMCode(h.RAMSizeCode)
	h.CartTypeStr = describeCartType(h.CartType)

	return h, nil
}

func bytes0104MatchesLogo(rom []byte) bool {
	for i, want := range nintendoLogo {
		if rom[0x0104+i] != want {
			return false
		}
	}
	return true
}

// HeaderChecksumOK recomputes the Pan Docs header checksum over 0x0134-0x014C
// and compares it against the byte stored at 0x014D.
func HeaderChecksumOK(rom []byte) bool {
	if len(rom) < 0x014E {
		return false
	}
	var sum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		sum = sum - rom[addr] - 1
	}
	return sum == rom[0x014D]
}

// RequiresBanking reports whether CartType names a mapper family this core
// does not implement. cart.Load copies every cartridge in flat, unbanked, so
// a ROM that reports true here will run correctly only as far as bank 0 and
// static RAM reach; anything behind a bank switch reads whatever byte
// happens to sit at that address in the flat image instead.
func (h *Header) RequiresBanking() bool {
	return h.CartType != 0x00
}

// String renders a one-line diagnostic summary suitable for logging right
// after a ROM loads, the header-level counterpart to the fault line
// machine.Machine prints when the CPU hits an opcode it can't dispatch.
func (h *Header) String() string {
	banking := ""
	if h.RequiresBanking() {
		banking = fmt.Sprintf(" (unbanked core, cart wants %s)", h.CartTypeStr)
	}
	return fmt.Sprintf("cart: title=%q type=%s romBanks=%d ramBytes=%d logo=%t%s",
		h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes, h.logoMatch, banking)
}

func sizeFromROMCode(code byte) (size, banks int) {
	switch code {
	case 0x00:
		return 32 * 1024, 2
	case 0x01:
		return 64 * 1024, 4
	case 0x02:
		return 128 * 1024, 8
	case 0x03:
		return 256 * 1024, 16
	case 0x04:
		return 512 * 1024, 32
	case 0x05:
		return 1 * 1024 * 1024, 64
	case 0x06:
		return 2 * 1024 * 1024, 128
	case 0x07:
		return 4 * 1024 * 1024, 256
	case 0x08:
		return 8 * 1024 * 1024, 512
	case 0x52:
		return 1152 * 1024, 72
	case 0x53:
		return 1280 * 1024, 80
	case 0x54:
		return 1536 * 1024, 96
	default:
		return 0, 0
	}
}

func sizeFromRAMCode(code byte) int {
	switch code {
	case 0x00:
		return 0
	case 0x02:
		return 8 * 1024
	case 0x03:
		return 32 * 1024
	case 0x04:
		return 128 * 1024
	case 0x05:
		return 64 * 1024
	default:
		return 0
	}
}

func describeCartType(code byte) string {
	switch code {
	case 0x00:
		return "ROM ONLY"
	case 0x01, 0x02, 0x03:
		return "MBC1 (variants)"
	case 0x05, 0x06:
		return "MBC2 (variants)"
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return "MBC3 (variants)"
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return "MBC5 (variants)"
	default:
		return "Other/unknown"
	}
}
