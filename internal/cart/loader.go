package cart

import "fmt"

// MaxSize is the flat address space size; a ROM larger than this cannot be
// copied into memory starting at offset 0 (§3 lifecycle rule).
const MaxSize = 0x10000

// SizeError reports a ROM image over MaxSize bytes (the InvalidROMSize error
// kind: no header validation is required, only the length check).
type SizeError struct {
	Size int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("ROM size %d exceeds %d-byte address space", e.Size, MaxSize)
}

// Load validates rom against MaxSize and returns it unchanged, ready to be
// copied into a Bus at offset 0. No banking, no MBC dispatch: whatever
// CartType byte the header carries, the bytes still land verbatim.
func Load(rom []byte) ([]byte, error) {
	if len(rom) > MaxSize {
		return nil, &SizeError{Size: len(rom)}
	}
	return rom, nil
}
