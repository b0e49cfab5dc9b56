package cart

import "testing"

func TestLoadAcceptsMaxSize(t *testing.T) {
	rom := make([]byte, MaxSize)
	got, err := Load(rom)
	if err != nil {
		t.Fatalf("Load(65536 bytes) error: %v", err)
	}
	if len(got) != MaxSize {
		t.Fatalf("Load returned %d bytes, want %d", len(got), MaxSize)
	}
}

func TestLoadRejectsOversizeROM(t *testing.T) {
	rom := make([]byte, MaxSize+1)
	if _, err := Load(rom); err == nil {
		t.Fatalf("expected error loading a %d-byte ROM", len(rom))
	}
}
