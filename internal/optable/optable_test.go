package optable

import (
	"bytes"
	"testing"
)

func TestTableCoversAllUnassignedOpcodes(t *testing.T) {
	table := Table()
	for op := range unassignedOnSM83 {
		if table[op].Class != ClassUnassigned {
			t.Fatalf("opcode %02X classified as %s, want unassigned", op, table[op].Class)
		}
	}
}

func TestTableClassifiesCBPrefixByte(t *testing.T) {
	table := Table()
	if table[0xCB].Class != ClassCB {
		t.Fatalf("0xCB entry class = %s, want cb-prefix", table[0xCB].Class)
	}
}

func TestConditionalEntriesRecordTakenAndSkipSeparately(t *testing.T) {
	table := Table()
	jrNZ := table[0x20]
	if jrNZ.CyclesTaken == jrNZ.CyclesSkip {
		t.Fatalf("JR NZ taken/skip cycles both %d, want them to differ", jrNZ.CyclesTaken)
	}
	if jrNZ.CyclesTaken != 12 || jrNZ.CyclesSkip != 8 {
		t.Fatalf("JR NZ cycles = %d/%d, want 12/8", jrNZ.CyclesTaken, jrNZ.CyclesSkip)
	}
}

func TestWriteGraphProducesNonEmptyOutput(t *testing.T) {
	var buf bytes.Buffer
	WriteGraph(&buf)
	if buf.Len() == 0 {
		t.Fatalf("WriteGraph produced no output")
	}
}

func TestEveryAssignedPrimaryOpcodeHasAMnemonic(t *testing.T) {
	table := Table()
	for op := 0; op < 256; op++ {
		if unassignedOnSM83[byte(op)] {
			continue
		}
		if table[op].Mnemonic == "?" {
			t.Errorf("opcode %02X has no classify() entry (still the zero-value placeholder)", op)
		}
	}
}

func TestCBTableCoversEveryByte(t *testing.T) {
	table := CBTable()
	for op := 0; op < 256; op++ {
		if table[op].Mnemonic == "" {
			t.Errorf("CB opcode %02X has no mnemonic", op)
		}
	}
	if table[0x46].Mnemonic != "BIT 0,(HL)" || table[0x46].CyclesTaken != 12 {
		t.Fatalf("CB 46 = %+v, want BIT 0,(HL) at 12 cycles", table[0x46])
	}
	if table[0x00].Mnemonic != "RLC B" {
		t.Fatalf("CB 00 = %+v, want RLC B", table[0x00])
	}
	if table[0x80].Mnemonic != "RES 0,B" {
		t.Fatalf("CB 80 = %+v, want RES 0,B", table[0x80])
	}
	if table[0xC0].Mnemonic != "SET 0,B" {
		t.Fatalf("CB C0 = %+v, want SET 0,B", table[0xC0])
	}
}
