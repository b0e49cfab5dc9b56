// Command dmgcore runs the DMG core: windowed play, headless batch execution
// for automated test ROMs, and an opcode-table disassembly dump.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "dmgcore",
		Short: "Sharp SM83 core: CPU interpreter, flat bus, background renderer",
	}

	root.AddCommand(newRunCmd(), newHeadlessCmd(), newDisasmCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
