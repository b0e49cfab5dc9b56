package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelcore/dmgcore/internal/optable"
)

func newDisasmCmd() *cobra.Command {
	var graphOut string

	cmd := &cobra.Command{
		Use:   "disasm",
		Short: "Dump the primary and CB-prefixed opcode metadata tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("-- primary table --")
			for _, e := range optable.Table() {
				fmt.Printf("%02X  %-14s %-10s len=%d taken=%d skip=%d\n",
					e.Opcode, e.Mnemonic, e.Class, e.OperandLen, e.CyclesTaken, e.CyclesSkip)
			}
			fmt.Println("-- CB-prefixed table --")
			for _, e := range optable.CBTable() {
				fmt.Printf("CB %02X  %-14s %-10s taken=%d\n",
					e.Opcode, e.Mnemonic, e.Class, e.CyclesTaken)
			}

			if graphOut == "" {
				return nil
			}
			f, err := os.Create(graphOut)
			if err != nil {
				return fmt.Errorf("writing graph: %w", err)
			}
			defer f.Close()
			optable.WriteGraph(f)
			fmt.Fprintf(os.Stderr, "wrote opcode graph to %s\n", graphOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&graphOut, "graph", "", "also write a Graphviz dump of both opcode tables to this path")
	return cmd
}
