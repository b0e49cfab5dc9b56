package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelcore/dmgcore/internal/hostui"
	"github.com/kestrelcore/dmgcore/internal/machine"
	"github.com/kestrelcore/dmgcore/internal/monitor"
	"github.com/kestrelcore/dmgcore/internal/statsview"
)

func newRunCmd() *cobra.Command {
	var (
		trace      bool
		useMonitor bool
		useStats   bool
		scale      int
		bootROM    string
	)

	cmd := &cobra.Command{
		Use:   "run <rom>",
		Short: "Run a ROM in a window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := machine.New(machine.Config{Trace: trace})
			if err := loadROM(m, args[0], bootROM); err != nil {
				return err
			}

			if useStats {
				statsview.Launch(os.Stdout)
			}

			if useMonitor {
				return monitor.Run(m, os.Stdout)
			}

			app := hostui.New(hostui.Config{Title: args[0], Scale: scale}, m)
			return app.Run()
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "log every executed instruction")
	cmd.Flags().BoolVar(&useMonitor, "monitor", false, "drop into an interactive single-step terminal monitor instead of opening a window")
	cmd.Flags().BoolVar(&useStats, "stats", false, "launch the runtime statistics dashboard (requires building with -tags statsview)")
	cmd.Flags().IntVar(&scale, "scale", 3, "window scale factor")
	cmd.Flags().StringVar(&bootROM, "bootrom", "", "run a boot ROM image from 0x0000 before falling into the cartridge, instead of starting at the post-boot state")
	return cmd
}
