package main

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"image/png"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelcore/dmgcore/internal/hostui"
	"github.com/kestrelcore/dmgcore/internal/machine"
)

var failRe = regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)

func newHeadlessCmd() *cobra.Command {
	var (
		maxFrames int
		until     string
		timeout   time.Duration
		pngOut    string
		trace     bool
		bootROM   string
	)

	cmd := &cobra.Command{
		Use:   "headless <rom>",
		Short: "Run a ROM with no window, watching serial output for a Blargg-style pass/fail marker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := machine.New(machine.Config{Trace: trace})
			if err := loadROM(m, args[0], bootROM); err != nil {
				return err
			}

			var serial bytes.Buffer
			m.Bus().SetSerialTap(func(b byte) { serial.WriteByte(b) })

			start := time.Now()
			var deadline time.Time
			if timeout > 0 {
				deadline = start.Add(timeout)
			}

			var fb []byte
			for i := 0; maxFrames <= 0 || i < maxFrames; i++ {
				fb = m.StepFrame()

				s := serial.String()
				if until != "" && strings.Contains(strings.ToLower(s), strings.ToLower(until)) {
					fmt.Printf("detected %q in serial output after %d frames (%s)\n", until, i+1, time.Since(start).Truncate(time.Millisecond))
					return finish(fb, pngOut)
				}
				if strings.Contains(strings.ToLower(s), "passed") {
					fmt.Printf("PASS after %d frames (%s)\n", i+1, time.Since(start).Truncate(time.Millisecond))
					return finish(fb, pngOut)
				}
				if mm := failRe.FindString(s); mm != "" {
					fmt.Printf("FAIL (%s) after %d frames\n", mm, i+1)
					if err := finish(fb, pngOut); err != nil {
						return err
					}
					os.Exit(1)
				}
				if !deadline.IsZero() && time.Now().After(deadline) {
					fmt.Printf("timeout after %s\n", time.Since(start).Truncate(time.Millisecond))
					if err := finish(fb, pngOut); err != nil {
						return err
					}
					os.Exit(2)
				}
			}

			fmt.Printf("ran %d frames with no pass/fail marker; framebuffer CRC32=%08X\n", maxFrames, crc32.ChecksumIEEE(fb))
			return finish(fb, pngOut)
		},
	}

	cmd.Flags().IntVar(&maxFrames, "max-frames", 3600, "stop after this many frames if no pass/fail marker appears (0 = unlimited)")
	cmd.Flags().StringVar(&until, "until", "", "also stop when serial output contains this substring")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "wall-clock timeout (0 disables)")
	cmd.Flags().StringVar(&pngOut, "png", "", "write the final framebuffer to this PNG path")
	cmd.Flags().BoolVar(&trace, "trace", false, "log every executed instruction")
	cmd.Flags().StringVar(&bootROM, "bootrom", "", "run a boot ROM image from 0x0000 before falling into the cartridge, instead of starting at the post-boot state")
	return cmd
}

func finish(fb []byte, pngOut string) error {
	fmt.Printf("framebuffer CRC32=%08X\n", crc32.ChecksumIEEE(fb))
	if pngOut == "" {
		return nil
	}
	f, err := os.Create(pngOut)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, hostui.RGBAFromBuffer(fb))
}
