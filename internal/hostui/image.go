package hostui

import "image"

// RGBAFromBuffer wraps a tightly-packed RGBA byte slice from
// machine.Machine.Framebuffer in an image.RGBA without copying pixel data
// twice. Exported so other front ends (the headless CLI's PNG dump) can
// reuse the same conversion the windowed screenshot path uses.
func RGBAFromBuffer(fb []byte) *image.RGBA {
	return &image.RGBA{
		Pix:    fb,
		Stride: 4 * 160,
		Rect:   image.Rect(0, 0, 160, 144),
	}
}
