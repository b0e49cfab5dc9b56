// Package hostui implements the host windowing/rendering backend §6 places
// out of scope as an external collaborator: a window, a key-event stream
// mapped onto the joypad, and a texture blit of the resolved framebuffer.
package hostui

import (
	"fmt"
	"image/png"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/kestrelcore/dmgcore/internal/machine"
)

// Config controls window presentation only; emulation behavior lives in
// machine.Config.
type Config struct {
	Title string
	Scale int
}

// App is an ebiten.Game driving one Machine.
type App struct {
	cfg Config
	m   *machine.Machine
	tex *ebiten.Image
}

// New creates the window and binds it to m. Scale defaults to 3x if unset.
func New(cfg Config, m *machine.Machine) *App {
	if cfg.Scale <= 0 {
		cfg.Scale = 3
	}
	if cfg.Title == "" {
		cfg.Title = "dmgcore"
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	return &App{cfg: cfg, m: m}
}

// Run blocks until the window is closed or ESCAPE is pressed, both of which
// satisfy the QUIT/ESCAPE termination contract §6 requires at minimum.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	var btn machine.Buttons
	btn.Right = ebiten.IsKeyPressed(ebiten.KeyArrowRight)
	btn.Left = ebiten.IsKeyPressed(ebiten.KeyArrowLeft)
	btn.Up = ebiten.IsKeyPressed(ebiten.KeyArrowUp)
	btn.Down = ebiten.IsKeyPressed(ebiten.KeyArrowDown)
	btn.A = ebiten.IsKeyPressed(ebiten.KeyZ)
	btn.B = ebiten.IsKeyPressed(ebiten.KeyX)
	btn.Start = ebiten.IsKeyPressed(ebiten.KeyEnter)
	btn.Select = ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	a.m.SetButtons(btn)

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		_ = a.saveScreenshot()
	}

	a.m.StepFrame()
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }

func (a *App) saveScreenshot() error {
	fb := a.m.Framebuffer()
	img := RGBAFromBuffer(fb)
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
