// Package theme maps named color themes onto the terminal emulator's
// 16-color palette and the small set of UI accents the status chrome uses.
package theme

import (
	"image/color"
	"sync"

	"github.com/charmbracelet/lipgloss/v2"
	tint "github.com/lrstanley/bubbletint/v2"
)

// mu guards enabled and the tint registry. The config watcher re-runs
// Initialize on a reload while the render goroutine reads the accessors.
var (
	mu      sync.RWMutex
	enabled bool
)

// Initialize selects the theme by bubbletint ID. Safe to call again on a
// config reload. An empty name disables theming; the emulator then keeps
// its built-in palette.
func Initialize(themeName string) {
	mu.Lock()
	defer mu.Unlock()

	if themeName == "" {
		enabled = false
		return
	}

	enabled = true
	tint.NewDefaultRegistry()
	if ok := tint.SetTintID(themeName); !ok {
		tint.SetTintID("default")
	}
}

// IsEnabled returns true if theming is enabled
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Current returns the currently active theme, nil when theming is
// disabled.
func Current() *tint.Tint {
	mu.RLock()
	defer mu.RUnlock()
	return current()
}

// current assumes mu is held.
func current() *tint.Tint {
	if !enabled {
		return nil
	}
	return tint.Current()
}

// Palette returns the 16 ANSI colors of the active theme for injection
// into the emulator. ok is false when theming is disabled; callers then
// leave the emulator's default palette in place.
func Palette() (palette [16]color.RGBA, ok bool) {
	mu.RLock()
	defer mu.RUnlock()

	t := current()
	if t == nil {
		return palette, false
	}
	for i, c := range []color.Color{
		t.Black, t.Red, t.Green, t.Yellow,
		t.Blue, t.Purple, t.Cyan, t.White,
		t.BrightBlack, t.BrightRed, t.BrightGreen, t.BrightYellow,
		t.BrightBlue, t.BrightPurple, t.BrightCyan, t.BrightWhite,
	} {
		palette[i] = toRGBA(c)
	}
	return palette, true
}

// Defaults returns the theme's default foreground and background for the
// emulator. ok mirrors Palette.
func Defaults() (fg, bg color.RGBA, ok bool) {
	mu.RLock()
	defer mu.RUnlock()

	t := current()
	if t == nil {
		return fg, bg, false
	}
	return toRGBA(t.Fg), toRGBA(t.Bg), true
}

// TerminalCursor is the cursor cell color for rendering.
func TerminalCursor() color.Color {
	mu.RLock()
	defer mu.RUnlock()

	t := current()
	if t == nil {
		return lipgloss.Color("#00ff00")
	}
	return t.Cursor
}

// Status bar colors

func StatusBarBg() color.Color {
	return lipgloss.Color("#1a1a2e")
}

func StatusBarFg() color.Color {
	return lipgloss.Color("#a0a0b0")
}

func StatusAccent() color.Color {
	mu.RLock()
	defer mu.RUnlock()

	t := current()
	if t == nil {
		return lipgloss.Color("#00ffff")
	}
	return t.BrightCyan
}

// Bootstrap progress colors

func ProgressFill() color.Color {
	mu.RLock()
	defer mu.RUnlock()

	t := current()
	if t == nil {
		return lipgloss.Color("#00cd00")
	}
	return t.Green
}

func ProgressError() color.Color {
	mu.RLock()
	defer mu.RUnlock()

	t := current()
	if t == nil {
		return lipgloss.Color("#cd0000")
	}
	return t.Red
}

// CLI table colors

func CLITableHeader() color.Color {
	return lipgloss.Color("12")
}

func CLITableBorder() color.Color {
	return lipgloss.Color("14")
}

func CLITableKey() color.Color {
	return lipgloss.Color("11")
}

func CLITableDim() color.Color {
	return lipgloss.Color("8")
}

// toRGBA flattens any color.Color into 8-bit RGBA.
func toRGBA(c color.Color) color.RGBA {
	if c == nil {
		return color.RGBA{A: 0xFF}
	}
	r, g, b, _ := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xFF}
}
