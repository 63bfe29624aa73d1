package theme

import (
	"sync"
	"testing"
)

func TestDisabledTheme(t *testing.T) {
	Initialize("")
	if IsEnabled() {
		t.Error("IsEnabled() = true after Initialize(\"\")")
	}
	if _, ok := Palette(); ok {
		t.Error("Palette() ok = true with theming disabled")
	}
	if _, _, ok := Defaults(); ok {
		t.Error("Defaults() ok = true with theming disabled")
	}
	if TerminalCursor() == nil {
		t.Error("TerminalCursor() = nil, want fallback color")
	}
}

func TestUnknownThemeFallsBack(t *testing.T) {
	Initialize("no-such-theme")
	if !IsEnabled() {
		t.Fatal("IsEnabled() = false after Initialize with a name")
	}
	if Current() == nil {
		t.Error("Current() = nil, want the default registry fallback")
	}
	if _, ok := Palette(); !ok {
		t.Error("Palette() ok = false with theming enabled")
	}
}

// Reloads arrive from the config watcher goroutine while the render
// goroutine reads the accessors; run both sides under the race detector.
func TestConcurrentReloadAndRead(t *testing.T) {
	names := []string{"", "dracula", "nord", "no-such-theme"}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			Initialize(names[i%len(names)])
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = IsEnabled()
			_, _ = Palette()
			_, _, _ = Defaults()
			_ = TerminalCursor()
			_ = StatusAccent()
			_ = ProgressFill()
			_ = ProgressError()
			_ = Current()
		}
	}()
	wg.Wait()
}

func TestPaletteIsOpaque(t *testing.T) {
	Initialize("dracula")
	palette, ok := Palette()
	if !ok {
		t.Fatal("Palette() ok = false")
	}
	for i, c := range palette {
		if c.A != 0xFF {
			t.Errorf("palette[%d].A = %#x, want 0xFF", i, c.A)
		}
	}
}
