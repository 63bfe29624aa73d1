package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"

	"github.com/archdroid/archbox/internal/config"
)

// useTempHome redirects the XDG directories into a temp dir so tests
// never touch the real config.
func useTempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return home
}

// =============================================================================
// Default Configuration Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Terminal.Theme == "" {
		t.Error("Expected default theme to be set")
	}
	if cfg.Terminal.ScrollbackLines < 100 {
		t.Errorf("Expected scrollback lines >= 100, got %d", cfg.Terminal.ScrollbackLines)
	}
	if cfg.Bootstrap.MinFreeMB <= 0 {
		t.Error("Expected a positive free-space floor")
	}
}

// =============================================================================
// Load / Save Tests
// =============================================================================

func TestLoadCreatesDefaultFile(t *testing.T) {
	useTempHome(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Terminal.Theme != config.DefaultConfig().Terminal.Theme {
		t.Errorf("first Load theme = %q, want default", cfg.Terminal.Theme)
	}

	path, err := config.Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Load did not create the config file: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	useTempHome(t)

	cfg := config.DefaultConfig()
	cfg.Terminal.Theme = "gruvbox"
	cfg.Terminal.ScrollbackLines = 2500
	cfg.Bootstrap.DownloadURL = "http://mirror.example/rootfs.tar.gz"

	if err := config.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Terminal.Theme != "gruvbox" {
		t.Errorf("theme = %q, want gruvbox", got.Terminal.Theme)
	}
	if got.Terminal.ScrollbackLines != 2500 {
		t.Errorf("scrollback = %d, want 2500", got.Terminal.ScrollbackLines)
	}
	if got.Bootstrap.DownloadURL != cfg.Bootstrap.DownloadURL {
		t.Errorf("download url = %q, want %q", got.Bootstrap.DownloadURL, cfg.Bootstrap.DownloadURL)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	useTempHome(t)

	path, err := config.Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if err := os.WriteFile(path, []byte("[terminal]\ntheme = \"nord\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Terminal.Theme != "nord" {
		t.Errorf("theme = %q, want nord", cfg.Terminal.Theme)
	}
	if cfg.Terminal.ScrollbackLines != config.DefaultConfig().Terminal.ScrollbackLines {
		t.Errorf("scrollback = %d, want the default for an absent key", cfg.Terminal.ScrollbackLines)
	}
}

// =============================================================================
// Resolution Tests
// =============================================================================

func TestResolveShell(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.Terminal.Shell = "/opt/fish"
	if got := cfg.ResolveShell(); got != "/opt/fish" {
		t.Errorf("ResolveShell = %q, want the configured shell", got)
	}

	cfg.Terminal.Shell = ""
	t.Setenv("SHELL", "/bin/zsh")
	if got := cfg.ResolveShell(); got != "/bin/zsh" {
		t.Errorf("ResolveShell = %q, want $SHELL", got)
	}

	t.Setenv("SHELL", "")
	if got := cfg.ResolveShell(); got != "/bin/sh" {
		t.Errorf("ResolveShell = %q, want /bin/sh fallback", got)
	}
}

func TestResolveBaseDir(t *testing.T) {
	useTempHome(t)
	cfg := config.DefaultConfig()

	if got := cfg.ResolveBaseDir(); got != config.DataDir() {
		t.Errorf("ResolveBaseDir = %q, want %q", got, config.DataDir())
	}
	cfg.Bootstrap.BaseDir = "/custom/base"
	if got := cfg.ResolveBaseDir(); got != "/custom/base" {
		t.Errorf("ResolveBaseDir = %q, want the configured dir", got)
	}
}

// =============================================================================
// Watch Tests
// =============================================================================

func TestWatchDeliversReload(t *testing.T) {
	useTempHome(t)
	if _, err := config.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *config.Config, 1)
	go func() {
		_ = config.Watch(ctx, func(cfg *config.Config) {
			select {
			case changed <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	cfg := config.DefaultConfig()
	cfg.Terminal.Theme = "solarized"
	if err := config.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	select {
	case got := <-changed:
		if got.Terminal.Theme != "solarized" {
			t.Errorf("reloaded theme = %q, want solarized", got.Terminal.Theme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload event within 5s")
	}
}
