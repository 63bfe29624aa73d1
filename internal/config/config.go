// Package config loads and persists the archbox configuration file, a
// small TOML document at the XDG config path.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// Config is the user-editable configuration.
type Config struct {
	Terminal  Terminal  `toml:"terminal"`
	Bootstrap Bootstrap `toml:"bootstrap"`
}

// Terminal configures the emulator and the attached shell.
type Terminal struct {
	// Shell overrides the command attached to the terminal. Empty means
	// the installed launch script when present, otherwise $SHELL.
	Shell string `toml:"shell"`
	// Theme is a bubbletint theme ID; empty or unknown falls back to the
	// built-in palette.
	Theme string `toml:"theme"`
	// ScrollbackLines bounds the history kept per session.
	ScrollbackLines int `toml:"scrollback_lines"`
}

// Bootstrap configures the rootfs installation.
type Bootstrap struct {
	// DownloadURL overrides the rootfs artifact location.
	DownloadURL string `toml:"download_url"`
	// BaseDir overrides where the installation lives. Empty means the
	// XDG data directory.
	BaseDir string `toml:"base_dir"`
	// MinFreeMB is the free-space floor checked before installing.
	MinFreeMB int64 `toml:"min_free_mb"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Terminal: Terminal{
			Theme:           "dracula",
			ScrollbackLines: 1000,
		},
		Bootstrap: Bootstrap{
			MinFreeMB: 4096,
		},
	}
}

// Path returns the config file location, creating parent directories as
// needed.
func Path() (string, error) {
	return xdg.ConfigFile("archbox/config.toml")
}

// DataDir returns the default installation base directory.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "archbox")
}

// Load reads the config file, creating it with defaults on first run.
// Unknown values fall back to defaults rather than failing; a missing or
// partial file is normal.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if saveErr := Save(cfg); saveErr != nil {
			return cfg, fmt.Errorf("write default config: %w", saveErr)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Unmarshal over the defaults so absent keys keep their values.
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Terminal.ScrollbackLines < 0 {
		cfg.Terminal.ScrollbackLines = 0
	}
	return cfg, nil
}

// Save writes the config file with a usage header.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# archbox configuration\n")
	sb.WriteString("# Location: " + path + "\n\n")

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	sb.Write(data)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ResolveShell picks the command to attach: the configured shell, then
// the environment's, then a plain sh.
func (c *Config) ResolveShell() string {
	if c.Terminal.Shell != "" {
		return c.Terminal.Shell
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}

// ResolveBaseDir picks the installation base directory.
func (c *Config) ResolveBaseDir() string {
	if c.Bootstrap.BaseDir != "" {
		return c.Bootstrap.BaseDir
	}
	return DataDir()
}
