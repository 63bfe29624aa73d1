// Package main implements archbox, a terminal sandbox that bootstraps an
// Arch Linux ARM root filesystem and attaches a terminal-emulating UI to
// a shell running inside it. The same UI can be served over SSH.
package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/archdroid/archbox/internal/bootstrap"
	"github.com/archdroid/archbox/internal/config"
	"github.com/archdroid/archbox/internal/server"
	"github.com/archdroid/archbox/internal/session"
	"github.com/archdroid/archbox/internal/theme"
	"github.com/archdroid/archbox/internal/tui"
	"github.com/archdroid/archbox/internal/untar"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var debugMode bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "archbox",
		Short: "Arch Linux terminal sandbox",
		Long: `archbox - Arch Linux terminal sandbox

Bootstraps an Arch Linux ARM root filesystem into your data directory and
attaches a terminal to a shell running inside it via proot. Before the
rootfs is installed the terminal falls back to your host shell.`,
		Example: `  # Attach a terminal (host shell until bootstrapped)
  archbox

  # Install the Arch rootfs
  archbox bootstrap

  # Extract a tar archive
  archbox extract rootfs.tar.gz /tmp/rootfs

  # Share the terminal over SSH
  archbox serve --port 2222`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	var bootstrapURL string
	var bootstrapReset bool

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Install the Arch Linux rootfs",
		Long: `Download and install the Arch Linux ARM root filesystem

Checks free space, downloads the rootfs tarball, extracts it and writes
the proot launch script. Ctrl+C cancels and removes partial state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(bootstrapURL, bootstrapReset)
		},
	}
	bootstrapCmd.Flags().StringVar(&bootstrapURL, "url", "", "Override the rootfs download URL")
	bootstrapCmd.Flags().BoolVar(&bootstrapReset, "reset", false, "Remove any existing installation first")

	extractCmd := &cobra.Command{
		Use:   "extract <archive> <dest>",
		Short: "Extract a tar archive",
		Long: `Extract a tar archive (optionally gzip-compressed) into a directory

Uses the same streaming extractor the bootstrap runs: malformed numeric
fields degrade to zero, truncated streams extract what they carry, and
entries escaping the destination are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(args[0], args[1])
		},
	}

	var serveHost, servePort, serveKeyPath string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Share the terminal over SSH",
		Long: `Run an SSH server exposing the archbox terminal

Each connection gets its own shell session. A host key is generated
automatically when none is specified.`,
		Example: `  # Start on the default port
  archbox serve

  # Custom port and host key
  archbox serve --port 2222 --key-path /path/to/host_key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(serveHost, servePort, serveKeyPath)
		},
	}
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "SSH server host")
	serveCmd.Flags().StringVar(&servePort, "port", "2222", "SSH server port")
	serveCmd.Flags().StringVar(&serveKeyPath, "key-path", "", "Path to SSH host key (auto-generated if not specified)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage archbox configuration",
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return fmt.Errorf("could not determine config path: %w", err)
			}
			fmt.Println(path)
			return nil
		},
	}

	configResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		Long: `Reset the archbox configuration file to default settings

This will overwrite your existing configuration after confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetConfigToDefaults()
		},
	}

	configCmd.AddCommand(configPathCmd, configResetCmd)

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the host environment",
		Long: `Inspect the host and the installation state

Reports host facts, memory and free disk space against the bootstrap
requirement, and whether the rootfs looks complete.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}

	rootCmd.AddCommand(bootstrapCmd, extractCmd, serveCmd, configCmd, doctorCmd)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s\nBuilt: %s", version, commit, date)),
	); err != nil {
		os.Exit(1)
	}
}

// applyDebugMode raises every package logger to debug level.
func applyDebugMode() {
	if !debugMode {
		return
	}
	bootstrap.SetLogLevel(log.DebugLevel)
	untar.SetLogLevel(log.DebugLevel)
	session.SetLogLevel(log.DebugLevel)
	server.SetLogLevel(log.DebugLevel)
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg
}

func newManager(cfg *config.Config, urlOverride string) *bootstrap.Manager {
	url := cfg.Bootstrap.DownloadURL
	if urlOverride != "" {
		url = urlOverride
	}
	return bootstrap.New(bootstrap.Config{
		DownloadURL:  url,
		BaseDir:      cfg.ResolveBaseDir(),
		MinFreeBytes: uint64(cfg.Bootstrap.MinFreeMB) << 20,
	})
}

func runLocal() error {
	applyDebugMode()

	cfg := loadConfig()
	theme.Initialize(cfg.Terminal.Theme)

	manager := newManager(cfg, "")

	// Prefer the installed guest; fall back to the host shell.
	command := cfg.ResolveShell()
	var args []string
	if manager.Installed() {
		command = manager.LaunchScriptPath()
	} else {
		fmt.Fprintln(os.Stderr, "rootfs not installed, attaching host shell (run `archbox bootstrap`)")
	}

	s, err := session.Start(session.Options{
		Command:         command,
		Args:            args,
		ScrollbackLines: cfg.Terminal.ScrollbackLines,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer s.Close()

	applyTheme(s)

	// Live-reload the palette when the config file changes.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go func() {
		_ = config.Watch(watchCtx, func(updated *config.Config) {
			theme.Initialize(updated.Terminal.Theme)
			applyTheme(s)
		})
	}()

	profile := colorprofile.Detect(os.Stdout, os.Environ())
	p := tea.NewProgram(tui.New(s, profile), tea.WithFPS(30))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

// applyTheme pushes the active theme's palette into a session's emulator.
func applyTheme(s *session.Session) {
	if palette, ok := theme.Palette(); ok {
		s.Terminal().SetPalette(palette)
	}
	if fg, bg, ok := theme.Defaults(); ok {
		s.Terminal().SetDefaultColors(fg, bg)
	}
}

func runServe(host, port, keyPath string) error {
	applyDebugMode()

	cfg := loadConfig()
	theme.Initialize(cfg.Terminal.Theme)

	manager := newManager(cfg, "")
	command := cfg.ResolveShell()
	if manager.Installed() {
		command = manager.LaunchScriptPath()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
	}()

	if err := server.Serve(ctx, server.Config{
		Host:            host,
		Port:            port,
		KeyPath:         keyPath,
		Command:         command,
		ScrollbackLines: cfg.Terminal.ScrollbackLines,
	}); err != nil {
		return fmt.Errorf("ssh server error: %w", err)
	}
	return nil
}

func runExtract(archivePath, dest string) error {
	applyDebugMode()

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(archivePath, ".gz") || strings.HasSuffix(archivePath, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	total, err := untar.New(dest).Extract(r, func(current, total int64) bool {
		if interactive {
			fmt.Printf("\rextracted %s", humanBytes(current))
		}
		return true
	})
	if interactive {
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	fmt.Printf("done, %s processed\n", humanBytes(total))
	return nil
}

func resetConfigToDefaults() error {
	path, err := config.Path()
	if err != nil {
		return fmt.Errorf("could not determine config path: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Warning: this will overwrite your existing configuration at:\n")
		fmt.Printf("  %s\n\n", path)
		fmt.Printf("Are you sure you want to reset to defaults? (yes/no): ")

		var response string
		fmt.Scanln(&response)
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "yes" && response != "y" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	var sb strings.Builder
	sb.WriteString("# archbox configuration\n")
	sb.WriteString("# Location: " + path + "\n\n")

	data, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	sb.Write(data)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println("Configuration reset to defaults")
	fmt.Printf("  Location: %s\n", path)
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
