// Package server exposes a running shell over SSH. Each connection gets
// its own guest session rendered through the same terminal UI the local
// client uses.
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish/v2"
	"github.com/charmbracelet/wish/v2/bubbletea"
	"github.com/charmbracelet/wish/v2/logging"

	"github.com/archdroid/archbox/internal/session"
	"github.com/archdroid/archbox/internal/tui"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "server",
})

// SetLogLevel adjusts the package log level.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// Config holds the SSH listener settings.
type Config struct {
	Host    string
	Port    string
	KeyPath string // host key; generated at a default path when empty

	// Command and Args are the guest program started for each connection.
	Command string
	Args    []string
	Env     []string

	ScrollbackLines int
}

// Serve listens for SSH connections until ctx is canceled, then shuts the
// listener down gracefully.
func Serve(ctx context.Context, cfg Config) error {
	hostKeyPath := cfg.KeyPath
	if hostKeyPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		hostKeyPath = filepath.Join(homeDir, ".ssh", "archbox_host_key")
	}

	srv, err := wish.NewServer(
		wish.WithAddress(net.JoinHostPort(cfg.Host, cfg.Port)),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(teaHandler(cfg)),
			logging.Middleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("create ssh server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

// teaHandler starts a guest session per connection and hands the UI model
// to the bubbletea middleware.
func teaHandler(cfg Config) bubbletea.Handler {
	return func(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
		pty, _, active := sshSession.Pty()
		if !active {
			wish.Fatalln(sshSession, "a PTY is required")
			return nil, nil
		}

		width, height := pty.Window.Width, pty.Window.Height
		guest, err := session.Start(session.Options{
			Command:         cfg.Command,
			Args:            cfg.Args,
			Env:             append(sshSession.Environ(), cfg.Env...),
			Width:           width,
			Height:          height - 1, // status bar
			ScrollbackLines: cfg.ScrollbackLines,
		})
		if err != nil {
			logger.Error("start guest session", "user", sshSession.User(), "err", err)
			wish.Fatalln(sshSession, "failed to start session:", err)
			return nil, nil
		}
		logger.Info("session started", "user", sshSession.User(), "id", guest.ID)

		// The guest must not outlive the connection.
		go func() {
			<-sshSession.Context().Done()
			guest.Close()
		}()

		profile := colorprofile.Detect(sshSession, sshSession.Environ())
		return tui.New(guest, profile), nil
	}
}
