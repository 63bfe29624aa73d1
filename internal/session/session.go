// Package session runs a shell behind a pseudo-terminal and feeds its
// output into a terminal emulator. One session owns one process, one PTY,
// and one emulator; the renderer reads emulator snapshots while the PTY
// pump writes, relying on the emulator's own locking.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	xpty "github.com/charmbracelet/x/xpty"
	"github.com/google/uuid"

	"github.com/archdroid/archbox/internal/vt"
)

// Package-level logger
var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "session",
	})
}

// SetLogLevel sets the logging level for the session package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("session closed")

// Options configures a new session.
type Options struct {
	// Command is the program to attach; Args its arguments.
	Command string
	Args    []string
	// Env entries are appended to the inherited environment.
	Env []string
	// Width and Height size the PTY and the emulator. Zero means 80x24.
	Width  int
	Height int
	// ScrollbackLines bounds the emulator history; zero means the
	// emulator default.
	ScrollbackLines int
}

// Session is a live shell attached to an emulator.
type Session struct {
	ID string

	term *vt.Emulator

	mu     sync.Mutex
	pty    xpty.Pty
	cmd    *exec.Cmd
	cancel context.CancelFunc
	closed bool

	done chan struct{}
}

// Start launches the command behind a new PTY and begins pumping its
// output into the emulator.
func Start(opts Options) (*Session, error) {
	if opts.Command == "" {
		return nil, errors.New("session: no command")
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	var term *vt.Emulator
	if opts.ScrollbackLines > 0 {
		term = vt.NewEmulatorWithScrollback(width, height, opts.ScrollbackLines)
	} else {
		term = vt.NewEmulator(width, height)
	}

	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	cmd.Env = append(cmd.Env, opts.Env...)
	setControllingTerminal(cmd)

	pty, err := xpty.NewPty(width, height)
	if err != nil {
		return nil, fmt.Errorf("create pty: %w", err)
	}
	if err := pty.Start(cmd); err != nil {
		_ = pty.Close()
		return nil, fmt.Errorf("start %s: %w", opts.Command, err)
	}
	// Some PTY implementations only accept a size once the child runs.
	_ = pty.Resize(width, height)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:     uuid.NewString(),
		term:   term,
		pty:    pty,
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.pump(ctx)
	go func() {
		_ = xpty.WaitProcess(ctx, cmd)
		close(s.done)
	}()

	logger.Info("session started", "id", s.ID, "command", opts.Command)
	return s, nil
}

// pump copies PTY output into the emulator until the PTY closes.
func (s *Session) pump(ctx context.Context) {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := s.pty.Read(buf)
		if n > 0 {
			_, _ = s.term.Write(buf[:n])
		}
		if err != nil {
			if err != io.EOF && !strings.Contains(err.Error(), "file already closed") {
				logger.Debug("pty read ended", "id", s.ID, "err", err)
			}
			return
		}
	}
}

// Terminal exposes the emulator for rendering and queries.
func (s *Session) Terminal() *vt.Emulator {
	return s.term
}

// Write sends bytes to the shell's input.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.pty.Write(p)
}

// SendKey sends the escape sequence for a symbolic key name ("up",
// "pgdown", "f5", ...). Unknown names are ignored.
func (s *Session) SendKey(name string) error {
	seq, ok := vt.KeyBytes(name)
	if !ok {
		return nil
	}
	_, err := s.Write(seq)
	return err
}

// Resize adjusts both the PTY and the emulator.
func (s *Session) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.term.Resize(width, height)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.pty.Resize(width, height); err != nil {
		logger.Debug("pty resize failed", "id", s.ID, "err", err)
	}
}

// Done is closed when the attached process exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Running reports whether the attached process is still alive.
func (s *Session) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Close tears the session down: stops the pump, closes the PTY, and
// kills the process group. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	_ = s.pty.Close()
	terminateProcess(s.cmd)
	logger.Info("session closed", "id", s.ID)
}
