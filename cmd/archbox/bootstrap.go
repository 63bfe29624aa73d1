package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"golang.org/x/term"

	"github.com/archdroid/archbox/internal/bootstrap"
	"github.com/archdroid/archbox/internal/theme"
)

const progressBarWidth = 40

// cliListener prints bootstrap lifecycle events to the terminal and
// resolves done when the run finishes either way.
type cliListener struct {
	interactive bool
	sawProgress bool
	done        chan error
}

func (l *cliListener) BootstrapStarted(message string) {
	l.finishProgressLine()
	phase := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.StatusAccent()).
		Render("==>")
	fmt.Printf("%s %s\n", phase, message)
}

func (l *cliListener) ProgressUpdated(current, total int64) {
	if !l.interactive {
		return
	}
	l.sawProgress = true
	if total > 0 {
		fmt.Printf("\r%s %s / %s", renderBar(current, total), humanBytes(current), humanBytes(total))
		return
	}
	// Total unknown during extraction; show the running byte count.
	fmt.Printf("\r%s processed", humanBytes(current))
}

func (l *cliListener) BootstrapComplete() {
	l.finishProgressLine()
	done := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ProgressFill()).
		Render("Bootstrap complete.")
	fmt.Println(done)
	l.done <- nil
}

func (l *cliListener) BootstrapFailed(reason string) {
	l.finishProgressLine()
	failed := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ProgressError()).
		Render(reason)
	fmt.Fprintln(os.Stderr, failed)
	l.done <- errors.New(reason)
}

// finishProgressLine terminates an in-place progress line before regular
// output resumes.
func (l *cliListener) finishProgressLine() {
	if l.interactive && l.sawProgress {
		fmt.Println()
		l.sawProgress = false
	}
}

func renderBar(current, total int64) string {
	filled := int(current * progressBarWidth / total)
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	return lipgloss.NewStyle().Foreground(theme.ProgressFill()).Render(bar)
}

func runBootstrap(urlOverride string, reset bool) error {
	applyDebugMode()

	cfg := loadConfig()
	theme.Initialize(cfg.Terminal.Theme)

	manager := newManager(cfg, urlOverride)

	if reset {
		if err := manager.Reset(); err != nil {
			return fmt.Errorf("reset installation: %w", err)
		}
		fmt.Println("Removed existing installation.")
	} else if manager.Installed() {
		fmt.Println("Already installed. Use --reset to reinstall.")
		return nil
	}

	listener := &cliListener{
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
		done:        make(chan error, 1),
	}
	manager.SetListener(listener)

	if err := manager.Start(context.Background()); err != nil {
		return fmt.Errorf("start bootstrap: %w", err)
	}

	// Ctrl+C cancels and removes partial state; the worker exits without
	// a completion event, so unblock via Cancel and report it here.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	for {
		select {
		case err := <-listener.done:
			if err != nil {
				return fmt.Errorf("bootstrap failed: %w", err)
			}
			fmt.Printf("Rootfs installed at %s\n", manager.RootfsDir())
			return nil
		case <-sig:
			listener.finishProgressLine()
			fmt.Println("Canceling...")
			manager.Cancel()
			waitNotRunning(manager)
			fmt.Println("Bootstrap canceled, partial state removed.")
			return nil
		}
	}
}

func waitNotRunning(m *bootstrap.Manager) {
	for m.Running() {
		time.Sleep(10 * time.Millisecond)
	}
}
