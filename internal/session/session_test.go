package session_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/archdroid/archbox/internal/session"
	"github.com/archdroid/archbox/internal/vt"
)

// screenContains scans the visible grid for a substring.
func screenContains(term *vt.Emulator, want string) bool {
	_, height := term.Size()
	for row := 0; row < height; row++ {
		var sb strings.Builder
		for _, cell := range term.Row(row) {
			sb.WriteRune(cell.Rune)
		}
		if strings.Contains(sb.String(), want) {
			return true
		}
	}
	return false
}

// waitForOutput polls the emulator until the substring shows up.
func waitForOutput(t *testing.T, term *vt.Emulator, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if screenContains(term, want) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("output %q never appeared on screen", want)
}

func TestSessionCapturesOutput(t *testing.T) {
	s, err := session.Start(session.Options{
		Command: "sh",
		Args:    []string{"-c", "printf 'hello from guest'"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	waitForOutput(t, s.Terminal(), "hello from guest")
}

func TestSessionDoneSignalsExit(t *testing.T) {
	s, err := session.Start(session.Options{
		Command: "sh",
		Args:    []string{"-c", "exit 0"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done() not closed after process exit")
	}
	if s.Running() {
		t.Error("Running() = true after exit")
	}
}

func TestSessionWriteReachesShell(t *testing.T) {
	s, err := session.Start(session.Options{Command: "cat"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	if _, err := s.Write([]byte("roundtrip\r")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// The PTY echoes input, so it lands on the emulator's screen.
	waitForOutput(t, s.Terminal(), "roundtrip")
}

func TestSessionResizePropagates(t *testing.T) {
	s, err := session.Start(session.Options{Command: "cat", Width: 80, Height: 24})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	s.Resize(100, 30)
	w, h := s.Terminal().Size()
	if w != 100 || h != 30 {
		t.Errorf("emulator size = %dx%d, want 100x30", w, h)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s, err := session.Start(session.Options{Command: "cat"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Close()
	s.Close()

	if _, err := s.Write([]byte("x")); !errors.Is(err, session.ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
}

func TestSessionScrollbackOption(t *testing.T) {
	s, err := session.Start(session.Options{
		Command:         "sh",
		Args:            []string{"-c", "seq 1 50"},
		Width:           20,
		Height:          5,
		ScrollbackLines: 10,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	<-s.Done()
	deadline := time.Now().Add(5 * time.Second)
	for s.Terminal().ScrollbackLen() < 10 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := s.Terminal().ScrollbackLen(); got != 10 {
		t.Errorf("ScrollbackLen() = %d, want the configured bound 10", got)
	}
}

func TestSendKeyUnknownNameIsNoOp(t *testing.T) {
	s, err := session.Start(session.Options{Command: "cat"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	if err := s.SendKey("no-such-key"); err != nil {
		t.Errorf("SendKey(unknown) = %v, want nil", err)
	}
}
