// Package tui renders a running session in the local terminal. The model
// is a thin collaborator around the emulator: it forwards key presses to
// the guest PTY, mirrors resizes, and repaints emulator snapshots on a
// fixed tick. Scrollback paging is view-side only and never disturbs the
// emulator's own state.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/archdroid/archbox/internal/session"
)

const redrawInterval = time.Second / 30

type tickMsg time.Time

type sessionExitedMsg struct{}

// Model drives one attached session.
type Model struct {
	session *session.Session
	profile colorprofile.Profile

	width  int
	height int

	// scrollOffset is how many history lines are pulled into view at the
	// top of the terminal area. Zero means live.
	scrollOffset int
}

// New builds a model attached to the given session. The profile controls
// color degradation for the host terminal.
func New(s *session.Session, profile colorprofile.Profile) *Model {
	return &Model{session: s, profile: profile}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForExit(m.session))
}

func tick() tea.Cmd {
	return tea.Tick(redrawInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForExit(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Done()
		return sessionExitedMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()

	case sessionExitedMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if h := m.terminalHeight(); m.width > 0 && h > 0 {
			m.session.Resize(m.width, h)
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.Key()

	// Alt+PgUp/PgDn page through history; everything else belongs to
	// the guest.
	if key.Mod&tea.ModAlt != 0 {
		switch key.Code {
		case tea.KeyPgUp:
			m.scrollBy(m.pageSize())
			return m, nil
		case tea.KeyPgDown:
			m.scrollBy(-m.pageSize())
			return m, nil
		}
	}

	// Any forwarded key snaps the view back to the live screen.
	m.scrollOffset = 0
	if seq := rawKeyBytes(msg); len(seq) > 0 {
		if _, err := m.session.Write(seq); err != nil {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) pageSize() int {
	if h := m.terminalHeight(); h > 1 {
		return h / 2
	}
	return 1
}

func (m *Model) scrollBy(n int) {
	m.scrollOffset += n
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
	if limit := m.session.Terminal().ScrollbackLen(); m.scrollOffset > limit {
		m.scrollOffset = limit
	}
}

// terminalHeight is the window height minus the status bar.
func (m *Model) terminalHeight() int {
	return m.height - 1
}

func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.SetContent(lipgloss.Sprint(m.render()))
	return view
}
