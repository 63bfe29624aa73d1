package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/archdroid/archbox/internal/theme"
	"github.com/archdroid/archbox/internal/vt"
)

// render composes the full frame: the terminal area with any scrollback
// pulled into view, then the status bar.
func (m *Model) render() string {
	term := m.session.Terminal()
	width, height := term.Size()
	sbLen := term.ScrollbackLen()

	offset := m.scrollOffset
	if offset > sbLen {
		offset = sbLen
	}

	curRow, curCol := term.CursorPos()
	blank := term.BlankCell()

	var sb strings.Builder
	for y := 0; y < height; y++ {
		var line vt.Line
		if y < offset {
			// History fills the top of the view; the newest pulled-in
			// line sits directly above the first live row.
			line = term.ScrollbackLine(sbLen - offset + y)
		} else {
			line = term.Row(y - offset)
		}
		cursorCol := -1
		if offset == 0 && y == curRow {
			cursorCol = curCol
		}
		m.renderLine(&sb, line, width, blank, cursorCol)
		sb.WriteByte('\n')
	}
	sb.WriteString(m.statusBar(offset, sbLen))
	return sb.String()
}

// renderLine paints one row, batching runs of identically styled cells so
// each style change emits a single escape run.
func (m *Model) renderLine(sb *strings.Builder, line vt.Line, width int, blank vt.Cell, cursorCol int) {
	var batch strings.Builder
	var batchCell vt.Cell
	haveBatch := false

	flush := func() {
		if haveBatch {
			sb.WriteString(m.cellStyle(batchCell).Render(batch.String()))
			batch.Reset()
			haveBatch = false
		}
	}

	for x := 0; x < width; x++ {
		cell := line.CellAt(x, blank)
		if cell.Rune == 0 {
			cell.Rune = ' '
		}

		if x == cursorCol {
			flush()
			sb.WriteString(cursorStyle().Render(string(cell.Rune)))
			continue
		}

		if haveBatch && !sameStyle(cell, batchCell) {
			flush()
		}
		if !haveBatch {
			batchCell = cell
			haveBatch = true
		}
		batch.WriteRune(cell.Rune)
	}
	flush()
}

// sameStyle reports whether two cells can share one styled run.
func sameStyle(a, b vt.Cell) bool {
	return a.Fg == b.Fg && a.Bg == b.Bg &&
		a.Bold == b.Bold && a.Underline == b.Underline &&
		a.Reverse == b.Reverse && a.Italic == b.Italic
}

func (m *Model) cellStyle(c vt.Cell) lipgloss.Style {
	fg, bg := c.Fg, c.Bg
	if c.Reverse {
		fg, bg = bg, fg
	}
	style := lipgloss.NewStyle().
		Foreground(m.profile.Convert(fg)).
		Background(m.profile.Convert(bg))
	if c.Bold {
		style = style.Bold(true)
	}
	if c.Underline {
		style = style.Underline(true)
	}
	if c.Italic {
		style = style.Italic(true)
	}
	return style
}

func cursorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(theme.TerminalCursor()).
		Foreground(lipgloss.Color("#000000")).
		Bold(true)
}

func (m *Model) statusBar(offset, sbLen int) string {
	base := lipgloss.NewStyle().
		Background(theme.StatusBarBg()).
		Foreground(theme.StatusBarFg())

	left := " archbox "
	right := " alt+pgup/pgdn history "
	if offset > 0 {
		right = fmt.Sprintf(" HISTORY %d/%d ", offset, sbLen)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	bar := left + strings.Repeat(" ", gap) + right
	if offset > 0 {
		return base.Render(left+strings.Repeat(" ", gap)) +
			base.Foreground(theme.StatusAccent()).Bold(true).Render(right)
	}
	return base.Render(bar)
}
