package vt

import "image/color"

const tabWidth = 8

// pen is the rendition applied to newly written cells.
type pen struct {
	fg        color.RGBA
	bg        color.RGBA
	bold      bool
	underline bool
	reverse   bool
	italic    bool
}

// defaultPalette is the 16-color palette used until a theme overrides it.
// The values follow the Dracula scheme the app has always shipped with.
var defaultPalette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xFF}, // black
	{0xFF, 0x55, 0x55, 0xFF}, // red
	{0x50, 0xFA, 0x7B, 0xFF}, // green
	{0xF1, 0xFA, 0x8C, 0xFF}, // yellow
	{0xBD, 0x93, 0xF9, 0xFF}, // blue
	{0xFF, 0x79, 0xC6, 0xFF}, // magenta
	{0x8B, 0xE9, 0xFD, 0xFF}, // cyan
	{0xF8, 0xF8, 0xF2, 0xFF}, // white
	{0x62, 0x72, 0xA4, 0xFF}, // bright black
	{0xFF, 0x6E, 0x6E, 0xFF}, // bright red
	{0x69, 0xFF, 0x94, 0xFF}, // bright green
	{0xFF, 0xFF, 0xA5, 0xFF}, // bright yellow
	{0xD6, 0xAC, 0xFF, 0xFF}, // bright blue
	{0xFF, 0x92, 0xDF, 0xFF}, // bright magenta
	{0xA4, 0xFF, 0xFF, 0xFF}, // bright cyan
	{0xFF, 0xFF, 0xFF, 0xFF}, // bright white
}

var (
	defaultFg = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	defaultBg = color.RGBA{0x00, 0x00, 0x00, 0xFF}
)

// screen is the visible grid plus cursor and rendition state. Lines evicted
// off the top are pushed into history. All methods assume the owning
// emulator holds its write lock; nothing here locks.
type screen struct {
	width  int
	height int
	lines  []Line

	curRow int
	curCol int

	savedRow int
	savedCol int

	pen       pen
	palette   [16]color.RGBA
	fgDefault color.RGBA
	bgDefault color.RGBA

	history *Scrollback

	// Lines pushed off the bottom while the view is scrolled into history.
	// Non-empty exactly when the viewport is not at the live position.
	below []Line
}

func newScreen(width, height int, history *Scrollback) *screen {
	s := &screen{
		palette:   defaultPalette,
		fgDefault: defaultFg,
		bgDefault: defaultBg,
		history:   history,
	}
	s.pen = s.defaultPen()
	s.resize(width, height)
	return s
}

// blank is the cell value written by erasure and line padding.
func (s *screen) blank() Cell {
	return Cell{Rune: ' ', Fg: s.fgDefault, Bg: s.bgDefault}
}

func (s *screen) defaultPen() pen {
	return pen{fg: s.fgDefault, bg: s.bgDefault}
}

// resize changes the viewport dimensions. Cells inside the new bounds are
// preserved; extra rows are truncated from the bottom without entering
// history (a resize is a viewport change, not a scroll). The cursor is
// re-clamped afterwards. A view scrolled into history snaps back to the
// live position first, otherwise truncation would eat displaced live rows.
func (s *screen) resize(width, height int) {
	s.snapToLive()
	s.width = max(1, width)
	s.height = max(1, height)

	for len(s.lines) < s.height {
		s.lines = append(s.lines, blankLine(s.width, s.blank()))
	}
	if len(s.lines) > s.height {
		s.lines = s.lines[:s.height]
	}

	s.curRow = min(s.curRow, s.height-1)
	s.curCol = min(s.curCol, s.width-1)
}

// writeRune processes one literal character at the cursor.
func (s *screen) writeRune(r rune) {
	switch r {
	case '\n':
		s.curRow++
		s.curCol = 0
		if s.curRow >= s.height {
			s.scrollUp()
			s.curRow = s.height - 1
		}
	case '\r':
		s.curCol = 0
	case '\t':
		s.curCol = (s.curCol/tabWidth + 1) * tabWidth
		if s.curCol >= s.width {
			s.curCol = s.width - 1
		}
	case '\b':
		if s.curCol > 0 {
			s.curCol--
		}
	default:
		s.put(r)
		s.curCol++
		if s.curCol >= s.width {
			s.curCol = 0
			s.curRow++
			if s.curRow >= s.height {
				s.scrollUp()
				s.curRow = s.height - 1
			}
		}
	}
}

// put stores r at the cursor with the current rendition.
func (s *screen) put(r rune) {
	c := Cell{
		Rune:      r,
		Fg:        s.pen.fg,
		Bg:        s.pen.bg,
		Bold:      s.pen.bold,
		Underline: s.pen.underline,
		Reverse:   s.pen.reverse,
		Italic:    s.pen.italic,
	}
	s.lines[s.curRow].set(s.curCol, c, s.blank())
}

// scrollUp evicts the top line into history and appends a fresh blank line.
func (s *screen) scrollUp() {
	if len(s.lines) == 0 {
		return
	}
	s.history.PushBack(s.lines[0])
	copy(s.lines, s.lines[1:])
	s.lines[len(s.lines)-1] = blankLine(s.width, s.blank())
}

// scrollView moves whole lines between the grid and history: negative n
// brings history back into view (newest history line enters at the top,
// the line leaving the bottom parks on the below stack), positive n
// reverses the motion. Round trips are lossless; scrolling stops at the
// oldest retained line and at the live position.
func (s *screen) scrollView(n int) {
	for ; n < 0; n++ {
		line := s.history.PopBack()
		if line == nil {
			return
		}
		s.below = append(s.below, s.lines[len(s.lines)-1])
		for i := len(s.lines) - 1; i > 0; i-- {
			s.lines[i] = s.lines[i-1]
		}
		s.lines[0] = line
	}
	for ; n > 0 && len(s.below) > 0; n-- {
		line := s.below[len(s.below)-1]
		s.below = s.below[:len(s.below)-1]
		s.history.PushBack(s.lines[0])
		copy(s.lines, s.lines[1:])
		s.lines[len(s.lines)-1] = line
	}
}

// snapToLive returns the viewport to the live position before new output
// lands, the way terminals jump to the bottom when the shell prints.
func (s *screen) snapToLive() {
	if len(s.below) > 0 {
		s.scrollView(len(s.below))
	}
}

// eraseDisplay clears part of the screen: 0 from the cursor to the end,
// 1 from the start to the cursor, 2 the whole screen (homing the cursor).
func (s *screen) eraseDisplay(mode int) {
	switch mode {
	case 0:
		s.eraseLine(0)
		for i := s.curRow + 1; i < s.height; i++ {
			s.lines[i] = blankLine(s.width, s.blank())
		}
	case 1:
		s.eraseLine(1)
		for i := 0; i < s.curRow; i++ {
			s.lines[i] = blankLine(s.width, s.blank())
		}
	case 2:
		for i := range s.lines {
			s.lines[i] = blankLine(s.width, s.blank())
		}
		s.curRow, s.curCol = 0, 0
	}
}

// eraseLine clears part of the cursor line: 0 from the cursor to the end,
// 1 from the start through the cursor, 2 the entire line.
func (s *screen) eraseLine(mode int) {
	line := &s.lines[s.curRow]
	switch mode {
	case 0:
		line.extend(s.width-1, s.blank())
		for i := s.curCol; i < s.width; i++ {
			(*line)[i] = s.blank()
		}
	case 1:
		line.extend(min(s.curCol, s.width-1), s.blank())
		for i := 0; i <= s.curCol && i < len(*line); i++ {
			(*line)[i] = s.blank()
		}
	case 2:
		s.lines[s.curRow] = blankLine(s.width, s.blank())
	}
}

// setPalette replaces the 16-entry indexed palette.
func (s *screen) setPalette(p [16]color.RGBA) {
	s.palette = p
}

// setDefaultColors replaces the default foreground/background and resets
// the current rendition to them.
func (s *screen) setDefaultColors(fg, bg color.RGBA) {
	s.fgDefault = fg
	s.bgDefault = bg
	s.pen = s.defaultPen()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
