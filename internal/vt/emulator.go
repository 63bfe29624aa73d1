package vt

import (
	"image/color"
	"sync"
	"unicode/utf8"
)

// parseState tracks where the interpreter is within the escape protocol.
type parseState int

const (
	stateGround   parseState = iota
	stateEscape              // got ESC, deciding whether "[" follows
	stateSequence            // inside ESC [ ... accumulating parameters
)

// maxParams caps the accumulated parameter list; anything beyond it is
// dropped rather than grown without bound.
const maxParams = 32

// Emulator interprets a byte stream of shell output and maintains the
// resulting screen state. It is an io.Writer on the mutation side and a
// snapshot API on the read side; writes take an exclusive lock for the
// whole call, reads share a lock, so a renderer may read concurrently
// with other readers but never observes a half-applied write.
type Emulator struct {
	mu      sync.RWMutex
	scr     *screen
	history *Scrollback

	state     parseState
	params    []int
	acc       int
	hasDigits bool

	// Partial UTF-8 sequence carried across Write boundaries.
	utf8Buf  [utf8.UTFMax]byte
	utf8Len  int
	utf8Need int
}

// NewEmulator creates an emulator with the given viewport size and the
// default scrollback bound.
func NewEmulator(width, height int) *Emulator {
	history := NewScrollback(0)
	return &Emulator{
		scr:     newScreen(width, height, history),
		history: history,
		params:  make([]int, 0, maxParams),
	}
}

// NewEmulatorWithScrollback creates an emulator retaining at most
// scrollbackLines lines of history.
func NewEmulatorWithScrollback(width, height, scrollbackLines int) *Emulator {
	history := NewScrollback(scrollbackLines)
	return &Emulator{
		scr:     newScreen(width, height, history),
		history: history,
		params:  make([]int, 0, maxParams),
	}
}

// Write feeds shell output into the interpreter. It never fails; malformed
// or unknown sequences are consumed silently so that hostile or garbled
// input cannot wedge the terminal.
func (e *Emulator) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(p) > 0 {
		e.scr.snapToLive()
	}
	for _, b := range p {
		e.advance(b)
	}
	return len(p), nil
}

// WriteString is Write for strings.
func (e *Emulator) WriteString(s string) (int, error) {
	return e.Write([]byte(s))
}

// advance is the transition function: one input byte against the current
// parse state. Caller holds the write lock.
func (e *Emulator) advance(b byte) {
	if e.utf8Need > 0 {
		if b&0xC0 == 0x80 {
			e.utf8Buf[e.utf8Len] = b
			e.utf8Len++
			e.utf8Need--
			if e.utf8Need == 0 {
				if r, _ := utf8.DecodeRune(e.utf8Buf[:e.utf8Len]); r != utf8.RuneError {
					e.scr.writeRune(r)
				}
				e.utf8Len = 0
			}
			return
		}
		// Truncated sequence: drop it, reprocess this byte below.
		e.utf8Need, e.utf8Len = 0, 0
	}

	switch e.state {
	case stateEscape:
		if b == '[' {
			e.state = stateSequence
			e.params = e.params[:0]
			e.acc, e.hasDigits = 0, false
		} else {
			// Not a CSI introducer. Unknown escapes never raise an
			// error; consume and carry on.
			e.state = stateGround
		}

	case stateSequence:
		switch {
		case b >= '0' && b <= '9':
			e.acc = e.acc*10 + int(b-'0')
			e.hasDigits = true
		case b == ';':
			e.pushParam()
		default:
			// First non-digit, non-delimiter byte is the command.
			e.pushParam()
			dispatchCSI(e.scr, b, e.params)
			e.state = stateGround
		}

	default: // ground
		switch {
		case b == 0x1B:
			e.state = stateEscape
		case b < 0x80:
			e.scr.writeRune(rune(b))
		case b&0xE0 == 0xC0:
			e.startUTF8(b, 1)
		case b&0xF0 == 0xE0:
			e.startUTF8(b, 2)
		case b&0xF8 == 0xF0:
			e.startUTF8(b, 3)
		default:
			// Stray continuation byte; ignore.
		}
	}
}

// pushParam finishes the parameter being accumulated. An empty field
// between delimiters is dropped, not recorded as zero.
func (e *Emulator) pushParam() {
	if e.hasDigits && len(e.params) < maxParams {
		e.params = append(e.params, e.acc)
	}
	e.acc, e.hasDigits = 0, false
}

func (e *Emulator) startUTF8(b byte, continuations int) {
	e.utf8Buf[0] = b
	e.utf8Len = 1
	e.utf8Need = continuations
}

// Resize changes the viewport dimensions, preserving cells that remain in
// bounds and re-clamping the cursor.
func (e *Emulator) Resize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scr.resize(width, height)
}

// Scroll moves lines between the grid and scrollback: negative n scrolls
// the view toward history, positive n back toward the live screen.
func (e *Emulator) Scroll(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scr.scrollView(n)
}

// SetPalette replaces the 16-entry indexed color palette.
func (e *Emulator) SetPalette(p [16]color.RGBA) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scr.setPalette(p)
}

// SetDefaultColors replaces the default foreground and background used for
// blank cells and attribute resets.
func (e *Emulator) SetDefaultColors(fg, bg color.RGBA) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scr.setDefaultColors(fg, bg)
}

// MoveCursorTo places the cursor at (row, col), clamped to the grid.
func (e *Emulator) MoveCursorTo(row, col int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scr.curRow = clamp(row, 0, e.scr.height-1)
	e.scr.curCol = clamp(col, 0, e.scr.width-1)
}

// Clear erases the whole screen and homes the cursor. Scrollback is kept.
func (e *Emulator) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scr.eraseDisplay(2)
}

// Size returns the viewport dimensions.
func (e *Emulator) Size() (width, height int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scr.width, e.scr.height
}

// CursorPos returns the cursor position, 0-based.
func (e *Emulator) CursorPos() (row, col int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scr.curRow, e.scr.curCol
}

// BlankCell returns the cell used for erased and never-written positions,
// carrying the current default colors. Renderers pad short rows with it.
func (e *Emulator) BlankCell() Cell {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scr.blank()
}

// CellAt returns the cell at (row, col). Out-of-range positions report a
// blank cell.
func (e *Emulator) CellAt(row, col int) Cell {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if row < 0 || row >= e.scr.height || col < 0 || col >= e.scr.width {
		// Lines keep cells beyond the width after a shrink; those are out
		// of the viewport and must read as blank.
		return e.scr.blank()
	}
	return e.scr.lines[row].CellAt(col, e.scr.blank())
}

// Row returns a copy of the given screen row, or a blank row when out of
// range. The copy is safe to read without further locking.
func (e *Emulator) Row(row int) Line {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if row < 0 || row >= len(e.scr.lines) {
		return blankLine(e.scr.width, e.scr.blank())
	}
	return e.scr.lines[row].clone()
}

// ScrollbackLen returns the number of retained history lines.
func (e *Emulator) ScrollbackLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.Len()
}

// ScrollbackLine returns a copy of the history line at index (0 = oldest),
// or nil when out of range.
func (e *Emulator) ScrollbackLine(index int) Line {
	e.mu.RLock()
	defer e.mu.RUnlock()
	line := e.history.Line(index)
	if line == nil {
		return nil
	}
	return line.clone()
}
