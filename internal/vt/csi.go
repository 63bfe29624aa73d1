package vt

// A csiHandler applies one CSI command to the screen. Handlers receive the
// parameter list exactly as parsed; absent parameters take the defaults
// documented on each handler.
type csiHandler func(s *screen, params []int)

// csiHandlers maps a final command byte to its effect. The table is the
// whole dispatch: a command byte absent from it is a no-op, never an
// error, so unrecognized sequences cannot halt the interpreter.
var csiHandlers = map[byte]csiHandler{
	'A': csiCursorUp,
	'B': csiCursorDown,
	'C': csiCursorForward,
	'D': csiCursorBack,
	'E': csiCursorNextLine,
	'F': csiCursorPrevLine,
	'G': csiCursorColumn,
	'H': csiCursorPosition,
	'f': csiCursorPosition,
	'J': csiEraseDisplay,
	'K': csiEraseLine,
	'm': csiSelectGraphicRendition,
	's': csiSaveCursor,
	'u': csiRestoreCursor,
}

func dispatchCSI(s *screen, cmd byte, params []int) {
	if h, ok := csiHandlers[cmd]; ok {
		h(s, params)
	}
}

// param returns params[i], or def when the parameter is absent.
func param(params []int, i, def int) int {
	if i < len(params) {
		return params[i]
	}
	return def
}

// csiCursorUp moves the cursor up N rows (default 1), clamped to the grid.
func csiCursorUp(s *screen, params []int) {
	s.curRow = max(0, s.curRow-param(params, 0, 1))
}

// csiCursorDown moves the cursor down N rows (default 1), clamped.
func csiCursorDown(s *screen, params []int) {
	s.curRow = min(s.height-1, s.curRow+param(params, 0, 1))
}

// csiCursorForward moves the cursor right N columns (default 1), clamped.
func csiCursorForward(s *screen, params []int) {
	s.curCol = min(s.width-1, s.curCol+param(params, 0, 1))
}

// csiCursorBack moves the cursor left N columns (default 1), clamped.
func csiCursorBack(s *screen, params []int) {
	s.curCol = max(0, s.curCol-param(params, 0, 1))
}

// csiCursorNextLine moves down N rows (default 1) and to column 0.
func csiCursorNextLine(s *screen, params []int) {
	s.curRow = min(s.height-1, s.curRow+param(params, 0, 1))
	s.curCol = 0
}

// csiCursorPrevLine moves up N rows (default 1) and to column 0.
func csiCursorPrevLine(s *screen, params []int) {
	s.curRow = max(0, s.curRow-param(params, 0, 1))
	s.curCol = 0
}

// csiCursorColumn moves to column N-1 (1-based input, default 1), clamped.
func csiCursorColumn(s *screen, params []int) {
	s.curCol = clamp(param(params, 0, 1)-1, 0, s.width-1)
}

// csiCursorPosition moves to row N-1, column M-1 (1-based input, defaults
// 1;1), each independently clamped.
func csiCursorPosition(s *screen, params []int) {
	s.curRow = clamp(param(params, 0, 1)-1, 0, s.height-1)
	s.curCol = clamp(param(params, 1, 1)-1, 0, s.width-1)
}

// csiEraseDisplay erases part of the screen (default mode 0).
func csiEraseDisplay(s *screen, params []int) {
	s.eraseDisplay(param(params, 0, 0))
}

// csiEraseLine erases part of the cursor line (default mode 0).
func csiEraseLine(s *screen, params []int) {
	s.eraseLine(param(params, 0, 0))
}

// csiSaveCursor records the cursor position for a later restore.
func csiSaveCursor(s *screen, _ []int) {
	s.savedRow, s.savedCol = s.curRow, s.curCol
}

// csiRestoreCursor returns to the saved position, clamped in case the
// screen shrank in between.
func csiRestoreCursor(s *screen, _ []int) {
	s.curRow = clamp(s.savedRow, 0, s.height-1)
	s.curCol = clamp(s.savedCol, 0, s.width-1)
}
