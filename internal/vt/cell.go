// Package vt implements a small terminal emulator: a styled cell grid with
// bounded scrollback, driven by an ANSI escape-sequence interpreter.
// It understands the xterm-256color subset emitted by common shells
// (cursor movement, erasure, SGR attributes, 256-color indexing) and
// deliberately nothing more.
package vt

import "image/color"

// Cell is a single screen position: one character plus the rendition it was
// written with. Cells are plain values with no identity beyond their grid
// position; copying one is cheap.
type Cell struct {
	Rune      rune
	Fg        color.RGBA
	Bg        color.RGBA
	Bold      bool
	Underline bool
	Reverse   bool
	Italic    bool
}

// Line is an index-addressable run of cells. Lines grow on demand when a
// cell beyond the current length is written; the owning screen enforces
// width, a line itself has no maximum.
type Line []Cell

// CellAt returns the cell at index. Reads never extend the line; positions
// past the end report the given blank cell.
func (l Line) CellAt(index int, blank Cell) Cell {
	if index >= 0 && index < len(l) {
		return l[index]
	}
	return blank
}

// set stores a cell at index, padding with blank cells up to and including
// index if the line is shorter.
func (l *Line) set(index int, c, blank Cell) {
	l.extend(index, blank)
	(*l)[index] = c
}

// extend pads the line with blank cells so that index is addressable.
func (l *Line) extend(index int, blank Cell) {
	for len(*l) <= index {
		*l = append(*l, blank)
	}
}

// clone returns an independent copy of the line.
func (l Line) clone() Line {
	if l == nil {
		return nil
	}
	out := make(Line, len(l))
	copy(out, l)
	return out
}

// blankLine returns a line of n blank cells.
func blankLine(n int, blank Cell) Line {
	l := make(Line, n)
	for i := range l {
		l[i] = blank
	}
	return l
}
