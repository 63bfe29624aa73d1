package vt

// Scrollback stores lines that have scrolled off the top of the visible
// screen, oldest first, bounded at a fixed maximum. It is a ring buffer so
// steady-state eviction is O(1); both ends are addressable because the view
// scroll operation parks lines at the front while older history re-enters
// the grid from the back.
type Scrollback struct {
	lines    []Line
	maxLines int
	// head is the index of the oldest line, tail the next insert position.
	head int
	tail int
	full bool
}

// DefaultScrollbackLines bounds history when no explicit limit is given.
const DefaultScrollbackLines = 1000

// NewScrollback creates a scrollback buffer holding at most maxLines lines.
// A non-positive maxLines selects DefaultScrollbackLines.
func NewScrollback(maxLines int) *Scrollback {
	if maxLines <= 0 {
		maxLines = DefaultScrollbackLines
	}
	return &Scrollback{
		lines:    make([]Line, maxLines),
		maxLines: maxLines,
	}
}

// Len returns the number of lines currently held.
func (sb *Scrollback) Len() int {
	if sb.full {
		return sb.maxLines
	}
	if sb.tail >= sb.head {
		return sb.tail - sb.head
	}
	return sb.maxLines - sb.head + sb.tail
}

// MaxLines returns the bound on the number of retained lines.
func (sb *Scrollback) MaxLines() int {
	return sb.maxLines
}

// Line returns the line at index, where 0 is the oldest retained line and
// Len()-1 the newest. Out-of-range indices return nil.
func (sb *Scrollback) Line(index int) Line {
	if index < 0 || index >= sb.Len() {
		return nil
	}
	return sb.lines[(sb.head+index)%sb.maxLines]
}

// PushBack appends a line as the newest entry, evicting the oldest once the
// bound is reached.
func (sb *Scrollback) PushBack(line Line) {
	sb.lines[sb.tail] = line.clone()
	sb.tail = (sb.tail + 1) % sb.maxLines
	if sb.full {
		sb.head = (sb.head + 1) % sb.maxLines
	}
	if sb.tail == sb.head {
		sb.full = true
	}
}

// PopBack removes and returns the newest line, or nil when empty.
func (sb *Scrollback) PopBack() Line {
	if sb.Len() == 0 {
		return nil
	}
	sb.tail = (sb.tail - 1 + sb.maxLines) % sb.maxLines
	line := sb.lines[sb.tail]
	sb.lines[sb.tail] = nil
	sb.full = false
	return line
}

// PushFront inserts a line as the oldest entry. When the buffer is at
// capacity the newest line is dropped to make room.
func (sb *Scrollback) PushFront(line Line) {
	if sb.full {
		sb.tail = (sb.tail - 1 + sb.maxLines) % sb.maxLines
		sb.lines[sb.tail] = nil
		sb.full = false
	}
	sb.head = (sb.head - 1 + sb.maxLines) % sb.maxLines
	sb.lines[sb.head] = line.clone()
	if sb.head == sb.tail {
		sb.full = true
	}
}

// PopFront removes and returns the oldest line, or nil when empty.
func (sb *Scrollback) PopFront() Line {
	if sb.Len() == 0 {
		return nil
	}
	line := sb.lines[sb.head]
	sb.lines[sb.head] = nil
	sb.head = (sb.head + 1) % sb.maxLines
	sb.full = false
	return line
}

// Clear drops every retained line.
func (sb *Scrollback) Clear() {
	sb.head, sb.tail, sb.full = 0, 0, false
	for i := range sb.lines {
		sb.lines[i] = nil
	}
}
