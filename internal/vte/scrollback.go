package vte

import "github.com/scarab-term/scarab/internal/protocol"

// Scrollback is a bounded ring buffer of off-screen rows, capturing lines
// scrolled out of the top of the main screen (spec.md §4.4, §9 non-goal
// list: scrollback is daemon-local and not part of the shared grid).
type Scrollback struct {
	depth int
	lines [][]protocol.Cell
	start int // index of the oldest line within lines
	count int
}

// NewScrollback creates a Scrollback holding at most depth lines.
func NewScrollback(depth int) *Scrollback {
	if depth <= 0 {
		depth = 1
	}
	return &Scrollback{depth: depth, lines: make([][]protocol.Cell, depth)}
}

// Push appends a scrolled-off row, evicting the oldest row once full.
func (s *Scrollback) Push(row []protocol.Cell) {
	idx := (s.start + s.count) % s.depth
	s.lines[idx] = row
	if s.count < s.depth {
		s.count++
	} else {
		s.start = (s.start + 1) % s.depth
	}
}

// Len returns the number of lines currently retained.
func (s *Scrollback) Len() int {
	return s.count
}

// Line returns the line at offset back from the most recent scrolled-off
// line (0 is the most recently pushed line). ok is false if out of range.
func (s *Scrollback) Line(back int) (line []protocol.Cell, ok bool) {
	if back < 0 || back >= s.count {
		return nil, false
	}
	idx := (s.start + s.count - 1 - back) % s.depth
	return s.lines[idx], true
}
