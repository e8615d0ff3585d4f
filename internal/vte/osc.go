package vte

import (
	"bytes"

	"github.com/scarab-term/scarab/internal/protocol"
)

// oscDispatch parses a completed OSC body (spec.md §4.3: "OSC 0/2 title
// setting is recognized; other OSC sequences are absorbed"). The body has
// the form "<num>;<text>".
func (p *Parser) oscDispatch() {
	body := p.oscBuf
	sep := bytes.IndexByte(body, ';')
	if sep < 0 {
		return
	}
	num := 0
	for _, b := range body[:sep] {
		if b < '0' || b > '9' {
			return
		}
		num = num*10 + int(b-'0')
	}
	switch num {
	case 0, 1, 2:
		if p.onTitle != nil {
			p.onTitle(string(body[sep+1:]))
		}
	}
}

// reflowIfPending consults the region's pending resize request, applied
// once per flush at a point where no cell mutation is in progress
// (spec.md §4.4: "the writer observes pending_cols/pending_rows at its
// next convenient boundary and reflows").
//
// A request is clamped to the region's fixed mmap capacity before it
// ever reaches reflow/WriteCell: the shared-memory region is sized once
// at Create/Open time (region.go), and a client-supplied Resize is
// otherwise unbounded attacker-controlled input (protocol.Resize.Cols/
// Rows is a uint16, so a client can ask for up to 65535x65535). Writing
// past capCols/capRows would index outside the mmap'd byte slice and
// panic inside this goroutine (the PTY reader), which ptyhost.readerLoop
// now recovers from, but clamping here means a too-large request is
// simply truncated to whatever actually fits rather than ever reaching
// that recovery path.
func (p *Parser) reflowIfPending() {
	cols, rows := p.region.PendingResize()
	if cols == 0 || rows == 0 {
		return
	}
	capCols, capRows := p.region.Capacity()
	if int(cols) > capCols {
		cols = uint16(capCols)
	}
	if int(rows) > capRows {
		rows = uint16(capRows)
	}
	if int(cols) == p.cols && int(rows) == p.rows {
		p.region.RequestResize(0, 0)
		return
	}
	p.reflow(int(cols), int(rows))
	p.region.RequestResize(0, 0)
}

// reflow resizes the logical grid in place, preserving as much of the
// existing screen content as fits and re-clamping cursor and scroll
// region to the new bounds. Scrollback lines are left untouched; only the
// on-screen grid is reflowed (spec.md §9 non-goal: reflow does not
// rewrap scrollback history).
func (p *Parser) reflow(newCols, newRows int) {
	oldCols, oldRows := p.cols, p.rows
	old := make([]protocol.Cell, oldCols*oldRows)
	for row := 0; row < oldRows; row++ {
		for col := 0; col < oldCols; col++ {
			old[row*oldCols+col] = p.region.ReadCell(col, row)
		}
	}

	p.cols, p.rows = newCols, newRows

	copyRows := oldRows
	if newRows < copyRows {
		copyRows = newRows
	}
	copyCols := oldCols
	if newCols < copyCols {
		copyCols = newCols
	}
	for row := 0; row < newRows; row++ {
		if row < copyRows {
			for col := 0; col < copyCols; col++ {
				p.region.WriteCell(col, row, old[row*oldCols+col])
			}
			for col := copyCols; col < newCols; col++ {
				p.region.WriteCell(col, row, protocol.Cell{})
			}
		} else {
			p.region.ClearRow(row, newCols)
		}
	}

	if p.cursorCol >= newCols {
		p.cursorCol = newCols - 1
	}
	if p.cursorRow >= newRows {
		p.cursorRow = newRows - 1
	}
	p.scrollTop = 0
	p.scrollBottom = newRows - 1
	p.pendingWrap = false
	p.markAllDirty()
}
