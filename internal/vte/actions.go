package vte

import (
	"github.com/mattn/go-runewidth"

	"github.com/scarab-term/scarab/internal/protocol"
)

// emitPrint implements the print(c) action of spec.md §4.3: write at
// cursor, advance, handling wide glyphs and auto-wrap.
func (p *Parser) emitPrint(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		w = 1 // zero-width combining marks still occupy the cell they combine into; simplified to overwrite, not combine.
	}

	if p.pendingWrap {
		p.pendingWrap = false
		if p.modeFlags&protocol.ModeAutoWrap != 0 {
			p.cursorCol = 0
			p.lineFeed()
		}
	}

	if p.cursorCol+w > p.cols {
		if p.modeFlags&protocol.ModeAutoWrap != 0 {
			p.cursorCol = 0
			p.lineFeed()
		} else {
			// Auto-wrap disabled: clamp and overwrite the last column.
			p.cursorCol = p.cols - w
			if p.cursorCol < 0 {
				p.cursorCol = 0
			}
		}
	}

	cell := protocol.Cell{Char: r, FG: p.pen.fg, BG: p.pen.bg, Attrs: p.pen.attrs}
	p.writeCellAt(p.cursorCol, p.cursorRow, cell)

	if w == 2 && p.cursorCol+1 < p.cols {
		cont := protocol.Cell{Attrs: protocol.AttrWideContinuation}
		p.writeCellAt(p.cursorCol+1, p.cursorRow, cont)
	}

	p.cursorCol += w
	if p.cursorCol >= p.cols {
		if p.modeFlags&protocol.ModeAutoWrap != 0 {
			// Defer the actual wrap to the next print, matching common
			// terminal "pending wrap" behavior so the cursor reads as
			// being in the last column until something is printed.
			p.cursorCol = p.cols - 1
			p.pendingWrap = true
		} else {
			p.cursorCol = p.cols - 1
		}
	}
}

func (p *Parser) writeCellAt(col, row int, c protocol.Cell) {
	p.region.WriteCell(col, row, c)
	p.markDirty(row)
}

// lineFeed implements execute(LF): cursor down, scrolling at the bottom
// margin of the active scroll region.
func (p *Parser) lineFeed() {
	p.pendingWrap = false
	if p.cursorRow == p.scrollBottom {
		p.scrollUp(1)
		return
	}
	if p.cursorRow < p.rows-1 {
		p.cursorRow++
	}
}

// scrollUp shifts the scroll region up by n lines, discarding the top n
// lines of the region (capturing them into scrollback when they belong to
// the main buffer) and clearing the newly exposed bottom lines.
func (p *Parser) scrollUp(n int) {
	if p.scrollTop >= p.scrollBottom {
		// A collapsed (single-line) scroll region makes scrolling a
		// no-op, per spec.md §8 boundary behavior.
		return
	}
	captureToScrollback := !p.altActive || p.includeAltInScrollback
	for i := 0; i < n; i++ {
		if captureToScrollback && p.scrollTop == 0 {
			line := make([]protocol.Cell, p.cols)
			for col := 0; col < p.cols; col++ {
				line[col] = p.region.ReadCell(col, p.scrollTop)
			}
			p.scrollback.Push(line)
		}
		for row := p.scrollTop; row < p.scrollBottom; row++ {
			for col := 0; col < p.cols; col++ {
				p.region.WriteCell(col, row, p.region.ReadCell(col, row+1))
			}
		}
		p.region.ClearRow(p.scrollBottom, p.cols)
		p.markDirty(p.scrollTop)
		p.markDirty(p.scrollBottom)
	}
}

// eraseInDisplay implements CSI J.
func (p *Parser) eraseInDisplay(mode int) {
	switch mode {
	case 0:
		p.eraseInLine(0)
		for row := p.cursorRow + 1; row < p.rows; row++ {
			p.region.ClearRow(row, p.cols)
			p.markDirty(row)
		}
	case 1:
		for row := 0; row < p.cursorRow; row++ {
			p.region.ClearRow(row, p.cols)
			p.markDirty(row)
		}
		p.eraseInLine(1)
	case 2, 3:
		for row := 0; row < p.rows; row++ {
			p.region.ClearRow(row, p.cols)
		}
		p.markAllDirty()
	}
}

// eraseInLine implements CSI K.
func (p *Parser) eraseInLine(mode int) {
	empty := protocol.Cell{}
	switch mode {
	case 0:
		for col := p.cursorCol; col < p.cols; col++ {
			p.region.WriteCell(col, p.cursorRow, empty)
		}
	case 1:
		for col := 0; col <= p.cursorCol && col < p.cols; col++ {
			p.region.WriteCell(col, p.cursorRow, empty)
		}
	case 2:
		for col := 0; col < p.cols; col++ {
			p.region.WriteCell(col, p.cursorRow, empty)
		}
	}
	p.markDirty(p.cursorRow)
}
