package vte

import "github.com/scarab-term/scarab/internal/protocol"

// param returns params[i] if present, else def (ECMA-48 default-parameter
// rule: an omitted or zero parameter means "use the default").
func (p *Parser) param(i, def int) int {
	if i >= len(p.params) || p.params[i] == 0 {
		return def
	}
	return p.params[i]
}

// csiDispatch handles the final byte of a CSI sequence (spec.md §4.3).
// Unknown finals are absorbed silently, matching the parser's
// no-input-is-fatal philosophy.
func (p *Parser) csiDispatch(final byte) {
	if p.private == '?' {
		p.csiPrivateDispatch(final)
		return
	}
	switch final {
	case 'H', 'f': // CUP: cursor position
		row := p.param(0, 1) - 1
		col := p.param(1, 1) - 1
		p.moveCursorAbs(col, row)
	case 'A': // CUU
		p.moveCursorRel(0, -p.param(0, 1))
	case 'B': // CUD
		p.moveCursorRel(0, p.param(0, 1))
	case 'C': // CUF
		p.moveCursorRel(p.param(0, 1), 0)
	case 'D': // CUB
		p.moveCursorRel(-p.param(0, 1), 0)
	case 'G': // CHA: cursor horizontal absolute
		p.moveCursorAbs(p.param(0, 1)-1, p.cursorRow)
	case 'd': // VPA: line position absolute
		p.moveCursorAbs(p.cursorCol, p.param(0, 1)-1)
	case 'J':
		p.eraseInDisplay(p.param(0, 0))
	case 'K':
		p.eraseInLine(p.param(0, 0))
	case 'm':
		p.sgr()
	case 'r': // DECSTBM: set scroll region
		top := p.param(0, 1) - 1
		bottom := p.param(1, p.rows) - 1
		if top < 0 {
			top = 0
		}
		if bottom >= p.rows {
			bottom = p.rows - 1
		}
		if top < bottom {
			p.scrollTop, p.scrollBottom = top, bottom
		} else {
			p.scrollTop, p.scrollBottom = 0, p.rows-1
		}
		p.moveCursorAbs(0, 0)
	case 's': // save cursor (ANSI.SYS variant)
		p.savedCol, p.savedRow = p.cursorCol, p.cursorRow
	case 'u': // restore cursor
		p.moveCursorAbs(p.savedCol, p.savedRow)
	case 'L': // IL: insert lines
		p.insertLines(p.param(0, 1))
	case 'M': // DL: delete lines
		p.deleteLines(p.param(0, 1))
	case 'P': // DCH: delete characters
		p.deleteChars(p.param(0, 1))
	case '@': // ICH: insert characters
		p.insertChars(p.param(0, 1))
	case 'X': // ECH: erase characters
		p.eraseChars(p.param(0, 1))
	}
}

func (p *Parser) moveCursorAbs(col, row int) {
	p.pendingWrap = false
	rowOffset := 0
	if p.modeFlags&protocol.ModeOrigin != 0 {
		rowOffset = p.scrollTop
		if row+rowOffset > p.scrollBottom {
			row = p.scrollBottom - rowOffset
		}
	}
	row += rowOffset
	if col < 0 {
		col = 0
	}
	if col >= p.cols {
		col = p.cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= p.rows {
		row = p.rows - 1
	}
	p.cursorCol, p.cursorRow = col, row
}

func (p *Parser) moveCursorRel(dcol, drow int) {
	p.pendingWrap = false
	p.moveCursorAbs(p.cursorCol+dcol, p.cursorRow+drow)
}

// csiPrivateDispatch handles DEC private mode sequences (CSI ? ... h/l).
func (p *Parser) csiPrivateDispatch(final byte) {
	if final != 'h' && final != 'l' {
		return
	}
	set := final == 'h'
	for _, mode := range p.params {
		switch mode {
		case 1049: // alternate screen buffer + save/restore cursor
			p.setAltScreen(set)
		case 1047, 47:
			p.setAltScreen(set)
		case 2004: // bracketed paste
			p.setModeFlag(protocol.ModeBracketedPaste, set)
		case 6: // origin mode
			p.setModeFlag(protocol.ModeOrigin, set)
			p.moveCursorAbs(0, 0)
		case 7: // auto-wrap
			p.setModeFlag(protocol.ModeAutoWrap, set)
		case 25: // cursor visibility: not tracked; ModeFlags has no bit for it
		}
	}
}

func (p *Parser) setModeFlag(flag protocol.ModeFlags, set bool) {
	if set {
		p.modeFlags |= flag
	} else {
		p.modeFlags &^= flag
	}
}

// setAltScreen implements CSI ?1049h/l: swap in/out the alternate screen,
// saving and restoring the main screen's content and cursor (spec.md §4.4).
func (p *Parser) setAltScreen(enter bool) {
	if enter == p.altActive {
		return
	}
	if enter {
		p.mainMirror = p.snapshotScreen()
		p.savedCol, p.savedRow = p.cursorCol, p.cursorRow
		p.altActive = true
		p.setModeFlag(protocol.ModeAltScreen, true)
		p.clearScreen()
		p.moveCursorAbs(0, 0)
	} else {
		p.restoreScreen(p.mainMirror)
		p.mainMirror = nil
		p.altActive = false
		p.setModeFlag(protocol.ModeAltScreen, false)
		p.moveCursorAbs(p.savedCol, p.savedRow)
	}
	p.markAllDirty()
}

func (p *Parser) snapshotScreen() []protocol.Cell {
	cells := make([]protocol.Cell, 0, p.cols*p.rows)
	for row := 0; row < p.rows; row++ {
		for col := 0; col < p.cols; col++ {
			cells = append(cells, p.region.ReadCell(col, row))
		}
	}
	return cells
}

func (p *Parser) restoreScreen(cells []protocol.Cell) {
	if len(cells) != p.cols*p.rows {
		p.clearScreen()
		return
	}
	i := 0
	for row := 0; row < p.rows; row++ {
		for col := 0; col < p.cols; col++ {
			p.region.WriteCell(col, row, cells[i])
			i++
		}
	}
}

func (p *Parser) clearScreen() {
	for row := 0; row < p.rows; row++ {
		p.region.ClearRow(row, p.cols)
	}
}

func (p *Parser) insertLines(n int) {
	for i := 0; i < n; i++ {
		for row := p.scrollBottom; row > p.cursorRow; row-- {
			for col := 0; col < p.cols; col++ {
				p.region.WriteCell(col, row, p.region.ReadCell(col, row-1))
			}
		}
		p.region.ClearRow(p.cursorRow, p.cols)
	}
	p.markDirty(p.cursorRow)
	p.markDirty(p.scrollBottom)
}

func (p *Parser) deleteLines(n int) {
	for i := 0; i < n; i++ {
		for row := p.cursorRow; row < p.scrollBottom; row++ {
			for col := 0; col < p.cols; col++ {
				p.region.WriteCell(col, row, p.region.ReadCell(col, row+1))
			}
		}
		p.region.ClearRow(p.scrollBottom, p.cols)
	}
	p.markDirty(p.cursorRow)
	p.markDirty(p.scrollBottom)
}

func (p *Parser) deleteChars(n int) {
	for col := p.cursorCol; col < p.cols; col++ {
		src := col + n
		if src < p.cols {
			p.region.WriteCell(col, p.cursorRow, p.region.ReadCell(src, p.cursorRow))
		} else {
			p.region.WriteCell(col, p.cursorRow, protocol.Cell{})
		}
	}
	p.markDirty(p.cursorRow)
}

func (p *Parser) insertChars(n int) {
	for col := p.cols - 1; col >= p.cursorCol; col-- {
		src := col - n
		if src >= p.cursorCol {
			p.region.WriteCell(col, p.cursorRow, p.region.ReadCell(src, p.cursorRow))
		} else {
			p.region.WriteCell(col, p.cursorRow, protocol.Cell{})
		}
	}
	p.markDirty(p.cursorRow)
}

func (p *Parser) eraseChars(n int) {
	end := p.cursorCol + n
	if end > p.cols {
		end = p.cols
	}
	for col := p.cursorCol; col < end; col++ {
		p.region.WriteCell(col, p.cursorRow, protocol.Cell{})
	}
	p.markDirty(p.cursorRow)
}
