// Package vte implements the DEC/ECMA-48 terminal state machine that
// drives the shared grid from a PTY's byte stream (spec.md §4.3). The
// state machine shape (Ground / Escape / CSI Entry / CSI Param / CSI
// Intermediate / OSC String / DCS) mirrors the teacher's transitive
// dependency github.com/danielgatis/go-vte; it is hand-written here
// because it must mutate Scarab's own Cell/Header layout directly rather
// than an intermediate terminal-buffer type.
package vte

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/scarab-term/scarab/internal/protocol"
	"github.com/scarab-term/scarab/internal/sharedgrid"
)

type state int

const (
	stateGround state = iota
	stateEscape
	stateCSIEntry
	stateCSIParam
	stateCSIIntermediate
	stateOSCString
	stateDCS
)

const (
	maxOSCBody  = 4096
	maxCSIParams = 32
)

// pen is the current SGR drawing state: foreground/background color and
// text attributes, applied to every subsequent print().
type pen struct {
	fg, bg uint32
	attrs  protocol.Attrs
}

var defaultPen = pen{fg: 0xFFFFFFFF, bg: 0x000000FF}

// TitleFunc is invoked when an OSC 0/2 title-setting sequence is parsed
// (spec.md §4.3; exposed to collaborators via §6).
type TitleFunc func(title string)

// Parser drives one session's grid from its PTY byte stream. It is the
// grid's single writer (spec.md §4.4); all mutating methods must be
// called from one goroutine (the PTY reader loop).
type Parser struct {
	region *sharedgrid.Region

	st    state
	utf8buf [4]byte
	utf8n   int

	params    []int
	paramAcc  int
	haveParam bool
	inter     []byte
	private   byte // '?' for DEC private CSI, 0 otherwise

	oscBuf []byte

	cols, rows int
	cursorCol, cursorRow int
	savedCol, savedRow   int
	pen                  pen

	modeFlags     protocol.ModeFlags
	scrollTop     int // 0-indexed, inclusive
	scrollBottom  int // 0-indexed, inclusive

	pendingWrap bool // DECAWM deferred-wrap latch: cursor reads as last column until next print

	altActive  bool
	mainMirror []protocol.Cell // saved main-screen content while alt is active

	scrollback    *Scrollback
	includeAltInScrollback bool

	dirtyMin, dirtyMax int
	dirtyActive        bool

	pendingOSCTerm bool

	onTitle TitleFunc
}

// Config configures a new Parser.
type Config struct {
	ScrollbackDepth        int
	IncludeAltInScrollback bool
	OnTitle                TitleFunc
}

// New creates a Parser bound to region, whose capacity (Region.Capacity)
// defines the initial logical grid size.
func New(region *sharedgrid.Region, cfg Config) *Parser {
	cols, rows := region.Capacity()
	depth := cfg.ScrollbackDepth
	if depth <= 0 {
		depth = 10000
	}
	p := &Parser{
		region:                 region,
		cols:                   cols,
		rows:                   rows,
		pen:                    defaultPen,
		modeFlags:              protocol.ModeAutoWrap,
		scrollTop:              0,
		scrollBottom:           rows - 1,
		scrollback:             NewScrollback(depth),
		includeAltInScrollback: cfg.IncludeAltInScrollback,
		onTitle:                cfg.OnTitle,
	}
	return p
}

// Write feeds one PTY read's worth of bytes through the state machine and
// publishes exactly one flush at the end, per spec.md §4.3's "a flush
// publishes after each input chunk" rule. It implements ptyhost.Sink.
func (p *Parser) Write(data []byte) (int, error) {
	p.beginFlush()
	for _, b := range data {
		p.step(b)
	}
	p.endFlush()
	return len(data), nil
}

func (p *Parser) beginFlush() {
	p.dirtyActive = false
}

func (p *Parser) markDirty(row int) {
	if !p.dirtyActive {
		p.dirtyMin, p.dirtyMax = row, row
		p.dirtyActive = true
		return
	}
	if row < p.dirtyMin {
		p.dirtyMin = row
	}
	if row > p.dirtyMax {
		p.dirtyMax = row
	}
}

func (p *Parser) markAllDirty() {
	p.markDirty(0)
	p.markDirty(p.rows - 1)
}

func (p *Parser) endFlush() {
	p.reflowIfPending()
	hdr := protocol.Header{
		Cols:        uint16(p.cols),
		Rows:        uint16(p.rows),
		CursorCol:   uint16(p.cursorCol),
		CursorRow:   uint16(p.cursorRow),
		ModeFlags:   p.modeFlags,
		PendingCols: 0,
		PendingRows: 0,
	}
	if !p.dirtyActive {
		// No cell mutation occurred (e.g. a lone cursor move or a mode
		// change); still publish so the cursor/mode update is visible,
		// with a one-row dirty span at the cursor's row.
		p.region.Publish(hdr, uint16(p.cursorRow), uint16(p.cursorRow))
		return
	}
	p.region.Publish(hdr, uint16(p.dirtyMin), uint16(p.dirtyMax))
}

// step feeds one byte through the UTF-8 pre-stage and then the state
// machine (spec.md §4.3: "UTF-8 decoding as a pre-stage").
func (p *Parser) step(b byte) {
	// C0 controls and ESC always interrupt an in-progress UTF-8 sequence
	// or string state, same as real terminals.
	if p.st == stateGround && p.utf8n > 0 && b < 0x80 {
		// No byte below 0x80 continues a sequence: the pending bytes are
		// malformed and become one U+FFFD before b itself is handled.
		p.emitPrint(utf8.RuneError)
		p.utf8n = 0
	}
	if p.st == stateGround && p.utf8n == 0 && b < 0x80 {
		p.dispatchByte(b)
		return
	}

	if p.st != stateGround {
		p.dispatchByte(b)
		return
	}

	// Accumulating a multi-byte UTF-8 rune in Ground state.
	p.utf8buf[p.utf8n] = b
	p.utf8n++
	r, size := utf8.DecodeRune(p.utf8buf[:p.utf8n])
	if r == utf8.RuneError && size <= 1 {
		if p.utf8n >= utf8.UTFMax {
			p.emitPrint(utf8.RuneError)
			p.utf8n = 0
			return
		}
		// Could still be incomplete; but if the buffered bytes can never
		// form a valid sequence (e.g. a stray continuation byte), bail
		// out immediately rather than waiting for UTFMax bytes.
		if !utf8.FullRune(p.utf8buf[:p.utf8n]) {
			return
		}
		p.emitPrint(utf8.RuneError)
		p.utf8n = 0
		return
	}
	if size == p.utf8n {
		p.emitPrint(r)
		p.utf8n = 0
	}
}

// dispatchByte handles a byte once we know it is not mid-UTF-8-sequence:
// C0 controls, ESC, or bytes inside an escape/CSI/OSC/DCS sequence.
func (p *Parser) dispatchByte(b byte) {
	switch p.st {
	case stateGround:
		p.groundByte(b)
	case stateEscape:
		p.escapeByte(b)
	case stateCSIEntry, stateCSIParam:
		p.csiByte(b)
	case stateCSIIntermediate:
		p.csiIntermediateByte(b)
	case stateOSCString:
		p.oscByte(b)
	case stateDCS:
		p.dcsByte(b)
	}
}

func (p *Parser) groundByte(b byte) {
	switch {
	case b == 0x1B:
		p.st = stateEscape
	case b < 0x20 || b == 0x7F:
		p.execute(b)
	default:
		p.emitPrint(rune(b))
	}
}

func (p *Parser) escapeByte(b byte) {
	if p.pendingOSCTerm {
		p.pendingOSCTerm = false
		if b == '\\' {
			p.oscDispatch()
			p.st = stateGround
			return
		}
		// Not a valid ST; the OSC body is dropped and b is reprocessed
		// as the start of a fresh escape sequence (no input is fatal).
	}
	switch b {
	case '[':
		p.resetCSI()
		p.st = stateCSIEntry
	case ']':
		p.oscBuf = p.oscBuf[:0]
		p.st = stateOSCString
	case 'P':
		p.st = stateDCS
	case '7': // DECSC save cursor
		p.savedCol, p.savedRow = p.cursorCol, p.cursorRow
		p.st = stateGround
	case '8': // DECRC restore cursor
		p.cursorCol, p.cursorRow = p.savedCol, p.savedRow
		p.st = stateGround
	default:
		// Unknown/unsupported ESC dispatch: absorbed silently.
		p.st = stateGround
	}
}

func (p *Parser) resetCSI() {
	p.params = p.params[:0]
	p.paramAcc = 0
	p.haveParam = false
	p.inter = p.inter[:0]
	p.private = 0
}

func (p *Parser) csiByte(b byte) {
	switch {
	case b >= '0' && b <= '9':
		p.paramAcc = p.paramAcc*10 + int(b-'0')
		p.haveParam = true
		p.st = stateCSIParam
	case b == ';':
		p.pushParam()
		p.st = stateCSIParam
	case b == '?' || b == '<' || b == '=' || b == '>':
		p.private = b
	case b >= 0x20 && b <= 0x2F:
		p.inter = append(p.inter, b)
		p.st = stateCSIIntermediate
	case b >= 0x40 && b <= 0x7E:
		p.pushParam()
		p.csiDispatch(b)
		p.st = stateGround
	default:
		// Ignore stray bytes rather than aborting the sequence.
	}
}

func (p *Parser) csiIntermediateByte(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2F:
		p.inter = append(p.inter, b)
	case b >= 0x40 && b <= 0x7E:
		p.pushParam()
		p.csiDispatch(b)
		p.st = stateGround
	default:
		p.st = stateGround
	}
}

func (p *Parser) pushParam() {
	if p.haveParam || len(p.params) == 0 {
		if len(p.params) < maxCSIParams {
			p.params = append(p.params, p.paramAcc)
		}
	}
	p.paramAcc = 0
	p.haveParam = false
}

func (p *Parser) oscByte(b byte) {
	switch b {
	case 0x07: // BEL terminates OSC
		p.oscDispatch()
		p.st = stateGround
	case 0x1B:
		p.pendingOSCTerm = true
		p.st = stateEscape // tentative; confirmed by a following '\\'
	default:
		if len(p.oscBuf) < maxOSCBody {
			p.oscBuf = append(p.oscBuf, b)
		}
		// Bodies larger than maxOSCBody are silently truncated, per
		// spec.md §4.3; remaining bytes are still consumed.
	}
}

func (p *Parser) dcsByte(b byte) {
	// DCS payloads are consumed and discarded; no core behavior depends
	// on them. ST (ESC \) or BEL ends the string.
	if b == 0x07 {
		p.st = stateGround
		return
	}
	if b == 0x1B {
		p.st = stateEscape
	}
}

func (p *Parser) execute(b byte) {
	switch b {
	case 0x0A: // LF
		p.lineFeed()
	case 0x0D: // CR
		p.cursorCol = 0
		p.pendingWrap = false
	case 0x08: // BS
		if p.cursorCol > 0 {
			p.cursorCol--
		}
	case 0x09: // TAB: advance to next multiple of 8
		next := (p.cursorCol/8 + 1) * 8
		if next >= p.cols {
			next = p.cols - 1
		}
		p.cursorCol = next
	case 0x07: // BEL: no grid effect
	default:
		// Unrecognised C0 control: no-op.
	}
}
