package vte

import "github.com/scarab-term/scarab/internal/protocol"

// ansi16 is the standard 16-color ANSI palette, packed RGBA (spec.md §4.3
// SGR handling references these as the fallback for 30-37/90-97).
var ansi16 = [16]uint32{
	0x000000FF, 0xCC0000FF, 0x00CD00FF, 0xCDCD00FF,
	0x0000EEFF, 0xCD00CDFF, 0x00CDCDFF, 0xE5E5E5FF,
	0x7F7F7FFF, 0xFF0000FF, 0x00FF00FF, 0xFFFF00FF,
	0x5C5CFFFF, 0xFF00FFFF, 0x00FFFFFF, 0xFFFFFFFF,
}

// sgr applies the current CSI params as Select Graphic Rendition,
// including truecolor (38;2;r;g;b / 48;2;r;g;b) and 256-color
// (38;5;n / 48;5;n) extensions (spec.md §4.3).
func (p *Parser) sgr() {
	if len(p.params) == 0 {
		p.pen = defaultPen
		return
	}
	for i := 0; i < len(p.params); i++ {
		code := p.params[i]
		switch {
		case code == 0:
			p.pen = defaultPen
		case code == 1:
			p.pen.attrs |= protocol.AttrBold
		case code == 2:
			p.pen.attrs |= protocol.AttrDim
		case code == 3:
			p.pen.attrs |= protocol.AttrItalic
		case code == 4:
			p.pen.attrs |= protocol.AttrUnderline
		case code == 5 || code == 6:
			p.pen.attrs |= protocol.AttrBlink
		case code == 7:
			p.pen.attrs |= protocol.AttrReverse
		case code == 9:
			p.pen.attrs |= protocol.AttrStrike
		case code == 22:
			p.pen.attrs &^= protocol.AttrBold | protocol.AttrDim
		case code == 23:
			p.pen.attrs &^= protocol.AttrItalic
		case code == 24:
			p.pen.attrs &^= protocol.AttrUnderline
		case code == 25:
			p.pen.attrs &^= protocol.AttrBlink
		case code == 27:
			p.pen.attrs &^= protocol.AttrReverse
		case code == 29:
			p.pen.attrs &^= protocol.AttrStrike
		case code >= 30 && code <= 37:
			p.pen.fg = ansi16[code-30]
		case code == 38:
			consumed := p.extendedColor(i, true)
			i += consumed
		case code == 39:
			p.pen.fg = defaultPen.fg
		case code >= 40 && code <= 47:
			p.pen.bg = ansi16[code-40]
		case code == 48:
			consumed := p.extendedColor(i, false)
			i += consumed
		case code == 49:
			p.pen.bg = defaultPen.bg
		case code >= 90 && code <= 97:
			p.pen.fg = ansi16[8+code-90]
		case code >= 100 && code <= 107:
			p.pen.bg = ansi16[8+code-100]
		}
	}
}

// extendedColor parses a 38/48 sub-sequence starting at params[i] (the
// 38 or 48 itself) and returns how many additional params it consumed.
func (p *Parser) extendedColor(i int, foreground bool) int {
	if i+1 >= len(p.params) {
		return 0
	}
	switch p.params[i+1] {
	case 2: // truecolor: 38;2;r;g;b
		if i+4 >= len(p.params) {
			return len(p.params) - i - 1
		}
		r := uint32(p.params[i+2] & 0xFF)
		g := uint32(p.params[i+3] & 0xFF)
		b := uint32(p.params[i+4] & 0xFF)
		color := r<<24 | g<<16 | b<<8 | 0xFF
		if foreground {
			p.pen.fg = color
		} else {
			p.pen.bg = color
		}
		return 4
	case 5: // 256-color: 38;5;n
		if i+2 >= len(p.params) {
			return len(p.params) - i - 1
		}
		color := color256(p.params[i+2])
		if foreground {
			p.pen.fg = color
		} else {
			p.pen.bg = color
		}
		return 2
	}
	return 1
}

// color256 maps an xterm 256-color index to packed RGBA.
func color256(n int) uint32 {
	if n < 0 {
		n = 0
	}
	if n < 16 {
		return ansi16[n]
	}
	if n < 232 {
		n -= 16
		levels := [6]uint32{0, 95, 135, 175, 215, 255}
		r := levels[(n/36)%6]
		g := levels[(n/6)%6]
		b := levels[n%6]
		return r<<24 | g<<16 | b<<8 | 0xFF
	}
	if n > 255 {
		n = 255
	}
	gray := uint32(8 + (n-232)*10)
	return gray<<24 | gray<<16 | gray<<8 | 0xFF
}
