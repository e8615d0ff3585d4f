// Package gpuinput translates GLFW key and character callbacks into the
// byte sequences a PTY expects on stdin, for forwarding as protocol.Input
// frames. Grounded directly on RavenTerminal's keybindings.TranslateKey/
// TranslateChar, trimmed to the subset relevant to a single-pane client
// (no tab/pane/menu actions — those belong to the excluded UI-overlay
// collaborator per spec.md §1).
package gpuinput

import "github.com/go-gl/glfw/v3.3/glfw"

// TranslateKey maps one key-press event to the bytes it should send to
// the PTY, honoring DECCKM's effect on arrow-key encoding (appCursorMode).
// A press with no terminal meaning (a bare modifier, an unmapped
// function key) returns ok=false.
func TranslateKey(key glfw.Key, mods glfw.ModifierKey, appCursorMode bool) (data []byte, ok bool) {
	ctrl := mods&glfw.ModControl != 0
	shift := mods&glfw.ModShift != 0
	alt := mods&glfw.ModAlt != 0

	if seq, handled := arrowOrNav(key, appCursorMode); handled {
		return seq, true
	}
	if seq, handled := functionKey(key); handled {
		return seq, true
	}

	switch key {
	case glfw.KeyBackspace:
		return []byte{0x7f}, true
	case glfw.KeyEnter, glfw.KeyKPEnter:
		return []byte{'\r'}, true
	case glfw.KeyTab:
		if shift {
			return []byte("\x1b[Z"), true
		}
		return []byte{'\t'}, true
	case glfw.KeyEscape:
		return []byte{0x1b}, true
	case glfw.KeySpace:
		if ctrl {
			return []byte{0}, true
		}
		return nil, false // plain space arrives via the char callback
	}

	if ctrl && key >= glfw.KeyA && key <= glfw.KeyZ {
		return []byte{byte(key - glfw.KeyA + 1)}, true
	}
	if alt && key >= glfw.KeyA && key <= glfw.KeyZ {
		c := byte(key - glfw.KeyA + 'a')
		if shift {
			c = byte(key - glfw.KeyA + 'A')
		}
		return []byte{0x1b, c}, true
	}

	return nil, false
}

func arrowOrNav(key glfw.Key, appCursorMode bool) ([]byte, bool) {
	cursorSeq := func(normal, app string) []byte {
		if appCursorMode {
			return []byte(app)
		}
		return []byte(normal)
	}
	switch key {
	case glfw.KeyUp:
		return cursorSeq("\x1b[A", "\x1bOA"), true
	case glfw.KeyDown:
		return cursorSeq("\x1b[B", "\x1bOB"), true
	case glfw.KeyRight:
		return cursorSeq("\x1b[C", "\x1bOC"), true
	case glfw.KeyLeft:
		return cursorSeq("\x1b[D", "\x1bOD"), true
	case glfw.KeyHome:
		return []byte("\x1b[H"), true
	case glfw.KeyEnd:
		return []byte("\x1b[F"), true
	case glfw.KeyPageUp:
		return []byte("\x1b[5~"), true
	case glfw.KeyPageDown:
		return []byte("\x1b[6~"), true
	case glfw.KeyInsert:
		return []byte("\x1b[2~"), true
	case glfw.KeyDelete:
		return []byte("\x1b[3~"), true
	}
	return nil, false
}

var functionKeySeqs = map[glfw.Key]string{
	glfw.KeyF1: "\x1bOP", glfw.KeyF2: "\x1bOQ", glfw.KeyF3: "\x1bOR", glfw.KeyF4: "\x1bOS",
	glfw.KeyF5: "\x1b[15~", glfw.KeyF6: "\x1b[17~", glfw.KeyF7: "\x1b[18~", glfw.KeyF8: "\x1b[19~",
	glfw.KeyF9: "\x1b[20~", glfw.KeyF10: "\x1b[21~", glfw.KeyF11: "\x1b[23~", glfw.KeyF12: "\x1b[24~",
}

func functionKey(key glfw.Key) ([]byte, bool) {
	seq, ok := functionKeySeqs[key]
	if !ok {
		return nil, false
	}
	return []byte(seq), true
}

// TranslateChar encodes a character-callback rune as PTY input bytes, ESC-
// prefixed under Alt (the common "meta sends escape" terminal convention).
func TranslateChar(char rune, mods glfw.ModifierKey) []byte {
	if mods&glfw.ModAlt != 0 {
		return append([]byte{0x1b}, []byte(string(char))...)
	}
	return []byte(string(char))
}
