package gpuinput

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestTranslateKey_ArrowKeys_RespectAppCursorMode(t *testing.T) {
	data, ok := TranslateKey(glfw.KeyUp, 0, false)
	if !ok || string(data) != "\x1b[A" {
		t.Fatalf("normal mode up: got %q, ok=%v", data, ok)
	}
	data, ok = TranslateKey(glfw.KeyUp, 0, true)
	if !ok || string(data) != "\x1bOA" {
		t.Fatalf("app cursor mode up: got %q, ok=%v", data, ok)
	}
}

func TestTranslateKey_CtrlLetter_MapsToControlCode(t *testing.T) {
	data, ok := TranslateKey(glfw.KeyC, glfw.ModControl, false)
	if !ok || len(data) != 1 || data[0] != 0x03 {
		t.Fatalf("ctrl+c: got %v, ok=%v", data, ok)
	}
}

func TestTranslateKey_Enter_SendsCR(t *testing.T) {
	data, ok := TranslateKey(glfw.KeyEnter, 0, false)
	if !ok || string(data) != "\r" {
		t.Fatalf("enter: got %q, ok=%v", data, ok)
	}
}

func TestTranslateKey_PlainSpace_IsNotHandled(t *testing.T) {
	_, ok := TranslateKey(glfw.KeySpace, 0, false)
	if ok {
		t.Fatal("expected plain space to defer to the char callback")
	}
}

func TestTranslateKey_UnmappedKey_ReturnsFalse(t *testing.T) {
	_, ok := TranslateKey(glfw.KeyLeftShift, 0, false)
	if ok {
		t.Fatal("expected a bare modifier key to be unhandled")
	}
}

func TestTranslateChar_AltPrefixesEscape(t *testing.T) {
	data := TranslateChar('a', glfw.ModAlt)
	if string(data) != "\x1ba" {
		t.Fatalf("got %q", data)
	}
}

func TestTranslateChar_PlainRune_UTF8Encoded(t *testing.T) {
	data := TranslateChar('é', 0)
	if string(data) != "é" {
		t.Fatalf("got %q", data)
	}
}
