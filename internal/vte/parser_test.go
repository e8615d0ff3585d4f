package vte

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/scarab-term/scarab/internal/protocol"
	"github.com/scarab-term/scarab/internal/sharedgrid"
)

var parserTestCounter atomic.Int64

func newTestRegion(t *testing.T, cols, rows int) *sharedgrid.Region {
	t.Helper()
	name := fmt.Sprintf("/scarab-vte-test-%d-%d", os.Getpid(), parserTestCounter.Add(1))
	r, err := sharedgrid.Create(name, cols, rows)
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// readRow reads a full logical row back out of the region for assertions.
func readRow(r *sharedgrid.Region, row, cols int) []protocol.Cell {
	out := make([]protocol.Cell, cols)
	for col := 0; col < cols; col++ {
		out[col] = r.ReadCell(col, row)
	}
	return out
}

func rowText(cells []protocol.Cell) string {
	s := make([]rune, 0, len(cells))
	for _, c := range cells {
		if c.Char == 0 {
			s = append(s, ' ')
			continue
		}
		s = append(s, c.Char)
	}
	return string(s)
}

// TestParser_S1_ColorAndText covers spec.md §8 S1: "\x1b[31mhi\x1b[0m"
// renders "hi" in red (0xCC0000FF); it checks the text and the red
// foreground of both cells.
func TestParser_S1_ColorAndText(t *testing.T) {
	region := newTestRegion(t, 10, 3)
	p := New(region, Config{})

	p.Write([]byte("\x1b[31mhi\x1b[0m"))

	row := readRow(region, 0, 10)
	if rowText(row)[:2] != "hi" {
		t.Fatalf("unexpected row text: %q", rowText(row))
	}
	const wantRed = 0xCC0000FF
	if row[0].FG != wantRed {
		t.Fatalf("want red fg %#x on 'h', got %#x", uint32(wantRed), row[0].FG)
	}
	if row[1].FG != wantRed {
		t.Fatalf("want red fg %#x on 'i', got %#x", uint32(wantRed), row[1].FG)
	}
}

// TestParser_S2_LineWrap covers spec.md §8 S2: printing past the last
// column auto-wraps to the next line without losing the wrapped glyph.
func TestParser_S2_LineWrap(t *testing.T) {
	region := newTestRegion(t, 5, 3)
	p := New(region, Config{})

	p.Write([]byte("abcdef"))

	row0 := readRow(region, 0, 5)
	row1 := readRow(region, 1, 5)
	if rowText(row0) != "abcde" {
		t.Fatalf("row0 = %q, want %q", rowText(row0), "abcde")
	}
	if row1[0].Char != 'f' {
		t.Fatalf("row1[0] = %q, want 'f'", row1[0].Char)
	}
	if p.cursorRow != 1 || p.cursorCol != 1 {
		t.Fatalf("cursor at (%d,%d), want (1,1)", p.cursorCol, p.cursorRow)
	}
}

// TestParser_S3_ClearScreen covers spec.md §8 S3: CSI 2J clears every
// cell. The dirty span it publishes is not checked here.
func TestParser_S3_ClearScreen(t *testing.T) {
	region := newTestRegion(t, 5, 3)
	p := New(region, Config{})

	p.Write([]byte("hello"))
	p.Write([]byte("\x1b[2J"))

	for row := 0; row < 3; row++ {
		for _, c := range readRow(region, row, 5) {
			if c.Char != 0 {
				t.Fatalf("row %d not cleared: %q", row, rowText(readRow(region, row, 5)))
			}
		}
	}
}

func TestParser_CRLF_ResetsColumn(t *testing.T) {
	region := newTestRegion(t, 5, 3)
	p := New(region, Config{})

	p.Write([]byte("ab\r\ncd"))

	if p.cursorRow != 1 || p.cursorCol != 2 {
		t.Fatalf("cursor at (%d,%d), want (2,1)", p.cursorCol, p.cursorRow)
	}
	row1 := readRow(region, 1, 5)
	if rowText(row1)[:2] != "cd" {
		t.Fatalf("row1 = %q", rowText(row1))
	}
}

func TestParser_WideRune_MarksContinuation(t *testing.T) {
	region := newTestRegion(t, 10, 3)
	p := New(region, Config{})

	p.Write([]byte("\xe4\xb8\xad")) // U+4E2D, a double-width CJK ideograph

	c0 := region.ReadCell(0, 0)
	c1 := region.ReadCell(1, 0)
	if c0.Char != 0x4E2D {
		t.Fatalf("cell0 = %U, want 4E2D", c0.Char)
	}
	if !c1.IsWideContinuation() {
		t.Fatal("cell1 should be marked as a wide continuation")
	}
	if c1.Char != 0 {
		// Invariant: a wide-continuation cell never carries its own glyph.
		t.Fatalf("continuation cell has nonzero glyph %U", c1.Char)
	}
}

func TestParser_InvalidUTF8_SubstitutesReplacementChar(t *testing.T) {
	region := newTestRegion(t, 10, 3)
	p := New(region, Config{})

	p.Write([]byte{0xFF, 'x'})

	row := readRow(region, 0, 10)
	if row[0].Char != '�' {
		t.Fatalf("cell0 = %U, want replacement char", row[0].Char)
	}
	if row[1].Char != 'x' {
		t.Fatalf("cell1 = %q, want 'x'", row[1].Char)
	}
}

func TestParser_Snapshot_DirtySpanSound(t *testing.T) {
	region := newTestRegion(t, 10, 5)
	p := New(region, Config{})

	p.Write([]byte("\r\n\r\nmiddle"))

	hdr, _, minRow, maxRow, ok := region.Snapshot(3)
	if !ok {
		t.Fatal("snapshot should succeed with no concurrent writer")
	}
	if minRow > maxRow {
		t.Fatalf("dirty span inverted: [%d,%d]", minRow, maxRow)
	}
	if int(maxRow) >= 5 || int(minRow) < 0 {
		t.Fatalf("dirty span out of bounds: [%d,%d]", minRow, maxRow)
	}
	if hdr.Sequence < 2 {
		t.Fatalf("sequence should have advanced past init, got %d", hdr.Sequence)
	}
}

func TestParser_ScrollRegion_ConfinesScroll(t *testing.T) {
	region := newTestRegion(t, 5, 4)
	p := New(region, Config{})

	p.Write([]byte("\x1b[2;3r")) // scroll region rows 2-3 (1-indexed) => 1-2 zero-indexed
	p.Write([]byte("\x1b[2;1Htop\r\nbot\r\nagain"))

	// Row 0 (outside the scroll region) must be untouched by the scroll.
	row0 := readRow(region, 0, 5)
	if row0[0].Char != 0 {
		t.Fatalf("row0 should remain blank outside scroll region, got %q", rowText(row0))
	}
}

func TestParser_Title_OSC0_InvokesCallback(t *testing.T) {
	region := newTestRegion(t, 10, 3)
	var got string
	p := New(region, Config{OnTitle: func(title string) { got = title }})

	p.Write([]byte("\x1b]0;hello world\x07"))

	if got != "hello world" {
		t.Fatalf("title = %q, want %q", got, "hello world")
	}
}

func TestParser_Reflow_PreservesTopLeftContent(t *testing.T) {
	region := newTestRegion(t, 10, 5)
	p := New(region, Config{})
	p.Write([]byte("hello"))

	region.RequestResize(6, 4)
	p.Write([]byte("")) // trigger a flush so reflowIfPending runs

	row0 := readRow(region, 0, 6)
	if rowText(row0)[:5] != "hello" {
		t.Fatalf("row0 after reflow = %q", rowText(row0))
	}
	if p.cols != 6 || p.rows != 4 {
		t.Fatalf("parser dims after reflow = (%d,%d), want (6,4)", p.cols, p.rows)
	}
}

// TestParser_Reflow_ClampsOversizedResize guards against a client-supplied
// Resize larger than the region's fixed mmap capacity reaching WriteCell:
// that would index outside the mapped byte slice and panic the PTY
// reader goroutine, which ptyhost's readerLoop recovers by ending the
// session being resized.
func TestParser_Reflow_ClampsOversizedResize(t *testing.T) {
	region := newTestRegion(t, 10, 5)
	p := New(region, Config{})
	p.Write([]byte("hello"))

	region.RequestResize(65535, 65535)
	p.Write([]byte("")) // trigger a flush so reflowIfPending runs

	capCols, capRows := region.Capacity()
	if p.cols != capCols || p.rows != capRows {
		t.Fatalf("parser dims after oversized resize = (%d,%d), want clamped to capacity (%d,%d)",
			p.cols, p.rows, capCols, capRows)
	}
	row0 := readRow(region, 0, capCols)
	if rowText(row0)[:5] != "hello" {
		t.Fatalf("row0 after clamped reflow = %q", rowText(row0))
	}
}
