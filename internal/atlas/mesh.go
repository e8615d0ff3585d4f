package atlas

import (
	"github.com/scarab-term/scarab/internal/protocol"
)

// Vertex is one corner of a glyph or background quad: position in cell
// space, atlas UV, and packed RGBA color. Layout mirrors RavenTerminal's
// drawChar vertex stream (position + texcoord interleaved per vertex),
// extended with a per-vertex color so foreground/background/cursor quads
// share one buffer format instead of separate uniform-color draw calls.
type Vertex struct {
	X, Y       float32
	U, V       float32
	R, G, B, A float32
}

// CellSize is the on-screen pixel size of one grid cell, supplied by the
// caller from the active font's CellMetrics.
type CellSize struct {
	Width, Height float32
}

// BuildMeshOptions configures mesh generation for one frame.
type BuildMeshOptions struct {
	Cell        CellSize
	CursorCol   int
	CursorRow   int
	CursorOn    bool // false during the off half of a blink cycle
	CursorStyle CursorStyle
}

// CursorStyle selects how the cursor overlay is drawn.
type CursorStyle int

const (
	CursorBlock CursorStyle = iota
	CursorBar
	CursorUnderline
)

// quad appends two triangles (six vertices) covering [x,x+w] x [y,y+h] in
// cell space, with texture coordinates [u0,u1] x [v0,v1] and a flat color,
// matching the six-vertex-per-quad shape of RavenTerminal's drawChar.
func quad(out []Vertex, x, y, w, h, u0, v0, u1, v1 float32, r, g, b, a float32) []Vertex {
	return append(out,
		Vertex{x, y, u0, v0, r, g, b, a},
		Vertex{x + w, y, u1, v0, r, g, b, a},
		Vertex{x + w, y + h, u1, v1, r, g, b, a},
		Vertex{x, y, u0, v0, r, g, b, a},
		Vertex{x + w, y + h, u1, v1, r, g, b, a},
		Vertex{x, y + h, u0, v1, r, g, b, a},
	)
}

// BuildMesh converts one client sync update's dirty cells into a vertex
// buffer: one background quad and (for non-space runes) one glyph quad
// per dirty cell, plus a cursor overlay quad when the cursor falls within
// the dirty span. Bold/italic select the rasterized glyph variant; the
// remaining SGR attributes are expressed directly as mesh color/geometry
// tweaks (spec.md §4.8).
func BuildMesh(a *Atlas, cells []protocol.Cell, cols int, minRow int, opts BuildMeshOptions) ([]Vertex, error) {
	verts := make([]Vertex, 0, len(cells)*12)
	cw, ch := opts.Cell.Width, opts.Cell.Height
	solidU, solidV := a.SolidUV()

	for i, c := range cells {
		if c.IsWideContinuation() {
			continue
		}
		row := minRow + i/cols
		col := i % cols
		x := float32(col) * cw
		y := float32(row) * ch

		fg := unpackColor(c.FG)
		bg := unpackColor(c.BG)
		if c.Attrs&protocol.AttrReverse != 0 {
			fg, bg = bg, fg
		}

		width := cw
		if i+1 < len(cells) && col+1 < cols && cells[i+1].IsWideContinuation() {
			width = cw * 2
		}
		verts = quad(verts, x, y, width, ch, solidU, solidV, solidU, solidV, bg[0], bg[1], bg[2], bg[3])

		if c.Char != 0 && c.Char != ' ' {
			g, err := a.Lookup(GlyphKey{
				Rune:   c.Char,
				Bold:   c.Attrs&protocol.AttrBold != 0,
				Italic: c.Attrs&protocol.AttrItalic != 0,
			})
			if err != nil {
				return nil, err
			}
			gw := float32(g.PixelWidth)
			gh := float32(g.PixelHeight)
			alpha := fg[3]
			if c.Attrs&protocol.AttrDim != 0 {
				alpha *= 0.6
			}
			verts = quad(verts, x, y, gw, gh, g.U0, g.V0, g.U1, g.V1, fg[0], fg[1], fg[2], alpha)
		}

		if c.Attrs&protocol.AttrUnderline != 0 {
			underlineH := ch * 0.08
			verts = quad(verts, x, y+ch-underlineH, width, underlineH, solidU, solidV, solidU, solidV, fg[0], fg[1], fg[2], fg[3])
		}
		if c.Attrs&protocol.AttrStrike != 0 {
			strikeH := ch * 0.08
			verts = quad(verts, x, y+ch/2-strikeH/2, width, strikeH, solidU, solidV, solidU, solidV, fg[0], fg[1], fg[2], fg[3])
		}

		if opts.CursorOn && row == opts.CursorRow && col == opts.CursorCol {
			verts = appendCursor(verts, x, y, width, ch, solidU, solidV, opts.CursorStyle, fg)
		}
	}
	return verts, nil
}

func appendCursor(verts []Vertex, x, y, w, h, solidU, solidV float32, style CursorStyle, color [4]float32) []Vertex {
	switch style {
	case CursorBar:
		barW := w * 0.12
		return quad(verts, x, y, barW, h, solidU, solidV, solidU, solidV, color[0], color[1], color[2], color[3])
	case CursorUnderline:
		barH := h * 0.12
		return quad(verts, x, y+h-barH, w, barH, solidU, solidV, solidU, solidV, color[0], color[1], color[2], color[3])
	default: // CursorBlock
		return quad(verts, x, y, w, h, solidU, solidV, solidU, solidV, color[0], color[1], color[2], 0.5)
	}
}

func unpackColor(c uint32) [4]float32 {
	return [4]float32{
		float32((c>>24)&0xFF) / 255,
		float32((c>>16)&0xFF) / 255,
		float32((c>>8)&0xFF) / 255,
		float32(c&0xFF) / 255,
	}
}
