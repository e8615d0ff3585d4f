// Package atlas implements the glyph atlas and per-frame mesh generation
// for the GPU client (spec.md §4.8). A shelf-packing allocator rasterizes
// glyphs on first use into an RGBA texture; dirty grid cells are turned
// into textured quads for the client's renderer.
//
// Grounded on javanhut-RavenTerminal's render.Renderer.loadFontData: an
// opentype face rasterized glyph-by-glyph into a fixed-size RGBA image via
// golang.org/x/image/font, packed left-to-right/top-to-bottom, converted
// to a single-channel alpha texture. This package keeps that allocation
// shape but makes it incremental (one glyph per cache miss, not a
// whole-font prepass) and exposes it independent of any specific GPU
// binding, so the GL-calling code in internal/gpurender stays thin.
package atlas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// reservedSize is a small opaque block carved out of the atlas's top-left
// corner so flat-colored quads (background, cursor, underline) can sample
// a guaranteed-opaque texel from the same texture as glyphs, without a
// second shader or draw call.
const reservedSize = 2

// GlyphKey identifies one rasterized glyph variant: a rune at a given
// weight/style combination (spec.md §4.8: bold/italic affect which glyph
// variant is rasterized, not just the mesh's color).
type GlyphKey struct {
	Rune   rune
	Bold   bool
	Italic bool
}

// Glyph is one packed atlas entry, in both pixel and normalized-UV space.
type Glyph struct {
	PixelX, PixelY          int
	PixelWidth, PixelHeight int
	U0, V0, U1, V1          float32
}

// shelf is one packing row of the atlas bitmap.
type shelf struct {
	y, height, cursorX int
}

// Atlas packs rasterized glyphs into a fixed-size RGBA bitmap using a
// shelf allocator: O(1) amortized per glyph, full-clear-and-repack on
// exhaustion (spec.md §4.8).
type Atlas struct {
	size   int
	img    *image.RGBA
	shelves []shelf
	glyphs map[GlyphKey]Glyph

	face     font.Face
	fallback rune // glyph substituted when a rune has no outline ("tofu")

	dirty bool // true when img has changed since the caller last uploaded it
}

// New creates an atlas of size x size pixels rasterizing with face. The
// caller owns face's lifetime (e.g. call face.Close() on font reload).
func New(face font.Face, size int) *Atlas {
	a := &Atlas{
		size:     size,
		img:      image.NewRGBA(image.Rect(0, 0, size, size)),
		glyphs:   make(map[GlyphKey]Glyph),
		face:     face,
		fallback: '?',
	}
	a.reset()
	return a
}

// SolidUV returns a UV coordinate inside the reserved opaque block, for
// quads that want a flat fill rather than a rasterized glyph.
func (a *Atlas) SolidUV() (u, v float32) {
	half := float32(reservedSize) / 2
	return half / float32(a.size), half / float32(a.size)
}

// LoadFace parses raw font bytes (e.g. an embedded TTF/OTF) into a face
// sized for a given point size and DPI, following RavenTerminal's
// opentype.Parse + opentype.NewFace pattern.
func LoadFace(fontData []byte, points float64, dpi float64) (font.Face, error) {
	parsed, err := opentype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("atlas: parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    points,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("atlas: create face: %w", err)
	}
	return face, nil
}

// CellMetrics reports the fixed cell width/height the current face
// implies, derived from 'M''s advance and the face's ascent+descent, the
// same measurement RavenTerminal's Renderer uses to lay out its grid.
func CellMetrics(face font.Face) (width, height int) {
	metrics := face.Metrics()
	height = (metrics.Ascent + metrics.Descent).Ceil()
	advance, _ := face.GlyphAdvance('M')
	width = advance.Ceil()
	return width, height
}

// Lookup returns the packed Glyph for key, rasterizing it on first
// request. A rune with no outline in the face falls back to a tofu glyph,
// which is itself rasterized and cached under Rune: a.fallback.
func (a *Atlas) Lookup(key GlyphKey) (Glyph, error) {
	if g, ok := a.glyphs[key]; ok {
		return g, nil
	}

	if _, has := a.face.GlyphAdvance(key.Rune); !has {
		if key.Rune == a.fallback {
			return Glyph{}, fmt.Errorf("atlas: fallback glyph %q missing from face", a.fallback)
		}
		return a.Lookup(GlyphKey{Rune: a.fallback, Bold: key.Bold, Italic: key.Italic})
	}

	cw, ch := CellMetrics(a.face)
	x, y, ok := a.allocate(cw, ch)
	if !ok {
		a.reset()
		x, y, ok = a.allocate(cw, ch)
		if !ok {
			return Glyph{}, fmt.Errorf("atlas: glyph %q does not fit even in an empty atlas", key.Rune)
		}
	}

	metrics := a.face.Metrics()
	drawer := &font.Drawer{
		Dst:  a.img,
		Src:  image.White,
		Face: a.face,
		Dot:  fixed.P(x, y+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(string(key.Rune))

	g := Glyph{
		PixelX: x, PixelY: y,
		PixelWidth: cw, PixelHeight: ch,
		U0: float32(x) / float32(a.size),
		V0: float32(y) / float32(a.size),
		U1: float32(x+cw) / float32(a.size),
		V1: float32(y+ch) / float32(a.size),
	}
	a.glyphs[key] = g
	a.dirty = true
	return g, nil
}

// allocate finds room for a cw x ch glyph using the current shelves,
// opening a new shelf if none has room and the atlas has vertical space
// left.
func (a *Atlas) allocate(cw, ch int) (x, y int, ok bool) {
	for i := range a.shelves {
		s := &a.shelves[i]
		if ch > s.height {
			continue
		}
		if s.cursorX+cw > a.size {
			continue
		}
		x, y = s.cursorX, s.y
		s.cursorX += cw
		return x, y, true
	}

	lastY := 0
	if n := len(a.shelves); n > 0 {
		lastY = a.shelves[n-1].y + a.shelves[n-1].height
	}
	if lastY+ch > a.size {
		return 0, 0, false
	}
	a.shelves = append(a.shelves, shelf{y: lastY, height: ch, cursorX: cw})
	return 0, lastY, true
}

// reset clears the atlas bitmap and every cached glyph, used when the
// shelf allocator runs out of room (spec.md §4.8: "full-clear-on-
// exhaustion" rather than an LRU eviction policy, since re-rasterizing a
// glyph is cheap and most live sessions only ever touch a small working
// set of runes).
func (a *Atlas) reset() {
	draw.Draw(a.img, a.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	for y := 0; y < reservedSize; y++ {
		for x := 0; x < reservedSize; x++ {
			a.img.Set(x, y, color.White)
		}
	}
	a.shelves = []shelf{{y: 0, height: reservedSize, cursorX: reservedSize}}
	a.glyphs = make(map[GlyphKey]Glyph)
	a.dirty = true
}

// Image returns the current RGBA bitmap for upload to a GPU texture.
func (a *Atlas) Image() *image.RGBA { return a.img }

// TakeDirty reports and clears whether the bitmap changed since the last
// call, so the caller knows when a texture re-upload is due.
func (a *Atlas) TakeDirty() bool {
	d := a.dirty
	a.dirty = false
	return d
}
