package atlas

import "golang.org/x/image/font/gofont/gomono"

// DefaultFontData returns the bundled monospace font used when no
// user-configured font file is available. golang.org/x/image ships
// gofont/gomono's TTF bytes directly (the teacher's pack has no font
// binaries of its own to embed), so the default face comes from the same
// golang.org/x/image dependency the atlas already rasterizes with,
// instead of vendoring a font file.
func DefaultFontData() []byte {
	return gomono.TTF
}
