package gpurender

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/scarab-term/scarab/internal/atlas"
)

// vertexSize is the byte size of one atlas.Vertex (2 pos + 2 uv + 4 color,
// all float32), used to compute vertex attribute strides and buffer sizes.
const vertexSize = 8 * 4

// Renderer draws atlas.BuildMesh output against the glyph atlas texture.
// Grounded on RavenTerminal's Renderer.initGL/Render: one shader program,
// one dynamic VBO re-uploaded per frame, an orthographic projection sized
// to the framebuffer.
type Renderer struct {
	program  uint32
	vao, vbo uint32
	texture  uint32
	projLoc  int32
	texLoc   int32
}

// NewRenderer compiles the shader program and allocates GL buffers. Must
// be called with a current GL context (after gpurender.NewWindow).
func NewRenderer() (*Renderer, error) {
	program, err := createProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		program: program,
		projLoc: gl.GetUniformLocation(program, gl.Str("projection\x00")),
		texLoc:  gl.GetUniformLocation(program, gl.Str("atlasTex\x00")),
	}

	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, vertexSize, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, vertexSize, 2*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, vertexSize, 4*4)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	gl.GenTextures(1, &r.texture)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return r, nil
}

// SyncAtlas re-uploads the atlas bitmap to the GL texture if it changed
// since the last call, following RavenTerminal's alpha-only texture
// upload (the atlas bitmap's alpha channel carries glyph coverage; RGB is
// unused since per-vertex color supplies the actual paint color).
func (r *Renderer) SyncAtlas(a *atlas.Atlas) {
	if !a.TakeDirty() {
		return
	}
	img := a.Image()
	size := img.Bounds().Dx()
	alphaOnly := make([]byte, size*size)
	for i := 0; i < size*size; i++ {
		alphaOnly[i] = img.Pix[i*4+3]
	}
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, int32(size), int32(size), 0,
		gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(alphaOnly))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// DrawFrame clears the framebuffer and draws one mesh, sized to a
// framebuffer of the given pixel dimensions.
func (r *Renderer) DrawFrame(verts []atlas.Vertex, fbWidth, fbHeight int, clear [4]float32) {
	gl.Viewport(0, 0, int32(fbWidth), int32(fbHeight))
	gl.ClearColor(clear[0], clear[1], clear[2], clear[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)

	if len(verts) == 0 {
		return
	}

	gl.UseProgram(r.program)
	proj := orthoMatrix(0, float32(fbWidth), float32(fbHeight), 0, -1, 1)
	gl.UniformMatrix4fv(r.projLoc, 1, false, &proj[0])
	gl.Uniform1i(r.texLoc, 0)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*int(vertexSize), gl.Ptr(verts), gl.DYNAMIC_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(verts)))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

// Close releases GL resources.
func (r *Renderer) Close() {
	gl.DeleteTextures(1, &r.texture)
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteProgram(r.program)
}
