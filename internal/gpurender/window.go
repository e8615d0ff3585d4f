// Package gpurender owns the GPU client's GLFW window, GL context, shader
// programs, and per-frame draw calls that turn an atlas.BuildMesh vertex
// buffer into pixels (spec.md §4.9).
//
// Grounded on javanhut-RavenTerminal's window.NewWindow (GL context setup)
// and render.Renderer.initGL/Render (shader programs, VAO/VBO handling),
// trimmed to a single pane: no tab bar, no help overlay, no icon loading —
// those belong to the UI-overlay collaborator excluded by spec.md §1.
package gpurender

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window wraps one GLFW window and its GL context.
type Window struct {
	handle *glfw.Window
	width  int
	height int
}

// NewWindow creates a GLFW window with an OpenGL 4.1 core-profile context,
// matching RavenTerminal's window.NewWindow context-creation hints.
func NewWindow(title string, width, height int) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("gpurender: init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DoubleBuffer, glfw.True)

	handle, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("gpurender: create window: %w", err)
	}
	handle.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		handle.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("gpurender: init gl: %w", err)
	}

	glfw.SwapInterval(1)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	return &Window{handle: handle, width: width, height: height}, nil
}

// Handle exposes the underlying glfw.Window for callback registration.
func (w *Window) Handle() *glfw.Window { return w.handle }

// Size returns the window's current framebuffer size in pixels.
func (w *Window) Size() (int, int) { return w.width, w.height }

// SetSize updates the cached framebuffer size, called from the
// framebuffer-size callback on resize.
func (w *Window) SetSize(width, height int) { w.width, w.height = width, height }

// ShouldClose reports whether the user has requested the window close.
func (w *Window) ShouldClose() bool { return w.handle.ShouldClose() }

// SwapBuffers presents the frame and polls for input events.
func (w *Window) SwapBuffers() {
	w.handle.SwapBuffers()
	glfw.PollEvents()
}

// Close destroys the window and terminates GLFW.
func (w *Window) Close() {
	w.handle.Destroy()
	glfw.Terminate()
}
