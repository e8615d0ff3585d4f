package gpurender

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// vertexShaderSource and fragmentShaderSource implement one combined
// pipeline for both flat-colored quads (background, cursor, underline) and
// textured glyph quads: every atlas.Vertex carries a UV into the glyph
// atlas, and flat quads point it at atlas.Atlas.SolidUV's reserved opaque
// texel. This collapses RavenTerminal's two separate programs (a plain
// quad shader and a text shader) into one, since Scarab's mesh already
// interleaves UV and color per vertex rather than using per-draw uniforms.
const vertexShaderSource = `
#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aTexCoord;
layout (location = 2) in vec4 aColor;
uniform mat4 projection;
out vec2 TexCoord;
out vec4 Color;
void main() {
	gl_Position = projection * vec4(aPos, 0.0, 1.0);
	TexCoord = aTexCoord;
	Color = aColor;
}
` + "\x00"

const fragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
in vec4 Color;
out vec4 FragColor;
uniform sampler2D atlasTex;
void main() {
	float alpha = texture(atlasTex, TexCoord).r;
	FragColor = vec4(Color.rgb, Color.a * alpha);
}
` + "\x00"

// orthoMatrix builds a standard orthographic projection, column-major for
// OpenGL's uniform upload, matching RavenTerminal's render.orthoMatrix.
func orthoMatrix(left, right, bottom, top, near, far float32) [16]float32 {
	return [16]float32{
		2 / (right - left), 0, 0, 0,
		0, 2 / (top - bottom), 0, 0,
		0, 0, -2 / (far - near), 0,
		-(right + left) / (right - left), -(top + bottom) / (top - bottom), -(far + near) / (far - near), 1,
	}
}

// createProgram links a vertex+fragment shader pair, grounded on
// RavenTerminal's render.createProgram.
func createProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("gpurender: link program: %v", infoLog)
	}

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("gpurender: compile shader: %v", infoLog)
	}
	return shader, nil
}
