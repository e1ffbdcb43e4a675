package gpu

import (
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// GL is the OpenGL 4.1 core backend. The context must be current on the
// calling thread and gl.Init must already have succeeded.
type GL struct{}

func NewGL() *GL {
	return &GL{}
}

func (GL) CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertexShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
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

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func (GL) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (GL) BindUniformBlock(program uint32, block string, binding uint32) bool {
	idx := gl.GetUniformBlockIndex(program, gl.Str(block+"\x00"))
	if idx == gl.INVALID_INDEX {
		return false
	}
	gl.UniformBlockBinding(program, idx, binding)
	return true
}

func (GL) UseProgram(program uint32) { gl.UseProgram(program) }

func (GL) UniformInt(location int32, v int32)     { gl.Uniform1i(location, v) }
func (GL) UniformFloat(location int32, v float32) { gl.Uniform1f(location, v) }
func (GL) UniformVec2(location int32, v mgl32.Vec2) {
	gl.Uniform2f(location, v[0], v[1])
}
func (GL) UniformVec3(location int32, v mgl32.Vec3) {
	gl.Uniform3f(location, v[0], v[1], v[2])
}
func (GL) UniformVec4(location int32, v mgl32.Vec4) {
	gl.Uniform4f(location, v[0], v[1], v[2], v[3])
}
func (GL) UniformMat4(location int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (GL) NewUniformBuffer(binding uint32, sizeBytes int) uint32 {
	var ubo uint32
	gl.GenBuffers(1, &ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, sizeBytes, nil, gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, binding, ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return ubo
}

func (GL) UpdateUniformBuffer(buffer uint32, data []float32) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, buffer)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
}

func (GL) NewVertexArray(attribs []Attribute) *VertexArray {
	va := &VertexArray{Attribs: attribs, Buffers: make([]uint32, len(attribs))}
	gl.GenVertexArrays(1, &va.VAO)
	gl.BindVertexArray(va.VAO)

	gl.GenBuffers(int32(len(attribs)), &va.Buffers[0])
	for i, a := range attribs {
		gl.BindBuffer(gl.ARRAY_BUFFER, va.Buffers[i])
		gl.EnableVertexAttribArray(a.Location)
		switch a.Kind {
		case AttribFloat:
			gl.VertexAttribPointerWithOffset(a.Location, a.Components, gl.FLOAT, false, a.Components*4, 0)
		case AttribUint:
			gl.VertexAttribIPointer(a.Location, a.Components, gl.UNSIGNED_INT, a.Components*4, gl.PtrOffset(0))
		case AttribInt:
			gl.VertexAttribIPointer(a.Location, a.Components, gl.INT, a.Components*4, gl.PtrOffset(0))
		}
	}

	gl.GenBuffers(1, &va.EBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.EBO)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return va
}

func (GL) UploadAttribute(va *VertexArray, attr int, data any) {
	gl.BindBuffer(gl.ARRAY_BUFFER, va.Buffers[attr])
	switch d := data.(type) {
	case []float32:
		bufferData(gl.ARRAY_BUFFER, len(d)*4, d)
	case []uint32:
		bufferData(gl.ARRAY_BUFFER, len(d)*4, d)
	case []int32:
		bufferData(gl.ARRAY_BUFFER, len(d)*4, d)
	default:
		panic(fmt.Sprintf("gpu: unsupported attribute data %T", data))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (GL) UploadIndices(va *VertexArray, indices []uint32) {
	gl.BindVertexArray(va.VAO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.EBO)
	bufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, indices)
	gl.BindVertexArray(0)
}

// bufferData orphans the old storage so the driver never stalls on a buffer
// the GPU is still reading.
func bufferData(target uint32, size int, data any) {
	if size == 0 {
		gl.BufferData(target, 0, nil, gl.DYNAMIC_DRAW)
		return
	}
	gl.BufferData(target, size, gl.Ptr(data), gl.DYNAMIC_DRAW)
}

func (GL) DrawIndexed(va *VertexArray, count int32) {
	gl.BindVertexArray(va.VAO)
	gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}

func (GL) NewTextureArray(pages []*image.RGBA) uint32 {
	if len(pages) == 0 {
		return 0
	}
	width := pages[0].Rect.Dx()
	height := pages[0].Rect.Dy()

	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, texture)

	gl.TexImage3D(
		gl.TEXTURE_2D_ARRAY,
		0,
		gl.RGBA8,
		int32(width),
		int32(height),
		int32(len(pages)),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		nil,
	)

	for i, img := range pages {
		gl.TexSubImage3D(
			gl.TEXTURE_2D_ARRAY,
			0,
			0, 0, int32(i),
			int32(width),
			int32(height),
			1,
			gl.RGBA,
			gl.UNSIGNED_BYTE,
			gl.Ptr(img.Pix),
		)
	}

	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.BindTexture(gl.TEXTURE_2D_ARRAY, 0)
	return texture
}

func (GL) NewFloatTexture(data []float32) uint32 {
	texels := len(data) / 4
	if texels == 0 {
		// keep the sampler valid even with nothing packed
		data = []float32{0, 0, 1, 1}
		texels = 1
	}

	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(texels), 1, 0, gl.RGBA, gl.FLOAT, gl.Ptr(data))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texture
}

func (GL) BindTexture(unit uint32, target TextureTarget, texture uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	switch target {
	case Texture2DArray:
		gl.BindTexture(gl.TEXTURE_2D_ARRAY, texture)
	default:
		gl.BindTexture(gl.TEXTURE_2D, texture)
	}
}
