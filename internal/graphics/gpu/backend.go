// Package gpu is the narrow boundary between the render pipeline and the
// graphics API. Everything above it (shader cache, transform table, batcher)
// talks to a Backend so that it can run against a recording fake in tests.
package gpu

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// AttribKind selects how a vertex attribute is fed to the shader.
type AttribKind int

const (
	AttribFloat AttribKind = iota
	AttribUint
	AttribInt
)

// Attribute describes one per-vertex attribute stored in its own buffer.
type Attribute struct {
	Location   uint32
	Components int32
	Kind       AttribKind
}

// VertexArray is a VAO with one buffer per attribute plus an element buffer.
type VertexArray struct {
	VAO     uint32
	Buffers []uint32
	EBO     uint32
	Attribs []Attribute
}

// TextureTarget names the texture binding target.
type TextureTarget int

const (
	Texture2D TextureTarget = iota
	Texture2DArray
)

// Backend is implemented by GL and by gputest.Recorder.
type Backend interface {
	CompileProgram(vertexSrc, fragmentSrc string) (uint32, error)
	UniformLocation(program uint32, name string) int32
	BindUniformBlock(program uint32, block string, binding uint32) bool
	UseProgram(program uint32)

	UniformInt(location int32, v int32)
	UniformFloat(location int32, v float32)
	UniformVec2(location int32, v mgl32.Vec2)
	UniformVec3(location int32, v mgl32.Vec3)
	UniformVec4(location int32, v mgl32.Vec4)
	UniformMat4(location int32, m mgl32.Mat4)

	NewUniformBuffer(binding uint32, sizeBytes int) uint32
	UpdateUniformBuffer(buffer uint32, data []float32)

	NewVertexArray(attribs []Attribute) *VertexArray
	// UploadAttribute replaces the contents of attribute buffer attr.
	// data is []float32, []uint32 or []int32.
	UploadAttribute(va *VertexArray, attr int, data any)
	UploadIndices(va *VertexArray, indices []uint32)
	DrawIndexed(va *VertexArray, count int32)

	NewTextureArray(pages []*image.RGBA) uint32
	// NewFloatTexture creates a one-row RGBA32F texture, one texel per 4 floats.
	NewFloatTexture(data []float32) uint32
	BindTexture(unit uint32, target TextureTarget, texture uint32)
}
