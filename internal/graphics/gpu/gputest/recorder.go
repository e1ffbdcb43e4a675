// Package gputest provides a gpu.Backend that records calls instead of
// talking to a driver.
package gputest

import (
	"fmt"
	"image"
	"regexp"
	"slices"
	"strings"

	"packed-flame/internal/graphics/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

type AttributeUpload struct {
	VAO  uint32
	Attr int
	Data any
}

type IndexUpload struct {
	VAO     uint32
	Indices []uint32
}

type Draw struct {
	Program uint32
	VAO     uint32
	Count   int32
}

type UniformSet struct {
	Program  uint32
	Location int32
	Value    any
}

type program struct {
	uniforms map[string]int32
	blocks   map[string]bool
}

var (
	uniformDecl = regexp.MustCompile(`uniform\s+\w+\s+(\w+)\s*(\[[^\]]*\])?\s*;`)
	blockDecl   = regexp.MustCompile(`uniform\s+(\w+)\s*\{`)
)

// Recorder implements gpu.Backend. Uniform and block names are discovered by
// scanning the program sources for declarations.
type Recorder struct {
	// FailCompile makes CompileProgram fail for sources containing this text.
	FailCompile string

	nextID   uint32
	current  uint32
	programs map[uint32]*program

	Programs         []uint32
	Uniforms         []UniformSet
	UniformBuffers   map[uint32][]float32
	UniformUploads   int
	AttributeUploads []AttributeUpload
	IndexUploads     []IndexUpload
	Draws            []Draw
	TextureArrays    [][]*image.RGBA
	FloatTextures    [][]float32
	BoundTextures    map[uint32]uint32
}

var _ gpu.Backend = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{
		programs:       make(map[uint32]*program),
		UniformBuffers: make(map[uint32][]float32),
		BoundTextures:  make(map[uint32]uint32),
	}
}

func (r *Recorder) id() uint32 {
	r.nextID++
	return r.nextID
}

func (r *Recorder) CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	if r.FailCompile != "" {
		for _, src := range []string{vertexSrc, fragmentSrc} {
			if strings.Contains(src, r.FailCompile) {
				return 0, fmt.Errorf("failed to compile shader: 0:1: error near %q", r.FailCompile)
			}
		}
	}
	p := &program{uniforms: make(map[string]int32), blocks: make(map[string]bool)}
	loc := int32(0)
	for _, src := range []string{vertexSrc, fragmentSrc} {
		for _, m := range uniformDecl.FindAllStringSubmatch(src, -1) {
			if _, ok := p.uniforms[m[1]]; !ok {
				p.uniforms[m[1]] = loc
				loc++
			}
		}
		for _, m := range blockDecl.FindAllStringSubmatch(src, -1) {
			p.blocks[m[1]] = true
		}
	}
	id := r.id()
	r.programs[id] = p
	r.Programs = append(r.Programs, id)
	return id, nil
}

func (r *Recorder) UniformLocation(program uint32, name string) int32 {
	p := r.programs[program]
	if p == nil {
		return -1
	}
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (r *Recorder) BindUniformBlock(program uint32, block string, binding uint32) bool {
	p := r.programs[program]
	return p != nil && p.blocks[block]
}

func (r *Recorder) UseProgram(program uint32) { r.current = program }

func (r *Recorder) set(location int32, v any) {
	r.Uniforms = append(r.Uniforms, UniformSet{Program: r.current, Location: location, Value: v})
}

func (r *Recorder) UniformInt(location int32, v int32)       { r.set(location, v) }
func (r *Recorder) UniformFloat(location int32, v float32)   { r.set(location, v) }
func (r *Recorder) UniformVec2(location int32, v mgl32.Vec2) { r.set(location, v) }
func (r *Recorder) UniformVec3(location int32, v mgl32.Vec3) { r.set(location, v) }
func (r *Recorder) UniformVec4(location int32, v mgl32.Vec4) { r.set(location, v) }
func (r *Recorder) UniformMat4(location int32, m mgl32.Mat4) { r.set(location, m) }

func (r *Recorder) NewUniformBuffer(binding uint32, sizeBytes int) uint32 {
	id := r.id()
	r.UniformBuffers[id] = make([]float32, sizeBytes/4)
	return id
}

func (r *Recorder) UpdateUniformBuffer(buffer uint32, data []float32) {
	r.UniformBuffers[buffer] = slices.Clone(data)
	r.UniformUploads++
}

func (r *Recorder) NewVertexArray(attribs []gpu.Attribute) *gpu.VertexArray {
	va := &gpu.VertexArray{VAO: r.id(), Attribs: attribs}
	for range attribs {
		va.Buffers = append(va.Buffers, r.id())
	}
	va.EBO = r.id()
	return va
}

func (r *Recorder) UploadAttribute(va *gpu.VertexArray, attr int, data any) {
	var cp any
	switch d := data.(type) {
	case []float32:
		cp = slices.Clone(d)
	case []uint32:
		cp = slices.Clone(d)
	case []int32:
		cp = slices.Clone(d)
	default:
		panic(fmt.Sprintf("gputest: unsupported attribute data %T", data))
	}
	r.AttributeUploads = append(r.AttributeUploads, AttributeUpload{VAO: va.VAO, Attr: attr, Data: cp})
}

func (r *Recorder) UploadIndices(va *gpu.VertexArray, indices []uint32) {
	r.IndexUploads = append(r.IndexUploads, IndexUpload{VAO: va.VAO, Indices: slices.Clone(indices)})
}

func (r *Recorder) DrawIndexed(va *gpu.VertexArray, count int32) {
	r.Draws = append(r.Draws, Draw{Program: r.current, VAO: va.VAO, Count: count})
}

func (r *Recorder) NewTextureArray(pages []*image.RGBA) uint32 {
	r.TextureArrays = append(r.TextureArrays, pages)
	return r.id()
}

func (r *Recorder) NewFloatTexture(data []float32) uint32 {
	r.FloatTextures = append(r.FloatTextures, slices.Clone(data))
	return r.id()
}

func (r *Recorder) BindTexture(unit uint32, target gpu.TextureTarget, texture uint32) {
	r.BoundTextures[unit] = texture
}

// Reset forgets recorded uploads, draws and uniform pushes but keeps
// compiled programs and buffers.
func (r *Recorder) Reset() {
	r.Uniforms = nil
	r.UniformUploads = 0
	r.AttributeUploads = nil
	r.IndexUploads = nil
	r.Draws = nil
}

// LastIndexUpload returns the most recent element upload for vao.
func (r *Recorder) LastIndexUpload(vao uint32) ([]uint32, bool) {
	for i := len(r.IndexUploads) - 1; i >= 0; i-- {
		if r.IndexUploads[i].VAO == vao {
			return r.IndexUploads[i].Indices, true
		}
	}
	return nil, false
}

// LastAttributeUpload returns the most recent upload for attribute attr of vao.
func (r *Recorder) LastAttributeUpload(vao uint32, attr int) (any, bool) {
	for i := len(r.AttributeUploads) - 1; i >= 0; i-- {
		u := r.AttributeUploads[i]
		if u.VAO == vao && u.Attr == attr {
			return u.Data, true
		}
	}
	return nil, false
}
