package graphics

import (
	"errors"
	"fmt"
	"log/slog"

	"packed-flame/internal/graphics/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrShaderInit wraps every failure to build a requested program. It is
	// not recoverable.
	ErrShaderInit = errors.New("shader initialization failed")
	// ErrShaderNotLoaded is returned for shader types that were not requested.
	ErrShaderNotLoaded = errors.New("shader not loaded")
)

type uniformKey struct {
	shader ShaderType
	role   UniformRole
}

type loadedProgram struct {
	id        uint32
	locations [uniformRoleCount]int32
}

// ShaderCache owns the compiled programs for an explicit set of shader types
// and remembers the last value pushed for every (shader, role) pair.
type ShaderCache struct {
	backend  gpu.Backend
	log      *slog.Logger
	programs map[ShaderType]*loadedProgram
	values   map[uniformKey]any
	warned   map[uniformKey]bool
	current  uint32
}

// NewShaderCache compiles exactly the requested shader types from dir. Any
// read, compile or link error aborts construction.
func NewShaderCache(backend gpu.Backend, dir string, requested []ShaderType, log *slog.Logger) (*ShaderCache, error) {
	if log == nil {
		log = slog.Default()
	}
	sc := &ShaderCache{
		backend:  backend,
		log:      log.With("component", "shader_cache"),
		programs: make(map[ShaderType]*loadedProgram),
		values:   make(map[uniformKey]any),
		warned:   make(map[uniformKey]bool),
	}

	for _, st := range requested {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %v", ErrShaderInit, st)
		}
		if _, done := sc.programs[st]; done {
			continue
		}
		vertexSrc, fragmentSrc, err := readShaderSources(dir, st)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrShaderInit, st, err)
		}
		id, err := backend.CompileProgram(vertexSrc, fragmentSrc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrShaderInit, st, err)
		}

		p := &loadedProgram{id: id}
		for role := range uniformRoleCount {
			p.locations[role] = backend.UniformLocation(id, uniformNames[role])
		}
		if backend.BindUniformBlock(id, TransformBlockName, TransformBinding) {
			sc.log.Debug("bound transform block", "shader", st, "binding", TransformBinding)
		}
		sc.programs[st] = p
		sc.log.Info("compiled shader", "shader", st, "program", id)
	}
	return sc, nil
}

// Has reports whether st was requested and compiled.
func (sc *ShaderCache) Has(st ShaderType) bool {
	_, ok := sc.programs[st]
	return ok
}

// Declares reports whether the program for st has a uniform for role.
func (sc *ShaderCache) Declares(st ShaderType, role UniformRole) bool {
	p, ok := sc.programs[st]
	return ok && role >= 0 && role < uniformRoleCount && p.locations[role] >= 0
}

// Use binds the program for st.
func (sc *ShaderCache) Use(st ShaderType) error {
	p, ok := sc.programs[st]
	if !ok {
		return fmt.Errorf("%w: %s", ErrShaderNotLoaded, st)
	}
	if sc.current != p.id {
		sc.backend.UseProgram(p.id)
		sc.current = p.id
	}
	return nil
}

// SetUniform pushes value to role on st. A role the program does not declare
// is logged once and ignored. A value equal to the last one pushed for the
// same pair is skipped.
func (sc *ShaderCache) SetUniform(st ShaderType, role UniformRole, value any) {
	key := uniformKey{shader: st, role: role}
	p, ok := sc.programs[st]
	if !ok {
		sc.warnOnce(key, "uniform set on shader that was not loaded")
		return
	}
	if role < 0 || role >= uniformRoleCount || p.locations[role] < 0 {
		sc.warnOnce(key, "shader has no such uniform")
		return
	}
	if prev, seen := sc.values[key]; seen && prev == value {
		return
	}

	loc := p.locations[role]
	push, err := sc.pusher(loc, value)
	if err != nil {
		sc.warnOnce(key, err.Error())
		return
	}
	_ = sc.Use(st)
	push()
	sc.values[key] = value
}

func (sc *ShaderCache) pusher(loc int32, value any) (func(), error) {
	b := sc.backend
	switch v := value.(type) {
	case int:
		return func() { b.UniformInt(loc, int32(v)) }, nil
	case int32:
		return func() { b.UniformInt(loc, v) }, nil
	case bool:
		var i int32
		if v {
			i = 1
		}
		return func() { b.UniformInt(loc, i) }, nil
	case float32:
		return func() { b.UniformFloat(loc, v) }, nil
	case float64:
		return func() { b.UniformFloat(loc, float32(v)) }, nil
	case mgl32.Vec2:
		return func() { b.UniformVec2(loc, v) }, nil
	case mgl32.Vec3:
		return func() { b.UniformVec3(loc, v) }, nil
	case mgl32.Vec4:
		return func() { b.UniformVec4(loc, v) }, nil
	case mgl32.Mat4:
		return func() { b.UniformMat4(loc, v) }, nil
	}
	return nil, fmt.Errorf("unsupported uniform value type %T", value)
}

func (sc *ShaderCache) warnOnce(key uniformKey, msg string) {
	if sc.warned[key] {
		return
	}
	sc.warned[key] = true
	sc.log.Warn(msg, "shader", key.shader, "uniform", key.role)
}

// Invalidate forgets cached uniform values, forcing the next SetUniform for
// every pair to reach the driver.
func (sc *ShaderCache) Invalidate() {
	clear(sc.values)
	sc.current = 0
}
