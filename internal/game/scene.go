package game

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"packed-flame/internal/animation"
	"packed-flame/internal/config"
	"packed-flame/internal/graphics"
	"packed-flame/internal/graphics/batcher"
	"packed-flame/internal/graphics/geometry"
	"packed-flame/internal/graphics/gpu"
	"packed-flame/internal/texpack"
	"packed-flame/pkg/model"

	"github.com/go-gl/mathgl/mgl32"
)

// FlameSlot is the transform slot reserved for the flame billboard. Slot 0
// stays identity for static geometry.
const FlameSlot = 1

// DrawShader draws the model and the flame.
const DrawShader = graphics.ShaderTexturePackerTransformUBO1024

// Scene holds everything built at startup and read by every frame.
type Scene struct {
	log       *slog.Logger
	Shaders   *graphics.ShaderCache
	Batcher   *batcher.Batcher
	Packer    *texpack.Packer
	Textures  *graphics.AtlasTextures
	Flame     *animation.Atlas
	Flicker   *Flicker
	requested []graphics.ShaderType

	flameTexture  string
	flamePosition mgl32.Vec3
	flameTemplate batcher.DrawEntry
	statics       []batcher.DrawEntry
	// crosshairID is zero when the crosshair shader was not requested.
	crosshairID batcher.ObjectID
}

// FrameState is the mutable per-frame data owned by the render thread.
type FrameState struct {
	Transforms *graphics.TransformTable
	FlameID    batcher.ObjectID
	// LastFlameUVs are the packed UVs queued on the previous frame.
	LastFlameUVs []mgl32.Vec2
	Frames       uint64
}

// FrameInput carries the per-frame values produced by the window and camera.
type FrameInput struct {
	TimeMs        float64
	DT            float64
	View          mgl32.Mat4
	Projection    mgl32.Mat4
	CameraForward mgl32.Vec3
	AspectRatio   float32
}

// ParseShaders resolves configured shader names.
func ParseShaders(names []string) ([]graphics.ShaderType, error) {
	out := make([]graphics.ShaderType, 0, len(names))
	for _, n := range names {
		st, err := graphics.ParseShaderType(n)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// NewScene compiles shaders, packs textures, loads the flame animation and
// the model, and queues nothing yet. Any error is fatal to startup.
func NewScene(cfg *config.Config, backend gpu.Backend, log *slog.Logger) (*Scene, *FrameState, error) {
	requested, err := ParseShaders(cfg.Shaders)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", graphics.ErrShaderInit, err)
	}
	if !slices.Contains(requested, DrawShader) {
		return nil, nil, fmt.Errorf("%w: %s must be requested", graphics.ErrShaderInit, DrawShader)
	}
	shaders, err := graphics.NewShaderCache(backend, cfg.Assets.ShadersDir, requested, log)
	if err != nil {
		return nil, nil, err
	}

	sources, err := texpack.CollectSources(cfg.Assets.Dir, cfg.Assets.PackedDir)
	if err != nil {
		return nil, nil, err
	}
	packer, err := texpack.Pack(sources, cfg.Assets.PackedDir, texpack.Options{
		SideLength: cfg.Packer.SideLength,
		Padding:    cfg.Packer.Padding,
		Workers:    cfg.Packer.Workers,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, err
	}
	textures, err := graphics.UploadPackedTextures(backend, packer)
	if err != nil {
		return nil, nil, err
	}

	flame, err := animation.New(cfg.Assets.FlameManifest, cfg.Assets.FlameSheet, cfg.Animation.FPS, cfg.Animation.Loop)
	if err != nil {
		return nil, nil, err
	}

	s := &Scene{
		log:       log,
		Shaders:   shaders,
		Packer:    packer,
		Textures:  textures,
		Flame:     flame,
		Flicker:   NewFlicker(cfg.Animation.Flicker),
		requested: requested,
		Batcher: batcher.New(backend, shaders, batcher.Limits{
			MaxVertices: cfg.Batch.MaxVertices,
			MaxIndices:  cfg.Batch.MaxIndices,
			MaxEntries:  cfg.Batch.MaxEntries,
		}, log),
		flameTexture:  filepath.ToSlash(filepath.Clean(cfg.Assets.FlameSheet)),
		flamePosition: mgl32.Vec3(cfg.Animation.Base).Add(mgl32.Vec3{0, cfg.Animation.Height / 2, 0}),
	}

	var ids batcher.IDGenerator
	if cfg.Assets.Model != "" {
		meshes, err := loadModel(cfg.Assets.Model, cfg.Assets.TextureDir, packer)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range meshes {
			s.statics = append(s.statics, packedEntry(ids.Next(), m.Indices, m.Positions, m.UVs, 0, m.Page, m.BBox))
		}
	}

	page, bbox, err := packer.Location(s.flameTexture)
	if err != nil {
		return nil, nil, fmt.Errorf("flame sheet must be packed: %w", err)
	}
	state := &FrameState{
		Transforms: graphics.NewTransformTable(backend, graphics.TransformBinding),
		FlameID:    ids.Next(),
	}
	s.flameTemplate = packedEntry(state.FlameID,
		geometry.RectangleIndices(),
		geometry.RectangleVertices(0, 0, cfg.Animation.Width, cfg.Animation.Height),
		nil, FlameSlot, page, bbox)

	if shaders.Has(CrosshairShader) {
		s.crosshairID = ids.Next()
		shaders.SetUniform(CrosshairShader, graphics.RGBColor, crosshairColor)
	}

	for _, st := range requested {
		textures.BindSamplers(shaders, st)
	}
	log.Info("scene ready", "textures", len(packer.Names()), "pages", packer.PageCount(),
		"reused", packer.Reused(), "static_entries", len(s.statics), "flame_frames", flame.FrameCount())
	return s, state, nil
}

func loadModel(path, textureDir string, atlas model.Atlas) ([]model.PackedMesh, error) {
	loader := model.NewLoader(filepath.Dir(path), textureDir)
	meshes, err := loader.LoadMeshes(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err != nil {
		return nil, err
	}
	return model.PackMeshes(meshes, atlas)
}

func packedEntry(id batcher.ObjectID, indices []uint32, positions []mgl32.Vec3, uvs []mgl32.Vec2, slot uint32, page, bbox int) batcher.DrawEntry {
	n := len(positions)
	e := batcher.DrawEntry{
		ID:               id,
		Indices:          indices,
		Positions:        positions,
		UVs:              uvs,
		TransformIndices: make([]uint32, n),
		PageIndices:      make([]int32, n),
		BBoxIndices:      make([]int32, n),
	}
	for i := range n {
		e.TransformIndices[i] = slot
		e.PageIndices[i] = int32(page)
		e.BBoxIndices[i] = int32(bbox)
	}
	return e
}
