package game

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"packed-flame/internal/config"
	"packed-flame/internal/graphics"
	"packed-flame/internal/graphics/gpu/gputest"
	"packed-flame/internal/logging"

	"github.com/go-gl/mathgl/mgl32"
)

const flameJSON = `{
  "frames": {
    "flame_0.png": {"frame": {"x": 0,  "y": 0, "w": 32, "h": 64}},
    "flame_1.png": {"frame": {"x": 32, "y": 0, "w": 32, "h": 64}},
    "flame_2.png": {"frame": {"x": 64, "y": 0, "w": 32, "h": 64}},
    "flame_3.png": {"frame": {"x": 96, "y": 0, "w": 32, "h": 64}}
  },
  "meta": {"image": "flame.png", "size": {"w": 128, "h": 64}}
}`

const lighterJSON = `{
  "textures": {"body": "lighter/body"},
  "elements": [{
    "from": [6, 0, 6], "to": [10, 8, 10],
    "faces": {"north": {"texture": "#body"}, "south": {"texture": "#body"}}
  }]
}`

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 200, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// testConfig lays out a small asset tree and points a config at it.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	assets := filepath.Join(root, "assets")
	writePNG(t, filepath.Join(assets, "textures", "lighter", "body.png"), 16, 16)
	writePNG(t, filepath.Join(assets, "spritesheets", "flame.png"), 128, 64)
	writeFile(t, filepath.Join(assets, "spritesheets", "flame.json"), flameJSON)
	writeFile(t, filepath.Join(assets, "models", "lighter.json"), lighterJSON)

	cfg := config.Default()
	cfg.Assets = config.AssetsConfig{
		Dir:           assets,
		PackedDir:     filepath.Join(assets, "packed_textures"),
		ShadersDir:    filepath.Join("..", "..", "assets", "shaders"),
		Model:         filepath.Join(assets, "models", "lighter.json"),
		TextureDir:    filepath.Join(assets, "textures"),
		FlameManifest: filepath.Join(assets, "spritesheets", "flame.json"),
		FlameSheet:    filepath.Join(assets, "spritesheets", "flame.png"),
	}
	cfg.Packer.SideLength = 256
	cfg.Animation.Flicker = 0
	return cfg
}

func frameInput(timeMs float64) FrameInput {
	return FrameInput{
		TimeMs:        timeMs,
		DT:            1.0 / 60,
		View:          mgl32.LookAtV(mgl32.Vec3{0, 2, 6}, mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 1, 0}),
		Projection:    mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 100),
		CameraForward: mgl32.Vec3{0, 0, -1},
		AspectRatio:   16.0 / 9.0,
	}
}

func TestNewSceneBuildsPipeline(t *testing.T) {
	rec := gputest.NewRecorder()
	scene, state, err := NewScene(testConfig(t), rec, logging.Discard())
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	if len(scene.statics) != 1 {
		t.Errorf("expected one static mesh, got %d", len(scene.statics))
	}
	if state.FlameID != 2 {
		t.Errorf("flame id = %d, want 2 after the model mesh", state.FlameID)
	}
	if scene.Packer.PageCount() != 1 || len(rec.TextureArrays) != 1 {
		t.Errorf("expected one packed page uploaded")
	}
}

func TestRunFrameSkipsRedundantWork(t *testing.T) {
	rec := gputest.NewRecorder()
	scene, state, err := NewScene(testConfig(t), rec, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}

	rec.Reset()
	RunFrame(scene, state, frameInput(0))
	if len(rec.Draws) != 1 {
		t.Fatalf("expected one batched draw, got %d", len(rec.Draws))
	}
	if rec.UniformUploads != 1 || len(rec.IndexUploads) != 1 {
		t.Errorf("first frame: %d transform uploads, %d index uploads", rec.UniformUploads, len(rec.IndexUploads))
	}
	first := state.LastFlameUVs

	// same animation frame, same camera
	rec.Reset()
	RunFrame(scene, state, frameInput(20))
	if len(rec.Draws) != 1 {
		t.Fatalf("expected one draw, got %d", len(rec.Draws))
	}
	if rec.UniformUploads != 0 || len(rec.IndexUploads) != 0 || len(rec.Uniforms) != 0 {
		t.Errorf("unchanged frame re-uploaded: %d transforms, %d indices, %d uniforms",
			rec.UniformUploads, len(rec.IndexUploads), len(rec.Uniforms))
	}

	// next animation frame: only the batch changes and the flame keeps its id
	rec.Reset()
	RunFrame(scene, state, frameInput(40))
	if len(rec.IndexUploads) != 1 || rec.UniformUploads != 0 {
		t.Errorf("frame change: %d index uploads, %d transform uploads", len(rec.IndexUploads), rec.UniformUploads)
	}
	if scene.Batcher.Len(DrawShader) != 2 {
		t.Errorf("flame should replace itself, batch holds %d entries", scene.Batcher.Len(DrawShader))
	}
	if slicesEqual(first, state.LastFlameUVs) {
		t.Error("flame UVs did not advance")
	}
	if state.Frames != 3 {
		t.Errorf("frames = %d", state.Frames)
	}
}

func TestFlameUVsStayInsideItsSubTexture(t *testing.T) {
	rec := gputest.NewRecorder()
	cfg := testConfig(t)
	scene, state, err := NewScene(cfg, rec, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	sub, err := scene.Packer.SubTexture(cfg.Assets.FlameSheet)
	if err != nil {
		t.Fatal(err)
	}
	side := float32(scene.Packer.SideLength())
	for _, ts := range []float64{0, 40, 70, 110} {
		RunFrame(scene, state, frameInput(ts))
		for _, uv := range state.LastFlameUVs {
			x, y := uv[0]*side, uv[1]*side
			if x < float32(sub.BBox.Min.X)-0.01 || x > float32(sub.BBox.Max.X)+0.01 ||
				y < float32(sub.BBox.Min.Y)-0.01 || y > float32(sub.BBox.Max.Y)+0.01 {
				t.Errorf("t=%v: uv %v outside %v", ts, uv, sub.BBox)
			}
		}
	}
}

func TestNewSceneRequiresDrawShader(t *testing.T) {
	cfg := testConfig(t)
	cfg.Shaders = []string{"absolute_position_with_solid_color"}
	if _, _, err := NewScene(cfg, gputest.NewRecorder(), logging.Discard()); !errors.Is(err, graphics.ErrShaderInit) {
		t.Errorf("expected ErrShaderInit, got %v", err)
	}

	cfg = testConfig(t)
	cfg.Shaders = []string{"phong"}
	if _, _, err := NewScene(cfg, gputest.NewRecorder(), logging.Discard()); !errors.Is(err, graphics.ErrShaderInit) {
		t.Errorf("expected ErrShaderInit for unknown shader, got %v", err)
	}
}

func TestCrosshairFollowsAspectRatio(t *testing.T) {
	rec := gputest.NewRecorder()
	cfg := testConfig(t)
	cfg.Shaders = append(cfg.Shaders, "absolute_position_with_solid_color")
	scene, state, err := NewScene(cfg, rec, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if scene.crosshairID == 0 {
		t.Fatal("crosshair not enabled")
	}

	rec.Reset()
	RunFrame(scene, state, frameInput(0))
	if len(rec.Draws) != 2 {
		t.Fatalf("expected scene and crosshair draws, got %d", len(rec.Draws))
	}
	if scene.Batcher.Len(CrosshairShader) != 1 {
		t.Errorf("crosshair batch holds %d entries", scene.Batcher.Len(CrosshairShader))
	}

	rec.Reset()
	RunFrame(scene, state, frameInput(20))
	if len(rec.IndexUploads) != 0 {
		t.Errorf("unchanged aspect re-uploaded %d batches", len(rec.IndexUploads))
	}

	rec.Reset()
	in := frameInput(20)
	in.AspectRatio = 4.0 / 3.0
	RunFrame(scene, state, in)
	if len(rec.IndexUploads) != 1 {
		t.Errorf("aspect change should rebuild only the crosshair batch, got %d uploads", len(rec.IndexUploads))
	}
}

func TestCrosshairEntryIsSquareOnScreen(t *testing.T) {
	e := crosshairEntry(7, 2)
	if len(e.Positions) != 8 || len(e.Indices) != 12 {
		t.Fatalf("got %d positions, %d indices", len(e.Positions), len(e.Indices))
	}
	// horizontal bar top-right corner, in pixels of a 2:1 screen
	if got := e.Positions[0][0] * 2; got != crosshairArm {
		t.Errorf("horizontal half-arm on screen = %v, want %v", got, crosshairArm)
	}
	if got := e.Positions[4][1]; got != crosshairArm {
		t.Errorf("vertical half-arm = %v, want %v", got, crosshairArm)
	}
	for _, p := range e.Positions {
		if p[2] != -1 {
			t.Fatalf("crosshair vertex %v not on the near plane", p)
		}
	}
}

func TestNewSceneFailsWithoutFlameSheet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.FlameSheet = filepath.Join(cfg.Assets.Dir, "spritesheets", "smoke.png")
	if _, _, err := NewScene(cfg, gputest.NewRecorder(), logging.Discard()); err == nil {
		t.Error("expected an error for an unpacked flame sheet")
	}
}

func slicesEqual(a, b []mgl32.Vec2) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
