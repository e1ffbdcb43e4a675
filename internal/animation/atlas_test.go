package animation

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// four 32x64 frames laid out in a row on a 128x64 sheet
const flameHashJSON = `{
  "frames": {
    "flame_10.png": {"frame": {"x": 96, "y": 0, "w": 32, "h": 64}},
    "flame_2.png":  {"frame": {"x": 32, "y": 0, "w": 32, "h": 64}},
    "flame_1.png":  {"frame": {"x": 0,  "y": 0, "w": 32, "h": 64}},
    "flame_3.png":  {"frame": {"x": 64, "y": 0, "w": 32, "h": 64}}
  },
  "meta": {"image": "flame.png", "size": {"w": 128, "h": 64}, "frameRate": 30, "loop": true}
}`

const flameArrayJSON = `{
  "frames": [
    {"filename": "b", "frame": {"x": 0,  "y": 0, "w": 16, "h": 16}, "duration": 100},
    {"filename": "a", "frame": {"x": 16, "y": 0, "w": 16, "h": 16}, "duration": 50},
    {"filename": "c", "frame": {"x": 32, "y": 0, "w": 16, "h": 16}, "duration": 250}
  ],
  "meta": {"size": {"w": 48, "h": 16}}
}`

func mustAtlas(t *testing.T, data string, fps float64, loop bool) *Atlas {
	t.Helper()
	m, err := ParseManifest([]byte(data))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	a, err := NewFromManifest(m, fps, loop)
	if err != nil {
		t.Fatalf("NewFromManifest: %v", err)
	}
	return a
}

func TestHashFramesUseNaturalOrder(t *testing.T) {
	a := mustAtlas(t, flameHashJSON, 30, true)
	want := []string{"flame_1.png", "flame_2.png", "flame_3.png", "flame_10.png"}
	for i, name := range want {
		if got := a.Frame(i).Name; got != name {
			t.Errorf("frame %d: got %q want %q", i, got, name)
		}
	}
}

func TestArrayFramesKeepAuthoredOrder(t *testing.T) {
	a := mustAtlas(t, flameArrayJSON, 0, false)
	if a.Frame(0).Name != "b" || a.Frame(1).Name != "a" || a.Frame(2).Name != "c" {
		t.Errorf("array order not preserved: %q %q %q", a.Frame(0).Name, a.Frame(1).Name, a.Frame(2).Name)
	}
}

func TestFrameIndexFourFramesAt30FPS(t *testing.T) {
	a := mustAtlas(t, flameHashJSON, 30, true)
	cases := []struct {
		timeMs float64
		want   int
	}{
		{0, 0},
		{33, 0},
		{34, 1},
		{67, 2},
		{100, 3},
		{134, 0},
		{-1, 3},
	}
	for _, c := range cases {
		if got := a.FrameIndex(c.timeMs); got != c.want {
			t.Errorf("FrameIndex(%v) = %d, want %d", c.timeMs, got, c.want)
		}
	}
}

func TestFrameIndexLoopPeriod(t *testing.T) {
	a := mustAtlas(t, flameHashJSON, 30, true)
	period := float64(a.FrameCount()) * 1000.0 / 30.0
	for _, ts := range []float64{1.5, 12.5, 50, 99.9, 250.25, 1234.5, 98765.4} {
		if a.FrameIndex(ts) != a.FrameIndex(ts+period) {
			t.Errorf("t=%v: %d vs %d one period later", ts, a.FrameIndex(ts), a.FrameIndex(ts+period))
		}
	}
}

func TestFrameIndexClampsWithoutLoop(t *testing.T) {
	a := mustAtlas(t, flameHashJSON, 30, false)
	if got := a.FrameIndex(10_000); got != 3 {
		t.Errorf("expected last frame, got %d", got)
	}
	if got := a.FrameIndex(-500); got != 0 {
		t.Errorf("expected first frame before start, got %d", got)
	}
}

func TestFrameIndexStartTime(t *testing.T) {
	a := mustAtlas(t, flameHashJSON, 30, true)
	a.SetStartTime(1000)
	if got := a.FrameIndex(1067); got != 2 {
		t.Errorf("expected frame 2 67ms after start, got %d", got)
	}
}

func TestFrameIndexPerFrameDurations(t *testing.T) {
	a := mustAtlas(t, flameArrayJSON, 0, true)
	cases := []struct {
		timeMs float64
		want   int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{149, 1},
		{150, 2},
		{399, 2},
		{400, 0},
		{-1, 2},
	}
	for _, c := range cases {
		if got := a.FrameIndex(c.timeMs); got != c.want {
			t.Errorf("FrameIndex(%v) = %d, want %d", c.timeMs, got, c.want)
		}
	}

	once := mustAtlas(t, flameArrayJSON, 0, false)
	if got := once.FrameIndex(5000); got != 2 {
		t.Errorf("non-looping should hold the last frame, got %d", got)
	}
}

func TestCurrentFrameUVIsDeterministic(t *testing.T) {
	a := mustAtlas(t, flameHashJSON, 30, true)
	for _, ts := range []float64{0, 16.6, 67, 134, 9999.99} {
		if a.CurrentFrameUV(ts) != a.CurrentFrameUV(ts) {
			t.Errorf("t=%v: UVs differ between identical calls", ts)
		}
	}
}

func TestCurrentFrameUVRectangle(t *testing.T) {
	a := mustAtlas(t, flameHashJSON, 30, true)
	uv := a.CurrentFrameUV(67) // frame 2: x 64..96 of 128
	want := [4][2]float32{
		{0.75, 0}, {0.75, 1}, {0.5, 1}, {0.5, 0},
	}
	for i := range want {
		if uv[i][0] != want[i][0] || uv[i][1] != want[i][1] {
			t.Errorf("corner %d: got %v want %v", i, uv[i], want[i])
		}
	}
	if a.CurrentFrameUV(0) == a.CurrentFrameUV(34) {
		t.Error("different frames should produce different UVs")
	}
}

func TestFrameByName(t *testing.T) {
	a := mustAtlas(t, flameHashJSON, 30, true)
	if i, err := a.FrameByName("flame_3.png"); err != nil || i != 2 {
		t.Errorf("FrameByName: %d %v", i, err)
	}
	if _, err := a.FrameByName("smoke.png"); !errors.Is(err, ErrFrameNotFound) {
		t.Errorf("expected ErrFrameNotFound, got %v", err)
	}
}

func TestManifestValidation(t *testing.T) {
	bad := []string{
		`{"frames": []}`,
		`{"frames": [{"frame": {"x": 0, "y": 0, "w": 0, "h": 4}}], "meta": {"size": {"w": 4, "h": 4}}}`,
		`{"frames": [{"frame": {"x": 0, "y": 0, "w": 4, "h": 4}, "duration": -1}]}`,
	}
	for _, data := range bad {
		if _, err := ParseManifest([]byte(data)); err == nil {
			t.Errorf("expected error for %s", data)
		}
	}

	outside := `{"frames": [{"frame": {"x": 8, "y": 0, "w": 16, "h": 16}}], "meta": {"size": {"w": 16, "h": 16}}}`
	m, err := ParseManifest([]byte(outside))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromManifest(m, 30, true); err == nil {
		t.Error("expected frame outside the sheet to be rejected")
	}

	noTiming := `{"frames": [{"frame": {"x": 0, "y": 0, "w": 4, "h": 4}}], "meta": {"size": {"w": 4, "h": 4}}}`
	m, err = ParseManifest([]byte(noTiming))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromManifest(m, 0, true); err == nil {
		t.Error("expected error without fps or durations")
	}
}

func TestNewReadsSheetSizeFromImage(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"frames": [
		{"filename": "f0", "frame": {"x": 0, "y": 0, "w": 10, "h": 20}},
		{"filename": "f1", "frame": {"x": 10, "y": 0, "w": 10, "h": 20}}
	]}`
	manifestPath := filepath.Join(dir, "sheet.json")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	sheetPath := filepath.Join(dir, "sheet.png")
	f, err := os.Create(sheetPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 20, 20))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	a, err := New(manifestPath, sheetPath, 10, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	uv := a.FrameUV(1)
	if uv[0][0] != 1 || uv[3][0] != 0.5 {
		t.Errorf("unexpected UVs from image-derived sheet size: %v", uv)
	}
}

func TestNaturalCompare(t *testing.T) {
	cases := []struct {
		a, b string
		less bool
	}{
		{"f_2", "f_10", true},
		{"f_10", "f_2", false},
		{"a", "b", true},
		{"f_002", "f_3", true},
		{"f", "f_1", true},
	}
	for _, c := range cases {
		if got := naturalCompare(c.a, c.b) < 0; got != c.less {
			t.Errorf("naturalCompare(%q, %q) < 0 = %v", c.a, c.b, got)
		}
	}
}
