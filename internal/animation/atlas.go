// Package animation resolves elapsed time to a sprite-sheet frame and its UV
// rectangle. Results are a pure function of the time passed in so callers can
// diff consecutive frames to skip redundant uploads.
package animation

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	_ "golang.org/x/image/webp"
)

// ErrFrameNotFound is returned for unknown frame names.
var ErrFrameNotFound = errors.New("animation frame not found")

// Atlas plays the frames of one sheet at a fixed rate or with per-frame
// durations.
type Atlas struct {
	frames  []Frame
	sheetW  float32
	sheetH  float32
	fps     float64
	loop    bool
	startMs float64

	// cumulative frame end times, used when fps <= 0
	ends    []float64
	totalMs float64
}

// New loads the manifest at manifestPath. The sheet image is only consulted
// for its size when the manifest does not record one.
func New(manifestPath, sheetPath string, fps float64, loop bool) (*Atlas, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if m.SheetW <= 0 || m.SheetH <= 0 {
		w, h, err := sheetSize(sheetPath)
		if err != nil {
			return nil, err
		}
		m.SheetW, m.SheetH = w, h
	}
	return NewFromManifest(m, fps, loop)
}

func sheetSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open sprite sheet: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read sprite sheet header: %v", err)
	}
	return cfg.Width, cfg.Height, nil
}

// NewFromManifest builds an atlas from an already parsed manifest. A
// non-positive fps selects the per-frame durations from the manifest.
func NewFromManifest(m *Manifest, fps float64, loop bool) (*Atlas, error) {
	if len(m.Frames) == 0 {
		return nil, fmt.Errorf("animation has no frames")
	}
	if err := m.validateSheet(); err != nil {
		return nil, err
	}

	a := &Atlas{
		frames: append([]Frame(nil), m.Frames...),
		sheetW: float32(m.SheetW),
		sheetH: float32(m.SheetH),
		fps:    fps,
		loop:   loop,
	}
	if fps > 0 {
		return a, nil
	}

	a.ends = make([]float64, len(a.frames))
	for i, f := range a.frames {
		if f.DurationMs <= 0 {
			return nil, fmt.Errorf("frame %q has no duration and no frame rate was given", f.Name)
		}
		a.totalMs += f.DurationMs
		a.ends[i] = a.totalMs
	}
	return a, nil
}

// SetStartTime sets the time, in ms, at which frame 0 starts.
func (a *Atlas) SetStartTime(ms float64) { a.startMs = ms }

func (a *Atlas) FrameCount() int { return len(a.frames) }
func (a *Atlas) Looping() bool   { return a.loop }

// Frame returns frame i.
func (a *Atlas) Frame(i int) Frame { return a.frames[i] }

// FrameByName returns the index of the named frame.
func (a *Atlas) FrameByName(name string) (int, error) {
	for i, f := range a.frames {
		if f.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrFrameNotFound, name)
}

// FrameIndex maps a time in ms to a frame index. Looping animations wrap;
// others clamp to the first and last frame.
func (a *Atlas) FrameIndex(timeMs float64) int {
	n := len(a.frames)
	elapsed := timeMs - a.startMs

	if a.fps > 0 {
		idx := int(math.Floor(elapsed * a.fps / 1000.0))
		if a.loop {
			return ((idx % n) + n) % n
		}
		return clamp(idx, 0, n-1)
	}

	if a.loop {
		elapsed = math.Mod(elapsed, a.totalMs)
		if elapsed < 0 {
			elapsed += a.totalMs
		}
	}
	if elapsed < 0 {
		return 0
	}
	for i, end := range a.ends {
		if elapsed < end {
			return i
		}
	}
	return n - 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FrameUV returns the UVs of frame i normalized within the sheet, ordered
// top-right, bottom-right, bottom-left, top-left to match the rectangle
// geometry. v is 0 at the top row of the sheet.
func (a *Atlas) FrameUV(i int) [4]mgl32.Vec2 {
	r := a.frames[i].Rect
	u0 := float32(r.Min.X) / a.sheetW
	u1 := float32(r.Max.X) / a.sheetW
	v0 := float32(r.Min.Y) / a.sheetH
	v1 := float32(r.Max.Y) / a.sheetH
	return [4]mgl32.Vec2{
		{u1, v0},
		{u1, v1},
		{u0, v1},
		{u0, v0},
	}
}

// CurrentFrameUV returns the UVs of the frame showing at timeMs.
func (a *Atlas) CurrentFrameUV(timeMs float64) [4]mgl32.Vec2 {
	return a.FrameUV(a.FrameIndex(timeMs))
}
