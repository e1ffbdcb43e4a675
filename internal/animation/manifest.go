package animation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Manifest describes a sprite sheet: its size, the ordered frames and the
// optional timing authored alongside it.
type Manifest struct {
	SheetW, SheetH int
	Frames         []Frame
	// FrameRate is meta.frameRate, 0 when absent.
	FrameRate float64
	// Loop is meta.loop; nil when absent.
	Loop *bool
}

// Frame is one named pixel rectangle in the sheet.
type Frame struct {
	Name string
	Rect image.Rectangle
	// DurationMs is the per-frame duration, 0 when the sheet uses a shared rate.
	DurationMs float64
}

type jsonRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type jsonSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

type jsonFrame struct {
	Filename string   `json:"filename"`
	Frame    jsonRect `json:"frame"`
	Duration float64  `json:"duration"`
}

type jsonMeta struct {
	Image     string   `json:"image"`
	Size      jsonSize `json:"size"`
	FrameRate float64  `json:"frameRate"`
	Loop      *bool    `json:"loop"`
}

// jsonFrames accepts both the array form (ordered) and the hash form
// (name → frame) used by sprite-sheet exporters.
type jsonFrames []jsonFrame

func (f *jsonFrames) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var frames []jsonFrame
		if err := json.Unmarshal(data, &frames); err != nil {
			return err
		}
		*f = frames
		return nil
	}

	var hash map[string]jsonFrame
	if err := json.Unmarshal(data, &hash); err != nil {
		return err
	}
	names := make([]string, 0, len(hash))
	for name := range hash {
		names = append(names, name)
	}
	slices.SortFunc(names, naturalCompare)
	frames := make([]jsonFrame, 0, len(names))
	for _, name := range names {
		fr := hash[name]
		fr.Filename = name
		frames = append(frames, fr)
	}
	*f = frames
	return nil
}

// LoadManifest reads a sprite-sheet manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read animation manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes manifest JSON.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw struct {
		Frames jsonFrames `json:"frames"`
		Meta   jsonMeta   `json:"meta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("could not unmarshal animation manifest: %w", err)
	}
	if len(raw.Frames) == 0 {
		return nil, fmt.Errorf("animation manifest has no frames")
	}

	m := &Manifest{
		SheetW:    raw.Meta.Size.W,
		SheetH:    raw.Meta.Size.H,
		FrameRate: raw.Meta.FrameRate,
		Loop:      raw.Meta.Loop,
	}
	for i, f := range raw.Frames {
		if f.Frame.W <= 0 || f.Frame.H <= 0 || f.Frame.X < 0 || f.Frame.Y < 0 {
			return nil, fmt.Errorf("frame %d (%q) has an invalid rectangle", i, f.Filename)
		}
		if f.Duration < 0 {
			return nil, fmt.Errorf("frame %d (%q) has a negative duration", i, f.Filename)
		}
		name := f.Filename
		if name == "" {
			name = strconv.Itoa(i)
		}
		m.Frames = append(m.Frames, Frame{
			Name:       name,
			Rect:       image.Rect(f.Frame.X, f.Frame.Y, f.Frame.X+f.Frame.W, f.Frame.Y+f.Frame.H),
			DurationMs: f.Duration,
		})
	}
	return m, nil
}

// validateSheet checks that every frame lies within the sheet.
func (m *Manifest) validateSheet() error {
	if m.SheetW <= 0 || m.SheetH <= 0 {
		return fmt.Errorf("sheet size %dx%d", m.SheetW, m.SheetH)
	}
	bounds := image.Rect(0, 0, m.SheetW, m.SheetH)
	for _, f := range m.Frames {
		if !f.Rect.In(bounds) {
			return fmt.Errorf("frame %q %v lies outside the %dx%d sheet", f.Name, f.Rect, m.SheetW, m.SheetH)
		}
	}
	return nil
}

// naturalCompare orders names so that embedded numbers compare by value:
// "flame_2" < "flame_10".
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ra, rb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ra) && unicode.IsDigit(rb) {
			na, restA := leadingDigits(a)
			nb, restB := leadingDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) - len(tb)
			}
			if c := strings.Compare(ta, tb); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		if ra != rb {
			return int(ra) - int(rb)
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func leadingDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
