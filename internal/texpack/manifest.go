package texpack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
)

const (
	ManifestFile  = "manifest.json"
	manifestApp   = "packed-flame/texpack"
	manifestVer   = 1
	pageFilePrefx = "packed_texture_"
)

// Manifest is the on-disk packing result in the TexturePacker multi-page
// array layout, extended with the bounding-box index and a fingerprint of the
// inputs that produced it.
type Manifest struct {
	Textures []ManifestPage `json:"textures"`
	Meta     ManifestMeta   `json:"meta"`
}

type ManifestPage struct {
	Image  string                   `json:"image"`
	Size   jsonSize                 `json:"size"`
	Frames map[string]ManifestFrame `json:"frames"`
}

type ManifestFrame struct {
	Frame      jsonRect `json:"frame"`
	Index      int      `json:"index"`
	Rotated    bool     `json:"rotated"`
	SourceSize jsonSize `json:"sourceSize"`
}

type ManifestMeta struct {
	App         string `json:"app"`
	Version     int    `json:"version"`
	SideLength  int    `json:"sideLength"`
	Padding     int    `json:"padding"`
	Fingerprint string `json:"fingerprint"`
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

func pageFileName(i int) string {
	return pageFilePrefx + strconv.Itoa(i) + ".png"
}

// LoadManifest reads and validates a manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("could not unmarshal manifest json: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write manifest: %w", err)
	}
	return nil
}

func (m *Manifest) validate() error {
	side := m.Meta.SideLength
	if side <= 0 {
		return fmt.Errorf("side length %d", side)
	}
	seen := make(map[int]string)
	total := 0
	for p, page := range m.Textures {
		var rects []image.Rectangle
		for name, f := range page.Frames {
			r := f.Frame.rect()
			if r.Empty() || !r.In(image.Rect(0, 0, side, side)) {
				return fmt.Errorf("%q on page %d lies outside the page", name, p)
			}
			for _, other := range rects {
				if r.Overlaps(other) {
					return fmt.Errorf("%q overlaps another texture on page %d", name, p)
				}
			}
			rects = append(rects, r)
			if prev, dup := seen[f.Index]; dup {
				return fmt.Errorf("%q and %q share bounding box index %d", name, prev, f.Index)
			}
			seen[f.Index] = name
			total++
		}
	}
	for i := range total {
		if _, ok := seen[i]; !ok {
			return fmt.Errorf("bounding box index %d missing", i)
		}
	}
	return nil
}

func (r jsonRect) rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func toJSONRect(r image.Rectangle) jsonRect {
	return jsonRect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// fingerprint identifies a packing input set: options, names and file bytes.
func fingerprint(opts Options, names []string, data map[string][]byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "v%d side=%d padding=%d\n", manifestVer, opts.SideLength, opts.Padding)
	for _, name := range names {
		fmt.Fprintf(h, "%s %d\n", name, len(data[name]))
		h.Write(data[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// reusable reports whether the manifest in dir was produced from the same
// inputs and every page it lists is still on disk.
func reusable(dir, fp string, names []string) (*Manifest, bool) {
	m, err := LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil || m.Meta.Fingerprint != fp {
		return nil, false
	}
	count := 0
	for _, page := range m.Textures {
		if _, err := os.Stat(filepath.Join(dir, page.Image)); err != nil {
			return nil, false
		}
		count += len(page.Frames)
	}
	return m, count == len(names)
}
