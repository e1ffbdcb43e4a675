// Package texpack bin-packs source images into fixed-size square atlas pages
// and answers where each source ended up.
package texpack

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound is returned for names that were never packed.
	ErrNotFound = errors.New("texture not packed")
	// ErrCapacityExceeded is returned when an image cannot fit on an empty page.
	ErrCapacityExceeded = errors.New("texture does not fit on an atlas page")
)

const DefaultSideLength = 1024

// Options controls a packing run.
type Options struct {
	SideLength int
	// Padding pixels reserved right of and below each texture.
	Padding int
	// Workers bounds concurrent image decoding; 0 means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
	// OnDecoded is called once per decoded source, from decoder goroutines.
	OnDecoded func(name string)
}

func (o Options) withDefaults() Options {
	if o.SideLength <= 0 {
		o.SideLength = DefaultSideLength
	}
	if o.Padding < 0 {
		o.Padding = 0
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// SubTexture locates one packed source.
type SubTexture struct {
	PageIndex int
	// BBoxIndex addresses the texture in BoundingBoxes.
	BBoxIndex int
	// BBox is in page pixels, y down.
	BBox image.Rectangle
}

// Packer holds the immutable result of a packing pass.
type Packer struct {
	side    int
	pages   []*image.RGBA
	entries map[string]SubTexture
	// names in bounding-box index order
	names  []string
	reused bool
}

type source struct {
	name string
	img  image.Image
}

// Pack packs sources into pages of opts.SideLength and writes the pages and a
// manifest to outputDir. If outputDir already holds a manifest for exactly
// these inputs, packing is skipped and that result is loaded instead.
func Pack(sources []string, outputDir string, opts Options) (*Packer, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With("component", "texpack")

	names := normalizeNames(sources)
	data := make(map[string][]byte, len(names))
	for _, name := range names {
		b, err := os.ReadFile(filepath.FromSlash(name))
		if err != nil {
			return nil, fmt.Errorf("could not read texture %s: %w", name, err)
		}
		data[name] = b
	}
	fp := fingerprint(opts, names, data)

	if m, ok := reusable(outputDir, fp, names); ok {
		p, err := fromManifest(m, outputDir)
		if err == nil {
			log.Info("reusing packed textures", "dir", outputDir, "textures", len(names), "pages", len(p.pages))
			return p, nil
		}
		log.Warn("packed texture cache unreadable, repacking", "dir", outputDir, "err", err)
	}

	srcs, err := decodeAll(names, data, opts)
	if err != nil {
		return nil, err
	}

	p, err := pack(srcs, opts)
	if err != nil {
		return nil, err
	}
	if err := p.write(outputDir, opts, fp); err != nil {
		return nil, err
	}
	log.Info("packed textures", "dir", outputDir, "textures", len(names), "pages", len(p.pages), "side", p.side)
	return p, nil
}

func normalizeNames(sources []string) []string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, filepath.ToSlash(filepath.Clean(s)))
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func decodeAll(names []string, data map[string][]byte, opts Options) ([]source, error) {
	srcs := make([]source, len(names))
	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i, name := range names {
		g.Go(func() error {
			img, _, err := image.Decode(bytes.NewReader(data[name]))
			if err != nil {
				return fmt.Errorf("failed to decode texture %s: %w", name, err)
			}
			srcs[i] = source{name: name, img: img}
			if opts.OnDecoded != nil {
				opts.OnDecoded(name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return srcs, nil
}

// pack places and composites already decoded sources. Placement order is
// tallest first, then widest, then by name, so the layout depends only on
// the inputs.
func pack(srcs []source, opts Options) (*Packer, error) {
	side := opts.SideLength
	order := slices.Clone(srcs)
	slices.SortStableFunc(order, func(a, b source) int {
		ab, bb := a.img.Bounds(), b.img.Bounds()
		if c := cmp.Compare(bb.Dy(), ab.Dy()); c != 0 {
			return c
		}
		if c := cmp.Compare(bb.Dx(), ab.Dx()); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	p := &Packer{side: side, entries: make(map[string]SubTexture, len(srcs))}
	var lines []*skyline
	for _, s := range order {
		b := s.img.Bounds()
		if b.Dx() > side || b.Dy() > side || b.Empty() {
			return nil, fmt.Errorf("%w: %s is %dx%d, page is %dx%d", ErrCapacityExceeded, s.name, b.Dx(), b.Dy(), side, side)
		}

		placed := false
		for pi, sl := range lines {
			if r, ok := sl.insert(b.Dx(), b.Dy()); ok {
				p.entries[s.name] = SubTexture{PageIndex: pi, BBox: r}
				placed = true
				break
			}
		}
		if !placed {
			sl := newSkyline(side, opts.Padding)
			r, ok := sl.insert(b.Dx(), b.Dy())
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrCapacityExceeded, s.name)
			}
			lines = append(lines, sl)
			p.pages = append(p.pages, image.NewRGBA(image.Rect(0, 0, side, side)))
			p.entries[s.name] = SubTexture{PageIndex: len(lines) - 1, BBox: r}
		}

		st := p.entries[s.name]
		draw.Draw(p.pages[st.PageIndex], st.BBox, s.img, b.Min, draw.Src)
	}

	// bounding-box indices follow name order
	for _, s := range srcs {
		p.names = append(p.names, s.name)
	}
	slices.Sort(p.names)
	for i, name := range p.names {
		st := p.entries[name]
		st.BBoxIndex = i
		p.entries[name] = st
	}
	return p, nil
}

func (p *Packer) write(dir string, opts Options, fp string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}

	m := &Manifest{
		Meta: ManifestMeta{
			App:         manifestApp,
			Version:     manifestVer,
			SideLength:  p.side,
			Padding:     opts.Padding,
			Fingerprint: fp,
		},
	}
	for i, page := range p.pages {
		file := pageFileName(i)
		if err := writePNG(filepath.Join(dir, file), page); err != nil {
			return err
		}
		m.Textures = append(m.Textures, ManifestPage{
			Image:  file,
			Size:   jsonSize{W: p.side, H: p.side},
			Frames: make(map[string]ManifestFrame),
		})
	}
	for _, name := range p.names {
		st := p.entries[name]
		m.Textures[st.PageIndex].Frames[name] = ManifestFrame{
			Frame:      toJSONRect(st.BBox),
			Index:      st.BBoxIndex,
			SourceSize: jsonSize{W: st.BBox.Dx(), H: st.BBox.Dy()},
		}
	}
	return m.Save(filepath.Join(dir, ManifestFile))
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create page %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("could not encode page %s: %w", path, err)
	}
	return f.Close()
}

// fromManifest rebuilds a Packer from a validated manifest and its pages.
func fromManifest(m *Manifest, dir string) (*Packer, error) {
	p := &Packer{side: m.Meta.SideLength, entries: make(map[string]SubTexture), reused: true}
	total := 0
	for _, page := range m.Textures {
		total += len(page.Frames)
	}
	p.names = make([]string, total)

	for pi, page := range m.Textures {
		img, err := loadRGBA(filepath.Join(dir, page.Image))
		if err != nil {
			return nil, err
		}
		if img.Rect.Dx() != p.side || img.Rect.Dy() != p.side {
			return nil, fmt.Errorf("page %s is %dx%d, expected %d", page.Image, img.Rect.Dx(), img.Rect.Dy(), p.side)
		}
		p.pages = append(p.pages, img)
		for name, f := range page.Frames {
			p.entries[name] = SubTexture{PageIndex: pi, BBoxIndex: f.Index, BBox: f.Frame.rect()}
			p.names[f.Index] = name
		}
	}
	return p, nil
}

func loadRGBA(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture file: %v", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}

// SubTexture returns where name was packed.
func (p *Packer) SubTexture(name string) (SubTexture, error) {
	st, ok := p.entries[filepath.ToSlash(filepath.Clean(name))]
	if !ok {
		return SubTexture{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return st, nil
}

// Location returns the page and bounding-box index of name.
func (p *Packer) Location(name string) (int, int, error) {
	st, err := p.SubTexture(name)
	if err != nil {
		return 0, 0, err
	}
	return st.PageIndex, st.BBoxIndex, nil
}

// Coordinates maps UVs local to the source texture into page UVs:
// atlas = origin + local * size, both normalized to the page.
func (p *Packer) Coordinates(name string, local []mgl32.Vec2) ([]mgl32.Vec2, error) {
	st, err := p.SubTexture(name)
	if err != nil {
		return nil, err
	}
	side := float32(p.side)
	origin := mgl32.Vec2{float32(st.BBox.Min.X) / side, float32(st.BBox.Min.Y) / side}
	size := mgl32.Vec2{float32(st.BBox.Dx()) / side, float32(st.BBox.Dy()) / side}

	out := make([]mgl32.Vec2, len(local))
	for i, uv := range local {
		out[i] = mgl32.Vec2{origin[0] + uv[0]*size[0], origin[1] + uv[1]*size[1]}
	}
	return out, nil
}

// BoundingBoxes returns x, y, w, h per texture, normalized to the page and
// laid out by bounding-box index.
func (p *Packer) BoundingBoxes() []float32 {
	side := float32(p.side)
	out := make([]float32, 0, len(p.names)*4)
	for _, name := range p.names {
		b := p.entries[name].BBox
		out = append(out,
			float32(b.Min.X)/side, float32(b.Min.Y)/side,
			float32(b.Dx())/side, float32(b.Dy())/side)
	}
	return out
}

func (p *Packer) Pages() []*image.RGBA { return p.pages }
func (p *Packer) PageCount() int       { return len(p.pages) }
func (p *Packer) SideLength() int      { return p.side }
func (p *Packer) Names() []string      { return slices.Clone(p.names) }

// Reused reports whether the result was loaded from an existing manifest.
func (p *Packer) Reused() bool { return p.reused }

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".webp": true}

// CollectSources walks dir for images, skipping any directory named in skip.
func CollectSources(dir string, skip ...string) ([]string, error) {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[filepath.Clean(s)] = true
	}
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipped[filepath.Clean(path)] {
				return filepath.SkipDir
			}
			return nil
		}
		if imageExts[strings.ToLower(filepath.Ext(path))] {
			out = append(out, filepath.ToSlash(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not collect textures in %s: %w", dir, err)
	}
	slices.Sort(out)
	return out, nil
}
