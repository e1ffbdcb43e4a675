package texpack

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"packed-flame/internal/logging"

	"github.com/go-gl/mathgl/mgl32"
)

func writeImage(t *testing.T, path string, w, h int, c color.RGBA) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
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
	return filepath.ToSlash(path)
}

func testOptions() Options {
	return Options{SideLength: 1024, Logger: logging.Discard()}
}

func TestPackTwoSquaresOnOnePage(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, filepath.Join(dir, "src", "a.png"), 256, 256, color.RGBA{255, 0, 0, 255})
	b := writeImage(t, filepath.Join(dir, "src", "b.png"), 256, 256, color.RGBA{0, 255, 0, 255})

	p, err := Pack([]string{a, b}, filepath.Join(dir, "out"), testOptions())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	sa, err := p.SubTexture(a)
	if err != nil {
		t.Fatal(err)
	}
	sb, err := p.SubTexture(b)
	if err != nil {
		t.Fatal(err)
	}
	if sa.PageIndex != 0 || sb.PageIndex != 0 {
		t.Errorf("expected both on page 0, got %d and %d", sa.PageIndex, sb.PageIndex)
	}
	for _, st := range []SubTexture{sa, sb} {
		if st.BBox.Dx() != 256 || st.BBox.Dy() != 256 {
			t.Errorf("expected 256x256 bbox, got %v", st.BBox)
		}
	}
	if sa.BBox.Overlaps(sb.BBox) {
		t.Errorf("bounding boxes overlap: %v %v", sa.BBox, sb.BBox)
	}
	if p.PageCount() != 1 {
		t.Errorf("expected 1 page, got %d", p.PageCount())
	}

	// pixels landed where the bbox says
	page := p.Pages()[0]
	if got := page.RGBAAt(sa.BBox.Min.X+10, sa.BBox.Min.Y+10); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("unexpected pixel in a's bbox: %v", got)
	}
	if got := page.RGBAAt(sb.BBox.Max.X-1, sb.BBox.Max.Y-1); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("unexpected pixel in b's bbox: %v", got)
	}
}

func randomSources(n int, seed uint64) []source {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	srcs := make([]source, n)
	for i := range srcs {
		w := 1 + r.IntN(300)
		h := 1 + r.IntN(300)
		srcs[i] = source{
			name: fmt.Sprintf("tex_%03d.png", i),
			img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		}
	}
	return srcs
}

func TestPackBoundingBoxesDisjointAndInBounds(t *testing.T) {
	for _, padding := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("padding=%d", padding), func(t *testing.T) {
			opts := Options{SideLength: 512, Padding: padding}.withDefaults()
			p, err := pack(randomSources(120, 42), opts)
			if err != nil {
				t.Fatalf("pack: %v", err)
			}
			if p.PageCount() < 2 {
				t.Fatalf("expected the inputs to spill onto several pages, got %d", p.PageCount())
			}

			page := image.Rect(0, 0, 512, 512)
			names := p.Names()
			for i, n1 := range names {
				s1, _ := p.SubTexture(n1)
				if !s1.BBox.In(page) {
					t.Errorf("%s bbox %v outside page", n1, s1.BBox)
				}
				for _, n2 := range names[i+1:] {
					s2, _ := p.SubTexture(n2)
					if s1.PageIndex == s2.PageIndex && s1.BBox.Overlaps(s2.BBox) {
						t.Errorf("%s %v overlaps %s %v on page %d", n1, s1.BBox, n2, s2.BBox, s1.PageIndex)
					}
				}
			}
		})
	}
}

func TestPackIsDeterministic(t *testing.T) {
	opts := Options{SideLength: 512, Padding: 1}.withDefaults()
	srcs := randomSources(60, 7)

	first, err := pack(srcs, opts)
	if err != nil {
		t.Fatal(err)
	}
	// input order must not matter
	reversed := make([]source, len(srcs))
	for i, s := range srcs {
		reversed[len(srcs)-1-i] = s
	}
	second, err := pack(reversed, opts)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range first.Names() {
		a, _ := first.SubTexture(name)
		b, _ := second.SubTexture(name)
		if a.PageIndex != b.PageIndex || a.BBox != b.BBox {
			t.Errorf("%s placed differently: %+v vs %+v", name, a, b)
		}
	}
}

func TestPackFullPageImageFitsWithPadding(t *testing.T) {
	opts := Options{SideLength: 256, Padding: 2}.withDefaults()
	srcs := []source{
		{name: "full.png", img: image.NewRGBA(image.Rect(0, 0, 256, 256))},
		{name: "small.png", img: image.NewRGBA(image.Rect(0, 0, 16, 16))},
	}
	p, err := pack(srcs, opts)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	full, _ := p.SubTexture("full.png")
	small, _ := p.SubTexture("small.png")
	if full.BBox != image.Rect(0, 0, 256, 256) {
		t.Errorf("unexpected bbox for full page image: %v", full.BBox)
	}
	if small.PageIndex != 1 {
		t.Errorf("expected small image on second page, got %d", small.PageIndex)
	}
}

func TestPackCapacityExceeded(t *testing.T) {
	dir := t.TempDir()
	big := writeImage(t, filepath.Join(dir, "big.png"), 300, 20, color.RGBA{A: 255})

	_, err := Pack([]string{big}, filepath.Join(dir, "out"), Options{SideLength: 256, Logger: logging.Discard()})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestPackReusesManifest(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	a := writeImage(t, filepath.Join(dir, "a.png"), 64, 32, color.RGBA{R: 10, A: 255})
	b := writeImage(t, filepath.Join(dir, "b.png"), 32, 64, color.RGBA{G: 10, A: 255})

	first, err := Pack([]string{a, b}, out, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if first.Reused() {
		t.Fatal("first pack should not reuse anything")
	}

	second, err := Pack([]string{b, a}, out, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !second.Reused() {
		t.Fatal("second pack with identical inputs should reuse the manifest")
	}
	for _, name := range []string{a, b} {
		s1, _ := first.SubTexture(name)
		s2, err := second.SubTexture(name)
		if err != nil {
			t.Fatal(err)
		}
		if s1 != s2 {
			t.Errorf("%s: %+v vs %+v", name, s1, s2)
		}
	}
	if got := second.Pages()[0].RGBAAt(0, 0); got != first.Pages()[0].RGBAAt(0, 0) {
		t.Errorf("reloaded page differs at origin: %v", got)
	}

	// changing a source invalidates the cache
	writeImage(t, filepath.Join(dir, "a.png"), 64, 32, color.RGBA{B: 10, A: 255})
	third, err := Pack([]string{a, b}, out, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if third.Reused() {
		t.Error("modified inputs must be repacked")
	}

	// a missing page invalidates the cache too
	if err := os.Remove(filepath.Join(out, pageFileName(0))); err != nil {
		t.Fatal(err)
	}
	fourth, err := Pack([]string{a, b}, out, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if fourth.Reused() {
		t.Error("missing page must force a repack")
	}
}

func TestSubTextureNotFound(t *testing.T) {
	p, err := pack(nil, Options{}.withDefaults())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.SubTexture("nope.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.Coordinates("nope.png", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCoordinatesRemap(t *testing.T) {
	p := &Packer{
		side: 1024,
		entries: map[string]SubTexture{
			"flame.png": {PageIndex: 0, BBoxIndex: 0, BBox: image.Rect(256, 512, 512, 1024)},
		},
		names: []string{"flame.png"},
	}
	got, err := p.Coordinates("flame.png", []mgl32.Vec2{{0, 0}, {1, 1}, {0.5, 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	want := []mgl32.Vec2{{0.25, 0.5}, {0.5, 1}, {0.375, 0.75}}
	for i := range want {
		if !got[i].ApproxEqual(want[i]) {
			t.Errorf("uv %d: got %v want %v", i, got[i], want[i])
		}
	}

	bb := p.BoundingBoxes()
	wantBB := []float32{0.25, 0.5, 0.25, 0.5}
	for i := range wantBB {
		if bb[i] != wantBB[i] {
			t.Errorf("bbox component %d: got %v want %v", i, bb[i], wantBB[i])
		}
	}
}

func TestCollectSourcesSkipsOutput(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "a.png"), 4, 4, color.RGBA{A: 255})
	writeImage(t, filepath.Join(dir, "sheets", "flame.png"), 4, 4, color.RGBA{A: 255})
	writeImage(t, filepath.Join(dir, "packed", "packed_texture_0.png"), 4, 4, color.RGBA{A: 255})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := CollectSources(dir, filepath.Join(dir, "packed"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sources, got %v", got)
	}
	if filepath.Base(got[0]) != "a.png" || filepath.Base(got[1]) != "flame.png" {
		t.Errorf("unexpected sources %v", got)
	}
}

func TestLoadManifestRejectsOverlap(t *testing.T) {
	m := &Manifest{
		Meta: ManifestMeta{SideLength: 64},
		Textures: []ManifestPage{{
			Image: "p.png",
			Frames: map[string]ManifestFrame{
				"a": {Frame: jsonRect{X: 0, Y: 0, W: 32, H: 32}, Index: 0},
				"b": {Frame: jsonRect{X: 16, Y: 16, W: 32, H: 32}, Index: 1},
			},
		}},
	}
	path := filepath.Join(t.TempDir(), ManifestFile)
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(path); err == nil {
		t.Error("expected overlapping manifest to be rejected")
	}
}
