package graphics

import (
	"fmt"
	"image"

	"packed-flame/internal/graphics/gpu"
)

// PackedSource is what the renderer needs from a texture packer.
type PackedSource interface {
	Pages() []*image.RGBA
	BoundingBoxes() []float32
}

// AtlasTextures holds the GPU copies of the atlas pages and of the bounding
// box table the shaders use to clamp sampling to a sub-texture.
type AtlasTextures struct {
	backend gpu.Backend
	Pages   uint32
	BBoxes  uint32
	Count   int
}

// UploadPackedTextures creates a texture array with one layer per page and a
// float texture with one texel (x, y, w, h) per bounding box.
func UploadPackedTextures(backend gpu.Backend, src PackedSource) (*AtlasTextures, error) {
	pages := src.Pages()
	if len(pages) == 0 {
		return nil, fmt.Errorf("no packed pages to upload")
	}
	side := pages[0].Rect.Size()
	for i, p := range pages {
		if p.Rect.Size() != side {
			return nil, fmt.Errorf("page %d is %v, expected %v", i, p.Rect.Size(), side)
		}
	}

	boxes := src.BoundingBoxes()
	return &AtlasTextures{
		backend: backend,
		Pages:   backend.NewTextureArray(pages),
		BBoxes:  backend.NewFloatTexture(boxes),
		Count:   len(boxes) / 4,
	}, nil
}

// Bind attaches the page array and bounding boxes to their texture units.
func (pt *AtlasTextures) Bind() {
	pt.backend.BindTexture(PackedTexturesUnit, gpu.Texture2DArray, pt.Pages)
	pt.backend.BindTexture(PackedTextureBoundingBoxesUnit, gpu.Texture2D, pt.BBoxes)
}

// BindSamplers points the sampler uniforms of st at the packed texture units.
// Programs that sample nothing are left alone.
func (pt *AtlasTextures) BindSamplers(sc *ShaderCache, st ShaderType) {
	if sc.Declares(st, PackedTextures) {
		sc.SetUniform(st, PackedTextures, int32(PackedTexturesUnit))
	}
	if sc.Declares(st, PackedTextureBoundingBoxes) {
		sc.SetUniform(st, PackedTextureBoundingBoxes, int32(PackedTextureBoundingBoxesUnit))
	}
}
