package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Atlas locates packed textures. texpack.Packer implements it.
type Atlas interface {
	Coordinates(name string, local []mgl32.Vec2) ([]mgl32.Vec2, error)
	Location(name string) (page, bbox int, err error)
}

// PackedMesh is a TexturedMesh whose UVs address an atlas page.
type PackedMesh struct {
	Texture   string
	Indices   []uint32
	Positions []mgl32.Vec3
	UVs       []mgl32.Vec2
	Page      int
	BBox      int
}

// PackMeshes remaps every mesh's UVs into the atlas. A texture that was never
// packed fails the whole conversion.
func PackMeshes(meshes []TexturedMesh, atlas Atlas) ([]PackedMesh, error) {
	out := make([]PackedMesh, 0, len(meshes))
	for _, m := range meshes {
		page, bbox, err := atlas.Location(m.Texture)
		if err != nil {
			return nil, fmt.Errorf("mesh texture %s: %w", m.Texture, err)
		}
		uvs, err := atlas.Coordinates(m.Texture, m.UVs)
		if err != nil {
			return nil, fmt.Errorf("mesh texture %s: %w", m.Texture, err)
		}
		out = append(out, PackedMesh{
			Texture:   m.Texture,
			Indices:   m.Indices,
			Positions: m.Positions,
			UVs:       uvs,
			Page:      page,
			BBox:      bbox,
		})
	}
	return out, nil
}
