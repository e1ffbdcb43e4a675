package model

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBuildMeshesGroupsByTexture(t *testing.T) {
	loader := NewLoader(testModels, "assets/textures")
	meshes, err := loader.LoadMeshes("child")
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 {
		t.Fatalf("Expected 2 meshes, got %d", len(meshes))
	}
	body, top := meshes[0], meshes[1]
	if body.Texture != "assets/textures/lighter/body.png" || top.Texture != "assets/textures/lighter/cap.png" {
		t.Errorf("Unexpected textures %q %q", body.Texture, top.Texture)
	}
	if len(body.Positions) != 8 || len(body.Indices) != 12 || len(body.UVs) != 8 {
		t.Errorf("Body mesh sizes: %d positions %d indices", len(body.Positions), len(body.Indices))
	}
	if body.Indices[6] != 4 {
		t.Errorf("Second face indices should be rebased, got %v", body.Indices)
	}

	// north face: full texture, south face: top-left quarter
	if body.UVs[0] != (mgl32.Vec2{1, 0}) || body.UVs[2] != (mgl32.Vec2{0, 1}) {
		t.Errorf("North UVs: %v", body.UVs[:4])
	}
	if body.UVs[4] != (mgl32.Vec2{0.5, 0}) || body.UVs[5] != (mgl32.Vec2{0.5, 0.5}) {
		t.Errorf("South UVs: %v", body.UVs[4:])
	}
	for _, p := range body.Positions {
		for _, c := range p {
			if c != 0 && c != 1 {
				t.Fatalf("Position %v outside the unit cube", p)
			}
		}
	}
}

func TestBuildMeshesRejectsUnresolvedTexture(t *testing.T) {
	loader := NewLoader(testModels, "")
	model, err := loader.LoadModel("cube")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := BuildMeshes(model); err == nil {
		t.Error("Expected error for the unresolved #top reference")
	}
}

func TestBuildMeshesAppliesRotation(t *testing.T) {
	loader := NewLoader(testModels, "")
	meshes, err := loader.LoadMeshes("tilted")
	if err != nil {
		t.Fatal(err)
	}
	// the north face (z = 0) turned 90 degrees about y through the centre
	// ends up on the x = 0 plane
	for _, p := range meshes[0].Positions {
		if mgl32.Abs(p[0]) > 1e-5 {
			t.Errorf("Rotated corner %v not on x = 0", p)
		}
	}
}

type fakeAtlas struct{}

func (fakeAtlas) Coordinates(name string, local []mgl32.Vec2) ([]mgl32.Vec2, error) {
	out := make([]mgl32.Vec2, len(local))
	for i, uv := range local {
		out[i] = mgl32.Vec2{0.5 + uv[0]/2, uv[1] / 2}
	}
	return out, nil
}

var errMissing = errors.New("missing")

func (fakeAtlas) Location(name string) (int, int, error) {
	if name == "missing.png" {
		return 0, 0, errMissing
	}
	return 1, 7, nil
}

func TestPackMeshes(t *testing.T) {
	meshes := []TexturedMesh{{
		Texture:   "body.png",
		Indices:   []uint32{0, 1, 2},
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		UVs:       []mgl32.Vec2{{0, 0}, {1, 1}, {1, 0}},
	}}
	packed, err := PackMeshes(meshes, fakeAtlas{})
	if err != nil {
		t.Fatal(err)
	}
	if packed[0].Page != 1 || packed[0].BBox != 7 {
		t.Errorf("Location not carried: %+v", packed[0])
	}
	if packed[0].UVs[1] != (mgl32.Vec2{1, 0.5}) {
		t.Errorf("UVs not remapped: %v", packed[0].UVs)
	}

	meshes[0].Texture = "missing.png"
	if _, err := PackMeshes(meshes, fakeAtlas{}); !errors.Is(err, errMissing) {
		t.Errorf("Expected wrapped atlas error, got %v", err)
	}
}
