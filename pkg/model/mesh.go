package model

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// TexturedMesh is the part of a model drawn with a single texture. UVs are
// local to that texture, v = 0 at the top row.
type TexturedMesh struct {
	Texture   string
	Indices   []uint32
	Positions []mgl32.Vec3
	UVs       []mgl32.Vec2
}

var faceOrder = []string{FaceNorth, FaceSouth, FaceEast, FaceWest, FaceUp, FaceDown}

// faceCorners returns the corners of one cuboid side seen from outside,
// ordered top-right, bottom-right, bottom-left, top-left.
func faceCorners(dir string, lo, hi mgl32.Vec3) ([4]mgl32.Vec3, bool) {
	x0, y0, z0 := lo[0], lo[1], lo[2]
	x1, y1, z1 := hi[0], hi[1], hi[2]
	switch dir {
	case FaceNorth:
		return [4]mgl32.Vec3{{x0, y1, z0}, {x0, y0, z0}, {x1, y0, z0}, {x1, y1, z0}}, true
	case FaceSouth:
		return [4]mgl32.Vec3{{x1, y1, z1}, {x1, y0, z1}, {x0, y0, z1}, {x0, y1, z1}}, true
	case FaceEast:
		return [4]mgl32.Vec3{{x1, y1, z0}, {x1, y0, z0}, {x1, y0, z1}, {x1, y1, z1}}, true
	case FaceWest:
		return [4]mgl32.Vec3{{x0, y1, z1}, {x0, y0, z1}, {x0, y0, z0}, {x0, y1, z0}}, true
	case FaceUp:
		return [4]mgl32.Vec3{{x1, y1, z0}, {x1, y1, z1}, {x0, y1, z1}, {x0, y1, z0}}, true
	case FaceDown:
		return [4]mgl32.Vec3{{x1, y0, z1}, {x1, y0, z0}, {x0, y0, z0}, {x0, y0, z1}}, true
	}
	return [4]mgl32.Vec3{}, false
}

func faceUVs(uv [4]float32) [4]mgl32.Vec2 {
	if uv == [4]float32{} {
		uv = [4]float32{0, 0, 16, 16}
	}
	u0, v0, u1, v1 := uv[0]/16, uv[1]/16, uv[2]/16, uv[3]/16
	return [4]mgl32.Vec2{{u1, v0}, {u1, v1}, {u0, v1}, {u0, v0}}
}

func rotation(r *Rotation) (mgl32.Mat4, error) {
	if r == nil || r.Angle == 0 {
		return mgl32.Ident4(), nil
	}
	var axis mgl32.Vec3
	switch r.Axis {
	case "x":
		axis = mgl32.Vec3{1, 0, 0}
	case "y":
		axis = mgl32.Vec3{0, 1, 0}
	case "z":
		axis = mgl32.Vec3{0, 0, 1}
	default:
		return mgl32.Mat4{}, fmt.Errorf("unknown rotation axis %q", r.Axis)
	}
	o := mgl32.Vec3(r.Origin).Mul(1.0 / 16)
	return mgl32.Translate3D(o[0], o[1], o[2]).
		Mul4(mgl32.HomogRotate3D(mgl32.DegToRad(r.Angle), axis)).
		Mul4(mgl32.Translate3D(-o[0], -o[1], -o[2])), nil
}

// BuildMeshes turns the faces of m into one mesh per texture, ordered by
// texture name. Positions are in block units (16 model units = 1).
func BuildMeshes(m *Model) ([]TexturedMesh, error) {
	byTexture := make(map[string]*TexturedMesh)
	for ei, e := range m.Elements {
		rot, err := rotation(e.Rotation)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", ei, err)
		}
		lo := mgl32.Vec3(e.From).Mul(1.0 / 16)
		hi := mgl32.Vec3(e.To).Mul(1.0 / 16)

		for _, dir := range faceOrder {
			face, ok := e.Faces[dir]
			if !ok {
				continue
			}
			if face.Texture == "" || face.Texture[0] == '#' {
				return nil, fmt.Errorf("element %d face %s: unresolved texture %q", ei, dir, face.Texture)
			}
			corners, _ := faceCorners(dir, lo, hi)
			uvs := faceUVs(face.UV)

			tm, ok := byTexture[face.Texture]
			if !ok {
				tm = &TexturedMesh{Texture: face.Texture}
				byTexture[face.Texture] = tm
			}
			base := uint32(len(tm.Positions))
			for i, c := range corners {
				tm.Positions = append(tm.Positions, mgl32.TransformCoordinate(c, rot))
				tm.UVs = append(tm.UVs, uvs[i])
			}
			tm.Indices = append(tm.Indices, base+0, base+1, base+3, base+1, base+2, base+3)
		}
	}

	out := make([]TexturedMesh, 0, len(byTexture))
	for _, name := range slices.Sorted(maps.Keys(byTexture)) {
		out = append(out, *byTexture[name])
	}
	return out, nil
}

// LoadMeshes loads the named model and meshes it, naming each mesh by the
// image path of its texture.
func (l *Loader) LoadMeshes(name string) ([]TexturedMesh, error) {
	m, err := l.LoadModel(name)
	if err != nil {
		return nil, err
	}
	meshes, err := BuildMeshes(m)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	for i := range meshes {
		meshes[i].Texture = l.TexturePath(meshes[i].Texture)
	}
	return meshes, nil
}
