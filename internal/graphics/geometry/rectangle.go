// Package geometry builds the small fixed meshes the renderer draws directly.
package geometry

import "github.com/go-gl/mathgl/mgl32"

// RectangleVertices returns the corners of a w×h rectangle centred on
// (cx, cy) in the z = 0 plane, ordered top-right, bottom-right, bottom-left,
// top-left.
func RectangleVertices(cx, cy, w, h float32) []mgl32.Vec3 {
	hw, hh := w/2, h/2
	return []mgl32.Vec3{
		{cx + hw, cy + hh, 0},
		{cx + hw, cy - hh, 0},
		{cx - hw, cy - hh, 0},
		{cx - hw, cy + hh, 0},
	}
}

// RectangleIndices triangulates the corners from RectangleVertices.
func RectangleIndices() []uint32 {
	return []uint32{
		0, 1, 3,
		1, 2, 3,
	}
}

// RectangleUVs maps the full texture onto the rectangle, v = 0 at the top.
func RectangleUVs() []mgl32.Vec2 {
	return []mgl32.Vec2{
		{1, 0},
		{1, 1},
		{0, 1},
		{0, 0},
	}
}

// BillboardBasis rotates the standard basis onto the given one so that a
// quad in the z = 0 plane faces back along forward.
func BillboardBasis(right, up, forward mgl32.Vec3) mgl32.Mat4 {
	back := forward.Mul(-1)
	return mgl32.Mat4{
		right[0], right[1], right[2], 0,
		up[0], up[1], up[2], 0,
		back[0], back[1], back[2], 0,
		0, 0, 0, 1,
	}
}

// Billboard returns the local-to-world matrix of a camera facing quad at
// position. The quad stays upright: only the camera's horizontal heading is
// followed.
func Billboard(position, cameraForward mgl32.Vec3) mgl32.Mat4 {
	up := mgl32.Vec3{0, 1, 0}
	flat := mgl32.Vec3{cameraForward[0], 0, cameraForward[2]}
	if flat.Len() < 1e-6 {
		flat = mgl32.Vec3{0, 0, -1}
	}
	flat = flat.Normalize()
	right := flat.Cross(up).Normalize()
	return mgl32.Translate3D(position[0], position[1], position[2]).Mul4(BillboardBasis(right, up, flat))
}
