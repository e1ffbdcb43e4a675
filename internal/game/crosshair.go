package game

import (
	"packed-flame/internal/graphics"
	"packed-flame/internal/graphics/batcher"
	"packed-flame/internal/graphics/geometry"

	"github.com/go-gl/mathgl/mgl32"
)

// CrosshairShader draws the screen-center crosshair when it is requested.
const CrosshairShader = graphics.ShaderAbsolutePositionSolidColor

const (
	crosshairArm   = 0.02
	crosshairWidth = 0.003
)

var crosshairColor = mgl32.Vec3{1, 1, 1}

// crosshairEntry builds the two crosshair bars in clip space. x is divided by
// aspect so both arms have the same length on screen. z sits on the near
// plane so scene geometry never hides it.
func crosshairEntry(id batcher.ObjectID, aspect float32) batcher.DrawEntry {
	if aspect <= 0 {
		aspect = 1
	}
	horizontal := geometry.RectangleVertices(0, 0, 2*crosshairArm/aspect, crosshairWidth)
	vertical := geometry.RectangleVertices(0, 0, crosshairWidth/aspect, 2*crosshairArm)
	positions := append(horizontal, vertical...)
	for i := range positions {
		positions[i][2] = -1
	}

	quad := geometry.RectangleIndices()
	indices := append([]uint32(nil), quad...)
	for _, i := range quad {
		indices = append(indices, i+4)
	}
	return batcher.DrawEntry{ID: id, Indices: indices, Positions: positions}
}
