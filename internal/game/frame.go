package game

import (
	"slices"

	"packed-flame/internal/graphics"
	"packed-flame/internal/graphics/geometry"
	"packed-flame/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// perFrameUniforms are pushed to every requested program that declares them.
var perFrameUniforms = []graphics.UniformRole{
	graphics.CameraToClip,
	graphics.WorldToCamera,
	graphics.AspectRatio,
	graphics.Time,
}

// RunFrame renders one frame: queue draws, push uniforms, resolve the flame
// frame, write and flush transforms, then submit the batches. Presenting is
// left to the caller.
func RunFrame(s *Scene, st *FrameState, in FrameInput) {
	func() {
		defer profiling.Track("frame.Queue")()
		for _, e := range s.statics {
			if err := s.Batcher.QueueDraw(DrawShader, e, false); err != nil {
				s.log.Error("static draw rejected", "id", e.ID, "error", err)
			}
		}
		if s.crosshairID != 0 {
			e := crosshairEntry(s.crosshairID, in.AspectRatio)
			if err := s.Batcher.QueueDraw(CrosshairShader, e, false); err != nil {
				s.log.Error("crosshair draw rejected", "error", err)
			}
		}
	}()

	func() {
		defer profiling.Track("frame.Uniforms")()
		values := map[graphics.UniformRole]any{
			graphics.CameraToClip:  in.Projection,
			graphics.WorldToCamera: in.View,
			graphics.AspectRatio:   in.AspectRatio,
			graphics.Time:          float32(in.TimeMs / 1000.0),
		}
		for _, sh := range s.requested {
			for _, role := range perFrameUniforms {
				if s.Shaders.Declares(sh, role) {
					s.Shaders.SetUniform(sh, role, values[role])
				}
			}
		}
	}()

	func() {
		defer profiling.Track("frame.Flame")()
		local := s.Flame.CurrentFrameUV(in.TimeMs)
		uvs, err := s.Packer.Coordinates(s.flameTexture, local[:])
		if err != nil {
			s.log.Error("flame texture lookup failed", "error", err)
			return
		}
		changed := !slices.Equal(uvs, st.LastFlameUVs)
		st.LastFlameUVs = uvs

		scale := s.Flicker.Update(in.DT)
		ltw := geometry.Billboard(s.flamePosition, in.CameraForward).Mul4(mgl32.Scale3D(scale, scale, 1))
		if err := st.Transforms.Set(FlameSlot, ltw); err != nil {
			s.log.Error("flame transform rejected", "error", err)
		}

		e := s.flameTemplate
		e.UVs = uvs
		if err := s.Batcher.QueueDraw(DrawShader, e, changed); err != nil {
			s.log.Error("flame draw rejected", "id", e.ID, "error", err)
		}
		if changed {
			s.log.Debug("flame frame changed", "frame", s.Flame.FrameIndex(in.TimeMs))
		}
	}()

	func() {
		defer profiling.Track("frame.Draw")()
		st.Transforms.Flush()
		s.Textures.Bind()
		s.Batcher.DrawEverything()
	}()
	st.Frames++
}
