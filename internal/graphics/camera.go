package graphics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a free-flying perspective camera driven by mouse look.
type Camera struct {
	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32

	Position mgl32.Vec3
	Yaw      float64
	Pitch    float64
	Speed    float32

	Sensitivity float64
	firstMouse  bool
	lastX       float64
	lastY       float64
}

func NewCamera(width, height int) *Camera {
	c := &Camera{
		FOV:         60.0,
		NearPlane:   0.1,
		FarPlane:    1000.0,
		Position:    mgl32.Vec3{0, 0, 3},
		Yaw:         -90.0,
		Speed:       2.5,
		Sensitivity: 0.1,
		firstMouse:  true,
	}
	c.SetViewport(width, height)
	return c
}

// SetViewport updates the aspect ratio; zero heights are ignored.
func (c *Camera) SetViewport(width, height int) {
	if height <= 0 {
		return
	}
	c.AspectRatio = float32(width) / float32(height)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front()), c.Up())
}

// HandleMouseMovement turns cursor motion into yaw and pitch. The first event
// only records the cursor position.
func (c *Camera) HandleMouseMovement(xpos, ypos float64) {
	if c.firstMouse {
		c.lastX = xpos
		c.lastY = ypos
		c.firstMouse = false
		return
	}

	xoffset := (xpos - c.lastX) * c.Sensitivity
	yoffset := (c.lastY - ypos) * c.Sensitivity
	c.lastX = xpos
	c.lastY = ypos

	c.Yaw += xoffset
	c.Pitch += yoffset

	// Constrain pitch
	if c.Pitch > 89.0 {
		c.Pitch = 89.0
	}
	if c.Pitch < -89.0 {
		c.Pitch = -89.0
	}
}

// ResetMouse makes the next cursor event re-anchor instead of rotating.
func (c *Camera) ResetMouse() { c.firstMouse = true }

func (c *Camera) Front() mgl32.Vec3 {
	y := mgl32.DegToRad(float32(c.Yaw))
	pt := mgl32.DegToRad(float32(c.Pitch))
	fx := float32(math.Cos(float64(y)) * math.Cos(float64(pt)))
	fy := float32(math.Sin(float64(pt)))
	fz := float32(math.Sin(float64(y)) * math.Cos(float64(pt)))
	return mgl32.Vec3{fx, fy, fz}.Normalize()
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Front().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.Right().Cross(c.Front()).Normalize()
}

// Move translates the camera along its own axes. forward, right and up are in
// [-1, 1] and scaled by Speed and dt.
func (c *Camera) Move(forward, right, up float32, dt float64) {
	step := c.Speed * float32(dt)
	c.Position = c.Position.
		Add(c.Front().Mul(forward * step)).
		Add(c.Right().Mul(right * step)).
		Add(mgl32.Vec3{0, 1, 0}.Mul(up * step))
}
