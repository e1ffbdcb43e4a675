package model

// Model is an element-box model: axis-aligned cuboids in 0..16 units whose
// faces each name a texture and a UV window.
type Model struct {
	Parent   string            `json:"parent"`
	Textures map[string]string `json:"textures"`
	Elements []Element         `json:"elements"`
}

type Element struct {
	From     [3]float32      `json:"from"`
	To       [3]float32      `json:"to"`
	Rotation *Rotation       `json:"rotation"`
	Faces    map[string]Face `json:"faces"`
}

// Rotation turns an element about Origin. Angle is in degrees.
type Rotation struct {
	Origin [3]float32 `json:"origin"`
	Angle  float32    `json:"angle"`
	Axis   string     `json:"axis"`
}

// Face is one side of an element. UV is [u0, v0, u1, v1] in 0..16 texture
// units; an all-zero UV maps the whole texture.
type Face struct {
	UV      [4]float32 `json:"uv"`
	Texture string     `json:"texture"`
}

// Face directions accepted in Element.Faces.
const (
	FaceNorth = "north"
	FaceSouth = "south"
	FaceEast  = "east"
	FaceWest  = "west"
	FaceUp    = "up"
	FaceDown  = "down"
)
