package graphics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ShadersDir is the default location of the GLSL sources.
const ShadersDir = "assets/shaders"

// ShaderType is the fixed set of programs the renderer knows how to build.
type ShaderType int

const (
	// ShaderTexturePackerTransformUBO1024 samples packed atlas pages and
	// places vertices with a per-vertex index into the 1024-matrix UBO.
	ShaderTexturePackerTransformUBO1024 ShaderType = iota
	// ShaderTexturePackerTransformUBO1024Tinted multiplies the sample by rgb_color.
	ShaderTexturePackerTransformUBO1024Tinted
	// ShaderAbsolutePositionSolidColor draws untransformed positions in one color.
	ShaderAbsolutePositionSolidColor

	shaderTypeCount
)

type shaderSource struct {
	name     string
	vertex   string
	fragment string
}

var shaderSources = [shaderTypeCount]shaderSource{
	ShaderTexturePackerTransformUBO1024: {
		name:     "texture_packer_cwl_v_transformation_ubos_1024",
		vertex:   "texture_packer_cwl_v_transformation_ubos_1024.vert",
		fragment: "texture_packer_cwl_v_transformation_ubos_1024.frag",
	},
	ShaderTexturePackerTransformUBO1024Tinted: {
		name:     "texture_packer_cwl_v_transformation_ubos_1024_tinted",
		vertex:   "texture_packer_cwl_v_transformation_ubos_1024.vert",
		fragment: "texture_packer_cwl_v_transformation_ubos_1024_tinted.frag",
	},
	ShaderAbsolutePositionSolidColor: {
		name:     "absolute_position_with_solid_color",
		vertex:   "absolute_position_with_solid_color.vert",
		fragment: "absolute_position_with_solid_color.frag",
	},
}

// ShaderTypes returns every shader type in declaration order.
func ShaderTypes() []ShaderType {
	out := make([]ShaderType, 0, shaderTypeCount)
	for st := range shaderTypeCount {
		out = append(out, st)
	}
	return out
}

func (st ShaderType) Valid() bool { return st >= 0 && st < shaderTypeCount }

func (st ShaderType) String() string {
	if !st.Valid() {
		return fmt.Sprintf("ShaderType(%d)", int(st))
	}
	return shaderSources[st].name
}

// ParseShaderType resolves a shader name as written in configuration.
func ParseShaderType(name string) (ShaderType, error) {
	for st := range shaderTypeCount {
		if strings.EqualFold(shaderSources[st].name, name) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown shader type %q", name)
}

// readShaderSources loads the vertex and fragment source for st from dir.
func readShaderSources(dir string, st ShaderType) (string, string, error) {
	src := shaderSources[st]
	vertexSource, err := os.ReadFile(filepath.Join(dir, src.vertex))
	if err != nil {
		return "", "", fmt.Errorf("could not read vertex shader file: %v", err)
	}

	fragmentSource, err := os.ReadFile(filepath.Join(dir, src.fragment))
	if err != nil {
		return "", "", fmt.Errorf("could not read fragment shader file: %v", err)
	}
	return string(vertexSource), string(fragmentSource), nil
}

// UniformRole is the closed set of uniforms the pipeline pushes. Each role maps
// to a fixed GLSL name; a program may omit any of them.
type UniformRole int

const (
	CameraToClip UniformRole = iota
	WorldToCamera
	LocalToWorld
	PackedTextures
	PackedTextureBoundingBoxes
	RGBColor
	AspectRatio
	Time

	uniformRoleCount
)

var uniformNames = [uniformRoleCount]string{
	CameraToClip:               "camera_to_clip",
	WorldToCamera:              "world_to_camera",
	LocalToWorld:               "local_to_world",
	PackedTextures:             "packed_textures",
	PackedTextureBoundingBoxes: "packed_texture_bounding_boxes",
	RGBColor:                   "rgb_color",
	AspectRatio:                "aspect_ratio",
	Time:                       "time",
}

func (r UniformRole) String() string {
	if r < 0 || r >= uniformRoleCount {
		return fmt.Sprintf("UniformRole(%d)", int(r))
	}
	return uniformNames[r]
}

// Texture units and the UBO binding shared by the GLSL sources.
const (
	PackedTexturesUnit             = 0
	PackedTextureBoundingBoxesUnit = 1

	TransformBlockName = "TransformationBlock"
	TransformBinding   = 0
)
