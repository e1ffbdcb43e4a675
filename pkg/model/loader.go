package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxTextureRefDepth bounds "#ref" chains so cycles terminate.
const maxTextureRefDepth = 10

// Loader reads models from <dir>/<name>.json, follows parents and caches the
// merged result by name.
type Loader struct {
	dir        string
	textureDir string
	modelCache map[string]*Model
}

// NewLoader reads models from dir. Resolved texture names are turned into
// image paths under textureDir.
func NewLoader(dir, textureDir string) *Loader {
	return &Loader{
		dir:        dir,
		textureDir: textureDir,
		modelCache: make(map[string]*Model),
	}
}

// LoadModel returns the named model with parents merged and texture
// references resolved.
func (l *Loader) LoadModel(name string) (*Model, error) {
	return l.load(strings.TrimSuffix(name, ".json"), nil)
}

func (l *Loader) load(name string, chain []string) (*Model, error) {
	if model, ok := l.modelCache[name]; ok {
		return model, nil
	}
	for _, seen := range chain {
		if seen == name {
			return nil, fmt.Errorf("parent cycle: %s -> %s", strings.Join(chain, " -> "), name)
		}
	}

	path := filepath.Join(l.dir, filepath.FromSlash(name)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read model file: %w", err)
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("could not unmarshal model json %s: %w", name, err)
	}
	if model.Textures == nil {
		model.Textures = make(map[string]string)
	}

	if model.Parent != "" {
		parent, err := l.load(model.Parent, append(chain, name))
		if err != nil {
			return nil, fmt.Errorf("could not load parent model '%s': %w", model.Parent, err)
		}
		if len(model.Elements) == 0 {
			model.Elements = cloneElements(parent.Elements)
		}
		for key, val := range parent.Textures {
			if _, ok := model.Textures[key]; !ok {
				model.Textures[key] = val
			}
		}
	}

	resolveTextures(&model)
	l.modelCache[name] = &model
	return &model, nil
}

// cloneElements copies face maps so a child's resolution never rewrites its
// parent's cached faces.
func cloneElements(src []Element) []Element {
	out := make([]Element, len(src))
	for i, e := range src {
		out[i] = e
		out[i].Faces = make(map[string]Face, len(e.Faces))
		for k, f := range e.Faces {
			out[i].Faces[k] = f
		}
	}
	return out
}

func resolveTextures(m *Model) {
	for i := range m.Elements {
		for faceName, face := range m.Elements[i].Faces {
			if resolved := ResolveTexture(face.Texture, m); resolved != face.Texture {
				face.Texture = resolved
				m.Elements[i].Faces[faceName] = face
			}
		}
	}
}

// ResolveTexture follows "#key" references through m.Textures. Unresolvable
// references are returned as they stand.
func ResolveTexture(textureName string, m *Model) string {
	for i := 0; i < maxTextureRefDepth && strings.HasPrefix(textureName, "#"); i++ {
		resolved, ok := m.Textures[strings.TrimPrefix(textureName, "#")]
		if !ok {
			break
		}
		textureName = resolved
	}
	return textureName
}

// TexturePath maps a resolved texture name to the slash-separated image path
// the packer knows it by.
func (l *Loader) TexturePath(texture string) string {
	if filepath.Ext(texture) == "" {
		texture += ".png"
	}
	return filepath.ToSlash(filepath.Clean(filepath.Join(l.textureDir, texture)))
}
