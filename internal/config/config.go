// Package config loads packed-flame.yaml over built-in defaults and keeps the
// few settings that change at runtime behind a lock.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"packed-flame/internal/logging"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the application looks for its configuration.
const DefaultPath = "packed-flame.yaml"

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

type AssetsConfig struct {
	// Dir is walked for textures to pack.
	Dir           string `yaml:"dir"`
	PackedDir     string `yaml:"packed_dir"`
	ShadersDir    string `yaml:"shaders_dir"`
	Model         string `yaml:"model"`
	TextureDir    string `yaml:"texture_dir"`
	FlameManifest string `yaml:"flame_manifest"`
	FlameSheet    string `yaml:"flame_sheet"`
}

type PackerConfig struct {
	SideLength int `yaml:"side_length"`
	Padding    int `yaml:"padding"`
	Workers    int `yaml:"workers"`
}

type AnimationConfig struct {
	FPS  float64 `yaml:"fps"`
	Loop bool    `yaml:"loop"`
	// Width and Height size the flame quad in world units.
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
	// Flicker is the peak scale change of the flame, 0 disables it.
	Flicker float32 `yaml:"flicker"`
	// Base is the world position of the bottom center of the flame.
	Base [3]float32 `yaml:"base"`
}

type BatchConfig struct {
	MaxVertices int `yaml:"max_vertices"`
	MaxIndices  int `yaml:"max_indices"`
	MaxEntries  int `yaml:"max_entries"`
}

type Config struct {
	Window    WindowConfig    `yaml:"window"`
	FPSLimit  int             `yaml:"fps_limit"`
	Assets    AssetsConfig    `yaml:"assets"`
	Packer    PackerConfig    `yaml:"packer"`
	Shaders   []string        `yaml:"shaders"`
	Animation AnimationConfig `yaml:"animation"`
	Batch     BatchConfig     `yaml:"batch"`
	Logging   []logging.Sink  `yaml:"log_sinks"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Window:   WindowConfig{Width: 1280, Height: 720, Title: "packed flame"},
		FPSLimit: 0,
		Assets: AssetsConfig{
			Dir:           "assets",
			PackedDir:     "assets/packed_textures",
			ShadersDir:    "assets/shaders",
			Model:         "assets/models/lighter.json",
			TextureDir:    "assets/textures",
			FlameManifest: "assets/spritesheets/flame.json",
			FlameSheet:    "assets/spritesheets/flame.png",
		},
		Packer: PackerConfig{SideLength: 1024, Padding: 1},
		Shaders: []string{
			"texture_packer_cwl_v_transformation_ubos_1024",
		},
		Animation: AnimationConfig{FPS: 30, Loop: true, Width: 0.3, Height: 0.7, Flicker: 0.05, Base: [3]float32{0.5, 0.82, 0.5}},
		Batch:     BatchConfig{MaxVertices: 1 << 20, MaxIndices: 3 << 20, MaxEntries: 1 << 16},
		Logging: []logging.Sink{
			{Kind: "console", Level: "debug"},
			{Kind: "file", Level: "info", Path: "packed-flame.log"},
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Packer.SideLength <= 0 {
		return fmt.Errorf("packer side length must be positive, got %d", c.Packer.SideLength)
	}
	if c.Packer.Padding < 0 {
		return fmt.Errorf("packer padding must not be negative, got %d", c.Packer.Padding)
	}
	if len(c.Shaders) == 0 {
		return errors.New("no shaders requested")
	}
	if c.FPSLimit < 0 {
		return fmt.Errorf("fps limit must not be negative, got %d", c.FPSLimit)
	}
	return nil
}

// Apply publishes the runtime-adjustable settings.
func (c *Config) Apply() {
	SetFPSLimit(c.FPSLimit)
	SetVSync(c.Window.VSync)
}

// RenderSettings holds the settings that may change while running.
type RenderSettings struct {
	mu       sync.RWMutex
	fpsLimit int // 0 means unlimited
	vsync    bool
}

var globalRenderSettings = &RenderSettings{}

// GetFPSLimit returns the frame cap, 0 when unlimited.
func GetFPSLimit() int {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.fpsLimit
}

// SetFPSLimit sets the frame cap. Negative values mean unlimited.
func SetFPSLimit(limit int) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}
	globalRenderSettings.fpsLimit = limit
}

func GetVSync() bool {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.vsync
}

func SetVSync(enabled bool) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	globalRenderSettings.vsync = enabled
}
