// Command triangle draws one solid-color triangle through the shader cache
// and the batcher. It checks that a machine can run the render pipeline
// without needing any packed assets.
package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"
	"time"

	"packed-flame/internal/graphics"
	"packed-flame/internal/graphics/batcher"
	"packed-flame/internal/graphics/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	windowWidth  = 800
	windowHeight = 600
)

func init() {
	runtime.LockOSThread()
}

func main() {
	shadersDir := flag.String("shaders", graphics.ShadersDir, "directory holding the GLSL sources")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(*shadersDir, log); err != nil {
		log.Error("triangle failed", "error", err)
		os.Exit(1)
	}
}

func run(shadersDir string, log *slog.Logger) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err := glfw.CreateWindow(windowWidth, windowHeight, "packed-flame pipeline check", nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()
	window.MakeContextCurrent()
	// no vsync, report the raw frame rate
	glfw.SwapInterval(0)

	if err := gl.Init(); err != nil {
		return err
	}

	backend := gpu.NewGL()
	st := graphics.ShaderAbsolutePositionSolidColor
	shaders, err := graphics.NewShaderCache(backend, shadersDir, []graphics.ShaderType{st}, log)
	if err != nil {
		return err
	}
	b := batcher.New(backend, shaders, batcher.Limits{}, log)

	triangle := batcher.DrawEntry{
		ID:        1,
		Indices:   []uint32{0, 1, 2},
		Positions: []mgl32.Vec3{{0, 0.5, 0}, {-0.5, -0.5, 0}, {0.5, -0.5, 0}},
	}

	gl.ClearColor(0.0, 0.0, 0.0, 1.0)
	frames := 0
	last := time.Now()
	start := last

	for !window.ShouldClose() {
		if window.GetKey(glfw.KeyEscape) == glfw.Press {
			window.SetShouldClose(true)
		}
		gl.Clear(gl.COLOR_BUFFER_BIT)

		// cycle the color so uniform pushes are visible in the frame rate
		t := float32(time.Since(start).Seconds())
		green := float32(int(t)%2) * 0.5
		if err := b.QueueDraw(st, triangle, false); err != nil {
			return err
		}
		shaders.SetUniform(st, graphics.RGBColor, mgl32.Vec3{0, 0.5 + green, 0})
		b.DrawEverything()

		window.SwapBuffers()
		glfw.PollEvents()

		frames++
		if elapsed := time.Since(last); elapsed >= time.Second {
			log.Info("frame rate", "fps", int(float64(frames)/elapsed.Seconds()+0.5))
			frames = 0
			last = time.Now()
		}
	}
	return nil
}
