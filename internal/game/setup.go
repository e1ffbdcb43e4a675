package game

import (
	"fmt"

	"packed-flame/internal/config"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// SetupWindow opens a 4.1 core context and loads the GL bindings. glfw.Init
// must already have succeeded on the calling thread.
func SetupWindow(cfg config.WindowConfig) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		return nil, fmt.Errorf("could not load OpenGL: %w", err)
	}

	// without vsync the FPSLimiter paces frames
	if config.GetVSync() {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	return window, nil
}
