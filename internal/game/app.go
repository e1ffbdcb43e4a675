package game

import (
	"log/slog"
	"time"

	"packed-flame/internal/graphics"
	"packed-flame/internal/input"
	"packed-flame/internal/profiling"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// slowFrame is the frame time past which the top profiling buckets are logged.
const slowFrame = 16 * time.Millisecond

// startPosition frames the lighter from the front.
var startPosition = mgl32.Vec3{0.5, 0.8, 2.5}

// App drives the window: input, camera and one RunFrame per iteration.
type App struct {
	window       *glfw.Window
	inputManager *input.InputManager
	camera       *graphics.Camera
	scene        *Scene
	state        *FrameState
	log          *slog.Logger

	fpsLimiter *FPSLimiter
	start      time.Time
	lastTime   time.Time
	paused     bool
	profiling  bool
}

func NewApp(window *glfw.Window, scene *Scene, state *FrameState, log *slog.Logger) *App {
	width, height := window.GetFramebufferSize()
	a := &App{
		window:       window,
		inputManager: input.NewInputManager(),
		camera:       graphics.NewCamera(width, height),
		scene:        scene,
		state:        state,
		log:          log,
		fpsLimiter:   NewFPSLimiter(),
	}
	a.camera.Position = startPosition
	a.inputManager.SetCallbacks(window)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !a.paused {
			a.camera.HandleMouseMovement(xpos, ypos)
		}
	})
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		gl.Viewport(0, 0, int32(width), int32(height))
		a.camera.SetViewport(width, height)
	})
	return a
}

func (a *App) Run() {
	a.start = time.Now()
	a.lastTime = a.start
	for !a.window.ShouldClose() {
		a.tick()
	}
}

func (a *App) tick() {
	profiling.ResetFrame()
	now := time.Now()
	dt := now.Sub(a.lastTime).Seconds()
	a.lastTime = now

	func() { defer profiling.Track("glfw.PollEvents")(); glfw.PollEvents() }()
	a.handleInput(dt)

	gl.ClearColor(0.1, 0.2, 0.4, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	RunFrame(a.scene, a.state, FrameInput{
		TimeMs:        float64(now.Sub(a.start).Microseconds()) / 1000.0,
		DT:            dt,
		View:          a.camera.GetViewMatrix(),
		Projection:    a.camera.GetProjectionMatrix(),
		CameraForward: a.camera.Front(),
		AspectRatio:   a.camera.AspectRatio,
	})

	func() { defer profiling.Track("glfw.SwapBuffers")(); a.window.SwapBuffers() }()

	if took := time.Since(now); took > slowFrame || a.profiling {
		stats := a.scene.Batcher.Stats()
		a.log.Debug("frame", "took", took, "draws", stats.DrawCalls, "uploads", stats.Uploads,
			"vertices", stats.Vertices, "top", profiling.TopN(5))
	}

	a.inputManager.PostUpdate()
	a.fpsLimiter.Wait()
}

func (a *App) handleInput(dt float64) {
	im := a.inputManager
	if im.JustPressed(input.ActionQuit) {
		a.window.SetShouldClose(true)
	}
	if im.JustPressed(input.ActionToggleProfiling) {
		a.profiling = !a.profiling
	}
	if im.JustPressed(input.ActionReleaseCursor) {
		a.paused = true
		a.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
	if a.paused && im.JustPressed(input.ActionMouseLeft) {
		a.paused = false
		a.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		a.camera.ResetMouse()
	}
	if a.paused {
		return
	}
	a.camera.Move(
		im.Axis(input.ActionMoveBackward, input.ActionMoveForward),
		im.Axis(input.ActionMoveLeft, input.ActionMoveRight),
		im.Axis(input.ActionMoveDown, input.ActionMoveUp),
		dt,
	)
}
