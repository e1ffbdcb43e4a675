// Package input maps GLFW key and mouse events to logical actions with
// per-frame edge detection.
package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action is a logical control, not a physical key.
type Action int

const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionReleaseCursor
	ActionQuit
	ActionToggleProfiling
	ActionMouseLeft
	ActionCount // sentinel for array sizing
)

// InputManager tracks action state. GLFW delivers events on the thread that
// polls, so the lock only matters for readers on other goroutines.
type InputManager struct {
	mu sync.RWMutex

	keyToActions         map[glfw.Key][]Action
	mouseButtonToActions map[glfw.MouseButton][]Action

	currentState [ActionCount]bool
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool
}

// NewInputManager returns a manager with the default fly-camera bindings.
func NewInputManager() *InputManager {
	im := &InputManager{
		keyToActions:         make(map[glfw.Key][]Action),
		mouseButtonToActions: make(map[glfw.MouseButton][]Action),
	}

	im.BindKey(glfw.KeyW, ActionMoveForward)
	im.BindKey(glfw.KeyS, ActionMoveBackward)
	im.BindKey(glfw.KeyA, ActionMoveLeft)
	im.BindKey(glfw.KeyD, ActionMoveRight)
	im.BindKey(glfw.KeySpace, ActionMoveUp)
	im.BindKey(glfw.KeyLeftShift, ActionMoveDown)
	im.BindKey(glfw.KeyEscape, ActionReleaseCursor)
	im.BindKey(glfw.KeyQ, ActionQuit)
	im.BindKey(glfw.KeyF3, ActionToggleProfiling)
	im.BindMouseButton(glfw.MouseButtonLeft, ActionMouseLeft)
	return im
}

// BindKey adds action to the actions triggered by key.
func (im *InputManager) BindKey(key glfw.Key, action Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	for _, a := range im.keyToActions[key] {
		if a == action {
			return
		}
	}
	im.keyToActions[key] = append(im.keyToActions[key], action)
}

func (im *InputManager) UnbindKey(key glfw.Key) {
	im.mu.Lock()
	defer im.mu.Unlock()
	delete(im.keyToActions, key)
}

func (im *InputManager) BindMouseButton(button glfw.MouseButton, action Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	for _, a := range im.mouseButtonToActions[button] {
		if a == action {
			return
		}
	}
	im.mouseButtonToActions[button] = append(im.mouseButtonToActions[button], action)
}

func (im *InputManager) set(actions []Action, pressed bool) {
	for _, a := range actions {
		if pressed && !im.currentState[a] {
			im.justPressed[a] = true
		}
		if !pressed && im.currentState[a] {
			im.justReleased[a] = true
		}
		im.currentState[a] = pressed
	}
}

// HandleKeyEvent updates the actions bound to key. Repeats are ignored.
func (im *InputManager) HandleKeyEvent(key glfw.Key, action glfw.Action) {
	if action == glfw.Repeat {
		return
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	im.set(im.keyToActions[key], action == glfw.Press)
}

func (im *InputManager) HandleMouseButtonEvent(button glfw.MouseButton, action glfw.Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.set(im.mouseButtonToActions[button], action == glfw.Press)
}

// SetCallbacks routes the window's key and mouse button events here.
func (im *InputManager) SetCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleKeyEvent(key, action)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleMouseButtonEvent(button, action)
	})
}

// PostUpdate clears the edge flags. Call once at the end of each frame.
func (im *InputManager) PostUpdate() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.justPressed = [ActionCount]bool{}
	im.justReleased = [ActionCount]bool{}
}

func (im *InputManager) IsActive(action Action) bool {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.currentState[action]
}

func (im *InputManager) JustPressed(action Action) bool {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.justPressed[action]
}

func (im *InputManager) JustReleased(action Action) bool {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.justReleased[action]
}

// Axis returns -1, 0 or 1 from a pair of opposing actions.
func (im *InputManager) Axis(negative, positive Action) float32 {
	var v float32
	if im.IsActive(positive) {
		v++
	}
	if im.IsActive(negative) {
		v--
	}
	return v
}
