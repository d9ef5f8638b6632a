package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent *engineWindow
	window *glfw.Window
}

// newPlatformWindow creates the GLFW window with input callbacks and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %v", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %v", err)
	}

	gw := &glfwWindow{
		parent: w,
		window: win,
	}
	w.internalWindow = gw

	// Every GLFW callback funnels into the collapsed event set; anything
	// without a handler here is an ignored event and never enqueued.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetKeyCallback
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
			w.push(Event{Kind: EventClose})
			return
		}
		code := uint32(key)
		switch action {
		case glfw.Press, glfw.Repeat:
			w.keysDown[code] = true
			w.push(Event{Kind: EventKey, Key: code, Pressed: true})
		case glfw.Release:
			delete(w.keysDown, code)
			w.push(Event{Kind: EventKey, Key: code, Pressed: false})
		}
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetCursorPosCallback
	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if !w.haveMousePos {
			w.lastMouseX, w.lastMouseY = xpos, ypos
			w.haveMousePos = true
			return
		}
		dx := float32(xpos - w.lastMouseX)
		dy := float32(ypos - w.lastMouseY)
		w.lastMouseX, w.lastMouseY = xpos, ypos
		w.mouseDX += dx
		w.mouseDY += dy
		w.push(Event{Kind: EventMouseMotion, DX: dx, DY: dy})
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetCloseCallback
	win.SetCloseCallback(func(_ *glfw.Window) {
		w.push(Event{Kind: EventClose})
	})

	// Use framebuffer size callback for pixel-accurate resize events.
	// On high-DPI displays (e.g., macOS Retina), framebuffer size differs from window size.
	// The renderer requires pixel dimensions for correct surface configuration.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		w.push(Event{Kind: EventResize, Width: width, Height: height})
	})

	// Update stored dimensions to reflect actual framebuffer size (may differ from requested on high-DPI).
	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	if w.captureCursor {
		platformSetCursorCaptured(w, true)
	}

	return nil
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
// Uses the wgpuglfw bridge package which has per-platform implementations (Windows, X11, Wayland, macOS).
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.internalWindow == nil {
		return nil
	}
	gw := w.internalWindow.(*glfwWindow)
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// platformPollEvents polls GLFW for pending events without blocking.
// Callbacks fire synchronously on this thread during the poll.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformPollEvents(w *engineWindow) {
	if w.internalWindow == nil {
		return
	}
	glfw.PollEvents()
}

// platformShouldClose reports whether GLFW has flagged the window for close.
func platformShouldClose(w *engineWindow) bool {
	if w.internalWindow == nil {
		return true
	}
	gw := w.internalWindow.(*glfwWindow)
	return gw.window.ShouldClose()
}

// platformSetCursorCaptured switches the GLFW cursor input mode.
// Captured mode hides the cursor and provides unbounded motion for
// mouse-look; raw motion is enabled when the platform supports it.
//
// Reference: https://www.glfw.org/docs/latest/input_guide.html#cursor_mode
func platformSetCursorCaptured(w *engineWindow, captured bool) {
	if w.internalWindow == nil {
		return
	}
	gw := w.internalWindow.(*glfwWindow)
	if captured {
		gw.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		if glfw.RawMouseMotionSupported() {
			gw.window.SetInputMode(glfw.RawMouseMotion, glfw.True)
		}
	} else {
		gw.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
	// Drop the stale absolute sample so the next motion event doesn't jump.
	w.haveMousePos = false
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
// Returns an error if the internal window has not been initialized.
//
// Parameters:
//   - w: the engineWindow to close
//
// Returns:
//   - error: error if the window is not initialized
func platformCloseWindow(w *engineWindow) error {
	if w.internalWindow == nil {
		return fmt.Errorf("window is not initialized")
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	glfw.Terminate()
	return nil
}
