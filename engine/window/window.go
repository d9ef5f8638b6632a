package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input for the render loop.
// Wraps the platform-specific window implementation with a common interface.
// All methods must be called from the thread that created the window.
type Window interface {
	// PollEvents pumps the OS message queue and returns the window events
	// that arrived since the previous call, in arrival order. Events with
	// no engine-side meaning are dropped before they reach the queue.
	//
	// Returns:
	//   - []Event: drained events; nil when nothing happened
	PollEvents() []Event

	// KeyDown reports whether a key is currently held.
	//
	// Parameters:
	//   - keyCode: virtual key code (see keys.go)
	//
	// Returns:
	//   - bool: true while the key is held
	KeyDown(keyCode uint32) bool

	// MouseDelta returns the accumulated relative cursor motion since the
	// last call and resets the accumulator to zero.
	//
	// Returns:
	//   - float32: horizontal motion in pixels (positive = right)
	//   - float32: vertical motion in pixels (positive = down)
	MouseDelta() (float32, float32)

	// SetCursorCaptured grabs or releases the cursor. While captured the
	// cursor is hidden and motion is unbounded, for mouse-look control.
	//
	// Parameters:
	//   - captured: true to grab the cursor, false to release it
	SetCursorCaptured(captured bool)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// ShouldClose returns true once the window has been asked to close.
	//
	// Returns:
	//   - bool: true if the window should close
	ShouldClose() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, the pending event queue, and the
// sampled input state.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// width is the current framebuffer width in pixels.
	width int

	// height is the current framebuffer height in pixels.
	height int

	// captureCursor requests cursor grab at creation time.
	captureCursor bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// pending is the event queue filled by platform callbacks and drained
	// by PollEvents. Single-threaded: callbacks fire inside the platform
	// poll on the same thread.
	pending []Event

	// keysDown tracks currently-held keys by virtual key code.
	keysDown map[uint32]bool

	// mouseDX and mouseDY accumulate relative cursor motion between
	// MouseDelta calls.
	mouseDX, mouseDY float32

	// lastMouseX and lastMouseY are the previous absolute cursor sample,
	// used to derive relative motion.
	lastMouseX, lastMouseY float64

	// haveMousePos is false until the first cursor sample, so the first
	// motion event doesn't produce a huge jump.
	haveMousePos bool
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:    "ember",
		width:    1280,
		height:   720,
		keysDown: make(map[uint32]bool),
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) PollEvents() []Event {
	platformPollEvents(w)
	if len(w.pending) == 0 {
		return nil
	}
	drained := w.pending
	w.pending = nil
	return drained
}

func (w *engineWindow) KeyDown(keyCode uint32) bool {
	return w.keysDown[keyCode]
}

func (w *engineWindow) MouseDelta() (float32, float32) {
	dx, dy := w.mouseDX, w.mouseDY
	w.mouseDX, w.mouseDY = 0, 0
	return dx, dy
}

func (w *engineWindow) SetCursorCaptured(captured bool) {
	platformSetCursorCaptured(w, captured)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) ShouldClose() bool {
	return platformShouldClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// push appends an event to the pending queue unless it is ignored.
func (w *engineWindow) push(e Event) {
	if e.Kind == EventIgnored {
		return
	}
	w.pending = append(w.pending, e)
}
