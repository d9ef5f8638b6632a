package window

// EventKind discriminates the window event variants the engine consumes.
// Every other OS event collapses into EventIgnored and is never enqueued.
type EventKind int

const (
	// EventIgnored marks an OS event with no engine-side meaning. It exists
	// as the explicit catch-all variant; ignored events are dropped at the
	// callback boundary and never reach the queue.
	EventIgnored EventKind = iota

	// EventResize reports a new framebuffer size in pixels.
	EventResize

	// EventClose reports that the user asked to close the window.
	EventClose

	// EventKey reports a key press or release.
	EventKey

	// EventMouseMotion reports relative cursor movement since the last
	// cursor position sample.
	EventMouseMotion
)

// Event is one window event drained by PollEvents. Only the fields relevant
// to its Kind are populated.
type Event struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind EventKind

	// Width and Height carry the new framebuffer size for EventResize.
	Width, Height int

	// Key is the virtual key code for EventKey.
	Key uint32

	// Pressed is true for a key press (or repeat), false for a release.
	Pressed bool

	// DX and DY carry relative cursor motion for EventMouseMotion.
	DX, DY float32
}
