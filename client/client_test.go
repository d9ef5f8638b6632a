package client

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberworks/ember/engine/camera"
	"github.com/emberworks/ember/engine/window"
)

// fakeWindow satisfies window.Window with scripted key and mouse state.
type fakeWindow struct {
	keysDown map[uint32]bool
	mouseDX  float32
	mouseDY  float32
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) PollEvents() []window.Event { return nil }

func (w *fakeWindow) KeyDown(keyCode uint32) bool { return w.keysDown[keyCode] }

func (w *fakeWindow) MouseDelta() (float32, float32) {
	dx, dy := w.mouseDX, w.mouseDY
	w.mouseDX, w.mouseDY = 0, 0
	return dx, dy
}

func (w *fakeWindow) SetCursorCaptured(captured bool) {}

func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }

func (w *fakeWindow) ShouldClose() bool { return false }

func (w *fakeWindow) Close() error { return nil }

func (w *fakeWindow) Width() int { return 1280 }

func (w *fakeWindow) Height() int { return 720 }

// fakeConnection delivers pre-queued events over a closed-over channel.
type fakeConnection struct {
	events chan Event
	sent   [][]byte
	closed bool
}

var _ Connection = &fakeConnection{}

func (c *fakeConnection) Events() <-chan Event { return c.events }

func (c *fakeConnection) Send(payload []byte) error {
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConnection) Close() error {
	c.closed = true
	return nil
}

func newTestClient(t *testing.T, win *fakeWindow, options ...ClientOption) (Client, camera.Camera) {
	t.Helper()
	cam := camera.NewCamera()
	options = append([]ClientOption{WithClientCamera(cam)}, options...)
	return NewClient("tester", win, nil, options...), cam
}

func TestOnTickMovementKeys(t *testing.T) {
	win := &fakeWindow{keysDown: map[uint32]bool{
		window.KeyA:         true,
		window.KeyW:         true,
		window.KeyLeftShift: true,
	}}
	c, cam := newTestClient(t, win)

	c.OnTick(0.5)

	x, y, z := cam.Position()
	assert.InDelta(t, 0.5, x, 1e-6)
	assert.InDelta(t, 0.5, y, 1e-6)
	assert.InDelta(t, 0.5, z, 1e-6)
}

func TestOnTickOpposedKeysCancel(t *testing.T) {
	win := &fakeWindow{keysDown: map[uint32]bool{
		window.KeyA: true,
		window.KeyD: true,
	}}
	c, cam := newTestClient(t, win)

	c.OnTick(1.0)

	x, y, z := cam.Position()
	assert.Zero(t, x)
	assert.Zero(t, y)
	assert.Zero(t, z)
}

func TestOnTickMouseLook(t *testing.T) {
	win := &fakeWindow{keysDown: map[uint32]bool{}, mouseDX: 100, mouseDY: -50}
	c, cam := newTestClient(t, win, WithMouseSensitivity(0.01))

	c.OnTick(1.0 / 60.0)

	pitch, yaw, roll := cam.Rotation()
	assert.InDelta(t, -0.5, pitch, 1e-5)
	assert.InDelta(t, 1.0, yaw, 1e-5)
	assert.Zero(t, roll)

	// The accumulator resets after a read, so a still mouse adds nothing.
	c.OnTick(1.0 / 60.0)
	pitch, yaw, _ = cam.Rotation()
	assert.InDelta(t, -0.5, pitch, 1e-5)
	assert.InDelta(t, 1.0, yaw, 1e-5)
}

func TestOnTickDrainsConnectionEvents(t *testing.T) {
	conn := &fakeConnection{events: make(chan Event, 8)}
	conn.events <- Event{Kind: EventMessage, Payload: []byte("hello")}
	conn.events <- Event{Kind: EventMessage, Payload: []byte("world")}

	win := &fakeWindow{keysDown: map[uint32]bool{}}
	c, _ := newTestClient(t, win, WithConnection(conn))

	var received [][]byte
	c.SetMessageCallback(func(payload []byte) {
		received = append(received, payload)
	})

	c.OnTick(1.0 / 60.0)

	require.Len(t, received, 2)
	assert.Equal(t, []byte("hello"), received[0])
	assert.Equal(t, []byte("world"), received[1])

	// Nothing queued: the drain must not block the tick.
	c.OnTick(1.0 / 60.0)
	assert.Len(t, received, 2)
}

func TestReleaseClosesConnection(t *testing.T) {
	conn := &fakeConnection{events: make(chan Event)}
	win := &fakeWindow{keysDown: map[uint32]bool{}}
	c, _ := newTestClient(t, win, WithConnection(conn))

	c.Release()
	assert.True(t, conn.closed)
}

func TestSetName(t *testing.T) {
	win := &fakeWindow{keysDown: map[uint32]bool{}}
	c, _ := newTestClient(t, win)

	assert.Equal(t, "tester", c.Name())
	c.SetName("renamed")
	assert.Equal(t, "renamed", c.Name())
}
