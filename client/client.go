package client

import (
	"sync"

	"github.com/emberworks/ember/engine/camera"
	"github.com/emberworks/ember/engine/renderer"
	"github.com/emberworks/ember/engine/window"
	"github.com/emberworks/ember/logger"
	"go.uber.org/zap"
)

// defaultMouseSensitivity converts cursor pixels to radians of camera
// rotation.
const defaultMouseSensitivity = 0.004

// clientImpl implements the Client interface.
type clientImpl struct {
	mu *sync.Mutex

	name string

	window window.Window
	cam    camera.Camera
	conn   Connection

	mouseSensitivity float32
	messageCallback  func(payload []byte)
}

var _ Client = &clientImpl{}

// Client ties the window, the render engine's camera, and the server
// connection together. OnTick runs once per game tick from the engine's tick
// callback: it drains connection events, applies keyboard movement and
// mouse-look to the camera, and returns control to the engine for frame
// sequencing.
type Client interface {
	// Name returns the client's player name.
	//
	// Returns:
	//   - string: the player name
	Name() string

	// SetName changes the client's player name.
	//
	// Parameters:
	//   - name: the new player name
	SetName(name string)

	// Connection returns the server connection, or nil when offline.
	//
	// Returns:
	//   - Connection: the connection instance
	Connection() Connection

	// SetMessageCallback registers a function that receives each server
	// datagram drained during OnTick.
	//
	// Parameters:
	//   - callback: function receiving the datagram payload
	SetMessageCallback(callback func(payload []byte))

	// SetMouseSensitivity sets the pixels-to-radians factor for mouse-look.
	//
	// Parameters:
	//   - sensitivity: rotation in radians per pixel of cursor motion
	SetMouseSensitivity(sensitivity float32)

	// OnTick advances the client by one game tick: drains pending
	// connection events, then applies movement keys and accumulated mouse
	// motion to the camera.
	//
	// Parameters:
	//   - delta: tick duration in seconds
	OnTick(delta float32)

	// Release closes the connection if one exists.
	Release()
}

// NewClient creates a new Client bound to a window and a render engine's
// camera.
//
// Parameters:
//   - name: the player name
//   - win: the window sampled for keyboard and mouse state
//   - re: the render engine whose camera the client moves; may be nil when a camera is injected via WithClientCamera
//   - options: functional options to configure the client
//
// Returns:
//   - Client: the newly created client
func NewClient(name string, win window.Window, re renderer.RenderEngine, options ...ClientOption) Client {
	c := &clientImpl{
		mu:               &sync.Mutex{},
		name:             name,
		window:           win,
		mouseSensitivity: defaultMouseSensitivity,
	}
	if re != nil {
		c.cam = re.Camera()
	}

	for _, opt := range options {
		opt(c)
	}

	if c.window == nil {
		panic("client requires a window")
	}
	if c.cam == nil {
		panic("client requires a camera, pass a render engine or WithClientCamera")
	}

	logger.Log.Info("client created", zap.String("name", name))
	return c
}

func (c *clientImpl) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *clientImpl) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

func (c *clientImpl) Connection() Connection {
	return c.conn
}

func (c *clientImpl) SetMessageCallback(callback func(payload []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageCallback = callback
}

func (c *clientImpl) SetMouseSensitivity(sensitivity float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mouseSensitivity = sensitivity
}

func (c *clientImpl) OnTick(delta float32) {
	c.drainEvents()
	c.applyMovement(delta)
	c.applyMouseLook()
}

func (c *clientImpl) Release() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		logger.Log.Warn("connection close failed", zap.Error(err))
	}
}

// drainEvents empties the connection's event channel without blocking.
func (c *clientImpl) drainEvents() {
	if c.conn == nil {
		return
	}
	c.mu.Lock()
	callback := c.messageCallback
	c.mu.Unlock()

	for {
		select {
		case event, ok := <-c.conn.Events():
			if !ok {
				return
			}
			switch event.Kind {
			case EventMessage:
				if callback != nil {
					callback(event.Payload)
				}
			case EventDisconnected:
				if event.Err != nil {
					logger.Log.Warn("disconnected from server", zap.Error(event.Err))
				} else {
					logger.Log.Info("disconnected from server")
				}
			}
		default:
			return
		}
	}
}

// applyMovement translates the camera from the held movement keys, one axis
// unit per second of tick time.
func (c *clientImpl) applyMovement(delta float32) {
	var dx, dy, dz float32

	if c.window.KeyDown(window.KeyA) {
		dx += delta
	}
	if c.window.KeyDown(window.KeyD) {
		dx -= delta
	}
	if c.window.KeyDown(window.KeyW) {
		dz += delta
	}
	if c.window.KeyDown(window.KeyS) {
		dz -= delta
	}
	if c.window.KeyDown(window.KeyLeftShift) {
		dy += delta
	}
	if c.window.KeyDown(window.KeySpace) {
		dy -= delta
	}

	if dx != 0 || dy != 0 || dz != 0 {
		c.cam.Translate(dx, dy, dz)
	}
}

// applyMouseLook turns accumulated relative cursor motion into yaw and pitch
// deltas. Rotation is left unwrapped.
func (c *clientImpl) applyMouseLook() {
	mouseDX, mouseDY := c.window.MouseDelta()
	if mouseDX == 0 && mouseDY == 0 {
		return
	}

	c.mu.Lock()
	sensitivity := c.mouseSensitivity
	c.mu.Unlock()

	c.cam.Rotate(mouseDY*sensitivity, mouseDX*sensitivity, 0)
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*clientImpl)

// WithConnection attaches a server connection whose events OnTick drains.
//
// Parameters:
//   - conn: the connection to attach
//
// Returns:
//   - ClientOption: option function to apply
func WithConnection(conn Connection) ClientOption {
	return func(c *clientImpl) {
		c.conn = conn
	}
}

// WithClientCamera overrides the camera the client moves. Used by tests and
// by callers who share a camera between systems; when set, the render engine
// argument of NewClient may be nil.
//
// Parameters:
//   - cam: the camera to move
//
// Returns:
//   - ClientOption: option function to apply
func WithClientCamera(cam camera.Camera) ClientOption {
	return func(c *clientImpl) {
		c.cam = cam
	}
}

// WithMouseSensitivity sets the pixels-to-radians mouse-look factor.
//
// Parameters:
//   - sensitivity: rotation in radians per pixel of cursor motion
//
// Returns:
//   - ClientOption: option function to apply
func WithMouseSensitivity(sensitivity float32) ClientOption {
	return func(c *clientImpl) {
		c.mouseSensitivity = sensitivity
	}
}
