package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/emberworks/ember/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	position [3]float32
	rotation [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32
}

// Camera defines the interface for the camera system.
// The camera holds a world position, an Euler rotation (pitch/yaw/roll in
// radians), and perspective settings; UpdateMatrix derives the view and
// projection matrices consumed each frame.
//
// Position and rotation are mutated directly by the game loop; rotation
// angles are stored as given and never wrapped into a canonical range.
type Camera interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - x, y, z: position components
	Position() (x, y, z float32)

	// Rotation returns the camera's Euler rotation in radians.
	//
	// Returns:
	//   - pitch, yaw, roll: rotation around the X, Y, and Z axes
	Rotation() (pitch, yaw, roll float32)

	// Fov returns the field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height) of the last
	// UpdateMatrix call.
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the current combined view-projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// SetPosition sets the camera's world-space position.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// Translate offsets the camera's position by the given deltas.
	//
	// Parameters:
	//   - dx, dy, dz: offsets added to the current position
	Translate(dx, dy, dz float32)

	// SetRotation sets the camera's Euler rotation in radians.
	// Values are stored as given; no range wrapping is applied.
	//
	// Parameters:
	//   - pitch, yaw, roll: rotation around the X, Y, and Z axes
	SetRotation(pitch, yaw, roll float32)

	// Rotate offsets the camera's rotation by the given deltas in radians.
	//
	// Parameters:
	//   - dPitch, dYaw, dRoll: offsets added to the current rotation
	Rotate(dPitch, dYaw, dRoll float32)

	// SetFov sets the field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// UpdateMatrix recomputes the view, projection, and view-projection
	// matrices for the given aspect ratio. Called once per frame by the
	// frame sequencer before recording draws.
	//
	// Parameters:
	//   - aspect: viewport aspect ratio (width / height)
	UpdateMatrix(aspect float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings
// (45 degree fov, 0.1 near, 100 far) at the world origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                   &sync.Mutex{},
		fov:                  45.0 * (math32.Pi / 180.0), // radians
		aspect:               1.0,
		near:                 0.1,
		far:                  100.0,
		viewMatrix:           [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		projectionMatrix:     [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		viewProjectionMatrix: [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position[0], c.position[1], c.position[2]
}

func (c *cameraImpl) Rotation() (pitch, yaw, roll float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation[0], c.rotation[1], c.rotation[2]
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [3]float32{x, y, z}
}

func (c *cameraImpl) Translate(dx, dy, dz float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position[0] += dx
	c.position[1] += dy
	c.position[2] += dz
}

func (c *cameraImpl) SetRotation(pitch, yaw, roll float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotation = [3]float32{pitch, yaw, roll}
}

func (c *cameraImpl) Rotate(dPitch, dYaw, dRoll float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotation[0] += dPitch
	c.rotation[1] += dYaw
	c.rotation[2] += dRoll
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) UpdateMatrix(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

// updateMatrices recalculates the view, projection, and view-projection
// matrices from the current position, rotation, and perspective settings.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	common.EulerView(c.viewMatrix[:],
		c.position[0], c.position[1], c.position[2],
		c.rotation[0], c.rotation[1], c.rotation[2],
	)

	common.Perspective(c.projectionMatrix[:],
		c.fov, c.aspect, c.near, c.far,
	)

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
