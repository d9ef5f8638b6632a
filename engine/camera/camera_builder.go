package camera

type CameraBuilderOption func(*cameraImpl)

// WithFov sets the camera's field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithNear sets the camera's near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the camera's far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithPosition sets the camera's initial world-space position.
//
// Parameters:
//   - x, y, z: position components
//
// Returns:
//   - CameraBuilderOption: a function that sets the position
func WithPosition(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = [3]float32{x, y, z}
	}
}

// WithRotation sets the camera's initial Euler rotation in radians.
//
// Parameters:
//   - pitch, yaw, roll: rotation around the X, Y, and Z axes
//
// Returns:
//   - CameraBuilderOption: a function that sets the rotation
func WithRotation(pitch, yaw, roll float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.rotation = [3]float32{pitch, yaw, roll}
	}
}
