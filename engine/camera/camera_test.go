package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera()

	assert.InDelta(t, 45.0*(math32.Pi/180.0), c.Fov(), 1e-6)
	assert.InDelta(t, 0.1, c.Near(), 1e-6)
	assert.InDelta(t, 100.0, c.Far(), 1e-6)

	x, y, z := c.Position()
	assert.Zero(t, x)
	assert.Zero(t, y)
	assert.Zero(t, z)
}

func TestBuilderOptions(t *testing.T) {
	c := NewCamera(
		WithFov(1.2),
		WithNear(0.5),
		WithFar(500),
		WithPosition(1, 2, 3),
		WithRotation(0.1, 0.2, 0.3),
	)

	assert.InDelta(t, 1.2, c.Fov(), 1e-6)
	assert.InDelta(t, 0.5, c.Near(), 1e-6)
	assert.InDelta(t, 500.0, c.Far(), 1e-6)

	x, y, z := c.Position()
	assert.InDelta(t, 1.0, x, 1e-6)
	assert.InDelta(t, 2.0, y, 1e-6)
	assert.InDelta(t, 3.0, z, 1e-6)
}

func TestRotationNotWrapped(t *testing.T) {
	c := NewCamera()
	c.SetRotation(10*math32.Pi, 0, 0)
	c.Rotate(math32.Pi, 0, 0)

	pitch, _, _ := c.Rotation()
	assert.InDelta(t, 11*math32.Pi, pitch, 1e-4)
}

func TestTranslateAccumulates(t *testing.T) {
	c := NewCamera()
	c.Translate(1, 0, 0)
	c.Translate(0.5, -2, 3)

	x, y, z := c.Position()
	assert.InDelta(t, 1.5, x, 1e-6)
	assert.InDelta(t, -2.0, y, 1e-6)
	assert.InDelta(t, 3.0, z, 1e-6)
}

func TestUpdateMatrixUsesAspect(t *testing.T) {
	c := NewCamera()
	c.UpdateMatrix(2.0)
	wide := c.ProjectionMatrix()

	c.UpdateMatrix(1.0)
	square := c.ProjectionMatrix()

	assert.InDelta(t, 2.0, c.Aspect(), 1e-6)
	// The X scale halves when the aspect ratio doubles.
	assert.InDelta(t, square[0]/2, wide[0], 1e-5)
	assert.InDelta(t, square[5], wide[5], 1e-5)
}

func TestViewMatrixTracksPosition(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 5))
	c.UpdateMatrix(1.0)

	view := c.ViewMatrix()
	// With no rotation the view is a pure -Z translation.
	assert.InDelta(t, -5.0, view[14], 1e-5)
	assert.InDelta(t, 1.0, view[0], 1e-5)
	assert.InDelta(t, 1.0, view[5], 1e-5)
}

func TestViewProjectionCombined(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 5))
	c.UpdateMatrix(1.0)

	vp := c.ViewProjectionMatrix()
	proj := c.ProjectionMatrix()
	view := c.ViewMatrix()

	// Spot-check one element of proj * view: vp[14] = p[10]*v[14] + p[14].
	require.NotZero(t, proj[11])
	assert.InDelta(t, proj[10]*view[14]+proj[14], vp[14], 1e-4)
}
