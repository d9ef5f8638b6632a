package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matEpsilon = 1e-4

func assertMat4Equal(t *testing.T, expected, actual []float32) {
	t.Helper()
	require.Len(t, actual, 16)
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], matEpsilon, "element %d", i)
	}
}

func TestIdentity(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = 7
	}
	Identity(m)

	assertMat4Equal(t, []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}, m)
}

func TestMul4WithIdentity(t *testing.T) {
	a := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	id := make([]float32, 16)
	Identity(id)

	out := make([]float32, 16)
	Mul4(out, a, id)
	assertMat4Equal(t, a, out)

	Mul4(out, id, a)
	assertMat4Equal(t, a, out)
}

func TestMul4TranslationComposition(t *testing.T) {
	ta := make([]float32, 16)
	tb := make([]float32, 16)
	Identity(ta)
	Identity(tb)
	ta[12], ta[13], ta[14] = 1, 2, 3
	tb[12], tb[13], tb[14] = 10, 20, 30

	out := make([]float32, 16)
	Mul4(out, ta, tb)

	assert.InDelta(t, float32(11), out[12], matEpsilon)
	assert.InDelta(t, float32(22), out[13], matEpsilon)
	assert.InDelta(t, float32(33), out[14], matEpsilon)
}

func TestMul4AliasedOutput(t *testing.T) {
	a := make([]float32, 16)
	b := make([]float32, 16)
	Identity(a)
	Identity(b)
	a[12] = 5
	b[12] = 7

	// out aliases a; the internal buffer must keep the result correct.
	Mul4(a, a, b)
	assert.InDelta(t, float32(12), a[12], matEpsilon)
}

func TestPerspectiveDepthRange(t *testing.T) {
	out := make([]float32, 16)
	Perspective(out, 1.0, 16.0/9.0, 0.1, 100.0)

	// Near plane point (0,0,-near) maps to depth 0, far plane to depth 1.
	nearZ := out[10]*-0.1 + out[14]
	nearW := out[11] * -0.1
	assert.InDelta(t, 0.0, nearZ/nearW, matEpsilon)

	farZ := out[10]*-100.0 + out[14]
	farW := out[11] * -100.0
	assert.InDelta(t, 1.0, farZ/farW, matEpsilon)
}

func TestBuildModelMatrixTranslationOnly(t *testing.T) {
	out := make([]float32, 16)
	BuildModelMatrix(out, -2, 0, 0, 0, 0, 0, 1, 1, 1)

	expected := make([]float32, 16)
	Identity(expected)
	expected[12] = -2
	assertMat4Equal(t, expected, out)
}

func TestBuildModelMatrixScale(t *testing.T) {
	out := make([]float32, 16)
	BuildModelMatrix(out, 0, 0, 0, 0, 0, 0, 2, 3, 4)

	assert.InDelta(t, float32(2), out[0], matEpsilon)
	assert.InDelta(t, float32(3), out[5], matEpsilon)
	assert.InDelta(t, float32(4), out[10], matEpsilon)
	assert.InDelta(t, float32(1), out[15], matEpsilon)
}

func TestEulerViewInvertsModelTransform(t *testing.T) {
	// The view matrix is the inverse of the camera's world transform, so
	// view * world must be identity for any position and rotation.
	cases := []struct {
		name                             string
		px, py, pz, rx, ry, rz float32
	}{
		{"origin", 0, 0, 0, 0, 0, 0},
		{"translated", 3, -1, 8, 0, 0, 0},
		{"rotated", 0, 0, 0, 0.4, -1.2, 0.7},
		{"both", -5, 2, 1.5, 1.0, 2.5, -0.3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			world := make([]float32, 16)
			BuildModelMatrix(world, tc.px, tc.py, tc.pz, tc.rx, tc.ry, tc.rz, 1, 1, 1)

			view := make([]float32, 16)
			EulerView(view, tc.px, tc.py, tc.pz, tc.rx, tc.ry, tc.rz)

			out := make([]float32, 16)
			Mul4(out, view, world)

			id := make([]float32, 16)
			Identity(id)
			assertMat4Equal(t, id, out)
		})
	}
}

func TestLookAtOrigin(t *testing.T) {
	// Camera at +Z looking at origin matches a pure -Z translation.
	out := make([]float32, 16)
	LookAt(out, 0, 0, 5, 0, 0, 0, 0, 1, 0)

	expected := make([]float32, 16)
	Identity(expected)
	expected[14] = -5
	assertMat4Equal(t, expected, out)
}

func TestInvert4RoundTrip(t *testing.T) {
	m := make([]float32, 16)
	BuildModelMatrix(m, 1, 2, 3, 0.5, 1.0, -0.25, 1, 1, 1)

	inv := make([]float32, 16)
	require.True(t, Invert4(inv, m))

	out := make([]float32, 16)
	Mul4(out, m, inv)

	id := make([]float32, 16)
	Identity(id)
	assertMat4Equal(t, id, out)
}

func TestInvert4Singular(t *testing.T) {
	m := make([]float32, 16) // all zeros
	inv := make([]float32, 16)
	assert.False(t, Invert4(inv, m))
}

func TestSliceToBytes(t *testing.T) {
	data := []float32{1.0, 2.0}
	b := SliceToBytes(data)
	require.Len(t, b, 8)

	assert.Nil(t, SliceToBytes([]float32(nil)))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 5, Coalesce(0, 5, 3))
	assert.Equal(t, "a", Coalesce("", "a"))
	assert.Equal(t, 0, Coalesce(0, 0))
}
