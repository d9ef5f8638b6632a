package bind_group_provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProviderStartsEmpty(t *testing.T) {
	p := NewBindGroupProvider("crate/0_mesh")

	assert.Equal(t, "crate/0_mesh", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())
	assert.Nil(t, p.Buffer(0))
	assert.Nil(t, p.TextureView(0))
	assert.Nil(t, p.Sampler(0))
	assert.Nil(t, p.VertexBuffer())
	assert.Nil(t, p.IndexBuffer())
	assert.Zero(t, p.IndexCount())
}

func TestIndexCountRoundTrip(t *testing.T) {
	p := NewBindGroupProvider("tri_mesh")
	p.SetIndexCount(36)
	assert.Equal(t, 36, p.IndexCount())
}

func TestReleaseOnUninitializedProvider(t *testing.T) {
	p := NewBindGroupProvider("empty")
	p.SetIndexCount(3)

	// No GPU resources were ever attached; Release must not panic.
	assert.NotPanics(t, func() { p.Release() })
	assert.Nil(t, p.VertexBuffer())
}
