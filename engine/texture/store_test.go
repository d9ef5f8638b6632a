package texture

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/emberworks/ember/common"
	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInitializer records texture GPU init calls without touching the GPU.
type fakeInitializer struct {
	views      int
	samplers   int
	bindGroups int

	lastStaging common.TextureStagingData
}

func (f *fakeInitializer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	f.views++
	f.lastStaging = stagingData
	return nil
}

func (f *fakeInitializer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	f.samplers++
	return nil
}

func (f *fakeInitializer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	f.bindGroups++
	return nil
}

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func newTestStore(t *testing.T) (Store, *fakeInitializer, string) {
	t.Helper()
	dir := t.TempDir()
	init := &fakeInitializer{}
	return NewStore(init, WithTextureDir(dir)), init, dir
}

func TestGetOrLoadCachesByName(t *testing.T) {
	store, init, dir := newTestStore(t)
	writePNG(t, dir, "stone.png", 2, 2)

	first, err := store.GetOrLoad("stone.png")
	require.NoError(t, err)
	second, err := store.GetOrLoad("stone.png")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, init.views)
	assert.Equal(t, 1, init.samplers)
	assert.Equal(t, 1, init.bindGroups)
	assert.Equal(t, uint32(2), init.lastStaging.Width)
	assert.Len(t, init.lastStaging.Pixels, 16)
}

func TestGetOrLoadResolvesExtension(t *testing.T) {
	store, _, dir := newTestStore(t)
	writePNG(t, dir, "grass.png", 1, 1)

	_, err := store.GetOrLoad("grass")
	assert.NoError(t, err)
}

func TestGetOrLoadMissingTexture(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.GetOrLoad("ghost")
	assert.Error(t, err)
}

func TestRegisterOverridesDisk(t *testing.T) {
	store, init, _ := newTestStore(t)

	registered, err := store.Register("flat", []byte{10, 20, 30, 255}, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 1, init.views)

	resolved, err := store.GetOrLoad("flat")
	require.NoError(t, err)
	assert.Same(t, registered, resolved)
}

func TestDefaultIsWhitePixel(t *testing.T) {
	store, init, _ := newTestStore(t)

	first, err := store.Default()
	require.NoError(t, err)
	second, err := store.Default()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, init.views)
	assert.Equal(t, []byte{255, 255, 255, 255}, init.lastStaging.Pixels)
	assert.Equal(t, uint32(1), init.lastStaging.Width)
	assert.Equal(t, uint32(1), init.lastStaging.Height)
}

func TestReleaseEmptiesStore(t *testing.T) {
	store, init, dir := newTestStore(t)
	writePNG(t, dir, "stone.png", 1, 1)

	_, err := store.GetOrLoad("stone.png")
	require.NoError(t, err)
	require.Equal(t, 1, init.views)

	store.Release()

	_, err = store.GetOrLoad("stone.png")
	require.NoError(t, err)
	assert.Equal(t, 2, init.views)
}
