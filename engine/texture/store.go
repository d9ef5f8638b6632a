// Package texture maps texture names to GPU bind groups built against the
// mesh shaders' material group layout. Entries load lazily from disk, are
// cached for the lifetime of the store, and are released together at
// teardown.
package texture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/emberworks/ember/common"
	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
	"github.com/emberworks/ember/engine/renderer/shader"
	"github.com/emberworks/ember/logger"
	"go.uber.org/zap"
)

// defaultTextureName keys the built-in 1x1 white texture bound when a draw
// has no texture of its own (instanced batches, untextured debug meshes).
const defaultTextureName = "_default_white"

// textureExtensions are tried in order when a texture name carries no file
// extension.
var textureExtensions = []string{".png", ".jpg", ".jpeg"}

// Initializer is the slice of the renderer used to create texture GPU
// resources. Tests substitute a fake.
type Initializer interface {
	// InitTextureView creates a GPU texture from staging data and stores the resulting texture view
	// on the given BindGroupProvider at the specified binding index.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the binding index for this texture
	//   - stagingData: the pixel data and dimensions for the texture
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a GPU sampler from staging data and stores it on the given
	// BindGroupProvider at the specified binding index.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// InitBindGroup creates a bind group from a layout descriptor over the provider's
	// previously initialized textures and samplers.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - bufferUsageOverrides: additional buffer usage flags keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
}

// Store owns the texture name to bind group mapping.
type Store interface {
	// GetOrLoad returns the material bind group cached under name, decoding
	// <textureDir>/<name> (png or jpeg) on the first request.
	//
	// Parameters:
	//   - name: texture name, with or without a file extension
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: provider holding view, sampler, and bind group
	//   - error: error if the file cannot be found, decoded, or uploaded
	GetOrLoad(name string) (bind_group_provider.BindGroupProvider, error)

	// Register uploads raw RGBA pixels under name, for procedural textures
	// and tests. Replaces any previous registration.
	//
	// Parameters:
	//   - name: texture name for later lookups
	//   - pixels: RGBA pixel data, 4 bytes per pixel, row-major
	//   - width, height: texture dimensions in pixels
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the registered provider
	//   - error: error if the upload fails
	Register(name string, pixels []byte, width, height uint32) (bind_group_provider.BindGroupProvider, error)

	// Default returns the built-in 1x1 white texture, creating it on first
	// use. It backs draws that carry no texture name.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the default provider
	//   - error: error if the default texture cannot be created
	Default() (bind_group_provider.BindGroupProvider, error)

	// Release frees every cached texture and empties the store.
	Release()
}

type storeImpl struct {
	mu sync.Mutex

	init       Initializer
	textureDir string

	providers map[string]bind_group_provider.BindGroupProvider
}

var _ Store = &storeImpl{}

// NewStore creates a texture store backed by the given initializer.
// Panics if init is nil.
//
// Parameters:
//   - init: GPU texture initializer (the renderer, or a fake in tests)
//   - options: functional options to configure the store
//
// Returns:
//   - Store: the configured store
func NewStore(init Initializer, options ...StoreOption) Store {
	if init == nil {
		panic("texture: NewStore requires an initializer")
	}
	s := &storeImpl{
		init:       init,
		textureDir: "assets/textures",
		providers:  make(map[string]bind_group_provider.BindGroupProvider),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *storeImpl) GetOrLoad(name string) (bind_group_provider.BindGroupProvider, error) {
	s.mu.Lock()
	if provider, ok := s.providers[name]; ok {
		s.mu.Unlock()
		return provider, nil
	}
	s.mu.Unlock()

	path, err := s.resolvePath(name)
	if err != nil {
		return nil, err
	}

	tex := common.ImportedTexture{Name: name, Path: path}
	pixels, width, height, err := tex.Decode()
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}

	provider, err := s.upload(name, pixels, width, height)
	if err != nil {
		return nil, err
	}

	logger.Log.Debug("loaded texture",
		zap.String("name", name),
		zap.Uint32("width", width),
		zap.Uint32("height", height),
	)
	return s.publish(name, provider), nil
}

func (s *storeImpl) Register(name string, pixels []byte, width, height uint32) (bind_group_provider.BindGroupProvider, error) {
	provider, err := s.upload(name, pixels, width, height)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if prev, ok := s.providers[name]; ok {
		prev.Release()
		delete(s.providers, name)
	}
	s.mu.Unlock()
	return s.publish(name, provider), nil
}

func (s *storeImpl) Default() (bind_group_provider.BindGroupProvider, error) {
	s.mu.Lock()
	if provider, ok := s.providers[defaultTextureName]; ok {
		s.mu.Unlock()
		return provider, nil
	}
	s.mu.Unlock()

	provider, err := s.upload(defaultTextureName, []byte{255, 255, 255, 255}, 1, 1)
	if err != nil {
		return nil, err
	}
	return s.publish(defaultTextureName, provider), nil
}

func (s *storeImpl) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, provider := range s.providers {
		provider.Release()
		delete(s.providers, name)
	}
}

// resolvePath locates the texture file, trying known extensions when the
// name has none.
func (s *storeImpl) resolvePath(name string) (string, error) {
	if filepath.Ext(name) != "" {
		path := filepath.Join(s.textureDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("texture %q: %w", name, err)
		}
		return path, nil
	}
	for _, ext := range textureExtensions {
		path := filepath.Join(s.textureDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("texture %q: no file found under %s", name, s.textureDir)
}

// upload creates the view, sampler, and bind group for one texture on a
// fresh provider.
func (s *storeImpl) upload(name string, pixels []byte, width, height uint32) (bind_group_provider.BindGroupProvider, error) {
	provider := bind_group_provider.NewBindGroupProvider(name + "_material")

	staging := common.TextureStagingData{
		Pixels: pixels,
		Width:  width,
		Height: height,
	}
	if err := s.init.InitTextureView(provider, 0, staging); err != nil {
		return nil, fmt.Errorf("texture %q: view: %w", name, err)
	}

	sampler := common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if err := s.init.InitSampler(provider, 1, sampler); err != nil {
		provider.Release()
		return nil, fmt.Errorf("texture %q: sampler: %w", name, err)
	}

	if err := s.init.InitBindGroup(provider, shader.MaterialGroupLayout(), nil, nil); err != nil {
		provider.Release()
		return nil, fmt.Errorf("texture %q: bind group: %w", name, err)
	}
	return provider, nil
}

// publish inserts the provider, returning the existing one if another load
// of the same name won the race.
func (s *storeImpl) publish(name string, provider bind_group_provider.BindGroupProvider) bind_group_provider.BindGroupProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.providers[name]; ok {
		provider.Release()
		return existing
	}
	s.providers[name] = provider
	return provider
}
