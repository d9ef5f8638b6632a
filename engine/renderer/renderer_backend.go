package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/emberworks/ember/common"
	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
	"github.com/emberworks/ember/engine/renderer/pipeline"
)

// RendererBackendType identifies the GPU backend implementation used by the RenderEngine.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// RendererBackend abstracts the GPU API from the frame sequencer. The
// RenderEngine drives it through the per-frame step methods; the asset stores
// reach it through the Init* resource methods. Tests substitute a recording
// fake for the whole interface.
type RendererBackend interface {
	// ConfigureSurface (re)configures the swapchain, depth texture, and MSAA
	// target for a new surface size. Required on window resize.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered
	// to the display. A call to ConfigureSurface is required for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the GPU render pipeline for the given pipeline
	// description, handling shader module, bind group layouts, and pipeline layout creation.
	//
	// Parameters:
	//   - p: the pipeline object containing the shader and fixed-function configuration
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitMeshBuffers creates GPU vertex and index buffers from raw byte data and stores
	// them on the given BindGroupProvider for later draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates GPU buffers and a bind group from a layout descriptor and stores
	// them on the given BindGroupProvider. Textures and samplers must be initialized via
	// InitTextureView and InitSampler before calling this method.
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

	// InitTextureView creates a GPU texture from staging data and stores the resulting
	// texture view on the given BindGroupProvider at the specified binding index.
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

	// AcquireTarget acquires the next swapchain texture for the coming frame.
	// Must be the first per-frame step; on failure the frame is skipped.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	AcquireTarget() error

	// WriteCameraUniform uploads the frame's view-projection matrix into the
	// backend-owned camera uniform, creating it on first use. Must be called
	// before BeginRenderPass.
	//
	// Parameters:
	//   - viewProjection: column-major view-projection matrix
	//
	// Returns:
	//   - error: an error if the camera uniform could not be created
	WriteCameraUniform(viewProjection [16]float32) error

	// EnsureTransformCapacity grows the per-draw transform ring so it can hold
	// at least count transforms this frame. Growing recreates the ring's bind
	// group, so this must happen before any draw of the frame is recorded.
	//
	// Parameters:
	//   - count: number of single-mesh draws the coming frame will record
	//
	// Returns:
	//   - error: an error if the ring buffer could not be (re)created
	EnsureTransformCapacity(count int) error

	// WriteTransforms uploads one model matrix per single-mesh draw into the
	// transform ring. Slot i is bound to draw i via a dynamic offset.
	//
	// Parameters:
	//   - matrices: column-major model matrices in draw order
	WriteTransforms(matrices [][16]float32)

	// WriteInstances uploads the instance matrices for one mesh name into its
	// storage buffer, creating or growing the buffer as needed. Must be called
	// before the batch's DrawInstanced is recorded.
	//
	// Parameters:
	//   - meshName: the batch key; one storage buffer is kept per mesh name
	//   - matrices: column-major model matrices, one per instance
	//
	// Returns:
	//   - error: an error if the storage buffer could not be (re)created
	WriteInstances(meshName string, matrices [][16]float32) error

	// BeginRenderPass begins the main render pass over the acquired target.
	//
	// Parameters:
	//   - color: value the color target is cleared to when clearColor is set
	//   - clearColor: whether the color target is cleared; when false the
	//     previous frame's color contents are loaded instead
	//   - clearDepth: whether the depth buffer is cleared; when false the
	//     previous frame's depth contents are loaded instead
	BeginRenderPass(color wgpu.Color, clearColor, clearDepth bool)

	// DrawIndexed records one single-mesh draw in the current render pass,
	// binding the camera group, the transform ring at the given slot, and the
	// material group.
	//
	// Parameters:
	//   - p: the render pipeline to draw with
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - material: the BindGroupProvider holding the texture bind group
	//   - transformSlot: index into the transform ring written this frame
	DrawIndexed(p pipeline.Pipeline, meshProvider, material bind_group_provider.BindGroupProvider, transformSlot uint32)

	// DrawInstanced records one instanced draw in the current render pass,
	// binding the camera group, the mesh name's instance storage buffer, and
	// the material group.
	//
	// Parameters:
	//   - p: the render pipeline to draw with
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - material: the BindGroupProvider holding the texture bind group
	//   - meshName: the batch key used in the matching WriteInstances call
	//   - instanceCount: the number of instances to draw
	DrawInstanced(p pipeline.Pipeline, meshProvider, material bind_group_provider.BindGroupProvider, meshName string, instanceCount uint32)

	// EndRenderPass ends the current render pass.
	EndRenderPass()

	// SubmitAndPresent submits the frame's command buffer to the GPU queue and
	// presents the surface.
	SubmitAndPresent()

	// DiscardTarget releases an acquired surface texture without presenting.
	// Used when a frame is abandoned after AcquireTarget succeeded.
	DiscardTarget()

	// Release frees backend-owned frame resources: the transform ring, the
	// camera uniform, and all instance storage buffers.
	Release()
}
