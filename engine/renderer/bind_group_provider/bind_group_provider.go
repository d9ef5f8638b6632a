// Package bind_group_provider holds the GPU resources behind one drawable
// asset. Every mesh and every material in the engine lives on a provider:
// the geometry store hangs vertex/index buffers on one per submesh, the
// texture store hangs a texture view, sampler, uniform buffers, and the
// material bind group on one per texture. The renderer backend populates
// providers through its Init* methods and reads them back when recording
// draws; nothing else touches the GPU handles directly.
package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label names the provider in debug output, e.g. "crate/0_mesh" or
	// "stone_material".
	label string

	// bindGroup is the material bind group, set by the backend's
	// InitBindGroup. Nil on mesh providers.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the layout bindGroup was created against, retained
	// so Release can free it with the group.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds uniform buffers created by InitBindGroup, keyed by
	// binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds texture views created by InitTextureView, keyed by
	// binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds samplers created by InitSampler, keyed by binding index.
	samplers map[int]*wgpu.Sampler

	// vertexBuffer and indexBuffer are the mesh buffers created by
	// InitMeshBuffers. Nil on material providers.
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	// indexCount is the draw extent for indexBuffer. Always a multiple of 3.
	indexCount int
}

// BindGroupProvider carries the GPU resources of one mesh or one material.
//
// The split of responsibilities is strict: stores create empty providers and
// pass them to the renderer backend's Init* methods, which create the GPU
// objects and store them here through the Set* methods; draw recording reads
// them back through the getters; Release frees everything. A provider never
// creates or writes GPU objects itself.
type BindGroupProvider interface {
	// Release frees every GPU resource held by this provider. Safe to call
	// on a partially initialized provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the material bind group for draw recording.
	// Returns nil if the backend has not initialized one.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group was created against.
	// Returns nil if the backend has not initialized one.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the uniform buffer at a binding index, or nil if the
	// binding has no buffer.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at a binding index, or nil if the
	// binding has no texture.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding index, or nil if the binding
	// has no sampler.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// VertexBuffer returns the mesh vertex buffer, or nil on a material
	// provider.
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer or nil
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the mesh index buffer, or nil on a material
	// provider.
	//
	// Returns:
	//   - *wgpu.Buffer: the index buffer or nil
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices for draw calls.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// SetBindGroup stores the bind group created by the backend.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout stores the layout the bind group was created
	// against.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores a uniform buffer at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stores a texture view at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the created texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stores a sampler at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the created sampler
	SetSampler(binding int, s *wgpu.Sampler)

	// SetVertexBuffer stores the mesh vertex buffer.
	//
	// Parameters:
	//   - buf: the created vertex buffer
	SetVertexBuffer(buf *wgpu.Buffer)

	// SetIndexBuffer stores the mesh index buffer.
	//
	// Parameters:
	//   - buf: the created index buffer
	SetIndexBuffer(buf *wgpu.Buffer)

	// SetIndexCount sets the number of indices for draw calls.
	//
	// Parameters:
	//   - count: the index count
	SetIndexCount(count int)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider with the given debug label.
// The renderer backend's Init* methods populate it.
//
// Parameters:
//   - label: debug label, by convention "<asset>_mesh" or "<asset>_material"
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) {
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) Release() {
	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
}
