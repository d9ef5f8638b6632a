// Package shader holds the fixed WGSL shader modules used by the mesh
// pipelines, with their bind group layouts declared in Go alongside the
// embedded source. The layouts and the WGSL must stay in lockstep.
package shader

import (
	_ "embed"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/emberworks/ember/engine/geometry"
)

//go:embed mesh.wgsl
var meshWGSL string

//go:embed mesh_instanced.wgsl
var meshInstancedWGSL string

// Bind group indices shared by both mesh pipelines.
const (
	// CameraGroup binds the per-frame view-projection uniform.
	CameraGroup = 0

	// DrawGroup binds the per-draw data: a dynamic-offset transform
	// uniform for single draws, an instance matrix array for instanced
	// draws.
	DrawGroup = 1

	// MaterialGroup binds the diffuse texture and its sampler.
	MaterialGroup = 2
)

// mat4Size is the byte size of a column-major mat4x4<f32>.
const mat4Size = 64

// shaderImpl is the unexported implementation of Shader.
type shaderImpl struct {
	key              string
	source           string
	vertexEntry      string
	fragmentEntry    string
	bindGroupLayouts []wgpu.BindGroupLayoutDescriptor
	vertexLayouts    []wgpu.VertexBufferLayout
}

// Shader describes one WGSL module with both entry points and the layout
// metadata needed to build its render pipeline.
type Shader interface {
	// Key returns the unique identifier for this shader, used for
	// pipeline caching and labels.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the WGSL source of the module.
	//
	// Returns:
	//   - string: WGSL source text
	Source() string

	// VertexEntryPoint returns the vertex entry function name.
	//
	// Returns:
	//   - string: entry point name
	VertexEntryPoint() string

	// FragmentEntryPoint returns the fragment entry function name.
	//
	// Returns:
	//   - string: entry point name
	FragmentEntryPoint() string

	// BindGroupLayoutDescriptors returns the layout descriptor for each
	// bind group, indexed by group number.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutDescriptor: descriptors in group order
	BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor

	// VertexLayouts returns the vertex buffer layouts consumed by the
	// vertex entry point.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: vertex buffer layouts
	VertexLayouts() []wgpu.VertexBufferLayout
}

var _ Shader = &shaderImpl{}

// NewMeshShader returns the shader for single-mesh draws: camera uniform,
// per-draw transform uniform with a dynamic offset, and a diffuse material
// group.
//
// Returns:
//   - Shader: the mesh shader
func NewMeshShader() Shader {
	return &shaderImpl{
		key:           "mesh",
		source:        meshWGSL,
		vertexEntry:   "vs_main",
		fragmentEntry: "fs_main",
		bindGroupLayouts: []wgpu.BindGroupLayoutDescriptor{
			CameraGroupLayout(),
			TransformGroupLayout(),
			MaterialGroupLayout(),
		},
		vertexLayouts: []wgpu.VertexBufferLayout{geometry.VertexLayout()},
	}
}

// NewInstancedMeshShader returns the shader for instanced draws: camera
// uniform, a read-only storage array of instance matrices, and a diffuse
// material group.
//
// Returns:
//   - Shader: the instanced mesh shader
func NewInstancedMeshShader() Shader {
	return &shaderImpl{
		key:           "mesh_instanced",
		source:        meshInstancedWGSL,
		vertexEntry:   "vs_main",
		fragmentEntry: "fs_main",
		bindGroupLayouts: []wgpu.BindGroupLayoutDescriptor{
			CameraGroupLayout(),
			InstanceGroupLayout(),
			MaterialGroupLayout(),
		},
		vertexLayouts: []wgpu.VertexBufferLayout{geometry.VertexLayout()},
	}
}

// CameraGroupLayout returns the layout of the per-frame camera group:
// one uniform buffer holding the view-projection matrix.
func CameraGroupLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "camera_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: mat4Size,
				},
			},
		},
	}
}

// TransformGroupLayout returns the layout of the per-draw transform group:
// one dynamic-offset uniform slice of the transform ring buffer.
func TransformGroupLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "transform_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   mat4Size,
				},
			},
		},
	}
}

// InstanceGroupLayout returns the layout of the instanced draw group:
// a read-only storage buffer holding one model matrix per instance.
func InstanceGroupLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "instance_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: mat4Size,
				},
			},
		},
	}
}

// MaterialGroupLayout returns the layout of the material group: a sampled
// 2D texture and its filtering sampler.
func MaterialGroupLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "material_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}

func (s *shaderImpl) Key() string {
	return s.key
}

func (s *shaderImpl) Source() string {
	return s.source
}

func (s *shaderImpl) VertexEntryPoint() string {
	return s.vertexEntry
}

func (s *shaderImpl) FragmentEntryPoint() string {
	return s.fragmentEntry
}

func (s *shaderImpl) BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayouts
}

func (s *shaderImpl) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}
