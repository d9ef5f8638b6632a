// Package geometry holds the CPU-side mesh data model: vertices, meshes,
// models, the OBJ importer, and the asset store that owns loaded geometry
// for the lifetime of the process.
package geometry

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// Vertex is one vertex as uploaded to the GPU. The field order and types
// define the vertex buffer layout consumed by the mesh pipelines; any change
// here must be mirrored in the WGSL vertex inputs.
type Vertex struct {
	// Position is the object-space position.
	Position [3]float32

	// TexCoord is the texture coordinate. The importer flips V so that
	// v=0 is the top of the image, matching the WebGPU texture origin.
	TexCoord [2]float32

	// Color is a per-vertex tint multiplied with the sampled texture.
	// Defaults to white.
	Color [3]float32
}

// VertexStride is the size of one Vertex in bytes.
const VertexStride = uint64(unsafe.Sizeof(Vertex{}))

// VertexLayout returns the wgpu vertex buffer layout matching Vertex.
//
// Returns:
//   - wgpu.VertexBufferLayout: layout with position, texcoord, and color attributes
func VertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: VertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{
				Format:         wgpu.VertexFormatFloat32x3,
				Offset:         uint64(unsafe.Offsetof(Vertex{}.Position)),
				ShaderLocation: 0,
			},
			{
				Format:         wgpu.VertexFormatFloat32x2,
				Offset:         uint64(unsafe.Offsetof(Vertex{}.TexCoord)),
				ShaderLocation: 1,
			},
			{
				Format:         wgpu.VertexFormatFloat32x3,
				Offset:         uint64(unsafe.Offsetof(Vertex{}.Color)),
				ShaderLocation: 2,
			},
		},
	}
}
