package geometry

import (
	"fmt"

	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
)

// Mesh is one triangle-list submesh with its GPU buffers. A mesh is
// immutable after creation; its buffers live until the owning store or
// model releases them.
type Mesh struct {
	name         string
	provider     bind_group_provider.BindGroupProvider
	indexCount   int
	materialSlot int
}

// NewMesh creates a mesh over an initialized provider.
//
// Parameters:
//   - name: mesh identifier (asset name, optionally with a submesh ordinal)
//   - provider: provider holding the vertex and index buffers
//   - indexCount: number of indices; must describe whole triangles
//   - materialSlot: ordinal of this submesh within its model
//
// Returns:
//   - *Mesh: the created mesh
//   - error: error if indexCount does not describe a triangle list
func NewMesh(name string, provider bind_group_provider.BindGroupProvider, indexCount, materialSlot int) (*Mesh, error) {
	if indexCount%3 != 0 {
		return nil, fmt.Errorf("mesh %q: index count %d is not divisible by 3", name, indexCount)
	}
	return &Mesh{
		name:         name,
		provider:     provider,
		indexCount:   indexCount,
		materialSlot: materialSlot,
	}, nil
}

// Name returns the mesh identifier.
func (m *Mesh) Name() string {
	return m.name
}

// Provider returns the bind group provider holding the GPU buffers.
func (m *Mesh) Provider() bind_group_provider.BindGroupProvider {
	return m.provider
}

// IndexCount returns the number of indices to draw.
func (m *Mesh) IndexCount() int {
	return m.indexCount
}

// MaterialSlot returns the submesh ordinal within the owning model. It maps
// this mesh to the matching entry of a model render call's texture list.
func (m *Mesh) MaterialSlot() int {
	return m.materialSlot
}

// Release frees the GPU buffers held by this mesh.
func (m *Mesh) Release() {
	if m.provider != nil {
		m.provider.Release()
	}
}
