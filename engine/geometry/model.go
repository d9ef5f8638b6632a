package geometry

// Model groups the submeshes imported from one asset file. Submesh order is
// insertion order, which fixes the material-slot mapping used when the model
// is drawn with a list of textures.
type Model struct {
	name   string
	meshes []*Mesh
	locked bool
}

// NewModel creates an empty, unlocked model.
//
// Parameters:
//   - name: the asset name this model was loaded under
//
// Returns:
//   - *Model: the created model
func NewModel(name string) *Model {
	return &Model{name: name}
}

// Name returns the asset name.
func (m *Model) Name() string {
	return m.name
}

// Meshes returns the submeshes in material-slot order. The returned slice
// must not be mutated.
func (m *Model) Meshes() []*Mesh {
	return m.meshes
}

// TextureBindings returns the number of texture bindings this model needs
// when drawn, one per submesh.
func (m *Model) TextureBindings() int {
	return len(m.meshes)
}

// AppendMesh adds a submesh. The mesh's material slot is its position in
// the model. Fails once the model has been locked.
//
// Parameters:
//   - mesh: the submesh to append
//
// Returns:
//   - error: ErrModelLocked if the model is locked
func (m *Model) AppendMesh(mesh *Mesh) error {
	if m.locked {
		return ErrModelLocked
	}
	m.meshes = append(m.meshes, mesh)
	return nil
}

// Lock freezes the model's structure. Loaded models are locked before they
// are published from the store so every caller sees the same submesh list.
func (m *Model) Lock() {
	m.locked = true
}

// Locked reports whether the model has been locked.
func (m *Model) Locked() bool {
	return m.locked
}

// Release frees the GPU buffers of every submesh.
func (m *Model) Release() {
	for _, mesh := range m.meshes {
		mesh.Release()
	}
}
