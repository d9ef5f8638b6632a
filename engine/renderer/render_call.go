package renderer

// RenderCall requests one textured draw of a single mesh with a world
// transform described by translation, rotation (Euler radians), and scale.
type RenderCall struct {
	// MeshName identifies the mesh in the geometry store. For loaded models
	// this is the store's submesh name, for registered meshes the
	// registration name.
	MeshName string

	// TextureName identifies the texture in the texture store. An empty name
	// binds the built-in white texture.
	TextureName string

	Translation [3]float32
	Rotation    [3]float32
	Scale       [3]float32
}

// ModelRenderCall requests a draw of every submesh of a loaded model with a
// shared world transform. TextureNames maps to submeshes by material slot.
type ModelRenderCall struct {
	ModelName    string
	TextureNames []string

	Translation [3]float32
	Rotation    [3]float32
	Scale       [3]float32
}

// InstancedRenderData is one instance's transform within an instanced batch.
type InstancedRenderData struct {
	Translation [3]float32
	Rotation    [3]float32
	Scale       [3]float32
}
