package texture

// StoreOption is a functional option for configuring a texture store.
type StoreOption func(*storeImpl)

// WithTextureDir sets the directory searched for texture image files.
//
// Parameters:
//   - dir: texture directory path
//
// Returns:
//   - StoreOption: option function to apply
func WithTextureDir(dir string) StoreOption {
	return func(s *storeImpl) {
		s.textureDir = dir
	}
}
