package geometry

// StoreOption is a functional option for configuring a geometry store.
type StoreOption func(*storeImpl)

// WithModelDir sets the directory searched for <name>.obj files.
//
// Parameters:
//   - dir: model directory path
//
// Returns:
//   - StoreOption: option function to apply
func WithModelDir(dir string) StoreOption {
	return func(s *storeImpl) {
		s.modelDir = dir
	}
}

// WithParseWorkers caps the worker pool used for Preload batch parsing.
//
// Parameters:
//   - workers: maximum concurrent parse workers (minimum 1)
//
// Returns:
//   - StoreOption: option function to apply
func WithParseWorkers(workers int) StoreOption {
	return func(s *storeImpl) {
		if workers > 0 {
			s.parseWorkers = workers
		}
	}
}
