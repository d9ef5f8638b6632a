package geometry

import (
	"errors"
	"fmt"
)

// ErrModelLocked is returned when a structural mutation is attempted on a
// model that has been locked against changes.
var ErrModelLocked = errors.New("model is locked")

// AssetLoadError reports a failure to read or parse a geometry asset.
// It wraps the underlying IO or parse error.
type AssetLoadError struct {
	// Name is the asset name as requested from the store.
	Name string

	// Err is the underlying failure.
	Err error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("failed to load geometry asset %q: %v", e.Name, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}
