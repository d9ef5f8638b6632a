package renderer

import (
	"errors"
	"fmt"
)

// ErrResourceNotFound is wrapped by draw-time lookup failures recorded in the
// frame report. Submitted calls that reference it are skipped, never fatal.
var ErrResourceNotFound = errors.New("renderer: resource not found")

// TextureCountMismatchError rejects a model submission whose texture list does
// not line up with the model's material slots. The call is refused before it
// reaches the queue, so a bad submission never poisons a frame.
type TextureCountMismatchError struct {
	ModelName string
	Expected  int
	Actual    int
}

func (e *TextureCountMismatchError) Error() string {
	return fmt.Sprintf("model %q requires %d textures, got %d", e.ModelName, e.Expected, e.Actual)
}

// StateSequenceError reports a frame step invoked out of order, such as
// recording draws before a target has been acquired and cleared.
type StateSequenceError struct {
	Step  string
	State FrameState
}

func (e *StateSequenceError) Error() string {
	return fmt.Sprintf("frame step %s not valid in state %s", e.Step, e.State)
}

// SurfaceAcquisitionError reports a failure to acquire the next surface
// texture. The frame that hit it is skipped; the error carries the backend
// cause for logging.
type SurfaceAcquisitionError struct {
	Err error
}

func (e *SurfaceAcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire surface texture: %v", e.Err)
}

func (e *SurfaceAcquisitionError) Unwrap() error {
	return e.Err
}
