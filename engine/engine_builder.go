package engine

import (
	"time"

	"github.com/emberworks/ember/engine/renderer"
	"github.com/emberworks/ember/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithWindow sets the window the engine polls for events and renders into.
// Required.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderEngine injects a pre-built render engine instead of letting the
// engine create a default one from the window surface.
//
// Parameters:
//   - re: a pre-configured RenderEngine instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderEngine(re renderer.RenderEngine) EngineBuilderOption {
	return func(e *engine) {
		e.renderEngine = re
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the game tick rate in ticks per second.
// The tick callback is called at this fixed rate for game logic updates.
// Values <= 0 are treated as the default (60Hz).
//
// Parameters:
//   - tps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(tps float64) EngineBuilderOption {
	return func(e *engine) {
		if tps <= 0 {
			tps = 60.0
		}
		e.tickRate = time.Second / time.Duration(tps)
	}
}

// WithFrameOptions sets the clear options used for every frame.
//
// Parameters:
//   - opts: clear color and depth-clear flag
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameOptions(opts renderer.FrameOptions) EngineBuilderOption {
	return func(e *engine) {
		e.frameOptions = opts
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
