package renderer

import (
	"github.com/emberworks/ember/engine/camera"
)

// RenderEngineOption is a functional option applied to a render engine during
// construction via NewRenderEngine.
type RenderEngineOption func(*renderEngineImpl)

// WithCamera replaces the engine's default camera.
//
// Parameters:
//   - cam: the camera the engine owns and updates each frame
//
// Returns:
//   - RenderEngineOption: a function that applies the camera option
func WithCamera(cam camera.Camera) RenderEngineOption {
	return func(r *renderEngineImpl) {
		r.cam = cam
	}
}

// WithBackend injects a pre-built backend instead of creating one from the
// window surface. Used by tests to substitute a fake; when set, the window
// argument of NewRenderEngine may be nil.
//
// Parameters:
//   - backend: the backend to use
//
// Returns:
//   - RenderEngineOption: a function that applies the backend option
func WithBackend(backend RendererBackend) RenderEngineOption {
	return func(r *renderEngineImpl) {
		r.backend = backend
	}
}

// WithPresentMode sets the surface present mode which controls how frames are
// delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RenderEngineOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) RenderEngineOption {
	return func(r *renderEngineImpl) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the engine.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA
// entirely. Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not
// be supported by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RenderEngineOption: a function that applies the MSAA option
func WithMSAA(count MSAASampleCount) RenderEngineOption {
	return func(r *renderEngineImpl) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter
// instead of hardware GPU acceleration. This requires a software Vulkan ICD to
// be installed on the system (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RenderEngineOption: a function that applies the force software renderer option
func WithForceSoftwareRenderer(force bool) RenderEngineOption {
	return func(r *renderEngineImpl) {
		r.forceFallbackAdapter = force
	}
}

// WithModelDir sets the directory the geometry store loads model files from.
//
// Parameters:
//   - dir: model directory path
//
// Returns:
//   - RenderEngineOption: a function that applies the model directory option
func WithModelDir(dir string) RenderEngineOption {
	return func(r *renderEngineImpl) {
		r.modelDir = dir
	}
}

// WithTextureDir sets the directory the texture store loads image files from.
//
// Parameters:
//   - dir: texture directory path
//
// Returns:
//   - RenderEngineOption: a function that applies the texture directory option
func WithTextureDir(dir string) RenderEngineOption {
	return func(r *renderEngineImpl) {
		r.textureDir = dir
	}
}

// WithPreloadWorkers sets how many workers the geometry store uses to parse
// model files during Preload batches.
//
// Parameters:
//   - workers: worker count, minimum 1
//
// Returns:
//   - RenderEngineOption: a function that applies the preload workers option
func WithPreloadWorkers(workers int) RenderEngineOption {
	return func(r *renderEngineImpl) {
		if workers < 1 {
			workers = 1
		}
		r.preloadWorkers = workers
	}
}
