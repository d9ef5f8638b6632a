// Package engine ties the window, the render engine, and the game tick
// together into a single main loop.
package engine

import (
	"runtime"
	"sync"
	"time"

	"github.com/emberworks/ember/config"
	"github.com/emberworks/ember/engine/profiler"
	"github.com/emberworks/ember/engine/renderer"
	"github.com/emberworks/ember/engine/window"
	"github.com/emberworks/ember/logger"
	"go.uber.org/zap"
)

// maxFrameTime caps the simulation time charged to a single frame so a long
// stall (debugger pause, window drag) doesn't trigger a tick avalanche.
const maxFrameTime = 250 * time.Millisecond

// engine implements the Engine interface.
// Everything runs on the loop thread: GLFW event polling and WebGPU surface
// presentation both require the thread that created the window, so the loop
// never fans out to goroutines.
type engine struct {
	mu *sync.Mutex

	window       window.Window
	renderEngine renderer.RenderEngine

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickRate      time.Duration
	tickCallback  func(deltaTime float32)
	eventCallback func(event window.Event)

	frameOptions     renderer.FrameOptions
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
}

var _ Engine = &engine{}

// Engine is the main entry point. It owns the window, the render engine, and
// the fixed-timestep game tick, and drives all three from Run.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the render engine driving the frame lifecycle.
	//
	// Returns:
	//   - renderer.RenderEngine: the render engine instance
	Renderer() renderer.RenderEngine

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the game tick rate in ticks per second. Takes effect
	// on the next loop iteration.
	//
	// Parameters:
	//   - tps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(tps float64)

	// SetTickCallback registers the function called on each fixed-timestep
	// tick. Use this for game logic, input processing, and camera movement.
	// The callback runs on the loop thread.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the fixed delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetEventCallback registers a function that receives every window event
	// after the engine has applied its own handling (resize, close). The
	// callback runs on the loop thread.
	//
	// Parameters:
	//   - callback: function to call for each drained window event
	SetEventCallback(callback func(event window.Event))

	// SetFrameOptions replaces the clear options used for every frame.
	//
	// Parameters:
	//   - opts: clear color and depth-clear flag for subsequent frames
	SetFrameOptions(opts renderer.FrameOptions)

	// SetRenderFrameLimit sets an optional frame rate cap in frames per
	// second. Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the main loop and blocks until the window closes or Quit is
	// called. Must be called from the main goroutine; the loop locks itself
	// to the OS thread for GLFW and surface presentation. Releases the render
	// engine and closes the window before returning.
	Run()

	// Quit signals the main loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// A window must be supplied via WithWindow; if no render engine is injected
// via WithRenderEngine, a default one is created from the window surface.
//
// Parameters:
//   - options: functional options for engine configuration (window, render engine, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the render engine could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:           &sync.Mutex{},
		quitChannel:  make(chan struct{}),
		profiler:     profiler.NewProfiler(),
		tickRate:     time.Second / 60,
		frameOptions: renderer.DefaultFrameOptions(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		panic("engine requires a window, use WithWindow")
	}

	if e.renderEngine == nil {
		re, err := renderer.NewRenderEngine(renderer.BackendTypeWGPU, e.window)
		if err != nil {
			return nil, err
		}
		e.renderEngine = re
	}

	return e, nil
}

// NewFromConfig creates a window, render engine, and engine wired from a
// loaded configuration document.
//
// Parameters:
//   - cfg: configuration, typically from config.Load
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the render engine could not be created
func NewFromConfig(cfg *config.Config) (Engine, error) {
	windowOptions := []window.WindowBuilderOption{
		window.WithTitle(cfg.Window.Title),
		window.WithWidth(cfg.Window.Width),
		window.WithHeight(cfg.Window.Height),
	}
	if cfg.Window.CaptureCursor {
		windowOptions = append(windowOptions, window.WithCapturedCursor())
	}
	win := window.NewWindow(windowOptions...)

	presentMode := renderer.PresentModeUncapped
	if cfg.Renderer.VSync {
		presentMode = renderer.PresentModeVSync
	}
	msaa := renderer.MSAASampleCount(cfg.Renderer.MSAASamples)
	switch msaa {
	case renderer.MSAAOff, renderer.MSAA4x, renderer.MSAA8x, renderer.MSAA16x:
	default:
		logger.Log.Warn("unsupported msaa sample count, falling back to 4x",
			zap.Int("samples", cfg.Renderer.MSAASamples))
		msaa = renderer.MSAA4x
	}

	re, err := renderer.NewRenderEngine(renderer.BackendTypeWGPU, win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(msaa),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceSoftware),
		renderer.WithModelDir(cfg.Assets.ModelDir),
		renderer.WithTextureDir(cfg.Assets.TextureDir),
		renderer.WithPreloadWorkers(cfg.Assets.PreloadWorkers),
	)
	if err != nil {
		_ = win.Close()
		return nil, err
	}

	return NewEngine(
		WithWindow(win),
		WithRenderEngine(re),
		WithTickRate(float64(cfg.Renderer.TickRate)),
	)
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.RenderEngine {
	return e.renderEngine
}

func (e *engine) Run() {
	// GLFW event polling and surface presentation must stay on the thread
	// that created the window.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		e.renderEngine.Release()
		if err := e.window.Close(); err != nil {
			logger.Log.Warn("window close failed", zap.Error(err))
		}
	}()

	last := time.Now()
	var accumulator time.Duration

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		e.mu.Lock()
		tickRate := e.tickRate
		tickCallback := e.tickCallback
		eventCallback := e.eventCallback
		frameOptions := e.frameOptions
		frameLimit := e.renderFrameLimit
		e.mu.Unlock()

		for _, ev := range e.window.PollEvents() {
			switch ev.Kind {
			case window.EventClose:
				e.signalQuit()
			case window.EventResize:
				if ev.Width > 0 && ev.Height > 0 {
					e.renderEngine.Resize(ev.Width, ev.Height)
				}
			}
			if eventCallback != nil {
				eventCallback(ev)
			}
		}
		if e.window.ShouldClose() {
			e.signalQuit()
			return
		}

		now := time.Now()
		frameTime := now.Sub(last)
		last = now
		if frameTime > maxFrameTime {
			frameTime = maxFrameTime
		}
		accumulator += frameTime

		for accumulator >= tickRate {
			if tickCallback != nil {
				tickCallback(float32(tickRate.Seconds()))
			}
			accumulator -= tickRate
		}

		if _, err := e.renderEngine.RenderFrame(frameOptions); err != nil {
			// A skipped frame (lost surface, mid-resize) is routine; the next
			// iteration reconfigures and retries.
			logger.Log.Debug("frame skipped", zap.Error(err))
		}

		if e.profilingEnabled {
			e.profiler.Tick()
		}

		if frameLimit > 0 {
			if remaining := frameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// Quit signals the main loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to stop the loop.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the game tick rate in ticks per second.
// The change takes effect on the next loop iteration.
func (e *engine) SetTickRate(tps float64) {
	if tps <= 0 {
		tps = 60
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickRate = time.Second / time.Duration(tps)
}

// SetTickCallback registers the function called on each fixed-timestep tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

// SetEventCallback registers a function that receives drained window events.
func (e *engine) SetEventCallback(callback func(event window.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventCallback = callback
}

// SetFrameOptions replaces the clear options used for every frame.
func (e *engine) SetFrameOptions(opts renderer.FrameOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameOptions = opts
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
