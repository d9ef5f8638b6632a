// Package config holds the runtime configuration for the client, loaded from
// an optional YAML file layered over built-in defaults.
package config

// Config is the root configuration document.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Assets   AssetsConfig   `yaml:"assets"`
	Log      LogConfig      `yaml:"log"`
	Net      NetConfig      `yaml:"net"`
}

// WindowConfig controls the OS window.
type WindowConfig struct {
	// Title is the window title bar text.
	Title string `yaml:"title"`
	// Width and Height are the initial client-area size in pixels.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// CaptureCursor hides and grabs the mouse cursor for camera control.
	CaptureCursor bool `yaml:"capture_cursor"`
}

// RendererConfig controls GPU presentation.
type RendererConfig struct {
	// VSync selects FIFO presentation when true, immediate when false.
	VSync bool `yaml:"vsync"`
	// MSAASamples is the multisample count (1, 4, 8 or 16).
	MSAASamples int `yaml:"msaa_samples"`
	// ForceSoftware forces a software adapter, mainly for CI machines.
	ForceSoftware bool `yaml:"force_software"`
	// TickRate is the target game ticks per second.
	TickRate int `yaml:"tick_rate"`
}

// AssetsConfig locates on-disk assets.
type AssetsConfig struct {
	// ModelDir is the directory searched for <name>.obj model files.
	ModelDir string `yaml:"model_dir"`
	// TextureDir is the directory searched for texture image files.
	TextureDir string `yaml:"texture_dir"`
	// PreloadWorkers caps the worker pool used for batch model parsing.
	PreloadWorkers int `yaml:"preload_workers"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	Level string `yaml:"level"`
	// File is the rotating log file path; empty disables file output.
	File string `yaml:"file"`
}

// NetConfig points the client connection at its server.
type NetConfig struct {
	// Address is the server host:port for the UDP connection.
	Address string `yaml:"address"`
	// EventBuffer is the capacity of the inbound event channel.
	EventBuffer int `yaml:"event_buffer"`
}

// Default returns the built-in configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:         "ember",
			Width:         1280,
			Height:        720,
			CaptureCursor: true,
		},
		Renderer: RendererConfig{
			VSync:       true,
			MSAASamples: 1,
			TickRate:    60,
		},
		Assets: AssetsConfig{
			ModelDir:       "assets/models",
			TextureDir:     "assets/textures",
			PreloadWorkers: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
		Net: NetConfig{
			Address:     "127.0.0.1:9000",
			EventBuffer: 256,
		},
	}
}
