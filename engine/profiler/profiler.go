// Package profiler tracks frame rate and memory statistics for performance
// monitoring. Stats are emitted through the structured logger at a
// configurable interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/emberworks/ember/logger"
	"go.uber.org/zap"
)

// Profiler tracks frame rate and memory statistics. Call Tick once per frame
// from the thread that owns the loop; the profiler is not goroutine-safe.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithUpdateInterval sets how often Tick emits a stats line.
//
// Parameters:
//   - interval: time between stat emissions (default 1 second)
//
// Returns:
//   - ProfilerOption: option function to apply
func WithUpdateInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Tick should be called once per frame to track frame timing. Logs
// performance statistics when the update interval has elapsed: FPS, heap
// usage, allocation rate, GC count and pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap memory; Sys is the process footprint obtained from
	// the OS; TotalAlloc only grows and tracks churn.
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	logger.Log.Info("frame stats",
		zap.Float64("fps", fps),
		zap.Float64("heap_mb", allocMB),
		zap.Float64("alloc_rate_mb_s", allocRateMB),
		zap.Uint32("gc_count", gcCount),
		zap.Uint64("gc_last_pause_us", lastPauseUs),
		zap.Uint64("gc_max_pause_us", maxPauseUs),
		zap.Float64("sys_mb", sysMB),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
