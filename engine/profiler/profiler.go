package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/logger"
	"go.uber.org/zap"
)

// Stats is one reporting interval of frame and memory statistics.
type Stats struct {
	FPS         float64
	FrameTime   time.Duration // mean over the interval
	Rejected    int           // frames abandoned by validation
	HeapMB      float64
	AllocRateMB float64 // MB/s
	GCCount     uint32
	LastPause   time.Duration
	MaxPause    time.Duration
	SysMB       float64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval. Tick and Reject belong to the render
// thread; Last may be called from any goroutine.
type Profiler struct {
	mu             sync.Mutex
	log            *zap.Logger
	now            func() time.Time
	frameCount     int
	rejected       int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are reported. Defaults to one second.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithLogger replaces the logger, which defaults to logger.Named("profiler").
func WithLogger(l *zap.Logger) ProfilerOption {
	return func(p *Profiler) {
		p.log = l
	}
}

// withClock replaces time.Now, used by tests.
func withClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - options: functional options for interval and logger
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		log:            logger.Named("profiler"),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Reject counts a frame that was abandoned before submission. Rejected frames are not ticked.
func (p *Profiler) Reject() {
	p.rejected++
}

// Last returns the statistics of the most recent reporting interval.
func (p *Profiler) Last() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Tick should be called once per submitted frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:       float64(p.frameCount) / elapsed.Seconds(),
		FrameTime: elapsed / time.Duration(p.frameCount),
		Rejected:  p.rejected,
		HeapMB:    float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:     float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:   p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		s.LastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			s.MaxPause = max(s.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	p.log.Info("frame stats",
		zap.Float64("fps", s.FPS),
		zap.Duration("frame_time", s.FrameTime),
		zap.Int("rejected", s.Rejected),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_mb_s", s.AllocRateMB),
		zap.Uint32("gc", s.GCCount),
		zap.Duration("gc_last", s.LastPause),
		zap.Duration("gc_max", s.MaxPause),
		zap.Float64("sys_mb", s.SysMB),
	)

	p.mu.Lock()
	p.last = s
	p.mu.Unlock()
	p.frameCount = 0
	p.rejected = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
