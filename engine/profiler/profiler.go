package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/internal/logger"
	"go.uber.org/zap"
)

// Stats is one reporting interval worth of frame and memory statistics.
type Stats struct {
	Frames              int
	FPS                 float64
	Draws               int
	Instances           int
	VertexInvocations   int
	Primitives          int
	FragmentInvocations int

	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	SysMB       float64
}

// Profiler tracks frame rate, draw work and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu  *sync.Mutex
	log *zap.Logger
	now func() time.Time

	frameCount     int
	totalFrames    uint64
	work           renderer.FrameStats
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options applied after defaults
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
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

// Tick should be called once per frame with that frame's renderer statistics. Logs the
// accumulated statistics when the update interval has elapsed.
//
// Parameters:
//   - frame: the work done by the renderer during the frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(frame renderer.FrameStats) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	p.totalFrames++
	p.work.Add(frame)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	seconds := max(elapsed.Seconds(), 1e-9)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc

	p.last = Stats{
		Frames:              p.frameCount,
		FPS:                 float64(p.frameCount) / seconds,
		Draws:               p.work.Draws,
		Instances:           p.work.Instances,
		VertexInvocations:   p.work.VertexInvocations,
		Primitives:          p.work.Primitives,
		FragmentInvocations: p.work.Fragments,
		HeapMB:              float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:         float64(allocDelta) / 1024 / 1024 / seconds,
		GCCount:             p.memStats.NumGC,
		SysMB:               float64(p.memStats.Sys) / 1024 / 1024,
	}

	p.log.Info("frame stats",
		zap.Float64("fps", p.last.FPS),
		zap.Int("frames", p.last.Frames),
		zap.Int("draws", p.last.Draws),
		zap.Int("instances", p.last.Instances),
		zap.Int("vertex_invocations", p.last.VertexInvocations),
		zap.Int("primitives", p.last.Primitives),
		zap.Int("fragment_invocations", p.last.FragmentInvocations),
		zap.Float64("heap_mb", p.last.HeapMB),
		zap.Float64("alloc_rate_mb_s", p.last.AllocRateMB),
		zap.Uint32("gc", p.last.GCCount),
		zap.Float64("sys_mb", p.last.SysMB),
	)

	p.frameCount = 0
	p.work = renderer.FrameStats{}
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the statistics of the most recently logged interval.
func (p *Profiler) Last() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// TotalFrames returns the number of frames ticked since creation.
func (p *Profiler) TotalFrames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames
}
