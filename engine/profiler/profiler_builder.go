package profiler

import (
	"time"

	"go.uber.org/zap"
)

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often accumulated statistics are logged. Zero logs on every tick.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = interval
	}
}

// WithLogger replaces the profiler's logger.
func WithLogger(log *zap.Logger) ProfilerOption {
	return func(p *Profiler) {
		if log != nil {
			p.log = log
		}
	}
}
