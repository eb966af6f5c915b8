package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func TestTickAccumulatesUntilInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	clock := &fakeClock{t: time.Unix(0, 0)}

	p := NewProfiler(WithInterval(time.Second), WithLogger(zap.New(core)))
	p.now = clock.now
	p.lastTime = clock.t

	frame := renderer.FrameStats{Draws: 2, Instances: 10, VertexInvocations: 80, Primitives: 20, Fragments: 500}

	clock.t = clock.t.Add(400 * time.Millisecond)
	if p.Tick(frame) {
		t.Fatal("Tick logged before the interval elapsed")
	}
	clock.t = clock.t.Add(600 * time.Millisecond)
	if !p.Tick(frame) {
		t.Fatal("Tick did not log after the interval elapsed")
	}

	got := p.Last()
	if got.Frames != 2 {
		t.Errorf("Frames = %d, want 2", got.Frames)
	}
	if got.FPS != 2 {
		t.Errorf("FPS = %v, want 2", got.FPS)
	}
	if got.Draws != 4 || got.VertexInvocations != 160 || got.FragmentInvocations != 1000 {
		t.Errorf("work = %+v, want doubled frame stats", got)
	}
	if got.HeapMB <= 0 {
		t.Errorf("HeapMB = %v, want > 0", got.HeapMB)
	}

	entries := logs.FilterMessage("frame stats").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	if v := entries[0].ContextMap()["draws"]; v != int64(4) {
		t.Errorf("draws field = %v, want 4", v)
	}
}

func TestTickResetsInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithInterval(time.Second))
	p.now = clock.now
	p.lastTime = clock.t

	clock.t = clock.t.Add(time.Second)
	p.Tick(renderer.FrameStats{Draws: 5})
	clock.t = clock.t.Add(time.Second)
	p.Tick(renderer.FrameStats{Draws: 1})

	if got := p.Last().Draws; got != 1 {
		t.Errorf("Draws = %d, want 1 after reset", got)
	}
	if got := p.TotalFrames(); got != 2 {
		t.Errorf("TotalFrames() = %d, want 2", got)
	}
}
