package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/internal/logger"
	"go.uber.org/zap"
)

// TickFunc runs before each frame is rendered. Returning an error stops the loop.
type TickFunc func(frame uint64, deltaTime float32) error

// engine implements the Engine interface.
type engine struct {
	mu  sync.RWMutex
	log *zap.Logger

	scenes map[int]scene.Scene

	tickCallback     TickFunc
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	frames uint64

	quitChannel chan struct{}
	quitOnce    sync.Once
}

// Engine drives the frame loop for a set of scenes. Each frame the tick callback runs first,
// then every active scene draws in ascending key order. Scenes sharing a renderer composite
// into one frame, later keys on top. There is no window: frames are read back from each
// scene's renderer.
type Engine interface {
	// SetTickCallback registers the function called before each frame.
	SetTickCallback(callback TickFunc)

	// SetRenderFrameLimit caps the frame rate. Pass 0 to uncap the loop.
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given key, replacing any scene already there.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene unregisters the scene at key. The scene is not released.
	RemoveScene(key int)

	// Scene returns the scene at key, or nil.
	Scene(key int) scene.Scene

	// Scenes returns a copy of the registered scenes.
	Scenes() map[int]scene.Scene

	// RunFrames renders exactly n frames unless ctx is cancelled, Quit is called, or a tick or
	// render fails first.
	//
	// Parameters:
	//   - ctx: cancels the loop between frames
	//   - n: the number of frames to render
	//
	// Returns:
	//   - error: the tick, render or context error that stopped the loop, or nil
	RunFrames(ctx context.Context, n int) error

	// Run renders frames until ctx is cancelled, Quit is called, or a frame fails.
	//
	// Parameters:
	//   - ctx: cancels the loop between frames
	//
	// Returns:
	//   - error: the error that stopped the loop; nil after Quit
	Run(ctx context.Context) error

	// Quit stops a running loop after the current frame. Safe to call more than once.
	Quit()

	// Frames returns the number of frames completed since construction.
	Frames() uint64
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (scenes, frame limit, tick callback)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		log:         logger.Named("engine"),
		scenes:      make(map[int]scene.Scene),
		quitChannel: make(chan struct{}),
	}

	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) RunFrames(ctx context.Context, n int) error {
	return e.loop(ctx, n)
}

func (e *engine) Run(ctx context.Context) error {
	return e.loop(ctx, -1)
}

// loop renders until limit frames are done; a negative limit runs until stopped.
func (e *engine) loop(ctx context.Context, limit int) (err error) {
	// A panicking scene or callback ends the loop with an error instead of the process.
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("frame loop recovered from panic", zap.Any("panic", r))
			err = fmt.Errorf("engine: frame loop panic: %v", r)
		}
	}()

	last := time.Now()
	for done := 0; limit < 0 || done < limit; done++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.quitChannel:
			return nil
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start

		if err := e.frame(dt); err != nil {
			return err
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				timer := time.NewTimer(remaining)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-e.quitChannel:
					timer.Stop()
					return nil
				case <-timer.C:
				}
			}
		}
	}
	return nil
}

// frame runs the tick callback and renders every active scene once.
func (e *engine) frame(dt float32) error {
	e.mu.RLock()
	tick := e.tickCallback
	frame := e.frames
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	e.mu.RUnlock()

	if tick != nil {
		if err := tick(frame, dt); err != nil {
			return fmt.Errorf("engine: tick %d: %w", frame, err)
		}
	}
	if err := drawFrame(active); err != nil {
		return fmt.Errorf("engine: frame %d: %w", frame, err)
	}

	e.mu.Lock()
	e.frames++
	e.mu.Unlock()
	e.log.Debug("frame rendered", zap.Uint64("frame", frame), zap.Int("scenes", len(active)))
	return nil
}

// drawFrame owns the frame lifecycle: every distinct renderer is begun once, each scene issues
// its draw calls in order, then every begun renderer is ended. Scenes sharing a renderer layer
// into one set of attachments.
func drawFrame(active []scene.Scene) error {
	var begun []renderer.Renderer
	endAll := func() error {
		var errs []error
		for _, r := range begun {
			errs = append(errs, r.EndFrame())
		}
		return errors.Join(errs...)
	}

	for _, s := range active {
		r := s.Renderer()
		if slices.Contains(begun, r) {
			continue
		}
		if err := r.BeginFrame(); err != nil {
			return errors.Join(fmt.Errorf("scene %q: %w", s.Name(), err), endAll())
		}
		begun = append(begun, r)
	}
	for _, s := range active {
		if err := s.DrawCalls(); err != nil {
			return errors.Join(fmt.Errorf("scene %q: %w", s.Name(), err), endAll())
		}
	}
	return endAll()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) SetTickCallback(callback TickFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func (e *engine) Frames() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frames
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
