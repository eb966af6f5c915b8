package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func newTestScene(t *testing.T, name string, options ...scene.SceneBuilderOption) scene.Scene {
	t.Helper()
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithSize(8, 8), renderer.WithWorkers(1))
	t.Cleanup(r.Release)

	cam := camera.NewCamera(camera.WithController(camera.NewOrbitController(camera.WithRadius(5))))
	opts := append([]scene.SceneBuilderOption{
		scene.WithPipelineKind(shading.KindDebugNormal),
		scene.WithComputeWorkers(1),
	}, options...)
	s := scene.NewScene(name, cam, r, opts...)
	t.Cleanup(s.Release)

	if err := s.AddMesh(model.NewCube("cube")); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMaterial(material.NewMaterial(material.WithName("white"))); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddInstance("cube", "white", model.NewTransform(mgl32.Vec3{})); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRunFramesRendersActiveScenes(t *testing.T) {
	front := newTestScene(t, "front")
	back := newTestScene(t, "back")
	hidden := newTestScene(t, "hidden", scene.WithActive(false))

	var ticks []uint64
	e := NewEngine(
		WithScene(1, front),
		WithScene(0, back),
		WithScene(2, hidden),
		WithTickCallback(func(frame uint64, dt float32) error {
			ticks = append(ticks, frame)
			if dt < 0 {
				t.Errorf("negative delta %v", dt)
			}
			return nil
		}),
	)

	if err := e.RunFrames(context.Background(), 3); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	if e.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", e.Frames())
	}
	if len(ticks) != 3 || ticks[0] != 0 || ticks[2] != 2 {
		t.Errorf("ticks = %v, want [0 1 2]", ticks)
	}
	if front.Frames() != 3 || back.Frames() != 3 {
		t.Errorf("active scenes rendered %d and %d frames, want 3", front.Frames(), back.Frames())
	}
	if hidden.Frames() != 0 {
		t.Errorf("inactive scene rendered %d frames", hidden.Frames())
	}
}

func TestTickErrorStopsLoop(t *testing.T) {
	boom := errors.New("boom")
	s := newTestScene(t, "s")
	e := NewEngine(WithScene(0, s), WithTickCallback(func(frame uint64, _ float32) error {
		if frame == 1 {
			return boom
		}
		return nil
	}))

	err := e.RunFrames(context.Background(), 5)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if e.Frames() != 1 || s.Frames() != 1 {
		t.Errorf("frames = %d/%d, want 1", e.Frames(), s.Frames())
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	e := NewEngine(WithScene(0, newTestScene(t, "s")))
	e.SetTickCallback(func(frame uint64, _ float32) error {
		if frame == 4 {
			e.Quit()
		}
		return nil
	})

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Frames() != 5 {
		t.Errorf("Frames() = %d, want 5", e.Frames())
	}
	e.Quit()
}

func TestRunStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEngine(WithRenderFrameLimit(1000))
	e.SetTickCallback(func(frame uint64, _ float32) error {
		if frame == 2 {
			cancel()
		}
		return nil
	})

	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if e.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", e.Frames())
	}
}

func TestRenderFrameLimit(t *testing.T) {
	e := NewEngine()
	e.SetRenderFrameLimit(100)

	start := time.Now()
	if err := e.RunFrames(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("3 frames at 100 fps took %v, want at least 25ms", elapsed)
	}
}

func TestPanicBecomesError(t *testing.T) {
	e := NewEngine(WithTickCallback(func(uint64, float32) error { panic("bad frame") }))
	if err := e.RunFrames(context.Background(), 1); err == nil {
		t.Fatal("expected panic to surface as an error")
	}
}

func TestSceneRegistry(t *testing.T) {
	s := newTestScene(t, "s")
	e := NewEngine()
	e.AddScene(3, s)
	if e.Scene(3) != s || len(e.Scenes()) != 1 {
		t.Fatal("scene not registered")
	}
	e.RemoveScene(3)
	if e.Scene(3) != nil || len(e.Scenes()) != 0 {
		t.Error("scene not removed")
	}
}

func TestScenesSharingRendererComposite(t *testing.T) {
	const size = 32
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithSize(size, size), renderer.WithWorkers(2))
	t.Cleanup(r.Release)

	layer := func(name string, x float32) scene.Scene {
		cam := camera.NewCamera(camera.WithController(camera.NewOrbitController(
			camera.WithRadius(8),
			camera.WithElevation(0),
		)))
		s := scene.NewScene(name, cam, r, scene.WithPipelineKind(shading.KindDebugNormal), scene.WithComputeWorkers(1))
		t.Cleanup(s.Release)
		if err := s.AddMesh(model.NewCube("cube")); err != nil {
			t.Fatal(err)
		}
		if err := s.AddMaterial(material.NewMaterial(material.WithName("white"))); err != nil {
			t.Fatal(err)
		}
		if _, err := s.AddInstance("cube", "white", model.NewTransform(mgl32.Vec3{x, 0, 0})); err != nil {
			t.Fatal(err)
		}
		return s
	}

	e := NewEngine(WithScene(0, layer("back", -2)), WithScene(1, layer("front", 2)))
	if err := e.RunFrames(context.Background(), 1); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}

	var left, right int
	fb := r.Frame()
	for y := range size {
		for x := range size {
			if fb.At(x, y) == (mgl32.Vec4{}) {
				continue
			}
			if x < size/2 {
				left++
			} else {
				right++
			}
		}
	}
	if left == 0 || right == 0 {
		t.Errorf("covered pixels left=%d right=%d, want both scenes in the frame", left, right)
	}
}

func TestSceneRenderStandalone(t *testing.T) {
	s := newTestScene(t, "solo")
	if err := s.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := s.DrawCalls(); err == nil {
		t.Error("DrawCalls outside a frame should fail")
	}
	if err := s.Render(); err != nil {
		t.Fatalf("Render after failed draw: %v", err)
	}
}
