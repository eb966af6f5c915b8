package model

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func translation(x float32) mgl32.Mat4 {
	return mgl32.Translate3D(x, 0, 0)
}

func TestInstanceSetAddAssignsContiguousSlots(t *testing.T) {
	s := NewInstanceSet(4)
	for i := range 3 {
		h, err := s.Add(translation(float32(i)))
		if err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
		if slot, ok := s.Slot(h); !ok || slot != i {
			t.Errorf("Slot(%d) = %d, %v; want %d, true", h, slot, ok, i)
		}
	}
	if got := s.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if !s.Dirty() {
		t.Error("Dirty() = false after Add, want true")
	}
}

func TestInstanceSetFull(t *testing.T) {
	s := NewInstanceSet(2)
	for range 2 {
		if _, err := s.Add(mgl32.Ident4()); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if _, err := s.Add(mgl32.Ident4()); !errors.Is(err, ErrInstanceSetFull) {
		t.Errorf("Add past capacity: got %v, want ErrInstanceSetFull", err)
	}
}

func TestInstanceSetCapacityClamped(t *testing.T) {
	if got := NewInstanceSet(0).Capacity(); got != MaxInstances {
		t.Errorf("Capacity() = %d, want %d", got, MaxInstances)
	}
	if got := NewInstanceSet(MaxInstances + 1).Capacity(); got != MaxInstances {
		t.Errorf("Capacity() = %d, want %d", got, MaxInstances)
	}
}

func TestInstanceSetRemoveMovesLastIntoHole(t *testing.T) {
	s := NewInstanceSet(8)
	a, _ := s.Add(translation(1))
	b, _ := s.Add(translation(2))
	c, _ := s.Add(translation(3))

	if err := s.Remove(a); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if slot, _ := s.Slot(c); slot != 0 {
		t.Errorf("last instance slot = %d, want 0", slot)
	}
	if slot, _ := s.Slot(b); slot != 1 {
		t.Errorf("middle instance slot = %d, want 1", slot)
	}
	if _, ok := s.Slot(a); ok {
		t.Error("removed handle still has a slot")
	}

	table, n := s.Snapshot()
	if n != 2 {
		t.Fatalf("live count = %d, want 2", n)
	}
	if got := table.At(0); !got.ApproxEqual(translation(3)) {
		t.Errorf("slot 0 = %v, want translation(3)", got)
	}
	if got := table.At(2); got != (mgl32.Mat4{}) {
		t.Errorf("vacated slot = %v, want zero", got)
	}
}

func TestInstanceSetRemoveLast(t *testing.T) {
	s := NewInstanceSet(8)
	a, _ := s.Add(translation(1))
	b, _ := s.Add(translation(2))

	if err := s.Remove(b); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if slot, _ := s.Slot(a); slot != 0 {
		t.Errorf("slot = %d, want 0", slot)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestInstanceSetUnknownHandle(t *testing.T) {
	s := NewInstanceSet(8)
	if err := s.Update(42, mgl32.Ident4()); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("Update: got %v, want ErrUnknownInstance", err)
	}
	if err := s.Remove(42); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("Remove: got %v, want ErrUnknownInstance", err)
	}
}

func TestInstanceSetUpdate(t *testing.T) {
	s := NewInstanceSet(8)
	h, _ := s.Add(mgl32.Ident4())
	s.ClearDirty()

	if err := s.Update(h, translation(5)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !s.Dirty() {
		t.Error("Dirty() = false after Update, want true")
	}
	table, _ := s.Snapshot()
	if got := table.At(0); !got.ApproxEqual(translation(5)) {
		t.Errorf("slot 0 = %v, want translation(5)", got)
	}
}

func TestInstanceSetTableIsACopy(t *testing.T) {
	s := NewInstanceSet(8)
	s.Add(translation(1))

	table := s.Table()
	if err := table.Set(0, translation(9)); err != nil {
		t.Fatal(err)
	}
	if got := s.Table().At(0); !got.ApproxEqual(translation(1)) {
		t.Errorf("slot 0 = %v, want translation(1) after mutating the copy", got)
	}
}
