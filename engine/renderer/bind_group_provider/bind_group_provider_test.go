package bind_group_provider

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func uniformLayout(size uint64) wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: size,
			},
		}},
	}
}

func TestAllocateSizesFromLayout(t *testing.T) {
	p := NewBindGroupProvider("scene")
	if err := p.Allocate(uniformLayout(112), nil); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got := p.BufferSize(0); got != 112 {
		t.Errorf("BufferSize(0) = %d, want 112", got)
	}

	if err := p.Allocate(uniformLayout(112), map[int]uint64{0: 256}); err != nil {
		t.Fatalf("Allocate with override: %v", err)
	}
	if got := p.BufferSize(0); got != 256 {
		t.Errorf("BufferSize(0) with override = %d, want 256", got)
	}
}

func TestAllocateRejectsUnsizedBuffer(t *testing.T) {
	p := NewBindGroupProvider("unsized")
	if err := p.Allocate(uniformLayout(0), nil); err == nil {
		t.Error("Allocate: got nil error for a zero-sized buffer")
	}
}

func TestWriteBounds(t *testing.T) {
	p := NewBindGroupProvider("material")
	if err := p.Allocate(uniformLayout(32), nil); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if err := (BufferWrite{Provider: p, Binding: 0, Offset: 16, Data: make([]byte, 16)}).Apply(); err != nil {
		t.Errorf("write ending at buffer end: %v", err)
	}
	if err := p.Write(0, 17, make([]byte, 16)); !errors.Is(err, ErrWriteOutOfRange) {
		t.Errorf("write past end: got %v, want ErrWriteOutOfRange", err)
	}
	if err := p.Write(3, 0, []byte{1}); !errors.Is(err, ErrUnknownBinding) {
		t.Errorf("write to missing binding: got %v, want ErrUnknownBinding", err)
	}
	if err := (BufferWrite{Binding: 0}).Apply(); err == nil {
		t.Error("write without provider: got nil error")
	}
}

func TestBufferReturnsSnapshot(t *testing.T) {
	p := NewBindGroupProvider("snapshot")
	if err := p.Allocate(uniformLayout(4), nil); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := p.Write(0, 0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	snap, err := p.Buffer(0)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	snap[0] = 99

	again, _ := p.Buffer(0)
	if again[0] != 1 {
		t.Errorf("provider buffer mutated through snapshot: got %d, want 1", again[0])
	}
}

func TestMeshProvider(t *testing.T) {
	p := NewBindGroupProvider("mesh", WithMesh([]byte{1, 2}, []byte{3, 4, 5, 6}, 1))
	if got := p.IndexCount(); got != 1 {
		t.Errorf("IndexCount() = %d, want 1", got)
	}
	p.Release()
	if p.VertexBuffer() != nil || p.IndexCount() != 0 {
		t.Error("Release did not clear mesh data")
	}
}
