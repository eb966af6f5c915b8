package material

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestMaterialDefaults(t *testing.T) {
	m := NewMaterial(WithName("plain"))
	if got := m.BaseColor(); got != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Errorf("BaseColor() = %v, want white", got)
	}
	if m.Metallic() != 0 || m.Roughness() != 1 {
		t.Errorf("Metallic/Roughness = %v/%v, want 0/1", m.Metallic(), m.Roughness())
	}
	if got := m.BindGroupProvider().Label(); got != "material_plain" {
		t.Errorf("provider label = %q, want material_plain", got)
	}
}

func TestMaterialUniform(t *testing.T) {
	m := NewMaterial(
		WithBaseColor(mgl32.Vec4{1, 0, 0, 0.5}),
		WithMetallic(0.25),
		WithRoughness(0.75),
	)
	u := m.Uniform()
	if u.Size() != 32 {
		t.Fatalf("Size() = %d, want 32", u.Size())
	}

	var decoded GPUMaterialUniform
	if err := decoded.Unmarshal(u.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Color != [4]float32{1, 0, 0, 0.5} {
		t.Errorf("Color = %v, want (1, 0, 0, 0.5)", decoded.Color)
	}
	if decoded.Params != [4]float32{0.25, 0.75, 0, 0} {
		t.Errorf("Params = %v, want (0.25, 0.75, 0, 0)", decoded.Params)
	}
}
