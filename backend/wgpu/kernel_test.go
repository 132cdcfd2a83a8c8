//go:build !nogpu

package wgpu

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pixkit/backend"
	"github.com/gogpu/pixkit/gpucore"
)

func TestLayoutEntries(t *testing.T) {
	desc := &gpucore.KernelDesc{
		Inputs: []gpucore.KernelInput{
			{Name: "a", Slot: 0, Format: gpucore.AttributeFloat32x2},
			{Name: "b", Slot: 1, Format: gpucore.AttributeUnorm8x4},
		},
		Textures:    []string{"t"},
		Outputs:     []gpucore.KernelOutput{{Name: "x", Format: gpucore.AttributeFloat32x2}},
		UniformSize: 16,
	}

	want := []struct {
		binding uint32
		typ     gputypes.BufferBindingType
	}{
		{0, gputypes.BufferBindingTypeUniform},
		{1, gputypes.BufferBindingTypeReadOnlyStorage},
		{2, gputypes.BufferBindingTypeReadOnlyStorage},
		{3, gputypes.BufferBindingTypeReadOnlyStorage},
		{4, gputypes.BufferBindingTypeStorage},
	}
	got := layoutEntries(desc)
	if len(got) != len(want) {
		t.Fatalf("len(layoutEntries) = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Binding != w.binding || got[i].Buffer.Type != w.typ {
			t.Errorf("entry %d = binding %d type %v, want %d %v", i, got[i].Binding, got[i].Buffer.Type, w.binding, w.typ)
		}
		if got[i].Visibility != gputypes.ShaderStageCompute {
			t.Errorf("entry %d visibility = %v, want compute", i, got[i].Visibility)
		}
	}

	desc.UniformSize = 0
	if got := layoutEntries(desc); got[0].Binding != 1 {
		t.Errorf("without uniforms first binding = %d, want 1", got[0].Binding)
	}
}

func TestCompileWGSLRejectsGarbage(t *testing.T) {
	if _, err := compileWGSL("fn main( {"); err == nil {
		t.Error("compileWGSL(garbage) error = nil")
	}
}

func TestAlign4(t *testing.T) {
	tests := []struct{ in, want uint64 }{{0, 0}, {1, 4}, {4, 4}, {5, 8}, {96, 96}}
	for _, tt := range tests {
		if got := align4(tt.in); got != tt.want {
			t.Errorf("align4(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(Name) {
		t.Errorf("%q not registered on import", Name)
	}
}
