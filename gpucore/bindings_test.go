package gpucore

import (
	"errors"
	"slices"
	"testing"
)

func bindingsKernel() *KernelDesc {
	return &KernelDesc{
		Name: "test",
		Inputs: []KernelInput{
			{Name: "a", Slot: 2, Format: AttributeFloat32x2},
			{Name: "b", Slot: 0, Format: AttributeUnorm8x4},
		},
		Outputs:      []KernelOutput{{Name: "x", Format: AttributeFloat32x2}},
		Textures:     []string{"t0", "t1"},
		UniformBlock: "U",
		UniformSize:  16,
	}
}

func TestBindingsResolveOrder(t *testing.T) {
	b := NewBindings()
	b.Inputs[0] = 11
	b.Inputs[2] = 12
	b.Uniforms = 13
	b.Textures[1] = 21
	b.Textures[0] = 20
	b.Feedback[0] = 30

	r, err := b.Resolve(bindingsKernel())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !slices.Equal(r.Inputs, []BufferID{12, 11}) {
		t.Errorf("Inputs = %v, want declaration order [12 11]", r.Inputs)
	}
	if r.Uniforms != 13 {
		t.Errorf("Uniforms = %d, want 13", r.Uniforms)
	}
	if !slices.Equal(r.Textures, []TextureID{20, 21}) {
		t.Errorf("Textures = %v, want [20 21]", r.Textures)
	}
	if !slices.Equal(r.Outputs, []BufferID{30}) {
		t.Errorf("Outputs = %v, want [30]", r.Outputs)
	}

	b.Clear()
	if _, err := b.Resolve(bindingsKernel()); !errors.Is(err, ErrMissingBinding) {
		t.Errorf("Resolve() after Clear error = %v, want ErrMissingBinding", err)
	}
}

func TestBindingsResolveErrors(t *testing.T) {
	full := func() Bindings {
		b := NewBindings()
		b.Inputs[0], b.Inputs[2] = 1, 2
		b.Uniforms = 3
		b.Textures[0], b.Textures[1] = 4, 5
		b.Feedback[0] = 6
		return b
	}

	tests := []struct {
		name   string
		modify func(b *Bindings)
		want   error
	}{
		{"input", func(b *Bindings) { delete(b.Inputs, 2) }, ErrMissingBinding},
		{"uniforms", func(b *Bindings) { b.Uniforms = InvalidID }, ErrMissingBinding},
		{"texture", func(b *Bindings) { b.Textures[1] = InvalidID }, ErrMissingBinding},
		{"output", func(b *Bindings) { clear(b.Feedback) }, ErrMissingBinding},
		{"output is input", func(b *Bindings) { b.Feedback[0] = 1 }, ErrAliasedFeedback},
		{"output is uniforms", func(b *Bindings) { b.Feedback[0] = 3 }, ErrAliasedFeedback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := full()
			tt.modify(&b)
			if _, err := b.Resolve(bindingsKernel()); !errors.Is(err, tt.want) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.want)
			}
		})
	}

	desc := bindingsKernel()
	desc.Outputs = append(desc.Outputs, KernelOutput{Name: "y", Format: AttributeFloat32x2})
	b := full()
	b.Feedback[1] = 6
	if _, err := b.Resolve(desc); !errors.Is(err, ErrAliasedFeedback) {
		t.Errorf("shared outputs error = %v, want ErrAliasedFeedback", err)
	}
}
