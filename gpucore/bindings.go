package gpucore

import "fmt"

// Bindings is the binding state a FeedbackPass records before Draw.
type Bindings struct {
	Inputs   map[uint32]BufferID
	Uniforms BufferID
	Textures map[uint32]TextureID
	Feedback map[uint32]BufferID
}

// NewBindings returns empty bindings.
func NewBindings() Bindings {
	return Bindings{
		Inputs:   make(map[uint32]BufferID),
		Textures: make(map[uint32]TextureID),
		Feedback: make(map[uint32]BufferID),
	}
}

// Clear drops every binding.
func (b *Bindings) Clear() {
	clear(b.Inputs)
	clear(b.Textures)
	clear(b.Feedback)
	b.Uniforms = InvalidID
}

// Resolved lists the bound resources in declaration order.
type Resolved struct {
	Inputs   []BufferID // KernelDesc.Inputs order
	Uniforms BufferID   // InvalidID if UniformSize is 0
	Textures []TextureID
	Outputs  []BufferID // feedback index order
}

// Resolve matches the bindings against desc.
//
// Every declared input, sampler and output must be bound, as must the
// uniform block when UniformSize > 0. An output buffer may not also be an
// input or the uniform block, and two outputs may not share a buffer.
func (b *Bindings) Resolve(desc *KernelDesc) (*Resolved, error) {
	r := &Resolved{}
	read := make(map[BufferID]string, len(desc.Inputs)+1)

	for _, in := range desc.Inputs {
		id, ok := b.Inputs[in.Slot]
		if !ok || id == InvalidID {
			return nil, fmt.Errorf("%w: input %q (slot %d)", ErrMissingBinding, in.Name, in.Slot)
		}
		r.Inputs = append(r.Inputs, id)
		read[id] = in.Name
	}

	if desc.UniformSize > 0 {
		if b.Uniforms == InvalidID {
			return nil, fmt.Errorf("%w: uniform block %q", ErrMissingBinding, desc.UniformBlock)
		}
		r.Uniforms = b.Uniforms
		read[b.Uniforms] = desc.UniformBlock
	}

	for slot, name := range desc.Textures {
		id, ok := b.Textures[uint32(slot)]
		if !ok || id == InvalidID {
			return nil, fmt.Errorf("%w: sampler %q (slot %d)", ErrMissingBinding, name, slot)
		}
		r.Textures = append(r.Textures, id)
	}

	seen := make(map[BufferID]string, len(desc.Outputs))
	for i, out := range desc.Outputs {
		id, ok := b.Feedback[uint32(i)]
		if !ok || id == InvalidID {
			return nil, fmt.Errorf("%w: output %q (index %d)", ErrMissingBinding, out.Name, i)
		}
		if name, ok := read[id]; ok {
			return nil, fmt.Errorf("%w: output %q is bound as %q", ErrAliasedFeedback, out.Name, name)
		}
		if name, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: outputs %q and %q share a buffer", ErrAliasedFeedback, name, out.Name)
		}
		seen[id] = out.Name
		r.Outputs = append(r.Outputs, id)
	}
	return r, nil
}
