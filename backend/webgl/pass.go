//go:build js && wasm

package webgl

import (
	"fmt"
	"syscall/js"

	"github.com/gogpu/pixkit/gpucore"
)

type pass struct {
	dev    *Device
	kernel *kernel
	bind   gpucore.Bindings
	drawn  bool
	ended  bool
}

func (p *pass) SetInput(slot uint32, buf gpucore.BufferID) {
	p.bind.Inputs[slot] = buf
}

func (p *pass) SetUniforms(buf gpucore.BufferID) {
	p.bind.Uniforms = buf
}

func (p *pass) SetTexture(slot uint32, tex gpucore.TextureID) {
	p.bind.Textures[slot] = tex
}

func (p *pass) SetFeedbackBuffer(index uint32, buf gpucore.BufferID) {
	p.bind.Feedback[index] = buf
}

type resolved struct {
	inputs   []*buffer
	uniforms *buffer
	textures []*texture
	outputs  []*buffer
}

// resolve checks the bindings and sizes. The caller holds the device lock.
func (p *pass) resolve(count int) (*resolved, error) {
	d := p.dev
	desc := p.kernel.desc
	r, err := p.bind.Resolve(desc)
	if err != nil {
		return nil, err
	}
	out := &resolved{}

	for i, in := range desc.Inputs {
		b, err := d.buffer(r.Inputs[i])
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		if need := uint64(count * in.Format.Size()); b.desc.Size < need {
			return nil, fmt.Errorf("%w: input %q holds %d bytes, need %d",
				gpucore.ErrOutOfRange, in.Name, b.desc.Size, need)
		}
		out.inputs = append(out.inputs, b)
	}
	if desc.UniformSize > 0 {
		b, err := d.buffer(r.Uniforms)
		if err != nil {
			return nil, fmt.Errorf("uniform block %q: %w", desc.UniformBlock, err)
		}
		if b.desc.Size < uint64(desc.UniformSize) {
			return nil, fmt.Errorf("%w: uniform block %q holds %d bytes, need %d",
				gpucore.ErrOutOfRange, desc.UniformBlock, b.desc.Size, desc.UniformSize)
		}
		out.uniforms = b
	}
	for slot, name := range desc.Textures {
		t, err := d.texture(r.Textures[slot])
		if err != nil {
			return nil, fmt.Errorf("sampler %q: %w", name, err)
		}
		out.textures = append(out.textures, t)
	}
	for i, o := range desc.Outputs {
		b, err := d.buffer(r.Outputs[i])
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", o.Name, err)
		}
		if need := uint64(count * o.Format.Size()); b.desc.Size < need {
			return nil, fmt.Errorf("%w: output %q holds %d bytes, need %d",
				gpucore.ErrOutOfRange, o.Name, b.desc.Size, need)
		}
		out.outputs = append(out.outputs, b)
	}
	return out, nil
}

// Draw runs the kernel over count points with rasterization discarded and
// transform feedback capturing the outputs.
func (p *pass) Draw(count int, topology gpucore.Topology) error {
	if p.ended || p.drawn {
		return gpucore.ErrPassEnded
	}
	p.drawn = true
	if topology != gpucore.TopologyPoints {
		return fmt.Errorf("%w: unsupported topology %d", gpucore.ErrInvalidDescriptor, topology)
	}
	if count < 0 {
		return fmt.Errorf("%w: negative element count %d", gpucore.ErrOutOfRange, count)
	}

	d := p.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.ErrDeviceClosed
	}
	r, err := p.resolve(count)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	gl, c, k := d.gl, d.consts, p.kernel
	gl.Call("useProgram", k.program)
	gl.Call("bindVertexArray", k.vao)
	for i, in := range k.desc.Inputs {
		gl.Call("bindBuffer", c.arrayBuffer, r.inputs[i].obj)
		gl.Call("enableVertexAttribArray", in.Slot)
		switch in.Format {
		case gpucore.AttributeUnorm8x4:
			gl.Call("vertexAttribPointer", in.Slot, 4, c.unsignedByte, true, 0, 0)
		default:
			gl.Call("vertexAttribPointer", in.Slot, in.Format.Components(), c.floatType, false, 0, 0)
		}
	}
	gl.Call("bindBuffer", c.arrayBuffer, js.Null())
	if r.uniforms != nil {
		gl.Call("bindBufferBase", c.uniformBuffer, 0, r.uniforms.obj)
	}
	for slot, t := range r.textures {
		gl.Call("activeTexture", c.texture0+slot)
		gl.Call("bindTexture", c.texture2DArray, t.obj)
	}

	gl.Call("bindTransformFeedback", c.transformFeedback, k.feedback)
	for i, b := range r.outputs {
		gl.Call("bindBufferBase", c.transformFeedbackBuffer, i, b.obj)
	}
	gl.Call("enable", c.rasterizerDiscard)
	gl.Call("beginTransformFeedback", c.points)
	gl.Call("drawArrays", c.points, 0, count)
	gl.Call("endTransformFeedback")
	gl.Call("disable", c.rasterizerDiscard)

	for i := range r.outputs {
		gl.Call("bindBufferBase", c.transformFeedbackBuffer, i, js.Null())
	}
	gl.Call("bindTransformFeedback", c.transformFeedback, js.Null())
	if r.uniforms != nil {
		gl.Call("bindBufferBase", c.uniformBuffer, 0, js.Null())
	}
	gl.Call("bindVertexArray", js.Null())
	gl.Call("useProgram", js.Null())
	return nil
}

// End unbinds the pass. Feedback buffers were already released by Draw.
func (p *pass) End() error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	p.ended = true
	p.bind.Clear()
	return nil
}
