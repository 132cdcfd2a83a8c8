package software

import (
	"fmt"

	"github.com/gogpu/pixkit/gpucore"
)

type pass struct {
	dev   *Device
	desc  *gpucore.KernelDesc
	bind  gpucore.Bindings
	drawn bool
	ended bool
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

// bound is the resolved state of a pass at Draw time.
type bound struct {
	inputs   [][]byte
	sizes    []int
	uniforms []byte
	textures []gpucore.TextureData
	outputs  [][]byte
	outSizes []int
}

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
	b, err := p.resolve(count)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	run := func(lo, hi int) {
		inv := &gpucore.Invocation{
			Count:    count,
			Uniforms: b.uniforms,
			Textures: b.textures,
			Inputs:   make([][]byte, len(b.inputs)),
			Outputs:  make([][]byte, len(b.outputs)),
		}
		for i := lo; i < hi; i++ {
			inv.Index = i
			for k, data := range b.inputs {
				sz := b.sizes[k]
				inv.Inputs[k] = data[i*sz : (i+1)*sz : (i+1)*sz]
			}
			for k, data := range b.outputs {
				sz := b.outSizes[k]
				inv.Outputs[k] = data[i*sz : (i+1)*sz : (i+1)*sz]
			}
			p.desc.CPU(inv)
		}
	}

	if d.pool == nil || count < parallelThreshold {
		run(0, count)
	} else {
		d.pool.Range(count, parallelThreshold/4, run)
	}
	return nil
}

// resolve looks up every binding the kernel declares. The caller holds the
// device lock.
func (p *pass) resolve(count int) (*bound, error) {
	d := p.dev
	desc := p.desc
	r, err := p.bind.Resolve(desc)
	if err != nil {
		return nil, err
	}
	b := &bound{}

	for i, in := range desc.Inputs {
		buf, err := d.buffer(r.Inputs[i])
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		sz := in.Format.Size()
		if len(buf.data) < count*sz {
			return nil, fmt.Errorf("%w: input %q holds %d bytes, need %d",
				gpucore.ErrOutOfRange, in.Name, len(buf.data), count*sz)
		}
		b.inputs = append(b.inputs, buf.data)
		b.sizes = append(b.sizes, sz)
	}

	if desc.UniformSize > 0 {
		buf, err := d.buffer(r.Uniforms)
		if err != nil {
			return nil, fmt.Errorf("uniform block %q: %w", desc.UniformBlock, err)
		}
		if len(buf.data) < desc.UniformSize {
			return nil, fmt.Errorf("%w: uniform block %q holds %d bytes, need %d",
				gpucore.ErrOutOfRange, desc.UniformBlock, len(buf.data), desc.UniformSize)
		}
		b.uniforms = buf.data[:desc.UniformSize]
	}

	for slot, name := range desc.Textures {
		t, err := d.texture(r.Textures[slot])
		if err != nil {
			return nil, fmt.Errorf("sampler %q: %w", name, err)
		}
		b.textures = append(b.textures, gpucore.TextureData{
			Width:  t.desc.Width,
			Height: t.desc.Height,
			Format: t.desc.Format,
			Data:   t.layers[0],
		})
	}

	for i, out := range desc.Outputs {
		buf, err := d.buffer(r.Outputs[i])
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		sz := out.Format.Size()
		if len(buf.data) < count*sz {
			return nil, fmt.Errorf("%w: output %q holds %d bytes, need %d",
				gpucore.ErrOutOfRange, out.Name, len(buf.data), count*sz)
		}
		b.outputs = append(b.outputs, buf.data)
		b.outSizes = append(b.outSizes, sz)
	}
	return b, nil
}

func (p *pass) End() error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	p.ended = true
	p.bind.Clear()
	return nil
}
