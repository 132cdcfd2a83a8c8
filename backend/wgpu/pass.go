//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

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

// Draw dispatches ceil(count/WorkgroupSize) workgroups and waits for them.
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

	entries, err := p.entries(count)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	k := p.kernel
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: k.desc.Name + "_bind", Layout: k.bindLayout, Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	groups := uint32((count + WorkgroupSize - 1) / WorkgroupSize) //nolint:gosec // count checked non-negative
	return d.submit(k.desc.Name, func(enc hal.CommandEncoder) {
		cp := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: k.desc.Name})
		cp.SetPipeline(k.pipeline)
		cp.SetBindGroup(0, bg, nil)
		cp.Dispatch(groups, 1, 1)
		cp.End()
	})
}

// entries resolves the bindings into bind group entries. The caller holds
// the device lock.
func (p *pass) entries(count int) ([]gputypes.BindGroupEntry, error) {
	d := p.dev
	desc := p.kernel.desc
	r, err := p.bind.Resolve(desc)
	if err != nil {
		return nil, err
	}

	var entries []gputypes.BindGroupEntry
	add := func(binding uint32, hb hal.Buffer, size uint64) {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  binding,
			Resource: gputypes.BufferBinding{Buffer: hb.NativeHandle(), Offset: 0, Size: size},
		})
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
		add(0, b.buf, align4(uint64(desc.UniformSize)))
	}

	binding := uint32(1)
	for i, in := range desc.Inputs {
		b, err := d.buffer(r.Inputs[i])
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		need := uint64(count * in.Format.Size())
		if b.desc.Size < need {
			return nil, fmt.Errorf("%w: input %q holds %d bytes, need %d",
				gpucore.ErrOutOfRange, in.Name, b.desc.Size, need)
		}
		add(binding, b.buf, b.size)
		binding++
	}

	for slot, name := range desc.Textures {
		t, err := d.texture(r.Textures[slot])
		if err != nil {
			return nil, fmt.Errorf("sampler %q: %w", name, err)
		}
		add(binding, t.buf, t.size)
		binding++
	}

	for i, out := range desc.Outputs {
		b, err := d.buffer(r.Outputs[i])
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		need := uint64(count * out.Format.Size())
		if b.desc.Size < need {
			return nil, fmt.Errorf("%w: output %q holds %d bytes, need %d",
				gpucore.ErrOutOfRange, out.Name, b.desc.Size, need)
		}
		add(binding, b.buf, b.size)
		binding++
	}
	return entries, nil
}

func (p *pass) End() error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	p.ended = true
	p.bind.Clear()
	return nil
}
