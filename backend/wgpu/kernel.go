//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/gpucore"
)

type kernel struct {
	desc       *gpucore.KernelDesc
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

func (k *kernel) destroy(dev hal.Device) {
	if k.pipeline != nil {
		dev.DestroyComputePipeline(k.pipeline)
	}
	if k.pipeLayout != nil {
		dev.DestroyPipelineLayout(k.pipeLayout)
	}
	if k.bindLayout != nil {
		dev.DestroyBindGroupLayout(k.bindLayout)
	}
	if k.shader != nil {
		dev.DestroyShaderModule(k.shader)
	}
}

// compileWGSL validates and compiles WGSL to SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// layoutEntries returns the group 0 layout of desc.
func layoutEntries(desc *gpucore.KernelDesc) []gputypes.BindGroupLayoutEntry {
	entry := func(binding uint32, typ gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}

	var entries []gputypes.BindGroupLayoutEntry
	if desc.UniformSize > 0 {
		entries = append(entries, entry(0, gputypes.BufferBindingTypeUniform))
	}
	binding := uint32(1)
	for range desc.Inputs {
		entries = append(entries, entry(binding, gputypes.BufferBindingTypeReadOnlyStorage))
		binding++
	}
	for range desc.Textures {
		entries = append(entries, entry(binding, gputypes.BufferBindingTypeReadOnlyStorage))
		binding++
	}
	for range desc.Outputs {
		entries = append(entries, entry(binding, gputypes.BufferBindingTypeStorage))
		binding++
	}
	return entries
}

// CreateKernel compiles desc.WGSL and builds its compute pipeline.
func (d *Device) CreateKernel(desc *gpucore.KernelDesc) (gpucore.KernelID, error) {
	if desc == nil || desc.Name == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: kernel needs a name", gpucore.ErrInvalidDescriptor)
	}
	if desc.WGSL == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: %q has no WGSL source", gpucore.ErrKernelSource, desc.Name)
	}
	if len(desc.Outputs) == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %q declares no outputs", gpucore.ErrKernelCompile, desc.Name)
	}
	spirv, err := compileWGSL(desc.WGSL)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %q: %w", gpucore.ErrKernelCompile, desc.Name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	k := &kernel{desc: desc}
	if err := d.buildKernel(k, spirv); err != nil {
		k.destroy(d.device)
		return gpucore.InvalidID, fmt.Errorf("%w: %q: %w", gpucore.ErrKernelCompile, desc.Name, err)
	}

	id := gpucore.KernelID(d.newID())
	d.kernels[id] = k
	pixkit.Logger().Debug("wgpu: kernel created", "name", desc.Name, "spirv_words", len(spirv))
	return id, nil
}

func (d *Device) buildKernel(k *kernel, spirv []uint32) error {
	name := k.desc.Name
	var err error

	k.shader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}

	k.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   name + "_bind_layout",
		Entries: layoutEntries(k.desc),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	k.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: name + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	k.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: name + "_pipeline", Layout: k.pipeLayout,
		Compute: hal.ComputeState{Module: k.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	return nil
}

// DestroyKernel releases a kernel.
func (d *Device) DestroyKernel(id gpucore.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k, ok := d.kernels[id]; ok && !d.closed {
		k.destroy(d.device)
		delete(d.kernels, id)
	}
}
