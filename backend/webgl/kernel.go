//go:build js && wasm

package webgl

import (
	"fmt"
	"syscall/js"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/gpucore"
)

// compileShader compiles one stage, returning the info log on failure.
func (d *Device) compileShader(stage int, source string) (js.Value, error) {
	shader := d.gl.Call("createShader", stage)
	d.gl.Call("shaderSource", shader, source)
	d.gl.Call("compileShader", shader)
	if !d.gl.Call("getShaderParameter", shader, d.consts.compileStatus).Bool() {
		log := d.gl.Call("getShaderInfoLog", shader).String()
		d.gl.Call("deleteShader", shader)
		return js.Undefined(), fmt.Errorf("compile error: %s", log)
	}
	return shader, nil
}

// CreateKernel compiles desc.GLSL, declares its outputs as separate
// transform feedback varyings and links it with a no-op fragment stage.
func (d *Device) CreateKernel(desc *gpucore.KernelDesc) (gpucore.KernelID, error) {
	if desc == nil || desc.Name == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: kernel needs a name", gpucore.ErrInvalidDescriptor)
	}
	if desc.GLSL == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: %q has no GLSL source", gpucore.ErrKernelSource, desc.Name)
	}
	if len(desc.Outputs) == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %q declares no outputs", gpucore.ErrKernelCompile, desc.Name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	program, err := d.linkProgram(desc)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %q: %w", gpucore.ErrKernelCompile, desc.Name, err)
	}

	if desc.UniformSize > 0 {
		idx := d.gl.Call("getUniformBlockIndex", program, desc.UniformBlock).Int()
		if idx == d.consts.invalidIndex {
			d.gl.Call("deleteProgram", program)
			return gpucore.InvalidID, fmt.Errorf("%w: %q has no uniform block %q",
				gpucore.ErrKernelCompile, desc.Name, desc.UniformBlock)
		}
		d.gl.Call("uniformBlockBinding", program, idx, 0)
	}
	d.gl.Call("useProgram", program)
	for slot, name := range desc.Textures {
		loc := d.gl.Call("getUniformLocation", program, name)
		if loc.IsNull() {
			pixkit.Logger().Warn("webgl: sampler not active", "kernel", desc.Name, "sampler", name)
			continue
		}
		d.gl.Call("uniform1i", loc, slot)
	}
	d.gl.Call("useProgram", js.Null())

	k := &kernel{
		desc:     desc,
		program:  program,
		vao:      d.gl.Call("createVertexArray"),
		feedback: d.gl.Call("createTransformFeedback"),
	}
	id := gpucore.KernelID(d.newID())
	d.kernels[id] = k
	pixkit.Logger().Debug("webgl: kernel created", "name", desc.Name)
	return id, nil
}

func (d *Device) linkProgram(desc *gpucore.KernelDesc) (js.Value, error) {
	vs, err := d.compileShader(d.consts.vertexShader, desc.GLSL)
	if err != nil {
		return js.Undefined(), err
	}
	defer d.gl.Call("deleteShader", vs)
	fs, err := d.compileShader(d.consts.fragmentShader, fragmentSource)
	if err != nil {
		return js.Undefined(), err
	}
	defer d.gl.Call("deleteShader", fs)

	program := d.gl.Call("createProgram")
	d.gl.Call("attachShader", program, vs)
	d.gl.Call("attachShader", program, fs)
	for _, in := range desc.Inputs {
		d.gl.Call("bindAttribLocation", program, in.Slot, in.Name)
	}
	varyings := make([]any, len(desc.Outputs))
	for i, out := range desc.Outputs {
		varyings[i] = out.Name
	}
	d.gl.Call("transformFeedbackVaryings", program, js.ValueOf(varyings), d.consts.separateAttribs)
	d.gl.Call("linkProgram", program)

	if !d.gl.Call("getProgramParameter", program, d.consts.linkStatus).Bool() {
		log := d.gl.Call("getProgramInfoLog", program).String()
		d.gl.Call("deleteProgram", program)
		return js.Undefined(), fmt.Errorf("link error: %s", log)
	}
	return program, nil
}

func (d *Device) deleteKernel(k *kernel) {
	d.gl.Call("deleteTransformFeedback", k.feedback)
	d.gl.Call("deleteVertexArray", k.vao)
	d.gl.Call("deleteProgram", k.program)
}

// DestroyKernel deletes a kernel's program and objects.
func (d *Device) DestroyKernel(id gpucore.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k, ok := d.kernels[id]; ok && !d.closed {
		d.deleteKernel(k)
		delete(d.kernels, id)
	}
}

// BeginFeedbackPass starts recording a draw of kernel.
func (d *Device) BeginFeedbackPass(id gpucore.KernelID) (gpucore.FeedbackPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	k, ok := d.kernels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownKernel, id)
	}
	return &pass{dev: d, kernel: k, bind: gpucore.NewBindings()}, nil
}
