// Package wgpu provides a gpucore.Device on gogpu/wgpu compute shaders.
//
// Feedback passes are compute dispatches: every kernel input, texture and
// output is a storage buffer and the uniform block is a uniform buffer.
// Kernels carry WGSL with entry point "main" and a workgroup size of
// [WorkgroupSize]. Bindings in group 0 are numbered in this order:
//
//	0                     uniform block
//	1 ..                  inputs, in KernelDesc.Inputs order
//	then                  textures, in slot order
//	then                  outputs, in feedback index order
//
// Textures are stored as tightly packed storage buffers, one layer after
// another, so a kernel reads texel (x, y) of layer 0 at index y*width+x.
//
// WGSL is compiled to SPIR-V with naga before the shader module is created,
// so malformed kernels fail in CreateKernel with gpucore.ErrKernelCompile.
//
// The package registers itself as "wgpu" with the backend registry:
//
//	import _ "github.com/gogpu/pixkit/backend/wgpu"
//
// Build with the nogpu tag to exclude it.
package wgpu
