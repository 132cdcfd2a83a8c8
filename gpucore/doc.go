// Package gpucore defines the GPU device contract shared by every pixkit
// component and backend.
//
// The [Device] interface abstracts over the backends that execute kernels:
//   - backend/software (CPU reference device, kernels are Go functions)
//   - backend/wgpu (gogpu/wgpu HAL, kernels are WGSL compute shaders)
//   - backend/webgl (WebGL2, kernels are GLSL vertex shaders with transform feedback)
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID],
// [KernelID]). Devices are responsible for tracking the mapping between IDs
// and actual backend resources. The zero ID is always invalid.
//
// # Kernels
//
// A kernel is a per-element program whose outputs are captured into
// feedback buffers instead of the screen. A [KernelDesc] carries the same
// kernel in every language a backend may need; each backend compiles the
// one it understands and fails with [ErrKernelSource] if it is missing.
//
// Compiled kernels are cached by name in a [KernelRegistry], which is
// created by the hosting application and passed to the components that
// need kernels.
//
// # Feedback Passes
//
// A kernel runs inside a [FeedbackPass]:
//
//	pass, err := dev.BeginFeedbackPass(kernel)
//	if err != nil {
//	    return err
//	}
//	pass.SetInput(0, position)
//	pass.SetUniforms(uniforms)
//	pass.SetFeedbackBuffer(0, positionOut)
//	if err := pass.Draw(count, gpucore.TopologyPoints); err != nil {
//	    pass.End()
//	    return err
//	}
//	if err := pass.End(); err != nil {
//	    return err
//	}
//	dev.CopyBuffer(positionOut, position, size)
//
// Feedback buffers must not alias any input buffer of the same pass.
// Devices reject aliasing with [ErrAliasedFeedback].
package gpucore
