// Package pixkit is the core of a small 2D rendering toolkit: a GPU particle
// simulator, a layered texture atlas with a shelf packer, and a force-field
// builder that feeds the particle kernel.
//
// # Overview
//
// The GPU is an injected collaborator. Every component talks to a
// [gpucore.Device], which has three implementations:
//
//   - backend/software: a CPU device running kernels written in Go (tests, headless tools)
//   - backend/wgpu: gogpu/wgpu HAL, kernels are WGSL compute shaders
//   - backend/webgl: WebGL2 through syscall/js, kernels are GLSL vertex
//     shaders captured with transform feedback
//
// # Quick Start
//
//	dev := software.New()
//	kernels := gpucore.NewKernelRegistry(dev)
//	defer kernels.Close()
//	if _, err := kernels.Register(particle.DefaultKernel()); err != nil {
//	    return err
//	}
//
//	field, _ := forcefield.New(forcefield.DefaultConfig())
//	field.Rect(160, 60, 60, 60)
//	tex, _ := field.Upload(dev)
//
//	sim, err := particle.NewSimulator(dev, kernels, particle.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer sim.Destroy()
//	for frame := 0; frame < 60; frame++ {
//	    if err := sim.Step(tex); err != nil {
//	        return err
//	    }
//	}
//
// # Architecture
//
// The library is organized into:
//   - Core: gpucore (device contract, kernel registry)
//   - Components: particle, atlas, forcefield
//   - Devices: backend/software, backend/wgpu, backend/webgl
//   - Glue: config (YAML), cmd/pixkit (CLI)
//
// # Coordinate System
//
// Images and atlas regions use top-left origin, X right, Y down. Texture
// uploads flip rows so GPU sampling (bottom-left origin) sees the image
// upright.
//
// # Concurrency
//
// Components are not safe for concurrent use. Correctness of the particle
// step depends on strict ordering (bind, dispatch, copy-back), not locks.
package pixkit

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
