// Package particle simulates a fixed population of particles on a
// gpucore.Device.
//
// # Overview
//
// The population lives in three device buffers (position, velocity,
// color). Every [Simulator.Step] runs the simulation kernel once per
// particle with transform feedback: the next position and velocity are
// captured into two feedback buffers and then copied back over the current
// state. Particles never read each other's updated values within a step.
//
// # Quick Start
//
//	dev := software.New()
//	kernels := gpucore.NewKernelRegistry(dev)
//	if _, err := kernels.Register(particle.DefaultKernel()); err != nil {
//		log.Fatal(err)
//	}
//
//	sim, err := particle.NewSimulator(dev, kernels, particle.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sim.Destroy()
//
//	field, _ := forcefield.New(forcefield.DefaultConfig())
//	tex, _ := field.Upload(dev)
//	for range 60 {
//		if err := sim.Step(tex); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Kernel Interface
//
// Inputs a_position (vec2), a_velocity (vec2) and a_color (rgba8) at slots
// 0 to 2; outputs v_position and v_velocity at feedback indices 0 and 1;
// sampler u_force (RG32Float, nearest); uniform block Simulation holding
// projection, bounds and force field size. [DefaultKernel] implements it
// in GLSL, WGSL and Go.
//
// # Failure
//
// A failed step disables the simulator: the error is returned and every
// later Step returns it again. Frames are never skipped silently.
package particle
