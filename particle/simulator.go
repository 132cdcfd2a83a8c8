package particle

import (
	"fmt"
	"image/color"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/gpucore"
)

// ForceSource is a force field bound to the kernel's force sampler.
type ForceSource interface {
	// Texture returns the RG32Float texture holding the field.
	Texture() gpucore.TextureID
	// Size returns the field dimensions in cells.
	Size() (w, h int)
}

// Buffers are the device buffers owned by a Simulator. Renderers may bind
// Position, Velocity and Color as vertex inputs between steps.
type Buffers struct {
	Position    gpucore.BufferID
	Velocity    gpucore.BufferID
	Color       gpucore.BufferID
	PositionOut gpucore.BufferID
	VelocityOut gpucore.BufferID
	Uniforms    gpucore.BufferID
}

// Simulator advances a fixed particle population with a feedback kernel.
//
// Each Step runs the kernel once per particle, captures the next position
// and velocity into separate feedback buffers and copies them back over the
// current state. Every particle reads pre-step state.
//
// Simulator is not safe for concurrent use.
type Simulator struct {
	dev    gpucore.Device
	kernel gpucore.KernelID
	cfg    Config
	colors []color.RGBA
	bufs   Buffers
	proj   [16]float32
	steps  uint64

	err       error
	destroyed bool
}

// NewSimulator validates cfg, resolves cfg.Kernel from kernels, initializes
// the population and uploads it to dev.
//
// A kernel that is missing, failed to compile or does not match the
// particle interface returns an error wrapping ErrKernelUnavailable. So does
// a registry created for a device other than dev, since kernel IDs are only
// meaningful on the device that issued them.
func NewSimulator(dev gpucore.Device, kernels *gpucore.KernelRegistry, cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if kernels.Device() != dev {
		return nil, fmt.Errorf("%w: kernel registry belongs to device %s, not %s",
			ErrKernelUnavailable, kernels.Device().Name(), dev.Name())
	}

	kernel, desc, err := kernels.Kernel(cfg.Kernel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKernelUnavailable, err)
	}
	if err := checkInterface(desc); err != nil {
		return nil, err
	}

	pop, err := Initialize(cfg)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		dev:    dev,
		kernel: kernel,
		cfg:    cfg,
		colors: pop.Color,
		proj:   Ortho(cfg.Bounds),
	}
	if err := s.allocate(pop); err != nil {
		s.Destroy()
		return nil, err
	}

	pixkit.Logger().Info("particle: simulator created",
		"count", cfg.Count, "kernel", cfg.Kernel, "device", dev.Name())
	return s, nil
}

// checkInterface verifies that desc captures position then velocity and
// samples a force field.
func checkInterface(desc *gpucore.KernelDesc) error {
	if desc.Output(OutputPosition) != 0 || desc.Output(OutputVelocity) != 1 {
		return fmt.Errorf("%w: %q must capture %s and %s at feedback 0 and 1",
			ErrKernelUnavailable, desc.Name, OutputPosition, OutputVelocity)
	}
	if len(desc.Textures) < 1 {
		return fmt.Errorf("%w: %q declares no force sampler", ErrKernelUnavailable, desc.Name)
	}
	if desc.UniformSize != 0 && desc.UniformSize < UniformSize {
		return fmt.Errorf("%w: %q uniform block is %d bytes, need %d",
			ErrKernelUnavailable, desc.Name, desc.UniformSize, UniformSize)
	}
	return nil
}

func (s *Simulator) allocate(pop *Buffer) error {
	n := uint64(s.cfg.Count)
	vecSize := n * 8
	state := gpucore.BufferUsageVertex | gpucore.BufferUsageCopyDst | gpucore.BufferUsageCopySrc
	feedback := gpucore.BufferUsageFeedback | gpucore.BufferUsageCopySrc

	allocs := []struct {
		id    *gpucore.BufferID
		label string
		size  uint64
		usage gpucore.BufferUsage
		data  []byte
	}{
		{&s.bufs.Position, "particle.position", vecSize, state, encodeVec2(pop.Position)},
		{&s.bufs.Velocity, "particle.velocity", vecSize, state, encodeVec2(pop.Velocity)},
		{&s.bufs.Color, "particle.color", n * 4, gpucore.BufferUsageVertex | gpucore.BufferUsageCopyDst, encodeColors(pop.Color)},
		{&s.bufs.PositionOut, "particle.position_out", vecSize, feedback, nil},
		{&s.bufs.VelocityOut, "particle.velocity_out", vecSize, feedback, nil},
		{&s.bufs.Uniforms, "particle.uniforms", UniformSize, gpucore.BufferUsageUniform | gpucore.BufferUsageCopyDst, nil},
	}

	for _, a := range allocs {
		id, err := s.dev.CreateBuffer(&gpucore.BufferDesc{Label: a.label, Size: a.size, Usage: a.usage})
		if err != nil {
			return fmt.Errorf("particle: create %s: %w", a.label, err)
		}
		*a.id = id
		if a.data != nil {
			if err := s.dev.WriteBuffer(id, 0, a.data); err != nil {
				return fmt.Errorf("particle: upload %s: %w", a.label, err)
			}
		}
		pixkit.Logger().Debug("particle: buffer allocated", "label", a.label, "bytes", a.size)
	}
	return nil
}

// Count returns the fixed particle count.
func (s *Simulator) Count() int {
	return s.cfg.Count
}

// Steps returns the number of successful steps.
func (s *Simulator) Steps() uint64 {
	return s.steps
}

// Buffers returns the device buffers owned by the simulator.
func (s *Simulator) Buffers() Buffers {
	return s.bufs
}

// Err returns the error that broke the simulator, or nil.
func (s *Simulator) Err() error {
	return s.err
}

// SetProjection sets the column-major matrix the kernel applies to
// positions for rendering. It defaults to Ortho(cfg.Bounds).
func (s *Simulator) SetProjection(m [16]float32) {
	s.proj = m
}

// Step advances every particle once against field.
//
// The order is fixed: write uniforms, bind inputs and sampler, bind
// feedback outputs, dispatch, end the pass, copy outputs over the inputs.
// Any failure is returned wrapped in ErrKernelUnavailable and every later
// Step returns the same error.
func (s *Simulator) Step(field ForceSource) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if s.err != nil {
		return s.err
	}
	if field == nil {
		return ErrNoForceField
	}

	if err := s.step(field); err != nil {
		s.err = fmt.Errorf("%w: %w", ErrKernelUnavailable, err)
		pixkit.Logger().Error("particle: step failed, simulator disabled", "step", s.steps, "err", err)
		return s.err
	}
	s.steps++
	return nil
}

func (s *Simulator) step(field ForceSource) error {
	fw, fh := field.Size()
	u := uniforms{
		projection: s.proj,
		bounds:     s.cfg.Bounds,
		forceW:     float32(fw),
		forceH:     float32(fh),
		count:      uint32(s.cfg.Count),
	}
	if err := s.dev.WriteBuffer(s.bufs.Uniforms, 0, u.encode()); err != nil {
		return fmt.Errorf("write uniforms: %w", err)
	}

	pass, err := s.dev.BeginFeedbackPass(s.kernel)
	if err != nil {
		return err
	}
	pass.SetInput(0, s.bufs.Position)
	pass.SetInput(1, s.bufs.Velocity)
	pass.SetInput(2, s.bufs.Color)
	pass.SetUniforms(s.bufs.Uniforms)
	pass.SetTexture(0, field.Texture())
	pass.SetFeedbackBuffer(0, s.bufs.PositionOut)
	pass.SetFeedbackBuffer(1, s.bufs.VelocityOut)

	if err := pass.Draw(s.cfg.Count, gpucore.TopologyPoints); err != nil {
		_ = pass.End()
		return fmt.Errorf("dispatch: %w", err)
	}
	if err := pass.End(); err != nil {
		return fmt.Errorf("end pass: %w", err)
	}

	size := uint64(s.cfg.Count) * 8
	if err := s.dev.CopyBuffer(s.bufs.PositionOut, s.bufs.Position, size); err != nil {
		return fmt.Errorf("copy position: %w", err)
	}
	if err := s.dev.CopyBuffer(s.bufs.VelocityOut, s.bufs.Velocity, size); err != nil {
		return fmt.Errorf("copy velocity: %w", err)
	}
	return nil
}

// Snapshot reads the current population back from the device.
func (s *Simulator) Snapshot() (*Buffer, error) {
	if s.destroyed {
		return nil, ErrDestroyed
	}
	size := uint64(s.cfg.Count) * 8
	pos, err := s.dev.ReadBuffer(s.bufs.Position, 0, size)
	if err != nil {
		return nil, fmt.Errorf("particle: read position: %w", err)
	}
	vel, err := s.dev.ReadBuffer(s.bufs.Velocity, 0, size)
	if err != nil {
		return nil, fmt.Errorf("particle: read velocity: %w", err)
	}

	b := NewBuffer(s.cfg.Count)
	decodeVec2(pos, b.Position)
	decodeVec2(vel, b.Velocity)
	copy(b.Color, s.colors)
	return b, nil
}

// Destroy releases the device buffers. The kernel belongs to the registry
// and is not destroyed. Destroy is idempotent.
func (s *Simulator) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, id := range []gpucore.BufferID{
		s.bufs.Position, s.bufs.Velocity, s.bufs.Color,
		s.bufs.PositionOut, s.bufs.VelocityOut, s.bufs.Uniforms,
	} {
		if id != gpucore.InvalidID {
			s.dev.DestroyBuffer(id)
		}
	}
	s.bufs = Buffers{}
}
