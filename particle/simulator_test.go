package particle_test

import (
	"errors"
	"slices"
	"strconv"
	"testing"

	"github.com/gogpu/pixkit/backend/software"
	"github.com/gogpu/pixkit/gpucore"
	"github.com/gogpu/pixkit/internal/gputest"
	"github.com/gogpu/pixkit/particle"
)

// zeroField is a force source with no force anywhere.
type zeroField struct {
	tex  gpucore.TextureID
	w, h int
}

func (f *zeroField) Texture() gpucore.TextureID { return f.tex }
func (f *zeroField) Size() (int, int)           { return f.w, f.h }

func newZeroField(t *testing.T, dev gpucore.Device) *zeroField {
	t.Helper()
	tex, err := dev.CreateTexture(&gpucore.TextureDesc{Label: "field", Width: 8, Height: 8, Format: gpucore.TextureFormatRG32Float})
	if err != nil {
		t.Fatalf("CreateTexture error = %v", err)
	}
	return &zeroField{tex: tex, w: 8, h: 8}
}

func setup(t *testing.T, kernels ...*gpucore.KernelDesc) (*gputest.Recorder, *gpucore.KernelRegistry) {
	t.Helper()
	dev := software.New(software.WithWorkers(1))
	t.Cleanup(dev.Close)
	rec := gputest.NewRecorder(dev)
	reg := gpucore.NewKernelRegistry(rec)
	if len(kernels) == 0 {
		kernels = append(kernels, particle.DefaultKernel())
	}
	for _, k := range kernels {
		if _, err := reg.Register(k); err != nil {
			t.Fatalf("Register(%s) error = %v", k.Name, err)
		}
	}
	return rec, reg
}

func testConfig(count int) particle.Config {
	cfg := particle.DefaultConfig()
	cfg.Count = count
	cfg.Seed = 1
	return cfg
}

func TestSimulatorCountInvariant(t *testing.T) {
	rec, reg := setup(t)
	sim, err := particle.NewSimulator(rec, reg, testConfig(500))
	if err != nil {
		t.Fatalf("NewSimulator error = %v", err)
	}
	defer sim.Destroy()
	field := newZeroField(t, rec)

	for i := range 25 {
		if err := sim.Step(field); err != nil {
			t.Fatalf("Step %d error = %v", i, err)
		}
		if sim.Count() != 500 {
			t.Fatalf("Count() = %d after step %d, want 500", sim.Count(), i)
		}
	}
	snap, err := sim.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot error = %v", err)
	}
	if snap.Count != 500 || len(snap.Position) != 500 || len(snap.Velocity) != 500 || len(snap.Color) != 500 {
		t.Errorf("snapshot lengths = %d/%d/%d/%d, want 500",
			snap.Count, len(snap.Position), len(snap.Velocity), len(snap.Color))
	}
	if sim.Steps() != 25 {
		t.Errorf("Steps() = %d, want 25", sim.Steps())
	}
	b := testConfig(1).Bounds
	for i, p := range snap.Position {
		if !b.Contains(p.X, p.Y) {
			t.Fatalf("particle %d escaped bounds: %+v", i, p)
		}
	}
}

func TestSimulatorStepMovesByVelocity(t *testing.T) {
	rec, reg := setup(t)
	sim, err := particle.NewSimulator(rec, reg, testConfig(100))
	if err != nil {
		t.Fatalf("NewSimulator error = %v", err)
	}
	defer sim.Destroy()

	before, _ := sim.Snapshot()
	if err := sim.Step(newZeroField(t, rec)); err != nil {
		t.Fatalf("Step error = %v", err)
	}
	after, _ := sim.Snapshot()

	b := testConfig(1).Bounds
	for i := range before.Count {
		p, v := before.Position[i], before.Velocity[i]
		nx, ny := p.X+v.X, p.Y+v.Y
		if !b.Contains(nx, ny) {
			continue // bounced
		}
		if after.Position[i].X != nx || after.Position[i].Y != ny {
			t.Fatalf("particle %d moved to %+v, want (%v, %v)", i, after.Position[i], nx, ny)
		}
		if after.Velocity[i] != v {
			t.Fatalf("particle %d velocity changed in a zero field: %+v -> %+v", i, v, after.Velocity[i])
		}
	}
}

// incrementKernel writes input+1 to both outputs. Reading another
// particle's updated state would show up as +2.
func incrementKernel() *gpucore.KernelDesc {
	k := particle.DefaultKernel()
	k.Name = "test.increment"
	k.CPU = func(inv *gpucore.Invocation) {
		px, py := gpucore.Vec2(inv.Inputs[0])
		vx, vy := gpucore.Vec2(inv.Inputs[1])
		gpucore.PutVec2(inv.Outputs[0], px+1, py+1)
		gpucore.PutVec2(inv.Outputs[1], vx+1, vy+1)
	}
	return k
}

func TestSimulatorDoubleBufferIsolation(t *testing.T) {
	rec, reg := setup(t, incrementKernel())
	cfg := testConfig(5000)
	cfg.Kernel = "test.increment"
	sim, err := particle.NewSimulator(rec, reg, cfg)
	if err != nil {
		t.Fatalf("NewSimulator error = %v", err)
	}
	defer sim.Destroy()
	field := newZeroField(t, rec)

	before, _ := sim.Snapshot()
	if err := sim.Step(field); err != nil {
		t.Fatalf("Step error = %v", err)
	}
	after, _ := sim.Snapshot()
	for i := range before.Count {
		if after.Position[i].X != before.Position[i].X+1 || after.Velocity[i].Y != before.Velocity[i].Y+1 {
			t.Fatalf("particle %d: %+v -> %+v, want exactly +1", i, before.Position[i], after.Position[i])
		}
	}

	// The second step reads what the first one copied back.
	if err := sim.Step(field); err != nil {
		t.Fatalf("second Step error = %v", err)
	}
	twice, _ := sim.Snapshot()
	for i := range after.Count {
		if twice.Position[i].X != after.Position[i].X+1 || twice.Velocity[i].Y != after.Velocity[i].Y+1 {
			t.Fatalf("particle %d after two steps: %+v, want +2 from %+v", i, twice.Position[i], before.Position[i])
		}
	}
	after = twice

	// Kernel outputs never land in the input buffers until copy-back.
	rec.Fail("CopyBuffer", errors.New("copy lost"))
	if err := sim.Step(field); err == nil {
		t.Fatal("Step with failing copy succeeded")
	}
	held, _ := sim.Snapshot()
	for i := range after.Count {
		if held.Position[i] != after.Position[i] {
			t.Fatalf("particle %d position changed without copy-back: %+v -> %+v", i, after.Position[i], held.Position[i])
		}
	}
}

func TestSimulatorCallOrder(t *testing.T) {
	rec, reg := setup(t)
	sim, err := particle.NewSimulator(rec, reg, testConfig(10))
	if err != nil {
		t.Fatalf("NewSimulator error = %v", err)
	}
	defer sim.Destroy()
	field := newZeroField(t, rec)
	bufs := sim.Buffers()

	rec.Reset()
	if err := sim.Step(field); err != nil {
		t.Fatalf("Step error = %v", err)
	}

	id := func(b gpucore.BufferID) string { return strconv.FormatUint(uint64(b), 10) }
	want := []string{
		"WriteBuffer(" + id(bufs.Uniforms) + ")",
		"BeginFeedbackPass",
		"SetInput(0," + id(bufs.Position) + ")",
		"SetInput(1," + id(bufs.Velocity) + ")",
		"SetInput(2," + id(bufs.Color) + ")",
		"SetUniforms(" + id(bufs.Uniforms) + ")",
		"SetTexture(0," + strconv.FormatUint(uint64(field.tex), 10) + ")",
		"SetFeedbackBuffer(0," + id(bufs.PositionOut) + ")",
		"SetFeedbackBuffer(1," + id(bufs.VelocityOut) + ")",
		"Draw(10)",
		"End",
		"CopyBuffer(" + id(bufs.PositionOut) + "->" + id(bufs.Position) + ")",
		"CopyBuffer(" + id(bufs.VelocityOut) + "->" + id(bufs.Velocity) + ")",
	}
	if got := rec.Calls(); !slices.Equal(got, want) {
		t.Errorf("calls =\n%v\nwant\n%v", got, want)
	}
}

func TestSimulatorStepFailureIsSticky(t *testing.T) {
	rec, reg := setup(t)
	sim, err := particle.NewSimulator(rec, reg, testConfig(10))
	if err != nil {
		t.Fatalf("NewSimulator error = %v", err)
	}
	defer sim.Destroy()
	field := newZeroField(t, rec)

	boom := errors.New("device lost")
	rec.Fail("Draw", boom)
	err = sim.Step(field)
	if !errors.Is(err, particle.ErrKernelUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("Step error = %v, want ErrKernelUnavailable wrapping cause", err)
	}

	rec.Fail("Draw", nil)
	rec.Reset()
	if err2 := sim.Step(field); err2 != err {
		t.Errorf("second Step error = %v, want the same error %v", err2, err)
	}
	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("broken simulator touched the device: %v", calls)
	}
	if sim.Err() != err {
		t.Errorf("Err() = %v, want %v", sim.Err(), err)
	}
}

func TestNewSimulatorErrors(t *testing.T) {
	rec, reg := setup(t)

	noSampler := particle.DefaultKernel()
	noSampler.Name = "test.nosampler"
	noSampler.Textures = nil
	if _, err := reg.Register(noSampler); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	swapped := particle.DefaultKernel()
	swapped.Name = "test.swapped"
	swapped.Outputs[0], swapped.Outputs[1] = swapped.Outputs[1], swapped.Outputs[0]
	if _, err := reg.Register(swapped); err != nil {
		t.Fatalf("Register error = %v", err)
	}

	tests := []struct {
		name   string
		kernel string
		count  int
		want   error
	}{
		{"missing kernel", "nope", 10, particle.ErrKernelUnavailable},
		{"no sampler", "test.nosampler", 10, particle.ErrKernelUnavailable},
		{"swapped outputs", "test.swapped", 10, particle.ErrKernelUnavailable},
		{"zero count", particle.KernelName, 0, particle.ErrInvalidCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(tt.count)
			cfg.Kernel = tt.kernel
			if _, err := particle.NewSimulator(rec, reg, cfg); !errors.Is(err, tt.want) {
				t.Errorf("NewSimulator error = %v, want %v", err, tt.want)
			}
		})
	}

	// A kernel that failed to compile is never registered.
	bad := &gpucore.KernelDesc{Name: "test.glslonly", GLSL: "void main() {}"}
	if _, err := reg.Register(bad); !errors.Is(err, gpucore.ErrKernelSource) {
		t.Fatalf("Register(glsl only) error = %v, want ErrKernelSource", err)
	}
	cfg := testConfig(10)
	cfg.Kernel = "test.glslonly"
	if _, err := particle.NewSimulator(rec, reg, cfg); !errors.Is(err, particle.ErrKernelUnavailable) {
		t.Errorf("NewSimulator(uncompiled) error = %v, want ErrKernelUnavailable", err)
	}
}

func TestNewSimulatorForeignRegistry(t *testing.T) {
	_, reg := setup(t)
	other := software.New(software.WithWorkers(1))
	t.Cleanup(other.Close)
	rec := gputest.NewRecorder(other)

	_, err := particle.NewSimulator(rec, reg, testConfig(10))
	if !errors.Is(err, particle.ErrKernelUnavailable) {
		t.Fatalf("NewSimulator(foreign registry) error = %v, want ErrKernelUnavailable", err)
	}
	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("device calls = %v, want none", calls)
	}
}

func TestSimulatorNilFieldAndDestroy(t *testing.T) {
	rec, reg := setup(t)
	sim, err := particle.NewSimulator(rec, reg, testConfig(10))
	if err != nil {
		t.Fatalf("NewSimulator error = %v", err)
	}

	if err := sim.Step(nil); !errors.Is(err, particle.ErrNoForceField) {
		t.Errorf("Step(nil) error = %v, want ErrNoForceField", err)
	}
	if sim.Err() != nil {
		t.Errorf("Step(nil) broke the simulator: %v", sim.Err())
	}

	bufs := sim.Buffers()
	sim.Destroy()
	sim.Destroy()
	if err := sim.Step(newZeroField(t, rec)); !errors.Is(err, particle.ErrDestroyed) {
		t.Errorf("Step after Destroy error = %v, want ErrDestroyed", err)
	}
	if _, err := sim.Snapshot(); !errors.Is(err, particle.ErrDestroyed) {
		t.Errorf("Snapshot after Destroy error = %v, want ErrDestroyed", err)
	}
	if _, err := rec.ReadBuffer(bufs.Position, 0, 8); !errors.Is(err, gpucore.ErrUnknownBuffer) {
		t.Errorf("position buffer survived Destroy: %v", err)
	}
}
