package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/gogpu/pixkit/backend"
	"github.com/gogpu/pixkit/forcefield"
	"github.com/gogpu/pixkit/gpucore"
	"github.com/gogpu/pixkit/particle"
)

// particleRow is one line of the simulation dump.
type particleRow struct {
	Index int     `csv:"index"`
	X     float32 `csv:"x"`
	Y     float32 `csv:"y"`
	VX    float32 `csv:"vx"`
	VY    float32 `csv:"vy"`
	R     uint8   `csv:"r"`
	G     uint8   `csv:"g"`
	B     uint8   `csv:"b"`
	A     uint8   `csv:"a"`
}

func rows(b *particle.Buffer) []particleRow {
	out := make([]particleRow, b.Count)
	for i := range out {
		c := b.Color[i]
		out[i] = particleRow{
			Index: i,
			X:     b.Position[i].X, Y: b.Position[i].Y,
			VX: b.Velocity[i].X, VY: b.Velocity[i].Y,
			R: c.R, G: c.G, B: c.B, A: c.A,
		}
	}
	return out
}

// simulate steps a particle system through a force field with a diagonal
// barrier and writes the final state as CSV.
func simulate(e *env, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		steps = fs.Int("steps", 60, "number of simulation steps")
		out   = fs.String("out", "", "CSV output file (default: stdout)")
		walls = fs.Bool("walls", true, "draw a border and a diagonal barrier into the field")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 0 {
		return fmt.Errorf("simulate: negative step count %d", *steps)
	}

	dev, err := e.openDevice()
	if err != nil {
		return err
	}
	defer backend.Close(dev)

	field, err := forcefield.New(e.cfg.ForceField)
	if err != nil {
		return err
	}
	if *walls {
		w, h := field.Width, field.Height
		field.Rect(0, 0, w-1, h-1)
		field.Line(0, 0, w-1, h-1)
	}
	tex, err := field.Upload(dev)
	if err != nil {
		return err
	}
	defer tex.Destroy()

	kernels := gpucore.NewKernelRegistry(dev)
	defer kernels.Close()
	if _, err := kernels.Register(particle.DefaultKernel()); err != nil {
		return err
	}

	sim, err := particle.NewSimulator(dev, kernels, e.cfg.Particles)
	if err != nil {
		return err
	}
	defer sim.Destroy()
	sim.SetProjection(particle.Ortho(e.cfg.Particles.Bounds))

	for range *steps {
		if err := sim.Step(tex); err != nil {
			return fmt.Errorf("simulate: step %d: %w", sim.Steps(), err)
		}
	}
	snap, err := sim.Snapshot()
	if err != nil {
		return err
	}

	data := rows(snap)
	writeCSV := func(w io.Writer) error {
		return gocsv.Marshal(&data, w)
	}
	if *out == "" {
		if err := writeCSV(e.stdout); err != nil {
			return fmt.Errorf("simulate: write csv: %w", err)
		}
		return nil
	}
	if err := writeFile(*out, writeCSV); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	fmt.Fprintf(e.stdout, "%d particles after %d steps written to %s\n", sim.Count(), sim.Steps(), *out)
	return nil
}
