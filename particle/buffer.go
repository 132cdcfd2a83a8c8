package particle

import (
	"image/color"
	"math"
	"math/rand/v2"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gogpu/pixkit/gpucore"
)

// Vec2 is a float32 2D vector, the element layout of position and
// velocity buffers.
type Vec2 struct {
	X, Y float32
}

// Buffer is the CPU-side particle population. All slices have length Count.
type Buffer struct {
	Count    int
	Position []Vec2
	Velocity []Vec2
	Color    []color.RGBA
}

// NewBuffer returns a zeroed buffer of n particles.
func NewBuffer(n int) *Buffer {
	return &Buffer{
		Count:    n,
		Position: make([]Vec2, n),
		Velocity: make([]Vec2, n),
		Color:    make([]color.RGBA, n),
	}
}

// newRand returns the generator used for seed. Zero seeds from the clock.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Initialize builds a population from cfg.
//
// Positions are uniform in cfg.Bounds. Velocities point at an angle drawn
// from [0, π) with a speed drawn from [0, MaxSpeed), plus VelocityBias on
// both axes. Colors are HSL with a random hue, saturation and lightness in
// [0.5, 1) and alpha in [0.2, 1).
func Initialize(cfg Config) (*Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := newRand(cfg.Seed)
	unit := distuv.Uniform{Min: 0, Max: 1, Src: rng}
	angle := distuv.Uniform{Min: 0, Max: math.Pi, Src: rng}
	px := distuv.Uniform{Min: float64(cfg.Bounds.X0), Max: float64(cfg.Bounds.X1), Src: rng}
	py := distuv.Uniform{Min: float64(cfg.Bounds.Y0), Max: float64(cfg.Bounds.Y1), Src: rng}
	bias := r2.Vec{X: float64(cfg.VelocityBias), Y: float64(cfg.VelocityBias)}

	b := NewBuffer(cfg.Count)
	for i := range b.Count {
		theta := angle.Rand()
		speed := unit.Rand() * float64(cfg.MaxSpeed)
		v := r2.Add(r2.Scale(speed, r2.Vec{X: math.Cos(theta), Y: math.Sin(theta)}), bias)
		b.Velocity[i] = Vec2{X: float32(v.X), Y: float32(v.Y)}
		b.Position[i] = Vec2{X: float32(px.Rand()), Y: float32(py.Rand())}

		c := colorful.Hsl(360*unit.Rand(), 0.5+0.5*unit.Rand(), 0.5+0.5*unit.Rand())
		r, g, bl := c.RGB255()
		b.Color[i] = color.RGBA{R: r, G: g, B: bl, A: uint8((0.8*unit.Rand() + 0.2) * 255)}
	}
	return b, nil
}

func encodeVec2(v []Vec2) []byte {
	out := make([]byte, len(v)*8)
	for i, p := range v {
		gpucore.PutVec2(out[i*8:], p.X, p.Y)
	}
	return out
}

func decodeVec2(b []byte, dst []Vec2) {
	for i := range dst {
		dst[i].X, dst[i].Y = gpucore.Vec2(b[i*8:])
	}
}

func encodeColors(c []color.RGBA) []byte {
	out := make([]byte, len(c)*4)
	for i, rgba := range c {
		out[i*4+0] = rgba.R
		out[i*4+1] = rgba.G
		out[i*4+2] = rgba.B
		out[i*4+3] = rgba.A
	}
	return out
}
