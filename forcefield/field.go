// Package forcefield builds the 2-channel float grid the particle kernel
// samples as an external force.
//
// A field starts from a smooth random-walk background and is then
// overwritten along barrier lines with each line's unit normal. Lines are
// rasterized with Bresenham's algorithm. Writes whose linear index falls
// outside the grid are dropped, so lines may start or end off the grid.
package forcefield

import (
	"image"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gogpu/pixkit"
)

// Field is a row-major grid of (fx, fy) force vectors.
//
// Field is not safe for concurrent use.
type Field struct {
	Width  int
	Height int
	// Data holds 2*Width*Height floats, fx and fy interleaved.
	Data []float32
}

// NewBlank returns a zero field of w by h cells.
func NewBlank(w, h int) (*Field, error) {
	if w <= 0 || h <= 0 {
		return nil, &ConfigError{Field: "Width/Height", Reason: "must be positive"}
	}
	return &Field{Width: w, Height: h, Data: make([]float32, 2*w*h)}, nil
}

// New returns a field filled with a random-walk background.
//
// The walk visits cells in row-major order carrying a length and an
// angle: each cell adds U(0, StepMax) to the length, clamped to
// ±LengthLimit, and U(0, AngleStepMax) to the angle, then stores
// (cos, sin)·length·Scale. Every background vector therefore has magnitude
// at most LengthLimit·Scale.
func New(cfg Config) (*Field, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := NewBlank(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewPCG(seed, seed^0xda942042e4dd58b5)
	step := distuv.Uniform{Min: 0, Max: cfg.StepMax, Src: src}
	turn := distuv.Uniform{Min: 0, Max: cfg.AngleStepMax, Src: src}

	var length, angle float64
	for i := range cfg.Width * cfg.Height {
		length = math.Max(-cfg.LengthLimit, math.Min(cfg.LengthLimit, length+step.Rand()))
		angle += turn.Rand()
		f.Data[2*i] = float32(math.Cos(angle) * length * cfg.Scale)
		f.Data[2*i+1] = float32(math.Sin(angle) * length * cfg.Scale)
	}

	pixkit.Logger().Debug("forcefield: background generated", "width", cfg.Width, "height", cfg.Height)
	return f, nil
}

// At returns the vector at cell (x, y), or zero outside the grid.
func (f *Field) At(x, y int) (fx, fy float32) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0
	}
	i := 2 * (y*f.Width + x)
	return f.Data[i], f.Data[i+1]
}

// set writes v at (x, y) when the linear index is inside the grid. Like a
// flat pixel buffer, an x past the row end spills into the next row.
func (f *Field) set(x, y int, v r2.Vec) {
	i := 2 * (y*f.Width + x)
	if i < 0 || i+1 >= len(f.Data) {
		return
	}
	f.Data[i] = float32(v.X)
	f.Data[i+1] = float32(v.Y)
}

// Line rasterizes the segment (x0,y0)-(x1,y1) and writes the segment's
// unit normal (-dy, dx)/|d| to every visited cell, overwriting the
// previous value. A zero-length segment has no normal and is ignored.
func (f *Field) Line(x0, y0, x1, y1 int) {
	d := r2.Vec{X: float64(x1 - x0), Y: float64(y1 - y0)}
	if d.X == 0 && d.Y == 0 {
		pixkit.Logger().Warn("forcefield: degenerate line dropped", "x", x0, "y", y0)
		return
	}
	normal := r2.Unit(r2.Vec{X: -d.Y, Y: d.X})
	Bresenham(x0, y0, x1, y1, func(x, y int) {
		f.set(x, y, normal)
	})
}

// Rect draws the outline of the rectangle with origin (x, y) and size
// (w, h) as four lines: bottom, right, top, left.
func (f *Field) Rect(x, y, w, h int) {
	f.Line(x, y+h, x+w, y+h)
	f.Line(x+w, y+h, x+w, y)
	f.Line(x+w, y, x, y)
	f.Line(x, y, x, y+h)
}

// Polyline draws a line between each consecutive pair of points.
func (f *Field) Polyline(pts []image.Point) {
	for i := 1; i < len(pts); i++ {
		f.Line(pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y)
	}
}

// MaxMagnitude returns the largest vector length in the field.
func (f *Field) MaxMagnitude() float32 {
	var m float64
	for i := 0; i+1 < len(f.Data); i += 2 {
		m = math.Max(m, r2.Norm(r2.Vec{X: float64(f.Data[i]), Y: float64(f.Data[i+1])}))
	}
	return float32(m)
}

// Bresenham calls visit for every cell on the integer segment from
// (x0,y0) to (x1,y1), endpoints included. Endpoints are ordered first so
// a segment and its reverse visit the same cells.
func Bresenham(x0, y0, x1, y1 int, visit func(x, y int)) {
	if x1 < x0 || (x1 == x0 && y1 < y0) {
		x0, y0, x1, y1 = x1, y1, x0, y0
	}

	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx - dy

	for {
		visit(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x0 += sx
		}
		if e2 < dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
