package particle

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/gogpu/pixkit/gpucore"
)

// KernelName is the registry name of the default simulation kernel.
const KernelName = "particle.simulate"

// Kernel interface names. Outputs are captured in this order.
const (
	InputPosition  = "a_position"
	InputVelocity  = "a_velocity"
	InputColor     = "a_color"
	OutputPosition = "v_position"
	OutputVelocity = "v_velocity"
	SamplerForce   = "u_force"
	UniformBlock   = "Simulation"
)

// Uniform block layout (std140): mat4 projection, vec4 bounds,
// vec2 force size, uint count, uint pad.
const (
	uniformProjection = 0
	uniformBounds     = 64
	uniformForceSize  = 80
	uniformCount      = 88
	UniformSize       = 96
)

//go:embed shaders/simulate.vert.glsl
var simulateGLSL string

//go:embed shaders/simulate.wgsl
var simulateWGSL string

// DefaultKernel returns the particle integration kernel in every form the
// backends understand.
//
// Each particle samples the force field at its cell (nearest), adds the
// force to its velocity, moves by the new velocity and reflects off the
// bounds.
func DefaultKernel() *gpucore.KernelDesc {
	return &gpucore.KernelDesc{
		Name: KernelName,
		Inputs: []gpucore.KernelInput{
			{Name: InputPosition, Slot: 0, Format: gpucore.AttributeFloat32x2},
			{Name: InputVelocity, Slot: 1, Format: gpucore.AttributeFloat32x2},
			{Name: InputColor, Slot: 2, Format: gpucore.AttributeUnorm8x4},
		},
		Outputs: []gpucore.KernelOutput{
			{Name: OutputPosition, Format: gpucore.AttributeFloat32x2},
			{Name: OutputVelocity, Format: gpucore.AttributeFloat32x2},
		},
		Textures:     []string{SamplerForce},
		UniformBlock: UniformBlock,
		UniformSize:  UniformSize,
		GLSL:         simulateGLSL,
		WGSL:         simulateWGSL,
		CPU:          simulate,
	}
}

// uniforms is the decoded Simulation block.
type uniforms struct {
	projection [16]float32
	bounds     Rect
	forceW     float32
	forceH     float32
	count      uint32
}

func (u *uniforms) encode() []byte {
	b := make([]byte, UniformSize)
	for i, f := range u.projection {
		binary.LittleEndian.PutUint32(b[uniformProjection+4*i:], math.Float32bits(f))
	}
	gpucore.PutVec2(b[uniformBounds:], u.bounds.X0, u.bounds.Y0)
	gpucore.PutVec2(b[uniformBounds+8:], u.bounds.X1, u.bounds.Y1)
	gpucore.PutVec2(b[uniformForceSize:], u.forceW, u.forceH)
	binary.LittleEndian.PutUint32(b[uniformCount:], u.count)
	return b
}

func decodeUniforms(b []byte) uniforms {
	var u uniforms
	u.bounds.X0, u.bounds.Y0 = gpucore.Vec2(b[uniformBounds:])
	u.bounds.X1, u.bounds.Y1 = gpucore.Vec2(b[uniformBounds+8:])
	u.forceW, u.forceH = gpucore.Vec2(b[uniformForceSize:])
	u.count = binary.LittleEndian.Uint32(b[uniformCount:])
	return u
}

// simulate is the CPU rendition of the kernel.
func simulate(inv *gpucore.Invocation) {
	u := decodeUniforms(inv.Uniforms)
	px, py := gpucore.Vec2(inv.Inputs[0])
	vx, vy := gpucore.Vec2(inv.Inputs[1])

	field := inv.Textures[0]
	cx := forceCell(px, u.bounds.X0, u.bounds.Width(), u.forceW)
	cy := forceCell(py, u.bounds.Y0, u.bounds.Height(), u.forceH)
	if t := field.Texel(cx, cy); t != nil {
		fx, fy := gpucore.Vec2(t)
		vx += fx
		vy += fy
	}

	px += vx
	py += vy
	px, vx = bounce(px, vx, u.bounds.X0, u.bounds.X1)
	py, vy = bounce(py, vy, u.bounds.Y0, u.bounds.Y1)

	gpucore.PutVec2(inv.Outputs[0], px, py)
	gpucore.PutVec2(inv.Outputs[1], vx, vy)
}

// forceCell maps a coordinate to a field cell, clamped to the field.
func forceCell(p, origin, extent, size float32) int {
	c := float32(math.Floor(float64((p - origin) / extent * size)))
	return int(min(max(c, 0), size-1))
}

// bounce mirrors p back into [lo, hi], negating v on a bounce.
func bounce(p, v, lo, hi float32) (float32, float32) {
	if p < lo {
		p = 2*lo - p
		v = -v
	}
	if p > hi {
		p = 2*hi - p
		v = -v
	}
	return min(max(p, lo), hi), v
}

// Ortho returns a column-major orthographic projection mapping r to clip
// space with Y pointing down.
func Ortho(r Rect) [16]float32 {
	w, h := r.Width(), r.Height()
	return [16]float32{
		2 / w, 0, 0, 0,
		0, -2 / h, 0, 0,
		0, 0, -1, 0,
		-(r.X1 + r.X0) / w, (r.Y1 + r.Y0) / h, 0, 1,
	}
}
