package gpucore

import "fmt"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture (always a 2D array, layers >= 1).
type TextureID uint64

// KernelID is an opaque handle to a compiled kernel program.
type KernelID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be read back by the CPU.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 1

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 2

	// BufferUsageVertex indicates the buffer feeds per-element kernel inputs.
	BufferUsageVertex BufferUsage = 1 << 3

	// BufferUsageUniform indicates the buffer holds a kernel uniform block.
	BufferUsageUniform BufferUsage = 1 << 4

	// BufferUsageFeedback indicates the buffer captures kernel outputs.
	BufferUsageFeedback BufferUsage = 1 << 5
)

// Has reports whether all bits of flag are set.
func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatRG32Float is 32-bit RG, floating point.
	TextureFormatRG32Float
)

// BytesPerTexel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case TextureFormatRGBA8Unorm:
		return 4
	case TextureFormatRG32Float:
		return 8
	default:
		return 0
	}
}

// String returns the string representation of the format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	case TextureFormatRG32Float:
		return "RG32Float"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(f))
	}
}

// FilterMode selects texture sampling.
type FilterMode uint32

// Filter modes.
const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// Topology is the primitive topology of a feedback draw.
type Topology uint32

// Topologies. Feedback kernels run one invocation per point.
const (
	TopologyPoints Topology = iota
)

// AttributeFormat describes one element of a kernel input or output.
type AttributeFormat uint32

// Attribute formats.
const (
	// AttributeFloat32x2 is two 32-bit floats (8 bytes).
	AttributeFloat32x2 AttributeFormat = iota + 1

	// AttributeUnorm8x4 is four normalized bytes (4 bytes).
	AttributeUnorm8x4
)

// Size returns the element size in bytes.
func (f AttributeFormat) Size() int {
	switch f {
	case AttributeFloat32x2:
		return 8
	case AttributeUnorm8x4:
		return 4
	default:
		return 0
	}
}

// Components returns the number of components per element.
func (f AttributeFormat) Components() int {
	switch f {
	case AttributeFloat32x2:
		return 2
	case AttributeUnorm8x4:
		return 4
	default:
		return 0
	}
}

// BufferDesc describes a buffer.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is a bitmask of BufferUsage flags.
	Usage BufferUsage
}

// TextureDesc describes a 2D array texture with a single mip level.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the layer dimensions in texels.
	Width  int
	Height int

	// Layers is the array depth. Zero is treated as 1.
	Layers int

	// Format is the texel format.
	Format TextureFormat

	// MinFilter and MagFilter select sampling. Both default to nearest.
	MinFilter FilterMode
	MagFilter FilterMode
}

// TextureRegion addresses a rectangle within one layer.
type TextureRegion struct {
	X, Y          int
	Width, Height int
	Layer         int
}

// KernelInput declares a per-element input bound with FeedbackPass.SetInput.
type KernelInput struct {
	// Name is the attribute name in the kernel source.
	Name string

	// Slot is the binding slot (vertex attribute location).
	Slot uint32

	// Format is the element format.
	Format AttributeFormat
}

// KernelOutput declares a captured output. The position of an output in
// KernelDesc.Outputs is its feedback index.
type KernelOutput struct {
	// Name is the varying name in the kernel source.
	Name string

	// Format is the element format.
	Format AttributeFormat
}

// KernelDesc describes a kernel program in every supported language.
type KernelDesc struct {
	// Name is the registry key, e.g. "particle.simulate".
	Name string

	// Inputs are the per-element inputs.
	Inputs []KernelInput

	// Outputs are the captured outputs, in feedback index order.
	Outputs []KernelOutput

	// Textures are sampler names, indexed by texture slot.
	Textures []string

	// UniformBlock is the name of the uniform block in the kernel source.
	UniformBlock string

	// UniformSize is the size of the uniform block in bytes.
	UniformSize int

	// GLSL is a GLSL ES 3.00 vertex shader (webgl backend).
	GLSL string

	// WGSL is a compute shader with entry point "main" (wgpu backend).
	WGSL string

	// CPU is the Go rendition (software backend).
	CPU KernelFunc
}

// Output returns the feedback index of the named output, or -1.
func (d *KernelDesc) Output(name string) int {
	for i, o := range d.Outputs {
		if o.Name == name {
			return i
		}
	}
	return -1
}
