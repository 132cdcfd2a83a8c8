package gpucore

// Device is the GPU abstraction every pixkit component is written against.
//
// Implementations must be safe to call from a single goroutine at a time;
// the resource maps behind the IDs are guarded, but operation ordering is
// the caller's responsibility.
type Device interface {
	// Name returns a short backend name for logging ("software", "wgpu", "webgl").
	Name() string

	// === Buffer Management ===

	// CreateBuffer allocates a zero-filled buffer.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// DestroyBuffer releases a buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data at the given byte offset.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// ReadBuffer reads size bytes starting at offset.
	// This may cause a GPU-CPU synchronization stall.
	ReadBuffer(id BufferID, offset, size uint64) ([]byte, error)

	// CopyBuffer copies size bytes from the start of src to the start of dst.
	// Any pending kernel writes to src are visible to the copy.
	CopyBuffer(src, dst BufferID, size uint64) error

	// === Texture Management ===

	// CreateTexture allocates a 2D array texture with a single mip level.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture. Unknown IDs are ignored.
	DestroyTexture(id TextureID)

	// WriteTexture uploads tightly packed texels into region. Rows of data
	// run top to bottom. When flipY is set the rows are stored bottom-up for
	// this write only; the device restores the unflipped state before
	// returning.
	WriteTexture(id TextureID, region TextureRegion, data []byte, flipY bool) error

	// ReadTexture reads back one full layer, rows in storage order.
	ReadTexture(id TextureID, layer int) ([]byte, error)

	// === Kernels ===

	// CreateKernel compiles and links a kernel. Compilation failures are
	// returned wrapped in ErrKernelCompile.
	CreateKernel(desc *KernelDesc) (KernelID, error)

	// DestroyKernel releases a kernel. Unknown IDs are ignored.
	DestroyKernel(id KernelID)

	// BeginFeedbackPass starts recording a kernel dispatch.
	BeginFeedbackPass(kernel KernelID) (FeedbackPass, error)
}

// FeedbackPass records the bindings of one kernel dispatch.
//
// Bindings are set first, then Draw runs the kernel once per element, then
// End unbinds the feedback buffers. A pass can be drawn once.
type FeedbackPass interface {
	// SetInput binds a per-element input buffer to an input slot.
	SetInput(slot uint32, buf BufferID)

	// SetUniforms binds the uniform block buffer.
	SetUniforms(buf BufferID)

	// SetTexture binds a sampled texture to a texture slot.
	SetTexture(slot uint32, tex TextureID)

	// SetFeedbackBuffer binds the capture buffer for output index.
	SetFeedbackBuffer(index uint32, buf BufferID)

	// Draw executes the kernel for count elements.
	Draw(count int, topology Topology) error

	// End finishes the pass and unbinds all feedback buffers.
	End() error
}

// KernelFunc is the CPU rendition of a kernel, invoked once per element.
type KernelFunc func(inv *Invocation)

// Invocation carries the inputs and output slots of one kernel element.
// Inputs are element-sized byte slices in KernelDesc.Inputs order, Outputs
// in feedback index order, Textures in texture slot order. Outputs are
// write-only. A KernelFunc may run on several goroutines at once, each with
// its own Invocation.
type Invocation struct {
	Index    int
	Count    int
	Uniforms []byte
	Inputs   [][]byte
	Textures []TextureData
	Outputs  [][]byte
}

// TextureData is a CPU view of layer 0 of a bound texture.
type TextureData struct {
	Width  int
	Height int
	Format TextureFormat
	Data   []byte
}

// Texel returns the bytes of the texel at (x, y), or nil if out of range.
func (t TextureData) Texel(x, y int) []byte {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return nil
	}
	bpt := t.Format.BytesPerTexel()
	off := (y*t.Width + x) * bpt
	if off+bpt > len(t.Data) {
		return nil
	}
	return t.Data[off : off+bpt]
}
