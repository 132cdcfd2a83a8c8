//go:build js && wasm

package webgl

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall/js"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/gpucore"
)

// Name is the backend name reported by Device.Name.
const Name = "webgl"

// ErrNoContext is returned when a WebGL2 context cannot be created.
var ErrNoContext = errors.New("webgl: WebGL2 context not available")

type glConsts struct {
	arrayBuffer             int
	uniformBuffer           int
	copyReadBuffer          int
	copyWriteBuffer         int
	transformFeedback       int
	transformFeedbackBuffer int
	separateAttribs         int
	dynamicCopy             int
	rasterizerDiscard       int
	points                  int
	floatType               int
	unsignedByte            int
	texture2DArray          int
	texture0                int
	textureMinFilter        int
	textureMagFilter        int
	textureWrapS            int
	textureWrapT            int
	nearest                 int
	linear                  int
	clampToEdge             int
	rgba8                   int
	rgba                    int
	rg32f                   int
	rg                      int
	framebuffer             int
	colorAttachment0        int
	compileStatus           int
	linkStatus              int
	vertexShader            int
	fragmentShader          int
	invalidIndex            int
}

type buffer struct {
	desc gpucore.BufferDesc
	obj  js.Value
}

type texture struct {
	desc gpucore.TextureDesc
	obj  js.Value
}

type kernel struct {
	desc     *gpucore.KernelDesc
	program  js.Value
	vao      js.Value
	feedback js.Value
}

// Device is a gpucore.Device on a WebGL2 rendering context.
//
// Thread Safety: resource maps are guarded by a mutex; js calls are made
// from whichever goroutine holds it.
type Device struct {
	mu       sync.Mutex
	gl       js.Value
	consts   glConsts
	fbo      js.Value
	nextID   atomic.Uint64
	closed   bool
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*texture
	kernels  map[gpucore.KernelID]*kernel
}

// New opens a WebGL2 context on a detached canvas.
func New() (*Device, error) {
	doc := js.Global().Get("document")
	if doc.IsUndefined() || doc.IsNull() {
		return nil, ErrNoContext
	}
	return NewFromCanvas(doc.Call("createElement", "canvas"))
}

// NewFromCanvas opens a WebGL2 context on canvas.
func NewFromCanvas(canvas js.Value) (*Device, error) {
	gl := canvas.Call("getContext", "webgl2")
	if gl.IsUndefined() || gl.IsNull() {
		return nil, ErrNoContext
	}
	return NewFromContext(gl)
}

// NewFromContext wraps an existing WebGL2 rendering context.
func NewFromContext(gl js.Value) (*Device, error) {
	if gl.IsUndefined() || gl.IsNull() {
		return nil, ErrNoContext
	}
	d := &Device{
		gl:       gl,
		buffers:  make(map[gpucore.BufferID]*buffer),
		textures: make(map[gpucore.TextureID]*texture),
		kernels:  make(map[gpucore.KernelID]*kernel),
	}
	d.initConsts()
	// Needed to read back RG32F layers.
	if ext := gl.Call("getExtension", "EXT_color_buffer_float"); ext.IsNull() {
		pixkit.Logger().Warn("webgl: EXT_color_buffer_float missing, float textures cannot be read back")
	}
	d.fbo = gl.Call("createFramebuffer")
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	pixkit.Logger().Info("webgl: device opened")
	return d, nil
}

func (d *Device) initConsts() {
	get := func(name string) int { return d.gl.Get(name).Int() }
	d.consts = glConsts{
		arrayBuffer:             get("ARRAY_BUFFER"),
		uniformBuffer:           get("UNIFORM_BUFFER"),
		copyReadBuffer:          get("COPY_READ_BUFFER"),
		copyWriteBuffer:         get("COPY_WRITE_BUFFER"),
		transformFeedback:       get("TRANSFORM_FEEDBACK"),
		transformFeedbackBuffer: get("TRANSFORM_FEEDBACK_BUFFER"),
		separateAttribs:         get("SEPARATE_ATTRIBS"),
		dynamicCopy:             get("DYNAMIC_COPY"),
		rasterizerDiscard:       get("RASTERIZER_DISCARD"),
		points:                  get("POINTS"),
		floatType:               get("FLOAT"),
		unsignedByte:            get("UNSIGNED_BYTE"),
		texture2DArray:          get("TEXTURE_2D_ARRAY"),
		texture0:                get("TEXTURE0"),
		textureMinFilter:        get("TEXTURE_MIN_FILTER"),
		textureMagFilter:        get("TEXTURE_MAG_FILTER"),
		textureWrapS:            get("TEXTURE_WRAP_S"),
		textureWrapT:            get("TEXTURE_WRAP_T"),
		nearest:                 get("NEAREST"),
		linear:                  get("LINEAR"),
		clampToEdge:             get("CLAMP_TO_EDGE"),
		rgba8:                   get("RGBA8"),
		rgba:                    get("RGBA"),
		rg32f:                   get("RG32F"),
		rg:                      get("RG"),
		framebuffer:             get("FRAMEBUFFER"),
		colorAttachment0:        get("COLOR_ATTACHMENT0"),
		compileStatus:           get("COMPILE_STATUS"),
		linkStatus:              get("LINK_STATUS"),
		vertexShader:            get("VERTEX_SHADER"),
		fragmentShader:          get("FRAGMENT_SHADER"),
		invalidIndex:            get("INVALID_INDEX"),
	}
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Name returns "webgl".
func (d *Device) Name() string {
	return Name
}

// Close deletes every GL object. Close is idempotent.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for id, k := range d.kernels {
		d.deleteKernel(k)
		delete(d.kernels, id)
	}
	for id, b := range d.buffers {
		d.gl.Call("deleteBuffer", b.obj)
		delete(d.buffers, id)
	}
	for id, t := range d.textures {
		d.gl.Call("deleteTexture", t.obj)
		delete(d.textures, id)
	}
	d.gl.Call("deleteFramebuffer", d.fbo)
}

// bytesToJS copies data into a new Uint8Array.
func bytesToJS(data []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}

// float32View copies data into a new Float32Array of len(data)/4 elements.
func float32View(data []byte) js.Value {
	u8 := bytesToJS(data)
	return js.Global().Get("Float32Array").New(u8.Get("buffer"))
}

// === Buffer Management ===

// CreateBuffer allocates a zero-filled buffer.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil || desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer size must be positive", gpucore.ErrInvalidDescriptor)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	obj := d.gl.Call("createBuffer")
	d.gl.Call("bindBuffer", d.consts.copyWriteBuffer, obj)
	d.gl.Call("bufferData", d.consts.copyWriteBuffer, int(desc.Size), d.consts.dynamicCopy)
	d.gl.Call("bindBuffer", d.consts.copyWriteBuffer, js.Null())

	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{desc: *desc, obj: obj}
	pixkit.Logger().Debug("webgl: buffer created", "label", desc.Label, "size", desc.Size)
	return id, nil
}

// DestroyBuffer deletes a buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok && !d.closed {
		d.gl.Call("deleteBuffer", b.obj)
		delete(d.buffers, id)
	}
}

func (d *Device) buffer(id gpucore.BufferID) (*buffer, error) {
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownBuffer, id)
	}
	return b, nil
}

// WriteBuffer writes data at offset with bufferSubData.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("%w: write [%d,%d) in buffer of %d bytes",
			gpucore.ErrOutOfRange, offset, offset+uint64(len(data)), b.desc.Size)
	}
	d.gl.Call("bindBuffer", d.consts.copyWriteBuffer, b.obj)
	d.gl.Call("bufferSubData", d.consts.copyWriteBuffer, int(offset), bytesToJS(data))
	d.gl.Call("bindBuffer", d.consts.copyWriteBuffer, js.Null())
	return nil
}

// ReadBuffer reads size bytes at offset with getBufferSubData.
func (d *Device) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.buffer(id)
	if err != nil {
		return nil, err
	}
	if offset+size > b.desc.Size {
		return nil, fmt.Errorf("%w: read [%d,%d) in buffer of %d bytes",
			gpucore.ErrOutOfRange, offset, offset+size, b.desc.Size)
	}
	arr := js.Global().Get("Uint8Array").New(int(size))
	d.gl.Call("bindBuffer", d.consts.copyReadBuffer, b.obj)
	d.gl.Call("getBufferSubData", d.consts.copyReadBuffer, int(offset), arr)
	d.gl.Call("bindBuffer", d.consts.copyReadBuffer, js.Null())
	out := make([]byte, size)
	js.CopyBytesToGo(out, arr)
	return out, nil
}

// CopyBuffer copies with copyBufferSubData.
func (d *Device) CopyBuffer(src, dst gpucore.BufferID, size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.buffer(src)
	if err != nil {
		return fmt.Errorf("copy source: %w", err)
	}
	t, err := d.buffer(dst)
	if err != nil {
		return fmt.Errorf("copy destination: %w", err)
	}
	if size > s.desc.Size || size > t.desc.Size {
		return fmt.Errorf("%w: copy %d bytes from %d to %d byte buffers",
			gpucore.ErrOutOfRange, size, s.desc.Size, t.desc.Size)
	}
	c := d.consts
	d.gl.Call("bindBuffer", c.copyReadBuffer, s.obj)
	d.gl.Call("bindBuffer", c.copyWriteBuffer, t.obj)
	d.gl.Call("copyBufferSubData", c.copyReadBuffer, c.copyWriteBuffer, 0, 0, int(size))
	d.gl.Call("bindBuffer", c.copyReadBuffer, js.Null())
	d.gl.Call("bindBuffer", c.copyWriteBuffer, js.Null())
	return nil
}

// === Texture Management ===

func (d *Device) formatEnums(f gpucore.TextureFormat) (internal, format, typ int, err error) {
	switch f {
	case gpucore.TextureFormatRGBA8Unorm:
		return d.consts.rgba8, d.consts.rgba, d.consts.unsignedByte, nil
	case gpucore.TextureFormatRG32Float:
		return d.consts.rg32f, d.consts.rg, d.consts.floatType, nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: texture format %v", gpucore.ErrInvalidDescriptor, f)
	}
}

func (d *Device) filter(f gpucore.FilterMode) int {
	if f == gpucore.FilterLinear {
		return d.consts.linear
	}
	return d.consts.nearest
}

// CreateTexture allocates immutable TEXTURE_2D_ARRAY storage.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 || desc.Layers < 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture size must be positive", gpucore.ErrInvalidDescriptor)
	}
	internal, _, _, err := d.formatEnums(desc.Format)
	if err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	dc := *desc
	dc.Layers = max(dc.Layers, 1)
	c := d.consts
	obj := d.gl.Call("createTexture")
	d.gl.Call("bindTexture", c.texture2DArray, obj)
	d.gl.Call("texStorage3D", c.texture2DArray, 1, internal, dc.Width, dc.Height, dc.Layers)
	d.gl.Call("texParameteri", c.texture2DArray, c.textureMinFilter, d.filter(dc.MinFilter))
	d.gl.Call("texParameteri", c.texture2DArray, c.textureMagFilter, d.filter(dc.MagFilter))
	d.gl.Call("texParameteri", c.texture2DArray, c.textureWrapS, c.clampToEdge)
	d.gl.Call("texParameteri", c.texture2DArray, c.textureWrapT, c.clampToEdge)
	d.gl.Call("bindTexture", c.texture2DArray, js.Null())

	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{desc: dc, obj: obj}
	pixkit.Logger().Debug("webgl: texture created",
		"label", dc.Label, "width", dc.Width, "height", dc.Height, "layers", dc.Layers, "format", dc.Format)
	return id, nil
}

// DestroyTexture deletes a texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[id]; ok && !d.closed {
		d.gl.Call("deleteTexture", t.obj)
		delete(d.textures, id)
	}
}

func (d *Device) texture(id gpucore.TextureID) (*texture, error) {
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownTexture, id)
	}
	return t, nil
}

// WriteTexture uploads region with texSubImage3D. WebGL2 rejects
// UNPACK_FLIP_Y_WEBGL for array textures, so flipped rows are reordered
// before the upload.
func (d *Device) WriteTexture(id gpucore.TextureID, region gpucore.TextureRegion, data []byte, flipY bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	if err := checkRegion(&t.desc, region); err != nil {
		return err
	}
	row := region.Width * t.desc.Format.BytesPerTexel()
	if len(data) != row*region.Height {
		return fmt.Errorf("%w: %d bytes for a %dx%d region", gpucore.ErrOutOfRange, len(data), region.Width, region.Height)
	}
	if flipY {
		data = flipRows(data, row)
	}

	_, format, typ, _ := d.formatEnums(t.desc.Format)
	pixels := bytesToJS(data)
	if t.desc.Format == gpucore.TextureFormatRG32Float {
		pixels = float32View(data)
	}
	c := d.consts
	d.gl.Call("bindTexture", c.texture2DArray, t.obj)
	d.gl.Call("texSubImage3D", c.texture2DArray, 0,
		region.X, region.Y, region.Layer, region.Width, region.Height, 1,
		format, typ, pixels)
	d.gl.Call("bindTexture", c.texture2DArray, js.Null())
	return nil
}

// ReadTexture reads one layer through a framebuffer attachment.
func (d *Device) ReadTexture(id gpucore.TextureID, layer int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.texture(id)
	if err != nil {
		return nil, err
	}
	if layer < 0 || layer >= t.desc.Layers {
		return nil, fmt.Errorf("%w: layer %d of %d", gpucore.ErrOutOfRange, layer, t.desc.Layers)
	}

	c := d.consts
	w, h := t.desc.Width, t.desc.Height
	d.gl.Call("bindFramebuffer", c.framebuffer, d.fbo)
	d.gl.Call("framebufferTextureLayer", c.framebuffer, c.colorAttachment0, t.obj, 0, layer)
	defer d.gl.Call("bindFramebuffer", c.framebuffer, js.Null())

	if t.desc.Format == gpucore.TextureFormatRG32Float {
		arr := js.Global().Get("Float32Array").New(w * h * 4)
		d.gl.Call("readPixels", 0, 0, w, h, c.rgba, c.floatType, arr)
		raw := make([]byte, w*h*16)
		js.CopyBytesToGo(raw, js.Global().Get("Uint8Array").New(arr.Get("buffer")))
		return compactRG(raw), nil
	}
	arr := js.Global().Get("Uint8Array").New(w * h * 4)
	d.gl.Call("readPixels", 0, 0, w, h, c.rgba, c.unsignedByte, arr)
	out := make([]byte, w*h*4)
	js.CopyBytesToGo(out, arr)
	return out, nil
}

func checkRegion(desc *gpucore.TextureDesc, r gpucore.TextureRegion) error {
	if r.Width <= 0 || r.Height <= 0 || r.X < 0 || r.Y < 0 ||
		r.X+r.Width > desc.Width || r.Y+r.Height > desc.Height ||
		r.Layer < 0 || r.Layer >= desc.Layers {
		return fmt.Errorf("%w: region %+v in %dx%dx%d texture",
			gpucore.ErrOutOfRange, r, desc.Width, desc.Height, desc.Layers)
	}
	return nil
}

var _ gpucore.Device = (*Device)(nil)
