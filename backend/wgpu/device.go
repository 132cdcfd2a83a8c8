//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/gpucore"
)

// Name is the backend name reported by Device.Name.
const Name = "wgpu"

// WorkgroupSize is the @workgroup_size every kernel must declare.
const WorkgroupSize = 64

// submitTimeout bounds every fence wait.
const submitTimeout = 5 * time.Second

type buffer struct {
	desc gpucore.BufferDesc
	buf  hal.Buffer
	size uint64 // allocated size, rounded up to 4
}

type texture struct {
	desc gpucore.TextureDesc
	buf  hal.Buffer
	size uint64
}

// Device is a gpucore.Device backed by a wgpu hal device.
//
// Thread Safety: resource maps and queue submission are guarded by a mutex.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // shared device; Close leaves it alive

	nextID   atomic.Uint64
	closed   bool
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*texture
	kernels  map[gpucore.KernelID]*kernel
}

func newDevice() *Device {
	d := &Device{
		buffers:  make(map[gpucore.BufferID]*buffer),
		textures: make(map[gpucore.TextureID]*texture),
		kernels:  make(map[gpucore.KernelID]*kernel),
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d
}

// New opens the first discrete or integrated GPU, or any adapter if there
// is neither.
func New() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := newDevice()
	d.instance = instance
	d.device = openDev.Device
	d.queue = openDev.Queue
	pixkit.Logger().Info("wgpu: device opened", "adapter", selected.Info.Name)
	return d, nil
}

// NewFromProvider wraps the device of an existing GPU context, e.g. a
// gogpu window. The provider must also expose HalDevice() and HalQueue()
// returning hal.Device and hal.Queue. Close does not destroy a shared
// device.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	d := newDevice()
	d.device = device
	d.queue = queue
	d.external = true
	pixkit.Logger().Info("wgpu: using shared device")
	return d, nil
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Name returns "wgpu".
func (d *Device) Name() string {
	return Name
}

// Close releases every resource. A device obtained with NewFromProvider
// is left open. Close is idempotent.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for id, k := range d.kernels {
		k.destroy(d.device)
		delete(d.kernels, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	for id, t := range d.textures {
		d.device.DestroyBuffer(t.buf)
		delete(d.textures, id)
	}
	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
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

	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if desc.Usage.Has(gpucore.BufferUsageUniform) {
		usage = gputypes.BufferUsageUniform | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	}
	size := align4(desc.Size)
	hb, err := d.device.CreateBuffer(&hal.BufferDescriptor{Label: desc.Label, Size: size, Usage: usage})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	// hal buffers are not guaranteed to be zeroed.
	d.queue.WriteBuffer(hb, 0, make([]byte, size))

	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{desc: *desc, buf: hb, size: size}
	pixkit.Logger().Debug("wgpu: buffer created", "label", desc.Label, "size", desc.Size)
	return id, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok && !d.closed {
		d.device.DestroyBuffer(b.buf)
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

// WriteBuffer writes data at offset. Offset and length are padded to the
// 4-byte copy alignment by merging with the current contents.
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
	return d.writeAligned(b.buf, b.size, offset, data)
}

func (d *Device) writeAligned(hb hal.Buffer, size, offset uint64, data []byte) error {
	lo := offset &^ 3
	hi := align4(offset + uint64(len(data)))
	if lo == offset && hi == offset+uint64(len(data)) {
		d.queue.WriteBuffer(hb, offset, data)
		return nil
	}
	chunk, err := d.readLocked(hb, size, lo, hi-lo)
	if err != nil {
		return err
	}
	copy(chunk[offset-lo:], data)
	d.queue.WriteBuffer(hb, lo, chunk)
	return nil
}

// ReadBuffer copies size bytes at offset through a staging buffer.
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
	lo := offset &^ 3
	data, err := d.readLocked(b.buf, b.size, lo, align4(offset+size)-lo)
	if err != nil {
		return nil, err
	}
	return data[offset-lo : offset-lo+size], nil
}

// readLocked reads an aligned range of hb. The caller holds d.mu.
func (d *Device) readLocked(hb hal.Buffer, bufSize, offset, size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "pixkit_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	err = d.submit("pixkit_readback", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(hb, staging, []hal.BufferCopy{{SrcOffset: offset, DstOffset: 0, Size: size}})
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}
	return out, nil
}

// CopyBuffer copies size bytes from the start of src to the start of dst.
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
	if size == 0 {
		return nil
	}
	n := align4(size)
	if n > s.size || n > t.size {
		n = size
	}
	return d.submit("pixkit_copy", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(s.buf, t.buf, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: n}})
	})
}

// submit records one command buffer with record, submits it and waits for
// the GPU. The caller holds d.mu.
func (d *Device) submit(label string, record func(enc hal.CommandEncoder)) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	record(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, submitTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wgpu: wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// === Texture Management ===

// CreateTexture allocates a texture as a zero-filled storage buffer.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 || desc.Layers < 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture size must be positive", gpucore.ErrInvalidDescriptor)
	}
	bpt := desc.Format.BytesPerTexel()
	if bpt == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture format %v", gpucore.ErrInvalidDescriptor, desc.Format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}

	dc := *desc
	dc.Layers = max(dc.Layers, 1)
	size := uint64(dc.Width * dc.Height * dc.Layers * bpt)
	hb, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: dc.Label, Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture %q: %w", dc.Label, err)
	}
	d.queue.WriteBuffer(hb, 0, make([]byte, size))

	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{desc: dc, buf: hb, size: size}
	pixkit.Logger().Debug("wgpu: texture created",
		"label", dc.Label, "width", dc.Width, "height", dc.Height, "layers", dc.Layers, "format", dc.Format)
	return id, nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[id]; ok && !d.closed {
		d.device.DestroyBuffer(t.buf)
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

// WriteTexture uploads region row by row. With flipY, data row r lands on
// texture row Y+Height-1-r.
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
	bpt := t.desc.Format.BytesPerTexel()
	row := region.Width * bpt
	if len(data) != row*region.Height {
		return fmt.Errorf("%w: %d bytes for a %dx%d region", gpucore.ErrOutOfRange, len(data), region.Width, region.Height)
	}

	base := region.Layer * t.desc.Width * t.desc.Height
	for r := range region.Height {
		y := region.Y + r
		if flipY {
			y = region.Y + region.Height - 1 - r
		}
		off := uint64((base + y*t.desc.Width + region.X) * bpt)
		d.queue.WriteBuffer(t.buf, off, data[r*row:(r+1)*row])
	}
	return nil
}

// ReadTexture reads back one layer.
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
	n := uint64(t.desc.Width * t.desc.Height * t.desc.Format.BytesPerTexel())
	return d.readLocked(t.buf, t.size, uint64(layer)*n, n)
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

// === Kernels ===

// BeginFeedbackPass starts recording a dispatch of kernel.
func (d *Device) BeginFeedbackPass(id gpucore.KernelID) (gpucore.FeedbackPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	k, ok := d.kernels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownKernel, id)
	}
	return &pass{dev: d, kernel: k, bind: gpucore.NewBindings()}, nil
}

var _ gpucore.Device = (*Device)(nil)
