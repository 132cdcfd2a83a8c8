// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package software provides a CPU implementation of gpucore.Device.
//
// Buffers and textures are plain byte slices and kernels are the Go
// rendition carried in gpucore.KernelDesc.CPU. The device follows the same
// contract as the GPU backends: feedback outputs are written to disjoint
// buffers, every element reads pre-dispatch state, and a feedback buffer
// bound as an input of the same pass is rejected.
//
// Large dispatches are split across a worker pool.
package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/gpucore"
	"github.com/gogpu/pixkit/internal/parallel"
)

// Name is the backend name reported by Device.Name.
const Name = "software"

// parallelThreshold is the element count above which Draw uses the pool.
const parallelThreshold = 4096

type buffer struct {
	desc gpucore.BufferDesc
	data []byte
}

type texture struct {
	desc   gpucore.TextureDesc
	layers [][]byte
}

// Device is a CPU gpucore.Device.
//
// Thread Safety: resource maps are guarded by a mutex. Passes must not be
// recorded concurrently with writes to the buffers they bind.
type Device struct {
	mu       sync.RWMutex
	nextID   atomic.Uint64
	closed   bool
	buffers  map[gpucore.BufferID]*buffer
	textures map[gpucore.TextureID]*texture
	kernels  map[gpucore.KernelID]*gpucore.KernelDesc
	pool     *parallel.WorkerPool
	workers  int
}

// Option configures a Device.
type Option func(*Device)

// WithWorkers sets the number of dispatch workers. 1 disables parallel
// dispatch; 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(d *Device) {
		d.workers = n
	}
}

// New creates a software device.
func New(opts ...Option) *Device {
	d := &Device{
		buffers:  make(map[gpucore.BufferID]*buffer),
		textures: make(map[gpucore.TextureID]*texture),
		kernels:  make(map[gpucore.KernelID]*gpucore.KernelDesc),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers != 1 {
		d.pool = parallel.NewWorkerPool(d.workers)
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)

	pixkit.Logger().Debug("software: device created", "workers", d.Workers())
	return d
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Name returns "software".
func (d *Device) Name() string {
	return Name
}

// Workers returns the number of goroutines used for dispatch.
func (d *Device) Workers() int {
	if d.pool == nil {
		return 1
	}
	return d.pool.Workers()
}

// Close releases every resource and stops the worker pool.
// Later calls return ErrDeviceClosed. Close is idempotent.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	clear(d.buffers)
	clear(d.textures)
	clear(d.kernels)
	if d.pool != nil {
		d.pool.Close()
	}
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
	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &buffer{desc: *desc, data: make([]byte, desc.Size)}
	return id, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	delete(d.buffers, id)
	d.mu.Unlock()
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

// WriteBuffer copies data into the buffer at offset.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: write %d bytes at %d into %q (%d bytes)",
			gpucore.ErrOutOfRange, len(data), offset, b.desc.Label, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

// ReadBuffer returns a copy of size bytes at offset.
func (d *Device) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b, err := d.buffer(id)
	if err != nil {
		return nil, err
	}
	if offset+size > uint64(len(b.data)) {
		return nil, fmt.Errorf("%w: read %d bytes at %d from %q (%d bytes)",
			gpucore.ErrOutOfRange, size, offset, b.desc.Label, len(b.data))
	}
	out := make([]byte, size)
	copy(out, b.data[offset:offset+size])
	return out, nil
}

// CopyBuffer copies size bytes from src to dst.
func (d *Device) CopyBuffer(src, dst gpucore.BufferID, size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.buffer(src)
	if err != nil {
		return err
	}
	t, err := d.buffer(dst)
	if err != nil {
		return err
	}
	if size > uint64(len(s.data)) || size > uint64(len(t.data)) {
		return fmt.Errorf("%w: copy %d bytes from %q to %q",
			gpucore.ErrOutOfRange, size, s.desc.Label, t.desc.Label)
	}
	copy(t.data[:size], s.data[:size])
	return nil
}

// === Texture Management ===

// CreateTexture allocates a zeroed 2D array texture.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 || desc.Layers < 0 || desc.Format.BytesPerTexel() == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %+v", gpucore.ErrInvalidDescriptor, desc)
	}
	td := *desc
	td.Layers = max(td.Layers, 1)

	layerSize := td.Width * td.Height * td.Format.BytesPerTexel()
	layers := make([][]byte, td.Layers)
	for i := range layers {
		layers[i] = make([]byte, layerSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{desc: td, layers: layers}
	return id, nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	delete(d.textures, id)
	d.mu.Unlock()
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

// WriteTexture copies tightly packed rows into region. With flipY the
// first data row lands on the last row of the region.
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
	rowBytes := region.Width * bpt
	if len(data) < rowBytes*region.Height {
		return fmt.Errorf("%w: %d bytes for %dx%d region", gpucore.ErrOutOfRange, len(data), region.Width, region.Height)
	}

	layer := t.layers[region.Layer]
	stride := t.desc.Width * bpt
	for r := range region.Height {
		dy := region.Y + r
		if flipY {
			dy = region.Y + region.Height - 1 - r
		}
		off := dy*stride + region.X*bpt
		copy(layer[off:off+rowBytes], data[r*rowBytes:(r+1)*rowBytes])
	}
	return nil
}

// ReadTexture returns a copy of one layer.
func (d *Device) ReadTexture(id gpucore.TextureID, layer int) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, err := d.texture(id)
	if err != nil {
		return nil, err
	}
	if layer < 0 || layer >= len(t.layers) {
		return nil, fmt.Errorf("%w: layer %d of %d", gpucore.ErrOutOfRange, layer, len(t.layers))
	}
	out := make([]byte, len(t.layers[layer]))
	copy(out, t.layers[layer])
	return out, nil
}

func checkRegion(desc *gpucore.TextureDesc, r gpucore.TextureRegion) error {
	if r.Width <= 0 || r.Height <= 0 || r.X < 0 || r.Y < 0 ||
		r.X+r.Width > desc.Width || r.Y+r.Height > desc.Height ||
		r.Layer < 0 || r.Layer >= desc.Layers {
		return fmt.Errorf("%w: region %+v in %dx%dx%d texture %q",
			gpucore.ErrOutOfRange, r, desc.Width, desc.Height, desc.Layers, desc.Label)
	}
	return nil
}

// === Kernels ===

// CreateKernel stores desc. It requires a CPU rendition.
func (d *Device) CreateKernel(desc *gpucore.KernelDesc) (gpucore.KernelID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil kernel", gpucore.ErrInvalidDescriptor)
	}
	if desc.CPU == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: %q has no CPU function", gpucore.ErrKernelSource, desc.Name)
	}
	if err := validateKernel(desc); err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidID, gpucore.ErrDeviceClosed
	}
	id := gpucore.KernelID(d.newID())
	d.kernels[id] = desc
	pixkit.Logger().Debug("software: kernel created", "name", desc.Name, "id", id)
	return id, nil
}

func validateKernel(desc *gpucore.KernelDesc) error {
	if len(desc.Outputs) == 0 {
		return fmt.Errorf("%w: %q declares no outputs", gpucore.ErrKernelCompile, desc.Name)
	}
	for _, in := range desc.Inputs {
		if in.Format.Size() == 0 {
			return fmt.Errorf("%w: %q input %q has no format", gpucore.ErrKernelCompile, desc.Name, in.Name)
		}
	}
	for _, out := range desc.Outputs {
		if out.Format.Size() == 0 {
			return fmt.Errorf("%w: %q output %q has no format", gpucore.ErrKernelCompile, desc.Name, out.Name)
		}
	}
	return nil
}

// DestroyKernel releases a kernel.
func (d *Device) DestroyKernel(id gpucore.KernelID) {
	d.mu.Lock()
	delete(d.kernels, id)
	d.mu.Unlock()
}

// BeginFeedbackPass starts recording a dispatch of kernel.
func (d *Device) BeginFeedbackPass(kernel gpucore.KernelID) (gpucore.FeedbackPass, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, gpucore.ErrDeviceClosed
	}
	desc, ok := d.kernels[kernel]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownKernel, kernel)
	}
	return &pass{dev: d, desc: desc, bind: gpucore.NewBindings()}, nil
}

var _ gpucore.Device = (*Device)(nil)
