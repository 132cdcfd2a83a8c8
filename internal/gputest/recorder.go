// Package gputest provides gpucore.Device wrappers for tests.
package gputest

import (
	"fmt"
	"sync"

	"github.com/gogpu/pixkit/gpucore"
)

// Recorder wraps a Device, logging every call by name and optionally
// failing selected operations.
type Recorder struct {
	gpucore.Device

	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

// NewRecorder wraps dev.
func NewRecorder(dev gpucore.Device) *Recorder {
	return &Recorder{Device: dev, fail: make(map[string]error)}
}

// Fail makes every later call to op return err. op is a method name of
// Device or FeedbackPass, e.g. "Draw" or "CopyBuffer". A nil err clears it.
func (r *Recorder) Fail(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, op)
		return
	}
	r.fail[op] = err
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Reset clears the call log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = r.calls[:0]
	r.mu.Unlock()
}

func (r *Recorder) record(op, call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.fail[op]
}

func (r *Recorder) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if err := r.record("CreateBuffer", "CreateBuffer("+desc.Label+")"); err != nil {
		return gpucore.InvalidID, err
	}
	return r.Device.CreateBuffer(desc)
}

func (r *Recorder) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	if err := r.record("WriteBuffer", fmt.Sprintf("WriteBuffer(%d)", id)); err != nil {
		return err
	}
	return r.Device.WriteBuffer(id, offset, data)
}

func (r *Recorder) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	if err := r.record("ReadBuffer", fmt.Sprintf("ReadBuffer(%d)", id)); err != nil {
		return nil, err
	}
	return r.Device.ReadBuffer(id, offset, size)
}

func (r *Recorder) CopyBuffer(src, dst gpucore.BufferID, size uint64) error {
	if err := r.record("CopyBuffer", fmt.Sprintf("CopyBuffer(%d->%d)", src, dst)); err != nil {
		return err
	}
	return r.Device.CopyBuffer(src, dst, size)
}

func (r *Recorder) WriteTexture(id gpucore.TextureID, region gpucore.TextureRegion, data []byte, flipY bool) error {
	if err := r.record("WriteTexture", fmt.Sprintf("WriteTexture(%d,flipY=%t)", id, flipY)); err != nil {
		return err
	}
	return r.Device.WriteTexture(id, region, data, flipY)
}

func (r *Recorder) CreateKernel(desc *gpucore.KernelDesc) (gpucore.KernelID, error) {
	if err := r.record("CreateKernel", "CreateKernel("+desc.Name+")"); err != nil {
		return gpucore.InvalidID, err
	}
	return r.Device.CreateKernel(desc)
}

func (r *Recorder) BeginFeedbackPass(kernel gpucore.KernelID) (gpucore.FeedbackPass, error) {
	if err := r.record("BeginFeedbackPass", "BeginFeedbackPass"); err != nil {
		return nil, err
	}
	p, err := r.Device.BeginFeedbackPass(kernel)
	if err != nil {
		return nil, err
	}
	return &recordedPass{FeedbackPass: p, r: r}, nil
}

type recordedPass struct {
	gpucore.FeedbackPass
	r *Recorder
}

func (p *recordedPass) SetInput(slot uint32, buf gpucore.BufferID) {
	_ = p.r.record("SetInput", fmt.Sprintf("SetInput(%d,%d)", slot, buf))
	p.FeedbackPass.SetInput(slot, buf)
}

func (p *recordedPass) SetUniforms(buf gpucore.BufferID) {
	_ = p.r.record("SetUniforms", fmt.Sprintf("SetUniforms(%d)", buf))
	p.FeedbackPass.SetUniforms(buf)
}

func (p *recordedPass) SetTexture(slot uint32, tex gpucore.TextureID) {
	_ = p.r.record("SetTexture", fmt.Sprintf("SetTexture(%d,%d)", slot, tex))
	p.FeedbackPass.SetTexture(slot, tex)
}

func (p *recordedPass) SetFeedbackBuffer(index uint32, buf gpucore.BufferID) {
	_ = p.r.record("SetFeedbackBuffer", fmt.Sprintf("SetFeedbackBuffer(%d,%d)", index, buf))
	p.FeedbackPass.SetFeedbackBuffer(index, buf)
}

func (p *recordedPass) Draw(count int, topology gpucore.Topology) error {
	if err := p.r.record("Draw", fmt.Sprintf("Draw(%d)", count)); err != nil {
		return err
	}
	return p.FeedbackPass.Draw(count, topology)
}

func (p *recordedPass) End() error {
	if err := p.r.record("End", "End"); err != nil {
		return err
	}
	return p.FeedbackPass.End()
}
