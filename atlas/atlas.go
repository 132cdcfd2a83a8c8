// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package atlas

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/gocarina/gocsv"
	"golang.org/x/image/draw"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/gpucore"
)

// Atlas batches images into one RGBA8 2D array texture.
//
// Images are placed with a [Packer] and uploaded with a vertical flip so
// that top-left image rows reconcile with the bottom-left texture origin.
// Names map to regions that stay fixed until Reset.
//
// Atlas is not safe for concurrent use.
type Atlas struct {
	dev     gpucore.Device
	cfg     Config
	tex     gpucore.TextureID
	packer  *Packer
	regions map[string]Region
	entries []Region
	closed  bool
}

// New creates an atlas texture on dev.
func New(dev gpucore.Device, cfg Config) (*Atlas, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Atlas{
		dev:     dev,
		cfg:     cfg,
		packer:  NewPacker(cfg.Width, cfg.Height, cfg.Depth),
		regions: make(map[string]Region),
	}
	if err := a.initTexture(); err != nil {
		return nil, err
	}
	pixkit.Logger().Info("atlas: created",
		"label", cfg.Label, "width", cfg.Width, "height", cfg.Height, "depth", cfg.Depth)
	return a, nil
}

func (a *Atlas) initTexture() error {
	if a.tex != gpucore.InvalidID {
		a.dev.DestroyTexture(a.tex)
		a.tex = gpucore.InvalidID
	}
	tex, err := a.dev.CreateTexture(&gpucore.TextureDesc{
		Label:     a.cfg.Label,
		Width:     a.cfg.Width,
		Height:    a.cfg.Height,
		Layers:    a.cfg.Depth,
		Format:    gpucore.TextureFormatRGBA8Unorm,
		MinFilter: gpucore.FilterNearest,
		MagFilter: gpucore.FilterNearest,
	})
	if err != nil {
		return fmt.Errorf("atlas: create texture: %w", err)
	}
	a.tex = tex
	return nil
}

// Add places the whole of src under name.
func (a *Atlas) Add(src image.Image, name string) (Region, error) {
	return a.AddSubImage(src, name, src.Bounds())
}

// AddSubImage places the pixels of src inside r under name.
//
// Nothing is placed and the packing cursor is unchanged when the name is
// taken, the rectangle is empty or outside src, the atlas is full, or the
// upload fails.
func (a *Atlas) AddSubImage(src image.Image, name string, r image.Rectangle) (Region, error) {
	if a.closed {
		return Region{}, ErrClosed
	}
	if _, ok := a.regions[name]; ok {
		return Region{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if r.Empty() {
		return Region{}, fmt.Errorf("%w: %q is %dx%d", ErrInvalidSize, name, r.Dx(), r.Dy())
	}
	if !r.In(src.Bounds()) {
		return Region{}, fmt.Errorf("%w: %v not in %v", ErrRegionOutOfBounds, r, src.Bounds())
	}

	pl, next, err := a.packer.place(r.Dx(), r.Dy())
	if err != nil {
		return Region{}, fmt.Errorf("add %q: %w", name, err)
	}

	pix := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(pix, pix.Bounds(), src, r.Min, draw.Src)

	dst := gpucore.TextureRegion{X: pl.X, Y: pl.Y, Width: pl.Width, Height: pl.Height, Layer: pl.Layer}
	if err := a.dev.WriteTexture(a.tex, dst, pix.Pix, true); err != nil {
		return Region{}, fmt.Errorf("atlas: upload %q: %w", name, err)
	}
	a.packer.cur = next

	reg := Region{Name: name, X: pl.X, Y: pl.Y, Width: pl.Width, Height: pl.Height, Layer: pl.Layer}
	a.regions[name] = reg
	a.entries = append(a.entries, reg)

	pixkit.Logger().Debug("atlas: placed", "region", reg.String())
	return reg, nil
}

// Coordinates returns the region placed under name. The second result is
// false if name is unknown.
func (a *Atlas) Coordinates(name string) (Region, bool) {
	r, ok := a.regions[name]
	return r, ok
}

// Entries returns the placed regions in insertion order.
func (a *Atlas) Entries() []Region {
	return append([]Region(nil), a.entries...)
}

// Len returns the number of placed regions.
func (a *Atlas) Len() int {
	return len(a.entries)
}

// Layers returns the number of layers holding at least one region.
func (a *Atlas) Layers() int {
	if len(a.entries) == 0 {
		return 0
	}
	return a.packer.Layer() + 1
}

// Texture returns the atlas texture ID.
func (a *Atlas) Texture() gpucore.TextureID {
	return a.tex
}

// Config returns the atlas configuration.
func (a *Atlas) Config() Config {
	return a.cfg
}

// Reset discards every region and replaces the texture with a blank one.
func (a *Atlas) Reset() error {
	if a.closed {
		return ErrClosed
	}
	a.packer.Reset()
	clear(a.regions)
	a.entries = a.entries[:0]
	return a.initTexture()
}

// Destroy releases the texture. Destroy is idempotent.
func (a *Atlas) Destroy() {
	if a.closed {
		return
	}
	a.closed = true
	if a.tex != gpucore.InvalidID {
		a.dev.DestroyTexture(a.tex)
		a.tex = gpucore.InvalidID
	}
}

// ReadLayer reads one layer back from the device. Every region is
// un-flipped so the image shows each sprite upright at its Region rect.
func (a *Atlas) ReadLayer(layer int) (*image.RGBA, error) {
	if a.closed {
		return nil, ErrClosed
	}
	raw, err := a.dev.ReadTexture(a.tex, layer)
	if err != nil {
		return nil, fmt.Errorf("atlas: read layer %d: %w", layer, err)
	}
	img := &image.RGBA{
		Pix:    raw,
		Stride: 4 * a.cfg.Width,
		Rect:   image.Rect(0, 0, a.cfg.Width, a.cfg.Height),
	}
	for _, r := range a.entries {
		if r.Layer == layer {
			flipRows(img, r.Rect())
		}
	}
	return img, nil
}

// flipRows mirrors the rows of r inside img vertically.
func flipRows(img *image.RGBA, r image.Rectangle) {
	n := 4 * r.Dx()
	tmp := make([]byte, n)
	for top, bottom := r.Min.Y, r.Max.Y-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.PixOffset(r.Min.X, top)
		b := img.PixOffset(r.Min.X, bottom)
		copy(tmp, img.Pix[a:a+n])
		copy(img.Pix[a:a+n], img.Pix[b:b+n])
		copy(img.Pix[b:b+n], tmp)
	}
}

// WriteLayerPNG encodes one layer, as returned by ReadLayer, as PNG.
func (a *Atlas) WriteLayerPNG(w io.Writer, layer int) error {
	img, err := a.ReadLayer(layer)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// WriteManifest writes the placed regions as CSV with the header
// name,x,y,width,height,layer, in insertion order.
func (a *Atlas) WriteManifest(w io.Writer) error {
	entries := a.Entries()
	if err := gocsv.Marshal(&entries, w); err != nil {
		return fmt.Errorf("atlas: write manifest: %w", err)
	}
	return nil
}
