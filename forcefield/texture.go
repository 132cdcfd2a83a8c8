package forcefield

import (
	"fmt"

	"github.com/gogpu/pixkit/gpucore"
)

// Texture is a field uploaded to a device as an RG32Float texture with
// nearest sampling. It satisfies particle.ForceSource.
type Texture struct {
	dev  gpucore.Device
	id   gpucore.TextureID
	w, h int
}

// Upload creates a texture on dev holding f.
func (f *Field) Upload(dev gpucore.Device) (*Texture, error) {
	id, err := dev.CreateTexture(&gpucore.TextureDesc{
		Label:     "forcefield",
		Width:     f.Width,
		Height:    f.Height,
		Layers:    1,
		Format:    gpucore.TextureFormatRG32Float,
		MinFilter: gpucore.FilterNearest,
		MagFilter: gpucore.FilterNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("forcefield: create texture: %w", err)
	}

	t := &Texture{dev: dev, id: id, w: f.Width, h: f.Height}
	if err := t.Update(f); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

// Update re-uploads f, which must have the texture's dimensions.
func (t *Texture) Update(f *Field) error {
	if f.Width != t.w || f.Height != t.h {
		return fmt.Errorf("forcefield: field is %dx%d, texture is %dx%d", f.Width, f.Height, t.w, t.h)
	}
	region := gpucore.TextureRegion{Width: t.w, Height: t.h}
	if err := t.dev.WriteTexture(t.id, region, gpucore.Float32Bytes(f.Data), false); err != nil {
		return fmt.Errorf("forcefield: upload: %w", err)
	}
	return nil
}

// Texture returns the device texture ID.
func (t *Texture) Texture() gpucore.TextureID {
	return t.id
}

// Size returns the field dimensions in cells.
func (t *Texture) Size() (w, h int) {
	return t.w, t.h
}

// Destroy releases the texture. Destroy is idempotent.
func (t *Texture) Destroy() {
	if t.id == gpucore.InvalidID {
		return
	}
	t.dev.DestroyTexture(t.id)
	t.id = gpucore.InvalidID
}
