package atlas_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/pixkit/atlas"
	"github.com/gogpu/pixkit/backend/software"
	"github.com/gogpu/pixkit/internal/gputest"
)

func newAtlas(t *testing.T, w, h, depth int) (*atlas.Atlas, *gputest.Recorder) {
	t.Helper()
	dev := software.New(software.WithWorkers(1))
	t.Cleanup(dev.Close)
	rec := gputest.NewRecorder(dev)
	a, err := atlas.New(rec, atlas.Config{Width: w, Height: h, Depth: depth, Label: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Destroy)
	return a, rec
}

// gradient fills an image so that every row is distinct.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestNewInvalidConfig(t *testing.T) {
	dev := software.New(software.WithWorkers(1))
	defer dev.Close()

	_, err := atlas.New(dev, atlas.Config{Width: 16, Height: 0, Depth: 1})
	var cfgErr *atlas.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("New() error = %v, want *ConfigError", err)
	}
	if cfgErr.Field != "Height" {
		t.Errorf("ConfigError.Field = %q, want Height", cfgErr.Field)
	}
}

func TestAddPlacesAndRecords(t *testing.T) {
	a, _ := newAtlas(t, 64, 64, 2)

	r1, err := a.Add(gradient(10, 8), "a")
	if err != nil {
		t.Fatalf("Add(a) error = %v", err)
	}
	r2, err := a.Add(gradient(20, 4), "b")
	if err != nil {
		t.Fatalf("Add(b) error = %v", err)
	}

	want1 := atlas.Region{Name: "a", X: 0, Y: 0, Width: 10, Height: 8, Layer: 0}
	want2 := atlas.Region{Name: "b", X: 10, Y: 0, Width: 20, Height: 4, Layer: 0}
	if r1 != want1 {
		t.Errorf("Add(a) = %v, want %v", r1, want1)
	}
	if r2 != want2 {
		t.Errorf("Add(b) = %v, want %v", r2, want2)
	}

	got, ok := a.Coordinates("b")
	if !ok || got != want2 {
		t.Errorf("Coordinates(b) = %v, %v, want %v, true", got, ok, want2)
	}
	if _, ok := a.Coordinates("missing"); ok {
		t.Error("Coordinates(missing) ok = true, want false")
	}
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}
	if a.Layers() != 1 {
		t.Errorf("Layers() = %d, want 1", a.Layers())
	}
	if !slices.Equal(a.Entries(), []atlas.Region{want1, want2}) {
		t.Errorf("Entries() = %v", a.Entries())
	}
}

func TestAddDuplicateName(t *testing.T) {
	a, rec := newAtlas(t, 64, 64, 1)
	if _, err := a.Add(gradient(4, 4), "x"); err != nil {
		t.Fatal(err)
	}
	rec.Reset()

	if _, err := a.Add(gradient(4, 4), "x"); !errors.Is(err, atlas.ErrDuplicateName) {
		t.Errorf("Add(dup) error = %v, want ErrDuplicateName", err)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("device calls on duplicate = %v, want none", rec.Calls())
	}
	// The cursor did not move.
	r, err := a.Add(gradient(4, 4), "y")
	if err != nil {
		t.Fatal(err)
	}
	if r.X != 4 || r.Y != 0 {
		t.Errorf("Add(y) = %v, want at (4,0)", r)
	}
}

func TestAddFullLeavesStateUnchanged(t *testing.T) {
	a, rec := newAtlas(t, 32, 32, 1)
	if _, err := a.Add(solid(32, 20, color.RGBA{R: 9, A: 255}), "big"); err != nil {
		t.Fatal(err)
	}
	before, err := a.ReadLayer(0)
	if err != nil {
		t.Fatal(err)
	}
	entries := a.Entries()
	rec.Reset()

	_, err = a.Add(solid(16, 16, color.RGBA{G: 255, A: 255}), "overflow")
	if !errors.Is(err, atlas.ErrAtlasFull) {
		t.Fatalf("Add(overflow) error = %v, want ErrAtlasFull", err)
	}
	for _, c := range rec.Calls() {
		if strings.HasPrefix(c, "WriteTexture") {
			t.Errorf("overflow issued %s", c)
		}
	}
	if !slices.Equal(a.Entries(), entries) {
		t.Errorf("Entries() = %v after overflow, want %v", a.Entries(), entries)
	}
	if _, ok := a.Coordinates("overflow"); ok {
		t.Error("overflow name was recorded")
	}

	after, err := a.ReadLayer(0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before.Pix, after.Pix) {
		t.Error("texture changed after overflow")
	}

	// Remaining space on the same shelf is still available.
	r, err := a.Add(solid(32, 12, color.RGBA{B: 255, A: 255}), "fits")
	if err != nil {
		t.Fatalf("Add(fits) error = %v", err)
	}
	if r.Y != 20 {
		t.Errorf("Add(fits).Y = %d, want 20", r.Y)
	}
}

func TestAddUploadFailure(t *testing.T) {
	a, rec := newAtlas(t, 32, 32, 1)
	boom := errors.New("boom")
	rec.Fail("WriteTexture", boom)

	if _, err := a.Add(gradient(8, 8), "a"); !errors.Is(err, boom) {
		t.Fatalf("Add() error = %v, want %v", err, boom)
	}
	if a.Len() != 0 {
		t.Errorf("Len() = %d after failed upload, want 0", a.Len())
	}

	rec.Fail("WriteTexture", nil)
	r, err := a.Add(gradient(8, 8), "a")
	if err != nil {
		t.Fatalf("Add() retry error = %v", err)
	}
	if r.X != 0 || r.Y != 0 {
		t.Errorf("Add() retry = %v, want origin", r)
	}
}

func TestAddInvalid(t *testing.T) {
	a, _ := newAtlas(t, 16, 16, 1)
	src := gradient(8, 8)

	tests := []struct {
		name string
		r    image.Rectangle
		want error
	}{
		{"empty", image.Rect(2, 2, 2, 6), atlas.ErrInvalidSize},
		{"outside", image.Rect(4, 4, 12, 12), atlas.ErrRegionOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.AddSubImage(src, tt.name, tt.r); !errors.Is(err, tt.want) {
				t.Errorf("AddSubImage(%v) error = %v, want %v", tt.r, err, tt.want)
			}
		})
	}

	if _, err := a.Add(gradient(17, 2), "wide"); !errors.Is(err, atlas.ErrItemTooLarge) {
		t.Errorf("Add(17x2) error = %v, want ErrItemTooLarge", err)
	}
}

func TestTextureIsFlipped(t *testing.T) {
	dev := software.New(software.WithWorkers(1))
	defer dev.Close()
	a, err := atlas.New(dev, atlas.Config{Width: 8, Height: 8, Depth: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Destroy()

	src := gradient(3, 4)
	if _, err := a.Add(src, "g"); err != nil {
		t.Fatal(err)
	}

	raw, err := dev.ReadTexture(a.Texture(), 0)
	if err != nil {
		t.Fatal(err)
	}
	// Source row 0 lands on the last row of the region.
	for y := range 4 {
		off := 4 * (8 * (3 - y))
		if raw[off+1] != uint8(y) {
			t.Errorf("texture row %d G = %d, want %d", 3-y, raw[off+1], y)
		}
	}
}

func TestRegionUVRowOrder(t *testing.T) {
	dev := software.New(software.WithWorkers(1))
	defer dev.Close()
	a, err := atlas.New(dev, atlas.Config{Width: 8, Height: 8, Depth: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Destroy()

	if _, err := a.Add(gradient(5, 3), "shelf"); err != nil {
		t.Fatal(err)
	}
	r, err := a.Add(gradient(3, 4), "sprite")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := dev.ReadTexture(a.Texture(), 0)
	if err != nil {
		t.Fatal(err)
	}

	uv := r.UV(8, 8)
	x := int(uv[0] * 8)
	rowV0 := int(uv[1] * 8)
	rowV1 := int(uv[3]*8) - 1
	// The texel row at v0 holds the sprite's bottom row, the one next to
	// v1 holds its top row.
	if g := raw[4*(8*rowV0+x)+1]; g != 3 {
		t.Errorf("G at v0 row %d = %d, want 3 (last sprite row)", rowV0, g)
	}
	if g := raw[4*(8*rowV1+x)+1]; g != 0 {
		t.Errorf("G at v1 row %d = %d, want 0 (first sprite row)", rowV1, g)
	}
}

func TestReadLayerUpright(t *testing.T) {
	a, _ := newAtlas(t, 32, 32, 2)
	src := gradient(12, 10)

	if _, err := a.AddSubImage(src, "sub", image.Rect(2, 3, 9, 8)); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Add(gradient(32, 30), "full"); err != nil {
		t.Fatal(err)
	}
	r, _ := a.Coordinates("full")
	if r.Layer != 1 {
		t.Fatalf("full.Layer = %d, want 1", r.Layer)
	}

	img, err := a.ReadLayer(0)
	if err != nil {
		t.Fatal(err)
	}
	for y := range 5 {
		for x := range 7 {
			got := img.RGBAAt(x, y)
			want := src.RGBAAt(x+2, y+3)
			if got != want {
				t.Fatalf("layer 0 (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
	if got := img.RGBAAt(7, 0); got != (color.RGBA{}) {
		t.Errorf("outside region = %v, want transparent", got)
	}

	img1, err := a.ReadLayer(1)
	if err != nil {
		t.Fatal(err)
	}
	if got := img1.RGBAAt(5, 29); got != (color.RGBA{R: 5, G: 29, B: 200, A: 255}) {
		t.Errorf("layer 1 (5,29) = %v", got)
	}
}

func TestWriteLayerPNG(t *testing.T) {
	a, _ := newAtlas(t, 16, 16, 1)
	if _, err := a.Add(gradient(5, 5), "g"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := a.WriteLayerPNG(&buf, 0); err != nil {
		t.Fatalf("WriteLayerPNG() error = %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 16, 16) {
		t.Errorf("bounds = %v", img.Bounds())
	}
	r, g, _, _ := img.At(4, 1).RGBA()
	if r>>8 != 4 || g>>8 != 1 {
		t.Errorf("pixel (4,1) = %d,%d, want 4,1", r>>8, g>>8)
	}
}

func TestWriteManifest(t *testing.T) {
	a, _ := newAtlas(t, 16, 16, 3)
	for _, n := range []string{"one", "two", "three"} {
		if _, err := a.Add(gradient(10, 10), n); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := a.WriteManifest(&buf); err != nil {
		t.Fatalf("WriteManifest() error = %v", err)
	}
	want := "name,x,y,width,height,layer\n" +
		"one,0,0,10,10,0\n" +
		"two,0,0,10,10,1\n" +
		"three,0,0,10,10,2\n"
	if got := buf.String(); got != want {
		t.Errorf("manifest =\n%s\nwant\n%s", got, want)
	}
}

func TestResetAndDestroy(t *testing.T) {
	a, _ := newAtlas(t, 16, 16, 1)
	if _, err := a.Add(solid(16, 16, color.RGBA{R: 255, A: 255}), "a"); err != nil {
		t.Fatal(err)
	}
	old := a.Texture()

	if err := a.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if a.Len() != 0 || a.Layers() != 0 {
		t.Errorf("after Reset Len, Layers = %d, %d, want 0, 0", a.Len(), a.Layers())
	}
	if a.Texture() == old {
		t.Error("Reset kept the old texture")
	}
	img, err := a.ReadLayer(0)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(3, 3); got != (color.RGBA{}) {
		t.Errorf("pixel after Reset = %v, want blank", got)
	}
	if r, err := a.Add(solid(16, 16, color.RGBA{G: 1, A: 255}), "a"); err != nil || r.X != 0 || r.Y != 0 {
		t.Errorf("Add after Reset = %v, %v", r, err)
	}

	a.Destroy()
	a.Destroy()
	if _, err := a.Add(gradient(1, 1), "z"); !errors.Is(err, atlas.ErrClosed) {
		t.Errorf("Add after Destroy error = %v, want ErrClosed", err)
	}
	if _, err := a.ReadLayer(0); !errors.Is(err, atlas.ErrClosed) {
		t.Errorf("ReadLayer after Destroy error = %v, want ErrClosed", err)
	}
}

func TestRegionUV(t *testing.T) {
	r := atlas.Region{X: 16, Y: 32, Width: 16, Height: 64}
	want := [4]float32{0.25, 0.25, 0.5, 0.75}
	if got := r.UV(64, 128); got != want {
		t.Errorf("UV() = %v, want %v", got, want)
	}
	if got := r.Rect(); got != image.Rect(16, 32, 32, 96) {
		t.Errorf("Rect() = %v", got)
	}
}
