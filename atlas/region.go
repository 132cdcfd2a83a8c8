package atlas

import (
	"fmt"
	"image"
)

// Region is a named rectangle in one atlas layer. Regions never move once
// placed.
type Region struct {
	Name   string `csv:"name"`
	X      int    `csv:"x"`
	Y      int    `csv:"y"`
	Width  int    `csv:"width"`
	Height int    `csv:"height"`
	Layer  int    `csv:"layer"`
}

// Rect returns the region as an image rectangle within its layer.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// UV returns the region's texture coordinates normalized to a layer of
// w x h texels: u0, v0, u1, v1.
//
// Uploads flip each region's rows in place, so within the region texel rows
// are stored bottom-up: row v0 holds the sprite's last row and row v1 its
// first. To draw the sprite upright, map its top edge to v1 and its bottom
// edge to v0.
func (r Region) UV(w, h int) [4]float32 {
	fw, fh := float32(w), float32(h)
	return [4]float32{
		float32(r.X) / fw,
		float32(r.Y) / fh,
		float32(r.X+r.Width) / fw,
		float32(r.Y+r.Height) / fh,
	}
}

// String returns a string representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("%s(%d,%d %dx%d layer %d)", r.Name, r.X, r.Y, r.Width, r.Height, r.Layer)
}
