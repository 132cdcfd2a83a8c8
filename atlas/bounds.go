package atlas

import (
	"image"
	"image/color"
)

// Bounds is the result of DetectSpriteBounds.
type Bounds struct {
	// Rects are the detected sprite rectangles in image coordinates, in
	// row-major order of their top-left corners.
	Rects []image.Rectangle
	// KeyColor is the single foreground color the sprites are outlined in.
	KeyColor color.RGBA
	// Found reports whether any non-background pixel was seen.
	Found bool
}

// DetectSpriteBounds finds rectangular sprites outlined in one flat color
// on a flat background.
//
// The top-left pixel is the background. Rows are scanned top to bottom and
// columns left to right, skipping the outermost pixel border. The first
// non-background pixel fixes the outline color. A pixel of that color whose
// left and top neighbors are background is an upper-left corner; the right
// edge is the first outline pixel on that row whose right neighbor is
// background, and the bottom edge is the first outline pixel below it in
// that column whose bottom neighbor is background. The scan then resumes
// after the right edge. Rectangles include their edge pixels.
//
// Only a single outline color and a single background color are
// recognized. Multi-colored sprites and antialiased edges produce wrong or
// missing rectangles.
func DetectSpriteBounds(img image.Image) Bounds {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return Bounds{}
	}

	px := func(x, y int) color.RGBA {
		return color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		px = func(x, y int) color.RGBA {
			i := rgba.PixOffset(b.Min.X+x, b.Min.Y+y)
			p := rgba.Pix[i : i+4 : i+4]
			return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
		}
	}

	bg := px(0, 0)
	var out Bounds

	isCorner := func(x, y int) bool {
		p := px(x, y)
		if !out.Found && p != bg {
			out.KeyColor = p
			out.Found = true
		}
		return out.Found && p == out.KeyColor && px(x-1, y) == bg && px(x, y-1) == bg
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			if !isCorner(x, y) {
				continue
			}
			rx := -1
			for xx := x; xx < w-1; xx++ {
				if px(xx, y) == out.KeyColor && px(xx+1, y) == bg {
					rx = xx
					break
				}
			}
			if rx < 0 {
				continue
			}
			ry := -1
			for yy := y; yy < h-1; yy++ {
				if px(rx, yy) == out.KeyColor && px(rx, yy+1) == bg {
					ry = yy
					break
				}
			}
			if ry < 0 {
				continue
			}
			out.Rects = append(out.Rects, image.Rect(x, y, rx+1, ry+1).Add(b.Min))
			x = rx
		}
	}
	return out
}

// ChromaKey replaces every pixel equal to key with transparent black.
func ChromaKey(img *image.RGBA, key color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		row := img.Pix[i : i+4*b.Dx()]
		for j := 0; j < len(row); j += 4 {
			if row[j] == key.R && row[j+1] == key.G && row[j+2] == key.B && row[j+3] == key.A {
				row[j], row[j+1], row[j+2], row[j+3] = 0, 0, 0, 0
			}
		}
	}
}
