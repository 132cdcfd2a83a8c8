package atlas

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// AddSheet detects the sprites of a sheet, keys their outline color to
// transparent and adds each one as prefix_<index>.
//
// On error the regions added so far are returned with it.
func (a *Atlas) AddSheet(sheet image.Image, prefix string) ([]Region, error) {
	bounds := DetectSpriteBounds(sheet)
	if len(bounds.Rects) == 0 {
		return nil, ErrNoSprites
	}

	keyed := image.NewRGBA(sheet.Bounds())
	draw.Draw(keyed, keyed.Bounds(), sheet, sheet.Bounds().Min, draw.Src)
	ChromaKey(keyed, bounds.KeyColor)

	regions := make([]Region, 0, len(bounds.Rects))
	for i, r := range bounds.Rects {
		reg, err := a.AddSubImage(keyed, fmt.Sprintf("%s_%d", prefix, i), r)
		if err != nil {
			return regions, err
		}
		regions = append(regions, reg)
	}
	return regions, nil
}
