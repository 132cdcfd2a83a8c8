package atlas

import "fmt"

// Placement is where the packer put an item.
type Placement struct {
	X, Y          int
	Width, Height int
	Layer         int
}

// cursor is the packing state: the next free x on the current shelf, the
// shelf's top y, the bottom of the tallest item on the shelf, and the layer.
type cursor struct {
	x, y, nextY, layer int
}

// Packer implements greedy shelf packing over a stack of equal layers.
//
// Items are placed left-to-right on the current shelf. An item that
// overflows the shelf starts a new one at the bottom of the tallest item
// so far; an item that overflows the layer moves to the next layer. The
// packer never backtracks and never reclaims space, so placements are a
// pure function of the insertion order and sizes.
type Packer struct {
	width, height, depth int
	cur                  cursor
}

// NewPacker creates a packer for depth layers of width x height.
func NewPacker(width, height, depth int) *Packer {
	return &Packer{width: width, height: height, depth: depth}
}

// Fit places an item of w x h and advances the cursor.
// On error the cursor is unchanged.
func (p *Packer) Fit(w, h int) (Placement, error) {
	pl, next, err := p.place(w, h)
	if err != nil {
		return Placement{}, err
	}
	p.cur = next
	return pl, nil
}

// place computes a placement and the cursor after it without committing.
func (p *Packer) place(w, h int) (Placement, cursor, error) {
	if w <= 0 || h <= 0 {
		return Placement{}, p.cur, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	if w > p.width || h > p.height {
		return Placement{}, p.cur, fmt.Errorf("%w: %w: %dx%d in %dx%d layers", ErrAtlasFull, ErrItemTooLarge, w, h, p.width, p.height)
	}

	c := p.cur
	if c.x+w > p.width {
		c.x = 0
		c.y = c.nextY
	}
	if c.y+h > p.height {
		if c.layer+1 >= p.depth {
			return Placement{}, p.cur, fmt.Errorf("%w: %dx%d after %d layers", ErrAtlasFull, w, h, p.depth)
		}
		c = cursor{layer: c.layer + 1}
	}

	pl := Placement{X: c.x, Y: c.y, Width: w, Height: h, Layer: c.layer}
	c.nextY = max(c.nextY, c.y+h)
	c.x += w
	return pl, c, nil
}

// Reset returns the cursor to the origin of layer 0.
func (p *Packer) Reset() {
	p.cur = cursor{}
}

// Layer returns the layer the cursor is on.
func (p *Packer) Layer() int {
	return p.cur.layer
}
