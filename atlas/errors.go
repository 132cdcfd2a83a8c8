package atlas

import "errors"

// Atlas errors.
var (
	// ErrAtlasFull is returned when an item does not fit in any remaining layer.
	ErrAtlasFull = errors.New("atlas: atlas full")

	// ErrItemTooLarge is returned when an item is wider or taller than a layer.
	// Such an item fits in no layer, so the error also matches ErrAtlasFull.
	ErrItemTooLarge = errors.New("atlas: item larger than a layer")

	// ErrInvalidSize is returned for items with a zero or negative dimension.
	ErrInvalidSize = errors.New("atlas: invalid item size")

	// ErrDuplicateName is returned when adding a name that is already placed.
	ErrDuplicateName = errors.New("atlas: duplicate name")

	// ErrRegionOutOfBounds is returned when a source rectangle lies outside the image.
	ErrRegionOutOfBounds = errors.New("atlas: source region outside image")

	// ErrNoSprites is returned by AddSheet when no sprite bounds are detected.
	ErrNoSprites = errors.New("atlas: no sprites detected")

	// ErrClosed is returned when operating on a destroyed atlas.
	ErrClosed = errors.New("atlas: atlas is closed")
)
