package buffer

import (
	"fmt"
	"math"
)

// Resolution is the width and height of a 2D buffer. The zero value is the
// empty resolution.
type Resolution struct {
	Width, Height int
}

// Point addresses a single element by column and row.
type Point struct {
	X, Y int
}

// Res is shorthand for Resolution{Width: w, Height: h}.
func Res(w, h int) Resolution {
	return Resolution{Width: w, Height: h}
}

// Elements returns Width * Height.
func (r Resolution) Elements() int {
	return r.Width * r.Height
}

// IsEmpty reports whether the resolution holds no elements.
func (r Resolution) IsEmpty() bool {
	return r.Elements() <= 0
}

// Contains reports whether p lies inside the resolution.
func (r Resolution) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < r.Width && p.Y < r.Height
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r Resolution) validate(elemSize int) error {
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidResolution, r)
	}
	if r.Width == 0 || r.Height == 0 {
		return nil
	}
	if elemSize == 0 {
		return fmt.Errorf("%w: cannot hold %s", ErrZeroSizeElement, r)
	}
	if r.Height > math.MaxInt/r.Width || r.Elements() > math.MaxInt/elemSize {
		return fmt.Errorf("%w: %s overflows", ErrInvalidResolution, r)
	}
	return nil
}
