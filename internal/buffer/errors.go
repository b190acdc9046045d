package buffer

import "errors"

// Sentinel errors returned by buffer operations.
var (
	// ErrAllocation is returned when storage cannot be obtained from a memory
	// space. The underlying device error is wrapped alongside it.
	ErrAllocation = errors.New("buffer: allocation failed")

	// ErrInvalidResolution is returned for resolutions with a negative
	// component or an element count that overflows.
	ErrInvalidResolution = errors.New("buffer: invalid resolution")

	// ErrZeroSizeElement is returned when a non-empty resolution is requested
	// for an element type that occupies no memory.
	ErrZeroSizeElement = errors.New("buffer: zero-size element type")

	// ErrLengthMismatch is returned when source data holds fewer bytes than
	// the destination resolution requires.
	ErrLengthMismatch = errors.New("buffer: source length mismatch")

	// ErrNotHostAddressable is returned when a host-side copy is asked to read
	// or write storage the host cannot address.
	ErrNotHostAddressable = errors.New("buffer: storage is not host addressable")
)
