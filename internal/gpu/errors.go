package gpu

import "errors"

var (
	// ErrDeviceUnavailable is returned when the requested device cannot be opened
	// on this system (no driver, no hardware, or built without support).
	ErrDeviceUnavailable = errors.New("gpu: device unavailable")

	// ErrInvalidSize is returned for non-positive allocation sizes.
	ErrInvalidSize = errors.New("gpu: invalid buffer size")

	// ErrOutOfMemory is returned when a device cannot satisfy an allocation.
	ErrOutOfMemory = errors.New("gpu: out of device memory")

	// ErrLengthMismatch is returned when a copy would run past either side.
	ErrLengthMismatch = errors.New("gpu: length mismatch")

	// ErrForeignBuffer is returned when a device is handed a buffer it does not own.
	ErrForeignBuffer = errors.New("gpu: buffer belongs to another device")

	// ErrFreed is returned when operating on a released buffer.
	ErrFreed = errors.New("gpu: buffer already freed")
)
