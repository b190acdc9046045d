package gpu

// Buffer represents a block of memory owned by a Device
type Buffer interface {
	// Size returns the size of the buffer in bytes
	Size() int64

	// Ptr returns the raw address of the storage. For accelerator memory this
	// is a device address and must not be dereferenced on the host.
	Ptr() uintptr

	// CopyToHost copies the first len(dst) bytes of the buffer into dst
	CopyToHost(dst []byte) error

	// CopyFromHost copies src into the start of the buffer
	CopyFromHost(src []byte) error

	// Zero fills the whole buffer with zero bytes
	Zero() error

	// Free releases the buffer
	Free() error

	// Device returns the device that owns this buffer
	Device() Device
}

// HostMemory is implemented by buffers whose storage is addressable from Go
// code: host buffers and buffers of the emulated device.
type HostMemory interface {
	Bytes() []byte
}

// HostBytes returns the Go-visible storage of buf, or nil when buf lives in
// memory the host cannot address directly.
func HostBytes(buf Buffer) []byte {
	if hm, ok := buf.(HostMemory); ok {
		return hm.Bytes()
	}
	return nil
}
