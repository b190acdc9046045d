package gpu

import (
	"fmt"
	"sync"
)

// EmulatedOptions configures an EmulatedDevice.
type EmulatedOptions struct {
	// Name overrides the reported device name.
	Name string

	// CapacityBytes limits the bytes that may be allocated at once (0 = unlimited).
	CapacityBytes int64

	// PoolMaxBytes enables a buffer pool holding at most this many idle bytes.
	// Zero disables pooling.
	PoolMaxBytes int64
}

// TransferStats counts the primitive operations an EmulatedDevice served.
type TransferStats struct {
	Allocations     int64
	Frees           int64
	Uploads         int64 // host to device
	Downloads       int64 // device to host
	DeviceCopies    int64 // device to device
	Memsets         int64
	BytesUploaded   int64
	BytesDownloaded int64
}

// EmulatedDevice is an accelerator whose memory lives in the Go heap. It keeps
// device storage separate from host storage, so every transfer between the two
// goes through the same primitives a real device would use, and it counts them.
type EmulatedDevice struct {
	name     string
	capacity int64
	pool     *BufferPool

	mu    sync.Mutex
	used  int64
	live  int
	stats TransferStats
}

// NewEmulatedDevice creates an emulated accelerator.
func NewEmulatedDevice(opts EmulatedOptions) *EmulatedDevice {
	name := opts.Name
	if name == "" {
		name = "Emulated accelerator"
	}
	d := &EmulatedDevice{
		name:     name,
		capacity: opts.CapacityBytes,
	}
	if opts.PoolMaxBytes > 0 {
		d.pool = NewBufferPool(d, opts.PoolMaxBytes)
	}
	return d
}

func (d *EmulatedDevice) Type() DeviceType { return DeviceTypeEmulated }
func (d *EmulatedDevice) Name() string     { return d.name }

func (d *EmulatedDevice) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if d.pool != nil {
		return d.pool.Allocate(size)
	}
	return d.allocateDirect(size)
}

// allocateDirect performs buffer allocation without pooling
func (d *EmulatedDevice) allocateDirect(size int64) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capacity > 0 && d.used+size > d.capacity {
		return nil, fmt.Errorf("%w: requested %d bytes with %d of %d in use",
			ErrOutOfMemory, size, d.used, d.capacity)
	}

	d.used += size
	d.live++
	d.stats.Allocations++

	return &emulatedBuffer{data: allocAligned(size), device: d}, nil
}

func (d *EmulatedDevice) Copy(dst, src Buffer, size int64) error {
	dstBuf, ok := unwrapPooled(dst).(*emulatedBuffer)
	if !ok || dstBuf.device != d {
		return fmt.Errorf("%w: dst", ErrForeignBuffer)
	}
	srcBuf, ok := unwrapPooled(src).(*emulatedBuffer)
	if !ok || srcBuf.device != d {
		return fmt.Errorf("%w: src", ErrForeignBuffer)
	}
	if size > dst.Size() || size > src.Size() {
		return fmt.Errorf("%w: copy size %d exceeds buffer size (dst: %d, src: %d)",
			ErrLengthMismatch, size, dst.Size(), src.Size())
	}
	if dstBuf.data == nil || srcBuf.data == nil {
		return ErrFreed
	}

	copy(dstBuf.data[:size], srcBuf.data[:size])

	d.mu.Lock()
	d.stats.DeviceCopies++
	d.mu.Unlock()
	return nil
}

func (d *EmulatedDevice) Sync() error {
	return nil
}

// Free drops every idle pooled buffer. Live buffers stay valid.
func (d *EmulatedDevice) Free() error {
	if d.pool != nil {
		return d.pool.Clear()
	}
	return nil
}

// MemoryUsage returns allocated bytes and the capacity (0 when unlimited).
func (d *EmulatedDevice) MemoryUsage() (int64, int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used, d.capacity
}

// LiveBuffers returns the number of allocations not yet released to the device.
func (d *EmulatedDevice) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Stats returns a snapshot of the transfer counters.
func (d *EmulatedDevice) Stats() TransferStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// ResetStats zeroes the transfer counters.
func (d *EmulatedDevice) ResetStats() {
	d.mu.Lock()
	d.stats = TransferStats{}
	d.mu.Unlock()
}

// PoolStats returns buffer pool statistics
func (d *EmulatedDevice) PoolStats() PoolStats {
	if d.pool != nil {
		return d.pool.Stats()
	}
	return PoolStats{}
}

func (d *EmulatedDevice) record(fn func(s *TransferStats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

func (d *EmulatedDevice) release(size int64) {
	d.mu.Lock()
	d.used -= size
	d.live--
	d.stats.Frees++
	d.mu.Unlock()
}

// emulatedBuffer implements Buffer for emulated device memory
type emulatedBuffer struct {
	data   []byte
	device *EmulatedDevice
	mu     sync.RWMutex
}

func (b *emulatedBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

func (b *emulatedBuffer) Ptr() uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return addressOf(b.data)
}

// Bytes exposes device storage to the host; only the emulated device can.
func (b *emulatedBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

func (b *emulatedBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return ErrFreed
	}
	if len(dst) > len(b.data) {
		return fmt.Errorf("%w: read of %d bytes from %d byte buffer", ErrLengthMismatch, len(dst), len(b.data))
	}
	copy(dst, b.data)
	b.device.record(func(s *TransferStats) {
		s.Downloads++
		s.BytesDownloaded += int64(len(dst))
	})
	return nil
}

func (b *emulatedBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return ErrFreed
	}
	if len(src) > len(b.data) {
		return fmt.Errorf("%w: buffer too small: %d < %d", ErrLengthMismatch, len(b.data), len(src))
	}
	copy(b.data, src)
	b.device.record(func(s *TransferStats) {
		s.Uploads++
		s.BytesUploaded += int64(len(src))
	})
	return nil
}

func (b *emulatedBuffer) Zero() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return ErrFreed
	}
	clear(b.data)
	b.device.record(func(s *TransferStats) { s.Memsets++ })
	return nil
}

func (b *emulatedBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil
	}
	b.device.release(int64(len(b.data)))
	b.data = nil
	return nil
}

func (b *emulatedBuffer) Device() Device {
	return b.device
}
