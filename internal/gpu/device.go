package gpu

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/malei-pku/exposure-render/internal/logging"
	"github.com/malei-pku/exposure-render/internal/system"
)

// Device represents a compute device owning a memory space
type Device interface {
	// Type returns the device type
	Type() DeviceType

	// Name returns a human-readable device name
	Name() string

	// Allocate allocates a buffer of the given size in bytes
	Allocate(size int64) (Buffer, error)

	// Copy copies size bytes from src to dst, both owned by this device
	Copy(dst, src Buffer, size int64) error

	// Sync waits for all pending operations to complete
	Sync() error

	// Free releases the device and all associated resources
	Free() error

	// MemoryUsage returns current memory usage in bytes (used, total)
	MemoryUsage() (int64, int64)
}

// DeviceType represents the type of compute device
type DeviceType int

const (
	DeviceTypeCPU DeviceType = iota
	DeviceTypeGPU
	DeviceTypeEmulated
)

func (dt DeviceType) String() string {
	switch dt {
	case DeviceTypeCPU:
		return "CPU"
	case DeviceTypeGPU:
		return "GPU"
	case DeviceTypeEmulated:
		return "Emulated"
	default:
		return "Unknown"
	}
}

// IsAccelerator reports whether the device type backs the device memory space.
func (dt DeviceType) IsAccelerator() bool {
	return dt == DeviceTypeGPU || dt == DeviceTypeEmulated
}

// GetDefaultDevice returns the default accelerator for the current system.
// A CUDA device is preferred; without one an emulated device configured by
// opts is returned.
func GetDefaultDevice(opts EmulatedOptions) (Device, error) {
	dev, err := NewCUDADevice()
	if err == nil {
		return dev, nil
	}
	logging.Debugf("gpu: CUDA unavailable, using emulated device: %v", err)
	return NewEmulatedDevice(opts), nil
}

// GetDevice returns a device of the specified type. opts only applies to
// DeviceTypeEmulated.
func GetDevice(dtype DeviceType, opts EmulatedOptions) (Device, error) {
	switch dtype {
	case DeviceTypeCPU:
		return NewCPUDevice(), nil
	case DeviceTypeGPU:
		if runtime.GOOS != "linux" {
			return nil, fmt.Errorf("%w: GPU not supported on %s", ErrDeviceUnavailable, runtime.GOOS)
		}
		dev, err := NewCUDADevice()
		if err != nil {
			return nil, err
		}
		return dev, nil
	case DeviceTypeEmulated:
		return NewEmulatedDevice(opts), nil
	default:
		return nil, fmt.Errorf("unknown device type: %v", dtype)
	}
}

// hostAlignment is the alignment of every host allocation: at least 64 bytes,
// or the cache line size when that is larger.
var hostAlignment = max(uintptr(64), unsafe.Sizeof(cpu.CacheLinePad{}))

// allocAligned returns a zeroed slice of size bytes whose first element is
// aligned to hostAlignment.
func allocAligned(size int64) []byte {
	buf := make([]byte, size+int64(hostAlignment))
	addr := uintptr(unsafe.Pointer(&buf[0]))
	shift := int64((hostAlignment - addr%hostAlignment) % hostAlignment)
	return buf[shift : shift+size : shift+size]
}

func addressOf(data []byte) uintptr {
	if len(data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&data[0]))
}

// HostFeatures lists the SIMD features of the host CPU relevant to bulk
// copies and zeroing.
func HostFeatures() []string {
	var features []string
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}
	add(cpu.X86.HasSSE2, "sse2")
	add(cpu.X86.HasAVX, "avx")
	add(cpu.X86.HasAVX2, "avx2")
	add(cpu.X86.HasAVX512F, "avx512f")
	add(cpu.X86.HasERMS, "erms")
	add(cpu.ARM64.HasASIMD, "asimd")
	add(cpu.ARM64.HasSVE, "sve")
	return features
}

// CPUDevice represents host memory
type CPUDevice struct {
	name string
}

// NewCPUDevice creates a new CPU device
func NewCPUDevice() *CPUDevice {
	return &CPUDevice{
		name: fmt.Sprintf("CPU (%s)", runtime.GOARCH),
	}
}

func (d *CPUDevice) Type() DeviceType { return DeviceTypeCPU }
func (d *CPUDevice) Name() string     { return d.name }

func (d *CPUDevice) Allocate(size int64) (buf Buffer, err error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	// make panics on lengths the runtime cannot represent
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("%w: %d bytes: %v", ErrOutOfMemory, size, r)
		}
	}()
	return &cpuBuffer{data: allocAligned(size), device: d}, nil
}

func (d *CPUDevice) Copy(dst, src Buffer, size int64) error {
	dstBytes := HostBytes(dst)
	if dstBytes == nil {
		return fmt.Errorf("dst is not host memory")
	}
	srcBytes := HostBytes(src)
	if srcBytes == nil {
		return fmt.Errorf("src is not host memory")
	}
	if size > int64(len(dstBytes)) || size > int64(len(srcBytes)) {
		return fmt.Errorf("%w: copy size %d exceeds buffer size (dst: %d, src: %d)",
			ErrLengthMismatch, size, len(dstBytes), len(srcBytes))
	}
	copy(dstBytes[:size], srcBytes[:size])
	return nil
}

func (d *CPUDevice) Sync() error {
	// No-op for CPU
	return nil
}

func (d *CPUDevice) Free() error {
	// No-op for CPU
	return nil
}

// MemoryUsage reports system RAM, or zeros when it cannot be read.
func (d *CPUDevice) MemoryUsage() (int64, int64) {
	info, err := system.GetRAMInfo()
	if err != nil {
		return 0, 0
	}
	return info.UsedBytes, info.TotalBytes
}

// WrapHost exposes an existing host slice as a Buffer without copying. The
// returned buffer does not own data; freeing it only drops the reference.
func WrapHost(data []byte) Buffer {
	return &cpuBuffer{data: data, device: NewCPUDevice()}
}

// cpuBuffer implements Buffer for host memory
type cpuBuffer struct {
	data   []byte
	device *CPUDevice
	mu     sync.RWMutex
}

func (b *cpuBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

func (b *cpuBuffer) Ptr() uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return addressOf(b.data)
}

func (b *cpuBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

func (b *cpuBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(dst) > len(b.data) {
		return fmt.Errorf("%w: read of %d bytes from %d byte buffer", ErrLengthMismatch, len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (b *cpuBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(src) > len(b.data) {
		return fmt.Errorf("%w: buffer too small: %d < %d", ErrLengthMismatch, len(b.data), len(src))
	}
	copy(b.data, src)
	return nil
}

func (b *cpuBuffer) Zero() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.data)
	return nil
}

func (b *cpuBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	return nil
}

func (b *cpuBuffer) Device() Device {
	return b.device
}
