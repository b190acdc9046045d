package buffer

import (
	"fmt"

	"github.com/malei-pku/exposure-render/internal/gpu"
)

// MemorySpace identifies where a buffer's storage lives.
type MemorySpace int

const (
	// Host is ordinary process memory.
	Host MemorySpace = iota
	// Device is accelerator memory.
	Device
)

func (m MemorySpace) String() string {
	switch m {
	case Host:
		return "host"
	case Device:
		return "device"
	default:
		return "unknown"
	}
}

// ParseMemorySpace converts "host" or "device" to a MemorySpace.
func ParseMemorySpace(s string) (MemorySpace, error) {
	switch s {
	case "host":
		return Host, nil
	case "device":
		return Device, nil
	default:
		return Host, fmt.Errorf("unknown memory space %q", s)
	}
}

// Direction is a (source, destination) pair of memory spaces for a transfer.
type Direction int

const (
	HostToHost Direction = iota
	HostToDevice
	DeviceToHost
	DeviceToDevice
)

// DirectionOf returns the transfer direction from src to dst.
func DirectionOf(src, dst MemorySpace) Direction {
	switch {
	case src == Host && dst == Host:
		return HostToHost
	case src == Host:
		return HostToDevice
	case dst == Host:
		return DeviceToHost
	default:
		return DeviceToDevice
	}
}

func (d Direction) String() string {
	switch d {
	case HostToHost:
		return "host->host"
	case HostToDevice:
		return "host->device"
	case DeviceToHost:
		return "device->host"
	case DeviceToDevice:
		return "device->device"
	default:
		return "unknown"
	}
}

// Space holds the storage primitives of one memory space. A buffer keeps the
// Space it was built with and routes every allocation, release, zero fill and
// copy through it.
type Space interface {
	// Kind reports which memory space this is.
	Kind() MemorySpace

	// Device returns the device that owns allocations made here.
	Device() gpu.Device

	// Allocate returns size bytes of storage.
	Allocate(size int64) (gpu.Buffer, error)

	// Free releases storage obtained from Allocate.
	Free(buf gpu.Buffer) error

	// Zero fills buf with zero bytes.
	Zero(buf gpu.Buffer) error

	// CopyFrom copies size bytes from src, which resides in srcKind, into dst,
	// which resides in this space.
	CopyFrom(dst gpu.Buffer, srcKind MemorySpace, src gpu.Buffer, size int64) error
}

var hostSpaceInstance = &hostSpace{dev: gpu.NewCPUDevice()}

// HostSpace returns the host memory space.
func HostSpace() Space {
	return hostSpaceInstance
}

// DeviceSpace returns a device memory space backed by dev.
func DeviceSpace(dev gpu.Device) Space {
	return &deviceSpace{dev: dev}
}

// NewSpace returns the space of the given kind; dev is used for Device and
// ignored for Host.
func NewSpace(kind MemorySpace, dev gpu.Device) (Space, error) {
	switch kind {
	case Host:
		return HostSpace(), nil
	case Device:
		if dev == nil {
			return nil, fmt.Errorf("device memory space requires a device: %w", gpu.ErrDeviceUnavailable)
		}
		return DeviceSpace(dev), nil
	default:
		return nil, fmt.Errorf("unknown memory space %d", kind)
	}
}

type hostSpace struct {
	dev *gpu.CPUDevice
}

func (s *hostSpace) Kind() MemorySpace                       { return Host }
func (s *hostSpace) Device() gpu.Device                      { return s.dev }
func (s *hostSpace) Allocate(size int64) (gpu.Buffer, error) { return s.dev.Allocate(size) }
func (s *hostSpace) Free(buf gpu.Buffer) error               { return buf.Free() }
func (s *hostSpace) Zero(buf gpu.Buffer) error               { return buf.Zero() }

func (s *hostSpace) CopyFrom(dst gpu.Buffer, srcKind MemorySpace, src gpu.Buffer, size int64) error {
	if srcKind == Host {
		return s.dev.Copy(dst, src, size)
	}
	out, err := hostSlice(dst, size)
	if err != nil {
		return err
	}
	return src.CopyToHost(out)
}

type deviceSpace struct {
	dev gpu.Device
}

func (s *deviceSpace) Kind() MemorySpace                       { return Device }
func (s *deviceSpace) Device() gpu.Device                      { return s.dev }
func (s *deviceSpace) Allocate(size int64) (gpu.Buffer, error) { return s.dev.Allocate(size) }
func (s *deviceSpace) Free(buf gpu.Buffer) error               { return buf.Free() }
func (s *deviceSpace) Zero(buf gpu.Buffer) error               { return buf.Zero() }

func (s *deviceSpace) CopyFrom(dst gpu.Buffer, srcKind MemorySpace, src gpu.Buffer, size int64) error {
	if srcKind == Host {
		in, err := hostSlice(src, size)
		if err != nil {
			return err
		}
		return dst.CopyFromHost(in)
	}
	if src.Device() == s.dev {
		return s.dev.Copy(dst, src, size)
	}

	// Storage on another accelerator is staged through host memory
	staged := make([]byte, size)
	if err := src.CopyToHost(staged); err != nil {
		return err
	}
	return dst.CopyFromHost(staged)
}

// hostSlice returns the first size bytes of a host-addressable buffer.
func hostSlice(buf gpu.Buffer, size int64) ([]byte, error) {
	data := gpu.HostBytes(buf)
	if data == nil {
		return nil, ErrNotHostAddressable
	}
	if int64(len(data)) < size {
		return nil, fmt.Errorf("%w: %d bytes available, %d required", ErrLengthMismatch, len(data), size)
	}
	return data[:size], nil
}
