//go:build !(linux && cgo && cuda)

package gpu

import "fmt"

// CUDADevice stub for builds without CUDA support
type CUDADevice struct{}

// NewCUDADevice returns an error on unsupported builds
func NewCUDADevice() (*CUDADevice, error) {
	return nil, fmt.Errorf("%w: CUDA support requires Linux with CGO enabled (build with: go build -tags cuda)", ErrDeviceUnavailable)
}

func (d *CUDADevice) Type() DeviceType                       { return DeviceTypeGPU }
func (d *CUDADevice) Name() string                           { return "CUDA (unavailable)" }
func (d *CUDADevice) Allocate(size int64) (Buffer, error)    { return nil, ErrDeviceUnavailable }
func (d *CUDADevice) Copy(dst, src Buffer, size int64) error { return ErrDeviceUnavailable }
func (d *CUDADevice) Sync() error                            { return ErrDeviceUnavailable }
func (d *CUDADevice) Free() error                            { return ErrDeviceUnavailable }
func (d *CUDADevice) MemoryUsage() (int64, int64)            { return 0, 0 }
func (d *CUDADevice) PoolStats() PoolStats                   { return PoolStats{} }
