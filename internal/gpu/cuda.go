//go:build linux && cgo && cuda

package gpu

/*
#cgo CFLAGS: -I/opt/cuda/include -I/usr/local/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L/usr/local/cuda/lib64 -lcudart

#include <cuda_runtime.h>
#include <stdlib.h>

static const char* getCudaErrorString(cudaError_t error) {
    return cudaGetErrorString(error);
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

// CUDADevice represents a CUDA GPU device
type CUDADevice struct {
	deviceID int
	name     string
	buffers  map[uintptr]*cudaBuffer
	mu       sync.RWMutex
	pool     *BufferPool
}

// Singleton CUDA device, one context per process
var (
	cudaDeviceSingleton *CUDADevice
	cudaDeviceOnce      sync.Once
	cudaDeviceErr       error
)

// NewCUDADevice returns the singleton CUDA device (created on first call)
func NewCUDADevice() (*CUDADevice, error) {
	cudaDeviceOnce.Do(func() {
		cudaDeviceSingleton, cudaDeviceErr = initCUDADevice()
	})
	return cudaDeviceSingleton, cudaDeviceErr
}

func cudaError(err C.cudaError_t) string {
	return C.GoString(C.getCudaErrorString(err))
}

func initCUDADevice() (*CUDADevice, error) {
	var deviceCount C.int
	err := C.cudaGetDeviceCount(&deviceCount)
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("%w: CUDA not available: %s", ErrDeviceUnavailable, cudaError(err))
	}

	if deviceCount == 0 {
		return nil, fmt.Errorf("%w: no CUDA devices found", ErrDeviceUnavailable)
	}

	// TODO: honor a device index from config once multi-GPU hosts are supported
	deviceID := 0
	err = C.cudaSetDevice(C.int(deviceID))
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to set CUDA device %d: %s", deviceID, cudaError(err))
	}

	var props C.struct_cudaDeviceProp
	err = C.cudaGetDeviceProperties(&props, C.int(deviceID))
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to get device properties: %s", cudaError(err))
	}

	dev := &CUDADevice{
		deviceID: deviceID,
		name:     C.GoString(&props.name[0]),
		buffers:  make(map[uintptr]*cudaBuffer),
	}

	var free, total C.size_t
	err = C.cudaMemGetInfo(&free, &total)
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to get memory info: %s", cudaError(err))
	}

	// Idle buffers may hold up to 90% of free memory
	dev.pool = NewBufferPool(dev, int64(free)*9/10)

	return dev, nil
}

func (d *CUDADevice) Type() DeviceType {
	return DeviceTypeGPU
}

func (d *CUDADevice) Name() string {
	return d.name
}

func (d *CUDADevice) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if d.pool != nil {
		return d.pool.Allocate(size)
	}
	return d.allocateDirect(size)
}

// allocateDirect performs direct buffer allocation without pooling
func (d *CUDADevice) allocateDirect(size int64) (Buffer, error) {
	var ptr unsafe.Pointer
	err := C.cudaMalloc(&ptr, C.size_t(size))
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("%w: cudaMalloc of %d bytes: %s", ErrOutOfMemory, size, cudaError(err))
	}

	buf := &cudaBuffer{
		ptr:    ptr,
		size:   size,
		device: d,
	}

	d.mu.Lock()
	d.buffers[uintptr(ptr)] = buf
	d.mu.Unlock()

	return buf, nil
}

func (d *CUDADevice) Copy(dst, src Buffer, size int64) error {
	dstBuf, ok := unwrapPooled(dst).(*cudaBuffer)
	if !ok {
		return fmt.Errorf("%w: dst is not a CUDA buffer", ErrForeignBuffer)
	}
	srcBuf, ok := unwrapPooled(src).(*cudaBuffer)
	if !ok {
		return fmt.Errorf("%w: src is not a CUDA buffer", ErrForeignBuffer)
	}

	if size > dst.Size() || size > src.Size() {
		return fmt.Errorf("%w: copy size %d exceeds buffer size (dst: %d, src: %d)",
			ErrLengthMismatch, size, dst.Size(), src.Size())
	}

	err := C.cudaMemcpy(dstBuf.ptr, srcBuf.ptr, C.size_t(size), C.cudaMemcpyDeviceToDevice)
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to copy CUDA buffer: %s", cudaError(err))
	}

	return nil
}

func (d *CUDADevice) Sync() error {
	err := C.cudaDeviceSynchronize()
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to synchronize CUDA device: %s", cudaError(err))
	}
	return nil
}

func (d *CUDADevice) Free() error {
	// Clear the pool before taking the device lock; pooled frees take it too
	if d.pool != nil {
		d.pool.Clear()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, buf := range d.buffers {
		if buf.ptr != nil {
			C.cudaFree(buf.ptr)
			buf.ptr = nil
		}
	}
	d.buffers = make(map[uintptr]*cudaBuffer)

	err := C.cudaDeviceReset()
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to reset CUDA device: %s", cudaError(err))
	}

	return nil
}

func (d *CUDADevice) MemoryUsage() (int64, int64) {
	var free, total C.size_t
	err := C.cudaMemGetInfo(&free, &total)
	if err != C.cudaSuccess {
		return 0, 0
	}

	used := int64(total) - int64(free)
	return used, int64(total)
}

// PoolStats returns buffer pool statistics
func (d *CUDADevice) PoolStats() PoolStats {
	if d.pool != nil {
		return d.pool.Stats()
	}
	return PoolStats{}
}

// cudaBuffer implements Buffer for CUDA GPU memory
type cudaBuffer struct {
	ptr    unsafe.Pointer
	size   int64
	device *CUDADevice
	mu     sync.RWMutex
}

func (b *cudaBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *cudaBuffer) Ptr() uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uintptr(b.ptr)
}

func (b *cudaBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.ptr == nil {
		return ErrFreed
	}
	if int64(len(dst)) > b.size {
		return fmt.Errorf("%w: read of %d bytes from %d byte buffer", ErrLengthMismatch, len(dst), b.size)
	}
	if len(dst) == 0 {
		return nil
	}

	err := C.cudaMemcpy(unsafe.Pointer(&dst[0]), b.ptr, C.size_t(len(dst)), C.cudaMemcpyDeviceToHost)
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to copy to host: %s", cudaError(err))
	}

	return nil
}

func (b *cudaBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ptr == nil {
		return ErrFreed
	}
	if b.size < int64(len(src)) {
		return fmt.Errorf("%w: buffer too small: %d < %d", ErrLengthMismatch, b.size, len(src))
	}
	if len(src) == 0 {
		return nil
	}

	err := C.cudaMemcpy(b.ptr, unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice)
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to copy from host: %s", cudaError(err))
	}

	return nil
}

func (b *cudaBuffer) Zero() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ptr == nil {
		return ErrFreed
	}

	err := C.cudaMemset(b.ptr, 0, C.size_t(b.size))
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to zero CUDA buffer: %s", cudaError(err))
	}

	return nil
}

func (b *cudaBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ptr != nil {
		if b.device != nil {
			b.device.mu.Lock()
			delete(b.device.buffers, uintptr(b.ptr))
			b.device.mu.Unlock()
		}

		err := C.cudaFree(b.ptr)
		if err != C.cudaSuccess {
			return fmt.Errorf("failed to free CUDA buffer: %s", cudaError(err))
		}
		b.ptr = nil
	}

	return nil
}

func (b *cudaBuffer) Device() Device {
	return b.device
}
