package gpu

import (
	"fmt"
	"sync"
)

// BufferPool keeps released device buffers for reuse, grouped by size class
type BufferPool struct {
	device   Device
	pools    map[int64][]*pooledBuffer // size class -> idle buffers
	active   map[uintptr]*pooledBuffer // Ptr -> buffers handed out
	mu       sync.RWMutex
	maxBytes int64 // Maximum idle bytes to keep (0 = unlimited)
	curBytes int64 // Current idle bytes
	stats    PoolStats
}

// PoolStats tracks buffer pool statistics
type PoolStats struct {
	Allocations int64 // Total allocations
	Reuses      int64 // Buffers reused from pool
	Evictions   int64 // Buffers evicted due to memory pressure
	PoolHits    int64 // Successful pool lookups
	PoolMisses  int64 // Failed pool lookups (allocated new)
}

// pooledBuffer wraps a device buffer allocated at its size class so that any
// request of the same class fits when it is reused.
type pooledBuffer struct {
	Buffer
	requestedSize int64 // Size requested by user
	actualSize    int64 // Allocation size (the size class)
	poolKey       int64
	pool          *BufferPool
	inUse         bool
}

// NewBufferPool creates a new buffer pool
// maxBytes: maximum idle memory to keep in pool (0 = unlimited)
func NewBufferPool(device Device, maxBytes int64) *BufferPool {
	return &BufferPool{
		device:   device,
		pools:    make(map[int64][]*pooledBuffer),
		active:   make(map[uintptr]*pooledBuffer),
		maxBytes: maxBytes,
	}
}

// Allocate gets a buffer from the pool or allocates a new one
func (p *BufferPool) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Allocations++

	// Same class first, then one class up
	poolSize := roundUpPowerOf2(size)
	for checkSize := poolSize; checkSize <= poolSize*2; checkSize *= 2 {
		if buffers, ok := p.pools[checkSize]; ok && len(buffers) > 0 {
			buf := buffers[len(buffers)-1]
			p.pools[checkSize] = buffers[:len(buffers)-1]

			buf.inUse = true
			buf.requestedSize = size
			p.active[buf.Ptr()] = buf

			p.curBytes -= buf.actualSize
			p.stats.Reuses++
			p.stats.PoolHits++

			return buf, nil
		}
	}

	p.stats.PoolMisses++

	rawBuf, err := p.allocateDirect(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate device buffer: %w", err)
	}

	poolBuf := &pooledBuffer{
		Buffer:        rawBuf,
		requestedSize: size,
		actualSize:    poolSize,
		poolKey:       poolSize,
		pool:          p,
		inUse:         true,
	}

	p.active[rawBuf.Ptr()] = poolBuf

	return poolBuf, nil
}

// directAllocator is implemented by devices that support direct (non-pooled) allocation
type directAllocator interface {
	allocateDirect(size int64) (Buffer, error)
}

func (p *BufferPool) allocateDirect(size int64) (Buffer, error) {
	if da, ok := p.device.(directAllocator); ok {
		return da.allocateDirect(size)
	}
	return p.device.Allocate(size)
}

// Release returns a buffer to the pool
func (p *BufferPool) Release(buf Buffer) error {
	poolBuf, ok := buf.(*pooledBuffer)
	if !ok {
		return buf.Free()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !poolBuf.inUse {
		return nil
	}

	ptr := poolBuf.Ptr()
	if _, tracked := p.active[ptr]; !tracked {
		return poolBuf.Buffer.Free()
	}

	delete(p.active, ptr)
	poolBuf.inUse = false

	if p.maxBytes > 0 && poolBuf.actualSize > p.maxBytes {
		return poolBuf.Buffer.Free()
	}
	for p.maxBytes > 0 && p.curBytes+poolBuf.actualSize > p.maxBytes {
		p.evict()
	}

	p.pools[poolBuf.poolKey] = append(p.pools[poolBuf.poolKey], poolBuf)
	p.curBytes += poolBuf.actualSize

	return nil
}

// evict frees the oldest idle buffer of some size class
func (p *BufferPool) evict() {
	for size, buffers := range p.pools {
		if len(buffers) == 0 {
			continue
		}
		buf := buffers[0]
		p.pools[size] = buffers[1:]
		p.curBytes -= buf.actualSize
		p.stats.Evictions++
		buf.Buffer.Free()
		return
	}
}

// Clear empties the pool and frees all cached buffers
func (p *BufferPool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error

	for size, buffers := range p.pools {
		for _, buf := range buffers {
			if err := buf.Buffer.Free(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(p.pools, size)
	}

	p.curBytes = 0

	return firstErr
}

// Stats returns current pool statistics
func (p *BufferPool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// MemoryUsage returns idle pooled bytes, bytes handed out, and the limit
func (p *BufferPool) MemoryUsage() (pooled, active, max int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	activeBytes := int64(0)
	for _, buf := range p.active {
		activeBytes += buf.actualSize
	}

	return p.curBytes, activeBytes, p.maxBytes
}

// roundUpPowerOf2 rounds up to the nearest power of 2
func roundUpPowerOf2(n int64) int64 {
	if n <= 0 {
		return 0
	}

	// Small sizes share a few coarse classes
	if n <= 256 {
		return 256
	}
	if n <= 1024 {
		return 1024
	}
	if n <= 4096 {
		return 4096
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++

	return n
}

// unwrapPooled returns the device buffer behind a pooled buffer
func unwrapPooled(b Buffer) Buffer {
	if pooled, ok := b.(*pooledBuffer); ok {
		return pooled.Buffer
	}
	return b
}

func (b *pooledBuffer) Size() int64 {
	return b.requestedSize
}

func (b *pooledBuffer) CopyToHost(dst []byte) error {
	if int64(len(dst)) > b.requestedSize {
		return fmt.Errorf("%w: read of %d bytes from %d byte buffer", ErrLengthMismatch, len(dst), b.requestedSize)
	}
	return b.Buffer.CopyToHost(dst)
}

func (b *pooledBuffer) CopyFromHost(src []byte) error {
	if int64(len(src)) > b.requestedSize {
		return fmt.Errorf("%w: buffer too small: %d < %d", ErrLengthMismatch, b.requestedSize, len(src))
	}
	return b.Buffer.CopyFromHost(src)
}

func (b *pooledBuffer) Bytes() []byte {
	data := HostBytes(b.Buffer)
	if data == nil {
		return nil
	}
	return data[:b.requestedSize]
}

func (b *pooledBuffer) Free() error {
	if b.pool != nil {
		return b.pool.Release(b)
	}
	return b.Buffer.Free()
}
