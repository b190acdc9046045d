package buffer

import (
	"math/bits"
	"sync"
)

// minStagingClass is the smallest slice capacity a StagingPool hands out.
const minStagingClass = 64

// StagingPool hands out reusable host slices of a fixed element type. Slices
// are bucketed by power-of-two capacity, so the number of buckets stays small
// however many lengths are requested. Returned slices are zeroed.
type StagingPool[T any] struct {
	pools map[int]*sync.Pool // capacity class -> pool of []T
	mu    sync.RWMutex
}

// NewStagingPool creates an empty pool.
func NewStagingPool[T any]() *StagingPool[T] {
	return &StagingPool[T]{pools: make(map[int]*sync.Pool)}
}

// stagingClass rounds n up to its capacity class.
func stagingClass(n int) int {
	if n <= minStagingClass {
		return minStagingClass
	}
	return 1 << bits.Len(uint(n-1))
}

// Get returns a slice of exactly n elements, reusing a returned one of the
// same class when available.
func (p *StagingPool[T]) Get(n int) []T {
	if n <= 0 {
		return nil
	}
	class := stagingClass(n)

	p.mu.RLock()
	pool, exists := p.pools[class]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Check again after acquiring write lock
		pool, exists = p.pools[class]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return make([]T, class)
				},
			}
			p.pools[class] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().([]T)[:n]
}

// Put returns s to the pool. Slices whose capacity is not a class the pool
// handed out are left to the garbage collector.
func (p *StagingPool[T]) Put(s []T) {
	class := cap(s)
	if class == 0 || stagingClass(class) != class {
		return
	}

	p.mu.RLock()
	pool, exists := p.pools[class]
	p.mu.RUnlock()

	if !exists {
		return
	}

	s = s[:class]
	clear(s)
	pool.Put(s)
}

// Classes returns the number of capacity classes in use.
func (p *StagingPool[T]) Classes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pools)
}

// Clear drops every pooled slice.
func (p *StagingPool[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pools = make(map[int]*sync.Pool)
}
