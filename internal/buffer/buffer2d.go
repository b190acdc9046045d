package buffer

import (
	"fmt"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/malei-pku/exposure-render/internal/gpu"
	"github.com/malei-pku/exposure-render/internal/logging"
)

// DefaultName is the name given to buffers constructed without one.
const DefaultName = "Buffer (2D)"

// Buffer2D is a resizable two-dimensional array of T whose storage lives in a
// single memory space. Elements are stored row-major and are treated as flat
// bytes, so T must not contain Go pointers.
//
// A Buffer2D is not safe for concurrent use.
type Buffer2D[T any] struct {
	space      Space
	name       string
	resolution Resolution
	count      int
	data       gpu.Buffer
	host       []T // element view of data when the host can address it
	dirty      bool
}

// New returns an empty buffer bound to space. No storage is allocated until
// the buffer is resized.
func New[T any](space Space, name string) *Buffer2D[T] {
	if space == nil {
		space = HostSpace()
	}
	if name == "" {
		name = DefaultName
	}
	return &Buffer2D[T]{space: space, name: name}
}

// NewCopy returns a host buffer holding a copy of other. Like Assign, the copy
// consumes other's dirty flag.
func NewCopy[T any](other *Buffer2D[T]) (*Buffer2D[T], error) {
	b := New[T](HostSpace(), "")
	if err := b.Assign(other); err != nil {
		return nil, err
	}
	return b, nil
}

// Assign copies other into b without changing b's memory space.
//
// The copy is transfer-and-consume: element data moves only when other is
// dirty, and a successful transfer marks other clean. Assigning a clean buffer
// again therefore changes only the name. Callers that need an unconditional
// copy should use Set with other's storage.
func (b *Buffer2D[T]) Assign(other *Buffer2D[T]) error {
	b.trace("assign", other.resolution).WithField("source", other.FullName()).Debug("buffer: assign")

	if other.dirty {
		if err := b.Set(other.space.Kind(), other.resolution, other.data); err != nil {
			return fmt.Errorf("copy from %s: %w", other.name, err)
		}
		other.dirty = false
	}
	b.name = "Copy of " + other.name
	return nil
}

// Free releases the storage and leaves the buffer empty and dirty. The buffer
// is reset even when the release fails; the failure is returned.
func (b *Buffer2D[T]) Free() error {
	b.trace("free", b.resolution).Debug("buffer: free")

	var err error
	if b.data != nil {
		if ferr := b.space.Free(b.data); ferr != nil {
			err = fmt.Errorf("free %s: %w", b.FullName(), ferr)
		}
	}
	b.data = nil
	b.host = nil
	b.resolution = Resolution{}
	b.count = 0
	b.dirty = true
	return err
}

// Destroy resizes the buffer to the empty resolution and marks it dirty.
func (b *Buffer2D[T]) Destroy() error {
	b.trace("destroy", b.resolution).Debug("buffer: destroy")

	if err := b.Resize(Resolution{}); err != nil {
		return err
	}
	b.dirty = true
	return nil
}

// Close releases the buffer's storage.
func (b *Buffer2D[T]) Close() error {
	return b.Destroy()
}

// Reset zero-fills the storage and marks the buffer dirty. It does nothing on
// an empty buffer.
func (b *Buffer2D[T]) Reset() error {
	if b.count <= 0 {
		return nil
	}
	b.trace("reset", b.resolution).Debug("buffer: reset")

	if err := b.space.Zero(b.data); err != nil {
		return fmt.Errorf("reset %s: %w", b.FullName(), err)
	}
	b.dirty = true
	return nil
}

// Resize changes the buffer's resolution. Resizing to the current resolution
// does nothing and keeps the contents. Any other resolution, including one
// with the same element count, replaces the storage with fresh zeroed storage.
//
// If allocation fails the buffer is left empty and the returned error wraps
// ErrAllocation.
func (b *Buffer2D[T]) Resize(res Resolution) error {
	if err := res.validate(elemSize[T]()); err != nil {
		return err
	}
	if res == b.resolution {
		return nil
	}
	b.trace("resize", res).Debug("buffer: resize")

	if err := b.Free(); err != nil {
		return err
	}

	b.resolution = res
	b.count = res.Elements()
	if b.count <= 0 {
		return nil
	}

	size := b.ByteCount()
	data, err := b.space.Allocate(size)
	if err != nil {
		b.resolution = Resolution{}
		b.count = 0
		return fmt.Errorf("%w: %d bytes for %s in %s memory: %w", ErrAllocation, size, res, b.space.Kind(), err)
	}
	b.data = data
	b.host = hostView[T](data, b.count)

	return b.Reset()
}

// Set resizes the buffer to res and copies ByteCount bytes from data, which
// resides in the src memory space. The buffer is marked dirty.
func (b *Buffer2D[T]) Set(src MemorySpace, res Resolution, data gpu.Buffer) error {
	if err := res.validate(elemSize[T]()); err != nil {
		return err
	}
	need := int64(res.Elements()) * int64(elemSize[T]())
	if need > 0 && (data == nil || data.Size() < need) {
		have := int64(0)
		if data != nil {
			have = data.Size()
		}
		return fmt.Errorf("%w: %s needs %d bytes, source holds %d", ErrLengthMismatch, res, need, have)
	}

	b.trace("set", res).WithField("direction", DirectionOf(src, b.space.Kind())).Debug("buffer: set")

	if err := b.Resize(res); err != nil {
		return err
	}
	if b.count <= 0 {
		return nil
	}

	if err := b.space.CopyFrom(b.data, src, data, b.ByteCount()); err != nil {
		return fmt.Errorf("%s copy into %s: %w", DirectionOf(src, b.space.Kind()), b.FullName(), err)
	}
	b.dirty = true
	return nil
}

// SetSlice resizes the buffer to res and copies the first res.Elements()
// values of src into it.
func (b *Buffer2D[T]) SetSlice(res Resolution, src []T) error {
	if err := res.validate(elemSize[T]()); err != nil {
		return err
	}
	if len(src) < res.Elements() {
		return fmt.Errorf("%w: %s needs %d elements, got %d", ErrLengthMismatch, res, res.Elements(), len(src))
	}
	return b.Set(Host, res, gpu.WrapHost(asBytes(src[:res.Elements()])))
}

// ElementCount returns Width * Height.
func (b *Buffer2D[T]) ElementCount() int { return b.count }

// ByteCount returns the size of the storage in bytes.
func (b *Buffer2D[T]) ByteCount() int64 { return int64(b.count) * int64(elemSize[T]()) }

// Data returns the raw storage handle, or nil when the buffer is empty. The
// buffer keeps ownership.
func (b *Buffer2D[T]) Data() gpu.Buffer { return b.data }

func (b *Buffer2D[T]) Resolution() Resolution   { return b.resolution }
func (b *Buffer2D[T]) Space() Space             { return b.space }
func (b *Buffer2D[T]) MemorySpace() MemorySpace { return b.space.Kind() }

// At returns a pointer to the element at column x and row y. The coordinates
// are not checked against the resolution; use Lookup for a checked access.
// The storage must be host addressable.
func (b *Buffer2D[T]) At(x, y int) *T {
	return b.AtIndex(y*b.resolution.Width + x)
}

// AtPoint is At(p.X, p.Y).
func (b *Buffer2D[T]) AtPoint(p Point) *T {
	return b.AtIndex(p.Y*b.resolution.Width + p.X)
}

// AtIndex returns a pointer to the i-th element in row-major order.
func (b *Buffer2D[T]) AtIndex(i int) *T {
	return &b.host[i]
}

// Lookup is the checked form of At. It reports false when (x, y) lies outside
// the resolution or the storage cannot be addressed from the host.
func (b *Buffer2D[T]) Lookup(x, y int) (*T, bool) {
	if b.host == nil || !b.resolution.Contains(Point{X: x, Y: y}) {
		return nil, false
	}
	return &b.host[y*b.resolution.Width+x], true
}

// Elements returns the storage as a row-major slice, or nil when the buffer
// is empty or its storage is not host addressable. The slice aliases the
// buffer and is invalidated by the next resize.
func (b *Buffer2D[T]) Elements() []T { return b.host }

// Snapshot returns a host copy of the elements in any memory space. It does
// not consume the dirty flag.
func (b *Buffer2D[T]) Snapshot() ([]T, error) {
	if b.count <= 0 {
		return nil, nil
	}
	out := make([]T, b.count)
	if b.host != nil {
		copy(out, b.host)
		return out, nil
	}
	if err := b.data.CopyToHost(asBytes(out)); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", b.FullName(), err)
	}
	return out, nil
}

// Dirty reports whether the contents changed since they were last consumed
// by a copy.
func (b *Buffer2D[T]) Dirty() bool { return b.dirty }

// MarkClean clears the dirty flag without copying.
func (b *Buffer2D[T]) MarkClean() { b.dirty = false }

func (b *Buffer2D[T]) Name() string        { return b.name }
func (b *Buffer2D[T]) SetName(name string) { b.name = name }

// FullName labels the buffer with its memory space and resolution for
// diagnostics.
func (b *Buffer2D[T]) FullName() string {
	return fmt.Sprintf("%s (%s, %s)", b.name, b.space.Kind(), b.resolution)
}

func (b *Buffer2D[T]) trace(op string, res Resolution) *logrus.Entry {
	return logging.WithFields(logrus.Fields{
		"buffer":     b.name,
		"space":      b.space.Kind().String(),
		"op":         op,
		"resolution": res.String(),
	})
}

func elemSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// hostView reinterprets host-addressable storage as count elements of T.
func hostView[T any](data gpu.Buffer, count int) []T {
	raw := gpu.HostBytes(data)
	if len(raw) == 0 || len(raw) < count*elemSize[T]() {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(raw))), count)
}

// asBytes reinterprets s as its underlying bytes.
func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*elemSize[T]())
}
