package memory

import (
	"encoding/binary"
	"sync"

	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/layout"
)

const (
	// PageSize is the growth granularity of linear memories.
	PageSize = 64 * 1024

	defaultLimit = layout.MaxAlloc
)

// Linear is a growable, Go-backed linear memory with a free-list
// allocator. It implements rtti.Heap.
type Linear struct {
	alloc *FreeList
	data  []byte
	// mu guards the data slice header; contents are not synchronized.
	mu    sync.RWMutex
	limit uint32
}

// Option configures a Linear memory.
type Option func(*Linear)

// WithLimit caps the memory size in bytes.
func WithLimit(limit uint32) Option {
	return func(l *Linear) { l.limit = limit }
}

// WithInitialPages preallocates n pages.
func WithInitialPages(n uint32) Option {
	return func(l *Linear) { l.data = make([]byte, n*PageSize) }
}

// NewLinear creates an empty linear memory.
func NewLinear(opts ...Option) *Linear {
	l := &Linear{limit: defaultLimit}
	for _, opt := range opts {
		opt(l)
	}
	l.alloc = NewFreeList(0, uint32(len(l.data)), l.grow)
	return l
}

func (l *Linear) grow(need uint32) (uint32, error) {
	if need > l.limit {
		return 0, errors.New(errors.PhaseMemory, errors.KindAllocation).
			Detail("need %d bytes, limit %d", need, l.limit).
			Build()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	size := uint32(len(l.data))
	if need <= size {
		return size, nil
	}
	newSize := layout.AlignTo(need, PageSize)
	if doubled := size * 2; doubled > newSize && doubled <= l.limit && doubled > size {
		newSize = doubled
	}
	if newSize > l.limit {
		newSize = l.limit
	}
	data := make([]byte, newSize)
	copy(data, l.data)
	l.data = data
	return newSize, nil
}

// Size returns the current size in bytes.
func (l *Linear) Size() uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint32(len(l.data))
}

// Alloc allocates a block. The block contents are unspecified.
func (l *Linear) Alloc(size, align uint32) (uint32, error) {
	return l.alloc.Alloc(size, align)
}

// Free releases a block.
func (l *Linear) Free(ptr, size, align uint32) {
	l.alloc.Free(ptr, size, align)
}

// Live returns the number of outstanding allocations and their total size.
func (l *Linear) Live() (int, uint64) {
	return l.alloc.Live()
}

func (l *Linear) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(l.data)) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length, uint32(len(l.data)))
	}
	return l.data[offset:end], nil
}

// Read returns a copy of length bytes at offset.
func (l *Linear) Read(offset uint32, length uint32) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, p)
	return out, nil
}

// Write copies data to offset.
func (l *Linear) Write(offset uint32, data []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(p, data)
	return nil
}

func (l *Linear) ReadU8(offset uint32) (uint8, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (l *Linear) ReadU16(offset uint32) (uint16, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (l *Linear) ReadU32(offset uint32) (uint32, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (l *Linear) ReadU64(offset uint32) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

func (l *Linear) WriteU8(offset uint32, value uint8) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, 1)
	if err != nil {
		return err
	}
	p[0] = value
	return nil
}

func (l *Linear) WriteU16(offset uint32, value uint16) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(p, value)
	return nil
}

func (l *Linear) WriteU32(offset uint32, value uint32) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(p, value)
	return nil
}

func (l *Linear) WriteU64(offset uint32, value uint64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(p, value)
	return nil
}
