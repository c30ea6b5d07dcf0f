package memory

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
)

// WrapMemory wraps a wazero api.Memory to implement rtti.Memory.
func WrapMemory(mem api.Memory) rtti.Memory {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// Wrapper adapts wazero api.Memory to the rtti.Memory interface.
type Wrapper struct {
	Mem api.Memory
}

func readErr(offset, length uint32, mem api.Memory) error {
	return errors.OutOfBounds(errors.PhaseMemory, offset, length, mem.Size())
}

// Read reads bytes from memory. The slice is a view of guest memory.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, readErr(offset, length, m.Mem)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return readErr(offset, uint32(len(data)), m.Mem)
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, readErr(offset, 1, m.Mem)
	}
	return v, nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Wrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	if !ok {
		return 0, readErr(offset, 2, m.Mem)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, readErr(offset, 4, m.Mem)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Wrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, readErr(offset, 8, m.Mem)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return readErr(offset, 1, m.Mem)
	}
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Wrapper) WriteU16(offset uint32, value uint16) error {
	if !m.Mem.WriteUint16Le(offset, value) {
		return readErr(offset, 2, m.Mem)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return readErr(offset, 4, m.Mem)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return readErr(offset, 8, m.Mem)
	}
	return nil
}

// Size returns the current guest memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

// Guest is a heap inside a wazero guest memory. Blocks are carved from a
// host-managed arena placed after the memory's existing contents; the
// arena grows the guest memory a page at a time.
type Guest struct {
	*Wrapper
	*FreeList
	maxPages uint32
}

// GuestOption configures a Guest heap.
type GuestOption func(*Guest)

// WithMaxPages caps how many pages the arena may grow the memory to.
func WithMaxPages(n uint32) GuestOption {
	return func(g *Guest) { g.maxPages = n }
}

// NewGuest creates a heap whose arena starts at the current end of mem.
func NewGuest(mem api.Memory, opts ...GuestOption) (*Guest, error) {
	if mem == nil {
		return nil, errors.New(errors.PhaseMemory, errors.KindNilPointer).
			Detail("guest memory is nil").
			Build()
	}
	g := &Guest{Wrapper: &Wrapper{Mem: mem}, maxPages: 1 << 14}
	for _, opt := range opts {
		opt(g)
	}
	base := mem.Size()
	g.FreeList = NewFreeList(base, base, g.grow)
	return g, nil
}

func (g *Guest) grow(need uint32) (uint32, error) {
	size := g.Mem.Size()
	if need <= size {
		return size, nil
	}
	pages := (need - size + PageSize - 1) / PageSize
	if size/PageSize+pages > g.maxPages {
		return 0, fmt.Errorf("guest memory limit of %d pages reached", g.maxPages)
	}
	if _, ok := g.Mem.Grow(pages); !ok {
		return 0, fmt.Errorf("guest memory grow by %d pages failed", pages)
	}
	return g.Mem.Size(), nil
}
