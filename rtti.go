package rtti

// Memory is a byte-addressed region holding type instances.
// Address 0 is the null address. Multi-byte accessors are little-endian.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of a memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates blocks inside a Memory. Alloc never returns 0.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Heap is a memory paired with its allocator. All dispatch operations
// take a Heap so that owning pointers and containers can allocate.
type Heap interface {
	Memory
	Allocator
}

// Null is the null address.
const Null uint32 = 0
