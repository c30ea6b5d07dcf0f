// Package scalar loads and stores unsigned integers of a runtime width.
package scalar

import (
	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
)

// Load reads a little-endian integer of size bytes, zero-extended.
func Load(m rtti.Memory, addr, size uint32) (uint64, error) {
	switch size {
	case 1:
		v, err := m.ReadU8(addr)
		return uint64(v), err
	case 2:
		v, err := m.ReadU16(addr)
		return uint64(v), err
	case 4:
		v, err := m.ReadU32(addr)
		return uint64(v), err
	case 8:
		return m.ReadU64(addr)
	}
	return 0, widthErr(size)
}

// Store writes the low size bytes of v.
func Store(m rtti.Memory, addr, size uint32, v uint64) error {
	switch size {
	case 1:
		return m.WriteU8(addr, uint8(v))
	case 2:
		return m.WriteU16(addr, uint16(v))
	case 4:
		return m.WriteU32(addr, uint32(v))
	case 8:
		return m.WriteU64(addr, v)
	}
	return widthErr(size)
}

// SignExtend widens the low size bytes of v as a two's complement value.
func SignExtend(v uint64, size uint32) int64 {
	if size >= 8 {
		return int64(v)
	}
	shift := 64 - size*8
	return int64(v<<shift) >> shift
}

// Bounds is the range of integers an enum of size bytes can hold. Both
// the signed and the unsigned readings are accepted.
func Bounds(size uint32) (minV, maxV int64) {
	if size >= 4 {
		return -1 << 31, 1<<32 - 1
	}
	bits := size * 8
	return -(int64(1) << (bits - 1)), int64(1)<<bits - 1
}

func widthErr(size uint32) error {
	return errors.New(errors.PhaseMemory, errors.KindUnsupported).Detail("integer width %d", size).Build()
}
