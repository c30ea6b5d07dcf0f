package layout

import "math"

const (
	MaxStringSize = 1 << 30 // 1 GB max string size
	MaxListLength = 1 << 27 // 128M max elements
	MaxAlloc      = 1 << 30 // 1 GB max single allocation
)

// Info is the size and alignment of a type.
type Info struct {
	Size  uint32
	Align uint32
}

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// IsPow2 reports whether align is a valid alignment.
func IsPow2(align uint32) bool {
	return align != 0 && align&(align-1) == 0
}

// Record lays fields out in order, aligning each one, and returns the
// field offsets with the overall layout.
func Record(fields []Info) ([]uint32, Info) {
	offsets := make([]uint32, len(fields))
	if len(fields) == 0 {
		return offsets, Info{Size: 0, Align: 1}
	}

	maxAlign := uint32(1)
	offset := uint32(0)

	for i, f := range fields {
		offset = AlignTo(offset, f.Align)
		offsets[i] = offset

		if f.Align > maxAlign {
			maxAlign = f.Align
		}

		offset += f.Size
	}

	return offsets, Info{Size: AlignTo(offset, maxAlign), Align: maxAlign}
}

// Flags returns the storage for a set of numFlags bits.
func Flags(numFlags int) Info {
	if numFlags == 0 {
		return Info{Size: 0, Align: 1}
	}

	if numFlags <= 8 {
		return Info{Size: 1, Align: 1}
	} else if numFlags <= 16 {
		return Info{Size: 2, Align: 2}
	} else if numFlags <= 32 {
		return Info{Size: 4, Align: 4}
	} else if numFlags <= 64 {
		return Info{Size: 8, Align: 8}
	}

	// >64 flags: multiple u32s
	numU32s := (numFlags + 31) / 32
	return Info{Size: uint32(numU32s * 4), Align: 4}
}

// Discriminant returns the storage for an enum with numCases values.
func Discriminant(numCases int) Info {
	if numCases <= 256 {
		return Info{Size: 1, Align: 1}
	} else if numCases <= 65536 {
		return Info{Size: 2, Align: 2}
	}
	return Info{Size: 4, Align: 4}
}
