package stdtypes

import (
	"strconv"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/layout"
	"github.com/wippyai/rtti/types"
	"github.com/wippyai/rtti/wire"
)

// String instances are {data u32, length u32}. The bytes live in a
// separate heap block owned by the instance; the empty string has no
// block.
const (
	stringSize    = 8
	stringDataOff = 0
	stringLenOff  = 4
)

func loadString(h rtti.Heap, addr uint32) (string, error) {
	ptr, err := h.ReadU32(addr + stringDataOff)
	if err != nil {
		return "", err
	}
	n, err := h.ReadU32(addr + stringLenOff)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := h.Read(ptr, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func releaseString(h rtti.Heap, addr uint32) error {
	ptr, err := h.ReadU32(addr + stringDataOff)
	if err != nil {
		return err
	}
	n, err := h.ReadU32(addr + stringLenOff)
	if err != nil {
		return err
	}
	if ptr != rtti.Null {
		h.Free(ptr, n, 1)
	}
	return zero(h, addr, stringSize)
}

func storeString(h rtti.Heap, addr uint32, s string) error {
	if len(s) > layout.MaxStringSize {
		return errors.New(errors.PhaseMemory, errors.KindRangeViolation).
			Type("String").
			Detail("string of %d bytes exceeds %d", len(s), layout.MaxStringSize).
			Build()
	}
	if err := releaseString(h, addr); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	n := uint32(len(s))
	ptr, err := h.Alloc(n, 1)
	if err != nil {
		return err
	}
	if err := h.Write(ptr, []byte(s)); err != nil {
		h.Free(ptr, n, 1)
		return err
	}
	if err := h.WriteU32(addr+stringDataOff, ptr); err != nil {
		return err
	}
	return h.WriteU32(addr+stringLenOff, n)
}

// stringAtom is a heap-backed text atom. Its binary form is a u32 byte
// length followed by the bytes. A declared range bounds the length.
func stringAtom(id types.ID) *types.Type {
	return types.NewAtom(id, &types.Atom{
		TypeName:  "String",
		Impl:      "String",
		Size:      stringSize,
		Alignment: 4,
		Ops: types.AtomOps{
			Construct: func(h rtti.Heap, addr uint32) error {
				return zero(h, addr, stringSize)
			},
			Destruct: releaseString,
			ToString: loadString,
			FromString: func(h rtti.Heap, addr uint32, text string) error {
				return storeString(h, addr, text)
			},
			Copy: func(h rtti.Heap, dst, src uint32) error {
				s, err := loadString(h, src)
				if err != nil {
					return err
				}
				return storeString(h, dst, s)
			},
			Equals: func(h rtti.Heap, a, b uint32) (bool, error) {
				sa, err := loadString(h, a)
				if err != nil {
					return false, err
				}
				sb, err := loadString(h, b)
				return sa == sb, err
			},
			Serialize: func(h rtti.Heap, addr uint32, w *wire.Writer) error {
				s, err := loadString(h, addr)
				if err != nil {
					return err
				}
				if err := w.WriteU32(uint32(len(s))); err != nil {
					return err
				}
				return w.WriteBytes([]byte(s))
			},
			SerializedSize: func(h rtti.Heap, addr uint32) (uint32, error) {
				n, err := h.ReadU32(addr + stringLenOff)
				return 4 + n, err
			},
			Deserialize: func(h rtti.Heap, addr uint32, r *wire.Reader) error {
				n, err := r.ReadU32()
				if err != nil {
					return err
				}
				if n > layout.MaxStringSize {
					return errors.Malformed(errors.PhaseDeserialize, nil, "string length "+strconv.FormatUint(uint64(n), 10)+" exceeds limit")
				}
				b, err := r.ReadBytes(int(n))
				if err != nil {
					return err
				}
				return storeString(h, addr, string(b))
			},
			RangeCheck: func(h rtti.Heap, addr uint32, minValue, maxValue string) error {
				n, err := h.ReadU32(addr + stringLenOff)
				if err != nil {
					return err
				}
				lo, hi, err := bounds(unsigned[uint32](4), minValue, maxValue)
				if err != nil {
					return errors.Malformed(errors.PhaseRange, nil, "invalid length bounds "+minValue+".."+maxValue)
				}
				if !within(n, lo, hi) {
					rv := errors.RangeViolation(nil, strconv.FormatUint(uint64(n), 10), minValue, maxValue)
					rv.Type = "String"
					return rv
				}
				return nil
			},
		},
	})
}
