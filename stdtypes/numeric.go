package stdtypes

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/scalar"
	"github.com/wippyai/rtti/types"
)

// Number is any Go type a numeric atom can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// codec moves a Number between memory and text.
type codec[T Number] struct {
	size   uint32
	load   func(m rtti.Memory, addr uint32) (T, error)
	store  func(m rtti.Memory, addr uint32, v T) error
	parse  func(s string) (T, error)
	format func(v T) string
}

func signed[T constraints.Signed](size uint32) codec[T] {
	bits := int(size * 8)
	return codec[T]{
		size: size,
		load: func(m rtti.Memory, addr uint32) (T, error) {
			v, err := scalar.Load(m, addr, size)
			return T(v), err
		},
		store: func(m rtti.Memory, addr uint32, v T) error {
			return scalar.Store(m, addr, size, uint64(v))
		},
		parse: func(s string) (T, error) {
			n, err := strconv.ParseInt(s, 10, bits)
			return T(n), err
		},
		format: func(v T) string { return strconv.FormatInt(int64(v), 10) },
	}
}

func unsigned[T constraints.Unsigned](size uint32) codec[T] {
	bits := int(size * 8)
	return codec[T]{
		size: size,
		load: func(m rtti.Memory, addr uint32) (T, error) {
			v, err := scalar.Load(m, addr, size)
			return T(v), err
		},
		store: func(m rtti.Memory, addr uint32, v T) error {
			return scalar.Store(m, addr, size, uint64(v))
		},
		parse: func(s string) (T, error) {
			n, err := strconv.ParseUint(s, 10, bits)
			return T(n), err
		},
		format: func(v T) string { return strconv.FormatUint(uint64(v), 10) },
	}
}

func float32Codec() codec[float32] {
	return codec[float32]{
		size: 4,
		load: func(m rtti.Memory, addr uint32) (float32, error) {
			v, err := m.ReadU32(addr)
			return math.Float32frombits(v), err
		},
		store: func(m rtti.Memory, addr uint32, v float32) error {
			return m.WriteU32(addr, math.Float32bits(v))
		},
		parse: func(s string) (float32, error) {
			f, err := strconv.ParseFloat(s, 32)
			return float32(f), err
		},
		format: func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) },
	}
}

func float64Codec() codec[float64] {
	return codec[float64]{
		size: 8,
		load: func(m rtti.Memory, addr uint32) (float64, error) {
			v, err := m.ReadU64(addr)
			return math.Float64frombits(v), err
		},
		store: func(m rtti.Memory, addr uint32, v float64) error {
			return m.WriteU64(addr, math.Float64bits(v))
		},
		parse: func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		},
		format: func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
	}
}

// numeric builds a simple atom whose text form is the decimal value.
// Memory, copy, equality and binary forms use the raw-byte fallbacks.
func numeric[T Number](id types.ID, name string, c codec[T]) *types.Type {
	malformed := func(s string, err error) error {
		return errors.New(errors.PhaseText, errors.KindMalformedInput).
			Type(name).
			Detail("invalid %s %q", name, s).
			Value(s).
			Cause(err).
			Build()
	}

	return types.NewAtom(id, &types.Atom{
		TypeName:  name,
		Impl:      name,
		Size:      c.size,
		Alignment: c.size,
		Simple:    true,
		Ops: types.AtomOps{
			ToString: func(h rtti.Heap, addr uint32) (string, error) {
				v, err := c.load(h, addr)
				if err != nil {
					return "", err
				}
				return c.format(v), nil
			},
			FromString: func(h rtti.Heap, addr uint32, text string) error {
				text = strings.TrimSpace(text)
				v, err := c.parse(text)
				if err != nil {
					return malformed(text, err)
				}
				return c.store(h, addr, v)
			},
			RangeCheck: func(h rtti.Heap, addr uint32, minValue, maxValue string) error {
				v, err := c.load(h, addr)
				if err != nil {
					return err
				}
				lo, hi, err := bounds(c, minValue, maxValue)
				if err != nil {
					return malformed(minValue+".."+maxValue, err)
				}
				if !within(v, lo, hi) {
					rv := errors.RangeViolation(nil, c.format(v), minValue, maxValue)
					rv.Type = name
					return rv
				}
				return nil
			},
		},
	})
}

type bound[T Number] struct {
	v   T
	set bool
}

func bounds[T Number](c codec[T], minValue, maxValue string) (lo, hi bound[T], err error) {
	if minValue != "" {
		if lo.v, err = c.parse(strings.TrimSpace(minValue)); err != nil {
			return lo, hi, err
		}
		lo.set = true
	}
	if maxValue != "" {
		if hi.v, err = c.parse(strings.TrimSpace(maxValue)); err != nil {
			return lo, hi, err
		}
		hi.set = true
	}
	return lo, hi, nil
}

func within[T Number](v T, lo, hi bound[T]) bool {
	if lo.set && v < lo.v {
		return false
	}
	if hi.set && v > hi.v {
		return false
	}
	return true
}
