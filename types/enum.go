package types

import (
	"github.com/wippyai/rtti/internal/layout"
)

// MaxAliases is the number of alternative names an enum value may carry.
const MaxAliases = 4

type EnumValue struct {
	Name    string
	Aliases []string
	Value   int32
}

// Enum describes both discrete enums and flag enums. Size is 1, 2 or 4.
type Enum struct {
	PodOptimised *Type
	TypeName     string
	Values       []EnumValue
	Size         uint32
	Alignment    uint32
}

// ByName finds a value by its name or one of its aliases. Matching is
// case-sensitive.
func (e *Enum) ByName(name string) (EnumValue, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v, true
		}
	}
	for _, v := range e.Values {
		for _, a := range v.Aliases {
			if a == name {
				return v, true
			}
		}
	}
	return EnumValue{}, false
}

// ByValue finds the first value declared with v.
func (e *Enum) ByValue(v int32) (EnumValue, bool) {
	for _, ev := range e.Values {
		if ev.Value == v {
			return ev, true
		}
	}
	return EnumValue{}, false
}

// BitSet is a set over an enum whose values are bit positions.
type BitSet struct {
	Enum     *Type
	TypeName string
}

// Bits returns the number of bit positions the set must hold.
func (b *BitSet) Bits() int {
	if b.Enum == nil {
		return 0
	}
	e, ok := b.Enum.Enum()
	if !ok {
		return 0
	}
	n := 0
	for _, v := range e.Values {
		if int(v.Value)+1 > n {
			n = int(v.Value) + 1
		}
	}
	return n
}

// Layout returns the storage of the set: the smallest unsigned integer
// holding every position.
func (b *BitSet) Layout() layout.Info {
	info := layout.Flags(b.Bits())
	if info.Size == 0 {
		return layout.Info{Size: 1, Align: 1}
	}
	return info
}
