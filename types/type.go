package types

import (
	"fmt"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/internal/layout"
)

// Dispatcher lets operation tables re-enter the engine for item types.
type Dispatcher interface {
	Construct(t *Type, h rtti.Heap, addr uint32) error
	Destruct(t *Type, h rtti.Heap, addr uint32) error
	Copy(t *Type, h rtti.Heap, dst, src uint32) error
	Equals(t *Type, h rtti.Heap, a, b uint32) (bool, error)
}

// Type is a type descriptor: an id, a kind tag and exactly one variant
// matching the tag. Descriptors are created with the New* constructors
// and are immutable once their registry is built.
type Type struct {
	atom      *Atom
	pod       *Pod
	pointer   *Pointer
	container *Container
	enum      *Enum
	bitset    *BitSet
	compound  *Compound
	id        ID
	kind      Kind
	flags     Flags
}

func NewAtom(id ID, a *Atom) *Type {
	return &Type{id: id, kind: KindAtom, atom: a}
}

func NewPod(id ID, p *Pod) *Type {
	return &Type{id: id, kind: KindPod, pod: p}
}

func NewPointer(id ID, p *Pointer) *Type {
	return &Type{id: id, kind: KindPointer, pointer: p}
}

func NewContainer(id ID, c *Container) *Type {
	return &Type{id: id, kind: KindContainer, container: c}
}

func NewEnum(id ID, e *Enum) *Type {
	return &Type{id: id, kind: KindEnum, enum: e}
}

// NewEnumFlags creates an enum whose values are bit masks.
func NewEnumFlags(id ID, e *Enum) *Type {
	return &Type{id: id, kind: KindEnumFlags, enum: e}
}

// NewBitSet creates a set over an enum whose values are bit positions.
func NewBitSet(id ID, b *BitSet) *Type {
	return &Type{id: id, kind: KindEnumBitSet, bitset: b}
}

func NewCompound(id ID, c *Compound) *Type {
	return &Type{id: id, kind: KindCompound, compound: c}
}

// WithFlags sets the origin flags. Call before registration.
func (t *Type) WithFlags(f Flags) *Type {
	t.flags = f
	return t
}

func (t *Type) ID() ID       { return t.id }
func (t *Type) Kind() Kind   { return t.kind }
func (t *Type) Flags() Flags { return t.flags }

// Valid reports whether the variant matching the kind is present.
func (t *Type) Valid() bool {
	if t == nil {
		return false
	}
	switch t.kind {
	case KindAtom:
		return t.atom != nil
	case KindPod:
		return t.pod != nil
	case KindPointer:
		return t.pointer != nil && t.pointer.Data != nil
	case KindContainer:
		return t.container != nil && t.container.Data != nil
	case KindEnum, KindEnumFlags:
		return t.enum != nil
	case KindEnumBitSet:
		return t.bitset != nil
	case KindCompound:
		return t.compound != nil
	}
	return false
}

func (t *Type) Atom() (*Atom, bool)           { return t.atom, t.kind == KindAtom && t.atom != nil }
func (t *Type) Pod() (*Pod, bool)             { return t.pod, t.kind == KindPod && t.pod != nil }
func (t *Type) Pointer() (*Pointer, bool)     { return t.pointer, t.kind == KindPointer && t.pointer != nil }
func (t *Type) Container() (*Container, bool) { return t.container, t.kind == KindContainer && t.container != nil }
func (t *Type) BitSet() (*BitSet, bool)       { return t.bitset, t.kind == KindEnumBitSet && t.bitset != nil }
func (t *Type) Compound() (*Compound, bool)   { return t.compound, t.kind == KindCompound && t.compound != nil }

// Enum returns the variant of both Enum and EnumFlags types.
func (t *Type) Enum() (*Enum, bool) {
	return t.enum, (t.kind == KindEnum || t.kind == KindEnumFlags) && t.enum != nil
}

// Name returns the symbol name. Pointers and containers render as
// Outer<Item>, PODs as POD(size).
func (t *Type) Name() string {
	if t == nil {
		return "?"
	}
	switch t.kind {
	case KindAtom:
		if t.atom != nil {
			return t.atom.TypeName
		}
	case KindPod:
		if t.pod != nil {
			return fmt.Sprintf("POD(%d)", t.pod.Size)
		}
	case KindPointer:
		if t.pointer != nil && t.pointer.Data != nil {
			outer := t.pointer.Data.Name
			if outer == "cptr" {
				outer = "CPtr"
			}
			return outer + "<" + t.pointer.Item.Name() + ">"
		}
	case KindContainer:
		if t.container != nil && t.container.Data != nil {
			return t.container.Data.Name + "<" + t.container.Item.Name() + ">"
		}
	case KindEnum, KindEnumFlags:
		if t.enum != nil {
			return t.enum.TypeName
		}
	case KindEnumBitSet:
		if t.bitset != nil {
			if t.bitset.TypeName != "" {
				return t.bitset.TypeName
			}
			return "BitSet<" + t.bitset.Enum.Name() + ">"
		}
	case KindCompound:
		if t.compound != nil {
			return t.compound.TypeName
		}
	}
	return fmt.Sprintf("<invalid %s #%d>", t.kind, t.id)
}

func (t *Type) String() string { return t.Name() }

// Layout returns the in-memory size and alignment of an instance.
func (t *Type) Layout() layout.Info {
	switch t.kind {
	case KindAtom:
		return layout.Info{Size: t.atom.Size, Align: max(t.atom.Alignment, 1)}
	case KindPod:
		return layout.Info{Size: t.pod.Size, Align: 1}
	case KindPointer:
		return layout.Info{Size: t.pointer.Data.Size, Align: max(t.pointer.Data.Alignment, 1)}
	case KindContainer:
		return layout.Info{Size: t.container.Data.Size, Align: max(t.container.Data.Alignment, 1)}
	case KindEnum, KindEnumFlags:
		align := t.enum.Alignment
		if align == 0 {
			align = t.enum.Size
		}
		return layout.Info{Size: t.enum.Size, Align: max(align, 1)}
	case KindEnumBitSet:
		return t.bitset.Layout()
	case KindCompound:
		return layout.Info{Size: t.compound.Size, Align: max(t.compound.Alignment, 1)}
	}
	return layout.Info{Size: 0, Align: 1}
}

// Size is shorthand for Layout().Size.
func (t *Type) Size() uint32 { return t.Layout().Size }

// IsExactKind reports whether t and other are the same descriptor.
func (t *Type) IsExactKind(other *Type) bool {
	return t == other
}

// IsKind reports whether t is other, derives from it through compound
// bases, or aliases it through atom bases.
func (t *Type) IsKind(other *Type) bool {
	return t.isKind(other, 0)
}

func (t *Type) isKind(other *Type, depth int) bool {
	if t == nil || other == nil || depth > 64 {
		return false
	}
	if t == other {
		return true
	}
	switch t.kind {
	case KindCompound:
		for _, b := range t.compound.Bases {
			if b.Type.isKind(other, depth+1) {
				return true
			}
		}
	case KindAtom:
		if t.atom.Base != nil && t.atom.Base != t {
			return t.atom.Base.isKind(other, depth+1)
		}
	}
	return false
}

// ContainedType returns the item type of pointers and containers and t
// itself otherwise.
func (t *Type) ContainedType() *Type {
	switch t.kind {
	case KindPointer:
		return t.pointer.Item
	case KindContainer:
		return t.container.Item
	}
	return t
}
