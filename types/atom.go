package types

import (
	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/wire"
)

// Atom describes a leaf value with its own textual and binary forms.
type Atom struct {
	Ops AtomOps
	// Base is the atom this one aliases, if any.
	Base *Type
	// Representation is an optimised equivalent type, if any.
	Representation *Type
	TypeName       string
	// Impl names the builtin implementation providing Ops.
	Impl      string
	Reserved  [2]uint64
	Size      uint32
	Alignment uint32
	// Simple atoms are plain bytes: missing ops fall back to byte-wise
	// behaviour instead of failing.
	Simple bool
}

// AtomOps is the atom operation table. Every entry is optional.
type AtomOps struct {
	FromString     func(h rtti.Heap, addr uint32, text string) error
	ToString       func(h rtti.Heap, addr uint32) (string, error)
	Copy           func(h rtti.Heap, dst, src uint32) error
	Equals         func(h rtti.Heap, a, b uint32) (bool, error)
	Construct      func(h rtti.Heap, addr uint32) error
	Destruct       func(h rtti.Heap, addr uint32) error
	Serialize      func(h rtti.Heap, addr uint32, w *wire.Writer) error
	Deserialize    func(h rtti.Heap, addr uint32, r *wire.Reader) error
	SerializedSize func(h rtti.Heap, addr uint32) (uint32, error)
	RangeCheck     func(h rtti.Heap, addr uint32, min, max string) error
}

// Pod is an opaque fixed-size blob.
type Pod struct {
	Size uint32
}
