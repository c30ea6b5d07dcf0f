package types

import "github.com/wippyai/rtti"

// Pointer describes a slot referring to an instance of Item. Data is
// shared by every pointer type of the same flavour.
type Pointer struct {
	Item *Type
	Data *PointerData
	// HasPointers is computed when the registry is built.
	HasPointers bool
}

// PointerData is the shared layout and operation table of a pointer flavour.
type PointerData struct {
	Name      string
	Ops       PointerOps
	Size      uint32
	Alignment uint32
}

// PointerOps operate on the slot at address slot; t is the pointer type.
type PointerOps struct {
	Construct func(d Dispatcher, t *Type, h rtti.Heap, slot uint32) error
	Destruct  func(d Dispatcher, t *Type, h rtti.Heap, slot uint32) error
	// Get returns the target address, or 0 for null.
	Get func(t *Type, h rtti.Heap, slot uint32) (uint32, error)
	// Set points the slot at target, releasing the previous target if
	// the flavour owns it.
	Set  func(d Dispatcher, t *Type, h rtti.Heap, slot, target uint32) error
	Copy func(d Dispatcher, t *Type, h rtti.Heap, dst, src uint32) error
	// New allocates and constructs a target owned by the slot. Only
	// owning flavours provide it.
	New func(d Dispatcher, t *Type, h rtti.Heap, slot uint32) (uint32, error)
}
