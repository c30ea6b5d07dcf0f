package types

import "github.com/wippyai/rtti"

// Container describes a collection of Item instances. Data is shared by
// every container type of the same flavour.
type Container struct {
	Item *Type
	Data *ContainerData
	// HasPointers is computed when the registry is built.
	HasPointers bool
}

// ContainerData is the shared layout and operation table of a container flavour.
type ContainerData struct {
	Name      string
	Ops       ContainerOps
	Size      uint32
	Alignment uint32
	Simple    bool
	// Associative containers hold unique items with no meaningful order.
	Associative bool
}

// Iter is a container cursor. Type is the container type, Container the
// instance address and State is owned by the container implementation.
// Any mutation of the container invalidates outstanding cursors.
type Iter struct {
	Type      *Type
	Container uint32
	State     uint32
}

// ContainerOps is the container operation table. t is the container
// type and addr the container instance.
type ContainerOps struct {
	Construct func(d Dispatcher, t *Type, h rtti.Heap, addr uint32) error
	Destruct  func(d Dispatcher, t *Type, h rtti.Heap, addr uint32) error
	Resize    func(d Dispatcher, t *Type, h rtti.Heap, addr, n uint32) error
	Remove    func(d Dispatcher, t *Type, h rtti.Heap, addr, index uint32) error
	Len       func(t *Type, h rtti.Heap, addr uint32) (uint32, error)

	// IterStart returns a cursor at the first item, or an invalid cursor
	// for an empty container.
	IterStart func(t *Type, h rtti.Heap, addr uint32) (Iter, error)
	// IterEnd returns the end sentinel. Cursors compare by value.
	IterEnd func(t *Type, h rtti.Heap, addr uint32) (Iter, error)
	// IterNext advances a valid cursor.
	IterNext  func(h rtti.Heap, it *Iter) error
	IterDeref func(h rtti.Heap, it Iter) (uint32, error)
	IterValid func(h rtti.Heap, it Iter) bool

	// AddItem inserts a copy of the item at address item. Associative
	// containers return the cursor of an equal item instead of inserting
	// a duplicate.
	AddItem  func(d Dispatcher, t *Type, h rtti.Heap, addr, item uint32) (Iter, error)
	AddEmpty func(d Dispatcher, t *Type, h rtti.Heap, addr uint32) (Iter, error)
	Clear    func(d Dispatcher, t *Type, h rtti.Heap, addr uint32) error

	// Optional bulk text conversion.
	ToString   func(d Dispatcher, t *Type, h rtti.Heap, addr uint32) (string, error)
	FromString func(d Dispatcher, t *Type, h rtti.Heap, addr uint32, text string) error
}
