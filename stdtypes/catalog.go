package stdtypes

import (
	"github.com/wippyai/rtti/registry"
	"github.com/wippyai/rtti/types"
)

// AtomNames lists the builtin atoms in id order.
var AtomNames = []string{
	"bool",
	"int8", "uint8",
	"int16", "uint16",
	"int32", "uint32",
	"int64", "uint64",
	"float", "double",
	"String",
	"GGUUID",
}

// Catalog holds one instance of every builtin atom with ids assigned
// from a base, and resolves flavour names for schema documents.
type Catalog struct {
	atoms      map[string]*types.Type
	order      []*types.Type
	pointers   map[string]*types.PointerData
	containers map[string]*types.ContainerData
}

// NewCatalog creates the builtin atoms with ids base, base+1, ... in
// AtomNames order.
func NewCatalog(base types.ID) *Catalog {
	c := &Catalog{
		atoms: make(map[string]*types.Type, len(AtomNames)),
		pointers: map[string]*types.PointerData{
			Ref.Name:  Ref,
			CPtr.Name: CPtr,
		},
		containers: map[string]*types.ContainerData{
			Array.Name:   Array,
			HashSet.Name: HashSet,
		},
	}
	for i, name := range AtomNames {
		t := newAtom(base+types.ID(i), name)
		c.atoms[name] = t
		c.order = append(c.order, t)
	}
	return c
}

func newAtom(id types.ID, name string) *types.Type {
	switch name {
	case "bool":
		return boolAtom(id)
	case "int8":
		return numeric(id, name, signed[int8](1))
	case "uint8":
		return numeric(id, name, unsigned[uint8](1))
	case "int16":
		return numeric(id, name, signed[int16](2))
	case "uint16":
		return numeric(id, name, unsigned[uint16](2))
	case "int32":
		return numeric(id, name, signed[int32](4))
	case "uint32":
		return numeric(id, name, unsigned[uint32](4))
	case "int64":
		return numeric(id, name, signed[int64](8))
	case "uint64":
		return numeric(id, name, unsigned[uint64](8))
	case "float":
		return numeric(id, name, float32Codec())
	case "double":
		return numeric(id, name, float64Codec())
	case "String":
		return stringAtom(id)
	case "GGUUID":
		return uuidAtom(id)
	}
	panic("stdtypes: no builtin atom " + name)
}

// Atom returns the builtin atom named name, or nil.
func (c *Catalog) Atom(name string) *types.Type {
	return c.atoms[name]
}

// LookupAtom returns the builtin atom named name.
func (c *Catalog) LookupAtom(name string) (*types.Type, bool) {
	t, ok := c.atoms[name]
	return t, ok
}

// Atoms returns the builtin atoms in id order.
func (c *Catalog) Atoms() []*types.Type {
	return append([]*types.Type(nil), c.order...)
}

// PointerData resolves a pointer flavour by name.
func (c *Catalog) PointerData(name string) (*types.PointerData, bool) {
	d, ok := c.pointers[name]
	return d, ok
}

// ContainerData resolves a container flavour by name.
func (c *Catalog) ContainerData(name string) (*types.ContainerData, bool) {
	d, ok := c.containers[name]
	return d, ok
}

// RegisterAll registers every builtin atom.
func (c *Catalog) RegisterAll(reg *registry.Registry) error {
	return reg.RegisterAll(c.order...)
}

// Ref creates an owning pointer type to item.
func (c *Catalog) Ref(id types.ID, item *types.Type) *types.Type {
	return types.NewPointer(id, &types.Pointer{Item: item, Data: Ref})
}

// CPtr creates a non-owning pointer type to item.
func (c *Catalog) CPtr(id types.ID, item *types.Type) *types.Type {
	return types.NewPointer(id, &types.Pointer{Item: item, Data: CPtr})
}

// Array creates a sequential container type of item.
func (c *Catalog) Array(id types.ID, item *types.Type) *types.Type {
	return types.NewContainer(id, &types.Container{Item: item, Data: Array})
}

// HashSet creates an associative container type of item.
func (c *Catalog) HashSet(id types.ID, item *types.Type) *types.Type {
	return types.NewContainer(id, &types.Container{Item: item, Data: HashSet})
}
