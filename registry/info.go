package registry

import (
	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/types"
)

// ResolvedAttribute is an attribute of a compound or of one of its bases,
// placed relative to the derived instance.
type ResolvedAttribute struct {
	Attribute *types.Attribute
	// Parent is the compound declaring the attribute.
	Parent *types.Type
	Group  string
	// Base is the offset of Parent's sub-object in the derived instance.
	Base uint32
}

// Offset is the attribute's offset in the derived instance.
func (a ResolvedAttribute) Offset() uint32 { return a.Base + a.Attribute.Offset }

// Handler is a message handler bound to the sub-object that declares it.
type Handler struct {
	Owner  *types.Type
	Fn     func(h rtti.Heap, obj, payload uint32) error
	Offset uint32
}

// CompoundInfo is derived from a compound when the registry is built.
type CompoundInfo struct {
	Type *types.Type
	Next *types.Type
	Prev *types.Type

	// Attributes is the resolved set: bases depth-first, then own
	// attributes, without group markers and without duplicates.
	Attributes []ResolvedAttribute
	// Ordered is the presentation order of the resolved set.
	Ordered []ResolvedAttribute
	// Own lists the compound's own attributes in presentation order.
	Own []ResolvedAttribute

	handlers map[*types.Type][]Handler
	byName   map[string]int
	messages []*types.Type

	// PodEligible compounds serialize as their raw bytes when no byte
	// swapping is requested.
	PodEligible bool
	HasPointers bool
}

// Handlers returns the handlers for msg in dispatch order.
func (ci *CompoundInfo) Handlers(msg *types.Type) []Handler {
	return ci.handlers[msg]
}

// Messages returns the messages handled anywhere in the inheritance chain.
func (ci *CompoundInfo) Messages() []*types.Type {
	return append([]*types.Type(nil), ci.messages...)
}

// Attribute finds a resolved attribute by name.
func (ci *CompoundInfo) Attribute(name string) (ResolvedAttribute, bool) {
	i, ok := ci.byName[name]
	if !ok {
		return ResolvedAttribute{}, false
	}
	return ci.Attributes[i], true
}
