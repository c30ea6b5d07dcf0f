package types

import "github.com/wippyai/rtti"

// AttrFlags control how an attribute takes part in text and binary forms.
type AttrFlags uint16

const (
	AttrDontSerializeText   AttrFlags = 0x1
	AttrDontSerializeBinary AttrFlags = 0x2
	AttrHidden              AttrFlags = 0x8
	AttrReadOnly            AttrFlags = 0x20

	// AttrValidMask is the set of bits an attribute may carry.
	AttrValidMask AttrFlags = 0xdeb
)

func (f AttrFlags) Has(bit AttrFlags) bool { return f&bit != 0 }

// SerializeFlags control the binary form of a compound.
type SerializeFlags uint16

// SerializeVersioned prefixes the binary form with the u16 version.
const SerializeVersioned SerializeFlags = 0x1

// Attribute is a named member of a compound. An attribute with a nil
// Type is a group marker naming the category of the attributes after it.
//
// Without accessors the value lives at obj+Offset. With both Get and Set
// it is a property: Get copies the value into out, Set assigns from in.
// An attribute with only Get is computed and appears in text form only.
type Attribute struct {
	Type   *Type
	Get    func(h rtti.Heap, obj, out uint32) error
	Set    func(h rtti.Heap, obj, in uint32) error
	Name   string
	Min    string
	Max    string
	Offset uint32
	Flags  AttrFlags
}

func (a *Attribute) IsGroup() bool    { return a.Type == nil }
func (a *Attribute) IsProperty() bool { return a.Get != nil || a.Set != nil }

// IsComputed reports a getter without a setter.
func (a *Attribute) IsComputed() bool { return a.Get != nil && a.Set == nil }

// HasRange reports whether a range is declared.
func (a *Attribute) HasRange() bool { return a.Min != "" || a.Max != "" }

// Stored reports whether the attribute round-trips: a raw field or a
// property with both accessors.
func (a *Attribute) Stored() bool {
	return !a.IsGroup() && (a.Get == nil) == (a.Set == nil)
}

// Base is an inherited compound placed at Offset within the derived one.
type Base struct {
	Type   *Type
	Offset uint32
}

// OrderedAttribute is an attribute in presentation order, with the
// compound that declares it and the group it belongs to.
type OrderedAttribute struct {
	Attribute *Attribute
	Parent    *Type
	Group     string
}

type MessageHandler struct {
	Message *Type
	Handler func(h rtti.Heap, obj, payload uint32) error
}

// MessageOrderEntry constrains the handler of the declaring compound for
// Message to run before (or after) the handler declared by Compound.
type MessageOrderEntry struct {
	Message  *Type
	Compound *Type
	Before   bool
}

// Compound describes a structure with bases, attributes and message
// handlers.
type Compound struct {
	Construct  func(h rtti.Heap, addr uint32) error
	Destruct   func(h rtti.Heap, addr uint32) error
	FromString func(h rtti.Heap, addr uint32, text string) error
	ToString   func(h rtti.Heap, addr uint32) (string, error)
	// SymbolGroup resolves the compound's symbol group for collaborators.
	SymbolGroup  func() *Type
	PodOptimised *Type

	TypeName          string
	Bases             []Base
	Attributes        []Attribute
	OrderedAttributes []OrderedAttribute
	MessageHandlers   []MessageHandler
	MessageOrder      []MessageOrderEntry
	Reserved          [2]uint64

	Size           uint32
	Alignment      uint32
	Version        uint16
	SerializeFlags SerializeFlags
}

// Handler returns the compound's own handler for msg.
func (c *Compound) Handler(msg *Type) (MessageHandler, bool) {
	for _, h := range c.MessageHandlers {
		if h.Message == msg {
			return h, true
		}
	}
	return MessageHandler{}, false
}
