package typedb

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wippyai/rtti/registry"
	"github.com/wippyai/rtti/types"
)

// Export describes every type of a built registry except the builtin
// atoms. Accessor attributes and message handlers are code and are left
// out; raw attributes keep their offsets, so building the document again
// reproduces the layouts.
func Export(reg *registry.Registry) *Document {
	doc := &Document{Version: CurrentVersion}
	skipped := 0
	for _, t := range reg.Types() {
		def, ok := exportType(t)
		if !ok {
			skipped++
			continue
		}
		doc.Types = append(doc.Types, def)
	}
	Logger().Debug("exported type database",
		zap.Int("types", len(doc.Types)),
		zap.Int("builtin", skipped))
	return doc
}

func builtin(a *types.Atom) bool {
	return a.Base == nil && a.Impl == a.TypeName
}

func exportType(t *types.Type) (Definition, bool) {
	def := Definition{Name: t.Name(), Kind: t.Kind().String(), ID: uint32(t.ID())}
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if builtin(a) {
			return def, false
		}
		def.Impl = a.Impl
		if a.Base != nil {
			def.Impl = a.Base.Name()
		}

	case types.KindPod:
		def.Size = t.Size()

	case types.KindPointer:
		p, _ := t.Pointer()
		def.Impl = p.Data.Name
		def.Item = p.Item.Name()

	case types.KindContainer:
		c, _ := t.Container()
		def.Impl = c.Data.Name
		def.Item = c.Item.Name()

	case types.KindEnum, types.KindEnumFlags:
		e, _ := t.Enum()
		def.Size = e.Size
		if e.Alignment != 0 && e.Alignment != e.Size {
			def.Alignment = e.Alignment
		}
		def.Values = lo.Map(e.Values, func(v types.EnumValue, _ int) Value {
			return Value{Name: v.Name, Aliases: v.Aliases, Value: v.Value}
		})

	case types.KindEnumBitSet:
		bs, _ := t.BitSet()
		def.Item = bs.Enum.Name()

	case types.KindCompound:
		exportCompound(t, &def)
	}
	return def, true
}

func exportCompound(t *types.Type, def *Definition) {
	c, _ := t.Compound()
	def.Size = c.Size
	def.Alignment = c.Alignment
	def.Version = c.Version
	def.Versioned = c.SerializeFlags&types.SerializeVersioned != 0

	for _, b := range c.Bases {
		def.Bases = append(def.Bases, BaseDef{Type: b.Type.Name(), Offset: lo.ToPtr(b.Offset)})
	}
	group := ""
	for i := range c.Attributes {
		a := &c.Attributes[i]
		if a.IsGroup() {
			group = a.Name
			continue
		}
		if a.IsProperty() {
			continue
		}
		def.Attributes = append(def.Attributes, AttributeDef{
			Offset: lo.ToPtr(a.Offset),
			Name:   a.Name,
			Type:   a.Type.Name(),
			Group:  group,
			Min:    a.Min,
			Max:    a.Max,
			Flags:  FormatAttrFlags(a.Flags),
		})
	}
	for _, oa := range c.OrderedAttributes {
		if oa.Attribute.IsGroup() || oa.Attribute.IsProperty() {
			continue
		}
		def.Order = append(def.Order, oa.Attribute.Name)
	}
}
