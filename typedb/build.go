package typedb

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/layout"
	"github.com/wippyai/rtti/registry"
	"github.com/wippyai/rtti/stdtypes"
	"github.com/wippyai/rtti/types"
)

type state uint8

const (
	pending state = iota
	completing
	complete
)

type builder struct {
	cat   *stdtypes.Catalog
	defs  map[*types.Type]*Definition
	named map[string]*types.Type
	set   map[types.ID]*types.Type
	state map[*types.Type]state
	next  types.ID
}

// Build creates the descriptors of doc and bootstraps a registry holding
// them together with the builtin atoms of cat. Definitions without an id
// are numbered after the highest id in use, in document order.
func Build(doc *Document, cat *stdtypes.Catalog, opts ...registry.Option) (*registry.Registry, error) {
	set, err := Descriptors(doc, cat)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Bootstrap(set, opts...)
	if err != nil {
		return nil, err
	}
	Logger().Info("built type database",
		zap.String("version", doc.Version),
		zap.Int("definitions", len(doc.Types)),
		zap.Int("types", len(set)))
	return reg, nil
}

// Descriptors creates the descriptors of doc without registering them.
func Descriptors(doc *Document, cat *stdtypes.Catalog) (map[types.ID]*types.Type, error) {
	if _, err := doc.CheckVersion(); err != nil {
		return nil, err
	}
	b := &builder{
		cat:   cat,
		defs:  make(map[*types.Type]*Definition),
		named: make(map[string]*types.Type),
		set:   make(map[types.ID]*types.Type),
		state: make(map[*types.Type]state),
	}
	for _, a := range cat.Atoms() {
		b.named[a.Name()] = a
		b.set[a.ID()] = a
		b.state[a] = complete
		b.next = max(b.next, a.ID()+1)
	}
	for i := range doc.Types {
		b.next = max(b.next, types.ID(doc.Types[i].ID)+1)
	}

	order := make([]*types.Type, 0, len(doc.Types))
	for i := range doc.Types {
		t, err := b.shell(&doc.Types[i])
		if err != nil {
			return nil, err
		}
		order = append(order, t)
	}
	for _, t := range order {
		if err := b.complete(t); err != nil {
			return nil, err
		}
	}
	return b.set, nil
}

func (b *builder) id(def *Definition) types.ID {
	if def.ID != 0 {
		return types.ID(def.ID)
	}
	id := b.next
	b.next++
	return id
}

func (b *builder) add(name string, t *types.Type) error {
	if _, ok := b.named[name]; ok {
		return errors.DuplicateName(errors.PhaseLoad, name, name)
	}
	if prev, ok := b.set[t.ID()]; ok {
		return errors.DuplicateID(uint32(t.ID()), prev.Name())
	}
	b.named[name] = t
	b.set[t.ID()] = t
	return nil
}

// shell creates the descriptor of def with an empty variant, filled in
// by complete once every name is known.
func (b *builder) shell(def *Definition) (*types.Type, error) {
	if def.Name == "" {
		return nil, errors.New(errors.PhaseLoad, errors.KindMalformedInput).
			Detail("definition without a name").
			Build()
	}
	kind, ok := types.ParseKind(def.Kind)
	if !ok {
		return nil, errors.New(errors.PhaseLoad, errors.KindMalformedInput).
			Type(def.Name).
			Detail("unknown kind %q", def.Kind).
			Build()
	}

	id := b.id(def)
	var t *types.Type
	switch kind {
	case types.KindAtom:
		t = types.NewAtom(id, &types.Atom{TypeName: def.Name})
	case types.KindPod:
		t = types.NewPod(id, &types.Pod{Size: def.Size})
	case types.KindPointer:
		t = types.NewPointer(id, &types.Pointer{})
	case types.KindContainer:
		t = types.NewContainer(id, &types.Container{})
	case types.KindEnum:
		t = types.NewEnum(id, &types.Enum{TypeName: def.Name})
	case types.KindEnumFlags:
		t = types.NewEnumFlags(id, &types.Enum{TypeName: def.Name})
	case types.KindEnumBitSet:
		t = types.NewBitSet(id, &types.BitSet{TypeName: def.Name})
	case types.KindCompound:
		t = types.NewCompound(id, &types.Compound{TypeName: def.Name})
	}
	if err := b.add(def.Name, t); err != nil {
		return nil, err
	}
	b.defs[t] = def
	return t, nil
}

// resolve finds a type by name. Flavour<Item> references to undefined
// pointers and containers are instantiated on first use.
func (b *builder) resolve(owner, ref string) (*types.Type, error) {
	if t, ok := b.named[ref]; ok {
		return t, nil
	}
	outer, inner, ok := splitGeneric(ref)
	if !ok {
		return nil, errors.At(errors.UnknownType(errors.PhaseLoad, ref), owner)
	}
	if outer == "CPtr" {
		outer = stdtypes.CPtr.Name
	}

	var t *types.Type
	if pd, ok := b.cat.PointerData(outer); ok {
		t = types.NewPointer(b.next, &types.Pointer{Data: pd})
	} else if cd, ok := b.cat.ContainerData(outer); ok {
		t = types.NewContainer(b.next, &types.Container{Data: cd})
	} else {
		return nil, errors.At(errors.NotFound(errors.PhaseLoad, "flavour", outer), owner)
	}
	b.next++
	if err := b.add(ref, t); err != nil {
		return nil, err
	}
	item, err := b.resolve(owner, inner)
	if err != nil {
		return nil, err
	}
	if p, ok := t.Pointer(); ok {
		p.Item = item
	} else {
		c, _ := t.Container()
		c.Item = item
	}
	b.state[t] = complete
	return t, nil
}

// complete fills in the variant of t. Types whose layout depends on
// another type complete that type first; a dependency back onto a type
// being completed is an infinitely sized value.
func (b *builder) complete(t *types.Type) error {
	switch b.state[t] {
	case complete:
		return nil
	case completing:
		return errors.InvalidLayout(t.Name(), "type contains itself by value")
	}
	b.state[t] = completing

	def := b.defs[t]
	var err error
	switch t.Kind() {
	case types.KindAtom:
		err = b.atom(def, t)
	case types.KindPod:
		if def.Size == 0 {
			err = errors.InvalidLayout(def.Name, "pod without a size")
		}
	case types.KindPointer:
		err = b.pointer(def, t)
	case types.KindContainer:
		err = b.container(def, t)
	case types.KindEnum, types.KindEnumFlags:
		err = b.enum(def, t)
	case types.KindEnumBitSet:
		err = b.bitset(def, t)
	case types.KindCompound:
		err = b.compound(def, t)
	}
	if err != nil {
		return errors.At(err, def.Name)
	}
	b.state[t] = complete
	return nil
}

// layoutOf completes t and returns its layout.
func (b *builder) layoutOf(t *types.Type) (layout.Info, error) {
	if err := b.complete(t); err != nil {
		return layout.Info{}, err
	}
	return t.Layout(), nil
}

func (b *builder) atom(def *Definition, t *types.Type) error {
	if def.Impl == "" {
		return errors.New(errors.PhaseLoad, errors.KindMalformedInput).
			Type(def.Name).
			Detail("atom without impl").
			Build()
	}
	base, err := b.resolve(def.Name, def.Impl)
	if err != nil {
		return err
	}
	if err := b.complete(base); err != nil {
		return err
	}
	ba, ok := base.Atom()
	if !ok {
		return errors.TypeMismatch(errors.PhaseLoad, base.Name(), "atom")
	}
	a, _ := t.Atom()
	a.Ops = ba.Ops
	a.Impl = ba.Impl
	a.Size = ba.Size
	a.Alignment = ba.Alignment
	a.Simple = ba.Simple
	a.Base = base
	return nil
}

func (b *builder) pointer(def *Definition, t *types.Type) error {
	pd, ok := b.cat.PointerData(def.Impl)
	if !ok {
		return errors.NotFound(errors.PhaseLoad, "pointer flavour", def.Impl)
	}
	item, err := b.resolve(def.Name, def.Item)
	if err != nil {
		return err
	}
	p, _ := t.Pointer()
	p.Data = pd
	p.Item = item
	return nil
}

func (b *builder) container(def *Definition, t *types.Type) error {
	cd, ok := b.cat.ContainerData(def.Impl)
	if !ok {
		return errors.NotFound(errors.PhaseLoad, "container flavour", def.Impl)
	}
	item, err := b.resolve(def.Name, def.Item)
	if err != nil {
		return err
	}
	c, _ := t.Container()
	c.Data = cd
	c.Item = item
	return nil
}

func (b *builder) enum(def *Definition, t *types.Type) error {
	e, _ := t.Enum()
	for _, v := range def.Values {
		e.Values = append(e.Values, types.EnumValue{Name: v.Name, Aliases: v.Aliases, Value: v.Value})
	}
	e.Size = def.Size
	if e.Size == 0 {
		e.Size = enumSize(e.Values, t.Kind() == types.KindEnumFlags)
	}
	e.Alignment = def.Alignment
	return nil
}

// enumSize is the smallest of 1, 2 and 4 bytes holding every value.
// Flag masks are unsigned; discrete values are signed.
func enumSize(values []types.EnumValue, flags bool) uint32 {
	size := uint32(1)
	for _, v := range values {
		n := int64(v.Value)
		if flags {
			n = int64(uint32(v.Value))
		}
		switch {
		case flags && n > 0xffff, !flags && (n < -1<<15 || n >= 1<<15):
			size = max(size, 4)
		case flags && n > 0xff, !flags && (n < -1<<7 || n >= 1<<7):
			size = max(size, 2)
		}
	}
	return size
}

func (b *builder) bitset(def *Definition, t *types.Type) error {
	en, err := b.resolve(def.Name, def.Item)
	if err != nil {
		return err
	}
	if err := b.complete(en); err != nil {
		return err
	}
	if en.Kind() != types.KindEnum {
		return errors.TypeMismatch(errors.PhaseLoad, en.Name(), "enum")
	}
	bs, _ := t.BitSet()
	bs.Enum = en
	return nil
}

func (b *builder) compound(def *Definition, t *types.Type) error {
	c, _ := t.Compound()
	c.Version = def.Version
	if def.Versioned {
		c.SerializeFlags |= types.SerializeVersioned
	}

	var fields []layout.Info
	var explicit []*uint32
	for _, bd := range def.Bases {
		bt, err := b.resolve(def.Name, bd.Type)
		if err != nil {
			return err
		}
		info, err := b.layoutOf(bt)
		if err != nil {
			return err
		}
		if bt.Kind() != types.KindCompound {
			return errors.TypeMismatch(errors.PhaseLoad, bt.Name(), "compound")
		}
		c.Bases = append(c.Bases, types.Base{Type: bt})
		fields = append(fields, info)
		explicit = append(explicit, bd.Offset)
	}

	attrs := make([]types.Attribute, 0, len(def.Attributes))
	group := ""
	for _, ad := range def.Attributes {
		at, err := b.resolve(def.Name, ad.Type)
		if err != nil {
			return errors.At(err, ad.Name)
		}
		info, err := b.layoutOf(at)
		if err != nil {
			return errors.At(err, ad.Name)
		}
		flags, err := ParseAttrFlags(ad.Flags)
		if err != nil {
			return errors.At(err, ad.Name)
		}
		if ad.Group != group {
			group = ad.Group
			attrs = append(attrs, types.Attribute{Name: group})
		}
		attrs = append(attrs, types.Attribute{
			Type:  at,
			Name:  ad.Name,
			Min:   ad.Min,
			Max:   ad.Max,
			Flags: flags,
		})
		fields = append(fields, info)
		explicit = append(explicit, ad.Offset)
	}

	offsets, info := place(fields, explicit)
	for i := range c.Bases {
		c.Bases[i].Offset = offsets[i]
	}
	next := len(c.Bases)
	for i := range attrs {
		if attrs[i].IsGroup() {
			continue
		}
		attrs[i].Offset = offsets[next]
		next++
	}
	c.Attributes = attrs

	c.Size = info.Size
	if def.Size != 0 {
		if def.Size < info.Size {
			return errors.InvalidLayout(def.Name, fmt.Sprintf("size %d smaller than its members (%d)", def.Size, info.Size))
		}
		c.Size = def.Size
	}
	c.Alignment = info.Align
	if def.Alignment != 0 {
		c.Alignment = def.Alignment
	}

	return b.order(def, t)
}

// place lays out members. Without explicit offsets it is the record
// rule; explicit offsets pin their member and later members follow it.
func place(fields []layout.Info, explicit []*uint32) ([]uint32, layout.Info) {
	pinned := false
	for _, o := range explicit {
		if o != nil {
			pinned = true
			break
		}
	}
	if !pinned {
		return layout.Record(fields)
	}

	offsets := make([]uint32, len(fields))
	end, maxAlign := uint32(0), uint32(1)
	cursor := uint32(0)
	for i, f := range fields {
		if explicit[i] != nil {
			offsets[i] = *explicit[i]
		} else {
			offsets[i] = layout.AlignTo(cursor, f.Align)
		}
		cursor = offsets[i] + f.Size
		end = max(end, cursor)
		maxAlign = max(maxAlign, f.Align)
	}
	return offsets, layout.Info{Size: layout.AlignTo(end, maxAlign), Align: maxAlign}
}

// order resolves the presentation order. Names resolve against the
// compound's own attributes first, then its bases depth-first.
func (b *builder) order(def *Definition, t *types.Type) error {
	c, _ := t.Compound()
	for _, name := range def.Order {
		parent, a := declaring(t, name)
		if a == nil {
			return errors.InvalidLayout(def.Name, fmt.Sprintf("ordered attribute %q not found", name))
		}
		oa := types.OrderedAttribute{Attribute: a, Parent: parent}
		if parent == t {
			oa.Parent = nil
		}
		c.OrderedAttributes = append(c.OrderedAttributes, oa)
	}
	return nil
}

func declaring(t *types.Type, name string) (*types.Type, *types.Attribute) {
	c, _ := t.Compound()
	for i := range c.Attributes {
		if a := &c.Attributes[i]; !a.IsGroup() && a.Name == name {
			return t, a
		}
	}
	for _, base := range c.Bases {
		if p, a := declaring(base.Type, name); a != nil {
			return p, a
		}
	}
	return nil, nil
}
