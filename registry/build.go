package registry

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/layout"
	"github.com/wippyai/rtti/internal/scalar"
	"github.com/wippyai/rtti/types"
)

type attrKey struct {
	parent *types.Type
	name   string
}

type builder struct {
	r         *Registry
	info      map[*types.Type]*CompoundInfo
	hasPtr    map[*types.Type]bool
	compounds []*types.Type
}

func newBuilder(r *Registry) *builder {
	return &builder{
		r:      r,
		info:   make(map[*types.Type]*CompoundInfo),
		hasPtr: make(map[*types.Type]bool),
	}
}

func (b *builder) run() error {
	for _, t := range b.r.order {
		if err := b.checkRefs(t); err != nil {
			return err
		}
	}
	for _, t := range b.r.order {
		if err := b.checkType(t); err != nil {
			return err
		}
	}
	if err := b.checkInheritance(); err != nil {
		return err
	}

	b.compounds = lo.Filter(b.r.order, func(t *types.Type, _ int) bool {
		return t.Kind() == types.KindCompound
	})
	for _, t := range b.compounds {
		if _, err := b.resolve(t); err != nil {
			return err
		}
	}
	for i, t := range b.compounds {
		ci := b.info[t]
		if i > 0 {
			ci.Prev = b.compounds[i-1]
		}
		if i+1 < len(b.compounds) {
			ci.Next = b.compounds[i+1]
		}
	}

	for _, t := range b.r.order {
		has := b.hasPointers(t, map[*types.Type]bool{})
		if p, ok := t.Pointer(); ok {
			p.HasPointers = has
		}
		if c, ok := t.Container(); ok {
			c.HasPointers = has
		}
		if ci := b.info[t]; ci != nil {
			ci.HasPointers = has
		}
	}

	for _, t := range b.compounds {
		if err := b.bindHandlers(t); err != nil {
			return err
		}
		b.info[t].PodEligible = b.podEligible(t)
	}
	return nil
}

func (b *builder) registered(t *types.Type) bool {
	got, ok := b.r.byID[t.ID()]
	return ok && got == t
}

func (b *builder) ref(owner *types.Type, field string, target *types.Type, required bool) error {
	if target == nil {
		if !required {
			return nil
		}
		return errors.UnknownType(errors.PhaseBuild, fmt.Sprintf("<nil> referenced by %s.%s", owner.Name(), field))
	}
	if !b.registered(target) {
		return errors.UnknownType(errors.PhaseBuild,
			fmt.Sprintf("%s (#%d) referenced by %s.%s", target.Name(), target.ID(), owner.Name(), field))
	}
	return nil
}

func (b *builder) checkRefs(t *types.Type) error {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if err := b.ref(t, "base", a.Base, false); err != nil {
			return err
		}
		return b.ref(t, "representation", a.Representation, false)

	case types.KindPointer:
		p, _ := t.Pointer()
		return b.ref(t, "item", p.Item, true)

	case types.KindContainer:
		c, _ := t.Container()
		return b.ref(t, "item", c.Item, true)

	case types.KindEnum, types.KindEnumFlags:
		e, _ := t.Enum()
		return b.ref(t, "pod_optimised", e.PodOptimised, false)

	case types.KindEnumBitSet:
		bs, _ := t.BitSet()
		if err := b.ref(t, "enum", bs.Enum, true); err != nil {
			return err
		}
		if bs.Enum.Kind() != types.KindEnum {
			return errors.TypeMismatch(errors.PhaseBuild, t.Name(), "an enum of bit positions")
		}

	case types.KindCompound:
		c, _ := t.Compound()
		for i, base := range c.Bases {
			if err := b.ref(t, fmt.Sprintf("bases[%d]", i), base.Type, true); err != nil {
				return err
			}
			if base.Type.Kind() != types.KindCompound {
				return errors.TypeMismatch(errors.PhaseBuild, t.Name(),
					fmt.Sprintf("compound base, got %s %s", base.Type.Kind(), base.Type.Name()))
			}
		}
		for i := range c.Attributes {
			a := &c.Attributes[i]
			if err := b.ref(t, a.Name, a.Type, false); err != nil {
				return err
			}
		}
		for i, oa := range c.OrderedAttributes {
			if oa.Attribute == nil {
				return errors.InvalidLayout(t.Name(), fmt.Sprintf("ordered_attributes[%d] has no attribute", i))
			}
			if err := b.ref(t, fmt.Sprintf("ordered_attributes[%d].parent", i), oa.Parent, false); err != nil {
				return err
			}
		}
		for i, h := range c.MessageHandlers {
			if err := b.ref(t, fmt.Sprintf("message_handlers[%d]", i), h.Message, true); err != nil {
				return err
			}
			if h.Handler == nil {
				return errors.New(errors.PhaseBuild, errors.KindNilPointer).
					Type(t.Name()).
					Detail("handler for %s is nil", h.Message.Name()).
					Build()
			}
		}
		for i, o := range c.MessageOrder {
			if err := b.ref(t, fmt.Sprintf("message_order[%d].message", i), o.Message, true); err != nil {
				return err
			}
			if err := b.ref(t, fmt.Sprintf("message_order[%d].compound", i), o.Compound, true); err != nil {
				return err
			}
		}
		return b.ref(t, "pod_optimised", c.PodOptimised, false)
	}
	return nil
}

func (b *builder) checkType(t *types.Type) error {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if a.Alignment != 0 && !layout.IsPow2(a.Alignment) {
			return errors.InvalidLayout(t.Name(), fmt.Sprintf("alignment %d is not a power of two", a.Alignment))
		}
		if a.Simple && a.Size == 0 {
			return errors.InvalidLayout(t.Name(), "simple atom has size 0")
		}

	case types.KindEnum, types.KindEnumFlags:
		return b.checkEnum(t)

	case types.KindEnumBitSet:
		bs, _ := t.BitSet()
		e, _ := bs.Enum.Enum()
		for _, v := range e.Values {
			if v.Value < 0 || v.Value >= 64 {
				return errors.InvalidLayout(t.Name(), fmt.Sprintf("bit position %d of %s outside [0, 64)", v.Value, v.Name))
			}
		}

	case types.KindCompound:
		return b.checkCompound(t)
	}
	return nil
}

func (b *builder) checkEnum(t *types.Type) error {
	e, _ := t.Enum()
	switch e.Size {
	case 1, 2, 4:
	default:
		return errors.InvalidLayout(t.Name(), fmt.Sprintf("enum size %d, want 1, 2 or 4", e.Size))
	}

	minV, maxV := scalar.Bounds(e.Size)

	names := make(map[string]bool)
	for _, v := range e.Values {
		if int64(v.Value) < minV || int64(v.Value) > maxV {
			return errors.InvalidLayout(t.Name(), fmt.Sprintf("value %s=%d does not fit %d bytes", v.Name, v.Value, e.Size))
		}
		if len(v.Aliases) > types.MaxAliases {
			return errors.InvalidLayout(t.Name(), fmt.Sprintf("value %s has %d aliases, max %d", v.Name, len(v.Aliases), types.MaxAliases))
		}
		for _, n := range append([]string{v.Name}, v.Aliases...) {
			if n == "" {
				return errors.InvalidLayout(t.Name(), fmt.Sprintf("value %d has an empty name", v.Value))
			}
			if names[n] {
				return errors.DuplicateName(errors.PhaseBuild, t.Name(), n)
			}
			names[n] = true
		}
	}
	return nil
}

func (b *builder) checkCompound(t *types.Type) error {
	c, _ := t.Compound()
	align := max(c.Alignment, 1)
	if !layout.IsPow2(align) {
		return errors.InvalidLayout(t.Name(), fmt.Sprintf("alignment %d is not a power of two", c.Alignment))
	}

	member := func(what string, offset uint32, mt *types.Type) error {
		info := mt.Layout()
		if uint64(offset)+uint64(info.Size) > uint64(c.Size) {
			return errors.InvalidLayout(t.Name(),
				fmt.Sprintf("%s at %d+%d exceeds size %d", what, offset, info.Size, c.Size))
		}
		if offset%info.Align != 0 {
			return errors.InvalidLayout(t.Name(),
				fmt.Sprintf("%s at %d is not aligned to %d", what, offset, info.Align))
		}
		if info.Align > align {
			return errors.InvalidLayout(t.Name(),
				fmt.Sprintf("%s needs alignment %d, compound has %d", what, info.Align, align))
		}
		return nil
	}

	for _, base := range c.Bases {
		if err := member("base "+base.Type.Name(), base.Offset, base.Type); err != nil {
			return err
		}
	}

	names := make(map[string]bool)
	for i := range c.Attributes {
		a := &c.Attributes[i]
		if a.Flags&^types.AttrValidMask != 0 {
			return errors.InvalidFlags(t.Name(), a.Name, uint32(a.Flags), uint32(types.AttrValidMask))
		}
		if a.IsGroup() {
			continue
		}
		if a.Name == "" {
			return errors.InvalidLayout(t.Name(), fmt.Sprintf("attribute %d has no name", i))
		}
		if names[a.Name] {
			return errors.DuplicateName(errors.PhaseBuild, t.Name(), a.Name)
		}
		names[a.Name] = true
		if a.IsProperty() {
			continue
		}
		if err := member("attribute "+a.Name, a.Offset, a.Type); err != nil {
			return err
		}
	}
	return nil
}

// checkInheritance rejects compounds that inherit from themselves.
func (b *builder) checkInheritance() error {
	permanent := make(map[*types.Type]bool)
	temporary := make(map[*types.Type]bool)

	var visit func(t *types.Type, path []string) error
	visit = func(t *types.Type, path []string) error {
		if permanent[t] {
			return nil
		}
		path = append(path, t.Name())
		if temporary[t] {
			return errors.CyclicOrdering(t.Name(), "inheritance cycle "+strings.Join(path, " -> "))
		}
		temporary[t] = true

		c, _ := t.Compound()
		for _, base := range c.Bases {
			if err := visit(base.Type, path); err != nil {
				return err
			}
		}

		delete(temporary, t)
		permanent[t] = true
		return nil
	}

	for _, t := range b.r.order {
		if t.Kind() != types.KindCompound || permanent[t] {
			continue
		}
		if err := visit(t, nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) hasPointers(t *types.Type, visiting map[*types.Type]bool) bool {
	if v, ok := b.hasPtr[t]; ok {
		return v
	}
	if visiting[t] {
		return false
	}
	visiting[t] = true
	defer delete(visiting, t)

	result := false
	switch t.Kind() {
	case types.KindPointer:
		result = true
	case types.KindContainer:
		c, _ := t.Container()
		result = b.hasPointers(c.Item, visiting)
	case types.KindCompound:
		c, _ := t.Compound()
		for _, base := range c.Bases {
			if b.hasPointers(base.Type, visiting) {
				result = true
				break
			}
		}
		for i := range c.Attributes {
			if result {
				break
			}
			a := &c.Attributes[i]
			result = !a.IsGroup() && b.hasPointers(a.Type, visiting)
		}
	}
	b.hasPtr[t] = result
	return result
}

// podEligible reports whether the binary form of t equals its memory
// image: a flat compound of raw scalars laid out back to back.
func (b *builder) podEligible(t *types.Type) bool {
	c, _ := t.Compound()
	ci := b.info[t]
	if c.PodOptimised == nil || len(c.Bases) > 0 || c.SerializeFlags&types.SerializeVersioned != 0 || len(ci.Own) == 0 {
		return false
	}

	end := uint32(0)
	for _, ra := range ci.Own {
		a := ra.Attribute
		if a.IsProperty() || a.Flags.Has(types.AttrDontSerializeBinary) || !rawScalar(a.Type) {
			return false
		}
		if a.Offset != end {
			return false
		}
		end += a.Type.Layout().Size
	}
	return end == c.Size
}

func rawScalar(t *types.Type) bool {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		return a.Simple && a.Ops.Serialize == nil && a.Ops.SerializedSize == nil
	case types.KindPod, types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		return true
	}
	return false
}
