package engine

import (
	"fmt"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/types"
)

// Construct initialises the instance of t at addr. The memory must be
// allocated with t's size and alignment.
func (e *Engine) Construct(t *types.Type, h rtti.Heap, addr uint32) error {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if a.Ops.Construct != nil {
			return a.Ops.Construct(h, addr)
		}
		if a.Simple {
			return zero(h, addr, a.Size)
		}
		return e.unsupported(errors.PhaseConstruct, t, "construct")

	case types.KindPod, types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		return zero(h, addr, t.Layout().Size)

	case types.KindPointer:
		p, _ := t.Pointer()
		if p.Data.Ops.Construct != nil {
			return p.Data.Ops.Construct(e, t, h, addr)
		}
		return zero(h, addr, p.Data.Size)

	case types.KindContainer:
		c, _ := t.Container()
		if c.Data.Ops.Construct == nil {
			return e.unsupported(errors.PhaseConstruct, t, "construct")
		}
		return c.Data.Ops.Construct(e, t, h, addr)

	case types.KindCompound:
		return e.constructCompound(t, h, addr)
	}
	return errors.TypeMismatch(errors.PhaseConstruct, t.Name(), "a known kind")
}

func (e *Engine) constructCompound(t *types.Type, h rtti.Heap, addr uint32) error {
	c, _ := t.Compound()
	if err := zero(h, addr, c.Size); err != nil {
		return err
	}
	for _, b := range c.Bases {
		if err := e.Construct(b.Type, h, addr+b.Offset); err != nil {
			return err
		}
	}
	for i := range c.Attributes {
		a := &c.Attributes[i]
		if a.IsGroup() || a.IsProperty() {
			continue
		}
		if err := e.Construct(a.Type, h, addr+a.Offset); err != nil {
			return errors.At(err, a.Name)
		}
	}
	if c.Construct != nil {
		return c.Construct(h, addr)
	}
	return nil
}

// Destruct releases everything the instance at addr owns. The memory
// itself is not freed.
func (e *Engine) Destruct(t *types.Type, h rtti.Heap, addr uint32) error {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if a.Ops.Destruct != nil {
			return a.Ops.Destruct(h, addr)
		}
		if a.Simple {
			return nil
		}
		return e.unsupported(errors.PhaseDestruct, t, "destruct")

	case types.KindPod, types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		return nil

	case types.KindPointer:
		p, _ := t.Pointer()
		if p.Data.Ops.Destruct != nil {
			return p.Data.Ops.Destruct(e, t, h, addr)
		}
		return nil

	case types.KindContainer:
		c, _ := t.Container()
		if c.Data.Ops.Destruct == nil {
			return e.unsupported(errors.PhaseDestruct, t, "destruct")
		}
		return c.Data.Ops.Destruct(e, t, h, addr)

	case types.KindCompound:
		return e.destructCompound(t, h, addr)
	}
	return errors.TypeMismatch(errors.PhaseDestruct, t.Name(), "a known kind")
}

func (e *Engine) destructCompound(t *types.Type, h rtti.Heap, addr uint32) error {
	c, _ := t.Compound()
	if c.Destruct != nil {
		if err := c.Destruct(h, addr); err != nil {
			return err
		}
	}
	for i := len(c.Attributes) - 1; i >= 0; i-- {
		a := &c.Attributes[i]
		if a.IsGroup() || a.IsProperty() {
			continue
		}
		if err := e.Destruct(a.Type, h, addr+a.Offset); err != nil {
			return errors.At(err, a.Name)
		}
	}
	for i := len(c.Bases) - 1; i >= 0; i-- {
		b := c.Bases[i]
		if err := e.Destruct(b.Type, h, addr+b.Offset); err != nil {
			return err
		}
	}
	return nil
}

// Copy assigns the instance at src to the constructed instance at dst.
func (e *Engine) Copy(t *types.Type, h rtti.Heap, dst, src uint32) error {
	if dst == src {
		return nil
	}
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if a.Ops.Copy != nil {
			return a.Ops.Copy(h, dst, src)
		}
		if a.Simple {
			return copyRaw(h, dst, src, a.Size)
		}
		return e.unsupported(errors.PhaseCopy, t, "copy")

	case types.KindPod, types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		return copyRaw(h, dst, src, t.Layout().Size)

	case types.KindPointer:
		p, _ := t.Pointer()
		if p.Data.Ops.Copy == nil {
			return e.unsupported(errors.PhaseCopy, t, "copy")
		}
		return p.Data.Ops.Copy(e, t, h, dst, src)

	case types.KindContainer:
		return e.copyContainer(t, h, dst, src)

	case types.KindCompound:
		return e.copyCompound(t, h, dst, src)
	}
	return errors.TypeMismatch(errors.PhaseCopy, t.Name(), "a known kind")
}

func (e *Engine) copyContainer(t *types.Type, h rtti.Heap, dst, src uint32) error {
	c, _ := t.Container()
	ops := c.Data.Ops
	if ops.Clear == nil || ops.AddItem == nil {
		return e.unsupported(errors.PhaseCopy, t, "copy")
	}
	if err := ops.Clear(e, t, h, dst); err != nil {
		return err
	}
	return e.Each(t, h, src, func(i, item uint32) error {
		if _, err := ops.AddItem(e, t, h, dst, item); err != nil {
			return errors.At(err, index(i))
		}
		return nil
	})
}

func (e *Engine) copyCompound(t *types.Type, h rtti.Heap, dst, src uint32) error {
	c, _ := t.Compound()
	if ci := e.reg.Info(t); ci != nil && ci.PodEligible {
		return copyRaw(h, dst, src, c.Size)
	}

	for _, b := range c.Bases {
		if err := e.Copy(b.Type, h, dst+b.Offset, src+b.Offset); err != nil {
			return err
		}
	}

	var s *scratch
	defer func() {
		if s != nil {
			s.release()
		}
	}()

	for i := range c.Attributes {
		a := &c.Attributes[i]
		if !a.Stored() {
			continue
		}
		if !a.IsProperty() {
			if err := e.Copy(a.Type, h, dst+a.Offset, src+a.Offset); err != nil {
				return errors.At(err, a.Name)
			}
			continue
		}
		if s == nil {
			s = e.newScratch(h)
		}
		tmp, err := s.alloc(a.Type)
		if err != nil {
			return errors.At(err, a.Name)
		}
		if err := a.Get(h, src, tmp); err != nil {
			return errors.At(err, a.Name)
		}
		if err := a.Set(h, dst, tmp); err != nil {
			return errors.At(err, a.Name)
		}
	}
	return nil
}

// Equals compares two instances of t.
func (e *Engine) Equals(t *types.Type, h rtti.Heap, a, b uint32) (bool, error) {
	switch t.Kind() {
	case types.KindAtom:
		at, _ := t.Atom()
		if at.Ops.Equals != nil {
			return at.Ops.Equals(h, a, b)
		}
		if at.Simple {
			return equalRaw(h, a, b, at.Size)
		}
		return false, e.unsupported(errors.PhaseEquals, t, "equals")

	case types.KindPod, types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		return equalRaw(h, a, b, t.Layout().Size)

	case types.KindPointer:
		return e.equalPointer(t, h, a, b)

	case types.KindContainer:
		return e.equalContainer(t, h, a, b)

	case types.KindCompound:
		return e.equalCompound(t, h, a, b)
	}
	return false, errors.TypeMismatch(errors.PhaseEquals, t.Name(), "a known kind")
}

func (e *Engine) target(phase errors.Phase, t *types.Type, h rtti.Heap, slot uint32) (uint32, error) {
	p, _ := t.Pointer()
	if p.Data.Ops.Get == nil {
		return 0, e.unsupported(phase, t, "get")
	}
	return p.Data.Ops.Get(t, h, slot)
}

func (e *Engine) equalPointer(t *types.Type, h rtti.Heap, a, b uint32) (bool, error) {
	p, _ := t.Pointer()
	ta, err := e.target(errors.PhaseEquals, t, h, a)
	if err != nil {
		return false, err
	}
	tb, err := e.target(errors.PhaseEquals, t, h, b)
	if err != nil {
		return false, err
	}
	switch {
	case ta == tb:
		return true, nil
	case ta == rtti.Null || tb == rtti.Null:
		return false, nil
	}
	return e.Equals(p.Item, h, ta, tb)
}

func (e *Engine) items(t *types.Type, h rtti.Heap, addr uint32) ([]uint32, error) {
	var out []uint32
	err := e.Each(t, h, addr, func(_, item uint32) error {
		out = append(out, item)
		return nil
	})
	return out, err
}

func (e *Engine) equalContainer(t *types.Type, h rtti.Heap, a, b uint32) (bool, error) {
	if a == b {
		return true, nil
	}
	c, _ := t.Container()
	ia, err := e.items(t, h, a)
	if err != nil {
		return false, err
	}
	ib, err := e.items(t, h, b)
	if err != nil {
		return false, err
	}
	if len(ia) != len(ib) {
		return false, nil
	}

	if !c.Data.Associative {
		for i := range ia {
			eq, err := e.Equals(c.Item, h, ia[i], ib[i])
			if err != nil {
				return false, errors.At(err, index(uint32(i)))
			}
			if !eq {
				return false, nil
			}
		}
		return true, nil
	}

	matched := make([]bool, len(ib))
	for _, x := range ia {
		found := false
		for j, y := range ib {
			if matched[j] {
				continue
			}
			eq, err := e.Equals(c.Item, h, x, y)
			if err != nil {
				return false, err
			}
			if eq {
				matched[j] = true
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) equalCompound(t *types.Type, h rtti.Heap, a, b uint32) (bool, error) {
	if a == b {
		return true, nil
	}
	c, _ := t.Compound()
	for _, base := range c.Bases {
		eq, err := e.Equals(base.Type, h, a+base.Offset, b+base.Offset)
		if err != nil || !eq {
			return false, err
		}
	}

	var s *scratch
	defer func() {
		if s != nil {
			s.release()
		}
	}()

	for i := range c.Attributes {
		attr := &c.Attributes[i]
		if !attr.Stored() {
			continue
		}
		va, vb := a+attr.Offset, b+attr.Offset
		if attr.IsProperty() {
			if s == nil {
				s = e.newScratch(h)
			}
			var err error
			if va, err = s.alloc(attr.Type); err != nil {
				return false, errors.At(err, attr.Name)
			}
			if vb, err = s.alloc(attr.Type); err != nil {
				return false, errors.At(err, attr.Name)
			}
			if err := attr.Get(h, a, va); err != nil {
				return false, errors.At(err, attr.Name)
			}
			if err := attr.Get(h, b, vb); err != nil {
				return false, errors.At(err, attr.Name)
			}
		}
		eq, err := e.Equals(attr.Type, h, va, vb)
		if err != nil {
			return false, errors.At(err, attr.Name)
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

func index(i uint32) string {
	return fmt.Sprintf("[%d]", i)
}
