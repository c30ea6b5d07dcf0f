package engine

import (
	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/registry"
	"github.com/wippyai/rtti/types"
)

// RangeCheck validates the atom instance at addr against textual bounds.
// An empty bound is open.
func (e *Engine) RangeCheck(t *types.Type, h rtti.Heap, addr uint32, minValue, maxValue string) error {
	a, ok := t.Atom()
	if !ok || a.Ops.RangeCheck == nil {
		return e.unsupported(errors.PhaseRange, t, "range check")
	}
	return a.Ops.RangeCheck(h, addr, minValue, maxValue)
}

// ValidateRanges checks every attribute of the compound at addr that
// declares a range, descending into nested compounds.
func (e *Engine) ValidateRanges(t *types.Type, h rtti.Heap, addr uint32) error {
	if t.Kind() != types.KindCompound {
		return errors.TypeMismatch(errors.PhaseRange, t.Name(), "compound")
	}
	ci, err := e.info(errors.PhaseRange, t)
	if err != nil {
		return err
	}

	s := e.newScratch(h)
	defer s.release()
	for _, ra := range ci.Attributes {
		a := ra.Attribute
		if a.Get == nil && a.Set != nil {
			continue
		}
		v, err := e.attrValue(s, h, addr+ra.Base, a)
		if err != nil {
			return errors.At(err, a.Name)
		}
		if a.HasRange() {
			if err := e.RangeCheck(a.Type, h, v, a.Min, a.Max); err != nil {
				return errors.At(err, a.Name)
			}
		}
		if a.Type.Kind() == types.KindCompound {
			if err := e.ValidateRanges(a.Type, h, v); err != nil {
				return errors.At(err, a.Name)
			}
		}
	}
	return nil
}

// checkOwnRanges validates raw own attributes after a bulk read.
func (e *Engine) checkOwnRanges(own []registry.ResolvedAttribute, h rtti.Heap, addr uint32) error {
	for _, ra := range own {
		a := ra.Attribute
		if !a.HasRange() {
			continue
		}
		if err := e.RangeCheck(a.Type, h, addr+a.Offset, a.Min, a.Max); err != nil {
			return errors.At(err, a.Name)
		}
	}
	return nil
}
