package stdtypes

import (
	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/types"
)

const slotSize = 4

// Ref is the owning pointer flavour. The slot owns its target: Destruct
// and Set release it, Copy deep-copies into a target of its own.
var Ref = &types.PointerData{
	Name:      "Ref",
	Size:      slotSize,
	Alignment: slotSize,
	Ops: types.PointerOps{
		Construct: clearSlot,
		Destruct: func(d types.Dispatcher, t *types.Type, h rtti.Heap, slot uint32) error {
			if err := releaseTarget(d, t, h, slot); err != nil {
				return err
			}
			return h.WriteU32(slot, rtti.Null)
		},
		Get: getSlot,
		Set: func(d types.Dispatcher, t *types.Type, h rtti.Heap, slot, target uint32) error {
			old, err := h.ReadU32(slot)
			if err != nil || old == target {
				return err
			}
			if err := releaseTarget(d, t, h, slot); err != nil {
				return err
			}
			return h.WriteU32(slot, target)
		},
		Copy: func(d types.Dispatcher, t *types.Type, h rtti.Heap, dst, src uint32) error {
			p, _ := t.Pointer()
			from, err := h.ReadU32(src)
			if err != nil {
				return err
			}
			if from == rtti.Null {
				if err := releaseTarget(d, t, h, dst); err != nil {
					return err
				}
				return h.WriteU32(dst, rtti.Null)
			}
			to, err := h.ReadU32(dst)
			if err != nil {
				return err
			}
			if to == rtti.Null {
				if to, err = newTarget(d, t, h, dst); err != nil {
					return err
				}
			}
			return d.Copy(p.Item, h, to, from)
		},
		New: newTarget,
	},
}

// CPtr is the non-owning pointer flavour: a plain address.
var CPtr = &types.PointerData{
	Name:      "cptr",
	Size:      slotSize,
	Alignment: slotSize,
	Ops: types.PointerOps{
		Construct: clearSlot,
		Destruct:  clearSlot,
		Get:       getSlot,
		Set: func(_ types.Dispatcher, _ *types.Type, h rtti.Heap, slot, target uint32) error {
			return h.WriteU32(slot, target)
		},
		Copy: func(_ types.Dispatcher, _ *types.Type, h rtti.Heap, dst, src uint32) error {
			v, err := h.ReadU32(src)
			if err != nil {
				return err
			}
			return h.WriteU32(dst, v)
		},
	},
}

func clearSlot(_ types.Dispatcher, _ *types.Type, h rtti.Heap, slot uint32) error {
	return h.WriteU32(slot, rtti.Null)
}

func getSlot(_ *types.Type, h rtti.Heap, slot uint32) (uint32, error) {
	return h.ReadU32(slot)
}

// releaseTarget destructs and frees the target of an owning slot. The
// slot itself is left unchanged.
func releaseTarget(d types.Dispatcher, t *types.Type, h rtti.Heap, slot uint32) error {
	target, err := h.ReadU32(slot)
	if err != nil || target == rtti.Null {
		return err
	}
	p, _ := t.Pointer()
	err = d.Destruct(p.Item, h, target)
	l := p.Item.Layout()
	h.Free(target, l.Size, l.Align)
	return err
}

func newTarget(d types.Dispatcher, t *types.Type, h rtti.Heap, slot uint32) (uint32, error) {
	p, _ := t.Pointer()
	if err := releaseTarget(d, t, h, slot); err != nil {
		return 0, err
	}
	l := p.Item.Layout()
	addr, err := h.Alloc(l.Size, l.Align)
	if err != nil {
		return 0, err
	}
	if err := d.Construct(p.Item, h, addr); err != nil {
		h.Free(addr, l.Size, l.Align)
		return 0, err
	}
	return addr, h.WriteU32(slot, addr)
}
