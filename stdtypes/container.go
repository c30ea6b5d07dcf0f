package stdtypes

import (
	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/layout"
	"github.com/wippyai/rtti/types"
)

// Array and HashSet instances are {count u32, capacity u32, data u32}.
// Items are stored back to back in data at their aligned stride.
const (
	vectorSize   = 12
	vectorCount  = 0
	vectorCap    = 4
	vectorData   = 8
	minVectorCap = 4
)

// Array is the sequential container flavour.
var Array = &types.ContainerData{
	Name:      "Array",
	Size:      vectorSize,
	Alignment: 4,
	Ops:       vectorOps(false),
}

// HashSet is the associative container flavour. Items are unique under
// the engine's equality; adding an equal item returns the existing one.
var HashSet = &types.ContainerData{
	Name:        "HashSet",
	Size:        vectorSize,
	Alignment:   4,
	Associative: true,
	Ops:         vectorOps(true),
}

type vector struct {
	h      rtti.Heap
	addr   uint32
	item   *types.Type
	stride uint32
	align  uint32
}

func open(t *types.Type, h rtti.Heap, addr uint32) vector {
	c, _ := t.Container()
	l := c.Item.Layout()
	return vector{h: h, addr: addr, item: c.Item, stride: layout.AlignTo(l.Size, l.Align), align: l.Align}
}

func (v vector) header() (count, capacity, data uint32, err error) {
	if count, err = v.h.ReadU32(v.addr + vectorCount); err != nil {
		return
	}
	if capacity, err = v.h.ReadU32(v.addr + vectorCap); err != nil {
		return
	}
	data, err = v.h.ReadU32(v.addr + vectorData)
	return
}

func (v vector) setCount(n uint32) error {
	return v.h.WriteU32(v.addr+vectorCount, n)
}

// reserve grows the buffer to hold at least n items, moving existing
// items bytewise.
func (v vector) reserve(n uint32) error {
	count, capacity, data, err := v.header()
	if err != nil || n <= capacity {
		return err
	}
	if n > layout.MaxListLength {
		return errors.New(errors.PhaseMemory, errors.KindRangeViolation).
			Type(v.item.Name()).
			Detail("container of %d items exceeds %d", n, layout.MaxListLength).
			Build()
	}
	newCap := max(minVectorCap, capacity*2, n)
	bytes, ok := layout.SafeMulU32(newCap, v.stride)
	if !ok || bytes > layout.MaxAlloc {
		return errors.AllocationFailed(errors.PhaseMemory, bytes, v.align)
	}
	buf, err := v.h.Alloc(bytes, v.align)
	if err != nil {
		return err
	}
	if count > 0 {
		old, err := v.h.Read(data, count*v.stride)
		if err != nil {
			v.h.Free(buf, bytes, v.align)
			return err
		}
		if err := v.h.Write(buf, append([]byte(nil), old...)); err != nil {
			v.h.Free(buf, bytes, v.align)
			return err
		}
	}
	if data != rtti.Null {
		v.h.Free(data, capacity*v.stride, v.align)
	}
	if err := v.h.WriteU32(v.addr+vectorCap, newCap); err != nil {
		return err
	}
	return v.h.WriteU32(v.addr+vectorData, buf)
}

func (v vector) at(data, i uint32) uint32 {
	return data + i*v.stride
}

// truncate destructs the items from n on.
func (v vector) truncate(d types.Dispatcher, n uint32) error {
	count, _, data, err := v.header()
	if err != nil {
		return err
	}
	for i := count; i > n; i-- {
		if err := d.Destruct(v.item, v.h, v.at(data, i-1)); err != nil {
			return err
		}
		if err := v.setCount(i - 1); err != nil {
			return err
		}
	}
	return nil
}

// extend constructs items up to n.
func (v vector) extend(d types.Dispatcher, n uint32) error {
	if err := v.reserve(n); err != nil {
		return err
	}
	count, _, data, err := v.header()
	if err != nil {
		return err
	}
	for i := count; i < n; i++ {
		if err := d.Construct(v.item, v.h, v.at(data, i)); err != nil {
			return err
		}
		if err := v.setCount(i + 1); err != nil {
			return err
		}
	}
	return nil
}

func (v vector) find(d types.Dispatcher, item uint32) (uint32, bool, error) {
	count, _, data, err := v.header()
	if err != nil {
		return 0, false, err
	}
	for i := uint32(0); i < count; i++ {
		eq, err := d.Equals(v.item, v.h, v.at(data, i), item)
		if err != nil {
			return 0, false, err
		}
		if eq {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func vectorOps(unique bool) types.ContainerOps {
	ops := types.ContainerOps{
		Construct: func(_ types.Dispatcher, _ *types.Type, h rtti.Heap, addr uint32) error {
			return zero(h, addr, vectorSize)
		},
		Destruct: func(d types.Dispatcher, t *types.Type, h rtti.Heap, addr uint32) error {
			v := open(t, h, addr)
			if err := v.truncate(d, 0); err != nil {
				return err
			}
			_, capacity, data, err := v.header()
			if err != nil {
				return err
			}
			if data != rtti.Null {
				h.Free(data, capacity*v.stride, v.align)
			}
			return zero(h, addr, vectorSize)
		},
		Len: func(_ *types.Type, h rtti.Heap, addr uint32) (uint32, error) {
			return h.ReadU32(addr + vectorCount)
		},
		Remove: func(d types.Dispatcher, t *types.Type, h rtti.Heap, addr, index uint32) error {
			v := open(t, h, addr)
			count, _, data, err := v.header()
			if err != nil {
				return err
			}
			if index >= count {
				return errors.OutOfBounds(errors.PhaseMemory, index, 1, count)
			}
			if err := d.Destruct(v.item, h, v.at(data, index)); err != nil {
				return err
			}
			if tail := (count - index - 1) * v.stride; tail > 0 {
				b, err := h.Read(v.at(data, index+1), tail)
				if err != nil {
					return err
				}
				if err := h.Write(v.at(data, index), append([]byte(nil), b...)); err != nil {
					return err
				}
			}
			return v.setCount(count - 1)
		},
		IterStart: func(t *types.Type, _ rtti.Heap, addr uint32) (types.Iter, error) {
			return types.Iter{Type: t, Container: addr}, nil
		},
		IterEnd: func(t *types.Type, h rtti.Heap, addr uint32) (types.Iter, error) {
			n, err := h.ReadU32(addr + vectorCount)
			return types.Iter{Type: t, Container: addr, State: n}, err
		},
		IterNext: func(_ rtti.Heap, it *types.Iter) error {
			it.State++
			return nil
		},
		IterValid: func(h rtti.Heap, it types.Iter) bool {
			n, err := h.ReadU32(it.Container + vectorCount)
			return err == nil && it.State < n
		},
		IterDeref: func(h rtti.Heap, it types.Iter) (uint32, error) {
			v := open(it.Type, h, it.Container)
			count, _, data, err := v.header()
			if err != nil {
				return 0, err
			}
			if it.State >= count {
				return 0, errors.OutOfBounds(errors.PhaseMemory, it.State, 1, count)
			}
			return v.at(data, it.State), nil
		},
		AddEmpty: func(d types.Dispatcher, t *types.Type, h rtti.Heap, addr uint32) (types.Iter, error) {
			v := open(t, h, addr)
			count, _, _, err := v.header()
			if err != nil {
				return types.Iter{}, err
			}
			if err := v.extend(d, count+1); err != nil {
				return types.Iter{}, err
			}
			return types.Iter{Type: t, Container: addr, State: count}, nil
		},
		Clear: func(d types.Dispatcher, t *types.Type, h rtti.Heap, addr uint32) error {
			return open(t, h, addr).truncate(d, 0)
		},
	}

	ops.AddItem = func(d types.Dispatcher, t *types.Type, h rtti.Heap, addr, item uint32) (types.Iter, error) {
		v := open(t, h, addr)
		if unique {
			i, ok, err := v.find(d, item)
			if err != nil {
				return types.Iter{}, err
			}
			if ok {
				return types.Iter{Type: t, Container: addr, State: i}, nil
			}
		}
		count, _, _, err := v.header()
		if err != nil {
			return types.Iter{}, err
		}
		if err := v.extend(d, count+1); err != nil {
			return types.Iter{}, err
		}
		_, _, data, err := v.header()
		if err != nil {
			return types.Iter{}, err
		}
		if err := d.Copy(v.item, h, v.at(data, count), item); err != nil {
			return types.Iter{}, err
		}
		return types.Iter{Type: t, Container: addr, State: count}, nil
	}

	if !unique {
		ops.Resize = func(d types.Dispatcher, t *types.Type, h rtti.Heap, addr, n uint32) error {
			v := open(t, h, addr)
			count, _, _, err := v.header()
			if err != nil {
				return err
			}
			if n < count {
				return v.truncate(d, n)
			}
			return v.extend(d, n)
		}
	} else {
		ops.AddEmpty = nil
	}
	return ops
}
