package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/layout"
	"github.com/wippyai/rtti/internal/scalar"
	"github.com/wippyai/rtti/types"
	"github.com/wippyai/rtti/wire"
)

const (
	markerNull    = 0
	markerPresent = 1
)

// Marshal serializes the instance at addr into a buffer sized with
// SerializedSize.
func (e *Engine) Marshal(t *types.Type, h rtti.Heap, addr uint32, swap bool) ([]byte, error) {
	n, err := e.SerializedSize(t, h, addr)
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter(make([]byte, n), swap)
	if err := e.Serialize(t, h, addr, w); err != nil {
		return nil, err
	}
	if uint32(w.Len()) != n {
		return nil, errors.SizeMismatch(t.Name(), n, uint32(w.Len()))
	}
	return w.Bytes(), nil
}

// Unmarshal deserializes data into the constructed instance at addr. The
// input must be consumed entirely. On error the instance is left partly
// written; deserialize into a temporary when that matters.
func (e *Engine) Unmarshal(t *types.Type, h rtti.Heap, addr uint32, data []byte, swap bool) error {
	r := wire.NewReader(data, swap)
	if err := e.Deserialize(t, h, addr, r); err != nil {
		return err
	}
	if n := r.Remaining(); n != 0 {
		return errors.Malformed(errors.PhaseDeserialize, nil, fmt.Sprintf("%d trailing bytes after %s", n, t.Name()))
	}
	return nil
}

// Serialize writes the binary form of the instance at addr.
func (e *Engine) Serialize(t *types.Type, h rtti.Heap, addr uint32, w *wire.Writer) error {
	switch t.Kind() {
	case types.KindAtom:
		return e.serializeAtom(t, h, addr, w)

	case types.KindPod:
		p, _ := t.Pod()
		data, err := h.Read(addr, p.Size)
		if err != nil {
			return err
		}
		return w.WriteBytes(data)

	case types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		size := t.Layout().Size
		v, err := scalar.Load(h, addr, size)
		if err != nil {
			return err
		}
		return w.WriteUint(v, size)

	case types.KindPointer:
		p, _ := t.Pointer()
		target, err := e.target(errors.PhaseSerialize, t, h, addr)
		if err != nil {
			return err
		}
		if target == rtti.Null {
			return w.WriteU8(markerNull)
		}
		if err := w.WriteU8(markerPresent); err != nil {
			return err
		}
		return e.Serialize(p.Item, h, target, w)

	case types.KindContainer:
		c, _ := t.Container()
		items, err := e.items(t, h, addr)
		if err != nil {
			return err
		}
		if err := w.WriteU32(uint32(len(items))); err != nil {
			return err
		}
		for i, item := range items {
			if err := e.Serialize(c.Item, h, item, w); err != nil {
				return errors.At(err, index(uint32(i)))
			}
		}
		return nil

	case types.KindCompound:
		return e.serializeCompound(t, h, addr, w)
	}
	return errors.TypeMismatch(errors.PhaseSerialize, t.Name(), "a known kind")
}

func (e *Engine) serializeAtom(t *types.Type, h rtti.Heap, addr uint32, w *wire.Writer) error {
	a, _ := t.Atom()
	if a.Ops.Serialize != nil {
		want, err := e.atomSize(t, h, addr)
		if err != nil {
			return err
		}
		start := w.Len()
		if err := a.Ops.Serialize(h, addr, w); err != nil {
			return err
		}
		if got := uint32(w.Len() - start); got != want {
			e.logger.Warn("atom wrote unexpected byte count",
				zap.String("type", t.Name()),
				zap.Uint32("declared", want),
				zap.Uint32("written", got))
			return errors.SizeMismatch(t.Name(), want, got)
		}
		return nil
	}
	if !a.Simple {
		return e.unsupported(errors.PhaseSerialize, t, "serialize")
	}
	data, err := h.Read(addr, a.Size)
	if err != nil {
		return err
	}
	return w.WriteScalar(data)
}

func (e *Engine) atomSize(t *types.Type, h rtti.Heap, addr uint32) (uint32, error) {
	a, _ := t.Atom()
	if a.Ops.SerializedSize != nil {
		return a.Ops.SerializedSize(h, addr)
	}
	if a.Ops.Serialize == nil && !a.Simple {
		return 0, e.unsupported(errors.PhaseSerialize, t, "serialized size")
	}
	return a.Size, nil
}

// binaryAttr reports whether an own attribute takes part in the binary form.
func binaryAttr(a *types.Attribute) bool {
	return a.Stored() && !a.Flags.Has(types.AttrDontSerializeBinary)
}

// attrValue returns the address holding attribute a of obj, reading a
// property into a temporary.
func (e *Engine) attrValue(s *scratch, h rtti.Heap, obj uint32, a *types.Attribute) (uint32, error) {
	if !a.IsProperty() {
		return obj + a.Offset, nil
	}
	tmp, err := s.alloc(a.Type)
	if err != nil {
		return 0, err
	}
	if err := a.Get(h, obj, tmp); err != nil {
		return 0, err
	}
	return tmp, nil
}

func (e *Engine) serializeCompound(t *types.Type, h rtti.Heap, addr uint32, w *wire.Writer) error {
	c, _ := t.Compound()
	ci, err := e.info(errors.PhaseSerialize, t)
	if err != nil {
		return err
	}
	if c.SerializeFlags&types.SerializeVersioned != 0 {
		if err := w.WriteU16(c.Version); err != nil {
			return err
		}
	}
	if ci.PodEligible && !w.Swap() {
		data, err := h.Read(addr, c.Size)
		if err != nil {
			return err
		}
		return w.WriteBytes(data)
	}

	for _, b := range c.Bases {
		if err := e.Serialize(b.Type, h, addr+b.Offset, w); err != nil {
			return err
		}
	}

	s := e.newScratch(h)
	defer s.release()
	for _, ra := range ci.Own {
		a := ra.Attribute
		if !binaryAttr(a) {
			continue
		}
		v, err := e.attrValue(s, h, addr, a)
		if err != nil {
			return errors.At(err, a.Name)
		}
		if err := e.Serialize(a.Type, h, v, w); err != nil {
			return errors.At(err, a.Name)
		}
	}
	return nil
}

// SerializedSize returns the exact length of the binary form of the
// instance at addr.
func (e *Engine) SerializedSize(t *types.Type, h rtti.Heap, addr uint32) (uint32, error) {
	switch t.Kind() {
	case types.KindAtom:
		return e.atomSize(t, h, addr)

	case types.KindPod, types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		return t.Layout().Size, nil

	case types.KindPointer:
		p, _ := t.Pointer()
		target, err := e.target(errors.PhaseSerialize, t, h, addr)
		if err != nil || target == rtti.Null {
			return 1, err
		}
		n, err := e.SerializedSize(p.Item, h, target)
		if err != nil {
			return 0, err
		}
		return sizeAdd(t, 1, n)

	case types.KindContainer:
		c, _ := t.Container()
		total := uint32(4)
		err := e.Each(t, h, addr, func(i, item uint32) error {
			n, err := e.SerializedSize(c.Item, h, item)
			if err != nil {
				return errors.At(err, index(i))
			}
			total, err = sizeAdd(t, total, n)
			return err
		})
		return total, err

	case types.KindCompound:
		return e.compoundSize(t, h, addr)
	}
	return 0, errors.TypeMismatch(errors.PhaseSerialize, t.Name(), "a known kind")
}

func (e *Engine) compoundSize(t *types.Type, h rtti.Heap, addr uint32) (uint32, error) {
	c, _ := t.Compound()
	ci, err := e.info(errors.PhaseSerialize, t)
	if err != nil {
		return 0, err
	}
	total := uint32(0)
	if c.SerializeFlags&types.SerializeVersioned != 0 {
		total = 2
	}
	if ci.PodEligible {
		return total + c.Size, nil
	}

	for _, b := range c.Bases {
		n, err := e.SerializedSize(b.Type, h, addr+b.Offset)
		if err != nil {
			return 0, err
		}
		if total, err = sizeAdd(t, total, n); err != nil {
			return 0, err
		}
	}

	s := e.newScratch(h)
	defer s.release()
	for _, ra := range ci.Own {
		a := ra.Attribute
		if !binaryAttr(a) {
			continue
		}
		v, err := e.attrValue(s, h, addr, a)
		if err != nil {
			return 0, errors.At(err, a.Name)
		}
		n, err := e.SerializedSize(a.Type, h, v)
		if err != nil {
			return 0, errors.At(err, a.Name)
		}
		if total, err = sizeAdd(t, total, n); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func sizeAdd(t *types.Type, a, b uint32) (uint32, error) {
	n, ok := layout.SafeAddU32(a, b)
	if !ok {
		return 0, errors.New(errors.PhaseSerialize, errors.KindOutOfBounds).
			Type(t.Name()).
			Detail("serialized size overflows uint32").
			Build()
	}
	return n, nil
}

// Deserialize reads the binary form into the constructed instance at addr.
func (e *Engine) Deserialize(t *types.Type, h rtti.Heap, addr uint32, r *wire.Reader) error {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if a.Ops.Deserialize != nil {
			return a.Ops.Deserialize(h, addr, r)
		}
		if !a.Simple {
			return e.unsupported(errors.PhaseDeserialize, t, "deserialize")
		}
		data, err := r.ReadScalar(int(a.Size))
		if err != nil {
			return err
		}
		return h.Write(addr, data)

	case types.KindPod:
		p, _ := t.Pod()
		data, err := r.ReadBytes(int(p.Size))
		if err != nil {
			return err
		}
		return h.Write(addr, data)

	case types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		size := t.Layout().Size
		v, err := r.ReadUint(size)
		if err != nil {
			return err
		}
		return scalar.Store(h, addr, size, v)

	case types.KindPointer:
		return e.deserializePointer(t, h, addr, r)

	case types.KindContainer:
		return e.deserializeContainer(t, h, addr, r)

	case types.KindCompound:
		return e.deserializeCompound(t, h, addr, r)
	}
	return errors.TypeMismatch(errors.PhaseDeserialize, t.Name(), "a known kind")
}

func (e *Engine) deserializePointer(t *types.Type, h rtti.Heap, slot uint32, r *wire.Reader) error {
	p, _ := t.Pointer()
	ops := p.Data.Ops
	marker, err := r.ReadU8()
	if err != nil {
		return err
	}
	switch marker {
	case markerNull:
		if ops.Set == nil {
			return e.unsupported(errors.PhaseDeserialize, t, "set")
		}
		return ops.Set(e, t, h, slot, rtti.Null)

	case markerPresent:
		target, err := e.target(errors.PhaseDeserialize, t, h, slot)
		if err != nil {
			return err
		}
		if target == rtti.Null {
			if ops.New == nil {
				return errors.NilPointer(errors.PhaseDeserialize, nil, t.Name())
			}
			if target, err = ops.New(e, t, h, slot); err != nil {
				return err
			}
		}
		return e.Deserialize(p.Item, h, target, r)
	}
	return errors.Malformed(errors.PhaseDeserialize, nil, fmt.Sprintf("pointer marker %d", marker))
}

func (e *Engine) deserializeContainer(t *types.Type, h rtti.Heap, addr uint32, r *wire.Reader) error {
	c, _ := t.Container()
	ops := c.Data.Ops
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	if n > layout.MaxListLength {
		return errors.Malformed(errors.PhaseDeserialize, nil, fmt.Sprintf("container length %d exceeds limit %d", n, layout.MaxListLength))
	}
	if least := e.minWireSize(c.Item); least > 0 && uint64(n)*uint64(least) > uint64(r.Remaining()) {
		return errors.Malformed(errors.PhaseDeserialize, nil,
			fmt.Sprintf("container claims %d items of at least %d bytes, %d bytes left", n, least, r.Remaining()))
	}
	if ops.Clear == nil {
		return e.unsupported(errors.PhaseDeserialize, t, "clear")
	}
	if err := ops.Clear(e, t, h, addr); err != nil {
		return err
	}

	switch {
	case c.Data.Associative:
		if ops.AddItem == nil {
			return e.unsupported(errors.PhaseDeserialize, t, "add item")
		}
		s := e.newScratch(h)
		defer s.release()
		tmp, err := s.alloc(c.Item)
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			if err := e.Deserialize(c.Item, h, tmp, r); err != nil {
				return errors.At(err, index(i))
			}
			if _, err := ops.AddItem(e, t, h, addr, tmp); err != nil {
				return errors.At(err, index(i))
			}
		}
		return nil

	case ops.Resize != nil:
		// Items whose size is unknown up front are grown in steps that
		// stay within a constant factor of the items read so far.
		for done := uint32(0); done < n; {
			next := min(n, max(done*2, growStep))
			if err := ops.Resize(e, t, h, addr, next); err != nil {
				return err
			}
			items, err := e.items(t, h, addr)
			if err != nil {
				return err
			}
			for i := done; i < next; i++ {
				if err := e.Deserialize(c.Item, h, items[i], r); err != nil {
					return errors.At(err, index(i))
				}
			}
			done = next
		}
		return nil

	case ops.AddEmpty != nil && ops.IterDeref != nil:
		for i := uint32(0); i < n; i++ {
			it, err := ops.AddEmpty(e, t, h, addr)
			if err != nil {
				return errors.At(err, index(i))
			}
			item, err := ops.IterDeref(h, it)
			if err != nil {
				return errors.At(err, index(i))
			}
			if err := e.Deserialize(c.Item, h, item, r); err != nil {
				return errors.At(err, index(i))
			}
		}
		return nil
	}
	return e.unsupported(errors.PhaseDeserialize, t, "resize")
}

// growStep is the first batch of items a container is resized to while
// deserializing.
const growStep = 256

// minWireSize is a lower bound on the binary length of any t instance.
// Atoms with their own encoding report zero.
func (e *Engine) minWireSize(t *types.Type) uint64 {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if a.Ops.Serialize == nil && a.Simple {
			return uint64(a.Size)
		}
	case types.KindPod, types.KindEnum, types.KindEnumFlags, types.KindEnumBitSet:
		return uint64(t.Layout().Size)
	case types.KindPointer:
		return 1
	case types.KindContainer:
		return 4
	case types.KindCompound:
		c, _ := t.Compound()
		ci := e.reg.Info(t)
		if ci == nil {
			return 0
		}
		var n uint64
		if c.SerializeFlags&types.SerializeVersioned != 0 {
			n = 2
		}
		for _, b := range c.Bases {
			n += e.minWireSize(b.Type)
		}
		for _, ra := range ci.Own {
			if binaryAttr(ra.Attribute) {
				n += e.minWireSize(ra.Attribute.Type)
			}
		}
		return n
	}
	return 0
}

func (e *Engine) deserializeCompound(t *types.Type, h rtti.Heap, addr uint32, r *wire.Reader) error {
	c, _ := t.Compound()
	ci, err := e.info(errors.PhaseDeserialize, t)
	if err != nil {
		return err
	}
	if c.SerializeFlags&types.SerializeVersioned != 0 {
		v, err := r.ReadU16()
		if err != nil {
			return err
		}
		if v != c.Version {
			return errors.New(errors.PhaseDeserialize, errors.KindMalformedInput).
				Type(t.Name()).
				Detail("version %d, want %d", v, c.Version).
				Value(v).
				Build()
		}
	}
	if ci.PodEligible && !r.Swap() {
		data, err := r.ReadBytes(int(c.Size))
		if err != nil {
			return err
		}
		if err := h.Write(addr, data); err != nil {
			return err
		}
		return e.checkOwnRanges(ci.Own, h, addr)
	}

	for _, b := range c.Bases {
		if err := e.Deserialize(b.Type, h, addr+b.Offset, r); err != nil {
			return err
		}
	}

	s := e.newScratch(h)
	defer s.release()
	for _, ra := range ci.Own {
		a := ra.Attribute
		if !binaryAttr(a) {
			continue
		}
		v := addr + a.Offset
		if a.IsProperty() {
			if v, err = s.alloc(a.Type); err != nil {
				return errors.At(err, a.Name)
			}
		}
		if err := e.Deserialize(a.Type, h, v, r); err != nil {
			return errors.At(err, a.Name)
		}
		if a.HasRange() {
			if err := e.RangeCheck(a.Type, h, v, a.Min, a.Max); err != nil {
				return errors.At(err, a.Name)
			}
		}
		if a.IsProperty() {
			if err := a.Set(h, addr, v); err != nil {
				return errors.At(err, a.Name)
			}
		}
	}
	return nil
}
