package engine

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/scalar"
	"github.com/wippyai/rtti/registry"
	"github.com/wippyai/rtti/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// typeField carries the compound name in the default object form.
const typeField = "@type"

const nullText = "null"

// ToString renders the instance at addr as text.
func (e *Engine) ToString(t *types.Type, h rtti.Heap, addr uint32) (string, error) {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if a.Ops.ToString != nil {
			return a.Ops.ToString(h, addr)
		}
		if !a.Simple {
			return "", e.unsupported(errors.PhaseText, t, "to string")
		}
		return hexText(h, addr, a.Size)

	case types.KindPod:
		p, _ := t.Pod()
		return hexText(h, addr, p.Size)

	case types.KindEnum:
		en, _ := t.Enum()
		v, err := enumValue(t, h, addr)
		if err != nil {
			return "", err
		}
		if ev, ok := en.ByValue(int32(v)); ok {
			return ev.Name, nil
		}
		if signedEnum(t) {
			return strconv.FormatInt(int64(int32(v)), 10), nil
		}
		return strconv.FormatUint(v, 10), nil

	case types.KindEnumFlags:
		return e.flagsText(t, h, addr)

	case types.KindEnumBitSet:
		return e.bitSetText(t, h, addr)

	case types.KindPointer:
		p, _ := t.Pointer()
		target, err := e.target(errors.PhaseText, t, h, addr)
		if err != nil {
			return "", err
		}
		if target == rtti.Null {
			return nullText, nil
		}
		return e.ToString(p.Item, h, target)

	case types.KindContainer:
		c, _ := t.Container()
		if c.Data.Ops.ToString != nil {
			return c.Data.Ops.ToString(e, t, h, addr)
		}
		return e.marshalJSON(t, h, addr)

	case types.KindCompound:
		c, _ := t.Compound()
		if c.ToString != nil {
			return c.ToString(h, addr)
		}
		return e.marshalJSON(t, h, addr)
	}
	return "", errors.TypeMismatch(errors.PhaseText, t.Name(), "a known kind")
}

// FromString parses text into the constructed instance at addr.
func (e *Engine) FromString(t *types.Type, h rtti.Heap, addr uint32, text string) error {
	switch t.Kind() {
	case types.KindAtom:
		a, _ := t.Atom()
		if a.Ops.FromString != nil {
			return a.Ops.FromString(h, addr, text)
		}
		if !a.Simple {
			return e.unsupported(errors.PhaseText, t, "from string")
		}
		return parseHex(h, addr, a.Size, text)

	case types.KindPod:
		p, _ := t.Pod()
		return parseHex(h, addr, p.Size, text)

	case types.KindEnum:
		return e.parseEnum(t, h, addr, text)

	case types.KindEnumFlags:
		return e.parseFlags(t, h, addr, text)

	case types.KindEnumBitSet:
		return e.parseBitSet(t, h, addr, text)

	case types.KindPointer:
		p, _ := t.Pointer()
		if strings.TrimSpace(text) == nullText {
			return e.setNull(t, h, addr)
		}
		target, err := e.ensureTarget(t, h, addr)
		if err != nil {
			return err
		}
		return e.FromString(p.Item, h, target, text)

	case types.KindContainer:
		c, _ := t.Container()
		if c.Data.Ops.FromString != nil {
			return c.Data.Ops.FromString(e, t, h, addr, text)
		}
		if strings.TrimSpace(text) == "" {
			if c.Data.Ops.Clear == nil {
				return e.unsupported(errors.PhaseText, t, "clear")
			}
			return c.Data.Ops.Clear(e, t, h, addr)
		}
		return e.unmarshalJSON(t, h, addr, text)

	case types.KindCompound:
		c, _ := t.Compound()
		if c.FromString != nil {
			return c.FromString(h, addr, text)
		}
		return e.unmarshalJSON(t, h, addr, text)
	}
	return errors.TypeMismatch(errors.PhaseText, t.Name(), "a known kind")
}

func hexText(h rtti.Heap, addr, size uint32) (string, error) {
	data, err := h.Read(addr, size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

func parseHex(h rtti.Heap, addr, size uint32, text string) error {
	data, err := hex.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return errors.Wrap(errors.PhaseText, errors.KindMalformedInput, err, "invalid hex")
	}
	if uint32(len(data)) != size {
		return errors.Malformed(errors.PhaseText, nil, fmt.Sprintf("hex holds %d bytes, want %d", len(data), size))
	}
	return h.Write(addr, data)
}

func (e *Engine) parseEnum(t *types.Type, h rtti.Heap, addr uint32, text string) error {
	en, _ := t.Enum()
	text = strings.TrimSpace(text)
	size := t.Layout().Size
	if ev, found := en.ByName(text); found {
		return scalar.Store(h, addr, size, uint64(int64(ev.Value)))
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return errors.New(errors.PhaseText, errors.KindMalformedInput).
			Type(t.Name()).
			Detail("unknown enum value %q", text).
			Value(text).
			Build()
	}
	if minV, maxV := scalar.Bounds(size); n < minV || n > maxV {
		return errors.New(errors.PhaseText, errors.KindMalformedInput).
			Type(t.Name()).
			Detail("enum value %d does not fit %d bytes", n, size).
			Value(text).
			Build()
	}
	return scalar.Store(h, addr, size, uint64(n))
}

func (e *Engine) flagsText(t *types.Type, h rtti.Heap, addr uint32) (string, error) {
	en, _ := t.Enum()
	v, err := scalar.Load(h, addr, t.Layout().Size)
	if err != nil {
		return "", err
	}
	if v == 0 {
		if ev, ok := en.ByValue(0); ok {
			return ev.Name, nil
		}
		return "", nil
	}

	var names []string
	rest := v
	for _, ev := range en.Values {
		mask := uint64(uint32(ev.Value))
		if mask != 0 && rest&mask == mask {
			names = append(names, ev.Name)
			rest &^= mask
		}
	}
	if rest != 0 {
		names = append(names, strconv.FormatUint(rest, 10))
	}
	return strings.Join(names, "|"), nil
}

func (e *Engine) parseFlags(t *types.Type, h rtti.Heap, addr uint32, text string) error {
	en, _ := t.Enum()
	var v uint64
	for _, tok := range splitFlags(text) {
		if ev, ok := en.ByName(tok); ok {
			v |= uint64(uint32(ev.Value))
			continue
		}
		n, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			return errors.New(errors.PhaseText, errors.KindMalformedInput).
				Type(t.Name()).
				Detail("unknown flag %q", tok).
				Value(tok).
				Build()
		}
		v |= n
	}
	return scalar.Store(h, addr, t.Layout().Size, v)
}

func splitFlags(text string) []string {
	var out []string
	for _, tok := range strings.Split(text, "|") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// bitSetText names every set position, falling back to the decimal
// position for positions without an enum value.
func (e *Engine) bitSetText(t *types.Type, h rtti.Heap, addr uint32) (string, error) {
	bs, _ := t.BitSet()
	en, _ := bs.Enum.Enum()
	data, err := h.Read(addr, bs.Layout().Size)
	if err != nil {
		return "", err
	}
	var names []string
	for i := 0; i < len(data)*8; i++ {
		if data[i/8]>>(i%8)&1 == 0 {
			continue
		}
		if ev, ok := en.ByValue(int32(i)); ok {
			names = append(names, ev.Name)
		} else {
			names = append(names, strconv.Itoa(i))
		}
	}
	return strings.Join(names, "|"), nil
}

func (e *Engine) parseBitSet(t *types.Type, h rtti.Heap, addr uint32, text string) error {
	bs, _ := t.BitSet()
	en, _ := bs.Enum.Enum()
	l := bs.Layout()
	data := make([]byte, l.Size)
	limit := bs.Bits()
	for _, tok := range splitFlags(text) {
		pos := -1
		if ev, ok := en.ByName(tok); ok {
			pos = int(ev.Value)
		} else if n, err := strconv.Atoi(tok); err == nil {
			pos = n
		}
		if pos < 0 || pos >= limit {
			return errors.New(errors.PhaseText, errors.KindMalformedInput).
				Type(t.Name()).
				Detail("unknown bit %q", tok).
				Value(tok).
				Build()
		}
		data[pos/8] |= 1 << (pos % 8)
	}
	return h.Write(addr, data)
}

func (e *Engine) setNull(t *types.Type, h rtti.Heap, slot uint32) error {
	p, _ := t.Pointer()
	if p.Data.Ops.Set == nil {
		return e.unsupported(errors.PhaseText, t, "set")
	}
	return p.Data.Ops.Set(e, t, h, slot, rtti.Null)
}

// ensureTarget returns the pointee of slot, creating one through the
// flavour's New when the slot is null.
func (e *Engine) ensureTarget(t *types.Type, h rtti.Heap, slot uint32) (uint32, error) {
	p, _ := t.Pointer()
	target, err := e.target(errors.PhaseText, t, h, slot)
	if err != nil || target != rtti.Null {
		return target, err
	}
	if p.Data.Ops.New == nil {
		return 0, errors.NilPointer(errors.PhaseText, nil, t.Name())
	}
	return p.Data.Ops.New(e, t, h, slot)
}

// structured reports whether t embeds in composite text as raw JSON
// rather than as a JSON string.
func structured(t *types.Type) bool {
	switch t.Kind() {
	case types.KindPointer:
		return true
	case types.KindContainer:
		c, _ := t.Container()
		return c.Data.Ops.ToString == nil
	case types.KindCompound:
		c, _ := t.Compound()
		return c.ToString == nil
	}
	return false
}

func (e *Engine) marshalJSON(t *types.Type, h rtti.Heap, addr uint32) (string, error) {
	st := json.BorrowStream(nil)
	defer json.ReturnStream(st)
	if err := e.writeJSON(st, t, h, addr); err != nil {
		return "", err
	}
	if st.Error != nil {
		return "", errors.Wrap(errors.PhaseText, errors.KindMalformedInput, st.Error, "encode "+t.Name())
	}
	return string(st.Buffer()), nil
}

func (e *Engine) writeJSON(st *jsoniter.Stream, t *types.Type, h rtti.Heap, addr uint32) error {
	if !structured(t) {
		text, err := e.ToString(t, h, addr)
		if err != nil {
			return err
		}
		st.WriteString(text)
		return nil
	}

	switch t.Kind() {
	case types.KindPointer:
		p, _ := t.Pointer()
		target, err := e.target(errors.PhaseText, t, h, addr)
		if err != nil {
			return err
		}
		if target == rtti.Null {
			st.WriteNil()
			return nil
		}
		return e.writeJSON(st, p.Item, h, target)

	case types.KindContainer:
		c, _ := t.Container()
		st.WriteArrayStart()
		err := e.Each(t, h, addr, func(i, item uint32) error {
			if i > 0 {
				st.WriteMore()
			}
			return errors.At(e.writeJSON(st, c.Item, h, item), index(i))
		})
		if err != nil {
			return err
		}
		st.WriteArrayEnd()
		return nil
	}

	ci, err := e.info(errors.PhaseText, t)
	if err != nil {
		return err
	}
	s := e.newScratch(h)
	defer s.release()

	st.WriteObjectStart()
	st.WriteObjectField(typeField)
	st.WriteString(t.Name())
	for _, ra := range ci.Ordered {
		a := ra.Attribute
		if a.Flags.Has(types.AttrDontSerializeText) || (a.Get == nil && a.Set != nil) {
			continue
		}
		v, err := e.attrValue(s, h, addr+ra.Base, a)
		if err != nil {
			return errors.At(err, a.Name)
		}
		st.WriteMore()
		st.WriteObjectField(a.Name)
		if err := e.writeJSON(st, a.Type, h, v); err != nil {
			return errors.At(err, a.Name)
		}
	}
	st.WriteObjectEnd()
	return nil
}

func (e *Engine) unmarshalJSON(t *types.Type, h rtti.Heap, addr uint32, text string) error {
	it := json.BorrowIterator([]byte(text))
	defer json.ReturnIterator(it)

	if err := e.readJSON(it, t, h, addr); err != nil {
		return err
	}
	if err := iterError(it); err != nil {
		return err
	}
	// Peeking past the value reaches io.EOF only when nothing but
	// whitespace is left.
	if it.Error == nil {
		it.WhatIsNext()
		if it.Error == nil {
			return errors.Malformed(errors.PhaseText, nil, "trailing data after "+t.Name())
		}
	}
	return nil
}

func iterError(it *jsoniter.Iterator) error {
	if it.Error == nil || it.Error == io.EOF {
		return nil
	}
	return errors.Wrap(errors.PhaseText, errors.KindMalformedInput, it.Error, "invalid JSON")
}

// scalarText reads a JSON string, number or boolean as the text of a
// non-structured value.
func scalarText(it *jsoniter.Iterator) (string, error) {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		s := it.ReadString()
		return s, iterError(it)
	case jsoniter.NumberValue, jsoniter.BoolValue:
		b := it.SkipAndReturnBytes()
		return string(b), iterError(it)
	}
	it.Skip()
	return "", errors.Malformed(errors.PhaseText, nil, "expected a string, number or boolean")
}

func (e *Engine) readJSON(it *jsoniter.Iterator, t *types.Type, h rtti.Heap, addr uint32) error {
	if !structured(t) {
		text, err := scalarText(it)
		if err != nil {
			return err
		}
		return e.FromString(t, h, addr, text)
	}

	switch t.Kind() {
	case types.KindPointer:
		p, _ := t.Pointer()
		if it.WhatIsNext() == jsoniter.NilValue {
			it.ReadNil()
			return e.setNull(t, h, addr)
		}
		target, err := e.ensureTarget(t, h, addr)
		if err != nil {
			return err
		}
		return e.readJSON(it, p.Item, h, target)

	case types.KindContainer:
		return e.readArray(it, t, h, addr)
	}
	return e.readObject(it, t, h, addr)
}

func (e *Engine) readArray(it *jsoniter.Iterator, t *types.Type, h rtti.Heap, addr uint32) error {
	c, _ := t.Container()
	ops := c.Data.Ops
	if it.WhatIsNext() != jsoniter.ArrayValue {
		it.Skip()
		return errors.Malformed(errors.PhaseText, nil, "expected an array for "+t.Name())
	}
	if ops.Clear == nil {
		return e.unsupported(errors.PhaseText, t, "clear")
	}
	if err := ops.Clear(e, t, h, addr); err != nil {
		return err
	}

	s := e.newScratch(h)
	defer s.release()

	var (
		ierr error
		i    uint32
	)
	add := func(it *jsoniter.Iterator) error {
		if !c.Data.Associative && ops.AddEmpty != nil && ops.IterDeref != nil {
			cur, err := ops.AddEmpty(e, t, h, addr)
			if err != nil {
				return err
			}
			item, err := ops.IterDeref(h, cur)
			if err != nil {
				return err
			}
			return e.readJSON(it, c.Item, h, item)
		}
		if ops.AddItem == nil {
			return e.unsupported(errors.PhaseText, t, "add item")
		}
		tmp, err := s.alloc(c.Item)
		if err != nil {
			return err
		}
		if err := e.readJSON(it, c.Item, h, tmp); err != nil {
			return err
		}
		_, err = ops.AddItem(e, t, h, addr, tmp)
		return err
	}
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		ierr = errors.At(add(it), index(i))
		i++
		return ierr == nil
	})
	if ierr != nil {
		return ierr
	}
	return iterError(it)
}

func (e *Engine) readObject(it *jsoniter.Iterator, t *types.Type, h rtti.Heap, addr uint32) error {
	if it.WhatIsNext() != jsoniter.ObjectValue {
		it.Skip()
		return errors.Malformed(errors.PhaseText, nil, "expected an object for "+t.Name())
	}
	ci, err := e.info(errors.PhaseText, t)
	if err != nil {
		return err
	}
	s := e.newScratch(h)
	defer s.release()

	var ferr error
	it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		ferr = e.readField(it, s, t, ci, h, addr, field)
		return ferr == nil
	})
	if ferr != nil {
		return ferr
	}
	return iterError(it)
}

func (e *Engine) readField(it *jsoniter.Iterator, s *scratch, t *types.Type, ci *registry.CompoundInfo, h rtti.Heap, addr uint32, field string) error {
	if field == typeField {
		name := it.ReadString()
		if name != t.Name() {
			return errors.New(errors.PhaseText, errors.KindMalformedInput).
				Type(t.Name()).
				Detail("%s is %q", typeField, name).
				Value(name).
				Build()
		}
		return nil
	}

	ra, ok := ci.Attribute(field)
	if !ok {
		it.Skip()
		return errors.Malformed(errors.PhaseText, []string{field}, "unknown attribute of "+t.Name())
	}
	a := ra.Attribute
	if a.IsComputed() || a.Flags.Has(types.AttrDontSerializeText) {
		it.Skip()
		return nil
	}

	v := addr + ra.Offset()
	if a.IsProperty() {
		tmp, err := s.alloc(a.Type)
		if err != nil {
			return errors.At(err, field)
		}
		v = tmp
	}
	if err := e.readJSON(it, a.Type, h, v); err != nil {
		return errors.At(err, field)
	}
	if a.HasRange() {
		if err := e.RangeCheck(a.Type, h, v, a.Min, a.Max); err != nil {
			return errors.At(err, field)
		}
	}
	if a.IsProperty() {
		return errors.At(a.Set(h, addr+ra.Base, v), field)
	}
	return nil
}
