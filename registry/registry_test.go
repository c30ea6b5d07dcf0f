package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/wippyai/rtti"
	rttierrors "github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/types"
)

func i32Type(id types.ID) *types.Type {
	return types.NewAtom(id, &types.Atom{TypeName: "int32", Size: 4, Alignment: 4, Simple: true})
}

func f32Type(id types.ID) *types.Type {
	return types.NewAtom(id, &types.Atom{TypeName: "float", Size: 4, Alignment: 4, Simple: true})
}

func compound(id types.ID, name string, size uint32, bases []types.Base, attrs ...types.Attribute) *types.Type {
	return types.NewCompound(id, &types.Compound{
		TypeName: name, Size: size, Alignment: 4, Bases: bases, Attributes: attrs,
	})
}

func mustBuild(t *testing.T, ts ...*types.Type) *Registry {
	t.Helper()
	r := New()
	if err := r.RegisterAll(ts...); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	return r
}

func buildErr(ts ...*types.Type) error {
	r := New()
	if err := r.RegisterAll(ts...); err != nil {
		return err
	}
	return r.Build()
}

func TestRegister(t *testing.T) {
	r := New()
	i32 := i32Type(1)
	if err := r.Register(i32); err != nil {
		t.Fatal(err)
	}

	err := r.Register(f32Type(1))
	if !errors.Is(err, rttierrors.ErrDuplicateID) {
		t.Errorf("duplicate id: got %v", err)
	}
	if err := r.Register(&types.Type{}); err == nil {
		t.Error("descriptor without variant accepted")
	}
	if err := r.Register(nil); err == nil {
		t.Error("nil descriptor accepted")
	}

	if err := r.Build(); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(f32Type(2)); !errors.Is(err, rttierrors.ErrSealed) {
		t.Errorf("register after build: got %v", err)
	}
	if err := r.Build(); err != nil {
		t.Errorf("second Build: %v", err)
	}
}

func TestLookup(t *testing.T) {
	first := i32Type(1)
	second := i32Type(2)
	r := mustBuild(t, first, second)

	if got, ok := r.Lookup(2); !ok || got != second {
		t.Errorf("Lookup(2) = %v, %v", got, ok)
	}
	if _, err := r.Get(99); !errors.Is(err, rttierrors.ErrUnknownType) {
		t.Errorf("Get(99): %v", err)
	}
	if got, ok := r.LookupByName("int32"); !ok || got != first {
		t.Error("name collision should keep the first registration")
	}
	if _, err := r.GetByName("Int32"); !errors.Is(err, rttierrors.ErrUnknownType) {
		t.Error("name lookup must be case-sensitive")
	}
	if len(r.Types()) != 2 || r.Types()[0] != first {
		t.Errorf("Types() = %v", r.Types())
	}
	if !r.Contains(first) || r.Contains(i32Type(1)) {
		t.Error("Contains should compare identity")
	}
}

func TestBuild_UnknownReferencePoisons(t *testing.T) {
	unregistered := i32Type(50)
	arr := types.NewContainer(2, &types.Container{
		Item: unregistered,
		Data: &types.ContainerData{Name: "Array", Size: 12, Alignment: 4},
	})

	r := New()
	_ = r.RegisterAll(i32Type(1), arr)
	err := r.Build()
	if !errors.Is(err, rttierrors.ErrUnknownType) {
		t.Fatalf("expected unknown_type, got %v", err)
	}
	if _, ok := r.Lookup(1); ok {
		t.Error("failed registry must not answer lookups")
	}
	if r.Err() == nil || r.Built() {
		t.Error("failed registry must report its error")
	}
	if err := r.Register(i32Type(3)); !errors.Is(err, rttierrors.ErrSealed) {
		t.Errorf("register after failed build: %v", err)
	}
}

func TestBuild_Validation(t *testing.T) {
	i32 := i32Type(1)

	tests := []struct {
		name  string
		types []*types.Type
		want  *rttierrors.Error
	}{
		{
			name: "flags outside mask",
			types: []*types.Type{i32, compound(2, "A", 4, nil,
				types.Attribute{Name: "hp", Type: i32, Flags: 0x4})},
			want: rttierrors.ErrInvalidFlags,
		},
		{
			name: "attribute past end",
			types: []*types.Type{i32, compound(2, "A", 4, nil,
				types.Attribute{Name: "hp", Type: i32, Offset: 4})},
			want: rttierrors.ErrInvalidLayout,
		},
		{
			name: "misaligned attribute",
			types: []*types.Type{i32, compound(2, "A", 8, nil,
				types.Attribute{Name: "hp", Type: i32, Offset: 2})},
			want: rttierrors.ErrInvalidLayout,
		},
		{
			name: "duplicate own attribute",
			types: []*types.Type{i32, compound(2, "A", 8, nil,
				types.Attribute{Name: "hp", Type: i32},
				types.Attribute{Name: "hp", Type: i32, Offset: 4})},
			want: rttierrors.ErrDuplicateName,
		},
		{
			name: "duplicate enum alias",
			types: []*types.Type{types.NewEnum(2, &types.Enum{TypeName: "E", Size: 1, Values: []types.EnumValue{
				{Name: "A", Value: 0, Aliases: []string{"X"}},
				{Name: "B", Value: 1, Aliases: []string{"X"}},
			}})},
			want: rttierrors.ErrDuplicateName,
		},
		{
			name: "too many aliases",
			types: []*types.Type{types.NewEnum(2, &types.Enum{TypeName: "E", Size: 1, Values: []types.EnumValue{
				{Name: "A", Aliases: []string{"a", "b", "c", "d", "e"}},
			}})},
			want: rttierrors.ErrInvalidLayout,
		},
		{
			name: "enum value too wide",
			types: []*types.Type{types.NewEnum(2, &types.Enum{TypeName: "E", Size: 1, Values: []types.EnumValue{
				{Name: "A", Value: 300},
			}})},
			want: rttierrors.ErrInvalidLayout,
		},
		{
			name: "base is not a compound",
			types: []*types.Type{i32, compound(2, "A", 4, []types.Base{{Type: i32}})},
			want: rttierrors.ErrTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildErr(tt.types...)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want kind %s", err, tt.want.Kind)
			}
		})
	}
}

func TestBuild_InheritanceCycle(t *testing.T) {
	a := compound(1, "A", 4, nil)
	b := compound(2, "B", 4, []types.Base{{Type: a}})
	ac, _ := a.Compound()
	ac.Bases = []types.Base{{Type: b}}

	err := buildErr(a, b)
	if !errors.Is(err, rttierrors.ErrCyclicOrdering) {
		t.Fatalf("expected cyclic_ordering, got %v", err)
	}
}

func TestResolveAttributes(t *testing.T) {
	i32 := i32Type(1)
	f32 := f32Type(2)
	base := compound(3, "Base", 4, nil, types.Attribute{Name: "id", Type: i32})
	mid := compound(4, "Mid", 8, []types.Base{{Type: base}}, types.Attribute{Name: "hp", Type: i32, Offset: 4})
	derived := compound(5, "Derived", 12, []types.Base{{Type: mid}},
		types.Attribute{Name: "Physics"},
		types.Attribute{Name: "scale", Type: f32, Offset: 8})

	r := mustBuild(t, i32, f32, base, mid, derived)
	ci := r.Info(derived)

	names := make([]string, 0, len(ci.Attributes))
	for _, ra := range ci.Attributes {
		names = append(names, ra.Attribute.Name)
	}
	if got := strings.Join(names, ","); got != "id,hp,scale" {
		t.Errorf("resolved = %s, want id,hp,scale", got)
	}
	if len(ci.Own) != 1 || ci.Own[0].Attribute.Name != "scale" {
		t.Errorf("own = %+v", ci.Own)
	}
	if ci.Own[0].Group != "Physics" {
		t.Errorf("group = %q, want Physics", ci.Own[0].Group)
	}
	hp, ok := ci.Attribute("hp")
	if !ok || hp.Parent != mid || hp.Offset() != 4 {
		t.Errorf("hp = %+v", hp)
	}
}

func TestResolveAttributes_Diamond(t *testing.T) {
	i32 := i32Type(1)
	root := compound(2, "Root", 4, nil, types.Attribute{Name: "id", Type: i32})
	left := compound(3, "Left", 8, []types.Base{{Type: root}}, types.Attribute{Name: "l", Type: i32, Offset: 4})
	right := compound(4, "Right", 8, []types.Base{{Type: root}}, types.Attribute{Name: "r", Type: i32, Offset: 4})
	bottom := compound(5, "Bottom", 16, []types.Base{{Type: left}, {Type: right, Offset: 8}})

	r := mustBuild(t, i32, root, left, right, bottom)
	ci := r.Info(bottom)
	if len(ci.Attributes) != 3 {
		t.Fatalf("resolved %d attributes, want 3", len(ci.Attributes))
	}
	if len(ci.Ordered) != 3 {
		t.Errorf("ordered %d attributes, want 3", len(ci.Ordered))
	}
}

func TestResolveAttributes_NameClash(t *testing.T) {
	i32 := i32Type(1)
	base := compound(2, "Base", 4, nil, types.Attribute{Name: "id", Type: i32})
	derived := compound(3, "Derived", 8, []types.Base{{Type: base}}, types.Attribute{Name: "id", Type: i32, Offset: 4})

	if err := buildErr(i32, base, derived); !errors.Is(err, rttierrors.ErrDuplicateName) {
		t.Errorf("expected duplicate_name, got %v", err)
	}
}

func TestOrderedAttributes(t *testing.T) {
	i32 := i32Type(1)
	base := compound(2, "Base", 4, nil, types.Attribute{Name: "id", Type: i32})
	bc, _ := base.Compound()

	t.Run("own only", func(t *testing.T) {
		d := compound(3, "D", 12, []types.Base{{Type: base}},
			types.Attribute{Name: "a", Type: i32, Offset: 4},
			types.Attribute{Name: "b", Type: i32, Offset: 8})
		dc, _ := d.Compound()
		dc.OrderedAttributes = []types.OrderedAttribute{
			{Attribute: &dc.Attributes[1]},
			{Attribute: &dc.Attributes[0], Group: "Main"},
		}
		r := mustBuild(t, i32, base, d)
		ci := r.Info(d)
		got := []string{ci.Ordered[0].Attribute.Name, ci.Ordered[1].Attribute.Name, ci.Ordered[2].Attribute.Name}
		if strings.Join(got, ",") != "id,b,a" {
			t.Errorf("ordered = %v", got)
		}
		if ci.Own[1].Group != "Main" {
			t.Errorf("group override lost: %+v", ci.Own[1])
		}
	})

	t.Run("full set", func(t *testing.T) {
		d := compound(3, "D", 8, []types.Base{{Type: base}},
			types.Attribute{Name: "a", Type: i32, Offset: 4})
		dc, _ := d.Compound()
		dc.OrderedAttributes = []types.OrderedAttribute{
			{Attribute: &dc.Attributes[0]},
			{Attribute: &bc.Attributes[0], Parent: base},
		}
		r := mustBuild(t, i32, base, d)
		if got := r.Info(d).Ordered[0].Attribute.Name; got != "a" {
			t.Errorf("first ordered = %s, want a", got)
		}
	})

	t.Run("inconsistent", func(t *testing.T) {
		d := compound(3, "D", 12, nil,
			types.Attribute{Name: "a", Type: i32},
			types.Attribute{Name: "b", Type: i32, Offset: 4})
		dc, _ := d.Compound()
		dc.OrderedAttributes = []types.OrderedAttribute{{Attribute: &dc.Attributes[0]}}
		if err := buildErr(i32, d); !errors.Is(err, rttierrors.ErrInvalidLayout) {
			t.Errorf("expected invalid_layout, got %v", err)
		}
	})
}

func handlerChain(t *testing.T) (msg, a, b, c *types.Type) {
	t.Helper()
	nop := func(rtti.Heap, uint32, uint32) error { return nil }
	msg = types.NewPod(1, &types.Pod{Size: 4})
	a = types.NewCompound(2, &types.Compound{TypeName: "A", Size: 4, Alignment: 4,
		MessageHandlers: []types.MessageHandler{{Message: msg, Handler: nop}}})
	b = types.NewCompound(3, &types.Compound{TypeName: "B", Size: 8, Alignment: 4,
		Bases:           []types.Base{{Type: a}},
		MessageHandlers: []types.MessageHandler{{Message: msg, Handler: nop}}})
	c = types.NewCompound(4, &types.Compound{TypeName: "C", Size: 12, Alignment: 4,
		Bases:           []types.Base{{Type: b, Offset: 4}},
		MessageHandlers: []types.MessageHandler{{Message: msg, Handler: nop}}})
	return
}

func owners(hs []Handler) string {
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = h.Owner.Name()
	}
	return strings.Join(names, ",")
}

func TestHandlerOrder(t *testing.T) {
	t.Run("default bases first", func(t *testing.T) {
		msg, a, b, c := handlerChain(t)
		r := mustBuild(t, msg, a, b, c)
		hs := r.Info(c).Handlers(msg)
		if got := owners(hs); got != "A,B,C" {
			t.Errorf("order = %s, want A,B,C", got)
		}
		if hs[0].Offset != 4 || hs[2].Offset != 0 {
			t.Errorf("offsets = %d, %d", hs[0].Offset, hs[2].Offset)
		}
	})

	t.Run("before constraint", func(t *testing.T) {
		msg, a, b, c := handlerChain(t)
		cc, _ := c.Compound()
		cc.MessageOrder = []types.MessageOrderEntry{{Before: true, Message: msg, Compound: a}}
		r := mustBuild(t, msg, a, b, c)
		if got := owners(r.Info(c).Handlers(msg)); got != "B,C,A" {
			t.Errorf("order = %s, want B,C,A", got)
		}
	})

	t.Run("after constraint", func(t *testing.T) {
		msg, a, b, c := handlerChain(t)
		ac, _ := a.Compound()
		ac.MessageOrder = []types.MessageOrderEntry{{Before: false, Message: msg, Compound: b}}
		r := mustBuild(t, msg, a, b, c)
		if got := owners(r.Info(c).Handlers(msg)); got != "B,A,C" {
			t.Errorf("order = %s, want B,A,C", got)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		msg, a, b, c := handlerChain(t)
		ac, _ := a.Compound()
		bc, _ := b.Compound()
		ac.MessageOrder = []types.MessageOrderEntry{{Before: false, Message: msg, Compound: b}}
		bc.MessageOrder = []types.MessageOrderEntry{{Before: false, Message: msg, Compound: a}}
		err := buildErr(msg, a, b, c)
		if !errors.Is(err, rttierrors.ErrCyclicOrdering) {
			t.Errorf("expected cyclic_ordering, got %v", err)
		}
	})
}

func TestDerivedFlags(t *testing.T) {
	i32 := i32Type(1)
	ref := types.NewPointer(2, &types.Pointer{Item: i32, Data: &types.PointerData{Name: "Ref", Size: 4, Alignment: 4}})
	arr := types.NewContainer(3, &types.Container{Item: ref, Data: &types.ContainerData{Name: "Array", Size: 12, Alignment: 4}})
	plain := types.NewContainer(4, &types.Container{Item: i32, Data: &types.ContainerData{Name: "Array", Size: 12, Alignment: 4}})
	holder := compound(5, "Holder", 12, nil, types.Attribute{Name: "refs", Type: arr})
	flat := types.NewCompound(6, &types.Compound{TypeName: "Flat", Size: 8, Alignment: 4, PodOptimised: i32,
		Attributes: []types.Attribute{{Name: "a", Type: i32}, {Name: "b", Type: i32, Offset: 4}}})
	gappy := types.NewCompound(7, &types.Compound{TypeName: "Gappy", Size: 12, Alignment: 4, PodOptimised: i32,
		Attributes: []types.Attribute{{Name: "a", Type: i32}, {Name: "b", Type: i32, Offset: 8}}})

	r := mustBuild(t, i32, ref, arr, plain, holder, flat, gappy)

	if c, _ := arr.Container(); !c.HasPointers {
		t.Error("Array<Ref> has pointers")
	}
	if c, _ := plain.Container(); c.HasPointers {
		t.Error("Array<int32> has no pointers")
	}
	if !r.Info(holder).HasPointers {
		t.Error("Holder has pointers")
	}
	if !r.Info(flat).PodEligible {
		t.Error("Flat is pod eligible")
	}
	if r.Info(gappy).PodEligible {
		t.Error("Gappy has padding")
	}
	if r.Info(holder).Next != flat || r.Info(flat).Prev != holder {
		t.Error("compound links")
	}
	if len(r.Compounds()) != 3 {
		t.Errorf("Compounds() = %d", len(r.Compounds()))
	}
}

func TestBootstrap(t *testing.T) {
	i32 := i32Type(7)
	point := compound(9, "Point", 8, nil,
		types.Attribute{Name: "x", Type: i32},
		types.Attribute{Name: "y", Type: i32, Offset: 4})

	r, err := Bootstrap(map[types.ID]*types.Type{9: point, 7: i32})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Built() || r.Types()[0] != i32 {
		t.Error("bootstrap registers in ascending id order")
	}

	if _, err := Bootstrap(map[types.ID]*types.Type{1: i32}); err == nil {
		t.Error("mismatched key accepted")
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Error("Default should be a singleton")
	}
}
