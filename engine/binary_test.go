package engine

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/stdtypes"
	"github.com/wippyai/rtti/types"
	"github.com/wippyai/rtti/wire"
)

// roundTrip marshals src, unmarshals into a fresh instance and checks
// equality.
func (f *fixture) roundTrip(t *testing.T, typ *types.Type, src uint32, swap bool) []byte {
	t.Helper()
	data, err := f.eng.Marshal(typ, f.heap, src, swap)
	require.NoError(t, err)

	dst := f.new(t, typ)
	require.NoError(t, f.eng.Unmarshal(typ, f.heap, dst, data, swap))
	eq, err := f.eng.Equals(typ, f.heap, src, dst)
	require.NoError(t, err)
	assert.True(t, eq, "round trip of %s (swap=%v) differs", typ.Name(), swap)
	return data
}

func TestBinary_BaseThenDerived(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	base, derived := baseDerived(cat)
	f := newFixture(t, cat, base, derived)

	obj := f.parse(t, derived, `{"@type":"Derived","id":"7","scale":"1.5"}`)

	tests := []struct {
		swap bool
		want []byte
	}{
		{false, []byte{0x07, 0, 0, 0, 0, 0, 0xc0, 0x3f}},
		{true, []byte{0, 0, 0, 0x07, 0x3f, 0xc0, 0, 0}},
	}
	for _, tt := range tests {
		size, err := f.eng.SerializedSize(derived, f.heap, obj)
		require.NoError(t, err)
		assert.Equal(t, uint32(8), size)

		data := f.roundTrip(t, derived, obj, tt.swap)
		assert.Equal(t, tt.want, data, "swap=%v", tt.swap)
	}
}

func TestBinary_Kinds(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	str := cat.Atom("String")
	perm := types.NewEnum(100, &types.Enum{
		TypeName: "Perm", Size: 2, Alignment: 2,
		Values: []types.EnumValue{{Name: "None", Value: 0}, {Name: "Read", Value: 1}, {Name: "Write", Value: 2}},
	})
	perms := types.NewBitSet(101, &types.BitSet{TypeName: "Perms", Enum: perm})
	blob := types.NewPod(102, &types.Pod{Size: 3})
	ref := cat.Ref(103, str)
	arr := cat.Array(104, str)
	set := cat.HashSet(105, cat.Atom("int64"))
	f := newFixture(t, cat, perm, perms, blob, ref, arr, set)

	values := []struct {
		typ  *types.Type
		text string
	}{
		{cat.Atom("bool"), "true"},
		{cat.Atom("int16"), "-2"},
		{cat.Atom("uint64"), "1234567890123"},
		{cat.Atom("double"), "-0.25"},
		{str, "text"},
		{cat.Atom("GGUUID"), "00112233-4455-6677-8899-aabbccddeeff"},
		{perm, "Write"},
		{perms, "Read|Write"},
		{blob, "a1b2c3"},
		{ref, "pointee"},
		{ref, "null"},
		{arr, `["a","bc",""]`},
		{set, `["3","1","2"]`},
	}
	for _, v := range values {
		for _, swap := range []bool{false, true} {
			t.Run(v.typ.Name(), func(t *testing.T) {
				obj := f.parse(t, v.typ, v.text)
				f.roundTrip(t, v.typ, obj, swap)
			})
		}
	}
}

func TestBinary_Encoding(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	str := cat.Atom("String")
	ref := cat.Ref(100, cat.Atom("int32"))
	arr := cat.Array(101, str)
	blob := types.NewPod(102, &types.Pod{Size: 2})
	f := newFixture(t, cat, ref, arr, blob)

	tests := []struct {
		name string
		typ  *types.Type
		text string
		swap bool
		want []byte
	}{
		{"null pointer", ref, "null", false, []byte{0}},
		{"pointer", ref, "5", false, []byte{1, 5, 0, 0, 0}},
		{"pointer swapped", ref, "5", true, []byte{1, 0, 0, 0, 5}},
		{"array", arr, `["a","bc"]`, false, []byte{2, 0, 0, 0, 1, 0, 0, 0, 'a', 2, 0, 0, 0, 'b', 'c'}},
		{"array swapped", arr, `["a"]`, true, []byte{0, 0, 0, 1, 0, 0, 0, 1, 'a'}},
		{"pod never swapped", blob, "0102", true, []byte{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := f.parse(t, tt.typ, tt.text)
			data, err := f.eng.Marshal(tt.typ, f.heap, obj, tt.swap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestBinary_PointerMarkers(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	ref := cat.Ref(100, cat.Atom("int32"))
	cptr := cat.CPtr(101, cat.Atom("int32"))
	f := newFixture(t, cat, ref, cptr)

	obj := f.parse(t, ref, "5")
	require.NoError(t, f.eng.Unmarshal(ref, f.heap, obj, []byte{0}, false))
	target, _ := f.heap.ReadU32(obj)
	assert.Equal(t, rtti.Null, target)

	err := f.eng.Unmarshal(ref, f.heap, obj, []byte{2}, false)
	assert.ErrorIs(t, err, errors.ErrMalformedInput)

	// a non-owning pointer cannot materialise a target
	c := f.new(t, cptr)
	err = f.eng.Unmarshal(cptr, f.heap, c, []byte{1, 1, 0, 0, 0}, false)
	assert.ErrorIs(t, err, errors.ErrNilPointer)
}

func TestBinary_Versioned(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	v := types.NewCompound(100, &types.Compound{
		TypeName: "Versioned", Size: 4, Alignment: 4,
		Version: 3, SerializeFlags: types.SerializeVersioned,
		Attributes: []types.Attribute{{Name: "x", Type: cat.Atom("int32")}},
	})
	f := newFixture(t, cat, v)

	obj := f.parse(t, v, `{"x":"1"}`)
	data := f.roundTrip(t, v, obj, false)
	assert.Equal(t, []byte{3, 0, 1, 0, 0, 0}, data)

	data[0] = 4
	err := f.eng.Unmarshal(v, f.heap, obj, data, false)
	assert.ErrorIs(t, err, errors.ErrMalformedInput)
}

func TestBinary_PodFastPath(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	i32 := cat.Atom("int32")
	image := types.NewPod(100, &types.Pod{Size: 8})
	vec := types.NewCompound(101, &types.Compound{
		TypeName: "Vec", Size: 8, Alignment: 4, PodOptimised: image,
		Attributes: []types.Attribute{
			{Name: "x", Type: i32, Offset: 0},
			{Name: "y", Type: i32, Offset: 4},
		},
	})
	f := newFixture(t, cat, image, vec)
	require.True(t, f.reg.Info(vec).PodEligible)

	obj := f.parse(t, vec, `{"x":"1","y":"-1"}`)
	assert.Equal(t, []byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}, f.roundTrip(t, vec, obj, false))
	assert.Equal(t, []byte{0, 0, 0, 1, 0xff, 0xff, 0xff, 0xff}, f.roundTrip(t, vec, obj, true))
}

func TestBinary_PropertiesAndComputed(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	th := thermo(cat)
	f := newFixture(t, cat, th)

	obj := f.parse(t, th, `{"celsius":"27"}`)
	data := f.roundTrip(t, th, obj, false)
	// celsius then kelvin; the computed value is not stored
	assert.Equal(t, []byte{27, 0, 0, 0, 0x2c, 0x01, 0, 0}, data)
}

func TestBinary_RangeViolation(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	limited := types.NewCompound(100, &types.Compound{
		TypeName: "Limited", Size: 4, Alignment: 4,
		Attributes: []types.Attribute{{Name: "level", Type: cat.Atom("int32"), Min: "0", Max: "10"}},
	})
	f := newFixture(t, cat, limited)

	obj := f.new(t, limited)
	require.NoError(t, f.heap.WriteU32(obj, 42))
	assert.ErrorIs(t, f.eng.ValidateRanges(limited, f.heap, obj), errors.ErrRangeViolation)

	data, err := f.eng.Marshal(limited, f.heap, obj, false)
	require.NoError(t, err)
	dst := f.new(t, limited)
	err = f.eng.Unmarshal(limited, f.heap, dst, data, false)
	require.ErrorIs(t, err, errors.ErrRangeViolation)

	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, []string{"level"}, e.Path)
}

func TestBinary_SizeMismatch(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	liar := types.NewAtom(100, &types.Atom{
		TypeName: "Liar", Size: 4, Alignment: 4,
		Ops: types.AtomOps{
			Construct: func(h rtti.Heap, addr uint32) error { return h.WriteU32(addr, 0) },
			Destruct:  func(rtti.Heap, uint32) error { return nil },
			Serialize: func(h rtti.Heap, addr uint32, w *wire.Writer) error {
				return w.WriteU16(0)
			},
		},
	})
	f := newFixture(t, cat, liar)

	obj := f.new(t, liar)
	_, err := f.eng.Marshal(liar, f.heap, obj, false)
	assert.ErrorIs(t, err, errors.ErrSizeMismatch)
}

func TestBinary_MalformedInput(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	i32 := cat.Atom("int32")
	arr := cat.Array(100, i32)
	f := newFixture(t, cat, arr)

	obj := f.new(t, i32)
	assert.ErrorIs(t, f.eng.Unmarshal(i32, f.heap, obj, []byte{1, 2, 3}, false), errors.ErrMalformedInput)
	assert.ErrorIs(t, f.eng.Unmarshal(i32, f.heap, obj, []byte{1, 2, 3, 4, 5}, false), errors.ErrMalformedInput)

	list := f.new(t, arr)
	huge := []byte{0xff, 0xff, 0xff, 0xff}
	assert.ErrorIs(t, f.eng.Unmarshal(arr, f.heap, list, huge, false), errors.ErrMalformedInput)

	// the failing element is named in the path
	err := f.eng.Unmarshal(arr, f.heap, list, []byte{2, 0, 0, 0, 1, 0, 0, 0, 2}, false)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, []string{"[1]"}, e.Path)
}

func TestBinary_ForgedContainerLength(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	i64 := cat.Atom("int64")
	str := cat.Atom("String")
	ints := cat.Array(100, i64)
	strs := cat.Array(101, str)
	f := newFixture(t, cat, ints, strs)

	// 100,000,000 items announced, none present
	forged := []byte{0x00, 0xe1, 0xf5, 0x05}

	list := f.new(t, ints)
	before := f.heap.Size()
	assert.ErrorIs(t, f.eng.Unmarshal(ints, f.heap, list, forged, false), errors.ErrMalformedInput)
	assert.Equal(t, before, f.heap.Size(), "heap grew before the count was checked")

	// String has its own encoding, so the count cannot be checked up
	// front; growth still stops near the first missing item.
	names := f.new(t, strs)
	require.Error(t, f.eng.Unmarshal(strs, f.heap, names, forged, false))
	assert.Less(t, f.heap.Size(), before+1<<20)

	// counts that fit the input still decode
	data := []byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0}
	require.NoError(t, f.eng.Unmarshal(ints, f.heap, list, data, false))
	n, err := f.eng.Len(ints, f.heap, list)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
}

func TestBinary_ContainerGrowsInSteps(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	str := cat.Atom("String")
	strs := cat.Array(100, str)
	f := newFixture(t, cat, strs)

	items := make([]string, 3*growStep/2)
	for i := range items {
		items[i] = fmt.Sprintf("%q", fmt.Sprint(i))
	}
	src := f.parse(t, strs, "["+strings.Join(items, ",")+"]")
	f.roundTrip(t, strs, src, false)
	f.roundTrip(t, strs, src, true)
}

func TestBinary_Writer(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	i64 := cat.Atom("int64")
	f := newFixture(t, cat)

	obj := f.parse(t, i64, "1")
	w := wire.NewWriter(make([]byte, 4), false)
	assert.ErrorIs(t, f.eng.Serialize(i64, f.heap, obj, w), errors.ErrOutOfBounds)
}
