package engine

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/stdtypes"
	"github.com/wippyai/rtti/types"
)

func permEnum(id types.ID) *types.Type {
	return types.NewEnum(id, &types.Enum{
		TypeName: "Perm", Size: 1, Alignment: 1,
		Values: []types.EnumValue{
			{Name: "None", Value: 0},
			{Name: "Read", Value: 1},
			{Name: "Write", Value: 2, Aliases: []string{"W"}},
		},
	})
}

func TestText_BitSet(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	perm := permEnum(100)
	perms := types.NewBitSet(101, &types.BitSet{TypeName: "Perms", Enum: perm})
	f := newFixture(t, cat, perm, perms)

	obj := f.new(t, perms)
	require.NoError(t, f.heap.WriteU8(obj, 3))
	text, err := f.eng.ToString(perms, f.heap, obj)
	require.NoError(t, err)
	assert.Equal(t, "None|Read", text)

	other := f.parse(t, perms, text)
	v, _ := f.heap.ReadU8(other)
	assert.Equal(t, uint8(3), v)

	tests := []struct {
		in   string
		want uint8
	}{
		{"", 0},
		{" W | 0 ", 5},
		{"Write|Read", 6},
		{"1", 2},
	}
	for _, tt := range tests {
		require.NoError(t, f.eng.FromString(perms, f.heap, other, tt.in), tt.in)
		v, _ := f.heap.ReadU8(other)
		assert.Equal(t, tt.want, v, tt.in)
	}
	assert.ErrorIs(t, f.eng.FromString(perms, f.heap, other, "Execute"), errors.ErrMalformedInput)
	assert.ErrorIs(t, f.eng.FromString(perms, f.heap, other, "3"), errors.ErrMalformedInput)
}

func TestText_Enum(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	sign := types.NewEnum(100, &types.Enum{
		TypeName: "Sign", Size: 1, Alignment: 1,
		Values: []types.EnumValue{{Name: "Neg", Value: -1}, {Name: "Zero", Value: 0}, {Name: "Pos", Value: 1, Aliases: []string{"Plus"}}},
	})
	f := newFixture(t, cat, sign)

	obj := f.parse(t, sign, "Neg")
	v, _ := f.heap.ReadU8(obj)
	assert.Equal(t, uint8(0xff), v)
	text, _ := f.eng.ToString(sign, f.heap, obj)
	assert.Equal(t, "Neg", text)

	require.NoError(t, f.eng.FromString(sign, f.heap, obj, "Plus"))
	text, _ = f.eng.ToString(sign, f.heap, obj)
	assert.Equal(t, "Pos", text)

	require.NoError(t, f.heap.WriteU8(obj, 7))
	text, _ = f.eng.ToString(sign, f.heap, obj)
	assert.Equal(t, "7", text)

	assert.ErrorIs(t, f.eng.FromString(sign, f.heap, obj, "neg"), errors.ErrMalformedInput)
}

func TestText_UnsignedEnum(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	level := types.NewEnum(100, &types.Enum{
		TypeName: "Level", Size: 1, Alignment: 1,
		Values: []types.EnumValue{{Name: "Low", Value: 1}, {Name: "High", Value: 200}},
	})
	f := newFixture(t, cat, level)

	obj := f.parse(t, level, "High")
	v, _ := f.heap.ReadU8(obj)
	assert.Equal(t, uint8(200), v)
	text, err := f.eng.ToString(level, f.heap, obj)
	require.NoError(t, err)
	assert.Equal(t, "High", text)

	require.NoError(t, f.heap.WriteU8(obj, 250))
	text, _ = f.eng.ToString(level, f.heap, obj)
	assert.Equal(t, "250", text)

	require.NoError(t, f.eng.FromString(level, f.heap, obj, "255"))
	v, _ = f.heap.ReadU8(obj)
	assert.Equal(t, uint8(255), v)
}

func TestText_EnumNumberOutOfRange(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	sign := types.NewEnum(100, &types.Enum{
		TypeName: "Sign", Size: 1, Alignment: 1,
		Values: []types.EnumValue{{Name: "Neg", Value: -1}, {Name: "Pos", Value: 1}},
	})
	f := newFixture(t, cat, sign)
	obj := f.parse(t, sign, "Pos")

	for _, in := range []string{"300", "-129", "256", "99999999999"} {
		assert.ErrorIs(t, f.eng.FromString(sign, f.heap, obj, in), errors.ErrMalformedInput, in)
		v, _ := f.heap.ReadU8(obj)
		assert.Equal(t, uint8(1), v, "value changed by %q", in)
	}
	require.NoError(t, f.eng.FromString(sign, f.heap, obj, "-128"))
	text, _ := f.eng.ToString(sign, f.heap, obj)
	assert.Equal(t, "-128", text)
}

func TestText_TrailingData(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	arr := cat.Array(100, cat.Atom("int32"))
	base, derived := baseDerived(cat)
	f := newFixture(t, cat, arr, base, derived)

	list := f.new(t, arr)
	for _, in := range []string{`["1"]]`, `["1"] x`, `["1"] }`, `["1"] 2`, `["1"],`} {
		assert.ErrorIs(t, f.eng.FromString(arr, f.heap, list, in), errors.ErrMalformedInput, in)
	}
	require.NoError(t, f.eng.FromString(arr, f.heap, list, " [\"1\", \"2\"] \n\t"))
	n, err := f.eng.Len(arr, f.heap, list)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)

	obj := f.new(t, derived)
	assert.ErrorIs(t, f.eng.FromString(derived, f.heap, obj, `{"id":"1"}}`), errors.ErrMalformedInput)
	require.NoError(t, f.eng.FromString(derived, f.heap, obj, `{"id":"1"} `))
}

func TestText_Flags(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	mode := types.NewEnumFlags(100, &types.Enum{
		TypeName: "Mode", Size: 4, Alignment: 4,
		Values: []types.EnumValue{{Name: "Off", Value: 0}, {Name: "A", Value: 1}, {Name: "B", Value: 2}},
	})
	f := newFixture(t, cat, mode)
	obj := f.new(t, mode)

	tests := []struct {
		value uint32
		text  string
	}{
		{0, "Off"},
		{1, "A"},
		{3, "A|B"},
		{9, "A|8"},
	}
	for _, tt := range tests {
		require.NoError(t, f.heap.WriteU32(obj, tt.value))
		text, err := f.eng.ToString(mode, f.heap, obj)
		require.NoError(t, err)
		assert.Equal(t, tt.text, text)

		require.NoError(t, f.heap.WriteU32(obj, 0xdead))
		require.NoError(t, f.eng.FromString(mode, f.heap, obj, text))
		v, _ := f.heap.ReadU32(obj)
		assert.Equal(t, tt.value, v)
	}
}

func TestText_Compound(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	base, derived := baseDerived(cat)
	th := thermo(cat)
	f := newFixture(t, cat, base, derived, th)

	const text = `{"@type":"Derived","id":"7","scale":"1.5"}`
	obj := f.parse(t, derived, text)
	got, err := f.eng.ToString(derived, f.heap, obj)
	require.NoError(t, err)
	assert.Equal(t, text, got)

	tobj := f.parse(t, th, `{"@type":"Thermo","kelvin":"300","doubled":"999"}`)
	got, err = f.eng.ToString(th, f.heap, tobj)
	require.NoError(t, err)
	assert.Equal(t, `{"@type":"Thermo","celsius":"27","kelvin":"300","doubled":"54"}`, got)

	tests := []struct {
		name string
		in   string
		path []string
	}{
		{"wrong type", `{"@type":"Base"}`, nil},
		{"unknown attribute", `{"weight":"1"}`, []string{"weight"}},
		{"bad value", `{"id":"seven"}`, []string{"id"}},
		{"not an object", `["7"]`, nil},
		{"truncated", `{"id":`, []string{"id"}},
		{"trailing", `{"id":"1"} {}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.eng.FromString(derived, f.heap, obj, tt.in)
			require.ErrorIs(t, err, errors.ErrMalformedInput)
			var e *errors.Error
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, tt.path, e.Path)
		})
	}
}

func TestText_Nested(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	str := cat.Atom("String")
	base, derived := baseDerived(cat)
	list := cat.Array(110, derived)
	ref := cat.Ref(111, str)
	hidden := types.NewCompound(112, &types.Compound{
		TypeName: "Doc", Size: 24, Alignment: 4,
		Attributes: []types.Attribute{
			{Name: "title", Type: str, Offset: 0},
			{Name: "items", Type: list, Offset: 8},
			{Name: "note", Type: ref, Offset: 20},
		},
	})
	f := newFixture(t, cat, base, derived, list, ref, hidden)

	const text = `{"@type":"Doc","title":"t \"q\"","items":[{"@type":"Derived","id":"1","scale":"2"},{"@type":"Derived","id":"3","scale":"4"}],"note":null}`
	obj := f.parse(t, hidden, text)
	got, err := f.eng.ToString(hidden, f.heap, obj)
	require.NoError(t, err)
	assert.Equal(t, text, got)

	require.NoError(t, f.eng.FromString(hidden, f.heap, obj, `{"note":"set","items":[]}`))
	got, _ = f.eng.ToString(hidden, f.heap, obj)
	assert.Equal(t, `{"@type":"Doc","title":"t \"q\"","items":[],"note":"set"}`, got)

	// numbers and booleans are accepted for scalar values
	require.NoError(t, f.eng.FromString(list, f.heap, f.new(t, list), `[{"id":5,"scale":0.5}]`))

	err = f.eng.FromString(hidden, f.heap, obj, `{"items":[{"id":"1"},{"id":"x"}]}`)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, []string{"items", "[1]", "id"}, e.Path)
}

func TestText_Flags_DontSerializeText(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	i32 := cat.Atom("int32")
	secret := types.NewCompound(100, &types.Compound{
		TypeName: "Secret", Size: 8, Alignment: 4,
		Attributes: []types.Attribute{
			{Name: "public", Type: i32, Offset: 0},
			{Name: "private", Type: i32, Offset: 4, Flags: types.AttrDontSerializeText},
		},
	})
	f := newFixture(t, cat, secret)

	obj := f.new(t, secret)
	require.NoError(t, f.heap.WriteU32(obj+4, 9))
	got, err := f.eng.ToString(secret, f.heap, obj)
	require.NoError(t, err)
	assert.Equal(t, `{"@type":"Secret","public":"0"}`, got)

	// binary still carries the field
	data, err := f.eng.Marshal(secret, f.heap, obj, false)
	require.NoError(t, err)
	assert.Len(t, data, 8)
}

func TestText_PodAndHexAtoms(t *testing.T) {
	cat := stdtypes.NewCatalog(1)
	blob := types.NewPod(100, &types.Pod{Size: 2})
	raw := types.NewAtom(101, &types.Atom{TypeName: "Raw", Size: 2, Alignment: 2, Simple: true})
	f := newFixture(t, cat, blob, raw)

	for _, typ := range []*types.Type{blob, raw} {
		obj := f.parse(t, typ, "beef")
		got, err := f.eng.ToString(typ, f.heap, obj)
		require.NoError(t, err)
		assert.Equal(t, "beef", got)
		assert.ErrorIs(t, f.eng.FromString(typ, f.heap, obj, "be"), errors.ErrMalformedInput)
	}
}
