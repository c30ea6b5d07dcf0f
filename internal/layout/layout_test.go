package layout

import (
	"math"
	"testing"
)

func TestAlignTo(t *testing.T) {
	tests := []struct {
		offset, align, want uint32
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{7, 1, 7},
		{3, 0, 3},
	}
	for _, tc := range tests {
		if got := AlignTo(tc.offset, tc.align); got != tc.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tc.offset, tc.align, got, tc.want)
		}
	}
}

func TestSafeArithmetic(t *testing.T) {
	if _, ok := SafeAddU32(math.MaxUint32, 1); ok {
		t.Error("SafeAddU32 should overflow")
	}
	if v, ok := SafeAddU32(2, 3); !ok || v != 5 {
		t.Errorf("SafeAddU32(2, 3) = %d, %v", v, ok)
	}
	if _, ok := SafeMulU32(1<<20, 1<<20); ok {
		t.Error("SafeMulU32 should overflow")
	}
	if v, ok := SafeMulU32(0, math.MaxUint32); !ok || v != 0 {
		t.Errorf("SafeMulU32(0, max) = %d, %v", v, ok)
	}
}

func TestIsPow2(t *testing.T) {
	for _, a := range []uint32{1, 2, 4, 8, 16} {
		if !IsPow2(a) {
			t.Errorf("IsPow2(%d) = false", a)
		}
	}
	for _, a := range []uint32{0, 3, 6, 12} {
		if IsPow2(a) {
			t.Errorf("IsPow2(%d) = true", a)
		}
	}
}

func TestRecord(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		offs, info := Record(nil)
		if len(offs) != 0 || info.Size != 0 || info.Align != 1 {
			t.Errorf("got %v %+v", offs, info)
		}
	})

	t.Run("u8_u32", func(t *testing.T) {
		offs, info := Record([]Info{{1, 1}, {4, 4}})
		if offs[0] != 0 || offs[1] != 4 {
			t.Errorf("offsets: got %v, want [0 4]", offs)
		}
		if info.Size != 8 || info.Align != 4 {
			t.Errorf("info: got %+v, want {8 4}", info)
		}
	})

	t.Run("trailing_padding", func(t *testing.T) {
		offs, info := Record([]Info{{8, 8}, {1, 1}})
		if offs[1] != 8 {
			t.Errorf("offsets: got %v", offs)
		}
		if info.Size != 16 || info.Align != 8 {
			t.Errorf("info: got %+v, want {16 8}", info)
		}
	})
}

func TestFlags(t *testing.T) {
	tests := []struct {
		n    int
		want Info
	}{
		{0, Info{0, 1}},
		{3, Info{1, 1}},
		{8, Info{1, 1}},
		{9, Info{2, 2}},
		{32, Info{4, 4}},
		{33, Info{8, 8}},
		{64, Info{8, 8}},
		{65, Info{12, 4}},
	}
	for _, tc := range tests {
		if got := Flags(tc.n); got != tc.want {
			t.Errorf("Flags(%d) = %+v, want %+v", tc.n, got, tc.want)
		}
	}
}

func TestDiscriminant(t *testing.T) {
	if got := Discriminant(3); got.Size != 1 {
		t.Errorf("Discriminant(3) = %+v", got)
	}
	if got := Discriminant(300); got.Size != 2 {
		t.Errorf("Discriminant(300) = %+v", got)
	}
	if got := Discriminant(70000); got.Size != 4 {
		t.Errorf("Discriminant(70000) = %+v", got)
	}
}
