package memory

import (
	"errors"
	"testing"

	rttierrors "github.com/wippyai/rtti/errors"
)

func TestFreeList_NeverNull(t *testing.T) {
	f := NewFreeList(0, 1024, nil)
	p, err := f.Alloc(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if p == 0 {
		t.Fatal("Alloc returned the null address")
	}
}

func TestFreeList_Alignment(t *testing.T) {
	f := NewFreeList(0, 1024, nil)
	if _, err := f.Alloc(1, 1); err != nil {
		t.Fatal(err)
	}
	for _, align := range []uint32{2, 4, 8, 16} {
		p, err := f.Alloc(3, align)
		if err != nil {
			t.Fatal(err)
		}
		if p%align != 0 {
			t.Errorf("Alloc(3, %d) = %d, not aligned", align, p)
		}
	}
	if _, err := f.Alloc(4, 3); !errors.Is(err, rttierrors.ErrAllocation) {
		t.Errorf("non power of two alignment: got %v", err)
	}
}

func TestFreeList_ReuseAndCoalesce(t *testing.T) {
	f := NewFreeList(0, 1024, nil)
	a, _ := f.Alloc(16, 8)
	b, _ := f.Alloc(16, 8)
	c, _ := f.Alloc(16, 8)

	f.Free(a, 16, 8)
	f.Free(b, 16, 8)

	d, err := f.Alloc(32, 8)
	if err != nil {
		t.Fatal(err)
	}
	if d != a {
		t.Errorf("coalesced block not reused: got %d, want %d", d, a)
	}

	f.Free(d, 32, 8)
	f.Free(c, 16, 8)
	if n, bytes := f.Live(); n != 0 || bytes != 0 {
		t.Errorf("Live = %d, %d after freeing everything", n, bytes)
	}

	e, _ := f.Alloc(8, 8)
	if e != a {
		t.Errorf("bump pointer not reset: got %d, want %d", e, a)
	}
}

func TestFreeList_Grow(t *testing.T) {
	calls := 0
	f := NewFreeList(0, 16, func(need uint32) (uint32, error) {
		calls++
		return need + 64, nil
	})
	if _, err := f.Alloc(32, 4); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("grow called %d times, want 1", calls)
	}

	fixed := NewFreeList(0, 16, nil)
	if _, err := fixed.Alloc(32, 4); !errors.Is(err, rttierrors.ErrAllocation) {
		t.Errorf("expected allocation error, got %v", err)
	}
}
