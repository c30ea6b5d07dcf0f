package memory

import (
	"errors"
	"sync"
	"testing"

	rttierrors "github.com/wippyai/rtti/errors"
)

func TestLinear_ReadWrite(t *testing.T) {
	l := NewLinear()
	p, err := l.Alloc(16, 8)
	if err != nil {
		t.Fatal(err)
	}

	if err := l.WriteU8(p, 0xAB); err != nil {
		t.Fatal(err)
	}
	if err := l.WriteU16(p+2, 0x1234); err != nil {
		t.Fatal(err)
	}
	if err := l.WriteU32(p+4, 0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := l.WriteU64(p+8, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}

	if v, _ := l.ReadU8(p); v != 0xAB {
		t.Errorf("ReadU8 = %x", v)
	}
	if v, _ := l.ReadU16(p + 2); v != 0x1234 {
		t.Errorf("ReadU16 = %x", v)
	}
	if v, _ := l.ReadU32(p + 4); v != 0xDEADBEEF {
		t.Errorf("ReadU32 = %x", v)
	}
	if v, _ := l.ReadU64(p + 8); v != 0x0102030405060708 {
		t.Errorf("ReadU64 = %x", v)
	}

	raw, err := l.Read(p+4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != 0xEF || raw[3] != 0xDE {
		t.Errorf("memory is not little-endian: %x", raw)
	}
}

func TestLinear_OutOfBounds(t *testing.T) {
	l := NewLinear(WithInitialPages(1))
	_, err := l.ReadU32(PageSize - 2)
	if !errors.Is(err, rttierrors.ErrOutOfBounds) {
		t.Errorf("expected out_of_bounds, got %v", err)
	}
	if err := l.Write(PageSize, []byte{1}); !errors.Is(err, rttierrors.ErrOutOfBounds) {
		t.Errorf("expected out_of_bounds, got %v", err)
	}
}

func TestLinear_GrowPreservesContents(t *testing.T) {
	l := NewLinear()
	p, _ := l.Alloc(4, 4)
	_ = l.WriteU32(p, 42)

	if _, err := l.Alloc(3*PageSize, 8); err != nil {
		t.Fatal(err)
	}
	if l.Size() < 3*PageSize {
		t.Errorf("Size = %d after large alloc", l.Size())
	}
	if v, _ := l.ReadU32(p); v != 42 {
		t.Errorf("value lost on grow: %d", v)
	}
}

func TestLinear_Limit(t *testing.T) {
	l := NewLinear(WithLimit(PageSize))
	if _, err := l.Alloc(2*PageSize, 1); !errors.Is(err, rttierrors.ErrAllocation) {
		t.Errorf("expected allocation error, got %v", err)
	}
}

func TestLinear_ConcurrentAlloc(t *testing.T) {
	l := NewLinear()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed uint32) {
			defer wg.Done()
			for j := uint32(0); j < 100; j++ {
				p, err := l.Alloc(8, 8)
				if err != nil {
					t.Error(err)
					return
				}
				_ = l.WriteU64(p, uint64(seed))
				l.Free(p, 8, 8)
			}
		}(uint32(i))
	}
	wg.Wait()
	if n, _ := l.Live(); n != 0 {
		t.Errorf("Live = %d, want 0", n)
	}
}
