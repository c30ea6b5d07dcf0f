package memory

import (
	"sort"
	"sync"

	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/layout"
)

// GrowFunc extends the address space so that it covers at least need
// bytes and returns the new end.
type GrowFunc func(need uint32) (uint32, error)

type span struct {
	addr uint32
	size uint32
}

// FreeList is a first-fit allocator over the address range [base, end).
// Freed blocks are coalesced with their neighbours; a free block touching
// the bump pointer returns to it.
type FreeList struct {
	grow GrowFunc
	free []span
	mu   sync.Mutex
	top  uint32
	end  uint32

	live      int
	liveBytes uint64
}

// NewFreeList creates an allocator handing out addresses from base.
// A base of 0 is moved up so the null address is never returned.
func NewFreeList(base, end uint32, grow GrowFunc) *FreeList {
	if base == 0 {
		base = 8
	}
	return &FreeList{top: base, end: end, grow: grow}
}

// Alloc returns a block of size bytes aligned to align.
func (f *FreeList) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}
	if !layout.IsPow2(align) || size > layout.MaxAlloc {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i, s := range f.free {
		a := layout.AlignTo(s.addr, align)
		if a < s.addr {
			continue
		}
		if uint64(a)+uint64(size) > uint64(s.addr)+uint64(s.size) {
			continue
		}
		head := span{s.addr, a - s.addr}
		tail := span{a + size, s.addr + s.size - (a + size)}
		rest := make([]span, 0, 2)
		if head.size > 0 {
			rest = append(rest, head)
		}
		if tail.size > 0 {
			rest = append(rest, tail)
		}
		f.free = append(f.free[:i], append(rest, f.free[i+1:]...)...)
		f.track(size, 1)
		return a, nil
	}

	a := layout.AlignTo(f.top, align)
	if a < f.top {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	end, ok := layout.SafeAddU32(a, size)
	if !ok {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	if end > f.end {
		if f.grow == nil {
			return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
		}
		newEnd, err := f.grow(end)
		if err != nil {
			return 0, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "grow heap")
		}
		f.end = newEnd
		if end > f.end {
			return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
		}
	}
	if a > f.top {
		f.insert(span{f.top, a - f.top})
	}
	f.top = end
	f.track(size, 1)
	return a, nil
}

// Free returns a block obtained from Alloc with the same size.
func (f *FreeList) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	if size == 0 {
		size = 1
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.insert(span{ptr, size})
	f.track(size, -1)

	if n := len(f.free); n > 0 {
		last := f.free[n-1]
		if last.addr+last.size == f.top {
			f.top = last.addr
			f.free = f.free[:n-1]
		}
	}
}

// Live returns the number of outstanding allocations and their total size.
func (f *FreeList) Live() (int, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live, f.liveBytes
}

func (f *FreeList) track(size uint32, delta int) {
	f.live += delta
	if delta > 0 {
		f.liveBytes += uint64(size)
	} else {
		f.liveBytes -= uint64(size)
	}
}

func (f *FreeList) insert(s span) {
	i := sort.Search(len(f.free), func(i int) bool { return f.free[i].addr >= s.addr })

	if i > 0 {
		prev := &f.free[i-1]
		if prev.addr+prev.size == s.addr {
			prev.size += s.size
			if i < len(f.free) && prev.addr+prev.size == f.free[i].addr {
				prev.size += f.free[i].size
				f.free = append(f.free[:i], f.free[i+1:]...)
			}
			return
		}
	}
	if i < len(f.free) && s.addr+s.size == f.free[i].addr {
		f.free[i].addr = s.addr
		f.free[i].size += s.size
		return
	}

	f.free = append(f.free, span{})
	copy(f.free[i+1:], f.free[i:])
	f.free[i] = s
}
