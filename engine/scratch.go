package engine

import (
	"sync"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/types"
)

// temp is a constructed instance owned by a scratch list.
type temp struct {
	t    *types.Type
	addr uint32
}

// scratch tracks temporaries created while routing values through
// property accessors. Release destructs and frees them in reverse order.
type scratch struct {
	e     *Engine
	h     rtti.Heap
	temps []temp
}

var scratchPool = sync.Pool{
	New: func() any {
		return &scratch{temps: make([]temp, 0, 8)}
	},
}

const maxPooledScratchCapacity = 128

func (e *Engine) newScratch(h rtti.Heap) *scratch {
	s := scratchPool.Get().(*scratch)
	s.e = e
	s.h = h
	return s
}

// alloc creates a constructed temporary of type t.
func (s *scratch) alloc(t *types.Type) (uint32, error) {
	addr, err := s.e.New(t, s.h)
	if err != nil {
		return 0, err
	}
	s.temps = append(s.temps, temp{t: t, addr: addr})
	return addr, nil
}

// release frees every temporary and returns the list to the pool. The
// list is invalid afterwards.
func (s *scratch) release() {
	for i := len(s.temps) - 1; i >= 0; i-- {
		tmp := s.temps[i]
		_ = s.e.Delete(tmp.t, s.h, tmp.addr)
	}
	s.temps = s.temps[:0]
	s.e = nil
	s.h = nil
	if cap(s.temps) > maxPooledScratchCapacity {
		return
	}
	scratchPool.Put(s)
}
