package main

import (
	"context"

	cerrors "github.com/cockroachdb/errors"
	"github.com/tetratelabs/wazero"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/memory"
)

// memoryWASM is a module exporting one page of memory as "memory".
var memoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // "memory"
	0x02, 0x00, // kind: memory, index 0
}

// openHeap returns the heap instances are built in and a func releasing it.
// The guest heap places them in the linear memory of a wazero instance.
func openHeap(ctx context.Context, kind string) (rtti.Heap, func(), error) {
	switch kind {
	case "", "linear":
		return memory.NewLinear(), func() {}, nil
	case "guest":
	default:
		return nil, nil, cerrors.Newf("heap %q, want linear or guest", kind)
	}

	rt := wazero.NewRuntime(ctx)
	closeRT := func() { _ = rt.Close(ctx) }
	mod, err := rt.Instantiate(ctx, memoryWASM)
	if err != nil {
		closeRT()
		return nil, nil, cerrors.Wrap(err, "instantiate guest memory")
	}
	heap, err := memory.NewGuest(mod.ExportedMemory("memory"))
	if err != nil {
		closeRT()
		return nil, nil, err
	}
	return heap, closeRT, nil
}
