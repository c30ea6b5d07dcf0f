// Package memory provides heaps for type instances.
//
// Linear is a Go-backed growable memory suitable for host programs.
// Guest adapts the linear memory of a wazero module instance, so the
// engine can construct and serialize instances inside a running
// WebAssembly guest. Both allocate through FreeList, a coalescing
// first-fit allocator that never hands out the null address.
package memory
