// Package rtti provides a runtime type reflection and serialization engine.
//
// Programs describe their in-memory data types (primitives, pointers,
// containers, enums, flag sets and compound structures) with descriptor
// objects, then construct, destroy, copy, compare, stringify and
// binary-serialize instances generically, without per-type code.
//
// # Architecture Overview
//
//	rtti/               Root package with core Memory, Allocator and Heap interfaces
//	├── types/          Descriptor model: Type, Atom, Pod, Pointer, Container, Enum, BitSet, Compound
//	├── registry/       Type registry, build-time validation and derived compound info
//	├── engine/         Dispatch engine: lifecycle, equality, text, binary, messages, ranges
//	├── stdtypes/       Builtin atoms (numbers, bool, String, GGUUID), Ref/cptr pointers, Array/HashSet
//	├── wire/           Binary buffer reader and writer with endianness swap
//	├── memory/         Linear heap and wazero guest memory adapter
//	├── typedb/         Registry bootstrap from JSON, YAML, HCL and WIT documents
//	├── errors/         Structured error types
//	└── cmd/rtti/       CLI: list, describe, encode, decode, export, interactive browser
//
// # Quick Start
//
//	reg := registry.New()
//	cat := stdtypes.NewCatalog(1000)
//	_ = cat.RegisterAll(reg)
//
//	point := types.NewCompound(1, &types.Compound{
//	    TypeName: "Point", Size: 8, Alignment: 4,
//	    Attributes: []types.Attribute{
//	        {Name: "x", Type: cat.Atom("int32"), Offset: 0},
//	        {Name: "y", Type: cat.Atom("int32"), Offset: 4},
//	    },
//	})
//	_ = reg.Register(point)
//	if err := reg.Build(); err != nil {
//	    log.Fatal(err)
//	}
//
//	heap := memory.NewLinear()
//	eng := engine.New(reg)
//	addr, _ := eng.New(point, heap)
//	_ = eng.FromString(point, heap, addr, `{"@type":"Point","x":"1","y":"2"}`)
//	data, _ := eng.Marshal(point, heap, addr, false)
//
// # Memory Model
//
// Instances are not Go values. They live at uint32 addresses inside a
// Memory, so the same descriptors work over a Go-backed heap and over the
// linear memory of a running WebAssembly module.
//
// # Thread Safety
//
// A registry is immutable after Build and may be read from any goroutine.
// The engine keeps no per-call state. Instance memory is not synchronized.
package rtti
