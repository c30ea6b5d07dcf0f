// Package engine runs the generic operations over instances in memory.
//
// An Engine routes every operation by the descriptor's kind:
//
//	Atom       - the atom's op table; simple atoms fall back to raw bytes
//	Pod        - raw bytes
//	Enum-like  - an integer of the declared size
//	Pointer    - Get/Set/Copy on the slot, then the pointee
//	Container  - the cursor protocol, element by element
//	Compound   - bases first, then own attributes in presentation order
//
// # Binary Form
//
// Scalars are little-endian unless the writer swaps. Pointers write a u8
// marker (0 null, 1 present) and the pointee. Containers write a u32
// count and their elements. Versioned compounds start with a u16
// version. Flat compounds marked PodOptimised are copied as one block
// when no swapping is requested.
//
//	data, err := eng.Marshal(point, heap, addr, false)
//	err = eng.Unmarshal(point, heap, other, data, false)
//
// # Text Form
//
// Atoms use their own format. Enums print names, flags and bit sets join
// names with "|". Containers and compounds without a custom text hook
// use JSON; a compound prints as
//
//	{"@type":"Point","x":"1","y":"2"}
//
// Pointers, containers and compounds nest as JSON values, every other
// kind nests as a JSON string.
//
// # Errors
//
// Traversal stops at the first failure. The returned *errors.Error
// carries the attribute and element path to the failing value; work
// already done on siblings is not rolled back.
package engine
