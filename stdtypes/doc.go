// Package stdtypes provides the builtin descriptors: numeric atoms, bool,
// String and GGUUID, the Ref and cptr pointer flavours and the Array and
// HashSet containers.
//
// A Catalog assigns ids to the builtin atoms and resolves the
// implementation names used by schema documents:
//
//	cat := stdtypes.NewCatalog(1000)
//	_ = cat.RegisterAll(reg)
//	ids := cat.Array(2000, cat.Atom("int32"))
//
// Every flavour stores only addresses and counts in the instance, so the
// same descriptors work over any rtti.Heap.
package stdtypes
