// Package types defines the type descriptor model.
//
// A Type is a tagged union: an id, a Kind and exactly one variant
// (Atom, Pod, Pointer, Container, Enum, BitSet or Compound) matching the
// kind. Variants carry operation tables: structs of optional function
// fields whose absence means the operation is unsupported for that type.
//
// Cross references between descriptors (items, bases, attribute types,
// messages) are borrowed pointers to descriptors owned by a registry.
//
//	i32 := types.NewAtom(1, &types.Atom{TypeName: "int32", Size: 4, Alignment: 4, Simple: true})
//	vec := types.NewCompound(2, &types.Compound{
//	    TypeName: "Vec2", Size: 8, Alignment: 4,
//	    Attributes: []types.Attribute{
//	        {Name: "x", Type: i32, Offset: 0},
//	        {Name: "y", Type: i32, Offset: 4},
//	    },
//	})
package types
