// Package typedb loads type databases: schema documents describing
// descriptors by name, which Build turns into a registry.
//
// Documents are JSON, YAML or HCL. Pointer and container types may be
// referenced inline as Flavour<Item> (Ref<Point>, Array<int32>) without
// a definition of their own. Compound offsets and sizes are optional and
// follow the record layout rule when omitted: each member aligned to its
// own alignment, the size rounded up to the largest alignment.
//
// A minimal YAML document:
//
//	version: 1.0.0
//	types:
//	  - name: Point
//	    kind: compound
//	    attributes:
//	      - {name: x, type: int32}
//	      - {name: y, type: int32}
//
// Export produces a document from a built registry and FromWIT derives one
// from Component Model type definitions.
package typedb
