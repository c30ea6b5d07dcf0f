package typedb

import (
	"fmt"
	"strconv"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/rtti/errors"
)

// witConverter maps Component Model types onto definitions. Records and
// tuples become compounds laid out with the record rule, lists become
// Array<T>, options become Ref<T> and flags become a bitset over an
// enum of bit positions.
type witConverter struct {
	names map[*wit.TypeDef]string
	out   []Definition
	anon  int
}

// FromWIT converts type definitions, and everything they reference, to
// a document. Variants, results and resource handles have no
// counterpart and are rejected.
func FromWIT(defs ...*wit.TypeDef) (*Document, error) {
	c := &witConverter{names: make(map[*wit.TypeDef]string)}
	for _, td := range defs {
		if _, err := c.typeDef(td, nil); err != nil {
			return nil, err
		}
	}
	return &Document{Version: CurrentVersion, Types: c.out}, nil
}

func (c *witConverter) typeRef(t wit.Type, path []string) (string, error) {
	switch t := t.(type) {
	case wit.Bool:
		return "bool", nil
	case wit.U8:
		return "uint8", nil
	case wit.S8:
		return "int8", nil
	case wit.U16:
		return "uint16", nil
	case wit.S16:
		return "int16", nil
	case wit.U32:
		return "uint32", nil
	case wit.S32:
		return "int32", nil
	case wit.U64:
		return "uint64", nil
	case wit.S64:
		return "int64", nil
	case wit.F32:
		return "float", nil
	case wit.F64:
		return "double", nil
	case wit.Char:
		return "uint32", nil
	case wit.String:
		return "String", nil
	case *wit.TypeDef:
		return c.typeDef(t, path)
	}
	return "", errors.New(errors.PhaseLoad, errors.KindUnsupported).
		Path(path...).
		Detail("wit type %T", t).
		Build()
}

func (c *witConverter) name(td *wit.TypeDef, kind string) string {
	if td.Name != nil {
		return *td.Name
	}
	c.anon++
	return kind + "-" + strconv.Itoa(c.anon)
}

func (c *witConverter) typeDef(td *wit.TypeDef, path []string) (string, error) {
	if name, ok := c.names[td]; ok {
		return name, nil
	}

	switch kind := td.Kind.(type) {
	case *wit.Record:
		name := c.name(td, "record")
		c.names[td] = name
		def := Definition{Name: name, Kind: "compound"}
		for _, f := range kind.Fields {
			ref, err := c.typeRef(f.Type, append(path, name, f.Name))
			if err != nil {
				return "", err
			}
			def.Attributes = append(def.Attributes, AttributeDef{Name: f.Name, Type: ref})
		}
		c.out = append(c.out, def)
		return name, nil

	case *wit.Tuple:
		name := c.name(td, "tuple")
		c.names[td] = name
		def := Definition{Name: name, Kind: "compound"}
		for i, ft := range kind.Types {
			field := strconv.Itoa(i)
			ref, err := c.typeRef(ft, append(path, name, field))
			if err != nil {
				return "", err
			}
			def.Attributes = append(def.Attributes, AttributeDef{Name: field, Type: ref})
		}
		c.out = append(c.out, def)
		return name, nil

	case *wit.Enum:
		name := c.name(td, "enum")
		c.names[td] = name
		def := Definition{Name: name, Kind: "enum"}
		for i, ec := range kind.Cases {
			def.Values = append(def.Values, Value{Name: ec.Name, Value: int32(i)})
		}
		c.out = append(c.out, def)
		return name, nil

	case *wit.Flags:
		if len(kind.Flags) > 64 {
			return "", errors.New(errors.PhaseLoad, errors.KindInvalidLayout).
				Path(path...).
				Detail("flags type exceeds maximum 64 flags, got %d", len(kind.Flags)).
				Build()
		}
		name := c.name(td, "flags")
		c.names[td] = name
		bits := Definition{Name: name + "-flag", Kind: "enum"}
		for i, fl := range kind.Flags {
			bits.Values = append(bits.Values, Value{Name: fl.Name, Value: int32(i)})
		}
		c.out = append(c.out, bits, Definition{Name: name, Kind: "enum_bitset", Item: bits.Name})
		return name, nil

	case *wit.List:
		item, err := c.typeRef(kind.Type, path)
		if err != nil {
			return "", err
		}
		return c.generic(td, "Array", item), nil

	case *wit.Option:
		item, err := c.typeRef(kind.Type, path)
		if err != nil {
			return "", err
		}
		return c.generic(td, "Ref", item), nil

	case wit.Type:
		target, err := c.typeRef(kind, path)
		if err != nil {
			return "", err
		}
		if td.Name == nil {
			return target, nil
		}
		if _, isDef := kind.(*wit.TypeDef); isDef {
			c.names[td] = target
			return target, nil
		}
		c.names[td] = *td.Name
		c.out = append(c.out, Definition{Name: *td.Name, Kind: "atom", Impl: target})
		return *td.Name, nil
	}

	return "", errors.New(errors.PhaseLoad, errors.KindUnsupported).
		Path(path...).
		Detail("wit type definition %T", td.Kind).
		Build()
}

// generic names a list or option. Named ones get a definition of their
// own; anonymous ones are referenced inline.
func (c *witConverter) generic(td *wit.TypeDef, flavour, item string) string {
	ref := fmt.Sprintf("%s<%s>", flavour, item)
	if td.Name == nil {
		c.names[td] = ref
		return ref
	}
	kind := "container"
	if flavour == "Ref" {
		kind = "pointer"
	}
	c.names[td] = *td.Name
	c.out = append(c.out, Definition{Name: *td.Name, Kind: kind, Impl: flavour, Item: item})
	return *td.Name
}
