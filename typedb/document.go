package typedb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/types"
)

// CurrentVersion is the version written by Export and FromWIT.
const CurrentVersion = "1.0.0"

var supported = semver.MustParseRange(">=1.0.0 <2.0.0")

// Document is a type database.
type Document struct {
	Version string       `json:"version" yaml:"version"`
	Types   []Definition `json:"types" yaml:"types"`
}

// Definition describes one type. Kind takes the names of types.Kind:
// atom, pod, pointer, container, enum, enum_flags, enum_bitset, compound.
//
// Impl names the implementation: the builtin or defined atom an atom
// derives from, or the pointer (Ref, cptr) and container (Array,
// HashSet) flavour. Item is the target of pointers and containers and
// the enum of a bitset.
type Definition struct {
	Name       string         `json:"name" yaml:"name"`
	Kind       string         `json:"kind" yaml:"kind"`
	Impl       string         `json:"impl,omitempty" yaml:"impl,omitempty"`
	Item       string         `json:"item,omitempty" yaml:"item,omitempty"`
	Values     []Value        `json:"values,omitempty" yaml:"values,omitempty"`
	Bases      []BaseDef      `json:"bases,omitempty" yaml:"bases,omitempty"`
	Attributes []AttributeDef `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	// Order lists attribute names in presentation order. It may name
	// every resolved attribute or only the compound's own.
	Order     []string `json:"order,omitempty" yaml:"order,omitempty"`
	ID        uint32   `json:"id,omitempty" yaml:"id,omitempty"`
	Size      uint32   `json:"size,omitempty" yaml:"size,omitempty"`
	Alignment uint32   `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	Version   uint16   `json:"version,omitempty" yaml:"version,omitempty"`
	Versioned bool     `json:"versioned,omitempty" yaml:"versioned,omitempty"`
}

type Value struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Value   int32    `json:"value" yaml:"value"`
}

type BaseDef struct {
	Offset *uint32 `json:"offset,omitempty" yaml:"offset,omitempty"`
	Type   string  `json:"type" yaml:"type"`
}

// AttributeDef is a raw compound field. Group starts a new category when
// it differs from the group of the previous attribute.
type AttributeDef struct {
	Offset *uint32  `json:"offset,omitempty" yaml:"offset,omitempty"`
	Name   string   `json:"name" yaml:"name"`
	Type   string   `json:"type" yaml:"type"`
	Group  string   `json:"group,omitempty" yaml:"group,omitempty"`
	Min    string   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    string   `json:"max,omitempty" yaml:"max,omitempty"`
	Flags  []string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// CheckVersion rejects documents outside the supported version range.
func (d *Document) CheckVersion() (semver.Version, error) {
	v, err := semver.ParseTolerant(d.Version)
	if err != nil {
		return semver.Version{}, errors.New(errors.PhaseLoad, errors.KindMalformedInput).
			Detail("document version %q", d.Version).
			Cause(err).
			Build()
	}
	if !supported(v) {
		return v, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Detail("document version %s outside >=1.0.0 <2.0.0", v).
			Value(d.Version).
			Build()
	}
	return v, nil
}

// Lookup returns the definition named name.
func (d *Document) Lookup(name string) (*Definition, bool) {
	for i := range d.Types {
		if d.Types[i].Name == name {
			return &d.Types[i], true
		}
	}
	return nil, false
}

// Merge concatenates documents. Names must be unique across them and the
// result carries the highest version.
func Merge(docs ...*Document) (*Document, error) {
	out := &Document{}
	var highest semver.Version
	seen := make(map[string]bool)
	for _, d := range docs {
		v, err := d.CheckVersion()
		if err != nil {
			return nil, err
		}
		if out.Version == "" || v.GT(highest) {
			highest = v
			out.Version = v.String()
		}
		for _, def := range d.Types {
			if seen[def.Name] {
				return nil, errors.DuplicateName(errors.PhaseLoad, def.Name, def.Name)
			}
			seen[def.Name] = true
			out.Types = append(out.Types, def)
		}
	}
	if out.Version == "" {
		out.Version = CurrentVersion
	}
	return out, nil
}

var attrFlagNames = []struct {
	name string
	flag types.AttrFlags
}{
	{"dont_serialize_text", types.AttrDontSerializeText},
	{"dont_serialize_binary", types.AttrDontSerializeBinary},
	{"hidden", types.AttrHidden},
	{"read_only", types.AttrReadOnly},
}

// ParseAttrFlags converts flag names to bits. Bits without a name are
// written as hexadecimal numbers.
func ParseAttrFlags(names []string) (types.AttrFlags, error) {
	var f types.AttrFlags
next:
	for _, n := range names {
		for _, fn := range attrFlagNames {
			if fn.name == n {
				f |= fn.flag
				continue next
			}
		}
		v, err := strconv.ParseUint(n, 0, 16)
		if err != nil {
			return 0, errors.New(errors.PhaseLoad, errors.KindMalformedInput).
				Detail("unknown attribute flag %q", n).
				Value(n).
				Build()
		}
		f |= types.AttrFlags(v)
	}
	return f, nil
}

// FormatAttrFlags is the inverse of ParseAttrFlags.
func FormatAttrFlags(f types.AttrFlags) []string {
	var out []string
	for _, fn := range attrFlagNames {
		if f.Has(fn.flag) {
			out = append(out, fn.name)
			f &^= fn.flag
		}
	}
	if f != 0 {
		out = append(out, fmt.Sprintf("0x%x", uint16(f)))
	}
	return out
}

// splitGeneric splits Outer<Inner> references.
func splitGeneric(ref string) (outer, inner string, ok bool) {
	i := strings.IndexByte(ref, '<')
	if i <= 0 || !strings.HasSuffix(ref, ">") {
		return "", "", false
	}
	return ref[:i], ref[i+1 : len(ref)-1], true
}
