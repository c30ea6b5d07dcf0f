package types

// Kind is the descriptor variant tag. Values are stable and appear in
// exported type databases.
type Kind uint8

const (
	KindAtom Kind = iota
	KindPointer
	KindContainer
	KindEnum
	KindCompound
	KindEnumFlags
	KindPod
	KindEnumBitSet
)

var kindNames = [...]string{
	KindAtom:       "atom",
	KindPointer:    "pointer",
	KindContainer:  "container",
	KindEnum:       "enum",
	KindCompound:   "compound",
	KindEnumFlags:  "enum_flags",
	KindPod:        "pod",
	KindEnumBitSet: "enum_bitset",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsEnumLike reports whether instances are stored as a plain integer.
func (k Kind) IsEnumLike() bool {
	return k == KindEnum || k == KindEnumFlags || k == KindEnumBitSet
}

// ID identifies a type within a registry.
type ID uint32

// Flags records where a descriptor was registered from.
type Flags uint8

const (
	FlagStatic            Flags = 0
	FlagFactoryRegistered Flags = 0x2
	FlagManagerRegistered Flags = 0x4
)
