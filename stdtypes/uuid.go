package stdtypes

import (
	"encoding/hex"
	"strings"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/types"
	"github.com/wippyai/rtti/wire"
)

const uuidSize = 16

// uuidGroups is the byte count of each dash separated group.
var uuidGroups = [...]int{4, 2, 2, 2, 6}

// FormatUUID renders 16 bytes in memory order as
// xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func FormatUUID(b []byte) string {
	var sb strings.Builder
	sb.Grow(36)
	off := 0
	for i, n := range uuidGroups {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(hex.EncodeToString(b[off : off+n]))
		off += n
	}
	return sb.String()
}

// ParseUUID accepts the dashed form, with or without braces.
func ParseUUID(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	parts := strings.Split(s, "-")
	if len(parts) != len(uuidGroups) {
		return nil, errors.Malformed(errors.PhaseText, nil, "uuid needs 5 groups: "+s)
	}
	out := make([]byte, 0, uuidSize)
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != uuidGroups[i] {
			return nil, errors.New(errors.PhaseText, errors.KindMalformedInput).
				Type("GGUUID").
				Detail("bad group %d in %q", i, s).
				Value(s).
				Cause(err).
				Build()
		}
		out = append(out, b...)
	}
	return out, nil
}

// uuidAtom is a simple 16-byte atom. Its bytes are an identifier, not
// a scalar, so the binary form is never swapped.
func uuidAtom(id types.ID) *types.Type {
	return types.NewAtom(id, &types.Atom{
		TypeName:  "GGUUID",
		Impl:      "GGUUID",
		Size:      uuidSize,
		Alignment: 1,
		Simple:    true,
		Ops: types.AtomOps{
			ToString: func(h rtti.Heap, addr uint32) (string, error) {
				b, err := h.Read(addr, uuidSize)
				if err != nil {
					return "", err
				}
				return FormatUUID(b), nil
			},
			FromString: func(h rtti.Heap, addr uint32, text string) error {
				b, err := ParseUUID(text)
				if err != nil {
					return err
				}
				return h.Write(addr, b)
			},
			Serialize: func(h rtti.Heap, addr uint32, w *wire.Writer) error {
				b, err := h.Read(addr, uuidSize)
				if err != nil {
					return err
				}
				return w.WriteBytes(b)
			},
			Deserialize: func(h rtti.Heap, addr uint32, r *wire.Reader) error {
				b, err := r.ReadBytes(uuidSize)
				if err != nil {
					return err
				}
				return h.Write(addr, b)
			},
		},
	})
}
