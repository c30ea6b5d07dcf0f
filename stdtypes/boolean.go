package stdtypes

import (
	"strconv"
	"strings"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/types"
)

func boolAtom(id types.ID) *types.Type {
	return types.NewAtom(id, &types.Atom{
		TypeName:  "bool",
		Impl:      "bool",
		Size:      1,
		Alignment: 1,
		Simple:    true,
		Ops: types.AtomOps{
			ToString: func(h rtti.Heap, addr uint32) (string, error) {
				v, err := h.ReadU8(addr)
				if err != nil {
					return "", err
				}
				return strconv.FormatBool(v != 0), nil
			},
			FromString: func(h rtti.Heap, addr uint32, text string) error {
				b, err := strconv.ParseBool(strings.TrimSpace(text))
				if err != nil {
					return errors.New(errors.PhaseText, errors.KindMalformedInput).
						Type("bool").
						Detail("invalid bool %q", text).
						Value(text).
						Cause(err).
						Build()
				}
				var v uint8
				if b {
					v = 1
				}
				return h.WriteU8(addr, v)
			},
			Equals: func(h rtti.Heap, a, b uint32) (bool, error) {
				va, err := h.ReadU8(a)
				if err != nil {
					return false, err
				}
				vb, err := h.ReadU8(b)
				if err != nil {
					return false, err
				}
				return (va != 0) == (vb != 0), nil
			},
		},
	})
}
