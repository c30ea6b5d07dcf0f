package stdtypes

import "github.com/wippyai/rtti"

func zero(m rtti.Memory, addr, size uint32) error {
	return m.Write(addr, make([]byte, size))
}
