package wire

import (
	"encoding/binary"

	"github.com/wippyai/rtti/errors"
)

// Reader decodes values from a byte span written by a Writer with the
// same swap setting.
type Reader struct {
	data []byte
	pos  int
	swap bool
}

func NewReader(data []byte, swap bool) *Reader {
	return &Reader{data: data, swap: swap}
}

// Swap reports whether the reader expects big-endian input.
func (r *Reader) Swap() bool { return r.swap }

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, errors.New(errors.PhaseDeserialize, errors.KindMalformedInput).
			Detail("need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos).
			Build()
	}
	p := r.data[r.pos : r.pos+n]
	r.pos += n
	return p, nil
}

// ReadBytes returns the next n bytes. The slice aliases the input.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take(n)
}

// ReadScalar returns the next n bytes in little-endian order, undoing
// the reversal applied by a swapping writer. The result is a copy.
func (r *Reader) ReadScalar(n int) ([]byte, error) {
	p, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if r.swap {
		for i, b := range p {
			out[n-1-i] = b
		}
	} else {
		copy(out, p)
	}
	return out, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	p, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	p, err := r.take(2)
	if err != nil {
		return 0, err
	}
	if r.swap {
		return binary.BigEndian.Uint16(p), nil
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	p, err := r.take(4)
	if err != nil {
		return 0, err
	}
	if r.swap {
		return binary.BigEndian.Uint32(p), nil
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	p, err := r.take(8)
	if err != nil {
		return 0, err
	}
	if r.swap {
		return binary.BigEndian.Uint64(p), nil
	}
	return binary.LittleEndian.Uint64(p), nil
}

// ReadUint reads an unsigned integer of size bytes (1, 2, 4 or 8).
func (r *Reader) ReadUint(size uint32) (uint64, error) {
	switch size {
	case 1:
		v, err := r.ReadU8()
		return uint64(v), err
	case 2:
		v, err := r.ReadU16()
		return uint64(v), err
	case 4:
		v, err := r.ReadU32()
		return uint64(v), err
	case 8:
		return r.ReadU64()
	}
	return 0, errors.New(errors.PhaseDeserialize, errors.KindUnsupported).
		Detail("integer width %d", size).
		Build()
}
