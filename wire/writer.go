package wire

import (
	"encoding/binary"

	"github.com/wippyai/rtti/errors"
)

// Writer appends encoded values to a caller-owned buffer of fixed length.
// Multi-byte values are little-endian, or big-endian when swapping.
type Writer struct {
	buf  []byte
	pos  int
	swap bool
}

// NewWriter writes into buf, never past len(buf).
func NewWriter(buf []byte, swap bool) *Writer {
	return &Writer{buf: buf, swap: swap}
}

// Swap reports whether the writer produces big-endian output.
func (w *Writer) Swap() bool { return w.swap }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return w.pos }

// Available returns the number of bytes left in the buffer.
func (w *Writer) Available() int { return len(w.buf) - w.pos }

// Bytes returns the written prefix of the buffer.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

func (w *Writer) reserve(n int) ([]byte, error) {
	if n < 0 || n > len(w.buf)-w.pos {
		return nil, errors.New(errors.PhaseSerialize, errors.KindOutOfBounds).
			Detail("write of %d bytes at %d exceeds buffer of %d", n, w.pos, len(w.buf)).
			Build()
	}
	p := w.buf[w.pos : w.pos+n]
	w.pos += n
	return p, nil
}

// WriteBytes copies p verbatim.
func (w *Writer) WriteBytes(p []byte) error {
	dst, err := w.reserve(len(p))
	if err != nil {
		return err
	}
	copy(dst, p)
	return nil
}

// WriteScalar copies the little-endian bytes of a scalar, reversing them
// when swapping.
func (w *Writer) WriteScalar(p []byte) error {
	dst, err := w.reserve(len(p))
	if err != nil {
		return err
	}
	if w.swap {
		for i, b := range p {
			dst[len(p)-1-i] = b
		}
		return nil
	}
	copy(dst, p)
	return nil
}

func (w *Writer) WriteU8(v uint8) error {
	dst, err := w.reserve(1)
	if err != nil {
		return err
	}
	dst[0] = v
	return nil
}

func (w *Writer) WriteU16(v uint16) error {
	dst, err := w.reserve(2)
	if err != nil {
		return err
	}
	if w.swap {
		binary.BigEndian.PutUint16(dst, v)
	} else {
		binary.LittleEndian.PutUint16(dst, v)
	}
	return nil
}

func (w *Writer) WriteU32(v uint32) error {
	dst, err := w.reserve(4)
	if err != nil {
		return err
	}
	if w.swap {
		binary.BigEndian.PutUint32(dst, v)
	} else {
		binary.LittleEndian.PutUint32(dst, v)
	}
	return nil
}

func (w *Writer) WriteU64(v uint64) error {
	dst, err := w.reserve(8)
	if err != nil {
		return err
	}
	if w.swap {
		binary.BigEndian.PutUint64(dst, v)
	} else {
		binary.LittleEndian.PutUint64(dst, v)
	}
	return nil
}

// WriteUint writes the low size bytes of v (size 1, 2, 4 or 8).
func (w *Writer) WriteUint(v uint64, size uint32) error {
	switch size {
	case 1:
		return w.WriteU8(uint8(v))
	case 2:
		return w.WriteU16(uint16(v))
	case 4:
		return w.WriteU32(uint32(v))
	case 8:
		return w.WriteU64(v)
	}
	return errors.New(errors.PhaseSerialize, errors.KindUnsupported).
		Detail("integer width %d", size).
		Build()
}
