package scn

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Reader is a bounds-checked sequential cursor over an immutable byte
// buffer. Every read fails with ErrOutOfRange if it would cross the buffer
// end; there is no partial read. Callers abort the current file on error.
type Reader struct {
	data []byte
	ofs  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func NewReaderAt(data []byte, ofs int) *Reader {
	return &Reader{data: data, ofs: ofs}
}

func (r *Reader) Tell() int { return r.ofs }

func (r *Reader) Len() int { return len(r.data) }

func (r *Reader) Seek(ofs int) error {
	if ofs < 0 || ofs > len(r.data) {
		return errors.Wrapf(ErrInvalidOffset, "seek to 0x%x (len 0x%x)", ofs, len(r.data))
	}
	r.ofs = ofs
	return nil
}

func (r *Reader) Skip(n int) error {
	return r.Seek(r.ofs + n)
}

func (r *Reader) require(n int) error {
	if n < 0 || r.ofs+n > len(r.data) {
		return errors.Wrapf(ErrOutOfRange, "read %d bytes at 0x%x (len 0x%x)", n, r.ofs, len(r.data))
	}
	return nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.data[r.ofs]
	r.ofs++
	return v, nil
}

func (r *Reader) U16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.ofs:])
	r.ofs += 2
	return v, nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.ofs:])
	r.ofs += 4
	return v, nil
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	b := r.data[r.ofs : r.ofs+n]
	r.ofs += n
	return b, nil
}

// CString reads a NUL-terminated string. Invalid UTF-8 sequences are
// replaced, not rejected.
func (r *Reader) CString() (string, error) {
	end := bytes.IndexByte(r.data[r.ofs:], 0)
	if end < 0 {
		return "", errors.Wrapf(ErrOutOfRange, "unterminated cstring at 0x%x", r.ofs)
	}
	s := string(r.data[r.ofs : r.ofs+end])
	r.ofs += end + 1
	return strings.ToValidUTF8(s, "�"), nil
}
