package scn

import (
	"testing"

	"github.com/pkg/errors"
)

func TestReaderSequence(t *testing.T) {
	r := NewReader([]byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		'a', 'b', 'c', 0,
	})

	if v, err := r.U8(); err != nil || v != 0x01 {
		t.Errorf("U8 = %v, %v", v, err)
	}
	if v, err := r.U16(); err != nil || v != 0x0302 {
		t.Errorf("U16 = %#x, %v", v, err)
	}
	if v, err := r.U32(); err != nil || v != 0x07060504 {
		t.Errorf("U32 = %#x, %v", v, err)
	}
	if s, err := r.CString(); err != nil || s != "abc" {
		t.Errorf("CString = %q, %v", s, err)
	}
	if r.Tell() != r.Len() {
		t.Errorf("Tell = %d, want %d", r.Tell(), r.Len())
	}
}

func TestReaderOutOfRange(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.U32(); errors.Cause(err) != ErrOutOfRange {
		t.Errorf("U32 past end = %v, want ErrOutOfRange", err)
	}
	// failed read must not advance
	if r.Tell() != 0 {
		t.Errorf("Tell after failed read = %d", r.Tell())
	}
	if _, err := NewReader([]byte{'x', 'y'}).CString(); errors.Cause(err) != ErrOutOfRange {
		t.Errorf("unterminated CString = %v, want ErrOutOfRange", err)
	}
}

func TestReaderSeekSkip(t *testing.T) {
	r := NewReader(make([]byte, 16))
	if err := r.Skip(12); err != nil || r.Tell() != 12 {
		t.Errorf("Skip(12): %v, ofs %d", err, r.Tell())
	}
	if err := r.Skip(8); errors.Cause(err) != ErrInvalidOffset {
		t.Errorf("Skip past end = %v, want ErrInvalidOffset", err)
	}
	if err := r.Seek(-1); errors.Cause(err) != ErrInvalidOffset {
		t.Errorf("Seek(-1) = %v, want ErrInvalidOffset", err)
	}
}
