package ioutil

import (
	"bytes"
	"errors"
	"testing"

	"github.com/falk/hakswitch/pkg/hakerr"
)

func TestLEAndBEIntegers(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04})

	v, err := LEU16(bytes.NewReader([]byte{0x34, 0x12}))
	if err != nil || v != 0x1234 {
		t.Fatalf("LEU16 = %#x, %v", v, err)
	}

	v32, err := BEU32(r)
	if err != nil || v32 != 0x01020304 {
		t.Fatalf("BEU32 = %#x, %v", v32, err)
	}
}

func TestEndU32Dispatch(t *testing.T) {
	le, err := EndU32(bytes.NewReader([]byte{0x01, 0x00, 0x00, 0x00}), true)
	if err != nil || le != 1 {
		t.Fatalf("EndU32(le) = %d, %v", le, err)
	}
	be, err := EndU32(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x01}), false)
	if err != nil || be != 1 {
		t.Fatalf("EndU32(be) = %d, %v", be, err)
	}
}

func TestMagicMismatch(t *testing.T) {
	err := Magic(bytes.NewReader([]byte("XXXX")), []byte("PFS0"))
	if !errors.Is(err, hakerr.New(hakerr.BadMagic)) {
		t.Fatalf("expected BadMagic, got %v", err)
	}
}

func TestMagicMatch(t *testing.T) {
	if err := Magic(bytes.NewReader([]byte("PFS0")), []byte("PFS0")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnexpectedEOF(t *testing.T) {
	_, err := LEU64(bytes.NewReader([]byte{0x01, 0x02}))
	if !errors.Is(err, hakerr.New(hakerr.UnexpectedEOF)) {
		t.Fatalf("expected UnexpectedEOF, got %v", err)
	}
}

func TestNullStringHappyPath(t *testing.T) {
	buf := []byte("a\x00b\x00\x00\x00\x00\x00")
	s, err := NullString(buf, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "b" {
		t.Fatalf("NullString = %q, want %q", s, "b")
	}
}

func TestNullStringUnterminated(t *testing.T) {
	buf := []byte("abc")
	_, err := NullString(buf, 0)
	if !errors.Is(err, hakerr.New(hakerr.UnterminatedName)) {
		t.Fatalf("expected UnterminatedName, got %v", err)
	}
}

func TestNullStringInvalidRange(t *testing.T) {
	buf := []byte("abc")
	_, err := NullString(buf, 10)
	if !errors.Is(err, hakerr.New(hakerr.InvalidRange)) {
		t.Fatalf("expected InvalidRange, got %v", err)
	}
}

func TestNullStringLossyUTF8(t *testing.T) {
	buf := []byte{0xFF, 0xFE, 0x00}
	s, err := NullString(buf, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == "" {
		t.Fatalf("expected a replacement-character decoded string, got empty")
	}
}

func TestNullPaddedString(t *testing.T) {
	buf := []byte("hello\x00\x00\x00")
	if got := NullPaddedString(buf); got != "hello" {
		t.Fatalf("NullPaddedString = %q, want %q", got, "hello")
	}
}

func TestNullPaddedStringNoTerminator(t *testing.T) {
	buf := []byte("abcdef")
	if got := NullPaddedString(buf); got != "abcdef" {
		t.Fatalf("NullPaddedString = %q, want %q", got, "abcdef")
	}
}

func TestReadNullString(t *testing.T) {
	s, err := ReadNullString(bytes.NewReader([]byte("title\x00trailing")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "title" {
		t.Fatalf("ReadNullString = %q, want %q", s, "title")
	}
}

func TestFixedBytes(t *testing.T) {
	var out [4]byte
	if err := FixedBytes(bytes.NewReader([]byte{1, 2, 3, 4}), out[:]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != [4]byte{1, 2, 3, 4} {
		t.Fatalf("FixedBytes = %v", out)
	}
}
