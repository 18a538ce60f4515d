// Package ioutil provides the typed stream-reading primitives shared by
// every hakswitch parser: fixed-width integer reads in either endianness,
// fixed/variable byte reads, magic verification, and null-terminated
// string extraction.
//
// Every function reads exactly its promised length or fails with
// hakerr.UnexpectedEOF — there is no partial-read semantics.
package ioutil

import (
	"encoding/binary"
	"errors"
	"io"
	"strings"

	"github.com/falk/hakswitch/pkg/hakerr"
)

func wrapRead(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return hakerr.New(hakerr.UnexpectedEOF)
	}
	return hakerr.Wrap(err)
}

// U8 reads a single byte.
func U8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrapRead(err)
	}
	return b[0], nil
}

// LEU16 reads a little-endian uint16.
func LEU16(r io.Reader) (uint16, error) {
	b, err := BytesN(r, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// LEU32 reads a little-endian uint32.
func LEU32(r io.Reader) (uint32, error) {
	b, err := BytesN(r, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// LEU64 reads a little-endian uint64.
func LEU64(r io.Reader) (uint64, error) {
	b, err := BytesN(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// BEU16 reads a big-endian uint16.
func BEU16(r io.Reader) (uint16, error) {
	b, err := BytesN(r, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// BEU32 reads a big-endian uint32.
func BEU32(r io.Reader) (uint32, error) {
	b, err := BytesN(r, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// BEU64 reads a big-endian uint64.
func BEU64(r io.Reader) (uint64, error) {
	b, err := BytesN(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// EndU16 reads a uint16 with caller-supplied endianness (le selects
// little-endian).
func EndU16(r io.Reader, le bool) (uint16, error) {
	if le {
		return LEU16(r)
	}
	return BEU16(r)
}

// EndU32 reads a uint32 with caller-supplied endianness (le selects
// little-endian).
func EndU32(r io.Reader, le bool) (uint32, error) {
	if le {
		return LEU32(r)
	}
	return BEU32(r)
}

// FixedBytes reads exactly len(out) bytes into out, which the caller
// typically backs with a fixed-size array (out[:]).
func FixedBytes(r io.Reader, out []byte) error {
	_, err := io.ReadFull(r, out)
	return wrapRead(err)
}

// BytesN reads exactly n bytes into a freshly allocated buffer.
func BytesN(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, wrapRead(err)
	}
	return b, nil
}

// Magic verifies that the next len(expected) bytes match expected exactly,
// failing with hakerr.BadMagic otherwise.
func Magic(r io.Reader, expected []byte) error {
	got, err := BytesN(r, len(expected))
	if err != nil {
		return err
	}
	for i := range expected {
		if got[i] != expected[i] {
			return hakerr.New(hakerr.BadMagic)
		}
	}
	return nil
}

// NullString extracts a null-terminated UTF-8 string from buf starting at
// offset. Invalid UTF-8 sequences are replaced with the Unicode
// replacement character rather than failing the parse.
func NullString(buf []byte, offset int) (string, error) {
	if offset < 0 || offset > len(buf) {
		return "", hakerr.New(hakerr.InvalidRange)
	}
	slice := buf[offset:]
	end := -1
	for i, b := range slice {
		if b == 0 {
			end = i
			break
		}
	}
	if end < 0 {
		return "", hakerr.New(hakerr.UnterminatedName)
	}
	return strings.ToValidUTF8(string(slice[:end]), "�"), nil
}

// NullPaddedString decodes a fixed-width, null-padded field (e.g. NPDM's
// TitleName/ProductCode): the string runs up to the first null byte, or
// the whole buffer if there is none.
func NullPaddedString(buf []byte) string {
	end := len(buf)
	for i, b := range buf {
		if b == 0 {
			end = i
			break
		}
	}
	return strings.ToValidUTF8(string(buf[:end]), "�")
}

// ReadNullString reads a null-terminated UTF-8 string byte-by-byte from r,
// stopping at (and consuming) the terminator.
func ReadNullString(r io.Reader) (string, error) {
	var b strings.Builder
	for {
		c, err := U8(r)
		if err != nil {
			return "", err
		}
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return strings.ToValidUTF8(b.String(), "�"), nil
}
