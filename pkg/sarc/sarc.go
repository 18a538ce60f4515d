// Package sarc parses SARC (SEAD ARChive) containers: a general-purpose
// archive format used pervasively in Switch game content, often delivered
// Zstandard-compressed (.zs) or Yaz0-compressed (.szs).
//
// Layout:
//
//	[0x00] SARC header  (0x14 bytes)
//	[0x14] SFAT header  (0x0C bytes) + FAT entries (FileCount × 0x10)
//	[...]  SFNT header  (0x08 bytes) + null-terminated filenames, 4-byte aligned
//	[...]  Data section (begins at DataOffset from the SARC header)
//
// Endianness is determined by the byte-order mark in the SARC header
// (0xFEFF big-endian, 0xFFFE little-endian); the BOM field itself is
// always written little-endian.
package sarc

import (
	"io"

	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/ioutil"
)

// File describes one entry inside a SARC archive. Name is empty if the
// archive has no name-table entry for this file.
type File struct {
	Name      string
	Hash      uint32
	DataStart uint32
	DataEnd   uint32
}

// Size returns the file's length in bytes.
func (f *File) Size() uint64 {
	if f.DataEnd < f.DataStart {
		return 0
	}
	return uint64(f.DataEnd - f.DataStart)
}

// Sarc is a parsed SARC archive (metadata only).
type Sarc struct {
	Files          []File
	LittleEndian   bool
	Version        uint16
	HashMultiplier uint32

	dataOffset uint64
}

// SeekReader is the minimal contract parsers need.
type SeekReader interface {
	io.Reader
	io.Seeker
}

// Parse reads a SARC archive from r, positioned at the SARC magic.
func Parse(r SeekReader) (*Sarc, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, hakerr.Wrap(err)
	}

	if err := ioutil.Magic(r, []byte("SARC")); err != nil {
		return nil, err
	}
	headerSize, err := ioutil.LEU16(r)
	if err != nil {
		return nil, err
	}
	if headerSize != 0x14 {
		return nil, hakerr.Parsef("unexpected SARC header size %#x", headerSize)
	}
	bom, err := ioutil.LEU16(r)
	if err != nil {
		return nil, err
	}
	var le bool
	switch bom {
	case 0xFFFE:
		le = true
	case 0xFEFF:
		le = false
	default:
		return nil, hakerr.Parsef("invalid SARC byte-order mark %#x", bom)
	}

	if _, err := ioutil.EndU32(r, le); err != nil { // total size
		return nil, err
	}
	dataOffsetField, err := ioutil.EndU32(r, le)
	if err != nil {
		return nil, err
	}
	version, err := ioutil.LEU16(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU16(r); err != nil { // padding
		return nil, err
	}

	if err := ioutil.Magic(r, []byte("SFAT")); err != nil {
		return nil, err
	}
	sfatSize, err := ioutil.LEU16(r)
	if err != nil {
		return nil, err
	}
	if sfatSize != 0x0C {
		return nil, hakerr.Parsef("unexpected SFAT header size %#x", sfatSize)
	}
	fileCount, err := ioutil.EndU16(r, le)
	if err != nil {
		return nil, err
	}
	if fileCount > 0x3FFF {
		return nil, hakerr.Parsef("SARC file count %d exceeds maximum", fileCount)
	}
	hashMultiplier, err := ioutil.EndU32(r, le)
	if err != nil {
		return nil, err
	}

	type fatEntry struct {
		hash, nameAttrs, dataStart, dataEnd uint32
	}
	fat := make([]fatEntry, fileCount)
	for i := range fat {
		hash, err := ioutil.EndU32(r, le)
		if err != nil {
			return nil, err
		}
		nameAttrs, err := ioutil.EndU32(r, le)
		if err != nil {
			return nil, err
		}
		dataStart, err := ioutil.EndU32(r, le)
		if err != nil {
			return nil, err
		}
		dataEnd, err := ioutil.EndU32(r, le)
		if err != nil {
			return nil, err
		}
		fat[i] = fatEntry{hash, nameAttrs, dataStart, dataEnd}
	}

	if err := ioutil.Magic(r, []byte("SFNT")); err != nil {
		return nil, err
	}
	sfntSize, err := ioutil.LEU16(r)
	if err != nil {
		return nil, err
	}
	if sfntSize != 8 {
		return nil, hakerr.Parsef("unexpected SFNT header size %#x", sfntSize)
	}
	if _, err := ioutil.LEU16(r); err != nil { // padding
		return nil, err
	}

	nameTableStart, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, hakerr.Wrap(err)
	}

	files := make([]File, fileCount)
	for i, e := range fat {
		name := ""
		if e.nameAttrs != 0 {
			wordOff := uint64(e.nameAttrs & 0x00FFFFFF)
			byteOff := wordOff * 4
			if _, err := r.Seek(nameTableStart+int64(byteOff), io.SeekStart); err != nil {
				return nil, hakerr.Wrap(err)
			}
			n, err := ioutil.ReadNullString(r)
			if err != nil {
				return nil, err
			}
			name = n
		}
		files[i] = File{Name: name, Hash: e.hash, DataStart: e.dataStart, DataEnd: e.dataEnd}
	}

	return &Sarc{
		Files:          files,
		LittleEndian:   le,
		Version:        version,
		HashMultiplier: hashMultiplier,
		dataOffset:     uint64(start) + uint64(dataOffsetField),
	}, nil
}

// HashFilename computes the canonical SARC filename hash using this
// archive's multiplier (normally 101).
func (s *Sarc) HashFilename(name string) uint32 {
	return Hash([]byte(name), s.HashMultiplier)
}

// FileByName finds a file by hash-then-exact-name comparison.
func (s *Sarc) FileByName(name string) (*File, bool) {
	target := s.HashFilename(name)
	for i := range s.Files {
		if s.Files[i].Hash == target && s.Files[i].Name == name {
			return &s.Files[i], true
		}
	}
	return nil, false
}

// DataOffset returns the absolute stream offset where the data section
// begins.
func (s *Sarc) DataOffset() uint64 { return s.dataOffset }

// Hash computes SARC's filename hash: each byte is sign-extended as int8
// before accumulating, so bytes ≥ 0x80 subtract rather than add.
func Hash(name []byte, multiplier uint32) uint32 {
	var h uint32
	for _, b := range name {
		h = h*multiplier + uint32(int32(int8(b)))
	}
	return h
}

// Reader owns a seekable source and provides bounded streaming access to
// individual file payloads.
type Reader struct {
	inner SeekReader
	Sarc  *Sarc
}

// NewReader parses a SARC archive and wraps r for payload access.
func NewReader(r SeekReader) (*Reader, error) {
	s, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return &Reader{inner: r, Sarc: s}, nil
}

// ReadFile seeks to file's data and returns a reader bounded to its
// declared size.
func (rd *Reader) ReadFile(file *File) (io.Reader, error) {
	if _, err := rd.inner.Seek(int64(rd.Sarc.dataOffset+uint64(file.DataStart)), io.SeekStart); err != nil {
		return nil, hakerr.Wrap(err)
	}
	return io.LimitReader(rd.inner, int64(file.Size())), nil
}
