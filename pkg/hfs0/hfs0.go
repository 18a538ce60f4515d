// Package hfs0 parses HFS0 (HashedFS) archives: the partition format used
// inside XCI card images for the root, update, normal, and secure
// partitions.
//
// HFS0 is PFS0 with an added SHA-256 hash over a fixed-size prefix of each
// file, to be verified against a gamecard's write-once medium. hakswitch
// exposes the hash but does not verify it on every read; callers that
// need integrity checking call VerifyHash explicitly.
//
// Layout:
//
//	[0x00] Magic "HFS0"         (4 bytes)
//	[0x04] FileCount            (u32 LE)
//	[0x08] StringTableSize      (u32 LE)
//	[0x0C] Reserved             (4 bytes)
//	[0x10] EntryTable           (FileCount × 0x40 bytes)
//	[...]  StringTable          (StringTableSize bytes)
//	[...]  FileData             (remaining bytes)
//
// Each 0x40-byte entry is {offset u64 LE, size u64 LE, name-offset u32 LE,
// hashed-size u32 LE, reserved u64, hash [32]byte SHA-256}.
package hfs0

import (
	"crypto/sha256"
	"io"

	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/ioutil"
)

// File describes one entry inside an HFS0 container.
type File struct {
	Name       string
	Offset     uint64
	Size       uint64
	HashedSize uint32
	Hash       [32]byte
}

// Hfs0 is a parsed HFS0 container.
type Hfs0 struct {
	Files      []File
	dataOffset uint64
}

// SeekReader is the minimal contract parsers need.
type SeekReader interface {
	io.Reader
	io.Seeker
}

// Parse reads an HFS0 container from r, positioned at the HFS0 magic.
func Parse(r SeekReader) (*Hfs0, error) {
	base, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, hakerr.Wrap(err)
	}

	if err := ioutil.Magic(r, []byte("HFS0")); err != nil {
		return nil, err
	}
	fileCount, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	stringTableSize, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // reserved
		return nil, err
	}

	type rawEntry struct {
		offset, size uint64
		nameOffset   uint32
		hashedSize   uint32
		hash         [32]byte
	}
	entries := make([]rawEntry, fileCount)
	for i := range entries {
		offset, err := ioutil.LEU64(r)
		if err != nil {
			return nil, err
		}
		size, err := ioutil.LEU64(r)
		if err != nil {
			return nil, err
		}
		nameOffset, err := ioutil.LEU32(r)
		if err != nil {
			return nil, err
		}
		hashedSize, err := ioutil.LEU32(r)
		if err != nil {
			return nil, err
		}
		if _, err := ioutil.LEU64(r); err != nil { // reserved
			return nil, err
		}
		var hash [32]byte
		if err := ioutil.FixedBytes(r, hash[:]); err != nil {
			return nil, err
		}
		entries[i] = rawEntry{offset, size, nameOffset, hashedSize, hash}
	}

	stringTable, err := ioutil.BytesN(r, int(stringTableSize))
	if err != nil {
		return nil, err
	}

	files := make([]File, fileCount)
	for i, e := range entries {
		name, err := ioutil.NullString(stringTable, int(e.nameOffset))
		if err != nil {
			return nil, err
		}
		files[i] = File{
			Name:       name,
			Offset:     e.offset,
			Size:       e.size,
			HashedSize: e.hashedSize,
			Hash:       e.hash,
		}
	}

	const headerSize = 0x10
	const entrySize = 0x40
	dataOffset := uint64(base) + headerSize + uint64(fileCount)*entrySize + uint64(stringTableSize)

	return &Hfs0{Files: files, dataOffset: dataOffset}, nil
}

// FileByName finds a file by exact name.
func (h *Hfs0) FileByName(name string) (*File, bool) {
	for i := range h.Files {
		if h.Files[i].Name == name {
			return &h.Files[i], true
		}
	}
	return nil, false
}

// DataOffset returns the absolute stream offset where the data region
// begins.
func (h *Hfs0) DataOffset() uint64 { return h.dataOffset }

// Reader owns a seekable source and provides bounded streaming access to
// individual file payloads.
type Reader struct {
	inner SeekReader
	Hfs0  *Hfs0
}

// NewReader parses an HFS0 and wraps r for payload access.
func NewReader(r SeekReader) (*Reader, error) {
	h, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return &Reader{inner: r, Hfs0: h}, nil
}

// ReadFile seeks to file's data and returns a reader bounded to its
// declared size.
func (rd *Reader) ReadFile(file *File) (io.Reader, error) {
	if _, err := rd.inner.Seek(int64(rd.Hfs0.dataOffset+file.Offset), io.SeekStart); err != nil {
		return nil, hakerr.Wrap(err)
	}
	return io.LimitReader(rd.inner, int64(file.Size)), nil
}

// VerifyHash reads the first file.HashedSize bytes of file's data and
// reports whether they match file.Hash. Like ReadFile it seeks and reads
// the underlying stream, so it moves the position that an io.Reader
// previously returned by ReadFile reads from.
func (rd *Reader) VerifyHash(file *File) (bool, error) {
	if _, err := rd.inner.Seek(int64(rd.Hfs0.dataOffset+file.Offset), io.SeekStart); err != nil {
		return false, hakerr.Wrap(err)
	}
	buf, err := ioutil.BytesN(rd.inner, int(file.HashedSize))
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(buf)
	return sum == file.Hash, nil
}
