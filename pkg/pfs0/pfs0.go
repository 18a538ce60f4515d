// Package pfs0 parses PFS0 (PartitionFS) archives: the flat outer
// container for NSP files, also embedded in NCAs as the ExeFS and Logo
// sections.
//
// Layout:
//
//	[0x00] Magic "PFS0"        (4 bytes)
//	[0x04] FileCount           (u32 LE)
//	[0x08] StringTableSize     (u32 LE)
//	[0x0C] Reserved            (4 bytes)
//	[0x10] EntryTable          (FileCount × 0x18 bytes)
//	[...]  StringTable         (StringTableSize bytes)
//	[...]  FileData            (remaining bytes)
//
// Each 0x18-byte entry is {offset u64 LE, size u64 LE, name-offset u32 LE,
// reserved u32}, relative to the data section. There is no per-file
// hashing, unlike hfs0.
package pfs0

import (
	"io"

	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/ioutil"
)

// File describes one entry inside a PFS0 container.
type File struct {
	Name   string
	Offset uint64
	Size   uint64
}

// Pfs0 is a parsed PFS0 container; file data is not loaded eagerly. Use
// Reader for streaming access.
type Pfs0 struct {
	Files []File

	// dataOffset is absolute within the stream the archive was parsed
	// from, so parsing works the same on sub-streams.
	dataOffset uint64
}

// SeekReader is the minimal contract parsers need: sequential reads plus
// absolute seeks. *os.File and *bytes.Reader/io.SectionReader all satisfy
// it via io.ReadSeeker.
type SeekReader interface {
	io.Reader
	io.Seeker
}

// Parse reads a PFS0 container from r, which must be positioned at the
// PFS0 magic. File contents are not read.
func Parse(r SeekReader) (*Pfs0, error) {
	base, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, hakerr.Wrap(err)
	}

	if err := ioutil.Magic(r, []byte("PFS0")); err != nil {
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
		if _, err := ioutil.LEU32(r); err != nil { // reserved
			return nil, err
		}
		entries[i] = rawEntry{offset, size, nameOffset}
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
		files[i] = File{Name: name, Offset: e.offset, Size: e.size}
	}

	const headerSize = 0x10
	const entrySize = 0x18
	dataOffset := uint64(base) + headerSize + uint64(fileCount)*entrySize + uint64(stringTableSize)

	return &Pfs0{Files: files, dataOffset: dataOffset}, nil
}

// FileByName finds a file by exact name.
func (p *Pfs0) FileByName(name string) (*File, bool) {
	for i := range p.Files {
		if p.Files[i].Name == name {
			return &p.Files[i], true
		}
	}
	return nil, false
}

// DataOffset returns the absolute stream offset where the data region
// begins.
func (p *Pfs0) DataOffset() uint64 { return p.dataOffset }

// Reader owns a seekable source and provides bounded streaming access to
// individual file payloads. Only one caller may hold the reader's
// exclusive borrow (the returned io.Reader) at a time, since ReadFile
// repositions the underlying stream.
type Reader struct {
	inner SeekReader
	Pfs0  *Pfs0
}

// NewReader parses a PFS0 and wraps r for payload access.
func NewReader(r SeekReader) (*Reader, error) {
	p, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return &Reader{inner: r, Pfs0: p}, nil
}

// ReadFile seeks to file's data and returns a reader bounded to its
// declared size.
func (rd *Reader) ReadFile(file *File) (io.Reader, error) {
	if _, err := rd.inner.Seek(int64(rd.Pfs0.dataOffset+file.Offset), io.SeekStart); err != nil {
		return nil, hakerr.Wrap(err)
	}
	return io.LimitReader(rd.inner, int64(file.Size)), nil
}
