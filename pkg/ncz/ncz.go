// Package ncz parses NCZ sections: Zstandard-compressed NCA bodies used
// inside NSZ archives.
//
// An NSZ file is not a distinct container format; it is an NSP (PFS0)
// where individual NCA entries have been compressed with this
// Nintendo-specific scheme and renamed from .nca to .ncz. Typical usage:
// parse the NSZ as a pfs0.Pfs0, locate .ncz entries, parse the NCZ header
// with Parse, decompress each block with pkg/zstdshim, and feed the
// reconstructed plaintext to pkg/nca.
//
// Layout (after the standard 0x400-byte NCA header, still encrypted):
//
//	[0x400]          Magic "NCZSECTN"           (8 bytes)
//	[0x408]          SectionCount               (u64 LE)
//	[0x410]          Section descriptors        (N × 0x38 bytes)
//	[0x410 + N×0x38] Zstandard-compressed blocks, each prefixed by a u32 LE length
package ncz

import (
	"encoding/binary"
	"io"

	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/ioutil"
)

// Section describes one encrypted/compressed region of the plaintext NCA.
type Section struct {
	Offset        uint64
	Size          uint64
	CryptoType    uint8
	CryptoKey     [16]byte
	CryptoCounter [16]byte
}

// Header is the parsed NCZ-specific header.
type Header struct {
	Sections     []Section
	BlocksOffset uint64
}

// Parse reads the NCZ-specific header from r, which must be positioned at
// the NCZSECTN magic (immediately after the 0x400-byte NCA header).
func Parse(r io.ReadSeeker) (*Header, error) {
	if err := ioutil.Magic(r, []byte("NCZSECTN")); err != nil {
		return nil, err
	}
	sectionCount, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}

	sections := make([]Section, sectionCount)
	for i := range sections {
		offset, err := ioutil.LEU64(r)
		if err != nil {
			return nil, err
		}
		size, err := ioutil.LEU64(r)
		if err != nil {
			return nil, err
		}
		cryptoType, err := ioutil.U8(r)
		if err != nil {
			return nil, err
		}
		if _, err := ioutil.BytesN(r, 7); err != nil { // reserved
			return nil, err
		}
		var key, counter [16]byte
		if err := ioutil.FixedBytes(r, key[:]); err != nil {
			return nil, err
		}
		if err := ioutil.FixedBytes(r, counter[:]); err != nil {
			return nil, err
		}
		sections[i] = Section{
			Offset:        offset,
			Size:          size,
			CryptoType:    cryptoType,
			CryptoKey:     key,
			CryptoCounter: counter,
		}
	}

	blocksOffset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, hakerr.Wrap(err)
	}

	return &Header{Sections: sections, BlocksOffset: uint64(blocksOffset)}, nil
}

// ReadCompressedBlocks reads all Zstandard-compressed blocks from r,
// which must be positioned at header.BlocksOffset. Each block is prefixed
// with a u32 LE giving its compressed byte length; a short read of that
// length prefix (0 to 3 bytes available) ends the stream rather than
// erroring, matching the lenient trailing-padding tolerance of the
// original NSZ tooling.
func ReadCompressedBlocks(r io.Reader, header *Header) ([][]byte, error) {
	var blocks [][]byte
	for {
		var sizeBuf [4]byte
		n, err := io.ReadFull(r, sizeBuf[:])
		if n == 0 && err != nil {
			break
		}
		if n < 4 {
			break
		}
		compressedSize := binary.LittleEndian.Uint32(sizeBuf[:])
		if compressedSize == 0 {
			break
		}
		block, err := ioutil.BytesN(r, int(compressedSize))
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
