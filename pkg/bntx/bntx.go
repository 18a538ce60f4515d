// Package bntx parses BNTX (Binary NX Texture) containers: Nintendo
// Switch GPU texture files holding one or more textures.
//
// BNTX uses absolute internal pointers rather than a relocation-based
// layout a reader must walk; this package resolves name and BRTI
// pointers by seeking directly and does not process the relocation
// table. GPU texture data is located but never loaded — callers use
// DataBlockOffset plus a TextureInfo's DataOffsetRel.
//
// Layout:
//
//	[0x00] BNTX header  (0x20 bytes)
//	[0x20] NX section   (0x28 bytes)
//	[InfoPtrsOffset]    Array of u64 pointers to BRTI blocks (TextureCount entries)
//	[...]               BRTI blocks (one per texture, each 0x90 bytes)
//	[...]               String pool, data blocks, relocation table
package bntx

import (
	"io"
	"strings"

	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/ioutil"
)

// TextureInfo is metadata for a single texture stored in a BNTX file.
type TextureInfo struct {
	Name          string
	Width         uint32
	Height        uint32
	Depth         uint32
	ArrayCount    uint32
	MipmapCount   uint16
	Format        uint32
	DataOffsetRel uint32
	DataLength    uint64
}

// Bntx is a parsed BNTX texture container.
type Bntx struct {
	TextureCount    uint32
	Textures        []TextureInfo
	LittleEndian    bool
	DataBlockOffset uint64
}

// SeekReader is the minimal contract parsers need.
type SeekReader interface {
	io.Reader
	io.Seeker
}

// Parse reads a BNTX file from r, positioned at the start of the file.
func Parse(r SeekReader) (*Bntx, error) {
	if err := ioutil.Magic(r, []byte("BNTX")); err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // data length, always 0
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // version
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // version hi
		return nil, err
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
		return nil, hakerr.Parsef("invalid BNTX byte-order mark %#x", bom)
	}

	if _, err := ioutil.LEU16(r); err != nil { // format revision
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // name offset
		return nil, err
	}
	if _, err := ioutil.LEU16(r); err != nil { // string pool offset
		return nil, err
	}
	if _, err := ioutil.LEU16(r); err != nil { // reloc table offset
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // file size
		return nil, err
	}

	if err := ioutil.Magic(r, []byte("NX  ")); err != nil {
		return nil, err
	}
	textureCount, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	infoPtrsOffset, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	dataBlockOffset, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU64(r); err != nil { // dict offset
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // string dict offset
		return nil, err
	}

	if _, err := r.Seek(int64(infoPtrsOffset), io.SeekStart); err != nil {
		return nil, hakerr.Wrap(err)
	}
	brtiOffsets := make([]uint64, textureCount)
	for i := range brtiOffsets {
		off, err := ioutil.LEU64(r)
		if err != nil {
			return nil, err
		}
		brtiOffsets[i] = off
	}

	textures := make([]TextureInfo, textureCount)
	for i, off := range brtiOffsets {
		if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
			return nil, hakerr.Wrap(err)
		}
		tex, err := parseBrti(r)
		if err != nil {
			return nil, err
		}
		textures[i] = *tex
	}

	return &Bntx{
		TextureCount:    textureCount,
		Textures:        textures,
		LittleEndian:    le,
		DataBlockOffset: dataBlockOffset,
	}, nil
}

func parseBrti(r SeekReader) (*TextureInfo, error) {
	if err := ioutil.Magic(r, []byte("BRTI")); err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // length, always 0x90
		return nil, err
	}
	dataLength, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.U8(r); err != nil { // flags
		return nil, err
	}
	if _, err := ioutil.U8(r); err != nil { // dimensions
		return nil, err
	}
	if _, err := ioutil.LEU16(r); err != nil { // tile mode
		return nil, err
	}
	if _, err := ioutil.LEU16(r); err != nil { // swizzle value
		return nil, err
	}
	mipmapCount, err := ioutil.LEU16(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU16(r); err != nil { // multi-sample count
		return nil, err
	}
	if _, err := ioutil.LEU16(r); err != nil { // reserved
		return nil, err
	}
	format, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // access flags
		return nil, err
	}
	width, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	height, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	depth, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	arrayCount, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // block height log2
		return nil, err
	}
	if _, err := r.Seek(0x14, io.SeekCurrent); err != nil { // reserved
		return nil, hakerr.Wrap(err)
	}
	dataOffsetRel, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	nameAbs, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU64(r); err != nil { // parent offset
		return nil, err
	}
	if _, err := ioutil.LEU64(r); err != nil { // ptrs offset
		return nil, err
	}

	name, err := readName(r, nameAbs)
	if err != nil {
		return nil, err
	}

	return &TextureInfo{
		Name:          name,
		Width:         width,
		Height:        height,
		Depth:         depth,
		ArrayCount:    arrayCount,
		MipmapCount:   mipmapCount,
		Format:        format,
		DataOffsetRel: dataOffsetRel,
		DataLength:    dataLength,
	}, nil
}

// readName reads a length-prefixed (u16 LE count, no null terminator)
// string from the string pool at absolute offset ptr.
func readName(r SeekReader, ptr uint64) (string, error) {
	if _, err := r.Seek(int64(ptr), io.SeekStart); err != nil {
		return "", hakerr.Wrap(err)
	}
	length, err := ioutil.LEU16(r)
	if err != nil {
		return "", err
	}
	buf, err := ioutil.BytesN(r, int(length))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(buf), "�"), nil
}

// TextureDataOffset returns the absolute file offset of tex's GPU data.
func (b *Bntx) TextureDataOffset(tex *TextureInfo) uint64 {
	return b.DataBlockOffset + uint64(tex.DataOffsetRel)
}
