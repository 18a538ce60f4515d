// Package xci parses XCI (NX Card Image) headers: the physical game-card
// dump format.
//
// Overall layout:
//
//	[0x0000-0x0FFF] CardKeyArea (challenge-response authentication data)
//	[0x1000-0x11FF] CardHeader  (0x200 bytes)
//	[0x1200+]       11.0.0+ extension areas, CertArea, then NormalArea (root HFS0)
//
// Only the unencrypted fields of CardHeader are captured; the AES-128-CBC
// encrypted CardHeaderEncryptedData region (+0x190, 0x70 bytes) is not
// parsed.
package xci

import (
	"io"

	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/hfs0"
	"github.com/falk/hakswitch/pkg/ioutil"
)

// Xci is a parsed XCI game card image.
type Xci struct {
	Hfs0Offset     uint64
	Hfs0Size       uint64
	Hfs0HeaderHash [32]byte
	RomSize        uint8
	PackageID      uint64
	RootPartition  *hfs0.Hfs0
}

// SeekReader is the minimal contract parsers need.
type SeekReader interface {
	io.Reader
	io.Seeker
}

// Parse reads an XCI file from r, positioned at the start of the file. No
// crypto is performed.
func Parse(r SeekReader) (*Xci, error) {
	// CardKeyArea (0x1000) + RSA signature (0x100); "HEAD" magic at 0x1100.
	if _, err := r.Seek(0x1100, io.SeekStart); err != nil {
		return nil, hakerr.Wrap(err)
	}
	if err := ioutil.Magic(r, []byte("HEAD")); err != nil {
		return nil, err
	}

	if _, err := ioutil.LEU32(r); err != nil { // RomAreaStartPageAddress
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // BackupAreaStartPageAddress
		return nil, err
	}
	if _, err := ioutil.U8(r); err != nil { // TitleKeyDecIndex | KekIndex
		return nil, err
	}
	romSize, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.U8(r); err != nil { // Version
		return nil, err
	}
	if _, err := ioutil.U8(r); err != nil { // Flags
		return nil, err
	}
	packageID, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // ValidDataEndAddress
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // reserved
		return nil, err
	}
	if _, err := ioutil.BytesN(r, 0x10); err != nil { // IV
		return nil, err
	}
	hfs0Offset, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	hfs0Size, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	var hfs0HeaderHash [32]byte
	if err := ioutil.FixedBytes(r, hfs0HeaderHash[:]); err != nil {
		return nil, err
	}

	if _, err := r.Seek(int64(hfs0Offset), io.SeekStart); err != nil {
		return nil, hakerr.Wrap(err)
	}
	rootPartition, err := hfs0.Parse(r)
	if err != nil {
		return nil, err
	}

	return &Xci{
		Hfs0Offset:     hfs0Offset,
		Hfs0Size:       hfs0Size,
		Hfs0HeaderHash: hfs0HeaderHash,
		RomSize:        romSize,
		PackageID:      packageID,
		RootPartition:  rootPartition,
	}, nil
}

// RomCapacity returns the ROM capacity as a human-readable string, or
// "unknown" for an unrecognized RomSize byte.
func (x *Xci) RomCapacity() string {
	switch x.RomSize {
	case 0xFA:
		return "1 GB"
	case 0xF8:
		return "2 GB"
	case 0xF0:
		return "4 GB"
	case 0xE0:
		return "8 GB"
	case 0xE1:
		return "16 GB"
	case 0xE2:
		return "32 GB"
	default:
		return "unknown"
	}
}
