// Package nca parses NCA (Nintendo Content Archive) headers.
//
// The first 0xC00 bytes of an NCA are AES-128-XTS encrypted; this package
// expects already-decrypted bytes (see pkg/ncacrypto) and deals purely in
// header structure.
//
// Header layout (logical offsets from the decrypted start):
//
//	[0x000] RSA-2048 sig[0]   (0x100) - fixed key, over [0x200..0x400]
//	[0x100] RSA-2048 sig[1]   (0x100) - NPDM key
//	[0x200] Magic             NCA3/NCA2/NCA1/NCA0
//	[0x204] DistributionType  (1 byte)
//	[0x205] ContentType       (1 byte)
//	[0x206] KeyGenerationOld  (1 byte)
//	[0x207] KeyAreaEncKeyIdx  (1 byte)
//	[0x208] ContentSize       (u64 LE)
//	[0x210] ProgramId         (u64 LE)
//	[0x218] ContentIndex      (u32 LE)
//	[0x21C] SdkAddonVersion   (u32 LE)
//	[0x220] KeyGeneration     (1 byte)
//	[0x221] SignatureKeyGen   (1 byte, 9.0.0+)
//	[0x222] Reserved          (0xE bytes)
//	[0x230] RightsId          (0x10 bytes)
//	[0x240] FsEntries         (4 × 0x10 bytes)
//	[0x280] FsHeaderHashes    (4 × 0x20 bytes SHA-256)
//	[0x300] EncryptedKeyArea  (4 × 0x10 bytes)
package nca

import (
	"io"

	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/ioutil"
)

// DistributionType identifies how an NCA was distributed.
type DistributionType uint8

const (
	Download DistributionType = 0
	GameCard DistributionType = 1
)

// ContentType identifies what kind of content an NCA carries.
type ContentType uint8

const (
	Program ContentType = iota
	Meta
	Control
	Manual
	Data
	PublicData
)

// FsEntry points to a filesystem region within the NCA, in 0x200-byte
// media blocks.
type FsEntry struct {
	StartBlock uint32
	EndBlock   uint32
}

// Nca is a parsed NCA header.
type Nca struct {
	Version                uint8
	DistributionType       DistributionType
	ContentType            ContentType
	KeyGeneration          uint8 // max(KeyGenerationOld, KeyGeneration)
	KeyAreaEncKeyIndex     uint8
	ContentSize            uint64
	ProgramID              uint64
	ContentIndex           uint32
	SdkAddonVersion        uint32
	RightsID               [16]byte
	FsEntries              [4]FsEntry
	FsHeaderHashes         [4][32]byte
	EncryptedKeyArea       [4][16]byte
}

// Parse reads an NCA header from r, which must contain already-decrypted
// NCA bytes positioned at the start of the first RSA signature (logical
// offset 0x000).
func Parse(r io.ReadSeeker) (*Nca, error) {
	if _, err := r.Seek(0x200, io.SeekCurrent); err != nil {
		return nil, hakerr.Wrap(err)
	}

	magic, err := ioutil.BytesN(r, 4)
	if err != nil {
		return nil, err
	}
	var version uint8
	switch string(magic) {
	case "NCA3":
		version = 3
	case "NCA2":
		version = 2
	case "NCA1":
		version = 1
	case "NCA0":
		version = 0
	default:
		return nil, hakerr.New(hakerr.BadMagic)
	}

	distByte, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	contentByte, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	keyGenOld, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	keyAreaIdx, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	contentSize, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	programID, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	contentIndex, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	sdkAddonVersion, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	keyGenNew, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.U8(r); err != nil { // signature key generation
		return nil, err
	}
	if _, err := ioutil.BytesN(r, 0xE); err != nil { // reserved
		return nil, err
	}

	keyGeneration := keyGenOld
	if keyGenNew > keyGeneration {
		keyGeneration = keyGenNew
	}

	var rightsID [16]byte
	if err := ioutil.FixedBytes(r, rightsID[:]); err != nil {
		return nil, err
	}

	var fsEntries [4]FsEntry
	for i := range fsEntries {
		startBlock, err := ioutil.LEU32(r)
		if err != nil {
			return nil, err
		}
		endBlock, err := ioutil.LEU32(r)
		if err != nil {
			return nil, err
		}
		if _, err := ioutil.LEU64(r); err != nil { // reserved
			return nil, err
		}
		fsEntries[i] = FsEntry{StartBlock: startBlock, EndBlock: endBlock}
	}

	var fsHeaderHashes [4][32]byte
	for i := range fsHeaderHashes {
		if err := ioutil.FixedBytes(r, fsHeaderHashes[i][:]); err != nil {
			return nil, err
		}
	}

	var encryptedKeyArea [4][16]byte
	for i := range encryptedKeyArea {
		if err := ioutil.FixedBytes(r, encryptedKeyArea[i][:]); err != nil {
			return nil, err
		}
	}

	if version > 3 {
		return nil, hakerr.Versioned(version)
	}

	return &Nca{
		Version:            version,
		DistributionType:   DistributionType(distByte),
		ContentType:        ContentType(contentByte),
		KeyGeneration:      keyGeneration,
		KeyAreaEncKeyIndex: keyAreaIdx,
		ContentSize:        contentSize,
		ProgramID:          programID,
		ContentIndex:       contentIndex,
		SdkAddonVersion:    sdkAddonVersion,
		RightsID:           rightsID,
		FsEntries:          fsEntries,
		FsHeaderHashes:     fsHeaderHashes,
		EncryptedKeyArea:   encryptedKeyArea,
	}, nil
}

// UsesTitlekeyCrypto reports whether the NCA uses titlekey crypto (its
// RightsID is not all zeros).
func (n *Nca) UsesTitlekeyCrypto() bool {
	for _, b := range n.RightsID {
		if b != 0 {
			return true
		}
	}
	return false
}

// SectionOffset returns the byte offset within the NCA of the given
// section, or false if that section slot is unused.
func (n *Nca) SectionOffset(section int) (uint64, bool) {
	if section < 0 || section >= len(n.FsEntries) {
		return 0, false
	}
	e := n.FsEntries[section]
	if e.StartBlock == 0 && e.EndBlock == 0 {
		return 0, false
	}
	return uint64(e.StartBlock) * 0x200, true
}
