// Package npdm parses NPDM (Nintendo Program Descriptor Meta) files:
// process security metadata found as main.npdm in the ExeFS section of a
// Program NCA.
//
// File layout:
//
//	[0x00] Magic "META"                                   (4 bytes)
//	[0x04] Unknown / signature key generation             (u32 LE)
//	[0x08] Reserved                                       (4 bytes)
//	[0x0C] MMUFlags (bit 0 = 64-bit mode)                 (1 byte)
//	[0x0D] Reserved                                       (1 byte)
//	[0x0E] MainThreadPriority (0-63)                      (1 byte)
//	[0x0F] MainThreadCoreNumber                           (1 byte)
//	[0x10] Reserved                                       (4 bytes)
//	[0x14] SystemResourceSize                             (u32 LE)
//	[0x18] Version                                        (u32 LE)
//	[0x1C] MainThreadStackSize                            (u32 LE)
//	[0x20] TitleName (null-padded UTF-8, 16 bytes)
//	[0x30] ProductCode (null-padded, 16 bytes)
//	[0x40] Reserved (0x30 bytes)
//	[0x70] AciOffset  (relative to start of NPDM file)    (u32 LE)
//	[0x74] AciSize                                        (u32 LE)
//	[0x78] AcidOffset (relative to start of NPDM file)    (u32 LE)
//	[0x7C] AcidSize                                       (u32 LE)
//
// ACI0 (at AciOffset) carries the per-build ProgramId; ACID (at
// AcidOffset) is the signed access-control descriptor. ACID parsing is
// best-effort: a malformed or absent ACID does not fail the overall
// parse, since the field a caller usually wants (ProgramId) lives in
// ACI0.
package npdm

import (
	"io"

	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/ioutil"
)

// Aci0 is per-title access control info.
type Aci0 struct {
	ProgramID uint64
}

// Acid is the signed access-control descriptor.
type Acid struct {
	Flags         uint32
	ProgramIDMin  uint64
	ProgramIDMax  uint64
}

// Npdm is a parsed NPDM file.
type Npdm struct {
	Is64Bit             bool
	MainThreadPriority  uint8
	MainThreadCore      uint8
	SystemResourceSize  uint32
	Version             uint32
	MainThreadStackSize uint32
	TitleName           string
	ProductCode         string
	Aci                 Aci0
	Acid                *Acid // nil if absent or malformed
}

// Parse reads an NPDM file from r, positioned at the META magic.
func Parse(r io.ReadSeeker) (*Npdm, error) {
	base, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, hakerr.Wrap(err)
	}

	if err := ioutil.Magic(r, []byte("META")); err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // unknown/sig key gen
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // reserved
		return nil, err
	}
	mmuFlags, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	is64Bit := mmuFlags&0x01 != 0
	if _, err := ioutil.U8(r); err != nil { // reserved
		return nil, err
	}
	mainThreadPriority, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	mainThreadCore, err := ioutil.U8(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // reserved
		return nil, err
	}
	systemResourceSize, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	version, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	mainThreadStackSize, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}

	titleRaw, err := ioutil.BytesN(r, 0x10)
	if err != nil {
		return nil, err
	}
	productRaw, err := ioutil.BytesN(r, 0x10)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.BytesN(r, 0x30); err != nil { // reserved
		return nil, err
	}

	aciOffset, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // aciSize
		return nil, err
	}
	acidOffset, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // acidSize
		return nil, err
	}

	if _, err := r.Seek(base+int64(aciOffset), io.SeekStart); err != nil {
		return nil, hakerr.Wrap(err)
	}
	aci, err := parseAci0(r)
	if err != nil {
		return nil, err
	}

	var acid *Acid
	if acidOffset > 0 {
		if _, err := r.Seek(base+int64(acidOffset), io.SeekStart); err == nil {
			if a, err := parseAcid(r); err == nil {
				acid = a
			}
		}
	}

	return &Npdm{
		Is64Bit:             is64Bit,
		MainThreadPriority:  mainThreadPriority,
		MainThreadCore:      mainThreadCore,
		SystemResourceSize:  systemResourceSize,
		Version:             version,
		MainThreadStackSize: mainThreadStackSize,
		TitleName:           ioutil.NullPaddedString(titleRaw),
		ProductCode:         ioutil.NullPaddedString(productRaw),
		Aci:                 *aci,
		Acid:                acid,
	}, nil
}

func parseAci0(r io.Reader) (*Aci0, error) {
	if err := ioutil.Magic(r, []byte("ACI0")); err != nil {
		return nil, err
	}
	if _, err := ioutil.BytesN(r, 0xC); err != nil { // reserved
		return nil, err
	}
	programID, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	return &Aci0{ProgramID: programID}, nil
}

func parseAcid(r io.Reader) (*Acid, error) {
	if _, err := ioutil.BytesN(r, 0x100); err != nil { // RSA signature
		return nil, err
	}
	if _, err := ioutil.BytesN(r, 0x100); err != nil { // RSA public key
		return nil, err
	}
	if err := ioutil.Magic(r, []byte("ACID")); err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // size
		return nil, err
	}
	flags, err := ioutil.LEU32(r)
	if err != nil {
		return nil, err
	}
	if _, err := ioutil.LEU32(r); err != nil { // reserved
		return nil, err
	}
	programIDMin, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	programIDMax, err := ioutil.LEU64(r)
	if err != nil {
		return nil, err
	}
	return &Acid{Flags: flags, ProgramIDMin: programIDMin, ProgramIDMax: programIDMax}, nil
}
