// Package ncacrypto applies the aes128 primitives to the specific crypto
// operations NCA containers need: AES-128-XTS header decryption,
// AES-128-CTR section decryption, and AES-128-ECB key-area unwrapping.
//
// Key hierarchy (brief):
//
//	prod.keys
//	  header_key (32 bytes)
//	    key1 (bytes  0–15) ─┐ AES-XTS decrypt NCA header
//	    key2 (bytes 16–31) ─┘
//
//	  key_area_key_{app,ocean,system}_XX (16 bytes each)
//	    AES-ECB unwrap EncryptedKeyArea entries in NCA header
//	      section key → AES-CTR decrypt section data
package ncacrypto

import (
	"encoding/binary"

	"github.com/falk/hakswitch/pkg/aes128"
	"github.com/falk/hakswitch/pkg/hakerr"
)

// HeaderSize is the size of the encrypted/decrypted NCA header region.
const HeaderSize = 0xC00

// DecryptHeader decrypts the first 0xC00 bytes of an NCA using AES-128-XTS.
//
// header_key's first 16 bytes are the cipher key, the second 16 the tweak
// key. Sectors 0 and 1 (the main NCA header) are always decrypted with
// sector indices 0 and 1. The NCA version is then read from the decrypted
// magic at offset 0x200: if it is "NCA2", each of the four FsHeader
// sectors at 0x400/0x600/0x800/0xA00 is independently decrypted as sector
// 0; otherwise they use contiguous sector indices 2..5.
//
// encrypted must be at least HeaderSize bytes; this is a programmer-error
// precondition, not a malformed-input condition, so it panics rather than
// returning an error.
func DecryptHeader(encrypted []byte, headerKey *[32]byte) [HeaderSize]byte {
	if len(encrypted) < HeaderSize {
		panic("ncacrypto: NCA header region must be at least 0xC00 bytes")
	}

	var k1, k2 [16]byte
	copy(k1[:], headerKey[:16])
	copy(k2[:], headerKey[16:])

	var out [HeaderSize]byte

	for sector := 0; sector < 2; sector++ {
		off := sector * aes128.SectorSize
		var block [aes128.SectorSize]byte
		copy(block[:], encrypted[off:off+aes128.SectorSize])
		aes128.XTSDecryptSector(&block, &k1, &k2, uint64(sector))
		copy(out[off:off+aes128.SectorSize], block[:])
	}

	isNCA2 := string(out[0x200:0x204]) == "NCA2"

	for fs := 0; fs < 4; fs++ {
		sector := uint64(fs + 2)
		if isNCA2 {
			sector = 0
		}
		off := 0x400 + fs*aes128.SectorSize
		var block [aes128.SectorSize]byte
		copy(block[:], encrypted[off:off+aes128.SectorSize])
		aes128.XTSDecryptSector(&block, &k1, &k2, sector)
		copy(out[off:off+aes128.SectorSize], block[:])
	}

	return out
}

// DecryptSectionCTR decrypts data in place using AES-128-CTR. counter is
// built by the caller as [bige64(SecureValue) ‖ bige64(byteOffset/16)].
func DecryptSectionCTR(data []byte, key, counter *[16]byte) {
	aes128.CTR(data, data, key, counter)
}

// BuildCounter assembles a 16-byte CTR counter from a FsHeader SecureValue
// and the absolute byte offset being decrypted.
func BuildCounter(secureValue uint64, byteOffset int64) [16]byte {
	var counter [16]byte
	binary.BigEndian.PutUint64(counter[:8], secureValue)
	binary.BigEndian.PutUint64(counter[8:], uint64(byteOffset)/16)
	return counter
}

// DecryptBlockECB decrypts a single 16-byte block with AES-128-ECB, used
// to unwrap independent keys from the NCA key area.
func DecryptBlockECB(block *[16]byte, key *[16]byte) [16]byte {
	rk := aes128.ExpandKey(key)
	return aes128.DecryptBlock(block, rk)
}

// mustLen is a defensive helper for call sites that slice caller-provided
// buffers into fixed-size keys.
func mustLen(b []byte, n int) error {
	if len(b) != n {
		return hakerr.Parsef("expected %d-byte key, got %d", n, len(b))
	}
	return nil
}

// SplitHeaderKey splits a 32-byte header key into its two independent
// 16-byte halves (cipher, tweak).
func SplitHeaderKey(headerKey []byte) (cipher, tweak [16]byte, err error) {
	if err := mustLen(headerKey, 32); err != nil {
		return cipher, tweak, err
	}
	copy(cipher[:], headerKey[:16])
	copy(tweak[:], headerKey[16:])
	return cipher, tweak, nil
}
