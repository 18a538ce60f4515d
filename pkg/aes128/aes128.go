// Package aes128 is a self-contained, table-driven AES-128 implementation
// providing the block cipher, ECB, CTR, and a Nintendo-specific XTS
// variant.
//
// This is a correctness-first, not a security-first, implementation: it is
// not constant-time and must not be used in timing-sensitive contexts. It
// exists to decrypt already-derived Switch content keys offline, where the
// only adversary is a malformed file.
package aes128

import (
	"encoding/binary"
	"sync"
)

// BlockSize is the AES block size in bytes.
const BlockSize = 16

// sbox is the Rijndael S-box: the multiplicative inverse in GF(2^8)
// (0 maps to 0) followed by a fixed affine transform over GF(2).
var sbox = [256]byte{
	0x63, 0x7C, 0x77, 0x7B, 0xF2, 0x6B, 0x6F, 0xC5, 0x30, 0x01, 0x67, 0x2B, 0xFE, 0xD7, 0xAB, 0x76,
	0xCA, 0x82, 0xC9, 0x7D, 0xFA, 0x59, 0x47, 0xF0, 0xAD, 0xD4, 0xA2, 0xAF, 0x9C, 0xA4, 0x72, 0xC0,
	0xB7, 0xFD, 0x93, 0x26, 0x36, 0x3F, 0xF7, 0xCC, 0x34, 0xA5, 0xE5, 0xF1, 0x71, 0xD8, 0x31, 0x15,
	0x04, 0xC7, 0x23, 0xC3, 0x18, 0x96, 0x05, 0x9A, 0x07, 0x12, 0x80, 0xE2, 0xEB, 0x27, 0xB2, 0x75,
	0x09, 0x83, 0x2C, 0x1A, 0x1B, 0x6E, 0x5A, 0xA0, 0x52, 0x3B, 0xD6, 0xB3, 0x29, 0xE3, 0x2F, 0x84,
	0x53, 0xD1, 0x00, 0xED, 0x20, 0xFC, 0xB1, 0x5B, 0x6A, 0xCB, 0xBE, 0x39, 0x4A, 0x4C, 0x58, 0xCF,
	0xD0, 0xEF, 0xAA, 0xFB, 0x43, 0x4D, 0x33, 0x85, 0x45, 0xF9, 0x02, 0x7F, 0x50, 0x3C, 0x9F, 0xA8,
	0x51, 0xA3, 0x40, 0x8F, 0x92, 0x9D, 0x38, 0xF5, 0xBC, 0xB6, 0xDA, 0x21, 0x10, 0xFF, 0xF3, 0xD2,
	0xCD, 0x0C, 0x13, 0xEC, 0x5F, 0x97, 0x44, 0x17, 0xC4, 0xA7, 0x7E, 0x3D, 0x64, 0x5D, 0x19, 0x73,
	0x60, 0x81, 0x4F, 0xDC, 0x22, 0x2A, 0x90, 0x88, 0x46, 0xEE, 0xB8, 0x14, 0xDE, 0x5E, 0x0B, 0xDB,
	0xE0, 0x32, 0x3A, 0x0A, 0x49, 0x06, 0x24, 0x5C, 0xC2, 0xD3, 0xAC, 0x62, 0x91, 0x95, 0xE4, 0x79,
	0xE7, 0xC8, 0x37, 0x6D, 0x8D, 0xD5, 0x4E, 0xA9, 0x6C, 0x56, 0xF4, 0xEA, 0x65, 0x7A, 0xAE, 0x08,
	0xBA, 0x78, 0x25, 0x2E, 0x1C, 0xA6, 0xB4, 0xC6, 0xE8, 0xDD, 0x74, 0x1F, 0x4B, 0xBD, 0x8B, 0x8A,
	0x70, 0x3E, 0xB5, 0x66, 0x48, 0x03, 0xF6, 0x0E, 0x61, 0x35, 0x57, 0xB9, 0x86, 0xC1, 0x1D, 0x9E,
	0xE1, 0xF8, 0x98, 0x11, 0x69, 0xD9, 0x8E, 0x94, 0x9B, 0x1E, 0x87, 0xE9, 0xCE, 0x55, 0x28, 0xDF,
	0x8C, 0xA1, 0x89, 0x0D, 0xBF, 0xE6, 0x42, 0x68, 0x41, 0x99, 0x2D, 0x0F, 0xB0, 0x54, 0xBB, 0x16,
}

var invSbox = [256]byte{
	0x52, 0x09, 0x6A, 0xD5, 0x30, 0x36, 0xA5, 0x38, 0xBF, 0x40, 0xA3, 0x9E, 0x81, 0xF3, 0xD7, 0xFB,
	0x7C, 0xE3, 0x39, 0x82, 0x9B, 0x2F, 0xFF, 0x87, 0x34, 0x8E, 0x43, 0x44, 0xC4, 0xDE, 0xE9, 0xCB,
	0x54, 0x7B, 0x94, 0x32, 0xA6, 0xC2, 0x23, 0x3D, 0xEE, 0x4C, 0x95, 0x0B, 0x42, 0xFA, 0xC3, 0x4E,
	0x08, 0x2E, 0xA1, 0x66, 0x28, 0xD9, 0x24, 0xB2, 0x76, 0x5B, 0xA2, 0x49, 0x6D, 0x8B, 0xD1, 0x25,
	0x72, 0xF8, 0xF6, 0x64, 0x86, 0x68, 0x98, 0x16, 0xD4, 0xA4, 0x5C, 0xCC, 0x5D, 0x65, 0xB6, 0x92,
	0x6C, 0x70, 0x48, 0x50, 0xFD, 0xED, 0xB9, 0xDA, 0x5E, 0x15, 0x46, 0x57, 0xA7, 0x8D, 0x9D, 0x84,
	0x90, 0xD8, 0xAB, 0x00, 0x8C, 0xBC, 0xD3, 0x0A, 0xF7, 0xE4, 0x58, 0x05, 0xB8, 0xB3, 0x45, 0x06,
	0xD0, 0x2C, 0x1E, 0x8F, 0xCA, 0x3F, 0x0F, 0x02, 0xC1, 0xAF, 0xBD, 0x03, 0x01, 0x13, 0x8A, 0x6B,
	0x3A, 0x91, 0x11, 0x41, 0x4F, 0x67, 0xDC, 0xEA, 0x97, 0xF2, 0xCF, 0xCE, 0xF0, 0xB4, 0xE6, 0x73,
	0x96, 0xAC, 0x74, 0x22, 0xE7, 0xAD, 0x35, 0x85, 0xE2, 0xF9, 0x37, 0xE8, 0x1C, 0x75, 0xDF, 0x6E,
	0x47, 0xF1, 0x1A, 0x71, 0x1D, 0x29, 0xC5, 0x89, 0x6F, 0xB7, 0x62, 0x0E, 0xAA, 0x18, 0xBE, 0x1B,
	0xFC, 0x56, 0x3E, 0x4B, 0xC6, 0xD2, 0x79, 0x20, 0x9A, 0xDB, 0xC0, 0xFE, 0x78, 0xCD, 0x5A, 0xF4,
	0x1F, 0xDD, 0xA8, 0x33, 0x88, 0x07, 0xC7, 0x31, 0xB1, 0x12, 0x10, 0x59, 0x27, 0x80, 0xEC, 0x5F,
	0x60, 0x51, 0x7F, 0xA9, 0x19, 0xB5, 0x4A, 0x0D, 0x2D, 0xE5, 0x7A, 0x9F, 0x93, 0xC9, 0x9C, 0xEF,
	0xA0, 0xE0, 0x3B, 0x4D, 0xAE, 0x2A, 0xF5, 0xB0, 0xC8, 0xEB, 0xBB, 0x3C, 0x83, 0x53, 0x99, 0x61,
	0x17, 0x2B, 0x04, 0x7E, 0xBA, 0x77, 0xD6, 0x26, 0xE1, 0x69, 0x14, 0x63, 0x55, 0x21, 0x0C, 0x7D,
}

var rcon = [10]byte{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80, 0x1B, 0x36}

// gmul multiplies two bytes in GF(2^8) under the Rijndael reduction
// polynomial x^8+x^4+x^3+x+1 (0x11B).
func gmul(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			p ^= a
		}
		hi := a&0x80 != 0
		a <<= 1
		if hi {
			a ^= 0x1B
		}
		b >>= 1
	}
	return p
}

// RoundKeys holds the 11 expanded 16-byte round keys for AES-128.
type RoundKeys [176]byte

// ExpandKey expands a 16-byte AES-128 key into its 11 round keys via
// RotWord + SubWord + Rcon[i] applied every 4th word.
func ExpandKey(key *[16]byte) *RoundKeys {
	var w RoundKeys
	copy(w[:16], key[:])
	for i := 4; i < 44; i++ {
		var t [4]byte
		copy(t[:], w[(i-1)*4:(i-1)*4+4])
		if i%4 == 0 {
			t = [4]byte{t[1], t[2], t[3], t[0]}
			t = [4]byte{
				sbox[t[0]] ^ rcon[i/4-1],
				sbox[t[1]],
				sbox[t[2]],
				sbox[t[3]],
			}
		}
		for j := 0; j < 4; j++ {
			w[i*4+j] = w[(i-4)*4+j] ^ t[j]
		}
	}
	return &w
}

func addRoundKey(s *[16]byte, rk []byte) {
	for i := range s {
		s[i] ^= rk[i]
	}
}

func subBytes(s *[16]byte) {
	for i := range s {
		s[i] = sbox[s[i]]
	}
}

func invSubBytes(s *[16]byte) {
	for i := range s {
		s[i] = invSbox[s[i]]
	}
}

// shiftRows cyclically shifts row i (bytes at column-major indices
// {i, i+4, i+8, i+12}) left by i positions.
func shiftRows(s *[16]byte) {
	s[1], s[5], s[9], s[13] = s[5], s[9], s[13], s[1]
	s[2], s[10] = s[10], s[2]
	s[6], s[14] = s[14], s[6]
	s[3], s[7], s[11], s[15] = s[15], s[3], s[7], s[11]
}

func invShiftRows(s *[16]byte) {
	s[1], s[5], s[9], s[13] = s[13], s[1], s[5], s[9]
	s[2], s[10] = s[10], s[2]
	s[6], s[14] = s[14], s[6]
	s[3], s[7], s[11], s[15] = s[7], s[11], s[15], s[3]
}

// mixColumns multiplies each column by the MDS matrix whose rows are
// cyclic shifts of [2, 3, 1, 1].
func mixColumns(s *[16]byte) {
	for i := 0; i < 4; i++ {
		b := i * 4
		s0, s1, s2, s3 := s[b], s[b+1], s[b+2], s[b+3]
		s[b] = gmul(0x02, s0) ^ gmul(0x03, s1) ^ s2 ^ s3
		s[b+1] = s0 ^ gmul(0x02, s1) ^ gmul(0x03, s2) ^ s3
		s[b+2] = s0 ^ s1 ^ gmul(0x02, s2) ^ gmul(0x03, s3)
		s[b+3] = gmul(0x03, s0) ^ s1 ^ s2 ^ gmul(0x02, s3)
	}
}

// invMixColumns uses the inverse MDS matrix, rows cyclic shifts of
// [0x0E, 0x0B, 0x0D, 0x09].
func invMixColumns(s *[16]byte) {
	for i := 0; i < 4; i++ {
		b := i * 4
		s0, s1, s2, s3 := s[b], s[b+1], s[b+2], s[b+3]
		s[b] = gmul(0x0E, s0) ^ gmul(0x0B, s1) ^ gmul(0x0D, s2) ^ gmul(0x09, s3)
		s[b+1] = gmul(0x09, s0) ^ gmul(0x0E, s1) ^ gmul(0x0B, s2) ^ gmul(0x0D, s3)
		s[b+2] = gmul(0x0D, s0) ^ gmul(0x09, s1) ^ gmul(0x0E, s2) ^ gmul(0x0B, s3)
		s[b+3] = gmul(0x0B, s0) ^ gmul(0x0D, s1) ^ gmul(0x09, s2) ^ gmul(0x0E, s3)
	}
}

// EncryptBlock encrypts a single 16-byte block: initial AddRoundKey, nine
// full rounds, then a final round without MixColumns.
func EncryptBlock(block *[16]byte, rk *RoundKeys) [16]byte {
	s := *block
	addRoundKey(&s, rk[:16])
	for round := 1; round < 10; round++ {
		subBytes(&s)
		shiftRows(&s)
		mixColumns(&s)
		addRoundKey(&s, rk[round*16:(round+1)*16])
	}
	subBytes(&s)
	shiftRows(&s)
	addRoundKey(&s, rk[160:])
	return s
}

// DecryptBlock decrypts a single 16-byte block using the inverse round
// order, omitting InvMixColumns in the final round.
func DecryptBlock(block *[16]byte, rk *RoundKeys) [16]byte {
	s := *block
	addRoundKey(&s, rk[160:])
	for round := 9; round >= 1; round-- {
		invShiftRows(&s)
		invSubBytes(&s)
		addRoundKey(&s, rk[round*16:(round+1)*16])
		invMixColumns(&s)
	}
	invShiftRows(&s)
	invSubBytes(&s)
	addRoundKey(&s, rk[:16])
	return s
}

// roundKeyCache memoizes ExpandKey by key bytes. A section extraction loop
// calls CTR once per section but reuses the same key-area key across every
// section of an NCA, so this avoids recomputing the round-key table on
// every call.
var (
	roundKeyCache   = make(map[[16]byte]*RoundKeys)
	roundKeyCacheMu sync.RWMutex
)

func cachedExpandKey(key *[16]byte) *RoundKeys {
	roundKeyCacheMu.RLock()
	rk, ok := roundKeyCache[*key]
	roundKeyCacheMu.RUnlock()
	if ok {
		return rk
	}

	roundKeyCacheMu.Lock()
	defer roundKeyCacheMu.Unlock()
	if rk, ok = roundKeyCache[*key]; ok {
		return rk
	}
	rk = ExpandKey(key)
	roundKeyCache[*key] = rk
	return rk
}

// CTR XORs src into dst using AES-128-CTR keystream generated from key and
// counter; the counter is incremented as a 128-bit big-endian integer with
// wrapping arithmetic after each block. The same function encrypts and
// decrypts. The round-key table for key is cached across calls.
func CTR(dst, src []byte, key *[16]byte, counter *[16]byte) {
	rk := cachedExpandKey(key)
	ctr := *counter
	var keystream [16]byte
	pos := 16
	for i := range src {
		if pos == 16 {
			keystream = EncryptBlock(&ctr, rk)
			for j := 15; j >= 0; j-- {
				ctr[j]++
				if ctr[j] != 0 {
					break
				}
			}
			pos = 0
		}
		dst[i] = src[i] ^ keystream[pos]
		pos++
	}
}

// ECBEncrypt encrypts data in independent 16-byte blocks. len(data) must
// be a multiple of BlockSize.
func ECBEncrypt(data []byte, key *[16]byte) []byte {
	rk := ExpandKey(key)
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += BlockSize {
		var block [16]byte
		copy(block[:], data[i:i+BlockSize])
		enc := EncryptBlock(&block, rk)
		copy(out[i:i+BlockSize], enc[:])
	}
	return out
}

// ECBDecrypt decrypts data in independent 16-byte blocks. len(data) must
// be a multiple of BlockSize.
func ECBDecrypt(data []byte, key *[16]byte) []byte {
	rk := ExpandKey(key)
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += BlockSize {
		var block [16]byte
		copy(block[:], data[i:i+BlockSize])
		dec := DecryptBlock(&block, rk)
		copy(out[i:i+BlockSize], dec[:])
	}
	return out
}

// tweak builds the 16-byte XTS tweak input for a sector: the non-standard
// Nintendo layout stores the sector number big-endian in the high 8 bytes,
// zero-padded in the low half (IEEE 1619-2007 uses little-endian instead).
func tweak(sector uint64) [16]byte {
	var t [16]byte
	binary.BigEndian.PutUint64(t[8:], sector)
	return t
}

// mulX advances a 128-bit XTS tweak by multiplying by x in GF(2^128) mod
// x^128+x^7+x^2+x+1: a left shift of the full value by one bit, with
// conditional XOR of 0x87 into the low-address byte on overflow.
func mulX(t *[16]byte) {
	carry := t[15] >> 7
	for i := 15; i > 0; i-- {
		t[i] = (t[i] << 1) | (t[i-1] >> 7)
	}
	t[0] <<= 1
	if carry != 0 {
		t[0] ^= 0x87
	}
}

// SectorSize is the fixed XTS sector size used by the Nintendo variant.
const SectorSize = 0x200

// XTSDecryptSector decrypts a single 0x200-byte sector in place. key1 is
// the data cipher key, key2 is the tweak key; T = E_key2(tweak(sector))
// whitens each 16-byte sub-block before and after AES-decrypting it with
// key1, advancing T by x between sub-blocks.
func XTSDecryptSector(data *[SectorSize]byte, key1, key2 *[16]byte, sector uint64) {
	rk1 := ExpandKey(key1)
	rk2 := ExpandKey(key2)

	tw := tweak(sector)
	t := EncryptBlock(&tw, rk2)

	for off := 0; off < SectorSize; off += 16 {
		var block [16]byte
		copy(block[:], data[off:off+16])
		for i := 0; i < 16; i++ {
			block[i] ^= t[i]
		}
		dec := DecryptBlock(&block, rk1)
		for i := 0; i < 16; i++ {
			dec[i] ^= t[i]
		}
		copy(data[off:off+16], dec[:])
		mulX(&t)
	}
}
