// Package bfttf decodes BFTTF/BFOTF (Binary caFe TrueType/OpenType Font)
// files: a standard TTF or OTF font wrapped in simple XOR obfuscation,
// used as a system font on Nintendo Switch and Wii U.
//
//   - .bfttf - TrueType font
//   - .bfotf - OpenType font
//
// There is no custom file header; the entire file is XOR-encrypted
// against a 16-byte, platform-specific key that cycles over the whole
// file. After decryption the result is a standard font file:
//
//   - TTF starts with 00 01 00 00 00
//   - OTF starts with "OTTO"
//   - TTC starts with "ttcf"
package bfttf

import "github.com/falk/hakswitch/pkg/hakerr"

// Platform identifies the target system a BFTTF/BFOTF font was built for.
type Platform int

const (
	Switch Platform = iota
	WiiU
	Windows
)

var xorKeys = map[Platform][16]byte{
	WiiU: {
		0x2A, 0xCE, 0xF5, 0x16, 0x10, 0x0D, 0xC4, 0xC3,
		0x28, 0x78, 0x27, 0x42, 0xA5, 0x5B, 0xF4, 0xAB,
	},
	Switch: {
		0x15, 0x9A, 0x7D, 0x6F, 0x16, 0x6F, 0xD0, 0x0C,
		0x67, 0xE7, 0x39, 0x98, 0x0B, 0xEB, 0xF6, 0x62,
	},
	Windows: {
		0x97, 0x3B, 0x5C, 0x6C, 0x26, 0xF3, 0xFA, 0xB5,
		0xA2, 0xD5, 0x8E, 0xB5, 0x5A, 0x4D, 0xD5, 0x51,
	},
}

// autoDetectOrder is the order platforms are tried in when auto-detecting,
// matching the relative prevalence of each format in the wild.
var autoDetectOrder = [3]Platform{Switch, WiiU, Windows}

// XORKey returns the 16-byte XOR key for a platform.
func (p Platform) XORKey() [16]byte { return xorKeys[p] }

func (p Platform) String() string {
	switch p {
	case Switch:
		return "switch"
	case WiiU:
		return "wiiu"
	case Windows:
		return "windows"
	default:
		return "unknown"
	}
}

// Bfttf holds an encrypted BFTTF/BFOTF file and its detected platform.
type Bfttf struct {
	Platform Platform
	data     []byte
}

// Parse wraps raw (still XOR-encrypted) file bytes, auto-detecting the
// platform by trying each known key and checking the decrypted magic.
// Returns hakerr.BadMagic if no platform's key produces a valid font
// magic.
func Parse(data []byte) (*Bfttf, error) {
	for _, p := range autoDetectOrder {
		if isValidFontAfterXOR(data, p.XORKey()) {
			return &Bfttf{Platform: p, data: data}, nil
		}
	}
	return nil, hakerr.New(hakerr.BadMagic)
}

// Decrypt returns the plain TTF/OTF bytes.
func (b *Bfttf) Decrypt() []byte {
	return xorWithKey(b.data, b.Platform.XORKey())
}

// Decrypt XOR-decodes data for the given platform. XOR is symmetric:
// Decrypt(Encrypt(data, p), p) == data.
func Decrypt(data []byte, p Platform) []byte {
	return xorWithKey(data, p.XORKey())
}

// Encrypt XOR-encodes raw TTF/OTF bytes into BFTTF/BFOTF form for the
// given platform.
func Encrypt(data []byte, p Platform) []byte {
	return xorWithKey(data, p.XORKey())
}

func xorWithKey(data []byte, key [16]byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%16]
	}
	return out
}

func isValidFontAfterXOR(data []byte, key [16]byte) bool {
	if len(data) < 5 {
		return false
	}
	var head [5]byte
	for i := range head {
		head[i] = data[i] ^ key[i%16]
	}
	return (head[0] == 0x00 && head[1] == 0x01 && head[2] == 0x00 && head[3] == 0x00 && head[4] == 0x00) ||
		string(head[:4]) == "OTTO" ||
		string(head[:4]) == "ttcf"
}
