// Package keyset loads and indexes the already-derived AES keys hakswitch
// needs: an optional NCA header key, a table of key-area encryption keys
// (KAEK) indexed by content type and firmware generation, and a map of
// title keys indexed by rights ID.
//
// This package performs no key derivation — it is a plain data container,
// matching the Non-goal that derivation from root secrets is out of
// scope. Callers load already-derived keys from prod.keys/title.keys.
package keyset

import (
	"bufio"
	"encoding/hex"
	"io"
	"strconv"
	"strings"

	"github.com/falk/hakswitch/pkg/hakerr"
)

// MaxKeyGeneration is the number of firmware-generation slots understood
// by this library.
const MaxKeyGeneration = 32

// KaekIndex selects which key-area-encryption-key derivation chain a
// section's wrapped key was encrypted under.
type KaekIndex int

const (
	Application KaekIndex = iota
	Ocean
	System
)

// ParseKaekIndex validates a raw NCA KeyAreaEncKeyIdx byte.
func ParseKaekIndex(v uint8) (KaekIndex, error) {
	switch v {
	case 0:
		return Application, nil
	case 1:
		return Ocean, nil
	case 2:
		return System, nil
	default:
		return 0, hakerr.Parsef("invalid KAEK index %d", v)
	}
}

// KeySet holds all keys needed to decrypt Switch content. Absent entries
// are nil/zero-length, distinguishable from a present-but-zero key.
type KeySet struct {
	// HeaderKey is the 32-byte AES-XTS key pair used to decrypt NCA
	// headers, or nil if not loaded.
	HeaderKey []byte

	// kaek[index][generation] is a 16-byte AES key, or nil if absent.
	kaek [3][MaxKeyGeneration][]byte

	// titleKeys maps a 16-byte rights ID to its 16-byte title key.
	titleKeys map[[16]byte][]byte
}

// New returns an empty KeySet.
func New() *KeySet {
	return &KeySet{titleKeys: make(map[[16]byte][]byte)}
}

// LoadProdKeys loads keys from a prod.keys-style reader: one `name =
// hexvalue` entry per line. Blank lines and lines starting with ';' are
// ignored. Unknown names are silently skipped for forward compatibility;
// malformed hex on an individual line is also a silent skip, not an
// error.
func (k *KeySet) LoadProdKeys(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if name == "header_key" {
			if b, err := decodeHexN(value, 32); err == nil {
				k.HeaderKey = b
			}
			continue
		}

		for idx, prefix := range [3]string{
			"key_area_key_application_",
			"key_area_key_ocean_",
			"key_area_key_system_",
		} {
			genStr, ok := strings.CutPrefix(name, prefix)
			if !ok {
				continue
			}
			gen, err := strconv.ParseUint(genStr, 16, 8)
			if err != nil || gen >= MaxKeyGeneration {
				continue
			}
			key, err := decodeHexN(value, 16)
			if err != nil {
				continue
			}
			k.kaek[idx][gen] = key
		}
	}
	if err := scanner.Err(); err != nil {
		return hakerr.Wrap(err)
	}
	return nil
}

// LoadTitleKeys loads title keys from a title.keys-style reader: each
// line is `<32-hex-rights-id> = <32-hex-key>`.
func (k *KeySet) LoadTitleKeys(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		rightsStr, keyStr, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		rights, err := decodeHexN(strings.TrimSpace(rightsStr), 16)
		if err != nil {
			continue
		}
		key, err := decodeHexN(strings.TrimSpace(keyStr), 16)
		if err != nil {
			continue
		}
		var id [16]byte
		copy(id[:], rights)
		k.titleKeys[id] = key
	}
	if err := scanner.Err(); err != nil {
		return hakerr.Wrap(err)
	}
	return nil
}

// GetKaek looks up the KAEK for the given index and firmware generation.
// Returns nil if absent or generation is out of range.
func (k *KeySet) GetKaek(index KaekIndex, generation uint8) []byte {
	if int(generation) >= MaxKeyGeneration {
		return nil
	}
	return k.kaek[index][generation]
}

// GetTitleKey looks up a title key by 16-byte rights ID. Returns nil if
// absent.
func (k *KeySet) GetTitleKey(rightsID [16]byte) []byte {
	return k.titleKeys[rightsID]
}

func decodeHexN(s string, n int) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) != n*2 {
		return nil, hakerr.Parsef("expected %d hex chars, got %d", n*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, hakerr.Wrap(err)
	}
	return b, nil
}
