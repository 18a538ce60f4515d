package nca

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildHeader assembles a plausible (already "decrypted") NCA header
// buffer for the given magic, large enough to cover every fixed field
// Parse reads.
func buildHeader(t *testing.T, magic string, programID uint64, contentType byte, keyGenOld, keyGenNew byte) []byte {
	t.Helper()
	buf := make([]byte, 0x340)

	copy(buf[0x200:0x204], magic)
	buf[0x204] = byte(GameCard)
	buf[0x205] = contentType
	buf[0x206] = keyGenOld
	buf[0x207] = 0 // key area idx
	binary.LittleEndian.PutUint64(buf[0x208:], 0x1000)
	binary.LittleEndian.PutUint64(buf[0x210:], programID)
	binary.LittleEndian.PutUint32(buf[0x218:], 0)
	binary.LittleEndian.PutUint32(buf[0x21C:], 0)
	buf[0x220] = keyGenNew

	// FsEntries: give section 0 a start block so SectionOffset reports it.
	binary.LittleEndian.PutUint32(buf[0x240:], 2) // start block
	binary.LittleEndian.PutUint32(buf[0x244:], 10)

	return buf
}

func TestParseNCA3(t *testing.T) {
	raw := buildHeader(t, "NCA3", 0x0100000000001234, byte(Program), 3, 0)
	n, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.Version != 3 {
		t.Fatalf("Version = %d, want 3", n.Version)
	}
	if n.ProgramID != 0x0100000000001234 {
		t.Fatalf("ProgramID = %#x", n.ProgramID)
	}
	if n.ContentType != Program {
		t.Fatalf("ContentType = %v, want Program", n.ContentType)
	}
	if n.DistributionType != GameCard {
		t.Fatalf("DistributionType = %v, want GameCard", n.DistributionType)
	}
	if n.KeyGeneration != 3 {
		t.Fatalf("KeyGeneration = %d, want 3", n.KeyGeneration)
	}
}

func TestParseNCA2(t *testing.T) {
	raw := buildHeader(t, "NCA2", 1, byte(Meta), 0, 0)
	n, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.Version != 2 {
		t.Fatalf("Version = %d, want 2", n.Version)
	}
}

func TestKeyGenerationTakesMax(t *testing.T) {
	raw := buildHeader(t, "NCA3", 1, byte(Program), 5, 12)
	n, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.KeyGeneration != 12 {
		t.Fatalf("KeyGeneration = %d, want 12 (max of old/new)", n.KeyGeneration)
	}
}

func TestParseBadMagic(t *testing.T) {
	raw := buildHeader(t, "XXXX", 1, byte(Program), 0, 0)
	if _, err := Parse(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestUsesTitlekeyCrypto(t *testing.T) {
	raw := buildHeader(t, "NCA3", 1, byte(Program), 0, 0)
	copy(raw[0x230:0x240], bytes.Repeat([]byte{0x01}, 16))

	n, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !n.UsesTitlekeyCrypto() {
		t.Fatalf("expected UsesTitlekeyCrypto to be true for nonzero RightsID")
	}
}

func TestUsesTitlekeyCryptoFalseWhenZero(t *testing.T) {
	raw := buildHeader(t, "NCA3", 1, byte(Program), 0, 0)
	n, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.UsesTitlekeyCrypto() {
		t.Fatalf("expected UsesTitlekeyCrypto to be false for zero RightsID")
	}
}

func TestSectionOffset(t *testing.T) {
	raw := buildHeader(t, "NCA3", 1, byte(Program), 0, 0)
	n, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	off, ok := n.SectionOffset(0)
	if !ok || off != 2*0x200 {
		t.Fatalf("SectionOffset(0) = %d, %v; want %d, true", off, ok, 2*0x200)
	}
	if _, ok := n.SectionOffset(1); ok {
		t.Fatalf("SectionOffset(1) should be absent")
	}
	if _, ok := n.SectionOffset(9); ok {
		t.Fatalf("SectionOffset(9) out of range should be absent")
	}
}
