package bntx

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildBntx(t *testing.T, name string, width, height uint32, dataOffsetRel uint32, dataLength uint64) []byte {
	t.Helper()

	const bntxHeaderLen = 0x20
	const nxHeaderLen = 0x28
	const infoPtrsOffset = bntxHeaderLen + nxHeaderLen
	const brtiOffset = infoPtrsOffset + 8 // one texture, one u64 pointer
	const brtiLen = 0x90
	nameOffset := brtiOffset + brtiLen

	nameBytes := []byte(name)

	buf := make([]byte, nameOffset+2+len(nameBytes))

	copy(buf[0:4], "BNTX")
	binary.LittleEndian.PutUint32(buf[0x4:], 0) // data length
	binary.LittleEndian.PutUint32(buf[0x8:], 0) // version
	binary.LittleEndian.PutUint32(buf[0xC:], 0) // version hi
	binary.LittleEndian.PutUint16(buf[0x10:], 0xFFFE) // BOM (LE)
	binary.LittleEndian.PutUint16(buf[0x12:], 0)      // format revision
	binary.LittleEndian.PutUint32(buf[0x14:], 0)      // name offset
	binary.LittleEndian.PutUint16(buf[0x18:], 0)      // string pool offset
	binary.LittleEndian.PutUint16(buf[0x1A:], 0)      // reloc table offset
	binary.LittleEndian.PutUint32(buf[0x1C:], uint32(len(buf)))

	nx := buf[bntxHeaderLen:]
	copy(nx[0:4], "NX  ")
	binary.LittleEndian.PutUint32(nx[0x4:], 1) // texture count
	binary.LittleEndian.PutUint64(nx[0x8:], uint64(infoPtrsOffset))
	binary.LittleEndian.PutUint64(nx[0x10:], 0x3000) // data block offset
	binary.LittleEndian.PutUint64(nx[0x18:], 0)       // dict offset
	binary.LittleEndian.PutUint32(nx[0x20:], 0)       // string dict offset

	binary.LittleEndian.PutUint64(buf[infoPtrsOffset:], uint64(brtiOffset))

	brti := buf[brtiOffset:]
	copy(brti[0:4], "BRTI")
	binary.LittleEndian.PutUint32(brti[0x4:], 0x90) // length
	binary.LittleEndian.PutUint64(brti[0x8:], dataLength)
	brti[0x10] = 0 // flags
	brti[0x11] = 0 // dimensions
	binary.LittleEndian.PutUint16(brti[0x12:], 0) // tile mode
	binary.LittleEndian.PutUint16(brti[0x14:], 0) // swizzle
	binary.LittleEndian.PutUint16(brti[0x16:], 5) // mipmap count
	binary.LittleEndian.PutUint16(brti[0x18:], 0) // ms count
	binary.LittleEndian.PutUint16(brti[0x1A:], 0) // reserved
	binary.LittleEndian.PutUint32(brti[0x1C:], 0x102) // format
	binary.LittleEndian.PutUint32(brti[0x20:], 0)      // access flags
	binary.LittleEndian.PutUint32(brti[0x24:], width)
	binary.LittleEndian.PutUint32(brti[0x28:], height)
	binary.LittleEndian.PutUint32(brti[0x2C:], 1) // depth
	binary.LittleEndian.PutUint32(brti[0x30:], 1) // array count
	binary.LittleEndian.PutUint32(brti[0x34:], 0) // block height log2
	// 0x38..0x4C: 0x14 bytes reserved, left zero
	binary.LittleEndian.PutUint32(brti[0x4C:], dataOffsetRel)
	binary.LittleEndian.PutUint64(brti[0x50:], uint64(nameOffset))
	binary.LittleEndian.PutUint64(brti[0x58:], 0) // parent offset
	binary.LittleEndian.PutUint64(brti[0x60:], 0) // ptrs offset

	binary.LittleEndian.PutUint16(buf[nameOffset:], uint16(len(nameBytes)))
	copy(buf[nameOffset+2:], nameBytes)

	return buf
}

func TestParseBntxSingleTexture(t *testing.T) {
	raw := buildBntx(t, "tex_diffuse", 256, 128, 0x1000, 0x20000)

	b, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.TextureCount != 1 || len(b.Textures) != 1 {
		t.Fatalf("TextureCount = %d, Textures = %d", b.TextureCount, len(b.Textures))
	}
	tex := b.Textures[0]
	if tex.Name != "tex_diffuse" {
		t.Fatalf("Name = %q", tex.Name)
	}
	if tex.Width != 256 || tex.Height != 128 {
		t.Fatalf("Width/Height = %d/%d", tex.Width, tex.Height)
	}
	if tex.MipmapCount != 5 {
		t.Fatalf("MipmapCount = %d, want 5", tex.MipmapCount)
	}
	if tex.DataLength != 0x20000 {
		t.Fatalf("DataLength = %#x", tex.DataLength)
	}
	if !b.LittleEndian {
		t.Fatalf("expected LittleEndian true for 0xFFFE BOM")
	}

	if got, want := b.TextureDataOffset(&tex), uint64(0x3000+0x1000); got != want {
		t.Fatalf("TextureDataOffset = %#x, want %#x", got, want)
	}
}

func TestParseBntxBadBOM(t *testing.T) {
	raw := buildBntx(t, "x", 1, 1, 0, 0)
	binary.LittleEndian.PutUint16(raw[0x10:], 0x1234)
	if _, err := Parse(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected error for invalid BOM")
	}
}
