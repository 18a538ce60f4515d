package ncz

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildNczHeader(t *testing.T, sections []Section) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("NCZSECTN")
	binary.Write(&buf, binary.LittleEndian, uint64(len(sections)))
	for _, s := range sections {
		binary.Write(&buf, binary.LittleEndian, s.Offset)
		binary.Write(&buf, binary.LittleEndian, s.Size)
		buf.WriteByte(s.CryptoType)
		buf.Write(make([]byte, 7))
		buf.Write(s.CryptoKey[:])
		buf.Write(s.CryptoCounter[:])
	}
	return buf.Bytes()
}

func TestParseSections(t *testing.T) {
	want := []Section{
		{Offset: 0x4000, Size: 0x8000, CryptoType: 3},
		{Offset: 0xC000, Size: 0x2000, CryptoType: 3},
	}
	raw := buildNczHeader(t, want)

	h, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(h.Sections) != 2 {
		t.Fatalf("Sections = %d, want 2", len(h.Sections))
	}
	if h.Sections[0].Offset != 0x4000 || h.Sections[1].Size != 0x2000 {
		t.Fatalf("sections = %+v", h.Sections)
	}
	if h.BlocksOffset != uint64(len(raw)) {
		t.Fatalf("BlocksOffset = %d, want %d", h.BlocksOffset, len(raw))
	}
}

func TestReadCompressedBlocks(t *testing.T) {
	var buf bytes.Buffer
	for _, block := range [][]byte{[]byte("first-block"), []byte("second")} {
		binary.Write(&buf, binary.LittleEndian, uint32(len(block)))
		buf.Write(block)
	}

	blocks, err := ReadCompressedBlocks(bytes.NewReader(buf.Bytes()), &Header{})
	if err != nil {
		t.Fatalf("ReadCompressedBlocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	if string(blocks[0]) != "first-block" || string(blocks[1]) != "second" {
		t.Fatalf("blocks = %v", blocks)
	}
}

func TestReadCompressedBlocksShortReadEndsStream(t *testing.T) {
	var buf bytes.Buffer
	block := []byte("complete-block")
	binary.Write(&buf, binary.LittleEndian, uint32(len(block)))
	buf.Write(block)
	buf.Write([]byte{0x01, 0x00}) // trailing partial length prefix, only 2 of 4 bytes

	blocks, err := ReadCompressedBlocks(bytes.NewReader(buf.Bytes()), &Header{})
	if err != nil {
		t.Fatalf("ReadCompressedBlocks: %v", err)
	}
	if len(blocks) != 1 || string(blocks[0]) != "complete-block" {
		t.Fatalf("blocks = %v, want one complete block and lenient end-of-stream", blocks)
	}
}

func TestReadCompressedBlocksZeroLengthEndsStream(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.Write([]byte("ignored-trailing-garbage"))

	blocks, err := ReadCompressedBlocks(bytes.NewReader(buf.Bytes()), &Header{})
	if err != nil {
		t.Fatalf("ReadCompressedBlocks: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("blocks = %d, want 0", len(blocks))
	}
}
