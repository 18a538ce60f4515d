package zstdshim

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func TestDecodeAll(t *testing.T) {
	src := bytes.Repeat([]byte("nintendo switch content archive "), 64)
	compressed := compress(t, src)

	got, err := DecodeAll(compressed)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("DecodeAll did not round-trip")
	}
}

func TestDecodeAllSize(t *testing.T) {
	src := bytes.Repeat([]byte("section-payload-bytes"), 128)
	compressed := compress(t, src)

	got, err := DecodeAllSize(compressed, len(src))
	if err != nil {
		t.Fatalf("DecodeAllSize: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("DecodeAllSize did not round-trip")
	}
}

func TestDecodeAllInvalidData(t *testing.T) {
	if _, err := DecodeAll([]byte("not zstd data")); err == nil {
		t.Fatalf("expected error for non-zstd input")
	}
}
