// Package zstdshim adapts github.com/klauspost/compress/zstd to
// hakswitch's error type. Zstd is Nintendo's preferred compression
// algorithm for modern Switch content, appearing in two contexts:
//
//   - SARC archives: a .sarc.zs (or plain .zs) file is a complete SARC
//     blob compressed as a single Zstd stream. Decompress the whole file
//     with DecodeAll, then parse the result with pkg/sarc.
//   - NCZ blocks: each compressed block inside a .ncz file is an
//     independent Zstd stream prefixed by its compressed byte length.
//     Use DecodeAllSize when the decompressed size is already known (it
//     is recorded in the NCZ section descriptor) to avoid reallocation on
//     large NCA sections.
package zstdshim

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/falk/hakswitch/pkg/hakerr"
)

var sharedDecoder, _ = zstd.NewReader(nil)

// DecodeAll decompresses a complete Zstandard-compressed buffer.
func DecodeAll(data []byte) ([]byte, error) {
	out, err := sharedDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, hakerr.New(hakerr.Zstd)
	}
	return out, nil
}

// DecodeAllSize decompresses a Zstandard-compressed buffer, pre-allocating
// the output with decompressedSize to avoid incremental growth, which
// matters for large NCA section payloads that are often hundreds of
// megabytes.
func DecodeAllSize(data []byte, decompressedSize int) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, hakerr.New(hakerr.Zstd)
	}
	defer dec.Close()

	out := bytes.NewBuffer(make([]byte, 0, decompressedSize))
	if _, err := io.Copy(out, dec); err != nil {
		return nil, hakerr.New(hakerr.Zstd)
	}
	return out.Bytes(), nil
}
