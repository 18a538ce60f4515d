// Package lz4shim adapts github.com/pierrec/lz4/v4 to hakswitch's error
// type for the size-prepended LZ4 block format used by older Nintendo
// internal tooling: a little-endian u32 giving the decompressed byte
// count, immediately followed by the raw LZ4 block.
//
// For the formats more commonly encountered in Switch content (SARC .zs
// archives, NCZ section blocks) see pkg/zstdshim.
package lz4shim

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"

	"github.com/falk/hakswitch/pkg/hakerr"
)

// DecompressSizePrepended decompresses an LZ4 buffer that begins with a
// little-endian u32 decompressed-size prefix followed by the raw LZ4
// block.
func DecompressSizePrepended(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, hakerr.New(hakerr.UnexpectedEOF)
	}
	decompressedSize := binary.LittleEndian.Uint32(data[:4])
	dst := make([]byte, decompressedSize)
	n, err := lz4.UncompressBlock(data[4:], dst)
	if err != nil {
		return nil, hakerr.New(hakerr.LZ4)
	}
	return dst[:n], nil
}
