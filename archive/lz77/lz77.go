// Package lz77 decompresses Nintendo's LZ77 type-0x10 format, used for a
// handful of compressed assets inside Wii titles.
//
// This is a read-only, decompress-only port: original_source's own
// compress_lz77 is an unfinished stub (it builds the header and a match
// searcher but never emits flag/copy tokens), so this module only
// exposes decompression, matching the original's actual coverage.
// Grounded on original_source/archive/lz77.py.
package lz77

import (
	"encoding/binary"

	"github.com/ralim/libwii/wiierror"
)

var magic = [4]byte{'L', 'Z', '7', '7'}

const compressionType = 0x10

// Decompress decompresses LZ77 type-0x10 data, accepted both with and
// without the leading "LZ77" magic (it may be absent when the data is
// embedded inside another container).
func Decompress(data []byte) ([]byte, error) {
	pos := 0
	if len(data) >= 4 && [4]byte(data[0:4]) == magic {
		pos = 4
	}
	if len(data) < pos+4 {
		return nil, &wiierror.MalformedInput{Where: "lz77.Decompress: header", Offset: pos}
	}
	if data[pos] != compressionType {
		return nil, &wiierror.MalformedInput{Where: "lz77.Decompress: unsupported compression type", Offset: pos}
	}
	decompressedSize := int(data[pos+1]) | int(data[pos+2])<<8 | int(data[pos+3])<<16
	pos += 4

	out := make([]byte, decompressedSize)
	outPos := 0
	for outPos < decompressedSize {
		if pos >= len(data) {
			return nil, &wiierror.MalformedInput{Where: "lz77.Decompress: truncated flag byte", Offset: pos}
		}
		flag := data[pos]
		pos++
		for bit := 7; bit >= 0; bit-- {
			if outPos >= decompressedSize {
				break
			}
			if flag&(1<<uint(bit)) != 0 {
				if pos+2 > len(data) {
					return nil, &wiierror.MalformedInput{Where: "lz77.Decompress: truncated back-reference", Offset: pos}
				}
				reference := binary.BigEndian.Uint16(data[pos : pos+2])
				pos += 2
				length := 3 + int((reference>>12)&0xF)
				offset := outPos - int(reference&0xFFF) - 1
				if offset < 0 {
					return nil, &wiierror.MalformedInput{Where: "lz77.Decompress: invalid back-reference offset", Offset: pos}
				}
				for i := 0; i < length && outPos < decompressedSize; i++ {
					out[outPos] = out[offset]
					outPos++
					offset++
				}
			} else {
				if pos >= len(data) {
					return nil, &wiierror.MalformedInput{Where: "lz77.Decompress: truncated literal", Offset: pos}
				}
				out[outPos] = data[pos]
				pos++
				outPos++
			}
		}
	}
	return out, nil
}
