// Package ash decompresses ASH0 archives, the canonical-Huffman-coded
// LZ77 variant used by the Wii Menu and several first-party titles for
// banner and font assets.
//
// This is a direct port of the ash-dec algorithm (by Garhoogin, by way
// of the ASH0-tools project) as carried in
// original_source/archive/ash.go: a pair of canonical-Huffman bit
// readers over a symbol tree and a distance tree, feeding an LZ77-style
// copy loop.
package ash

import (
	"encoding/binary"
	"fmt"
)

var magic = [4]byte{0x41, 0x53, 0x48, 0x30} // "ASH0"

type bitReader struct {
	src      []byte
	pos      int
	word     uint32
	capacity int
}

func (r *bitReader) feedWord() error {
	if r.pos+4 > len(r.src) {
		return fmt.Errorf("ash: truncated data while reading a word at offset %d", r.pos)
	}
	r.word = binary.BigEndian.Uint32(r.src[r.pos : r.pos+4])
	r.capacity = 0
	r.pos += 4
	return nil
}

func newBitReader(src []byte, startPos int) (*bitReader, error) {
	r := &bitReader{src: src, pos: startPos}
	if err := r.feedWord(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *bitReader) readBit() (uint32, error) {
	bit := r.word >> 31
	if r.capacity == 31 {
		if err := r.feedWord(); err != nil {
			return 0, err
		}
	} else {
		r.capacity++
		r.word <<= 1
	}
	return bit, nil
}

func (r *bitReader) readBits(numBits int) (uint32, error) {
	nextBit := r.capacity + numBits
	var bits uint32
	if nextBit <= 32 {
		bits = r.word >> (32 - numBits)
		if nextBit != 32 {
			r.word <<= uint(numBits)
			r.capacity += numBits
		} else {
			if err := r.feedWord(); err != nil {
				return 0, err
			}
		}
	} else {
		bits = r.word >> (32 - numBits)
		if err := r.feedWord(); err != nil {
			return 0, err
		}
		bits |= r.word >> (64 - uint(nextBit))
		r.word <<= uint(nextBit - 32)
		r.capacity = nextBit - 32
	}
	return bits, nil
}

const (
	nodeIsRight = uint32(0x80000000)
	nodeHasLeft = uint32(0x40000000)
	nodeMask    = uint32(0x3FFFFFFF)
)

// readTree parses one canonical-Huffman tree (symbol or distance) and
// returns the index of its root node.
func readTree(r *bitReader, width int, leftTree, rightTree []uint32) (uint32, error) {
	work := make([]uint32, 0, 2*(1<<width))
	base := uint32(1) << uint(width)
	treeRoot := uint32(0)
	numNodes := 0

	for {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if bit != 0 {
			work = append(work, base|nodeIsRight, base|nodeHasLeft)
			numNodes += 2
			base++
			continue
		}
		treeRoot, err = r.readBits(width)
		if err != nil {
			return 0, err
		}
		for {
			if len(work) == 0 {
				return 0, fmt.Errorf("ash: malformed tree: leaf width may be wrong")
			}
			nodeValue := work[len(work)-1]
			work = work[:len(work)-1]
			idx := nodeValue & nodeMask
			numNodes--
			if int(idx) >= len(rightTree) || int(idx) >= len(leftTree) {
				return 0, fmt.Errorf("ash: malformed tree: leaf width may be wrong")
			}
			if nodeValue&nodeIsRight != 0 {
				rightTree[idx] = treeRoot
				treeRoot = idx
			} else {
				leftTree[idx] = treeRoot
				break
			}
			if numNodes == 0 {
				break
			}
		}
		if numNodes == 0 {
			break
		}
	}
	return treeRoot, nil
}

// Decompress decompresses a raw ASH0 blob. symBits and distBits select
// the canonical Huffman leaf widths: 9/11 works for the Wii Menu and
// Animal Crossing: City Folk; some titles (e.g. My Pokémon Ranch) need
// distBits=15.
func Decompress(data []byte, symBits, distBits int) ([]byte, error) {
	if len(data) < 4 || [4]byte(data[0:4]) != magic {
		return nil, fmt.Errorf("ash: not a valid ASH0 blob")
	}
	if len(data) < 0xC {
		return nil, fmt.Errorf("ash: truncated header")
	}
	decompressedSize := int(binary.BigEndian.Uint32(data[0x4:0x8]) & 0x00FFFFFF)
	distStart := int(binary.BigEndian.Uint32(data[0x8:0xC]))

	out := make([]byte, decompressedSize)
	outPos := 0

	distReader, err := newBitReader(data, distStart)
	if err != nil {
		return nil, err
	}
	symReader, err := newBitReader(data, 0xC)
	if err != nil {
		return nil, err
	}

	symMax := 1 << symBits
	distMax := 1 << distBits
	symLeft := make([]uint32, 2*symMax-1)
	symRight := make([]uint32, 2*symMax-1)
	distLeft := make([]uint32, 2*distMax-1)
	distRight := make([]uint32, 2*distMax-1)

	symRoot, err := readTree(symReader, symBits, symLeft, symRight)
	if err != nil {
		return nil, err
	}
	distRoot, err := readTree(distReader, distBits, distLeft, distRight)
	if err != nil {
		return nil, err
	}

	remaining := decompressedSize
	for {
		sym := symRoot
		for int(sym) >= symMax {
			bit, err := symReader.readBit()
			if err != nil {
				return nil, err
			}
			if bit != 0 {
				sym = symRight[sym]
			} else {
				sym = symLeft[sym]
			}
		}
		if sym < 0x100 {
			if outPos >= len(out) {
				return nil, fmt.Errorf("ash: decompressed data overran expected size")
			}
			out[outPos] = byte(sym)
			outPos++
			remaining--
		} else {
			distSym := distRoot
			for int(distSym) >= distMax {
				bit, err := distReader.readBit()
				if err != nil {
					return nil, err
				}
				if bit != 0 {
					distSym = distRight[distSym]
				} else {
					distSym = distLeft[distSym]
				}
			}
			copyLen := int(sym) - 0x100 + 3
			srcPos := outPos - int(distSym) - 1
			if copyLen > remaining || srcPos < 0 {
				return nil, fmt.Errorf("ash: invalid back-reference")
			}
			remaining -= copyLen
			for ; copyLen > 0; copyLen-- {
				out[outPos] = out[srcPos]
				outPos++
				srcPos++
			}
		}
		if remaining == 0 {
			break
		}
	}
	return out, nil
}

// DefaultDecompress decompresses with the leaf widths (9 symbol bits, 11
// distance bits) that cover the Wii Menu and most first-party ASH0
// assets.
func DefaultDecompress(data []byte) ([]byte, error) {
	return Decompress(data, 9, 11)
}
