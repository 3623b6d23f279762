package ash

import (
	"encoding/binary"
	"testing"
)

func TestDecompressRejectsBadMagic(t *testing.T) {
	data := make([]byte, 16)
	copy(data, []byte{0x00, 0x00, 0x00, 0x00})
	if _, err := DefaultDecompress(data); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestDecompressRejectsTruncatedHeader(t *testing.T) {
	data := append([]byte{}, magic[:]...)
	data = append(data, 0x00, 0x00) // too short for the 0xC byte header
	if _, err := DefaultDecompress(data); err == nil {
		t.Fatalf("expected error for truncated header")
	}
}

func TestReadTreeRejectsImmediateLeafWithEmptyWorklist(t *testing.T) {
	// An all-zero first word tells readTree to treat the very first node as
	// a leaf before any internal node has been pushed, which is malformed.
	word := make([]byte, 4)
	binary.BigEndian.PutUint32(word, 0x00000000)
	r, err := newBitReader(word, 0)
	if err != nil {
		t.Fatalf("newBitReader: %v", err)
	}
	leftTree := make([]uint32, 4)
	rightTree := make([]uint32, 4)
	if _, err := readTree(r, 2, leftTree, rightTree); err == nil {
		t.Fatalf("expected a malformed-tree error")
	}
}

func TestBitReaderReadBitsMatchesWordLayout(t *testing.T) {
	src := make([]byte, 8)
	binary.BigEndian.PutUint32(src[0:4], 0xABCD1234)
	binary.BigEndian.PutUint32(src[4:8], 0x00000000)

	r, err := newBitReader(src, 0)
	if err != nil {
		t.Fatalf("newBitReader: %v", err)
	}
	top16, err := r.readBits(16)
	if err != nil {
		t.Fatalf("readBits(16): %v", err)
	}
	if top16 != 0xABCD {
		t.Fatalf("got %#x, want %#x", top16, 0xABCD)
	}
	next16, err := r.readBits(16)
	if err != nil {
		t.Fatalf("readBits(16): %v", err)
	}
	if next16 != 0x1234 {
		t.Fatalf("got %#x, want %#x", next16, 0x1234)
	}
}

func TestBitReaderReadBitsAcrossWordBoundary(t *testing.T) {
	src := make([]byte, 8)
	binary.BigEndian.PutUint32(src[0:4], 0xFFFF0000)
	binary.BigEndian.PutUint32(src[4:8], 0xFFFF0000)

	r, err := newBitReader(src, 0)
	if err != nil {
		t.Fatalf("newBitReader: %v", err)
	}
	// Consume 24 bits (0xFFFF00), leaving 8 bits of the first word, then
	// read 16 bits that must straddle the word boundary.
	if _, err := r.readBits(24); err != nil {
		t.Fatalf("readBits(24): %v", err)
	}
	got, err := r.readBits(16)
	if err != nil {
		t.Fatalf("readBits(16): %v", err)
	}
	// 8 leftover zero bits from word 1, then the top 8 bits (0xFF) of word 2.
	if got != 0x00FF {
		t.Fatalf("got %#x, want %#x", got, 0x00FF)
	}
}

func TestBitReaderFeedWordRejectsTruncatedSource(t *testing.T) {
	if _, err := newBitReader([]byte{0x01, 0x02}, 0); err == nil {
		t.Fatalf("expected error reading a word from a 2-byte source")
	}
}
