package lz77

import (
	"bytes"
	"testing"
)

// buildLZ77 hand-encodes a trivial LZ77 stream: five literal bytes
// followed by a back-reference copying the first three of them.
func buildLZ77(withMagic bool) []byte {
	literals := []byte("ABCDE")
	decompressedSize := len(literals) + 3 // + a 3-byte copy of "ABC"

	var buf bytes.Buffer
	if withMagic {
		buf.Write(magic[:])
	}
	buf.WriteByte(compressionType)
	buf.WriteByte(byte(decompressedSize))
	buf.WriteByte(byte(decompressedSize >> 8))
	buf.WriteByte(byte(decompressedSize >> 16))

	// flag byte: bits 7-3 = 0 (five literals), bit2=1 back-reference, rest unused (0 is fine, loop stops at size)
	flag := byte(0b00000100)
	buf.WriteByte(flag)
	buf.Write(literals)
	// reference: length=3 (nibble 0), offset=4 (copy starting 5 bytes back -> "A")
	length := 0
	offset := uint16(4)
	reference := (uint16(length) << 12) | (offset & 0xFFF)
	buf.WriteByte(byte(reference >> 8))
	buf.WriteByte(byte(reference))
	return buf.Bytes()
}

func TestDecompressWithMagic(t *testing.T) {
	got, err := Decompress(buildLZ77(true))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	want := []byte("ABCDEABC")
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecompressWithoutMagic(t *testing.T) {
	got, err := Decompress(buildLZ77(false))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	want := []byte("ABCDEABC")
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecompressRejectsUnsupportedType(t *testing.T) {
	data := append([]byte{}, magic[:]...)
	data = append(data, 0x20, 0x00, 0x00, 0x00)
	if _, err := Decompress(data); err == nil {
		t.Fatalf("expected error for unsupported compression type")
	}
}

func TestDecompressRejectsTruncatedReference(t *testing.T) {
	data := append([]byte{}, magic[:]...)
	data = append(data, compressionType, 0x05, 0x00, 0x00)
	data = append(data, 0x80) // flag says "back-reference" but no bytes follow
	if _, err := Decompress(data); err == nil {
		t.Fatalf("expected error for truncated back-reference")
	}
}
