package sig

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestTypeLenAndBodyOffset(t *testing.T) {
	cases := []struct {
		desc           string
		typ            Type
		wantLen        int
		wantBodyOffset int
		wantValid      bool
	}{
		{"rsa4096", TypeRsa4096, 512, 4 + 512 + 60, true},
		{"rsa2048", TypeRsa2048, 256, 4 + 256 + 60, true},
		{"ecdsa", TypeEcdsa, 60, 4 + 60 + 60, true},
		{"unknown", Type(0xdeadbeef), -1, 4 + (-1) + 60, false},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			if got := c.typ.Len(); got != c.wantLen {
				t.Errorf("Len() = %d, want %d", got, c.wantLen)
			}
			if got := c.typ.Valid(); got != c.wantValid {
				t.Errorf("Valid() = %v, want %v", got, c.wantValid)
			}
			if got := c.typ.BodyOffset(); got != c.wantBodyOffset {
				t.Errorf("BodyOffset() = %d, want %d", got, c.wantBodyOffset)
			}
		})
	}
}

func TestParseTypeRejectsUnknownTag(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, 0xcafebabe)
	if _, err := ParseType(buf); err == nil {
		t.Fatalf("expected error for unrecognized tag")
	}
}

func TestParseTypeRejectsShortBuffer(t *testing.T) {
	if _, err := ParseType([]byte{0x00, 0x01}); err == nil {
		t.Fatalf("expected error for truncated tag")
	}
}

func TestHeaderLoadDumpRoundTrip(t *testing.T) {
	want := Header{Type: TypeRsa2048, Signature: bytes.Repeat([]byte{0x5a}, TypeRsa2048.Len())}
	dumped := want.Dump()
	if len(dumped) != TypeRsa2048.BodyOffset() {
		t.Fatalf("dumped len %d, want %d", len(dumped), TypeRsa2048.BodyOffset())
	}
	got, err := Load(dumped)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Type != want.Type {
		t.Fatalf("got type %v, want %v", got.Type, want.Type)
	}
	if !bytes.Equal(got.Signature, want.Signature) {
		t.Fatalf("signature mismatch")
	}
}

func TestLoadRejectsTruncatedSignature(t *testing.T) {
	buf := make([]byte, 4+10)
	binary.BigEndian.PutUint32(buf, uint32(TypeRsa2048))
	if _, err := Load(buf); err == nil {
		t.Fatalf("expected error for truncated signature data")
	}
}
