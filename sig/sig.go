// Package sig implements the tagged signed-blob header shared by
// certificates, TMDs, and Tickets: a 4-byte type tag, a type-length
// signature, and 60 bytes of zero padding before the signed body begins.
package sig

import (
	"encoding/binary"

	"github.com/ralim/libwii/wiierror"
)

// Type identifies the signature variant carried by a signed blob's header.
type Type uint32

// Recognized signature type tags, matching the values Nintendo's ES uses
// on the Wii.
const (
	TypeRsa4096 Type = 0x00010000
	TypeRsa2048 Type = 0x00010001
	TypeEcdsa   Type = 0x00010002
)

// Len returns the length in bytes of the signature data itself (not
// including the 4-byte tag or the 60 bytes of padding that follow it).
func (t Type) Len() int {
	switch t {
	case TypeRsa4096:
		return 512
	case TypeRsa2048:
		return 256
	case TypeEcdsa:
		return 60
	default:
		return -1
	}
}

// Valid reports whether t is one of the recognized signature types.
func (t Type) Valid() bool {
	return t.Len() >= 0
}

// BodyOffset returns the offset of the signed body: 4 bytes of tag, the
// type's signature length, then 60 bytes of padding.
func (t Type) BodyOffset() int {
	return 4 + t.Len() + 60
}

// ParseType reads the 4-byte big-endian signature type tag from the start
// of buf and validates it.
func ParseType(buf []byte) (Type, error) {
	if len(buf) < 4 {
		return 0, &wiierror.MalformedInput{Where: "sig.ParseType", Offset: 0}
	}
	t := Type(binary.BigEndian.Uint32(buf[:4]))
	if !t.Valid() {
		return 0, &wiierror.UnsupportedSignatureType{Tag: uint32(t)}
	}
	return t, nil
}

// Header holds a parsed signed-blob header: the signature type and the
// raw signature bytes (exactly Type.Len() of them). The signed body
// begins at Type.BodyOffset().
type Header struct {
	Type      Type
	Signature []byte
}

// Load parses a signed-blob header from the start of buf.
func Load(buf []byte) (Header, error) {
	t, err := ParseType(buf)
	if err != nil {
		return Header{}, err
	}
	n := t.Len()
	if len(buf) < 4+n {
		return Header{}, &wiierror.MalformedInput{Where: "sig.Load", Offset: 4}
	}
	sigBytes := make([]byte, n)
	copy(sigBytes, buf[4:4+n])
	return Header{Type: t, Signature: sigBytes}, nil
}

// Dump serializes the header: 4-byte tag, signature bytes, then 60 bytes
// of zero padding. The returned slice has length BodyOffset().
func (h Header) Dump() []byte {
	out := make([]byte, h.Type.BodyOffset())
	binary.BigEndian.PutUint32(out[0:4], uint32(h.Type))
	copy(out[4:4+h.Type.Len()], h.Signature)
	return out
}
