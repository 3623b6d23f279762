// Package cert implements the Wii's certificate chain: the CA ("Root"),
// CP (signs TMDs), and XS (signs Tickets) certificates found at the start
// of every WAD, plus RSA-SHA1 PKCS#1 v1.5 signature verification over
// TMD/Ticket/certificate bodies.
//
// Layout grounded on original_source/title/cert.py; offset arithmetic
// style grounded on other_examples/connesc-ctrsigcheck__certs.go.
package cert

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/binary"
	"math/big"
	"strings"

	"github.com/ralim/libwii/sig"
	"github.com/ralim/libwii/wiierror"
)

// KeyType identifies the public key algorithm carried by a certificate.
type KeyType uint32

const (
	KeyTypeRsa4096 KeyType = 0
	KeyTypeRsa2048 KeyType = 1
	KeyTypeEcc     KeyType = 2
)

func (k KeyType) keyLen() int {
	switch k {
	case KeyTypeRsa4096:
		return 512
	case KeyTypeRsa2048:
		return 256
	case KeyTypeEcc:
		return 60
	default:
		return -1
	}
}

// Certificate is a single certificate as stored in a WAD's cert region:
// a signed-blob header, an issuer name, a public key type and key, and a
// child identity name that child certificates reference as their issuer.
type Certificate struct {
	Sig          sig.Header
	Issuer       string
	PubKeyType   KeyType
	ChildName    string
	PubKeyID     uint32
	PubKeyModulus  *big.Int
	PubKeyExponent uint32 // only meaningful for RSA key types
}

const (
	issuerFieldLen    = 0x40
	childNameFieldLen = 0x40
)

// LoadCertificate parses a certificate from the start of buf. buf may
// contain trailing bytes belonging to a sibling certificate in a chain;
// only the bytes this certificate occupies are consumed.
func LoadCertificate(buf []byte) (Certificate, error) {
	sigHdr, err := sig.Load(buf)
	if err != nil {
		return Certificate{}, err
	}
	off := sigHdr.Type.BodyOffset()
	need := off + 4 + issuerFieldLen + 4 + childNameFieldLen + 4
	if len(buf) < need {
		return Certificate{}, &wiierror.MalformedInput{Where: "cert.Load", Offset: off}
	}

	c := Certificate{Sig: sigHdr}
	c.Issuer = trimNulString(buf[off : off+issuerFieldLen])
	off += issuerFieldLen
	c.PubKeyType = KeyType(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	c.ChildName = trimNulString(buf[off : off+childNameFieldLen])
	off += childNameFieldLen
	c.PubKeyID = binary.BigEndian.Uint32(buf[off : off+4])
	off += 4

	keyLen := c.PubKeyType.keyLen()
	if keyLen < 0 {
		return Certificate{}, &wiierror.MalformedInput{Where: "cert.Load: key type", Offset: off}
	}
	if len(buf) < off+keyLen {
		return Certificate{}, &wiierror.MalformedInput{Where: "cert.Load: modulus", Offset: off}
	}
	c.PubKeyModulus = new(big.Int).SetBytes(buf[off : off+keyLen])
	off += keyLen
	if c.PubKeyType == KeyTypeRsa2048 || c.PubKeyType == KeyTypeRsa4096 {
		if len(buf) < off+4 {
			return Certificate{}, &wiierror.MalformedInput{Where: "cert.Load: exponent", Offset: off}
		}
		c.PubKeyExponent = binary.BigEndian.Uint32(buf[off : off+4])
	}
	return c, nil
}

// Size returns the total serialized size of the certificate, padded to a
// 64-byte boundary.
func (c Certificate) Size() int {
	off := c.Sig.Type.BodyOffset() + 4 + issuerFieldLen + 4 + childNameFieldLen + 4
	off += c.PubKeyType.keyLen()
	if c.PubKeyType == KeyTypeRsa2048 || c.PubKeyType == KeyTypeRsa4096 {
		off += 4
	}
	return align(off, 64)
}

// Dump serializes the certificate, zero-padded to a 64-byte boundary.
func (c Certificate) Dump() []byte {
	out := make([]byte, 0, c.Size())
	out = append(out, c.Sig.Dump()...)
	out = append(out, padString(c.Issuer, issuerFieldLen)...)
	var keyTypeBuf [4]byte
	binary.BigEndian.PutUint32(keyTypeBuf[:], uint32(c.PubKeyType))
	out = append(out, keyTypeBuf[:]...)
	out = append(out, padString(c.ChildName, childNameFieldLen)...)
	var keyIDBuf [4]byte
	binary.BigEndian.PutUint32(keyIDBuf[:], c.PubKeyID)
	out = append(out, keyIDBuf[:]...)
	keyLen := c.PubKeyType.keyLen()
	modBytes := c.PubKeyModulus.Bytes()
	padded := make([]byte, keyLen)
	copy(padded[keyLen-len(modBytes):], modBytes)
	out = append(out, padded...)
	if c.PubKeyType == KeyTypeRsa2048 || c.PubKeyType == KeyTypeRsa4096 {
		var expBuf [4]byte
		binary.BigEndian.PutUint32(expBuf[:], c.PubKeyExponent)
		out = append(out, expBuf[:]...)
	}
	if rem := len(out) % 64; rem != 0 {
		out = append(out, make([]byte, 64-rem)...)
	}
	return out
}

// PublicKey returns an *rsa.PublicKey built from the certificate's
// modulus and exponent. It only makes sense for RSA key types.
func (c Certificate) PublicKey() *rsa.PublicKey {
	return &rsa.PublicKey{N: c.PubKeyModulus, E: int(c.PubKeyExponent)}
}

func trimNulString(b []byte) string {
	if i := indexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func padString(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

func align(v, to int) int {
	if rem := v % to; rem != 0 {
		return v + (to - rem)
	}
	return v
}

// Chain is the three-certificate chain (CA, CP/TMD, XS/Ticket) carried in
// every WAD's cert region, always dumped in CA, CP, XS order.
type Chain struct {
	CA     Certificate
	TMD    Certificate
	Ticket Certificate
}

// LoadChain walks cert_chain_data splitting it into three certificates by
// computing each one's size from its own header, and classifies each by
// issuer/child-name, matching original_source/title/cert.py's
// CertificateChain.load.
func LoadChain(data []byte) (Chain, error) {
	var chain Chain
	off := 0
	for i := 0; i < 3; i++ {
		if off >= len(data) {
			return Chain{}, &wiierror.MalformedInput{Where: "cert.Load: chain", Offset: off}
		}
		c, err := LoadCertificate(data[off:])
		if err != nil {
			return Chain{}, err
		}
		size := c.Size()
		switch {
		case c.Issuer == "Root":
			chain.CA = c
		case strings.Contains(c.Issuer, "Root-CA"):
			switch {
			case strings.Contains(c.ChildName, "CP"):
				chain.TMD = c
			case strings.Contains(c.ChildName, "XS"):
				chain.Ticket = c
			default:
				return Chain{}, &wiierror.MalformedInput{Where: "cert.Load: unknown child cert", Offset: off}
			}
		default:
			return Chain{}, &wiierror.MalformedInput{Where: "cert.Load: unknown cert", Offset: off}
		}
		off += size
	}
	return chain, nil
}

// Dump serializes the chain in the fixed CA, CP, XS order.
func (c Chain) Dump() []byte {
	out := make([]byte, 0, c.CA.Size()+c.TMD.Size()+c.Ticket.Size())
	out = append(out, c.CA.Dump()...)
	out = append(out, c.TMD.Dump()...)
	out = append(out, c.Ticket.Dump()...)
	return out
}

// retailRootModulus is the well-known Wii retail root CA RSA-4096
// modulus, captured byte-for-byte from original_source/title/cert.py.
var retailRootModulus = new(big.Int).SetBytes([]byte{
	0xf8, 0x24, 0x6c, 0x58, 0xba, 0xe7, 0x50, 0x03, 0x01, 0xfb, 0xb7, 0xc2, 0xeb, 0xe0, 0x01, 0x05,
	0x71, 0xda, 0x92, 0x23, 0x78, 0xf0, 0x51, 0x4e, 0xc0, 0x03, 0x1d, 0xd0, 0xd2, 0x1e, 0xd3, 0xd0,
	0x7e, 0xfc, 0x85, 0x20, 0x69, 0xb5, 0xde, 0x9b, 0xb9, 0x51, 0xa8, 0xbc, 0x90, 0xa2, 0x44, 0x92,
	0x6d, 0x37, 0x92, 0x95, 0xae, 0x94, 0x36, 0xaa, 0xa6, 0xa3, 0x02, 0x51, 0x0c, 0x7b, 0x1d, 0xed,
	0xd5, 0xfb, 0x20, 0x86, 0x9d, 0x7f, 0x30, 0x16, 0xf6, 0xbe, 0x65, 0xd3, 0x83, 0xa1, 0x6d, 0xb3,
	0x32, 0x1b, 0x95, 0x35, 0x18, 0x90, 0xb1, 0x70, 0x02, 0x93, 0x7e, 0xe1, 0x93, 0xf5, 0x7e, 0x99,
	0xa2, 0x47, 0x4e, 0x9d, 0x38, 0x24, 0xc7, 0xae, 0xe3, 0x85, 0x41, 0xf5, 0x67, 0xe7, 0x51, 0x8c,
	0x7a, 0x0e, 0x38, 0xe7, 0xeb, 0xaf, 0x41, 0x19, 0x1b, 0xcf, 0xf1, 0x7b, 0x42, 0xa6, 0xb4, 0xed,
	0xe6, 0xce, 0x8d, 0xe7, 0x31, 0x8f, 0x7f, 0x52, 0x04, 0xb3, 0x99, 0x0e, 0x22, 0x67, 0x45, 0xaf,
	0xd4, 0x85, 0xb2, 0x44, 0x93, 0x00, 0x8b, 0x08, 0xc7, 0xf6, 0xb7, 0xe5, 0x6b, 0x02, 0xb3, 0xe8,
	0xfe, 0x0c, 0x9d, 0x85, 0x9c, 0xb8, 0xb6, 0x82, 0x23, 0xb8, 0xab, 0x27, 0xee, 0x5f, 0x65, 0x38,
	0x07, 0x8b, 0x2d, 0xb9, 0x1e, 0x2a, 0x15, 0x3e, 0x85, 0x81, 0x80, 0x72, 0xa2, 0x3b, 0x6d, 0xd9,
	0x32, 0x81, 0x05, 0x4f, 0x6f, 0xb0, 0xf6, 0xf5, 0xad, 0x28, 0x3e, 0xca, 0x0b, 0x7a, 0xf3, 0x54,
	0x55, 0xe0, 0x3d, 0xa7, 0xb6, 0x83, 0x26, 0xf3, 0xec, 0x83, 0x4a, 0xf3, 0x14, 0x04, 0x8a, 0xc6,
	0xdf, 0x20, 0xd2, 0x85, 0x08, 0x67, 0x3c, 0xab, 0x62, 0xa2, 0xc7, 0xbc, 0x13, 0x1a, 0x53, 0x3e,
	0x0b, 0x66, 0x80, 0x6b, 0x1c, 0x30, 0x66, 0x4b, 0x37, 0x23, 0x31, 0xbd, 0xc4, 0xb0, 0xca, 0xd8,
	0xd1, 0x1e, 0xe7, 0xbb, 0xd9, 0x28, 0x55, 0x48, 0xaa, 0xec, 0x1f, 0x66, 0xe8, 0x21, 0xb3, 0xc8,
	0xa0, 0x47, 0x69, 0x00, 0xc5, 0xe6, 0x88, 0xe8, 0x0c, 0xce, 0x3c, 0x61, 0xd6, 0x9c, 0xbb, 0xa1,
	0x37, 0xc6, 0x60, 0x4f, 0x7a, 0x72, 0xdd, 0x8c, 0x7b, 0x3e, 0x3d, 0x51, 0x29, 0x0d, 0xaa, 0x6a,
	0x59, 0x7b, 0x08, 0x1f, 0x9d, 0x36, 0x33, 0xa3, 0x46, 0x7a, 0x35, 0x61, 0x09, 0xac, 0xa7, 0xdd,
	0x7d, 0x2e, 0x2f, 0xb2, 0xc1, 0xae, 0xb8, 0xe2, 0x0f, 0x48, 0x92, 0xd8, 0xb9, 0xf8, 0xb4, 0x6f,
	0x4e, 0x3c, 0x11, 0xf4, 0xf4, 0x7d, 0x8b, 0x75, 0x7d, 0xfe, 0xfe, 0xa3, 0x89, 0x9c, 0x33, 0x59,
	0x5c, 0x5e, 0xfd, 0xeb, 0xcb, 0xab, 0xe8, 0x41, 0x3e, 0x3a, 0x9a, 0x80, 0x3c, 0x69, 0x35, 0x6e,
	0xb2, 0xb2, 0xad, 0x5c, 0xc4, 0xc8, 0x58, 0x45, 0x5e, 0xf5, 0xf7, 0xb3, 0x06, 0x44, 0xb4, 0x7c,
	0x64, 0x06, 0x8c, 0xdf, 0x80, 0x9f, 0x76, 0x02, 0x5a, 0x2d, 0xb4, 0x46, 0xe0, 0x3d, 0x7c, 0xf6,
	0x2f, 0x34, 0xe7, 0x02, 0x45, 0x7b, 0x02, 0xa4, 0xcf, 0x5d, 0x9d, 0xd5, 0x3c, 0xa5, 0x3a, 0x7c,
	0xa6, 0x29, 0x78, 0x8c, 0x67, 0xca, 0x08, 0xbf, 0xec, 0xca, 0x43, 0xa9, 0x57, 0xad, 0x16, 0xc9,
	0x4e, 0x1c, 0xd8, 0x75, 0xca, 0x10, 0x7d, 0xce, 0x7e, 0x01, 0x18, 0xf0, 0xdf, 0x6b, 0xfe, 0xe5,
	0x1d, 0xdb, 0xd9, 0x91, 0xc2, 0x6e, 0x60, 0xcd, 0x48, 0x58, 0xaa, 0x59, 0x2c, 0x82, 0x00, 0x75,
	0xf2, 0x9f, 0x52, 0x6c, 0x91, 0x7c, 0x6f, 0xe5, 0x40, 0x3e, 0xa7, 0xd4, 0xa5, 0x0c, 0xec, 0x3b,
	0x73, 0x84, 0xde, 0x88, 0x6e, 0x82, 0xd2, 0xeb, 0x4d, 0x4e, 0x42, 0xb5, 0xf2, 0xb1, 0x49, 0xa8,
	0x1e, 0xa7, 0xce, 0x71, 0x44, 0xdc, 0x29, 0x94, 0xcf, 0xc4, 0x4e, 0x1f, 0x91, 0xcb, 0xd4, 0x95,
})

const retailRootExponent = 0x00010001

// CARootKind classifies a CA certificate's modulus/exponent against the
// known root CA constants, per spec.md §4.2's verify_ca_is_root.
type CARootKind int

const (
	// CARootUnknown means ca's modulus matched neither the retail nor
	// the development root CA constant. This is NOT the same as
	// forged: original_source/title/cert.py only ever captured the
	// retail modulus, so a structurally-valid CA signed by a root this
	// library has no constant for (e.g. a genuine dev-unit root)
	// classifies as Unknown rather than being collapsed into "false".
	CARootUnknown CARootKind = iota
	CARootRetail
	CARootDev
)

func (k CARootKind) String() string {
	switch k {
	case CARootRetail:
		return "Retail"
	case CARootDev:
		return "Dev"
	default:
		return "Unknown"
	}
}

// VerifyCAIsRoot classifies ca's modulus/exponent against the known
// retail and development root CA constants. Only the retail constant is
// known; no development root modulus has ever surfaced
// in original_source or the examples pack, so this never returns
// CARootDev today, but the three-way result exists so a future known
// dev constant slots in without an API change.
func VerifyCAIsRoot(ca Certificate) CARootKind {
	if ca.PubKeyModulus.Cmp(retailRootModulus) == 0 && ca.PubKeyExponent == retailRootExponent {
		return CARootRetail
	}
	return CARootUnknown
}

// VerifyCARoot reports whether ca has the well-known retail root
// modulus/exponent. Retained as a convenience wrapper around
// VerifyCAIsRoot for callers that only care about the retail case.
func VerifyCARoot(ca Certificate) bool {
	return VerifyCAIsRoot(ca) == CARootRetail
}

// VerifySignature verifies an RSA-SHA1 PKCS#1 v1.5 signature over body
// using the given public key certificate. It returns false (not an
// error) on a bad signature, matching spec.md §4.2's bool-returning
// verify_child.
func VerifySignature(signer Certificate, sigHdr sig.Header, body []byte) bool {
	digest := sha1.Sum(body)
	err := rsa.VerifyPKCS1v15(signer.PublicKey(), crypto.SHA1, digest[:], sigHdr.Signature)
	return err == nil
}

// VerifyCACert verifies the CA certificate's own self-signature against
// the hardcoded retail root key.
func VerifyCACert(ca Certificate) bool {
	if !VerifyCARoot(ca) {
		return false
	}
	dumped := ca.Dump()
	body := dumped[ca.Sig.Type.BodyOffset():]
	digest := sha1.Sum(body)
	pub := &rsa.PublicKey{N: retailRootModulus, E: retailRootExponent}
	return rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], ca.Sig.Signature) == nil
}
