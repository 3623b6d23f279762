// Package crypto implements the Wii title cryptosystem's primitives:
// the common key table, Title Key wrap/unwrap, per-content AES-128-CBC
// encryption, and the SHA-1 brute-force search used by fakesigning.
//
// Nothing in this package touches file layout; it operates purely on
// byte buffers and integers, matching the teacher's crypto helpers in
// formats/NCA/nca.go (AES over a wrapped key) generalized to the Wii's
// CBC-with-constructed-IV scheme.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"

	"github.com/ralim/libwii/wiierror"
)

// CommonKeyIndex selects which entry of the common key table wraps a
// Ticket's Title Key.
type CommonKeyIndex uint8

const (
	CommonKeyRetail CommonKeyIndex = 0
	CommonKeyKorean CommonKeyIndex = 1
	CommonKeyVWii   CommonKeyIndex = 2
	// CommonKeyDebug is not a real on-disk common_key_index value (real
	// tickets only ever use 0-2); it is selected instead by issuer prefix.
	// See DESIGN.md decision 5.
	CommonKeyDebug CommonKeyIndex = 0xFF
)

var commonKeyTable = map[CommonKeyIndex][16]byte{
	CommonKeyRetail: mustKey("ebe42a225e8593e448d9c5457381aaf7"),
	CommonKeyKorean: mustKey("63b82bb4f4614e2e13f2fefbba4c9b7e"),
	CommonKeyVWii:   mustKey("30bfc76e7c19afbb23163330ced7c28d"),
	CommonKeyDebug:  mustKey("a1604a6a7138c876337364d6a0f3b2a3"),
}

func mustKey(hexKey string) [16]byte {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 16 {
		panic("crypto: malformed built-in common key constant")
	}
	var out [16]byte
	copy(out[:], raw)
	return out
}

// DevIssuerPrefix is the signing issuer prefix that identifies a
// development/devkit-signed ticket, whose Title Key is wrapped under the
// debug common key rather than one of the three retail-indexed keys.
const DevIssuerPrefix = "Root-CA00000002"

// CommonKey returns the 16-byte common key for the given index.
func CommonKey(index CommonKeyIndex) ([16]byte, error) {
	k, ok := commonKeyTable[index]
	if !ok {
		return [16]byte{}, &wiierror.InvalidCommonKeyIndex{Index: uint8(index)}
	}
	return k, nil
}

// SelectCommonKey picks the common key to use for a ticket, given its
// stored common_key_index and its signing issuer string. A devkit issuer
// always selects the debug key regardless of the index field, matching
// spec.md §3's "development key chosen when the ticket's signature issuer
// begins with Root-CA00000002".
func SelectCommonKey(commonKeyIndex uint8, issuer string) ([16]byte, error) {
	if len(issuer) >= len(DevIssuerPrefix) && issuer[:len(DevIssuerPrefix)] == DevIssuerPrefix {
		return CommonKey(CommonKeyDebug)
	}
	return CommonKey(CommonKeyIndex(commonKeyIndex))
}

// TitleIV builds the 16-byte IV used to wrap/unwrap a Title Key: the
// Title ID's 8 bytes followed by 8 zero bytes.
func TitleIV(titleID uint64) [16]byte {
	var iv [16]byte
	binary.BigEndian.PutUint64(iv[:8], titleID)
	return iv
}

// ContentIV builds the 16-byte IV used to encrypt/decrypt a single
// content: its index as a big-endian u16, zero-padded to 16 bytes.
func ContentIV(index uint16) [16]byte {
	var iv [16]byte
	binary.BigEndian.PutUint16(iv[:2], index)
	return iv
}

// AESCBCDecrypt decrypts data (which must be a non-zero multiple of the
// AES block size) using key and iv. Callers handle any padding removal.
func AESCBCDecrypt(key, iv [16]byte, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, wiierror.ErrInvalidTitleKey
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(out, data)
	return out, nil
}

// AESCBCEncrypt encrypts data (which must be a non-zero multiple of the
// AES block size) using key and iv.
func AESCBCEncrypt(key, iv [16]byte, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, wiierror.ErrInvalidTitleKey
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out, data)
	return out, nil
}

// zeroPad returns data padded with zero bytes to the next multiple of n,
// or data unmodified if it already is one.
func zeroPad(data []byte, n int) []byte {
	rem := len(data) % n
	if rem == 0 {
		return data
	}
	out := make([]byte, len(data)+(n-rem))
	copy(out, data)
	return out
}

// DecryptTitleKey unwraps an encrypted Title Key using the common key
// selected by index and the IV derived from titleID.
func DecryptTitleKey(encKey [16]byte, index CommonKeyIndex, titleID uint64) ([16]byte, error) {
	key, err := CommonKey(index)
	if err != nil {
		return [16]byte{}, err
	}
	plain, err := AESCBCDecrypt(key, TitleIV(titleID), encKey[:])
	if err != nil {
		return [16]byte{}, err
	}
	var out [16]byte
	copy(out[:], plain)
	return out, nil
}

// EncryptTitleKey wraps a cleartext Title Key using the common key
// selected by index and the IV derived from titleID.
func EncryptTitleKey(key [16]byte, index CommonKeyIndex, titleID uint64) ([16]byte, error) {
	ckey, err := CommonKey(index)
	if err != nil {
		return [16]byte{}, err
	}
	enc, err := AESCBCEncrypt(ckey, TitleIV(titleID), key[:])
	if err != nil {
		return [16]byte{}, err
	}
	var out [16]byte
	copy(out[:], enc)
	return out, nil
}

// DecryptTitleKeyWithKey unwraps an encrypted Title Key using an already
// resolved common key (see SelectCommonKey) and the IV derived from
// titleID.
func DecryptTitleKeyWithKey(encKey [16]byte, commonKey [16]byte, titleID uint64) ([16]byte, error) {
	plain, err := AESCBCDecrypt(commonKey, TitleIV(titleID), encKey[:])
	if err != nil {
		return [16]byte{}, err
	}
	var out [16]byte
	copy(out[:], plain)
	return out, nil
}

// EncryptTitleKeyWithKey wraps a cleartext Title Key using an already
// resolved common key (see SelectCommonKey) and the IV derived from
// titleID.
func EncryptTitleKeyWithKey(key [16]byte, commonKey [16]byte, titleID uint64) ([16]byte, error) {
	enc, err := AESCBCEncrypt(commonKey, TitleIV(titleID), key[:])
	if err != nil {
		return [16]byte{}, err
	}
	var out [16]byte
	copy(out[:], enc)
	return out, nil
}

// DecryptContent decrypts a content's ciphertext using titleKey and the
// IV derived from index, then trims the result to plainLen bytes.
func DecryptContent(encContent []byte, titleKey [16]byte, index uint16, plainLen uint64) ([]byte, error) {
	padded := zeroPad(encContent, aes.BlockSize)
	plain, err := AESCBCDecrypt(titleKey, ContentIV(index), padded)
	if err != nil {
		return nil, err
	}
	if uint64(len(plain)) < plainLen {
		return nil, &wiierror.MalformedInput{Where: "crypto.DecryptContent", Offset: len(plain)}
	}
	return plain[:plainLen], nil
}

// EncryptContent zero-pads plainContent to a multiple of the AES block
// size and encrypts it using titleKey and the IV derived from index.
func EncryptContent(plainContent []byte, titleKey [16]byte, index uint16) ([]byte, error) {
	padded := zeroPad(plainContent, aes.BlockSize)
	return AESCBCEncrypt(titleKey, ContentIV(index), padded)
}

// SHA1 returns the SHA-1 digest of data.
func SHA1(data []byte) [20]byte {
	return sha1.Sum(data)
}

// SHA1Hex returns the lowercase hex-encoded SHA-1 digest of data.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// MaxFakesignAttempts bounds the fakesign brute-force search to the full
// range of the 16-bit scratch value, per spec.md §4.3.
const MaxFakesignAttempts = 65536

// FakesignScratch brute-forces a 16-bit scratch value such that
// sha1(bodyWith(scratch))'s first byte is 0x00. bodyWith is called with
// each candidate scratch value and must return the full signed body
// (the bytes the signature would cover) reflecting that scratch value.
// It returns the first scratch value that works, or ErrFakesignFailed if
// the search space is exhausted.
func FakesignScratch(bodyWith func(scratch uint16) []byte) (uint16, error) {
	for scratch := 0; scratch < MaxFakesignAttempts; scratch++ {
		s := uint16(scratch)
		sum := sha1.Sum(bodyWith(s))
		if sum[0] == 0x00 {
			return s, nil
		}
	}
	return 0, wiierror.ErrFakesignFailed
}
