package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestCommonKey(t *testing.T) {
	cases := []struct {
		desc      string
		index     CommonKeyIndex
		want      string
		expectErr bool
	}{
		{"retail", CommonKeyRetail, "ebe42a225e8593e448d9c5457381aaf7", false},
		{"korean", CommonKeyKorean, "63b82bb4f4614e2e13f2fefbba4c9b7e", false},
		{"vwii", CommonKeyVWii, "30bfc76e7c19afbb23163330ced7c28d", false},
		{"unknown", CommonKeyIndex(99), "", true},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			got, err := CommonKey(c.index)
			if c.expectErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want, _ := hex.DecodeString(c.want)
			if !bytes.Equal(got[:], want) {
				t.Fatalf("got %x, want %x", got, want)
			}
		})
	}
}

func TestSelectCommonKeyDevIssuer(t *testing.T) {
	got, err := SelectCommonKey(0, "Root-CA00000002-XS00000006")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := CommonKey(CommonKeyDebug)
	if got != want {
		t.Fatalf("expected debug key to be selected for dev issuer")
	}
}

func TestSelectCommonKeyRetailIssuer(t *testing.T) {
	got, err := SelectCommonKey(1, "Root-CA00000001-XS00000003")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := CommonKey(CommonKeyKorean)
	if got != want {
		t.Fatalf("expected the index-selected key for a retail issuer")
	}
}

func TestTitleKeyRoundTrip(t *testing.T) {
	var key [16]byte
	copy(key[:], []byte("0123456789abcdef"))
	const titleID = 0x0001000148414141

	enc, err := EncryptTitleKey(key, CommonKeyRetail, titleID)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	dec, err := DecryptTitleKey(enc, CommonKeyRetail, titleID)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if dec != key {
		t.Fatalf("round-tripped key %x does not match original %x", dec, key)
	}
}

func TestContentRoundTrip(t *testing.T) {
	var titleKey [16]byte
	copy(titleKey[:], []byte("fedcba9876543210"))
	plain := []byte("hello wii content, not block aligned")

	enc, err := EncryptContent(plain, titleKey, 3)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	dec, err := DecryptContent(enc, titleKey, 3, uint64(len(plain)))
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("got %q, want %q", dec, plain)
	}
}

func TestFakesignScratchFindsLeadingZero(t *testing.T) {
	prefix := []byte("fixed body prefix that never changes")
	scratch, err := FakesignScratch(func(s uint16) []byte {
		body := make([]byte, len(prefix)+2)
		copy(body, prefix)
		body[len(prefix)] = byte(s >> 8)
		body[len(prefix)+1] = byte(s)
		return body
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := make([]byte, len(prefix)+2)
	copy(body, prefix)
	body[len(prefix)] = byte(scratch >> 8)
	body[len(prefix)+1] = byte(scratch)
	sum := SHA1(body)
	if sum[0] != 0x00 {
		t.Fatalf("expected a hash with leading zero byte, got %x", sum)
	}
}
