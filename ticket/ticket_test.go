package ticket

import (
	"bytes"
	"testing"

	"github.com/ralim/libwii/sig"
)

func sampleTicket() Ticket {
	tk := Ticket{
		Sig:             sig.Header{Type: sig.TypeRsa2048, Signature: bytes.Repeat([]byte{0x22}, sig.TypeRsa2048.Len())},
		SignatureIssuer: "Root-CA00000001-XS00000003",
		TitleID:         0x0001000148414141,
		CommonKeyIndex:  0,
		TitleVersion:    5,
		TitleLimits:     make([]TitleLimit, 8),
	}
	copy(tk.TitleKeyEnc[:], bytes.Repeat([]byte{0x33}, 16))
	return tk
}

func TestDumpLoadRoundTrip(t *testing.T) {
	want := sampleTicket()
	dumped := want.Dump()
	if len(dumped) != 0x2A4 {
		t.Fatalf("dumped ticket length = %d, want %d", len(dumped), 0x2A4)
	}
	got, err := Load(dumped)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TitleID != want.TitleID || got.SignatureIssuer != want.SignatureIssuer {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got.TitleKeyEnc != want.TitleKeyEnc {
		t.Fatalf("title key mismatch")
	}
}

func TestLoadRejectsV1Ticket(t *testing.T) {
	tk := sampleTicket()
	dumped := tk.Dump()
	dumped[0x1BC] = 1
	if _, err := Load(dumped); err == nil {
		t.Fatalf("expected error for v1 ticket")
	}
}

func TestTitleKeyRoundTripViaTicket(t *testing.T) {
	tk := sampleTicket()
	var key [16]byte
	copy(key[:], []byte("sixteen byte key"))
	if err := tk.SetTitleKey(key); err != nil {
		t.Fatalf("SetTitleKey: %v", err)
	}
	got, err := tk.TitleKey()
	if err != nil {
		t.Fatalf("TitleKey: %v", err)
	}
	if got != key {
		t.Fatalf("got %x, want %x", got, key)
	}
}

func TestSetTitleIDRewrapsTitleKey(t *testing.T) {
	tk := sampleTicket()
	var key [16]byte
	copy(key[:], []byte("sixteen byte key"))
	if err := tk.SetTitleKey(key); err != nil {
		t.Fatalf("SetTitleKey: %v", err)
	}
	oldEnc := tk.TitleKeyEnc

	if err := tk.SetTitleID(0x0001000248414142); err != nil {
		t.Fatalf("SetTitleID: %v", err)
	}
	if tk.TitleKeyEnc == oldEnc {
		t.Fatalf("expected the wrapped title key to change after SetTitleID")
	}
	got, err := tk.TitleKey()
	if err != nil {
		t.Fatalf("TitleKey: %v", err)
	}
	if got != key {
		t.Fatalf("title key not recoverable after SetTitleID: got %x, want %x", got, key)
	}
}

func TestSetCommonKeyIndexRewrapsTitleKey(t *testing.T) {
	tk := sampleTicket()
	var key [16]byte
	copy(key[:], []byte("sixteen byte key"))
	if err := tk.SetTitleKey(key); err != nil {
		t.Fatalf("SetTitleKey: %v", err)
	}
	oldEnc := tk.TitleKeyEnc

	if err := tk.SetCommonKeyIndex(1); err != nil {
		t.Fatalf("SetCommonKeyIndex: %v", err)
	}
	if tk.CommonKeyIndex != 1 {
		t.Fatalf("got CommonKeyIndex %d, want 1", tk.CommonKeyIndex)
	}
	if tk.TitleKeyEnc == oldEnc {
		t.Fatalf("expected the wrapped title key to change after SetCommonKeyIndex")
	}
	got, err := tk.TitleKey()
	if err != nil {
		t.Fatalf("TitleKey: %v", err)
	}
	if got != key {
		t.Fatalf("title key not recoverable after SetCommonKeyIndex: got %x, want %x", got, key)
	}
}

func TestFakesignProducesVerifiableHash(t *testing.T) {
	tk := sampleTicket()
	if err := tk.Fakesign(); err != nil {
		t.Fatalf("Fakesign: %v", err)
	}
	if !tk.IsFakesigned() {
		t.Fatalf("expected IsFakesigned to report true after Fakesign")
	}
}

func TestCommonKeyTypeString(t *testing.T) {
	cases := []struct {
		idx  uint8
		want string
	}{{0, "Common"}, {1, "Korean"}, {2, "vWii"}, {9, "Unknown"}}
	for _, c := range cases {
		tk := Ticket{CommonKeyIndex: c.idx}
		if got := tk.CommonKeyTypeString(); got != c.want {
			t.Errorf("index %d: got %q, want %q", c.idx, got, c.want)
		}
	}
}
