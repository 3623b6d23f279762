package tmd

import (
	"bytes"
	"testing"

	"github.com/ralim/libwii/sig"
)

func sampleTMD() TMD {
	return TMD{
		Sig:             sig.Header{Type: sig.TypeRsa2048, Signature: bytes.Repeat([]byte{0x11}, sig.TypeRsa2048.Len())},
		SignatureIssuer: "Root-CA00000001-CP00000004",
		TitleID:         0x0001000148414141,
		TitleType:       1,
		GroupID:         0x4141,
		Region:          1,
		AccessRights:    1 << uint(AccessFlagDVDVideo),
		TitleVersion:    3,
		BootIndex:       0,
		ContentRecords: []ContentRecord{
			{ContentID: 0, Index: 0, ContentType: ContentTypeNormal, Size: 1024, Hash: [20]byte{0xaa}},
			{ContentID: 1, Index: 1, ContentType: ContentTypeShared, Size: 2048, Hash: [20]byte{0xbb}},
		},
	}
}

func TestDumpLoadRoundTrip(t *testing.T) {
	want := sampleTMD()
	dumped := want.Dump()
	got, err := Load(dumped)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TitleID != want.TitleID || got.SignatureIssuer != want.SignatureIssuer {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.ContentRecords) != len(want.ContentRecords) {
		t.Fatalf("got %d content records, want %d", len(got.ContentRecords), len(want.ContentRecords))
	}
	for i := range want.ContentRecords {
		if got.ContentRecords[i] != want.ContentRecords[i] {
			t.Fatalf("content record %d mismatch: got %+v want %+v", i, got.ContentRecords[i], want.ContentRecords[i])
		}
	}
}

func TestTitleRegionString(t *testing.T) {
	cases := []struct {
		region uint16
		want   string
	}{
		{0, "JPN"}, {1, "USA"}, {2, "EUR"}, {3, "None"}, {4, "KOR"}, {9, "Unknown"},
	}
	for _, c := range cases {
		tm := TMD{Region: c.region}
		if got := tm.TitleRegionString(); got != c.want {
			t.Errorf("region %d: got %q, want %q", c.region, got, c.want)
		}
	}
}

func TestTitleTypeString(t *testing.T) {
	cases := []struct {
		titleID uint64
		want    string
	}{
		{0x0000000100000002, "System"},
		{0x0001000048414141, "Game"},
		{0x0001000148414141, "Channel"},
		{0x00010005ffffffff, "DLC"},
		{0xdeadbeef00000000, "Unknown"},
	}
	for _, c := range cases {
		tm := TMD{TitleID: c.titleID}
		if got := tm.TitleTypeString(); got != c.want {
			t.Errorf("title ID %x: got %q, want %q", c.titleID, got, c.want)
		}
	}
}

func TestContentTypeString(t *testing.T) {
	cases := []struct {
		ct   ContentType
		want string
	}{
		{ContentTypeNormal, "Normal"},
		{ContentTypeDevelopment, "Development/Unknown"},
		{ContentTypeHashTree, "Hash Tree"},
		{ContentTypeDLC, "DLC"},
		{ContentTypeShared, "Shared"},
		{ContentType(9999), "Unknown"},
	}
	for _, c := range cases {
		if got := c.ct.String(); got != c.want {
			t.Errorf("got %q, want %q", got, c.want)
		}
	}
}

func TestAccessRight(t *testing.T) {
	tm := TMD{AccessRights: 1 << uint(AccessFlagAHB)}
	if !tm.AccessRight(AccessFlagAHB) {
		t.Fatalf("expected AHB flag set")
	}
	if tm.AccessRight(AccessFlagDVDVideo) {
		t.Fatalf("expected DVD video flag unset")
	}
}

func TestContentRecordByIndexNotFound(t *testing.T) {
	tm := sampleTMD()
	if _, err := tm.ContentRecordByIndex(99); err == nil {
		t.Fatalf("expected error for unknown index")
	}
}

func TestContentRecordByCid(t *testing.T) {
	tm := sampleTMD()
	rec, err := tm.ContentRecordByCid(1)
	if err != nil {
		t.Fatalf("ContentRecordByCid: %v", err)
	}
	if rec.Index != 1 || rec.ContentType != ContentTypeShared {
		t.Fatalf("got record %+v, want index 1 / shared", rec)
	}
}

func TestContentRecordByCidNotFound(t *testing.T) {
	tm := sampleTMD()
	if _, err := tm.ContentRecordByCid(99); err == nil {
		t.Fatalf("expected error for unknown content ID")
	}
}

func TestFakesignProducesVerifiableHash(t *testing.T) {
	tm := sampleTMD()
	if err := tm.Fakesign(); err != nil {
		t.Fatalf("Fakesign: %v", err)
	}
	if !tm.IsFakesigned() {
		t.Fatalf("expected IsFakesigned to report true after Fakesign")
	}
	for _, b := range tm.Sig.Signature {
		if b != 0 {
			t.Fatalf("expected zeroed signature after fakesigning")
		}
	}
}

func TestTitleVersionStandard(t *testing.T) {
	tm := TMD{TitleID: 0x0001000148414141, TitleVersion: 256 + 5}
	got, err := tm.TitleVersionStandard()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1.5" {
		t.Fatalf("got %q, want %q", got, "1.5")
	}

	menu := TMD{TitleID: 0x0000000100000002}
	if _, err := menu.TitleVersionStandard(); err == nil {
		t.Fatalf("expected error for System Menu version conversion")
	}
}
