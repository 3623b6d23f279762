// Package tmd implements the Wii Title Metadata format: the per-title
// manifest of content records, version, region, and access rights that a
// WAD's TMD region carries, plus the "trucha bug" fakesigning brute force.
//
// Byte layout grounded on original_source/title/tmd.py; signature framing
// grounded on the shared sig package used the same way in cert.
package tmd

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ralim/libwii/crypto"
	"github.com/ralim/libwii/sig"
	"github.com/ralim/libwii/wiierror"
)

// ContentType classifies a single content entry in a TMD's content records.
type ContentType uint16

const (
	ContentTypeNormal      ContentType = 0x0001
	ContentTypeDevelopment ContentType = 0x0002
	ContentTypeHashTree    ContentType = 0x0003
	ContentTypeDLC         ContentType = 0x4001
	ContentTypeShared      ContentType = 0x8001
)

func (t ContentType) String() string {
	switch t {
	case ContentTypeNormal:
		return "Normal"
	case ContentTypeDevelopment:
		return "Development/Unknown"
	case ContentTypeHashTree:
		return "Hash Tree"
	case ContentTypeDLC:
		return "DLC"
	case ContentTypeShared:
		return "Shared"
	default:
		return "Unknown"
	}
}

// AccessFlag identifies a bit in a TMD's access_rights field.
type AccessFlag uint

const (
	AccessFlagAHB      AccessFlag = 0
	AccessFlagDVDVideo AccessFlag = 1
)

// ContentRecord describes one content entry: its unique content ID, its
// content index (which selects its decryption IV), its type, its decrypted size, and the
// SHA-1 hash the decrypted content must match.
type ContentRecord struct {
	ContentID   uint32
	Index       uint16
	ContentType ContentType
	Size        uint64
	Hash        [20]byte
}

const contentRecordSize = 36

func loadContentRecord(buf []byte) (ContentRecord, error) {
	if len(buf) < contentRecordSize {
		return ContentRecord{}, &wiierror.MalformedInput{Where: "tmd.loadContentRecord", Offset: 0}
	}
	var r ContentRecord
	r.ContentID = binary.BigEndian.Uint32(buf[0:4])
	r.Index = binary.BigEndian.Uint16(buf[4:6])
	r.ContentType = ContentType(binary.BigEndian.Uint16(buf[6:8]))
	r.Size = binary.BigEndian.Uint64(buf[8:16])
	copy(r.Hash[:], buf[16:36])
	return r, nil
}

func (r ContentRecord) dump() []byte {
	out := make([]byte, contentRecordSize)
	binary.BigEndian.PutUint32(out[0:4], r.ContentID)
	binary.BigEndian.PutUint16(out[4:6], r.Index)
	binary.BigEndian.PutUint16(out[6:8], uint16(r.ContentType))
	binary.BigEndian.PutUint64(out[8:16], r.Size)
	copy(out[16:36], r.Hash[:])
	return out
}

// HashHex returns the content record's hash as a lowercase hex string.
func (r ContentRecord) HashHex() string {
	return hex.EncodeToString(r.Hash[:])
}

// TMD is a parsed Title Metadata blob.
type TMD struct {
	Sig             sig.Header
	SignatureIssuer string
	TMDVersion      uint8
	CACRLVersion    uint8
	SignerCRLVersion uint8
	VWii            uint8
	IOSTitleID      uint64
	TitleID         uint64
	TitleType       uint32
	GroupID         uint16
	Region          uint16
	Ratings         [16]byte
	Reserved1       [12]byte
	IPCMask         [12]byte
	Reserved2       [18]byte
	AccessRights    uint32
	TitleVersion    uint16
	BootIndex       uint16
	MinorVersion    uint16
	ContentRecords  []ContentRecord
}

const (
	issuerOffset = 0x140
	issuerLen    = 64
	bodyOffset   = issuerOffset // == sig.TypeRsa2048.BodyOffset()
)

// Load parses a TMD from a byte buffer. The Wii always signs TMDs with
// RSA-2048, but the signature type tag is still read and validated like
// any other signed blob.
func Load(buf []byte) (TMD, error) {
	sigHdr, err := sig.Load(buf)
	if err != nil {
		return TMD{}, err
	}
	off := sigHdr.Type.BodyOffset()
	if off != 0x140 {
		return TMD{}, &wiierror.UnsupportedSignatureType{Tag: uint32(sigHdr.Type)}
	}
	const fixedHeaderLen = 0x1E4 - issuerOffset
	if len(buf) < issuerOffset+fixedHeaderLen {
		return TMD{}, &wiierror.MalformedInput{Where: "tmd.Load: fixed header", Offset: issuerOffset}
	}

	t := TMD{Sig: sigHdr}
	t.SignatureIssuer = trimNul(buf[issuerOffset : issuerOffset+issuerLen])
	p := issuerOffset + issuerLen
	t.TMDVersion = buf[p]
	t.CACRLVersion = buf[p+1]
	t.SignerCRLVersion = buf[p+2]
	t.VWii = buf[p+3]
	t.IOSTitleID = binary.BigEndian.Uint64(buf[p+4 : p+12])
	t.TitleID = binary.BigEndian.Uint64(buf[p+12 : p+20])
	t.TitleType = binary.BigEndian.Uint32(buf[p+20 : p+24])
	t.GroupID = binary.BigEndian.Uint16(buf[p+24 : p+26])
	// p+26:p+28 is 2 reserved zero bytes
	t.Region = binary.BigEndian.Uint16(buf[p+28 : p+30])
	copy(t.Ratings[:], buf[p+30:p+46])
	copy(t.Reserved1[:], buf[p+46:p+58])
	copy(t.IPCMask[:], buf[p+58:p+70])
	copy(t.Reserved2[:], buf[p+70:p+88])
	t.AccessRights = binary.BigEndian.Uint32(buf[p+88 : p+92])
	t.TitleVersion = binary.BigEndian.Uint16(buf[p+92 : p+94])
	numContents := binary.BigEndian.Uint16(buf[p+94 : p+96])
	t.BootIndex = binary.BigEndian.Uint16(buf[p+96 : p+98])
	t.MinorVersion = binary.BigEndian.Uint16(buf[p+98 : p+100])

	recStart := p + 100
	t.ContentRecords = make([]ContentRecord, 0, numContents)
	for i := 0; i < int(numContents); i++ {
		start := recStart + i*contentRecordSize
		end := start + contentRecordSize
		if len(buf) < end {
			return TMD{}, &wiierror.MalformedInput{Where: "tmd.Load: content record", Offset: start}
		}
		rec, err := loadContentRecord(buf[start:end])
		if err != nil {
			return TMD{}, err
		}
		t.ContentRecords = append(t.ContentRecords, rec)
	}
	return t, nil
}

// Dump serializes the TMD back to bytes.
func (t TMD) Dump() []byte {
	out := make([]byte, 0, 0x1E4+len(t.ContentRecords)*contentRecordSize)
	out = append(out, t.Sig.Dump()...)
	out = append(out, padString(t.SignatureIssuer, issuerLen)...)
	out = append(out, t.TMDVersion, t.CACRLVersion, t.SignerCRLVersion, t.VWii)
	var buf8 [8]byte
	binary.BigEndian.PutUint64(buf8[:], t.IOSTitleID)
	out = append(out, buf8[:]...)
	binary.BigEndian.PutUint64(buf8[:], t.TitleID)
	out = append(out, buf8[:]...)
	var buf4 [4]byte
	binary.BigEndian.PutUint32(buf4[:], t.TitleType)
	out = append(out, buf4[:]...)
	var buf2 [2]byte
	binary.BigEndian.PutUint16(buf2[:], t.GroupID)
	out = append(out, buf2[:]...)
	out = append(out, 0x00, 0x00)
	binary.BigEndian.PutUint16(buf2[:], t.Region)
	out = append(out, buf2[:]...)
	out = append(out, t.Ratings[:]...)
	out = append(out, t.Reserved1[:]...)
	out = append(out, t.IPCMask[:]...)
	out = append(out, t.Reserved2[:]...)
	binary.BigEndian.PutUint32(buf4[:], t.AccessRights)
	out = append(out, buf4[:]...)
	binary.BigEndian.PutUint16(buf2[:], t.TitleVersion)
	out = append(out, buf2[:]...)
	binary.BigEndian.PutUint16(buf2[:], uint16(len(t.ContentRecords)))
	out = append(out, buf2[:]...)
	binary.BigEndian.PutUint16(buf2[:], t.BootIndex)
	out = append(out, buf2[:]...)
	binary.BigEndian.PutUint16(buf2[:], t.MinorVersion)
	out = append(out, buf2[:]...)
	for _, r := range t.ContentRecords {
		out = append(out, r.dump()...)
	}
	return out
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func padString(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

// Fakesign zeroes the signature and brute-forces MinorVersion until the
// SHA-1 of the signed body starts with a zero byte, exploiting the
// "trucha bug" IOS signature check.
func (t *TMD) Fakesign() error {
	t.Sig.Signature = make([]byte, t.Sig.Type.Len())
	scratch, err := crypto.FakesignScratch(func(s uint16) []byte {
		t.MinorVersion = s
		return t.Dump()[bodyOffset:]
	})
	if err != nil {
		return err
	}
	t.MinorVersion = scratch
	return nil
}

// IsFakesigned reports whether the TMD currently carries a zeroed
// signature whose body hash starts with a zero byte.
func (t TMD) IsFakesigned() bool {
	for _, b := range t.Sig.Signature {
		if b != 0 {
			return false
		}
	}
	sum := crypto.SHA1(t.Dump()[bodyOffset:])
	return sum[0] == 0x00
}

// TitleRegionString returns the human-readable hardware region encoded in
// the Region field.
func (t TMD) TitleRegionString() string {
	switch t.Region {
	case 0:
		return "JPN"
	case 1:
		return "USA"
	case 2:
		return "EUR"
	case 3:
		return "None"
	case 4:
		return "KOR"
	default:
		return "Unknown"
	}
}

// TitleTypeString classifies the TMD's TitleID into a human-readable
// category, based on its high 32 bits.
func (t TMD) TitleTypeString() string {
	switch t.TitleID >> 32 {
	case 0x00000001:
		return "System"
	case 0x00010000:
		return "Game"
	case 0x00010001:
		return "Channel"
	case 0x00010002:
		return "SystemChannel"
	case 0x00010004:
		return "GameChannel"
	case 0x00010005:
		return "DLC"
	case 0x00010008:
		return "HiddenChannel"
	default:
		return "Unknown"
	}
}

// ContentRecordByIndex finds the content record with the given index.
func (t TMD) ContentRecordByIndex(index uint16) (ContentRecord, error) {
	for _, r := range t.ContentRecords {
		if r.Index == index {
			return r, nil
		}
	}
	return ContentRecord{}, &wiierror.UnknownContent{IsIndex: true, Value: int(index)}
}

// ContentRecordByCid finds the content record with the given content ID.
func (t TMD) ContentRecordByCid(cid uint32) (ContentRecord, error) {
	for _, r := range t.ContentRecords {
		if r.ContentID == cid {
			return r, nil
		}
	}
	return ContentRecord{}, &wiierror.UnknownContent{IsIndex: false, Value: int(cid)}
}

// AccessRight reports whether the given access flag bit is set.
func (t TMD) AccessRight(flag AccessFlag) bool {
	return t.AccessRights&(1<<uint(flag)) != 0
}

// SetTitleID overwrites the TMD's Title ID.
func (t *TMD) SetTitleID(titleID uint64) {
	t.TitleID = titleID
}

// SetTitleVersion sets the TMD's raw decimal title version (0-65535).
func (t *TMD) SetTitleVersion(version uint16) {
	t.TitleVersion = version
}

// TitleVersionStandard converts TitleVersion into "major.minor" form,
// matching original_source/title/util.py's title_ver_dec_to_standard for
// all titles except the System Menu, whose version encoding this module
// does not attempt to decode (see DESIGN.md).
func (t TMD) TitleVersionStandard() (string, error) {
	if t.TitleID == 0x0000000100000002 {
		return "", fmt.Errorf("tmd: the System Menu's version cannot currently be converted")
	}
	major := t.TitleVersion / 256
	minor := t.TitleVersion % 256
	return fmt.Sprintf("%d.%d", major, minor), nil
}
