// Package ticket implements the Wii Ticket format: the wrapped Title Key,
// signing issuer, and common-key index a WAD's ticket region carries, plus
// fakesigning and Title Key wrap/unwrap.
//
// Byte layout grounded on original_source/title/ticket.py.
package ticket

import (
	"encoding/binary"

	"github.com/ralim/libwii/crypto"
	"github.com/ralim/libwii/sig"
	"github.com/ralim/libwii/wiierror"
)

// TitleLimit is a single play-limit entry: 0=None, 1=Time Limit, 3=None,
// 4=Launch Count, paired with the limit's maximum usage value.
type TitleLimit struct {
	LimitType    uint32
	MaximumUsage uint32
}

// Ticket is a parsed v0 Ticket. v1 tickets (personalized, console-bound)
// are out of scope, matching original_source's own v0-only support.
type Ticket struct {
	Sig                      sig.Header
	SignatureIssuer          string
	ECDHData                 [60]byte
	TicketVersion            uint8
	TitleKeyEnc              [16]byte
	TicketID                 [8]byte
	ConsoleID                uint32
	TitleID                  uint64
	Unknown1                 [2]byte
	TitleVersion             uint16
	PermittedTitles          uint32
	PermitMask               uint32
	TitleExportAllowed       uint8
	CommonKeyIndex           uint8
	Unknown2                 [48]byte
	ContentAccessPermissions [64]byte
	TitleLimits              []TitleLimit
}

const (
	issuerOffset = 0x140
	issuerLen    = 64
	bodyOffset   = issuerOffset
)

// Load parses a v0 Ticket from buf. Tickets are always signed RSA-2048.
func Load(buf []byte) (Ticket, error) {
	sigHdr, err := sig.Load(buf)
	if err != nil {
		return Ticket{}, err
	}
	if sigHdr.Type.BodyOffset() != issuerOffset {
		return Ticket{}, &wiierror.UnsupportedSignatureType{Tag: uint32(sigHdr.Type)}
	}
	const tail = 0x264 + 8*8 - issuerOffset
	if len(buf) < issuerOffset+tail {
		return Ticket{}, &wiierror.MalformedInput{Where: "ticket.Load", Offset: issuerOffset}
	}

	tk := Ticket{Sig: sigHdr}
	tk.SignatureIssuer = trimNul(buf[0x140:0x180])
	copy(tk.ECDHData[:], buf[0x180:0x1BC])
	if v1 := buf[0x1BC]; v1 == 1 {
		return Ticket{}, &wiierror.MalformedInput{Where: "ticket.Load: v1 tickets are unsupported", Offset: 0x1BC}
	}
	tk.TicketVersion = buf[0x1BC]
	copy(tk.TitleKeyEnc[:], buf[0x1BF:0x1CF])
	copy(tk.TicketID[:], buf[0x1D0:0x1D8])
	tk.ConsoleID = binary.BigEndian.Uint32(buf[0x1D8:0x1DC])
	tk.TitleID = binary.BigEndian.Uint64(buf[0x1DC:0x1E4])
	copy(tk.Unknown1[:], buf[0x1E4:0x1E6])
	tk.TitleVersion = uint16(buf[0x1E6])*256 + uint16(buf[0x1E7])
	tk.PermittedTitles = binary.BigEndian.Uint32(buf[0x1E8:0x1EC])
	tk.PermitMask = binary.BigEndian.Uint32(buf[0x1EC:0x1F0])
	tk.TitleExportAllowed = buf[0x1F0]
	tk.CommonKeyIndex = buf[0x1F1]
	copy(tk.Unknown2[:], buf[0x1F2:0x222])
	copy(tk.ContentAccessPermissions[:], buf[0x222:0x262])
	tk.TitleLimits = make([]TitleLimit, 0, 8)
	for i := 0; i < 8; i++ {
		start := 0x264 + i*8
		tk.TitleLimits = append(tk.TitleLimits, TitleLimit{
			LimitType:    binary.BigEndian.Uint32(buf[start : start+4]),
			MaximumUsage: binary.BigEndian.Uint32(buf[start+4 : start+8]),
		})
	}
	return tk, nil
}

// Dump serializes the Ticket back to bytes.
func (t Ticket) Dump() []byte {
	out := make([]byte, 0, 0x2A4)
	out = append(out, t.Sig.Dump()...)
	out = append(out, padString(t.SignatureIssuer, issuerLen)...)
	out = append(out, t.ECDHData[:]...)
	out = append(out, t.TicketVersion, 0x00, 0x00)
	out = append(out, t.TitleKeyEnc[:]...)
	out = append(out, 0x00)
	out = append(out, t.TicketID[:]...)
	var buf4 [4]byte
	binary.BigEndian.PutUint32(buf4[:], t.ConsoleID)
	out = append(out, buf4[:]...)
	var buf8 [8]byte
	binary.BigEndian.PutUint64(buf8[:], t.TitleID)
	out = append(out, buf8[:]...)
	out = append(out, t.Unknown1[:]...)
	out = append(out, byte(t.TitleVersion/256), byte(t.TitleVersion%256))
	binary.BigEndian.PutUint32(buf4[:], t.PermittedTitles)
	out = append(out, buf4[:]...)
	binary.BigEndian.PutUint32(buf4[:], t.PermitMask)
	out = append(out, buf4[:]...)
	out = append(out, t.TitleExportAllowed, t.CommonKeyIndex)
	out = append(out, t.Unknown2[:]...)
	out = append(out, t.ContentAccessPermissions[:]...)
	out = append(out, 0x00, 0x00)
	for _, l := range t.TitleLimits {
		binary.BigEndian.PutUint32(buf4[:], l.LimitType)
		out = append(out, buf4[:]...)
		binary.BigEndian.PutUint32(buf4[:], l.MaximumUsage)
		out = append(out, buf4[:]...)
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

// Fakesign zeroes the signature and brute-forces the first two bytes of
// Unknown2 until the SHA-1 of the signed body starts with a zero byte.
func (t *Ticket) Fakesign() error {
	t.Sig.Signature = make([]byte, t.Sig.Type.Len())
	scratch, err := crypto.FakesignScratch(func(s uint16) []byte {
		t.Unknown2[0] = byte(s >> 8)
		t.Unknown2[1] = byte(s)
		return t.Dump()[bodyOffset:]
	})
	if err != nil {
		return err
	}
	t.Unknown2[0] = byte(scratch >> 8)
	t.Unknown2[1] = byte(scratch)
	return nil
}

// IsFakesigned reports whether the Ticket currently carries a zeroed
// signature whose body hash starts with a zero byte.
func (t Ticket) IsFakesigned() bool {
	for _, b := range t.Sig.Signature {
		if b != 0 {
			return false
		}
	}
	sum := crypto.SHA1(t.Dump()[bodyOffset:])
	return sum[0] == 0x00
}

// CommonKeyTypeString names the common key this ticket's CommonKeyIndex
// selects.
func (t Ticket) CommonKeyTypeString() string {
	switch t.CommonKeyIndex {
	case 0:
		return "Common"
	case 1:
		return "Korean"
	case 2:
		return "vWii"
	default:
		return "Unknown"
	}
}

// TitleKey decrypts and returns this ticket's Title Key, selecting the
// common key by issuer prefix first and CommonKeyIndex otherwise (see
// crypto.SelectCommonKey).
func (t Ticket) TitleKey() ([16]byte, error) {
	key, err := crypto.SelectCommonKey(t.CommonKeyIndex, t.SignatureIssuer)
	if err != nil {
		return [16]byte{}, err
	}
	return crypto.DecryptTitleKeyWithKey(t.TitleKeyEnc, key, t.TitleID)
}

// SetTitleKey re-encrypts key under the common key this ticket's
// CommonKeyIndex/issuer selects and for the ticket's current TitleID, and
// stores the wrapped result.
func (t *Ticket) SetTitleKey(key [16]byte) error {
	ckey, err := crypto.SelectCommonKey(t.CommonKeyIndex, t.SignatureIssuer)
	if err != nil {
		return err
	}
	enc, err := crypto.EncryptTitleKeyWithKey(key, ckey, t.TitleID)
	if err != nil {
		return err
	}
	t.TitleKeyEnc = enc
	return nil
}

// SetCommonKeyIndex decrypts the Title Key under the ticket's current
// common key, stores the new index, and re-wraps the same cleartext key
// under whichever common key the new index selects, per spec.md §4.4's
// set_common_key_index.
func (t *Ticket) SetCommonKeyIndex(index uint8) error {
	key, err := t.TitleKey()
	if err != nil {
		return err
	}
	t.CommonKeyIndex = index
	return t.SetTitleKey(key)
}

// SetTitleID overwrites the ticket's Title ID and re-wraps its Title Key
// under the new Title ID's IV, per spec.md's "setting a title ID always
// keeps the Title Key decryptable" invariant (original_source's
// set_title_id does not do this; see DESIGN.md decision 3).
func (t *Ticket) SetTitleID(titleID uint64) error {
	key, err := t.TitleKey()
	if err != nil {
		return err
	}
	t.TitleID = titleID
	return t.SetTitleKey(key)
}
