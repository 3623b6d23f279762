// Package nand parses and edits small fixed-format files the Wii keeps
// in /sys/ and /title/00000001/00000002/data/ on its NAND: the title UID
// table (uid.sys) and the encrypted console settings (setting.txt).
//
// Grounded on original_source/nand/sys.py and original_source/nand/setting.py.
package nand

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/ralim/libwii/wiierror"
)

const uidEntrySize = 12

// firstUID is the UID the Wii assigns to the System Menu (title
// 0000000100000002), and the starting point for every UID generated
// after it.
const firstUID = 4096

// UIDEntry associates a launched title with the UID the system assigned
// it.
type UIDEntry struct {
	TitleID string // 16 hex digits, e.g. "0000000100000002"
	UID     uint32
}

// UIDSys is a parsed uid.sys file: the Wii's record of every title ID
// that has ever been launched on the console, and the UID it was given.
type UIDSys struct {
	Entries []UIDEntry
}

// LoadUIDSys parses a raw uid.sys file. Each entry is a 12-byte record:
// an 8-byte title ID, 2 reserved bytes, and a 2-byte big-endian UID.
func LoadUIDSys(data []byte) (UIDSys, error) {
	if len(data)%uidEntrySize != 0 {
		return UIDSys{}, &wiierror.MalformedInput{Where: "nand.LoadUIDSys", Offset: len(data)}
	}
	count := len(data) / uidEntrySize
	entries := make([]UIDEntry, count)
	for i := 0; i < count; i++ {
		off := i * uidEntrySize
		entries[i] = UIDEntry{
			TitleID: hex.EncodeToString(data[off : off+8]),
			UID:     uint32(binary.BigEndian.Uint16(data[off+10 : off+12])),
		}
	}
	return UIDSys{Entries: entries}, nil
}

// Dump serializes the UIDSys back into the raw uid.sys layout.
func (u UIDSys) Dump() ([]byte, error) {
	out := make([]byte, 0, len(u.Entries)*uidEntrySize)
	for _, e := range u.Entries {
		tid, err := hex.DecodeString(e.TitleID)
		if err != nil || len(tid) != 8 {
			return nil, &wiierror.MalformedInput{Where: "UIDSys.Dump: title ID", Offset: 0}
		}
		out = append(out, tid...)
		out = append(out, 0x00, 0x00)
		var uidBytes [2]byte
		binary.BigEndian.PutUint16(uidBytes[:], uint16(e.UID))
		out = append(out, uidBytes[:]...)
	}
	return out, nil
}

// Add assigns a UID to titleID (16 hex digits), or returns the UID it
// already has if one was assigned previously. New UIDs are the current
// highest UID plus one, starting at 4096 for the very first entry.
func (u *UIDSys) Add(titleID string) (uint32, error) {
	if len(titleID) != 16 {
		return 0, wiierror.ErrInvalidTitleID
	}
	if _, err := hex.DecodeString(titleID); err != nil {
		return 0, wiierror.ErrInvalidTitleID
	}
	for _, e := range u.Entries {
		if e.TitleID == titleID {
			return e.UID, nil
		}
	}
	newUID := uint32(firstUID)
	if n := len(u.Entries); n != 0 {
		newUID = u.Entries[n-1].UID + 1
	}
	u.Entries = append(u.Entries, UIDEntry{TitleID: titleID, UID: newUID})
	return newUID, nil
}

// Create initializes a fresh uid.sys with the standard first entry: the
// System Menu (0000000100000002) at UID 4096. It fails if the UIDSys
// already has entries.
func (u *UIDSys) Create() error {
	if len(u.Entries) != 0 {
		return &wiierror.MalformedInput{Where: "UIDSys.Create: uid.sys already exists", Offset: 0}
	}
	_, err := u.Add("0000000100000002")
	return err
}
