package content

import (
	"encoding/hex"
	"fmt"

	"github.com/ralim/libwii/wiierror"
)

// SharedRecord pairs a shared content's filename (an incrementing 8-digit
// hex string, as stored under /shared1/ on the Wii's NAND) with its
// SHA-1 hash.
type SharedRecord struct {
	SharedID string
	Hash     [20]byte
}

const sharedRecordSize = 28 // 8 ASCII bytes + 20 hash bytes

// SharedMap is the parsed form of /shared1/content.map, the Wii NAND's
// table of deduplicated shared contents.
type SharedMap struct {
	Records []SharedRecord
}

// LoadSharedMap parses a content.map file.
func LoadSharedMap(data []byte) (SharedMap, error) {
	if len(data)%sharedRecordSize != 0 {
		return SharedMap{}, &wiierror.MalformedInput{Where: "content.LoadSharedMap", Offset: len(data)}
	}
	var m SharedMap
	for off := 0; off < len(data); off += sharedRecordSize {
		var rec SharedRecord
		rec.SharedID = string(data[off : off+8])
		copy(rec.Hash[:], data[off+8:off+28])
		m.Records = append(m.Records, rec)
	}
	return m, nil
}

// Dump serializes the shared content map back to bytes.
func (m SharedMap) Dump() []byte {
	out := make([]byte, 0, len(m.Records)*sharedRecordSize)
	for _, rec := range m.Records {
		out = append(out, []byte(rec.SharedID)...)
		out = append(out, rec.Hash[:]...)
	}
	return out
}

// AddContent appends a new shared content entry for hash, assigning it
// the next sequential hex filename (continuing from the map's current
// highest entry, or starting at "00000000" if the map is empty), and
// returns that filename.
func (m *SharedMap) AddContent(hash [20]byte) string {
	var nextIndex uint64
	if len(m.Records) > 0 {
		last := m.Records[len(m.Records)-1].SharedID
		if v, err := parseHexUint32(last); err == nil {
			nextIndex = uint64(v) + 1
		}
	}
	id := fmt.Sprintf("%08x", nextIndex)
	m.Records = append(m.Records, SharedRecord{SharedID: id, Hash: hash})
	return id
}

func parseHexUint32(s string) (uint32, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 4 {
		return 0, fmt.Errorf("content: malformed shared content id %q", s)
	}
	return uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3]), nil
}

// HasHash reports whether a shared content with the given hash is
// already present in the map.
func (m SharedMap) HasHash(hash [20]byte) bool {
	for _, rec := range m.Records {
		if rec.Hash == hash {
			return true
		}
	}
	return false
}
