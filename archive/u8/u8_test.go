package u8

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildU8 constructs a minimal valid U8 archive with a root dir and one
// file node, matching the node/name-table layout u8.py's load() expects.
func buildU8(t *testing.T, fileName string, fileData []byte) []byte {
	t.Helper()
	const rootOffset = 0x20
	numNodes := 2 // root + one file

	nameTable := []byte{0x00} // root's own name is empty, offset 0
	fileNameOffset := len(nameTable)
	nameTable = append(nameTable, []byte(fileName)...)
	nameTable = append(nameTable, 0x00)

	dataOffset := rootOffset + numNodes*12 + len(nameTable)
	if rem := dataOffset % 32; rem != 0 {
		dataOffset += 32 - rem
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}
	writeU16 := func(v uint16) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], v)
		buf.Write(b[:])
	}
	writeU32(rootOffset)
	writeU32(uint32(rootOffset + numNodes*12 + len(nameTable)))
	writeU32(uint32(dataOffset))
	buf.Write(make([]byte, 16)) // header padding

	// root node
	writeU16(uint16(NodeTypeDir))
	writeU16(0)
	writeU32(0)
	writeU32(uint32(numNodes))

	// file node
	writeU16(uint16(NodeTypeFile))
	writeU16(uint16(fileNameOffset))
	writeU32(uint32(dataOffset))
	writeU32(uint32(len(fileData)))

	buf.Write(nameTable)
	for buf.Len() < dataOffset {
		buf.WriteByte(0)
	}
	buf.Write(fileData)
	return buf.Bytes()
}

func TestLoadParsesSingleFile(t *testing.T) {
	raw := buildU8(t, "icon.bin", []byte("icon data here"))
	a, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(a.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(a.Nodes))
	}
	if a.Nodes[1].Name != "icon.bin" {
		t.Fatalf("got name %q, want %q", a.Nodes[1].Name, "icon.bin")
	}
	if !bytes.Equal(a.FileData[1], []byte("icon data here")) {
		t.Fatalf("got file data %q", a.FileData[1])
	}
}

func TestFileByPath(t *testing.T) {
	raw := buildU8(t, "banner.bin", []byte("banner"))
	a, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, ok := a.File("banner.bin")
	if !ok {
		t.Fatalf("expected to find banner.bin")
	}
	if !bytes.Equal(data, []byte("banner")) {
		t.Fatalf("got %q, want %q", data, "banner")
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	if _, err := Load(make([]byte, 0x20)); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}
