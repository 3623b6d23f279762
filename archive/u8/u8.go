// Package u8 parses U8 archives, the directory-tree container format the
// Wii uses for banners, channel assets, and other bundled file trees.
//
// This is a read-only, parse-only port: original_source's own U8
// archive builder (pack_u8) is an unfinished stub, so this module only
// exposes parsing, matching the original's actual coverage. Grounded on
// original_source/archive/u8.py.
package u8

import (
	"encoding/binary"
	"path"

	"github.com/ralim/libwii/wiierror"
)

// NodeType distinguishes a file entry from a directory entry in a U8
// archive's node table.
type NodeType uint16

const (
	NodeTypeFile NodeType = 0x0000
	NodeTypeDir  NodeType = 0x0100
)

// Node is a single entry in a U8 archive's flat node table: a type, the
// offset (relative to the start of the name table) of its name, and
// either a data offset/size (files) or a parent-scope marker (dirs).
type Node struct {
	Type       NodeType
	NameOffset uint16
	DataOffset uint32
	Size       uint32
	Name       string
}

// Archive is a fully parsed U8 archive: its node table plus, for file
// nodes, their extracted data.
type Archive struct {
	Nodes     []Node
	FileData  [][]byte // parallel to Nodes; empty for directory nodes
}

var magic = [4]byte{0x55, 0xAA, 0x38, 0x2D}

// Load parses a raw U8 archive.
func Load(data []byte) (Archive, error) {
	if len(data) < 0x20 {
		return Archive{}, &wiierror.MalformedInput{Where: "u8.Load: header", Offset: 0}
	}
	if [4]byte(data[0:4]) != magic {
		return Archive{}, &wiierror.MalformedInput{Where: "u8.Load: bad magic", Offset: 0}
	}
	rootNodeOffset := binary.BigEndian.Uint32(data[0x04:0x08])
	_ = binary.BigEndian.Uint32(data[0x08:0x0C]) // header_size, unused beyond offset math
	_ = binary.BigEndian.Uint32(data[0x0C:0x10]) // data_offset, unused: recomputed per node

	if len(data) < int(rootNodeOffset)+12 {
		return Archive{}, &wiierror.MalformedInput{Where: "u8.Load: root node", Offset: int(rootNodeOffset)}
	}
	readNode := func(off int) (Node, error) {
		if len(data) < off+12 {
			return Node{}, &wiierror.MalformedInput{Where: "u8.Load: node", Offset: off}
		}
		return Node{
			Type:       NodeType(binary.BigEndian.Uint16(data[off : off+2])),
			NameOffset: binary.BigEndian.Uint16(data[off+2 : off+4]),
			DataOffset: binary.BigEndian.Uint32(data[off+4 : off+8]),
			Size:       binary.BigEndian.Uint32(data[off+8 : off+12]),
		}, nil
	}

	root, err := readNode(int(rootNodeOffset))
	if err != nil {
		return Archive{}, err
	}
	nodes := []Node{root}
	for i := uint32(1); i < root.Size; i++ {
		n, err := readNode(int(rootNodeOffset) + int(i)*12)
		if err != nil {
			return Archive{}, err
		}
		nodes = append(nodes, n)
	}

	nameBase := int(rootNodeOffset) + len(nodes)*12
	for i := range nodes {
		start := nameBase + int(nodes[i].NameOffset)
		end := start
		for end < len(data) && data[end] != 0 {
			end++
		}
		if end >= len(data) {
			return Archive{}, &wiierror.MalformedInput{Where: "u8.Load: name table", Offset: start}
		}
		nodes[i].Name = string(data[start:end])
	}

	fileData := make([][]byte, len(nodes))
	for i, n := range nodes {
		if n.Type != NodeTypeFile {
			continue
		}
		if len(data) < int(n.DataOffset)+int(n.Size) {
			return Archive{}, &wiierror.MalformedInput{Where: "u8.Load: file data", Offset: int(n.DataOffset)}
		}
		buf := make([]byte, n.Size)
		copy(buf, data[n.DataOffset:int(n.DataOffset)+int(n.Size)])
		fileData[i] = buf
	}

	return Archive{Nodes: nodes, FileData: fileData}, nil
}

// Paths reconstructs each node's archive-relative path, following the
// same single-current-directory walk original_source's extract_u8 helper
// uses: a directory node starts a new current directory, and a file node
// is placed inside whatever directory is current.
func (a Archive) Paths() []string {
	paths := make([]string, len(a.Nodes))
	currentDir := ""
	for i, n := range a.Nodes {
		if i == 0 || n.NameOffset == 0 {
			continue
		}
		switch n.Type {
		case NodeTypeDir:
			if n.DataOffset == 0 {
				currentDir = n.Name
			} else if int(n.DataOffset) < i {
				currentDir = path.Join(currentDir, n.Name)
			}
			paths[i] = currentDir
		case NodeTypeFile:
			paths[i] = path.Join(currentDir, n.Name)
		}
	}
	return paths
}

// File returns the decoded data for the file node at archivePath, if one
// exists.
func (a Archive) File(archivePath string) ([]byte, bool) {
	paths := a.Paths()
	for i, p := range paths {
		if p == archivePath && a.Nodes[i].Type == NodeTypeFile {
			return a.FileData[i], true
		}
	}
	return nil, false
}
