// Package wad implements the Wii WAD container: a fixed 64-byte header
// of region sizes, followed by the cert chain, CRL, ticket, TMD, content,
// and meta regions, each padded to a 64-byte boundary.
//
// Header layout grounded on original_source/title/wad.py. Region order
// follows spec.md's documented layout (content before meta); see
// DESIGN.md decision 1 for why this diverges from the original source,
// which places meta before content.
package wad

import (
	"encoding/binary"

	"github.com/ralim/libwii/wiierror"
)

// Type distinguishes a bootable boot2 WAD from any other installable WAD.
type Type string

const (
	TypeInstallable Type = "Is"
	TypeBoot2       Type = "ib"
)

const headerSize = 64

// WAD holds the six regions of a parsed WAD container.
type WAD struct {
	Type    Type
	Version uint16

	Cert    []byte
	CRL     []byte
	Ticket  []byte
	TMD     []byte
	Content []byte
	Meta    []byte
}

func align(v int) int {
	if rem := v % 64; rem != 0 {
		return v + (64 - rem)
	}
	return v
}

// Load parses a raw WAD file.
func Load(data []byte) (WAD, error) {
	if len(data) < 0x20 {
		return WAD{}, wiierror.ErrWadTruncated
	}
	magic := binary.BigEndian.Uint64(data[0:8])
	const (
		magicIs uint64 = 0x0000002049730000
		magicIb uint64 = 0x0000002069620000
	)
	if magic != magicIs && magic != magicIb {
		return WAD{}, wiierror.ErrWadBadMagic
	}

	var w WAD
	w.Type = Type(data[4:6])
	w.Version = binary.BigEndian.Uint16(data[6:8])
	certSize := binary.BigEndian.Uint32(data[0x08:0x0C])
	crlSize := binary.BigEndian.Uint32(data[0x0C:0x10])
	tikSize := binary.BigEndian.Uint32(data[0x10:0x14])
	tmdSize := binary.BigEndian.Uint32(data[0x14:0x18])
	contentSize := binary.BigEndian.Uint32(data[0x18:0x1C])
	metaSize := binary.BigEndian.Uint32(data[0x1C:0x20])

	certOff := headerSize
	crlOff := align(certOff + int(certSize))
	tikOff := align(crlOff + int(crlSize))
	tmdOff := align(tikOff + int(tikSize))
	contentOff := align(tmdOff + int(tmdSize))
	metaOff := align(contentOff + int(contentSize))

	regions := []struct {
		off, size int
		dst       *[]byte
	}{
		{certOff, int(certSize), &w.Cert},
		{crlOff, int(crlSize), &w.CRL},
		{tikOff, int(tikSize), &w.Ticket},
		{tmdOff, int(tmdSize), &w.TMD},
		{contentOff, int(contentSize), &w.Content},
		{metaOff, int(metaSize), &w.Meta},
	}
	for _, r := range regions {
		if r.size == 0 {
			continue
		}
		if len(data) < r.off+r.size {
			return WAD{}, wiierror.ErrWadTruncated
		}
		buf := make([]byte, r.size)
		copy(buf, data[r.off:r.off+r.size])
		*r.dst = buf
	}
	return w, nil
}

func padTo64(b []byte) []byte {
	if rem := len(b) % 64; rem != 0 {
		return append(b, make([]byte, 64-rem)...)
	}
	return b
}

// Dump serializes the WAD container: header, then cert, crl, ticket,
// tmd, content, meta, each padded to a 64-byte boundary.
func (w WAD) Dump() []byte {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[0:4], 0x00000020)
	copy(header[4:6], []byte(w.Type))
	binary.BigEndian.PutUint16(header[6:8], w.Version)
	binary.BigEndian.PutUint32(header[0x08:0x0C], uint32(len(w.Cert)))
	binary.BigEndian.PutUint32(header[0x0C:0x10], uint32(len(w.CRL)))
	binary.BigEndian.PutUint32(header[0x10:0x14], uint32(len(w.Ticket)))
	binary.BigEndian.PutUint32(header[0x14:0x18], uint32(len(w.TMD)))
	binary.BigEndian.PutUint32(header[0x18:0x1C], uint32(len(w.Content)))
	binary.BigEndian.PutUint32(header[0x1C:0x20], uint32(len(w.Meta)))

	out := padTo64(header)
	out = append(out, padTo64(append([]byte{}, w.Cert...))...)
	out = append(out, padTo64(append([]byte{}, w.CRL...))...)
	out = append(out, padTo64(append([]byte{}, w.Ticket...))...)
	out = append(out, padTo64(append([]byte{}, w.TMD...))...)
	out = append(out, padTo64(append([]byte{}, w.Content...))...)
	out = append(out, padTo64(append([]byte{}, w.Meta...))...)
	return out
}
