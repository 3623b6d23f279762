// Package content implements a WAD's ContentRegion: the concatenated,
// per-content AES-encrypted blob that a title's TMD content records
// describe, plus the shared-content map used for NAND-wide dedup.
//
// Layout grounded on original_source/title/content.py.
package content

import (
	"fmt"

	"github.com/ralim/libwii/crypto"
	"github.com/ralim/libwii/tmd"
	"github.com/ralim/libwii/wiierror"
)

// Region is the decoded content region: the raw (still encrypted)
// content bytes for each record, alongside the content records that
// describe them.
type Region struct {
	Records []tmd.ContentRecord
	raw     [][]byte // encrypted, AES-block-padded content bytes, one per record
}

func align(v, to int) int {
	if rem := v % to; rem != 0 {
		return v + (to - rem)
	}
	return v
}

// Load splits a WAD's raw content region into per-content encrypted
// byte slices using the offsets implied by records' sizes: content is
// AES-block aligned, but a new content does not start until the next
// 64-byte boundary.
func Load(regionData []byte, records []tmd.ContentRecord) (Region, error) {
	r := Region{Records: records}
	offsets := make([]int, len(records))
	for i := 1; i < len(records); i++ {
		start := offsets[i-1] + int(records[i-1].Size)
		start = align(start, 64)
		offsets[i] = start
	}
	r.raw = make([][]byte, len(records))
	for i, rec := range records {
		size := align(int(rec.Size), 16)
		start := offsets[i]
		end := start + size
		if end > len(regionData) {
			return Region{}, &wiierror.MalformedInput{Where: "content.Load", Offset: start}
		}
		buf := make([]byte, size)
		copy(buf, regionData[start:end])
		r.raw[i] = buf
	}
	return r, nil
}

// Dump reassembles the content region, padding between (but not after)
// each content to a 64-byte boundary, and returns the raw bytes plus the
// logical content region size (the sum used in the WAD header, which
// rounds every content but the last up to 64 bytes).
func (r Region) Dump() ([]byte, int) {
	var out []byte
	for _, enc := range r.raw {
		if len(out) != 0 {
			if rem := len(out) % 64; rem != 0 {
				out = append(out, make([]byte, 64-rem)...)
			}
		}
		out = append(out, enc...)
		if rem := len(enc) % 16; rem != 0 {
			out = append(out, make([]byte, 16-rem)...)
		}
	}
	size := 0
	for i, rec := range r.Records {
		if i == len(r.Records)-1 {
			size += int(rec.Size)
		} else {
			size += align(int(rec.Size), 64)
		}
	}
	return out, size
}

func (r Region) indexOfCid(cid uint32) (int, error) {
	for i, rec := range r.Records {
		if rec.ContentID == cid {
			return i, nil
		}
	}
	return 0, &wiierror.UnknownContent{IsIndex: false, Value: int(cid)}
}

// EncContentByIndex returns content at the literal list position i in
// its still-encrypted form.
func (r Region) EncContentByIndex(i int) ([]byte, error) {
	if i < 0 || i >= len(r.raw) {
		return nil, &wiierror.UnknownContent{IsIndex: true, Value: i}
	}
	return r.raw[i], nil
}

// EncContentByCid returns the still-encrypted content with the given
// content ID.
func (r Region) EncContentByCid(cid uint32) ([]byte, error) {
	i, err := r.indexOfCid(cid)
	if err != nil {
		return nil, err
	}
	return r.EncContentByIndex(i)
}

// ContentByIndex decrypts the content at literal list position i using
// titleKey, verifying its SHA-1 against the content record unless
// skipHash is set.
func (r Region) ContentByIndex(i int, titleKey [16]byte, skipHash bool) ([]byte, error) {
	if i < 0 || i >= len(r.raw) {
		return nil, &wiierror.UnknownContent{IsIndex: true, Value: i}
	}
	rec := r.Records[i]
	plain, err := crypto.DecryptContent(r.raw[i], titleKey, rec.Index, rec.Size)
	if err != nil {
		return nil, err
	}
	sum := crypto.SHA1(plain)
	if sum != rec.Hash {
		if !skipHash {
			return nil, &wiierror.HashMismatch{Index: rec.Index, Expected: rec.HashHex(), Actual: fmt.Sprintf("%x", sum)}
		}
	}
	return plain, nil
}

// ContentByCid decrypts the content with the given content ID.
func (r Region) ContentByCid(cid uint32, titleKey [16]byte, skipHash bool) ([]byte, error) {
	i, err := r.indexOfCid(cid)
	if err != nil {
		return nil, err
	}
	return r.ContentByIndex(i, titleKey, skipHash)
}

// Contents decrypts every content in list order.
func (r Region) Contents(titleKey [16]byte, skipHash bool) ([][]byte, error) {
	out := make([][]byte, len(r.raw))
	for i := range r.raw {
		plain, err := r.ContentByIndex(i, titleKey, skipHash)
		if err != nil {
			return nil, err
		}
		out[i] = plain
	}
	return out, nil
}

// AddEncContent appends a new encrypted content and its record. It
// rejects a cid or index that collides with an existing record.
func (r *Region) AddEncContent(encContent []byte, cid uint32, index uint16, contentType tmd.ContentType, size uint64, hash [20]byte) error {
	for _, rec := range r.Records {
		if rec.ContentID == cid {
			return fmt.Errorf("content: a content with content ID %d already exists", cid)
		}
		if rec.Index == index {
			return fmt.Errorf("content: a content with index %d already exists", index)
		}
	}
	r.raw = append(r.raw, encContent)
	r.Records = append(r.Records, tmd.ContentRecord{
		ContentID:   cid,
		Index:       index,
		ContentType: contentType,
		Size:        size,
		Hash:        hash,
	})
	return nil
}

// AddContent encrypts decContent under titleKey and appends it, assigning
// the next unused content index automatically.
func (r *Region) AddContent(decContent []byte, cid uint32, contentType tmd.ContentType, titleKey [16]byte) error {
	var maxIndex uint16
	for i, rec := range r.Records {
		if i == 0 || rec.Index > maxIndex {
			maxIndex = rec.Index
		}
	}
	index := maxIndex + 1
	if len(r.Records) == 0 {
		index = 0
	}
	enc, err := crypto.EncryptContent(decContent, titleKey, index)
	if err != nil {
		return err
	}
	hash := crypto.SHA1(decContent)
	return r.AddEncContent(enc, cid, index, contentType, uint64(len(decContent)), hash)
}

func (r *Region) growToRecordCount() {
	for len(r.raw) < len(r.Records) {
		r.raw = append(r.raw, nil)
	}
}

// SetEncContent replaces the content at literal list position i,
// updating its record's size and hash. cid and contentType, when
// non-nil, replace the record's current values.
func (r *Region) SetEncContent(i int, encContent []byte, size uint64, hash [20]byte, cid *uint32, contentType *tmd.ContentType) error {
	if i < 0 || i >= len(r.Records) {
		return &wiierror.UnknownContent{IsIndex: true, Value: i}
	}
	r.Records[i].Size = size
	r.Records[i].Hash = hash
	if cid != nil {
		r.Records[i].ContentID = *cid
	}
	if contentType != nil {
		r.Records[i].ContentType = *contentType
	}
	r.growToRecordCount()
	r.raw[i] = encContent
	return nil
}

// SetContent encrypts decContent under titleKey (using the record's own
// stored index, not i, matching original_source's defensive behavior)
// and replaces the content at literal list position i.
func (r *Region) SetContent(i int, decContent []byte, titleKey [16]byte, cid *uint32, contentType *tmd.ContentType) error {
	if i < 0 || i >= len(r.Records) {
		return &wiierror.UnknownContent{IsIndex: true, Value: i}
	}
	enc, err := crypto.EncryptContent(decContent, titleKey, r.Records[i].Index)
	if err != nil {
		return err
	}
	hash := crypto.SHA1(decContent)
	return r.SetEncContent(i, enc, uint64(len(decContent)), hash, cid, contentType)
}

// LoadEncContent stores encContent at literal list position i without
// altering its record, assuming the caller has already verified it
// matches.
func (r *Region) LoadEncContent(i int, encContent []byte) error {
	if i < 0 || i >= len(r.Records) {
		return &wiierror.UnknownContent{IsIndex: true, Value: i}
	}
	r.growToRecordCount()
	r.raw[i] = encContent
	return nil
}

// LoadContent verifies decContent's hash against the record at literal
// list position i, then encrypts and stores it there.
func (r *Region) LoadContent(i int, decContent []byte, titleKey [16]byte) error {
	if i < 0 || i >= len(r.Records) {
		return &wiierror.UnknownContent{IsIndex: true, Value: i}
	}
	sum := crypto.SHA1(decContent)
	if sum != r.Records[i].Hash {
		return &wiierror.HashMismatch{Index: r.Records[i].Index, Expected: r.Records[i].HashHex(), Actual: fmt.Sprintf("%x", sum)}
	}
	enc, err := crypto.EncryptContent(decContent, titleKey, r.Records[i].Index)
	if err != nil {
		return err
	}
	return r.LoadEncContent(i, enc)
}

// RemoveContentByIndex removes the content at literal list position i
// from both the raw content list and the records.
func (r *Region) RemoveContentByIndex(i int) error {
	if i < 0 || i >= len(r.Records) {
		return &wiierror.UnknownContent{IsIndex: true, Value: i}
	}
	r.Records = append(r.Records[:i], r.Records[i+1:]...)
	if i < len(r.raw) {
		r.raw = append(r.raw[:i], r.raw[i+1:]...)
	}
	return nil
}

// RemoveContentByCid removes the content with the given content ID.
func (r *Region) RemoveContentByCid(cid uint32) error {
	i, err := r.indexOfCid(cid)
	if err != nil {
		return err
	}
	return r.RemoveContentByIndex(i)
}
