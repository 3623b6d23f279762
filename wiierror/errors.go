// Package wiierror holds the typed error kinds shared by every package in
// this module. Every fallible operation in libwii returns one of these
// (or a wrapped form of one) rather than panicking, so that callers can
// use errors.As to branch on the failure kind.
package wiierror

import "fmt"

// MalformedInput means a parser could not make sense of the bytes it was
// given at the given location.
type MalformedInput struct {
	Where  string
	Offset int
}

func (e *MalformedInput) Error() string {
	return fmt.Sprintf("malformed input in %s at offset 0x%x", e.Where, e.Offset)
}

// UnsupportedSignatureType means the 4-byte signature type tag at the
// start of a signed blob did not match any known variant.
type UnsupportedSignatureType struct {
	Tag uint32
}

func (e *UnsupportedSignatureType) Error() string {
	return fmt.Sprintf("unsupported signature type tag 0x%08x", e.Tag)
}

// HashMismatch means a content's decrypted SHA-1 did not match the hash
// recorded for it.
type HashMismatch struct {
	Index    uint16
	Expected string
	Actual   string
}

func (e *HashMismatch) Error() string {
	return fmt.Sprintf("hash mismatch for content index %d: expected %s, got %s", e.Index, e.Expected, e.Actual)
}

// ErrInvalidTitleKey is returned when a Title Key buffer cannot
// structurally be decrypted (e.g. its length is not a multiple of 16).
// A semantically wrong key cannot be detected at this layer; only the
// downstream content hash check can catch that.
var ErrInvalidTitleKey = fmt.Errorf("invalid title key: length is not a multiple of the AES block size")

// InvalidCommonKeyIndex means a ticket referenced a common key index this
// module does not recognize.
type InvalidCommonKeyIndex struct {
	Index uint8
}

func (e *InvalidCommonKeyIndex) Error() string {
	return fmt.Sprintf("invalid common key index %d", e.Index)
}

// ErrFakesignFailed is returned when the fakesigning brute-force search
// exhausted its 16-bit scratch space without finding a hash with a
// leading zero byte.
var ErrFakesignFailed = fmt.Errorf("fakesigning failed: exhausted 16-bit scratch search space")

// UnknownContent means a lookup by index or content ID found nothing.
type UnknownContent struct {
	IsIndex bool
	Value   int
}

func (e *UnknownContent) Error() string {
	if e.IsIndex {
		return fmt.Sprintf("no content with index %d", e.Value)
	}
	return fmt.Sprintf("no content with content ID %d", e.Value)
}

// ErrWadBadMagic means the WAD header's magic/type field did not match
// either recognized WAD type.
var ErrWadBadMagic = fmt.Errorf("not a valid WAD file: bad magic")

// ErrWadTruncated means the WAD header's declared region sizes run past
// the end of the buffer it was parsed from.
var ErrWadTruncated = fmt.Errorf("WAD data is truncated relative to its header")

// DownloadFailed means the NUS collaborator received a non-2xx response.
type DownloadFailed struct {
	URL    string
	Status int
}

func (e *DownloadFailed) Error() string {
	return fmt.Sprintf("download of %s failed with status %d", e.URL, e.Status)
}

// ErrTitleIDMismatch means a Title facade found a TMD and Ticket that
// disagree about the Title ID they describe.
var ErrTitleIDMismatch = fmt.Errorf("TMD and Ticket title IDs do not match")

// ErrInvalidTitleID means a supplied Title ID string was not a 16-character
// hex string.
var ErrInvalidTitleID = fmt.Errorf("invalid title ID: must be a 16 character hex string")
