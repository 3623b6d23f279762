// Package title provides the Title facade: the TMD, Ticket, and
// ContentRegion of a single title loaded as one unit from a WAD, kept
// consistent with each other as the title is edited.
//
// Grounded on original_source/title/title.py.
package title

import (
	"github.com/ralim/libwii/cert"
	"github.com/ralim/libwii/content"
	"github.com/ralim/libwii/tmd"
	"github.com/ralim/libwii/ticket"
	"github.com/ralim/libwii/wad"
	"github.com/ralim/libwii/wiierror"
)

const boot2TitleID = 0x0000000100000001

// wiiBlockSize is the size in bytes of a Wii NAND "block", the unit
// GetTitleSizeBlocks reports in.
const wiiBlockSize = 128 * 1024

// Title bundles a WAD's four logical parts. Loading a WAD cross-checks
// that the TMD and Ticket agree on the Title ID.
type Title struct {
	WAD     wad.WAD
	TMD     tmd.TMD
	Ticket  ticket.Ticket
	Content content.Region
}

// LoadWAD parses a raw WAD file and all of its constituent parts,
// rejecting a WAD whose TMD and Ticket disagree about the Title ID.
func LoadWAD(data []byte) (Title, error) {
	w, err := wad.Load(data)
	if err != nil {
		return Title{}, err
	}
	tm, err := tmd.Load(w.TMD)
	if err != nil {
		return Title{}, err
	}
	tk, err := ticket.Load(w.Ticket)
	if err != nil {
		return Title{}, err
	}
	if tm.TitleID != tk.TitleID {
		return Title{}, wiierror.ErrTitleIDMismatch
	}
	region, err := content.Load(w.Content, tm.ContentRecords)
	if err != nil {
		return Title{}, err
	}
	return Title{WAD: w, TMD: tm, Ticket: tk, Content: region}, nil
}

// DumpWAD serializes the title's TMD, Ticket, and ContentRegion back
// into its WAD, setting the boot2 WAD type when the Title ID is boot2's.
func (t *Title) DumpWAD() []byte {
	if t.TMD.TitleID == boot2TitleID {
		t.WAD.Type = wad.TypeBoot2
	}
	t.WAD.TMD = t.TMD.Dump()
	t.WAD.Ticket = t.Ticket.Dump()
	contentData, _ := t.Content.Dump()
	t.WAD.Content = contentData
	return t.WAD.Dump()
}

// LoadContentRecords copies the TMD's content records into the
// ContentRegion, for callers building up a Title one component at a time
// rather than via LoadWAD.
func (t *Title) LoadContentRecords() {
	t.Content.Records = t.TMD.ContentRecords
}

// SetTitleID overwrites the Title ID in both the TMD and the Ticket. The
// Ticket's Title Key is re-wrapped for the new Title ID (see
// ticket.Ticket.SetTitleID and DESIGN.md decision 3).
func (t *Title) SetTitleID(titleID uint64) error {
	t.TMD.SetTitleID(titleID)
	return t.Ticket.SetTitleID(titleID)
}

// titleKey is a small helper so every content accessor doesn't repeat
// the ticket.TitleKey() error check.
func (t Title) titleKey() ([16]byte, error) {
	return t.Ticket.TitleKey()
}

// ContentByIndex decrypts the content at literal list position i.
func (t Title) ContentByIndex(i int) ([]byte, error) {
	key, err := t.titleKey()
	if err != nil {
		return nil, err
	}
	return t.Content.ContentByIndex(i, key, false)
}

// ContentByCid decrypts the content with the given content ID.
func (t Title) ContentByCid(cid uint32) ([]byte, error) {
	key, err := t.titleKey()
	if err != nil {
		return nil, err
	}
	return t.Content.ContentByCid(cid, key, false)
}

// SetContent replaces the plaintext content at literal list position i,
// re-encrypting it under the title's current Title Key and refreshing
// its TMD content record. This resolves a clean two-argument signature
// for a method original_source's title.py (4-arg) and iospatcher.py
// (2-arg call site) disagree on; see DESIGN.md decision 4.
func (t *Title) SetContent(index int, plaintext []byte) error {
	key, err := t.titleKey()
	if err != nil {
		return err
	}
	if err := t.Content.SetContent(index, plaintext, key, nil, nil); err != nil {
		return err
	}
	t.TMD.ContentRecords = t.Content.Records
	return nil
}

// SetTitleVersion sets the TMD's raw decimal title version.
func (t *Title) SetTitleVersion(version uint16) {
	t.TMD.SetTitleVersion(version)
}

// Fakesign fakesigns both the TMD and the Ticket.
func (t *Title) Fakesign() error {
	if err := t.TMD.Fakesign(); err != nil {
		return err
	}
	return t.Ticket.Fakesign()
}

// IsFakesigned reports whether both the TMD and Ticket currently carry a
// fakesigned (zeroed signature, zero-leading hash) signature.
func (t Title) IsFakesigned() bool {
	return t.TMD.IsFakesigned() && t.Ticket.IsFakesigned()
}

// GetIsSigned reports whether this title's certificate chain (carried in
// its WAD's cert region) genuinely signs its TMD and Ticket: the chain's
// CA classifies as a known root, the CP certificate's signature verifies
// over the TMD body, and the XS certificate's signature verifies over
// the Ticket body. A fakesigned title (see Fakesign/IsFakesigned) always
// fails this, since its signature bytes are zeroed.
func (t Title) GetIsSigned() (bool, error) {
	chain, err := cert.LoadChain(t.WAD.Cert)
	if err != nil {
		return false, err
	}
	if cert.VerifyCAIsRoot(chain.CA) == cert.CARootUnknown {
		return false, nil
	}
	tmdBody := t.TMD.Dump()[t.TMD.Sig.Type.BodyOffset():]
	ticketBody := t.Ticket.Dump()[t.Ticket.Sig.Type.BodyOffset():]
	tmdOK := cert.VerifySignature(chain.TMD, t.TMD.Sig, tmdBody)
	ticketOK := cert.VerifySignature(chain.Ticket, t.Ticket.Sig, ticketBody)
	return tmdOK && ticketOK, nil
}

// GetTitleSize sums the decrypted size of every content this title's TMD
// lists, in bytes.
func (t Title) GetTitleSize() uint64 {
	var total uint64
	for _, r := range t.TMD.ContentRecords {
		total += r.Size
	}
	return total
}

// GetTitleSizeBlocks returns GetTitleSize converted to whole Wii NAND
// blocks (128 KiB each), rounding up any partial block.
func (t Title) GetTitleSizeBlocks() uint64 {
	size := t.GetTitleSize()
	return (size + wiiBlockSize - 1) / wiiBlockSize
}
