package title

import (
	"bytes"
	"fmt"
)

// IOSPatcher locates and patches well-known byte signatures inside an
// IOS title's ES module to disable signature checks, the NAND access
// check, and version downgrade protection — the standard set of patches
// applied to produce a "custom" IOS such as those used by cIOS stacks.
//
// Byte signatures grounded on original_source/title/iospatcher.py.
type IOSPatcher struct {
	title           *Title
	esModuleIndex   int
	esModule        []byte
	dipModuleIndex  int
	dipModule       []byte
	hasDIPModule    bool
}

const iosTitleIDHigh = 0x00000001

// Load finds the title's ES module (and, if present, its DIP module) by
// scanning each content for the distinguishing ASCII markers ES use to
// identify themselves. It rejects titles whose Title ID is not a normal
// (non-System-Menu, non-boot2) IOS.
func Load(t *Title) (*IOSPatcher, error) {
	high := uint32(t.TMD.TitleID >> 32)
	low := uint32(t.TMD.TitleID)
	if high != iosTitleIDHigh || low == 1 || low == 2 {
		return nil, fmt.Errorf("title: Title ID %016x does not look like a patchable IOS", t.TMD.TitleID)
	}

	p := &IOSPatcher{title: t, esModuleIndex: -1, dipModuleIndex: -1}
	for i := range t.Content.Records {
		data, err := t.ContentByIndex(i)
		if err != nil {
			return nil, err
		}
		if bytes.Contains(data, []byte("ES:")) && p.esModuleIndex < 0 {
			p.esModuleIndex = i
			p.esModule = data
		}
		if bytes.Contains(data, []byte("DIP:")) && p.dipModuleIndex < 0 {
			p.dipModuleIndex = i
			p.dipModule = data
			p.hasDIPModule = true
		}
	}
	if p.esModuleIndex < 0 {
		return nil, fmt.Errorf("title: could not find an ES module in this title's contents")
	}
	return p, nil
}

// findFirst returns the index of sig's first occurrence in data, or -1,
// matching original_source/title/iospatcher.py's target_content.find
// (every patch method there touches at most one occurrence).
func findFirst(data []byte, sig []byte) int {
	for i := 0; i+len(sig) <= len(data); i++ {
		if bytes.Equal(data[i:i+len(sig)], sig) {
			return i
		}
	}
	return -1
}

// patchFirstOffsetPlusOne zeroes the byte one past sig's first match in
// data, returning 1 if a match was found and patched, 0 otherwise.
func patchFirstOffsetPlusOne(data []byte, sig []byte) int {
	i := findFirst(data, sig)
	if i < 0 {
		return 0
	}
	data[i+1] = 0x00
	return 1
}

// PatchFakesigning patches the two known signature-check short-circuits
// so that IOS accepts a fakesigned TMD/Ticket.
func (p *IOSPatcher) PatchFakesigning() int {
	n := patchFirstOffsetPlusOne(p.esModule, []byte{0x20, 0x07, 0x23, 0xa2})
	n += patchFirstOffsetPlusOne(p.esModule, []byte{0x20, 0x07, 0x4b, 0x0b})
	return n
}

// PatchESIdentify patches ES_Identify to stop rejecting forged
// certificates.
func (p *IOSPatcher) PatchESIdentify() int {
	sig := []byte{0x28, 0x03, 0xd1, 0x23}
	i := findFirst(p.esModule, sig)
	if i < 0 {
		return 0
	}
	p.esModule[i+2] = 0x00
	p.esModule[i+3] = 0x00
	return 1
}

// PatchNANDAccess patches the NAND permission check that normally
// restricts access to system titles.
func (p *IOSPatcher) PatchNANDAccess() int {
	sig := []byte{0x42, 0x8b, 0xd0, 0x01, 0x25, 0x66}
	i := findFirst(p.esModule, sig)
	if i < 0 {
		return 0
	}
	p.esModule[i+2] = 0xe0
	return 1
}

// PatchVersionDowngrading patches the version check that normally
// prevents installing an IOS/title with a lower version than what is
// already installed.
func (p *IOSPatcher) PatchVersionDowngrading() int {
	sig := []byte{0xd2, 0x01, 0x4e, 0x56}
	i := findFirst(p.esModule, sig)
	if i < 0 {
		return 0
	}
	p.esModule[i] = 0xe0
	return 1
}

// PatchDriveInquiry patches the DIP module's drive inquiry check.
// Experimental, grounded on original_source's own "not included in
// patch_all" treatment of this patch; callers must invoke it explicitly.
func (p *IOSPatcher) PatchDriveInquiry() (int, error) {
	if !p.hasDIPModule {
		return 0, fmt.Errorf("title: no DIP module found in this title's contents")
	}
	sig := []byte{0x49, 0x4c, 0x23, 0x90, 0x68, 0x0a}
	replacement := []byte{0x20, 0x00, 0xe5, 0x38}
	i := findFirst(p.dipModule, sig)
	if i < 0 {
		return 0, nil
	}
	copy(p.dipModule[i:i+len(replacement)], replacement)
	return 1, nil
}

// PatchAll applies fakesigning, ES_Identify, NAND access, and version
// downgrading patches (but not the experimental drive inquiry patch),
// then commits the patched ES module back into the title and fakesigns
// it. It returns the total number of patch sites touched.
func (p *IOSPatcher) PatchAll() (int, error) {
	total := p.PatchFakesigning()
	total += p.PatchESIdentify()
	total += p.PatchNANDAccess()
	total += p.PatchVersionDowngrading()

	if err := p.title.SetContent(p.esModuleIndex, p.esModule); err != nil {
		return 0, err
	}
	if err := p.title.Fakesign(); err != nil {
		return 0, err
	}
	return total, nil
}
