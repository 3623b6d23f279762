package title

import "fmt"

// systemMenuTitleID is the one Title ID whose version numbering does not
// follow the major/minor byte split every other title uses.
const systemMenuTitleID = 0x0000000100000002

// VersionToStandard converts a TMD/Ticket's raw decimal title version
// into its human-readable "major.minor" form (e.g. 513 -> "2.1"),
// matching original_source/title/util.py's title_ver_dec_to_standard.
// It rejects the System Menu's Title ID, whose version table was not
// part of the retrieved reference (see DESIGN.md).
func VersionToStandard(titleID uint64, version uint16) (string, error) {
	if titleID == systemMenuTitleID {
		return "", fmt.Errorf("title: the System Menu's version cannot currently be converted")
	}
	major := version / 256
	minor := version % 256
	return fmt.Sprintf("%d.%d", major, minor), nil
}

// VersionFromStandard converts the major and minor numbers of a
// "major.minor" version back into its raw decimal form.
func VersionFromStandard(titleID uint64, major, minor uint8) (uint16, error) {
	if titleID == systemMenuTitleID {
		return 0, fmt.Errorf("title: the System Menu's version cannot currently be converted")
	}
	return uint16(major)*256 + uint16(minor), nil
}
