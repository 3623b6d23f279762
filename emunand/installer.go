// Package emunand installs and uninstalls Titles into a Wii EmuNAND
// directory tree — the on-disk layout Dolphin (and similar emulated
// environments) expect under NAND/title, NAND/ticket, NAND/shared1, etc.
//
// Grounded on original_source/title/emunand.go and
// original_source/nand/emunand.py for the directory layout, and on
// library/library.go for the worker-pool idiom reused by importer.go.
package emunand

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ralim/libwii/content"
	"github.com/ralim/libwii/nand"
	"github.com/ralim/libwii/tmd"
	"github.com/ralim/libwii/title"
)

// Installer manages a Wii EmuNAND rooted at a directory, installing and
// uninstalling Titles the way ES would on real hardware.
type Installer struct {
	root string
	log  zerolog.Logger

	importDir  string
	metaDir    string
	shared1Dir string
	shared2Dir string
	sysDir     string
	ticketDir  string
	titleDir   string
	tmpDir     string
	wfsDir     string
}

// NewInstaller creates (if needed) the standard EmuNAND directory
// skeleton rooted at root.
func NewInstaller(root string) (*Installer, error) {
	in := &Installer{
		root:       root,
		log:        log.With().Str("component", "emunand").Logger(),
		importDir:  filepath.Join(root, "import"),
		metaDir:    filepath.Join(root, "meta"),
		shared1Dir: filepath.Join(root, "shared1"),
		shared2Dir: filepath.Join(root, "shared2"),
		sysDir:     filepath.Join(root, "sys"),
		ticketDir:  filepath.Join(root, "ticket"),
		titleDir:   filepath.Join(root, "title"),
		tmpDir:     filepath.Join(root, "tmp"),
		wfsDir:     filepath.Join(root, "wfs"),
	}
	for _, dir := range []string{
		in.importDir, in.metaDir, in.shared1Dir, in.shared2Dir,
		in.sysDir, in.ticketDir, in.titleDir, in.tmpDir, in.wfsDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("emunand: creating %s: %w", dir, err)
		}
	}
	return in, nil
}

func splitTitleID(titleID uint64) (upper, lower string) {
	s := fmt.Sprintf("%016x", titleID)
	return s[:8], s[8:]
}

// InstallTitle writes a loaded Title's Ticket, TMD, contents, shared
// contents, and meta footer into the EmuNAND tree, mimicking a real WAD
// install performed by ES.
func (in *Installer) InstallTitle(t *title.Title, skipHash bool) error {
	tidUpper, tidLower := splitTitleID(t.TMD.TitleID)

	ticketDir := filepath.Join(in.ticketDir, tidUpper)
	if err := os.MkdirAll(ticketDir, 0o755); err != nil {
		return fmt.Errorf("emunand: creating ticket dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(ticketDir, tidLower+".tik"), t.Ticket.Dump(), 0o644); err != nil {
		return fmt.Errorf("emunand: writing ticket: %w", err)
	}

	titleDir := filepath.Join(in.titleDir, tidUpper, tidLower)
	contentDir := filepath.Join(titleDir, "content")
	if err := os.RemoveAll(contentDir); err != nil {
		return fmt.Errorf("emunand: clearing old content dir: %w", err)
	}
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return fmt.Errorf("emunand: creating content dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(contentDir, "title.tmd"), t.TMD.Dump(), 0o644); err != nil {
		return fmt.Errorf("emunand: writing tmd: %w", err)
	}

	key, err := t.Ticket.TitleKey()
	if err != nil {
		return fmt.Errorf("emunand: resolving title key: %w", err)
	}

	for i, rec := range t.TMD.ContentRecords {
		if rec.ContentType != tmd.ContentTypeNormal {
			continue
		}
		data, err := t.Content.ContentByIndex(i, key, skipHash)
		if err != nil {
			return fmt.Errorf("emunand: decrypting content %d: %w", i, err)
		}
		name := fmt.Sprintf("%08x.app", rec.ContentID)
		if err := os.WriteFile(filepath.Join(contentDir, name), data, 0o644); err != nil {
			return fmt.Errorf("emunand: writing content %s: %w", name, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(titleDir, "data"), 0o755); err != nil {
		return fmt.Errorf("emunand: creating data dir: %w", err)
	}

	if err := in.installSharedContents(t, key, skipHash); err != nil {
		return err
	}

	if len(t.WAD.Meta) != 0 {
		metaDir := filepath.Join(in.metaDir, tidUpper, tidLower)
		if err := os.MkdirAll(metaDir, 0o755); err != nil {
			return fmt.Errorf("emunand: creating meta dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(metaDir, "title.met"), t.WAD.Meta, 0o644); err != nil {
			return fmt.Errorf("emunand: writing meta: %w", err)
		}
	}

	if err := in.ensureUIDSys(t.TMD.TitleID); err != nil {
		return err
	}

	in.log.Info().Str("titleID", tidUpper+tidLower).Msg("installed title")
	return nil
}

func (in *Installer) installSharedContents(t *title.Title, key [16]byte, skipHash bool) error {
	mapPath := filepath.Join(in.shared1Dir, "content.map")
	var shared content.SharedMap
	if raw, err := os.ReadFile(mapPath); err == nil {
		shared, err = content.LoadSharedMap(raw)
		if err != nil {
			return fmt.Errorf("emunand: parsing existing content.map: %w", err)
		}
	}

	changed := false
	for i, rec := range t.TMD.ContentRecords {
		if rec.ContentType != tmd.ContentTypeShared {
			continue
		}
		if shared.HasHash(rec.Hash) {
			continue
		}
		data, err := t.Content.ContentByIndex(i, key, skipHash)
		if err != nil {
			return fmt.Errorf("emunand: decrypting shared content %d: %w", i, err)
		}
		name := shared.AddContent(rec.Hash)
		changed = true
		if err := os.WriteFile(filepath.Join(in.shared1Dir, name+".app"), data, 0o644); err != nil {
			return fmt.Errorf("emunand: writing shared content %s: %w", name, err)
		}
	}
	if changed || len(shared.Records) == 0 {
		if err := os.WriteFile(mapPath, shared.Dump(), 0o644); err != nil {
			return fmt.Errorf("emunand: writing content.map: %w", err)
		}
	}
	return nil
}

func (in *Installer) ensureUIDSys(titleID uint64) error {
	path := filepath.Join(in.sysDir, "uid.sys")
	var u nand.UIDSys
	if raw, err := os.ReadFile(path); err == nil {
		u, err = nand.LoadUIDSys(raw)
		if err != nil {
			return fmt.Errorf("emunand: parsing existing uid.sys: %w", err)
		}
	} else {
		if err := u.Create(); err != nil {
			return fmt.Errorf("emunand: creating uid.sys: %w", err)
		}
	}
	if _, err := u.Add(fmt.Sprintf("%016x", titleID)); err != nil {
		return fmt.Errorf("emunand: registering uid: %w", err)
	}
	raw, err := u.Dump()
	if err != nil {
		return fmt.Errorf("emunand: dumping uid.sys: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// UninstallTitle removes an installed title's Ticket, TMD, and contents.
// It leaves shared contents untouched, and refuses to remove a title's
// directory tree entirely if files remain under its data/ subdirectory
// — only the content/ subdirectory is removed in that case.
func (in *Installer) UninstallTitle(titleID uint64) error {
	tidUpper, tidLower := splitTitleID(titleID)

	titleDir := filepath.Join(in.titleDir, tidUpper, tidLower)
	if _, err := os.Stat(titleDir); err != nil {
		return fmt.Errorf("emunand: title %s%s does not appear to be installed", tidUpper, tidLower)
	}

	ticketPath := filepath.Join(in.ticketDir, tidUpper, tidLower+".tik")
	if _, err := os.Stat(ticketPath); err == nil {
		if err := os.Remove(ticketPath); err != nil {
			return fmt.Errorf("emunand: removing ticket: %w", err)
		}
	}

	dataDir := filepath.Join(titleDir, "data")
	entries, err := os.ReadDir(dataDir)
	dataIsEmpty := err != nil || len(entries) == 0
	if dataIsEmpty {
		if err := os.RemoveAll(titleDir); err != nil {
			return fmt.Errorf("emunand: removing title dir: %w", err)
		}
	} else {
		if err := os.RemoveAll(filepath.Join(titleDir, "content")); err != nil {
			return fmt.Errorf("emunand: removing content dir: %w", err)
		}
	}

	metaDir := filepath.Join(in.metaDir, tidUpper, tidLower)
	if _, err := os.Stat(filepath.Join(metaDir, "title.met")); err == nil {
		if err := os.RemoveAll(metaDir); err != nil {
			return fmt.Errorf("emunand: removing meta dir: %w", err)
		}
	}

	in.log.Info().Str("titleID", tidUpper+tidLower).Msg("uninstalled title")
	return nil
}
