// Package settings holds the small JSON-backed configuration used by the
// wiiwad demo CLI and the EmuNAND installer, grounded on the teacher's
// settings/settings.go NewSettings/Load/Save pattern.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
)

// Settings configures the wiiwad demo CLI: where the EmuNAND root lives,
// how many workers to use for bulk WAD imports, and NUS client
// preferences.
type Settings struct {
	EmuNANDRoot     string `json:"emunandRoot"`     // Root directory of the EmuNAND to install/uninstall titles into
	NUSCacheFolder  string `json:"nusCacheFolder"`  // On-disk cache directory for NUS downloads
	ImportWorkers   int    `json:"importWorkers"`   // Concurrent workers for bulk .wad.zst imports
	UseWiiUEndpoint bool   `json:"useWiiUEndpoint"` // Use the faster Wii U CDN mirror for NUS downloads
	UseDevEndpoint  bool   `json:"useDevEndpoint"`  // Use the development NUS instead of retail
	SkipHashOnWrite bool   `json:"skipHashOnWrite"` // Install/extract contents even if their hash doesn't match the TMD
	// Private
	filePath string
}

// NewSettings creates settings with sane defaults, then loads any
// settings from the provided path (overwriting defaults) and re-saves so
// new or removed fields stay in sync on disk.
func NewSettings(path string) *Settings {
	settings := &Settings{
		filePath:        path,
		EmuNANDRoot:     "./emunand",
		NUSCacheFolder:  "./nus_cache",
		ImportWorkers:   4,
		UseWiiUEndpoint: false,
		UseDevEndpoint:  false,
		SkipHashOnWrite: false,
	}
	settings.Load()
	settings.Save()
	return settings
}

func (s *Settings) Load() {
	//Load existing settings file if possible; if not load do nothing
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, s); err != nil {
		fmt.Println("Couldn't load settings", err)
	}
}

func (s *Settings) Save() {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Couldn't save settings - %v", err)
		return
	}
	err = os.WriteFile(s.filePath, data, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Couldn't save settings - %v", err)
	}
}
