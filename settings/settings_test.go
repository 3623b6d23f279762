package settings_test

import (
	"os"
	"testing"

	"github.com/ralim/libwii/settings"
)

func TestNewSettingsAppliesDefaults(t *testing.T) {
	tempFile, err := os.CreateTemp("", "settings_test_*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(tempFile.Name())

	s := settings.NewSettings(tempFile.Name())
	if s.EmuNANDRoot != "./emunand" {
		t.Errorf("got EmuNANDRoot %q, want default %q", s.EmuNANDRoot, "./emunand")
	}
	if s.ImportWorkers != 4 {
		t.Errorf("got ImportWorkers %d, want default 4", s.ImportWorkers)
	}
}

func TestNewSettingsLoadsExistingFile(t *testing.T) {
	tempFile, err := os.CreateTemp("", "settings_test_*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(tempFile.Name())
	if err := os.WriteFile(tempFile.Name(), []byte(`{"emunandRoot":"/mnt/emunand","importWorkers":8}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := settings.NewSettings(tempFile.Name())
	if s.EmuNANDRoot != "/mnt/emunand" {
		t.Errorf("got EmuNANDRoot %q, want %q", s.EmuNANDRoot, "/mnt/emunand")
	}
	if s.ImportWorkers != 8 {
		t.Errorf("got ImportWorkers %d, want 8", s.ImportWorkers)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tempFile, err := os.CreateTemp("", "settings_test_*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(tempFile.Name())

	s := settings.NewSettings(tempFile.Name())
	s.UseWiiUEndpoint = true
	s.Save()

	reloaded := settings.NewSettings(tempFile.Name())
	if !reloaded.UseWiiUEndpoint {
		t.Errorf("expected UseWiiUEndpoint to persist across save/reload")
	}
}
