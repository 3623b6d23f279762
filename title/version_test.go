package title

import "testing"

func TestVersionToStandard(t *testing.T) {
	got, err := VersionToStandard(0x0001000148414141, 513)
	if err != nil {
		t.Fatalf("VersionToStandard: %v", err)
	}
	if got != "2.1" {
		t.Fatalf("got %q, want %q", got, "2.1")
	}
}

func TestVersionToStandardRejectsSystemMenu(t *testing.T) {
	if _, err := VersionToStandard(systemMenuTitleID, 513); err == nil {
		t.Fatalf("expected error converting the System Menu's version")
	}
}

func TestVersionFromStandardRoundTrip(t *testing.T) {
	v, err := VersionFromStandard(0x0001000148414141, 2, 1)
	if err != nil {
		t.Fatalf("VersionFromStandard: %v", err)
	}
	if v != 513 {
		t.Fatalf("got %d, want 513", v)
	}
	back, err := VersionToStandard(0x0001000148414141, v)
	if err != nil {
		t.Fatalf("VersionToStandard: %v", err)
	}
	if back != "2.1" {
		t.Fatalf("got %q, want %q", back, "2.1")
	}
}
