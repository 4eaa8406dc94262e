package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("default parameters invalid: %v", err)
	}
	if p.MinutesPerDay() != 1020 || p.WindowOffset() != 300 {
		t.Fatalf("truncated day = %d minutes offset %d, want 1020 and 300", p.MinutesPerDay(), p.WindowOffset())
	}
	if p.TimeNewRumor() != 28*1020 {
		t.Fatalf("counter rumor tick = %d", p.TimeNewRumor())
	}

	p.RunFullDay = true
	if p.MinutesPerDay() != 1440 || p.WindowOffset() != 0 {
		t.Fatal("full day should have 1440 minutes and no offset")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	body := `{"num_residents": 400, "features": {"rumor_spreads": false}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.NumResidents != 400 || p.Features.RumorSpreads {
		t.Fatalf("overrides not applied: %d residents, rumor %v", p.NumResidents, p.Features.RumorSpreads)
	}
	if p.SchoolVision != 35 || !p.Features.CanResidentsBeLaidOff {
		t.Fatal("absent fields lost their defaults")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	body := `{"informality_index": 1.5, "class_size": 0}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	for _, want := range []string{"informality_index", "class_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
