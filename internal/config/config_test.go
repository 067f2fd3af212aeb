package config

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/Niraka/nebula/schedule"
)

func TestSaveThenLoadRoundTripsFiniteRate(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := schedule.Config{
		MasterRate:                schedule.FromPreset(schedule.Preset30PerSecond),
		InterpolationCap:          1.2,
		LagThreshold:              1.05,
		LagWarningIntervalSeconds: 5,
		RefuseStopRequests:        false,
	}

	if err := Save(fs, "/etc/nebula/config.yaml", cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(fs, "/etc/nebula/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	step, unlimited := loaded.MasterRate.Timestep()
	wantStep, _ := schedule.FromPreset(schedule.Preset30PerSecond).Timestep()
	if unlimited || step != wantStep {
		t.Fatalf("MasterRate = (%v, unlimited=%v), want 30/s finite", step, unlimited)
	}
	if loaded.InterpolationCap != 1.2 || loaded.LagThreshold != 1.05 {
		t.Fatalf("loaded config = %+v, want cap 1.2 threshold 1.05", loaded)
	}
	if loaded.LagWarningIntervalSeconds != 5 || loaded.RefuseStopRequests {
		t.Fatalf("loaded config = %+v, want interval 5 refuseStop false", loaded)
	}
}

func TestSaveThenLoadRoundTripsUnlimitedRate(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := schedule.DefaultConfig()
	cfg.MasterRate = schedule.Unlimited

	if err := Save(fs, "config.yaml", cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(fs, "config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, unlimited := loaded.MasterRate.Timestep(); !unlimited {
		t.Fatal("MasterRate did not round-trip as unlimited")
	}
}

func TestLoadMissingFileReturnsWrappedError(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Load(fs, "/does/not/exist.yaml"); err == nil {
		t.Fatal("Load returned nil error for a missing file")
	}
}

func TestLoadRejectsMalformedRate(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "bad.yaml", []byte("masterRate: not-a-rate\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(fs, "bad.yaml"); err == nil {
		t.Fatal("Load accepted a malformed masterRate value")
	}
}
