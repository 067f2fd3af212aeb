// Package config loads and saves scheduler tuning as YAML, through an
// injectable afero.Fs so tests never touch the real filesystem.
package config

import (
	"fmt"
	"math"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Niraka/nebula/schedule"
)

// File is the on-disk representation of a scheduler configuration. It
// mirrors schedule.Config field for field, using human-friendly rate
// notation ("60/s", "unlimited") instead of the internal nanosecond
// timestep the schedule package works with.
type File struct {
	MasterRate                string  `yaml:"masterRate"`
	InterpolationCap          float64 `yaml:"interpolationCap"`
	LagThreshold              float64 `yaml:"lagThreshold"`
	LagWarningIntervalSeconds uint32  `yaml:"lagWarningIntervalSeconds"`
	RefuseStopRequests        bool    `yaml:"refuseStopRequests"`
}

// FromConfig converts a schedule.Config into its on-disk representation.
// The master rate is rendered as "unlimited" or "<n>/s"; a Config built
// from FromCount with a non-second interval round-trips as a per-second
// rate with the equivalent frequency, since Rate itself does not retain
// which unit it was constructed from.
func FromConfig(c schedule.Config) File {
	return File{
		MasterRate:                FormatRate(c.MasterRate),
		InterpolationCap:          c.InterpolationCap,
		LagThreshold:              c.LagThreshold,
		LagWarningIntervalSeconds: c.LagWarningIntervalSeconds,
		RefuseStopRequests:        c.RefuseStopRequests,
	}
}

// ToConfig converts the on-disk representation back into a schedule.Config.
// The result still needs to pass through schedule.New or Engine.SetConfig
// to be sanitized; File does not sanitize on its own.
func (f File) ToConfig() (schedule.Config, error) {
	rate, err := ParseRate(f.MasterRate)
	if err != nil {
		return schedule.Config{}, err
	}
	return schedule.Config{
		MasterRate:                rate,
		InterpolationCap:          f.InterpolationCap,
		LagThreshold:              f.LagThreshold,
		LagWarningIntervalSeconds: f.LagWarningIntervalSeconds,
		RefuseStopRequests:        f.RefuseStopRequests,
	}, nil
}

// FormatRate renders a schedule.Rate as "unlimited" or "<n>/s".
func FormatRate(r schedule.Rate) string {
	step, unlimited := r.Timestep()
	if unlimited {
		return "unlimited"
	}
	if step <= 0 {
		return "unlimited"
	}
	hz := float64(1e9) / float64(step.Nanoseconds())
	return fmt.Sprintf("%g/s", hz)
}

// ParseRate parses "unlimited" or "<n>/s" into a schedule.Rate.
func ParseRate(s string) (schedule.Rate, error) {
	if s == "" || s == "unlimited" {
		return schedule.Unlimited, nil
	}
	var hz float64
	if _, err := fmt.Sscanf(s, "%g/s", &hz); err != nil {
		return schedule.Rate{}, fmt.Errorf("parse rate %q: %w", s, err)
	}
	if hz <= 0 {
		return schedule.Rate{}, fmt.Errorf("parse rate %q: rate must be positive", s)
	}
	return schedule.FromCount(int(math.Round(hz*3600)), schedule.PerHour), nil
}

// Load reads and parses a scheduler configuration file from fs.
func Load(fs afero.Fs, path string) (schedule.Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return schedule.Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return schedule.Config{}, fmt.Errorf("unmarshal %s: %w", path, err)
	}

	return f.ToConfig()
}

// Save writes cfg to path on fs as YAML, creating or truncating the file.
func Save(fs afero.Fs, path string, cfg schedule.Config) error {
	data, err := yaml.Marshal(FromConfig(cfg))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
