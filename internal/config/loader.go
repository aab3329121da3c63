package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmolenaar/hartstem/internal/interview"
)

// knownPhases is the closed phase name set accepted in interview
// overrides.
var knownPhases = map[string]struct{}{
	string(interview.PhaseInitial):        {},
	string(interview.PhaseSymptoms):       {},
	string(interview.PhaseTriggers):       {},
	string(interview.PhaseMedicalHistory): {},
	string(interview.PhaseFamilyHistory):  {},
	string(interview.PhaseLifestyle):      {},
}

// Load reads the YAML configuration file at path, layers it over
// [Default] and returns the validated result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and
// validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			err = nil
		} else {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Realtime.Model == "" {
		errs = append(errs, errors.New("realtime.model is required"))
	}
	if cfg.Realtime.Temperature < 0 || cfg.Realtime.Temperature > 2 {
		errs = append(errs, fmt.Errorf("realtime.temperature %.2f is out of range [0, 2]", cfg.Realtime.Temperature))
	}
	if cfg.Realtime.VADThreshold < 0 || cfg.Realtime.VADThreshold > 1 {
		errs = append(errs, fmt.Errorf("realtime.vad_threshold %.2f is out of range [0, 1]", cfg.Realtime.VADThreshold))
	}

	for i, t := range cfg.Interview.Thresholds {
		if _, ok := knownPhases[t.Phase]; !ok {
			errs = append(errs, fmt.Errorf("interview.thresholds[%d].phase %q is unknown", i, t.Phase))
		}
		if t.MinAsked < 0 {
			errs = append(errs, fmt.Errorf("interview.thresholds[%d].min_asked %d is negative", i, t.MinAsked))
		}
	}
	phasesSeen := make(map[string]int, len(cfg.Interview.Catalogs))
	for i, cat := range cfg.Interview.Catalogs {
		if _, ok := knownPhases[cat.Phase]; !ok {
			errs = append(errs, fmt.Errorf("interview.catalogs[%d].phase %q is unknown", i, cat.Phase))
		}
		if prev, ok := phasesSeen[cat.Phase]; ok {
			errs = append(errs, fmt.Errorf("interview.catalogs[%d].phase %q is a duplicate of catalogs[%d]", i, cat.Phase, prev))
		}
		phasesSeen[cat.Phase] = i
		if len(cat.Questions) == 0 {
			errs = append(errs, fmt.Errorf("interview.catalogs[%d] (%s) has no questions", i, cat.Phase))
		}
	}

	if cfg.Transcribe.Model == "" {
		errs = append(errs, errors.New("transcribe.model is required"))
	}

	if cfg.Session.ResponseTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.response_timeout %s is negative", cfg.Session.ResponseTimeout))
	}

	return errors.Join(errs...)
}
