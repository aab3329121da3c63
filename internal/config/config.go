// Package config provides the configuration schema and loader for the
// hartstem anamnesis engine.
package config

import (
	"time"

	"github.com/jmolenaar/hartstem/internal/extract"
	"github.com/jmolenaar/hartstem/internal/interview"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded
// from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	Interview  InterviewConfig  `yaml:"interview"`
	Extract    ExtractConfig    `yaml:"extract"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Session    SessionConfig    `yaml:"session"`
	Messages   Messages         `yaml:"messages"`
}

// ServerConfig holds the local observability endpoint and logging.
type ServerConfig struct {
	// MetricsAddr is the TCP address the metrics/health endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// RealtimeConfig configures the realtime speech channel.
type RealtimeConfig struct {
	// Model is the realtime model requested at dial time.
	Model string `yaml:"model"`

	// BaseURL overrides the default WebSocket endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Voice selects the assistant voice (e.g., "alloy").
	Voice string `yaml:"voice"`

	// Temperature is the model sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// MaxResponseOutputTokens caps each assistant turn.
	MaxResponseOutputTokens int `yaml:"max_response_output_tokens"`

	// VADThreshold tunes server-side voice activity detection [0, 1].
	VADThreshold float64 `yaml:"vad_threshold"`

	// VADPrefixPaddingMS is the leading audio kept before detected speech.
	VADPrefixPaddingMS int `yaml:"vad_prefix_padding_ms"`

	// VADSilenceDurationMS is the trailing silence that ends a turn.
	VADSilenceDurationMS int `yaml:"vad_silence_duration_ms"`
}

// InterviewConfig overrides the phase progression and question
// catalogs. Empty slices select the stock Dutch cardiology set.
type InterviewConfig struct {
	Thresholds []ThresholdConfig `yaml:"thresholds"`
	Catalogs   []CatalogConfig   `yaml:"catalogs"`
}

// ThresholdConfig maps an asked-question count to a phase.
type ThresholdConfig struct {
	MinAsked int    `yaml:"min_asked"`
	Phase    string `yaml:"phase"`
}

// CatalogConfig is the question list of one phase.
type CatalogConfig struct {
	Phase     string   `yaml:"phase"`
	Questions []string `yaml:"questions"`
}

// ExtractConfig overrides the keyword rules. Empty slices select the
// stock Dutch keyword set.
type ExtractConfig struct {
	Symptoms      []string `yaml:"symptoms"`
	Duration      []string `yaml:"duration"`
	Medications   []string `yaml:"medications"`
	FamilyHistory []string `yaml:"family_history"`
	RiskFactors   []string `yaml:"risk_factors"`
	SeverityHigh  []string `yaml:"severity_high"`
	SeverityLow   []string `yaml:"severity_low"`
}

// TranscribeConfig configures the fallback speech-to-text path.
type TranscribeConfig struct {
	// Model is the transcription model (e.g., "whisper-1").
	Model string `yaml:"model"`

	// Language is the BCP-47 language hint (e.g., "nl").
	Language string `yaml:"language"`

	// Prompt biases the model toward domain vocabulary. May be empty.
	Prompt string `yaml:"prompt"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url"`
}

// SessionConfig tunes the session engine.
type SessionConfig struct {
	// ResponseTimeout bounds how long the engine waits for a model
	// response before reporting a timeout. Zero disables the watchdog.
	ResponseTimeout time.Duration `yaml:"response_timeout"`
}

// Messages are the localized human-facing error texts, keyed by error
// class. All defaults are Dutch.
type Messages struct {
	Authentication string `yaml:"authentication"`
	Connection     string `yaml:"connection"`
	NotConnected   string `yaml:"not_connected"`
	Device         string `yaml:"device"`
	Protocol       string `yaml:"protocol"`
	Timeout        string `yaml:"timeout"`
	Transcription  string `yaml:"transcription"`
}

// Default returns the stock configuration: Dutch cardiology interview,
// Dutch user messages, 45 second response watchdog.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			MetricsAddr: ":9090",
			LogLevel:    LogInfo,
		},
		Realtime: RealtimeConfig{
			Model:                   "gpt-4o-realtime-preview",
			Voice:                   "alloy",
			Temperature:             0.7,
			MaxResponseOutputTokens: 4096,
			VADThreshold:            0.5,
			VADPrefixPaddingMS:      300,
			VADSilenceDurationMS:    500,
		},
		Transcribe: TranscribeConfig{
			Model:    "whisper-1",
			Language: "nl",
			Prompt:   "Nederlands gesprek over hartklachten tussen een cardioloog en een patiënt.",
		},
		Session: SessionConfig{
			ResponseTimeout: 45 * time.Second,
		},
		Messages: Messages{
			Authentication: "Ongeldige API key. Een geldige key begint met 'sk-'.",
			Connection:     "Verbinding met de spraakdienst mislukt. Probeer het opnieuw.",
			NotConnected:   "Geen actieve verbinding. Maak eerst verbinding.",
			Device:         "De microfoon kan niet worden gebruikt. Controleer de toegangsrechten.",
			Protocol:       "Er ging iets mis in het gesprek. De verbinding blijft actief.",
			Timeout:        "De assistent reageert niet. Probeer het opnieuw.",
			Transcription:  "Geen spraak herkend. Probeer het opnieuw.",
		},
	}
}

// InterviewThresholds converts the configured thresholds, falling back
// to the stock progression when none are configured.
func (c *Config) InterviewThresholds() []interview.Threshold {
	if len(c.Interview.Thresholds) == 0 {
		return interview.DefaultThresholds()
	}
	out := make([]interview.Threshold, len(c.Interview.Thresholds))
	for i, t := range c.Interview.Thresholds {
		out[i] = interview.Threshold{MinAsked: t.MinAsked, Phase: interview.Phase(t.Phase)}
	}
	return out
}

// InterviewCatalogs converts the configured catalogs, falling back to
// the stock Dutch cardiology questions when none are configured.
func (c *Config) InterviewCatalogs() []interview.Catalog {
	if len(c.Interview.Catalogs) == 0 {
		return interview.DefaultCatalogs()
	}
	out := make([]interview.Catalog, len(c.Interview.Catalogs))
	for i, cat := range c.Interview.Catalogs {
		out[i] = interview.Catalog{
			Phase:     interview.Phase(cat.Phase),
			Questions: cat.Questions,
		}
	}
	return out
}

// ExtractKeywords converts the configured keyword rules, falling back
// per bucket to the stock Dutch keywords.
func (c *Config) ExtractKeywords() extract.Keywords {
	kw := extract.DefaultKeywords()
	if len(c.Extract.Symptoms) > 0 {
		kw.Symptoms = c.Extract.Symptoms
	}
	if len(c.Extract.Duration) > 0 {
		kw.Duration = c.Extract.Duration
	}
	if len(c.Extract.Medications) > 0 {
		kw.Medications = c.Extract.Medications
	}
	if len(c.Extract.FamilyHistory) > 0 {
		kw.FamilyHistory = c.Extract.FamilyHistory
	}
	if len(c.Extract.RiskFactors) > 0 {
		kw.RiskFactors = c.Extract.RiskFactors
	}
	if len(c.Extract.SeverityHigh) > 0 {
		kw.Severity.High = c.Extract.SeverityHigh
	}
	if len(c.Extract.SeverityLow) > 0 {
		kw.Severity.Low = c.Extract.SeverityLow
	}
	return kw
}
