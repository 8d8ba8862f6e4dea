// Package config holds process configuration for the assistant, layered
// from defaults, an optional YAML file, and environment variables.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// ActivationPhrase wakes the assistant when it appears anywhere in a
	// transcribed query.
	ActivationPhrase string `koanf:"activation_phrase"`

	// IdentityThreshold is the minimum classifier confidence for accepting
	// a speaker prediction without renegotiation.
	IdentityThreshold float64 `koanf:"identity_threshold"`

	// ExtractionThreshold is the minimum confidence for accepting a name
	// extracted by the question-answering model.
	ExtractionThreshold float64 `koanf:"extraction_threshold"`

	// IdentityAttempts bounds the uncertain-identity protocol.
	IdentityAttempts int `koanf:"identity_attempts"`

	// BootstrapSamples is the number of read-aloud voice samples collected
	// during registration.
	BootstrapSamples int `koanf:"bootstrap_samples"`

	// DataDir holds the sqlite stores, recorded audio, and calendar
	// credentials.
	DataDir string `koanf:"data_dir"`

	// Voice selects the speech synthesis voice by name.
	Voice string `koanf:"voice"`

	// QAModel selects the extractive question-answering model used for
	// name extraction.
	QAModel string `koanf:"qa_model"`

	// ClassifierUrl points at the voice-classifier model server.
	ClassifierUrl string `koanf:"classifier_url"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

func New() *Config {
	return &Config{
		ActivationPhrase:    "hi kurt",
		IdentityThreshold:   0.7,
		ExtractionThreshold: 0.7,
		IdentityAttempts:    2,
		BootstrapSamples:    5,
		DataDir:             "data",
		Voice:               "orion",
		QAModel:             "distilbert-base-cased-distilled-squad",
		ClassifierUrl:       "http://localhost:8300",
		LogLevel:            "info",
	}
}

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New)
//  2. YAML file named by KURT_CONFIG, when set
//  3. environment variables with prefix KURT_ (KURT_DATA_DIR -> data_dir)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("KURT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("KURT_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "kurt_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.ActivationPhrase == "" {
		return nil, errors.New("activation_phrase must not be empty")
	}
	if cfg.IdentityThreshold < 0 || cfg.IdentityThreshold > 1 {
		return nil, errors.New("identity_threshold must be in [0,1]")
	}
	if cfg.ExtractionThreshold < 0 || cfg.ExtractionThreshold > 1 {
		return nil, errors.New("extraction_threshold must be in [0,1]")
	}
	if cfg.IdentityAttempts < 1 {
		return nil, errors.New("identity_attempts must be at least 1")
	}
	if cfg.BootstrapSamples < 0 {
		return nil, errors.New("bootstrap_samples must not be negative")
	}
	return &cfg, nil
}
