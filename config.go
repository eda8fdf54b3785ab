package minmotion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// MadgwickConfig configures a Madgwick filter.
type MadgwickConfig struct {
	SamplePeriod      float64    `yaml:"samplePeriod"`      // Sample period (s), must be positive
	InitialQuaternion Quaternion `yaml:"initialQuaternion"` // Starting estimate, normalised on construction
	Beta              float64    `yaml:"beta"`              // Algorithm gain, must be non-negative
}

// MahonyConfig configures a Mahony filter.
type MahonyConfig struct {
	SamplePeriod      float64    `yaml:"samplePeriod"`      // Sample period (s), must be positive
	InitialQuaternion Quaternion `yaml:"initialQuaternion"` // Starting estimate, normalised on construction
	Kp                float64    `yaml:"kp"`                // Proportional gain
	Ki                float64    `yaml:"ki"`                // Integral gain, the integral error is held at zero unless positive
}

// Config is the file representation of both filter configurations.
type Config struct {
	LogLevel string         `yaml:"logLevel"`
	Madgwick MadgwickConfig `yaml:"madgwick"`
	Mahony   MahonyConfig   `yaml:"mahony"`
}

// DefaultMadgwickConfig returns a new config with a 1/256 s sample period, the
// identity quaternion and beta = 1.
func DefaultMadgwickConfig() MadgwickConfig {
	return MadgwickConfig{
		SamplePeriod:      DefaultSamplePeriod,
		InitialQuaternion: Identity(),
		Beta:              DefaultBeta,
	}
}

// DefaultMahonyConfig returns a new config with a 1/256 s sample period, the
// identity quaternion, Kp = 1 and Ki = 0.
func DefaultMahonyConfig() MahonyConfig {
	return MahonyConfig{
		SamplePeriod:      DefaultSamplePeriod,
		InitialQuaternion: Identity(),
		Kp:                DefaultKp,
		Ki:                DefaultKi,
	}
}

// DefaultConfig returns a new Config holding the default filter configurations.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Madgwick: DefaultMadgwickConfig(),
		Mahony:   DefaultMahonyConfig(),
	}
}

// Validate checks the Madgwick configuration.
func (c MadgwickConfig) Validate() error {
	if err := validateCommon(c.SamplePeriod, c.InitialQuaternion); err != nil {
		return fmt.Errorf("madgwick: %w", err)
	}
	if !(c.Beta >= 0) || math.IsInf(c.Beta, 0) {
		return fmt.Errorf("madgwick: %w: beta must be a finite non-negative number, got %v", ErrInvalidConfig, c.Beta)
	}
	return nil
}

// Validate checks the Mahony configuration.
func (c MahonyConfig) Validate() error {
	if err := validateCommon(c.SamplePeriod, c.InitialQuaternion); err != nil {
		return fmt.Errorf("mahony: %w", err)
	}
	if !isFinite(c.Kp) || !isFinite(c.Ki) {
		return fmt.Errorf("mahony: %w: gains must be finite, got kp=%v ki=%v", ErrInvalidConfig, c.Kp, c.Ki)
	}
	return nil
}

// Validate checks both filter configurations and the log level.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if err := c.Madgwick.Validate(); err != nil {
		return err
	}
	return c.Mahony.Validate()
}

// Level parses LogLevel. An empty level means info.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("%w: log level: %s", ErrInvalidConfig, err)
	}
	return level, nil
}

func validateCommon(samplePeriod float64, q Quaternion) error {
	if !(samplePeriod > 0) || math.IsInf(samplePeriod, 0) {
		return fmt.Errorf("%w: sample period must be a positive number of seconds, got %v", ErrInvalidConfig, samplePeriod)
	}
	if n := q.Norm(); n == 0 || !isFinite(n) {
		return fmt.Errorf("%w: initial quaternion %s cannot be normalised", ErrInvalidConfig, q)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseConfig decodes a YAML configuration. Missing fields keep their defaults.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfig reads and decodes the YAML configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// UnmarshalYAML decodes a quaternion from a [w, x, y, z] sequence.
func (q *Quaternion) UnmarshalYAML(value *yaml.Node) error {
	var s []float64
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("quaternion: %w", err)
	}

	p, err := QuaternionFromSlice(s)
	if err != nil {
		return fmt.Errorf("quaternion: %w", err)
	}
	*q = p
	return nil
}

// MarshalYAML encodes a quaternion as a [w, x, y, z] sequence.
func (q Quaternion) MarshalYAML() (interface{}, error) {
	a := q.Array()
	return a[:], nil
}
