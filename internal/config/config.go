package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Activation failure policies
const (
	OnActivationHalt    = "halt"
	OnActivationAdvance = "advance"
)

type Config struct {
	StoryPath       string        `yaml:"story"`
	StartSlide      int           `yaml:"startSlide"` // 1-based, 0 = first
	Script          []string      `yaml:"script"`
	TickInterval    time.Duration `yaml:"tick"`
	DefaultDuration time.Duration `yaml:"defaultDuration"`
	Queue           QueueParams   `yaml:"queue"`
	Debug           bool          `yaml:"debug"`
	ShowStats       bool          `yaml:"-"`
	BuildVersion    string        `yaml:"-"`
}

// QueueParams tune the animation queue
type QueueParams struct {
	SpeedUpDuration   time.Duration `yaml:"speedUp"`
	OnActivationError string        `yaml:"onActivationError"`
}

func Default() *Config {
	return &Config{
		TickInterval:    16 * time.Millisecond,
		DefaultDuration: time.Second,
		Queue:           DefaultQueueParams(),
	}
}

func DefaultQueueParams() QueueParams {
	return QueueParams{
		SpeedUpDuration:   500 * time.Millisecond,
		OnActivationError: OnActivationHalt,
	}
}

// Load reads a YAML config file over the defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.Errorf("tick must be positive, got %v", c.TickInterval)
	}
	if c.DefaultDuration < 0 {
		return errors.Errorf("defaultDuration must not be negative, got %v", c.DefaultDuration)
	}
	return c.Queue.Validate()
}

func (p QueueParams) Validate() error {
	// The queue treats zero as unset and falls back to the default
	if p.SpeedUpDuration <= 0 {
		return errors.Errorf("speedUp must be positive, got %v", p.SpeedUpDuration)
	}
	switch p.OnActivationError {
	case "", OnActivationHalt, OnActivationAdvance:
		return nil
	default:
		return errors.Errorf("unknown activation failure policy %q", p.OnActivationError)
	}
}
