// Package config builds the immutable run configuration from defaults, an
// optional YAML file and command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Sampling period bounds, in seconds. MaxInterval is the largest whole
// number of seconds a time.Duration holds.
const (
	DefaultInterval = 0.5
	MinInterval     = 0.001
	MaxInterval     = float64(math.MaxInt64 / int64(time.Second))
)

var (
	ErrInterval   = errors.New("config: interval must be between 0.001 and 9223372036 seconds")
	ErrPID        = errors.New("config: pids must be > 0")
	ErrCycles     = errors.New("config: cycles must be >= 0")
	ErrFlushEvery = errors.New("config: flush-every must be >= 1")
	ErrAll        = errors.New("config: all cannot be combined with pids or ppids")
)

// Config is the resolved run configuration. Treat it as a value: Clone
// before handing it to code that might retain the slices.
type Config struct {
	PIDs       []int32 `yaml:"pids"`
	PPIDs      []int32 `yaml:"ppids"`
	Prefix     string  `yaml:"fout"`
	Interval   float64 `yaml:"interval"` // seconds
	Cycles     int     `yaml:"cycles"`
	FlushEvery int     `yaml:"flush_every"`
	AssumeYes  bool    `yaml:"yes"`
	All        bool    `yaml:"all"` // every live process, re-listed each cycle
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{Interval: DefaultInterval, FlushEvery: 1}
}

// LoadFile overlays the keys present in a YAML file onto base. Unknown keys
// are rejected.
func LoadFile(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := base.Clone()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil // empty file
		}
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if math.IsNaN(c.Interval) || c.Interval < MinInterval || c.Interval > MaxInterval {
		return fmt.Errorf("%w (got %v)", ErrInterval, c.Interval)
	}
	for _, p := range append(slices.Clone(c.PIDs), c.PPIDs...) {
		if p <= 0 {
			return fmt.Errorf("%w (got %d)", ErrPID, p)
		}
	}
	if c.All && len(c.PIDs)+len(c.PPIDs) > 0 {
		return ErrAll
	}
	if c.Cycles < 0 {
		return fmt.Errorf("%w (got %d)", ErrCycles, c.Cycles)
	}
	if c.FlushEvery < 1 {
		return fmt.Errorf("%w (got %d)", ErrFlushEvery, c.FlushEvery)
	}
	return nil
}

// IntervalDuration returns Interval as a time.Duration.
func (c Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.PIDs = slices.Clone(c.PIDs)
	c.PPIDs = slices.Clone(c.PPIDs)
	return c
}
