// Public domain.

// Package config loads reduction settings from YAML.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/soniakeys/unit"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/tscorr/internal/jump"
	"github.com/soniakeys/tscorr/internal/readout"
)

// Config holds the settings for reducing integrations.
type Config struct {
	Jumps   JumpConfig  `yaml:"jumps"`
	Drifts  DriftConfig `yaml:"drifts"`
	Workers int         `yaml:"workers"` // 0 means GOMAXPROCS
}

// JumpConfig controls flux jump correction.
type JumpConfig struct {
	// Fix, when set, applies to every subarray and overrides Subarrays.
	Fix       *bool           `yaml:"fix"`
	Subarrays map[string]bool `yaml:"subarrays"`
	MinLength string          `yaml:"min_length"` // shorter blocks are flagged
	// Mode, level or precomputed, when set applies to every subarray and
	// overrides Modes.  Unset, subarrays not in Modes are leveled.
	Mode  string            `yaml:"mode"`
	Modes map[string]string `yaml:"modes"`
	Table string            `yaml:"table"` // jump size table file

	minLength time.Duration
	mode      jump.Mode
	modes     map[string]jump.Mode
}

// DriftConfig controls pointing drift correction.
type DriftConfig struct {
	Correct bool    `yaml:"correct"`
	Require bool    `yaml:"require"` // an empty drift table is an error
	Max     float64 `yaml:"max"`     // arcsec, larger drifts skip the pass; 0 disables the gate
}

// Default returns the settings used when no file is given.
func Default() *Config {
	c := &Config{
		Jumps: JumpConfig{
			MinLength: "5s",
		},
		Drifts: DriftConfig{
			Correct: true,
			Max:     60,
		},
	}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}

// Load reads a YAML file.  Settings missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse reads settings from YAML text.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if strings.TrimSpace(c.Jumps.MinLength) == "" {
		c.Jumps.MinLength = def.Jumps.MinLength
	}
}

// Validate checks values and prepares derived settings.
func (c *Config) Validate() error {
	m, err := parseMode(c.Jumps.Mode)
	if err != nil {
		return err
	}
	c.Jumps.mode = m
	c.Jumps.modes = make(map[string]jump.Mode, len(c.Jumps.Modes))
	for name, s := range c.Jumps.Modes {
		if m, err = parseMode(s); err != nil {
			return fmt.Errorf("%w, subarray %s", err, name)
		}
		c.Jumps.modes[name] = m
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.Jumps.MinLength))
	if err != nil {
		return fmt.Errorf("config: jumps min_length: %w", err)
	}
	if d < 0 {
		return errors.New("config: negative jumps min_length")
	}
	c.Jumps.minLength = d
	if c.Drifts.Max < 0 || math.IsNaN(c.Drifts.Max) {
		return errors.New("config: negative drifts max")
	}
	if c.Workers < 0 {
		return errors.New("config: negative workers")
	}
	return nil
}

// parseMode reads a mode name.  Empty is level.
func parseMode(s string) (jump.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "level":
		return jump.LevelMode, nil
	case "precomputed":
		return jump.PrecomputedMode, nil
	}
	return 0, fmt.Errorf("config: unknown jump mode %q", s)
}

// FixGroup reports whether jumps are to be fixed in the named subarray.
// The global flag takes precedence; unlisted subarrays are fixed.
func (c *Config) FixGroup(name string) bool {
	if c.Jumps.Fix != nil {
		return *c.Jumps.Fix
	}
	if fix, ok := c.Jumps.Subarrays[name]; ok {
		return fix
	}
	return true
}

// Mode returns the global jump correction mode.
func (c *Config) Mode() jump.Mode { return c.Jumps.mode }

// GroupMode returns the jump correction mode of the named subarray with
// the same precedence as FixGroup.
func (c *Config) GroupMode(name string) jump.Mode {
	if strings.TrimSpace(c.Jumps.Mode) != "" {
		return c.Jumps.mode
	}
	if m, ok := c.Jumps.modes[name]; ok {
		return m
	}
	return c.Jumps.mode
}

// MinLength returns the leveling threshold as a duration.
func (c *Config) MinLength() time.Duration { return c.Jumps.minLength }

// MinLevelFrames converts the leveling threshold to frames at the given
// sampling interval, rounding to nearest.
func (c *Config) MinLevelFrames(interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int(math.Round(float64(c.Jumps.minLength) / float64(interval)))
}

// MaxDrift returns the drift gate, 0 for none.
func (c *Config) MaxDrift() unit.Angle { return unit.AngleFromSec(c.Drifts.Max) }

// Groups returns the jump policy for each subarray of in.
func (c *Config) Groups(in readout.Instrument) []jump.Group {
	g := make([]jump.Group, len(in.Subarrays))
	for i, name := range in.Subarrays {
		g[i] = jump.Group{Fix: c.FixGroup(name), Mode: c.GroupMode(name)}
	}
	return g
}

// Engine returns a jump engine configured for integrations of in.
func (c *Config) Engine(in readout.Instrument) *jump.Engine {
	return &jump.Engine{
		Groups:         c.Groups(in),
		Default:        jump.Group{Fix: c.FixGroup(""), Mode: c.GroupMode("")},
		MinLevelFrames: c.MinLevelFrames(in.SamplingInterval),
		Workers:        c.Workers,
	}
}
