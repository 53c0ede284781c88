// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config holds the YAML configuration of the lcd160x command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/aZholtikov/zh-160x-i2c/lcd160x"
	"gopkg.in/yaml.v3"
)

// Screen kinds.
const (
	KindText     = "text"
	KindClock    = "clock"
	KindProgress = "progress"
)

// Screen is one row refreshed by the watch command.
type Screen struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
	// Kind is "text", "clock" or "progress".
	Kind string `yaml:"kind"`
	// Text is printed as is for "text", and is the time layout for "clock".
	Text string `yaml:"text"`
	// Span is the period a "progress" bar fills over, "minute" or "hour".
	Span string `yaml:"span,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	// Bus is the periph I²C bus name; empty selects the first bus.
	Bus string `yaml:"bus"`
	// Address of the PCF8574 backpack.
	Address uint16 `yaml:"address"`
	// Variant is "16x2" or "16x4".
	Variant string `yaml:"variant"`
	// PulseWidth is the enable pulse hold time.
	PulseWidth time.Duration `yaml:"pulse_width"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`

	// Refresh is a cron schedule with a seconds field, e.g. "*/5 * * * * *".
	Refresh string   `yaml:"refresh"`
	Screens []Screen `yaml:"screens"`
}

const (
	defaultAddress uint16 = 0x27
	defaultRefresh        = "*/1 * * * * *"
)

// Default returns the in-memory default configuration.
func Default() *Config {
	return &Config{
		Address:    defaultAddress,
		Variant:    string(lcd160x.LCD16x2),
		PulseWidth: lcd160x.DefaultPulseWidth,
		LogLevel:   "info",
		LogFormat:  "text",
		Refresh:    defaultRefresh,
		Screens: []Screen{
			{Row: 0, Kind: KindClock, Text: "15:04:05"},
			{Row: 1, Kind: KindProgress, Span: "minute"},
		},
	}
}

// Normalize fills in zero values with defaults.
func (c *Config) Normalize() {
	if c.Address == 0 {
		c.Address = defaultAddress
	}
	if c.Variant == "" {
		c.Variant = string(lcd160x.LCD16x2)
	}
	if c.PulseWidth <= 0 {
		c.PulseWidth = lcd160x.DefaultPulseWidth
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Refresh == "" {
		c.Refresh = defaultRefresh
	}
	for ix := range c.Screens {
		s := &c.Screens[ix]
		if s.Kind == "" {
			s.Kind = KindText
		}
		if s.Kind == KindProgress && s.Span == "" {
			s.Span = "minute"
		}
	}
}

// Validate checks the values Normalize can't fix.
func (c *Config) Validate() error {
	variant, err := lcd160x.ParseVariant(c.Variant)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Address > 0x7f {
		return fmt.Errorf("config: address 0x%x is not a 7 bit I²C address", c.Address)
	}
	for ix, s := range c.Screens {
		if s.Row < 0 || s.Row >= variant.Rows() {
			return fmt.Errorf("config: screen %d: row %d out of range for %s", ix, s.Row, variant)
		}
		if s.Col < 0 || s.Col >= lcd160x.Cols {
			return fmt.Errorf("config: screen %d: column %d out of range", ix, s.Col)
		}
		switch s.Kind {
		case KindText, KindClock:
		case KindProgress:
			if s.Span != "minute" && s.Span != "hour" {
				return fmt.Errorf("config: screen %d: unknown span %q", ix, s.Span)
			}
		default:
			return fmt.Errorf("config: screen %d: unknown kind %q", ix, s.Kind)
		}
	}
	return nil
}

// Load reads the configuration at path. If the file does not exist, the
// default configuration is written there and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return cfg, Save(path, cfg)
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".lcd160x-config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
