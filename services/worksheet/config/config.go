// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the worksheet service configuration.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/Mnehmos/provecalc-website-sub000/pkg/logging"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/placement"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/solver"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/storage/badger"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/telemetry"
)

// EnvPath names the environment variable holding an override file path.
const EnvPath = "PROVECALC_CONFIG"

// MaxFileSize bounds override files.
const MaxFileSize = 1 << 20

//go:embed worksheet.yaml
var defaultYAML []byte

var configTracer = otel.Tracer("provecalc.worksheet.config")

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig        `yaml:"server"`
	Solver    solver.ClientConfig `yaml:"solver"`
	Placement placement.Config    `yaml:"placement"`
	Proposals ProposalConfig      `yaml:"proposals"`
	Journal   badger.Config       `yaml:"journal"`
	Telemetry telemetry.Config    `yaml:"telemetry"`
	Logging   logging.Config      `yaml:"logging"`
}

// ServerConfig configures the HTTP daemon.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Debug           bool          `yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProposalConfig bounds pending proposals.
type ProposalConfig struct {
	// TTL is how long a proposal may wait for accept or reject.
	TTL time.Duration `yaml:"ttl"`

	// MaxPending caps pending proposals per service; the oldest is evicted.
	MaxPending int `yaml:"max_pending"`
}

// Default returns the embedded configuration.
func Default() Config {
	cfg, err := Parse(context.Background(), nil)
	if err != nil {
		// The embedded file is covered by tests.
		panic(fmt.Sprintf("embedded worksheet.yaml: %v", err))
	}
	return cfg
}

// Parse layers data over the embedded defaults and validates the result.
// Nil or empty data yields the defaults.
func Parse(ctx context.Context, data []byte) (Config, error) {
	_, span := configTracer.Start(ctx, "config.Parse",
		trace.WithAttributes(attribute.Int("yaml_size", len(data))),
	)
	defer span.End()

	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse embedded config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the configuration.
//
// Description:
//
//	path wins when non-empty. Otherwise PROVECALC_CONFIG is used, then
//	./config/worksheet.yaml and ./worksheet.yaml if present. With no file
//	the embedded defaults are returned. An explicitly named file that
//	cannot be read is an error; a missing candidate file is not.
//
// Outputs:
//
//	Config - The validated configuration.
//	string - The file used, or "embedded".
//	error - Non-nil on unreadable, oversized or invalid files.
func Load(ctx context.Context, path string) (Config, string, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvPath); env != "" {
			path, explicit = env, true
		}
	}
	if !explicit {
		for _, candidate := range []string{"./config/worksheet.yaml", "./worksheet.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		cfg, err := Parse(ctx, nil)
		return cfg, "embedded", err
	}

	data, err := readFile(path)
	if err != nil {
		return Config{}, "", err
	}
	cfg, err := Parse(ctx, data)
	if err != nil {
		return Config{}, "", fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("config loaded", "path", path)
	return cfg, path, nil
}

func readFile(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Solver.Timeout < 0 || c.Solver.RequestsPerSecond < 0 || c.Solver.CacheTTL < 0 {
		errs = append(errs, errors.New("solver durations and rates must not be negative"))
	}
	if err := c.Placement.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Proposals.TTL <= 0 {
		errs = append(errs, errors.New("proposals ttl must be positive"))
	}
	if c.Proposals.MaxPending <= 0 {
		errs = append(errs, errors.New("proposals max_pending must be positive"))
	}
	if err := c.Journal.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
