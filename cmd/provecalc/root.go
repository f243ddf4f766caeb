// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mnehmos/provecalc-website-sub000/pkg/logging"
	"github.com/Mnehmos/provecalc-website-sub000/pkg/ux"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/config"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/solver"
)

// maxReplyBytes bounds reply files and stdin.
const maxReplyBytes = 4 << 20

// errBlocked is returned by apply when validation blocks the batch. The
// verdicts have already been printed.
var errBlocked = errors.New("batch blocked by invalid commands")

// cli carries state shared by every subcommand.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	outputMode string
	logLevel   string

	printer *ux.Printer
	logger  *logging.Logger
}

// newRootCmd builds the command tree bound to the given streams.
func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "provecalc",
		Short:         "Inspect, validate and apply assistant worksheet commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVarP(&c.outputMode, "output", "o", "", "Output mode: rich, plain or machine")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(
		c.normalizeCmd(),
		c.varsCmd(),
		c.parseCmd(),
		c.checkCmd(),
		c.applyCmd(),
		c.historyCmd(),
	)
	return root
}

func (c *cli) setup() error {
	mode := ux.ParseMode(c.outputMode)
	if c.outputMode == "" {
		mode = ux.ModeMachine
		if f, ok := c.out.(*os.File); ok {
			mode = ux.DetectMode(f)
		}
	}
	c.printer = ux.NewPrinter(c.out, mode)

	level, err := logging.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{
		Level:   level,
		Service: "provecalc",
		Output:  c.errOut,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	c.logger = logger
	slog.SetDefault(logger.Slog())
	return nil
}

// run executes the command tree with args and returns the process exit code.
// Errors other than errBlocked are written to errOut.
func run(args []string, in io.Reader, out, errOut io.Writer) int {
	root := newRootCmd(in, out, errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errBlocked) {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *cli) teardown() {
	if c.logger != nil {
		c.logger.Close()
	}
}

// newService builds an in-process Service from the loaded configuration.
func (c *cli) newService(cmd *cobra.Command) (*worksheet.Service, error) {
	cfg, source, err := config.Load(cmd.Context(), c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	units, verifier, err := solver.FromConfig(cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("init solver: %w", err)
	}
	logger := slog.Default().With("component", "worksheet")
	logger.Debug("config loaded", "source", source, "solver", cfg.Solver.BaseURL)
	return worksheet.NewService(worksheet.ServiceConfig{
		Units:       units,
		Verifier:    verifier,
		Placement:   cfg.Placement,
		ProposalTTL: cfg.Proposals.TTL,
		MaxPending:  cfg.Proposals.MaxPending,
		Logger:      logger,
	}), nil
}

// readReply reads the reply named by args: a path, "-" or nothing for stdin.
func (c *cli) readReply(args []string) (string, error) {
	var r io.Reader = c.in
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", fmt.Errorf("open reply: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return string(data), nil
}
