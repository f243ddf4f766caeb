// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command worksheetd serves the worksheet command protocol over HTTP.
//
// Usage:
//
//	go run ./cmd/worksheetd
//	go run ./cmd/worksheetd -config ./worksheet.yaml -port 9090
//
// Example requests:
//
//	# Create a worksheet
//	curl -X POST http://localhost:8087/v1/worksheets -d '{}'
//
//	# Propose an assistant reply
//	curl -X POST http://localhost:8087/v1/worksheets/ID/proposals \
//	  -H "Content-Type: application/json" \
//	  -d '{"reply": "```worksheet\n[{\"action\":\"add_text\",\"content\":\"...\"}]\n```"}'
//
//	# Accept it
//	curl -X POST http://localhost:8087/v1/worksheets/ID/proposals/PID/accept
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mnehmos/provecalc-website-sub000/pkg/logging"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/config"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, source, err := config.Load(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = logging.LevelDebug
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	slog.SetDefault(logger.Slog())
	slog.Info("Starting worksheetd", "config", source, "port", cfg.Server.Port)

	if err := run(ctx, cfg, source); err != nil {
		slog.Error("worksheetd stopped", "error", err)
		logger.Close()
		os.Exit(1)
	}
	slog.Info("worksheetd stopped")
}
