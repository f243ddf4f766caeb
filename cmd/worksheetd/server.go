// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/config"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/journal"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/observability"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/solver"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/telemetry"
)

// purgeInterval is how often idle expired proposals are dropped.
const purgeInterval = time.Minute

// run wires the service from cfg and serves until ctx is cancelled.
//
// Description:
//
//	Installs telemetry, opens the journal, builds the Service, and runs the
//	HTTP server, the proposal sweeper and (when source is a file) the config
//	watcher in one errgroup. Cancelling ctx shuts the server down gracefully
//	within Server.ShutdownTimeout.
//
// Outputs:
//
//	error - Setup failure or the first server error. A clean shutdown
//	        returns nil.
func run(ctx context.Context, cfg config.Config, source string) error {
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "error", err)
		}
	}()

	svc, closeSvc, err := buildService(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer closeSvc()

	router := newRouter(svc, cfg)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		slog.Info("Shutting down worksheet server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweepProposals(gctx, svc, purgeInterval)
		return nil
	})
	if source != "" && source != "embedded" {
		watcher, err := config.NewWatcher(source, func(next config.Config) {
			svc.Reconfigure(next.Placement, next.Proposals.TTL)
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "path", source, "error", err)
		} else {
			g.Go(func() error {
				watcher.Start(gctx)
				return nil
			})
		}
	}
	return g.Wait()
}

// buildService assembles a Service and returns a closer for its resources.
func buildService(cfg config.Config, reg prometheus.Registerer) (*worksheet.Service, func(), error) {
	logger := slog.Default().With("component", "worksheet")

	units, verifier, err := solver.FromConfig(cfg.Solver)
	if err != nil {
		return nil, nil, fmt.Errorf("init solver: %w", err)
	}
	if verifier == nil {
		logger.Info("Solver not configured, using offline unit checks")
	}

	jrnl, err := journal.Open(cfg.Journal, logger.With("component", "journal"))
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	svc := worksheet.NewService(worksheet.ServiceConfig{
		Units:       units,
		Verifier:    verifier,
		Placement:   cfg.Placement,
		ProposalTTL: cfg.Proposals.TTL,
		MaxPending:  cfg.Proposals.MaxPending,
		Journal:     jrnl,
		Metrics:     observability.NewMetrics(reg),
		Logger:      logger,
	})
	closer := func() {
		if err := jrnl.Close(); err != nil {
			logger.Warn("journal close error", "error", err)
		}
	}
	return svc, closer, nil
}

// newRouter builds the gin engine with API routes under /v1 and
// Prometheus metrics under /metrics.
func newRouter(svc *worksheet.Service, cfg config.Config) *gin.Engine {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	if cfg.Server.Debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	worksheet.RegisterRoutes(v1, worksheet.NewHandlers(svc))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// sweepProposals purges expired proposals every interval until ctx ends.
func sweepProposals(ctx context.Context, svc *worksheet.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.PurgeExpired()
		}
	}
}
