// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package execute

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
)

var meter = otel.Meter("provecalc.worksheet.execute")

var (
	commandTotal  metric.Int64Counter
	batchTotal    metric.Int64Counter
	batchDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

var metricsEnabled atomic.Bool

func init() {
	metricsEnabled.Store(true)
}

// SetMetricsEnabled controls whether executor metrics are recorded.
//
// Thread Safety: Safe for concurrent use.
func SetMetricsEnabled(enabled bool) {
	metricsEnabled.Store(enabled)
}

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		commandTotal, err = meter.Int64Counter(
			"worksheet_execute_commands_total",
			metric.WithDescription("Commands applied, by action and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchTotal, err = meter.Int64Counter(
			"worksheet_execute_batches_total",
			metric.WithDescription("Batches executed, by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchDuration, err = meter.Float64Histogram(
			"worksheet_execute_batch_duration_seconds",
			metric.WithDescription("Time to apply one batch"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordCommand(ctx context.Context, action commands.Action, success bool) {
	if !metricsEnabled.Load() {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	commandTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(action)),
		attribute.String("status", status(success)),
	))
}

// recordBatch records one batch. A batch with any failed command counts
// as partial.
func recordBatch(ctx context.Context, d time.Duration, failed int) {
	if !metricsEnabled.Load() {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	outcome := "success"
	if failed > 0 {
		outcome = "partial"
	}
	attrs := metric.WithAttributes(attribute.String("status", outcome))
	batchTotal.Add(ctx, 1, attrs)
	batchDuration.Record(ctx, d.Seconds(), attrs)
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
