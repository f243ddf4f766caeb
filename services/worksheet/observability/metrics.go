// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability holds the Prometheus metrics of the worksheet
// service.
//
// # Thread Safety
//
// All methods are safe for concurrent use and are no-ops on a nil *Metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/execute"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/validate"
)

const (
	metricsNamespace   = "provecalc"
	worksheetSubsystem = "worksheet"
)

// Metrics groups the service's collectors.
type Metrics struct {
	// ProposalsTotal counts proposals. Labels: outcome (ready, blocked, empty).
	ProposalsTotal *prometheus.CounterVec

	// VerdictsTotal counts per-command validation verdicts. Labels: status.
	VerdictsTotal *prometheus.CounterVec

	// DroppedTotal counts malformed reply fragments. Labels: kind (block, object).
	DroppedTotal *prometheus.CounterVec

	// BatchesTotal counts executed batches. Labels: outcome (success, partial).
	BatchesTotal *prometheus.CounterVec

	// CommandsTotal counts executed commands. Labels: action, status.
	CommandsTotal *prometheus.CounterVec

	// PendingProposals is the number of proposals awaiting a decision.
	PendingProposals prometheus.Gauge
}

// NewMetrics registers the collectors with reg. A nil reg uses the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ProposalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: worksheetSubsystem,
			Name:      "proposals_total",
			Help:      "Proposals built from model replies by outcome.",
		}, []string{"outcome"}),
		VerdictsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: worksheetSubsystem,
			Name:      "verdicts_total",
			Help:      "Validation verdicts by status.",
		}, []string{"status"}),
		DroppedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: worksheetSubsystem,
			Name:      "dropped_total",
			Help:      "Malformed command blocks and objects skipped by the parser.",
		}, []string{"kind"}),
		BatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: worksheetSubsystem,
			Name:      "batches_total",
			Help:      "Executed batches by outcome.",
		}, []string{"outcome"}),
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: worksheetSubsystem,
			Name:      "commands_total",
			Help:      "Executed commands by action and status.",
		}, []string{"action", "status"}),
		PendingProposals: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: worksheetSubsystem,
			Name:      "pending_proposals",
			Help:      "Proposals awaiting accept or reject.",
		}),
	}
}

// ObserveProposal records a new proposal and its verdicts.
func (m *Metrics) ObserveProposal(results []validate.Result, blocked bool, droppedBlocks, droppedObjects int) {
	if m == nil {
		return
	}
	outcome := "ready"
	switch {
	case len(results) == 0:
		outcome = "empty"
	case blocked:
		outcome = "blocked"
	}
	m.ProposalsTotal.WithLabelValues(outcome).Inc()
	for _, r := range results {
		m.VerdictsTotal.WithLabelValues(string(r.Status)).Inc()
	}
	if droppedBlocks > 0 {
		m.DroppedTotal.WithLabelValues("block").Add(float64(droppedBlocks))
	}
	if droppedObjects > 0 {
		m.DroppedTotal.WithLabelValues("object").Add(float64(droppedObjects))
	}
}

// ObserveBatch records an executed batch.
func (m *Metrics) ObserveBatch(b execute.BatchResult) {
	if m == nil {
		return
	}
	outcome := "success"
	if b.Failed > 0 {
		outcome = "partial"
	}
	m.BatchesTotal.WithLabelValues(outcome).Inc()
	for _, r := range b.Results {
		status := "success"
		if !r.Success {
			status = "error"
		}
		m.CommandsTotal.WithLabelValues(string(r.Action), status).Inc()
	}
}

// SetPending sets the pending proposal gauge.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingProposals.Set(float64(n))
}
