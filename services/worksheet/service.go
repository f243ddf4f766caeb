// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package worksheet runs the command pipeline for AI-assisted worksheet
// editing: a model reply is parsed into commands, references are resolved,
// the batch is validated and held as a proposal, and an accepted proposal
// is placed on the canvas, executed and journaled.
package worksheet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/execute"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/journal"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/observability"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/placement"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/resolve"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/solver"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/validate"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

var tracer = otel.Tracer("provecalc.worksheet")

// ServiceConfig wires the collaborators of a Service. Zero values select
// in-process defaults.
type ServiceConfig struct {
	// Units checks unit strings. Nil selects the offline checker.
	Units solver.UnitChecker

	// Verifier is attached to every worksheet model. Nil marks verified
	// nodes pending.
	Verifier document.Verifier

	Placement placement.Config

	// ProposalTTL defaults to 15 minutes.
	ProposalTTL time.Duration

	// MaxPending defaults to 256.
	MaxPending int

	// Journal records executed batches. Nil disables history.
	Journal journal.Journal

	// Metrics may be nil.
	Metrics *observability.Metrics

	Logger *slog.Logger
}

// DefaultServiceConfig returns an offline, journal-less configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Placement:   placement.DefaultConfig(),
		ProposalTTL: 15 * time.Minute,
		MaxPending:  256,
	}
}

// Service holds worksheets and their pending proposals.
//
// Thread Safety: Safe for concurrent use. Batches on one worksheet are
// applied one at a time.
type Service struct {
	cfg       ServiceConfig
	resolver  *resolve.Resolver
	validator *validate.Validator
	tuning    atomic.Pointer[tuning]
	proposals *proposalStore
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.RWMutex
	worksheets map[string]*sheet
}

// tuning holds the settings Reconfigure may swap at runtime.
type tuning struct {
	planner *placement.Planner
	ttl     time.Duration
}

// sheet serializes accepts on one worksheet.
type sheet struct {
	model *document.MemoryModel
	apply sync.Mutex
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	def := DefaultServiceConfig()
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = def.ProposalTTL
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = def.MaxPending
	}
	if cfg.Placement == (placement.Config{}) {
		cfg.Placement = def.Placement
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "worksheet")
	}
	s := &Service{
		cfg:        cfg,
		resolver:   resolve.New(resolve.WithLogger(logger)),
		validator:  validate.New(cfg.Units, validate.WithLogger(logger)),
		proposals:  newProposalStore(cfg.MaxPending),
		logger:     logger,
		now:        time.Now,
		worksheets: make(map[string]*sheet),
	}
	s.tuning.Store(&tuning{planner: placement.NewPlanner(cfg.Placement, logger), ttl: cfg.ProposalTTL})
	return s
}

// Reconfigure swaps the placement settings and proposal TTL used from now
// on. Pending proposals keep their expiry. A non-positive ttl keeps the
// current one.
//
// Thread Safety: Safe to call while requests are in flight.
func (s *Service) Reconfigure(cfg placement.Config, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.tuning.Load().ttl
	}
	s.tuning.Store(&tuning{planner: placement.NewPlanner(cfg, s.logger), ttl: ttl})
	s.logger.Info("worksheet service reconfigured", "proposal_ttl", ttl, "grid", cfg.Grid)
}

// CreateWorksheet registers a worksheet, optionally seeded from a snapshot.
//
// Outputs:
//
//	string - The new worksheet ID.
//	error - Non-nil if the snapshot holds invalid nodes.
func (s *Service) CreateWorksheet(seed *document.Snapshot) (string, error) {
	model := document.NewMemoryModel(
		document.WithVerifier(s.cfg.Verifier),
		document.WithLogger(s.logger),
	)
	if seed != nil {
		if err := model.Restore(*seed); err != nil {
			return "", fmt.Errorf("seed worksheet: %w", err)
		}
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.worksheets[id] = &sheet{model: model}
	s.mu.Unlock()
	s.logger.Info("worksheet created", "worksheet_id", id, "nodes", len(model.Nodes()))
	return id, nil
}

// Snapshot returns a worksheet's current state.
func (s *Service) Snapshot(id string) (document.Snapshot, error) {
	sh, err := s.sheet(id)
	if err != nil {
		return document.Snapshot{}, err
	}
	return sh.model.Snapshot(), nil
}

func (s *Service) sheet(id string) (*sheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.worksheets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorksheetNotFound, id)
	}
	return sh, nil
}

// Propose turns a model reply into a validated proposal.
//
// Description:
//
//	Parses the reply, resolves references against the worksheet, validates
//	the batch and stores the result as a pending proposal. A reply without
//	commands yields a proposal with no commands; it is still returned so
//	the caller gets the prose.
//
// Inputs:
//
//	ctx - Cancelling it abandons validation.
//	worksheetID - Target worksheet.
//	reply - The raw assistant reply.
//
// Outputs:
//
//	*Proposal - The stored proposal.
//	error - ErrWorksheetNotFound, ErrEmptyReply or the context error.
func (s *Service) Propose(ctx context.Context, worksheetID, reply string) (*Proposal, error) {
	ctx, span := tracer.Start(ctx, "worksheet.Propose",
		trace.WithAttributes(attribute.String("worksheet_id", worksheetID)),
	)
	defer span.End()

	if strings.TrimSpace(reply) == "" {
		return nil, ErrEmptyReply
	}
	sh, err := s.sheet(worksheetID)
	if err != nil {
		return nil, err
	}

	report := commands.ParseWithReport(reply)
	rewritten := s.resolver.ResolveBatch(report.Commands, sh.model)
	results, err := s.validator.ValidateBatch(ctx, report.Commands, sh.model)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation abandoned")
		return nil, fmt.Errorf("validate batch: %w", err)
	}

	now := s.now()
	p := &Proposal{
		ID:             uuid.NewString(),
		WorksheetID:    worksheetID,
		Commands:       report.Commands,
		Results:        results,
		Blocked:        validate.HasInvalidCommands(results),
		Prose:          commands.StripCommandBlocks(reply),
		DroppedBlocks:  report.DroppedBlocks,
		DroppedObjects: report.DroppedObjects,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.tuning.Load().ttl),
	}
	s.proposals.purge(now)
	if evicted := s.proposals.put(p); evicted > 0 {
		s.logger.Warn("pending proposals evicted", "count", evicted)
	}
	s.cfg.Metrics.ObserveProposal(results, p.Blocked, report.DroppedBlocks, report.DroppedObjects)
	s.cfg.Metrics.SetPending(s.proposals.len())

	span.SetAttributes(
		attribute.String("proposal_id", p.ID),
		attribute.Int("commands", len(p.Commands)),
		attribute.Int("references_resolved", rewritten),
		attribute.Bool("blocked", p.Blocked),
	)
	s.logger.Info("proposal created",
		"worksheet_id", worksheetID,
		"proposal_id", p.ID,
		"commands", len(p.Commands),
		"blocked", p.Blocked)
	return p, nil
}

// Proposal returns a pending proposal.
func (s *Service) Proposal(worksheetID, proposalID string) (*Proposal, error) {
	p, ok := s.proposals.get(proposalID)
	if !ok || p.WorksheetID != worksheetID {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	if !s.now().Before(p.ExpiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrProposalExpired, proposalID)
	}
	return p, nil
}

// Accept applies a pending proposal.
//
// Description:
//
//	The proposal is consumed whether or not it can be applied. Blocked and
//	expired proposals are refused. Otherwise positions are planned against
//	the current worksheet, the batch is executed with per-command
//	isolation and the outcome is journaled. A journal failure is logged
//	and does not undo the batch.
//
// Outputs:
//
//	execute.BatchResult - Per-command outcomes.
//	error - ErrWorksheetNotFound, ErrProposalNotFound, ErrProposalExpired
//	        or ErrProposalBlocked.
func (s *Service) Accept(ctx context.Context, worksheetID, proposalID string) (execute.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "worksheet.Accept",
		trace.WithAttributes(
			attribute.String("worksheet_id", worksheetID),
			attribute.String("proposal_id", proposalID),
		),
	)
	defer span.End()

	sh, err := s.sheet(worksheetID)
	if err != nil {
		return execute.BatchResult{}, err
	}
	p, ok := s.proposals.get(proposalID)
	if !ok || p.WorksheetID != worksheetID {
		return execute.BatchResult{}, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	if _, ok := s.proposals.take(proposalID); !ok {
		// Lost a race with another accept or reject.
		return execute.BatchResult{}, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	s.cfg.Metrics.SetPending(s.proposals.len())
	if !s.now().Before(p.ExpiresAt) {
		return execute.BatchResult{}, fmt.Errorf("%w: %s", ErrProposalExpired, proposalID)
	}
	if p.Blocked {
		return execute.BatchResult{}, fmt.Errorf("%w: %s", ErrProposalBlocked, proposalID)
	}

	sh.apply.Lock()
	positions := s.tuning.Load().planner.Plan(p.Commands, sh.model)
	result := execute.New(sh.model, execute.WithLogger(s.logger)).Execute(ctx, p.Commands, positions)
	sh.apply.Unlock()

	s.cfg.Metrics.ObserveBatch(result)
	if s.cfg.Journal != nil {
		if _, err := s.cfg.Journal.Record(ctx, worksheetID, result); err != nil {
			span.RecordError(err)
			s.logger.Error("journal batch failed",
				"worksheet_id", worksheetID,
				"batch_id", result.BatchID,
				"error", err)
		}
	}

	span.SetAttributes(
		attribute.String("batch_id", result.BatchID),
		attribute.Int("succeeded", result.Succeeded),
		attribute.Int("failed", result.Failed),
	)
	s.logger.Info("proposal applied",
		"worksheet_id", worksheetID,
		"proposal_id", proposalID,
		"batch_id", result.BatchID,
		"succeeded", result.Succeeded,
		"failed", result.Failed)
	return result, nil
}

// Reject discards a pending proposal.
func (s *Service) Reject(worksheetID, proposalID string) error {
	p, ok := s.proposals.get(proposalID)
	if !ok || p.WorksheetID != worksheetID {
		return fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	if _, ok := s.proposals.take(proposalID); !ok {
		return fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	s.cfg.Metrics.SetPending(s.proposals.len())
	s.logger.Info("proposal rejected", "worksheet_id", worksheetID, "proposal_id", proposalID)
	return nil
}

// History lists executed batches for a worksheet, newest first.
func (s *Service) History(ctx context.Context, worksheetID string, limit int) ([]journal.Entry, error) {
	if _, err := s.sheet(worksheetID); err != nil {
		return nil, err
	}
	if s.cfg.Journal == nil {
		return []journal.Entry{}, nil
	}
	entries, err := s.cfg.Journal.List(ctx, worksheetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// PendingProposals reports how many proposals await a decision.
func (s *Service) PendingProposals() int {
	return s.proposals.len()
}

// PurgeExpired drops proposals whose TTL has passed and returns how many
// were dropped. Propose also purges, so calling this is only needed to
// release memory on an idle service.
func (s *Service) PurgeExpired() int {
	n := s.proposals.purge(s.now())
	if n > 0 {
		s.logger.Debug("expired proposals purged", "count", n)
		s.cfg.Metrics.SetPending(s.proposals.len())
	}
	return n
}
