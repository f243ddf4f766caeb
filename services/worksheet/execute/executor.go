// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package execute applies validated command batches to a worksheet.
package execute

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

var tracer = otel.Tracer("provecalc.worksheet.execute")

// CommandResult is the outcome of one command.
type CommandResult struct {
	Index   int             `json:"index"`
	Action  commands.Action `json:"action"`
	Success bool            `json:"success"`
	NodeID  string          `json:"node_id,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// BatchResult is the outcome of a whole batch.
//
// Partial success is a normal outcome; nothing applied is rolled back.
type BatchResult struct {
	BatchID   string          `json:"batch_id"`
	Results   []CommandResult `json:"results"`
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}

// Executor applies batches to a document model.
//
// Thread Safety: Executor holds no mutable state. Concurrent batches on
// the same model interleave at command granularity.
type Executor struct {
	model  document.Model
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the provenance clock.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithIDGenerator sets the generator for node and batch IDs.
func WithIDGenerator(gen func() string) Option {
	return func(e *Executor) { e.newID = gen }
}

// New creates an Executor for model.
func New(model document.Model, opts ...Option) *Executor {
	e := &Executor{
		model:  model,
		logger: slog.Default().With("component", "executor"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies cmds in order.
//
// Description:
//
//	Each command runs in isolation: an error or panic from the model is
//	recorded as that command's result and execution moves on to the next
//	command. Node-creating commands get a fresh ID, the planned position
//	for their index, llm provenance stamped with the current time and an
//	unverified status.
//
// Inputs:
//
//	ctx - Passed to verification calls and used for tracing. Execution is
//	      not cancellable once started.
//	cmds - The validated batch.
//	positions - Planned positions keyed by command index.
//
// Outputs:
//
//	BatchResult - One CommandResult per command, in order.
func (e *Executor) Execute(ctx context.Context, cmds []commands.Command, positions map[int]document.Position) BatchResult {
	ctx, span := tracer.Start(ctx, "execute.Batch")
	defer span.End()

	start := e.now()
	batch := BatchResult{
		BatchID: e.newID(),
		Results: make([]CommandResult, 0, len(cmds)),
		Total:   len(cmds),
	}
	for i, cmd := range cmds {
		res := e.apply(ctx, i, cmd, positions)
		if res.Success {
			batch.Succeeded++
		} else {
			batch.Failed++
			e.logger.Warn("command failed",
				"batch_id", batch.BatchID,
				"index", i,
				"action", res.Action,
				"error", res.Error)
		}
		recordCommand(ctx, res.Action, res.Success)
		batch.Results = append(batch.Results, res)
	}
	recordBatch(ctx, e.now().Sub(start), batch.Failed)

	span.SetAttributes(
		attribute.String("batch.id", batch.BatchID),
		attribute.Int("batch.total", batch.Total),
		attribute.Int("batch.succeeded", batch.Succeeded),
		attribute.Int("batch.failed", batch.Failed),
	)
	if batch.Failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d commands failed", batch.Failed, batch.Total))
	}
	return batch
}

func (e *Executor) apply(ctx context.Context, i int, cmd commands.Command, positions map[int]document.Position) (res CommandResult) {
	res = CommandResult{Index: i}
	if cmd == nil {
		res.Error = "nil command"
		return res
	}
	res.Action = cmd.Action()
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	nodeID, err := e.run(ctx, i, cmd, positions)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.NodeID = nodeID
	return res
}

func (e *Executor) run(ctx context.Context, i int, cmd commands.Command, positions map[int]document.Position) (string, error) {
	if node, ok := commands.NewNode(cmd); ok {
		node.ID = e.newID()
		node.Position = positions[i]
		node.Provenance = document.Provenance{Type: document.ProvenanceLLM, Timestamp: e.now()}
		node.Verification = document.Verification{Status: document.VerificationUnverified}
		if err := e.model.InsertNode(node); err != nil {
			return "", err
		}
		return node.ID, nil
	}

	switch c := cmd.(type) {
	case *commands.UpdateNode:
		return c.NodeID, e.model.UpdateNode(c.NodeID, c.Updates)
	case *commands.DeleteNode:
		return c.NodeID, e.model.DeleteNode(c.NodeID)
	case *commands.AddAssumption:
		return e.model.AddAssumption(c.Statement, c.FormalExpression, c.Scope)
	case *commands.RemoveAssumption:
		return "", e.model.RemoveAssumption(c.AssumptionID)
	case *commands.VerifyNode:
		return c.NodeID, e.model.VerifyNode(ctx, c.NodeID)
	case *commands.VerifyAll:
		return "", e.model.VerifyAllNodes(ctx)
	}
	return "", fmt.Errorf("%w: %s", commands.ErrUnknownAction, cmd.Action())
}
