// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/mathnorm"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/solver"
)

var tracer = otel.Tracer("provecalc.worksheet.validate")

// Validator checks command batches against a document.
//
// Thread Safety: Safe for concurrent use if the UnitChecker is.
type Validator struct {
	units  solver.UnitChecker
	logger *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the validator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Validator. A nil UnitChecker falls back to the offline checker.
func New(units solver.UnitChecker, opts ...Option) *Validator {
	if units == nil {
		units = solver.NewOfflineChecker()
	}
	v := &Validator{
		units:  units,
		logger: slog.Default().With("component", "validate"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// batchScope is what the per-command checks may look at.
type batchScope struct {
	nodes       []document.Node
	assumptions []document.Assumption
	known       map[string]struct{}
	seenSymbols map[string]struct{}
}

// ValidateBatch returns one Result per command, in order.
//
// Description:
//
//	Commands are checked sequentially against doc as it stands; references
//	must already be resolved. After the per-command checks the
//	completeness policy runs over the whole batch. Unit checks that cannot
//	reach the solver yield StatusUnchecked, which does not block.
//
// Inputs:
//
//	ctx - Cancelling it abandons validation (the proposal was rejected).
//	cmds - The resolved batch.
//	doc - The live document.
//
// Outputs:
//
//	[]Result - Same length and order as cmds.
//	error - ctx.Err() when cancelled; nil otherwise.
func (v *Validator) ValidateBatch(ctx context.Context, cmds []commands.Command, doc document.Reader) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "validate.Validator.ValidateBatch",
		trace.WithAttributes(attribute.Int("batch.size", len(cmds))),
	)
	defer span.End()

	scope := newBatchScope(cmds, doc)
	results := make([]Result, len(cmds))
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation cancelled")
			return nil, err
		}
		results[i] = v.validateOne(ctx, cmd, scope)
		if c, ok := cmd.(*commands.AddGiven); ok {
			scope.seenSymbols[strings.TrimSpace(c.Symbol)] = struct{}{}
		}
	}
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation cancelled")
		return nil, err
	}

	missing := CheckCompleteness(cmds, scope.nodes, results)
	counts := Summary(results)
	blocked := HasInvalidCommands(results)
	span.SetAttributes(
		attribute.Int("results.invalid", counts[StatusInvalid]),
		attribute.Int("results.warning", counts[StatusWarning]),
		attribute.Int("results.unchecked", counts[StatusUnchecked]),
		attribute.Bool("batch.blocked", blocked),
	)
	v.logger.Info("batch validated",
		"commands", len(cmds),
		"valid", counts[StatusValid],
		"warning", counts[StatusWarning],
		"invalid", counts[StatusInvalid],
		"unchecked", counts[StatusUnchecked],
		"missing", missing,
		"blocked", blocked,
	)
	return results, nil
}

func newBatchScope(cmds []commands.Command, doc document.Reader) *batchScope {
	s := &batchScope{
		nodes:       doc.Nodes(),
		assumptions: doc.Assumptions(),
		known:       make(map[string]struct{}),
		seenSymbols: make(map[string]struct{}),
	}
	for _, n := range s.nodes {
		switch {
		case n.Type.DefinesSymbol() && n.Symbol != "":
			s.known[n.Symbol] = struct{}{}
		case n.Type == document.NodeEquation:
			for _, name := range document.Variables(n) {
				s.known[name] = struct{}{}
			}
		}
	}
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case *commands.AddGiven:
			s.known[strings.TrimSpace(c.Symbol)] = struct{}{}
		case *commands.AddEquation:
			for _, name := range mathnorm.ExtractVariables(document.CanonicalEquation(c.LHS, c.RHS)) {
				s.known[name] = struct{}{}
			}
		}
	}
	return s
}

func (v *Validator) validateOne(ctx context.Context, cmd commands.Command, s *batchScope) Result {
	r := Result{Status: StatusValid}
	switch c := cmd.(type) {
	case *commands.AddGiven:
		symbol := strings.TrimSpace(c.Symbol)
		if symbol == "" {
			r.merge(StatusInvalid, "given needs a symbol")
			return r
		}
		if strings.TrimSpace(c.Unit) != "" {
			v.checkUnit(ctx, c.Unit, &r)
		}
		_, inBatch := s.seenSymbols[symbol]
		if inBatch || document.HasSymbol(s.nodes, symbol) {
			r.merge(StatusWarning, fmt.Sprintf("symbol %q is already defined", symbol))
		}

	case *commands.AddEquation:
		var empty []string
		if strings.TrimSpace(c.LHS) == "" {
			empty = append(empty, "left-hand side")
		}
		if strings.TrimSpace(c.RHS) == "" {
			empty = append(empty, "right-hand side")
		}
		if len(empty) > 0 {
			r.merge(StatusInvalid, "equation has an empty "+strings.Join(empty, " and "))
		}

	case *commands.AddConstraint:
		if strings.TrimSpace(c.Expression) == "" {
			r.merge(StatusInvalid, "constraint expression is empty")
			return r
		}
		check := constraintCheck(c.Expression, s.known)
		r.Details = &Details{Constraint: check}
		if len(check.Undefined) > 0 {
			r.merge(StatusWarning, "constraint uses undefined variables: "+strings.Join(check.Undefined, ", "))
		}

	case *commands.AddSolveGoal:
		if strings.TrimSpace(c.TargetSymbol) == "" {
			r.merge(StatusInvalid, "solve goal needs a target symbol")
		}

	case *commands.UpdateNode:
		node, ok := document.FindNode(s.nodes, c.NodeID)
		if !ok {
			r.merge(StatusInvalid, fmt.Sprintf("node %q not found", c.NodeID))
			return r
		}
		for _, field := range sortedKeys(c.Updates) {
			if !document.SupportsField(node.Type, field) {
				r.merge(StatusWarning, fmt.Sprintf("field %q cannot be updated on a %s node", field, node.Type))
			}
		}
		if unit, ok := updatedUnit(c.Updates); ok && strings.TrimSpace(unit) != "" {
			v.checkUnit(ctx, unit, &r)
		}

	case *commands.DeleteNode:
		if _, ok := document.FindNode(s.nodes, c.NodeID); !ok {
			r.merge(StatusInvalid, fmt.Sprintf("node %q not found", c.NodeID))
		}

	case *commands.VerifyNode:
		if _, ok := document.FindNode(s.nodes, c.NodeID); !ok {
			r.merge(StatusInvalid, fmt.Sprintf("node %q not found", c.NodeID))
		}

	case *commands.RemoveAssumption:
		if _, ok := document.FindAssumption(s.assumptions, c.AssumptionID); !ok {
			r.merge(StatusInvalid, fmt.Sprintf("assumption %q not found", c.AssumptionID))
		}

	case *commands.AddText, *commands.AddAnnotation, *commands.AddAssumption, *commands.VerifyAll:
	}
	return r
}

// checkUnit normalizes and checks a unit, folding the outcome into r.
func (v *Validator) checkUnit(ctx context.Context, unit string, r *Result) {
	normalized := strings.TrimSpace(mathnorm.Normalize(unit))
	check, err := v.units.CheckUnits(ctx, normalized)
	if err != nil {
		v.logger.Warn("unit check unavailable", "unit", normalized, "error", err)
		r.merge(StatusUnchecked, fmt.Sprintf("unit %q not checked: %v", unit, err))
		return
	}
	if r.Details == nil {
		r.Details = &Details{}
	}
	r.Details.UnitCheck = &check
	if !check.Consistent {
		msg := fmt.Sprintf("unit %q is not consistent", unit)
		if check.Message != "" {
			msg += ": " + check.Message
		}
		r.merge(StatusInvalid, msg)
	}
}

// updatedUnit finds a unit in an update payload: top-level "unit" or
// nested "value.unit".
func updatedUnit(updates map[string]any) (string, bool) {
	if u, ok := updates["unit"].(string); ok {
		return u, true
	}
	if value, ok := updates["value"].(map[string]any); ok {
		if u, ok := value["unit"].(string); ok {
			return u, true
		}
	}
	return "", false
}

func constraintCheck(expr string, known map[string]struct{}) *ConstraintCheck {
	canonical := document.CanonicalExpression(expr)
	vars := mathnorm.ExtractVariables(canonical)
	check := &ConstraintCheck{Canonical: canonical, Variables: vars}
	for _, name := range vars {
		if _, ok := known[name]; !ok {
			check.Undefined = append(check.Undefined, name)
		}
	}
	return check
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
