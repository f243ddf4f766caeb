// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package solver talks to the symbolic solver that checks units and
// verifies nodes.
//
// Two UnitChecker implementations exist: Client calls the solver over HTTP,
// OfflineChecker validates unit syntax and vocabulary locally. Client also
// implements document.Verifier.
package solver

import (
	"context"
	"errors"
	"strings"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

// ErrSolverUnavailable indicates the solver could not be reached or answered
// with a server error.
var ErrSolverUnavailable = errors.New("solver unavailable")

// ErrBadResponse indicates the solver answered with an unusable body.
var ErrBadResponse = errors.New("bad solver response")

// UnitCheck is the outcome of a unit-consistency check.
type UnitCheck struct {
	Consistent bool   `json:"consistent"`
	Message    string `json:"message,omitempty"`
}

// UnitChecker checks that a unit expression is dimensionally consistent.
//
// A returned error means the check could not run; an inconsistent unit is
// reported through UnitCheck.Consistent.
type UnitChecker interface {
	CheckUnits(ctx context.Context, expression string) (UnitCheck, error)
}

// FromConfig selects the collaborators for cfg. An empty BaseURL yields the
// offline checker and no verifier.
func FromConfig(cfg ClientConfig) (UnitChecker, document.Verifier, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return NewOfflineChecker(), nil, nil
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}
