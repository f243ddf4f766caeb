// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validate checks a proposed command batch before it may be applied.
//
// Every command gets a Result. Invalid results block the batch; warnings
// and unchecked results are shown but never block. On top of the
// per-command checks, a batch that adds equations must come with a problem
// restatement and a diagram (see CheckCompleteness).
package validate

import "github.com/Mnehmos/provecalc-website-sub000/services/worksheet/solver"

// Status is a validation verdict.
type Status string

const (
	StatusValid     Status = "valid"
	StatusWarning   Status = "warning"
	StatusInvalid   Status = "invalid"
	StatusUnchecked Status = "unchecked"
)

// severity orders verdicts when several checks apply to one command.
func (s Status) severity() int {
	switch s {
	case StatusInvalid:
		return 3
	case StatusWarning:
		return 2
	case StatusUnchecked:
		return 1
	}
	return 0
}

// Blocks reports whether the verdict prevents the batch from being applied.
func (s Status) Blocks() bool {
	return s == StatusInvalid
}

// ConstraintCheck describes the variables of a constraint.
type ConstraintCheck struct {
	Canonical string   `json:"canonical"`
	Variables []string `json:"variables"`
	Undefined []string `json:"undefined,omitempty"`
}

// Details carries structured check outcomes.
type Details struct {
	UnitCheck  *solver.UnitCheck `json:"unit_check,omitempty"`
	Constraint *ConstraintCheck  `json:"constraint,omitempty"`
}

// Result is the verdict for one command.
type Result struct {
	Status  Status   `json:"status"`
	Message string   `json:"message,omitempty"`
	Details *Details `json:"details,omitempty"`
}

// merge folds another finding into r, keeping the more severe status and
// joining messages.
func (r *Result) merge(status Status, message string) {
	if status.severity() > r.Status.severity() {
		r.Status = status
	}
	if message == "" {
		return
	}
	if r.Message == "" {
		r.Message = message
		return
	}
	r.Message += "; " + message
}

// HasInvalidCommands reports whether any result blocks the batch.
func HasInvalidCommands(results []Result) bool {
	for _, r := range results {
		if r.Status.Blocks() {
			return true
		}
	}
	return false
}

// Summary counts verdicts by status.
func Summary(results []Result) map[Status]int {
	counts := make(map[Status]int, 4)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
