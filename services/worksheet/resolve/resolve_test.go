// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

const (
	massID    = "3f9a1c2e-0000-4000-8000-000000000001"
	decoyID   = "m7b2d4f0-0000-4000-8000-000000000002"
	eq1ID     = "a1b2c3d4-0000-4000-8000-000000000003"
	eq2ID     = "a1b2ffff-0000-4000-8000-000000000004"
	goalID    = "c0ffee00-0000-4000-8000-000000000005"
	sketchID  = "d1a9ra00-0000-4000-8000-000000000006"
	problemID = "e0e0e0e0-0000-4000-8000-000000000007"
)

func testDoc(t *testing.T) *document.MemoryModel {
	t.Helper()
	m := document.NewMemoryModel()
	require.NoError(t, m.Restore(document.Snapshot{
		Nodes: []document.Node{
			{ID: massID, Type: document.NodeGiven, Symbol: "m", Quantity: &document.Quantity{Value: 10, Unit: "kg"}},
			{ID: decoyID, Type: document.NodeText, Content: "unrelated"},
			{ID: eq1ID, Type: document.NodeEquation, LHS: "F", RHS: "m*a"},
			{ID: eq2ID, Type: document.NodeEquation, LHS: "W", RHS: "F*d"},
			{ID: goalID, Type: document.NodeSolveGoal, TargetSymbol: "W"},
			{ID: sketchID, Type: document.NodeAnnotation, Title: "Setup", Content: "Free-body diagram below"},
			{ID: problemID, Type: document.NodeAnnotation, Title: "Loads", Content: "w = 2 kN/m"},
		},
		Assumptions: []document.Assumption{
			{ID: "aa11bb22", Statement: "Frictionless surface", Active: true},
			{ID: "cc33dd44", Statement: "Rigid body", Active: true},
		},
	}))
	return m
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"  abc  ":        "abc",
		`"abc"`:          "abc",
		"'abc'":          "abc",
		"`abc`":          "abc",
		"node abc":       "abc",
		"Node  abc":      "abc",
		"ref:abc":        "abc",
		"REF: abc":       "abc",
		"abc...":         "abc",
		"abc…":           "abc",
		`"node 3f9a..."`: "3f9a",
		"":               "",
		"x.":             "x.",
	}
	for in, want := range tests {
		assert.Equal(t, want, Clean(in), "input %q", in)
	}
}

func TestResolveNodeRef(t *testing.T) {
	doc := testDoc(t)
	r := New()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"exact id", eq1ID, eq1ID},
		{"decorated id", `"node ` + eq1ID + `"`, eq1ID},
		{"prefix", "3f9a1c", massID},
		{"prefix case-insensitive", "3F9A1C", massID},
		{"truncated with ellipsis", "c0ffee...", goalID},
		{"ambiguous prefix takes first", "a1b2", eq1ID},
		{"symbol beats short prefix", "m", massID},
		{"ordinal", "equation_2", eq2ID},
		{"ordinal spaced", "Equation 1", eq1ID},
		{"ordinal hyphen solve goal", "solve-goal_1", goalID},
		{"ordinal solvegoal", "solvegoal1", goalID},
		{"ordinal out of range", "equation_9", "equation_9"},
		{"lhs", "W", eq2ID},
		{"lhs case-insensitive", "w", eq2ID},
		{"annotation title", "loads", problemID},
		{"diagram keyword", "diagram", sketchID},
		{"unknown kept", "  nothing here ", "nothing here"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ResolveNodeRef(tt.ref, doc))
		})
	}
}

func TestResolveNodeRef_TruePrefixWinsOverSymbol(t *testing.T) {
	doc := testDoc(t)
	r := New()
	assert.Equal(t, decoyID, r.ResolveNodeRef("m7b2", doc))
	assert.Equal(t, massID, r.ResolveNodeRef("m", doc))

	short := New(WithMinPrefix(1))
	assert.Equal(t, decoyID, short.ResolveNodeRef("m", doc), "prefix precedes symbol once short prefixes are allowed")
}

func TestResolveAssumptionRef(t *testing.T) {
	doc := testDoc(t)
	r := New()
	assert.Equal(t, "cc33dd44", r.ResolveAssumptionRef("cc33dd44", doc))
	assert.Equal(t, "aa11bb22", r.ResolveAssumptionRef("AA11", doc))
	assert.Equal(t, "cc33dd44", r.ResolveAssumptionRef("assumption_2", doc))
	assert.Equal(t, "aa11bb22", r.ResolveAssumptionRef("frictionless surface", doc))
	assert.Equal(t, "assumption_3", r.ResolveAssumptionRef("assumption_3", doc))
}

func TestResolveBatch(t *testing.T) {
	doc := testDoc(t)
	cmds := []commands.Command{
		&commands.UpdateNode{NodeID: "given_1", Updates: map[string]any{"value": 12.0}},
		&commands.DeleteNode{NodeID: "annotation_2"},
		&commands.VerifyNode{NodeID: "F"},
		&commands.AddAssumption{Statement: "small strain", Scope: []string{"equation_1", "W", "missing"}},
		&commands.RemoveAssumption{AssumptionID: "Rigid body"},
		&commands.AddGiven{Symbol: "given_1", Value: 1},
		&commands.VerifyNode{NodeID: eq1ID},
	}

	changed := New().ResolveBatch(cmds, doc)
	assert.Equal(t, 6, changed)

	assert.Equal(t, massID, cmds[0].(*commands.UpdateNode).NodeID)
	assert.Equal(t, problemID, cmds[1].(*commands.DeleteNode).NodeID)
	assert.Equal(t, eq1ID, cmds[2].(*commands.VerifyNode).NodeID)
	assert.Equal(t, []string{eq1ID, eq2ID, "missing"}, cmds[3].(*commands.AddAssumption).Scope)
	assert.Equal(t, "cc33dd44", cmds[4].(*commands.RemoveAssumption).AssumptionID)
	assert.Equal(t, "given_1", cmds[5].(*commands.AddGiven).Symbol, "creating commands carry no references")
}
