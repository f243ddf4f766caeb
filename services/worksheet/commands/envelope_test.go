// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

func TestEnvelope_Marshal(t *testing.T) {
	data, err := json.Marshal(Envelope{Command: &AddGiven{Symbol: "m", Value: 10, Unit: "kg"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"add_given","symbol":"m","value":10,"unit":"kg"}`, string(data))

	data, err = json.Marshal(Envelope{Command: &VerifyAll{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"verify_all"}`, string(data))

	_, err = json.Marshal(Envelope{})
	assert.Error(t, err)
}

func TestEnvelope_Unmarshal(t *testing.T) {
	var envs []Envelope
	err := json.Unmarshal([]byte(`[
		{"action":"add_equation","lhs":"F","rhs":"m*a"},
		{"action":"remove_assumption","assumption_id":"a1"}
	]`), &envs)
	require.NoError(t, err)
	assert.Equal(t, []Command{
		&AddEquation{LHS: "F", RHS: "m*a"},
		&RemoveAssumption{AssumptionID: "a1"},
	}, Unwrap(envs))

	var env Envelope
	err = json.Unmarshal([]byte(`{"action":"add_given","symbol":"m"}`), &env)
	assert.ErrorIs(t, err, ErrSchema)

	err = json.Unmarshal([]byte(`{"action":"fly"}`), &env)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestEnvelope_RoundTripThroughParser(t *testing.T) {
	cmds := []Command{
		&AddSolveGoal{TargetSymbol: "F", Method: document.SolveNumeric},
		&AddAssumption{Statement: "g constant", Scope: []string{"n1"}},
		&UpdateNode{NodeID: "n1", Updates: map[string]any{"unit": "N"}},
	}
	data, err := json.Marshal(Wrap(cmds))
	require.NoError(t, err)

	parsed := Parse(fence + "worksheet\n" + string(data) + "\n" + fence)
	assert.Equal(t, cmds, parsed)
}

func TestNewNode(t *testing.T) {
	n, ok := NewNode(&AddEquation{LHS: "F", RHS: `m \cdot a`})
	require.True(t, ok)
	assert.Equal(t, document.NodeEquation, n.Type)
	assert.Equal(t, "F = m * a", n.Canonical)

	n, ok = NewNode(&AddSolveGoal{TargetSymbol: "F"})
	require.True(t, ok)
	assert.Equal(t, document.SolveAuto, n.Method)

	n, ok = NewNode(&AddGiven{Symbol: "m", Value: 10, Unit: "kg"})
	require.True(t, ok)
	assert.Equal(t, &document.Quantity{Value: 10, Unit: "kg"}, n.Quantity)

	_, ok = NewNode(&DeleteNode{NodeID: "x"})
	assert.False(t, ok)

	assert.True(t, CreatesNode(&AddAnnotation{}))
	assert.False(t, CreatesNode(&VerifyAll{}))
}
