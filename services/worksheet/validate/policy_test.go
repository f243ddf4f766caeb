// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

func TestIsDiagram(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		want    bool
	}{
		{"titled with sketch", "Free-body diagram", "```\na\nb\nc\n```", true},
		{"vocabulary in body", "Setup", sketch, true},
		{"fbd", "FBD", "```text\n->\n<-\n^\n```", true},
		{"too few lines", "Diagram", "```\na\n\nb\n```", false},
		{"no block", "Diagram", "imagine a beam", false},
		{"no vocabulary", "Notes", "```\na\nb\nc\n```", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDiagram(tt.title, tt.content))
		})
	}
}

func TestCompleteness_BlocksBareEquation(t *testing.T) {
	cmds := []commands.Command{&commands.AddEquation{LHS: "F", RHS: "m*a"}}
	results, err := New(nil).ValidateBatch(context.Background(), cmds, document.NewMemoryModel())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, StatusInvalid, results[0].Status)
	assert.Contains(t, results[0].Message, "missing: problem restatement and diagram")
	assert.True(t, HasInvalidCommands(results))
}

func TestCompleteness_NamesOnlyWhatIsMissing(t *testing.T) {
	cmds := []commands.Command{
		&commands.AddText{Content: "A block on a ramp."},
		&commands.AddEquation{LHS: "F", RHS: "m*a"},
	}
	results, err := New(nil).ValidateBatch(context.Background(), cmds, document.NewMemoryModel())
	require.NoError(t, err)
	assert.Equal(t, StatusValid, results[0].Status)
	assert.Equal(t, StatusInvalid, results[1].Status)
	assert.Equal(t, "equations need a diagram (add_annotation with a sketch block of at least 3 lines); missing: diagram",
		results[1].Message)
	assert.NotContains(t, results[1].Message, "restatement")
}

func TestCompleteness_MessageForMissingRestatement(t *testing.T) {
	cmds := []commands.Command{
		&commands.AddAnnotation{Title: "Diagram", Content: sketch},
		&commands.AddEquation{LHS: "F", RHS: "m*a"},
	}
	results, err := New(nil).ValidateBatch(context.Background(), cmds, document.NewMemoryModel())
	require.NoError(t, err)
	assert.Equal(t, "equations need a problem restatement (add_text); missing: problem restatement", results[1].Message)
	assert.NotContains(t, results[1].Message, "diagram")
}

func TestCompleteness_SatisfiedByBatch(t *testing.T) {
	cmds := []commands.Command{
		&commands.AddText{Content: "A block is pushed."},
		&commands.AddAnnotation{Title: "Diagram", Content: sketch},
		&commands.AddEquation{LHS: "F", RHS: "m*a"},
	}
	results, err := New(nil).ValidateBatch(context.Background(), cmds, document.NewMemoryModel())
	require.NoError(t, err)
	assert.False(t, HasInvalidCommands(results))
}

func TestCompleteness_SatisfiedByDocument(t *testing.T) {
	cmds := []commands.Command{&commands.AddEquation{LHS: "p", RHS: "m*v"}}
	results, err := New(nil).ValidateBatch(context.Background(), cmds, completeDoc(t))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, results[0].Status)
}

func TestCompleteness_SkipsAlreadyInvalidEquation(t *testing.T) {
	cmds := []commands.Command{
		&commands.AddEquation{LHS: "", RHS: "x"},
		&commands.AddEquation{LHS: "y", RHS: "2*x"},
		&commands.AddEquation{LHS: "z", RHS: "3*x"},
	}
	results, err := New(nil).ValidateBatch(context.Background(), cmds, document.NewMemoryModel())
	require.NoError(t, err)
	assert.Equal(t, "equation has an empty left-hand side", results[0].Message)
	assert.Equal(t, StatusInvalid, results[1].Status)
	assert.Contains(t, results[1].Message, "missing:")
	assert.Equal(t, StatusValid, results[2].Status)
}

func TestCompleteness_NoEquationNoPolicy(t *testing.T) {
	cmds := []commands.Command{&commands.AddGiven{Symbol: "m", Value: 1}}
	assert.Empty(t, MissingRequirements(cmds, nil))
}
