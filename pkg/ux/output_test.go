// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/execute"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/journal"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/validate"
)

func sampleVerdicts() ([]commands.Command, []validate.Result) {
	cmds := []commands.Command{
		&commands.AddGiven{Symbol: "m", Value: 10, Unit: "kg"},
		&commands.AddEquation{LHS: "F", RHS: "m*a"},
		&commands.AddSolveGoal{TargetSymbol: "F"},
	}
	results := []validate.Result{
		{Status: validate.StatusValid},
		{Status: validate.StatusInvalid, Message: "missing problem statement"},
		{Status: validate.StatusUnchecked, Message: "solver unavailable"},
	}
	return cmds, results
}

func TestIcon_Render(t *testing.T) {
	for _, i := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow} {
		assert.Contains(t, i.Render(), string(i))
	}
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, IconSuccess, StatusIcon(validate.StatusValid))
	assert.Equal(t, IconWarning, StatusIcon(validate.StatusWarning))
	assert.Equal(t, IconError, StatusIcon(validate.StatusInvalid))
	assert.Equal(t, IconPending, StatusIcon(validate.StatusUnchecked))
}

func TestPrinter_VerdictsMachine(t *testing.T) {
	var buf bytes.Buffer
	cmds, results := sampleVerdicts()
	NewPrinter(&buf, ModeMachine).Verdicts(cmds, results)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0\tadd_given\tvalid\t", lines[0])
	assert.Equal(t, "1\tadd_equation\tinvalid\tmissing problem statement", lines[1])
	assert.Equal(t, "2\tadd_solve_goal\tunchecked\tsolver unavailable", lines[2])
	assert.Equal(t, "SUMMARY\tvalid=1\twarning=0\tinvalid=1\tunchecked=1", lines[3])
}

func TestPrinter_VerdictsPlain(t *testing.T) {
	var buf bytes.Buffer
	cmds, results := sampleVerdicts()
	NewPrinter(&buf, ModePlain).Verdicts(cmds, results)

	out := buf.String()
	assert.Contains(t, out, "✓  0 add_given")
	assert.Contains(t, out, "✗  1 add_equation")
	assert.Contains(t, out, "missing problem statement")
	assert.Contains(t, out, "batch blocked")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrinter_VerdictsMismatchedLengths(t *testing.T) {
	var buf bytes.Buffer
	cmds, results := sampleVerdicts()
	NewPrinter(&buf, ModeMachine).Verdicts(cmds, results[:1])

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "SUMMARY\tvalid=1"))
}

func TestPrinter_Batch(t *testing.T) {
	b := execute.BatchResult{
		BatchID: "batch-1",
		Results: []execute.CommandResult{
			{Index: 0, Action: commands.ActionAddGiven, Success: true, NodeID: "n1"},
			{Index: 1, Action: commands.ActionDeleteNode, Error: "node not found"},
		},
		Total:     2,
		Succeeded: 1,
		Failed:    1,
	}

	var machine bytes.Buffer
	NewPrinter(&machine, ModeMachine).Batch(b)
	lines := strings.Split(strings.TrimSpace(machine.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "0\tadd_given\tok\tn1\t", lines[0])
	assert.Equal(t, "1\tdelete_node\tfailed\t\tnode not found", lines[1])
	assert.Equal(t, "BATCH\tbatch-1\ttotal=2\tsucceeded=1\tfailed=1", lines[2])

	var plain bytes.Buffer
	NewPrinter(&plain, ModePlain).Batch(b)
	assert.Contains(t, plain.String(), "→ n1")
	assert.Contains(t, plain.String(), "node not found")
	assert.Contains(t, plain.String(), "1 applied  1 failed  2 total")
}

func TestPrinter_History(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []journal.Entry{
		{Seq: 7, WorksheetID: "ws", RecordedAt: at, Result: execute.BatchResult{BatchID: "b7", Total: 3, Succeeded: 3}},
	}

	var buf bytes.Buffer
	NewPrinter(&buf, ModeMachine).History(entries)
	assert.Equal(t, "7\t2026-03-01T12:00:00Z\tb7\t3\t0\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, ModePlain).History(nil)
	assert.Contains(t, buf.String(), "no batches recorded")

	buf.Reset()
	NewPrinter(&buf, ModeMachine).History(nil)
	assert.Empty(t, buf.String())
}

func TestPrinter_Messages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeMachine)
	p.Title("ignored")
	p.Success("done")
	p.Warning("careful")
	p.Error("broken")
	p.Info("note")
	p.Box("Normalized", "F = m*a\nextra")
	assert.Equal(t, "OK\tdone\nWARN\tcareful\nERROR\tbroken\nnote\nNormalized\tF = m*a extra\n", buf.String())

	buf.Reset()
	p = NewPrinter(&buf, ModePlain)
	p.Title("Heading")
	p.Success("done")
	assert.Equal(t, "Heading\n✓ done\n", buf.String())
	assert.Equal(t, ModePlain, p.Mode())
}
