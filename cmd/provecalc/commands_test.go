// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/execute"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/journal"
)

const fence = "```"

var newtonReply = "Setup:\n\n" + fence + "worksheet\n" + `[
  {"action": "add_given", "symbol": "m", "value": 10, "unit": "kg"},
  {"action": "add_equation", "lhs": "F", "rhs": "m*a"},
  {"action": "add_solve_goal", "target_symbol": "F"}
]` + "\n" + fence + "\n"

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("PROVECALC_CONFIG", "")
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func writeFramedDoc(t *testing.T) string {
	t.Helper()
	snap := document.Snapshot{Nodes: []document.Node{
		{ID: "text-1", Type: document.NodeText, Position: document.Position{X: 100, Y: 100},
			Content: "A 10 kg block accelerates. Find the net force."},
		{ID: "note-1", Type: document.NodeAnnotation, Position: document.Position{X: 100, Y: 200},
			Title: "Free body diagram", Content: fence + "\n  F ->\n [m]\n ----\n" + fence},
	}}
	path := filepath.Join(t.TempDir(), "sheet.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, document.WriteSnapshot(f, snap))
	require.NoError(t, f.Close())
	return path
}

func TestNormalizeAndVars(t *testing.T) {
	r := runCLI(t, "", "normalize", `\sigma = \frac{F}{A}`)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "sigma = (F)/(A)\n", r.stdout)

	r = runCLI(t, "", "vars", `\sigma = \frac{F}{A}`)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "A\nF\nsigma\n", r.stdout)

	r = runCLI(t, "", "--output", "plain", "normalize", `F = m \times a`)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Normalized\nF = m * a\n", r.stdout)

	r = runCLI(t, "", "normalize")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "error:")
}

func TestParse_FromStdin(t *testing.T) {
	r := runCLI(t, newtonReply, "parse", "-")
	require.Equal(t, 0, r.code, r.stderr)

	var envs []commands.Envelope
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &envs))
	require.Len(t, envs, 3)
	assert.Equal(t, commands.ActionAddGiven, envs[0].Command.Action())
	assert.Equal(t, commands.ActionAddSolveGoal, envs[2].Command.Action())
}

func TestCheck_BlockedWithoutFraming(t *testing.T) {
	r := runCLI(t, newtonReply, "check")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "1\tadd_equation\tinvalid\t")
	assert.Contains(t, r.stdout, "SUMMARY\t")
}

func TestApply_WritesUpdatedWorksheet(t *testing.T) {
	doc := writeFramedDoc(t)
	out := filepath.Join(filepath.Dir(doc), "next.json")

	r := runCLI(t, newtonReply, "apply", "--doc", doc, "--out", out)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "BATCH\t")
	assert.Contains(t, r.stdout, "succeeded=3\tfailed=0")
	assert.Contains(t, r.stdout, "OK\twrote "+out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	snap, err := document.ReadSnapshot(f)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 5)

	original, err := os.Open(doc)
	require.NoError(t, err)
	defer original.Close()
	before, err := document.ReadSnapshot(original)
	require.NoError(t, err)
	assert.Len(t, before.Nodes, 2, "--out must leave --doc untouched")
}

func TestApply_BlockedBatchIsNotWritten(t *testing.T) {
	out := filepath.Join(t.TempDir(), "next.json")
	r := runCLI(t, newtonReply, "apply", "--out", out)
	assert.Equal(t, 1, r.code)
	assert.NotContains(t, r.stderr, "error:")
	assert.Contains(t, r.stdout, "invalid")
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestApply_DryRunAndMissingTarget(t *testing.T) {
	doc := writeFramedDoc(t)
	r := runCLI(t, newtonReply, "apply", "--doc", doc, "--dry-run")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "succeeded=3")
	assert.NotContains(t, r.stdout, "wrote")

	r = runCLI(t, newtonReply, "apply")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "nothing to write")
}

func TestHistory_FromServer(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/worksheets/ws-1/history":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode([]journal.Entry{{
				Seq: 3, WorksheetID: "ws-1", RecordedAt: at,
				Result: execute.BatchResult{BatchID: "b3", Total: 2, Succeeded: 2},
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(worksheet.ErrorResponse{Error: "worksheet not found", Code: "WORKSHEET_NOT_FOUND"})
		}
	}))
	defer srv.Close()

	r := runCLI(t, "", "history", "--server", srv.URL, "--limit", "5", "ws-1")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "3\t2026-03-01T12:00:00Z\tb3\t2\t0\n", r.stdout)

	r = runCLI(t, "", "history", "--server", srv.URL, "missing")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "WORKSHEET_NOT_FOUND")
}
