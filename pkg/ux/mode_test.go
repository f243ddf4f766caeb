// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"rich":    ModeRich,
		"FULL":    ModeRich,
		"machine": ModeMachine,
		" q ":     ModeMachine,
		"plain":   ModePlain,
		"":        ModePlain,
		"bogus":   ModePlain,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseMode(in), "input %q", in)
	}
}

func TestDetectMode_EnvOverride(t *testing.T) {
	t.Setenv(EnvOutputMode, "plain")
	assert.Equal(t, ModePlain, DetectMode(nil))
}

func TestDetectMode_NonTerminal(t *testing.T) {
	t.Setenv(EnvOutputMode, "")
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, ModeMachine, DetectMode(f))
	assert.Equal(t, ModeMachine, DetectMode(nil))
}
