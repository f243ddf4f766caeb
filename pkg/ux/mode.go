// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// EnvOutputMode overrides terminal detection.
const EnvOutputMode = "PROVECALC_OUTPUT"

// Mode controls how much styling the CLI emits.
type Mode string

const (
	// ModeRich uses colors, icons, and boxes.
	ModeRich Mode = "rich"

	// ModePlain keeps icons but drops colors.
	ModePlain Mode = "plain"

	// ModeMachine emits tab-separated lines suitable for scripting.
	ModeMachine Mode = "machine"
)

// ParseMode converts a flag or env value to a Mode. Unknown values fall
// back to ModePlain.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich", "full", "color":
		return ModeRich
	case "machine", "quiet", "q", "tsv":
		return ModeMachine
	default:
		return ModePlain
	}
}

// DetectMode picks the output mode for f.
//
// Description:
//
//	The PROVECALC_OUTPUT environment variable wins when set. Otherwise a
//	terminal gets ModeRich and anything else (pipes, files) gets
//	ModeMachine.
//
// Inputs:
//
//	f - The file output will be written to. Nil is treated as a non-terminal.
//
// Outputs:
//
//	Mode - The detected mode.
func DetectMode(f *os.File) Mode {
	if env := os.Getenv(EnvOutputMode); env != "" {
		return ParseMode(env)
	}
	if f == nil {
		return ModeMachine
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return ModeRich
	}
	return ModeMachine
}
