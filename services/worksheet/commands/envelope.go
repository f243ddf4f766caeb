// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package commands

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope carries a Command together with its action name on the wire.
//
// Description:
//
//	Marshals to the same flat object the parser accepts, for example
//	{"action":"add_given","symbol":"m","value":10,"unit":"kg"}.
//	Unmarshal applies the parser's schema checks.
type Envelope struct {
	Command Command
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Command == nil {
		return nil, errors.New("envelope has no command")
	}
	body, err := json.Marshal(e.Command)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Command.Action(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Command.Action(), err)
	}
	action, err := json.Marshal(e.Command.Action())
	if err != nil {
		return nil, err
	}
	fields["action"] = action
	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	cmd, err := Decode(data)
	if err != nil {
		return err
	}
	e.Command = cmd
	return nil
}

// Wrap converts commands to envelopes.
func Wrap(cmds []Command) []Envelope {
	out := make([]Envelope, len(cmds))
	for i, c := range cmds {
		out[i] = Envelope{Command: c}
	}
	return out
}

// Unwrap converts envelopes back to commands.
func Unwrap(envs []Envelope) []Command {
	out := make([]Command, len(envs))
	for i, e := range envs {
		out[i] = e.Command
	}
	return out
}
