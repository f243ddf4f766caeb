// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// PreferredTags are the fence info strings reserved for command blocks.
var PreferredTags = []string{"worksheet", "worksheet-commands", "commands"}

// FallbackTag is read only when no preferred block is present.
const FallbackTag = "json"

var (
	// fencedBlock matches a complete fenced block. Both fences must start a
	// line, so backticks inside a JSON string value never close the block.
	// Group 1 is the info string's first word, group 2 the body.
	fencedBlock = regexp.MustCompile("(?ms)^[ \\t]*```[ \\t]*([A-Za-z0-9_-]*)[^\\n]*\\n(.*?)^[ \\t]*```[ \\t\\r]*$")

	// blankRuns collapses the gaps left behind by stripped blocks.
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// ParseReport is the outcome of a parse, including what was discarded.
type ParseReport struct {
	// Commands are the accepted commands in reply order.
	Commands []Command

	// Blocks is the number of fenced blocks that were read.
	Blocks int

	// DroppedBlocks counts blocks whose body was not valid JSON of an
	// accepted shape.
	DroppedBlocks int

	// DroppedObjects counts objects that failed the per-action schema.
	DroppedObjects int
}

type block struct {
	start, end int
	body       string
}

// Parse extracts every well-formed command from an assistant reply.
//
// Description:
//
//	Reads fenced blocks tagged worksheet, worksheet-commands or commands.
//	When the reply has none of those, blocks tagged json are read instead.
//	Each block may hold one command object, an array of them, or an object
//	with a "commands" array. Anything malformed is skipped silently.
//
// Inputs:
//
//	text - The raw reply.
//
// Outputs:
//
//	[]Command - Commands in reply order. Never nil.
//
// Example:
//
//	cmds := Parse("```worksheet\n{\"action\":\"verify_all\"}\n```")
//	// cmds = []Command{&VerifyAll{}}
//
// Thread Safety: This function is safe for concurrent use.
func Parse(text string) []Command {
	return ParseWithReport(text).Commands
}

// ParseWithReport is Parse plus drop accounting. Drops are logged at debug
// level and never returned as errors.
func ParseWithReport(text string) ParseReport {
	report := ParseReport{Commands: []Command{}}
	for _, b := range selectBlocks(text) {
		report.Blocks++
		objects, ok := splitPayload(b.body)
		if !ok {
			report.DroppedBlocks++
			continue
		}
		for _, raw := range objects {
			cmd, err := Decode(raw)
			if err != nil {
				report.DroppedObjects++
				slog.Debug("dropped command object", "component", "commands", "error", err)
				continue
			}
			report.Commands = append(report.Commands, cmd)
		}
	}
	if report.DroppedBlocks > 0 || report.DroppedObjects > 0 {
		slog.Debug("command parse finished with drops",
			"component", "commands",
			"blocks", report.Blocks,
			"dropped_blocks", report.DroppedBlocks,
			"dropped_objects", report.DroppedObjects,
			"accepted", len(report.Commands),
		)
	}
	return report
}

// StripCommandBlocks removes the blocks Parse would read, leaving the prose.
func StripCommandBlocks(text string) string {
	blocks := selectBlocks(text)
	if len(blocks) == 0 {
		return strings.TrimSpace(text)
	}
	var b strings.Builder
	last := 0
	for _, blk := range blocks {
		b.WriteString(text[last:blk.start])
		last = blk.end
	}
	b.WriteString(text[last:])
	return strings.TrimSpace(blankRuns.ReplaceAllString(b.String(), "\n\n"))
}

// ContainsCommands reports whether text has a command block, without
// decoding anything.
func ContainsCommands(text string) bool {
	if !strings.Contains(text, "```") {
		return false
	}
	if len(blocksTagged(text, isPreferredTag)) > 0 {
		return true
	}
	for _, blk := range blocksTagged(text, func(tag string) bool { return tag == FallbackTag }) {
		if strings.Contains(blk.body, `"action"`) {
			return true
		}
	}
	return false
}

func selectBlocks(text string) []block {
	preferred := blocksTagged(text, isPreferredTag)
	if len(preferred) > 0 {
		return preferred
	}
	return blocksTagged(text, func(tag string) bool { return tag == FallbackTag })
}

func blocksTagged(text string, accept func(tag string) bool) []block {
	var out []block
	for _, m := range fencedBlock.FindAllStringSubmatchIndex(text, -1) {
		tag := strings.ToLower(text[m[2]:m[3]])
		if !accept(tag) {
			continue
		}
		out = append(out, block{start: m[0], end: m[1], body: text[m[4]:m[5]]})
	}
	return out
}

func isPreferredTag(tag string) bool {
	for _, t := range PreferredTags {
		if tag == t {
			return true
		}
	}
	return false
}

// splitPayload returns the command objects of a block body.
func splitPayload(body string) ([]json.RawMessage, bool) {
	data := bytes.TrimSpace([]byte(body))
	if len(data) == 0 {
		return nil, false
	}
	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, false
		}
		return items, true
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, false
		}
		if _, isCommand := fields["action"]; !isCommand {
			if list, ok := fields["commands"]; ok {
				var items []json.RawMessage
				if err := json.Unmarshal(list, &items); err != nil {
					return nil, false
				}
				return items, true
			}
		}
		return []json.RawMessage{data}, true
	}
	return nil, false
}
