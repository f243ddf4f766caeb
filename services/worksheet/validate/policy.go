// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validate

import (
	"regexp"
	"strings"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

// MinSketchLines is the smallest fenced sketch that counts as a diagram.
const MinSketchLines = 3

// diagramWords mark an annotation as a diagram when found in its title or body.
var diagramWords = []string{"diagram", "sketch", "free body", "free-body", "fbd", "figure", "schematic"}

var sketchBlock = regexp.MustCompile("(?s)```[^\\n]*\\n(.*?)```")

// Requirement names one part of the completeness policy.
type Requirement string

const (
	RequireRestatement Requirement = "problem restatement"
	RequireDiagram     Requirement = "diagram"
)

// IsDiagram reports whether an annotation qualifies as a diagram: diagram
// vocabulary in the title or body, and a fenced sketch block with at least
// MinSketchLines non-empty lines.
func IsDiagram(title, content string) bool {
	text := strings.ToLower(title + "\n" + content)
	mentioned := false
	for _, w := range diagramWords {
		if strings.Contains(text, w) {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return false
	}
	for _, m := range sketchBlock.FindAllStringSubmatch(content, -1) {
		if countNonEmptyLines(m[1]) >= MinSketchLines {
			return true
		}
	}
	return false
}

func countNonEmptyLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// MissingRequirements returns what a batch adding equations still lacks.
//
// Description:
//
//	A batch without add_equation needs nothing. Otherwise the batch or the
//	document must hold a non-empty text node (the restatement) and a
//	diagram annotation. The result lists missing requirements in the order
//	restatement, diagram.
func MissingRequirements(cmds []commands.Command, nodes []document.Node) []Requirement {
	addsEquation := false
	hasText, hasDiagram := false, false
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case *commands.AddEquation:
			addsEquation = true
		case *commands.AddText:
			if strings.TrimSpace(c.Content) != "" {
				hasText = true
			}
		case *commands.AddAnnotation:
			if IsDiagram(c.Title, c.Content) {
				hasDiagram = true
			}
		}
	}
	if !addsEquation {
		return nil
	}
	for _, n := range nodes {
		switch n.Type {
		case document.NodeText:
			if strings.TrimSpace(n.Content) != "" {
				hasText = true
			}
		case document.NodeAnnotation:
			if IsDiagram(n.Title, n.Content) {
				hasDiagram = true
			}
		}
	}

	var missing []Requirement
	if !hasText {
		missing = append(missing, RequireRestatement)
	}
	if !hasDiagram {
		missing = append(missing, RequireDiagram)
	}
	return missing
}

// CheckCompleteness applies the completeness policy to results in place.
//
// When requirements are missing, the first add_equation whose result is not
// already invalid becomes invalid with a message naming what is missing.
// It returns the missing requirements.
func CheckCompleteness(cmds []commands.Command, nodes []document.Node, results []Result) []Requirement {
	missing := MissingRequirements(cmds, nodes)
	if len(missing) == 0 {
		return nil
	}
	for i, cmd := range cmds {
		if _, ok := cmd.(*commands.AddEquation); !ok || results[i].Status == StatusInvalid {
			continue
		}
		results[i] = Result{Status: StatusInvalid, Message: completenessMessage(missing)}
		break
	}
	return missing
}

// requirementHints say how a reply satisfies each requirement.
var requirementHints = map[Requirement]string{
	RequireRestatement: "a problem restatement (add_text)",
	RequireDiagram:     "a diagram (add_annotation with a sketch block of at least 3 lines)",
}

func completenessMessage(missing []Requirement) string {
	hints := make([]string, len(missing))
	names := make([]string, len(missing))
	for i, m := range missing {
		hints[i] = requirementHints[m]
		names[i] = string(m)
	}
	return "equations need " + strings.Join(hints, " and ") + "; missing: " + strings.Join(names, " and ")
}
