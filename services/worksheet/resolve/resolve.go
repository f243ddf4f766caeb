// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package resolve maps loosely written node and assumption references onto
// real IDs.
//
// Assistants rarely repeat a UUID exactly. They truncate it, quote it, refer
// to "equation_2", or name the symbol a node defines. The resolver tries each
// interpretation in a fixed order and leaves the reference untouched when
// nothing matches, so later stages can report it verbatim.
package resolve

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

// DefaultMinPrefix is the shortest reference treated as an ID prefix.
// Shorter references are read as symbols, so "m" names the mass, not a node
// whose ID happens to start with m.
const DefaultMinPrefix = 4

var (
	// ordinalRef matches "<type>_<n>" with any of _, -, space or nothing as
	// separator.
	ordinalRef = regexp.MustCompile(`(?i)^(given|equation|constraint|solve[_\- ]?goal|result|text|annotation|plot)[_\- ]?#?(\d+)$`)

	// assumptionOrdinalRef matches "assumption_<n>".
	assumptionOrdinalRef = regexp.MustCompile(`(?i)^assumption[_\- ]?#?(\d+)$`)

	// refPrefix matches the decorations assistants put in front of IDs.
	refPrefix = regexp.MustCompile(`(?i)^(?:node\s+|ref:\s*|id:\s*)`)
)

// Resolver rewrites references against a document.
//
// Thread Safety: Resolver is immutable after construction and safe for
// concurrent use.
type Resolver struct {
	minPrefix int
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMinPrefix sets the shortest reference accepted as an ID prefix.
func WithMinPrefix(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.minPrefix = n
		}
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		minPrefix: DefaultMinPrefix,
		logger:    slog.Default().With("component", "resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clean strips the decorations around a raw reference: whitespace,
// surrounding quotes, a leading "node " or "ref:" and a trailing ellipsis.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	for len(s) >= 2 && isQuote(s[0]) && s[len(s)-1] == s[0] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = refPrefix.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, "…")
	s = strings.TrimSuffix(s, "...")
	return strings.TrimSpace(s)
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

// ResolveNodeRef returns the node ID a reference denotes.
//
// Description:
//
//	Tries, in order: exact ID, case-insensitive ID prefix (at least
//	minPrefix characters, first in document order), type and ordinal
//	("equation_2", 1-based), then symbol or content: a given/result symbol,
//	an equation's left-hand side, an annotation title, or the word
//	"diagram" for any annotation mentioning a diagram. Symbol and content
//	matches are tried case-sensitively before case-insensitively.
//
// Inputs:
//
//	raw - The reference as written.
//	doc - The live document.
//
// Outputs:
//
//	string - The resolved ID, or the cleaned reference when nothing matches.
func (r *Resolver) ResolveNodeRef(raw string, doc document.Reader) string {
	ref := Clean(raw)
	if ref == "" {
		return ref
	}
	nodes := doc.Nodes()

	for _, n := range nodes {
		if n.ID == ref {
			return n.ID
		}
	}

	if len(ref) >= r.minPrefix {
		lower := strings.ToLower(ref)
		for _, n := range nodes {
			if strings.HasPrefix(strings.ToLower(n.ID), lower) {
				return n.ID
			}
		}
	}

	if id, ok := byOrdinal(ref, nodes); ok {
		return id
	}

	if id, ok := byContent(ref, nodes, func(a, b string) bool { return a == b }); ok {
		return id
	}
	if id, ok := byContent(ref, nodes, strings.EqualFold); ok {
		return id
	}

	if strings.EqualFold(ref, "diagram") {
		for _, n := range nodes {
			if n.Type == document.NodeAnnotation && document.MentionsDiagram(n) {
				return n.ID
			}
		}
	}
	return ref
}

func byOrdinal(ref string, nodes []document.Node) (string, bool) {
	m := ordinalRef.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	want := ordinalType(m[1])
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 {
		return "", false
	}
	seen := 0
	for _, node := range nodes {
		if node.Type != want {
			continue
		}
		seen++
		if seen == n {
			return node.ID, true
		}
	}
	return "", false
}

func ordinalType(word string) document.NodeType {
	w := strings.ToLower(word)
	if strings.HasPrefix(w, "solve") {
		return document.NodeSolveGoal
	}
	return document.NodeType(w)
}

func byContent(ref string, nodes []document.Node, eq func(a, b string) bool) (string, bool) {
	for _, n := range nodes {
		switch n.Type {
		case document.NodeGiven, document.NodeResult:
			if n.Symbol != "" && eq(n.Symbol, ref) {
				return n.ID, true
			}
		case document.NodeEquation:
			if lhs := strings.TrimSpace(n.LHS); lhs != "" && eq(lhs, ref) {
				return n.ID, true
			}
		case document.NodeAnnotation:
			if title := strings.TrimSpace(n.Title); title != "" && eq(title, ref) {
				return n.ID, true
			}
		}
	}
	return "", false
}

// ResolveAssumptionRef returns the assumption ID a reference denotes: exact
// ID, ID prefix, "assumption_<n>", then statement text. Unmatched
// references come back cleaned.
func (r *Resolver) ResolveAssumptionRef(raw string, doc document.Reader) string {
	ref := Clean(raw)
	if ref == "" {
		return ref
	}
	assumptions := doc.Assumptions()

	for _, a := range assumptions {
		if a.ID == ref {
			return a.ID
		}
	}
	if len(ref) >= r.minPrefix {
		lower := strings.ToLower(ref)
		for _, a := range assumptions {
			if strings.HasPrefix(strings.ToLower(a.ID), lower) {
				return a.ID
			}
		}
	}
	if m := assumptionOrdinalRef.FindStringSubmatch(ref); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(assumptions) {
			return assumptions[n-1].ID
		}
	}
	for _, a := range assumptions {
		if strings.EqualFold(strings.TrimSpace(a.Statement), ref) {
			return a.ID
		}
	}
	return ref
}

// ResolveBatch rewrites every reference field of cmds in place.
//
// Description:
//
//	Node references (update_node, delete_node, verify_node, add_assumption
//	scope) and assumption references (remove_assumption) are resolved
//	against doc as it stands before the batch runs.
//
// Outputs:
//
//	int - Number of references that changed.
func (r *Resolver) ResolveBatch(cmds []commands.Command, doc document.Reader) int {
	changed := 0
	rewrite := func(index int, field string, ref *string, resolve func(string, document.Reader) string) {
		resolved := resolve(*ref, doc)
		if resolved != *ref {
			r.logger.Debug("reference resolved",
				"index", index,
				"field", field,
				"from", *ref,
				"to", resolved,
			)
			*ref = resolved
			changed++
		}
	}

	for i, cmd := range cmds {
		switch c := cmd.(type) {
		case *commands.UpdateNode:
			rewrite(i, "node_id", &c.NodeID, r.ResolveNodeRef)
		case *commands.DeleteNode:
			rewrite(i, "node_id", &c.NodeID, r.ResolveNodeRef)
		case *commands.VerifyNode:
			rewrite(i, "node_id", &c.NodeID, r.ResolveNodeRef)
		case *commands.AddAssumption:
			for j := range c.Scope {
				rewrite(i, "scope", &c.Scope[j], r.ResolveNodeRef)
			}
		case *commands.RemoveAssumption:
			rewrite(i, "assumption_id", &c.AssumptionID, r.ResolveAssumptionRef)
		}
	}
	return changed
}
