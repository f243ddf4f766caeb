// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"context"
	"strings"
)

// Reader is read access to a worksheet.
//
// Both methods return copies; callers may keep or modify them freely.
type Reader interface {
	Nodes() []Node
	Assumptions() []Assumption
}

// Model is the worksheet collaborator used by the command pipeline.
//
// Description:
//
//	Model is the only way the pipeline edits a worksheet. Every mutation
//	either succeeds or returns an error and leaves the worksheet unchanged.
//	Implementations decide their own storage; MemoryModel is the in-process
//	reference.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use.
type Model interface {
	Reader

	// InsertNode appends a node. The node's ID must be set and unique.
	InsertNode(node Node) error

	// UpdateNode applies a partial update keyed by wire field name.
	UpdateNode(id string, updates map[string]any) error

	// DeleteNode removes a node and every reference to it.
	DeleteNode(id string) error

	// AddAssumption records an active assumption and returns its ID.
	AddAssumption(statement, formalExpression string, scope []string) (string, error)

	// RemoveAssumption deletes an assumption.
	RemoveAssumption(id string) error

	// VerifyNode re-verifies one node.
	VerifyNode(ctx context.Context, id string) error

	// VerifyAllNodes re-verifies every verifiable node.
	VerifyAllNodes(ctx context.Context) error
}

// Verifier checks a node against the current symbol table.
//
// Description:
//
//	Implemented by the solver client. A returned error means the check
//	could not run at all; a failed check is reported through the returned
//	Verification instead.
type Verifier interface {
	Verify(ctx context.Context, node Node, symbols map[string]Quantity) (Verification, error)
}

// FindNode returns the node with the given ID.
func FindNode(nodes []Node, id string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// FindAssumption returns the assumption with the given ID.
func FindAssumption(assumptions []Assumption, id string) (Assumption, bool) {
	for _, a := range assumptions {
		if a.ID == id {
			return a, true
		}
	}
	return Assumption{}, false
}

// HasSymbol reports whether a given or result node binds symbol.
func HasSymbol(nodes []Node, symbol string) bool {
	for _, n := range nodes {
		if n.Type.DefinesSymbol() && n.Symbol == symbol {
			return true
		}
	}
	return false
}

// SymbolTable maps symbols to the values bound by given and result nodes.
// When a symbol is bound twice the later node wins.
func SymbolTable(nodes []Node) map[string]Quantity {
	table := make(map[string]Quantity)
	for _, n := range nodes {
		if !n.Type.DefinesSymbol() || n.Symbol == "" || n.Quantity == nil {
			continue
		}
		table[n.Symbol] = *n.Quantity
	}
	return table
}

// MentionsDiagram reports whether an annotation's title or body uses the
// word "diagram".
func MentionsDiagram(n Node) bool {
	return strings.Contains(strings.ToLower(n.Title), "diagram") ||
		strings.Contains(strings.ToLower(n.Content), "diagram")
}
