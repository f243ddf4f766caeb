// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/mathnorm"
)

// CanonicalEquation returns the normalized "lhs = rhs" form of an equation.
func CanonicalEquation(lhs, rhs string) string {
	return mathnorm.Normalize(lhs) + " = " + mathnorm.Normalize(rhs)
}

// CanonicalExpression returns the normalized form of a single expression.
func CanonicalExpression(expr string) string {
	return mathnorm.Normalize(expr)
}

// Variables returns the free variables a node refers to.
//
// Given and result nodes bind a symbol rather than refer to one, so they
// report none. A solve goal refers to its target.
func Variables(n Node) []string {
	switch n.Type {
	case NodeEquation:
		expr := n.Canonical
		if expr == "" {
			expr = CanonicalEquation(n.LHS, n.RHS)
		}
		return mathnorm.ExtractVariables(expr)
	case NodeConstraint, NodePlot:
		expr := n.Canonical
		if expr == "" {
			expr = CanonicalExpression(n.Expression)
		}
		return mathnorm.ExtractVariables(expr)
	case NodeSolveGoal:
		if n.TargetSymbol == "" {
			return nil
		}
		return []string{n.TargetSymbol}
	}
	return nil
}

// link recomputes every Dependencies and Dependents list in place.
//
// A node depends on:
//   - every given/result node binding one of its variables
//   - for a solve goal, every equation mentioning the target
//   - for a computed result, the source nodes still present
//
// Both lists follow document order.
func link(nodes []Node) {
	vars := make([]map[string]struct{}, len(nodes))
	index := make(map[string]int, len(nodes))
	for i := range nodes {
		vars[i] = make(map[string]struct{})
		for _, v := range Variables(nodes[i]) {
			vars[i][v] = struct{}{}
		}
		index[nodes[i].ID] = i
		nodes[i].Dependencies = []string{}
		nodes[i].Dependents = []string{}
	}

	for i := range nodes {
		sources := make(map[string]struct{}, len(nodes[i].Provenance.Sources))
		if nodes[i].Provenance.Type == ProvenanceComputed {
			for _, id := range nodes[i].Provenance.Sources {
				sources[id] = struct{}{}
			}
		}
		for j := range nodes {
			if i == j {
				continue
			}
			_, isSource := sources[nodes[j].ID]
			if isSource || dependsOn(nodes[i], vars[i], nodes[j], vars[j]) {
				nodes[i].Dependencies = append(nodes[i].Dependencies, nodes[j].ID)
			}
		}
	}

	for i := range nodes {
		for _, dep := range nodes[i].Dependencies {
			j := index[dep]
			nodes[j].Dependents = append(nodes[j].Dependents, nodes[i].ID)
		}
	}
}

func dependsOn(n Node, nVars map[string]struct{}, m Node, mVars map[string]struct{}) bool {
	if len(nVars) == 0 {
		return false
	}
	if m.Type.DefinesSymbol() && m.Symbol != "" {
		_, ok := nVars[m.Symbol]
		return ok
	}
	if n.Type == NodeSolveGoal && m.Type == NodeEquation {
		_, ok := mVars[n.TargetSymbol]
		return ok
	}
	return false
}
