// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package document defines the worksheet node graph and the model that owns it.
//
// A worksheet is an ordered list of typed nodes placed on an unbounded canvas,
// plus a list of assumptions. Nodes reference each other through dependency
// edges derived from shared symbols. Everything that edits a worksheet goes
// through the Model interface so that the command pipeline never touches
// global state.
package document

import "time"

// NodeType discriminates the node variants.
type NodeType string

const (
	NodeGiven      NodeType = "given"
	NodeEquation   NodeType = "equation"
	NodeConstraint NodeType = "constraint"
	NodeSolveGoal  NodeType = "solve_goal"
	NodeResult     NodeType = "result"
	NodeText       NodeType = "text"
	NodeAnnotation NodeType = "annotation"
	NodePlot       NodeType = "plot"
)

// NodeTypes lists every variant in canonical order.
var NodeTypes = []NodeType{
	NodeGiven, NodeEquation, NodeConstraint, NodeSolveGoal,
	NodeResult, NodeText, NodeAnnotation, NodePlot,
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DefinesSymbol reports whether nodes of this type bind a symbol to a value.
func (t NodeType) DefinesSymbol() bool {
	return t == NodeGiven || t == NodeResult
}

// ProvenanceType records who produced a node.
type ProvenanceType string

const (
	ProvenanceUser     ProvenanceType = "user"
	ProvenanceLLM      ProvenanceType = "llm"
	ProvenanceLibrary  ProvenanceType = "library"
	ProvenanceComputed ProvenanceType = "computed"
)

// Provenance is the origin record of a node.
type Provenance struct {
	Type      ProvenanceType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`

	// Sources lists the contributing node IDs. Only set for computed nodes.
	Sources []string `json:"sources,omitempty"`
}

// VerificationStatus is the verification state of a node.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationFailed     VerificationStatus = "failed"
)

// Verification is the verification record of a node.
type Verification struct {
	Status VerificationStatus `json:"status"`
	Reason string             `json:"reason,omitempty"`
}

// Quantity is a numeric value with an optional unit expression.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Position is a point on the worksheet canvas. Y grows downward.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SolveMethod is the solve hint carried by a solve goal.
type SolveMethod string

const (
	SolveAuto     SolveMethod = "auto"
	SolveSymbolic SolveMethod = "symbolic"
	SolveNumeric  SolveMethod = "numeric"
)

// Node is a single worksheet element.
//
// Description:
//
//	Node is a flat tagged union: Type selects which of the variant fields
//	are meaningful. The common fields (ID, Position, edges, Provenance,
//	Verification) are always present.
//
//	Variant fields:
//	  given, result     Symbol, Quantity
//	  equation          LHS, RHS, Latex, Canonical
//	  constraint        Expression, Canonical
//	  solve_goal        TargetSymbol, Method
//	  text              Title, Content
//	  annotation        Title, Content, Collapsed
//	  plot              Title, Expression
type Node struct {
	ID           string       `json:"id"`
	Type         NodeType     `json:"type"`
	Position     Position     `json:"position"`
	Dependencies []string     `json:"dependencies"`
	Dependents   []string     `json:"dependents"`
	Provenance   Provenance   `json:"provenance"`
	Verification Verification `json:"verification"`
	Description  string       `json:"description,omitempty"`

	Symbol   string    `json:"symbol,omitempty"`
	Quantity *Quantity `json:"value,omitempty"`

	LHS        string `json:"lhs,omitempty"`
	RHS        string `json:"rhs,omitempty"`
	Latex      string `json:"latex,omitempty"`
	Expression string `json:"expression,omitempty"`
	Canonical  string `json:"canonical,omitempty"`

	TargetSymbol string      `json:"target_symbol,omitempty"`
	Method       SolveMethod `json:"method,omitempty"`

	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	Collapsed bool   `json:"collapsed,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Dependencies = append([]string(nil), n.Dependencies...)
	out.Dependents = append([]string(nil), n.Dependents...)
	out.Provenance.Sources = append([]string(nil), n.Provenance.Sources...)
	if n.Quantity != nil {
		q := *n.Quantity
		out.Quantity = &q
	}
	return out
}

// Assumption is a stated premise of the worksheet.
type Assumption struct {
	ID               string   `json:"id"`
	Statement        string   `json:"statement"`
	FormalExpression string   `json:"formal_expression,omitempty"`
	Active           bool     `json:"active"`
	Scope            []string `json:"scope,omitempty"`
}

// Clone returns a deep copy of the assumption.
func (a Assumption) Clone() Assumption {
	out := a
	out.Scope = append([]string(nil), a.Scope...)
	return out
}

// Snapshot is the serializable state of a worksheet.
type Snapshot struct {
	Nodes       []Node       `json:"nodes"`
	Assumptions []Assumption `json:"assumptions"`
}
