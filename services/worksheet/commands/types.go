// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package commands defines the worksheet edit commands an assistant can
// propose and parses them out of free-form reply text.
package commands

import "github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"

// Action names a command variant on the wire.
type Action string

const (
	ActionAddGiven         Action = "add_given"
	ActionAddEquation      Action = "add_equation"
	ActionAddConstraint    Action = "add_constraint"
	ActionAddSolveGoal     Action = "add_solve_goal"
	ActionAddText          Action = "add_text"
	ActionAddAnnotation    Action = "add_annotation"
	ActionUpdateNode       Action = "update_node"
	ActionDeleteNode       Action = "delete_node"
	ActionAddAssumption    Action = "add_assumption"
	ActionRemoveAssumption Action = "remove_assumption"
	ActionVerifyNode       Action = "verify_node"
	ActionVerifyAll        Action = "verify_all"
)

// Command is one proposed worksheet edit.
//
// The set of implementations is closed; every concrete type is a pointer to
// one of the structs below so that reference fields can be rewritten in place.
type Command interface {
	Action() Action
	isCommand()
}

// AddGiven binds a symbol to a known value.
type AddGiven struct {
	Symbol      string  `json:"symbol"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit,omitempty"`
	Description string  `json:"description,omitempty"`
}

// AddEquation adds a relation lhs = rhs.
type AddEquation struct {
	LHS         string `json:"lhs"`
	RHS         string `json:"rhs"`
	Latex       string `json:"latex,omitempty"`
	Description string `json:"description,omitempty"`
}

// AddConstraint adds an inequality or side condition.
type AddConstraint struct {
	Expression  string `json:"expression"`
	Description string `json:"description,omitempty"`
}

// AddSolveGoal asks for a symbol to be solved.
type AddSolveGoal struct {
	TargetSymbol string               `json:"target_symbol"`
	Method       document.SolveMethod `json:"method,omitempty"`
}

// AddText adds prose, usually the problem restatement.
type AddText struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
}

// AddAnnotation adds a titled note, usually a sketch.
type AddAnnotation struct {
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	Collapsed bool   `json:"collapsed,omitempty"`
}

// UpdateNode changes fields of an existing node.
type UpdateNode struct {
	NodeID  string         `json:"node_id"`
	Updates map[string]any `json:"updates"`
}

// DeleteNode removes a node.
type DeleteNode struct {
	NodeID string `json:"node_id"`
}

// AddAssumption records a premise, optionally scoped to nodes.
type AddAssumption struct {
	Statement        string   `json:"statement"`
	FormalExpression string   `json:"formal_expression,omitempty"`
	Scope            []string `json:"scope,omitempty"`
}

// RemoveAssumption deletes a premise.
type RemoveAssumption struct {
	AssumptionID string `json:"assumption_id"`
}

// VerifyNode re-verifies one node.
type VerifyNode struct {
	NodeID string `json:"node_id"`
}

// VerifyAll re-verifies the whole worksheet.
type VerifyAll struct{}

func (*AddGiven) Action() Action         { return ActionAddGiven }
func (*AddEquation) Action() Action      { return ActionAddEquation }
func (*AddConstraint) Action() Action    { return ActionAddConstraint }
func (*AddSolveGoal) Action() Action     { return ActionAddSolveGoal }
func (*AddText) Action() Action          { return ActionAddText }
func (*AddAnnotation) Action() Action    { return ActionAddAnnotation }
func (*UpdateNode) Action() Action       { return ActionUpdateNode }
func (*DeleteNode) Action() Action       { return ActionDeleteNode }
func (*AddAssumption) Action() Action    { return ActionAddAssumption }
func (*RemoveAssumption) Action() Action { return ActionRemoveAssumption }
func (*VerifyNode) Action() Action       { return ActionVerifyNode }
func (*VerifyAll) Action() Action        { return ActionVerifyAll }

func (*AddGiven) isCommand()         {}
func (*AddEquation) isCommand()      {}
func (*AddConstraint) isCommand()    {}
func (*AddSolveGoal) isCommand()     {}
func (*AddText) isCommand()          {}
func (*AddAnnotation) isCommand()    {}
func (*UpdateNode) isCommand()       {}
func (*DeleteNode) isCommand()       {}
func (*AddAssumption) isCommand()    {}
func (*RemoveAssumption) isCommand() {}
func (*VerifyNode) isCommand()       {}
func (*VerifyAll) isCommand()        {}

// NewNode builds the node a creating command would insert.
//
// Description:
//
//	Returns the node with its variant fields filled in and canonical forms
//	computed. ID, Position and Provenance are left for the caller.
//
// Outputs:
//
//	document.Node - The prospective node.
//	bool - False when cmd does not create a node.
func NewNode(cmd Command) (document.Node, bool) {
	switch c := cmd.(type) {
	case *AddGiven:
		return document.Node{
			Type:        document.NodeGiven,
			Symbol:      c.Symbol,
			Quantity:    &document.Quantity{Value: c.Value, Unit: c.Unit},
			Description: c.Description,
		}, true
	case *AddEquation:
		return document.Node{
			Type:        document.NodeEquation,
			LHS:         c.LHS,
			RHS:         c.RHS,
			Latex:       c.Latex,
			Canonical:   document.CanonicalEquation(c.LHS, c.RHS),
			Description: c.Description,
		}, true
	case *AddConstraint:
		return document.Node{
			Type:        document.NodeConstraint,
			Expression:  c.Expression,
			Canonical:   document.CanonicalExpression(c.Expression),
			Description: c.Description,
		}, true
	case *AddSolveGoal:
		method := c.Method
		if method == "" {
			method = document.SolveAuto
		}
		return document.Node{
			Type:         document.NodeSolveGoal,
			TargetSymbol: c.TargetSymbol,
			Method:       method,
		}, true
	case *AddText:
		return document.Node{Type: document.NodeText, Title: c.Title, Content: c.Content}, true
	case *AddAnnotation:
		return document.Node{
			Type:      document.NodeAnnotation,
			Title:     c.Title,
			Content:   c.Content,
			Collapsed: c.Collapsed,
		}, true
	}
	return document.Node{}, false
}

// CreatesNode reports whether cmd inserts a node when executed.
func CreatesNode(cmd Command) bool {
	switch cmd.(type) {
	case *AddGiven, *AddEquation, *AddConstraint, *AddSolveGoal, *AddText, *AddAnnotation:
		return true
	}
	return false
}
