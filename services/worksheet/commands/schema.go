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

	"github.com/go-playground/validator/v10"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

// ErrUnknownAction indicates an object names no known action.
var ErrUnknownAction = errors.New("unknown action")

// ErrSchema indicates an object is missing a required field or a field has
// the wrong primitive type.
var ErrSchema = errors.New("command schema mismatch")

// schemaValidate checks the wire structs. Required pointer fields express
// presence; emptiness is left to the validator stage.
var schemaValidate = validator.New()

// Wire shapes. Pointer fields distinguish "absent" from "zero"; encoding/json
// rejects wrong primitive types before the tags are checked.
type (
	wireAddGiven struct {
		Symbol      *string  `json:"symbol" validate:"required"`
		Value       *float64 `json:"value" validate:"required"`
		Unit        string   `json:"unit"`
		Description string   `json:"description"`
	}
	wireAddEquation struct {
		LHS         *string `json:"lhs" validate:"required"`
		RHS         *string `json:"rhs" validate:"required"`
		Latex       string  `json:"latex"`
		Description string  `json:"description"`
	}
	wireAddConstraint struct {
		Expression  *string `json:"expression" validate:"required"`
		Description string  `json:"description"`
	}
	wireAddSolveGoal struct {
		TargetSymbol *string `json:"target_symbol" validate:"required_without=Target"`
		Target       *string `json:"target" validate:"required_without=TargetSymbol"`
		Method       string  `json:"method" validate:"omitempty,oneof=auto symbolic numeric"`
	}
	wireAddText struct {
		Content *string `json:"content" validate:"required"`
		Title   string  `json:"title"`
	}
	wireAddAnnotation struct {
		Title     string  `json:"title"`
		Content   *string `json:"content" validate:"required"`
		Collapsed bool    `json:"collapsed"`
	}
	wireUpdateNode struct {
		NodeID  *string        `json:"node_id" validate:"required"`
		Updates map[string]any `json:"updates" validate:"required"`
	}
	wireNodeRef struct {
		NodeID *string `json:"node_id" validate:"required"`
	}
	wireAddAssumption struct {
		Statement        *string  `json:"statement" validate:"required"`
		FormalExpression string   `json:"formal_expression"`
		Scope            []string `json:"scope"`
	}
	wireRemoveAssumption struct {
		AssumptionID *string `json:"assumption_id" validate:"required"`
	}
)

// Decode converts one wire object into a Command.
//
// Description:
//
//	Checks the action name, primitive field types and required-field
//	presence. No unit or reference checks happen here.
//
// Inputs:
//
//	raw - A JSON object carrying an "action" field.
//
// Outputs:
//
//	Command - The decoded command.
//	error - ErrUnknownAction or ErrSchema (wrapped) when raw is unusable.
func Decode(raw json.RawMessage) (Command, error) {
	var head struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	switch head.Action {
	case ActionAddGiven:
		var w wireAddGiven
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		return &AddGiven{Symbol: *w.Symbol, Value: *w.Value, Unit: w.Unit, Description: w.Description}, nil
	case ActionAddEquation:
		var w wireAddEquation
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		return &AddEquation{LHS: *w.LHS, RHS: *w.RHS, Latex: w.Latex, Description: w.Description}, nil
	case ActionAddConstraint:
		var w wireAddConstraint
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		return &AddConstraint{Expression: *w.Expression, Description: w.Description}, nil
	case ActionAddSolveGoal:
		var w wireAddSolveGoal
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		target := w.TargetSymbol
		if target == nil {
			target = w.Target
		}
		return &AddSolveGoal{TargetSymbol: *target, Method: document.SolveMethod(w.Method)}, nil
	case ActionAddText:
		var w wireAddText
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		return &AddText{Content: *w.Content, Title: w.Title}, nil
	case ActionAddAnnotation:
		var w wireAddAnnotation
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		return &AddAnnotation{Title: w.Title, Content: *w.Content, Collapsed: w.Collapsed}, nil
	case ActionUpdateNode:
		var w wireUpdateNode
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		return &UpdateNode{NodeID: *w.NodeID, Updates: w.Updates}, nil
	case ActionDeleteNode, ActionVerifyNode:
		var w wireNodeRef
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		if head.Action == ActionDeleteNode {
			return &DeleteNode{NodeID: *w.NodeID}, nil
		}
		return &VerifyNode{NodeID: *w.NodeID}, nil
	case ActionAddAssumption:
		var w wireAddAssumption
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		return &AddAssumption{Statement: *w.Statement, FormalExpression: w.FormalExpression, Scope: w.Scope}, nil
	case ActionRemoveAssumption:
		var w wireRemoveAssumption
		if err := decodeWire(raw, &w); err != nil {
			return nil, err
		}
		return &RemoveAssumption{AssumptionID: *w.AssumptionID}, nil
	case ActionVerifyAll:
		return &VerifyAll{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, head.Action)
}

func decodeWire(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := schemaValidate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
