// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"encoding/json"
	"fmt"
	"sort"
)

// fieldsByType lists the update keys each node type accepts in addition to
// the common ones.
var fieldsByType = map[NodeType][]string{
	NodeGiven:      {"symbol", "value", "unit"},
	NodeResult:     {"symbol", "value", "unit"},
	NodeEquation:   {"lhs", "rhs", "latex"},
	NodeConstraint: {"expression"},
	NodeSolveGoal:  {"target_symbol", "target", "method"},
	NodeText:       {"title", "content"},
	NodeAnnotation: {"title", "content", "collapsed"},
	NodePlot:       {"title", "expression"},
}

var commonFields = []string{"description", "position"}

// SupportsField reports whether nodes of type t accept an update to field.
func SupportsField(t NodeType, field string) bool {
	for _, f := range commonFields {
		if f == field {
			return true
		}
	}
	for _, f := range fieldsByType[t] {
		if f == field {
			return true
		}
	}
	return false
}

// applyUpdates mutates n. Keys are applied in sorted order so that errors
// are deterministic. On error n may be partially modified; callers apply
// updates to a copy.
func applyUpdates(n *Node, updates map[string]any) error {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !SupportsField(n.Type, k) {
			return fmt.Errorf("%w: %q on %s node", ErrUnsupportedField, k, n.Type)
		}
	}

	for _, k := range keys {
		if err := applyField(n, k, updates[k]); err != nil {
			return err
		}
	}

	switch n.Type {
	case NodeEquation:
		n.Canonical = CanonicalEquation(n.LHS, n.RHS)
	case NodeConstraint:
		n.Canonical = CanonicalExpression(n.Expression)
	}
	return nil
}

func applyField(n *Node, key string, raw any) error {
	switch key {
	case "description":
		return setString(&n.Description, key, raw)
	case "position":
		return setPosition(&n.Position, raw)
	case "symbol":
		return setString(&n.Symbol, key, raw)
	case "unit":
		q := quantityOf(n)
		return setString(&q.Unit, key, raw)
	case "value":
		return setValue(quantityOf(n), raw)
	case "lhs":
		return setString(&n.LHS, key, raw)
	case "rhs":
		return setString(&n.RHS, key, raw)
	case "latex":
		return setString(&n.Latex, key, raw)
	case "expression":
		return setString(&n.Expression, key, raw)
	case "target_symbol", "target":
		return setString(&n.TargetSymbol, key, raw)
	case "method":
		var m string
		if err := setString(&m, key, raw); err != nil {
			return err
		}
		switch SolveMethod(m) {
		case SolveAuto, SolveSymbolic, SolveNumeric:
			n.Method = SolveMethod(m)
			return nil
		}
		return fmt.Errorf("%w: method %q", ErrInvalidUpdate, m)
	case "title":
		return setString(&n.Title, key, raw)
	case "content":
		return setString(&n.Content, key, raw)
	case "collapsed":
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("%w: collapsed must be a boolean", ErrInvalidUpdate)
		}
		n.Collapsed = b
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedField, key)
}

func quantityOf(n *Node) *Quantity {
	if n.Quantity == nil {
		n.Quantity = &Quantity{}
	}
	return n.Quantity
}

func setString(dst *string, key string, raw any) error {
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%w: %s must be a string", ErrInvalidUpdate, key)
	}
	*dst = s
	return nil
}

// setValue accepts a bare number or an object {value, unit}.
func setValue(q *Quantity, raw any) error {
	if obj, ok := raw.(map[string]any); ok {
		if v, present := obj["value"]; present {
			f, ok := toFloat(v)
			if !ok {
				return fmt.Errorf("%w: value.value must be a number", ErrInvalidUpdate)
			}
			q.Value = f
		}
		if u, present := obj["unit"]; present {
			return setString(&q.Unit, "value.unit", u)
		}
		return nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return fmt.Errorf("%w: value must be a number", ErrInvalidUpdate)
	}
	q.Value = f
	return nil
}

func setPosition(p *Position, raw any) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: position must be an object", ErrInvalidUpdate)
	}
	next := *p
	for key, dst := range map[string]*float64{"x": &next.X, "y": &next.Y} {
		v, present := obj[key]
		if !present {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%w: position.%s must be a number", ErrInvalidUpdate, key)
		}
		*dst = f
	}
	*p = next
	return nil
}

// toFloat accepts the numeric shapes produced by encoding/json and by Go callers.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
