// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// unitNames are the unit symbols the offline checker accepts unprefixed.
var unitNames = []string{
	"m", "g", "s", "A", "K", "mol", "cd",
	"N", "Pa", "J", "W", "C", "V", "F", "Ohm", "ohm", "S", "Wb", "T", "H", "Hz",
	"L", "l", "rad", "sr", "deg", "degC", "degF",
	"min", "h", "hr", "day", "yr",
	"bar", "atm", "psi", "ksi", "psf", "lbf", "lb", "lbm", "kip", "slug",
	"ft", "in", "yd", "mi", "mph", "rpm", "cal", "eV", "Btu", "hp", "gal",
}

// prefixable are the unit symbols that accept an SI prefix.
var prefixable = []string{
	"m", "g", "s", "A", "K", "mol", "N", "Pa", "J", "W", "C", "V", "F",
	"Ohm", "S", "Wb", "T", "H", "Hz", "L", "l", "bar", "eV", "cal",
}

// siPrefixes, longest first so "da" wins over "d".
var siPrefixes = []string{"da", "Y", "Z", "E", "P", "T", "G", "M", "k", "h", "d", "c", "m", "u", "n", "p", "f", "a"}

var (
	unitSet       = toSet(unitNames)
	prefixableSet = toSet(prefixable)

	unitReplacer = strings.NewReplacer(
		"·", "*", "⋅", "*", "×", "*",
		"²", "^2", "³", "^3", "⁻¹", "^-1",
		"µ", "u", "μ", "u", "Ω", "Ohm", "°C", "degC", "°F", "degF", "°", "deg",
	)
)

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// OfflineChecker validates unit expressions without a solver.
//
// It accepts products, quotients and integer powers of known units with
// optional SI prefixes, e.g. "kg*m/s^2", "kN m", "N/mm^2". It cannot detect
// dimensional mismatches between a unit and its quantity.
type OfflineChecker struct{}

// NewOfflineChecker creates an OfflineChecker.
func NewOfflineChecker() *OfflineChecker {
	return &OfflineChecker{}
}

// CheckUnits implements UnitChecker. It never returns an error.
func (o *OfflineChecker) CheckUnits(_ context.Context, expression string) (UnitCheck, error) {
	if err := checkUnitSyntax(expression); err != nil {
		return UnitCheck{Consistent: false, Message: err.Error()}, nil
	}
	return UnitCheck{Consistent: true}, nil
}

// KnownUnit reports whether name is a unit symbol, possibly SI-prefixed.
func KnownUnit(name string) bool {
	if _, ok := unitSet[name]; ok {
		return true
	}
	for _, p := range siPrefixes {
		if rest, ok := strings.CutPrefix(name, p); ok && rest != "" {
			if _, ok := prefixableSet[rest]; ok {
				return true
			}
		}
	}
	return false
}

type unitToken struct {
	kind byte // 'u' unit, 'n' number, 'o' operator, '(' or ')'
	text string
}

func tokenizeUnits(expr string) ([]unitToken, error) {
	s := unitReplacer.Replace(expr)
	var toks []unitToken
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')':
			toks = append(toks, unitToken{kind: byte(c), text: string(c)})
			i++
		case c == '*' && i+1 < len(s) && s[i+1] == '*':
			toks = append(toks, unitToken{kind: 'o', text: "^"})
			i += 2
		case c == '*' || c == '/' || c == '^':
			toks = append(toks, unitToken{kind: 'o', text: string(c)})
			i++
		case c == '-' || c == '.' || unicode.IsDigit(c):
			j := i + 1
			for j < len(s) && (s[j] == '.' || unicode.IsDigit(rune(s[j]))) {
				j++
			}
			toks = append(toks, unitToken{kind: 'n', text: s[i:j]})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i + 1
			for j < len(s) && (unicode.IsLetter(rune(s[j])) || s[j] == '_') {
				j++
			}
			toks = append(toks, unitToken{kind: 'u', text: s[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q in unit", s[i])
		}
	}
	return toks, nil
}

// checkUnitSyntax walks the token stream. Juxtaposed units multiply.
func checkUnitSyntax(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("empty unit")
	}
	toks, err := tokenizeUnits(expr)
	if err != nil {
		return err
	}

	depth := 0
	expectOperand := true
	for i, t := range toks {
		switch t.kind {
		case 'u':
			if !KnownUnit(t.text) {
				return fmt.Errorf("unknown unit %q", t.text)
			}
			expectOperand = false
		case 'n':
			prevPow := i > 0 && toks[i-1].kind == 'o' && toks[i-1].text == "^"
			prevOpen := i > 1 && toks[i-1].kind == '(' && toks[i-2].text == "^"
			if !prevPow && !prevOpen && t.text != "1" {
				return fmt.Errorf("number %q outside an exponent", t.text)
			}
			if t.text == "-" {
				return fmt.Errorf("dangling minus in unit")
			}
			expectOperand = false
		case 'o':
			if expectOperand {
				return fmt.Errorf("operator %q without left operand", t.text)
			}
			if t.text == "^" && (i+1 >= len(toks) || (toks[i+1].kind != 'n' && toks[i+1].kind != '(')) {
				return fmt.Errorf("exponent must be a number")
			}
			expectOperand = true
		case '(':
			depth++
			expectOperand = true
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses")
			}
			if expectOperand {
				return fmt.Errorf("empty group in unit")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	if expectOperand {
		return fmt.Errorf("dangling operator in unit")
	}
	return nil
}
