// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mathnorm turns marked-up math into canonical algebraic text.
//
// The normalizer is an ordered list of rewrite rules. Later rules assume the
// earlier ones already ran, so the order in rules is part of the contract.
// The canonical form uses explicit operators (*, **, /), no markup commands,
// and one spelling per identifier (x_prime, x_cg_prime, x_mag).
//
// Thread Safety:
//
//	All exported functions are pure and safe for concurrent use.
package mathnorm

import (
	"regexp"
	"strings"
)

// maxPasses bounds the fixpoint loops used for nested markup.
const maxPasses = 32

// Rule is one named rewrite step of the normalizer.
type Rule struct {
	// Name identifies the rule in tests and debug output.
	Name string

	// Apply rewrites its input. It must be total: any string is accepted.
	Apply func(string) string
}

var (
	commandToken       = regexp.MustCompile(`\\([A-Za-z]+)`)
	multiplyCommand    = regexp.MustCompile(`\\(?:cdot|times|ast)\b`)
	spacingCommand     = regexp.MustCompile(`\\(?:quad|qquad)\b|\\ `)
	thinSpaceCommand   = regexp.MustCompile(`\\[,;:!]`)
	sizingCommand      = regexp.MustCompile(`\\(?:left|right|bigl|bigr|Bigl|Bigr|biggl|biggr|big|Big|bigg|Bigg)\b`)
	barCommand         = regexp.MustCompile(`\\(?:lvert|rvert|vert|lVert|rVert|mid)\b`)
	primeExponent      = regexp.MustCompile(`(?:\*\*|\^)\s*\\prime\b`)
	primeCommand       = regexp.MustCompile(`\\prime\b`)
	primedIdentifier   = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_]*)'`)
	strayMarkup        = regexp.MustCompile(`[{}\\$]`)
	magnitudeBars      = regexp.MustCompile(`\|\s*([A-Za-z][A-Za-z0-9_]*)\s*\|`)
	magnitudeAbs       = regexp.MustCompile(`\bAbs\(\s*([A-Za-z][A-Za-z0-9_]*)\s*\)`)
	absoluteBars       = regexp.MustCompile(`\|([^|]+)\|`)
	compoundIdentifier = regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9]*(?:_[A-Za-z0-9]+)+\b`)
	simpleExponent     = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
)

// rules is the normalizer pipeline. Order matters.
var rules = []Rule{
	{Name: "escaped_underscore", Apply: unescapeUnderscores},
	{Name: "greek_letters", Apply: replaceGreek},
	{Name: "flatten_scripts", Apply: flattenScripts},
	{Name: "style_wrappers", Apply: unwrapStyles},
	{Name: "fractions", Apply: expandFractions},
	{Name: "multiplication", Apply: replaceMultiplication},
	{Name: "exponentiation", Apply: replaceCaret},
	{Name: "decorators", Apply: removeDecorators},
	{Name: "structural_operators", Apply: removeStructuralOperators},
	{Name: "functions", Apply: rewriteFunctions},
	{Name: "primes", Apply: rewritePrimes},
	{Name: "remaining_markup", Apply: stripRemainingMarkup},
	{Name: "magnitudes", Apply: rewriteMagnitudes},
	{Name: "prime_position", Apply: movePrimeToSuffix},
}

// Rules returns the ordered normalizer pipeline.
//
// Description:
//
//	Exposes each rewrite step so it can be inspected or applied in
//	isolation. The returned slice is a copy.
//
// Outputs:
//
//	[]Rule - Rules in application order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Normalize converts marked-up math into a canonical algebraic string.
//
// Description:
//
//	Applies every rule in order. Plain algebraic input without markup passes
//	through unchanged apart from the prime and underscore canonicalizations.
//	Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
//
// Inputs:
//
//	expr - Markup, plain algebra, or a mix of both.
//
// Outputs:
//
//	string - Canonical form. Empty input yields empty output.
//
// Example:
//
//	Normalize(`\frac{1}{2} m v^{2}`) // "(1)/(2) m v**2"
//	Normalize(`\rho_{water} g h`)   // "rho_water g h"
//
// Thread Safety: This function is safe for concurrent use.
func Normalize(expr string) string {
	if expr == "" {
		return ""
	}
	out := expr
	for _, r := range rules {
		out = r.Apply(out)
	}
	return out
}

// -----------------------------------------------------------------------------
// Rule implementations
// -----------------------------------------------------------------------------

func unescapeUnderscores(s string) string {
	return strings.ReplaceAll(s, `\_`, "_")
}

func replaceGreek(s string) string {
	return commandToken.ReplaceAllStringFunc(s, func(m string) string {
		if bare, ok := greekAliases[m[1:]]; ok {
			return bare
		}
		return m
	})
}

// flattenScripts rewrites _{...} and ^{...} groups so nested braces cannot
// confuse the fraction rule.
func flattenScripts(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if (c == '_' || c == '^') && i+1 < len(s) && s[i+1] == '{' {
			if inner, end, ok := braceGroup(s, i+1); ok {
				if c == '^' && isPrimeMarkup(inner) {
					b.WriteString(strings.Repeat("'", strings.Count(inner, `\prime`)))
				} else if c == '_' {
					b.WriteByte('_')
					b.WriteString(subscriptToken(inner))
				} else {
					b.WriteByte('^')
					b.WriteString(superscriptToken(inner))
				}
				i = end
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isPrimeMarkup(inner string) bool {
	trimmed := strings.TrimSpace(strings.ReplaceAll(inner, `\prime`, ""))
	return trimmed == "" && strings.Contains(inner, `\prime`)
}

func subscriptToken(inner string) string {
	inner = unwrapStyles(inner)
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case isIdentByte(c):
			b.WriteByte(c)
		case c == ',':
			b.WriteByte('_')
		}
	}
	return b.String()
}

func superscriptToken(inner string) string {
	inner = strings.TrimSpace(inner)
	if simpleExponent.MatchString(inner) {
		return inner
	}
	return "(" + inner + ")"
}

func unwrapStyles(s string) string {
	return rewriteCommands(s, 1, func(name string) bool {
		_, ok := styleSet[name]
		return ok
	}, func(_ string, _ string, args []string) string {
		return args[0]
	})
}

func expandFractions(s string) string {
	return rewriteCommands(s, 2, func(name string) bool {
		return name == "frac" || name == "dfrac" || name == "tfrac" || name == "cfrac"
	}, func(_ string, _ string, args []string) string {
		return "(" + args[0] + ")/(" + args[1] + ")"
	})
}

func replaceMultiplication(s string) string {
	s = multiplyCommand.ReplaceAllString(s, "*")
	return strings.NewReplacer("·", "*", "×", "*", "⋅", "*").Replace(s)
}

func replaceCaret(s string) string {
	return strings.ReplaceAll(s, "^", "**")
}

func removeDecorators(s string) string {
	s = barCommand.ReplaceAllString(s, "|")
	s = sizingCommand.ReplaceAllString(s, "")
	s = spacingCommand.ReplaceAllString(s, " ")
	return thinSpaceCommand.ReplaceAllString(s, "")
}

func removeStructuralOperators(s string) string {
	return commandToken.ReplaceAllStringFunc(s, func(m string) string {
		if _, ok := structuralOp[m[1:]]; ok {
			return ""
		}
		return m
	})
}

func rewriteFunctions(s string) string {
	s = rewriteCommands(s, 1, func(name string) bool {
		_, ok := markupFnSet[name]
		return ok
	}, func(name string, opt string, args []string) string {
		if name == "sqrt" && strings.TrimSpace(opt) != "" {
			return "(" + args[0] + ")**(1/(" + strings.TrimSpace(opt) + "))"
		}
		return name + "(" + args[0] + ")"
	})
	return commandToken.ReplaceAllStringFunc(s, func(m string) string {
		if _, ok := markupFnSet[m[1:]]; ok {
			return m[1:]
		}
		return m
	})
}

func rewritePrimes(s string) string {
	s = primeExponent.ReplaceAllString(s, "'")
	s = primeCommand.ReplaceAllString(s, "'")
	for pass := 0; pass < maxPasses; pass++ {
		next := primedIdentifier.ReplaceAllString(s, "${1}_prime")
		if next == s {
			break
		}
		s = next
	}
	return s
}

func stripRemainingMarkup(s string) string {
	s = rewriteCommands(s, 1, func(string) bool { return true }, func(_ string, _ string, args []string) string {
		return args[0]
	})
	s = commandToken.ReplaceAllString(s, "")
	return strayMarkup.ReplaceAllString(s, "")
}

// rewriteMagnitudes runs to a fixpoint so nested bars and Abs calls settle
// in one application. The magnitude of a magnitude is itself.
func rewriteMagnitudes(s string) string {
	for pass := 0; pass < maxPasses; pass++ {
		next := magnitudeIdentifier(magnitudeBars, s)
		next = magnitudeIdentifier(magnitudeAbs, next)
		next = absoluteBars.ReplaceAllString(next, "Abs($1)")
		if next == s {
			break
		}
		s = next
	}
	return s
}

// magnitudeIdentifier replaces each match of re with its identifier plus
// _mag. A space separates the result from a following identifier or digit
// so |F|d stays two factors.
func magnitudeIdentifier(re *regexp.Regexp, s string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		ident := s[m[2]:m[3]]
		if !strings.HasSuffix(ident, "_mag") {
			ident += "_mag"
		}
		b.WriteString(ident)
		if m[1] < len(s) && isIdentByte(s[m[1]]) {
			b.WriteByte(' ')
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// movePrimeToSuffix gives primed compound identifiers one spelling:
// x_prime_cg becomes x_cg_prime.
func movePrimeToSuffix(s string) string {
	return compoundIdentifier.ReplaceAllStringFunc(s, func(ident string) string {
		parts := strings.Split(ident, "_")
		primes := 0
		kept := make([]string, 0, len(parts))
		kept = append(kept, parts[0])
		for _, p := range parts[1:] {
			if p == "prime" {
				primes++
				continue
			}
			kept = append(kept, p)
		}
		if primes == 0 {
			return ident
		}
		for i := 0; i < primes; i++ {
			kept = append(kept, "prime")
		}
		return strings.Join(kept, "_")
	})
}

// -----------------------------------------------------------------------------
// Brace matching
// -----------------------------------------------------------------------------

// braceGroup returns the content of the brace group opening at s[open] and
// the index just past its closing brace.
func braceGroup(s string, open int) (string, int, bool) {
	if open >= len(s) || s[open] != '{' {
		return "", open, false
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open+1 : i], i + 1, true
			}
		}
	}
	return "", open, false
}

// bracketOption returns the content of an optional [..] argument at s[open].
func bracketOption(s string, open int) (string, int, bool) {
	if open >= len(s) || s[open] != '[' {
		return "", open, false
	}
	end := strings.IndexByte(s[open:], ']')
	if end < 0 {
		return "", open, false
	}
	return s[open+1 : open+end], open + end + 1, true
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// rewriteCommands replaces \name[opt]{arg1}...{argN} for every name accepted
// by match, repeating until nested occurrences are gone. Commands without
// enough brace groups are left untouched.
func rewriteCommands(
	s string,
	arity int,
	match func(name string) bool,
	render func(name, opt string, args []string) string,
) string {
	for pass := 0; pass < maxPasses; pass++ {
		next, changed := rewriteCommandsOnce(s, arity, match, render)
		s = next
		if !changed {
			break
		}
	}
	return s
}

func rewriteCommandsOnce(
	s string,
	arity int,
	match func(name string) bool,
	render func(name, opt string, args []string) string,
) (string, bool) {
	if !strings.Contains(s, `\`) {
		return s, false
	}
	var b strings.Builder
	b.Grow(len(s))
	changed := false
	for i := 0; i < len(s); {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i + 1
		for j < len(s) && isLetter(s[j]) {
			j++
		}
		name := s[i+1 : j]
		if name == "" {
			b.WriteByte('\\')
			i++
			continue
		}
		if !match(name) {
			b.WriteString(s[i:j])
			i = j
			continue
		}

		k := skipSpaces(s, j)
		opt := ""
		if o, end, ok := bracketOption(s, k); ok {
			opt = o
			k = skipSpaces(s, end)
		}
		args := make([]string, 0, arity)
		argEnd := k
		for len(args) < arity {
			if len(args) > 0 {
				k = skipSpaces(s, k)
			}
			inner, end, ok := braceGroup(s, k)
			if !ok {
				break
			}
			args = append(args, inner)
			k, argEnd = end, end
		}
		if len(args) < arity {
			b.WriteString(s[i:j])
			i = j
			continue
		}
		b.WriteString(render(name, opt, args))
		i = argEnd
		changed = true
	}
	return b.String(), changed
}
