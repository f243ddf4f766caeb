// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mathnorm

import (
	"regexp"
	"strings"
)

// Protected words are swapped for single private-use runes while the
// multiplication rules run. Function names get their own range so that
// "sin(" is never rewritten to "sin*(".
const (
	functionRuneBase = 0xE000
	atomRuneBase     = 0xE800
	runeRangeSize    = 0x0800
)

const (
	atomClass     = `\x{E800}-\x{EFFF}`
	functionClass = `\x{E000}-\x{E7FF}`
)

// splitPasses bounds the consecutive-letter splitting.
const splitPasses = 4

var (
	scientificNumber = regexp.MustCompile(`\d+(?:\.\d+)?[eE][+-]?\d+`)
	subscriptedIdent = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*(?:_[A-Za-z0-9]+)+`)
	reservedPattern  = buildReservedPattern()

	digitThenLetter   = regexp.MustCompile(`(\d)([A-Za-z` + atomClass + functionClass + `])`)
	letterThenParen   = regexp.MustCompile(`([A-Za-z` + atomClass + `])\(`)
	parenThenOperand  = regexp.MustCompile(`\)([A-Za-z(` + atomClass + functionClass + `])`)
	consecutiveLetter = regexp.MustCompile(`([a-z` + atomClass + `])([a-z` + atomClass + functionClass + `])`)
)

func buildReservedPattern() *regexp.Regexp {
	quoted := make([]string, len(reservedWords))
	for i, w := range reservedWords {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

// placeholders records the text hidden behind each private-use rune.
type placeholders struct {
	originals map[rune]string
	nextFn    int
	nextAtom  int
}

func newPlaceholders() *placeholders {
	return &placeholders{originals: make(map[rune]string)}
}

func (p *placeholders) protect(text string, function bool) string {
	var r rune
	if function {
		if p.nextFn >= runeRangeSize {
			return text
		}
		r = rune(functionRuneBase + p.nextFn)
		p.nextFn++
	} else {
		if p.nextAtom >= runeRangeSize {
			return text
		}
		r = rune(atomRuneBase + p.nextAtom)
		p.nextAtom++
	}
	p.originals[r] = text
	return string(r)
}

func (p *placeholders) restore(s string) string {
	if len(p.originals) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if orig, ok := p.originals[r]; ok {
			b.WriteString(orig)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AddImplicitMultiplication makes algebraic shorthand explicit.
//
// Description:
//
//	Inserts "*" where juxtaposition means a product: "2x" becomes "2*x"
//	and "bh" becomes "b*h". Known function names, constants,
//	Greek-letter names, scientific-notation numbers and subscripted
//	identifiers (x_1_prime) are never split.
//
// Inputs:
//
//	expr - A normalized algebraic expression.
//
// Outputs:
//
//	string - The expression with explicit multiplication.
//
// Example:
//
//	AddImplicitMultiplication("bh")         // "b*h"
//	AddImplicitMultiplication("2x")         // "2*x"
//	AddImplicitMultiplication("2sin(x)")    // "2*sin(x)"
//	AddImplicitMultiplication("(a+b)(a-b)") // "(a+b)*(a-b)"
//
// Thread Safety: This function is safe for concurrent use.
func AddImplicitMultiplication(expr string) string {
	if expr == "" {
		return ""
	}
	ph := newPlaceholders()

	s := scientificNumber.ReplaceAllStringFunc(expr, func(m string) string {
		return ph.protect(m, false)
	})
	s = subscriptedIdent.ReplaceAllStringFunc(s, func(m string) string {
		return ph.protect(m, false)
	})
	s = reservedPattern.ReplaceAllStringFunc(s, func(m string) string {
		return ph.protect(m, IsFunctionName(m))
	})

	s = digitThenLetter.ReplaceAllString(s, "$1*$2")
	s = letterThenParen.ReplaceAllString(s, "$1*(")
	s = parenThenOperand.ReplaceAllString(s, ")*$1")
	for pass := 0; pass < splitPasses; pass++ {
		next := consecutiveLetter.ReplaceAllString(s, "$1*$2")
		if next == s {
			break
		}
		s = next
	}

	return ph.restore(s)
}
