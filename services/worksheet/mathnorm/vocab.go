// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mathnorm

import (
	"sort"
)

// greekAliases maps markup Greek-letter commands to their bare identifier.
// Variant spellings collapse onto the base letter so that \varphi and \phi
// name the same variable.
var greekAliases = map[string]string{
	"alpha": "alpha", "beta": "beta", "gamma": "gamma", "delta": "delta",
	"epsilon": "epsilon", "varepsilon": "epsilon", "zeta": "zeta", "eta": "eta",
	"theta": "theta", "vartheta": "theta", "iota": "iota", "kappa": "kappa",
	"lambda": "lambda", "mu": "mu", "nu": "nu", "xi": "xi", "pi": "pi",
	"varpi": "pi", "rho": "rho", "varrho": "rho", "sigma": "sigma",
	"varsigma": "sigma", "tau": "tau", "upsilon": "upsilon", "phi": "phi",
	"varphi": "phi", "chi": "chi", "psi": "psi", "omega": "omega",
	"Gamma": "Gamma", "Delta": "Delta", "Theta": "Theta", "Lambda": "Lambda",
	"Xi": "Xi", "Pi": "Pi", "Sigma": "Sigma", "Upsilon": "Upsilon",
	"Phi": "Phi", "Psi": "Psi", "Omega": "Omega",
}

// functionNames are callables understood by the solver. They are never
// reported as variables and are never split by implicit multiplication.
var functionNames = []string{
	"sqrt", "cbrt", "root",
	"sin", "cos", "tan", "sec", "csc", "cot",
	"asin", "acos", "atan", "atan2",
	"arcsin", "arccos", "arctan",
	"sinh", "cosh", "tanh", "asinh", "acosh", "atanh",
	"log", "ln", "log10", "log2", "exp",
	"abs", "Abs", "sign", "floor", "ceiling", "ceil",
	"min", "max", "Min", "Max",
}

// markupFunctions are the function commands that wrap a brace group in
// markup (\sqrt{x}, \sin{x}) and become ordinary call syntax.
var markupFunctions = []string{
	"sqrt", "sin", "cos", "tan", "sec", "csc", "cot",
	"arcsin", "arccos", "arctan", "sinh", "cosh", "tanh",
	"ln", "log", "exp", "abs", "min", "max", "det",
}

// constantNames are symbolic constants of the solver. E and I stay ordinary
// variables (elastic modulus, second moment of area).
var constantNames = []string{"pi", "oo", "inf", "Infinity", "nan"}

// styleWrappers are markup commands whose only effect is presentation.
var styleWrappers = []string{
	"mathbf", "mathrm", "mathit", "mathsf", "mathtt", "mathcal", "mathbb",
	"boldsymbol", "bm", "textbf", "textit", "textrm", "text", "rm",
	"operatorname",
}

// structuralOperators are big operators that carry no variable meaning.
var structuralOperators = []string{"sum", "prod", "int", "iint", "iiint", "oint"}

var (
	functionSet  = toSet(functionNames)
	constantSet  = toSet(constantNames)
	markupFnSet  = toSet(markupFunctions)
	styleSet     = toSet(styleWrappers)
	structuralOp = toSet(structuralOperators)

	// reservedWords is the longest-first list of words that implicit
	// multiplication must treat as indivisible.
	reservedWords = buildReservedWords()
)

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func buildReservedWords() []string {
	seen := make(map[string]struct{})
	var words []string
	add := func(w string) {
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	for _, w := range functionNames {
		add(w)
	}
	for _, w := range constantNames {
		add(w)
	}
	for _, w := range greekAliases {
		add(w)
	}
	sort.SliceStable(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return words
}

// IsFunctionName reports whether name is a known solver function.
func IsFunctionName(name string) bool {
	_, ok := functionSet[name]
	return ok
}

// IsConstantName reports whether name is a known symbolic constant.
func IsConstantName(name string) bool {
	_, ok := constantSet[name]
	return ok
}

// IsGreekName reports whether name is the bare spelling of a Greek letter.
func IsGreekName(name string) bool {
	for _, v := range greekAliases {
		if v == name {
			return true
		}
	}
	return false
}

func isIdentStart(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentByte(r byte) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
