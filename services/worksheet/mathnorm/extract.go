// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mathnorm

import (
	"regexp"
	"sort"
)

var identifierToken = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*`)

// ExtractVariables returns the free identifiers of a normalized expression.
//
// Description:
//
//	Expands implicit multiplication first, then collects every identifier
//	that is not a known function or constant. Duplicates are removed.
//	The result is sorted so callers get a stable order, but no meaning is
//	attached to it.
//
// Inputs:
//
//	expr - A normalized expression (see Normalize).
//
// Outputs:
//
//	[]string - Unique variable names. Empty (non-nil) when none.
//
// Example:
//
//	ExtractVariables("sin(x) + alpha") // ["alpha", "x"]
//	ExtractVariables("F = m*a")        // ["F", "a", "m"]
//	ExtractVariables("bh/2")           // ["b", "h"]
//
// Thread Safety: This function is safe for concurrent use.
func ExtractVariables(expr string) []string {
	vars := []string{}
	if expr == "" {
		return vars
	}
	seen := make(map[string]struct{})
	for _, tok := range identifierToken.FindAllString(AddImplicitMultiplication(expr), -1) {
		if IsFunctionName(tok) || IsConstantName(tok) || !hasLetter(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		vars = append(vars, tok)
	}
	sort.Strings(vars)
	return vars
}

// ExtractMarkupVariables normalizes markup and then extracts variables.
func ExtractMarkupVariables(expr string) []string {
	return ExtractVariables(Normalize(expr))
}

func hasLetter(s string) bool {
	for i := 0; i < len(s); i++ {
		if isLetter(s[i]) {
			return true
		}
	}
	return false
}
