// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mathnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddImplicitMultiplication(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"adjacent letters", "bh", "b*h"},
		{"three letters", "abc", "a*b*c"},
		{"digit then letter", "2x", "2*x"},
		{"digit then function", "2sin(x)", "2*sin(x)"},
		{"letter then function", "xsin(x)", "x*sin(x)"},
		{"groups", "(a+b)(a-b)", "(a+b)*(a-b)"},
		{"group then letter", "(a+b)c", "(a+b)*c"},
		{"letter then group", "a(b+c)", "a*(b+c)"},
		{"function call kept", "sqrt(x)", "sqrt(x)"},
		{"greek kept whole", "alpha", "alpha"},
		{"greek then letter", "alphax", "alpha*x"},
		{"constant kept whole", "2pi", "2*pi"},
		{"subscript kept whole", "x_cg_prime", "x_cg_prime"},
		{"subscript then group", "sigma_max(a)", "sigma_max*(a)"},
		{"scientific number", "1.5e3", "1.5e3"},
		{"scientific number times", "2e5x", "2e5*x"},
		{"explicit unchanged", "F = m*a", "F = m*a"},
		{"uppercase pair kept", "EI", "EI"},
		{"spaces untouched", "rho g h", "rho g h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddImplicitMultiplication(tt.input))
		})
	}
}

func TestAddImplicitMultiplication_Idempotent(t *testing.T) {
	for _, s := range []string{"bh", "2x", "abc", "alphax", "(a+b)(a-b)", "x_1y2"} {
		once := AddImplicitMultiplication(s)
		assert.Equal(t, once, AddImplicitMultiplication(once), "input %q", s)
	}
}
