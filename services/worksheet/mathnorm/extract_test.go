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
	"github.com/stretchr/testify/require"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"numbers only", "3 + 4", []string{}},
		{"function and greek", "sin(x) + alpha", []string{"alpha", "x"}},
		{"newton", "F = m*a", []string{"F", "a", "m"}},
		{"implicit product", "bh/2", []string{"b", "h"}},
		{"constant dropped", "pi*r**2", []string{"r"}},
		{"duplicates", "x + x**2", []string{"x"}},
		{"compound identifier", "x_cg_prime + 2y", []string{"x_cg_prime", "y"}},
		{"scientific literal", "1e5*x", []string{"x"}},
		{"modulus and inertia", "E*I*d**4", []string{"E", "I", "d"}},
		{"magnitude", "v_mag = sqrt(v_x**2 + v_y**2)", []string{"v_mag", "v_x", "v_y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVariables(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractMarkupVariables(t *testing.T) {
	assert.Equal(t, []string{"m", "v"}, ExtractMarkupVariables(`\frac{1}{2} m v^{2}`))
	assert.Equal(t, []string{"g", "h", "rho_water"}, ExtractMarkupVariables(`\rho_{water} g h`))
	assert.Equal(t, []string{"x_cg_prime"}, ExtractMarkupVariables(`x'_{cg}`))
	assert.Equal(t, []string{"F_mag", "W", "d"}, ExtractMarkupVariables(`W = \left|F\right| d`))
	assert.Equal(t, []string{"F_mag", "W", "d"}, ExtractMarkupVariables(`W = |F|d`))
}

func TestVocabulary(t *testing.T) {
	assert.True(t, IsFunctionName("sqrt"))
	assert.False(t, IsFunctionName("x"))
	assert.True(t, IsConstantName("pi"))
	assert.False(t, IsConstantName("E"))
	assert.False(t, IsConstantName("I"))
	assert.True(t, IsGreekName("theta"))
	assert.False(t, IsGreekName("vartheta"))
}
