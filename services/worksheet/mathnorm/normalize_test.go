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

func ruleNamed(t *testing.T, name string) Rule {
	t.Helper()
	for _, r := range Rules() {
		if r.Name == name {
			return r
		}
	}
	require.FailNow(t, "unknown rule", name)
	return Rule{}
}

func TestRules_Isolated(t *testing.T) {
	tests := []struct {
		rule  string
		input string
		want  string
	}{
		{"escaped_underscore", `F\_net`, "F_net"},
		{"greek_letters", `\rho g h`, "rho g h"},
		{"greek_letters", `\varphi + \Omega`, "phi + Omega"},
		{"greek_letters", `\frac{a}{b}`, `\frac{a}{b}`},
		{"flatten_scripts", `x_{cg}`, "x_cg"},
		{"flatten_scripts", `v^{2}`, "v^2"},
		{"flatten_scripts", `x^{a+b}`, "x^(a+b)"},
		{"flatten_scripts", `x_{\text{max}}`, "x_max"},
		{"flatten_scripts", `x^{\prime}`, "x'"},
		{"style_wrappers", `\mathbf{F}`, "F"},
		{"style_wrappers", `\operatorname{sinc}(x)`, "sinc(x)"},
		{"style_wrappers", `\text{\textbf{m}}`, "m"},
		{"fractions", `\frac{a}{b}`, "(a)/(b)"},
		{"fractions", `\frac{\frac{1}{2}}{c}`, "((1)/(2))/(c)"},
		{"fractions", `\dfrac {F} {A} + 1`, "(F)/(A) + 1"},
		{"multiplication", `a \cdot b`, "a * b"},
		{"multiplication", `a\times b`, "a* b"},
		{"exponentiation", "x^2", "x**2"},
		{"decorators", `\left( a \right)`, "( a )"},
		{"decorators", `\lvert x \rvert`, "| x |"},
		{"decorators", `2\,m`, "2m"},
		{"structural_operators", `\sum x_i`, " x_i"},
		{"functions", `\sqrt{x}`, "sqrt(x)"},
		{"functions", `\sqrt[3]{x}`, "(x)**(1/(3))"},
		{"functions", `\sin\theta`, `sin\theta`},
		{"functions", `\cos(x)`, "cos(x)"},
		{"primes", "x'", "x_prime"},
		{"primes", "x''", "x_prime_prime"},
		{"primes", `x**\prime`, "x_prime"},
		{"remaining_markup", `\hat{v}`, "v"},
		{"remaining_markup", `\displaystyle x`, " x"},
		{"remaining_markup", `{a}`, "a"},
		{"magnitudes", "|v|", "v_mag"},
		{"magnitudes", "Abs(F)", "F_mag"},
		{"magnitudes", "|a - b|", "Abs(a - b)"},
		{"magnitudes", "||x||", "x_mag"},
		{"magnitudes", "Abs(Abs(x))", "x_mag"},
		{"magnitudes", "|x - |y||", "Abs(x - y_mag)"},
		{"magnitudes", "|v|t", "v_mag t"},
		{"magnitudes", "Abs(F)d", "F_mag d"},
		{"magnitudes", "|F|*d", "F_mag*d"},
		{"prime_position", "x_prime_cg", "x_cg_prime"},
		{"prime_position", "x_cg_prime", "x_cg_prime"},
	}

	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.input, func(t *testing.T) {
			got := ruleNamed(t, tt.rule).Apply(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRules_Order(t *testing.T) {
	names := make([]string, 0, len(rules))
	for _, r := range Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"escaped_underscore",
		"greek_letters",
		"flatten_scripts",
		"style_wrappers",
		"fractions",
		"multiplication",
		"exponentiation",
		"decorators",
		"structural_operators",
		"functions",
		"primes",
		"remaining_markup",
		"magnitudes",
		"prime_position",
	}, names)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"kinetic energy", `\frac{1}{2} m v^{2}`, "(1)/(2) m v**2"},
		{"subscripted greek", `\rho_{water} g h`, "rho_water g h"},
		{"stress", `\sigma = \frac{F}{A}`, "sigma = (F)/(A)"},
		{"nested fraction", `\frac{1}{\frac{1}{R_1} + \frac{1}{R_2}}`, "(1)/((1)/(R_1) + (1)/(R_2))"},
		{"sqrt of product", `\sqrt{2 g h}`, "sqrt(2 g h)"},
		{"times", `F = m \times a`, "F = m * a"},
		{"primed subscript", `x'_{cg}`, "x_cg_prime"},
		{"prime superscript", `M^{\prime}_{max}`, "M_max_prime"},
		{"magnitude", `\left| v \right|`, "v_mag"},
		{"abs expression", `|v_1 - v_2|`, "Abs(v_1 - v_2)"},
		{"work from magnitude", `W = |F|d`, "W = F_mag d"},
		{"sized magnitude factor", `\left|F\right|d`, "F_mag d"},
		{"norm", `\lVert x \rVert`, "x_mag"},
		{"bold vector", `\mathbf{F}_{net} = m \cdot \mathbf{a}`, "F_net = m * a"},
		{"escaped underscore", `F\_{net}`, "F_net"},
		{"trig", `\sin{\theta} \cdot L`, "sin(theta) * L"},
		{"exponent group", `e^{-k t}`, "e**(-k t)"},
		{"unknown command", `\vec{v} + \dot{x}`, "v + x"},
		{"dollar delimiters", `$a + b$`, "a + b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_PlainPassesThrough(t *testing.T) {
	plain := []string{
		"F = m*a",
		"sigma = F/A",
		"x**2 + 2*x + 1",
		"(a)/(b)",
		"sqrt(2*g*h)",
		"v_mag",
		"x_cg_prime",
		"Abs(a - b)",
		"E*I*d**4",
	}
	for _, s := range plain {
		assert.Equal(t, s, Normalize(s), "input %q", s)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`\frac{1}{2} m v^{2}`,
		`x'_{cg} + |y| + |a-b|`,
		`\sqrt[3]{\frac{V}{\pi}}`,
		`\left( \alpha_{1} \cdot \beta' \right)^{2}`,
		`M^{\prime}_{max} = \frac{w L^2}{8}`,
		`\text{Re} = \frac{\rho v D}{\mu}`,
		"F = m*a",
		"x''",
		"||x||",
		"Abs(Abs(x))",
		"||a - b||",
		`\left|F\right|d`,
		"|v|t",
	}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}
