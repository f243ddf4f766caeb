// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package placement assigns canvas positions to the nodes a batch creates.
package placement

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
)

// Config holds the layout constants.
type Config struct {
	Grid        float64 `yaml:"grid"`
	DefaultX    float64 `yaml:"default_x"`
	DefaultY    float64 `yaml:"default_y"`
	Margin      float64 `yaml:"margin"`
	VerticalGap float64 `yaml:"vertical_gap"`
	MaxSteps    int     `yaml:"max_steps"`

	CompactWidth  float64 `yaml:"compact_width"`
	CompactHeight float64 `yaml:"compact_height"`
	PlotWidth     float64 `yaml:"plot_width"`
	PlotHeight    float64 `yaml:"plot_height"`

	TextWidth       float64 `yaml:"text_width"`
	LineHeight      float64 `yaml:"line_height"`
	CharsPerLine    int     `yaml:"chars_per_line"`
	HeaderHeight    float64 `yaml:"header_height"`
	FenceBonus      float64 `yaml:"fence_bonus"`
	CollapsedHeight float64 `yaml:"collapsed_height"`
}

// DefaultConfig returns the standard layout constants.
func DefaultConfig() Config {
	return Config{
		Grid:            20,
		DefaultX:        100,
		DefaultY:        100,
		Margin:          10,
		VerticalGap:     20,
		MaxSteps:        500,
		CompactWidth:    280,
		CompactHeight:   100,
		PlotWidth:       420,
		PlotHeight:      320,
		TextWidth:       400,
		LineHeight:      20,
		CharsPerLine:    48,
		HeaderHeight:    40,
		FenceBonus:      60,
		CollapsedHeight: 40,
	}
}

// Validate rejects layouts the planner cannot work with.
func (c Config) Validate() error {
	switch {
	case c.Grid <= 0:
		return errors.New("placement grid must be positive")
	case c.Margin < 0:
		return errors.New("placement margin must not be negative")
	case c.VerticalGap < 0:
		return errors.New("placement vertical_gap must not be negative")
	case c.MaxSteps <= 0:
		return errors.New("placement max_steps must be positive")
	case c.CharsPerLine <= 0:
		return errors.New("placement chars_per_line must be positive")
	case c.CompactWidth <= 0 || c.CompactHeight <= 0 || c.PlotWidth <= 0 ||
		c.PlotHeight <= 0 || c.TextWidth <= 0 || c.LineHeight <= 0:
		return errors.New("placement box sizes must be positive")
	}
	return nil
}

// Size is an estimated box size.
type Size struct {
	W, H float64
}

// Rect is a box on the canvas.
type Rect struct {
	X, Y, W, H float64
}

// Bottom is the y coordinate of the lower edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Overlaps reports whether r and o come closer than margin on both axes.
func (r Rect) Overlaps(o Rect, margin float64) bool {
	return r.X-margin < o.X+o.W && o.X < r.X+r.W+margin &&
		r.Y-margin < o.Y+o.H && o.Y < r.Y+r.H+margin
}

// Planner places new nodes below the existing worksheet without overlaps.
//
// Thread Safety: Planner is immutable and safe for concurrent use.
type Planner struct {
	cfg    Config
	logger *slog.Logger
}

// NewPlanner creates a Planner. Invalid configs fall back to DefaultConfig.
func NewPlanner(cfg Config, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default().With("component", "placement")
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid placement config, using defaults", "error", err)
		cfg = DefaultConfig()
	}
	return &Planner{cfg: cfg, logger: logger}
}

// EstimateBox estimates the rendered size of a node.
//
// Description:
//
//	Given, equation, constraint, solve-goal and result nodes use the
//	compact box. Text and annotation nodes are TextWidth wide and grow
//	with their wrapped line count; annotations holding a fenced block get
//	FenceBonus extra, collapsed annotations are CollapsedHeight tall.
//	Plots use the plot box.
func (p *Planner) EstimateBox(n document.Node) Size {
	c := p.cfg
	switch n.Type {
	case document.NodePlot:
		return Size{W: c.PlotWidth, H: c.PlotHeight}
	case document.NodeText:
		return Size{W: c.TextWidth, H: c.HeaderHeight + float64(p.wrappedLines(n.Content))*c.LineHeight}
	case document.NodeAnnotation:
		if n.Collapsed {
			return Size{W: c.TextWidth, H: c.CollapsedHeight}
		}
		h := c.HeaderHeight + float64(p.wrappedLines(n.Content))*c.LineHeight
		if strings.Contains(n.Content, "```") {
			h += c.FenceBonus
		}
		return Size{W: c.TextWidth, H: h}
	}
	return Size{W: c.CompactWidth, H: c.CompactHeight}
}

func (p *Planner) wrappedLines(content string) int {
	lines := 0
	for _, para := range strings.Split(content, "\n") {
		n := utf8.RuneCountInString(para)
		if n == 0 {
			lines++
			continue
		}
		lines += (n + p.cfg.CharsPerLine - 1) / p.cfg.CharsPerLine
	}
	return lines
}

func (p *Planner) snapUp(v float64) float64 {
	return math.Ceil(v/p.cfg.Grid) * p.cfg.Grid
}

// Plan assigns a position to every node-creating command.
//
// Description:
//
//	The batch column starts at the x of the first existing node (or
//	DefaultX) and just below the lowest existing box, snapped to the grid.
//	Each new box is placed at the first grid step, searching downward from
//	the cursor, where it does not overlap any existing or already planned
//	box inflated by Margin. The cursor then moves below the placed box plus
//	VerticalGap. The search is bounded by MaxSteps; past that the box goes
//	below everything occupied.
//
// Inputs:
//
//	cmds - The batch, in execution order.
//	doc - The live document.
//
// Outputs:
//
//	map[int]document.Position - Keyed by command index. Commands that do
//	not create nodes have no entry.
func (p *Planner) Plan(cmds []commands.Command, doc document.Reader) map[int]document.Position {
	c := p.cfg
	positions := make(map[int]document.Position)
	nodes := doc.Nodes()

	occupied := make([]Rect, 0, len(nodes)+len(cmds))
	x, lowest := c.DefaultX, math.Inf(-1)
	for i, n := range nodes {
		size := p.EstimateBox(n)
		r := Rect{X: n.Position.X, Y: n.Position.Y, W: size.W, H: size.H}
		occupied = append(occupied, r)
		if i == 0 {
			x = n.Position.X
		}
		lowest = math.Max(lowest, r.Bottom())
	}
	cursor := c.DefaultY
	if len(nodes) > 0 {
		cursor = p.snapUp(lowest + c.VerticalGap)
	}

	for i, cmd := range cmds {
		node, ok := commands.NewNode(cmd)
		if !ok {
			continue
		}
		size := p.EstimateBox(node)
		placed, found := Rect{}, false
		for step := 0; step < c.MaxSteps; step++ {
			candidate := Rect{X: x, Y: cursor + float64(step)*c.Grid, W: size.W, H: size.H}
			if !overlapsAny(candidate, occupied, c.Margin) {
				placed, found = candidate, true
				break
			}
		}
		if !found {
			placed = Rect{X: x, Y: p.snapUp(maxBottom(occupied) + math.Max(c.VerticalGap, c.Margin)), W: size.W, H: size.H}
			p.logger.Debug("placement search exhausted", "index", i, "y", placed.Y)
		}
		occupied = append(occupied, placed)
		positions[i] = document.Position{X: placed.X, Y: placed.Y}
		cursor = p.snapUp(placed.Bottom() + c.VerticalGap)
	}
	return positions
}

func overlapsAny(r Rect, occupied []Rect, margin float64) bool {
	for _, o := range occupied {
		if r.Overlaps(o, margin) {
			return true
		}
	}
	return false
}

func maxBottom(rects []Rect) float64 {
	bottom := math.Inf(-1)
	for _, r := range rects {
		bottom = math.Max(bottom, r.Bottom())
	}
	return bottom
}
