// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux renders worksheet verdicts and batch outcomes for the
// provecalc CLI.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/execute"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/journal"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/validate"
)

// Palette: deep teals with conventional semantic colors.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// StatusIcon maps a verdict to its icon.
func StatusIcon(s validate.Status) Icon {
	switch s {
	case validate.StatusValid:
		return IconSuccess
	case validate.StatusWarning:
		return IconWarning
	case validate.StatusInvalid:
		return IconError
	default:
		return IconPending
	}
}

// Printer writes styled output to a single writer.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter creates a printer for w in the given mode.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Mode returns the printer's output mode.
func (p *Printer) Mode() Mode { return p.mode }

// paint applies style only in rich mode.
func (p *Printer) paint(style lipgloss.Style, text string) string {
	if p.mode != ModeRich {
		return text
	}
	return style.Render(text)
}

func (p *Printer) icon(i Icon) string {
	if p.mode != ModeRich {
		return string(i)
	}
	return i.Render()
}

// Title prints a styled title. Machine mode prints nothing.
func (p *Printer) Title(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.w, p.paint(Styles.Title, text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "OK\t%s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconSuccess), p.paint(Styles.Success, text))
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "WARN\t%s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconWarning), p.paint(Styles.Warning, text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "ERROR\t%s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconError), p.paint(Styles.Error, text))
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.paint(Styles.Muted, "│"), text)
}

// Box prints content under a title, boxed in rich mode.
func (p *Printer) Box(title, content string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.w, "%s\t%s\n", title, strings.ReplaceAll(content, "\n", " "))
	case ModePlain:
		fmt.Fprintf(p.w, "%s\n%s\n", title, content)
	default:
		fmt.Fprintln(p.w, Styles.Box.Width(72).Render(Styles.Title.Render(title)+"\n"+content))
	}
}

// Verdicts prints one line per command with its validation verdict,
// followed by a count summary.
//
// Description:
//
//	cmds and results are index-aligned. Extra entries on either side are
//	ignored. In machine mode each line is
//	"index<TAB>action<TAB>status<TAB>message".
//
// Inputs:
//
//	cmds - The parsed commands.
//	results - The validator's verdicts for cmds.
func (p *Printer) Verdicts(cmds []commands.Command, results []validate.Result) {
	n := min(len(cmds), len(results))
	for i := 0; i < n; i++ {
		r := results[i]
		action := "<nil>"
		if cmds[i] != nil {
			action = string(cmds[i].Action())
		}
		if p.mode == ModeMachine {
			fmt.Fprintf(p.w, "%d\t%s\t%s\t%s\n", i, action, r.Status, r.Message)
			continue
		}
		line := fmt.Sprintf("%s %2d %-18s", p.icon(StatusIcon(r.Status)), i, action)
		if r.Message != "" {
			line += " " + p.paint(Styles.Muted, r.Message)
		}
		fmt.Fprintln(p.w, line)
	}
	p.verdictSummary(results[:n])
}

func (p *Printer) verdictSummary(results []validate.Result) {
	counts := validate.Summary(results)
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "SUMMARY\tvalid=%d\twarning=%d\tinvalid=%d\tunchecked=%d\n",
			counts[validate.StatusValid], counts[validate.StatusWarning],
			counts[validate.StatusInvalid], counts[validate.StatusUnchecked])
		return
	}
	fmt.Fprintf(p.w, "\n%s valid  %s warning  %s invalid  %s unchecked\n",
		p.paint(Styles.Success, fmt.Sprint(counts[validate.StatusValid])),
		p.paint(Styles.Warning, fmt.Sprint(counts[validate.StatusWarning])),
		p.paint(Styles.Error, fmt.Sprint(counts[validate.StatusInvalid])),
		p.paint(Styles.Muted, fmt.Sprint(counts[validate.StatusUnchecked])))
	if validate.HasInvalidCommands(results) {
		p.Error("batch blocked: fix invalid commands before applying")
	}
}

// Batch prints the outcome of an executed batch.
func (p *Printer) Batch(b execute.BatchResult) {
	for _, r := range b.Results {
		if p.mode == ModeMachine {
			status := "ok"
			if !r.Success {
				status = "failed"
			}
			fmt.Fprintf(p.w, "%d\t%s\t%s\t%s\t%s\n", r.Index, r.Action, status, r.NodeID, r.Error)
			continue
		}
		if r.Success {
			line := fmt.Sprintf("%s %2d %-18s", p.icon(IconSuccess), r.Index, r.Action)
			if r.NodeID != "" {
				line += fmt.Sprintf(" %s %s", p.icon(IconArrow), r.NodeID)
			}
			fmt.Fprintln(p.w, line)
			continue
		}
		fmt.Fprintf(p.w, "%s %2d %-18s %s\n", p.icon(IconError), r.Index, r.Action, p.paint(Styles.Error, r.Error))
	}
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "BATCH\t%s\ttotal=%d\tsucceeded=%d\tfailed=%d\n", b.BatchID, b.Total, b.Succeeded, b.Failed)
		return
	}
	fmt.Fprintf(p.w, "\n%s applied  %s failed  %s total\n",
		p.paint(Styles.Success, fmt.Sprint(b.Succeeded)),
		p.paint(Styles.Error, fmt.Sprint(b.Failed)),
		p.paint(Styles.Bold, fmt.Sprint(b.Total)))
}

// History prints journal entries, newest first as given.
func (p *Printer) History(entries []journal.Entry) {
	if len(entries) == 0 {
		if p.mode != ModeMachine {
			fmt.Fprintln(p.w, p.paint(Styles.Muted, "no batches recorded"))
		}
		return
	}
	for _, e := range entries {
		ts := e.RecordedAt.UTC().Format("2006-01-02T15:04:05Z")
		if p.mode == ModeMachine {
			fmt.Fprintf(p.w, "%d\t%s\t%s\t%d\t%d\n", e.Seq, ts, e.Result.BatchID, e.Result.Succeeded, e.Result.Failed)
			continue
		}
		icon := IconSuccess
		if e.Result.Failed > 0 {
			icon = IconWarning
		}
		fmt.Fprintf(p.w, "%s #%d %s %s %d/%d applied\n", p.icon(icon), e.Seq,
			p.paint(Styles.Muted, ts), e.Result.BatchID, e.Result.Succeeded, e.Result.Total)
	}
}
