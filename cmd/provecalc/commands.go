// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mnehmos/provecalc-website-sub000/pkg/ux"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/commands"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/document"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/journal"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/mathnorm"
)

func (c *cli) normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <expression>",
		Short: "Print the canonical solver form of a markup expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			canonical := mathnorm.Normalize(strings.Join(args, " "))
			if c.printer.Mode() == ux.ModeMachine {
				fmt.Fprintln(c.out, canonical)
				return nil
			}
			c.printer.Box("Normalized", canonical)
			return nil
		},
	}
}

func (c *cli) varsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vars <expression>",
		Short: "List the variables of an expression",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := mathnorm.ExtractMarkupVariables(strings.Join(args, " "))
			if c.printer.Mode() == ux.ModeMachine {
				for _, v := range vars {
					fmt.Fprintln(c.out, v)
				}
				return nil
			}
			if len(vars) == 0 {
				c.printer.Info("no variables")
				return nil
			}
			c.printer.Box("Variables", strings.Join(vars, ", "))
			return nil
		},
	}
}

func (c *cli) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [reply-file|-]",
		Short: "Extract commands from an assistant reply and print them as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := c.readReply(args)
			if err != nil {
				return err
			}
			report := commands.ParseWithReport(reply)
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(commands.Wrap(report.Commands)); err != nil {
				return fmt.Errorf("encode commands: %w", err)
			}
			if c.printer.Mode() != ux.ModeMachine {
				c.printer.Info(fmt.Sprintf("%d commands from %d blocks (%d blocks, %d objects dropped)",
					len(report.Commands), report.Blocks, report.DroppedBlocks, report.DroppedObjects))
			}
			return nil
		},
	}
}

// docFlags are shared by check and apply.
type docFlags struct {
	doc string
}

func (f *docFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.doc, "doc", "", "Worksheet snapshot (JSON); empty starts from a blank worksheet")
}

// propose runs a reply through parse, resolve and validate against the
// worksheet named by flags.
func (c *cli) propose(cmd *cobra.Command, flags docFlags, args []string) (*worksheet.Service, *worksheet.Proposal, error) {
	reply, err := c.readReply(args)
	if err != nil {
		return nil, nil, err
	}
	svc, err := c.newService(cmd)
	if err != nil {
		return nil, nil, err
	}
	var seed *document.Snapshot
	if flags.doc != "" {
		s, err := readSnapshotFile(flags.doc)
		if err != nil {
			return nil, nil, err
		}
		seed = &s
	}
	wsID, err := svc.CreateWorksheet(seed)
	if err != nil {
		return nil, nil, err
	}
	p, err := svc.Propose(cmd.Context(), wsID, reply)
	if err != nil {
		return nil, nil, err
	}
	return svc, p, nil
}

func (c *cli) checkCmd() *cobra.Command {
	var flags docFlags
	cmd := &cobra.Command{
		Use:   "check [reply-file|-]",
		Short: "Validate the commands in a reply against a worksheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, p, err := c.propose(cmd, flags, args)
			if err != nil {
				return err
			}
			c.printer.Title("Verdicts")
			c.printer.Verdicts(p.Commands, p.Results)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) applyCmd() *cobra.Command {
	var (
		flags  docFlags
		out    string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "apply [reply-file|-]",
		Short: "Validate, place and execute the commands in a reply",
		Long: `Apply runs the full pipeline. A batch with any invalid command is not
applied. The updated worksheet is written to --out, or back to --doc when
--out is empty. --dry-run executes against an in-memory copy only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := out
			if target == "" {
				target = flags.doc
			}
			if target == "" && !dryRun {
				return fmt.Errorf("nothing to write: pass --doc, --out or --dry-run")
			}

			svc, p, err := c.propose(cmd, flags, args)
			if err != nil {
				return err
			}
			c.printer.Title("Verdicts")
			c.printer.Verdicts(p.Commands, p.Results)
			if p.Blocked {
				return errBlocked
			}

			batch, err := svc.Accept(cmd.Context(), p.WorksheetID, p.ID)
			if err != nil {
				return err
			}
			c.printer.Title("Applied")
			c.printer.Batch(batch)
			if dryRun {
				return nil
			}

			snap, err := svc.Snapshot(p.WorksheetID)
			if err != nil {
				return err
			}
			if err := writeSnapshotFile(target, snap); err != nil {
				return err
			}
			c.printer.Success("wrote " + target)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Where to write the updated worksheet (default: --doc)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Execute without writing the worksheet")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		server string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history <worksheet-id>",
		Short: "List executed batches of a worksheet on a running worksheetd",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := fetchHistory(cmd, server, args[0], limit)
			if err != nil {
				return err
			}
			c.printer.History(entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8087", "worksheetd base URL")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries; 0 lists all")
	return cmd
}

// fetchHistory calls GET {server}/v1/worksheets/{id}/history.
func fetchHistory(cmd *cobra.Command, server, worksheetID string, limit int) ([]journal.Entry, error) {
	u := strings.TrimRight(server, "/") + "/v1/worksheets/" + url.PathEscape(worksheetID) +
		"/history?limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e worksheet.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return nil, fmt.Errorf("fetch history: %s (%s)", e.Error, e.Code)
		}
		return nil, fmt.Errorf("fetch history: status %d", resp.StatusCode)
	}
	var entries []journal.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

func readSnapshotFile(path string) (document.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return document.Snapshot{}, fmt.Errorf("open worksheet: %w", err)
	}
	defer f.Close()
	return document.ReadSnapshot(f)
}

// writeSnapshotFile writes through a temp file so a failed write leaves the
// original intact.
func writeSnapshotFile(path string, s document.Snapshot) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create worksheet: %w", err)
	}
	if err := document.WriteSnapshot(f, s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close worksheet: %w", err)
	}
	return os.Rename(tmp, path)
}
