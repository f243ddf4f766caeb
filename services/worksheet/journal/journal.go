// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal records executed batches so every LLM-originated change
// to a worksheet can be audited later.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/execute"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/storage/badger"
)

var (
	// ErrJournalClosed is returned by operations on a closed journal.
	ErrJournalClosed = errors.New("journal is closed")

	// ErrInvalidWorksheetID is returned for an empty worksheet ID or one containing "/".
	ErrInvalidWorksheetID = errors.New("invalid worksheet id")
)

const (
	keyPrefix   = "batch/"
	sequenceKey = "meta/batch-seq"
)

// Entry is one recorded batch.
type Entry struct {
	Seq         uint64              `json:"seq"`
	WorksheetID string              `json:"worksheet_id"`
	RecordedAt  time.Time           `json:"recorded_at"`
	Result      execute.BatchResult `json:"result"`
}

// Journal stores executed batches.
type Journal interface {
	// Record appends a batch for a worksheet.
	Record(ctx context.Context, worksheetID string, result execute.BatchResult) (Entry, error)

	// List returns a worksheet's batches, newest first. limit <= 0 means all.
	List(ctx context.Context, worksheetID string, limit int) ([]Entry, error)

	// Close releases the journal.
	Close() error
}

// BadgerJournal is a Journal on BadgerDB.
//
// Description:
//
//	Keys are "batch/{worksheet_id}/{seq:020d}" so a reverse prefix scan
//	yields newest-first order. Sequence numbers come from a Badger
//	sequence and stay monotonic across restarts; leased but unused numbers
//	leave gaps.
//
// Thread Safety: Safe for concurrent use.
type BadgerJournal struct {
	db     *badger.DB
	seq    *dgbadger.Sequence
	logger *slog.Logger
	now    func() time.Time
	closed atomic.Bool
}

// NewBadgerJournal creates a journal on an open store. The journal takes
// ownership of db and closes it on Close.
func NewBadgerJournal(db *badger.DB, logger *slog.Logger) (*BadgerJournal, error) {
	if db == nil {
		return nil, errors.New("journal store must not be nil")
	}
	seq, err := db.Sequence(sequenceKey, 64)
	if err != nil {
		return nil, fmt.Errorf("lease journal sequence: %w", err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "journal")
	}
	return &BadgerJournal{db: db, seq: seq, logger: logger, now: time.Now}, nil
}

// Open opens a store from cfg and wraps it in a journal.
func Open(cfg badger.Config, logger *slog.Logger) (*BadgerJournal, error) {
	db, err := badger.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	j, err := NewBadgerJournal(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func entryKey(worksheetID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", keyPrefix, worksheetID, seq))
}

func worksheetPrefix(worksheetID string) []byte {
	return []byte(keyPrefix + worksheetID + "/")
}

// Record appends a batch.
//
// Outputs:
//
//	Entry - The stored entry with its sequence number.
//	error - ErrJournalClosed, ErrInvalidWorksheetID or a store error.
func (j *BadgerJournal) Record(ctx context.Context, worksheetID string, result execute.BatchResult) (Entry, error) {
	if j.closed.Load() {
		return Entry{}, ErrJournalClosed
	}
	if strings.TrimSpace(worksheetID) == "" || strings.Contains(worksheetID, "/") {
		return Entry{}, ErrInvalidWorksheetID
	}

	ctx, span := otel.Tracer("provecalc.worksheet.journal").Start(ctx, "journal.Record",
		trace.WithAttributes(
			attribute.String("worksheet_id", worksheetID),
			attribute.String("batch_id", result.BatchID),
		),
	)
	defer span.End()

	seq, err := j.seq.Next()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sequence failed")
		return Entry{}, fmt.Errorf("next journal sequence: %w", err)
	}
	entry := Entry{Seq: seq, WorksheetID: worksheetID, RecordedAt: j.now().UTC(), Result: result}
	data, err := json.Marshal(entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return Entry{}, fmt.Errorf("encode journal entry: %w", err)
	}

	err = j.db.Update(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set(entryKey(worksheetID, seq), data)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return Entry{}, fmt.Errorf("write journal entry: %w", err)
	}

	span.SetAttributes(attribute.Int64("seq", int64(seq)), attribute.Int("entry_bytes", len(data)))
	j.logger.Debug("batch journaled",
		slog.String("worksheet_id", worksheetID),
		slog.String("batch_id", result.BatchID),
		slog.Uint64("seq", seq))
	return entry, nil
}

// List returns a worksheet's batches, newest first.
func (j *BadgerJournal) List(ctx context.Context, worksheetID string, limit int) ([]Entry, error) {
	if j.closed.Load() {
		return nil, ErrJournalClosed
	}
	prefix := worksheetPrefix(worksheetID)
	entries := []Entry{}

	err := j.db.View(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return fmt.Errorf("decode journal entry %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, e)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close releases the sequence lease and closes the store.
func (j *BadgerJournal) Close() error {
	if j.closed.Swap(true) {
		return nil
	}
	if err := j.seq.Release(); err != nil {
		j.logger.Warn("release journal sequence failed", slog.String("error", err.Error()))
	}
	return j.db.Close()
}
