// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger opens the embedded BadgerDB store used for the batch
// journal.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds store settings.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string `yaml:"path"`

	// InMemory keeps everything in RAM. Used by tests and the CLI.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `yaml:"sync_writes"`

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration `yaml:"gc_interval"`

	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	GCDiscardRatio float64 `yaml:"gc_discard_ratio"`
}

// DefaultConfig returns durable settings with GC every five minutes.
func DefaultConfig() Config {
	return Config{
		Path:           "data/journal",
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Validate rejects unusable settings.
func (c Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return errors.New("journal path is required unless in_memory is set")
	}
	if c.GCDiscardRatio < 0 || c.GCDiscardRatio > 1 {
		return errors.New("journal gc_discard_ratio must be between 0 and 1")
	}
	return nil
}

// slogAdapter routes Badger's internal logging to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

// DB is an open store with its GC loop.
//
// Thread Safety: Safe for concurrent use. Close may be called more than once.
type DB struct {
	db     *badger.DB
	logger *slog.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open opens the store described by cfg.
//
// Description:
//
//	Creates the directory when needed, routes Badger logs to logger (nil
//	silences them) and starts value log GC when GCInterval is positive and
//	the store is on disk.
//
// Outputs:
//
//	*DB - The store. Call Close when done.
//	error - Non-nil if cfg is invalid or Badger fails to open.
func Open(cfg Config, logger *slog.Logger) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create journal directory %s: %w", cfg.Path, err)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(slogAdapter{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "badger")
	}

	d := &DB{db: bdb, logger: logger, stop: make(chan struct{}), done: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go d.gcLoop(cfg.GCInterval, cfg.GCDiscardRatio)
	} else {
		close(d.done)
	}
	return d, nil
}

func (d *DB) gcLoop(interval time.Duration, ratio float64) {
	defer close(d.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			err := d.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				d.logger.Warn("badger value log GC failed", "error", err)
			}
		}
	}
}

// Update runs fn in a read-write transaction and commits when fn returns nil.
func (d *DB) Update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := d.db.NewTransaction(true)
	defer txn.Discard()
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// View runs fn in a read-only transaction.
func (d *DB) View(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := d.db.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}

// Sequence leases a monotonically increasing counter stored under key.
// Release it before closing the store.
func (d *DB) Sequence(key string, bandwidth uint64) (*badger.Sequence, error) {
	return d.db.GetSequence([]byte(key), bandwidth)
}

// IsClosed reports whether the underlying store has been closed.
func (d *DB) IsClosed() bool {
	return d.db.IsClosed()
}

// Close stops GC and closes the store.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		select {
		case <-d.done:
		default:
			close(d.stop)
			<-d.done
		}
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}
