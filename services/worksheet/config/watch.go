// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file when it changes on disk.
//
// Description:
//
//	The parent directory is watched rather than the file so that editors
//	which save by rename are seen. Each write, create or rename of the file
//	triggers a reload. Files that fail to parse or validate are logged and
//	ignored; the callback only ever sees valid configurations.
//
// Thread Safety: Start must be called once. The callback runs on the
// watcher goroutine.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(Config)
	logger   *slog.Logger
}

// NewWatcher creates a watcher for path.
//
// Inputs:
//
//	path - The config file. It need not exist yet.
//	onChange - Called with every successfully reloaded config.
//
// Outputs:
//
//	*Watcher - Ready to Start.
//	error - If the OS watcher cannot be created or the directory added.
func NewWatcher(path string, onChange func(Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:     abs,
		watcher:  fw,
		onChange: onChange,
		logger:   slog.Default().With("component", "config_watcher"),
	}, nil
}

// Start processes events until ctx is cancelled or the watcher is closed.
// It closes the underlying watcher on return.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()
	w.logger.Debug("watching config", "path", w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	data, err := readFile(w.path)
	if err != nil {
		// A rename away leaves nothing to read until the new file lands.
		w.logger.Debug("config not readable", "path", w.path, "error", err)
		return
	}
	cfg, err := Parse(ctx, data)
	if err != nil {
		w.logger.Warn("config reload rejected", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
