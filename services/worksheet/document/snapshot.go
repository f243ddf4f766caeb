// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxSnapshotBytes bounds snapshot files read from disk.
const maxSnapshotBytes = 16 << 20

// ReadSnapshot decodes a JSON snapshot.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(io.LimitReader(r, maxSnapshotBytes))
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// WriteSnapshot encodes a snapshot as indented JSON.
func WriteSnapshot(w io.Writer, s Snapshot) error {
	if s.Nodes == nil {
		s.Nodes = []Node{}
	}
	if s.Assumptions == nil {
		s.Assumptions = []Assumption{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// LoadFile reads a snapshot file into a new MemoryModel.
func LoadFile(path string, opts ...Option) (*MemoryModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	s, err := ReadSnapshot(f)
	if err != nil {
		return nil, err
	}
	m := NewMemoryModel(opts...)
	if err := m.Restore(s); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveFile writes the model's snapshot to path.
func SaveFile(path string, m *MemoryModel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := WriteSnapshot(f, m.Snapshot()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
