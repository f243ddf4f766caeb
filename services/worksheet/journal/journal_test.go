// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/execute"
	"github.com/Mnehmos/provecalc-website-sub000/services/worksheet/storage/badger"
)

func newTestJournal(t *testing.T) *BadgerJournal {
	t.Helper()
	j, err := Open(badger.InMemoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func batch(id string, failed int) execute.BatchResult {
	return execute.BatchResult{BatchID: id, Total: 2, Succeeded: 2 - failed, Failed: failed,
		Results: []execute.CommandResult{{Index: 0, Action: "add_given", Success: true, NodeID: "n1"}}}
}

func TestRecord_ListNewestFirst(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := j.Record(ctx, "ws-1", batch(fmt.Sprintf("b%d", i), 0))
		require.NoError(t, err)
	}
	_, err := j.Record(ctx, "ws-2", batch("other", 1))
	require.NoError(t, err)

	entries, err := j.List(ctx, "ws-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "b2", entries[0].Result.BatchID)
	assert.Equal(t, "b0", entries[2].Result.BatchID)
	assert.Greater(t, entries[0].Seq, entries[1].Seq)
	assert.Equal(t, "n1", entries[0].Result.Results[0].NodeID)

	limited, err := j.List(ctx, "ws-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := j.List(ctx, "ws-2", 0)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, 1, other[0].Result.Failed)
}

func TestList_PrefixIsolation(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	_, err := j.Record(ctx, "ws-10", batch("ten", 0))
	require.NoError(t, err)

	entries, err := j.List(ctx, "ws-1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestRecord_Stamps(t *testing.T) {
	j := newTestJournal(t)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	e, err := j.Record(context.Background(), "ws", batch("b", 0))
	require.NoError(t, err)
	assert.Equal(t, now, e.RecordedAt)
	assert.Equal(t, "ws", e.WorksheetID)
}

func TestRecord_InvalidWorksheet(t *testing.T) {
	j := newTestJournal(t)
	_, err := j.Record(context.Background(), "", batch("b", 0))
	assert.ErrorIs(t, err, ErrInvalidWorksheetID)
	_, err = j.Record(context.Background(), "a/b", batch("b", 0))
	assert.ErrorIs(t, err, ErrInvalidWorksheetID)
}

func TestClosed(t *testing.T) {
	j, err := Open(badger.InMemoryConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = j.Record(context.Background(), "ws", batch("b", 0))
	assert.ErrorIs(t, err, ErrJournalClosed)
	_, err = j.List(context.Background(), "ws", 0)
	assert.ErrorIs(t, err, ErrJournalClosed)
}

func TestPersistsAcrossReopen(t *testing.T) {
	cfg := badger.DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 0

	j, err := Open(cfg, nil)
	require.NoError(t, err)
	first, err := j.Record(context.Background(), "ws", batch("first", 0))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(cfg, nil)
	require.NoError(t, err)
	defer j.Close()
	second, err := j.Record(context.Background(), "ws", batch("second", 0))
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)

	entries, err := j.List(context.Background(), "ws", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Result.BatchID)
}
