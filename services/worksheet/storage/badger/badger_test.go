// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readKey(t *testing.T, db *DB, key string) string {
	t.Helper()
	var out string
	err := db.View(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		out = string(v)
		return err
	})
	require.NoError(t, err)
	return out
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(InMemoryConfig(), nil)
	require.NoError(t, err)
	defer db.Close()

	err = db.Update(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	})
	require.NoError(t, err)
	assert.Equal(t, "v", readKey(t, db, "k"))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = time.Hour

	db, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte("batch"), []byte("1"))
	}))
	require.NoError(t, db.Close())

	db, err = Open(cfg, nil)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "1", readKey(t, db, "batch"))
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	db, err := Open(InMemoryConfig(), nil)
	require.NoError(t, err)
	defer db.Close()

	err = db.Update(context.Background(), func(txn *badger.Txn) error {
		require.NoError(t, txn.Set([]byte("k"), []byte("v")))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	err = db.View(context.Background(), func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("k"))
		return err
	})
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestTxn_CancelledContext(t *testing.T) {
	db, err := Open(InMemoryConfig(), nil)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = db.Update(ctx, func(*badger.Txn) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	err = db.View(ctx, func(*badger.Txn) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestClose_Idempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 10 * time.Millisecond

	db, err := Open(cfg, nil)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, db.Close())
	assert.NoError(t, db.Close())
	assert.True(t, db.IsClosed())
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.NoError(t, InMemoryConfig().Validate())
	assert.Error(t, Config{InMemory: true, GCDiscardRatio: 2}.Validate())
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}
