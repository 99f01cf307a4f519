/*
 * Copyright 2025 the magpie authors.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeConnectionDefaults(t *testing.T) {
	cfg := &ConnectionConfig{Type: "sqlite"}
	mergeConnectionDefaults(cfg)

	def := DefaultConnectionConfig()
	assert.Equal(t, def.MaxIdleConns, cfg.MaxIdleConns)
	assert.Equal(t, def.MaxOpenConns, cfg.MaxOpenConns)
	assert.Equal(t, def.ConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, def.SlowQueryTime, cfg.SlowQueryTime)

	// Explicit values survive the merge.
	cfg = &ConnectionConfig{Type: "sqlite", MaxIdleConns: 3, MaxOpenConns: 7}
	mergeConnectionDefaults(cfg)
	assert.Equal(t, 3, cfg.MaxIdleConns)
	assert.Equal(t, 7, cfg.MaxOpenConns)
}

// A shared in-memory sqlite database must survive across statements: the
// pool has to keep at least one connection open, or the schema vanishes
// between the CREATE TABLE and the first query.
func TestSQLiteMemoryDatabasePersistsAcrossStatements(t *testing.T) {
	mgr := NewDatabaseManager(&ConnectionConfig{Type: "sqlite"})
	ctx := context.Background()
	require.NoError(t, mgr.Connect(ctx))
	t.Cleanup(func() { _ = mgr.Disconnect() })

	db := mgr.GetDB()
	_, err := db.ExecContext(ctx, `CREATE TABLE things (id TEXT PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO things (id, name) VALUES ('t-1', 'one')`)
	require.NoError(t, err)

	var n int
	err = db.NewSelect().Table("things").ColumnExpr("count(*)").Scan(ctx, &n)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
