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
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/magpie-io/magpie/txctx"
	"github.com/magpie-io/magpie/types"
)

func newMockExecutor(t *testing.T) (*BunExecutor, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return NewBunExecutor(db), mock
}

func TestSelectAll(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT "id", "total" FROM "orders" WHERE \("status" = 'open'\) ORDER BY "total" ASC LIMIT 2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total"}).
			AddRow("o-1", "9.99").
			AddRow("o-2", "19.99"))

	rows, err := exec.SelectAll(context.Background(), "orders",
		[]string{"id", "total"},
		types.Record{"status": "open"},
		&SelectOptions{Limit: 2, OrderBy: "total"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "o-1", rows[0]["id"])
	assert.Equal(t, "19.99", rows[1]["total"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectOne(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE \("id" = 'o-1'\) LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("o-1"))

	row, err := exec.SelectOne(context.Background(), "orders", nil, types.Record{"id": "o-1"})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "o-1", row["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectOneAbsent(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE \("id" = 'missing'\) LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	row, err := exec.SelectOne(context.Background(), "orders", nil, types.Record{"id": "missing"})
	require.NoError(t, err)
	assert.Nil(t, row)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectExec(`INSERT INTO "orders"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := exec.Insert(context.Background(), "orders", types.Record{"id": "o-1", "total": "19.99"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectExec(`UPDATE "orders" SET "total" = '25.5' WHERE \("id" = 'o-1'\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := exec.Update(context.Background(), "orders",
		types.Record{"id": "o-1"}, types.Record{"total": "25.5"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectExec(`DELETE FROM "orders" WHERE \("id" = 'o-1'\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := exec.Delete(context.Background(), "orders", types.Record{"id": "o-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := exec.Count(context.Background(), "orders", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrorWrapsConnectionError(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders"`).
		WillReturnError(errors.New("connection refused"))

	_, err := exec.Count(context.Background(), "orders", nil)
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "count", connErr.Op)
	assert.Equal(t, "orders", connErr.Table)
}

func TestRunInTransactionCommit(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := exec.RunInTransaction(context.Background(), func(ctx context.Context) error {
		require.True(t, txctx.HasActive(ctx))
		return exec.Insert(ctx, "orders", types.Record{"id": "o-1"})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionRollback(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := exec.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionJoinsOpenScope(t *testing.T) {
	exec, mock := newMockExecutor(t)

	// One Begin/Commit pair only: the nested call joins the open scope.
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := exec.RunInTransaction(context.Background(), func(outer context.Context) error {
		return exec.RunInTransaction(outer, func(ctx context.Context) error {
			return exec.Insert(ctx, "orders", types.Record{"id": "o-1"})
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
