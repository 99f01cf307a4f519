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
	"database/sql"
	"errors"
	"sort"

	"github.com/uptrace/bun"

	"github.com/magpie-io/magpie/txctx"
	"github.com/magpie-io/magpie/types"
)

// SelectOptions bound and order a scan. There is no implicit limit; callers
// are responsible for bounding result size.
type SelectOptions struct {
	Limit     int
	Offset    int
	OrderBy   string // column name
	OrderDesc bool
}

// Executor is the opaque relational query executor the engine performs all
// I/O through. Rows are column-keyed records; predicates are equality maps.
// Every method honors the ambient transaction handle (txctx): when a scope
// is open, the query runs on the innermost active transaction.
type Executor interface {
	SelectAll(ctx context.Context, table string, columns []string, where types.Record, opts *SelectOptions) ([]types.Record, error)
	SelectOne(ctx context.Context, table string, columns []string, where types.Record) (types.Record, error)
	Insert(ctx context.Context, table string, row types.Record) error
	Update(ctx context.Context, table string, where types.Record, row types.Record) (int64, error)
	Delete(ctx context.Context, table string, where types.Record) (int64, error)
	Count(ctx context.Context, table string, where types.Record) (int, error)
	// RunInTransaction opens a new transaction and pushes its handle onto
	// the ambient context for the duration of fn. When a scope is already
	// open on ctx, fn joins it instead of opening a nested transaction.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BunExecutor implements Executor on top of a Bun database.
type BunExecutor struct {
	db *bun.DB
}

// NewBunExecutor wraps a Bun database into an Executor.
func NewBunExecutor(db *bun.DB) *BunExecutor {
	return &BunExecutor{db: db}
}

// DefaultExecutor returns an executor over the globally initialized database.
func DefaultExecutor() *BunExecutor {
	return NewBunExecutor(GetDB())
}

// DB exposes the underlying Bun database for advanced use.
func (e *BunExecutor) DB() *bun.DB { return e.db }

// idb resolves the connection for a call: the innermost ambient transaction
// handle when one is active, the default connection otherwise.
func (e *BunExecutor) idb(ctx context.Context) bun.IDB {
	if h, ok := txctx.Active(ctx); ok {
		if tx, ok := h.(bun.Tx); ok {
			return tx
		}
		if idb, ok := h.(bun.IDB); ok {
			return idb
		}
	}
	return e.db
}

func (e *BunExecutor) SelectAll(ctx context.Context, table string, columns []string, where types.Record, opts *SelectOptions) ([]types.Record, error) {
	var rows []map[string]interface{}
	q := e.idb(ctx).NewSelect().Model(&rows).Table(table)
	for _, col := range columns {
		q = q.Column(col)
	}
	cols := where.Keys()
	sort.Strings(cols)
	for _, col := range cols {
		q = q.Where("? = ?", bun.Ident(col), where[col])
	}
	if opts != nil {
		if opts.OrderBy != "" {
			if opts.OrderDesc {
				q = q.OrderExpr("? DESC", bun.Ident(opts.OrderBy))
			} else {
				q = q.OrderExpr("? ASC", bun.Ident(opts.OrderBy))
			}
		}
		if opts.Limit > 0 {
			q = q.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			q = q.Offset(opts.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, wrapQueryError("select", table, err)
	}
	out := make([]types.Record, len(rows))
	for i, r := range rows {
		out[i] = types.Record(r)
	}
	return out, nil
}

func (e *BunExecutor) SelectOne(ctx context.Context, table string, columns []string, where types.Record) (types.Record, error) {
	rows, err := e.SelectAll(ctx, table, columns, where, &SelectOptions{Limit: 1})
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) && errors.Is(connErr.Err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (e *BunExecutor) Insert(ctx context.Context, table string, row types.Record) error {
	values := map[string]interface{}(row)
	_, err := e.idb(ctx).NewInsert().
		Model(&values).
		Table(table).
		Exec(ctx)
	if err != nil {
		return wrapQueryError("insert", table, err)
	}
	return nil
}

func (e *BunExecutor) Update(ctx context.Context, table string, where types.Record, row types.Record) (int64, error) {
	values := map[string]interface{}(row)
	q := e.idb(ctx).NewUpdate().
		Model(&values).
		Table(table)
	cols := where.Keys()
	sort.Strings(cols)
	for _, col := range cols {
		q = q.Where("? = ?", bun.Ident(col), where[col])
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, wrapQueryError("update", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func (e *BunExecutor) Delete(ctx context.Context, table string, where types.Record) (int64, error) {
	q := e.idb(ctx).NewDelete().Table(table)
	cols := where.Keys()
	sort.Strings(cols)
	for _, col := range cols {
		q = q.Where("? = ?", bun.Ident(col), where[col])
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, wrapQueryError("delete", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func (e *BunExecutor) Count(ctx context.Context, table string, where types.Record) (int, error) {
	var count int
	q := e.idb(ctx).NewSelect().
		ColumnExpr("count(*)").
		Table(table)
	cols := where.Keys()
	sort.Strings(cols)
	for _, col := range cols {
		q = q.Where("? = ?", bun.Ident(col), where[col])
	}
	if err := q.Scan(ctx, &count); err != nil {
		return 0, wrapQueryError("count", table, err)
	}
	return count, nil
}

func (e *BunExecutor) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txctx.HasActive(ctx) {
		return fn(ctx)
	}
	return e.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return txctx.Run(ctx, tx, fn)
	})
}
