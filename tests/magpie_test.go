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

package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/magpie-io/magpie"
	"github.com/magpie-io/magpie/database"
	"github.com/magpie-io/magpie/metadata"
	"github.com/magpie-io/magpie/repository"
	"github.com/magpie-io/magpie/types"
)

type Order struct {
	ID        string          `magpie:"id" json:"id"`
	Total     decimal.Decimal `magpie:"total" json:"total"`
	CreatedAt string          `magpie:"createdAt" json:"created_at"`
}

type testConfig struct {
	dbType string
	dbName string
}

func (c *testConfig) ConfigLoader() *database.Config {
	return &database.Config{
		ConnectionConfig: database.ConnectionConfig{
			Type:   c.dbType,
			DBName: c.dbName,
		},
	}
}

func setupDatabase(t *testing.T) *bun.DB {
	t.Helper()
	var provider database.AbstractDatabaseConfigProvider = &testConfig{dbType: "sqlite"}
	db, err := database.InitDB(provider.ConfigLoader())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	_, err = db.ExecContext(context.Background(),
		`CREATE TABLE IF NOT EXISTS orders (id TEXT PRIMARY KEY, total TEXT, created_at TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(), `DELETE FROM orders`)
	require.NoError(t, err)
	return db
}

func registerOrderMetadata(t *testing.T) *metadata.Registry {
	t.Helper()
	reg := metadata.Default()
	reg.Register(&metadata.EntityDescriptor{
		Name:      "Order",
		TableName: "orders",
		Fields: []metadata.FieldDescriptor{
			{Name: "id", Type: metadata.TypeString, PrimaryKey: true},
			{Name: "total", Type: metadata.TypeDecimal},
			{Name: "createdAt", Type: metadata.TypeString},
		},
	})
	reg.Register(&metadata.TableDescriptor{
		Name: "orders",
		Columns: []metadata.ColumnDescriptor{
			{Name: "id", Type: "TEXT"},
			{Name: "total", Type: "TEXT"},
			{Name: "created_at", Type: "TEXT"},
		},
	})
	return reg
}

func TestOrderLifecycle(t *testing.T) {
	setupDatabase(t)
	registerOrderMetadata(t)

	svc := magpie.NewService[Order]("Order")
	ctx := context.Background()

	created, err := svc.Save(ctx, &Order{Total: decimal.RequireFromString("19.99")})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "19.99", created.Total.String())

	found, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)
	require.True(t, created.Total.Equal(found.Total))

	exists, err := svc.Exists(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, exists)

	count, err := svc.Count(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	updated, err := svc.Update(ctx, created.ID, types.Record{"total": "25.50"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.True(t, updated.Total.Equal(decimal.RequireFromString("25.50")))

	missing, err := svc.Update(ctx, "no-such-id", types.Record{"total": "1"})
	require.NoError(t, err)
	require.Nil(t, missing)

	removed, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, removed)

	gone, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	removedAgain, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, removedAgain)
}

func TestOrderPaging(t *testing.T) {
	setupDatabase(t)
	registerOrderMetadata(t)

	svc := magpie.NewService[Order]("Order")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Save(ctx, &Order{Total: decimal.NewFromInt(int64(i + 1))})
		require.NoError(t, err)
	}

	page, err := svc.Page(ctx, types.NewPageRequest(1, 2, nil, "total", false))
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.TotalPages())
	require.True(t, page.HasNext())
	require.Equal(t, "1", page.Items[0].Total.String())

	all, err := svc.All(ctx, &repository.FindOptions{OrderBy: "total", OrderDesc: true})
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, "5", all[0].Total.String())
}

func TestTransactionRollback(t *testing.T) {
	setupDatabase(t)
	registerOrderMetadata(t)

	svc := magpie.NewService[Order]("Order")
	ctx := context.Background()

	boom := errors.New("boom")
	var insideID string
	err := svc.Transaction(ctx, func(ctx context.Context) error {
		created, err := svc.Save(ctx, &Order{Total: decimal.RequireFromString("9.99")})
		if err != nil {
			return err
		}
		insideID = created.ID

		// The service joins the ambient transaction, so the row is visible
		// before commit.
		found, err := svc.Get(ctx, insideID)
		if err != nil {
			return err
		}
		if found == nil {
			return errors.New("created row not visible inside transaction")
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := svc.Get(ctx, insideID)
	require.NoError(t, err)
	require.Nil(t, after)
}

func TestTransactionCommit(t *testing.T) {
	setupDatabase(t)
	registerOrderMetadata(t)

	svc := magpie.NewService[Order]("Order")
	ctx := context.Background()

	var id string
	err := svc.Transaction(ctx, func(ctx context.Context) error {
		created, err := svc.Save(ctx, &Order{Total: decimal.RequireFromString("42.00")})
		if err != nil {
			return err
		}
		id = created.ID
		return nil
	})
	require.NoError(t, err)

	after, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, after)
	require.Equal(t, "42", after.Total.String())
}
