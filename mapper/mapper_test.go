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

package mapper

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpie-io/magpie/metadata"
	"github.com/magpie-io/magpie/types"
)

func orderEntity() *metadata.EntityDescriptor {
	return &metadata.EntityDescriptor{
		Name:      "Order",
		TableName: "orders",
		Fields: []metadata.FieldDescriptor{
			{Name: "id", Type: metadata.TypeString, PrimaryKey: true},
			{Name: "total", Type: metadata.TypeDecimal},
			{Name: "createdAt", Type: metadata.TypeDateTime},
			{Name: "customer", Type: metadata.TypeRelation, Target: "Customer"},
		},
	}
}

func ordersTable() *metadata.TableDescriptor {
	return &metadata.TableDescriptor{
		Name: "orders",
		Columns: []metadata.ColumnDescriptor{
			{Name: "id"},
			{Name: "total"},
			{Name: "created_at"},
			{Name: "internal_flags"},
		},
	}
}

func TestBuildMatchesColumnsByNamingTransform(t *testing.T) {
	m, err := Build(orderEntity(), ordersTable())
	require.NoError(t, err)

	col, ok := m.Column("createdAt")
	require.True(t, ok)
	assert.Equal(t, "created_at", col)

	attr, ok := m.Attribute("total")
	require.True(t, ok)
	assert.Equal(t, "total", attr)

	assert.Equal(t, "id", m.PKAttribute())
	assert.Equal(t, "id", m.PKColumn())

	// Relation fields are never part of automatic mapping.
	_, ok = m.Column("customer")
	assert.False(t, ok)

	// Unmatched columns are excluded, not errors.
	_, ok = m.Attribute("internal_flags")
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"id", "total", "created_at"}, m.Columns())
}

func TestBuildWithoutTableSynthesizesColumns(t *testing.T) {
	m, err := Build(orderEntity(), nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id", "total", "created_at"}, m.Columns())
}

func TestBuildHonorsSourceColumnOverride(t *testing.T) {
	ed := &metadata.EntityDescriptor{
		Name:      "Invoice",
		TableName: "invoices",
		Fields: []metadata.FieldDescriptor{
			{Name: "id", Type: metadata.TypeString, PrimaryKey: true},
			{Name: "issuedOn", Type: metadata.TypeDate, SourceColumn: "issue_date"},
		},
	}
	m, err := Build(ed, nil)
	require.NoError(t, err)

	col, ok := m.Column("issuedOn")
	require.True(t, ok)
	assert.Equal(t, "issue_date", col)
}

func TestBuildRejectsColumnCollision(t *testing.T) {
	ed := &metadata.EntityDescriptor{
		Name:      "Clash",
		TableName: "clash",
		Fields: []metadata.FieldDescriptor{
			{Name: "userName", Type: metadata.TypeString},
			{Name: "UserName", Type: metadata.TypeString},
		},
	}
	_, err := Build(ed, nil)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Clash", cfgErr.Entity)
}

func TestBuildRejectsUnmappablePrimaryKey(t *testing.T) {
	ed := &metadata.EntityDescriptor{
		Name:      "Orphan",
		TableName: "orphans",
		Fields: []metadata.FieldDescriptor{
			{Name: "id", Type: metadata.TypeString, PrimaryKey: true},
		},
	}
	table := &metadata.TableDescriptor{
		Name:    "orphans",
		Columns: []metadata.ColumnDescriptor{{Name: "something_else"}},
	}
	_, err := Build(ed, table)
	require.Error(t, err)
}

func TestRowRoundTrip(t *testing.T) {
	m, err := Build(orderEntity(), ordersTable())
	require.NoError(t, err)

	attrs := types.Record{
		"id":    "o-1",
		"total": decimal.RequireFromString("19.99"),
	}
	row, err := m.ToRow(attrs)
	require.NoError(t, err)
	require.Equal(t, "o-1", row["id"])
	require.Equal(t, "19.99", row["total"])

	back, err := m.ToAttributes(row)
	require.NoError(t, err)
	require.Equal(t, "o-1", back["id"])
	require.Equal(t, "19.99", back["total"].(decimal.Decimal).String())
}

func TestUnmappedKeysDropped(t *testing.T) {
	m, err := Build(orderEntity(), ordersTable())
	require.NoError(t, err)

	row, err := m.ToRow(types.Record{"id": "o-1", "mystery": 1})
	require.NoError(t, err)
	assert.NotContains(t, row, "mystery")

	attrs, err := m.ToAttributes(types.Record{"id": "o-1", "internal_flags": 7})
	require.NoError(t, err)
	assert.NotContains(t, attrs, "internal_flags")
}

func TestNullColumnNeverPopulatesAttribute(t *testing.T) {
	m, err := Build(orderEntity(), ordersTable())
	require.NoError(t, err)

	attrs, err := m.ToAttributes(types.Record{"id": "o-1", "total": nil})
	require.NoError(t, err)
	assert.NotContains(t, attrs, "total")
}
