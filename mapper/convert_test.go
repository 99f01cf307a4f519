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
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpie-io/magpie/metadata"
	"github.com/magpie-io/magpie/types"
)

func TestDecimalRoundTrip(t *testing.T) {
	stored, err := ToStorageValue("Order", "total", metadata.TypeDecimal, "19.99")
	require.NoError(t, err)
	require.Equal(t, "19.99", stored)

	domain, err := ToDomainValue("Order", "total", metadata.TypeDecimal, stored)
	require.NoError(t, err)
	d := domain.(decimal.Decimal)
	require.Equal(t, "19.99", d.String())

	// Exact value preserved, never a binary-float approximation.
	back, err := ToStorageValue("Order", "total", metadata.TypeDecimal, d)
	require.NoError(t, err)
	require.Equal(t, "19.99", back)
}

func TestDecimalSources(t *testing.T) {
	for _, raw := range []any{"7.25", []byte("7.25"), decimal.RequireFromString("7.25")} {
		v, err := ToDomainValue("Order", "total", metadata.TypeDecimal, raw)
		require.NoError(t, err)
		assert.Equal(t, "7.25", v.(decimal.Decimal).String())
	}

	v, err := ToDomainValue("Order", "total", metadata.TypeDecimal, int64(5))
	require.NoError(t, err)
	assert.Equal(t, "5", v.(decimal.Decimal).String())
}

func TestUnparsableDecimalTagsFieldAndValue(t *testing.T) {
	_, err := ToDomainValue("Order", "total", metadata.TypeDecimal, "not-a-number")
	require.Error(t, err)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "Order", convErr.Entity)
	assert.Equal(t, "total", convErr.Field)
	assert.Equal(t, "not-a-number", convErr.Value)
}

func TestDateConversion(t *testing.T) {
	v, err := ToDomainValue("Order", "createdAt", metadata.TypeDate, "2026-08-30")
	require.NoError(t, err)
	ts := v.(time.Time)
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.August, ts.Month())

	already := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	v, err = ToDomainValue("Order", "createdAt", metadata.TypeDateTime, already)
	require.NoError(t, err)
	assert.True(t, already.Equal(v.(time.Time)))

	stored, err := ToStorageValue("Order", "createdAt", metadata.TypeDateTime, "2026-08-30T12:00:00Z")
	require.NoError(t, err)
	assert.True(t, already.Equal(stored.(time.Time)))
}

func TestNilIsAbsence(t *testing.T) {
	v, err := ToDomainValue("Order", "total", metadata.TypeDecimal, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ToStorageValue("Order", "total", metadata.TypeDecimal, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPassThroughTypes(t *testing.T) {
	v, err := ToDomainValue("Order", "note", metadata.TypeString, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	v, err = ToDomainValue("Order", "qty", metadata.TypeInteger, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = ToDomainValue("Order", "active", metadata.TypeBoolean, int64(1))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = ToDomainValue("Order", "payload", metadata.TypeJSON, map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, v)
}

func TestJSONColumnConversion(t *testing.T) {
	// Column text decodes into the JSON convenience types.
	v, err := ToDomainValue("Order", "payload", metadata.TypeJSON, []byte(`{"k":"v"}`))
	require.NoError(t, err)
	assert.Equal(t, types.JsonObject{"k": "v"}, v)

	v, err = ToDomainValue("Order", "items", metadata.TypeJSON, `[{"sku":"a"},{"sku":"b"}]`)
	require.NoError(t, err)
	assert.Equal(t, types.JsonArray{{"sku": "a"}, {"sku": "b"}}, v)

	// Storage direction serializes through the driver.Valuer.
	s, err := ToStorageValue("Order", "payload", metadata.TypeJSON, types.JsonObject{"k": "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(s.([]byte)))

	s, err = ToStorageValue("Order", "payload", metadata.TypeJSON, map[string]interface{}{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(s.([]byte)))

	// Already-serialized text passes through.
	s, err = ToStorageValue("Order", "payload", metadata.TypeJSON, `{"raw":true}`)
	require.NoError(t, err)
	assert.Equal(t, `{"raw":true}`, s)
}
