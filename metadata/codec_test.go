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

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEntity(t *testing.T) {
	ed := &EntityDescriptor{
		Name:      "Invoice",
		TableName: "invoices",
		Comment:   "billing document",
		Fields: []FieldDescriptor{
			{Name: "id", Type: TypeString, PrimaryKey: true},
			{Name: "amount", Type: TypeDecimal, Required: true},
			{Name: "customer", Type: TypeRelation, Relation: ManyToOne, Target: "Customer"},
			{Name: "issuedOn", Type: TypeDate, SourceColumn: "issue_date"},
		},
	}

	doc, err := EncodeItem(ed)
	require.NoError(t, err)
	require.Equal(t, "Invoice", doc.Name)
	require.Equal(t, ItemTypeEntity, doc.Type)
	require.Equal(t, "invoices", doc.Table)
	require.Len(t, doc.Fields, 4)
	require.Equal(t, "issue_date", doc.Fields["issuedOn"].Column)

	decoded, err := DecodeDocument(doc)
	require.NoError(t, err)
	back := decoded.(*EntityDescriptor)
	assert.Equal(t, ed.Name, back.Name)
	assert.Equal(t, ed.TableName, back.TableName)
	assert.Equal(t, ed.Comment, back.Comment)
	require.Len(t, back.Fields, 4)

	f, ok := back.Field("customer")
	require.True(t, ok)
	assert.Equal(t, ManyToOne, f.Relation)
	assert.Equal(t, "Customer", f.Target)

	pk, ok := back.PrimaryKeyField()
	require.True(t, ok)
	assert.Equal(t, "id", pk.Name)
}

func TestEncodeDecodeTable(t *testing.T) {
	td := &TableDescriptor{
		Name: "invoices",
		Columns: []ColumnDescriptor{
			{Name: "id", Type: "varchar"},
			{Name: "amount", Type: "decimal"},
		},
	}

	data, err := MarshalItem(td)
	require.NoError(t, err)

	decoded, err := UnmarshalItem(data)
	require.NoError(t, err)
	back := decoded.(*TableDescriptor)
	assert.Equal(t, "invoices", back.Name)
	assert.ElementsMatch(t, []string{"id", "amount"}, back.ColumnNames())
}

func TestUnmarshalInteropDocument(t *testing.T) {
	data := []byte(`{
		"name": "Customer",
		"__type": "entity",
		"table": "customers",
		"fields": {
			"id": {"type": "string", "primaryKey": true},
			"balance": {"type": "decimal", "label": "Account balance"}
		}
	}`)

	item, err := UnmarshalItem(data)
	require.NoError(t, err)
	ed := item.(*EntityDescriptor)
	require.Equal(t, "customers", ed.TableName)

	f, ok := ed.Field("balance")
	require.True(t, ok)
	assert.Equal(t, TypeDecimal, f.Type)
	assert.Equal(t, "Account balance", f.Label)
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	_, err := DecodeDocument(nil)
	require.Error(t, err)

	_, err = DecodeDocument(&Document{Name: "X", Type: "mystery"})
	require.Error(t, err)

	_, err = UnmarshalItem([]byte(`{not json`))
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	r := NewRegistry()
	r.Register(customerEntity())
	r.Register(&TableDescriptor{Name: "customers", Columns: []ColumnDescriptor{{Name: "id"}}})

	docs := r.Export()
	require.Len(t, docs, 2)
	assert.Equal(t, "Customer", docs[0].Name)
	assert.Equal(t, "customers", docs[1].Name)
}
