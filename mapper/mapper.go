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
	"fmt"

	"github.com/magpie-io/magpie/metadata"
	"github.com/magpie-io/magpie/types"
)

// FieldMapping is the per-entity cache of the bidirectional attribute↔column
// correspondence plus the semantic type of every mapped attribute. It is
// built once per repository instance and never mutated afterwards.
type FieldMapping struct {
	entity string
	table  string

	attrToCol map[string]string
	colToAttr map[string]string
	attrTypes map[string]metadata.SemanticType

	pkAttr string
	pkCol  string
}

// Build matches every table column against the entity's fields: a field
// matches a column when its name converted to the table's naming convention
// equals the column, or when its explicit source-column override does.
// Relation fields are excluded; unmatched columns are silently left out of
// the mapping. When table is nil the columns are synthesized from the
// entity's own persistable fields.
func Build(ed *metadata.EntityDescriptor, table *metadata.TableDescriptor) (*FieldMapping, error) {
	if ed == nil {
		return nil, &ConfigurationError{Reason: "no entity descriptor"}
	}

	fields := ed.PersistableFields()

	// Column set: the registered physical table wins; otherwise every
	// persistable field implies its own column.
	var columns []string
	if table != nil {
		columns = table.ColumnNames()
	} else {
		columns = make([]string, 0, len(fields))
		for _, f := range fields {
			columns = append(columns, ColumnFor(f.Name, f.SourceColumn))
		}
	}

	byColumn := make(map[string]*metadata.FieldDescriptor, len(fields))
	for i := range fields {
		f := &fields[i]
		col := ColumnFor(f.Name, f.SourceColumn)
		if prev, ok := byColumn[col]; ok {
			return nil, &ConfigurationError{
				Entity: ed.Name,
				Reason: fmt.Sprintf("fields %q and %q both map to column %q", prev.Name, f.Name, col),
			}
		}
		byColumn[col] = f
	}

	m := &FieldMapping{
		entity:    ed.Name,
		table:     ed.TableName,
		attrToCol: make(map[string]string, len(columns)),
		colToAttr: make(map[string]string, len(columns)),
		attrTypes: make(map[string]metadata.SemanticType, len(columns)),
	}
	for _, col := range columns {
		f, ok := byColumn[col]
		if !ok {
			continue // unmatched column, excluded from automatic mapping
		}
		m.attrToCol[f.Name] = col
		m.colToAttr[col] = f.Name
		m.attrTypes[f.Name] = f.Type
		if f.PrimaryKey {
			m.pkAttr = f.Name
			m.pkCol = col
		}
	}

	if pk, ok := ed.PrimaryKeyField(); ok && m.pkAttr == "" {
		return nil, &ConfigurationError{
			Entity: ed.Name,
			Reason: fmt.Sprintf("primary key field %q resolves to no column", pk.Name),
		}
	}
	return m, nil
}

// Entity returns the mapped entity's name.
func (m *FieldMapping) Entity() string { return m.entity }

// Table returns the mapped entity's table name.
func (m *FieldMapping) Table() string { return m.table }

// Column returns the column mapped to an attribute.
func (m *FieldMapping) Column(attr string) (string, bool) {
	col, ok := m.attrToCol[attr]
	return col, ok
}

// Attribute returns the attribute mapped to a column.
func (m *FieldMapping) Attribute(col string) (string, bool) {
	attr, ok := m.colToAttr[col]
	return attr, ok
}

// Columns returns every mapped column name.
func (m *FieldMapping) Columns() []string {
	cols := make([]string, 0, len(m.colToAttr))
	for col := range m.colToAttr {
		cols = append(cols, col)
	}
	return cols
}

// PKAttribute returns the primary key attribute name, empty when the entity
// has no simple primary key.
func (m *FieldMapping) PKAttribute() string { return m.pkAttr }

// PKColumn returns the primary key column name.
func (m *FieldMapping) PKColumn() string { return m.pkCol }

// SemanticType returns the declared type of a mapped attribute.
func (m *FieldMapping) SemanticType(attr string) (metadata.SemanticType, bool) {
	t, ok := m.attrTypes[attr]
	return t, ok
}

// ToRow converts an attribute-keyed record into a column-keyed storage row,
// applying storage-direction value conversion. Attributes outside the
// mapping are dropped.
func (m *FieldMapping) ToRow(attrs types.Record) (types.Record, error) {
	row := make(types.Record, len(attrs))
	for attr, v := range attrs {
		col, ok := m.attrToCol[attr]
		if !ok {
			continue
		}
		sv, err := ToStorageValue(m.entity, attr, m.attrTypes[attr], v)
		if err != nil {
			return nil, err
		}
		row[col] = sv
	}
	return row, nil
}

// ToAttributes converts a column-keyed storage row back into an
// attribute-keyed record, applying domain-direction value conversion.
// Columns outside the mapping never populate an attribute.
func (m *FieldMapping) ToAttributes(row types.Record) (types.Record, error) {
	attrs := make(types.Record, len(row))
	for col, v := range row {
		attr, ok := m.colToAttr[col]
		if !ok {
			continue
		}
		dv, err := ToDomainValue(m.entity, attr, m.attrTypes[attr], v)
		if err != nil {
			return nil, err
		}
		if dv == nil {
			continue // absence, not a typed zero value
		}
		attrs[attr] = dv
	}
	return attrs, nil
}
