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

import "fmt"

// SemanticType is the declared domain type of a field. It drives value
// conversion between domain objects and storage rows.
type SemanticType string

const (
	TypeString   SemanticType = "string"
	TypeInteger  SemanticType = "integer"
	TypeNumber   SemanticType = "number"
	TypeDecimal  SemanticType = "decimal"
	TypeBoolean  SemanticType = "boolean"
	TypeDate     SemanticType = "date"
	TypeDateTime SemanticType = "datetime"
	TypeEnum     SemanticType = "enum"
	TypeRelation SemanticType = "relation"
	TypeJSON     SemanticType = "json"
)

// RelationKind classifies a relation or embedding field.
type RelationKind string

const (
	OneToOne   RelationKind = "one_to_one"
	OneToMany  RelationKind = "one_to_many"
	ManyToOne  RelationKind = "many_to_one"
	ManyToMany RelationKind = "many_to_many"
	Embedded   RelationKind = "embedded"
)

// Built-in registry item types. Extension types are declared at runtime via
// Registry.RegisterType and must not collide with these.
const (
	ItemTypeEntity      = "entity"
	ItemTypeValueObject = "value_object"
	ItemTypeTable       = "table"
)

// ItemTypeRelation is the extension type produced by RegisterRelationDerivation.
const ItemTypeRelation = "relation"

// Item is anything the registry can catalog. Implementations must return a
// stable, non-empty name and type; items that do not are dropped at
// registration time.
type Item interface {
	ItemName() string
	ItemType() string
}

// FieldDescriptor declares one entity attribute.
type FieldDescriptor struct {
	Name         string
	Type         SemanticType
	Label        string
	Required     bool
	PrimaryKey   bool
	Default      any
	Relation     RelationKind // empty unless the field is a relation/embedding
	Target       string       // target entity or value object, resolved lazily
	SourceColumn string       // explicit column override for mapping
	EnumOptions  []string
}

// IsRelation reports whether the field is persisted by the caller rather
// than by automatic mapping.
func (f *FieldDescriptor) IsRelation() bool {
	return f.Relation != "" || f.Type == TypeRelation
}

// CompositeIndex declares a multi-column index on an entity's table.
type CompositeIndex struct {
	Name   string
	Fields []string
	Unique bool
}

// EntityDescriptor declares one persistable type: its fields, target table,
// and indexes. Descriptors are created at declaration time and treated as
// immutable once registered; re-registering under the same name replaces the
// stored descriptor.
type EntityDescriptor struct {
	Name      string
	Kind      string // ItemTypeEntity or ItemTypeValueObject; entity when empty
	TableName string
	Comment   string
	Fields    []FieldDescriptor
	Indexes   []CompositeIndex
}

func (e *EntityDescriptor) ItemName() string { return e.Name }

func (e *EntityDescriptor) ItemType() string {
	if e.Kind == "" {
		return ItemTypeEntity
	}
	return e.Kind
}

// Field returns the descriptor of the named field.
func (e *EntityDescriptor) Field(name string) (*FieldDescriptor, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// PrimaryKeyField returns the field flagged as primary key, if any.
func (e *EntityDescriptor) PrimaryKeyField() (*FieldDescriptor, bool) {
	for i := range e.Fields {
		if e.Fields[i].PrimaryKey {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// PersistableFields returns the fields subject to automatic mapping,
// excluding relations and embeddings.
func (e *EntityDescriptor) PersistableFields() []FieldDescriptor {
	fields := make([]FieldDescriptor, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.IsRelation() {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// Validate checks the declaration-time invariants: unique field names and at
// most one primary key.
func (e *EntityDescriptor) Validate() error {
	seen := make(map[string]struct{}, len(e.Fields))
	pk := 0
	for _, f := range e.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity %q declares a field with no name", e.Name)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("entity %q declares field %q twice", e.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.PrimaryKey {
			pk++
		}
	}
	if pk > 1 {
		return fmt.Errorf("entity %q declares %d primary key fields, at most one is allowed", e.Name, pk)
	}
	return nil
}

// Merge folds non-empty parts of other into a copy of e. Used by derived
// metadata recomputation to apply out-of-band updates without mutating the
// registered descriptor in place.
func (e *EntityDescriptor) Merge(other *EntityDescriptor) *EntityDescriptor {
	out := *e
	if other == nil {
		return &out
	}
	if other.TableName != "" {
		out.TableName = other.TableName
	}
	if other.Comment != "" {
		out.Comment = other.Comment
	}
	if len(other.Fields) > 0 {
		out.Fields = other.Fields
	}
	if len(other.Indexes) > 0 {
		out.Indexes = other.Indexes
	}
	return &out
}

// ColumnDescriptor declares one physical table column.
type ColumnDescriptor struct {
	Name string
	Type string
}

// TableDescriptor declares a physical table. When registered alongside an
// entity it constrains automatic mapping to the columns it lists; entities
// without one are mapped against columns synthesized from their own fields.
type TableDescriptor struct {
	Name    string
	Comment string
	Columns []ColumnDescriptor
}

func (t *TableDescriptor) ItemName() string { return t.Name }
func (t *TableDescriptor) ItemType() string { return ItemTypeTable }

// ColumnNames returns the column names in declaration order.
func (t *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Relation is a derived metadata record: one relation or embedding edge
// extracted from a declared entity field.
type Relation struct {
	Source    string
	Target    string
	FieldName string
	Kind      RelationKind
}

func (r *Relation) ItemName() string {
	return r.Source + "." + r.FieldName
}

func (r *Relation) ItemType() string { return ItemTypeRelation }
