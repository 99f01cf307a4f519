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
	"encoding/json"
	"fmt"
	"sort"
)

// Document is the JSON interop shape shared with external tooling. A registry
// must be able to consume pre-populated documents (e.g. produced by a static
// analysis pass) and to emit them for introspection.
type Document struct {
	Name    string                   `json:"name"`
	Type    string                   `json:"__type"`
	Fields  map[string]FieldDocument `json:"fields,omitempty"`
	Table   string                   `json:"table,omitempty"`
	Comment string                   `json:"comment,omitempty"`
}

// FieldDocument is the interop shape of one field declaration.
type FieldDocument struct {
	Type       string `json:"type"`
	Label      string `json:"label,omitempty"`
	Required   bool   `json:"required,omitempty"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
	Relation   string `json:"relation,omitempty"`
	Target     string `json:"target,omitempty"`
	Column     string `json:"column,omitempty"`
}

// EncodeItem converts a registered item into its interop document.
func EncodeItem(item Item) (*Document, error) {
	switch v := item.(type) {
	case *EntityDescriptor:
		doc := &Document{
			Name:    v.Name,
			Type:    v.ItemType(),
			Table:   v.TableName,
			Comment: v.Comment,
		}
		if len(v.Fields) > 0 {
			doc.Fields = make(map[string]FieldDocument, len(v.Fields))
			for _, f := range v.Fields {
				doc.Fields[f.Name] = FieldDocument{
					Type:       string(f.Type),
					Label:      f.Label,
					Required:   f.Required,
					PrimaryKey: f.PrimaryKey,
					Relation:   string(f.Relation),
					Target:     f.Target,
					Column:     f.SourceColumn,
				}
			}
		}
		return doc, nil
	case *TableDescriptor:
		doc := &Document{
			Name:    v.Name,
			Type:    ItemTypeTable,
			Table:   v.Name,
			Comment: v.Comment,
		}
		if len(v.Columns) > 0 {
			doc.Fields = make(map[string]FieldDocument, len(v.Columns))
			for _, c := range v.Columns {
				doc.Fields[c.Name] = FieldDocument{Type: c.Type}
			}
		}
		return doc, nil
	case *Relation:
		return &Document{Name: v.ItemName(), Type: ItemTypeRelation}, nil
	default:
		return nil, fmt.Errorf("metadata: cannot encode item type %T", item)
	}
}

// DecodeDocument converts an interop document back into a registrable item.
// Field order inside a document is not significant; decoded fields are sorted
// by name so the result is deterministic.
func DecodeDocument(doc *Document) (Item, error) {
	if doc == nil || doc.Name == "" {
		return nil, fmt.Errorf("metadata: document has no name")
	}
	switch doc.Type {
	case ItemTypeEntity, ItemTypeValueObject:
		ed := &EntityDescriptor{
			Name:      doc.Name,
			Kind:      doc.Type,
			TableName: doc.Table,
			Comment:   doc.Comment,
		}
		names := make([]string, 0, len(doc.Fields))
		for name := range doc.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fd := doc.Fields[name]
			ed.Fields = append(ed.Fields, FieldDescriptor{
				Name:         name,
				Type:         SemanticType(fd.Type),
				Label:        fd.Label,
				Required:     fd.Required,
				PrimaryKey:   fd.PrimaryKey,
				Relation:     RelationKind(fd.Relation),
				Target:       fd.Target,
				SourceColumn: fd.Column,
			})
		}
		return ed, nil
	case ItemTypeTable:
		td := &TableDescriptor{Name: doc.Name, Comment: doc.Comment}
		names := make([]string, 0, len(doc.Fields))
		for name := range doc.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			td.Columns = append(td.Columns, ColumnDescriptor{Name: name, Type: doc.Fields[name].Type})
		}
		return td, nil
	default:
		return nil, fmt.Errorf("metadata: unsupported document type %q", doc.Type)
	}
}

// MarshalItem serializes one item into its interop JSON form.
func MarshalItem(item Item) ([]byte, error) {
	doc, err := EncodeItem(item)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// UnmarshalItem parses interop JSON into a registrable item.
func UnmarshalItem(data []byte) (Item, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata: invalid document: %w", err)
	}
	return DecodeDocument(&doc)
}

// Export emits the interop documents for every item in the registry, sorted
// by name. Items without an interop form (unknown extension types) are
// skipped.
func (r *Registry) Export() []*Document {
	items := r.GetAll()
	docs := make([]*Document, 0, len(items))
	for _, item := range items {
		doc, err := EncodeItem(item)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
