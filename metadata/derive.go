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

// DeriveRelations scans every entity and value object for relation or
// embedding fields and emits one Relation record per such field.
func DeriveRelations(r *Registry) []Item {
	var items []Item
	for _, typ := range []string{ItemTypeEntity, ItemTypeValueObject} {
		for _, item := range r.GetByType(typ) {
			ed, ok := item.(*EntityDescriptor)
			if !ok {
				continue
			}
			for _, f := range ed.Fields {
				if !f.IsRelation() {
					continue
				}
				kind := f.Relation
				if kind == "" {
					kind = ManyToOne
				}
				items = append(items, &Relation{
					Source:    ed.Name,
					Target:    f.Target,
					FieldName: f.Name,
					Kind:      kind,
				})
			}
		}
	}
	return items
}

// RegisterRelationDerivation declares the relation extension type on r, wired
// to recompute whenever an entity or value object changes.
func RegisterRelationDerivation(r *Registry) {
	r.RegisterType(TypeConfig{
		Name:    ItemTypeRelation,
		Layer:   "derived",
		Derive:  DeriveRelations,
		Sources: []string{ItemTypeEntity, ItemTypeValueObject},
	})
}
