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

package types

// Record is a dynamic domain object keyed by attribute name. It is the
// default entity representation for schemas that only exist at runtime,
// and it doubles as the raw row shape exchanged with the query executor
// (keyed by column name in that case).
type Record map[string]any

// Get returns the value stored under name and whether it is present.
func (r Record) Get(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// Set stores value under name, allocating nothing when the map exists.
func (r Record) Set(name string, value any) {
	r[name] = value
}

// Has reports whether name is present, even if its value is nil.
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in unspecified order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}
