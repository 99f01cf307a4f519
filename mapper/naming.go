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
	"strings"
	"unicode"
)

// ToSnake converts a mixed-case attribute name to the lower_snake naming
// convention used by table columns: a separator is inserted before each
// uppercase rune except a leading one, then everything is lowercased. The
// transform is deterministic; distinct attribute names can collide
// ("userID" and "userId" both map to "user_i_d"/"user_id" style forms),
// which mapping construction treats as a configuration error.
func ToSnake(name string) string {
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ColumnFor resolves the storage column of a field: an explicit source-column
// override wins, otherwise the naming transform applies.
func ColumnFor(attrName, override string) string {
	if override != "" {
		return override
	}
	return ToSnake(attrName)
}
