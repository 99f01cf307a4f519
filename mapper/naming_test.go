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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"id":          "id",
		"name":        "name",
		"createdAt":   "created_at",
		"CreatedAt":   "created_at",
		"orderItemID": "order_item_i_d",
		"a":           "a",
		"AB":          "a_b",
		"userName2":   "user_name2",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToSnake(in), "input %q", in)
	}
}

func TestColumnFor(t *testing.T) {
	assert.Equal(t, "created_at", ColumnFor("createdAt", ""))
	assert.Equal(t, "issue_date", ColumnFor("issuedOn", "issue_date"))
}
