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

import "fmt"

// ConversionError reports a raw value that could not be coerced to its
// declared semantic type. It carries the entity and field names plus the raw
// value for diagnostics.
type ConversionError struct {
	Entity string
	Field  string
	Value  any
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert value %v for %s.%s: %v", e.Value, e.Entity, e.Field, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ConfigurationError reports structurally broken metadata: naming-transform
// collisions, unresolvable primary keys, or a repository with neither a
// registered descriptor nor a fallback table.
type ConfigurationError struct {
	Entity string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("entity %q misconfigured: %s", e.Entity, e.Reason)
}
