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
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/magpie-io/magpie/types"
)

// Accessor reads and writes domain-object attributes by name. It is built
// once per Go type: struct types get an attribute-name → field-index table
// (from the `magpie` tag, falling back to the lowerCamel field name), and
// string-keyed map types are accessed directly. This replaces unrestricted
// dynamic property access with an indexed lookup.
type Accessor struct {
	typ    reflect.Type
	fields map[string][]int
	isMap  bool
}

// ForType builds an accessor for t, which must be a struct, a pointer to
// struct, or a string-keyed map type.
func ForType(t reflect.Type) (*Accessor, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("mapper: map type %s must be keyed by string", t)
		}
		return &Accessor{typ: t, isMap: true}, nil
	case reflect.Struct:
		a := &Accessor{typ: t, fields: make(map[string][]int)}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := attributeName(f)
			if name == "" {
				continue
			}
			a.fields[name] = f.Index
		}
		return a, nil
	default:
		return nil, fmt.Errorf("mapper: unsupported domain object type %s", t)
	}
}

// For builds an accessor for the type parameter T.
func For[T any]() (*Accessor, error) {
	var zero T
	return ForType(reflect.TypeOf(&zero).Elem())
}

func attributeName(f reflect.StructField) string {
	tag := f.Tag.Get("magpie")
	if tag == "-" {
		return ""
	}
	if tag != "" {
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag != "" {
			return tag
		}
	}
	return lowerCamel(f.Name)
}

func lowerCamel(name string) string {
	if name == "" {
		return ""
	}
	r := []rune(name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Attributes returns the attribute names the accessor can address, sorted.
// Map-backed types have no static attribute set and return nil.
func (a *Accessor) Attributes() []string {
	if a.isMap {
		return nil
	}
	names := make([]string, 0, len(a.fields))
	for name := range a.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMap reports whether the accessor addresses a map-backed type, where key
// presence is authoritative and absence is decidable.
func (a *Accessor) IsMap() bool { return a.isMap }

// Has reports whether the attribute is addressable on objects of the
// accessor's type. Map-backed types can address any attribute.
func (a *Accessor) Has(attr string) bool {
	if a.isMap {
		return true
	}
	_, ok := a.fields[attr]
	return ok
}

// Record extracts every addressable attribute of obj into a Record. For
// struct-backed objects this reads all exported fields; for map-backed
// objects it copies the map.
func (a *Accessor) Record(obj any) types.Record {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return types.Record{}
		}
		v = v.Elem()
	}
	rec := make(types.Record)
	if a.isMap {
		iter := v.MapRange()
		for iter.Next() {
			rec[iter.Key().String()] = iter.Value().Interface()
		}
		return rec
	}
	for name, idx := range a.fields {
		rec[name] = v.FieldByIndex(idx).Interface()
	}
	return rec
}

// Get returns the attribute's current value and whether the attribute is
// addressable on obj. For map-backed objects, presence means the key exists.
func (a *Accessor) Get(obj any, attr string) (any, bool) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if a.isMap {
		mv := v.MapIndex(reflect.ValueOf(attr))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	}
	idx, ok := a.fields[attr]
	if !ok {
		return nil, false
	}
	return v.FieldByIndex(idx).Interface(), true
}

// IsZero reports whether the attribute holds its type's zero value. Absent
// attributes count as zero.
func (a *Accessor) IsZero(obj any, attr string) bool {
	v, ok := a.Get(obj, attr)
	if !ok || v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// Set writes value into the named attribute, converting between compatible
// Go types where needed. Setting an unknown attribute on a struct-backed
// object is an error; a nil value leaves the attribute untouched.
func (a *Accessor) Set(obj any, attr string, value any) error {
	if value == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return fmt.Errorf("mapper: cannot set %q on nil object", attr)
		}
		v = v.Elem()
	}
	if a.isMap {
		if v.IsNil() {
			return fmt.Errorf("mapper: cannot set %q on nil map", attr)
		}
		v.SetMapIndex(reflect.ValueOf(attr), reflect.ValueOf(value))
		return nil
	}

	idx, ok := a.fields[attr]
	if !ok {
		return fmt.Errorf("mapper: type %s has no attribute %q", a.typ, attr)
	}
	field := v.FieldByIndex(idx)
	if !field.CanSet() {
		return fmt.Errorf("mapper: attribute %q of %s is not settable", attr, a.typ)
	}

	val := reflect.ValueOf(value)
	switch {
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
	case val.Type().ConvertibleTo(field.Type()):
		field.Set(val.Convert(field.Type()))
	case field.Kind() == reflect.Pointer && val.Type().AssignableTo(field.Type().Elem()):
		p := reflect.New(field.Type().Elem())
		p.Elem().Set(val)
		field.Set(p)
	default:
		return fmt.Errorf("mapper: cannot assign %T to attribute %q of %s", value, attr, a.typ)
	}
	return nil
}
