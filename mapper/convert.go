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
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magpie-io/magpie/metadata"
	"github.com/magpie-io/magpie/types"
)

const dateLayout = "2006-01-02"

// ToDomainValue coerces a raw storage value into its domain representation
// for the declared semantic type. nil stays nil (absence, not a typed zero
// value); decimals become exact decimal values; dates become time.Time.
func ToDomainValue(entity, field string, typ metadata.SemanticType, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch typ {
	case metadata.TypeDecimal:
		d, err := toDecimal(raw)
		if err != nil {
			return nil, &ConversionError{Entity: entity, Field: field, Value: raw, Err: err}
		}
		return d, nil
	case metadata.TypeDate, metadata.TypeDateTime:
		t, err := toTime(raw)
		if err != nil {
			return nil, &ConversionError{Entity: entity, Field: field, Value: raw, Err: err}
		}
		return t, nil
	case metadata.TypeBoolean:
		b, err := toBool(raw)
		if err != nil {
			return nil, &ConversionError{Entity: entity, Field: field, Value: raw, Err: err}
		}
		return b, nil
	case metadata.TypeInteger:
		n, err := toInt64(raw)
		if err != nil {
			return nil, &ConversionError{Entity: entity, Field: field, Value: raw, Err: err}
		}
		return n, nil
	case metadata.TypeString, metadata.TypeEnum:
		if b, ok := raw.([]byte); ok {
			return string(b), nil
		}
		return raw, nil
	case metadata.TypeJSON:
		v, err := toJSONDomain(raw)
		if err != nil {
			return nil, &ConversionError{Entity: entity, Field: field, Value: raw, Err: err}
		}
		return v, nil
	default:
		return raw, nil
	}
}

// ToStorageValue coerces a domain value into its storage representation.
// Decimals serialize to their canonical decimal string so round-trips never
// pass through a binary float; dates stay time.Time; nil stays nil.
func ToStorageValue(entity, field string, typ metadata.SemanticType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch typ {
	case metadata.TypeDecimal:
		d, err := toDecimal(value)
		if err != nil {
			return nil, &ConversionError{Entity: entity, Field: field, Value: value, Err: err}
		}
		return d.String(), nil
	case metadata.TypeDate, metadata.TypeDateTime:
		t, err := toTime(value)
		if err != nil {
			return nil, &ConversionError{Entity: entity, Field: field, Value: value, Err: err}
		}
		return t, nil
	case metadata.TypeJSON:
		s, err := toJSONStorage(value)
		if err != nil {
			return nil, &ConversionError{Entity: entity, Field: field, Value: value, Err: err}
		}
		return s, nil
	default:
		return value, nil
	}
}

// toJSONDomain decodes JSON column text into types.JsonObject/JsonArray.
// Values that are already structured pass through unchanged.
func toJSONDomain(v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		return decodeJSON(x)
	case string:
		return decodeJSON([]byte(x))
	default:
		return v, nil
	}
}

func decodeJSON(b []byte) (any, error) {
	var obj types.JsonObject
	if err := json.Unmarshal(b, &obj); err == nil {
		return obj, nil
	}
	var arr types.JsonArray
	if err := json.Unmarshal(b, &arr); err == nil {
		return arr, nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// toJSONStorage serializes a JSON-typed value to column text via the
// driver.Valuer of types.JsonObject/JsonArray.
func toJSONStorage(v any) (any, error) {
	switch x := v.(type) {
	case types.JsonObject:
		return x.Value()
	case types.JsonArray:
		return x.Value()
	case map[string]interface{}:
		return types.JsonObject(x).Value()
	case string:
		return x, nil
	case []byte:
		return x, nil
	default:
		return json.Marshal(v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		return decimal.NewFromString(x)
	case []byte:
		return decimal.NewFromString(string(x))
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported decimal source type %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	case int64:
		return time.Unix(x, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported date source type %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		dateLayout,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case string:
		return strconv.ParseBool(x)
	case []byte:
		return strconv.ParseBool(string(x))
	default:
		return false, fmt.Errorf("unsupported boolean source type %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported integer source type %T", v)
	}
}
