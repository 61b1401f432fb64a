// Package canon implements the determinism primitives every CostPilot
// component builds on: a canonical JSON serializer (sorted keys, 2-space
// indent, LF newlines, no trailing commas, normalized floats), stable
// content-derived identifiers, and a hashing helper. Nothing in this
// package reads the wall clock, consults entropy, or depends on map
// iteration order — the one piece of Go runtime non-determinism every
// other package in this module is written to avoid in its hot path.
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Marshal serializes v into canonical JSON: object keys lexicographically
// sorted, 2-space indentation, LF line endings, no trailing commas, and
// every float64 passed through NormalizeFloat. v is walked with
// reflection rather than round-tripped through encoding/json first,
// because encoding/json itself refuses to marshal NaN/Inf — exactly the
// values this package exists to normalize.
func Marshal(v interface{}) ([]byte, error) {
	normalized, err := normalize(reflect.ValueOf(v))
	if err != nil {
		return nil, fmt.Errorf("canon: %w", err)
	}
	buf, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("canon: encode: %w", err)
	}
	// encoding/json on all platforms Go supports already emits bare \n;
	// CRLF is stripped defensively in case a future encoder regresses it.
	buf = bytes.ReplaceAll(buf, []byte("\r\n"), []byte("\n"))
	return buf, nil
}

// normalize walks an arbitrary Go value and produces a tree built only of
// the types encoding/json already round-trips losslessly (map[string]any,
// []any, string, float64, bool, nil), with every float normalized.
func normalize(rv reflect.Value) (interface{}, error) {
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem())

	case reflect.Struct:
		return normalizeStruct(rv)

	case reflect.Map:
		return normalizeMap(rv)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []interface{}{}, nil
		}
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := normalize(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil

	case reflect.String:
		return rv.String(), nil

	case reflect.Bool:
		return rv.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NormalizeFloat(float64(rv.Int())), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NormalizeFloat(float64(rv.Uint())), nil

	case reflect.Float32, reflect.Float64:
		return NormalizeFloat(rv.Float()), nil

	default:
		return nil, fmt.Errorf("unsupported kind %s for canonical encoding", rv.Kind())
	}
}

func normalizeStruct(rv reflect.Value) (interface{}, error) {
	if m, ok := rv.Interface().(json.Marshaler); ok {
		raw, err := m.MarshalJSON()
		if err != nil {
			return nil, err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, err
		}
		return normalize(reflect.ValueOf(generic))
	}

	rt := rv.Type()
	out := make(map[string]interface{}, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" { // unexported
			continue
		}
		name, omitEmpty, skip := jsonFieldName(field)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if omitEmpty && isEmptyValue(fv) {
			continue
		}
		normalized, err := normalize(fv)
		if err != nil {
			return nil, err
		}
		out[name] = normalized
	}
	return out, nil
}

func normalizeMap(rv reflect.Value) (interface{}, error) {
	if rv.IsNil() {
		return map[string]interface{}{}, nil
	}
	out := make(map[string]interface{}, rv.Len())
	keys := rv.MapKeys()
	for _, k := range keys {
		out[fmt.Sprint(k.Interface())] = nil
	}
	for _, k := range keys {
		val, err := normalize(rv.MapIndex(k))
		if err != nil {
			return nil, err
		}
		out[fmt.Sprint(k.Interface())] = val
	}
	return out, nil
}

func jsonFieldName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return field.Name, false, false
	}
	parts := splitTag(tag)
	name = parts[0]
	if name == "" {
		name = field.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func splitTag(tag string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			parts = append(parts, tag[start:i])
			start = i + 1
		}
	}
	return parts
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}

// SortedKeys returns a map's keys in lexicographic order. Used wherever a
// component must iterate a map deterministically instead of relying on Go's
// randomized map iteration order.
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
