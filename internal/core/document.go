package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Value is one node of a registry-shaped JSON document. The variant set is
// closed: registry documents contain only strings, numbers, booleans, and
// objects, so the validators can dispatch exhaustively.
type Value interface {
	isValue()
}

// String is a string field. Strings that parse as semantic versions order by
// version; everything else orders lexically.
type String string

// Number is a numeric field.
type Number float64

// Bool is a boolean field. Booleans have no monotonic order.
type Bool bool

// Object is a nested document.
type Object map[string]Value

func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (Object) isValue() {}

// DecodeObject parses raw JSON into the document model. Arrays and nulls are
// not part of the registry document shape; encountering one is reported with
// the offending key path rather than smuggled through the validators.
func DecodeObject(data []byte) (Object, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return objectFromRaw(raw, "")
}

func objectFromRaw(raw map[string]any, path string) (Object, error) {
	obj := make(Object, len(raw))
	for key, val := range raw {
		v, err := valueFromRaw(val, childPath(path, key))
		if err != nil {
			return nil, err
		}
		obj[key] = v
	}
	return obj, nil
}

func valueFromRaw(raw any, path string) (Value, error) {
	switch v := raw.(type) {
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case bool:
		return Bool(v), nil
	case map[string]any:
		return objectFromRaw(v, path)
	default:
		return nil, fmt.Errorf("%s: unsupported value of type %T in document", path, raw)
	}
}

// raw converts back to the encoding/json representation.
func (o Object) raw() map[string]any {
	out := make(map[string]any, len(o))
	for key, val := range o {
		switch v := val.(type) {
		case String:
			out[key] = string(v)
		case Number:
			out[key] = float64(v)
		case Bool:
			out[key] = bool(v)
		case Object:
			out[key] = v.raw()
		}
	}
	return out
}

// displayValue renders a value for diagnostics.
func displayValue(v Value) string {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return strconv.FormatFloat(float64(t), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(t))
	case Object:
		b, err := json.Marshal(t.raw())
		if err != nil {
			return "<object>"
		}
		return string(b)
	default:
		return "<nil>"
	}
}

func sortedKeys(o Object) []string {
	keys := make([]string, 0, len(o))
	for key := range o {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}
