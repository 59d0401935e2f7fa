package domain

import (
	"fmt"
	"math"
	"sort"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
)

// ValidFieldType reports whether t is one of the recognized types.
func ValidFieldType(t FieldType) bool {
	switch t {
	case FieldString, FieldInteger, FieldNumber, FieldBoolean, FieldObject, FieldArray:
		return true
	}
	return false
}

// Schema is a flat field-name to field-type map describing the shape
// a strategy expects as input. Every declared field is required.
type Schema map[string]FieldType

// Validate checks payload against the schema. Fields not declared in
// the schema are allowed and passed through untouched. Field names
// are checked in sorted order so the first reported violation is
// deterministic.
func (s Schema) Validate(payload map[string]any) error {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, ok := payload[name]
		if !ok {
			return fmt.Errorf("missing required field %q", name)
		}
		if err := checkType(name, s[name], v); err != nil {
			return err
		}
	}
	return nil
}

// checkType validates a single decoded JSON value. Numbers arrive as
// float64 from encoding/json, so "integer" means an integral float64.
func checkType(name string, want FieldType, v any) error {
	switch want {
	case FieldString:
		if _, ok := v.(string); !ok {
			return typeErr(name, want, v)
		}
	case FieldInteger:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return typeErr(name, want, v)
		}
	case FieldNumber:
		if _, ok := v.(float64); !ok {
			return typeErr(name, want, v)
		}
	case FieldBoolean:
		if _, ok := v.(bool); !ok {
			return typeErr(name, want, v)
		}
	case FieldObject:
		if _, ok := v.(map[string]any); !ok {
			return typeErr(name, want, v)
		}
	case FieldArray:
		if _, ok := v.([]any); !ok {
			return typeErr(name, want, v)
		}
	default:
		return fmt.Errorf("field %q has unknown declared type %q", name, want)
	}
	return nil
}

func typeErr(name string, want FieldType, got any) error {
	return fmt.Errorf("field %q must be %s, got %T", name, want, got)
}
