package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSchemaValidate(t *testing.T) {
	schema := Schema{
		"name":    FieldString,
		"count":   FieldInteger,
		"ratio":   FieldNumber,
		"active":  FieldBoolean,
		"config":  FieldObject,
		"targets": FieldArray,
	}

	// Decode through encoding/json so values carry the types the
	// webhook path actually sees.
	var payload map[string]any
	raw := `{
		"name": "x",
		"count": 3,
		"ratio": 0.5,
		"active": true,
		"config": {"k": "v"},
		"targets": ["a", "b"],
		"extra": "ignored"
	}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatal(err)
	}
	if err := schema.Validate(payload); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
}

func TestSchemaValidateViolations(t *testing.T) {
	cases := []struct {
		name    string
		schema  Schema
		payload map[string]any
		wantErr string
	}{
		{
			name:    "missing field",
			schema:  Schema{"value": FieldNumber},
			payload: map[string]any{},
			wantErr: `missing required field "value"`,
		},
		{
			name:    "wrong type",
			schema:  Schema{"value": FieldNumber},
			payload: map[string]any{"value": "five"},
			wantErr: `field "value" must be number`,
		},
		{
			name:    "fractional integer",
			schema:  Schema{"count": FieldInteger},
			payload: map[string]any{"count": 2.5},
			wantErr: `field "count" must be integer`,
		},
		{
			name:    "string as boolean",
			schema:  Schema{"flag": FieldBoolean},
			payload: map[string]any{"flag": "true"},
			wantErr: `field "flag" must be boolean`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.schema.Validate(tc.payload)
			if err == nil {
				t.Fatal("expected violation")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("got %q, want substring %q", err, tc.wantErr)
			}
		})
	}
}

// Integral float64s satisfy "integer" even when written as 3.0,
// since JSON does not distinguish the two.
func TestSchemaIntegralFloat(t *testing.T) {
	schema := Schema{"count": FieldInteger}
	if err := schema.Validate(map[string]any{"count": float64(3)}); err != nil {
		t.Fatalf("integral float rejected: %v", err)
	}
}

// Violations are reported in sorted field order so retries see the
// same first error.
func TestSchemaDeterministicFirstViolation(t *testing.T) {
	schema := Schema{
		"alpha": FieldString,
		"beta":  FieldString,
		"gamma": FieldString,
	}
	for i := 0; i < 10; i++ {
		err := schema.Validate(map[string]any{})
		if err == nil || !strings.Contains(err.Error(), `"alpha"`) {
			t.Fatalf("expected first violation on alpha, got %v", err)
		}
	}
}

func TestSchemaEmptyAcceptsAnything(t *testing.T) {
	var schema Schema
	if err := schema.Validate(map[string]any{"anything": 1}); err != nil {
		t.Fatalf("empty schema rejected payload: %v", err)
	}
	if err := schema.Validate(nil); err != nil {
		t.Fatalf("empty schema rejected nil payload: %v", err)
	}
}
