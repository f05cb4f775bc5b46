package main

import "testing"

func TestParseValue(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  any
	}{
		{"money decimal", "amount", "12.34", int64(1234)},
		{"money decimal comma", "refundAmount", "12,34", int64(1234)},
		{"money whole amount", "allocatedBudget", "2500", int64(250000)},
		{"money fractional rounding", "currentSpend", "0.995", int64(100)},
		{"money invalid falls through", "amount", "abc", "abc"},
		{"plain integer", "capacity", "42", int64(42)},
		{"plain float", "ratio", "1.5", float64(1.5)},
		{"boolean", "active", "true", true},
		{"string", "status", "approved", "approved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseValue(tt.field, tt.value)
			if got != tt.want {
				t.Errorf("parseValue(%q, %q) = %v (%T), want %v (%T)", tt.field, tt.value, got, got, tt.want, tt.want)
			}
		})
	}
}
