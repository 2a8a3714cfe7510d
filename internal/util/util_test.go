package util

import (
	"math"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"zero", 0, "0"},
		{"integer", 85, "85"},
		{"negative integer", -90, "-90"},
		{"fraction", 86.7553, "86.7553"},
		{"half", 0.5, "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatNumber(tt.input)
			if result != tt.expected {
				t.Errorf("FormatNumber(%v) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatBool(t *testing.T) {
	if FormatBool(true) != "1" {
		t.Errorf("FormatBool(true) = %q, want \"1\"", FormatBool(true))
	}
	if FormatBool(false) != "0" {
		t.Errorf("FormatBool(false) = %q, want \"0\"", FormatBool(false))
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		decimals int
		expected float64
	}{
		{"one decimal", 12.345, 1, 12.3},
		{"round up", 12.35, 1, 12.4},
		{"no decimals", 12.5, 0, 13},
		{"negative", -45.06, 1, -45.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input, tt.decimals)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Round(%v, %d) = %v, want %v", tt.input, tt.decimals, result, tt.expected)
			}
		})
	}
}

func TestRoundSignificant(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		digits   int
		expected float64
	}{
		{"zero", 0, 15, 0},
		{"short value untouched", 8.5, 15, 8.5},
		{"three digits", 123456, 3, 123000},
		{"small value", 0.00012345, 2, 0.00012},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundSignificant(tt.input, tt.digits)
			if math.Abs(result-tt.expected) > 1e-12 {
				t.Errorf("RoundSignificant(%v, %d) = %v, want %v", tt.input, tt.digits, result, tt.expected)
			}
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name     string
		slice    []string
		str      string
		expected bool
	}{
		{"empty slice", []string{}, "a", false},
		{"found first", []string{"a", "b", "c"}, "a", true},
		{"found last", []string{"a", "b", "c"}, "c", true},
		{"not found", []string{"a", "b", "c"}, "d", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Contains(tt.slice, tt.str)
			if result != tt.expected {
				t.Errorf("Contains(%v, %q) = %v, want %v", tt.slice, tt.str, result, tt.expected)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "plot01", "plot01"},
		{"spaces", " plot 01 ", "plot_01"},
		{"separators", "a:b/c", "a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeName(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
