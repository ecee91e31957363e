package command

import (
	"errors"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"5 + 10", 15},
		{"2 * 3 + 4", 10},
		{"2 + 3 * 4", 14},
		{"10 / 4", 2.5},
		{"20 - 5 - 3", 12},
		{"-3 + 10", 7},
		{"100 / 5 / 2", 10},
	}

	for _, tt := range tests {
		got, err := Evaluate(tt.expr)
		if err != nil {
			t.Errorf("Evaluate(%q) error = %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	_, err := Evaluate("5 / 0")
	if !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Evaluate(5 / 0) error = %v, want ErrDivisionByZero", err)
	}
}

func TestEvaluateInvalid(t *testing.T) {
	for _, expr := range []string{"", "5 +", "+ * 3", "abc"} {
		if _, err := Evaluate(expr); err == nil {
			t.Errorf("Evaluate(%q) expected error", expr)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{15, "15"},
		{2.5, "2.5"},
		{-3, "-3"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
