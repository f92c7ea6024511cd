package tools

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/sandevgo/ivorybot/internal/core"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2 + 2", 4},
		{"10 - 3 - 2", 5},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"7 / 2", 3.5},
		{"10 % 3", 1},
		{"2 ** 10", 1024},
		{"2 ^ 3", 8},
		{"2 ** 3 ** 2", 512},
		{"-5 + 3", -2},
		{"--4", 4},
		{"sqrt(144)", 12},
		{"abs(-7.5)", 7.5},
		{"exp(0)", 1},
		{"log(e)", 1},
		{"sin(0) + cos(0)", 1},
		{"2 * pi", 2 * math.Pi},
		{"SQRT(16)", 4},
		{"  1.5+ .5 ", 2},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.expr, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"division_by_zero", "1 / 0"},
		{"modulo_by_zero", "5 % 0"},
		{"sqrt_negative", "sqrt(-1)"},
		{"log_zero", "log(0)"},
		{"unknown_function", "cbrt(8)"},
		{"unbalanced_paren", "(1 + 2"},
		{"trailing_garbage", "1 + 2 )"},
		{"empty_parens", "()"},
		{"dangling_operator", "3 +"},
		{"letters_only", "banana"},
		{"double_dot_number", "1..2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr)
			if err == nil {
				t.Fatalf("Evaluate(%q) succeeded, want error", tt.expr)
			}
			te, ok := err.(*core.ToolError)
			if !ok || te.Kind != core.FailEvaluation {
				t.Errorf("error = %v, want evaluation failure", err)
			}
		})
	}
}

func TestCalculator_Execute(t *testing.T) {
	calc := NewCalculator()

	payload, err := calc.Execute(context.Background(), map[string]any{"expression": "6 * 7"})
	if err != nil {
		t.Fatal(err)
	}
	if payload["result"] != 42.0 {
		t.Errorf("result = %v, want 42", payload["result"])
	}
	if payload["expression"] != "6 * 7" {
		t.Errorf("expression not echoed: %v", payload["expression"])
	}

	_, err = calc.Execute(context.Background(), map[string]any{"expression": "   "})
	if err == nil {
		t.Fatal("blank expression accepted")
	}
	if te, ok := err.(*core.ToolError); !ok || te.Kind != core.FailInvalidParameters {
		t.Errorf("error = %v, want invalid parameters", err)
	}
}

func TestCalculator_ErrorMessagesNameThePosition(t *testing.T) {
	_, err := Evaluate("1 + $")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "position") {
		t.Errorf("error %q does not point at a position", err.Error())
	}
}
