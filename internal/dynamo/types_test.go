package dynamo

import (
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
		{State{}, 0.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	sum := a.Add(b)
	if sum[0] != 5 || sum[1] != 7 || sum[2] != 9 {
		t.Errorf("Add failed: got %v", sum)
	}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	scaled := a.Scale(2)
	if scaled[0] != 2 || scaled[1] != 4 || scaled[2] != 6 {
		t.Errorf("Scale failed: got %v", scaled)
	}

	axpy := a.AddScaled(0.5, b)
	if axpy[0] != 3 || axpy[1] != 4.5 || axpy[2] != 6 {
		t.Errorf("AddScaled failed: got %v", axpy)
	}

	if a[0] != 1 || b[0] != 4 {
		t.Error("arithmetic modified its operands")
	}
}

func TestStats_Add(t *testing.T) {
	var total Stats
	total.Add(Stats{Steps: 3, Rejected: 1, Evaluations: 25, LastStep: 0.1})
	total.Add(Stats{Steps: 2, Evaluations: 14, LastStep: 0.05})

	if total.Steps != 5 || total.Rejected != 1 || total.Evaluations != 39 {
		t.Errorf("unexpected totals: %+v", total)
	}
	if total.LastStep != 0.05 {
		t.Errorf("LastStep = %v, want 0.05", total.LastStep)
	}
}

func TestTolerance_ErrorNorm(t *testing.T) {
	tol := Tolerance{Abs: 1e-3, Rel: 0}
	x := State{1, 1}
	got := tol.ErrorNorm(x, x, State{1e-3, 1e-3})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("ErrorNorm = %v, want 1", got)
	}

	tol = Tolerance{Abs: 0, Rel: 1e-2}
	got = tol.ErrorNorm(State{100}, State{200}, State{1})
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("ErrorNorm uses max(|x|,|xNew|): got %v, want 0.5", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Rtol <= 0 || cfg.Atol <= 0 {
		t.Error("DefaultConfig has invalid tolerances")
	}
	if cfg.MinStep <= 0 {
		t.Error("DefaultConfig has invalid MinStep")
	}
	if cfg.MaxSteps <= 0 {
		t.Error("DefaultConfig has invalid MaxSteps")
	}
}
