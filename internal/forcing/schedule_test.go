package forcing

import (
	"reflect"
	"strings"
	"testing"
)

func TestReferenceBoundaries(t *testing.T) {
	s, err := Reference(100)
	if err != nil {
		t.Fatalf("reference schedule: %v", err)
	}

	tests := []struct {
		index int
		want  Inputs
	}{
		{0, Inputs{5.2, 5.0, 1.0, 300.0}},
		{29, Inputs{5.2, 5.0, 1.0, 300.0}},
		{30, Inputs{5.2, 5.0, 0.5, 300.0}},
		{49, Inputs{5.2, 5.0, 0.5, 300.0}},
		{50, Inputs{5.1, 5.0, 0.5, 300.0}},
		{69, Inputs{5.1, 5.0, 0.5, 300.0}},
		{70, Inputs{5.1, 5.0, 0.5, 325.0}},
		{99, Inputs{5.1, 5.0, 0.5, 325.0}},
	}

	for _, tt := range tests {
		got, err := s.At(tt.index)
		if err != nil {
			t.Fatalf("At(%d): %v", tt.index, err)
		}
		if got != tt.want {
			t.Errorf("At(%d) = %+v, want %+v", tt.index, got, tt.want)
		}
	}
}

func TestScheduleAtOutOfRange(t *testing.T) {
	s, err := Reference(100)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{-1, 100, 1000} {
		if _, err := s.At(i); err == nil {
			t.Errorf("At(%d): expected error", i)
		}
	}
}

func TestReferenceTooShort(t *testing.T) {
	if _, err := Reference(70); err == nil {
		t.Error("expected error: temperature step at index 70 does not fit 70 points")
	}
}

func TestSeries(t *testing.T) {
	s, err := Reference(100)
	if err != nil {
		t.Fatal(err)
	}
	qf, q, caf, tf := s.Series()
	for name, series := range map[string][]float64{"qf": qf, "q": q, "caf": caf, "tf": tf} {
		if len(series) != 100 {
			t.Errorf("%s has length %d, want 100", name, len(series))
		}
	}
	if qf[49] != 5.2 || qf[50] != 5.1 {
		t.Errorf("qf switch misplaced: qf[49]=%v qf[50]=%v", qf[49], qf[50])
	}

	qf[0] = -1
	again, _, _, _ := s.Series()
	if again[0] != 5.2 {
		t.Error("Series returned a shared buffer")
	}
}

func TestSwitches(t *testing.T) {
	s, err := Reference(100)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Switches(); !reflect.DeepEqual(got, []int{30, 50, 70}) {
		t.Errorf("Switches() = %v, want [30 50 70]", got)
	}

	flat, err := NewSchedule(10, StepAt(1, 4, 1), Constant(1), Constant(0), Constant(300))
	if err != nil {
		t.Fatal(err)
	}
	if got := flat.Switches(); len(got) != 0 {
		t.Errorf("step to the same value is not a switch, got %v", got)
	}
}

func TestNewScheduleValidation(t *testing.T) {
	ok := Constant(1)
	temp := Constant(300)

	tests := []struct {
		name     string
		n        int
		qf, q    Signal
		caf, tf  Signal
		contains string
	}{
		{"too short", 1, ok, ok, ok, temp, "at least 2"},
		{"negative flow", 10, Constant(-1), ok, ok, temp, "inlet flow"},
		{"negative step value", 10, ok, StepAt(1, 3, -2), ok, temp, "outlet flow"},
		{"step past end", 10, ok, ok, StepAt(1, 10, 0.5), temp, "outside"},
		{"negative index", 10, ok, ok, StepAt(1, -1, 0.5), temp, "outside"},
		{"zero temperature", 10, ok, ok, ok, Constant(0), "feed temperature"},
		{"unordered steps", 10, Signal{Base: 1, Steps: []Step{{5, 2}, {3, 1}}}, ok, ok, temp, "strictly increasing"},
		{"duplicate steps", 10, Signal{Base: 1, Steps: []Step{{5, 2}, {5, 1}}}, ok, ok, temp, "strictly increasing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchedule(tt.n, tt.qf, tt.q, tt.caf, tt.tf)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err, tt.contains)
			}
		})
	}
}

func TestNewScheduleCopiesSteps(t *testing.T) {
	sig := StepAt(1, 2, 2)
	s, err := NewSchedule(5, sig, Constant(1), Constant(1), Constant(300))
	if err != nil {
		t.Fatal(err)
	}
	sig.Steps[0].Value = 99

	in, _ := s.At(4)
	if in.InletFlow != 2 {
		t.Errorf("schedule aliased caller's steps: got %v", in.InletFlow)
	}
}

func TestControlRoundTrip(t *testing.T) {
	in := Inputs{InletFlow: 5.2, OutletFlow: 5.0, FeedConcentration: 1.0, FeedTemperature: 300}
	u := in.Control()
	if len(u) != NumInputs {
		t.Fatalf("control length %d, want %d", len(u), NumInputs)
	}
	if u[InletFlowIdx] != 5.2 || u[FeedTemperatureIdx] != 300 {
		t.Errorf("unexpected layout: %v", u)
	}
	if got := FromControl(u); got != in {
		t.Errorf("FromControl = %+v, want %+v", got, in)
	}
	if got := in.NetFlow(); got < 0.2-1e-12 || got > 0.2+1e-12 {
		t.Errorf("NetFlow = %v, want 0.2", got)
	}
}
