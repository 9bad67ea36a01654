// Package forcing builds the exogenous inputs that drive the tank: inlet
// and outlet flow, feed concentration and feed temperature. Every signal is
// a piecewise-constant function of the grid index.
package forcing

import (
	"fmt"
	"sort"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// NumInputs is the length of the control vector produced by Inputs.Control.
const NumInputs = 4

// Control vector layout.
const (
	InletFlowIdx = iota
	OutletFlowIdx
	FeedConcentrationIdx
	FeedTemperatureIdx
)

// Inputs is the forcing active over one grid interval.
type Inputs struct {
	InletFlow         float64
	OutletFlow        float64
	FeedConcentration float64
	FeedTemperature   float64
}

func (in Inputs) Control() dynamo.Control {
	return dynamo.Control{in.InletFlow, in.OutletFlow, in.FeedConcentration, in.FeedTemperature}
}

// FromControl is the inverse of Inputs.Control. Missing trailing entries
// read as zero.
func FromControl(u dynamo.Control) Inputs {
	var in Inputs
	at := func(i int) float64 {
		if i < len(u) {
			return u[i]
		}
		return 0
	}
	in.InletFlow = at(InletFlowIdx)
	in.OutletFlow = at(OutletFlowIdx)
	in.FeedConcentration = at(FeedConcentrationIdx)
	in.FeedTemperature = at(FeedTemperatureIdx)
	return in
}

// NetFlow is dV/dt under these inputs.
func (in Inputs) NetFlow() float64 {
	return in.InletFlow - in.OutletFlow
}

// Step switches a signal to Value from grid index Index onwards.
type Step struct {
	Index int     `yaml:"index" json:"index"`
	Value float64 `yaml:"value" json:"value"`
}

// Signal is Base until the first step, then the value of the latest step
// whose index is not past the query.
type Signal struct {
	Base  float64 `yaml:"base" json:"base"`
	Steps []Step  `yaml:"steps,omitempty" json:"steps,omitempty"`
}

func Constant(v float64) Signal {
	return Signal{Base: v}
}

func StepAt(base float64, index int, value float64) Signal {
	return Signal{Base: base, Steps: []Step{{Index: index, Value: value}}}
}

func (s Signal) At(i int) float64 {
	v := s.Base
	for _, st := range s.Steps {
		if st.Index > i {
			break
		}
		v = st.Value
	}
	return v
}

func (s Signal) clone() Signal {
	c := Signal{Base: s.Base}
	if len(s.Steps) > 0 {
		c.Steps = append([]Step(nil), s.Steps...)
	}
	return c
}

type bound struct {
	min       float64
	exclusive bool
}

func (b bound) ok(v float64) bool {
	if b.exclusive {
		return v > b.min
	}
	return v >= b.min
}

func (b bound) String() string {
	if b.exclusive {
		return fmt.Sprintf("> %g", b.min)
	}
	return fmt.Sprintf(">= %g", b.min)
}

func (s Signal) validate(name string, n int, b bound) error {
	if !b.ok(s.Base) {
		return fmt.Errorf("forcing: %s base %g must be %s", name, s.Base, b)
	}
	prev := 0
	for k, st := range s.Steps {
		if st.Index < 0 || st.Index >= n {
			return fmt.Errorf("forcing: %s step %d index %d outside [0, %d)", name, k, st.Index, n)
		}
		if k > 0 && st.Index <= prev {
			return fmt.Errorf("forcing: %s step indices must be strictly increasing (%d after %d)", name, st.Index, prev)
		}
		if !b.ok(st.Value) {
			return fmt.Errorf("forcing: %s step %d value %g must be %s", name, k, st.Value, b)
		}
		prev = st.Index
	}
	return nil
}

// Schedule holds the four forcing signals over a grid of Len points. It is
// immutable once built.
type Schedule struct {
	inletFlow         Signal
	outletFlow        Signal
	feedConcentration Signal
	feedTemperature   Signal
	n                 int
}

func NewSchedule(n int, inletFlow, outletFlow, feedConcentration, feedTemperature Signal) (*Schedule, error) {
	if n < 2 {
		return nil, fmt.Errorf("forcing: schedule needs at least 2 points, got %d", n)
	}
	nonNegative := bound{min: 0}
	positive := bound{min: 0, exclusive: true}
	checks := []struct {
		name string
		sig  Signal
		b    bound
	}{
		{"inlet flow", inletFlow, nonNegative},
		{"outlet flow", outletFlow, nonNegative},
		{"feed concentration", feedConcentration, nonNegative},
		{"feed temperature", feedTemperature, positive},
	}
	for _, c := range checks {
		if err := c.sig.validate(c.name, n, c.b); err != nil {
			return nil, err
		}
	}

	return &Schedule{
		inletFlow:         inletFlow.clone(),
		outletFlow:        outletFlow.clone(),
		feedConcentration: feedConcentration.clone(),
		feedTemperature:   feedTemperature.clone(),
		n:                 n,
	}, nil
}

// Reference is the stock schedule: inlet flow 5.2 dropping to 5.1 at index
// 50, outlet flow 5.0, feed concentration 1.0 dropping to 0.5 at index 30
// and feed temperature 300 K rising to 325 K at index 70.
func Reference(n int) (*Schedule, error) {
	return NewSchedule(n,
		StepAt(5.2, 50, 5.1),
		Constant(5.0),
		StepAt(1.0, 30, 0.5),
		StepAt(300.0, 70, 325.0),
	)
}

func (s *Schedule) Len() int { return s.n }

func (s *Schedule) At(i int) (Inputs, error) {
	if i < 0 || i >= s.n {
		return Inputs{}, fmt.Errorf("forcing: index %d outside [0, %d)", i, s.n)
	}
	return Inputs{
		InletFlow:         s.inletFlow.At(i),
		OutletFlow:        s.outletFlow.At(i),
		FeedConcentration: s.feedConcentration.At(i),
		FeedTemperature:   s.feedTemperature.At(i),
	}, nil
}

// Series expands every signal over the whole grid. The slices are fresh on
// each call.
func (s *Schedule) Series() (inletFlow, outletFlow, feedConcentration, feedTemperature []float64) {
	inletFlow = make([]float64, s.n)
	outletFlow = make([]float64, s.n)
	feedConcentration = make([]float64, s.n)
	feedTemperature = make([]float64, s.n)
	for i := 0; i < s.n; i++ {
		inletFlow[i] = s.inletFlow.At(i)
		outletFlow[i] = s.outletFlow.At(i)
		feedConcentration[i] = s.feedConcentration.At(i)
		feedTemperature[i] = s.feedTemperature.At(i)
	}
	return
}

// Switches lists, in ascending order, the indices at which any signal
// changes value.
func (s *Schedule) Switches() []int {
	seen := make(map[int]bool)
	for _, sig := range []Signal{s.inletFlow, s.outletFlow, s.feedConcentration, s.feedTemperature} {
		prev := sig.Base
		for _, st := range sig.Steps {
			if st.Value != prev {
				seen[st.Index] = true
			}
			prev = st.Value
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
