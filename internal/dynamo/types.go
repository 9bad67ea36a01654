package dynamo

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, 2)
}

// Add, Sub and AddScaled panic when the lengths differ, like the gonum
// routines they wrap.
func (s State) Add(other State) State {
	result := s.Clone()
	floats.Add(result, other)
	return result
}

func (s State) Sub(other State) State {
	result := s.Clone()
	floats.Sub(result, other)
	return result
}

func (s State) Scale(factor float64) State {
	result := s.Clone()
	floats.Scale(factor, result)
	return result
}

// AddScaled returns s + alpha*other.
func (s State) AddScaled(alpha float64, other State) State {
	result := s.Clone()
	floats.AddScaled(result, alpha, other)
	return result
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) (State, error)
	StateDim() int
	ControlDim() int
}

// Integrator advances a state by a single step of fixed size. Order is the
// convergence order used for step-size control.
type Integrator interface {
	Name() string
	Order() int
	Step(dyn System, x State, u Control, t float64, dt float64) (State, error)
}

// AdaptiveIntegrator carries its own embedded error estimate. StepAdaptive
// returns the proposed state and the error norm scaled by tol; a norm of at
// most 1 means the step meets the tolerance.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt float64, tol Tolerance) (State, float64, error)
}

// Solver advances x from t0 to t1 with u held constant and returns only the
// state at t1.
type Solver interface {
	Solve(ctx context.Context, dyn System, x State, u Control, t0, t1 float64) (State, Stats, error)
}

// Stats counts the work done by one or more solves.
type Stats struct {
	Steps       int     `json:"steps"`
	Rejected    int     `json:"rejected"`
	Evaluations int     `json:"evaluations"`
	LastStep    float64 `json:"last_step"`
}

func (s *Stats) Add(other Stats) {
	s.Steps += other.Steps
	s.Rejected += other.Rejected
	s.Evaluations += other.Evaluations
	s.LastStep = other.LastStep
}

// Tolerance is a mixed absolute/relative error bound.
type Tolerance struct {
	Abs float64
	Rel float64
}

// ErrorNorm is the RMS of est scaled component-wise by
// Abs + Rel*max(|x|, |xNew|).
func (tol Tolerance) ErrorNorm(x, xNew, est State) float64 {
	if len(est) == 0 {
		return 0
	}
	sum := 0.0
	for i := range est {
		sc := tol.Abs + tol.Rel*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		r := est[i] / sc
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(est)))
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

// Config bounds the work of each solve.
type Config struct {
	Rtol        float64
	Atol        float64
	InitialStep float64
	MinStep     float64
	MaxStep     float64
	MaxSteps    int
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Rtol:     1e-8,
		Atol:     1e-10,
		MinStep:  1e-12,
		MaxSteps: 10000,
	}
}

func (c Config) Tolerance() Tolerance {
	return Tolerance{Abs: c.Atol, Rel: c.Rtol}
}
