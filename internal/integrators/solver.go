package integrators

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/tanksim/internal/dynamo"
)

const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 10.0
)

var registry = map[string]func() dynamo.Integrator{
	"rk45":  func() dynamo.Integrator { return NewRK45() },
	"rk4":   func() dynamo.Integrator { return NewRK4() },
	"euler": func() dynamo.Integrator { return NewEuler() },
}

// New returns a fresh integrator by name.
func New(name string) (dynamo.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Solver integrates across an interval with adaptive, error-controlled
// steps. Integrators that implement dynamo.AdaptiveIntegrator supply their
// own error estimate; the others are checked by step doubling.
type Solver struct {
	integrator dynamo.Integrator
	cfg        dynamo.Config
	tol        dynamo.Tolerance
}

func NewSolver(integrator dynamo.Integrator, cfg dynamo.Config) (*Solver, error) {
	if integrator == nil {
		return nil, errors.New("integrators: nil integrator")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Solver{integrator: integrator, cfg: cfg, tol: cfg.Tolerance()}, nil
}

func validateConfig(cfg dynamo.Config) error {
	if cfg.Rtol < 0 || cfg.Atol < 0 || cfg.Rtol+cfg.Atol <= 0 {
		return fmt.Errorf("integrators: tolerances must be non-negative and not both zero (rtol=%g, atol=%g)", cfg.Rtol, cfg.Atol)
	}
	if cfg.MinStep <= 0 {
		return fmt.Errorf("integrators: min step must be positive, got %g", cfg.MinStep)
	}
	if cfg.MaxStep < 0 || cfg.InitialStep < 0 {
		return fmt.Errorf("integrators: step sizes must be non-negative")
	}
	if cfg.MaxStep > 0 && cfg.MaxStep < cfg.MinStep {
		return fmt.Errorf("integrators: max step %g below min step %g", cfg.MaxStep, cfg.MinStep)
	}
	if cfg.MaxSteps <= 0 {
		return fmt.Errorf("integrators: max steps must be positive, got %d", cfg.MaxSteps)
	}
	return nil
}

// counted tallies right-hand-side evaluations.
type counted struct {
	dynamo.System
	n int
}

func (c *counted) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	c.n++
	return c.System.Derive(x, u, t)
}

// Solve advances x from t0 to t1 with u held constant. Only the state at t1
// is returned. A zero-length interval returns a copy of x without evaluating
// the system.
func (s *Solver) Solve(ctx context.Context, dyn dynamo.System, x dynamo.State, u dynamo.Control, t0, t1 float64) (dynamo.State, dynamo.Stats, error) {
	var stats dynamo.Stats

	if len(x) != dyn.StateDim() || len(u) != dyn.ControlDim() {
		return nil, stats, fmt.Errorf("%w: state %d/%d, control %d/%d",
			dynamo.ErrDimensionMismatch, len(x), dyn.StateDim(), len(u), dyn.ControlDim())
	}
	span := t1 - t0
	if math.IsNaN(span) || span < 0 {
		return nil, stats, fmt.Errorf("integrators: end time %g before start time %g", t1, t0)
	}
	if span == 0 {
		return x.Clone(), stats, nil
	}

	cdyn := &counted{System: dyn}

	// The starting state must be admissible; a fault here cannot be cured
	// by shrinking the step.
	if _, err := cdyn.Derive(x, u, t0); err != nil {
		stats.Evaluations = cdyn.n
		return nil, stats, err
	}

	h := s.cfg.InitialStep
	if h <= 0 || h > span {
		h = span
	}
	if s.cfg.MaxStep > 0 && h > s.cfg.MaxStep {
		h = s.cfg.MaxStep
	}

	cur := x.Clone()
	t := t0
	var lastFault error

	for attempts := 0; t < t1; attempts++ {
		if attempts >= s.cfg.MaxSteps {
			stats.Evaluations = cdyn.n
			return nil, stats, fmt.Errorf("%w: %w after %d attempts at t=%g", dynamo.ErrNonConvergence, dynamo.ErrMaxSteps, attempts, t)
		}
		if err := ctx.Err(); err != nil {
			stats.Evaluations = cdyn.n
			return nil, stats, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
		}

		last := false
		if remaining := t1 - t; h >= remaining {
			h = remaining
			last = true
		}

		next, errNorm, err := s.attempt(cdyn, cur, u, t, h)
		switch {
		case err == nil:
		case errors.Is(err, dynamo.ErrSingularState), errors.Is(err, dynamo.ErrInvalidState):
			// A trial stage left the admissible region; retry smaller.
			lastFault = err
			errNorm = math.Inf(1)
		default:
			stats.Evaluations = cdyn.n
			return nil, stats, err
		}
		if math.IsNaN(errNorm) || (err == nil && !next.IsValid()) {
			errNorm = math.Inf(1)
		}

		if errNorm <= 1 {
			if last {
				t = t1
			} else {
				t += h
			}
			cur = next
			stats.Steps++
			stats.LastStep = h
			lastFault = nil
			h *= s.growth(errNorm)
			if s.cfg.MaxStep > 0 && h > s.cfg.MaxStep {
				h = s.cfg.MaxStep
			}
			continue
		}

		stats.Rejected++
		h *= s.shrink(errNorm)
		if h < s.cfg.MinStep {
			stats.Evaluations = cdyn.n
			if lastFault != nil {
				return nil, stats, fmt.Errorf("%w: %w (h=%g at t=%g): %w", dynamo.ErrNonConvergence, dynamo.ErrStepTooSmall, h, t, lastFault)
			}
			return nil, stats, fmt.Errorf("%w: %w (h=%g at t=%g)", dynamo.ErrNonConvergence, dynamo.ErrStepTooSmall, h, t)
		}
	}

	stats.Evaluations = cdyn.n
	return cur, stats, nil
}

func (s *Solver) attempt(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) (dynamo.State, float64, error) {
	if adaptive, ok := s.integrator.(dynamo.AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(dyn, x, u, t, h, s.tol)
	}

	x1, err := s.integrator.Step(dyn, x, u, t, h)
	if err != nil {
		return nil, 0, err
	}
	xHalf, err := s.integrator.Step(dyn, x, u, t, h/2)
	if err != nil {
		return nil, 0, err
	}
	x2, err := s.integrator.Step(dyn, xHalf, u, t+h/2, h/2)
	if err != nil {
		return nil, 0, err
	}
	// Only accept end points the system itself admits.
	if _, err := dyn.Derive(x2, u, t+h); err != nil {
		return nil, 0, err
	}

	// Richardson estimate of the error left in the two half steps.
	p := float64(s.integrator.Order())
	est := x2.Sub(x1).Scale(1 / (math.Pow(2, p) - 1))

	return x2, s.tol.ErrorNorm(x, x2, est), nil
}

func (s *Solver) growth(errNorm float64) float64 {
	if errNorm == 0 {
		return maxScale
	}
	p := float64(s.integrator.Order())
	return math.Min(maxScale, safety*math.Pow(errNorm, -1/(p+1)))
}

func (s *Solver) shrink(errNorm float64) float64 {
	p := float64(s.integrator.Order())
	return math.Max(minScale, math.Min(safety, safety*math.Pow(errNorm, -1/p)))
}
