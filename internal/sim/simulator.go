package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
	"github.com/san-kum/tanksim/internal/trajectory"
)

// MetricSolverEvaluations is always present in Result.Metrics.
const MetricSolverEvaluations = "solver_evaluations"

type Simulator struct {
	dyn       dynamo.System
	solver    dynamo.Solver
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	logger    *zap.Logger
}

type Option func(*Simulator)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(metrics ...dynamo.Metric) Option {
	return func(s *Simulator) { s.metrics = append(s.metrics, metrics...) }
}

func New(dyn dynamo.System, solver dynamo.Solver, opts ...Option) *Simulator {
	s := &Simulator{
		dyn:       dyn,
		solver:    solver,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

type Result struct {
	Trajectory *trajectory.Trajectory
	Metrics    map[string]float64
	Stats      dynamo.Stats
	Elapsed    time.Duration
}

// Run folds the solver over the grid. The state at index i+1 comes only from
// the state at index i and the forcing at index i held over [t_i, t_{i+1}].
// Row i+1 records the forcing active going into the next step. Any solver
// failure aborts the run and is returned as a *dynamo.SimulationError; no
// partial trajectory is returned.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, grid *TimeGrid, schedule *forcing.Schedule) (*Result, error) {
	if err := s.validate(x0, grid, schedule); err != nil {
		return nil, err
	}

	start := time.Now()
	n := grid.Len()
	s.logger.Info("simulation started",
		zap.Int("points", n),
		zap.Float64("t0", grid.Start()),
		zap.Float64("t1", grid.End()),
		zap.Float64s("x0", x0))

	for _, m := range s.metrics {
		m.Reset()
	}

	switches := make(map[int]bool)
	for _, i := range schedule.Switches() {
		switches[i] = true
	}

	u, err := schedule.At(0)
	if err != nil {
		return nil, err
	}
	rec, err := trajectory.NewRecorder(n, grid.At(0), u, x0)
	if err != nil {
		return nil, err
	}
	s.observe(x0, u, grid.At(0))

	var stats dynamo.Stats
	x := x0.Clone()

	for i := 0; i < n-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, &dynamo.SimulationError{
				Step: i, Time: grid.At(i), State: x,
				Wrapped: fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err),
			}
		}

		if switches[i] {
			s.logger.Debug("forcing switch",
				zap.Int("index", i),
				zap.Float64("t", grid.At(i)),
				zap.Float64("qf", u.InletFlow),
				zap.Float64("q", u.OutletFlow),
				zap.Float64("caf", u.FeedConcentration),
				zap.Float64("tf", u.FeedTemperature))
		}

		t0, t1 := grid.Interval(i)
		next, st, err := s.solver.Solve(ctx, s.dyn, x, u.Control(), t0, t1)
		stats.Add(st)
		if err != nil {
			s.logger.Debug("step failed", zap.Int("index", i), zap.Error(err))
			return nil, &dynamo.SimulationError{Step: i, Time: t0, State: x, Wrapped: err}
		}

		nextU, err := schedule.At(i + 1)
		if err != nil {
			return nil, err
		}
		if err := rec.Record(i+1, t1, nextU, next); err != nil {
			return nil, err
		}
		s.observe(next, nextU, t1)

		x, u = next, nextU
	}

	traj, err := rec.Seal()
	if err != nil {
		return nil, err
	}

	result := &Result{
		Trajectory: traj,
		Metrics:    make(map[string]float64, len(s.metrics)+1),
		Stats:      stats,
		Elapsed:    time.Since(start),
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Metrics[MetricSolverEvaluations] = float64(stats.Evaluations)

	s.logger.Info("simulation finished",
		zap.Float64s("x1", x),
		zap.Int("steps", stats.Steps),
		zap.Int("rejected", stats.Rejected),
		zap.Int("evaluations", stats.Evaluations),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

func (s *Simulator) observe(x dynamo.State, u forcing.Inputs, t float64) {
	ctrl := u.Control()
	for _, m := range s.metrics {
		m.Observe(x, ctrl, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, ctrl, t)
	}
}

func (s *Simulator) validate(x0 dynamo.State, grid *TimeGrid, schedule *forcing.Schedule) error {
	if grid == nil || schedule == nil {
		return fmt.Errorf("%w: grid and schedule are required", dynamo.ErrInvalidGrid)
	}
	if grid.Len() != schedule.Len() {
		return fmt.Errorf("%w: grid has %d points, schedule has %d", dynamo.ErrInvalidGrid, grid.Len(), schedule.Len())
	}
	if len(x0) != s.dyn.StateDim() {
		return fmt.Errorf("%w: initial state has %d components, want %d", dynamo.ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}
	if s.dyn.ControlDim() != forcing.NumInputs {
		return fmt.Errorf("%w: system takes %d inputs, schedule provides %d", dynamo.ErrDimensionMismatch, s.dyn.ControlDim(), forcing.NumInputs)
	}
	return nil
}
