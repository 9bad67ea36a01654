package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/forcing"
	"github.com/san-kum/tanksim/internal/sim"
)

// Experiment turns a validated config into a ready simulator.
type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *zap.Logger
	simulator *sim.Simulator
	grid      *sim.TimeGrid
	schedule  *forcing.Schedule
}

func New(cfg *config.Config, logger *zap.Logger) *Experiment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{
		cfg:      cfg.Clone(),
		registry: NewRegistry(),
		logger:   logger,
	}
}

func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	grid, err := sim.Linspace(e.cfg.Grid.Start, e.cfg.Grid.End, e.cfg.Grid.Points)
	if err != nil {
		return err
	}
	schedule, err := e.cfg.Schedule()
	if err != nil {
		return err
	}
	dyn, err := e.registry.GetModel("cstr")
	if err != nil {
		return err
	}
	solver, err := e.registry.GetSolver(e.cfg.Solver.Method, e.cfg.SolverOptions())
	if err != nil {
		return err
	}

	e.grid = grid
	e.schedule = schedule
	e.simulator = sim.New(dyn, solver,
		sim.WithLogger(e.logger),
		sim.WithMetrics(e.registry.DefaultMetrics()...),
	)
	return nil
}

// Run applies the configured timeout, if any, to the whole run.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	if d := e.cfg.Solver.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	return e.simulator.Run(ctx, e.cfg.InitialState(), e.grid, e.schedule)
}

// Compare runs the experiment once per named solver, concurrently.
func (e *Experiment) Compare(ctx context.Context, methods []string) ([]sim.Outcome, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if len(methods) == 0 {
		methods = e.registry.ListSolvers()
	}

	dyn, err := e.registry.GetModel("cstr")
	if err != nil {
		return nil, err
	}
	ens := sim.NewEnsemble(dyn, e.registry.DefaultMetrics, e.logger)
	for _, name := range methods {
		solver, err := e.registry.GetSolver(name, e.cfg.SolverOptions())
		if err != nil {
			return nil, err
		}
		ens.Add(name, solver)
	}

	if d := e.cfg.Solver.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return ens.Run(ctx, e.cfg.InitialState(), e.grid, e.schedule), nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
