package sim

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
)

// Variant is one solver configuration in an ensemble.
type Variant struct {
	Name   string
	Solver dynamo.Solver
}

// Outcome is the result of one variant. Err is set instead of Result when
// that variant failed.
type Outcome struct {
	Name   string
	Result *Result
	Err    error
}

// Ensemble runs the same system, initial state and forcing under several
// solvers at once. Each run gets its own simulator and a fresh metric set,
// so nothing is shared between goroutines.
type Ensemble struct {
	dyn      dynamo.System
	variants []Variant
	metrics  func() []dynamo.Metric
	logger   *zap.Logger
}

func NewEnsemble(dyn dynamo.System, metrics func() []dynamo.Metric, logger *zap.Logger) *Ensemble {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensemble{dyn: dyn, metrics: metrics, logger: logger}
}

func (e *Ensemble) Add(name string, solver dynamo.Solver) {
	e.variants = append(e.variants, Variant{Name: name, Solver: solver})
}

func (e *Ensemble) Len() int { return len(e.variants) }

// Run returns one outcome per variant, in the order they were added.
func (e *Ensemble) Run(ctx context.Context, x0 dynamo.State, grid *TimeGrid, schedule *forcing.Schedule) []Outcome {
	outcomes := make([]Outcome, len(e.variants))

	var wg sync.WaitGroup
	for i, v := range e.variants {
		wg.Add(1)
		go func(idx int, v Variant) {
			defer wg.Done()

			opts := []Option{WithLogger(e.logger.With(zap.String("variant", v.Name)))}
			if e.metrics != nil {
				opts = append(opts, WithMetrics(e.metrics()...))
			}
			sim := New(e.dyn, v.Solver, opts...)

			res, err := sim.Run(ctx, x0.Clone(), grid, schedule)
			outcomes[idx] = Outcome{Name: v.Name, Result: res, Err: err}
		}(i, v)
	}

	wg.Wait()
	return outcomes
}
