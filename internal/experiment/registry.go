package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/integrators"
	"github.com/san-kum/tanksim/internal/metrics"
	"github.com/san-kum/tanksim/internal/reactor"
)

type Registry struct {
	models map[string]func() dynamo.System
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func() dynamo.System),
	}

	r.models["cstr"] = func() dynamo.System { return reactor.NewCSTR() }

	return r
}

func (r *Registry) GetModel(name string) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

// GetSolver wraps the named integrator in an adaptive solver.
func (r *Registry) GetSolver(name string, cfg dynamo.Config) (*integrators.Solver, error) {
	integ, err := integrators.New(name)
	if err != nil {
		return nil, err
	}
	return integrators.NewSolver(integ, cfg)
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListSolvers() []string {
	return integrators.Names()
}

func (r *Registry) DefaultMetrics() []dynamo.Metric {
	return metrics.Standard()
}
