// Package dynamo provides the core simulation primitives for tanksim.
//
// The package defines the interfaces and types shared by the reactor model,
// the ODE solvers and the simulation driver:
//
//   - [State]: vector representing system state
//   - [Control]: vector of exogenous inputs held constant over a solve
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator], [AdaptiveIntegrator]: single-step numerical methods
//   - [Solver]: advances a state across a whole time interval
//   - [Metric], [Observer]: hooks called at every recorded grid point
//
// # Errors
//
// Failures are reported through the sentinel errors in errors.go. A failed
// run surfaces a [*SimulationError] that records the grid index, time and
// state at which the failing step started.
package dynamo
