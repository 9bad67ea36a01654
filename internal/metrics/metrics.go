// Package metrics provides run diagnostics that observe every recorded grid
// point. Metrics are stateful and must not be shared between concurrent runs.
package metrics

import "github.com/san-kum/tanksim/internal/dynamo"

// Standard returns a fresh set of the tank diagnostics.
func Standard() []dynamo.Metric {
	return []dynamo.Metric{NewMinVolume(), NewMassBalance(), NewSteadyDeviation()}
}
