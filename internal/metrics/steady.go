package metrics

import (
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
	"github.com/san-kum/tanksim/internal/reactor"
)

// SteadyDeviation is |Ca - Caf| at the last observation.
type SteadyDeviation struct {
	name      string
	deviation float64
	samples   int
}

func NewSteadyDeviation() *SteadyDeviation {
	return &SteadyDeviation{name: "final_ca_deviation"}
}

func (s *SteadyDeviation) Name() string { return s.name }

func (s *SteadyDeviation) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) <= reactor.Concentration {
		return
	}
	caf := forcing.FromControl(u).FeedConcentration
	s.deviation = math.Abs(x[reactor.Concentration] - caf)
	s.samples++
}

func (s *SteadyDeviation) Value() float64 {
	if s.samples == 0 {
		return math.NaN()
	}
	return s.deviation
}

func (s *SteadyDeviation) Reset() {
	s.deviation = 0
	s.samples = 0
}
