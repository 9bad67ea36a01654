package metrics

import (
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/reactor"
)

// MinVolume tracks the smallest tank volume seen during a run.
type MinVolume struct {
	name    string
	min     float64
	samples int
}

func NewMinVolume() *MinVolume {
	return &MinVolume{name: "min_volume", min: math.Inf(1)}
}

func (m *MinVolume) Name() string { return m.name }

func (m *MinVolume) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) <= reactor.Volume {
		return
	}
	m.min = math.Min(m.min, x[reactor.Volume])
	m.samples++
}

// Value is NaN before the first observation.
func (m *MinVolume) Value() float64 {
	if m.samples == 0 {
		return math.NaN()
	}
	return m.min
}

func (m *MinVolume) Reset() {
	m.min = math.Inf(1)
	m.samples = 0
}
