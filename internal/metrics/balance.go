package metrics

import (
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
	"github.com/san-kum/tanksim/internal/reactor"
)

// MassBalance is the largest deviation of the volume from
// V0 + integral of (qf - q) dt, with the flows held over each interval as
// they were when observed at its start.
type MassBalance struct {
	name     string
	expected float64
	prevNet  float64
	prevT    float64
	maxError float64
	samples  int
}

func NewMassBalance() *MassBalance {
	return &MassBalance{name: "mass_balance_error"}
}

func (m *MassBalance) Name() string { return m.name }

func (m *MassBalance) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) <= reactor.Volume {
		return
	}
	v := x[reactor.Volume]

	if m.samples == 0 {
		m.expected = v
	} else {
		m.expected += m.prevNet * (t - m.prevT)
		m.maxError = math.Max(m.maxError, math.Abs(v-m.expected))
	}

	m.prevNet = forcing.FromControl(u).NetFlow()
	m.prevT = t
	m.samples++
}

func (m *MassBalance) Value() float64 {
	return m.maxError
}

func (m *MassBalance) Reset() {
	m.expected = 0
	m.prevNet = 0
	m.prevT = 0
	m.maxError = 0
	m.samples = 0
}
