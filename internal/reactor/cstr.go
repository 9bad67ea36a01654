package reactor

import (
	"fmt"
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
)

// State vector layout.
const (
	Volume = iota
	Concentration
	Temperature
	NumStates
)

// RateLaw gives the consumption rate of species A in mol/(L·min).
type RateLaw interface {
	Name() string
	Rate(x dynamo.State) float64
}

// NoReaction is the zero rate law.
type NoReaction struct{}

func (NoReaction) Name() string                { return "none" }
func (NoReaction) Rate(_ dynamo.State) float64 { return 0 }

type CSTR struct {
	rate RateLaw
}

func NewCSTR() *CSTR { return &CSTR{rate: NoReaction{}} }

// WithRateLaw returns a copy of the model using r; nil restores NoReaction.
func (c *CSTR) WithRateLaw(r RateLaw) *CSTR {
	if r == nil {
		r = NoReaction{}
	}
	return &CSTR{rate: r}
}

func (c *CSTR) RateLaw() RateLaw { return c.rate }
func (c *CSTR) StateDim() int    { return NumStates }
func (c *CSTR) ControlDim() int  { return forcing.NumInputs }

// DefaultState is 1 L of 0.5 mol/L solution at 350 K.
func (c *CSTR) DefaultState() dynamo.State { return dynamo.State{1.0, 0.5, 350.0} }

// Derive returns [dV/dt, dCa/dt, dT/dt]. The time argument is unused; the
// model only varies in time through u.
func (c *CSTR) Derive(x dynamo.State, u dynamo.Control, _ float64) (dynamo.State, error) {
	if len(x) != NumStates || len(u) != forcing.NumInputs {
		return nil, fmt.Errorf("%w: state %d/%d, control %d/%d",
			dynamo.ErrDimensionMismatch, len(x), NumStates, len(u), forcing.NumInputs)
	}

	v, ca, temp := x[Volume], x[Concentration], x[Temperature]
	if !(v > 0) || math.IsInf(v, 1) {
		return nil, fmt.Errorf("%w: volume %g", dynamo.ErrSingularState, v)
	}
	if !x.IsValid() {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidState, []float64(x))
	}

	in := forcing.FromControl(u)
	rA := c.rate.Rate(x)

	dV := in.InletFlow - in.OutletFlow
	dCa := (in.InletFlow*in.FeedConcentration-in.OutletFlow*ca)/v - rA - ca*dV/v
	dT := (in.InletFlow*in.FeedTemperature-in.OutletFlow*temp)/v - temp*dV/v

	return dynamo.State{dV, dCa, dT}, nil
}
