package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// TimeGrid is an immutable, strictly increasing sequence of time points.
type TimeGrid struct {
	points []float64
}

// Linspace returns n evenly spaced points from start to end inclusive. The
// last point is exactly end.
func Linspace(start, end float64, n int) (*TimeGrid, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", dynamo.ErrInvalidGrid, n)
	}
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return nil, fmt.Errorf("%w: bounds must be finite", dynamo.ErrInvalidGrid)
	}
	if end <= start {
		return nil, fmt.Errorf("%w: end %g must be after start %g", dynamo.ErrInvalidGrid, end, start)
	}

	step := (end - start) / float64(n-1)
	points := make([]float64, n)
	for i := range points {
		points[i] = start + float64(i)*step
	}
	points[n-1] = end
	return &TimeGrid{points: points}, nil
}

func (g *TimeGrid) Len() int { return len(g.points) }

func (g *TimeGrid) At(i int) float64 { return g.points[i] }

func (g *TimeGrid) Start() float64 { return g.points[0] }

func (g *TimeGrid) End() float64 { return g.points[len(g.points)-1] }

// Points returns a copy of the grid.
func (g *TimeGrid) Points() []float64 {
	return append([]float64(nil), g.points...)
}

// Interval returns the bounds of the i-th sub-interval [t_i, t_{i+1}].
func (g *TimeGrid) Interval(i int) (float64, float64) {
	return g.points[i], g.points[i+1]
}
