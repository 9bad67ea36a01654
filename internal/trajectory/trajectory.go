// Package trajectory records the state and forcing at every grid point of a
// run. A Recorder is the append-only working buffer owned by the simulation
// loop; Seal turns it into a read-only Trajectory.
package trajectory

import (
	"errors"
	"fmt"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
)

// Column names in row order.
const (
	ColTime              = "t"
	ColInletFlow         = "qf"
	ColOutletFlow        = "q"
	ColFeedTemperature   = "Tf"
	ColFeedConcentration = "Caf"
	ColVolume            = "V"
	ColConcentration     = "Ca"
	ColTemperature       = "T"
)

// NumColumns is the width of a row.
const NumColumns = 8

var columns = [NumColumns]string{
	ColTime, ColInletFlow, ColOutletFlow, ColFeedTemperature,
	ColFeedConcentration, ColVolume, ColConcentration, ColTemperature,
}

// Columns returns the column names in row order.
func Columns() []string {
	return append([]string(nil), columns[:]...)
}

// Row is one grid point. The forcing fields hold the inputs active going
// into the step that starts at T.
type Row struct {
	T                 float64 `json:"t"`
	InletFlow         float64 `json:"qf"`
	OutletFlow        float64 `json:"q"`
	FeedTemperature   float64 `json:"Tf"`
	FeedConcentration float64 `json:"Caf"`
	Volume            float64 `json:"V"`
	Concentration     float64 `json:"Ca"`
	Temperature       float64 `json:"T"`
}

func NewRow(t float64, u forcing.Inputs, x dynamo.State) (Row, error) {
	if len(x) != 3 {
		return Row{}, fmt.Errorf("%w: state has %d components, want 3", dynamo.ErrDimensionMismatch, len(x))
	}
	return Row{
		T:                 t,
		InletFlow:         u.InletFlow,
		OutletFlow:        u.OutletFlow,
		FeedTemperature:   u.FeedTemperature,
		FeedConcentration: u.FeedConcentration,
		Volume:            x[0],
		Concentration:     x[1],
		Temperature:       x[2],
	}, nil
}

// RowFromValues builds a row from values in column order.
func RowFromValues(v []float64) (Row, error) {
	if len(v) != NumColumns {
		return Row{}, fmt.Errorf("trajectory: row has %d values, want %d", len(v), NumColumns)
	}
	return Row{v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7]}, nil
}

// Values returns the row in column order.
func (r Row) Values() []float64 {
	return []float64{r.T, r.InletFlow, r.OutletFlow, r.FeedTemperature,
		r.FeedConcentration, r.Volume, r.Concentration, r.Temperature}
}

func (r Row) State() dynamo.State {
	return dynamo.State{r.Volume, r.Concentration, r.Temperature}
}

func (r Row) Inputs() forcing.Inputs {
	return forcing.Inputs{
		InletFlow:         r.InletFlow,
		OutletFlow:        r.OutletFlow,
		FeedConcentration: r.FeedConcentration,
		FeedTemperature:   r.FeedTemperature,
	}
}

var ErrSealed = errors.New("trajectory: recorder already sealed")

type Recorder struct {
	rows   []Row
	n      int
	sealed bool
}

// NewRecorder starts a buffer for n grid points with row 0 set to the
// initial condition.
func NewRecorder(n int, t0 float64, u0 forcing.Inputs, x0 dynamo.State) (*Recorder, error) {
	if n < 1 {
		return nil, fmt.Errorf("trajectory: need at least one row, got %d", n)
	}
	first, err := NewRow(t0, u0, x0)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 1, n)
	rows[0] = first
	return &Recorder{rows: rows, n: n}, nil
}

func (r *Recorder) Len() int { return len(r.rows) }

// Record appends row i. Rows must arrive in order with no gaps.
func (r *Recorder) Record(i int, t float64, u forcing.Inputs, x dynamo.State) error {
	if r.sealed {
		return ErrSealed
	}
	if i != len(r.rows) {
		return fmt.Errorf("trajectory: out-of-order row %d, expected %d", i, len(r.rows))
	}
	if i >= r.n {
		return fmt.Errorf("trajectory: row %d past capacity %d", i, r.n)
	}
	row, err := NewRow(t, u, x)
	if err != nil {
		return err
	}
	r.rows = append(r.rows, row)
	return nil
}

// Seal hands the rows over to a Trajectory. Every grid point must have been
// recorded; the recorder accepts no rows afterwards.
func (r *Recorder) Seal() (*Trajectory, error) {
	if r.sealed {
		return nil, ErrSealed
	}
	if len(r.rows) != r.n {
		return nil, fmt.Errorf("trajectory: %d of %d rows recorded", len(r.rows), r.n)
	}
	r.sealed = true
	traj := &Trajectory{rows: r.rows}
	r.rows = nil
	return traj, nil
}

// Trajectory is a sealed, read-only run record.
type Trajectory struct {
	rows []Row
}

// FromRows builds a trajectory from a copy of rows.
func FromRows(rows []Row) *Trajectory {
	return &Trajectory{rows: append([]Row(nil), rows...)}
}

func (tr *Trajectory) Len() int { return len(tr.rows) }

func (tr *Trajectory) Row(i int) Row { return tr.rows[i] }

func (tr *Trajectory) Rows() []Row {
	return append([]Row(nil), tr.rows...)
}

// Final returns the last row; ok is false for an empty trajectory.
func (tr *Trajectory) Final() (Row, bool) {
	if len(tr.rows) == 0 {
		return Row{}, false
	}
	return tr.rows[len(tr.rows)-1], true
}

func (tr *Trajectory) Times() []float64 {
	out, _ := tr.Column(ColTime)
	return out
}

func (tr *Trajectory) States() []dynamo.State {
	out := make([]dynamo.State, len(tr.rows))
	for i, r := range tr.rows {
		out[i] = r.State()
	}
	return out
}

// Column returns a fresh copy of the named series.
func (tr *Trajectory) Column(name string) ([]float64, error) {
	idx := -1
	for i, c := range columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("trajectory: unknown column %q (available: %v)", name, columns)
	}
	out := make([]float64, len(tr.rows))
	for i, r := range tr.rows {
		out[i] = r.Values()[idx]
	}
	return out, nil
}

// Matrix returns the rows as a [len][NumColumns] matrix.
func (tr *Trajectory) Matrix() [][]float64 {
	out := make([][]float64, len(tr.rows))
	for i, r := range tr.rows {
		out[i] = r.Values()
	}
	return out
}
