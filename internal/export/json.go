package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/tanksim/internal/trajectory"
)

type Document struct {
	ID      string             `json:"id,omitempty"`
	Solver  string             `json:"solver"`
	Points  int                `json:"points"`
	Columns []string           `json:"columns"`
	Initial [3]float64         `json:"initial"`
	Final   [3]float64         `json:"final"`
	Rows    []trajectory.Row   `json:"rows"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

func NewDocument(id, solver string, traj *trajectory.Trajectory, metrics map[string]float64) Document {
	doc := Document{
		ID:      id,
		Solver:  solver,
		Points:  traj.Len(),
		Columns: trajectory.Columns(),
		Rows:    traj.Rows(),
		Metrics: metrics,
	}
	if traj.Len() > 0 {
		first := traj.Row(0)
		doc.Initial = [3]float64{first.Volume, first.Concentration, first.Temperature}
		last, _ := traj.Final()
		doc.Final = [3]float64{last.Volume, last.Concentration, last.Temperature}
	}
	return doc
}

func WriteJSON(w io.Writer, doc Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func SaveJSON(path string, doc Document) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, doc)
}
