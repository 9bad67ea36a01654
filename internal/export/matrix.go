package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/tanksim/internal/trajectory"
)

// MatrixFile is the conventional name of a stored result matrix.
const MatrixFile = "dado.txt"

// WriteMatrix writes one comma-separated line per row in column order
// t, qf, q, Tf, Caf, V, Ca, T. There is no header. Values use 18 digits in
// exponent form so every float64 reads back exactly.
func WriteMatrix(w io.Writer, traj *trajectory.Trajectory) error {
	cw := csv.NewWriter(w)
	record := make([]string, trajectory.NumColumns)
	for i := 0; i < traj.Len(); i++ {
		for j, v := range traj.Row(i).Values() {
			record[j] = strconv.FormatFloat(v, 'e', 18, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMatrix parses the output of WriteMatrix. Blank lines are skipped;
// every other line must hold exactly NumColumns numbers.
func ReadMatrix(r io.Reader) (*trajectory.Trajectory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = trajectory.NumColumns
	cr.TrimLeadingSpace = true

	var rows []trajectory.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}

		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				line, _ := cr.FieldPos(j)
				return nil, fmt.Errorf("export: line %d column %s: %w", line, trajectory.Columns()[j], err)
			}
			values[j] = v
		}
		row, err := trajectory.RowFromValues(values)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return trajectory.FromRows(rows), nil
}

func SaveMatrix(path string, traj *trajectory.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := WriteMatrix(bw, traj); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func LoadMatrix(path string) (*trajectory.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMatrix(bufio.NewReader(f))
}
