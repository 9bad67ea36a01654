package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/tanksim/internal/trajectory"
)

var captions = map[string]string{
	trajectory.ColInletFlow:         "qf inlet flow (L/min)",
	trajectory.ColOutletFlow:        "q outlet flow (L/min)",
	trajectory.ColFeedTemperature:   "Tf feed temperature (K)",
	trajectory.ColFeedConcentration: "Caf feed concentration (mol/L)",
	trajectory.ColVolume:            "V volume (L)",
	trajectory.ColConcentration:     "Ca concentration (mol/L)",
	trajectory.ColTemperature:       "T temperature (K)",
}

func Caption(column string) string {
	if c, ok := captions[column]; ok {
		return c
	}
	return column
}

// PlotColumn draws one trajectory column against the row index.
func PlotColumn(traj *trajectory.Trajectory, column string, width, height int) (string, error) {
	data, err := traj.Column(column)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no data to plot")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(Caption(column)),
	), nil
}

// PlotFlows overlays inlet and outlet flow.
func PlotFlows(traj *trajectory.Trajectory, width, height int) (string, error) {
	qf, err := traj.Column(trajectory.ColInletFlow)
	if err != nil {
		return "", err
	}
	q, err := traj.Column(trajectory.ColOutletFlow)
	if err != nil {
		return "", err
	}
	if len(qf) == 0 {
		return "", fmt.Errorf("no data to plot")
	}
	return asciigraph.PlotMany([][]float64{qf, q},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Cyan),
		asciigraph.Caption("qf (blue) and q (cyan), L/min"),
	), nil
}
