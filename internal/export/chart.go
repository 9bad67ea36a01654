package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/tanksim/internal/trajectory"
)

var (
	blue  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	red   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	black = color.RGBA{A: 255}
)

type series struct {
	column string
	legend string
	color  color.Color
	dashes []vg.Length
}

type panel struct {
	ylabel string
	series []series
}

var (
	dashed = []vg.Length{vg.Points(6), vg.Points(3)}
	dotted = []vg.Length{vg.Points(1.5), vg.Points(3)}
)

// Inputs on the left, states on the right.
var layout = [3][2]panel{
	{
		{ylabel: "Flow (L/min)", series: []series{
			{trajectory.ColInletFlow, "Inlet", blue, dashed},
			{trajectory.ColOutletFlow, "Outlet", blue, dotted},
		}},
		{ylabel: "Volume (L)", series: []series{{trajectory.ColVolume, "Volume", blue, nil}}},
	},
	{
		{ylabel: "Caf (mol/L)", series: []series{{trajectory.ColFeedConcentration, "Feed concentration", red, dashed}}},
		{ylabel: "Ca (mol/L)", series: []series{{trajectory.ColConcentration, "Concentration", red, nil}}},
	},
	{
		{ylabel: "Tf (K)", series: []series{{trajectory.ColFeedTemperature, "Feed temperature", black, dashed}}},
		{ylabel: "T (K)", series: []series{{trajectory.ColTemperature, "Temperature", black, nil}}},
	},
}

// ChartPlots builds the 3x2 grid of input and state plots.
func ChartPlots(traj *trajectory.Trajectory) ([][]*plot.Plot, error) {
	if traj.Len() < 2 {
		return nil, fmt.Errorf("export: need at least 2 rows to chart, got %d", traj.Len())
	}
	times := traj.Times()

	plots := make([][]*plot.Plot, len(layout))
	for r, row := range layout {
		plots[r] = make([]*plot.Plot, len(row))
		for c, pn := range row {
			p := plot.New()
			p.Y.Label.Text = pn.ylabel
			if r == len(layout)-1 {
				p.X.Label.Text = "Time (min)"
			}
			p.Legend.Top = true

			for _, s := range pn.series {
				ys, err := traj.Column(s.column)
				if err != nil {
					return nil, err
				}
				pts := make(plotter.XYs, len(times))
				for i := range times {
					pts[i].X = times[i]
					pts[i].Y = ys[i]
				}
				line, err := plotter.NewLine(pts)
				if err != nil {
					return nil, err
				}
				line.LineStyle.Width = vg.Points(2)
				line.LineStyle.Color = s.color
				line.LineStyle.Dashes = s.dashes
				p.Add(line)
				p.Legend.Add(s.legend, line)
			}
			plots[r][c] = p
		}
	}
	return plots, nil
}

// drawGrid lays the chart grid out on dc.
func drawGrid(dc draw.Canvas, traj *trajectory.Trajectory) error {
	plots, err := ChartPlots(traj)
	if err != nil {
		return err
	}

	tiles := draw.Tiles{
		Rows:      len(layout),
		Cols:      len(layout[0]),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c := range plots[r] {
			plots[r][c].Draw(canvases[r][c])
		}
	}
	return nil
}

// WriteChartPNG renders the chart grid as a PNG of the given size in inches.
func WriteChartPNG(w io.Writer, traj *trajectory.Trajectory, widthIn, heightIn float64) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(96),
	)
	if err := drawGrid(draw.New(c), traj); err != nil {
		return err
	}

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("export: cannot write png: %w", err)
	}
	return nil
}

func SaveChartPNG(path string, traj *trajectory.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := WriteChartPNG(bw, traj, 12, 9); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
