package export

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/san-kum/tanksim/internal/trajectory"
)

// WriteChartSVG renders the same grid as WriteChartPNG as scalable vector
// graphics.
func WriteChartSVG(w io.Writer, traj *trajectory.Trajectory, widthIn, heightIn float64) error {
	c := vgsvg.New(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch)
	if err := drawGrid(draw.New(c), traj); err != nil {
		return err
	}
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("export: cannot write svg: %w", err)
	}
	return nil
}

func SaveChartSVG(path string, traj *trajectory.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: cannot create svg: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := WriteChartSVG(bw, traj, 12, 9); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
