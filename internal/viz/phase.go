package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/tanksim/internal/trajectory"
)

// PhasePortrait plots one trajectory column against another on a character
// grid. The first and last rows are marked 'o' and 'x'.
func PhasePortrait(traj *trajectory.Trajectory, xCol, yCol string, width, height int) (string, error) {
	if width < 2 || height < 2 {
		return "", fmt.Errorf("phase portrait needs at least 2x2 cells, got %dx%d", width, height)
	}
	xs, err := traj.Column(xCol)
	if err != nil {
		return "", err
	}
	ys, err := traj.Column(yCol)
	if err != nil {
		return "", err
	}
	if len(xs) == 0 {
		return "", fmt.Errorf("no data to plot")
	}

	minX, maxX := bounds(xs)
	minY, maxY := bounds(ys)

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	cell := func(x, y float64) (int, int) {
		col := int((x - minX) / (maxX - minX) * float64(width-1))
		row := height - 1 - int((y-minY)/(maxY-minY)*float64(height-1))
		return row, col
	}

	for i := range xs {
		row, col := cell(xs[i], ys[i])
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}
	row, col := cell(xs[0], ys[0])
	canvas[row][col] = 'o'
	row, col = cell(xs[len(xs)-1], ys[len(ys)-1])
	canvas[row][col] = 'x'

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s vs %s\n", Caption(yCol), Caption(xCol))
	for i, r := range canvas {
		label := "          "
		switch i {
		case 0:
			label = fmt.Sprintf("%10.4g", maxY)
		case height - 1:
			label = fmt.Sprintf("%10.4g", minY)
		}
		sb.WriteString(label)
		sb.WriteString(" │")
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	sb.WriteString(strings.Repeat(" ", 11) + "└" + strings.Repeat("─", width) + "\n")
	fmt.Fprintf(&sb, "%12s%-*.4g%.4g\n", "", max(width-10, 1), minX, maxX)
	return sb.String(), nil
}

// bounds pads the range by 10% and widens a flat series to unit width.
func bounds(v []float64) (float64, float64) {
	lo, hi := v[0], v[0]
	for _, x := range v {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}
	return lo - rng*0.1, hi + rng*0.1
}
