package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/forcing"
	"github.com/san-kum/tanksim/internal/trajectory"
)

func testTrajectory(t *testing.T) *trajectory.Trajectory {
	t.Helper()
	sched, err := forcing.Reference(100)
	if err != nil {
		t.Fatal(err)
	}
	u, _ := sched.At(0)
	rec, err := trajectory.NewRecorder(100, 0, u, dynamo.State{1, 0.5, 350})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < 100; i++ {
		u, _ := sched.At(i)
		ti := float64(i) * 10 / 99
		if err := rec.Record(i, ti, u, dynamo.State{1 + 0.2*ti, 0.5, 350 - ti}); err != nil {
			t.Fatal(err)
		}
	}
	traj, err := rec.Seal()
	if err != nil {
		t.Fatal(err)
	}
	return traj
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Browser, keys ...string) Browser {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Browser)
	}
	return m
}

func TestBrowserNavigation(t *testing.T) {
	m := NewBrowser("test", testTrajectory(t))

	m = press(m, "left")
	if m.Cursor() != 0 {
		t.Errorf("cursor moved before row 0: %d", m.Cursor())
	}
	m = press(m, "right", "l", "right")
	if m.Cursor() != 3 {
		t.Errorf("expected cursor 3, got %d", m.Cursor())
	}
	m = press(m, "G")
	if m.Cursor() != 99 {
		t.Errorf("expected last row, got %d", m.Cursor())
	}
	m = press(m, "right")
	if m.Cursor() != 99 {
		t.Errorf("cursor moved past the end: %d", m.Cursor())
	}
	m = press(m, "g")
	if m.Cursor() != 0 {
		t.Errorf("expected first row, got %d", m.Cursor())
	}
}

func TestBrowserJumpsBetweenSwitches(t *testing.T) {
	m := NewBrowser("test", testTrajectory(t))

	want := []int{30, 50, 70, 70}
	for i, w := range want {
		m = press(m, "]")
		if m.Cursor() != w {
			t.Errorf("jump %d: expected row %d, got %d", i, w, m.Cursor())
		}
	}
	m = press(m, "[", "[")
	if m.Cursor() != 30 {
		t.Errorf("expected row 30 after jumping back twice, got %d", m.Cursor())
	}
}

func TestBrowserColumnCycle(t *testing.T) {
	m := NewBrowser("test", testTrajectory(t))
	if m.Column() != trajectory.ColVolume {
		t.Fatalf("expected V first, got %s", m.Column())
	}
	m = press(m, "tab")
	if m.Column() != trajectory.ColConcentration {
		t.Errorf("expected Ca after tab, got %s", m.Column())
	}
	for i := 0; i < len(plotColumns)-1; i++ {
		m = press(m, "tab")
	}
	if m.Column() != trajectory.ColVolume {
		t.Errorf("expected wrap back to V, got %s", m.Column())
	}
}

func TestBrowserView(t *testing.T) {
	m := press(NewBrowser("reference", testTrajectory(t)), "]")
	view := m.View()
	for _, want := range []string{"reference", "row 30/99", "forcing switch", "V volume (L)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Error("expected quit command")
	}
	_ = next
}

func TestPlotColumn(t *testing.T) {
	traj := testTrajectory(t)
	out, err := PlotColumn(traj, trajectory.ColTemperature, 60, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "T temperature (K)") {
		t.Error("plot missing caption")
	}
	if _, err := PlotColumn(traj, "P", 60, 8); err == nil {
		t.Error("expected error for unknown column")
	}
	if _, err := PlotFlows(traj, 60, 8); err != nil {
		t.Errorf("PlotFlows: %v", err)
	}
}

func TestSummaryRender(t *testing.T) {
	s := Summary{
		ID:          "abc",
		Solver:      "rk45",
		Points:      100,
		Initial:     [3]float64{1, 0.5, 350},
		Final:       [3]float64{2.5, 0.5, 325},
		Evaluations: 1234,
		Metrics:     map[string]float64{"min_volume": 1},
	}
	out := s.Render()
	for _, want := range []string{"abc", "rk45", "1234", "min_volume", "2.5000 L"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestSparklineChart(t *testing.T) {
	if got := SparklineChart(nil, 5); got != "─────" {
		t.Errorf("empty sparkline = %q", got)
	}
	out := SparklineChart([]float64{0, 1, 2, 3}, 10)
	if n := strings.Count(out, "▁") + strings.Count(out, "█"); n < 2 {
		t.Errorf("expected both extremes in %q", out)
	}
}

func TestPhasePortrait(t *testing.T) {
	traj := testTrajectory(t)
	out, err := PhasePortrait(traj, trajectory.ColVolume, trajectory.ColTemperature, 40, 12)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "T temperature (K) vs V volume (L)") {
		t.Errorf("missing title in\n%s", out)
	}
	// V rises while T falls, so the run starts top left and ends bottom right.
	canvas := strings.Split(out, "\n")[1:13]
	start, end := -1, -1
	for i, line := range canvas {
		if strings.ContainsRune(line, 'o') {
			start = i
		}
		if strings.ContainsRune(line, 'x') {
			end = i
		}
	}
	if start < 0 || start > 5 {
		t.Errorf("start marker in canvas row %d, want the upper half", start)
	}
	if end != 11 {
		t.Errorf("end marker in canvas row %d, want the bottom row", end)
	}

	if _, err := PhasePortrait(traj, "V", "bogus", 40, 12); err == nil {
		t.Error("expected error for unknown column")
	}
	if _, err := PhasePortrait(traj, "V", "T", 1, 12); err == nil {
		t.Error("expected error for a degenerate canvas")
	}
}
