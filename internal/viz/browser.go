package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/tanksim/internal/trajectory"
)

var plotColumns = []string{
	trajectory.ColVolume,
	trajectory.ColConcentration,
	trajectory.ColTemperature,
	trajectory.ColInletFlow,
	trajectory.ColFeedConcentration,
	trajectory.ColFeedTemperature,
}

// Browser steps through a stored trajectory one row at a time.
type Browser struct {
	title    string
	traj     *trajectory.Trajectory
	switches []int
	cursor   int
	column   int
	width    int
	height   int
}

func NewBrowser(title string, traj *trajectory.Trajectory) Browser {
	return Browser{
		title:    title,
		traj:     traj,
		switches: forcingSwitches(traj),
		width:    80,
		height:   24,
	}
}

// forcingSwitches lists the rows whose inputs differ from the row before.
func forcingSwitches(traj *trajectory.Trajectory) []int {
	var out []int
	for i := 1; i < traj.Len(); i++ {
		if traj.Row(i).Inputs() != traj.Row(i-1).Inputs() {
			out = append(out, i)
		}
	}
	return out
}

func (m Browser) Cursor() int    { return m.cursor }
func (m Browser) Column() string { return plotColumns[m.column] }

func (m Browser) Init() tea.Cmd { return nil }

func (m Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		last := m.traj.Len() - 1
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l":
			m.cursor = min(m.cursor+1, last)
		case "left", "h":
			m.cursor = max(m.cursor-1, 0)
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			m.cursor = max(last, 0)
		case "]":
			for _, s := range m.switches {
				if s > m.cursor {
					m.cursor = s
					break
				}
			}
		case "[":
			for i := len(m.switches) - 1; i >= 0; i-- {
				if m.switches[i] < m.cursor {
					m.cursor = m.switches[i]
					break
				}
			}
		case "tab":
			m.column = (m.column + 1) % len(plotColumns)
		case "shift+tab":
			m.column = (m.column + len(plotColumns) - 1) % len(plotColumns)
		}
	}
	return m, nil
}

func (m Browser) View() string {
	if m.traj.Len() == 0 {
		return "empty trajectory\n"
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(m.title))
	b.WriteString("\n\n")

	plotWidth := max(m.width-12, 20)
	plotHeight := max(m.height-16, 5)
	graph, err := PlotColumn(m.traj, m.Column(), plotWidth, plotHeight)
	if err != nil {
		b.WriteString(StatusFailed.Render(err.Error()))
	} else {
		b.WriteString(graph)
	}
	b.WriteString("\n\n")

	row := m.traj.Row(m.cursor)
	position := fmt.Sprintf("row %d/%d  t=%.4f min", m.cursor, m.traj.Len()-1, row.T)
	if m.isSwitch(m.cursor) {
		position += "  " + Highlight.Render("forcing switch")
	}
	b.WriteString(Title.Render(position))
	b.WriteString("\n")

	for i, name := range trajectory.Columns()[1:] {
		style := Subtle
		if name == m.Column() {
			style = Highlight
		}
		label := style.Render(fmt.Sprintf("%-32s", Caption(name)))
		value := MetricValue.Render(fmt.Sprintf("%.6g", row.Values()[i+1]))
		b.WriteString(label + value + "\n")
	}

	b.WriteString("\n")
	b.WriteString(KeyHint.Render("←/→ row  [ ] switch  tab column  g/G ends  q quit"))
	return b.String()
}

func (m Browser) isSwitch(i int) bool {
	for _, s := range m.switches {
		if s == i {
			return true
		}
	}
	return false
}

// RunBrowser opens the browser full screen and blocks until it quits.
func RunBrowser(title string, traj *trajectory.Trajectory) error {
	p := tea.NewProgram(NewBrowser(title, traj), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
