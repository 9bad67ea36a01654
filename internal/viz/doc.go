// Package viz renders stored tank runs in the terminal.
//
//   - [Summary]: a lipgloss panel with the initial and final state, solver
//     work and run metrics
//   - [PlotColumn] and [PlotFlows]: asciigraph line charts of trajectory
//     columns
//   - [Browser]: a Bubble Tea model for stepping through a trajectory row
//     by row
//
// # Key Bindings
//
//	←/→ h/l  - Previous/next row
//	[ ]      - Previous/next forcing switch
//	Tab      - Cycle the plotted column
//	g/G      - First/last row
//	q        - Quit
package viz
