package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/experiment"
	"github.com/san-kum/tanksim/internal/export"
	"github.com/san-kum/tanksim/internal/sim"
	"github.com/san-kum/tanksim/internal/storage"
	"github.com/san-kum/tanksim/internal/trajectory"
	"github.com/san-kum/tanksim/internal/viz"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	configFile    string
	preset        string
	volume        float64
	concentration float64
	temperature   float64
	prompt        bool
	solverName    string
	rtol          float64
	atol          float64
	maxSteps      int
	outPath       string
	saveConfig    string
	jsonOut       string

	plotWidth  int
	plotHeight int
	chartOut   string
	xAxis      string
	yAxis      string
	phaseW     int
	phaseH     int
)

// stageError tags a failure with the stage it happened in.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stage(name string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: name, err: err}
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "tanksim",
		Short:        "stirred tank reactor simulator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tanksim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate the tank and store the run",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&prompt, "prompt", false, "ask for the initial conditions interactively")
	runCmd.Flags().StringVar(&outPath, "out", "", "also write the result matrix to this path")
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the effective configuration to this yaml file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot of two columns",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xAxis, "x-axis", trajectory.ColVolume, "column for the x-axis")
	phaseCmd.Flags().StringVar(&yAxis, "y-axis", trajectory.ColConcentration, "column for the y-axis")
	phaseCmd.Flags().IntVar(&phaseW, "width", 60, "plot width")
	phaseCmd.Flags().IntVar(&phaseH, "height", 20, "plot height")

	chartCmd := &cobra.Command{
		Use:   "chart [run_id]",
		Short: "render the run as a png or svg chart",
		Args:  cobra.ExactArgs(1),
		RunE:  chartRun,
	}
	chartCmd.Flags().StringVar(&chartOut, "out", "", "output file (.png or .svg), default <run_id>.png")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a run row by row",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write the result matrix to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write the run as json to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&jsonOut, "out", "", "write to this file instead of stdout")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				fmt.Fprintf(w, "%s\t%s\n", name, config.GetPreset(name).Description)
			}
			return w.Flush()
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [solver...]",
		Short: "run the same configuration with several solvers",
		RunE:  compareSolvers,
	}
	addConfigFlags(compareCmd)

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, phaseCmd, chartCmd, viewCmd, exportCSVCmd, exportJSONCmd, presetsCmd, compareCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&volume, "volume", config.DefaultVolume, "initial volume V0 (L)")
	cmd.Flags().Float64Var(&concentration, "concentration", config.DefaultConcentration, "initial concentration Ca0 (mol/L)")
	cmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "initial temperature T0 (K)")
	cmd.Flags().StringVar(&solverName, "solver", config.DefaultMethod, "solver backend (rk45, rk4, euler)")
	cmd.Flags().Float64Var(&rtol, "rtol", 0, "relative tolerance")
	cmd.Flags().Float64Var(&atol, "atol", 0, "absolute tolerance")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "attempt budget per grid interval")
}

// loadConfig builds the run configuration: preset, then config file, then
// any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("volume") {
		cfg.Initial.Volume = volume
	}
	if flags.Changed("concentration") {
		cfg.Initial.Concentration = concentration
	}
	if flags.Changed("temperature") {
		cfg.Initial.Temperature = temperature
	}
	if flags.Changed("solver") {
		cfg.Solver.Method = solverName
	}
	if flags.Changed("rtol") {
		cfg.Solver.Rtol = rtol
	}
	if flags.Changed("atol") {
		cfg.Solver.Atol = atol
	}
	if flags.Changed("max-steps") {
		cfg.Solver.MaxSteps = maxSteps
	}

	if prompt {
		initial, err := promptInitial(cfg.Initial)
		if err != nil {
			return nil, err
		}
		cfg.Initial = initial
	}

	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return stage("parse", err)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return stage("save", err)
	}

	exp := experiment.New(cfg, logger)
	if err := exp.Setup(); err != nil {
		return stage("parse", err)
	}

	if verbose {
		exp.GetSimulator().AddObserver(&stepLogger{logger: logger, every: 10})
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s on %d points...\n", cfg.Solver.Method, cfg.Grid.Points)
	result, err := exp.Run(ctx)
	if err != nil {
		var simErr *dynamo.SimulationError
		if errors.As(err, &simErr) {
			logger.Error("simulation failed",
				zap.Int("step", simErr.Step),
				zap.Float64("t", simErr.Time),
				zap.Float64s("state", simErr.State),
				zap.Error(simErr.Wrapped))
		}
		return stage("simulate", err)
	}

	runID, err := st.Save(storage.RunMetadata{
		Preset:  preset,
		Solver:  cfg.Solver.Method,
		Config:  exp.Config(),
		Stats:   result.Stats,
		Elapsed: result.Elapsed,
		Metrics: result.Metrics,
	}, result.Trajectory)
	if err != nil {
		return stage("save", err)
	}

	if saveConfig != "" {
		if err := config.Save(saveConfig, exp.Config()); err != nil {
			return stage("save", err)
		}
		fmt.Printf("wrote %s\n", saveConfig)
	}

	if outPath != "" {
		if err := export.SaveMatrix(outPath, result.Trajectory); err != nil {
			return stage("save", err)
		}
		fmt.Printf("wrote %s\n", outPath)
	}

	fmt.Printf("%s in %v, stored under %s\n", viz.StatusOK.Render("completed"), result.Elapsed, filepath.Join(st.Dir(), runID))
	fmt.Println(summaryOf(runID, cfg.Solver.Method, result.Trajectory, result.Stats, result.Metrics).Render())
	return nil
}

// stepLogger logs every n-th recorded grid point at debug level.
type stepLogger struct {
	logger *zap.Logger
	every  int
	n      int
}

func (s *stepLogger) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	if s.n%s.every == 0 {
		s.logger.Debug("grid point",
			zap.Int("index", s.n),
			zap.Float64("t", t),
			zap.Float64s("x", x),
			zap.Float64s("u", u))
	}
	s.n++
}

func summaryOf(id, solver string, traj *trajectory.Trajectory, stats dynamo.Stats, metrics map[string]float64) viz.Summary {
	s := viz.Summary{
		ID:          id,
		Solver:      solver,
		Points:      traj.Len(),
		Steps:       stats.Steps,
		Rejected:    stats.Rejected,
		Evaluations: stats.Evaluations,
		Metrics:     metrics,
	}
	if traj.Len() > 0 {
		first := traj.Row(0)
		last, _ := traj.Final()
		s.Initial = [3]float64{first.Volume, first.Concentration, first.Temperature}
		s.Final = [3]float64{last.Volume, last.Concentration, last.Temperature}
	}
	return s
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPRESET\tSOLVER\tPOINTS\tSTEPS\tEVALS")

	for _, run := range runs {
		p := run.Preset
		if p == "" {
			p = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID[:8],
			run.Timestamp.Format("2006-01-02 15:04:05"),
			p,
			run.Solver,
			run.Points,
			run.Stats.Steps,
			run.Stats.Evaluations,
		)
	}

	return w.Flush()
}

func loadRun(prefix string) (*storage.RunMetadata, *trajectory.Trajectory, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(prefix)
	if err != nil {
		return nil, nil, err
	}
	traj, err := st.LoadTrajectory(meta.ID)
	if err != nil {
		return nil, nil, err
	}
	if traj.Len() == 0 {
		return nil, nil, fmt.Errorf("run %s has no data", meta.ID)
	}
	return meta, traj, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	fmt.Println(summaryOf(meta.ID, meta.Solver, traj, meta.Stats, meta.Metrics).Render())
	if meta.Config != nil && meta.Config.Description != "" {
		fmt.Println(viz.Subtle.Render(meta.Config.Description))
	}

	fmt.Println(viz.Separator(60))
	for _, col := range []string{trajectory.ColVolume, trajectory.ColConcentration, trajectory.ColTemperature} {
		data, err := traj.Column(col)
		if err != nil {
			return err
		}
		fmt.Printf("%-4s %s\n", col, viz.SparklineChart(data, 50))
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("solver: %s\n", meta.Solver)
	fmt.Printf("samples: %d\n\n", traj.Len())

	for _, col := range []string{trajectory.ColVolume, trajectory.ColConcentration, trajectory.ColTemperature} {
		graph, err := viz.PlotColumn(traj, col, plotWidth, plotHeight)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}

	graph, err := viz.PlotFlows(traj, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Println(graph)
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("phase space plot: %s\n\n", meta.ID)
	out, err := viz.PhasePortrait(traj, xAxis, yAxis, phaseW, phaseH)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func chartRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}

	out := chartOut
	if out == "" {
		out = meta.ID + ".png"
	}

	switch strings.ToLower(filepath.Ext(out)) {
	case ".png":
		err = export.SaveChartPNG(out, traj)
	case ".svg":
		err = export.SaveChartSVG(out, traj)
	default:
		return fmt.Errorf("unsupported chart format: %s (use .png or .svg)", out)
	}
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", out)
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	title := fmt.Sprintf("tanksim %s (%s)", meta.ID[:8], meta.Solver)
	return viz.RunBrowser(title, traj)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return export.WriteMatrix(os.Stdout, traj)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	doc := export.NewDocument(meta.ID, meta.Solver, traj, meta.Metrics)
	if jsonOut != "" {
		if err := export.SaveJSON(jsonOut, doc); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", jsonOut)
		return nil
	}
	return export.WriteJSON(os.Stdout, doc)
}

func compareSolvers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return stage("parse", err)
	}

	exp := experiment.New(cfg, logger)
	if err := exp.Setup(); err != nil {
		return stage("parse", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	outcomes, err := exp.Compare(ctx, args)
	if err != nil {
		return stage("parse", err)
	}

	fmt.Printf("comparing %d solvers on %d points\n\n", len(outcomes), cfg.Grid.Points)
	printComparison(outcomes)
	return nil
}

func printComparison(outcomes []sim.Outcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOLVER\tV\tCa\tT\tSTEPS\tREJECTED\tEVALS\tTIME")

	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%s\t%s\n", o.Name, viz.StatusFailed.Render(o.Err.Error()))
			continue
		}
		last, _ := o.Result.Trajectory.Final()
		fmt.Fprintf(w, "%s\t%.8f\t%.8f\t%.6f\t%d\t%d\t%d\t%v\n",
			o.Name,
			last.Volume,
			last.Concentration,
			last.Temperature,
			o.Result.Stats.Steps,
			o.Result.Stats.Rejected,
			o.Result.Stats.Evaluations,
			o.Result.Elapsed,
		)
	}
	w.Flush()
}
