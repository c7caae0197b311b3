package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/furnacesim/internal/config"
	"github.com/san-kum/furnacesim/internal/experiment"
	"github.com/san-kum/furnacesim/internal/export"
	"github.com/san-kum/furnacesim/internal/material"
	"github.com/san-kum/furnacesim/internal/sim"
	"github.com/san-kum/furnacesim/internal/storage"
	"github.com/san-kum/furnacesim/internal/tui"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string
	// run flags
	configFile  string
	preset      string
	duration    float64
	cfl         float64
	dt          float64
	nr          int
	nz          int
	materialArg string
	adaptive    bool
	recordEvery int
	live        bool
	// sweep flags
	powers      []float64
	parallelism int
	// export flags
	outFile string
	// plot flags
	showField bool
	svgDir    string
)

// main registers the commands and flags and executes the root command.
// It exits with status 1 if the command returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "furnacesim",
		Short:        "transient heat transfer in a cylindrical plasma furnace",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".furnacesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "show live progress")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one simulation per torch power concurrently",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&powers, "power", nil, "torch powers in kW, applied to every torch")
	sweepCmd.Flags().IntVar(&parallelism, "parallel", 0, "concurrent runs (0 = GOMAXPROCS)")
	_ = sweepCmd.MarkFlagRequired("power")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&showField, "field", true, "also draw the final temperature field")
	plotCmd.Flags().StringVar(&svgDir, "svg", "", "also write peak and field SVGs to this directory")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	materialsCmd := &cobra.Command{
		Use:   "materials",
		Short: "list library materials",
		Args:  cobra.NoArgs,
		RunE:  listMaterials,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tMATERIAL\tTORCHES\tPOWER\tDURATION")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				total := 0.0
				for _, t := range p.Torches {
					total += t.PowerKW
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%.0f kW\t%.0fs\n", name, p.MaterialName(), len(p.Torches), total, p.Time.Duration)
			}
			return w.Flush()
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "check a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%s is invalid:\n%w", args[0], err)
			}
			fmt.Printf("%s: ok\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, sweepCmd, listCmd, plotCmd, exportJSONCmd, materialsCmd, presetsCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated duration in seconds")
	cmd.Flags().Float64Var(&cfl, "cfl", config.DefaultCFL, "fraction of the stable time step")
	cmd.Flags().Float64Var(&dt, "dt", 0, "fixed time step in seconds (0 = derive from cfl)")
	cmd.Flags().IntVar(&nr, "nr", config.DefaultNR, "radial nodes")
	cmd.Flags().IntVar(&nz, "nz", config.DefaultNZ, "axial nodes")
	cmd.Flags().StringVar(&materialArg, "material", config.DefaultMaterial, "library material")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "re-evaluate the stable step every step")
	cmd.Flags().IntVar(&recordEvery, "record-every", config.DefaultRecordEvery, "keep every n-th step")
}

// loadScenario starts from the preset or config file, if any, and applies
// the flags that were set explicitly.
func loadScenario(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.Time.Duration = duration
	}
	if flags.Changed("cfl") {
		cfg.Time.CFL = cfl
	}
	if flags.Changed("dt") {
		cfg.Time.Dt = dt
	}
	if flags.Changed("adaptive") {
		cfg.Time.Adaptive = adaptive
	}
	if flags.Changed("record-every") {
		cfg.Time.RecordEvery = recordEvery
	}
	if flags.Changed("nr") {
		cfg.Mesh.NR = nr
	}
	if flags.Changed("nz") {
		cfg.Mesh.NZ = nz
	}
	if flags.Changed("material") {
		cfg.Material = materialArg
		cfg.CustomMaterial = nil
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	name := cfg.MaterialName()
	var result *sim.Result
	var runErr error
	if live {
		title := fmt.Sprintf("%s  %dx%d", name, cfg.Mesh.NR, cfg.Mesh.NZ)
		result, runErr = tui.Run(title, cfg.Time.Duration, exp.GetSimulator().Status(), exp.Cancel,
			func() (*sim.Result, error) { return exp.Run(ctx, nil) })
	} else {
		fmt.Printf("running %s furnace (%dx%d cells, %.0fs)...\n", name, cfg.Mesh.NR, cfg.Mesh.NZ, cfg.Time.Duration)
		result, runErr = exp.Run(ctx, printProgress())
		fmt.Println()
	}
	if result == nil {
		return runErr
	}

	runID, err := st.Save(name, result)
	if err != nil {
		return err
	}
	printSummary(runID, result)
	return runErr
}

// printProgress reports every tenth of the run.
func printProgress() sim.ProgressFunc {
	next := 0.1
	return func(p sim.Progress) bool {
		if p.Fraction >= next {
			fmt.Printf("\r  %3.0f%%  t=%.1fs  step %d", 100*p.Fraction, p.Time, p.Step)
			for next <= p.Fraction {
				next += 0.1
			}
		}
		return true
	}
}

func printSummary(runID string, result *sim.Result) {
	fmt.Println(tui.Title.Render("run " + runID))
	fmt.Printf("  %s %s\n", tui.Label.Render("termination:"), result.Termination)
	fmt.Printf("  %s %d of %d\n", tui.Label.Render("steps:"), result.StepsExecuted, result.StepsPlanned)
	fmt.Printf("  %s %v\n", tui.Label.Render("wall time:"), result.ExecutionTime)
	if final, ok := result.Final(); ok {
		fmt.Printf("  %s %.2fs\n", tui.Label.Render("simulated:"), final.Time)
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	jobs := make([]sim.Job, len(powers))
	exps := make([]*experiment.Experiment, len(powers))
	for k, p := range powers {
		cfg := base.Clone()
		for i := range cfg.Torches {
			cfg.Torches[i].PowerKW = p
		}
		exps[k] = experiment.New(cfg)
		if err := exps[k].Setup(experiment.NewRegistry()); err != nil {
			return fmt.Errorf("power %g kW: %w", p, err)
		}
		jobs[k] = sim.Job{Simulator: exps[k].GetSimulator(), Config: exps[k].SimConfig()}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d simulations...\n", len(jobs))
	results, runErr := sim.NewEnsemble(parallelism).Run(ctx, jobs)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POWER\tRUN\tTERMINATION\tSTEPS\tPEAK\tMELTED")
	for k, res := range results {
		if res == nil {
			continue
		}
		runID, err := st.Save(base.MaterialName()+"_"+strconv.FormatFloat(powers[k], 'f', -1, 64)+"kw", res)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%g kW\t%s\t%s\t%d\t%.1f K\t%.3f\n",
			powers[k], runID, res.Termination, res.StepsExecuted,
			res.Metrics["peak_temperature"], res.Metrics["melted_volume"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
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
	fmt.Fprintln(w, "ID\tMATERIAL\tTIME\tMESH\tDURATION\tSTEPS\tSTATUS\tPEAK")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%.1fs\t%d\t%s\t%.1f K\n",
			run.ID,
			run.Material,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NR, run.NZ,
			run.SimulatedTime,
			run.StepsExecuted,
			run.Termination,
			run.Metrics["peak_temperature"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	h, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}
	if h.Len() < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("material: %s\n", meta.Material)
	fmt.Printf("samples: %d over %.1fs\n\n", h.Len(), meta.SimulatedTime)

	series := []struct {
		data    []float64
		caption string
	}{
		{h.PeakTemperatures, "peak temperature (K) vs frame"},
		{h.MaxMeltFraction, "max melt fraction vs frame"},
	}
	for _, s := range series {
		graph := asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if showField {
		f, err := st.LoadField(runID)
		if err != nil {
			return err
		}
		lo, hi := f.Temperature.Min(), f.Temperature.Max()
		fmt.Println(tui.Panel.Render(tui.HeatMap(f.Temperature, lo, hi, 40, 20)))
		fmt.Printf("final temperature at t=%.1fs, %.0f K (blank) to %.0f K (@), axis on the left\n", f.Time, lo, hi)
	}

	if svgDir != "" {
		return writeSVGs(st, runID, h)
	}
	return nil
}

func writeSVGs(st *storage.Store, runID string, h *storage.History) error {
	if err := os.MkdirAll(svgDir, 0755); err != nil {
		return err
	}
	peak := filepath.Join(svgDir, runID+"_peak.svg")
	if err := os.WriteFile(peak, []byte(export.SeriesToSVG(h.Times, h.PeakTemperatures, 800, 400, "#00ffff")), 0644); err != nil {
		return err
	}

	f, err := st.LoadField(runID)
	if err != nil {
		return err
	}
	field := filepath.Join(svgDir, runID+"_field.svg")
	svg := export.FieldToSVG(f.Temperature, f.Temperature.Min(), f.Temperature.Max(), 8)
	if err := os.WriteFile(field, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("\nwrote %s and %s\n", peak, field)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return storage.WriteJSON(os.Stdout, data)
	}
	return storage.ExportJSON(outFile, data)
}

func listMaterials(cmd *cobra.Command, args []string) error {
	const t = 300.0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MATERIAL\tDENSITY\tCP\tK\tALPHA\tMELTING\tVAPORIZATION")
	for _, name := range material.Names() {
		m, err := material.Lookup(name)
		if err != nil {
			return err
		}
		melt, vapor := "-", "-"
		if m.HasPhaseChange() {
			melt = fmt.Sprintf("%.0f K", m.Melting.Temperature)
		}
		if m.Vaporization != nil {
			vapor = fmt.Sprintf("%.0f K", m.Vaporization.Temperature)
		}
		fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.1f\t%.2e\t%s\t%s\n",
			name,
			m.PropertyAt(material.Density, t),
			m.PropertyAt(material.SpecificHeat, t),
			m.PropertyAt(material.ThermalConductivity, t),
			m.Diffusivity(t),
			melt, vapor,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println(tui.Label.Render("properties at 300 K; density kg/m^3, cp J/(kg K), k W/(m K), alpha m^2/s"))
	return nil
}
