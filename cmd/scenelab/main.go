package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/scenelab/internal/analysis"
	"github.com/san-kum/scenelab/internal/batch"
	"github.com/san-kum/scenelab/internal/config"
	"github.com/san-kum/scenelab/internal/export"
	"github.com/san-kum/scenelab/internal/sandbox"
	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/telemetry"
	"github.com/san-kum/scenelab/internal/tui"
	"github.com/san-kum/scenelab/internal/viewport"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	logFile    string
	seed       int64
	preset     string

	frames     int
	width      float64
	height     float64
	paused     bool
	spawnCount int
	live       bool
	frameRate  int
	save       bool
	asJSON     bool
	svgPath    string
	workers    int

	exportFormat string
	writeConfig  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "scenelab",
		Short:        "2d physics scene sandbox",
		SilenceUsage: true,
		RunE:         runTUI,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&dataDir, "data", "runs", "telemetry directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "write logs to this file")
	pf.Int64Var(&seed, "seed", 1, "random seed")
	pf.StringVar(&preset, "preset", "default", "seed scene preset")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene headless and summarise it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHeadless,
	}
	runCmd.Flags().IntVar(&frames, "frames", 600, "frames to play")
	runCmd.Flags().Float64Var(&width, "width", config.DefaultWidth, "container width in pixels")
	runCmd.Flags().Float64Var(&height, "height", config.DefaultHeight, "container height in pixels")
	runCmd.Flags().BoolVar(&paused, "paused", false, "leave the clock stopped")
	runCmd.Flags().IntVar(&spawnCount, "spawn", 0, "bodies to spawn under a simulated pointer before playing")
	runCmd.Flags().BoolVar(&live, "live", false, "draw frames to the terminal in real time")
	runCmd.Flags().IntVar(&frameRate, "fps", config.DefaultFPS, "frames per second")
	runCmd.Flags().BoolVar(&save, "save", false, "save telemetry under the data directory")
	runCmd.Flags().BoolVar(&asJSON, "json", false, "print telemetry as json instead of a summary")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write the last frame to this svg file")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "run every seed scene headless in parallel",
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVar(&frames, "frames", 600, "frames to play per scene")
	batchCmd.Flags().IntVar(&workers, "workers", 0, "concurrent scenes (0 uses all cpus)")
	batchCmd.Flags().BoolVar(&save, "save", false, "save telemetry of every scene")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "find the dominant period of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "csv or json")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list seed scene presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				scenes := config.GetPreset(name)
				names := make([]string, len(scenes))
				for i, sc := range scenes {
					names[i] = sc.Name
				}
				fmt.Printf("  %-10s %s\n", name, strings.Join(names, ", "))
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective config",
		RunE:  showConfig,
	}
	configCmd.Flags().StringVar(&writeConfig, "write", "", "also save the config to this path")

	rootCmd.AddCommand(runCmd, batchCmd, runsCmd, plotCmd, analyzeCmd, exportCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("preset") {
		cfg.Preset = preset
		cfg.Scenes = nil
	}
	if flags.Changed("width") {
		cfg.Viewport.Width = width
	}
	if flags.Changed("height") {
		cfg.Viewport.Height = height
	}
	if flags.Changed("fps") {
		cfg.FPS = frameRate
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the root logger. fallback receives logs when no log
// file is configured.
func newLogger(cfg *config.Config, fallback io.Writer) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	out, closeFn := fallback, func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		out, closeFn = f, func() { f.Close() }
	}
	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "scenelab",
	})
	return logger, closeFn, nil
}

func seededStore(cfg *config.Config, rng *rand.Rand) (*scene.Store, error) {
	store := scene.NewStore(rng)
	if err := cfg.SeedStore(store); err != nil {
		return nil, err
	}
	return store, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// the alt screen owns stdout, so logs go to the file or nowhere
	logger, closeLog, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	rng := rand.New(rand.NewSource(cfg.Seed))
	store, err := seededStore(cfg, rng)
	if err != nil {
		return err
	}
	return tui.Run(tui.Options{
		Store:      store,
		Session:    sandbox.OptionsFromConfig(cfg, store, rng, logger),
		FPS:        cfg.FPS,
		CellWidth:  cfg.Viewport.CellWidth,
		CellHeight: cfg.Viewport.CellHeight,
		Logger:     logger,
	})
}

// pickScene selects the scene named by arg, or by its 1-based position.
func pickScene(store *scene.Store, arg string) (scene.Scene, error) {
	scenes := store.Scenes()
	if arg == "" {
		if cur, ok := store.Current(); ok {
			return cur, nil
		}
		return scene.Scene{}, fmt.Errorf("no scenes to run")
	}
	for _, sc := range scenes {
		if strings.EqualFold(sc.Name, arg) {
			return sc, store.Select(sc.ID)
		}
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(scenes) {
		return scenes[n-1], store.Select(scenes[n-1].ID)
	}
	return scene.Scene{}, fmt.Errorf("%w: %q", scene.ErrSceneNotFound, arg)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	rng := rand.New(rand.NewSource(cfg.Seed))
	store, err := seededStore(cfg, rng)
	if err != nil {
		return err
	}
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	sc, err := pickScene(store, arg)
	if err != nil {
		return err
	}

	host := viewport.NewHost(cfg.Viewport.Width, cfg.Viewport.Height)
	s, err := sandbox.Activate(host, sc.Snapshot(), sandbox.OptionsFromConfig(cfg, store, rng, logger))
	if err != nil {
		return err
	}
	defer s.Close()

	if spawnCount > 0 {
		spawn(host, spawnCount, cfg, rng)
	}
	if !paused {
		host.Dispatch(viewport.Event{Type: viewport.KeyPress, Key: cfg.Keys.Toggle, At: time.Now()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	frameDur := time.Second / time.Duration(cfg.FPS)
	rec := telemetry.NewRecorder(0, telemetry.DefaultMetrics()...)
	rec.Observe(s.World(), 0, 0)

	var renderer *tui.LiveRenderer
	var ticker *time.Ticker
	if live {
		renderer = tui.NewLiveRenderer(os.Stdout, cfg.FPS)
		renderer.Start()
		defer renderer.Stop()
		ticker = time.NewTicker(frameDur)
		defer ticker.Stop()
	}

	started := time.Now()
	err = s.Run(ctx, frames, frameDur, func(frame int) error {
		t := float64(s.Clock().Steps()) * s.Clock().Dt()
		rec.Observe(s.World(), frame+1, t)
		if renderer != nil {
			renderer.Draw(s, frame+1, t)
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("run finished", "frames", s.Frames(), "steps", s.Clock().Steps(), "elapsed", time.Since(started).Round(time.Millisecond))

	meta := telemetry.RunMetadata{
		Scene:   sc.Name,
		Seed:    cfg.Seed,
		Dt:      s.Clock().Dt(),
		Steps:   s.Clock().Steps(),
		Width:   cfg.Viewport.Width,
		Height:  cfg.Viewport.Height,
		Metrics: rec.Metrics(),
	}
	if save {
		st := telemetry.NewStore(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(meta, rec.Frames())
		if err != nil {
			return err
		}
		meta.ID = id
		logger.Info("telemetry saved", "id", id, "dir", cfg.DataDir)
	}
	if svgPath != "" {
		if err := writeSVG(svgPath, s); err != nil {
			return err
		}
		logger.Info("frame written", "path", svgPath)
	}
	if asJSON {
		meta.Frames = len(rec.Frames())
		return telemetry.WriteJSON(os.Stdout, meta, rec.Frames())
	}
	printSummary(s, meta, rec)
	return nil
}

func writeSVG(path string, s *sandbox.Session) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteSVG(f, s.Viewport().Surface().Canvas(), 4)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := seededStore(cfg, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ens := &batch.Ensemble{
		Width:    cfg.Viewport.Width,
		Height:   cfg.Viewport.Height,
		Frames:   frames,
		FrameDur: time.Second / time.Duration(cfg.FPS),
		Workers:  workers,
		Options: func(job batch.Job, rng *rand.Rand) sandbox.Options {
			return sandbox.OptionsFromConfig(cfg, nil, rng, logger)
		},
	}
	results, err := ens.Run(ctx, batch.Jobs(store, cfg.Seed))
	if err != nil {
		return err
	}

	var st *telemetry.Store
	if save {
		st = telemetry.NewStore(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENE\tBODIES\tREMOVED\tSTEPS\tMEAN KE\tPEAK KE\tELAPSED\tRUN")
	for _, res := range results {
		id := "-"
		if st != nil {
			id, err = st.Save(telemetry.RunMetadata{
				Scene:   res.Job.Snapshot.Name,
				Seed:    res.Job.Seed,
				Dt:      cfg.Physics.Dt,
				Steps:   res.Steps,
				Width:   cfg.Viewport.Width,
				Height:  cfg.Viewport.Height,
				Metrics: res.Metrics,
			}, res.Frames)
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\t%.2f\t%s\t%s\n",
			res.Job.Snapshot.Name,
			res.Bodies,
			res.Removed,
			res.Steps,
			res.Metrics["mean_kinetic_energy"],
			res.Metrics["peak_kinetic_energy"],
			res.Elapsed.Round(time.Millisecond),
			id,
		)
	}
	return w.Flush()
}

// spawn presses the pointer, drags it across n random points and lets go.
func spawn(host *viewport.Host, n int, cfg *config.Config, rng *rand.Rand) {
	w, h := host.Measure()
	at := time.Now()
	host.Dispatch(viewport.Event{Type: viewport.PointerDown, X: w / 2, Y: h / 4, At: at})
	for i := 0; i < n; i++ {
		host.Dispatch(viewport.Event{
			Type: viewport.PointerMove,
			X:    rng.Float64() * w,
			Y:    rng.Float64() * h / 2,
			At:   at,
		})
	}
	host.Dispatch(viewport.Event{Type: viewport.PointerUp, At: at})
}

func printSummary(s *sandbox.Session, meta telemetry.RunMetadata, rec *telemetry.Recorder) {
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("frames: %d  steps: %d  dt: %.4fs\n", s.Frames(), meta.Steps, meta.Dt)
	if meta.ID != "" {
		fmt.Printf("saved: %s\n", meta.ID)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tBODIES")
	counts := map[string]int{}
	for _, b := range s.World().Bodies() {
		counts[b.Kind().String()]++
	}
	for _, k := range []string{"wall", "shape", "link", "plank", "spawned"} {
		fmt.Fprintf(w, "%s\t%d\n", k, counts[k])
	}
	fmt.Fprintf(w, "total\t%d\n", s.World().Count())
	w.Flush()
	fmt.Println()

	for _, name := range []string{"mean_kinetic_energy", "peak_kinetic_energy", "bodies_lost"} {
		fmt.Printf("%-20s %.3f\n", name, meta.Metrics[name])
	}
	if energy := rec.Energy(); len(energy) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(energy,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("kinetic energy"),
		))
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runs, err := telemetry.NewStore(cfg.DataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tFRAMES\tSTEPS\tDT\tPEAK KE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4fs\t%.2f\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Steps,
			run.Dt,
			run.Metrics["peak_kinetic_energy"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := telemetry.NewStore(cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) < 2 {
		return fmt.Errorf("run %s has too few frames to plot", args[0])
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(frames))

	series := []struct {
		caption string
		value   func(telemetry.Frame) float64
	}{
		{"kinetic energy", func(f telemetry.Frame) float64 { return f.KineticEnergy }},
		{"mean height of dynamic bodies", func(f telemetry.Frame) float64 { return f.MeanY }},
		{"bodies", func(f telemetry.Frame) float64 { return float64(f.Bodies) }},
	}
	for _, sr := range series {
		data := make([]float64, len(frames))
		for i, f := range frames {
			data[i] = sr.value(f)
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(sr.caption),
		))
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := telemetry.NewStore(cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) < 4 {
		return fmt.Errorf("run %s has too few frames to analyze", args[0])
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	dt := (frames[len(frames)-1].Time - frames[0].Time) / float64(len(frames)-1)
	series := []struct {
		name  string
		value func(telemetry.Frame) float64
	}{
		{"kinetic energy", func(f telemetry.Frame) float64 { return f.KineticEnergy }},
		{"mean height", func(f telemetry.Frame) float64 { return f.MeanY }},
	}
	for _, sr := range series {
		data := make([]float64, len(frames))
		for i, f := range frames {
			data[i] = sr.value(f)
		}
		ps := analysis.PowerSpectrum(data)
		if len(ps) > 4 {
			fmt.Println(asciigraph.Plot(ps[:len(ps)/4],
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption("power spectrum ("+sr.name+")"),
			))
		}
		if freq, ok := analysis.Dominant(data, dt); ok {
			fmt.Printf("%s: dominant %.3f hz, period %.3f s\n\n", sr.name, freq, 1/freq)
		} else {
			fmt.Printf("%s: no periodic motion\n\n", sr.name)
		}
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := telemetry.NewStore(cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	switch exportFormat {
	case "csv":
		return telemetry.WriteCSV(os.Stdout, frames)
	case "json":
		return telemetry.WriteJSON(os.Stdout, *meta, frames)
	}
	return fmt.Errorf("unknown format %q (csv, json)", exportFormat)
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if writeConfig != "" {
		if err := config.Save(writeConfig, cfg); err != nil {
			return err
		}
	}
	if len(cfg.Scenes) == 0 {
		cfg.Scenes = config.GetPreset(cfg.Preset)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
