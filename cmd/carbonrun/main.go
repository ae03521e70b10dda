package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/ja7ad/carbonrun/pkg/config"
	"github.com/ja7ad/carbonrun/pkg/harness"
	"github.com/ja7ad/carbonrun/pkg/summary"
	"github.com/ja7ad/carbonrun/pkg/system/util"
	"github.com/ja7ad/carbonrun/pkg/tracker"
	"github.com/ja7ad/carbonrun/pkg/workload"
)

type opts struct {
	configPath string
	verbose    bool

	// run
	task     string
	seconds  int
	mode     string
	country  string
	project  string
	output   string
	interval int
	html     bool

	// workloads
	matrixSize int
	blockSize  string

	// model
	pIdle   float64
	pMax    float64
	gamma   float64
	er      float64
	ew      float64
	eMemRef float64
	eMemRSS float64
	alpha   float64
}

func main() {
	var o opts
	root := newRootCmd(&o)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd(o *opts) *cobra.Command {
	def := config.Default()

	root := &cobra.Command{
		Use:   "carbonrun",
		Short: "Measure the energy and carbon emissions of a workload",
		Long: `carbonrun runs a cpu, io or baseline workload for a fixed time while an
emissions tracker samples the process power draw. When the run ends it reads
the tracker's emissions.csv, derives trees-equivalent and compensation hours,
and writes summary.json and summary.md into the output directory.

Settings are read from carbonrun.yaml (or --config), then .env and CARBONRUN_*
variables, then flags.

Examples:
  carbonrun --task cpu --seconds 20 --country ARG
  carbonrun --task io --mode online --output results/io --html`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, *o)
		},
	}

	f := root.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "settings file (YAML or TOML)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	f.StringVarP(&o.task, "task", "t", def.Task, "workload to run: cpu, io or baseline")
	f.IntVarP(&o.seconds, "seconds", "s", def.Seconds, "approximate workload duration in seconds")
	f.StringVarP(&o.mode, "mode", "m", def.Mode, "tracking mode: offline or online")
	f.StringVar(&o.country, "country", def.Country, "ISO-3 country code for the grid intensity (offline only)")
	f.StringVar(&o.project, "project", def.Project, "project name recorded by the tracker")
	f.StringVarP(&o.output, "output", "o", def.Output, "output directory")
	f.IntVarP(&o.interval, "interval", "i", def.Interval, "power sampling period in seconds")
	f.BoolVar(&o.html, "html", def.HTML, "also write summary.html")

	f.IntVar(&o.matrixSize, "matrix-size", def.MatrixSize, "cpu: N for the N×N matrices")
	f.StringVar(&o.blockSize, "io-block-size", def.IOBlockSize, "io: bytes per synced write (e.g. 2MB)")

	f.Float64Var(&o.pIdle, "p-idle", def.Power.PIdle, "idle power in Watts")
	f.Float64Var(&o.pMax, "p-max", def.Power.PMax, "max power in Watts at 100% utilization")
	f.Float64Var(&o.gamma, "gamma", def.Power.Gamma, "CPU nonlinearity exponent")
	f.Float64Var(&o.er, "er", def.Power.ER, "disk read energy per byte (J/B)")
	f.Float64Var(&o.ew, "ew", def.Power.EW, "disk write energy per byte (J/B)")
	f.Float64Var(&o.eMemRef, "e-mem-ref", def.Power.EMemRef, "RAM refault energy per byte (J/B)")
	f.Float64Var(&o.eMemRSS, "e-mem-rss", def.Power.EMemRSS, "RAM RSS churn energy per byte (J/B)")
	f.Float64Var(&o.alpha, "alpha", def.Power.Alpha, "fraction of idle to charge proportionally [0..1]")
	return root
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

// settings merges defaults, file, environment and the flags the user set.
func settings(cmd *cobra.Command, o opts) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(""); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := config.ApplyEnv(cfg, nil); err != nil {
		return nil, err
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("task", func() { cfg.Task = o.task })
	set("seconds", func() { cfg.Seconds = o.seconds })
	set("mode", func() { cfg.Mode = o.mode })
	set("country", func() { cfg.Country = o.country })
	set("project", func() { cfg.Project = o.project })
	set("output", func() { cfg.Output = o.output })
	set("interval", func() { cfg.Interval = o.interval })
	set("html", func() { cfg.HTML = o.html })
	set("matrix-size", func() { cfg.MatrixSize = o.matrixSize })
	set("io-block-size", func() { cfg.IOBlockSize = o.blockSize })
	set("p-idle", func() { cfg.Power.PIdle = o.pIdle })
	set("p-max", func() { cfg.Power.PMax = o.pMax })
	set("gamma", func() { cfg.Power.Gamma = o.gamma })
	set("er", func() { cfg.Power.ER = o.er })
	set("ew", func() { cfg.Power.EW = o.ew })
	set("e-mem-ref", func() { cfg.Power.EMemRef = o.eMemRef })
	set("e-mem-rss", func() { cfg.Power.EMemRSS = o.eMemRSS })
	set("alpha", func() { cfg.Power.Alpha = o.alpha })
	return cfg, nil
}

// request turns settings into a validated run request.
func request(cfg *config.Config) (harness.Request, error) {
	task, err := workload.ParseKind(cfg.Task)
	if err != nil {
		return harness.Request{}, err
	}
	mode, err := tracker.ParseMode(cfg.Mode)
	if err != nil {
		return harness.Request{}, err
	}
	if cfg.Power.Alpha < 0 || cfg.Power.Alpha > 1 {
		return harness.Request{}, fmt.Errorf("%w: alpha must be in [0,1]", config.ErrInvalid)
	}
	req := harness.Request{
		Task:      task,
		Seconds:   cfg.Seconds,
		Mode:      mode,
		Country:   cfg.Country,
		Project:   cfg.Project,
		OutputDir: cfg.Output,
		Interval:  cfg.Interval,
	}
	return req, req.Validate()
}

func run(ctx context.Context, cmd *cobra.Command, o opts) error {
	log := newLogger(o.verbose)
	slog.SetDefault(log)

	cfg, err := settings(cmd, o)
	if err != nil {
		return err
	}
	if cfg.Source != "" {
		log.Debug("settings loaded", "file", cfg.Source)
	}
	req, err := request(cfg)
	if err != nil {
		return err
	}
	block, err := cfg.BlockSize()
	if err != nil {
		return err
	}

	fmt.Printf(_console, req.Task, req.Mode, req.Seconds, req.Interval, req.OutputDir,
		time.Now().Format("2006-01-02 15:04:05"))

	res, err := harness.Run(ctx, req, harness.Options{
		Workloads: workload.Options{MatrixSize: cfg.MatrixSize, BlockSize: block.ToUint64()},
		Power:     cfg.Power,
		GeoURL:    cfg.GeoURL,
		HTML:      cfg.HTML,
		Logger:    log,
	})
	if res != nil {
		printResult(os.Stdout, res)
	}
	return err
}

func printResult(w io.Writer, res *harness.Result) {
	s := res.Summary

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tPOWER (W)\tENERGY (kWh)")
	fmt.Fprintln(tw, "---------\t---------\t------------")
	for _, c := range []struct{ name, power, energy string }{
		{"cpu", "cpu_power", "cpu_energy"},
		{"gpu", "gpu_power", "gpu_energy"},
		{"ram", "ram_power", "ram_energy"},
	} {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.name, cell(s, c.power), cell(s, c.energy))
	}
	fmt.Fprintf(tw, "total\t-\t%s\n", cell(s, "energy_consumed"))
	tw.Flush()
	fmt.Fprintln(w)

	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	warn := color.New(color.FgYellow, color.Bold).SprintFunc()

	emissions := "?"
	if s.EmissionsKg != nil {
		emissions = util.FmtFloat(*s.EmissionsKg)
	}
	fmt.Fprintf(w, "%s Done. Emissions (kg CO2eq): %s\n", ok("[OK]"), emissions)
	if s.TreesNeededPerYearEquiv != nil {
		fmt.Fprintf(w, "%s Trees needed (per year): %s\n", ok("[OK]"), util.FmtFloat(*s.TreesNeededPerYearEquiv))
	}
	if s.Error != "" {
		fmt.Fprintf(w, "%s Workload error: %s\n", warn("[WARN]"), s.Error)
	}
	for _, p := range res.Artifacts.Paths() {
		fmt.Fprintf(w, "%s Summary: %s\n", ok("[OK]"), p)
	}
	fmt.Fprintf(w, "%s Detailed CSV: %s\n", ok("[OK]"), s.OutputCSV)
}

func cell(s *summary.Summary, key string) string {
	v, ok := s.Sampled(key)
	if !ok {
		return "-"
	}
	return util.FmtFloat(v)
}

const _console = `carbonrun - workload energy and emissions measurement

       Task: %s
       Mode: %s
       Seconds: %d (sampling every %ds)
       Output: %s

Measurement started at %s:

`
