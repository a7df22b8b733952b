// Command backtest runs the rolling-block comparison on an enriched demand
// dataset and prints, exports and plots the result tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"demandlab/pkg/config"
	"demandlab/pkg/data"
	"demandlab/pkg/logging"
	"demandlab/pkg/pipeline"
	"demandlab/pkg/plotting"
	"demandlab/pkg/report"
)

type options struct {
	configPath string
	input      string
	sheet      string
	out        string
	plots      bool
	models     string
	blocks     int
	testSize   int
	seed       int64
	trees      int
	workers    int
	asJSON     bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to YAML config (default: ./demandlab.yaml if present)")
	flag.StringVar(&o.input, "input", "", "Enriched dataset (.csv or .xlsx); overrides data.path")
	flag.StringVar(&o.sheet, "sheet", "", "XLSX sheet name; overrides data.sheet")
	flag.StringVar(&o.out, "out", "", "Directory for CSV/JSON exports; overrides output.dir")
	flag.BoolVar(&o.plots, "plots", false, "Write PNG charts into <out>/plots")
	flag.StringVar(&o.models, "models", "", "Comma-separated model set in comparison order")
	flag.IntVar(&o.blocks, "blocks", 0, "Number of blocks")
	flag.IntVar(&o.testSize, "test-size", 0, "Test rows per block")
	flag.Int64Var(&o.seed, "seed", 0, "Random forest seed")
	flag.IntVar(&o.trees, "trees", 0, "Random forest tree count")
	flag.IntVar(&o.workers, "workers", 0, "Concurrent (block, model) pairs; 0 = GOMAXPROCS")
	flag.BoolVar(&o.asJSON, "json", false, "Print the full report as JSON instead of tables")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, set, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "backtest:", err)
		if pipeline.IsFatal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, set map[string]bool, stdout, stderr io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, o, set)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Data.Path == "" {
		return fmt.Errorf("no dataset: set -input, data.path or DEMANDLAB_DATA_PATH")
	}

	runID := uuid.NewString()
	logger := logging.New(cfg.Logging, stderr).With(slog.String("run_id", runID))

	loadOpts, err := cfg.Data.LoadOptions()
	if err != nil {
		return err
	}
	frame, err := data.Load(cfg.Data.Path, loadOpts)
	if err != nil {
		return fmt.Errorf("load %s: %w", cfg.Data.Path, err)
	}
	logger.Info("dataset loaded", slog.String("path", cfg.Data.Path), slog.Int("rows", frame.Len()), slog.Any("columns", frame.Names()))

	res, err := pipeline.New(frame, pipeline.FromConfig(cfg.Backtest), pipeline.WithLogger(logger)).Run(ctx)
	if err != nil {
		return err
	}
	rep := report.Aggregate(res)
	rep.RunID = runID
	rounded := rep.Rounded()

	if o.asJSON {
		if err := report.WriteJSON(stdout, rounded); err != nil {
			return err
		}
	} else {
		if err := report.Fprint(stdout, rounded); err != nil {
			return err
		}
		printSummary(stdout, rounded)
	}

	if cfg.Output.Dir == "" {
		return nil
	}
	if err := report.WriteCSV(cfg.Output.Dir, rounded); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(cfg.Output.Dir, "report.json"), rep); err != nil {
		return err
	}
	logger.Info("tables exported", slog.String("dir", cfg.Output.Dir))

	if cfg.Output.Plots {
		paths, err := plotting.WriteAll(filepath.Join(cfg.Output.Dir, "plots"), rep)
		if err != nil {
			return fmt.Errorf("plots: %w", err)
		}
		logger.Info("charts written", slog.Int("files", len(paths)))
	}
	return nil
}

func applyFlags(cfg *config.Config, o options, set map[string]bool) {
	if set["input"] {
		cfg.Data.Path = o.input
	}
	if set["sheet"] {
		cfg.Data.Sheet = o.sheet
	}
	if set["out"] {
		cfg.Output.Dir = o.out
	}
	if set["plots"] {
		cfg.Output.Plots = o.plots
	}
	if set["models"] {
		cfg.Backtest.ModelSet = splitList(o.models)
	}
	if set["blocks"] {
		cfg.Backtest.NumBlocks = o.blocks
	}
	if set["test-size"] {
		cfg.Backtest.TestSizePerBlock = o.testSize
	}
	if set["seed"] {
		cfg.Backtest.RandomForestSeed = o.seed
	}
	if set["trees"] {
		cfg.Backtest.RandomForestTrees = o.trees
	}
	if set["workers"] {
		cfg.Backtest.Workers = o.workers
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSONFile(path string, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteJSON(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// palette colours the summary; fatih/color turns itself off when stdout
// is not a terminal.
type palette struct {
	green, yellow, cyan, red func(a ...interface{}) string
}

func newPalette() palette {
	return palette{
		green:  color.New(color.FgGreen).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
	}
}

func printSummary(w io.Writer, rep *report.Report) {
	c := newPalette()
	fmt.Fprintf(w, "\n%s %d blocks of %d rows (%d train / %d test), %d rows dropped\n",
		c.cyan("Backtest:"), len(rep.Winners), rep.BlockSize, rep.TrainSize, rep.TestSize, rep.Dropped)
	for _, s := range rep.Summary {
		line := fmt.Sprintf("  %-16s mean R² %s  median R² %s  mean MSE %s", s.Model, s.MeanR2, s.MedianR2, s.MeanMSE)
		if s.Failures > 0 {
			line += c.red(fmt.Sprintf("  (%d failed)", s.Failures))
		}
		fmt.Fprintln(w, line)
	}
	best, bestWins := "", 0
	for _, wc := range rep.Wins {
		if wc.Wins > bestWins {
			best, bestWins = wc.Model, wc.Wins
		}
	}
	if best != "" {
		fmt.Fprintf(w, "Most wins: %s (%d of %d blocks)\n", c.green(best), bestWins, len(rep.Winners))
	}
	if rep.Undecided > 0 {
		fmt.Fprintf(w, "%s %d block(s) without a defined R²\n", c.yellow("Undecided:"), rep.Undecided)
	}
}
