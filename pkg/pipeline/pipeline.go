// Package pipeline is the model comparison harness: it partitions the
// design matrix into blocks, fits every configured estimator on each
// block's train segment, scores it on the test segment and picks a winner
// per block.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"demandlab/pkg/config"
	"demandlab/pkg/data"
	"demandlab/pkg/dataprep"
	"demandlab/pkg/errs"
	"demandlab/pkg/logging"
	"demandlab/pkg/model"
	"demandlab/pkg/split"
)

// Config is the resolved run configuration.
type Config struct {
	NumBlocks int
	TestSize  int
	Models    []string // comparison order; ties go to the earlier model
	Params    model.Params
	Target    string
	AddBias   bool
	Workers   int // concurrent pairs; 0 => GOMAXPROCS
}

// DefaultConfig mirrors config.Default().Backtest.
func DefaultConfig() Config {
	return FromConfig(config.Default().Backtest)
}

// FromConfig maps the backtest section of the application configuration.
func FromConfig(c config.BacktestConfig) Config {
	return Config{
		NumBlocks: c.NumBlocks,
		TestSize:  c.TestSizePerBlock,
		Models:    append([]string(nil), c.ModelSet...),
		Params: model.Params{
			Seed:               c.RandomForestSeed,
			Trees:              c.RandomForestTrees,
			ConditionThreshold: c.ConditionThreshold,
			TreeWorkers:        c.TreeWorkers,
			Neighbors:          c.KNNNeighbors,
		},
		Target:  c.Target,
		AddBias: c.AddBias,
		Workers: c.Workers,
	}
}

// Observer receives every finished pair, e.g. to export metrics.
type Observer interface {
	ObservePair(r *BlockResult, elapsed time.Duration)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.log = l } }

func WithWorkers(n int) Option { return func(p *Pipeline) { p.cfg.Workers = n } }

func WithObserver(o Observer) Option { return func(p *Pipeline) { p.observer = o } }

// WithFactory registers an estimator under name for this pipeline only,
// shadowing a built-in of the same name.
func WithFactory(name string, f model.Factory) Option {
	return func(p *Pipeline) { p.custom[name] = f }
}

// Pipeline holds the immutable input of one backtest.
type Pipeline struct {
	frame    *data.Frame
	cfg      Config
	log      *slog.Logger
	observer Observer
	custom   map[string]model.Factory
}

func New(frame *data.Frame, cfg Config, opts ...Option) *Pipeline {
	cfg.Models = append([]string(nil), cfg.Models...)
	p := &Pipeline{
		frame:  frame,
		cfg:    cfg,
		log:    logging.Discard(),
		custom: map[string]model.Factory{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Config returns the run configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run executes the backtest. Schema and configuration errors abort before
// any block is evaluated; estimator failures are recorded on their pair.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	factories, err := p.factories()
	if err != nil {
		return nil, err
	}
	dm, err := dataprep.BuildDesignMatrix(p.frame, p.cfg.Target, dataprep.Options{AddBias: p.cfg.AddBias})
	if err != nil {
		return nil, fmt.Errorf("build design matrix: %w", err)
	}
	sched, err := split.NewSchedule(dm.X.R, p.cfg.NumBlocks, p.cfg.TestSize)
	if err != nil {
		return nil, fmt.Errorf("partition blocks: %w", err)
	}
	p.log.Info("backtest started",
		slog.Int("rows", dm.X.R),
		slog.Int("features", dm.X.C),
		slog.Int("blocks", sched.Len()),
		slog.Int("block_size", sched.BlockSize()),
		slog.Int("train_size", sched.TrainSize()),
		slog.Int("test_size", sched.TestSize()),
		slog.Int("dropped_rows", sched.Dropped()),
		slog.Any("models", p.cfg.Models))

	// slots[block][model]; each goroutine owns exactly one slot.
	slots := make([][]BlockResult, sched.Len())
	for i := range slots {
		slots[i] = make([]BlockResult, len(factories))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, b := range sched.All() {
		for m := range factories {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				t0 := time.Now()
				slots[i][m] = p.evaluate(dm, b, p.cfg.Models[m], factories[m])
				if p.observer != nil {
					p.observer.ObservePair(&slots[i][m], time.Since(t0))
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Schema:    schemaOf(dm),
		Models:    append([]string(nil), p.cfg.Models...),
		BlockSize: sched.BlockSize(),
		TrainSize: sched.TrainSize(),
		TestSize:  sched.TestSize(),
		Dropped:   sched.Dropped(),
		Blocks:    make([]BlockOutcome, sched.Len()),
	}
	for i, b := range sched.All() {
		out := BlockOutcome{Block: b, Results: slots[i], WinnerR2: math.NaN()}
		if w, ok := SelectWinner(slots[i]); ok {
			out.Winner = slots[i][w].Model
			out.WinnerR2 = slots[i][w].Metrics.R2
		} else {
			p.log.Warn("block has no winner: no model has a defined R²", slog.Int("block", b.ID))
		}
		res.Blocks[i] = out
	}
	p.log.Info("backtest finished",
		slog.Int("pairs", sched.Len()*len(factories)),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

// evaluate fits a fresh estimator on the block's train rows and scores it
// on the test rows. The estimator gets private copies of its segments so
// it cannot write through to the shared matrix.
func (p *Pipeline) evaluate(dm *dataprep.DesignMatrix, b split.Block, name string, factory model.Factory) BlockResult {
	xTrain := dm.X.RowRange(b.Start, b.TrainEnd).Clone().Rows()
	yTrain := slices.Clone(dm.Y[b.Start:b.TrainEnd])
	xTest := dm.X.RowRange(b.TrainEnd, b.End).Clone().Rows()
	yTest := dm.Y[b.TrainEnd:b.End:b.End]

	r := BlockResult{
		Block:   b,
		Model:   name,
		Actual:  append([]float64(nil), yTest...),
		Metrics: undefinedMetrics(len(yTest)),
	}
	log := p.log.With(slog.Int("block", b.ID), slog.String("model", name))

	est := factory()
	if err := est.Fit(xTrain, yTrain); err != nil {
		r.Err = fmt.Errorf("fit: %w", err)
		log.Error("estimator failed", slog.Any("error", r.Err))
		return r
	}
	pred, err := est.Predict(xTest)
	if err != nil {
		r.Err = fmt.Errorf("predict: %w", err)
		log.Error("estimator failed", slog.Any("error", r.Err))
		return r
	}
	r.Predicted = pred

	if d, ok := est.(model.Diagnoser); ok {
		r.Flags = append(r.Flags, d.Diagnostics()...)
	}
	m, err := model.Evaluate(yTest, pred)
	if err != nil {
		r.Err = fmt.Errorf("evaluate: %w", err)
		log.Error("estimator failed", slog.Any("error", r.Err))
		return r
	}
	r.Metrics = m
	if m.SSTot == 0 {
		r.Flags = append(r.Flags, model.Degeneracy{Kind: model.ZeroVariance})
	}
	for _, f := range r.Flags {
		log.Warn("numeric degeneracy", slog.String("kind", string(f.Kind)), slog.String("detail", f.Error()))
	}
	log.Debug("pair scored", slog.Float64("r2", m.R2), slog.Float64("mse", m.MSE))
	return r
}

func (p *Pipeline) factories() ([]model.Factory, error) {
	if len(p.cfg.Models) == 0 {
		return nil, errs.Config("model_set", "no models configured")
	}
	params := p.cfg.Params
	out := make([]model.Factory, len(p.cfg.Models))
	seen := make(map[string]bool, len(p.cfg.Models))
	for i, name := range p.cfg.Models {
		if seen[name] {
			return nil, errs.Config("model_set", "model %q listed twice", name)
		}
		seen[name] = true
		if f, ok := p.custom[name]; ok {
			out[i] = f
			continue
		}
		f, err := model.NewFactory(name, params)
		if err != nil {
			return nil, errs.Config("model_set", "%v", err)
		}
		out[i] = f
	}
	return out, nil
}

func (p *Pipeline) workers() int {
	if p.cfg.Workers > 0 {
		return p.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func undefinedMetrics(n int) model.Metrics {
	nan := math.NaN()
	return model.Metrics{N: n, SSE: nan, MSE: nan, R2: nan, MAE: nan, RMSE: nan, SSTot: nan}
}

// IsFatal reports whether err aborts a run before any block is scored.
func IsFatal(err error) bool {
	return errors.Is(err, errs.ErrSchema) || errors.Is(err, errs.ErrConfig)
}
