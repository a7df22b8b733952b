// Command dashboard runs the backtest once at startup and serves the
// result tables over HTTP until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"demandlab/pkg/config"
	"demandlab/pkg/data"
	"demandlab/pkg/logging"
	"demandlab/pkg/pipeline"
	"demandlab/pkg/report"
	"demandlab/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default: ./demandlab.yaml if present)")
	input := flag.String("input", "", "Enriched dataset (.csv or .xlsx); overrides data.path")
	addr := flag.String("addr", "", "Listen address; overrides server.addr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dashboard:", err)
		os.Exit(2)
	}
	if *input != "" {
		cfg.Data.Path = *input
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	runID := uuid.NewString()
	logger := logging.New(cfg.Logging, os.Stderr).With(slog.String("run_id", runID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, runID, logger); err != nil {
		logger.Error("dashboard stopped", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger) error {
	if cfg.Data.Path == "" {
		return errors.New("no dataset: set -input, data.path or DEMANDLAB_DATA_PATH")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := server.NewMetrics(reg)

	rep, err := backtest(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	rep.RunID = runID

	srv := server.New(rep, logger, reg).HTTPServer(cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func backtest(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *server.Metrics) (*report.Report, error) {
	loadOpts, err := cfg.Data.LoadOptions()
	if err != nil {
		return nil, err
	}
	frame, err := data.Load(cfg.Data.Path, loadOpts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Data.Path, err)
	}
	start := time.Now()
	res, err := pipeline.New(frame, pipeline.FromConfig(cfg.Backtest),
		pipeline.WithLogger(logger),
		pipeline.WithObserver(metrics),
	).Run(ctx)
	if err != nil {
		return nil, err
	}
	metrics.ObserveRun(res, time.Since(start))
	return report.Aggregate(res), nil
}
