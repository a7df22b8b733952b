// Package server exposes a finished backtest report over a read-only JSON API.
package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"demandlab/pkg/report"
)

// Server serves one report. The report is rounded to dashboard precision
// once, at construction.
type Server struct {
	report   *report.Report
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

type errorResponse struct {
	Error string `json:"error"`
}

type winsResponse struct {
	Wins      []report.WinCount `json:"wins"`
	Undecided int               `json:"undecided"`
}

type blockResponse struct {
	Block   int                `json:"block"`
	Winner  string             `json:"winner"`
	R2      report.Number      `json:"r2"`
	Metrics []report.MetricRow `json:"metrics"`
	Series  []report.Series    `json:"series"`
}

// New creates a server for rep. gatherer backs /metrics; nil disables it.
func New(rep *report.Report, logger *slog.Logger, gatherer prometheus.Gatherer) *Server {
	return &Server{
		report:   rep.Rounded(),
		logger:   logger.With(slog.String("component", "server")),
		gatherer: gatherer,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/report", s.getReport)
		r.Get("/metrics", s.getMetrics)
		r.Get("/winners", s.getWinners)
		r.Get("/wins", s.getWins)
		r.Get("/blocks/{id}", s.getBlock)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: "not found"})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// getReport handles GET /api/v1/report
func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.report)
}

// getMetrics handles GET /api/v1/metrics
func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.report.Metrics)
}

// getWinners handles GET /api/v1/winners
func (s *Server) getWinners(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.report.Winners)
}

// getWins handles GET /api/v1/wins
func (s *Server) getWins(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, winsResponse{Wins: s.report.Wins, Undecided: s.report.Undecided})
}

// getBlock handles GET /api/v1/blocks/{id}
func (s *Server) getBlock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "block id must be an integer"})
		return
	}
	for _, row := range s.report.Winners {
		if row.Block != id {
			continue
		}
		render.JSON(w, r, blockResponse{
			Block:   id,
			Winner:  row.Winner,
			R2:      row.R2,
			Metrics: s.report.BlockMetrics(id),
			Series:  s.report.BlockSeries(id),
		})
		return
	}
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, errorResponse{Error: "block " + strconv.Itoa(id) + " not found"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request completed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)))
	})
}

// HTTPServer wires the routes into an http.Server with the given timeouts.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}
