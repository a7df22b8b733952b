// Package report reduces a backtest result into the tables the
// presentation layer shows: per-block metrics, per-block winners, win
// counts and a per-model summary.
package report

import (
	"math"

	"demandlab/pkg/model"
	"demandlab/pkg/pipeline"
	"demandlab/pkg/stats"
)

// Decimal places of the rounded views.
const (
	ErrorDecimals = 2 // SSE, MSE, MAE, RMSE
	R2Decimals    = 4
)

// MetricRow is one (block, model) pair.
type MetricRow struct {
	Block int      `json:"block"`
	Model string   `json:"model"`
	SSE   Number   `json:"sse"`
	MSE   Number   `json:"mse"`
	R2    Number   `json:"r2"`
	MAE   Number   `json:"mae"`
	RMSE  Number   `json:"rmse"`
	Flags []string `json:"flags,omitempty"`
	Error string   `json:"error,omitempty"`
}

// WinnerRow names the best model of one block; Winner is empty when no
// model had a defined R².
type WinnerRow struct {
	Block  int    `json:"block"`
	Winner string `json:"winner"`
	R2     Number `json:"r2"`
}

type WinCount struct {
	Model string `json:"model"`
	Wins  int    `json:"wins"`
}

// ModelSummary aggregates one model over all blocks. R² statistics use
// defined blocks only; MeanMSE uses every pair that did not fail.
type ModelSummary struct {
	Model        string `json:"model"`
	DefinedR2    int    `json:"defined_r2_blocks"`
	MeanR2       Number `json:"mean_r2"`
	MedianR2     Number `json:"median_r2"`
	MeanMSE      Number `json:"mean_mse"`
	Failures     int    `json:"failures"`
	Degeneracies int    `json:"degeneracies"`
}

// Series is the actual and predicted test vectors of one pair. Start is
// the row index of the first test observation.
type Series struct {
	Block     int       `json:"block"`
	Model     string    `json:"model"`
	Start     int       `json:"start"`
	Actual    []float64 `json:"actual"`
	Predicted []float64 `json:"predicted"`
}

// Report is the aggregated view of one run. Tables are ordered by block
// ascending, then configured model order.
type Report struct {
	RunID     string          `json:"run_id,omitempty"`
	Models    []string        `json:"models"`
	Schema    pipeline.Schema `json:"schema"`
	BlockSize int             `json:"block_size"`
	TrainSize int             `json:"train_size"`
	TestSize  int             `json:"test_size"`
	Dropped   int             `json:"dropped_rows"`

	Metrics   []MetricRow    `json:"metrics"`
	Winners   []WinnerRow    `json:"winners"`
	Wins      []WinCount     `json:"wins"`
	Undecided int            `json:"undecided"`
	Summary   []ModelSummary `json:"summary"`
	Series    []Series       `json:"series,omitempty"`
}

// Aggregate builds the report at full precision.
func Aggregate(res *pipeline.Result) *Report {
	r := &Report{
		Models:    append([]string(nil), res.Models...),
		Schema:    res.Schema,
		BlockSize: res.BlockSize,
		TrainSize: res.TrainSize,
		TestSize:  res.TestSize,
		Dropped:   res.Dropped,
		Metrics:   make([]MetricRow, 0, len(res.Blocks)*len(res.Models)),
		Winners:   make([]WinnerRow, 0, len(res.Blocks)),
		Wins:      make([]WinCount, len(res.Models)),
	}
	wins := make(map[string]int, len(res.Models))
	r2s := make(map[string][]float64, len(res.Models))
	mses := make(map[string][]float64, len(res.Models))
	failures := make(map[string]int)
	degenerate := make(map[string]int)

	for _, out := range res.Blocks {
		for _, br := range out.Results {
			r.Metrics = append(r.Metrics, metricRow(&br))
			r.Series = append(r.Series, Series{
				Block:     br.Block.ID,
				Model:     br.Model,
				Start:     br.Block.TrainEnd,
				Actual:    br.Actual,
				Predicted: br.Predicted,
			})
			switch {
			case br.Err != nil:
				failures[br.Model]++
				continue
			case len(br.Flags) > 0:
				degenerate[br.Model]++
			}
			mses[br.Model] = append(mses[br.Model], br.Metrics.MSE)
			if br.Defined() {
				r2s[br.Model] = append(r2s[br.Model], br.Metrics.R2)
			}
		}
		r.Winners = append(r.Winners, WinnerRow{Block: out.Block.ID, Winner: out.Winner, R2: Number(out.WinnerR2)})
		if out.Undecided() {
			r.Undecided++
		} else {
			wins[out.Winner]++
		}
	}

	for i, name := range res.Models {
		r.Wins[i] = WinCount{Model: name, Wins: wins[name]}
		r.Summary = append(r.Summary, ModelSummary{
			Model:        name,
			DefinedR2:    len(r2s[name]),
			MeanR2:       Number(stats.Mean(r2s[name])),
			MedianR2:     Number(stats.Median(r2s[name])),
			MeanMSE:      Number(stats.Mean(mses[name])),
			Failures:     failures[name],
			Degeneracies: degenerate[name],
		})
	}
	return r
}

func metricRow(br *pipeline.BlockResult) MetricRow {
	row := MetricRow{
		Block: br.Block.ID,
		Model: br.Model,
		SSE:   Number(br.Metrics.SSE),
		MSE:   Number(br.Metrics.MSE),
		R2:    Number(br.Metrics.R2),
		MAE:   Number(br.Metrics.MAE),
		RMSE:  Number(br.Metrics.RMSE),
	}
	for _, f := range br.Flags {
		row.Flags = append(row.Flags, string(f.Kind))
	}
	if br.Err != nil {
		row.Error = br.Err.Error()
	}
	return row
}

// Rounded returns a copy with errors at two decimals and R² at four, the
// precision the dashboard tables show. Series are shared, not copied.
func (r *Report) Rounded() *Report {
	out := *r
	out.Metrics = make([]MetricRow, len(r.Metrics))
	for i, m := range r.Metrics {
		m.SSE = roundN(m.SSE, ErrorDecimals)
		m.MSE = roundN(m.MSE, ErrorDecimals)
		m.MAE = roundN(m.MAE, ErrorDecimals)
		m.RMSE = roundN(m.RMSE, ErrorDecimals)
		m.R2 = roundN(m.R2, R2Decimals)
		out.Metrics[i] = m
	}
	out.Winners = make([]WinnerRow, len(r.Winners))
	for i, w := range r.Winners {
		w.R2 = roundN(w.R2, R2Decimals)
		out.Winners[i] = w
	}
	out.Summary = make([]ModelSummary, len(r.Summary))
	for i, s := range r.Summary {
		s.MeanR2 = roundN(s.MeanR2, R2Decimals)
		s.MedianR2 = roundN(s.MedianR2, R2Decimals)
		s.MeanMSE = roundN(s.MeanMSE, ErrorDecimals)
		out.Summary[i] = s
	}
	return &out
}

// BlockSeries returns the series of one block id in model order.
func (r *Report) BlockSeries(id int) []Series {
	var out []Series
	for _, s := range r.Series {
		if s.Block == id {
			out = append(out, s)
		}
	}
	return out
}

// BlockMetrics returns the metric rows of one block id in model order.
func (r *Report) BlockMetrics(id int) []MetricRow {
	var out []MetricRow
	for _, m := range r.Metrics {
		if m.Block == id {
			out = append(out, m)
		}
	}
	return out
}

// R2ByModel returns, per model in configured order, the R² of every block
// (NaN where undefined or failed).
func (r *Report) R2ByModel() map[string][]float64 {
	out := make(map[string][]float64, len(r.Models))
	for _, m := range r.Metrics {
		v := m.R2.Float()
		if m.Error != "" {
			v = math.NaN()
		}
		out[m.Model] = append(out[m.Model], v)
	}
	return out
}

// HasFlag reports whether row carries the degeneracy kind k.
func (m MetricRow) HasFlag(k model.DegeneracyKind) bool {
	for _, f := range m.Flags {
		if f == string(k) {
			return true
		}
	}
	return false
}

func roundN(n Number, dp int) Number { return Number(Round(float64(n), dp)) }
