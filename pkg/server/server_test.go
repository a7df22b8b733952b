package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandlab/pkg/logging"
	"demandlab/pkg/model"
	"demandlab/pkg/pipeline"
	"demandlab/pkg/report"
	"demandlab/pkg/split"
)

func fixtureResult() *pipeline.Result {
	nan := math.NaN()
	b1 := split.Block{ID: 1, Index: 0, Start: 0, TrainEnd: 8, End: 10}
	b2 := split.Block{ID: 2, Index: 1, Start: 10, TrainEnd: 18, End: 20}
	ok := func(b split.Block, name string, r2 float64) pipeline.BlockResult {
		return pipeline.BlockResult{
			Block: b, Model: name,
			Actual: []float64{1, 2}, Predicted: []float64{1.25, 2.5},
			Metrics: model.Metrics{N: 2, SSE: 0.3125, MSE: 0.15625, R2: r2, MAE: 0.375, RMSE: 0.395},
		}
	}
	flat := ok(b2, "ols", nan)
	flat.Flags = []model.Degeneracy{{Kind: model.ZeroVariance}}
	failed := pipeline.BlockResult{Block: b2, Model: "tree", Err: errors.New("fit: boom"),
		Metrics: model.Metrics{R2: nan, SSE: nan, MSE: nan, MAE: nan, RMSE: nan}}
	return &pipeline.Result{
		Models: []string{"ols", "tree"},
		Blocks: []pipeline.BlockOutcome{
			{Block: b1, Results: []pipeline.BlockResult{ok(b1, "ols", 0.123456), ok(b1, "tree", 0.1)}, Winner: "ols", WinnerR2: 0.123456},
			{Block: b2, Results: []pipeline.BlockResult{flat, failed}, WinnerR2: nan},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	res := fixtureResult()
	m := NewMetrics(reg)
	for _, p := range res.Pairs() {
		m.ObservePair(p, time.Millisecond)
	}
	m.ObserveRun(res, time.Second)

	srv := httptest.NewServer(New(report.Aggregate(res), logging.Discard(), reg).Routes())
	t.Cleanup(srv.Close)
	return srv, reg
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsTableIsRounded(t *testing.T) {
	srv, _ := newTestServer(t)
	var rows []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/metrics", &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, 0.1235, rows[0]["r2"])
	assert.Equal(t, 0.16, rows[0]["mse"])
	assert.Nil(t, rows[2]["r2"])
	assert.Equal(t, []any{"zero_variance"}, rows[2]["flags"])
	assert.Equal(t, "fit: boom", rows[3]["error"])
}

func TestWinnersAndWins(t *testing.T) {
	srv, _ := newTestServer(t)

	var winners []report.WinnerRow
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/winners", &winners))
	require.Len(t, winners, 2)
	assert.Equal(t, "ols", winners[0].Winner)
	assert.Equal(t, "", winners[1].Winner)
	assert.False(t, winners[1].R2.Defined())

	var wins winsResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/wins", &wins))
	assert.Equal(t, []report.WinCount{{Model: "ols", Wins: 1}, {Model: "tree", Wins: 0}}, wins.Wins)
	assert.Equal(t, 1, wins.Undecided)
}

func TestReport(t *testing.T) {
	srv, _ := newTestServer(t)
	var rep report.Report
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/report", &rep))
	assert.Equal(t, []string{"ols", "tree"}, rep.Models)
	assert.Len(t, rep.Series, 4)
	assert.Equal(t, 1, rep.Undecided)
}

func TestBlock(t *testing.T) {
	srv, _ := newTestServer(t)

	var blk blockResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/blocks/1", &blk))
	assert.Equal(t, 1, blk.Block)
	assert.Equal(t, "ols", blk.Winner)
	require.Len(t, blk.Series, 2)
	assert.Equal(t, []float64{1.25, 2.5}, blk.Series[0].Predicted)
	assert.Equal(t, 8, blk.Series[0].Start)

	var e errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/blocks/9", &e))
	assert.Contains(t, e.Error, "not found")
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/blocks/x", &e))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/nope", &e))
}

func TestPrometheusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `demandlab_pairs_total{model="tree",outcome="error"} 1`), text)
	assert.Contains(t, text, "demandlab_undecided_blocks 1")
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	res := fixtureResult()
	for _, p := range res.Pairs() {
		m.ObservePair(p, 2*time.Millisecond)
	}
	m.ObserveRun(res, 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pairs.WithLabelValues("ols", "ok"))+testutil.ToFloat64(m.pairs.WithLabelValues("ols", "undefined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pairs.WithLabelValues("ols", "undefined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degeneracies.WithLabelValues("ols", "zero_variance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wins.WithLabelValues("ols")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.wins.WithLabelValues("tree")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.runDuration))
}
