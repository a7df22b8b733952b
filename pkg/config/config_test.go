package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandlab/pkg/data"
	"demandlab/pkg/errs"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "demandlab.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 6, cfg.Backtest.NumBlocks)
	assert.Equal(t, 100, cfg.Backtest.TestSizePerBlock)
	assert.Equal(t, []string{"normal-equation", "decision-tree", "random-forest"}, cfg.Backtest.ModelSet)
	assert.Equal(t, int64(42), cfg.Backtest.RandomForestSeed)
	assert.Equal(t, 100, cfg.Backtest.RandomForestTrees)
	assert.Equal(t, 1e12, cfg.Backtest.ConditionThreshold)
	assert.Equal(t, "Total_Order_Demand", cfg.Backtest.Target)
	assert.True(t, cfg.Backtest.AddBias)
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	p := writeFile(t, `
backtest:
  num_blocks: 4
  model_set: [normal-equation, sgd-linear]
server:
  read_timeout: 3s
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Backtest.NumBlocks)
	assert.Equal(t, 100, cfg.Backtest.TestSizePerBlock)
	assert.Equal(t, []string{"normal-equation", "sgd-linear"}, cfg.Backtest.ModelSet)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "backtest:\n  num_blocks: 4\n  test_size_per_block: 20\n")
	t.Setenv("DEMANDLAB_BACKTEST_NUM_BLOCKS", "3")
	t.Setenv("DEMANDLAB_BACKTEST_MODEL_SET", "decision-tree,random-forest")
	t.Setenv("DEMANDLAB_LOGGING_LEVEL", "debug")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Backtest.NumBlocks)
	assert.Equal(t, 20, cfg.Backtest.TestSizePerBlock)
	assert.Equal(t, []string{"decision-tree", "random-forest"}, cfg.Backtest.ModelSet)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidationErrorsAreConfigErrors(t *testing.T) {
	_, err := Parse([]byte(`
backtest:
  num_blocks: 0
  model_set: [normal-equation, svm]
logging:
  format: xml
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConfig))

	var ce *errs.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "backtest.num_blocks")
	assert.Contains(t, err.Error(), "backtest.model_set[1]")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestEstimatorTuningKeys(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5, cfg.Backtest.KNNNeighbors)
	assert.Equal(t, 0, cfg.Backtest.TreeWorkers)

	cfg, err := Parse([]byte("backtest:\n  knn_neighbors: 9\n  tree_workers: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Backtest.KNNNeighbors)
	assert.Equal(t, 2, cfg.Backtest.TreeWorkers)

	_, err = Parse([]byte("backtest:\n  knn_neighbors: 0\n  tree_workers: -1\n"))
	require.ErrorIs(t, err, errs.ErrConfig)
	assert.Contains(t, err.Error(), "backtest.knn_neighbors")
	assert.Contains(t, err.Error(), "backtest.tree_workers")
}

func TestSingleRowTestSegmentRejected(t *testing.T) {
	_, err := Parse([]byte("backtest:\n  test_size_per_block: 1\n"))
	require.ErrorIs(t, err, errs.ErrConfig)
	assert.Contains(t, err.Error(), "backtest.test_size_per_block")
}

func TestDuplicateModelsRejected(t *testing.T) {
	_, err := Parse([]byte("backtest:\n  model_set: [decision-tree, decision-tree]\n"))
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("backtest: [1, 2"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, errs.ErrConfig))
}

func TestDataLoadOptions(t *testing.T) {
	cfg, err := Parse([]byte(`
data:
  sheet: Enriched
  kinds:
    Order_Count: float
    Season: category
`))
	require.NoError(t, err)
	opts, err := cfg.Data.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, "Enriched", opts.Sheet)
	assert.Equal(t, data.Float, opts.Kinds["Order_Count"])
	assert.Equal(t, data.Category, opts.Kinds["Season"])

	_, err = Parse([]byte("data:\n  kinds:\n    Season: enum\n"))
	assert.ErrorIs(t, err, errs.ErrConfig)
}
