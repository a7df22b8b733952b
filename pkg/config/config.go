// Package config loads run configuration from a YAML file, applies
// DEMANDLAB_* environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"demandlab/pkg/data"
	"demandlab/pkg/errs"
	"demandlab/pkg/model"
)

// EnvPrefix prefixes every environment override, e.g. DEMANDLAB_BACKTEST_NUM_BLOCKS.
const EnvPrefix = "DEMANDLAB"

// Config represents the complete application configuration
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Data     DataConfig     `yaml:"data"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

// BacktestConfig controls partitioning and the compared estimators.
type BacktestConfig struct {
	NumBlocks          int      `yaml:"num_blocks" validate:"gt=0" split_words:"true"`
	TestSizePerBlock   int      `yaml:"test_size_per_block" validate:"gte=2" split_words:"true"`
	ModelSet           []string `yaml:"model_set" validate:"min=1,unique,dive,model" split_words:"true"`
	RandomForestSeed   int64    `yaml:"random_forest_seed" split_words:"true"`
	RandomForestTrees  int      `yaml:"random_forest_trees" validate:"gt=0" split_words:"true"`
	ConditionThreshold float64  `yaml:"condition_threshold" validate:"gt=0" split_words:"true"`
	Workers            int      `yaml:"workers" validate:"gte=0"`
	TreeWorkers        int      `yaml:"tree_workers" validate:"gte=0" split_words:"true"`
	KNNNeighbors       int      `yaml:"knn_neighbors" validate:"gt=0" split_words:"true"`
	Target             string   `yaml:"target" validate:"required"`
	AddBias            bool     `yaml:"add_bias" split_words:"true"`
}

// DataConfig locates the enriched dataset.
type DataConfig struct {
	Path  string            `yaml:"path"`
	Sheet string            `yaml:"sheet"`
	Kinds map[string]string `yaml:"kinds" validate:"dive,keys,required,endkeys,oneof=float bool category time"`
}

// OutputConfig controls exported tables and charts.
type OutputConfig struct {
	Dir   string `yaml:"dir"`
	Plots bool   `yaml:"plots"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gt=0" split_words:"true"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0" split_words:"true"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Backtest: BacktestConfig{
			NumBlocks:          6,
			TestSizePerBlock:   100,
			ModelSet:           append([]string(nil), model.DefaultModelSet...),
			RandomForestSeed:   42,
			RandomForestTrees:  100,
			ConditionThreshold: model.DefaultConditionThreshold,
			KNNNeighbors:       model.DefaultNeighbors,
			Target:             data.ColDemand,
			AddBias:            true,
		},
		Output: OutputConfig{
			Dir: "out",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty and none of the usual locations exists), then
// environment overrides, and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Fields without a matching variable are left as loaded. Keys come from
	// split field names only: an envconfig tag would also make the bare tag
	// (PATH, DIR) an accepted variable.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates, ignoring the environment.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags. Every failure is an *errs.ConfigError named
// by its YAML path; several failures are joined.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errs.Config(fieldPath(fe.Namespace()), "failed %q check (value %v)", fe.Tag(), fe.Value()))
	}
	return errors.Join(out...)
}

// LoadOptions converts the data section into loader options.
func (d DataConfig) LoadOptions() (*data.LoadOptions, error) {
	opts := data.DefaultLoadOptions()
	opts.Sheet = d.Sheet
	for name, k := range d.Kinds {
		kind, err := data.ParseKind(k)
		if err != nil {
			return nil, errs.Config("data.kinds."+name, "%v", err)
		}
		if opts.Kinds == nil {
			opts.Kinds = map[string]data.Kind{}
		}
		opts.Kinds[name] = kind
	}
	return opts, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("model", func(fl validator.FieldLevel) bool {
		return model.Known(fl.Field().String())
	})
	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldPath drops the root type name: "Config.backtest.num_blocks" -> "backtest.num_blocks".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func findConfigFile() string {
	for _, location := range []string{
		"demandlab.yaml",
		"configs/demandlab.yaml",
		"../configs/demandlab.yaml",
	} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}
