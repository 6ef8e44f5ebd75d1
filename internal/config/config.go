// Package config provides unified configuration loading for fedq.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/fedq/internal/agent"
	"github.com/nvandessel/fedq/internal/constants"
	"github.com/nvandessel/fedq/internal/errs"
	"github.com/nvandessel/fedq/internal/federation"
)

// TriggerMode selects which predicate decides when a federation round runs.
type TriggerMode string

const (
	// TriggerEpisodes federates on mean-episode-count interval boundaries.
	TriggerEpisodes TriggerMode = "episodes"

	// TriggerPerformance federates when reward improvement plateaus.
	TriggerPerformance TriggerMode = "performance"
)

// FedqConfig contains all fedq configuration settings.
type FedqConfig struct {
	// Agent holds the per-client Q-learning hyperparameters.
	Agent agent.Config `json:"agent" yaml:"agent"`

	// Federation contains settings for the merge engine and triggers.
	Federation FederationConfig `json:"federation" yaml:"federation"`

	// Training contains settings for the local training loop.
	Training TrainingConfig `json:"training" yaml:"training"`

	// Store selects the checkpoint backend.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational and round logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// FederationConfig configures merge triggers and convergence detection.
type FederationConfig struct {
	// Trigger selects the federation predicate: "episodes" or "performance".
	Trigger TriggerMode `json:"trigger" yaml:"trigger"`

	// Interval is the mean episode count between rounds (episodes trigger).
	Interval int `json:"interval" yaml:"interval"`

	// PerformanceWindow is the half-window size for plateau detection.
	PerformanceWindow int `json:"performance_window" yaml:"performance_window"`

	// ImprovementThreshold is the relative reward improvement at or
	// below which learning counts as plateaued.
	ImprovementThreshold float64 `json:"improvement_threshold" yaml:"improvement_threshold"`

	// Delta holds the convergence and changed-state thresholds.
	Delta federation.DeltaConfig `json:"delta" yaml:"delta"`

	// WeightBySamples weights each client by episode count instead of
	// uniformly when merging.
	WeightBySamples bool `json:"weight_by_samples" yaml:"weight_by_samples"`
}

// TrainingConfig configures the local multi-client training loop.
type TrainingConfig struct {
	// Clients is the number of independent agents trained in parallel.
	Clients int `json:"clients" yaml:"clients"`

	// Episodes is the total episode budget per client.
	Episodes int `json:"episodes" yaml:"episodes"`

	// MaxSteps caps the steps per episode so non-terminating
	// environments cannot hang the loop.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// Seed makes training deterministic when non-zero.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// StoreConfig selects the checkpoint persistence backend.
type StoreConfig struct {
	// Backend is "sqlite" (default) or "memory".
	Backend string `json:"backend" yaml:"backend"`
}

// LoggingConfig configures fedq's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables round logging to .fedq/rounds.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a FedqConfig with sensible defaults.
// Agent.NumActions is environment-dependent and stays zero until set.
func Default() *FedqConfig {
	return &FedqConfig{
		Agent: agent.DefaultConfig(),
		Federation: FederationConfig{
			Trigger:              TriggerEpisodes,
			Interval:             constants.DefaultFederationInterval,
			PerformanceWindow:    constants.DefaultPerformanceWindow,
			ImprovementThreshold: constants.DefaultImprovementThreshold,
			Delta:                federation.DefaultDeltaConfig(),
			WeightBySamples:      false,
		},
		Training: TrainingConfig{
			Clients:  3,
			Episodes: 500,
			MaxSteps: 200,
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration for the given workspace directory.
// Order: defaults -> <dir>/.fedq/config.yaml -> environment variables.
func Load(dir string) (*FedqConfig, error) {
	cfg := Default()

	path := filepath.Join(dir, constants.FedqDirName, constants.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		fileCfg, loadErr := LoadFromFile(path)
		if loadErr != nil {
			return nil, loadErr
		}
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*FedqConfig, error) {
	const op = "config.LoadFromFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.E(errs.KindConfiguration, op, "reading config file", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.E(errs.KindParse, op, "parsing config file", err)
	}

	return cfg, nil
}

// Save writes the configuration to <dir>/.fedq/config.yaml, creating the
// directory if needed.
func (c *FedqConfig) Save(dir string) error {
	const op = "config.Save"

	fedqDir := filepath.Join(dir, constants.FedqDirName)
	if err := os.MkdirAll(fedqDir, 0755); err != nil {
		return errs.E(errs.KindStorage, op, "creating fedq directory", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errs.E(errs.KindStorage, op, "encoding config", err)
	}

	path := filepath.Join(fedqDir, constants.ConfigFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errs.E(errs.KindStorage, op, "writing config file", err)
	}
	return nil
}

// Validate checks that the configuration is valid. Agent hyperparameters
// are validated separately at agent construction, where NumActions is
// known.
func (c *FedqConfig) Validate() error {
	const op = "config.Validate"

	switch c.Federation.Trigger {
	case TriggerEpisodes, TriggerPerformance:
	default:
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("invalid trigger: %q (valid: episodes, performance)", c.Federation.Trigger))
	}

	if c.Federation.Interval < 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("federation interval must be >= 1, got %d", c.Federation.Interval))
	}
	if c.Federation.PerformanceWindow < 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("performance window must be >= 1, got %d", c.Federation.PerformanceWindow))
	}
	if c.Federation.Delta.ConvergenceThreshold < 0 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("convergence threshold must be non-negative, got %f", c.Federation.Delta.ConvergenceThreshold))
	}
	if c.Federation.Delta.ChangedEpsilon < 0 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("changed epsilon must be non-negative, got %f", c.Federation.Delta.ChangedEpsilon))
	}

	if c.Training.Clients < 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("clients must be >= 1, got %d", c.Training.Clients))
	}
	if c.Training.Episodes < 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("episodes must be >= 1, got %d", c.Training.Episodes))
	}
	if c.Training.MaxSteps < 1 {
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("max_steps must be >= 1, got %d", c.Training.MaxSteps))
	}

	switch c.Store.Backend {
	case "sqlite", "memory":
	default:
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("invalid store backend: %q (valid: sqlite, memory)", c.Store.Backend))
	}

	switch c.Logging.Level {
	case "", "info", "debug", "trace":
	default:
		return errs.E(errs.KindConfiguration, op,
			fmt.Sprintf("invalid log level: %q (valid: info, debug, trace)", c.Logging.Level))
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *FedqConfig) {
	if v := os.Getenv("FEDQ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FEDQ_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("FEDQ_TRIGGER"); v != "" {
		cfg.Federation.Trigger = TriggerMode(v)
	}
	if v := os.Getenv("FEDQ_FEDERATION_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Federation.Interval = n
		}
	}
	if v := os.Getenv("FEDQ_CLIENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Training.Clients = n
		}
	}
	if v := os.Getenv("FEDQ_EPISODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Training.Episodes = n
		}
	}
}
