package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/fedq/internal/config"
	"github.com/nvandessel/fedq/internal/constants"
	"github.com/nvandessel/fedq/internal/kpi"
	"github.com/nvandessel/fedq/internal/logging"
	"github.com/nvandessel/fedq/internal/simulation"
	"github.com/nvandessel/fedq/internal/store"
	"github.com/nvandessel/fedq/internal/training"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run federated training on the built-in gridworld",
		Long: `Train the configured number of clients on the built-in gridworld
environment, federating whenever the configured trigger fires. The
merged global model is checkpointed every round.

The gridworld is a stand-in environment for exercising the pipeline;
embedders supply their own environments through the training package.

Examples:
  fedq train                      # settings from .fedq/config.yaml
  fedq train --episodes 500       # override the episode budget
  fedq train --kpi success_rate   # aggregate success instead of reward`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			jsonOut, _ := cmd.Flags().GetBool("json")
			episodes, _ := cmd.Flags().GetInt("episodes")
			clients, _ := cmd.Flags().GetInt("clients")
			gridSize, _ := cmd.Flags().GetInt("grid-size")
			kpiName, _ := cmd.Flags().GetString("kpi")

			cfg, err := config.Load(dir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if episodes > 0 {
				cfg.Training.Episodes = episodes
			}
			if clients > 0 {
				cfg.Training.Clients = clients
			}

			metric := kpi.ByName(kpiName)
			if metric == nil {
				return fmt.Errorf("unknown kpi strategy: %q (valid: mean_reward, success_rate, median_steps)", kpiName)
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			rounds := logging.NewRoundLogger(filepath.Join(dir, constants.FedqDirName), cfg.Logging.Level)
			defer rounds.Close()

			cps, err := openStore(dir, cfg)
			if err != nil {
				return err
			}
			defer cps.Close()

			coord, err := training.NewCoordinator(cfg,
				func(client int) training.Environment {
					return simulation.NewGridworld(gridSize, gridSize)
				},
				training.WithLogger(logger),
				training.WithRoundLogger(rounds),
				training.WithCheckpointStore(cps),
				training.WithKPI(metric),
			)
			if err != nil {
				return fmt.Errorf("building coordinator: %w", err)
			}

			result, err := coord.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("training failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"episodes":  result.Episodes,
					"rounds":    result.Rounds,
					"converged": result.Converged,
					"avg_delta": result.LastReport.AvgDelta,
					"states":    len(result.Global),
					"kpi":       map[string]any{"strategy": metric.Name(), "value": result.KPI},
				})
			}

			fmt.Printf("Trained %d clients for %d episodes each.\n", cfg.Training.Clients, result.Episodes)
			fmt.Printf("Federation rounds: %d (converged: %t, avg delta: %.6f)\n",
				result.Rounds, result.Converged, result.LastReport.AvgDelta)
			fmt.Printf("Global model: %d states. %s: %.4f\n", len(result.Global), metric.Name(), result.KPI)
			return nil
		},
	}

	cmd.Flags().Int("episodes", 0, "Episode budget per client (0 = from config)")
	cmd.Flags().Int("clients", 0, "Number of clients (0 = from config)")
	cmd.Flags().Int("grid-size", 5, "Side length of the built-in gridworld")
	cmd.Flags().String("kpi", "mean_reward", "KPI strategy: mean_reward, success_rate, median_steps")
	return cmd
}

// openStore builds the checkpoint store selected by the config.
func openStore(dir string, cfg *config.FedqConfig) (store.CheckpointStore, error) {
	if cfg.Store.Backend == "memory" {
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewSQLiteStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}
	return s, nil
}
