package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/fedq/internal/config"
	"github.com/nvandessel/fedq/internal/constants"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a fedq workspace in the target directory",
		Long: `Create the .fedq data directory and a default config.yaml.

An existing config.yaml is left untouched; re-running init is safe.

Example:
  fedq init --actions 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			jsonOut, _ := cmd.Flags().GetBool("json")
			actions, _ := cmd.Flags().GetInt("actions")

			configPath := filepath.Join(dir, constants.FedqDirName, constants.ConfigFileName)
			created := false

			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				cfg := config.Default()
				cfg.Agent.NumActions = actions
				if err := cfg.Save(dir); err != nil {
					return fmt.Errorf("writing default config: %w", err)
				}
				created = true
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"config":  configPath,
					"created": created,
				})
			}
			if created {
				fmt.Printf("Initialized fedq workspace: %s\n", configPath)
			} else {
				fmt.Printf("Workspace already initialized: %s\n", configPath)
			}
			return nil
		},
	}

	cmd.Flags().Int("actions", 0, "Action-space size to record in the config (0 = take from environment)")
	return cmd
}
