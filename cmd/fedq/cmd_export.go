package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/fedq/internal/config"
	"github.com/nvandessel/fedq/internal/model"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the latest merged model in wire format",
		Long: `Export the most recent checkpointed global model as versioned JSON.

The payload round-trips through import on any fedq instance. With no
--out flag the payload is written to stdout.

Example:
  fedq export --out global-model.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			out, _ := cmd.Flags().GetString("out")

			cfg, err := config.Load(dir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cps, err := openStore(dir, cfg)
			if err != nil {
				return err
			}
			defer cps.Close()

			latest, err := cps.LoadLatest(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading latest checkpoint: %w", err)
			}
			if latest == nil {
				return fmt.Errorf("no checkpoints found; run 'fedq train' first")
			}

			// Refuse to export a payload that would not import cleanly.
			if _, ok := model.Decode(latest.Payload); !ok {
				return fmt.Errorf("checkpoint %s holds an undecodable payload", latest.ID)
			}

			if out == "" {
				_, err := os.Stdout.Write(append(latest.Payload, '\n'))
				return err
			}
			if err := os.WriteFile(out, latest.Payload, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"checkpoint": latest.ID,
					"round":      latest.Round,
					"out":        out,
				})
			}
			fmt.Printf("Exported round %d checkpoint to %s\n", latest.Round, out)
			return nil
		},
	}

	cmd.Flags().String("out", "", "Output file (default: stdout)")
	return cmd
}
