package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/fedq/internal/config"
	"github.com/nvandessel/fedq/internal/federation"
	"github.com/nvandessel/fedq/internal/model"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [checkpoint-id]",
		Short: "Show checkpoint history or a single checkpoint",
		Long: `Without arguments, list the checkpoint history newest first.
With a checkpoint ID, decode that checkpoint and show its model summary.
With --delta, additionally report the movement between the two most
recent checkpoints.

Examples:
  fedq inspect               # history
  fedq inspect --delta       # history plus latest-round delta
  fedq inspect 1b9d6bcd-...  # one checkpoint`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			showDelta, _ := cmd.Flags().GetBool("delta")

			cfg, err := config.Load(dir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cps, err := openStore(dir, cfg)
			if err != nil {
				return err
			}
			defer cps.Close()

			ctx := cmd.Context()

			if len(args) == 1 {
				cp, err := cps.LoadCheckpoint(ctx, args[0])
				if err != nil {
					return fmt.Errorf("loading checkpoint: %w", err)
				}

				m, ok := model.Decode(cp.Payload)
				if !ok {
					return fmt.Errorf("checkpoint %s holds an undecodable payload", cp.ID)
				}

				if jsonOut {
					return json.NewEncoder(os.Stdout).Encode(map[string]any{
						"id":        cp.ID,
						"round":     cp.Round,
						"states":    len(m),
						"avg_delta": cp.AvgDelta,
						"converged": cp.Converged,
						"created":   cp.CreatedAt,
					})
				}
				fmt.Printf("Checkpoint %s\n", cp.ID)
				fmt.Printf("  round: %d  states: %d  avg delta: %.6f  converged: %t\n",
					cp.Round, len(m), cp.AvgDelta, cp.Converged)
				fmt.Printf("  created: %s\n", cp.CreatedAt.Format("2006-01-02 15:04:05"))
				return nil
			}

			history, err := cps.History(ctx, limit)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}

			var report *federation.DeltaReport
			if showDelta && len(history) >= 2 {
				// history is newest first; compare the latest two rounds.
				// A corrupt payload is skipped, not fatal.
				newM, okNew := model.Decode(history[0].Payload)
				oldM, okOld := model.Decode(history[1].Payload)
				if okNew && okOld {
					r := federation.ComputeDelta(oldM, newM, cfg.Federation.Delta)
					report = &r
				} else {
					fmt.Fprintln(os.Stderr, "warning: skipping delta, undecodable checkpoint payload")
				}
			}

			if jsonOut {
				entries := make([]map[string]any, 0, len(history))
				for _, cp := range history {
					entries = append(entries, map[string]any{
						"id":        cp.ID,
						"round":     cp.Round,
						"avg_delta": cp.AvgDelta,
						"converged": cp.Converged,
						"created":   cp.CreatedAt,
					})
				}
				out := map[string]any{"checkpoints": entries}
				if report != nil {
					out["latest_delta"] = report
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}

			if len(history) == 0 {
				fmt.Println("No checkpoints found.")
				return nil
			}
			for _, cp := range history {
				fmt.Printf("round %3d  %s  avg delta %.6f  converged %-5t  %s\n",
					cp.Round, cp.ID, cp.AvgDelta, cp.Converged,
					cp.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if report != nil {
				fmt.Printf("latest delta: avg %.6f  max %.6f  changed %d/%d states  converged %t\n",
					report.AvgDelta, report.MaxDelta, report.StatesChanged,
					report.TotalStates, report.Converged)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum history entries to show (0 = all)")
	cmd.Flags().Bool("delta", false, "Report the delta between the two latest checkpoints")
	return cmd
}
