package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the time-allocation model",
		Long: `Creates agents split between a relational and a materialist alpha, lets
each one search for its best split of the day, and reports mean happiness
per step, a sample of final agent states and the happiness distribution
per alpha.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			opts := runOptions{
				Agents: cfg.Simulation.Agents,
				Steps:  cfg.Simulation.Steps,
				Total:  cfg.Simulation.TotalHours,
			}
			if cmd.Flags().Changed("agents") {
				opts.Agents, _ = cmd.Flags().GetInt("agents")
			}
			if cmd.Flags().Changed("steps") {
				opts.Steps, _ = cmd.Flags().GetInt("steps")
			}
			if cmd.Flags().Changed("total") {
				opts.Total, _ = cmd.Flags().GetFloat64("total")
			}
			opts.Bins, _ = cmd.Flags().GetInt("bins")
			opts.Sample, _ = cmd.Flags().GetInt("sample")
			if opts.Sample < 0 {
				return fmt.Errorf("--sample must be non-negative, got %d", opts.Sample)
			}
			opts.Export, _ = cmd.Flags().GetString("export")
			if opts.Export != "" {
				opts.Export = cfg.Resolve(opts.Export)
			}

			db, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeStore(db)

			_, err = runHappiness(cmd.Context(), cfg, db, opts, cmd.OutOrStdout(), jsonOut)
			return err
		},
	}

	cmd.Flags().Int("agents", 0, "Number of agents (default from config)")
	cmd.Flags().Int("steps", 0, "Number of steps (default from config)")
	cmd.Flags().Float64("total", 0, "Hours in the daily budget (default from config)")
	cmd.Flags().Int("bins", 10, "Histogram bins per alpha")
	cmd.Flags().Int("sample", 10, "Final agents to print")
	cmd.Flags().String("export", "", "Write the final agent state to this xlsx file")
	return cmd
}
