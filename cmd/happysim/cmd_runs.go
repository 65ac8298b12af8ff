package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/happiness-abm/internal/persistence"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs and recent calibrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			db, err := persistence.Open(cfg.DatabasePath())
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer closeStore(db)

			runs, err := db.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			cals, err := db.RecentCalibrations(limit)
			if err != nil {
				return fmt.Errorf("list calibrations: %w", err)
			}

			if jsonOut {
				if runs == nil {
					runs = []persistence.Run{}
				}
				if cals == nil {
					cals = []persistence.Calibration{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"runs":         runs,
					"calibrations": cals,
				})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tKIND\tNETWORK\tAGENTS\tSTEPS\tSEED\tCREATED")
				for _, r := range runs {
					network := r.Network
					if network == "" {
						network = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
						r.ID, r.Kind, network, humanize.Comma(int64(r.Agents)), r.Steps, r.Seed,
						humanize.Time(r.Created()))
				}
				tw.Flush()
			}

			if len(cals) > 0 {
				fmt.Fprintln(out, "\nRecent calibrations:")
				for _, c := range cals {
					fmt.Fprintf(out, "  %-12s r=%9.6f  n=%-5d %s\n", c.Network, c.R, c.N,
						humanize.Time(c.Created()))
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum runs and calibrations to list")
	return cmd
}
