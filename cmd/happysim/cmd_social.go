package main

import (
	"github.com/spf13/cobra"

	"github.com/talgya/happiness-abm/internal/persistence"
	"github.com/talgya/happiness-abm/internal/survey"
)

func newSocialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "social <network>",
		Short: "Run the social dynamics model for a network",
		Long: `Seeds agents from the network's model workbook (random data when it is
missing), places them on a torus grid and lets them move toward or away
from crowds while happiness spreads between neighbours.

With --serve the grid is shown in a browser and driven from there.
Otherwise the model runs headless for --steps steps and is recorded in the
run store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			n, err := survey.Lookup(args[0])
			if err != nil {
				return err
			}

			opts := socialOptions{Steps: cfg.Social.Steps}
			if cmd.Flags().Changed("steps") {
				opts.Steps, _ = cmd.Flags().GetInt("steps")
			}
			opts.Serve, _ = cmd.Flags().GetBool("serve")
			opts.Addr, _ = cmd.Flags().GetString("addr")

			var db *persistence.DB
			if !opts.Serve {
				if db, err = openStore(cmd, cfg); err != nil {
					return err
				}
				defer closeStore(db)
			}

			return runSocial(cmd.Context(), cfg, db, n, opts, cmd.OutOrStdout(), jsonOut)
		},
	}

	cmd.Flags().Int("steps", 0, "Steps to run headless (default from config)")
	cmd.Flags().Bool("serve", false, "Serve the grid in a browser instead of running headless")
	cmd.Flags().String("addr", "", "Listen address for --serve (default host:port from config)")
	return cmd
}
