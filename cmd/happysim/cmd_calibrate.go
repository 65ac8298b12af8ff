package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newCalibrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate [network|all]",
		Short: "Correlate model happiness with the survey",
		Long: `Computes the correlation coefficient between the survey's happiness
column and the model's happiness column for one network, or for IG, X and
FB in turn with "all" (the default). Results are recorded in the run store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			keys := calibrationOrder
			if len(args) == 1 && !strings.EqualFold(args[0], "all") {
				keys = []string{args[0]}
			}
			nets, err := networksFor(keys)
			if err != nil {
				return err
			}

			db, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeStore(db)

			return calibrateNetworks(cmd.Context(), cfg, db, nets, cmd.OutOrStdout(), jsonOut)
		},
	}
}
