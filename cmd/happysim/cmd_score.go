package main

import (
	"github.com/spf13/cobra"

	"github.com/talgya/happiness-abm/internal/survey"
)

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <network>",
		Short: "Score a network's clean survey with the Cobb-Douglas model",
		Long: `Derives each respondent's alpha from the configured survey answer
(scoring.alpha_column, the recoded happiness answer by default), solves
the optimal time allocation and writes clean_data/model_<NET>.xlsx with
happiness, sociability, alpha and the two time buckets.`,
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
			return scoreNetwork(cmd.Context(), cfg, n, cmd.OutOrStdout(), jsonOut)
		},
	}
}
